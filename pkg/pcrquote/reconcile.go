/*
Copyright 2026 Yudhisitra Arief Wibowo

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package pcrquote

import "fmt"

type CandidateKind int

const (
	// CandidateFullMask carries the mask exactly as selected.
	CandidateFullMask CandidateKind = iota
	// CandidateShortMask is a compatibility shim for TSS stacks that hash a
	// mask-length field one byte shorter than the selection needs. It is tried
	// once, after CandidateFullMask, and never shrinks further.
	CandidateShortMask
)

func (k CandidateKind) String() string {
	switch k {
	case CandidateFullMask:
		return "full-mask"
	case CandidateShortMask:
		return "short-mask"
	default:
		return fmt.Sprintf("candidate(%d)", int(k))
	}
}

type Candidate struct {
	Kind   CandidateKind
	Record Record
}

// Candidates returns the reassemblies to check, in order. The short-mask
// candidate is left out when the mask is empty.
func Candidates(sel Selection, values []Digest) ([]Candidate, error) {
	full, err := RecordBuilder{Selection: sel, Values: values}.Build()
	if err != nil {
		return nil, err
	}

	candidates := []Candidate{{Kind: CandidateFullMask, Record: full}}
	if short, ok := full.shortMask(); ok {
		candidates = append(candidates, Candidate{Kind: CandidateShortMask, Record: short})
	}
	return candidates, nil
}

// Reconciled is the candidate whose digest matched the quote.
type Reconciled struct {
	Kind   CandidateKind
	Record Record
	Bytes  []byte
	Digest Digest
}

// Reconcile hashes each candidate with digest and returns the first one equal
// to composite. When none match it returns a *QuoteInconsistencyError.
func Reconcile(digest func([]byte) Digest, composite Digest, candidates []Candidate) (*Reconciled, error) {
	tried := make([]TriedCandidate, 0, len(candidates))
	for _, c := range candidates {
		b, err := c.Record.Serialize()
		if err != nil {
			return nil, fmt.Errorf("serializing %s candidate: %w", c.Kind, err)
		}
		d := digest(b)
		if d == composite {
			return &Reconciled{Kind: c.Kind, Record: c.Record, Bytes: b, Digest: d}, nil
		}
		tried = append(tried, TriedCandidate{Kind: c.Kind, Digest: d})
	}
	return nil, &QuoteInconsistencyError{Composite: composite, Tried: tried}
}
