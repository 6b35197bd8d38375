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

import (
	"errors"
	"fmt"
	"strings"
)

// Stage names the pipeline step an error came from.
type Stage string

const (
	StageSession     Stage = "session"
	StageChallenge   Stage = "challenge"
	StageIdentityKey Stage = "identity-key"
	StageSelect      Stage = "pcr-select"
	StageQuote       Stage = "quote"
	StagePCRRead     Stage = "pcr-read"
	StageVerify      Stage = "verify"
	StageWrite       Stage = "write"
	StageReadQuote   Stage = "read-quote"
	StagePublicKey   Stage = "aik-pub"
)

// Errors reported by attestation collaborators. Implementations wrap them so
// callers can tell the failing operation apart with errors.Is.
var (
	ErrConnection = errors.New("attestation module unreachable")
	ErrKeyLoad    = errors.New("identity key could not be loaded")
	ErrQuote      = errors.New("quote operation failed")
	ErrPCRRead    = errors.New("PCR read failed")
)

var (
	ErrInconsistentPCRHash = errors.New("inconsistent PCR hash in output of quote")
	ErrBadSignature        = errors.New("quote signature does not verify")
)

// IOError is a file open, read or write failure.
type IOError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Coder is implemented by collaborator errors that carry a TPM return code.
type Coder interface {
	TPMCode() uint32
}

// TPMOperationError is a failed call into the attestation collaborator.
type TPMOperationError struct {
	Stage Stage
	Op    string
	// Code is the TPM return code, zero when the collaborator did not expose one.
	Code uint32
	Err  error
}

func newTPMError(stage Stage, op string, err error) *TPMOperationError {
	e := &TPMOperationError{Stage: stage, Op: op, Err: err}
	var c Coder
	if errors.As(err, &c) {
		e.Code = c.TPMCode()
	}
	return e
}

func (e *TPMOperationError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (TPM code 0x%x): %v", e.Stage, e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Op, e.Err)
}

func (e *TPMOperationError) Unwrap() error { return e.Err }

// TriedCandidate records the digest of a reassembly that did not match.
type TriedCandidate struct {
	Kind   CandidateKind
	Digest Digest
}

// QuoteInconsistencyError means no reassembly of the PCR composite hashed to
// the composite hash inside the signed quote.
type QuoteInconsistencyError struct {
	Composite Digest
	Tried     []TriedCandidate
}

func (e *QuoteInconsistencyError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %v: quote composite %s", StageVerify, ErrInconsistentPCRHash, e.Composite)
	for _, t := range e.Tried {
		fmt.Fprintf(&sb, ", %s %s", t.Kind, t.Digest)
	}
	return sb.String()
}

func (e *QuoteInconsistencyError) Unwrap() error { return ErrInconsistentPCRHash }
