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
	"fmt"
	"log/slog"

	vfs "github.com/twpayne/go-vfs/v4"
	"go.uber.org/multierr"
)

// Request names the files of one quote run.
type Request struct {
	// ChallengePath is the nonce file. Empty selects the no-nonce mode.
	ChallengePath   string
	IdentityKeyPath string
	OutputPath      string
}

// Result describes a quote that was verified and written.
type Result struct {
	Challenge  Challenge
	Selection  Selection
	Candidate  CandidateKind
	Record     Record
	RecordSize int
	Composite  Digest
	Signature  []byte
}

// Pipeline produces a verified quote file from one attestation session.
type Pipeline struct {
	Attestor Attestor
	FS       vfs.FS
	Logger   *slog.Logger
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}

// Run executes the pipeline. The session is closed on every path and a close
// failure is merged into the returned error. Nothing is written unless the
// reassembled record hashes to the quote's composite hash.
func (p *Pipeline) Run(req Request) (_ *Result, err error) {
	log := p.logger()

	session, err := p.Attestor.Open()
	if err != nil {
		return nil, newTPMError(StageSession, "open session", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			err = multierr.Append(err, newTPMError(StageSession, "close session", cerr))
		}
	}()

	challenge, err := LoadChallenge(p.FS, req.ChallengePath, session.Digest20)
	if err != nil {
		return nil, err
	}
	log.Debug("challenge loaded", "mode", challenge.Mode, "path", challenge.Path, "size", challenge.Size, "digest", challenge.Digest)

	blob, err := p.FS.ReadFile(req.IdentityKeyPath)
	if err != nil {
		return nil, &IOError{Stage: StageIdentityKey, Path: req.IdentityKeyPath, Err: err}
	}
	key, err := session.LoadIdentityKey(blob)
	if err != nil {
		return nil, newTPMError(StageIdentityKey, "load identity key", err)
	}
	log.Debug("identity key loaded", "path", req.IdentityKeyPath, "handle", fmt.Sprintf("0x%08x", uint32(key)))

	count, err := session.MaxPCRCount()
	if err != nil {
		return nil, newTPMError(StageSelect, "query PCR count", err)
	}
	sel, err := Select(count)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageSelect, err)
	}
	log.Debug("PCRs selected", "count", sel.Count, "mask", fmt.Sprintf("%x", []byte(sel.Mask)))

	quote, values, err := p.invokeQuote(session, key, sel, challenge.Digest)
	if err != nil {
		return nil, err
	}

	candidates, err := Candidates(sel, values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageVerify, err)
	}
	match, err := Reconcile(session.Digest20, quote.CompositeHash, candidates)
	if err != nil {
		return nil, err
	}
	if match.Kind == CandidateShortMask {
		log.Warn("composite hash matched only with a mask length one byte short; accepting as a TSS compatibility shim",
			"mask_len", match.Record.MaskLen, "selected_mask_len", len(sel.Mask))
	}

	if err := WriteQuoteFile(p.FS, req.OutputPath, match.Bytes, quote.Signature); err != nil {
		return nil, err
	}
	log.Info("quote written",
		"path", req.OutputPath,
		"pcrs", sel.Count,
		"candidate", match.Kind,
		"composite", match.Digest,
		"signature_len", len(quote.Signature))

	return &Result{
		Challenge:  challenge,
		Selection:  sel,
		Candidate:  match.Kind,
		Record:     match.Record,
		RecordSize: len(match.Bytes),
		Composite:  match.Digest,
		Signature:  quote.Signature,
	}, nil
}

// invokeQuote asks for one quote over sel, then reads each selected PCR in
// ascending order. Failures are not retried.
func (p *Pipeline) invokeQuote(session Session, key KeyHandle, sel Selection, external Digest) (*SignedQuote, []Digest, error) {
	quote, err := session.Quote(key, sel, external)
	if err != nil {
		return nil, nil, newTPMError(StageQuote, "quote", err)
	}
	if quote == nil {
		return nil, nil, newTPMError(StageQuote, "quote", fmt.Errorf("%w: empty response", ErrQuote))
	}
	p.logger().Debug("quote received", "composite", quote.CompositeHash, "signature_len", len(quote.Signature))

	values := make([]Digest, 0, len(sel.Indices))
	for _, idx := range sel.Indices {
		v, err := session.PCRValue(idx)
		if err != nil {
			return nil, nil, newTPMError(StagePCRRead, fmt.Sprintf("read PCR %d", idx), err)
		}
		values = append(values, v)
	}
	return quote, values, nil
}
