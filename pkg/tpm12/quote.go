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

package tpm12

import (
	"crypto/hmac"
	"crypto/sha1" // #nosec G505 -- TPM 1.2 parameter digests are SHA-1
	"errors"
	"fmt"
	"slices"

	"github.com/google/go-tpm/tpmutil"
	"go.uber.org/multierr"

	"github.com/itsmeyaw/xenquote/pkg/pcrquote"
)

// Quote runs TPM_ORD_Quote with key over the PCRs in sel. The external data
// is passed to the TPM unmodified, and the composite hash is the SHA-1 of the
// TPM_PCR_COMPOSITE the TPM returns, as the TSS computes it for
// TPM_QUOTE_INFO.
func (s *Session) Quote(key pcrquote.KeyHandle, sel pcrquote.Selection, externalData pcrquote.Digest) (*pcrquote.SignedQuote, error) {
	handle := tpmutil.Handle(key)
	if !slices.Contains(s.keys, handle) {
		return nil, fmt.Errorf("%w: key handle 0x%08x was not loaded in this session", pcrquote.ErrQuote, uint32(key))
	}

	osap, err := startOSAP(s.rw, handle, s.aikAuth)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pcrquote.ErrQuote, err)
	}
	nonceOdd, err := newNonce()
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("%w: %w", pcrquote.ErrQuote, err), flushSpecific(s.rw, osap.handle, rtAuth))
	}

	nonce := [20]byte(externalData)
	targetPCR := tpmutil.U16Bytes(sel.Mask)
	inParams, err := tpmutil.Pack(ordQuote, nonce, targetPCR)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("%w: encoding parameters: %w", pcrquote.ErrQuote, err), flushSpecific(s.rw, osap.handle, rtAuth))
	}

	// The session is not continued, the TPM releases it with the response.
	const cont byte = 0
	auth := osap.commandAuth(sha1.Sum(inParams), nonceOdd, cont)
	resp, err := runCommand(s.rw, tagRQUAuth1Command, ordQuote,
		handle, nonce, targetPCR,
		osap.handle, nonceOdd, cont, auth)
	if err != nil {
		var rc *responseCodeError
		if !errors.As(err, &rc) {
			err = multierr.Append(err, flushSpecific(s.rw, osap.handle, rtAuth))
		}
		return nil, fmt.Errorf("%w: %w", pcrquote.ErrQuote, err)
	}

	composite, sig, err := s.verifyQuoteResponse(osap, nonceOdd, resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pcrquote.ErrQuote, err)
	}

	quote := &pcrquote.SignedQuote{
		Signature:     sig,
		CompositeHash: pcrquote.SHA1(composite),
	}
	s.log.Debug("TPM_Quote completed",
		"key", fmt.Sprintf("0x%08x", uint32(handle)),
		"composite_len", len(composite),
		"signature_len", len(sig))
	return quote, nil
}

// verifyQuoteResponse splits a TPM_Quote response into the raw
// TPM_PCR_COMPOSITE and the signature after checking the response HMAC. The
// composite's values are kept for PCRValue.
func (s *Session) verifyQuoteResponse(osap *osapSession, nonceOdd [20]byte, resp []byte) ([]byte, []byte, error) {
	rec, rest, err := pcrquote.ParseRecord(resp)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding PCR composite: %w", err)
	}
	composite := slices.Clone(resp[:len(resp)-len(rest)])

	var (
		sig       tpmutil.U32Bytes
		nonceEven [20]byte
		cont      byte
		resAuth   [20]byte
	)
	if _, err := tpmutil.Unpack(rest, &sig, &nonceEven, &cont, &resAuth); err != nil {
		return nil, nil, fmt.Errorf("decoding quote response: %w", err)
	}

	outParams, err := tpmutil.Pack(uint32(tpmutil.RCSuccess), ordQuote, tpmutil.RawBytes(composite), sig)
	if err != nil {
		return nil, nil, err
	}
	want := osap.responseAuth(sha1.Sum(outParams), nonceEven, nonceOdd, cont)
	if !hmac.Equal(want[:], resAuth[:]) {
		return nil, nil, errors.New("response authorization does not match")
	}

	s.quoted = make(map[uint32]pcrquote.Digest, len(rec.Values))
	if indices := pcrquote.PCRMask(rec.Mask).Indices(); len(indices) == len(rec.Values) {
		for i, idx := range indices {
			s.quoted[idx] = rec.Values[i]
		}
	}
	return composite, slices.Clone([]byte(sig)), nil
}
