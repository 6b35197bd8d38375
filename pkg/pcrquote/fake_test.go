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

package pcrquote_test

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/binary"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/itsmeyaw/xenquote/pkg/pcrquote"
)

var testAIK = sync.OnceValues(func() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, 2048)
})

func aikKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	k, err := testAIK()
	require.NoError(t, err)
	return k
}

type codedError struct {
	code uint32
}

func (e codedError) Error() string   { return fmt.Sprintf("tpm error 0x%x", e.code) }
func (e codedError) TPMCode() uint32 { return e.code }

type fakeAttestor struct {
	session *fakeSession
	openErr error
	opened  int
}

func (a *fakeAttestor) Open() (pcrquote.Session, error) {
	if a.openErr != nil {
		return nil, a.openErr
	}
	a.opened++
	return a.session, nil
}

// fakeSession behaves like a TPM 1.2 answering quotes over a fixed PCR bank.
type fakeSession struct {
	key     *rsa.PrivateKey
	keyBlob []byte
	pcrs    []pcrquote.Digest
	// extraPCRs is added to the reported PCR count without backing values.
	extraPCRs uint32
	// shortMask hashes the composite with a mask-length field one byte short.
	shortMask bool
	// corrupt flips a byte of the composite hash.
	corrupt  bool
	quoteErr error
	closeErr error

	calls        []string
	digestInputs [][]byte
	externalData pcrquote.Digest
	closed       int
}

func newFakeSession(t *testing.T, pcrCount int) *fakeSession {
	t.Helper()
	pcrs := make([]pcrquote.Digest, pcrCount)
	for i := range pcrs {
		pcrs[i] = pcrquote.SHA1([]byte(fmt.Sprintf("pcr-%d", i)))
	}
	return &fakeSession{
		key:     aikKey(t),
		keyBlob: []byte("aik-blob-v1"),
		pcrs:    pcrs,
	}
}

func (s *fakeSession) LoadIdentityKey(blob []byte) (pcrquote.KeyHandle, error) {
	s.calls = append(s.calls, "load-key")
	if !bytes.Equal(blob, s.keyBlob) {
		return 0, fmt.Errorf("%w: unrecognised blob", pcrquote.ErrKeyLoad)
	}
	return 0x01000000, nil
}

func (s *fakeSession) MaxPCRCount() (uint32, error) {
	s.calls = append(s.calls, "pcr-count")
	return uint32(len(s.pcrs)) + s.extraPCRs, nil
}

func (s *fakeSession) Quote(key pcrquote.KeyHandle, sel pcrquote.Selection, externalData pcrquote.Digest) (*pcrquote.SignedQuote, error) {
	s.calls = append(s.calls, "quote")
	s.externalData = externalData
	if s.quoteErr != nil {
		return nil, s.quoteErr
	}
	if key != 0x01000000 {
		return nil, fmt.Errorf("%w: unknown key 0x%x", pcrquote.ErrQuote, key)
	}

	mask := []byte(sel.Mask)
	if s.shortMask && len(mask) > 0 {
		mask = mask[:len(mask)-1]
	}
	var composite []byte
	composite = binary.BigEndian.AppendUint16(composite, uint16(len(mask)))
	composite = append(composite, mask...)
	composite = binary.BigEndian.AppendUint32(composite, uint32(len(sel.Indices)*pcrquote.DigestSize))
	for _, i := range sel.Indices {
		if int(i) < len(s.pcrs) {
			composite = append(composite, s.pcrs[i][:]...)
		}
	}
	hash := pcrquote.SHA1(composite)
	if s.corrupt {
		hash[0] ^= 0xff
	}

	info := pcrquote.SHA1(pcrquote.QuoteInfo(hash, externalData))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA1, info[:])
	if err != nil {
		return nil, err
	}
	return &pcrquote.SignedQuote{Signature: sig, CompositeHash: hash}, nil
}

func (s *fakeSession) PCRValue(index uint32) (pcrquote.Digest, error) {
	s.calls = append(s.calls, fmt.Sprintf("pcr-%d", index))
	if int(index) >= len(s.pcrs) {
		return pcrquote.Digest{}, fmt.Errorf("%w: index %d", pcrquote.ErrPCRRead, index)
	}
	return s.pcrs[index], nil
}

func (s *fakeSession) Digest20(buf []byte) pcrquote.Digest {
	s.digestInputs = append(s.digestInputs, bytes.Clone(buf))
	return pcrquote.SHA1(buf)
}

func (s *fakeSession) Close() error {
	s.closed++
	return s.closeErr
}
