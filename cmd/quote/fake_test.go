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

package quote

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/itsmeyaw/xenquote/pkg/pcrquote"
)

var testAIK = sync.OnceValues(func() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, 2048)
})

const testKeyHandle pcrquote.KeyHandle = 0x01000000

type fakeAttestor struct {
	session pcrquote.Session
	device  string
}

func (a *fakeAttestor) Open() (pcrquote.Session, error) {
	return a.session, nil
}

// fakeSession quotes a fixed bank of PCRs with the full selection mask.
type fakeSession struct {
	key     *rsa.PrivateKey
	keyBlob []byte
	pcrs    []pcrquote.Digest
	corrupt bool
	closed  int
}

func newFakeSession(t *testing.T, pcrCount int) *fakeSession {
	t.Helper()
	key, err := testAIK()
	require.NoError(t, err)
	pcrs := make([]pcrquote.Digest, pcrCount)
	for i := range pcrs {
		pcrs[i] = pcrquote.SHA1([]byte{byte(i), 0x5a})
	}
	return &fakeSession{key: key, keyBlob: []byte("aik"), pcrs: pcrs}
}

func (s *fakeSession) LoadIdentityKey(blob []byte) (pcrquote.KeyHandle, error) {
	if !bytes.Equal(blob, s.keyBlob) {
		return 0, pcrquote.ErrKeyLoad
	}
	return testKeyHandle, nil
}

func (s *fakeSession) MaxPCRCount() (uint32, error) {
	return uint32(len(s.pcrs)), nil
}

func (s *fakeSession) Quote(key pcrquote.KeyHandle, sel pcrquote.Selection, externalData pcrquote.Digest) (*pcrquote.SignedQuote, error) {
	if key != testKeyHandle {
		return nil, fmt.Errorf("%w: unknown key", pcrquote.ErrQuote)
	}
	rec, err := pcrquote.RecordBuilder{Selection: sel, Values: s.pcrs}.Build()
	if err != nil {
		return nil, err
	}
	b, err := rec.Serialize()
	if err != nil {
		return nil, err
	}
	hash := pcrquote.SHA1(b)
	if s.corrupt {
		hash[19] ^= 1
	}
	info := pcrquote.SHA1(pcrquote.QuoteInfo(hash, externalData))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA1, info[:])
	if err != nil {
		return nil, err
	}
	return &pcrquote.SignedQuote{Signature: sig, CompositeHash: hash}, nil
}

func (s *fakeSession) PCRValue(index uint32) (pcrquote.Digest, error) {
	if int(index) >= len(s.pcrs) {
		return pcrquote.Digest{}, pcrquote.ErrPCRRead
	}
	return s.pcrs[index], nil
}

func (s *fakeSession) Digest20(buf []byte) pcrquote.Digest {
	return pcrquote.SHA1(buf)
}

func (s *fakeSession) PublicKey(key pcrquote.KeyHandle) (*rsa.PublicKey, error) {
	if key != testKeyHandle {
		return nil, fmt.Errorf("unknown key 0x%x", key)
	}
	return &s.key.PublicKey, nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

// sessionOnly hides the public key export of the wrapped session.
type sessionOnly struct {
	pcrquote.Session
}
