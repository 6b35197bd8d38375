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
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" // #nosec G505
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/google/go-tpm/tpmutil"
	"github.com/stretchr/testify/require"

	"github.com/itsmeyaw/xenquote/pkg/pcrquote"
)

const (
	ordPCRRead       uint32 = 0x15
	ordGetCapability uint32 = 0x65

	capPropManufacturer uint32 = 0x103

	rcAuthFail   uint32 = 0x01
	rcBadIndex   uint32 = 0x02
	rcBadOrdinal uint32 = 0x0A
	rcBadHandle  uint32 = 0x0C
)

var fakeAIK = sync.OnceValues(func() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, 2048)
})

type fakeOSAP struct {
	key       uint32
	nonceEven [20]byte
	secret    [20]byte
}

// fakeTPM answers the TPM 1.2 commands a quote session sends.
type fakeTPM struct {
	t       *testing.T
	aik     *rsa.PrivateKey
	aikAuth Auth
	pcrs    [][20]byte

	// shortSelect returns a PCR composite whose select field is one byte
	// shorter than the requested selection.
	shortSelect bool
	// badResAuth corrupts the response HMAC of TPM_Quote.
	badResAuth bool

	keys     map[uint32]bool
	sessions map[uint32]*fakeOSAP
	nextAuth uint32
	flushed  []uint32
	ords     []uint32
	closed   bool
	resp     []byte
}

func newFakeTPM(t *testing.T, pcrCount int) *fakeTPM {
	t.Helper()
	aik, err := fakeAIK()
	require.NoError(t, err)

	pcrs := make([][20]byte, pcrCount)
	for i := range pcrs {
		pcrs[i] = sha1.Sum([]byte(fmt.Sprintf("measurement %d", i)))
	}
	return &fakeTPM{
		t:        t,
		aik:      aik,
		aikAuth:  AuthFromSecret("aik-secret"),
		pcrs:     pcrs,
		keys:     map[uint32]bool{},
		sessions: map[uint32]*fakeOSAP{},
		nextAuth: 0x02000000,
	}
}

// loadKey2 stands in for TPM_LoadKey2 and registers a key handle.
func (f *fakeTPM) loadKey2(_ io.ReadWriter, blob []byte, _ []byte) (tpmutil.Handle, error) {
	if !bytes.Equal(blob, []byte("aik")) {
		return 0, errors.New("tpm: bad key blob")
	}
	h := uint32(0x01000000 + len(f.keys))
	f.keys[h] = true
	return tpmutil.Handle(h), nil
}

func (f *fakeTPM) getPubKey(_ io.ReadWriter, h tpmutil.Handle, _ []byte) ([]byte, error) {
	if !f.keys[uint32(h)] {
		return nil, errors.New("tpm: unknown key")
	}
	return nil, errors.New("tpm: not implemented")
}

func (f *fakeTPM) session(t *testing.T) *Session {
	t.Helper()
	a := &Attestor{Device: "/dev/fake-tpm", AIKAuth: f.aikAuth}
	s, err := a.openOn(f)
	require.NoError(t, err)
	s.loadKey2 = f.loadKey2
	s.getPubKey = f.getPubKey
	return s
}

func (f *fakeTPM) Read(p []byte) (int, error) {
	if f.resp == nil {
		return 0, io.EOF
	}
	n := copy(p, f.resp)
	f.resp = f.resp[n:]
	if len(f.resp) == 0 {
		f.resp = nil
	}
	return n, nil
}

func (f *fakeTPM) Close() error {
	f.closed = true
	return nil
}

func (f *fakeTPM) Write(cmd []byte) (int, error) {
	require.GreaterOrEqual(f.t, len(cmd), 10)
	tag := binary.BigEndian.Uint16(cmd[0:2])
	require.Equal(f.t, uint32(len(cmd)), binary.BigEndian.Uint32(cmd[2:6]))
	ord := binary.BigEndian.Uint32(cmd[6:10])
	f.ords = append(f.ords, ord)
	params := cmd[10:]

	var (
		rc  uint32
		out []byte
	)
	switch ord {
	case ordGetCapability:
		rc, out = f.getCapability(params)
	case ordPCRRead:
		rc, out = f.pcrRead(params)
	case uint32(ordOSAP):
		rc, out = f.osap(params)
	case uint32(ordQuote):
		require.Equal(f.t, uint16(tagRQUAuth1Command), tag)
		rc, out = f.quote(params)
	case uint32(ordFlushSpecific):
		rc, out = f.flush(params)
	default:
		rc = rcBadOrdinal
	}

	respTag := uint16(0x00C4)
	if tag == uint16(tagRQUAuth1Command) && rc == 0 {
		respTag = 0x00C5
	}
	if rc != 0 {
		out = nil
	}
	resp := binary.BigEndian.AppendUint16(nil, respTag)
	resp = binary.BigEndian.AppendUint32(resp, uint32(10+len(out)))
	resp = binary.BigEndian.AppendUint32(resp, rc)
	f.resp = append(resp, out...)
	return len(cmd), nil
}

func (f *fakeTPM) getCapability(p []byte) (uint32, []byte) {
	require.Len(f.t, p, 12)
	capArea := binary.BigEndian.Uint32(p[0:4])
	require.Equal(f.t, uint32(4), binary.BigEndian.Uint32(p[4:8]))
	sub := binary.BigEndian.Uint32(p[8:12])
	if capArea != capProperty {
		return rcBadIndex, nil
	}

	var data []byte
	switch sub {
	case capPropPCR:
		data = binary.BigEndian.AppendUint32(nil, uint32(len(f.pcrs)))
	case capPropManufacturer:
		data = []byte("IFX\x00")
	default:
		return rcBadIndex, nil
	}
	return 0, append(binary.BigEndian.AppendUint32(nil, uint32(len(data))), data...)
}

func (f *fakeTPM) pcrRead(p []byte) (uint32, []byte) {
	require.Len(f.t, p, 4)
	idx := binary.BigEndian.Uint32(p)
	if int(idx) >= len(f.pcrs) {
		return rcBadIndex, nil
	}
	return 0, f.pcrs[idx][:]
}

func (f *fakeTPM) osap(p []byte) (uint32, []byte) {
	require.Len(f.t, p, 2+4+20)
	require.Equal(f.t, etKeyHandle, binary.BigEndian.Uint16(p[0:2]))
	key := binary.BigEndian.Uint32(p[2:6])
	if !f.keys[key] {
		return rcBadHandle, nil
	}
	var oddOSAP, evenOSAP, nonceEven [20]byte
	copy(oddOSAP[:], p[6:26])
	_, _ = rand.Read(evenOSAP[:])
	_, _ = rand.Read(nonceEven[:])

	h := f.nextAuth
	f.nextAuth++
	f.sessions[h] = &fakeOSAP{
		key:       key,
		nonceEven: nonceEven,
		secret:    hmacSHA1(f.aikAuth[:], evenOSAP[:], oddOSAP[:]),
	}

	out := binary.BigEndian.AppendUint32(nil, h)
	out = append(out, nonceEven[:]...)
	return 0, append(out, evenOSAP[:]...)
}

func (f *fakeTPM) quote(p []byte) (uint32, []byte) {
	key := binary.BigEndian.Uint32(p[0:4])
	var external [20]byte
	copy(external[:], p[4:24])
	selSize := int(binary.BigEndian.Uint16(p[24:26]))
	sel := p[26 : 26+selSize]
	a := p[26+selSize:]
	require.Len(f.t, a, 4+20+1+20)
	authHandle := binary.BigEndian.Uint32(a[0:4])
	nonceOdd := [20]byte(a[4:24])
	cont := a[24]
	auth := [20]byte(a[25:45])

	sess, ok := f.sessions[authHandle]
	if !ok || sess.key != key {
		return rcAuthFail, nil
	}
	if cont == 0 {
		delete(f.sessions, authHandle)
	}
	inDigest := sha1.Sum(append(binary.BigEndian.AppendUint32(nil, uint32(ordQuote)), p[4:26+selSize]...))
	if hmacSHA1(sess.secret[:], inDigest[:], sess.nonceEven[:], nonceOdd[:], []byte{cont}) != auth {
		return rcAuthFail, nil
	}

	if f.shortSelect && len(sel) > 0 {
		sel = sel[:len(sel)-1]
	}
	var values []byte
	for i, b := range p[26 : 26+selSize] {
		for bit := 0; bit < 8; bit++ {
			idx := i*8 + bit
			if b&(1<<bit) != 0 && idx < len(f.pcrs) {
				values = append(values, f.pcrs[idx][:]...)
			}
		}
	}
	composite := binary.BigEndian.AppendUint16(nil, uint16(len(sel)))
	composite = append(composite, sel...)
	composite = binary.BigEndian.AppendUint32(composite, uint32(len(values)))
	composite = append(composite, values...)

	info := pcrquote.QuoteInfo(pcrquote.SHA1(composite), pcrquote.Digest(external))
	h := sha1.Sum(info)
	sig, err := rsa.SignPKCS1v15(rand.Reader, f.aik, crypto.SHA1, h[:])
	require.NoError(f.t, err)

	outParams := append([]byte(nil), composite...)
	outParams = binary.BigEndian.AppendUint32(outParams, uint32(len(sig)))
	outParams = append(outParams, sig...)

	var nonceEven [20]byte
	_, _ = rand.Read(nonceEven[:])
	outDigest := sha1.Sum(append(binary.BigEndian.AppendUint32(make([]byte, 4), uint32(ordQuote)), outParams...))
	resAuth := hmacSHA1(sess.secret[:], outDigest[:], nonceEven[:], nonceOdd[:], []byte{cont})
	if f.badResAuth {
		resAuth[0] ^= 0xff
	}

	out := append(outParams, nonceEven[:]...)
	out = append(out, cont)
	return 0, append(out, resAuth[:]...)
}

func (f *fakeTPM) flush(p []byte) (uint32, []byte) {
	require.Len(f.t, p, 8)
	h := binary.BigEndian.Uint32(p[0:4])
	switch binary.BigEndian.Uint32(p[4:8]) {
	case rtKey:
		if !f.keys[h] {
			return rcBadHandle, nil
		}
		delete(f.keys, h)
	case rtAuth:
		if _, ok := f.sessions[h]; !ok {
			return rcBadHandle, nil
		}
		delete(f.sessions, h)
	default:
		return rcBadIndex, nil
	}
	f.flushed = append(f.flushed, h)
	return 0, nil
}
