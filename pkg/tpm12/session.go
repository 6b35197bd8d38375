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
	"crypto/rsa"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"slices"

	tpm12 "github.com/google/go-tpm/tpm"
	"github.com/google/go-tpm/tpmutil"
	"go.uber.org/multierr"

	"github.com/itsmeyaw/xenquote/pkg/pcrquote"
)

// Attestor opens sessions on a TPM 1.2 character device.
type Attestor struct {
	Device string
	// SRKAuth authorizes loading keys under the storage root key.
	SRKAuth Auth
	// AIKAuth is the usage authorization of the identity key.
	AIKAuth Auth
	Logger  *slog.Logger
}

var _ pcrquote.Attestor = (*Attestor)(nil)

func (a *Attestor) Open() (pcrquote.Session, error) {
	s, err := a.OpenSession()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenSession opens the device and checks that it answers TPM 1.2 commands.
func (a *Attestor) OpenSession() (*Session, error) {
	rwc, err := tpmutil.OpenTPM(a.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", pcrquote.ErrConnection, a.Device, err)
	}
	return a.openOn(rwc)
}

func (a *Attestor) openOn(rwc io.ReadWriteCloser) (*Session, error) {
	log := a.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	vendor, err := tpm12.GetManufacturer(rwc)
	if err != nil {
		err = fmt.Errorf("%w: %s does not answer TPM 1.2 commands: %w", pcrquote.ErrConnection, a.Device, err)
		return nil, multierr.Append(err, rwc.Close())
	}
	log.Debug("TPM 1.2 session opened", "device", a.Device, "manufacturer", string(bytes.TrimRight(vendor, "\x00")))

	return &Session{
		rw:        rwc,
		srkAuth:   a.SRKAuth,
		aikAuth:   a.AIKAuth,
		log:       log,
		loadKey2:  tpm12.LoadKey2,
		getPubKey: tpm12.GetPubKey,
	}, nil
}

// Session holds the open device and the keys loaded through it.
type Session struct {
	rw      io.ReadWriteCloser
	srkAuth Auth
	aikAuth Auth
	log     *slog.Logger

	loadKey2  func(rw io.ReadWriter, keyBlob []byte, srkAuth []byte) (tpmutil.Handle, error)
	getPubKey func(rw io.ReadWriter, keyHandle tpmutil.Handle, auth []byte) ([]byte, error)

	keys     []tpmutil.Handle
	pcrCount *uint32
	// quoted holds the PCR values returned with the last quote.
	quoted map[uint32]pcrquote.Digest
}

var _ pcrquote.Session = (*Session)(nil)

// LoadIdentityKey loads a TPM_KEY12 blob under the SRK.
func (s *Session) LoadIdentityKey(blob []byte) (pcrquote.KeyHandle, error) {
	if len(blob) == 0 {
		return 0, fmt.Errorf("%w: empty key blob", pcrquote.ErrKeyLoad)
	}
	h, err := s.loadKey2(s.rw, blob, s.srkAuth[:])
	if err != nil {
		return 0, fmt.Errorf("%w: %w", pcrquote.ErrKeyLoad, err)
	}
	s.keys = append(s.keys, h)
	s.log.Debug("key loaded", "handle", fmt.Sprintf("0x%08x", uint32(h)), "blob_len", len(blob))
	return pcrquote.KeyHandle(h), nil
}

// MaxPCRCount reads TPM_CAP_PROP_PCR.
func (s *Session) MaxPCRCount() (uint32, error) {
	if s.pcrCount != nil {
		return *s.pcrCount, nil
	}
	b, err := tpm12.GetCapabilityRaw(s.rw, capProperty, capPropPCR)
	if err != nil {
		return 0, fmt.Errorf("reading TPM_CAP_PROP_PCR: %w", err)
	}
	if len(b) != 4 {
		return 0, fmt.Errorf("TPM_CAP_PROP_PCR is %d bytes, want 4", len(b))
	}
	n := binary.BigEndian.Uint32(b)
	s.pcrCount = &n
	return n, nil
}

// PCRValue returns the value of PCR index as carried in the last quote, or
// reads it from the TPM when no quote covered it.
func (s *Session) PCRValue(index uint32) (pcrquote.Digest, error) {
	count, err := s.MaxPCRCount()
	if err != nil {
		return pcrquote.Digest{}, fmt.Errorf("%w: %w", pcrquote.ErrPCRRead, err)
	}
	if index >= count {
		return pcrquote.Digest{}, fmt.Errorf("%w: PCR %d outside the %d PCRs of this TPM", pcrquote.ErrPCRRead, index, count)
	}
	if v, ok := s.quoted[index]; ok {
		return v, nil
	}

	b, err := tpm12.ReadPCR(s.rw, index)
	if err != nil {
		return pcrquote.Digest{}, fmt.Errorf("%w: PCR %d: %w", pcrquote.ErrPCRRead, index, err)
	}
	d, err := pcrquote.DigestFromBytes(b)
	if err != nil {
		return pcrquote.Digest{}, fmt.Errorf("%w: PCR %d: %w", pcrquote.ErrPCRRead, index, err)
	}
	return d, nil
}

func (s *Session) Digest20(buf []byte) pcrquote.Digest {
	return pcrquote.SHA1(buf)
}

// PublicKey exports the RSA public half of a loaded key.
func (s *Session) PublicKey(key pcrquote.KeyHandle) (*rsa.PublicKey, error) {
	blob, err := s.getPubKey(s.rw, tpmutil.Handle(key), s.aikAuth[:])
	if err != nil {
		return nil, fmt.Errorf("reading public key of 0x%08x: %w", uint32(key), err)
	}
	pub, err := tpm12.UnmarshalPubRSAPublicKey(blob)
	if err != nil {
		return nil, fmt.Errorf("decoding public key of 0x%08x: %w", uint32(key), err)
	}
	return pub, nil
}

// Close flushes every loaded key and closes the device.
func (s *Session) Close() error {
	var err error
	for _, h := range slices.Backward(s.keys) {
		if ferr := flushSpecific(s.rw, h, rtKey); ferr != nil {
			err = multierr.Append(err, fmt.Errorf("flushing key 0x%08x: %w", uint32(h), ferr))
		}
	}
	s.keys = nil
	s.quoted = nil
	return multierr.Append(err, s.rw.Close())
}
