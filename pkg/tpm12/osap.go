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
	"crypto/rand"
	"fmt"
	"io"

	"github.com/google/go-tpm/tpmutil"
)

// osapSession is an object-specific authorization session bound to one key.
type osapSession struct {
	handle    tpmutil.Handle
	nonceEven [20]byte
	secret    [20]byte
}

func newNonce() ([20]byte, error) {
	var n [20]byte
	if _, err := rand.Read(n[:]); err != nil {
		return n, fmt.Errorf("generating nonce: %w", err)
	}
	return n, nil
}

func startOSAP(rw io.ReadWriter, key tpmutil.Handle, auth Auth) (*osapSession, error) {
	oddOSAP, err := newNonce()
	if err != nil {
		return nil, err
	}
	resp, err := runCommand(rw, tagRQUCommand, ordOSAP, etKeyHandle, key, oddOSAP)
	if err != nil {
		return nil, fmt.Errorf("starting OSAP session: %w", err)
	}

	var (
		s        osapSession
		evenOSAP [20]byte
	)
	if _, err := tpmutil.Unpack(resp, &s.handle, &s.nonceEven, &evenOSAP); err != nil {
		return nil, fmt.Errorf("decoding OSAP response: %w", err)
	}
	s.secret = hmacSHA1(auth[:], evenOSAP[:], oddOSAP[:])
	return &s, nil
}

// commandAuth returns the authorization HMAC for a command whose parameter
// digest is paramDigest.
func (s *osapSession) commandAuth(paramDigest, nonceOdd [20]byte, cont byte) [20]byte {
	return hmacSHA1(s.secret[:], paramDigest[:], s.nonceEven[:], nonceOdd[:], []byte{cont})
}

// responseAuth is the HMAC the TPM returns over its output parameters.
func (s *osapSession) responseAuth(paramDigest, nonceEven, nonceOdd [20]byte, cont byte) [20]byte {
	return hmacSHA1(s.secret[:], paramDigest[:], nonceEven[:], nonceOdd[:], []byte{cont})
}
