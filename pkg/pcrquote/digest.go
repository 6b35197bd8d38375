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

// Package pcrquote builds TPM 1.2 PCR quote records and checks them against
// the composite hash the TPM signed before they are written out.
package pcrquote

import (
	"crypto/sha1" // #nosec G505 -- TPM 1.2 composite hashes are SHA-1
	"encoding/hex"
	"fmt"
)

// DigestSize is the width of a PCR value and of the composite hash.
const DigestSize = sha1.Size

type Digest [DigestSize]byte

// ZeroDigest is the external data used when no challenge is supplied.
var ZeroDigest Digest

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// SHA1 is the 20-byte hash primitive of a TPM 1.2.
func SHA1(buf []byte) Digest {
	return Digest(sha1.Sum(buf))
}

func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestSize {
		return d, fmt.Errorf("digest must be %d bytes, got %d", DigestSize, len(b))
	}
	copy(d[:], b)
	return d, nil
}
