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

// Package tpm12 is the TPM 1.2 attestation backend: it loads identity keys,
// reads PCRs and produces signed quotes through /dev/tpm0.
package tpm12

import (
	"crypto/hmac"
	"crypto/sha1" // #nosec G505 -- TPM 1.2 authorization is HMAC-SHA1
)

// Auth is a 20-byte TPM 1.2 authorization value.
type Auth [20]byte

// WellKnownAuth is the all-zero secret TSS stacks use when no password is set.
var WellKnownAuth Auth

// AuthFromSecret derives an authorization value the way the TSS plain secret
// mode does: SHA-1 of the secret. An empty secret gives WellKnownAuth.
func AuthFromSecret(secret string) Auth {
	if secret == "" {
		return WellKnownAuth
	}
	return Auth(sha1.Sum([]byte(secret)))
}

func hmacSHA1(key []byte, parts ...[]byte) [20]byte {
	mac := hmac.New(sha1.New, key)
	for _, p := range parts {
		mac.Write(p)
	}
	var out [20]byte
	copy(out[:], mac.Sum(nil))
	return out
}
