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
	"crypto"
	"crypto/rsa"
	"fmt"
)

var (
	quoteInfoVersion = [4]byte{1, 1, 0, 0}
	quoteInfoFixed   = [4]byte{'Q', 'U', 'O', 'T'}
)

// QuoteInfoSize is the length of a TPM_QUOTE_INFO structure.
const QuoteInfoSize = len(quoteInfoVersion) + len(quoteInfoFixed) + 2*DigestSize

// QuoteInfo builds the TPM_QUOTE_INFO the identity key signs:
//
//	version 1.1.0.0 || "QUOT" || composite hash || external data
func QuoteInfo(composite, externalData Digest) []byte {
	b := make([]byte, 0, QuoteInfoSize)
	b = append(b, quoteInfoVersion[:]...)
	b = append(b, quoteInfoFixed[:]...)
	b = append(b, composite[:]...)
	b = append(b, externalData[:]...)
	return b
}

// VerifyQuoteSignature checks an RSASSA-PKCS1-v1_5 SHA-1 signature over the
// TPM_QUOTE_INFO for composite and externalData.
func VerifyQuoteSignature(pub *rsa.PublicKey, composite, externalData Digest, sig []byte) error {
	if pub == nil {
		return fmt.Errorf("%s: no public key", StageVerify)
	}
	h := SHA1(QuoteInfo(composite, externalData))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA1, h[:], sig); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return nil
}

// Verify recomputes the composite hash from the stored record and checks the
// stored signature against it and challenge.
func (q *QuoteFile) Verify(pub *rsa.PublicKey, challenge Digest) (Digest, error) {
	composite := SHA1(q.RecordBytes)
	if err := VerifyQuoteSignature(pub, composite, challenge, q.Signature); err != nil {
		return composite, err
	}
	return composite, nil
}
