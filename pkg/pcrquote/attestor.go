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

// KeyHandle refers to an identity key loaded into a Session.
type KeyHandle uint32

// SignedQuote is what the module returns for a quote: the raw signature over
// its TPM_QUOTE_INFO and the composite hash taken from that structure.
type SignedQuote struct {
	Signature     []byte
	CompositeHash Digest
}

// Attestor opens sessions against a trusted platform module.
type Attestor interface {
	// Open fails with ErrConnection when the module is unreachable.
	Open() (Session, error)
}

// Session is one transaction context with the module. Calls block until the
// module answers; the session does not impose timeouts.
type Session interface {
	// LoadIdentityKey fails with ErrKeyLoad on a malformed or foreign blob.
	LoadIdentityKey(blob []byte) (KeyHandle, error)
	MaxPCRCount() (uint32, error)
	// Quote fails with ErrQuote.
	Quote(key KeyHandle, sel Selection, externalData Digest) (*SignedQuote, error)
	// PCRValue fails with ErrPCRRead for an index outside the capability range.
	PCRValue(index uint32) (Digest, error)
	Digest20(buf []byte) Digest
	// Close releases every handle the session loaded.
	Close() error
}
