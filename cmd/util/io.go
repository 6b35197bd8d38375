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

package util

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	vfs "github.com/twpayne/go-vfs/v4"
)

const pemTypePublicKey = "PUBLIC KEY"

// WritePublicKeyPEM stores pub as a PKIX "PUBLIC KEY" PEM block.
func WritePublicKeyPEM(fsys vfs.FS, path string, pub *rsa.PublicKey) error {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return fmt.Errorf("encoding public key: %w", err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: pemTypePublicKey, Bytes: der})
	if err := fsys.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}
	return nil
}

func ReadPublicKeyPEM(fsys vfs.FS, path string) (*rsa.PublicKey, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypePublicKey {
		return nil, fmt.Errorf("%s: no %s PEM block", path, pemTypePublicKey)
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: parsing public key: %w", path, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%s: %T is not an RSA public key", path, pub)
	}
	return rsaPub, nil
}
