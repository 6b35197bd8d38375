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
	"fmt"
	"io"

	"github.com/google/go-tpm/tpmutil"
)

const (
	tagRQUCommand      tpmutil.Tag = 0x00C1
	tagRQUAuth1Command tpmutil.Tag = 0x00C2

	ordOSAP          tpmutil.Command = 0x0000000B
	ordQuote         tpmutil.Command = 0x00000016
	ordFlushSpecific tpmutil.Command = 0x000000BA

	etKeyHandle uint16 = 0x0001

	rtKey  uint32 = 0x00000001
	rtAuth uint32 = 0x00000002

	capProperty uint32 = 0x00000005
	capPropPCR  uint32 = 0x00000101
)

var responseCodeNames = map[uint32]string{
	0x01: "TPM_AUTHFAIL",
	0x02: "TPM_BADINDEX",
	0x03: "TPM_BAD_PARAMETER",
	0x06: "TPM_DEACTIVATED",
	0x07: "TPM_DISABLED",
	0x09: "TPM_FAIL",
	0x0A: "TPM_BAD_ORDINAL",
	0x0C: "TPM_INVALID_KEYHANDLE",
	0x0D: "TPM_KEYNOTFOUND",
	0x12: "TPM_NOSRK",
	0x15: "TPM_RESOURCES",
	0x22: "TPM_INVALID_AUTHHANDLE",
}

// responseCodeError is a non-zero TPM return code.
type responseCodeError struct {
	Ordinal tpmutil.Command
	Code    uint32
}

func (e *responseCodeError) Error() string {
	name, ok := responseCodeNames[e.Code]
	if !ok {
		name = "unknown"
	}
	return fmt.Sprintf("ordinal 0x%x returned 0x%x (%s)", uint32(e.Ordinal), e.Code, name)
}

func (e *responseCodeError) TPMCode() uint32 { return e.Code }

func runCommand(rw io.ReadWriter, tag tpmutil.Tag, ord tpmutil.Command, in ...interface{}) ([]byte, error) {
	resp, code, err := tpmutil.RunCommand(rw, tag, ord, in...)
	if err != nil {
		return nil, fmt.Errorf("ordinal 0x%x: %w", uint32(ord), err)
	}
	if code != tpmutil.RCSuccess {
		return nil, &responseCodeError{Ordinal: ord, Code: uint32(code)}
	}
	return resp, nil
}

// flushSpecific evicts a key or session handle.
func flushSpecific(rw io.ReadWriter, h tpmutil.Handle, resourceType uint32) error {
	_, err := runCommand(rw, tagRQUCommand, ordFlushSpecific, h, resourceType)
	return err
}
