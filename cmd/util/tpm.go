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
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
	"github.com/google/go-tpm/tpm2/transport/linuxtpm"
	"go.uber.org/multierr"
)

var ErrTPM2 = errors.New("device is a TPM 2.0; quotes need a TPM 1.2")

func OpenTPM2(devicePath string) (transport.TPMCloser, error) {
	tpm, err := linuxtpm.Open(devicePath)
	if err != nil {
		return nil, fmt.Errorf("opening TPM device %s: %w", devicePath, err)
	}
	return tpm, nil
}

// ProbeTPM2 asks for TPM_PT_FAMILY_INDICATOR with a TPM 2.0 command. A TPM
// 1.2 rejects the command, so any answer means the device is a TPM 2.0.
func ProbeTPM2(tpm transport.TPM) (family string, ok bool) {
	capRsp, err := tpm2.GetCapability{
		Capability:    tpm2.TPMCapTPMProperties,
		Property:      uint32(tpm2.TPMPTFamilyIndicator),
		PropertyCount: 1,
	}.Execute(tpm)
	if err != nil {
		return "", false
	}
	props, err := capRsp.CapabilityData.Data.TPMProperties()
	if err != nil || len(props.TPMProperty) == 0 {
		return "", true
	}
	v := props.TPMProperty[0].Value
	b := []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b), true
}

// RequireTPM12 fails with ErrTPM2 when the device at devicePath answers TPM
// 2.0 commands. A device that cannot be opened is left for the TPM 1.2
// session to report; the open error is logged at debug level.
func RequireTPM12(devicePath string, log *slog.Logger) (err error) {
	tpm, err := OpenTPM2(devicePath)
	if err != nil {
		log.Debug("TPM family probe skipped", "device", devicePath, "error", err)
		return nil
	}
	defer func() {
		err = multierr.Append(err, tpm.Close())
	}()

	if family, ok := ProbeTPM2(tpm); ok {
		return fmt.Errorf("%s reports TPM family %q: %w", devicePath, family, ErrTPM2)
	}
	return nil
}
