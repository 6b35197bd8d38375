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

package quote

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	vfs "github.com/twpayne/go-vfs/v4"

	"github.com/itsmeyaw/xenquote/cmd"
	"github.com/itsmeyaw/xenquote/cmd/util"
	"github.com/itsmeyaw/xenquote/pkg/pcrquote"
	"github.com/itsmeyaw/xenquote/pkg/tpm12"
)

const (
	envSRKSecret = "XENQUOTE_SRK_SECRET"
	envAIKSecret = "XENQUOTE_AIK_SECRET"
)

type TPMFlags struct {
	Device    string
	SRKSecret string
	AIKSecret string
	SkipProbe bool
}

var tpmFlags TPMFlags

// newAttestor builds the attestor for a resolved device.
var newAttestor = func(device string, flags TPMFlags) pcrquote.Attestor {
	return &tpm12.Attestor{
		Device:  device,
		SRKAuth: tpm12.AuthFromSecret(flags.SRKSecret),
		AIKAuth: tpm12.AuthFromSecret(flags.AIKSecret),
		Logger:  cmd.Logger,
	}
}

func addTPMFlags(c *cobra.Command) {
	c.Flags().StringVarP(&tpmFlags.Device, "device", "d", "", "TPM device path (default: /dev/tpm0 or /dev/tpmrm0)")
	c.Flags().StringVar(&tpmFlags.SRKSecret, "srk-secret", "", "SRK secret (default: well-known secret); env "+envSRKSecret)
	c.Flags().StringVar(&tpmFlags.AIKSecret, "aik-secret", "", "Identity key usage secret (default: well-known secret); env "+envAIKSecret)
	c.Flags().BoolVar(&tpmFlags.SkipProbe, "skip-probe", false, "Do not check that the device is a TPM 1.2")
}

// applyConfig fills flags that were not set on the command line from the
// environment, then from the config file.
func applyConfig(c *cobra.Command, cfg cmd.FileConfig) {
	if !c.Flags().Changed("device") {
		tpmFlags.Device = cfg.Device
	}
	if !c.Flags().Changed("srk-secret") {
		tpmFlags.SRKSecret = firstSet(os.Getenv(envSRKSecret), cfg.SRKSecret)
	}
	if !c.Flags().Changed("aik-secret") {
		tpmFlags.AIKSecret = firstSet(os.Getenv(envAIKSecret), cfg.AIKSecret)
	}
	if !c.Flags().Changed("skip-probe") {
		tpmFlags.SkipProbe = cfg.SkipProbe
	}
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func attestorFor(flags TPMFlags) (pcrquote.Attestor, string, error) {
	device, err := resolveTPMDevice(cmd.FS, flags.Device)
	if err != nil {
		return nil, "", err
	}
	if !flags.SkipProbe {
		if err := util.RequireTPM12(device, cmd.Logger); err != nil {
			return nil, "", &pcrquote.TPMOperationError{Stage: pcrquote.StageSession, Op: "probe TPM family", Err: err}
		}
	}
	cmd.Logger.Debug("using TPM device", "device", device, "probe", !flags.SkipProbe)
	return newAttestor(device, flags), device, nil
}

func resolveTPMDevice(fsys vfs.FS, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	candidates := []string{"/dev/tpm0", "/dev/tpmrm0"}
	for _, path := range candidates {
		if _, err := fsys.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", &pcrquote.TPMOperationError{
		Stage: pcrquote.StageSession,
		Op:    "find TPM device",
		Err:   fmt.Errorf("%w: no TPM device found (tried /dev/tpm0, /dev/tpmrm0)", pcrquote.ErrConnection),
	}
}
