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
	"crypto/rsa"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/itsmeyaw/xenquote/cmd"
	"github.com/itsmeyaw/xenquote/cmd/util"
	"github.com/itsmeyaw/xenquote/pkg/pcrquote"
)

type publicKeyExporter interface {
	PublicKey(key pcrquote.KeyHandle) (*rsa.PublicKey, error)
}

var aikPubCmd = &cobra.Command{
	Use:   "aik-pub <aik-blob> <pem-file>",
	Short: "Export the public key of an identity key",
	Long: `Load the identity key in <aik-blob> into the TPM and write its RSA public
key to <pem-file> as a PKIX PEM block, for use with verify --aik-pub.`,
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	PreRunE: func(c *cobra.Command, _ []string) error {
		applyConfig(c, cmd.Config)
		return nil
	},
	RunE: func(c *cobra.Command, args []string) error {
		attestor, _, err := attestorFor(tpmFlags)
		if err != nil {
			return err
		}
		pub, err := exportPublicKey(attestor, args[0])
		if err != nil {
			return err
		}
		if err := util.WritePublicKeyPEM(cmd.FS, args[1], pub); err != nil {
			return &pcrquote.IOError{Stage: pcrquote.StagePublicKey, Path: args[1], Err: err}
		}
		fmt.Fprintf(c.OutOrStdout(), "Identity key public key written to %s\n", args[1])
		return nil
	},
}

func exportPublicKey(attestor pcrquote.Attestor, blobPath string) (_ *rsa.PublicKey, err error) {
	blob, err := cmd.FS.ReadFile(blobPath)
	if err != nil {
		return nil, &pcrquote.IOError{Stage: pcrquote.StagePublicKey, Path: blobPath, Err: err}
	}

	session, err := attestor.Open()
	if err != nil {
		return nil, &pcrquote.TPMOperationError{Stage: pcrquote.StageSession, Op: "open session", Err: err}
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			err = multierr.Append(err, &pcrquote.TPMOperationError{Stage: pcrquote.StageSession, Op: "close session", Err: cerr})
		}
	}()

	exporter, ok := session.(publicKeyExporter)
	if !ok {
		return nil, fmt.Errorf("%s: session %T cannot export public keys", pcrquote.StagePublicKey, session)
	}
	key, err := session.LoadIdentityKey(blob)
	if err != nil {
		return nil, &pcrquote.TPMOperationError{Stage: pcrquote.StagePublicKey, Op: "load identity key", Err: err}
	}
	pub, err := exporter.PublicKey(key)
	if err != nil {
		return nil, &pcrquote.TPMOperationError{Stage: pcrquote.StagePublicKey, Op: "read public key", Err: err}
	}
	return pub, nil
}

func init() {
	cmd.RootCmd.AddCommand(aikPubCmd)
	addTPMFlags(aikPubCmd)
}
