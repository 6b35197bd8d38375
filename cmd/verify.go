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

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itsmeyaw/xenquote/cmd/util"
	"github.com/itsmeyaw/xenquote/pkg/pcrquote"
)

type VerifyFlags struct {
	AIKPublicKeyPath string
	ChallengePath    string
}

var verifyFlags VerifyFlags

var verifyCmd = &cobra.Command{
	Use:   "verify <quote-file>",
	Short: "Verify the signature of a quote file",
	Long: `Recompute the composite hash of the PCR record stored in a quote file,
rebuild the TPM_QUOTE_INFO it was signed over and check the signature with
the identity key's public key.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		if verifyFlags.AIKPublicKeyPath == "" {
			return usageError(cmd, fmt.Errorf("--aik-pub is required"))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		quotePath := args[0]

		pub, err := util.ReadPublicKeyPEM(FS, verifyFlags.AIKPublicKeyPath)
		if err != nil {
			return &pcrquote.IOError{Stage: pcrquote.StageVerify, Path: verifyFlags.AIKPublicKeyPath, Err: err}
		}
		challenge, err := pcrquote.LoadChallenge(FS, verifyFlags.ChallengePath, pcrquote.SHA1)
		if err != nil {
			return err
		}
		qf, err := pcrquote.ReadQuoteFile(FS, quotePath)
		if err != nil {
			return err
		}

		composite, err := qf.Verify(pub, challenge.Digest)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", pcrquote.StageVerify, quotePath, err)
		}

		Logger.Debug("quote verified",
			"path", quotePath,
			"challenge", challenge.Mode,
			"pcrs", len(qf.Record.Values),
			"composite", composite)
		fmt.Fprintf(cmd.OutOrStdout(), "Quote signature is valid (composite %s, %d PCRs).\n", composite, len(qf.Record.Values))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyFlags.AIKPublicKeyPath, "aik-pub", "", "PEM file with the identity key's public key")
	verifyCmd.Flags().StringVar(&verifyFlags.ChallengePath, "challenge", "", "Challenge file the quote was made with (default: no challenge)")
}
