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

	"github.com/spf13/cobra"

	"github.com/itsmeyaw/xenquote/cmd"
	"github.com/itsmeyaw/xenquote/pkg/pcrquote"
)

var quoteCmd = &cobra.Command{
	Use:   "quote [challenge-file] <aik-blob> <quote-file>",
	Short: "Create a verified TPM 1.2 quote over all PCRs",
	Long: `Quote every PCR of the TPM with the identity key in <aik-blob> and write
the PCR composite followed by the signature to <quote-file>.

The challenge file is hashed with SHA-1 and bound into the quote as external
data. Without one (two arguments, or an empty first argument) the quote is
made over 20 zero bytes. The quote file is only written once the rebuilt PCR
composite hashes to the composite hash the TPM signed.`,
	Args:         cobra.RangeArgs(2, 3),
	SilenceUsage: true,
	PreRunE: func(c *cobra.Command, _ []string) error {
		applyConfig(c, cmd.Config)
		return nil
	},
	RunE: func(c *cobra.Command, args []string) error {
		req := requestFromArgs(args)

		attestor, device, err := attestorFor(tpmFlags)
		if err != nil {
			return err
		}

		p := &pcrquote.Pipeline{
			Attestor: attestor,
			FS:       cmd.FS,
			Logger:   cmd.Logger.With("device", device),
		}
		res, err := p.Run(req)
		if err != nil {
			return err
		}

		fmt.Fprintf(c.OutOrStdout(), "Quote over %d PCRs written to %s\n", res.Selection.Count, req.OutputPath)
		return nil
	},
}

// requestFromArgs maps the positional arguments. With two arguments there is
// no challenge file.
func requestFromArgs(args []string) pcrquote.Request {
	if len(args) == 2 {
		return pcrquote.Request{IdentityKeyPath: args[0], OutputPath: args[1]}
	}
	return pcrquote.Request{
		ChallengePath:   args[0],
		IdentityKeyPath: args[1],
		OutputPath:      args[2],
	}
}

func init() {
	cmd.RootCmd.AddCommand(quoteCmd)
	addTPMFlags(quoteCmd)
}
