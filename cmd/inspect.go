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
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/itsmeyaw/xenquote/cmd/types"
	"github.com/itsmeyaw/xenquote/pkg/pcrquote"
)

type InspectFlags struct {
	Format types.Format
}

var inspectFlags InspectFlags

var inspectCmd = &cobra.Command{
	Use:          "inspect <quote-file>",
	Short:        "Print the contents of a quote file",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		qf, err := pcrquote.ReadQuoteFile(FS, args[0])
		if err != nil {
			return err
		}
		report, err := types.NewQuoteReport(args[0], qf)
		if err != nil {
			return err
		}

		var out []byte
		switch inspectFlags.Format {
		case types.FormatJSON:
			out, err = json.MarshalIndent(report, "", "  ")
			out = append(out, '\n')
		case types.FormatYAML:
			out, err = yaml.Marshal(report)
		default:
			return fmt.Errorf("unsupported format: %s", inspectFlags.Format)
		}
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	RootCmd.AddCommand(inspectCmd)

	inspectFlags.Format = types.FormatJSON
	inspectCmd.Flags().VarP(&inspectFlags.Format, "format", "f", "Output format (json or yaml)")
}
