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
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	vfs "github.com/twpayne/go-vfs/v4"

	"github.com/itsmeyaw/xenquote/pkg/logging"
)

const envLogLevel = "XENQUOTE_LOG_LEVEL"

type RootFlags struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

var rootFlags RootFlags

// Shared state for subcommands, set up by RootCmd before they run.
var (
	Logger *slog.Logger = logging.Nop()
	FS     vfs.FS       = vfs.OSFS
	Config FileConfig
)

var RootCmd = &cobra.Command{
	Use:   "xenquote",
	Short: "Generate and check TPM 1.2 PCR quotes",
	Long: `xenquote asks a TPM 1.2 identity key to sign a quote over every PCR,
rebuilds the PCR composite the TPM hashed and checks it against the signed
composite hash before writing the quote file.`,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(FS, rootFlags.ConfigPath)
		if err != nil {
			return err
		}
		Config = cfg

		level := rootFlags.LogLevel
		levelEnv := ""
		if !cmd.Flags().Changed("log-level") {
			levelEnv = envLogLevel
			if cfg.Log.Level != "" {
				level = cfg.Log.Level
			}
		}
		format := rootFlags.LogFormat
		if !cmd.Flags().Changed("log-format") && cfg.Log.Format != "" {
			format = cfg.Log.Format
		}

		logger, err := logging.New(logging.Options{
			Level:    level,
			Format:   format,
			Output:   cmd.ErrOrStderr(),
			LevelEnv: levelEnv,
		})
		if err != nil {
			return usageError(cmd, err)
		}
		Logger = logger
		return nil
	},
}

// Execute runs the command line and exits with the code for the error kind.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(RootCmd.ErrOrStderr(), "Error: %v\n", err)
		os.Exit(ExitCode(err))
	}
}

func usageError(cmd *cobra.Command, err error) error {
	_ = cmd.Usage()
	return err
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&rootFlags.ConfigPath, "config", "c", "", "Path to a YAML config file")
	RootCmd.PersistentFlags().StringVar(&rootFlags.LogLevel, "log-level", "info", "Log level (debug, info, warn, error); env "+envLogLevel)
	RootCmd.PersistentFlags().StringVar(&rootFlags.LogFormat, "log-format", "text", "Log format (text or json)")
}
