// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/openchami/pam-oidc/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "pam-oidc",
	Short: "pam-oidc - OIDC token authentication for PAM",
	Long: `pam-oidc validates OAuth2/OIDC-issued JWTs against a provider's discovery
document. It runs the same pipeline as pam_oidc.so, either from pam_exec or
by hand for troubleshooting.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config := logging.DefaultConfig()
		config.Level = logging.LogLevel(logLevel)
		config.Format = logging.LogFormat(logFormat)
		config.Output = cmd.ErrOrStderr()
		logging.Configure(config)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(discoverCmd)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", string(logging.LogLevelWarn), "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(logging.LogFormatConsole), "Log format (console, json, syslog)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
