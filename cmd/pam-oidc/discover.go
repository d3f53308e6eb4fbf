// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/openchami/pam-oidc/pkg/discovery"
	"github.com/openchami/pam-oidc/pkg/jwt"
	"github.com/openchami/pam-oidc/pkg/logging"
	"github.com/openchami/pam-oidc/pkg/options"
	"github.com/openchami/pam-oidc/pkg/pam"
	"github.com/spf13/cobra"
)

var (
	discoverCAFile  string
	discoverTimeout time.Duration
)

var discoverCmd = &cobra.Command{
	Use:   "discover <discovery_url>",
	Short: "Resolve a discovery document and list its signing keys",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), discoverTimeout)
		defer cancel()
		return runDiscover(ctx, cmd.OutOrStdout(), args[0], discoverCAFile)
	},
}

func init() {
	discoverCmd.Flags().StringVar(&discoverCAFile, "ca-file", "", "PEM bundle used to verify the provider's certificate")
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", options.DefaultTimeout, "Deadline for both fetches")
}

func runDiscover(ctx context.Context, w io.Writer, discoveryURL, caFile string) error {
	fetcher, err := pam.NewTransportFetcher(&options.Config{CAFile: caFile})
	if err != nil {
		return err
	}

	var (
		config *discovery.Configuration
		keys   *jwt.KeySet
	)
	logger := logging.NewStructuredLogger("discover").WithField("discovery_url", discoveryURL)
	err = logger.LogOperation("resolve", func() error {
		var err error
		config, keys, err = discovery.NewResolver(fetcher).Resolve(ctx, discoveryURL)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "issuer:   %s\n", config.Issuer)
	fmt.Fprintf(w, "jwks_uri: %s\n", config.JWKSURI)
	if len(config.IDTokenSigningAlgValuesSupported) > 0 {
		fmt.Fprintf(w, "algs:     %s\n", strings.Join(config.IDTokenSigningAlgValuesSupported, ", "))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KID\tALG\tTYPE\tUSE")
	for _, key := range keys.Keys {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", orDash(key.KeyID), orDash(key.Algorithm), key.Type(), orDash(key.Use))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
