// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

// Package options turns the key=value arguments a PAM stack line passes to
// the module into a typed configuration.
package options

import (
	"sort"
	"strings"
)

// Option names understood by the module.
const (
	KeyDiscoveryURL  = "discovery_url"
	KeyAudience      = "audience"
	KeyUsernameClaim = "username_claim"
	KeyMatchUsername = "match_username"
	KeyIssuer        = "issuer"
	KeyLeeway        = "leeway"
	KeyTimeout       = "timeout"
	KeyCacheTTL      = "cache_ttl"
	KeyAllowedAlgs   = "allowed_algs"
	KeyCAFile        = "ca_file"
	KeyDebug         = "debug"
)

// Options is a case-insensitive mapping of option names to values.
type Options map[string]string

// Parse splits every argument on its first '='. Keys and values are
// trimmed, keys are case-insensitive and a later duplicate overwrites an
// earlier one. An argument without '=' is a key with an empty value.
func Parse(args []string) Options {
	opts := make(Options, len(args))
	for _, arg := range args {
		key, value, _ := strings.Cut(arg, "=")
		opts[normalize(key)] = strings.TrimSpace(value)
	}
	return opts
}

// Get returns the value stored under key, ignoring case.
func (o Options) Get(key string) (string, bool) {
	value, ok := o[normalize(key)]
	return value, ok
}

// Lookup returns the value stored under key or an empty string.
func (o Options) Lookup(key string) string {
	value, _ := o.Get(key)
	return value
}

// Has reports whether key was given at all.
func (o Options) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Keys returns the normalized option names in sorted order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for key := range o {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
