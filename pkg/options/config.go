// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package options

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openchami/pam-oidc/pkg/errors"
	"github.com/openchami/pam-oidc/pkg/jwt"
)

const (
	DefaultUsernameClaim = "sub"
	DefaultLeeway        = 30 * time.Second
	DefaultTimeout       = 10 * time.Second
)

// Config is the validated module configuration for one authentication call.
type Config struct {
	DiscoveryURL string
	Audience     string

	// UsernameClaim names the claim compared with the PAM user when
	// MatchUsername is set.
	UsernameClaim string
	// MatchUsername enables the identity-claim stage. With it disabled the
	// module only checks that the token is valid for the audience.
	MatchUsername bool

	// Issuer overrides the issuer advertised by the discovery document.
	Issuer string

	Leeway      time.Duration
	Timeout     time.Duration
	CacheTTL    time.Duration
	AllowedAlgs []string
	CAFile      string
	Debug       bool
}

// DefaultConfig returns a Config with every optional field at its default.
func DefaultConfig() *Config {
	return &Config{
		UsernameClaim: DefaultUsernameClaim,
		MatchUsername: true,
		Leeway:        DefaultLeeway,
		Timeout:       DefaultTimeout,
		AllowedAlgs:   jwt.GetFIPSApprovedAlgorithms(),
	}
}

// Config validates the options and builds the module configuration.
// Missing required options yield ErrCodeMissingConfig, malformed values
// ErrCodeInvalidConfig.
func (o Options) Config() (*Config, error) {
	config := DefaultConfig()

	var ok bool
	if config.DiscoveryURL, ok = o.Get(KeyDiscoveryURL); !ok || config.DiscoveryURL == "" {
		return nil, errors.New(errors.ErrCodeMissingConfig, "missing required option").
			WithDetails("option", KeyDiscoveryURL)
	}
	if err := validateURL(config.DiscoveryURL); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "invalid discovery URL").
			WithDetails("option", KeyDiscoveryURL)
	}

	if config.Audience, ok = o.Get(KeyAudience); !ok || config.Audience == "" {
		return nil, errors.New(errors.ErrCodeMissingConfig, "missing required option").
			WithDetails("option", KeyAudience)
	}

	if claim := o.Lookup(KeyUsernameClaim); claim != "" {
		config.UsernameClaim = claim
	}
	config.Issuer = o.Lookup(KeyIssuer)
	config.CAFile = o.Lookup(KeyCAFile)

	var err error
	if config.MatchUsername, err = o.boolean(KeyMatchUsername, config.MatchUsername); err != nil {
		return nil, err
	}
	if config.Debug, err = o.boolean(KeyDebug, config.Debug); err != nil {
		return nil, err
	}
	if config.Leeway, err = o.duration(KeyLeeway, config.Leeway); err != nil {
		return nil, err
	}
	if config.Timeout, err = o.duration(KeyTimeout, config.Timeout); err != nil {
		return nil, err
	}
	if config.Timeout == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "timeout must be greater than zero").
			WithDetails("option", KeyTimeout)
	}
	if config.CacheTTL, err = o.duration(KeyCacheTTL, config.CacheTTL); err != nil {
		return nil, err
	}

	if raw := o.Lookup(KeyAllowedAlgs); raw != "" {
		var algs []string
		for _, alg := range strings.Split(raw, ",") {
			alg = strings.ToUpper(strings.TrimSpace(alg))
			if alg == "" {
				continue
			}
			if err := jwt.ValidateAlgorithm(alg); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "unsupported signing algorithm").
					WithDetails("option", KeyAllowedAlgs)
			}
			algs = append(algs, alg)
		}
		if len(algs) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "empty algorithm list").
				WithDetails("option", KeyAllowedAlgs)
		}
		config.AllowedAlgs = algs
	}

	return config, nil
}

func (o Options) boolean(key string, def bool) (bool, error) {
	raw, ok := o.Get(key)
	if !ok {
		return def, nil
	}
	switch strings.ToLower(raw) {
	// A bare flag such as "debug" means true.
	case "", "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	default:
		return false, errors.Newf(errors.ErrCodeInvalidConfig, "invalid boolean %q", raw).
			WithDetails("option", key)
	}
}

func (o Options) duration(key string, def time.Duration) (time.Duration, error) {
	raw := o.Lookup(key)
	if raw == "" {
		return def, nil
	}

	// Bare integers are seconds.
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if seconds < 0 {
			return 0, errors.Newf(errors.ErrCodeInvalidConfig, "negative duration %q", raw).
				WithDetails("option", key)
		}
		if seconds > int64(math.MaxInt64/time.Second) {
			return 0, errors.Newf(errors.ErrCodeInvalidConfig, "duration %q out of range", raw).
				WithDetails("option", key)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInvalidConfig, "invalid duration").
			WithDetails("option", key)
	}
	if d < 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidConfig, "negative duration %q", raw).
			WithDetails("option", key)
	}
	return d, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Newf(errors.ErrCodeInvalidConfig, "unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "missing host")
	}
	return nil
}
