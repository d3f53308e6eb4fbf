// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

// Package pam implements the authentication pipeline behind the PAM entry
// points: fetch user and token from the host, parse the module arguments,
// resolve the provider, validate the token and map the outcome to a PAM
// status.
package pam

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openchami/pam-oidc/pkg/discovery"
	"github.com/openchami/pam-oidc/pkg/errors"
	"github.com/openchami/pam-oidc/pkg/jwt"
	"github.com/openchami/pam-oidc/pkg/logging"
	"github.com/openchami/pam-oidc/pkg/options"
	"github.com/openchami/pam-oidc/pkg/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FetcherFactory builds the document fetcher for one attempt.
type FetcherFactory func(cfg *options.Config) (discovery.Fetcher, error)

// Module holds the collaborators shared by every attempt. It keeps no
// per-request state and is safe for concurrent use.
type Module struct {
	logger     zerolog.Logger
	now        func() time.Time
	newFetcher FetcherFactory

	// The cache is built on the first attempt with cache_ttl set, so a
	// host that never enables caching never starts its expiry goroutine.
	cacheOnce sync.Once
	cache     *discovery.Cache
}

// ModuleOption configures a Module
type ModuleOption func(*Module)

// WithLogger sets the diagnostic logger.
func WithLogger(logger zerolog.Logger) ModuleOption {
	return func(m *Module) {
		m.logger = logger
	}
}

// WithClock sets the time source for token lifetime checks.
func WithClock(now func() time.Time) ModuleOption {
	return func(m *Module) {
		m.now = now
	}
}

// WithCache replaces the discovery cache.
func WithCache(cache *discovery.Cache) ModuleOption {
	return func(m *Module) {
		m.cacheOnce.Do(func() {
			m.cache = cache
		})
	}
}

// WithFetcherFactory replaces how documents are fetched.
func WithFetcherFactory(factory FetcherFactory) ModuleOption {
	return func(m *Module) {
		m.newFetcher = factory
	}
}

// NewModule creates a Module. The default logger is the global zerolog logger.
func NewModule(opts ...ModuleOption) *Module {
	m := &Module{
		logger:     log.Logger,
		now:        time.Now,
		newFetcher: NewTransportFetcher,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewTransportFetcher returns the socket client, trusting ca_file when set.
func NewTransportFetcher(cfg *options.Config) (discovery.Fetcher, error) {
	var opts []transport.Option
	if cfg.CAFile != "" {
		pool, err := transport.LoadRootCAs(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, transport.WithRootCAs(pool))
	}
	return transport.NewClient(opts...), nil
}

// Authenticate runs one attempt. It never panics: a fault anywhere in the
// pipeline is reported as PAM_SYSTEM_ERR.
func (m *Module) Authenticate(host Host, flags int, args []string) (status Status) {
	a := &attempt{
		module:  m,
		host:    host,
		args:    args,
		id:      logging.NewAttemptID(),
		base:    m.logger,
		started: m.now(),
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger().
				WithField("panic", fmt.Sprint(r)).
				WithField("state", a.state.String()).
				Error("recovered from panic during authentication")
			status = StatusSystemErr
		}
	}()

	status, err := a.run()
	a.state = StateResponded
	a.logger().
		WithField("flags", flags).
		LogAuthAttempt(status.String(), err, m.now().Sub(a.started))
	return status
}

// SetCredentials has nothing to establish.
func (m *Module) SetCredentials(host Host, flags int, args []string) Status {
	return StatusIgnore
}

// AccountManagement accepts every account; authorization is left to the
// other modules in the stack.
func (m *Module) AccountManagement(host Host, flags int, args []string) Status {
	return StatusSuccess
}

type attempt struct {
	module  *Module
	host    Host
	args    []string
	id      string
	user    string
	base    zerolog.Logger
	state   State
	started time.Time
}

func (a *attempt) logger() *logging.StructuredLogger {
	ctx := a.base.With().
		Str("component", "pam").
		Str("attempt_id", a.id)
	if a.user != "" {
		ctx = ctx.Str("user", a.user)
	}
	return logging.Wrap(ctx.Logger())
}

func (a *attempt) context() context.Context {
	ctx := a.base.WithContext(context.Background())
	ctx = logging.WithAttemptID(ctx, a.id)
	return logging.WithUser(ctx, a.user)
}

func (a *attempt) run() (Status, error) {
	user, err := a.host.User()
	if err == nil && user == "" {
		err = errors.New(errors.ErrCodeCredentialsUnavailable, "host returned an empty user name")
	}
	if err != nil {
		return StatusCredInsufficient, errors.Wrap(err, errors.ErrCodeCredentialsUnavailable, "failed to get user")
	}
	a.user = user
	a.state = StateUserResolved
	a.notice("starting auth for user " + user)

	token, err := a.host.AuthToken()
	if err == nil && token == "" {
		err = errors.New(errors.ErrCodeCredentialsUnavailable, "host returned an empty token")
	}
	if err != nil {
		return StatusCredInsufficient, errors.Wrap(err, errors.ErrCodeCredentialsUnavailable, "failed to get token")
	}
	a.state = StateTokenResolved

	cfg, err := options.Parse(a.args).Config()
	if err != nil {
		return StatusAuthInfoUnavail, err
	}
	if cfg.Debug {
		a.base = a.base.Level(zerolog.DebugLevel)
	}
	fetcher, err := a.module.newFetcher(cfg)
	if err != nil {
		return StatusAuthInfoUnavail, err
	}
	a.state = StateOptionsParsed

	ctx, cancel := context.WithTimeout(a.context(), cfg.Timeout)
	defer cancel()

	outcome := a.module.verify(ctx, fetcher, cfg, user, token)
	a.state = StateValidated
	if !outcome.IsValid() {
		return StatusPermDenied, outcome.Err()
	}
	return StatusSuccess, nil
}

// notice writes the host syslog line. The host may misbehave; that must not
// affect the attempt.
func (a *attempt) notice(message string) {
	defer func() {
		if r := recover(); r != nil {
			a.logger().WithField("panic", fmt.Sprint(r)).Warn("host syslog failed")
		}
	}()
	a.host.Syslog(LogNotice, message)
}

// documentCache returns the shared discovery cache, creating it on first use.
func (m *Module) documentCache() *discovery.Cache {
	m.cacheOnce.Do(func() {
		m.cache = discovery.NewCache(discovery.DefaultCacheSize, discovery.DefaultMaxAge)
	})
	return m.cache
}

func (m *Module) resolve(ctx context.Context, fetcher discovery.Fetcher, cfg *options.Config) (*discovery.Configuration, *jwt.KeySet, error) {
	resolver := discovery.NewResolver(fetcher)
	if cfg.CacheTTL <= 0 {
		return resolver.Resolve(ctx, cfg.DiscoveryURL)
	}
	return m.documentCache().Resolve(ctx, resolver, cfg.DiscoveryURL, cfg.CacheTTL)
}

func (m *Module) verify(ctx context.Context, fetcher discovery.Fetcher, cfg *options.Config, user, token string) jwt.Outcome {
	config, keys, err := m.resolve(ctx, fetcher, cfg)
	if err != nil {
		return jwt.Invalid(deadlineError(ctx, err))
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = config.Issuer
	}

	validator := jwt.NewValidator(keys,
		jwt.WithAllowedAlgorithms(cfg.AllowedAlgs),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithClock(m.now),
	)
	claims, outcome := validator.Verify(token, jwt.Expectations{
		Issuer:        issuer,
		Audience:      cfg.Audience,
		MatchUsername: cfg.MatchUsername,
		UsernameClaim: cfg.UsernameClaim,
		Username:      user,
	})

	// A result produced after the deadline is not trusted.
	if outcome.IsValid() && ctx.Err() != nil {
		return jwt.Invalid(deadlineError(ctx, ctx.Err()))
	}
	if outcome.IsValid() {
		logging.NewStructuredLoggerFromContext(ctx, "pam").
			WithField("issuer", issuer).
			WithField("expires_at", claims.ExpiresAt()).
			Debug("token accepted")
	}
	return outcome
}

func deadlineError(ctx context.Context, err error) error {
	if ctx.Err() != nil && !errors.HasCode(err, errors.ErrCodeTimeout) {
		return errors.Wrap(err, errors.ErrCodeTimeout, "authentication deadline exceeded")
	}
	return err
}
