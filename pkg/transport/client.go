// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

// Package transport fetches small JSON documents with a single HTTP/1.1 GET
// over a plain or TLS-wrapped socket. It implements only what discovery
// needs: one request per connection, Connection: close, chunked or
// length/close framed bodies, no redirects and no retries.
package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	stderrors "errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/openchami/pam-oidc/pkg/errors"
)

// DefaultUserAgent is sent with every request.
const DefaultUserAgent = "pam-oidc/1.0"

// Client performs one GET per Fetch call.
type Client struct {
	dialer      *net.Dialer
	tlsConfig   *tls.Config
	userAgent   string
	maxBodySize int64
}

// Option configures a Client
type Option func(*Client)

// WithRootCAs verifies TLS peers against pool instead of the system roots.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(c *Client) {
		c.tlsConfig.RootCAs = pool
	}
}

// WithTLSConfig replaces the TLS configuration. ServerName is always set
// from the URL being fetched.
func WithTLSConfig(config *tls.Config) Option {
	return func(c *Client) {
		c.tlsConfig = config.Clone()
	}
}

// WithDialer replaces the dialer used to open connections.
func WithDialer(dialer *net.Dialer) Option {
	return func(c *Client) {
		c.dialer = dialer
	}
}

// WithMaxBodySize bounds the accepted response body.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		c.maxBodySize = n
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new Client
func NewClient(opts ...Option) *Client {
	c := &Client{
		dialer:      &net.Dialer{KeepAlive: -1},
		tlsConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadRootCAs reads a PEM bundle into a certificate pool.
func LoadRootCAs(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "failed to read CA file").
			WithDetails("path", path)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "no certificates found in CA file").
			WithDetails("path", path)
	}
	return pool, nil
}

type target struct {
	secure     bool
	host       string
	address    string
	hostHeader string
	requestURI string
}

func parseTarget(rawURL string) (*target, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProtocol, "invalid URL").
			WithDetails("url", rawURL)
	}

	t := &target{hostHeader: u.Host, requestURI: u.RequestURI()}
	port := u.Port()
	switch u.Scheme {
	case "http":
		if port == "" {
			port = "80"
		}
	case "https":
		t.secure = true
		if port == "" {
			port = "443"
		}
	default:
		return nil, errors.Newf(errors.ErrCodeProtocol, "unsupported URL scheme %q", u.Scheme).
			WithDetails("url", rawURL)
	}

	t.host = u.Hostname()
	if t.host == "" {
		return nil, errors.New(errors.ErrCodeProtocol, "URL has no host").
			WithDetails("url", rawURL)
	}
	t.address = net.JoinHostPort(t.host, port)
	return t, nil
}

// Fetch performs a GET for rawURL and returns the decoded body of a 200
// response. The connection is closed before Fetch returns.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	t, err := parseTarget(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", t.address)
	if err != nil {
		return nil, connError(ctx, err, "failed to connect").WithDetails("address", t.address)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeNetworkFailure, "failed to set deadline")
		}
	}
	// Unblock reads and writes as soon as the caller gives up.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if t.secure {
		config := c.tlsConfig.Clone()
		config.ServerName = t.host
		tlsConn := tls.Client(conn, config)
		defer tlsConn.Close()

		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return nil, connError(ctx, err, "TLS handshake failed").WithDetails("host", t.host)
		}
		conn = tlsConn
	}

	if err := c.writeRequest(conn, t); err != nil {
		return nil, connError(ctx, err, "failed to send request")
	}

	resp, err := ReadResponse(bufio.NewReader(conn), c.maxBodySize)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "request aborted")
		}
		return nil, err
	}

	if resp.StatusCode != 200 {
		return nil, errors.New(errors.ErrCodeProtocol, "unexpected response status").
			WithDetails("status_code", resp.StatusCode).
			WithDetails("url", rawURL)
	}

	return resp.Body, nil
}

func (c *Client) writeRequest(conn net.Conn, t *target) error {
	w := bufio.NewWriter(conn)
	fmt.Fprintf(w, "GET %s HTTP/1.1\r\n", t.requestURI)
	fmt.Fprintf(w, "Host: %s\r\n", t.hostHeader)
	fmt.Fprintf(w, "User-Agent: %s\r\n", c.userAgent)
	fmt.Fprintf(w, "Accept: application/json\r\n")
	fmt.Fprintf(w, "Connection: close\r\n\r\n")
	return w.Flush()
}

func connError(ctx context.Context, err error, message string) *errors.AuthError {
	if ctx.Err() != nil || isTimeout(err) {
		return errors.Wrap(err, errors.ErrCodeTimeout, message)
	}
	return errors.Wrap(err, errors.ErrCodeNetworkFailure, message)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
