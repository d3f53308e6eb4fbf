// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	gsyslog "github.com/hashicorp/go-syslog"
	"github.com/joeshaw/envdecode"
	"github.com/openchami/pam-oidc/pkg/errors"
	"github.com/openchami/pam-oidc/pkg/pam"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var checkUser string

// pamEnvironment is what pam_exec exports to the child process.
type pamEnvironment struct {
	User       string `env:"PAM_USER"`
	Service    string `env:"PAM_SERVICE"`
	RemoteHost string `env:"PAM_RHOST"`
	Type       string `env:"PAM_TYPE"`
}

var checkCmd = &cobra.Command{
	Use:   "check [key=value ...]",
	Short: "Authenticate a token read from stdin (pam_exec expose_authtok)",
	Long: `Reads the token from the first line of stdin and authenticates it for the
user named by --user or PAM_USER. The arguments are the module options, for
example:

  auth required pam_exec.so expose_authtok /usr/bin/pam-oidc check \
      discovery_url=https://idp.example/.well-known/openid-configuration audience=some-app

Exits 0 when the token is accepted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadPAMEnvironment()
		if err != nil {
			return fmt.Errorf("failed to read PAM environment: %w", err)
		}

		status := runCheck(cmd.InOrStdin(), env, checkUser, args, pam.NewModule(pam.WithLogger(log.Logger)))
		if status != pam.StatusSuccess {
			return fmt.Errorf("authentication failed: %s", status)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkUser, "user", "", "User to authenticate (default $PAM_USER)")
}

func loadPAMEnvironment() (pamEnvironment, error) {
	var env pamEnvironment
	if err := envdecode.Decode(&env); err != nil && !stderrors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return env, err
	}
	return env, nil
}

// runCheck authenticates one token. pam_exec also runs for account and
// session hooks; those have nothing to check.
func runCheck(in io.Reader, env pamEnvironment, user string, args []string, module *pam.Module) pam.Status {
	logger := log.Logger.With().
		Str("service", env.Service).
		Str("rhost", env.RemoteHost).
		Logger()

	if env.Type != "" && env.Type != "auth" {
		logger.Debug().Str("pam_type", env.Type).Msg("nothing to do for this PAM type")
		return pam.StatusSuccess
	}

	if user == "" {
		user = env.User
	}

	h := &execHost{user: user, in: in, logger: logger}
	if syslogger, err := gsyslog.NewLogger(gsyslog.LOG_NOTICE, "AUTHPRIV", "pam-oidc"); err == nil {
		defer syslogger.Close()
		h.syslog = syslogger
	}
	return module.Authenticate(h, 0, args)
}

// execHost serves pam.Host from the pam_exec process environment.
type execHost struct {
	user   string
	in     io.Reader
	logger zerolog.Logger
	syslog gsyslog.Syslogger
}

func (h *execHost) User() (string, error) {
	if h.user == "" {
		return "", errors.New(errors.ErrCodeCredentialsUnavailable, "no user given and PAM_USER is not set")
	}
	return h.user, nil
}

func (h *execHost) AuthToken() (string, error) {
	return readToken(h.in)
}

func (h *execHost) Syslog(priority int, message string) {
	if h.syslog != nil {
		_ = h.syslog.WriteLevel(gsyslog.Priority(priority), []byte(message))
		return
	}
	h.logger.Info().Int("priority", priority).Msg(message)
}

// readToken returns the first line of r. pam_exec terminates the token
// with a NUL byte rather than a newline.
func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, errors.ErrCodeCredentialsUnavailable, "failed to read token")
	}
	token := strings.TrimSpace(strings.TrimRight(line, "\x00\r\n"))
	if token == "" {
		return "", errors.New(errors.ErrCodeCredentialsUnavailable, "no token on stdin")
	}
	return token, nil
}
