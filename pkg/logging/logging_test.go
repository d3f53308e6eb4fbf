// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	gsyslog "github.com/hashicorp/go-syslog"
	"github.com/openchami/pam-oidc/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestNew(t *testing.T) {
	t.Run("json output carries service fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&Config{Level: LogLevelInfo, Format: LogFormatJSON, ServiceName: "svc", Version: "1", Output: &buf})
		logger.Info().Msg("hello")

		line := decodeLine(t, &buf)
		assert.Equal(t, "svc", line["service"])
		assert.Equal(t, "1", line["version"])
		assert.Equal(t, "hello", line["message"])
	})

	t.Run("level filters lower events", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&Config{Level: LogLevelWarn, Format: LogFormatJSON, Output: &buf})
		logger.Info().Msg("hidden")
		assert.Zero(t, buf.Len())
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
		assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	})
}

func TestSyslogPriority(t *testing.T) {
	tests := []struct {
		level zerolog.Level
		want  gsyslog.Priority
	}{
		{zerolog.DebugLevel, gsyslog.LOG_DEBUG},
		{zerolog.InfoLevel, gsyslog.LOG_INFO},
		{zerolog.WarnLevel, gsyslog.LOG_WARNING},
		{zerolog.ErrorLevel, gsyslog.LOG_ERR},
		{zerolog.NoLevel, gsyslog.LOG_NOTICE},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, SyslogPriority(tt.level))
		})
	}
}

type recordingSyslogger struct {
	priorities []gsyslog.Priority
	lines      []string
}

func (r *recordingSyslogger) WriteLevel(p gsyslog.Priority, b []byte) error {
	r.priorities = append(r.priorities, p)
	r.lines = append(r.lines, string(b))
	return nil
}

func (r *recordingSyslogger) Write(b []byte) (int, error) {
	return len(b), r.WriteLevel(gsyslog.LOG_NOTICE, b)
}

func (r *recordingSyslogger) Close() error { return nil }

func TestSyslogWriter(t *testing.T) {
	rec := &recordingSyslogger{}
	logger := zerolog.New(NewSyslogWriterFrom(rec))

	logger.Warn().Msg("careful")
	logger.Error().Msg("broken")

	require.Len(t, rec.priorities, 2)
	assert.Equal(t, gsyslog.LOG_WARNING, rec.priorities[0])
	assert.Equal(t, gsyslog.LOG_ERR, rec.priorities[1])
	assert.Contains(t, rec.lines[1], "broken")
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := base.WithContext(context.Background())
	ctx = WithAttemptID(ctx, "attempt-1")
	ctx = WithUser(ctx, "alice")

	logger := LoggerFromContextWithComponent(ctx, "test")
	logger.Info().Msg("hi")

	line := decodeLine(t, &buf)
	assert.Equal(t, "attempt-1", line["attempt_id"])
	assert.Equal(t, "alice", line["user"])
	assert.Equal(t, "test", line["component"])
}

func TestStructuredLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := Wrap(zerolog.New(&buf))

	err := errors.New(errors.ErrCodeProtocol, "unexpected status").WithDetails("status_code", 500)
	logger.WithError(err).Error("fetch failed")

	line := decodeLine(t, &buf)
	assert.Equal(t, "PROTOCOL_ERROR", line["error_code"])
	assert.Equal(t, "provider", line["error_class"])
	assert.EqualValues(t, 500, line["error_status_code"])
}

func TestLogAuthAttempt(t *testing.T) {
	var buf bytes.Buffer
	logger := Wrap(zerolog.New(&buf))

	logger.LogAuthAttempt("PAM_PERM_DENIED", errors.New(errors.ErrCodeClaimMismatch, "no"), 0)

	line := decodeLine(t, &buf)
	assert.Equal(t, "CLAIM_MISMATCH", line["reason"])
	assert.Equal(t, false, line["success"])
	assert.Equal(t, "warn", line["level"])
}
