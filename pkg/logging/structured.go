// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package logging

import (
	"context"
	"time"

	"github.com/openchami/pam-oidc/pkg/errors"
	"github.com/rs/zerolog"
)

// StructuredLogger provides structured logging capabilities
type StructuredLogger struct {
	logger zerolog.Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(component string) *StructuredLogger {
	return &StructuredLogger{
		logger: GetLogger(component),
	}
}

// NewStructuredLoggerFromContext creates a structured logger from context
func NewStructuredLoggerFromContext(ctx context.Context, component string) *StructuredLogger {
	return &StructuredLogger{
		logger: LoggerFromContextWithComponent(ctx, component),
	}
}

// Wrap turns an existing zerolog logger into a StructuredLogger.
func Wrap(logger zerolog.Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// WithField adds a field to the logger
func (l *StructuredLogger) WithField(key string, value interface{}) *StructuredLogger {
	return &StructuredLogger{
		logger: l.logger.With().Interface(key, value).Logger(),
	}
}

// WithFields adds multiple fields to the logger
func (l *StructuredLogger) WithFields(fields map[string]interface{}) *StructuredLogger {
	logger := l.logger.With()
	for key, value := range fields {
		logger = logger.Interface(key, value)
	}
	return &StructuredLogger{
		logger: logger.Logger(),
	}
}

// WithError adds an error to the logger
func (l *StructuredLogger) WithError(err error) *StructuredLogger {
	logger := l.logger.With().Err(err)

	if authErr, ok := errors.AsAuthError(err); ok {
		logger = logger.
			Str("error_code", string(authErr.Code)).
			Str("error_class", string(authErr.Class()))

		for key, value := range authErr.Details {
			logger = logger.Interface("error_"+key, value)
		}
	}

	return &StructuredLogger{
		logger: logger.Logger(),
	}
}

// Debug logs a debug message
func (l *StructuredLogger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

// Info logs an info message
func (l *StructuredLogger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// Warn logs a warning message
func (l *StructuredLogger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

// Error logs an error message
func (l *StructuredLogger) Error(msg string) {
	l.logger.Error().Msg(msg)
}

// Errorf logs a formatted error message
func (l *StructuredLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

// LogOperation logs the start and end of an operation
func (l *StructuredLogger) LogOperation(operation string, fn func() error) error {
	start := time.Now()
	l.logger.Debug().Str("operation", operation).Msg("operation started")

	err := fn()

	logger := l.logger.With().
		Str("operation", operation).
		Dur("duration", time.Since(start)).
		Logger()

	if err != nil {
		Wrap(logger).WithError(err).Warn("operation failed")
	} else {
		logger.Debug().Msg("operation completed")
	}

	return err
}

// LogAuthAttempt logs the final decision for one authentication attempt.
// The reason is only ever written to the diagnostic log.
func (l *StructuredLogger) LogAuthAttempt(status string, err error, duration time.Duration) {
	event := l.logger.Info()
	if err != nil {
		event = l.logger.Warn().Err(err).Str("reason", string(errors.GetErrorCode(err)))
	}

	event.
		Str("status", status).
		Bool("success", err == nil).
		Dur("duration", duration).
		Msg("authentication attempt")
}
