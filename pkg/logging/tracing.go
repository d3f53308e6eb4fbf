// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AttemptIDKey is the context key for the authentication attempt ID
type AttemptIDKey struct{}

// UserKey is the context key for the user being authenticated
type UserKey struct{}

// NewAttemptID generates a random attempt ID
func NewAttemptID() string {
	return uuid.NewString()
}

// WithAttemptID adds an attempt ID to the context
func WithAttemptID(ctx context.Context, attemptID string) context.Context {
	return context.WithValue(ctx, AttemptIDKey{}, attemptID)
}

// WithUser adds the authenticating user to the context
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, UserKey{}, user)
}

// GetAttemptID extracts the attempt ID from the context
func GetAttemptID(ctx context.Context) string {
	if attemptID, ok := ctx.Value(AttemptIDKey{}).(string); ok {
		return attemptID
	}
	return ""
}

// GetUser extracts the authenticating user from the context
func GetUser(ctx context.Context) string {
	if user, ok := ctx.Value(UserKey{}).(string); ok {
		return user
	}
	return ""
}

// LoggerFromContext returns the logger attached to ctx (or the global
// logger) enriched with the attempt information carried by ctx.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	logger := log.Logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		logger = *l
	}

	if attemptID := GetAttemptID(ctx); attemptID != "" {
		logger = logger.With().Str("attempt_id", attemptID).Logger()
	}

	if user := GetUser(ctx); user != "" {
		logger = logger.With().Str("user", user).Logger()
	}

	return logger
}

// LoggerFromContextWithComponent returns a logger with attempt information and component
func LoggerFromContextWithComponent(ctx context.Context, component string) zerolog.Logger {
	return LoggerFromContext(ctx).With().Str("component", component).Logger()
}
