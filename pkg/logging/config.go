// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat represents the logging format
type LogFormat string

const (
	LogFormatJSON    LogFormat = "json"
	LogFormatConsole LogFormat = "console"
	// LogFormatSyslog writes JSON lines to the local syslog daemon.
	LogFormatSyslog LogFormat = "syslog"
)

// Config holds the logging configuration
type Config struct {
	Level       LogLevel  `json:"level" yaml:"level"`
	Format      LogFormat `json:"format" yaml:"format"`
	ServiceName string    `json:"service_name" yaml:"service_name"`
	Version     string    `json:"version" yaml:"version"`
	Caller      bool      `json:"caller" yaml:"caller"`

	// SyslogFacility and SyslogTag only apply to LogFormatSyslog.
	SyslogFacility string `json:"syslog_facility" yaml:"syslog_facility"`
	SyslogTag      string `json:"syslog_tag" yaml:"syslog_tag"`

	// Output overrides the destination for the json and console formats.
	Output io.Writer `json:"-" yaml:"-"`
}

// DefaultConfig returns a default logging configuration
func DefaultConfig() *Config {
	return &Config{
		Level:          LogLevelInfo,
		Format:         LogFormatConsole,
		ServiceName:    "pam-oidc",
		Version:        "dev",
		Caller:         false,
		SyslogFacility: "AUTHPRIV",
		SyslogTag:      "pam_oidc",
	}
}

// ModuleConfig returns the configuration used inside a PAM host process,
// where stderr may be the user's terminal.
func ModuleConfig() *Config {
	config := DefaultConfig()
	config.Format = LogFormatSyslog
	return config
}

// ParseLevel converts a level name, falling back to info.
func ParseLevel(level LogLevel) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(string(level)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// New builds a logger from config without touching the global logger.
// A syslog format that cannot reach the daemon yields a disabled logger.
func New(config *Config) zerolog.Logger {
	if config == nil {
		config = DefaultConfig()
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	var logger zerolog.Logger
	switch config.Format {
	case LogFormatSyslog:
		writer, err := NewSyslogWriter(config.SyslogFacility, config.SyslogTag)
		if err != nil {
			return zerolog.Nop()
		}
		logger = zerolog.New(writer)
	case LogFormatConsole:
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	default:
		logger = zerolog.New(out).With().Timestamp().Logger()
	}

	logger = logger.With().
		Str("service", config.ServiceName).
		Str("version", config.Version).
		Logger().
		Level(ParseLevel(config.Level))

	if config.Caller {
		logger = logger.With().Caller().Logger()
	}

	return logger
}

// Configure sets up the global logger with the given configuration
func Configure(config *Config) zerolog.Logger {
	logger := New(config)
	log.Logger = logger
	return logger
}

// GetLogger returns a logger with the given context
func GetLogger(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
