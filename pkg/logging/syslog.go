// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package logging

import (
	gsyslog "github.com/hashicorp/go-syslog"
	"github.com/rs/zerolog"
)

// SyslogWriter is a zerolog.LevelWriter that forwards each event to syslog
// at the priority matching its zerolog level.
type SyslogWriter struct {
	logger gsyslog.Syslogger
}

var _ zerolog.LevelWriter = (*SyslogWriter)(nil)

// NewSyslogWriter connects to the local syslog daemon.
func NewSyslogWriter(facility, tag string) (*SyslogWriter, error) {
	logger, err := gsyslog.NewLogger(gsyslog.LOG_INFO, facility, tag)
	if err != nil {
		return nil, err
	}
	return &SyslogWriter{logger: logger}, nil
}

// NewSyslogWriterFrom wraps an existing syslogger.
func NewSyslogWriterFrom(logger gsyslog.Syslogger) *SyslogWriter {
	return &SyslogWriter{logger: logger}
}

// Write implements io.Writer.
func (w *SyslogWriter) Write(p []byte) (int, error) {
	return w.logger.Write(p)
}

// WriteLevel implements zerolog.LevelWriter.
func (w *SyslogWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if err := w.logger.WriteLevel(SyslogPriority(level), p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close releases the syslog connection.
func (w *SyslogWriter) Close() error {
	return w.logger.Close()
}

// SyslogPriority maps a zerolog level to a syslog priority.
func SyslogPriority(level zerolog.Level) gsyslog.Priority {
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return gsyslog.LOG_DEBUG
	case zerolog.InfoLevel:
		return gsyslog.LOG_INFO
	case zerolog.WarnLevel:
		return gsyslog.LOG_WARNING
	case zerolog.ErrorLevel:
		return gsyslog.LOG_ERR
	case zerolog.FatalLevel:
		return gsyslog.LOG_CRIT
	case zerolog.PanicLevel:
		return gsyslog.LOG_EMERG
	default:
		return gsyslog.LOG_NOTICE
	}
}
