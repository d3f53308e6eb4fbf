// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package pam

// Syslog priorities accepted by Host.Syslog (<syslog.h>).
const (
	LogErr     = 3
	LogWarning = 4
	LogNotice  = 5
	LogInfo    = 6
	LogDebug   = 7
)

// Host is the part of the PAM handle the module uses. An implementation is
// only valid for the duration of the entry-point call that created it and
// must not be retained.
type Host interface {
	// User returns the name of the user being authenticated.
	User() (string, error)
	// AuthToken returns the PAM_AUTHTOK item, prompting if needed.
	AuthToken() (string, error)
	// Syslog writes one line to the system log through the host. Failures
	// are swallowed.
	Syslog(priority int, message string)
}
