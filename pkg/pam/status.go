// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package pam

import "strconv"

// Status is a Linux-PAM return value. The numbers are fixed by
// <security/_pam_types.h>.
type Status int

const (
	StatusSuccess          Status = 0
	StatusSystemErr        Status = 4
	StatusPermDenied       Status = 6
	StatusAuthErr          Status = 7
	StatusCredInsufficient Status = 8
	StatusAuthInfoUnavail  Status = 9
	StatusIgnore           Status = 25
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "PAM_SUCCESS"
	case StatusSystemErr:
		return "PAM_SYSTEM_ERR"
	case StatusPermDenied:
		return "PAM_PERM_DENIED"
	case StatusAuthErr:
		return "PAM_AUTH_ERR"
	case StatusCredInsufficient:
		return "PAM_CRED_INSUFFICIENT"
	case StatusAuthInfoUnavail:
		return "PAM_AUTHINFO_UNAVAIL"
	case StatusIgnore:
		return "PAM_IGNORE"
	default:
		return "PAM_STATUS(" + strconv.Itoa(int(s)) + ")"
	}
}

// State tracks how far an authentication attempt got.
type State int

const (
	StateStart State = iota
	StateUserResolved
	StateTokenResolved
	StateOptionsParsed
	StateValidated
	StateResponded
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateUserResolved:
		return "user_resolved"
	case StateTokenResolved:
		return "token_resolved"
	case StateOptionsParsed:
		return "options_parsed"
	case StateValidated:
		return "validated"
	case StateResponded:
		return "responded"
	default:
		return "unknown"
	}
}
