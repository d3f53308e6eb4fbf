// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

// Command pam_oidc is built with -buildmode=c-shared into pam_oidc.so, a
// Linux-PAM service module that accepts an OIDC-issued JWT as the password.
//
//	auth required pam_oidc.so discovery_url=https://idp.example/.well-known/openid-configuration audience=some-app
package main

import (
	"sync"

	"github.com/openchami/pam-oidc/pkg/logging"
	"github.com/openchami/pam-oidc/pkg/pam"
)

// module is created on first use so that loading the library into a host
// process does no work until an entry point is called.
var module = sync.OnceValue(func() *pam.Module {
	logger := logging.Configure(logging.ModuleConfig())
	return pam.NewModule(pam.WithLogger(logger))
})

func main() {}
