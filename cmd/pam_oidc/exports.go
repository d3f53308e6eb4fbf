// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package main

// Only declarations may appear in the preamble of a file with //export,
// and pam_modules.h would clash with the generated prototypes (argv is
// const there), so the helpers live in host.go.

/*
#include <security/pam_appl.h>
*/
import "C"

import (
	"unsafe"

	"github.com/openchami/pam-oidc/pkg/pam"
)

//export pam_sm_authenticate
func pam_sm_authenticate(pamh *C.pam_handle_t, flags, argc C.int, argv **C.char) C.int {
	return guard(func() pam.Status {
		return module().Authenticate(host{handle: pamh}, int(flags), goArgs(argc, argv))
	})
}

//export pam_sm_setcred
func pam_sm_setcred(pamh *C.pam_handle_t, flags, argc C.int, argv **C.char) C.int {
	return guard(func() pam.Status {
		return module().SetCredentials(host{handle: pamh}, int(flags), goArgs(argc, argv))
	})
}

//export pam_sm_acct_mgmt
func pam_sm_acct_mgmt(pamh *C.pam_handle_t, flags, argc C.int, argv **C.char) C.int {
	return guard(func() pam.Status {
		return module().AccountManagement(host{handle: pamh}, int(flags), goArgs(argc, argv))
	})
}

// guard keeps a Go panic from unwinding into the host process.
func guard(fn func() pam.Status) (status C.int) {
	defer func() {
		if r := recover(); r != nil {
			status = C.int(pam.StatusSystemErr)
		}
	}()
	return C.int(fn())
}

func goArgs(argc C.int, argv **C.char) []string {
	if argc <= 0 || argv == nil {
		return nil
	}
	args := make([]string, 0, int(argc))
	for _, arg := range unsafe.Slice(argv, int(argc)) {
		if arg != nil {
			args = append(args, C.GoString(arg))
		}
	}
	return args
}
