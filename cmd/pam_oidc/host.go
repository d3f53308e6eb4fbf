// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package main

/*
#cgo LDFLAGS: -lpam
#include <stdlib.h>
#include <security/pam_appl.h>
#include <security/pam_modules.h>
#include <security/pam_ext.h>

static int get_user(pam_handle_t *pamh, const char **user) {
	return pam_get_user(pamh, user, NULL);
}

static int get_authtok(pam_handle_t *pamh, const char **tok) {
	return pam_get_authtok(pamh, PAM_AUTHTOK, tok, NULL);
}

static void log_line(pam_handle_t *pamh, int priority, const char *msg) {
	pam_syslog(pamh, priority, "%s", msg);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// host adapts the PAM handle to pam.Host. It lives only as long as the
// entry-point call that created it.
type host struct {
	handle *C.pam_handle_t
}

func (h host) User() (string, error) {
	var user *C.char
	if rc := C.get_user(h.handle, &user); rc != C.PAM_SUCCESS {
		return "", fmt.Errorf("pam_get_user: %s", h.strerror(rc))
	}
	if user == nil {
		return "", fmt.Errorf("pam_get_user returned no user")
	}
	return C.GoString(user), nil
}

func (h host) AuthToken() (string, error) {
	var tok *C.char
	if rc := C.get_authtok(h.handle, &tok); rc != C.PAM_SUCCESS {
		return "", fmt.Errorf("pam_get_authtok: %s", h.strerror(rc))
	}
	if tok == nil {
		return "", fmt.Errorf("pam_get_authtok returned no token")
	}
	return C.GoString(tok), nil
}

func (h host) Syslog(priority int, message string) {
	cmsg := C.CString(message)
	defer C.free(unsafe.Pointer(cmsg))
	C.log_line(h.handle, C.int(priority), cmsg)
}

func (h host) strerror(rc C.int) string {
	return C.GoString(C.pam_strerror(h.handle, rc))
}
