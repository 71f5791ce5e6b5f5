//go:build windows

//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/common/errclass/windows.go
//

package errclass

import "syscall"

// Windows' syscall package exposes POSIX-shaped Errno values for the
// subset relevant to process lifecycle management even though the
// underlying Win32 error codes differ; ESRCH/ECHILD-equivalent conditions
// surface as ordinary errors from windows.OpenProcess / TerminateJobObject,
// so only the signal-adjacent errno values are defined here for parity with
// the Unix build.
const (
	errESRCH  = syscall.ESRCH
	errECHILD = syscall.ECHILD
	errEPERM  = syscall.EPERM
	errEINVAL = syscall.EINVAL
	errEINTR  = syscall.EINTR
)
