//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/common/errclass/errclass.go
//

// Package errclass classifies process lifecycle errors (reap and signal
// failures) into short, stable strings suitable for structured logging and
// metrics, the same way the teacher package classified network errors.
package errclass

import (
	"errors"
	"syscall"
)

// New classifies err into a short label such as "ESRCH" or "ECHILD". It
// returns "" for nil and a generic label for anything it does not
// recognize, mirroring the network error classifier this package is
// adapted from.
func New(err error) string {
	if err == nil {
		return ""
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case errESRCH:
			return "ESRCH"
		case errECHILD:
			return "ECHILD"
		case errEPERM:
			return "EPERM"
		case errEINVAL:
			return "EINVAL"
		case errEINTR:
			return "EINTR"
		}
		return "EUNKNOWN"
	}
	return "EGENERIC"
}
