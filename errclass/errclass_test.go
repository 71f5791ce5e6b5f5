//go:build unix

// SPDX-License-Identifier: GPL-3.0-or-later

package errclass

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestNewClassifiesNil(t *testing.T) {
	assert.Equal(t, "", New(nil))
}

func TestNewClassifiesKnownErrnos(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{unix.ESRCH, "ESRCH"},
		{unix.ECHILD, "ECHILD"},
		{unix.EPERM, "EPERM"},
		{unix.EINVAL, "EINVAL"},
		{unix.EINTR, "EINTR"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, New(tt.err))
	}
}

func TestNewClassifiesWrappedErrno(t *testing.T) {
	wrapped := fmt.Errorf("waitpid: %w", unix.ECHILD)
	assert.Equal(t, "ECHILD", New(wrapped))
}

func TestNewClassifiesUnknownErrno(t *testing.T) {
	assert.Equal(t, "EUNKNOWN", New(unix.ENOENT))
}

func TestNewClassifiesGenericError(t *testing.T) {
	assert.Equal(t, "EGENERIC", New(errors.New("boom")))
}
