//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later

package procwrap

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

func TestCreationFlagsExtendOrsFlags(t *testing.T) {
	core := NewCommandWrap("cmd", nil).
		Wrap(NewCreationFlags(windows.CREATE_NEW_CONSOLE)).
		Wrap(NewCreationFlags(windows.CREATE_NO_WINDOW))

	var got *CreationFlags
	require.True(t, core.GetWrap(&got))
	assert.Equal(t, uint32(windows.CREATE_NEW_CONSOLE|windows.CREATE_NO_WINDOW), got.Flags)
}

func TestCreationFlagsAfterJobObjectKeepsSuspended(t *testing.T) {
	// JobObject's PreSpawn runs first (registered first) and sets
	// CREATE_SUSPENDED; CreationFlags registered afterward ORs its own
	// flags into the same field rather than overwriting it, so
	// CREATE_SUSPENDED survives as long as every hook ORs rather than
	// assigns.
	core := NewCommandWrap("cmd", func(c *exec.Cmd) {}).
		Wrap(NewJobObject()).
		Wrap(NewCreationFlags(windows.CREATE_NO_WINDOW))

	cmd := core.Command()
	for _, e := range core.registry {
		require.NoError(t, e.wrapper.PreSpawn(cmd, core))
	}
	assert.NotZero(t, cmd.SysProcAttr.CreationFlags&windows.CREATE_SUSPENDED)
}
