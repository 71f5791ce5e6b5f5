//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later

package procwrap

import (
	"os/exec"
	"syscall"
)

// CreationFlags records additional Win32 process creation flags to OR into
// the spawned process's CreationFlags, queryable by [*JobObject] via
// [*CommandWrap.GetWrap].
//
// Registering [*CreationFlags] after [*JobObject] on the same
// [*CommandWrap] does not clear [*JobObject]'s own CREATE_SUSPENDED bit:
// PreSpawn hooks run in registration order and each one only ORs its own
// bits into whatever the previous hook left in place, so registration order
// does not matter. A caller-written hook that assigns CreationFlags rather
// than ORing into it can still clear the bit; this package does not
// auto-correct that.
type CreationFlags struct {
	BaseWrapper
	Flags uint32
}

var _ Wrapper = (*CreationFlags)(nil)

// NewCreationFlags returns a [*CreationFlags] wrapper carrying flags.
func NewCreationFlags(flags uint32) *CreationFlags {
	return &CreationFlags{Flags: flags}
}

// Extend implements [Wrapper] by OR-ing in the second registration's flags
// rather than discarding them, since creation flags are naturally
// combinable.
func (c *CreationFlags) Extend(other Wrapper) {
	if o, ok := other.(*CreationFlags); ok {
		c.Flags |= o.Flags
	}
}

// PreSpawn implements [Wrapper].
func (c *CreationFlags) PreSpawn(cmd *exec.Cmd, core *CommandWrap) error {
	attr := cmd.SysProcAttr
	if attr == nil {
		attr = &syscall.SysProcAttr{}
		cmd.SysProcAttr = attr
	}
	attr.CreationFlags |= c.Flags
	return nil
}
