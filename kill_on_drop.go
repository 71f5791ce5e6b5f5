// SPDX-License-Identifier: GPL-3.0-or-later

package procwrap

import "os/exec"

// KillOnDrop is a marker wrapper recording that the caller wants the spawned
// process terminated if its handle is discarded without being waited on.
//
// On Unix there is nothing for this wrapper to do at spawn time: the kernel
// gives no "kill my child if I disappear" primitive short of a pdeathsig,
// which is out of scope here. On Windows, [*JobObject] queries
// [*CommandWrap.GetWrap] for this wrapper and, if present, sets
// JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE so the OS itself enforces the
// guarantee when the job handle's last reference goes away.
//
// Go has no destructor to hook a kill into automatically (the corpus
// consistently avoids runtime.SetFinalizer for anything with process
// lifecycle consequences, since finalizer timing is not deterministic), so
// this wrapper is purely a marker: its only job is to be observable via
// [*CommandWrap.HasWrap].
type KillOnDrop struct {
	BaseWrapper
}

var _ Wrapper = (*KillOnDrop)(nil)

// NewKillOnDrop returns a [*KillOnDrop] marker wrapper.
func NewKillOnDrop() *KillOnDrop {
	return &KillOnDrop{}
}

// PreSpawn implements [Wrapper] as a no-op; see the type doc comment.
func (k *KillOnDrop) PreSpawn(cmd *exec.Cmd, core *CommandWrap) error {
	return nil
}
