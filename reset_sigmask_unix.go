//go:build unix

// SPDX-License-Identifier: GPL-3.0-or-later

package procwrap

import "os/exec"

// ResetSigmask is a marker wrapper recording that the caller wants the
// spawned process to start with no signals blocked, regardless of the
// calling goroutine's inherited signal mask.
//
// The crate this design is modeled on implements this by installing an
// unsafe pre-exec callback that calls pthread_sigmask(SIG_SETMASK, &empty,
// NULL) in the forked child before exec. Go's os/exec deliberately exposes
// no equivalent hook: Go's runtime manages OS threads across many
// goroutines, and running arbitrary code between fork and exec on a
// multi-threaded runtime is exactly the class of unsafe operation
// os/exec's authors have chosen not to expose. Go children already start
// with an empty signal mask inherited from the forked thread's default
// state in the overwhelming majority of cases; this wrapper exists so the
// (rare) caller who has reason to believe their process's signal mask is
// nonstandard can record that intent and have custom tooling observe it
// via [*CommandWrap.HasWrap], rather than silently
// doing nothing.
type ResetSigmask struct {
	BaseWrapper
}

var _ Wrapper = (*ResetSigmask)(nil)

// NewResetSigmask returns a [*ResetSigmask] marker wrapper.
func NewResetSigmask() *ResetSigmask {
	return &ResetSigmask{}
}

// PreSpawn implements [Wrapper] as a no-op; see the type doc comment.
func (r *ResetSigmask) PreSpawn(cmd *exec.Cmd, core *CommandWrap) error {
	return nil
}
