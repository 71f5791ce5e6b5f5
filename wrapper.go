// SPDX-License-Identifier: GPL-3.0-or-later

package procwrap

import "os/exec"

// Wrapper decorates the spawn pipeline of a [*CommandWrap].
//
// Implementations register themselves with [*CommandWrap.Wrap] and are
// invoked, in registration order, at up to three points: before the process
// is started (PreSpawn), right after it starts (PostSpawn), and when the raw
// [ChildHandle] is decorated into the handle the caller receives (WrapChild).
//
// Embed [BaseWrapper] to get no-op defaults for any hook a wrapper does not
// need.
type Wrapper interface {
	// Extend is called instead of a second registration when a wrapper of
	// the same concrete type is already registered. The receiver is the
	// existing, already-registered instance; other is the new instance
	// that triggered the collision and is discarded after this call
	// returns. The default implementation does nothing, so a second
	// registration is silently dropped.
	Extend(other Wrapper)

	// PreSpawn runs before cmd.Start, in registration order. An error
	// aborts the pipeline before the process is started.
	PreSpawn(cmd *exec.Cmd, core *CommandWrap) error

	// PostSpawn runs after cmd.Start succeeds, in registration order. An
	// error aborts the pipeline; the process has already started and is
	// left running (callers inspecting the error may still need to kill
	// it by PID).
	PostSpawn(cmd *exec.Cmd, core *CommandWrap) error

	// WrapChild decorates inner, returning the [ChildHandle] that the next
	// wrapper (or the caller, for the last registered wrapper) will see.
	// Hooks run in registration order, so the first registered wrapper
	// wraps the raw child and the last registered wrapper produces the
	// outermost handle.
	WrapChild(inner ChildHandle, core *CommandWrap) (ChildHandle, error)
}

// BaseWrapper implements [Wrapper] with no-op defaults for every hook.
//
// Concrete wrappers embed BaseWrapper and override only the hooks they need,
// mirroring the pack's convention of embeddable zero-value defaults (compare
// [discardSLogger] for [SLogger]).
type BaseWrapper struct{}

// Extend implements [Wrapper] by discarding the new instance.
func (BaseWrapper) Extend(Wrapper) {}

// PreSpawn implements [Wrapper] as a no-op.
func (BaseWrapper) PreSpawn(*exec.Cmd, *CommandWrap) error { return nil }

// PostSpawn implements [Wrapper] as a no-op.
func (BaseWrapper) PostSpawn(*exec.Cmd, *CommandWrap) error { return nil }

// WrapChild implements [Wrapper] by returning inner unchanged.
func (BaseWrapper) WrapChild(inner ChildHandle, core *CommandWrap) (ChildHandle, error) {
	return inner, nil
}
