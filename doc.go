// SPDX-License-Identifier: GPL-3.0-or-later

// Package procwrap provides composable wrappers around [os/exec.Cmd] that
// give spawned child processes stronger lifecycle guarantees than the
// standard library offers on its own: process-group and process-session
// placement with reliable orphan reaping on Unix, and Job Object containment
// on Windows.
//
// # Core Abstraction
//
// The package is built around two interfaces:
//
//	type Wrapper interface {
//		Extend(other Wrapper)
//		PreSpawn(cmd *exec.Cmd, core *CommandWrap) error
//		PostSpawn(cmd *exec.Cmd, core *CommandWrap) error
//		WrapChild(inner ChildHandle, core *CommandWrap) (ChildHandle, error)
//	}
//
//	type ChildHandle interface {
//		Inner() ChildHandle
//		Wait() (*os.ProcessState, error)
//		// ... Kill, Signal, TryWait, WaitWithOutput, accessors
//	}
//
// A [*CommandWrap] owns an [*exec.Cmd] and an ordered set of [Wrapper]
// instances, each registered at most once per concrete type. [*CommandWrap.Spawn]
// runs every wrapper's PreSpawn hooks, starts the process once, runs every
// PostSpawn hook, then lets each wrapper decorate the raw [ChildHandle] in
// registration order. The result is a single handle whose Wait/Kill/Signal
// methods apply whatever containment the registered wrappers established.
//
// # Available Wrappers
//
//   - [ProcessGroupLeader], [ProcessGroupAttachTo]: place the child in a new
//     or existing Unix process group and reap the whole group on Wait.
//   - [NewProcessSession]: start the child as a session leader (implies a new
//     process group).
//   - [NewJobObject]: contain the child (and any descendants it spawns) in a
//     Windows Job Object, killable as a unit.
//   - [NewCreationFlags], [NewKillOnDrop], [NewResetSigmask]: minimal shims
//     that other wrappers query via [*CommandWrap.GetWrap] / [*CommandWrap.HasWrap].
//
// # Concurrency
//
// The root package is entirely synchronous: every [ChildHandle] method blocks
// the calling goroutine until it completes. A [ChildHandle] is owned by one
// goroutine at a time and is not safe for concurrent use. The
// github.com/bassosimone/procwrap/procasync subpackage offers a thin
// decorator that moves Wait/Kill/WaitWithOutput onto background goroutines
// and exposes the result as a [procasync.Future], for callers who need to
// await several children concurrently without hand-rolling goroutine
// bookkeeping.
//
// # Observability
//
// [ProcessGroup], [ProcessSession], and [JobObject] each accept a [*Config]
// via their WithConfig method, carrying an [SLogger] for structured
// lifecycle logging (spawn, signal, reap/completion-port attempts) and an
// [ErrClassifier] for turning a reap or signal error into a short label
// (e.g. "ESRCH") suitable for metrics. Both default to no-ops; set the
// ErrClassifier to [ErrClassifierFunc](errclass.New), using
// github.com/bassosimone/procwrap/errclass, to get Unix/Windows errno
// classification.
//
// # Error Handling
//
// Spawn failures and hook failures are returned verbatim or wrapped with the
// failing phase's name; callers use [errors.Is] / [errors.As] to inspect the
// cause. A small set of conditions that indicate a programming error rather
// than a runtime failure (a process ID that does not fit in an int32, an
// impossible downcast) panic instead of returning an error, matching the
// severity the standard library itself assigns to similar invariant
// violations (for example, a nil pointer dereference).
//
// # Design Boundaries
//
// This package does not allocate a PTY, does not multiplex I/O beyond
// concurrently draining stdout and stderr in [ChildHandle.WaitWithOutput],
// does not supervise or restart processes, and does not manage cgroups or
// resource limits beyond Windows' kill-on-job-close semantics. Build a
// supervisor on top of this package rather than inside it.
package procwrap
