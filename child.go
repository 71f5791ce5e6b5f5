// SPDX-License-Identifier: GPL-3.0-or-later

package procwrap

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// Signal aliases [syscall.Signal], the type both Unix and Windows builds of
// the standard library define for process signaling.
type Signal = syscall.Signal

// ChildHandle is the uniform interface every spawned process exposes,
// whether raw or decorated by one or more [Wrapper] instances.
//
// Wait and TryWait are idempotent: once a handle has observed process exit,
// later calls return the same [*os.ProcessState] without touching the OS
// again. A ChildHandle is owned by a single goroutine at a time and is not
// safe for concurrent use; see the procasync subpackage for a decorator that
// relaxes this for callers awaiting several children concurrently.
type ChildHandle interface {
	// Inner returns the handle this one directly wraps, or nil if this is
	// the raw, undecorated handle.
	Inner() ChildHandle

	// IntoInner returns the underlying [*exec.Cmd], releasing any
	// resources this layer owns other than the process itself. Wrappers
	// that own OS resources beyond the process (for example a Windows Job
	// Object's completion port) must document precisely what IntoInner
	// releases and what it deliberately leaks.
	IntoInner() *exec.Cmd

	// Stdin returns the process's stdin pipe, or nil if none was
	// requested via [*CommandWrap.PipeStdin].
	Stdin() io.WriteCloser

	// Stdout returns the process's stdout pipe, or nil if none was
	// requested via [*CommandWrap.PipeStdout].
	Stdout() io.ReadCloser

	// Stderr returns the process's stderr pipe, or nil if none was
	// requested via [*CommandWrap.PipeStderr].
	Stderr() io.ReadCloser

	// ID returns the process ID of the raw child, stable no matter how
	// many wrapper layers decorate the handle.
	ID() uint32

	// StartKill asks the process (and, for group/job-aware handles,
	// everything it contains) to terminate, without waiting for it to do
	// so. Call Wait afterward to reap it.
	StartKill() error

	// Kill is StartKill followed by Wait, matching the "kill means kill
	// and collect" idiom of [os/exec.Cmd.Process.Kill] plus Wait.
	Kill() error

	// TryWait performs a single non-blocking check for process exit. It
	// returns (nil, nil) if the process is still running.
	TryWait() (*os.ProcessState, error)

	// Wait blocks until the process has exited, reaping it and any
	// contained descendants this handle is responsible for.
	Wait() (*os.ProcessState, error)

	// WaitWithOutput concurrently drains stdout and stderr to completion,
	// closes stdin first if it is open, then waits for exit. It returns
	// the captured stdout and stderr bytes alongside the exit state.
	WaitWithOutput() (*os.ProcessState, []byte, []byte, error)
}

// UnixSignaler is implemented by [ChildHandle] values that can deliver an
// arbitrary Unix signal, as opposed to only [ChildHandle.StartKill]'s
// SIGKILL. Group- and session-aware handles deliver the signal to the whole
// group.
type UnixSignaler interface {
	Signal(sig Signal) error
}

// embeddedChild gives decorator [ChildHandle] implementations no-op
// passthrough defaults for the accessors that group/job containment never
// changes, so each wrapper's child type only needs to override the methods
// its containment semantics actually affect.
type embeddedChild struct {
	inner ChildHandle
}

func (e *embeddedChild) Inner() ChildHandle            { return e.inner }
func (e *embeddedChild) IntoInner() *exec.Cmd          { return e.inner.IntoInner() }
func (e *embeddedChild) Stdin() io.WriteCloser         { return e.inner.Stdin() }
func (e *embeddedChild) Stdout() io.ReadCloser         { return e.inner.Stdout() }
func (e *embeddedChild) Stderr() io.ReadCloser         { return e.inner.Stderr() }
func (e *embeddedChild) ID() uint32                    { return e.inner.ID() }

// AsRawChild walks h's Inner() chain until it finds the raw, undecorated
// child handle, reporting false if h is nil. This is the Go substitute for
// repeatedly downcasting a trait object to a concrete type: Go has no
// TypeId-based downcast, so the search uses a plain type assertion at each
// step.
func AsRawChild(h ChildHandle) (raw ChildHandle, ok bool) {
	for cur := h; cur != nil; cur = cur.Inner() {
		if _, isRaw := cur.(*rawChild); isRaw {
			return cur, true
		}
	}
	return nil, false
}

// exitMemo memoizes the terminal exit state of a [ChildHandle] layer so that
// repeated Wait/TryWait calls never re-issue OS calls once the process has
// exited. It is intentionally unsynchronized: a ChildHandle is documented as
// owned by one goroutine at a time. The procasync decorator adds no mutex;
// it collapses concurrent Wait calls on one handle into a single call via
// singleflight.
type exitMemo struct {
	done  bool
	state *os.ProcessState
}

func (m *exitMemo) record(state *os.ProcessState) {
	m.done = true
	m.state = state
}

// rawChild is the undecorated [ChildHandle] wrapping an [*exec.Cmd]
// directly. It is the innermost layer of every spawn pipeline.
//
// os/exec exposes no non-blocking wait, and a Unix signal-0 liveness probe
// cannot tell a zombie (exited, not yet reaped) from a live process: both
// answer kill(pid, 0) with success, since the zombie still occupies its
// PID until something reaps it. So rather than polling process state from
// the outside, rawChild starts exactly one background goroutine that calls
// the blocking [*os.Process.Wait] and closes waitDone when it returns;
// TryWait becomes a non-blocking select on that channel instead of a
// syscall probe, and Wait blocks on the same channel. Closing a channel
// happens-before any receive that observes it closed, so exit/waitErr need
// no separate lock despite being written by a different goroutine than the
// one that reads them.
type rawChild struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    io.ReadCloser
	stderr    io.ReadCloser
	exit      exitMemo
	waitErr   error
	waitStart sync.Once
	waitDone  chan struct{}
}

var _ ChildHandle = (*rawChild)(nil)

// newRawChild builds the innermost [ChildHandle]. stdin/stdout/stderr are
// the pipe ends [*CommandWrap.PipeStdin]/[*CommandWrap.PipeStdout]/
// [*CommandWrap.PipeStderr] returned to the caller, or nil if piping for
// that stream was never requested; exec.Cmd itself only exposes the far end
// of each pipe (the end it forwards to the child), so the near end has to
// be threaded through explicitly rather than recovered from the [*exec.Cmd].
func newRawChild(cmd *exec.Cmd, stdin io.WriteCloser, stdout, stderr io.ReadCloser) *rawChild {
	return &rawChild{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr, waitDone: make(chan struct{})}
}

// startWaiting launches, at most once, the goroutine that issues the
// single authoritative [*os.Process.Wait] call for this child. Wait and
// TryWait both call this before consulting waitDone, so whichever is
// called first is the one that starts the reap.
func (c *rawChild) startWaiting() {
	c.waitStart.Do(func() {
		go func() {
			state, err := c.cmd.Process.Wait()
			c.exit.record(state)
			c.waitErr = err
			close(c.waitDone)
		}()
	})
}

func (c *rawChild) Inner() ChildHandle   { return nil }
func (c *rawChild) IntoInner() *exec.Cmd { return c.cmd }
func (c *rawChild) Stdin() io.WriteCloser { return c.stdin }
func (c *rawChild) Stdout() io.ReadCloser { return c.stdout }
func (c *rawChild) Stderr() io.ReadCloser { return c.stderr }

func (c *rawChild) ID() uint32 {
	pid := c.cmd.Process.Pid
	if pid < 0 {
		panic(fmt.Sprintf("procwrap: negative PID %d", pid))
	}
	return uint32(pid)
}

func (c *rawChild) StartKill() error {
	return c.cmd.Process.Kill()
}

func (c *rawChild) Kill() error {
	if err := c.StartKill(); err != nil {
		return err
	}
	_, err := c.Wait()
	return err
}

// TryWait implements [ChildHandle] with a non-blocking select on waitDone
// rather than a liveness probe: a zombie child still answers a signal-0 (or
// OpenProcess/WaitForSingleObject) probe as if it were running, so only the
// actual reap — running concurrently in the background — can tell TryWait
// that exit has happened.
func (c *rawChild) TryWait() (*os.ProcessState, error) {
	c.startWaiting()
	select {
	case <-c.waitDone:
		return c.exit.state, c.waitErr
	default:
		return nil, nil
	}
}

func (c *rawChild) Wait() (*os.ProcessState, error) {
	c.startWaiting()
	<-c.waitDone
	return c.exit.state, c.waitErr
}

func (c *rawChild) WaitWithOutput() (*os.ProcessState, []byte, []byte, error) {
	return waitWithOutput(c)
}

// waitWithOutput implements [ChildHandle.WaitWithOutput] for any handle: it
// closes stdin (if open), concurrently drains stdout and stderr with one
// goroutine each, and calls Wait only after both drains finish. Order
// between the two streams is unspecified; order within each stream is
// preserved by reading each into its own buffer independently. This is the
// idiomatic Go answer to concurrently draining two pipes without risking a
// full pipe buffer deadlocking Wait, not a stand-in for a missing library:
// goroutines are the mechanism the ecosystem reaches for here, the same way
// os/exec's own package documentation recommends for Cmd.StdoutPipe/StderrPipe.
func waitWithOutput(h ChildHandle) (*os.ProcessState, []byte, []byte, error) {
	if in := h.Stdin(); in != nil {
		_ = in.Close()
	}

	var wg sync.WaitGroup
	var stdout, stderr []byte
	var stdoutErr, stderrErr error

	if out := h.Stdout(); out != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stdout, stdoutErr = io.ReadAll(out)
		}()
	}
	if errR := h.Stderr(); errR != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stderr, stderrErr = io.ReadAll(errR)
		}()
	}
	wg.Wait()

	state, err := h.Wait()
	if err == nil {
		err = stdoutErr
	}
	if err == nil {
		err = stderrErr
	}
	return state, stdout, stderr, err
}
