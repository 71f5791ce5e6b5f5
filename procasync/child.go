// SPDX-License-Identifier: GPL-3.0-or-later

package procasync

import (
	"os"

	"github.com/bassosimone/procwrap"
	"golang.org/x/sync/singleflight"
)

// Child decorates a [procwrap.ChildHandle] so Wait, Kill, and
// WaitWithOutput return a [*Future] instead of blocking the calling
// goroutine directly. StartKill, Signal, and ID are passed through
// unchanged and never suspend. Child has no TryWait method of its own; the
// wrapped handle's TryWait is reachable through [*Child.Handle].
type Child struct {
	handle procwrap.ChildHandle
	group  singleflight.Group
}

// Wrap adapts handle into a [*Child].
func Wrap(handle procwrap.ChildHandle) *Child {
	return &Child{handle: handle}
}

// Handle returns the underlying synchronous [procwrap.ChildHandle].
func (c *Child) Handle() procwrap.ChildHandle {
	return c.handle
}

// ID returns the process ID; never suspends.
func (c *Child) ID() uint32 {
	return c.handle.ID()
}

// StartKill requests termination without waiting; never suspends.
func (c *Child) StartKill() error {
	return c.handle.StartKill()
}

// Signal delivers sig if the underlying handle supports it; never
// suspends. It returns an error if the handle does not implement
// [procwrap.UnixSignaler] (for example, on Windows).
func (c *Child) Signal(sig procwrap.Signal) error {
	signaler, ok := c.handle.(procwrap.UnixSignaler)
	if !ok {
		return errUnsupportedSignal
	}
	return signaler.Signal(sig)
}

type waitResult struct {
	state *os.ProcessState
	err   error
}

// Wait returns a [*Future] that resolves once the process has exited.
// Concurrent or retried calls are de-duplicated via singleflight so a
// cancelled caller followed by a retry observes the same in-flight reap
// rather than racing a second wait4/GetQueuedCompletionStatus call against
// the same handle.
func (c *Child) Wait() *Future[*os.ProcessState] {
	return newFuture(func() (*os.ProcessState, error) {
		v, err, _ := c.group.Do("wait", func() (any, error) {
			state, err := c.handle.Wait()
			return waitResult{state, err}, err
		})
		if err != nil {
			return nil, err
		}
		return v.(waitResult).state, nil
	})
}

// Kill returns a [*Future] that resolves once StartKill has been issued and
// the process has been reaped.
func (c *Child) Kill() *Future[*os.ProcessState] {
	return newFuture(func() (*os.ProcessState, error) {
		if err := c.handle.StartKill(); err != nil {
			return nil, err
		}
		v, err, _ := c.group.Do("wait", func() (any, error) {
			state, err := c.handle.Wait()
			return waitResult{state, err}, err
		})
		if err != nil {
			return nil, err
		}
		return v.(waitResult).state, nil
	})
}

// Output bundles [procwrap.ChildHandle.WaitWithOutput]'s four return values
// into one struct so they can travel through a single [*Future].
type Output struct {
	State  *os.ProcessState
	Stdout []byte
	Stderr []byte
}

// WaitWithOutput returns a [*Future] that resolves with the captured
// stdout/stderr and final exit state.
func (c *Child) WaitWithOutput() *Future[Output] {
	return newFuture(func() (Output, error) {
		v, err, _ := c.group.Do("waitWithOutput", func() (any, error) {
			state, stdout, stderr, err := c.handle.WaitWithOutput()
			return Output{state, stdout, stderr}, err
		})
		if err != nil {
			return Output{}, err
		}
		return v.(Output), nil
	})
}

type unsupportedSignalError struct{}

func (unsupportedSignalError) Error() string {
	return "procasync: underlying handle does not support Signal"
}

var errUnsupportedSignal = unsupportedSignalError{}
