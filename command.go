// SPDX-License-Identifier: GPL-3.0-or-later

package procwrap

import (
	"fmt"
	"io"
	"os/exec"
	"reflect"
)

// registryEntry is one slot of a [*CommandWrap]'s wrapper registry.
//
// Go has no ordered, type-keyed map in the standard library or in any
// package this corpus depends on, so the registry is a slice (preserving
// insertion order) plus an index from [reflect.Type] to slice position
// (preserving type-keyed lookup and uniqueness) — the same shape as an
// IndexMap<TypeId, Box<dyn Wrapper>>, built from the two ordered-container
// primitives Go actually offers.
type registryEntry struct {
	typ     reflect.Type
	wrapper Wrapper
}

// CommandWrap wraps an [*exec.Cmd] together with an ordered set of
// [Wrapper] instances that decorate its spawn pipeline.
//
// A CommandWrap is not safe for concurrent use. It is mutable until
// [*CommandWrap.Spawn] starts the process; once the process has started the
// underlying [*exec.Cmd] has been consumed and [*CommandWrap.IntoCommand]
// panics.
type CommandWrap struct {
	cmd      *exec.Cmd
	registry []registryEntry
	index    map[reflect.Type]int
	spawned  bool

	stdinPipe  io.WriteCloser
	stdoutPipe io.ReadCloser
	stderrPipe io.ReadCloser
}

// NewCommandWrap creates a [*CommandWrap] for program, applying init (if
// non-nil) to the underlying [*exec.Cmd] before any wrapper is registered.
//
// init is the hook for configuring Args, Env, Dir, Stdin/Stdout/Stderr, and
// any other [*exec.Cmd] field before wrappers see the command.
func NewCommandWrap(program string, init func(*exec.Cmd)) *CommandWrap {
	cmd := exec.Command(program)
	if init != nil {
		init(cmd)
	}
	return FromCommand(cmd)
}

// FromCommand adopts an already-configured [*exec.Cmd] into a new
// [*CommandWrap] with an empty wrapper registry.
func FromCommand(cmd *exec.Cmd) *CommandWrap {
	return &CommandWrap{
		cmd:   cmd,
		index: make(map[reflect.Type]int),
	}
}

// Command returns the underlying [*exec.Cmd] for read access or further
// configuration. Do not call Start on it directly; use [*CommandWrap.Spawn].
func (c *CommandWrap) Command() *exec.Cmd {
	return c.cmd
}

// IntoCommand returns the underlying [*exec.Cmd], relinquishing this
// CommandWrap's registry along with it. It panics if Spawn has already
// consumed the command.
func (c *CommandWrap) IntoCommand() *exec.Cmd {
	if c.spawned {
		panic("procwrap: IntoCommand called after Spawn")
	}
	return c.cmd
}

// PipeStdin requests a stdin pipe, exposed on the resulting [ChildHandle]
// via [ChildHandle.Stdin]. Call before [*CommandWrap.Spawn].
//
// exec.Cmd.StdinPipe sets cmd.Stdin to the pipe's read end internally and
// returns the write end the caller writes to; that write end is what this
// package surfaces through [ChildHandle.Stdin], so it is captured here
// rather than re-derived from cmd.Stdin after the fact.
func (c *CommandWrap) PipeStdin() (io.WriteCloser, error) {
	pipe, err := c.cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	c.stdinPipe = pipe
	return pipe, nil
}

// PipeStdout requests a stdout pipe, exposed on the resulting [ChildHandle]
// via [ChildHandle.Stdout]. Call before [*CommandWrap.Spawn].
func (c *CommandWrap) PipeStdout() (io.ReadCloser, error) {
	pipe, err := c.cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	c.stdoutPipe = pipe
	return pipe, nil
}

// PipeStderr requests a stderr pipe, exposed on the resulting [ChildHandle]
// via [ChildHandle.Stderr]. Call before [*CommandWrap.Spawn].
func (c *CommandWrap) PipeStderr() (io.ReadCloser, error) {
	pipe, err := c.cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	c.stderrPipe = pipe
	return pipe, nil
}

// Wrap registers w, keyed by its concrete type. If a wrapper of the same
// type is already registered, the existing instance's Extend method is
// called with w and w itself is discarded; otherwise w occupies a new slot
// at the end of the registration order. Returns c for chaining.
func (c *CommandWrap) Wrap(w Wrapper) *CommandWrap {
	typ := reflect.TypeOf(w)
	if i, ok := c.index[typ]; ok {
		c.registry[i].wrapper.Extend(w)
		return c
	}
	c.index[typ] = len(c.registry)
	c.registry = append(c.registry, registryEntry{typ: typ, wrapper: w})
	return c
}

// HasWrap reports whether a wrapper of w's concrete type is registered.
func (c *CommandWrap) HasWrap(w Wrapper) bool {
	_, ok := c.index[reflect.TypeOf(w)]
	return ok
}

// GetWrap looks up the registered wrapper of out's pointee type, assigning
// it into *out and reporting true on success. Every wrapper constructor in
// this package returns a pointer type (e.g. *CreationFlags), which is also
// what Wrap keys the registry by; GetWrap's out parameter must therefore be
// a pointer to that same pointer type so its Elem() matches the registry
// key directly. This is the Go substitute for a TypeId-keyed downcast:
//
//	var flags *CreationFlags
//	if core.GetWrap(&flags) {
//		use(flags.Flags)
//	}
func (c *CommandWrap) GetWrap(out any) bool {
	typ := reflect.TypeOf(out)
	if typ.Kind() != reflect.Ptr {
		panic("procwrap: GetWrap requires a pointer to a wrapper pointer variable")
	}
	elemTyp := typ.Elem()
	i, ok := c.index[elemTyp]
	if !ok {
		return false
	}
	reflect.ValueOf(out).Elem().Set(reflect.ValueOf(c.registry[i].wrapper))
	return true
}

// Spawn runs the full spawn pipeline: every registered wrapper's PreSpawn
// hook in order, the OS process start, every PostSpawn hook in order, and
// finally every WrapChild hook in order, starting from the raw child handle.
//
// On a PreSpawn hook failure or a failed process start, the underlying
// [*exec.Cmd] and registry remain available for reuse via
// [*CommandWrap.Command] / [*CommandWrap.IntoCommand]; Spawn has not
// consumed them. Once the process has started, the CommandWrap is
// considered spawned even if a later PostSpawn or WrapChild hook fails:
// [*CommandWrap.IntoCommand] then panics and a further Spawn returns an
// error.
func (c *CommandWrap) Spawn() (ChildHandle, error) {
	if c.spawned {
		return nil, fmt.Errorf("procwrap: Spawn called twice on the same CommandWrap")
	}

	for _, e := range c.registry {
		if err := e.wrapper.PreSpawn(c.cmd, c); err != nil {
			return nil, fmt.Errorf("procwrap: pre-spawn hook failed: %w", err)
		}
	}

	if err := c.cmd.Start(); err != nil {
		return nil, err
	}
	c.spawned = true

	for _, e := range c.registry {
		if err := e.wrapper.PostSpawn(c.cmd, c); err != nil {
			return nil, fmt.Errorf("procwrap: post-spawn hook failed: %w", err)
		}
	}

	var handle ChildHandle = newRawChild(c.cmd, c.stdinPipe, c.stdoutPipe, c.stderrPipe)
	for _, e := range c.registry {
		wrapped, err := e.wrapper.WrapChild(handle, c)
		if err != nil {
			return nil, fmt.Errorf("procwrap: wrap-child hook failed: %w", err)
		}
		handle = wrapped
	}
	return handle, nil
}
