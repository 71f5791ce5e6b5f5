//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later

package procwrap

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// jobPortPollAttempts bounds the number of zero-timeout completion-port
// polls Wait issues before falling back to a single INFINITE-timeout wait
// (TryWait issues exactly one poll and never falls back), mirroring the non-blocking-then-blocking-fallback shape of the
// Unix process-group reap loop.
const jobPortPollAttempts = 10

// JobObject contains a spawned child (and any descendants it creates while
// still running) in a Windows Job Object, so the whole tree can be killed
// as a unit via [ChildHandle.StartKill].
type JobObject struct {
	BaseWrapper
	cfg    *Config
	spanID string
}

var _ Wrapper = (*JobObject)(nil)

// NewJobObject returns a [*JobObject] wrapper.
func NewJobObject() *JobObject {
	return &JobObject{cfg: NewConfig()}
}

// WithConfig overrides the [*Config] used for logging and error
// classification. Call before registering the wrapper with
// [*CommandWrap.Wrap].
func (j *JobObject) WithConfig(cfg *Config) *JobObject {
	j.cfg = cfg
	return j
}

// PreSpawn implements [Wrapper].
//
// The child is always started suspended so there is no window between
// process creation and job assignment in which it could spawn (and
// immediately lose track of) a grandchild. Any flags recorded by a
// [*CreationFlags] wrapper registered earlier are preserved; this wrapper
// only ORs in its own requirement.
func (j *JobObject) PreSpawn(cmd *exec.Cmd, core *CommandWrap) error {
	if j.spanID == "" {
		j.spanID = NewSpanID()
	}
	attr := cmd.SysProcAttr
	if attr == nil {
		attr = &syscall.SysProcAttr{}
		cmd.SysProcAttr = attr
	}
	attr.CreationFlags |= windows.CREATE_SUSPENDED
	j.cfg.Logger.Debug("jobObjectPreSpawn", slog.String("span", j.spanID))
	return nil
}

// WrapChild implements [Wrapper].
func (j *JobObject) WrapChild(inner ChildHandle, core *CommandWrap) (ChildHandle, error) {
	var kod *KillOnDrop
	killOnClose := core.GetWrap(&kod)

	job, port, err := createJobObjectWithPort(killOnClose)
	if err != nil {
		j.cfg.Logger.Info("jobObjectCreateFailed",
			slog.String("span", j.spanID),
			slog.Any("err", err),
			slog.String("errClass", j.cfg.ErrClassifier.Classify(err)))
		return nil, err
	}

	var flags *CreationFlags
	skipResume := core.GetWrap(&flags) && flags.Flags&windows.CREATE_SUSPENDED != 0

	if err := assignAndResume(job, inner.ID(), skipResume); err != nil {
		_ = windows.CloseHandle(port)
		_ = windows.CloseHandle(job)
		j.cfg.Logger.Info("jobObjectAssignFailed",
			slog.String("span", j.spanID),
			slog.Any("err", err),
			slog.String("errClass", j.cfg.ErrClassifier.Classify(err)))
		return nil, err
	}

	j.cfg.Logger.Info("jobObjectAttached",
		slog.String("span", j.spanID),
		slog.Uint64("pid", uint64(inner.ID())),
		slog.Bool("killOnClose", killOnClose),
		slog.Bool("resumed", !skipResume))
	return &JobObjectChild{
		embeddedChild: embeddedChild{inner: inner},
		job:           job,
		port:          port,
		cfg:           j.cfg,
		spanID:        j.spanID,
	}, nil
}

// JobObjectChild is the [ChildHandle] produced by [*JobObject]. StartKill
// terminates the whole job (every process it contains); Wait and TryWait
// observe job-exit notifications via the associated completion port in
// addition to the direct child's own exit.
type JobObjectChild struct {
	embeddedChild
	exit   exitMemo
	job    windows.Handle
	port   windows.Handle
	closed bool
	cfg    *Config
	spanID string
}

var _ ChildHandle = (*JobObjectChild)(nil)

// StartKill implements [ChildHandle] by terminating the entire job.
func (c *JobObjectChild) StartKill() error {
	err := windows.TerminateJobObject(c.job, 1)
	c.cfg.Logger.Info("jobObjectKill",
		slog.String("span", c.spanID),
		slog.Any("err", err),
		slog.String("errClass", c.cfg.ErrClassifier.Classify(err)))
	if err != nil {
		return fmt.Errorf("procwrap: TerminateJobObject: %w", err)
	}
	return nil
}

// Kill implements [ChildHandle].
func (c *JobObjectChild) Kill() error {
	if err := c.StartKill(); err != nil {
		return err
	}
	_, err := c.Wait()
	return err
}

// TryWait implements [ChildHandle] with a single zero-timeout completion
// port poll, falling back to the direct child's own TryWait if the job has
// not finished draining. Once the poll reports that the job has no active
// processes, the direct child's exit state is collected and memoized
// without any further completion-port wait, since that notification has
// already been consumed.
func (c *JobObjectChild) TryWait() (*os.ProcessState, error) {
	if c.exit.done {
		return c.exit.state, nil
	}
	done, err := waitOnJobPort(c.port, 0)
	if err != nil {
		return nil, err
	}
	if !done {
		return c.inner.TryWait()
	}
	state, err := c.inner.Wait()
	if err != nil {
		return nil, err
	}
	c.exit.record(state)
	return c.exit.state, nil
}

// Wait implements [ChildHandle]: it waits for the direct child first (the
// authoritative exit state), then drains the completion port with a bounded
// number of zero-timeout polls before falling back to a single
// INFINITE-timeout wait so the job's internal bookkeeping settles before
// Wait returns.
func (c *JobObjectChild) Wait() (*os.ProcessState, error) {
	if c.exit.done {
		return c.exit.state, nil
	}
	state, err := c.inner.Wait()
	if err != nil {
		return nil, err
	}
	c.exit.record(state)

	for attempt := 0; attempt < jobPortPollAttempts; attempt++ {
		done, err := waitOnJobPort(c.port, 0)
		c.cfg.Logger.Debug("jobObjectPortPoll",
			slog.String("span", c.spanID),
			slog.Int("attempt", attempt),
			slog.Bool("done", done),
			slog.String("errClass", c.cfg.ErrClassifier.Classify(err)))
		if err != nil {
			return c.exit.state, err
		}
		if done {
			c.logWaitDone(state, nil)
			return c.exit.state, nil
		}
	}
	_, err = waitOnJobPort(c.port, windows.INFINITE)
	c.logWaitDone(state, err)
	if err != nil {
		return c.exit.state, err
	}
	return c.exit.state, nil
}

func (c *JobObjectChild) logWaitDone(state *os.ProcessState, err error) {
	c.cfg.Logger.Info("jobObjectWaitDone",
		slog.String("span", c.spanID),
		slog.String("state", state.String()),
		slog.Any("err", err),
		slog.String("errClass", c.cfg.ErrClassifier.Classify(err)))
}

// WaitWithOutput implements [ChildHandle].
func (c *JobObjectChild) WaitWithOutput() (*os.ProcessState, []byte, []byte, error) {
	return waitWithOutput(c)
}

// IntoInner releases this layer's completion port and returns the
// underlying command, deliberately leaking the job handle: closing it here
// could trigger JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE and terminate the very
// process being handed back to the caller. Call [*JobObjectChild.Close]
// instead when the caller intends to fully release (and potentially kill)
// the job.
func (c *JobObjectChild) IntoInner() *exec.Cmd {
	if !c.closed {
		_ = windows.CloseHandle(c.port)
		c.closed = true
	}
	return c.inner.IntoInner()
}

// Close releases both the job and the completion port. If
// JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE was set (because a [*KillOnDrop]
// wrapper was registered), closing the job's last handle terminates every
// process it still contains.
func (c *JobObjectChild) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	portErr := windows.CloseHandle(c.port)
	jobErr := windows.CloseHandle(c.job)
	if portErr != nil {
		return portErr
	}
	return jobErr
}
