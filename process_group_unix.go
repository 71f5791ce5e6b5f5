//go:build unix

// SPDX-License-Identifier: GPL-3.0-or-later

package procwrap

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// reapCapAttempts bounds the number of non-blocking grandchild reap
// attempts issued per TryWait/Wait call before falling back to blocking
// wait4 calls until the group has no waitable members left, so a flood of zombie grandchildren cannot turn a
// non-blocking call into an unbounded busy loop.
const reapCapAttempts = 10

// ProcessGroup places a spawned child into a Unix process group, either as
// the new group's leader or as a member of an existing group, and reaps the
// whole group (not just the direct child) on Wait.
//
// Use [ProcessGroupLeader] to start a new group or [ProcessGroupAttachTo] to
// join an existing one.
type ProcessGroup struct {
	BaseWrapper
	leader int // 0 = become the new group leader; >0 = join this group
	cfg    *Config
	spanID string
}

var _ Wrapper = (*ProcessGroup)(nil)

// ProcessGroupLeader returns a [*ProcessGroup] that makes the spawned
// process the leader of a brand-new process group.
func ProcessGroupLeader() *ProcessGroup {
	return &ProcessGroup{leader: 0, cfg: NewConfig()}
}

// ProcessGroupAttachTo returns a [*ProcessGroup] that places the spawned
// process into the existing group identified by pgid.
func ProcessGroupAttachTo(pgid int) *ProcessGroup {
	return &ProcessGroup{leader: pgid, cfg: NewConfig()}
}

// WithConfig overrides the [*Config] used for logging and error
// classification, replacing the discard-everything default [NewConfig]
// installs. Call before registering the wrapper with [*CommandWrap.Wrap].
//
//	core.Wrap(ProcessGroupLeader().WithConfig(cfg))
func (p *ProcessGroup) WithConfig(cfg *Config) *ProcessGroup {
	p.cfg = cfg
	return p
}

// PreSpawn implements [Wrapper].
//
// Go's [syscall.SysProcAttr] exposes process-group placement directly
// (Setpgid plus Pgid), unlike the crate this package's design is modeled
// on, which installs an unsafe pre-exec callback because Rust's
// std::process::Command has no first-class field for it on stable Rust.
func (p *ProcessGroup) PreSpawn(cmd *exec.Cmd, core *CommandWrap) error {
	if p.spanID == "" {
		p.spanID = NewSpanID()
	}
	attr := cmd.SysProcAttr
	if attr == nil {
		attr = &syscall.SysProcAttr{}
		cmd.SysProcAttr = attr
	}
	attr.Setpgid = true
	attr.Pgid = p.leader
	p.cfg.Logger.Debug("processGroupPreSpawn",
		slog.String("span", p.spanID),
		slog.Int("requestedPgid", p.leader))
	return nil
}

// WrapChild implements [Wrapper].
func (p *ProcessGroup) WrapChild(inner ChildHandle, core *CommandWrap) (ChildHandle, error) {
	pgid := p.leader
	if pgid == 0 {
		pid := inner.ID()
		if pid > math.MaxInt32 {
			panic(fmt.Sprintf("procwrap: PID %d overflows int32", pid))
		}
		pgid = int(pid)
	}
	p.cfg.Logger.Info("processGroupAttached",
		slog.String("span", p.spanID),
		slog.Int("pgid", pgid),
		slog.Uint64("pid", uint64(inner.ID())))
	return &ProcessGroupChild{
		embeddedChild: embeddedChild{inner: inner},
		pgid:          pgid,
		cfg:           p.cfg,
		spanID:        p.spanID,
	}, nil
}

// ProcessGroupChild is the [ChildHandle] produced by [*ProcessGroup] (and,
// with the same pgid-equals-child-pid convention, by [*ProcessSession]).
// Wait and TryWait reap the entire process group, not just the direct
// child, so orphaned grandchildren that re-parent to init do not accumulate
// as zombies under the caller's process.
type ProcessGroupChild struct {
	embeddedChild
	exit   exitMemo
	pgid   int
	cfg    *Config
	spanID string
}

var (
	_ ChildHandle  = (*ProcessGroupChild)(nil)
	_ UnixSignaler = (*ProcessGroupChild)(nil)
)

// PGID returns the Unix process group ID this handle reaps and signals.
func (c *ProcessGroupChild) PGID() int { return c.pgid }

// StartKill implements [ChildHandle] by signaling the entire group.
//
// Sending to -pgid is POSIX killpg semantics; golang.org/x/sys/unix has no
// separate killpg binding, so, like the rest of this corpus (the process
// managers in zmux-server, provisr, quine, teleport, and the reaper in
// elastic-cloud-on-k8s all do the same thing), this calls unix.Kill with a
// negated pgid directly.
func (c *ProcessGroupChild) StartKill() error {
	return c.Signal(unix.SIGKILL)
}

// Kill implements [ChildHandle].
func (c *ProcessGroupChild) Kill() error {
	if err := c.StartKill(); err != nil {
		return err
	}
	_, err := c.Wait()
	return err
}

// Signal implements [UnixSignaler] by delivering sig to the whole group.
func (c *ProcessGroupChild) Signal(sig Signal) error {
	err := unix.Kill(-c.pgid, sig)
	c.cfg.Logger.Info("processGroupSignal",
		slog.String("span", c.spanID),
		slog.Int("pgid", c.pgid),
		slog.String("signal", sig.String()),
		slog.Any("err", err),
		slog.String("errClass", c.cfg.ErrClassifier.Classify(err)))
	if err != nil {
		return fmt.Errorf("procwrap: signal group %d: %w", c.pgid, err)
	}
	return nil
}

// reapStrayMembers discards any group member other than the direct child by
// repeatedly calling waitpid(-pgid, ...), following the same three-way
// branch as the wait loop this design is modeled on: a pid of 0 means
// nothing is ready yet, ECHILD means the group has no more waitable
// members, and any other pid is a zombie grandchild to discard before
// looping again. Both [*ProcessGroupChild.Wait] and
// [*ProcessGroupChild.TryWait] only call this after inner has already
// reported the direct child's exit, so the direct child's own pid has
// already been reaped through inner by the time this runs and can never
// show up in this loop; calling it any earlier would race inner's own
// reap of that same pid and leave one of the two calls observing ECHILD.
func (c *ProcessGroupChild) reapStrayMembers(blocking bool) error {
	flag := unix.WNOHANG
	if blocking {
		flag = 0
	}
	for attempt := 0; ; attempt++ {
		if !blocking && attempt >= reapCapAttempts {
			return c.reapStrayMembers(true)
		}
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-c.pgid, &ws, flag, nil)
		c.cfg.Logger.Debug("processGroupReapAttempt",
			slog.String("span", c.spanID),
			slog.Int("pgid", c.pgid),
			slog.Bool("blocking", blocking),
			slog.Int("reapedPid", pid),
			slog.String("errClass", c.cfg.ErrClassifier.Classify(err)))
		switch {
		case err == unix.ECHILD:
			return nil
		case err != nil:
			return fmt.Errorf("procwrap: reap group %d: %w", c.pgid, err)
		case pid == 0:
			return nil
		default:
			continue
		}
	}
}

// TryWait implements [ChildHandle].
//
// A signal-0 liveness probe cannot distinguish a zombie direct child (one
// that has exited but not yet been reaped) from a running one: both answer
// kill(pid, 0) with success, since the zombie still occupies its pid. So
// this defers entirely to inner.TryWait, which resolves that ambiguity by
// watching for its own background reap to complete (see rawChild in
// child.go) rather than probing from the outside. Only once inner reports
// an exit does this method reap the rest of the group; reaping strays
// before that point could race inner's own reap of the direct child's pid
// if that pid also happens to be the pgid leader.
func (c *ProcessGroupChild) TryWait() (*os.ProcessState, error) {
	if c.exit.done {
		return c.exit.state, nil
	}
	state, err := c.inner.TryWait()
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}
	c.exit.record(state)
	if err := c.reapStrayMembers(false); err != nil {
		return c.exit.state, err
	}
	return c.exit.state, nil
}

// Wait implements [ChildHandle]: it always waits for the direct child
// first, then reaps any remaining group members so they never linger as
// zombies.
func (c *ProcessGroupChild) Wait() (*os.ProcessState, error) {
	if c.exit.done {
		return c.exit.state, nil
	}
	state, err := c.inner.Wait()
	if err != nil {
		return nil, err
	}
	c.exit.record(state)
	err = c.reapStrayMembers(false)
	c.cfg.Logger.Info("processGroupWaitDone",
		slog.String("span", c.spanID),
		slog.Int("pgid", c.pgid),
		slog.String("state", state.String()),
		slog.Any("err", err),
		slog.String("errClass", c.cfg.ErrClassifier.Classify(err)))
	if err != nil {
		return c.exit.state, err
	}
	return c.exit.state, nil
}

// WaitWithOutput implements [ChildHandle].
func (c *ProcessGroupChild) WaitWithOutput() (*os.ProcessState, []byte, []byte, error) {
	return waitWithOutput(c)
}
