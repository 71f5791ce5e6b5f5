//go:build unix

// SPDX-License-Identifier: GPL-3.0-or-later

package procwrap

import (
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"syscall"
)

// ProcessSession starts the spawned child as the leader of a new Unix
// session (via setsid), which also makes it the leader of a new process
// group. It produces the same [*ProcessGroupChild] handle as [*ProcessGroup]
// does, with pgid equal to the child's own pid.
//
// Registering both [*ProcessSession] and [*ProcessGroup] on the same
// [*CommandWrap] is redundant, not forbidden: each independently wraps the
// handle it receives, so the result is simply a doubly group-aware handle.
type ProcessSession struct {
	BaseWrapper
	cfg    *Config
	spanID string
}

var _ Wrapper = (*ProcessSession)(nil)

// NewProcessSession returns a [*ProcessSession] wrapper.
func NewProcessSession() *ProcessSession {
	return &ProcessSession{cfg: NewConfig()}
}

// WithConfig overrides the [*Config] used for logging and error
// classification. Call before registering the wrapper with
// [*CommandWrap.Wrap].
func (s *ProcessSession) WithConfig(cfg *Config) *ProcessSession {
	s.cfg = cfg
	return s
}

// PreSpawn implements [Wrapper].
//
// As with [*ProcessGroup], Go's [syscall.SysProcAttr] exposes session
// creation directly (Setsid) where the crate this package is modeled on
// needs an unsafe pre-exec callback to call setsid(2).
func (s *ProcessSession) PreSpawn(cmd *exec.Cmd, core *CommandWrap) error {
	if s.spanID == "" {
		s.spanID = NewSpanID()
	}
	attr := cmd.SysProcAttr
	if attr == nil {
		attr = &syscall.SysProcAttr{}
		cmd.SysProcAttr = attr
	}
	attr.Setsid = true
	s.cfg.Logger.Debug("processSessionPreSpawn", slog.String("span", s.spanID))
	return nil
}

// WrapChild implements [Wrapper].
func (s *ProcessSession) WrapChild(inner ChildHandle, core *CommandWrap) (ChildHandle, error) {
	pid := inner.ID()
	if pid > math.MaxInt32 {
		panic(fmt.Sprintf("procwrap: PID %d overflows int32", pid))
	}
	s.cfg.Logger.Info("processSessionAttached",
		slog.String("span", s.spanID),
		slog.Uint64("pid", uint64(pid)))
	return &ProcessGroupChild{
		embeddedChild: embeddedChild{inner: inner},
		pgid:          int(pid),
		cfg:           s.cfg,
		spanID:        s.spanID,
	}, nil
}
