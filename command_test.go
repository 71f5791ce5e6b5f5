// SPDX-License-Identifier: GPL-3.0-or-later

package procwrap

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyWrapper counts how many times each hook runs and records every other
// spyWrapper merged into it via Extend, so tests can assert both ordering
// and collision behavior without a mock framework.
type spyWrapper struct {
	BaseWrapper
	name      string
	preSpawn  int
	postSpawn int
	wrapChild int
	extended  []string
	order     *[]string
}

func (s *spyWrapper) Extend(other Wrapper) {
	if o, ok := other.(*spyWrapper); ok {
		s.extended = append(s.extended, o.name)
	}
}

func (s *spyWrapper) PreSpawn(cmd *exec.Cmd, core *CommandWrap) error {
	s.preSpawn++
	*s.order = append(*s.order, "pre:"+s.name)
	return nil
}

func (s *spyWrapper) PostSpawn(cmd *exec.Cmd, core *CommandWrap) error {
	s.postSpawn++
	*s.order = append(*s.order, "post:"+s.name)
	return nil
}

func (s *spyWrapper) WrapChild(inner ChildHandle, core *CommandWrap) (ChildHandle, error) {
	s.wrapChild++
	*s.order = append(*s.order, "wrap:"+s.name)
	return inner, nil
}

func TestWrapCollisionCallsExtend(t *testing.T) {
	core := FromCommand(exec.Command("true"))
	var order []string
	a := &spyWrapper{name: "a", order: &order}
	b := &spyWrapper{name: "b", order: &order}

	core.Wrap(a).Wrap(b)

	require.Equal(t, 1, len(core.registry), "registering a second instance of the same type must not grow the registry")
	assert.Equal(t, []string{"b"}, a.extended)
	assert.Equal(t, 0, b.preSpawn, "the discarded instance must never run its own hooks")
}

func TestHasWrapGetWrapTypeKeyed(t *testing.T) {
	core := FromCommand(exec.Command("true"))
	var order []string
	w := &spyWrapper{name: "only", order: &order}
	core.Wrap(w)

	assert.True(t, core.HasWrap(&spyWrapper{order: &order}))

	var out *spyWrapper
	ok := core.GetWrap(&out)
	require.True(t, ok)
	assert.Equal(t, "only", out.name)

	assert.False(t, core.HasWrap(&KillOnDrop{}))
}

func TestFromCommandRoundTrip(t *testing.T) {
	cmd := exec.Command("echo", "hello", "world")
	cmd.Dir = "."
	cmd.Env = []string{"FOO=bar"}

	core := FromCommand(cmd)
	got := core.IntoCommand()

	assert.Same(t, cmd, got)
	assert.Equal(t, []string{"echo", "hello", "world"}, got.Args)
	assert.Equal(t, ".", got.Dir)
	assert.Equal(t, []string{"FOO=bar"}, got.Env)
}

func TestIntoCommandPanicsAfterSpawn(t *testing.T) {
	core := NewCommandWrap("true", nil)
	_, err := core.Spawn()
	require.NoError(t, err)
	_, _ = core.Command().Process.Wait()

	assert.Panics(t, func() {
		core.IntoCommand()
	})
}

func TestSpawnPipelineOrdering(t *testing.T) {
	var order []string
	a := &spyWrapper{name: "a", order: &order}
	b := &spyWrapper{name: "b", order: &order}

	core := NewCommandWrap("true", nil).Wrap(a).Wrap(b)
	child, err := core.Spawn()
	require.NoError(t, err)
	_, err = child.Wait()
	require.NoError(t, err)

	assert.Equal(t, 1, a.preSpawn)
	assert.Equal(t, 1, b.preSpawn)
	assert.Equal(t, []string{
		"pre:a", "pre:b",
		"post:a", "post:b",
		"wrap:a", "wrap:b",
	}, order, "hooks must run in registration order within each phase")
}

func TestSpawnNonexistentProgramThenRetry(t *testing.T) {
	core := NewCommandWrap("this-binary-should-not-exist-anywhere", nil)

	_, err := core.Spawn()
	require.Error(t, err)

	// The builder must still be usable after a failed spawn.
	cmd := core.IntoCommand()
	require.NotNil(t, cmd)

	core2 := NewCommandWrap("true", nil)
	child, err := core2.Spawn()
	require.NoError(t, err)
	_, err = child.Wait()
	require.NoError(t, err)
}
