// SPDX-License-Identifier: GPL-3.0-or-later

package procwrap

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDStableAcrossWraps(t *testing.T) {
	var order []string
	core := NewCommandWrap("true", nil).Wrap(&spyWrapper{name: "a", order: &order})
	child, err := core.Spawn()
	require.NoError(t, err)
	defer func() { _, _ = child.Wait() }()

	raw, ok := AsRawChild(child)
	require.True(t, ok)
	assert.Equal(t, raw.ID(), child.ID(), "ID must be identical at every wrapping layer")
}

func TestWaitIdempotent(t *testing.T) {
	core := NewCommandWrap("true", nil)
	child, err := core.Spawn()
	require.NoError(t, err)

	state1, err1 := child.Wait()
	require.NoError(t, err1)
	require.NotNil(t, state1)

	state2, err2 := child.Wait()
	require.NoError(t, err2)
	assert.Same(t, state1, state2, "a second Wait must return the memoized state without touching the OS again")
}

func TestKillThenWaitIdempotent(t *testing.T) {
	core := NewCommandWrap("sleep", func(c *exec.Cmd) {
		c.Args = append(c.Args, "5")
	})
	child, err := core.Spawn()
	require.NoError(t, err)

	require.NoError(t, child.Kill())

	// A Wait on the handle Kill already reaped must not panic or re-touch
	// the OS: the memoized state satisfies it.
	state, err := child.Wait()
	require.NoError(t, err)
	assert.NotNil(t, state)
}

func TestTryWaitConvergesAfterExit(t *testing.T) {
	core := NewCommandWrap("true", nil)
	child, err := core.Spawn()
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	var got *os.ProcessState
	for time.Now().Before(deadline) {
		got, err = child.TryWait()
		require.NoError(t, err)
		if got != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NotNil(t, got, "TryWait must eventually converge to Some(state) without an intervening Wait call")
	assert.True(t, got.Success())

	// Once converged, TryWait keeps returning the same memoized state, and
	// so does a subsequent Wait.
	again, err := child.TryWait()
	require.NoError(t, err)
	assert.Same(t, got, again)

	waited, err := child.Wait()
	require.NoError(t, err)
	assert.Same(t, got, waited)
}

func TestWaitWithOutputCapturesStdout(t *testing.T) {
	core := NewCommandWrap("echo", func(c *exec.Cmd) {
		c.Args = append(c.Args, "hello")
	})
	_, err := core.PipeStdout()
	require.NoError(t, err)

	child, err := core.Spawn()
	require.NoError(t, err)

	state, stdout, _, err := child.WaitWithOutput()
	require.NoError(t, err)
	assert.True(t, state.Success())
	assert.Equal(t, "hello\n", string(stdout))
}
