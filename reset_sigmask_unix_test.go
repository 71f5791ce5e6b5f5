//go:build unix

// SPDX-License-Identifier: GPL-3.0-or-later

package procwrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetSigmaskIsObservableMarker(t *testing.T) {
	core := NewCommandWrap("true", nil)
	assert.False(t, core.HasWrap(NewResetSigmask()))

	core.Wrap(NewResetSigmask())
	assert.True(t, core.HasWrap(NewResetSigmask()))

	child, err := core.Spawn()
	require.NoError(t, err)
	_, err = child.Wait()
	require.NoError(t, err)
}
