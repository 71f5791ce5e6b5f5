// SPDX-License-Identifier: GPL-3.0-or-later

package procwrap

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg.Logger)
	require.NotNil(t, cfg.ErrClassifier)
	assert.Equal(t, "", cfg.ErrClassifier.Classify(assert.AnError))
}

func TestDefaultSLoggerDiscardsSilently(t *testing.T) {
	logger := DefaultSLogger()
	assert.NotPanics(t, func() {
		logger.Debug("probe", "k", "v")
		logger.Info("probe", "k", "v")
	})
}

var uuidV7Pattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestNewSpanIDIsUUIDv7(t *testing.T) {
	id := NewSpanID()
	assert.Regexp(t, uuidV7Pattern, id)
	assert.NotEqual(t, id, NewSpanID())
}
