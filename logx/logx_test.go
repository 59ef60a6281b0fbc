package logx

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelsAndCategories(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetLevel(LevelInfo)
	})

	SetLevel(LevelWarn)
	Info("CHAIN", "hidden")
	Debug("CHAIN", "hidden")
	Warn("CHAIN", "shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN][CHAIN]")

	buf.Reset()
	SetLevel(LevelDebug)
	Debug("MNLIST", "now visible")
	assert.Contains(t, buf.String(), "[DEBUG][MNLIST]")
	assert.Contains(t, buf.String(), "now visible")
}

func TestErrorf(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	inner := errors.New("disk full")
	err := Errorf("save snapshot: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, buf.String(), "save snapshot: disk full")
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
