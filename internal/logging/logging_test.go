package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuildsConsoleLogger(t *testing.T) {
	log, err := New("debug", "console")
	require.NoError(t, err)
	require.NotNil(t, log)
	log.Infow("test message", "key", "value")
}

func TestNewBuildsJSONLogger(t *testing.T) {
	log, err := New("info", "json")
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New("not-a-level", "console")
	assert.Error(t, err)
}
