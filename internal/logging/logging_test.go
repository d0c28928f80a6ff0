package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONTagsService(t *testing.T) {
	var buf bytes.Buffer
	New("footprint", &buf, true, slog.LevelInfo).Info("hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "footprint", rec["service"])
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}

func TestNewTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("footprint", &buf, false, slog.LevelWarn)
	logger.Info("quiet")
	logger.Warn("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
	assert.Contains(t, buf.String(), "service=footprint")
}

func TestEnv(t *testing.T) {
	t.Setenv("DF_JSON_LOG", "TRUE")
	t.Setenv("DF_LOG_LEVEL", "debug")
	assert.True(t, jsonFromEnv())
	assert.Equal(t, slog.LevelDebug, levelFromEnv())

	t.Setenv("DF_JSON_LOG", "")
	t.Setenv("DF_LOG_LEVEL", "bogus")
	assert.False(t, jsonFromEnv())
	assert.Equal(t, slog.LevelInfo, levelFromEnv())
}
