package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(buf *bytes.Buffer) *Logger {
	return &Logger{Logger: zerolog.New(buf)}
}

func logEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestWithComponentAndChannel(t *testing.T) {
	var buf bytes.Buffer
	log := captureLogger(&buf)

	log.WithComponent("notify").WithChannel("dingtalk").Info().Msg("delivered")

	entry := logEntry(t, &buf)
	assert.Equal(t, "notify", entry["component"])
	assert.Equal(t, "dingtalk", entry["channel_type"])
	assert.Equal(t, "delivered", entry["message"])
}

func TestWithTargetAndTweetID(t *testing.T) {
	var buf bytes.Buffer
	log := captureLogger(&buf)

	log.WithTarget("alice", "Alice").WithTweetID("1845316574836912129").Error().Msg("send failed")

	entry := logEntry(t, &buf)
	assert.Equal(t, "alice", entry["x_handle"])
	assert.Equal(t, "Alice", entry["target_name"])
	assert.Equal(t, "1845316574836912129", entry["tweet_id"])
}

func TestNewParsesLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, New(Config{Level: "warn"}).GetLevel())
	assert.Equal(t, zerolog.Disabled, New(Config{Level: "disabled"}).GetLevel())

	// Unknown levels fall back to info
	assert.Equal(t, zerolog.InfoLevel, New(Config{Level: "bogus"}).GetLevel())
}
