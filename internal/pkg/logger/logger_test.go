package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	prev := defaultLogger.level
	t.Cleanup(func() {
		SetOutput(nopWriter{})
		SetLevel(prev)
	})
	return &buf
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestLogWritesJSON(t *testing.T) {
	buf := capture(t)
	SetLevel(INFO)

	Info("cycle finished", "chunks", 3, "cycle_id", "abc")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "cycle finished", entry["msg"])
	assert.Equal(t, "3", entry["chunks"])
	assert.Equal(t, "abc", entry["cycle_id"])
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	SetLevel(WARN)

	Info("dropped")
	Debug("dropped")
	assert.Zero(t, buf.Len())

	Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestWithAddsFields(t *testing.T) {
	buf := capture(t)
	SetLevel(DEBUG)

	With("cycle_id", "c1").Debug("fetch", "chunk", "[00100-00950]")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "c1", entry["cycle_id"])
	assert.Equal(t, "[00100-00950]", entry["chunk"])
}

func TestRedaction(t *testing.T) {
	buf := capture(t)
	SetLevel(INFO)
	SetRedactPII(true)

	Info("sent", "recipient", "sms:9495550001", "email", "student@uci.edu")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sms:***0001", entry["recipient"])
	assert.Equal(t, "st***@uci.edu", entry["email"])
}

func TestRedactHelpers(t *testing.T) {
	assert.Equal(t, "***0001", RedactPhone("+1 949-555-0001"))
	assert.Equal(t, "***", RedactPhone("123"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("nope"))
	assert.Equal(t, "jo***@example.com", RedactAddress("john@example.com"))
	assert.Equal(t, "***0001", RedactAddress("555-0001"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}
