package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlogLogger_JSONOutput(t *testing.T) {
	require := require.New(t)
	t.Setenv("ENV", "production")

	var buf bytes.Buffer
	l := NewSlogWriter(&buf, InfoLevel, false)

	l.Info("handshake completed", "client_node", 5, "server_node", 7)

	var rec map[string]any
	require.NoError(json.Unmarshal(buf.Bytes(), &rec))
	require.Equal("handshake completed", rec["msg"])
	require.Equal("INFO", rec["level"])
	require.Contains(rec, "ts")
	require.NotContains(rec, "time")
	require.InDelta(5, rec["client_node"], 0)
}

func TestSlogLogger_Level(t *testing.T) {
	require := require.New(t)
	t.Setenv("ENV", "production")

	var buf bytes.Buffer
	l := NewSlogWriter(&buf, WarnLevel, false)
	require.Equal(WarnLevel, l.Level())

	l.Info("dropped")
	l.Debug("dropped")
	require.Zero(buf.Len())

	l.SetLevel(DebugLevel)
	require.Equal(DebugLevel, l.Level())
	l.Debug("frame sent")
	require.Contains(buf.String(), "frame sent")
}

func TestSlogLogger_WithSharesLevel(t *testing.T) {
	require := require.New(t)
	t.Setenv("ENV", "production")

	var buf bytes.Buffer
	parent := NewSlogWriter(&buf, ErrorLevel, false)
	child := parent.With("session", "abc")

	child.Info("dropped")
	require.Zero(buf.Len())

	parent.SetLevel(InfoLevel)
	child.Info("connected")

	out := buf.String()
	require.Contains(out, `"session":"abc"`)
	require.Equal(1, strings.Count(out, "\n"))
}

func TestSlogLogger_ConsoleHandler(t *testing.T) {
	require := require.New(t)
	t.Setenv("ENV", "development")

	var buf bytes.Buffer
	l := NewSlogWriter(&buf, InfoLevel, false)
	l.Warn("lenient magic accepted", "magic", "FONS")

	require.Contains(buf.String(), "lenient magic accepted")
	require.Contains(buf.String(), "FONS")
}

func TestParseLevel(t *testing.T) {
	require := require.New(t)

	for name, want := range map[string]Level{
		"debug": DebugLevel,
		"INFO":  InfoLevel,
		"":      InfoLevel,
		"warn":  WarnLevel,
		"Error": ErrorLevel,
	} {
		got, err := ParseLevel(name)
		require.NoError(err, name)
		require.Equal(want, got, name)
	}

	_, err := ParseLevel("fatal")
	require.EqualError(err, `unknown log level "fatal"`)
}
