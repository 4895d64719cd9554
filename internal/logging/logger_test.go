package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter("physics", &buf)

	l.Debug("hidden")
	l.Info("step %d", 3)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[INFO] [physics] step 3")

	l.SetLevels(TRACE, OFF)
	l.Trace("visible")
	assert.Contains(t, buf.String(), "[TRACE] [physics] visible")

	var nilLogger *Logger
	assert.NotPanics(t, func() { nilLogger.Error("ignored") })
}

func TestLogger_FileSink(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	l := NewLoggerWithWriter("storage", &buf)
	require.NoError(t, l.EnableFile(dir))

	l.Debug("to file only")
	require.NoError(t, l.Close())
	assert.Empty(t, buf.String())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(dir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file only")
}

func TestLoggerManager(t *testing.T) {
	lm := GetLoggerManager()
	a := lm.GetLogger("test-a")
	assert.Same(t, a, GetComponentLogger("test-a"))
	assert.Contains(t, lm.ListComponents(), "test-a")

	assert.NoError(t, lm.SetLogLevel("test-a", WARN, OFF))
	assert.Error(t, lm.SetLogLevel("missing-component", WARN, OFF))
}
