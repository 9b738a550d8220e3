package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger("test", Options{Level: WARN, Console: &buf})
	require.NoError(t, err)

	l.Info("скрыто %d", 1)
	l.Warn("видно %d", 2)
	assert.NotContains(t, buf.String(), "скрыто")
	assert.Contains(t, buf.String(), "[WARN] [test] видно 2")

	l.SetLevel(TRACE, TRACE)
	l.Trace("трассировка")
	assert.Contains(t, buf.String(), "[TRACE] [test] трассировка")
}

func TestLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tilemap.log")
	var console bytes.Buffer
	l, err := NewLogger("storage", Options{Level: ERROR, FileLevel: DEBUG, File: path, Console: &console})
	require.NoError(t, err)

	l.Debug("в файл")
	l.Trace("никуда")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "повторное закрытие")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] [storage] в файл")
	assert.NotContains(t, string(data), "никуда")
	assert.Empty(t, console.String())
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, WARN, l)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitDefaultLogger("cli", Options{Level: DEBUG, Console: &buf}))
	defer CloseDefaultLogger()

	Debug("загружено %d чанков", 3)
	assert.Contains(t, buf.String(), "[DEBUG] [cli] загружено 3 чанков")
}

func TestLoggerManager(t *testing.T) {
	var buf bytes.Buffer
	lm := NewLoggerManager(Options{Level: INFO, Console: &buf})

	a, err := lm.GetLogger("b")
	require.NoError(t, err)
	again, err := lm.GetLogger("b")
	require.NoError(t, err)
	assert.Same(t, a, again)
	_, err = lm.GetLogger("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, lm.ListComponents())

	require.NoError(t, lm.SetLogLevel("b", ERROR, ERROR))
	a.Warn("скрыто")
	assert.Empty(t, buf.String())
	assert.Error(t, lm.SetLogLevel("missing", INFO, INFO))

	require.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())
}

func TestHexDump(t *testing.T) {
	assert.Equal(t, "No data", HexDump(nil))
	assert.Contains(t, HexDump([]byte("TMB1")), "54 4d 42 31")
}
