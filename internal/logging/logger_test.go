package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAppendsJSONLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, closeFn, err := New(dir, false)
	require.NoError(t, err)
	logger.Info("first")
	logger.Debug("hidden")
	Printf(logger).Printf("bridge %s\n", "ready")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"msg":"first"`)
	require.Contains(t, lines[1], `"msg":"bridge ready"`)
}

func TestNewVerboseKeepsDebug(t *testing.T) {
	dir := t.TempDir()
	logger, closeFn, err := New(dir, true)
	require.NoError(t, err)
	logger.Debug("visible")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.Contains(t, string(data), "visible")
}

func TestPrintfNilLogger(t *testing.T) {
	require.NotPanics(t, func() { Printf(nil).Printf("nothing %d", 1) })
}
