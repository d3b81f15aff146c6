package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerCreatesRunLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := NewLogger(dir)
	require.NoError(t, err)
	defer l.Close()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "fixturefill_"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".log"))
	assert.Equal(t, filepath.Join(dir, entries[0].Name()), l.Path())
}

func TestNewLoggerBadDirectory(t *testing.T) {
	// A regular file where the directory should go.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := NewLogger(filepath.Join(blocker, "logs"))
	assert.Error(t, err)
}

func TestLoggerVerdictLines(t *testing.T) {
	tests := []struct {
		name string
		log  func(l *Logger)
		want string
	}{
		{
			name: "passed",
			log:  func(l *Logger) { l.Info("%s: passed", "transfer__London") },
			want: "[INFO] transfer__London: passed",
		},
		{
			name: "failed",
			log:  func(l *Logger) { l.Warn("%s: failed", "transfer__Berlin") },
			want: "[WARN] transfer__Berlin: failed",
		},
		{
			name: "errored",
			log:  func(l *Logger) { l.Error("%s: errored: %v", "transfer__Merge", os.ErrNotExist) },
			want: "[ERROR] transfer__Merge: errored: file does not exist",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(t.TempDir())
			require.NoError(t, err)
			tt.log(l)
			require.NoError(t, l.Close())

			data, err := os.ReadFile(l.Path())
			require.NoError(t, err)
			assert.Contains(t, string(data), tt.want)
		})
	}
}

func TestLoggerKeepsMultilineReports(t *testing.T) {
	l, err := NewLogger(t.TempDir())
	require.NoError(t, err)
	report := "account 0xc0de:\n  balance: want 10, got 9\n  nonce: want 1, got 0"
	l.Warn("%s: failed\n%s", "transfer__London", report)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), report)
}
