package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Logger writes the durable record of one fill run: a timestamped file
// with one line per instance verdict plus the failure reports. Console
// output stays with the main logger; this file is what survives the run.
type Logger struct {
	out  *log.Logger
	file *os.File
}

// NewLogger opens a fresh run log in dir, creating the directory first.
// Every run gets its own file; nothing is ever appended across runs.
func NewLogger(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	name := fmt.Sprintf("fixturefill_%s.log", time.Now().Format("2006-01-02_15-04-05"))
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &Logger{
		out:  log.New(file, "", log.LstdFlags),
		file: file,
	}, nil
}

// Path returns the location of the run log file.
func (l *Logger) Path() string {
	return l.file.Name()
}

// Close closes the run log file.
func (l *Logger) Close() error {
	return l.file.Close()
}

func (l *Logger) write(level, format string, v ...interface{}) {
	l.out.Printf("[%s] %s", level, fmt.Sprintf(format, v...))
}

// Info records a passed verdict or a run-level summary line.
func (l *Logger) Info(format string, v ...interface{}) {
	l.write("INFO", format, v...)
}

// Warn records a validation failure together with its diff report.
func (l *Logger) Warn(format string, v ...interface{}) {
	l.write("WARN", format, v...)
}

// Error records an errored instance.
func (l *Logger) Error(format string, v ...interface{}) {
	l.write("ERROR", format, v...)
}
