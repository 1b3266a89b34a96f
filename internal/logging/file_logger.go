package logging

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// FileLogTimeFormat is the timestamp layout of every file log line.
const FileLogTimeFormat = "2006-01-02 15:04:05.000000"

// FileLogger appends one line per message to a file:
//
//	2006-01-02 15:04:05.000000 - Info: loaded batch 3
//
// The file is opened in append mode so consecutive runs, including resumed
// ones, share a single history. Verbose messages are always written.
type FileLogger struct {
	mu     sync.Mutex
	file   *os.File
	now    func() time.Time
	closed bool
}

// NewFileLogger opens (or creates) path for appending.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return &FileLogger{file: f, now: time.Now}, nil
}

func (l *FileLogger) write(level, format string, args []interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	fmt.Fprintf(l.file, "%s - %s: %s\n", l.now().Format(FileLogTimeFormat), level, msg)
}

// Verbose logs detailed diagnostic information.
func (l *FileLogger) Verbose(format string, args ...interface{}) {
	l.write("Verbose", format, args)
}

// Info logs informational messages about normal operations.
func (l *FileLogger) Info(format string, args ...interface{}) {
	l.write("Info", format, args)
}

// Warn logs recoverable problems.
func (l *FileLogger) Warn(format string, args ...interface{}) {
	l.write("Warning", format, args)
}

// Error logs error messages.
func (l *FileLogger) Error(format string, args ...interface{}) {
	l.write("Error", format, args)
}

// Path returns the log file location.
func (l *FileLogger) Path() string {
	return l.file.Name()
}

// Close flushes and closes the file. Later messages are dropped.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}
