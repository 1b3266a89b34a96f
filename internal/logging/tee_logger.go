package logging

import "github.com/vvka-141/pgload/pkg/pgload"

// TeeLogger forwards every message to each of its loggers in order.
type TeeLogger struct {
	loggers []pgload.Logger
}

// NewTeeLogger combines loggers. Nil entries are skipped.
func NewTeeLogger(loggers ...pgload.Logger) *TeeLogger {
	t := &TeeLogger{}
	for _, l := range loggers {
		if l != nil {
			t.loggers = append(t.loggers, l)
		}
	}
	return t
}

func (t *TeeLogger) Verbose(format string, args ...interface{}) {
	for _, l := range t.loggers {
		l.Verbose(format, args...)
	}
}

func (t *TeeLogger) Info(format string, args ...interface{}) {
	for _, l := range t.loggers {
		l.Info(format, args...)
	}
}

func (t *TeeLogger) Warn(format string, args ...interface{}) {
	for _, l := range t.loggers {
		l.Warn(format, args...)
	}
}

func (t *TeeLogger) Error(format string, args ...interface{}) {
	for _, l := range t.loggers {
		l.Error(format, args...)
	}
}
