package utils

import (
	"log"
	"os"
	"strings"
)

// Logger is a thin wrapper over the stdlib logger so handlers and services
// can take a single dependency and tests can pass nil.
type Logger struct {
	out   *log.Logger
	err   *log.Logger
	debug bool
}

func NewLogger() *Logger {
	debug := strings.EqualFold(strings.TrimSpace(os.Getenv("SAKER_DEBUG")), "1") ||
		strings.EqualFold(strings.TrimSpace(os.Getenv("SAKER_DEBUG")), "true")
	return &Logger{
		out:   log.New(os.Stdout, "", log.LstdFlags|log.LUTC),
		err:   log.New(os.Stderr, "", log.LstdFlags|log.LUTC),
		debug: debug,
	}
}

func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.out == nil {
		return
	}
	l.out.Printf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil || l.err == nil {
		return
	}
	l.err.Printf("ERROR "+format, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || l.out == nil || !l.debug {
		return
	}
	l.out.Printf("DEBUG "+format, args...)
}
