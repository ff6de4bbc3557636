// Package vqnlog gates the verbosity of the standard library logger
// behind the --log-level flag. It is not a logging framework: every
// call site still ends up at log.Printf, just behind a level check.
package vqnlog

import (
	"fmt"
	"log"
	"strings"
)

type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses one of trace/debug/info/warn/error, case-insensitive.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

var current = LevelInfo

// SetLevel sets the minimum level that reaches the logger.
func SetLevel(l Level) {
	current = l
}

func Tracef(format string, args ...any) { logAt(LevelTrace, format, args...) }
func Debugf(format string, args ...any) { logAt(LevelDebug, format, args...) }
func Infof(format string, args ...any)  { logAt(LevelInfo, format, args...) }
func Warnf(format string, args ...any)  { logAt(LevelWarn, format, args...) }
func Errorf(format string, args ...any) { logAt(LevelError, format, args...) }

func logAt(l Level, format string, args ...any) {
	if l < current {
		return
	}
	log.Printf(format, args...)
}
