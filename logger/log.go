package logger

import (
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func ParseLevel(level string) Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Logger is a leveled wrapper around the standard library logger. Loggers
// derived with With share the parent's output and lock.
type Logger struct {
	level  Level
	prefix string
	mu     *sync.Mutex
	out    *log.Logger
}

func New(level string) *Logger {
	return NewWithWriter(level, os.Stderr)
}

func NewWithWriter(level string, w io.Writer) *Logger {
	return &Logger{
		level: ParseLevel(level),
		mu:    &sync.Mutex{},
		out:   log.New(w, "", log.LstdFlags|log.Lmicroseconds),
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithWriter("ERROR", io.Discard)
}

func (l *Logger) Level() Level {
	return l.level
}

// With returns a logger that prefixes every message with tag.
func (l *Logger) With(tag string) *Logger {
	child := *l
	child.prefix = l.prefix + "[" + tag + "] "
	return &child
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if l.level > level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Printf("["+level.String()+"] "+l.prefix+format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(DEBUG, format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(INFO, format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logf(WARN, format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(ERROR, format, args...)
}
