package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Fields map[string]any

type Level int

const (
	DEBUG Level = iota
	INFO
	WARNING
	ERROR
	CRITICAL
)

var levelNames = map[Level]string{
	DEBUG:    "DEBUG",
	INFO:     "INFO",
	WARNING:  "WARNING",
	ERROR:    "ERROR",
	CRITICAL: "CRITICAL",
}

type Logger struct {
	mu      sync.RWMutex
	level   Level
	service string
	out     *log.Logger
	closer  io.Closer
}

// New builds a logger writing to stderr. When dir is non-empty output is
// also written to dir/app.log, rotated by lumberjack.
func New(service, level, dir string) (*Logger, error) {
	l := &Logger{
		level:   ParseLevel(level),
		service: service,
		out:     log.New(os.Stderr, "", log.LstdFlags),
	}
	if dir == "" {
		return l, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "app.log"),
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	l.out = log.New(io.MultiWriter(os.Stderr, file), "", log.LstdFlags)
	l.closer = file
	return l, nil
}

// Discard returns a logger that drops every message.
func Discard() *Logger {
	return &Logger{level: CRITICAL + 1, out: log.New(io.Discard, "", 0)}
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = log.New(w, "", 0)
}

func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Logger) write(level Level, msg string, fields Fields) {
	l.mu.RLock()
	current, service, out := l.level, l.service, l.out
	l.mu.RUnlock()

	if level < current {
		return
	}

	var b strings.Builder
	b.WriteString("[" + levelNames[level] + "]")
	if service != "" {
		b.WriteString(" [" + service + "]")
	}
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
		}
		b.WriteString(" [" + strings.Join(parts, " ") + "]")
	}
	b.WriteString(" " + msg)
	_ = out.Output(0, b.String())
}

func (l *Logger) Debugf(format string, args ...any) { l.write(DEBUG, fmt.Sprintf(format, args...), nil) }
func (l *Logger) Infof(format string, args ...any)  { l.write(INFO, fmt.Sprintf(format, args...), nil) }
func (l *Logger) Warnf(format string, args ...any)  { l.write(WARNING, fmt.Sprintf(format, args...), nil) }
func (l *Logger) Errorf(format string, args ...any) { l.write(ERROR, fmt.Sprintf(format, args...), nil) }

func (l *Logger) WithFields(fields Fields) *Entry {
	return &Entry{logger: l, fields: fields}
}

type Entry struct {
	logger *Logger
	fields Fields
}

func (e *Entry) Debug(msg string) { e.logger.write(DEBUG, msg, e.fields) }
func (e *Entry) Info(msg string)  { e.logger.write(INFO, msg, e.fields) }
func (e *Entry) Warn(msg string)  { e.logger.write(WARNING, msg, e.fields) }
func (e *Entry) Error(msg string) { e.logger.write(ERROR, msg, e.fields) }

func ParseLevel(value string) Level {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DEBUG":
		return DEBUG
	case "WARNING", "WARN":
		return WARNING
	case "ERROR":
		return ERROR
	case "CRITICAL":
		return CRITICAL
	default:
		return INFO
	}
}
