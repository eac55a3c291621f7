package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// LogLevel defines the severity of the log
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
)

// ParseLevel maps a level name (silent, error, warn, info) to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "silent", "off", "none":
		return LogLevelSilent, nil
	case "error":
		return LogLevelError, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "info", "":
		return LogLevelInfo, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", name)
}

// LogFormat defines the output format of the log
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Logger is the interface for logging SQL and internal messages
type Logger interface {
	SetLevel(level LogLevel)
	SetFormat(format LogFormat)
	SetOutput(w io.Writer)
	WithFields(fields map[string]any) Logger
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	SQL(sql string, duration time.Duration, args ...any)
}

// sink is shared by a logger and everything derived from it with WithFields.
type sink struct {
	mu     sync.Mutex
	level  LogLevel
	format LogFormat
	writer io.Writer
}

// stdLogger is the default implementation of Logger
type stdLogger struct {
	out    *sink
	fields map[string]any
}

// NewStdLogger creates a new standard logger
func NewStdLogger() Logger {
	return &stdLogger{
		out: &sink{
			level:  LogLevelInfo,
			format: LogFormatText,
			writer: os.Stdout,
		},
		fields: map[string]any{},
	}
}

// NewSilentLogger creates a logger that drops everything.
func NewSilentLogger() Logger {
	l := NewStdLogger()
	l.SetLevel(LogLevelSilent)
	return l
}

func (l *stdLogger) SetLevel(level LogLevel) {
	l.out.mu.Lock()
	l.out.level = level
	l.out.mu.Unlock()
}

func (l *stdLogger) SetFormat(format LogFormat) {
	l.out.mu.Lock()
	l.out.format = format
	l.out.mu.Unlock()
}

func (l *stdLogger) SetOutput(w io.Writer) {
	l.out.mu.Lock()
	l.out.writer = w
	l.out.mu.Unlock()
}

func (l *stdLogger) WithFields(fields map[string]any) Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &stdLogger{out: l.out, fields: merged}
}

func (l *stdLogger) Info(format string, args ...any) {
	l.emit(LogLevelInfo, "INFO", fmt.Sprintf(format, args...), nil)
}

func (l *stdLogger) Warn(format string, args ...any) {
	l.emit(LogLevelWarn, "WARN", fmt.Sprintf(format, args...), nil)
}

func (l *stdLogger) Error(format string, args ...any) {
	l.emit(LogLevelError, "ERROR", fmt.Sprintf(format, args...), nil)
}

func (l *stdLogger) SQL(sql string, duration time.Duration, args ...any) {
	l.emit(LogLevelInfo, "SQL", fmt.Sprintf("[%v] %s | args: %v", duration, sql, args), map[string]any{
		"sql":      sql,
		"duration": duration.String(),
		"args":     args,
	})
}

// emit writes one entry. extra replaces msg in JSON output when set.
func (l *stdLogger) emit(level LogLevel, name, msg string, extra map[string]any) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if l.out.level < level || l.out.writer == nil {
		return
	}

	now := time.Now()
	if l.out.format == LogFormatJSON {
		data := make(map[string]any, len(l.fields)+len(extra)+3)
		for k, v := range l.fields {
			data[k] = v
		}
		data["time"] = now.Format(time.RFC3339)
		data["level"] = name
		if extra != nil {
			for k, v := range extra {
				data[k] = v
			}
		} else {
			data["msg"] = msg
		}
		_ = json.NewEncoder(l.out.writer).Encode(data)
		return
	}

	if extra != nil {
		if sqlStr, ok := extra["sql"].(string); ok {
			msg = sqlColor(sqlStr) + msg + ansiReset
		}
	}
	fmt.Fprintf(l.out.writer, "[JORM] %s %s: %s%s\n", now.Format("2006-01-02 15:04:05"), name, msg, l.fieldString())
}

func (l *stdLogger) fieldString() string {
	if len(l.fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(" fields:")
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, l.fields[k])
	}
	return sb.String()
}

func sqlColor(sqlStr string) string {
	s := strings.TrimSpace(strings.ToUpper(sqlStr))
	switch {
	case strings.HasPrefix(s, "SELECT"):
		return ansiYellow
	case strings.HasPrefix(s, "INSERT"), strings.HasPrefix(s, "UPDATE"):
		return ansiGreen
	case strings.HasPrefix(s, "DELETE"):
		return ansiRed
	default:
		return ansiCyan
	}
}
