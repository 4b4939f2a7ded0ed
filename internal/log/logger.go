// Package log provides structured event logging.
// Events are written as JSON lines through zap into a rotating log file.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Event type constants.
const (
	EventSessionResumed   = "session_resumed"
	EventSessionCreated   = "session_created"
	EventSessionDegraded  = "session_degraded"
	EventSessionCleared   = "session_cleared"
	EventMessageSent      = "message_sent"
	EventMessageFailed    = "message_failed"
	EventMessageRejected  = "message_rejected"
	EventModeChanged      = "mode_changed"
	EventAPIRequestFailed = "api_request_failed"
	EventAPIRetry         = "api_retry"
	EventStorageFailed    = "storage_failed"
	EventSelectionDropped = "selection_event_dropped"
	EventHealthChecked    = "health_checked"
)

// Levels accepted by LogEvent.Level.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// LogEvent represents a single structured event written to the log.
type LogEvent struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level,omitempty"`
	Event      string         `json:"event"`
	Op         string         `json:"op,omitempty"`
	SessionID  string         `json:"session,omitempty"`
	Mode       string         `json:"mode,omitempty"`
	URL        string         `json:"url,omitempty"`
	Status     int            `json:"status,omitempty"`
	Code       string         `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	Attempt    int            `json:"attempt,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Logger writes append-only JSONL events to a log file.
// A nil *Logger is valid and discards everything.
type Logger struct {
	path    string
	zl      *zap.Logger
	rotator *lumberjack.Logger
}

// NewLogger creates a Logger that writes to path, creating its directory.
// Does not truncate an existing log file. level is one of debug, info,
// warn or error; anything else means info.
func NewLogger(path, level string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encoderConfig.MessageKey = "event"
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	encoderConfig.CallerKey = zapcore.OmitKey
	encoderConfig.StacktraceKey = zapcore.OmitKey

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		parseLevel(level),
	)

	return &Logger{
		path:    path,
		zl:      zap.New(core),
		rotator: rotator,
	}, nil
}

// Path returns the log file location.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single LogEvent as one JSON line to the log file.
// If event.Time is the zero value, it is automatically set to time.Now().UTC().
func (l *Logger) Append(event LogEvent) error {
	if l == nil {
		return nil
	}
	if event.Event == "" {
		return errors.New("log event name is required")
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	ce := l.zl.Check(parseLevel(event.Level), event.Event)
	if ce == nil {
		return nil
	}
	ce.Time = event.Time
	ce.Write(fields(event)...)
	return nil
}

// Info appends an info-level event, ignoring write errors.
func (l *Logger) Info(event LogEvent) {
	event.Level = LevelInfo
	_ = l.Append(event)
}

// Warn appends a warn-level event, ignoring write errors.
func (l *Logger) Warn(event LogEvent) {
	event.Level = LevelWarn
	_ = l.Append(event)
}

// Error appends an error-level event, ignoring write errors.
func (l *Logger) Error(event LogEvent) {
	event.Level = LevelError
	_ = l.Append(event)
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	_ = l.zl.Sync()
	return l.rotator.Close()
}

// ReadAll reads and parses all events from the log file.
// Returns an empty slice (not an error) if the file does not exist.
func (l *Logger) ReadAll() ([]LogEvent, error) {
	if l == nil {
		return []LogEvent{}, nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []LogEvent{}, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var events []LogEvent
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event LogEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("parse log line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	return events, nil
}

func fields(e LogEvent) []zap.Field {
	var fs []zap.Field
	addString := func(key, v string) {
		if v != "" {
			fs = append(fs, zap.String(key, v))
		}
	}
	addString("op", e.Op)
	addString("session", e.SessionID)
	addString("mode", e.Mode)
	addString("url", e.URL)
	if e.Status != 0 {
		fs = append(fs, zap.Int("status", e.Status))
	}
	addString("code", e.Code)
	addString("error", e.Error)
	if e.Attempt != 0 {
		fs = append(fs, zap.Int("attempt", e.Attempt))
	}
	if e.DurationMs != 0 {
		fs = append(fs, zap.Int64("duration_ms", e.DurationMs))
	}
	if len(e.Data) > 0 {
		fs = append(fs, zap.Any("data", e.Data))
	}
	return fs
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
