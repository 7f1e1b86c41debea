// Package logger is the structured logger shared by every folio package.
package logger

import (
	"strings"

	"github.com/gookit/slog"
	"github.com/gookit/slog/handler"
)

// Logger is the minimal logging surface used across the module.
type Logger interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Fields are structured key/value pairs attached to one log line.
type Fields map[string]any

// Log is the process-wide logger. It logs at info level until Init is
// called.
var Log Logger = New("info")

// Init replaces the process-wide logger with one at the given level.
func Init(level string) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = "info"
	}
	Log = New(level)
}

// New builds a gookit/slog JSON console logger at level.
func New(level string) Logger {
	logLevel := slog.LevelByName(level)

	var levels slog.Levels
	for _, lv := range slog.AllLevels {
		if lv <= logLevel {
			levels = append(levels, lv)
		}
	}

	h := handler.NewConsoleHandler(levels)
	formatter := slog.NewJSONFormatter(func(f *slog.JSONFormatter) {
		f.Fields = []string{
			slog.FieldKeyDatetime,
			slog.FieldKeyLevel,
			slog.FieldKeyMessage,
		}
		f.Aliases = slog.StringMap{
			slog.FieldKeyDatetime: "time",
			slog.FieldKeyLevel:    "level",
			slog.FieldKeyMessage:  "msg",
		}
		f.TimeFormat = "2006-01-02T15:04:05.000Z07:00"
	})
	h.SetFormatter(formatter)

	return slog.NewWithHandlers(h)
}

// DebugWithFields logs msg at debug level with fields as top-level JSON keys.
func DebugWithFields(msg string, fields Fields) {
	if lg, ok := Log.(*slog.Logger); ok {
		lg.WithFields(slog.M(fields)).Debug(msg)
		return
	}
	Log.Debug(msg)
}

// InfoWithFields logs msg at info level with fields as top-level JSON keys.
func InfoWithFields(msg string, fields Fields) {
	if lg, ok := Log.(*slog.Logger); ok {
		lg.WithFields(slog.M(fields)).Info(msg)
		return
	}
	Log.Info(msg)
}

// WarnWithFields logs msg at warn level with fields as top-level JSON keys.
func WarnWithFields(msg string, fields Fields) {
	if lg, ok := Log.(*slog.Logger); ok {
		lg.WithFields(slog.M(fields)).Warn(msg)
		return
	}
	Log.Warn(msg)
}

// ErrorWithFields logs msg at error level with fields as top-level JSON keys.
func ErrorWithFields(msg string, fields Fields) {
	if lg, ok := Log.(*slog.Logger); ok {
		lg.WithFields(slog.M(fields)).Error(msg)
		return
	}
	Log.Error(msg)
}
