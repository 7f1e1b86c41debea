package logger

import (
	"fmt"
	"testing"

	"github.com/gookit/slog"
	"github.com/stretchr/testify/assert"
)

type recordLogger struct{ lines []string }

func (r *recordLogger) add(level string, args ...any) {
	r.lines = append(r.lines, level+" "+fmt.Sprint(args...))
}

func (r *recordLogger) Debug(args ...any)                 { r.add("debug", args...) }
func (r *recordLogger) Info(args ...any)                  { r.add("info", args...) }
func (r *recordLogger) Warn(args ...any)                  { r.add("warn", args...) }
func (r *recordLogger) Error(args ...any)                 { r.add("error", args...) }
func (r *recordLogger) Debugf(format string, args ...any) { r.add("debug", fmt.Sprintf(format, args...)) }
func (r *recordLogger) Infof(format string, args ...any)  { r.add("info", fmt.Sprintf(format, args...)) }
func (r *recordLogger) Warnf(format string, args ...any)  { r.add("warn", fmt.Sprintf(format, args...)) }
func (r *recordLogger) Errorf(format string, args ...any) { r.add("error", fmt.Sprintf(format, args...)) }

func TestWithFieldsFallsBackToPlainLogger(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })
	rec := &recordLogger{}
	Log = rec

	fields := Fields{"key": "posts"}
	DebugWithFields("d", fields)
	InfoWithFields("i", fields)
	WarnWithFields("w", fields)
	ErrorWithFields("e", fields)

	assert.Equal(t, []string{"debug d", "info i", "warn w", "error e"}, rec.lines)
}

func TestInit(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	Init("  WARN ")
	_, ok := Log.(*slog.Logger)
	assert.True(t, ok)

	Init("")
	_, ok = Log.(*slog.Logger)
	assert.True(t, ok)
	assert.NotPanics(t, func() { InfoWithFields("ready", Fields{"addr": ":3000"}) })
}
