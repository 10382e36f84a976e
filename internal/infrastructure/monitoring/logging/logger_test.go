package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := NewLogger(LogConfig{Level: LevelInfo, Format: format, OutputPaths: []string{"stdout"}})
		require.NoError(t, err, format)
		assert.NotNil(t, l)
	}
}

func TestNewLogger_InvalidOutputPath(t *testing.T) {
	l, err := NewLogger(LogConfig{OutputPaths: []string{"/nonexistent-dir/definitely/missing.log"}})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestZapLogger_FieldsAreTyped(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	l.Info("batch finished",
		String("batch_id", "b-1"),
		Int("items", 3),
		Int64("bytes", 42),
		Float64("ratio", 0.5),
		Bool("delivered", true),
		Duration("elapsed", 2*time.Second),
		Err(errors.New("boom")),
		Any("states", []string{"completed"}),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "batch finished", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "b-1", ctx["batch_id"])
	assert.Equal(t, int64(3), ctx["items"])
	assert.Equal(t, true, ctx["delivered"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	child := l.Named("dispatcher").With(String("component", "admission"))
	child.Warn("queue saturated")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "dispatcher", entry.LoggerName)
	assert.Equal(t, "admission", entry.ContextMap()["component"])
}

func TestZapLogger_SetLevel(t *testing.T) {
	atom := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	core, logs := observer.New(atom)
	l := &zapLogger{z: zap.New(core), level: atom}

	l.Debug("hidden")
	assert.Equal(t, 0, logs.Len())

	l.SetLevel(LevelDebug)
	l.Named("child").Debug("visible")
	assert.Equal(t, 1, logs.Len())
}

func TestErr_Nil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestNopLogger_AllMethodsNoOp(t *testing.T) {
	l := NewNopLogger()
	l.Debug("msg")
	l.Info("msg")
	l.Warn("msg")
	l.Error("msg")
	l.SetLevel(LevelDebug)
	assert.NotNil(t, l.With(String("k", "v")))
	assert.NotNil(t, l.Named("x"))
}

func TestDefaultLogger(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	l, _ := newObservedLogger(zapcore.InfoLevel)
	SetDefault(l)
	assert.Same(t, l, Default())

	SetDefault(nil)
	assert.Same(t, l, Default())
}

//Personal.AI order the ending
