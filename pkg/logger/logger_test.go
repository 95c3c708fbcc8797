package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseZapLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseZapLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseZapLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, parseZapLevel(" Error "))
	assert.Equal(t, zapcore.InfoLevel, parseZapLevel("verbose"))
	assert.Equal(t, zapcore.InfoLevel, parseZapLevel(""))
}

func TestToHlogLevel(t *testing.T) {
	assert.Equal(t, hlog.LevelDebug, toHlogLevel(zapcore.DebugLevel))
	assert.Equal(t, hlog.LevelWarn, toHlogLevel(zapcore.WarnLevel))
	assert.Equal(t, hlog.LevelError, toHlogLevel(zapcore.ErrorLevel))
	assert.Equal(t, hlog.LevelFatal, toHlogLevel(zapcore.DPanicLevel))
}

func TestComponent_BeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		Component("test").Info("no-op logger accepts writes")
	})
}

func TestInitWith_FileOutput(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	path := filepath.Join(t.TempDir(), "workoutmate.log")
	InitWith(Options{
		Service:     "workoutmate-worker",
		Environment: "test",
		Level:       "info",
		Format:      "json",
		Output:      path,
	})
	Component("reminder_consumer").Info("Reminder delivered", zap.String("community_id", "run"))
	Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, `"service":"workoutmate-worker"`)
	assert.Contains(t, out, `"env":"test"`)
	assert.Contains(t, out, `"component":"reminder_consumer"`)
	assert.Contains(t, out, `"community_id":"run"`)
}
