package logger

import (
	"io"
	"os"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzap "github.com/hertz-contrib/logger/zap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"WorkoutMate/config"
)

var (
	// Init 之前为 no-op logger，测试与工具代码可以直接引用
	Logger   = zap.NewNop()
	logClose io.Closer
)

// Options 日志输出配置，Output 取 stdout、stderr 或文件路径
type Options struct {
	Service     string
	Environment string
	Level       string
	Format      string
	Output      string
}

func optionsFromConfig() Options {
	return Options{
		Service:     config.Cfg.ServiceName,
		Environment: config.Cfg.Environment,
		Level:       config.Cfg.LoggerLevel,
		Format:      config.Cfg.LoggerFormat,
		Output:      config.Cfg.LoggerOutputPath,
	}
}

// Init 按全局配置安装 zap，同时接管 hertz 的 hlog
func Init() {
	InitWith(optionsFromConfig())
}

// InitWith 每条日志都带 service 与 env 字段
func InitWith(opts Options) {
	level := zap.NewAtomicLevelAt(parseZapLevel(opts.Level))

	hzLogger := hertzzap.NewLogger(
		hertzzap.WithCoreEnc(buildEncoder(opts)),
		hertzzap.WithCoreWs(buildWriteSyncer(opts.Output)),
		hertzzap.WithCoreLevel(level),
		hertzzap.WithZapOptions(
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
			zap.Fields(
				zap.String("service", opts.Service),
				zap.String("env", opts.Environment),
			),
		),
	)
	hlog.SetLogger(hzLogger)
	hlog.SetLevel(toHlogLevel(level.Level()))

	Logger = hzLogger.Logger()
	Logger.Info("Logger initialized",
		zap.String("level", level.Level().CapitalString()),
		zap.String("format", opts.Format),
		zap.String("output", opts.Output),
	)
}

func Sync() {
	_ = Logger.Sync()
	if logClose != nil {
		_ = logClose.Close()
		logClose = nil
	}
}

// Component 返回带 component 字段的子 logger，调用时读取当前的全局 Logger
func Component(name string) *zap.Logger {
	return Logger.With(zap.String("component", name))
}

func buildEncoder(opts Options) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	if strings.EqualFold(opts.Format, "json") {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(encoderConfig)
	}

	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if strings.EqualFold(opts.Environment, "development") {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func buildWriteSyncer(output string) zapcore.WriteSyncer {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", "stdout":
		return zapcore.Lock(os.Stdout)
	case "stderr":
		return zapcore.Lock(os.Stderr)
	}

	file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		// 日志文件不可写时退回 stdout
		return zapcore.Lock(os.Stdout)
	}
	logClose = file
	return zapcore.AddSync(file)
}

// parseZapLevel 不认识的级别按 INFO 处理
func parseZapLevel(level string) zapcore.Level {
	parsed, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return parsed
}

func toHlogLevel(level zapcore.Level) hlog.Level {
	switch {
	case level <= zapcore.DebugLevel:
		return hlog.LevelDebug
	case level == zapcore.InfoLevel:
		return hlog.LevelInfo
	case level == zapcore.WarnLevel:
		return hlog.LevelWarn
	case level == zapcore.ErrorLevel:
		return hlog.LevelError
	default:
		return hlog.LevelFatal
	}
}
