// Package logging builds the turn.Logger implementation used in
// production: zap for structured logging, lumberjack for rotation, exactly
// the ambient stack the teacher's agent binary would have reached for had
// it run as a long-lived server process instead of a CLI.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/lokutor-ai/voiceturn/internal/turn"
)

// Options configures the rotating file sink. Dir == "" disables file
// output entirely (stdout only), useful for local runs.
type Options struct {
	Dir        string
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Debug      bool
}

// zapLogger adapts *zap.SugaredLogger to turn.Logger.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a zapLogger writing structured JSON to stdout, and additionally
// to a rotating file under opts.Dir when set.
func New(opts Options) (turn.Logger, func(), error) {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(zapcore.AddSync(os.Stdout)), level),
	}

	if opts.Dir != "" {
		filename := opts.Filename
		if filename == "" {
			filename = "server.log"
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.Dir + "/" + filename,
			MaxSize:    maxOrDefault(opts.MaxSizeMB, 100),
			MaxBackups: maxOrDefault(opts.MaxBackups, 5),
			MaxAge:     maxOrDefault(opts.MaxAgeDays, 30),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	logger := zap.New(core)
	sugar := logger.Sugar()

	cleanup := func() {
		_ = logger.Sync()
	}

	return &zapLogger{sugar: sugar}, cleanup, nil
}

func (l *zapLogger) Debug(msg string, args ...interface{}) { l.sugar.Debugw(msg, args...) }
func (l *zapLogger) Info(msg string, args ...interface{})  { l.sugar.Infow(msg, args...) }
func (l *zapLogger) Warn(msg string, args ...interface{})  { l.sugar.Warnw(msg, args...) }
func (l *zapLogger) Error(msg string, args ...interface{}) { l.sugar.Errorw(msg, args...) }

func maxOrDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
