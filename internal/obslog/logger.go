// Package obslog builds the worker's structured logger from the logging
// section of its configuration: level, optional file sink with rotation,
// and JSON encoding suitable for ingestion by a log pipeline.
package obslog

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/opscenter/triagecore/internal/config"
)

// loguruLevels maps the spec's Loguru-style level vocabulary
// (TRACE/DEBUG/INFO/SUCCESS/WARNING/ERROR/CRITICAL, as set via the
// LOG_LEVEL environment variable) onto zap's own levels. zap has no
// TRACE or SUCCESS concept, so TRACE maps to Debug and SUCCESS maps to
// Info; CRITICAL maps to DPanic, the strictest zap level above Error
// that doesn't itself terminate the process.
var loguruLevels = map[string]zapcore.Level{
	"TRACE":    zapcore.DebugLevel,
	"DEBUG":    zapcore.DebugLevel,
	"INFO":     zapcore.InfoLevel,
	"SUCCESS":  zapcore.InfoLevel,
	"WARNING":  zapcore.WarnLevel,
	"ERROR":    zapcore.ErrorLevel,
	"CRITICAL": zapcore.DPanicLevel,
}

// parseLevel resolves a level string to a zap level, trying the
// spec's Loguru vocabulary first and falling back to zap's own
// vocabulary (debug/info/warn/error/...), then to InfoLevel when
// neither recognizes it.
func parseLevel(raw string) zapcore.Level {
	if lvl, ok := loguruLevels[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return lvl
	}
	if lvl, err := zapcore.ParseLevel(raw); err == nil {
		return lvl
	}
	return zapcore.InfoLevel
}

// New builds a zap logger from cfg. If cfg.File is empty, logs go to
// stderr only; otherwise they also rotate into the configured file.
func New(cfg config.Logging) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(stderrSyncer()), level),
	}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.RetainDays, 30),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return logger, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func stderrSyncer() zapcore.WriteSyncer {
	ws, _, err := zap.Open("stderr")
	if err != nil {
		panic(fmt.Sprintf("obslog: open stderr sink: %v", err))
	}
	return ws
}
