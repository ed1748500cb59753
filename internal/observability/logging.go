package observability

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cityflow/crm/internal/config"
)

// NewLogger builds the JSON logger. Production samples repeated messages and only attaches
// stack traces to errors; other environments log every line with caller info.
func NewLogger(cfg config.LoggerConfig, app config.AppConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = zapcore.InfoLevel
	}

	production := app.Env == "production"
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Development = !production
	if !production {
		zapCfg.Sampling = nil
	}
	zapCfg.EncoderConfig.MessageKey = "message"
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.InitialFields = map[string]any{
		"service": app.Name,
		"version": app.Version,
		"env":     app.Env,
	}

	return zapCfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}
