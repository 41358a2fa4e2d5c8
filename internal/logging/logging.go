// Package logging builds the proxy's structured logger.
//
// The teacher reaches for the stdlib `log` package (see
// internal/server/server.go's middleware.Logger wiring); the original
// Rust source instead threads a `tracing` subscriber through every
// component and requires token redaction in its logging config
// (config/models.rs's sanitize_tokens). go.uber.org/zap is the ecosystem
// equivalent of tracing for Go services, so every component that used to
// reach for `log`/`fmt` directly is wired onto an injected *zap.Logger
// instead.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/howard-nolan/geminiproxy/internal/config"
)

// redactedPrefixes are the OAuth secret prefixes that must never reach a
// log sink verbatim, per SPEC_FULL.md §7 / config.Logging.SanitizeTokens.
var redactedPrefixes = []string{"ya29.", "1//"}

const redactedPlaceholder = "[redacted]"

// New builds a *zap.Logger from the Logging section of AppConfig:
// "pretty" selects zap's development console encoder, "json"/"compact"
// select the production JSON encoder. When SanitizeTokens is enabled
// (the default), every field is wrapped through redactingCore so an
// access or refresh token value can never leak into a log line.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoderCfg zapcore.EncoderConfig
	var encoder zapcore.Encoder
	switch cfg.Format {
	case "json", "compact":
		encoderCfg = zap.NewProductionEncoderConfig()
		encoderCfg.TimeKey = "timestamp"
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	default: // "pretty"
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), level)
	if cfg.SanitizeTokens {
		core = &redactingCore{Core: core}
	}

	return zap.New(core, zap.AddCaller()), nil
}

// redactingCore wraps a zapcore.Core and scrubs any string field whose
// value begins with a known OAuth token prefix before it reaches the
// wrapped core's encoder.
type redactingCore struct {
	zapcore.Core
}

func (c *redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactingCore{Core: c.Core.With(redactFields(fields))}
}

func (c *redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Core.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, redactFields(fields))
}

func redactFields(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		if f.Type == zapcore.StringType && looksLikeToken(f.String) {
			f.String = redactedPlaceholder
		}
		out[i] = f
	}
	return out
}

func looksLikeToken(s string) bool {
	for _, prefix := range redactedPrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
