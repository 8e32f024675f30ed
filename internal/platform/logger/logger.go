package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Joshykins/stupid-neko-sub001/internal/platform/envutil"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
	red           *redactor
}

// New builds a zap-backed logger. mode selects the zap preset ("prod"/"production"
// or anything else for development); "test" keeps only warnings and above.
// LOG_LEVEL overrides the preset level outside of test mode.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(levelFromEnv(zapcore.InfoLevel))
	case "test":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(levelFromEnv(zapcore.DebugLevel))
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: z.Sugar(), red: redactorFromEnv()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func levelFromEnv(def zapcore.Level) zapcore.Level {
	raw := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if raw == "" {
		return def
	}
	lvl, err := zapcore.ParseLevel(raw)
	if err != nil {
		return def
	}
	return lvl
}

// redactorFromEnv reads LOG_REDACTION_ENABLED (default on), LOG_HASH_SALT and
// LOG_HASH_KEYS (extra keys to hash besides user_id).
func redactorFromEnv() *redactor {
	if !envutil.Bool("LOG_REDACTION_ENABLED", true) {
		return nil
	}
	return newRedactor(envutil.String("LOG_HASH_SALT", ""), envutil.List("LOG_HASH_KEYS")...)
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, l.red.scrub(keysAndValues)...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, l.red.scrub(keysAndValues)...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, l.red.scrub(keysAndValues)...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, l.red.scrub(keysAndValues)...)
}
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, l.red.scrub(keysAndValues)...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.red.scrub(keysAndValues)...), red: l.red}
}
