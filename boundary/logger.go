package boundary

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ufo-org/ufo-r-operators/engine"
)

var logger atomic.Pointer[zap.Logger]

// Logger returns the boundary logger. It uses a no-op logger by default.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// SetLogger configures the boundary logger.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}

// BeginLog installs a development logger on stderr at debug level for both
// the boundary and the engine. Cores created afterwards log through it.
func BeginLog() error {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	SetLogger(l.Named("boundary"))
	engine.SetLogger(l.Named("engine"))
	return nil
}
