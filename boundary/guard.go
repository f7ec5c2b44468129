package boundary

import (
	"go.uber.org/zap"

	"github.com/ufo-org/ufo-r-operators/errors"
)

// call runs fn and converts any panic into fail.
func call[T any](op string, fail T, fn func() T) (result T) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("boundary fault",
				zap.String("op", op),
				zap.Error(errors.Fault(errors.PhaseBoundary, op, r)),
				zap.Any("panic", r),
				zap.Stack("stack"))
			result = fail
		}
	}()
	return fn()
}

// poisonOnPanic calls poison if a panic is unwinding and lets it continue.
// It must be deferred directly, after the lock is taken.
func poisonOnPanic(poison func()) {
	if r := recover(); r != nil {
		poison()
		panic(r)
	}
}

// failure logs err at a level matching its kind.
func failure(op string, err error) {
	if errors.IsFault(err) {
		Logger().Error("boundary call failed", zap.String("op", op), zap.Error(err))
		return
	}
	Logger().Debug("boundary call failed", zap.String("op", op), zap.Error(err))
}
