package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/manufab-platform/kpi-core/pkg/apperrors"
)

// Recover runs fn, converting any panic into an INTERNAL ServiceError and
// logging the stack trace. Used by the facade to guarantee a structured
// error crosses every operation boundary instead of an unhandled panic.
func Recover(log *logrus.Entry, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			if log != nil {
				log.WithFields(logrus.Fields{
					"operation": operation,
					"panic":     fmt.Sprintf("%v", r),
					"stack":     string(stack),
				}).Error("panic recovered")
			}
			err = apperrors.Internal("internal error", fmt.Errorf("%v", r))
		}
	}()
	return fn()
}
