package errors

import (
	"fmt"

	"watchlens/internal/infrastructure/logging"
)

// LoggerBridge adapts logging.Logger to RetryLogger
type LoggerBridge struct {
	logger logging.Logger
}

// NewLoggerBridge creates a RetryLogger that writes through logger
func NewLoggerBridge(logger logging.Logger) RetryLogger {
	return &LoggerBridge{logger: logger}
}

// Printf implements RetryLogger. Retry messages are warnings: they only appear when something failed.
func (b *LoggerBridge) Printf(format string, v ...interface{}) {
	if b.logger != nil {
		b.logger.Warn(fmt.Sprintf(format, v...), "component", "retry")
	}
}

// UseLogger installs logger as the package retry logger
func UseLogger(logger logging.Logger) {
	SetRetryLogger(NewLoggerBridge(logger))
}
