package logger

import corelogger "github.com/fleetops/dispatchd/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// New returns a Logger for the given component. The environment is detected
// via the APP_ENV variable; LOG_LEVEL narrows the emitted levels.
func New(component string) Logger {
	return NewZerologLogger(component)
}
