package logger

import "sync/atomic"

// holder wraps the default logger so atomic.Value always stores the same concrete type.
type holder struct {
	l Logger
}

var defLogger atomic.Value

func init() {
	defLogger.Store(holder{l: NewSlog(InfoLevel, false)})
}

func current() Logger {
	return defLogger.Load().(holder).l //nolint:forcetypeassert
}

// GetLogger returns the package default logger.
//
// Session configurations pick it up when no logger is configured with client.WithLogger.
func GetLogger() Logger {
	return current()
}

// SetLogger replaces the package default logger. A nil logger is ignored.
// Loggers already handed out by GetLogger are not affected.
func SetLogger(l Logger) {
	if l == nil {
		return
	}
	defLogger.Store(holder{l: l})
}

func Debug(msg string, keysAndValues ...any) {
	current().Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	current().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	current().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	current().Error(msg, keysAndValues...)
}

// SetLevel sets the level of the default logger.
func SetLevel(level Level) {
	current().SetLevel(level)
}

func With(keyValues ...any) Logger {
	return current().With(keyValues...)
}
