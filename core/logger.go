package core

// Logger is the application wide logger.
// args may contain errors, key/value maps and the acting user.User, depending on the implementation.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Notifier surfaces transient outcomes (toasts, banners) to whoever is watching.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type nopLogger struct{}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type nopNotifier struct{}

func NopNotifier() Notifier { return nopNotifier{} }

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
