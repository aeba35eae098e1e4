package core

// Logger is any leveled logging service.
//
// Implementations accept trailing args of the forms:
// error, map[string]interface{}, user (to attribute the log entry to a person).
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
