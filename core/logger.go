package core

// Logger is any service that can log operational messages at the usual levels.
// Implementations may inspect args for known types (eg. a user.User to attach
// the acting person) before printing the rest.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
