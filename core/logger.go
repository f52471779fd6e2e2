package core

// Logger is implemented by the log services.
// Extra args may hold errors, maps of context data or the acting admin's Identity.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Identity describes who triggered a log entry.
type Identity struct {
	ID       string
	Username string
	Email    string
}
