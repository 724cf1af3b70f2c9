package core

// Person identifies who triggered a logged event.
type Person struct {
	ID    string
	Name  string
	Email string
}

// Logger is any service that can report application events.
// args may contain errors, map[string]interface{} extras and at most one Person.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
