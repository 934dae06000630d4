package poll

// Logger is implemented by *log.Logger from github.com/galdor/go-log; test
// code provides its own implementation.
type Logger interface {
	Debug(int, string, ...interface{})
	Info(string, ...interface{})
	Error(string, ...interface{})
}
