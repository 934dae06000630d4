package poll

import (
	"bytes"
	"fmt"
	"runtime"
)

func Panicf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

// PanicError converts a value obtained with recover() to an error and logs
// it with the stack of the panicking goroutine. It must be called directly
// from the deferred function.
func PanicError(log Logger, value interface{}) error {
	var msg string

	switch v := value.(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	default:
		msg = fmt.Sprintf("%#v", v)
	}

	log.Error("panic: %s\n%s", msg, stackTrace(12))

	return fmt.Errorf("panic: %s", msg)
}

func stackTrace(depth int) string {
	pc := make([]uintptr, depth)

	// Skip runtime.Callers, stackTrace and PanicError
	nbFrames := runtime.Callers(3, pc)
	pc = pc[:nbFrames]

	var buf bytes.Buffer

	frames := runtime.CallersFrames(pc)
	for {
		frame, more := frames.Next()

		fmt.Fprintf(&buf, "%s\n  %s:%d\n", frame.Function, frame.File, frame.Line)

		if !more {
			break
		}
	}

	return buf.String()
}
