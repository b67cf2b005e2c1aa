package toolkit

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/golang/glog"
)

// HandleError runs `do` and recovers a panic.
// Each handler is either `func()` or `func(error)`, and is called with the recovered value.
func HandleError(do func(), handlers ...any) (r any) {
	defer func() {
		if r = recover(); r != nil {
			glog.Warningf("[toolkit]unexpected panic %T=%v\n%s", r, r, panicStack(debug.Stack()))
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			for _, handler := range handlers {
				switch v := handler.(type) {
				case func():
					v()
				case func(error):
					v(err)
				}
			}
		}
	}()
	do()
	return
}

// the stack without blank lines, indented under the panic line
func panicStack(stack []byte) string {
	var b strings.Builder
	for _, line := range strings.Split(string(stack), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			b.WriteString("    ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Trace logs how long `do` takes, at trace verbosity.
func Trace(tag string, do func()) {
	TraceWithReturnError(tag, func() (struct{}, error) {
		do()
		return struct{}{}, nil
	})
}

func TraceWithReturnError[R any](tag string, do func() (R, error)) (R, error) {
	if !glog.V(LogLevelTrace) {
		return do()
	}
	start := time.Now()
	result, err := do()
	if err != nil {
		glog.Infof("%s (%s) error = %s\n", tag, time.Since(start), err)
	} else {
		glog.Infof("%s (%s)\n", tag, time.Since(start))
	}
	return result, err
}
