package node

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// CaptureStack returns the stack of its caller as text. Plugin constructors
// store it in Info.InstantiationStack so failures can point at the line that
// created the node.
func CaptureStack() string {
	return captureStack(1)
}

// captureStack formats the current stack, dropping captureStack itself and
// skip further frames.
func captureStack(skip int) string {
	st := errors.New("").(stackTracer).StackTrace()
	// st[0] is captureStack.
	skip++
	if skip < len(st) {
		st = st[skip:]
	}
	return strings.TrimPrefix(fmt.Sprintf("%+v", st), "\n")
}
