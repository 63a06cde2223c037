package errors

import (
	"fmt"
	"runtime/debug"
)

// maxStackBytes bounds the stack stored in details so a deep panic does
// not blow up log lines.
const maxStackBytes = 8 << 10

// RecoverPanic turns a recover() value into a fatal ErrInternal. An error
// value stays reachable through errors.Is; the stack lands in details under
// "stack_trace", which ToErrorResponse never exposes to clients.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}

	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("panic: %v", r)
	}

	stack := debug.Stack()
	if len(stack) > maxStackBytes {
		stack = stack[:maxStackBytes]
	}

	return ErrInternal.
		WithCause(cause).
		WithDetail("panic", true).
		WithDetail("stack_trace", string(stack)).
		AsFatal()
}
