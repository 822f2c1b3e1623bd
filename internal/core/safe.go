package core

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
)

// SafeFailureKey is the message key of the label logged for guarded failures.
const SafeFailureKey = "Failed to execute function safely: "

// Translator resolves message keys through the server.
type Translator interface {
	Translate(key string) *Pending[string]
}

// PanicError carries a recovered panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Safe guards fn for callers that have nobody to report to, such as channel
// handlers. Errors and panics are logged under a translated label; with
// rethrow the error (a *PanicError for panics) is returned afterwards,
// otherwise it is swallowed.
func Safe[T any](tr Translator, logger *slog.Logger, rethrow bool, fn func(T) error) func(T) error {
	if logger == nil {
		logger = slog.Default()
	}
	return func(arg T) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Value: r, Stack: debug.Stack()}
			}
			if err == nil {
				return
			}
			logFailure(tr, logger, err)
			if !rethrow {
				err = nil
			}
		}()
		return fn(arg)
	}
}

// logFailure logs once the label is known. The lookup may never complete.
func logFailure(tr Translator, logger *slog.Logger, failure error) {
	attrs := []any{"error", failure}
	var pe *PanicError
	if errors.As(failure, &pe) {
		attrs = append(attrs, "stack", string(pe.Stack))
	}

	if tr == nil {
		logger.Error(strings.TrimSpace(SafeFailureKey), attrs...)
		return
	}
	tr.Translate(SafeFailureKey).Then(func(label string, err error) {
		if err != nil || label == "" {
			label = SafeFailureKey
		}
		logger.Error(strings.TrimSpace(label), attrs...)
	})
}
