package translation

import (
	"fmt"
	"strings"
)

// Code classifies engine failures.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeBackendUnavailable Code = "backend_unavailable"
	CodeInferenceError     Code = "inference_error"
	CodeTranslationFailed  Code = "translation_failed"
)

// Stage names the engine state a failure happened in.
type Stage string

const (
	StageReceived    Stage = "received"
	StageDetecting   Stage = "detecting"
	StageTranslating Stage = "translating"
	StageOverlaying  Stage = "overlaying"
)

// Error is returned by the engine for every failure other than caller
// cancellation. errors.Is matches it against the Err* sentinels by code.
type Error struct {
	Code    Code
	Stage   Stage
	Backend string
	Err     error
}

var (
	ErrInvalidInput       = &Error{Code: CodeInvalidInput}
	ErrBackendUnavailable = &Error{Code: CodeBackendUnavailable}
	ErrInferenceError     = &Error{Code: CodeInferenceError}
	ErrTranslationFailed  = &Error{Code: CodeTranslationFailed}
)

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Stage != "" {
		fmt.Fprintf(&b, " at %s", e.Stage)
	}
	if e.Backend != "" {
		fmt.Fprintf(&b, " (backend=%s)", e.Backend)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

func newError(code Code, stage Stage, backendName string, err error) *Error {
	return &Error{Code: code, Stage: stage, Backend: backendName, Err: err}
}

func invalidInput(format string, args ...any) *Error {
	return newError(CodeInvalidInput, StageReceived, BackendNone, fmt.Errorf(format, args...))
}
