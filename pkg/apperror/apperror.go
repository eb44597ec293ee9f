package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can decide between recovering locally and surfacing them.
type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindNotFound          Kind = "not_found"
	KindPrecondition      Kind = "precondition_failed"
	KindEngineUnavailable Kind = "engine_unavailable"
	KindReasoningBackend  Kind = "reasoning_backend_error"
	KindTimeout           Kind = "job_timeout"
	KindUnexpected        Kind = "unexpected_error"
)

// AppError is the single error type crossing package boundaries.
type AppError struct {
	Kind    Kind
	Message string
	Phase   string            // set for job-level failures
	Fields  map[string]string // validation details
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Phase != "" {
		msg = fmt.Sprintf("%s (phase: %s)", msg, e.Phase)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Validation(message string, fields map[string]string) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Fields: fields}
}

func NotFound(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Precondition(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

func EngineUnavailable(engine string) *AppError {
	return &AppError{Kind: KindEngineUnavailable, Message: engine + " not initialized"}
}

func ReasoningBackend(err error) *AppError {
	return &AppError{Kind: KindReasoningBackend, Message: "reasoning backend failed", Err: err}
}

func Timeout(phase string, err error) *AppError {
	return &AppError{Kind: KindTimeout, Message: "diagnosis job timed out", Phase: phase, Err: err}
}

func Unexpected(phase string, err error) *AppError {
	return &AppError{Kind: KindUnexpected, Message: "diagnosis job failed", Phase: phase, Err: err}
}

// KindOf returns the kind of the first AppError in the chain, or KindUnexpected.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnexpected
}

func Is(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
