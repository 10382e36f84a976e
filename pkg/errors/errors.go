// Package errors provides the structured error type shared by every layer of
// the lead scoring service. Components return *AppError so that the HTTP layer,
// the logger and the metrics collector can classify failures by code without
// string matching.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

// captureStack returns a formatted call stack starting above the caller.
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type used across the service.
// It supports errors.Is / errors.As through Unwrap.
//
// Usage:
//
//	return errors.New(errors.ErrCodeUpstream, "create thread failed")
//	return errors.Wrap(err, errors.ErrCodeDelivery, "callback rejected").
//	           WithDetail("status=502")
type AppError struct {
	// Code classifies the failure.
	Code ErrorCode

	// Message is the human readable summary returned to API callers.
	Message string

	// Detail carries supplementary debugging context.
	Detail string

	// Cause is the wrapped lower-level error, if any.
	Cause error

	// Stack is captured at construction time. It is not part of Error().
	Stack string
}

// Error implements the error interface.
// Format: "[<code>] <message>: <detail>"; the detail segment is omitted when empty.
func (e *AppError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code, e.Message)
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Cause != nil {
		sb.WriteString(" (caused by: ")
		sb.WriteString(e.Cause.Error())
		sb.WriteString(")")
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a copy of the receiver with Detail set. Nil-safe.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a copy of the receiver with Cause set. Nil-safe.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Factories
// ─────────────────────────────────────────────────────────────────────────────

// New constructs an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Newf is New with a format string.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError around err. Wrap(nil, ...) returns nil.
// When code is CodeUnknown and err already carries an AppError, the original
// code is kept so the classification survives cross-layer propagation.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var ae *AppError
		if errors.As(err, &ae) {
			if ae.Code == code {
				return true
			}
			err = ae.Cause
			continue
		}
		return false
	}
	return false
}

// IsNotFound reports whether err's chain carries a not-found classification.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound) || IsCode(err, ErrCodeSecretNotFound) ||
		IsCode(err, ErrCodeSubscriptionNotFound)
}

// GetCode extracts the code of the outermost *AppError in err's chain.
// A nil error yields CodeOK and a plain error yields CodeUnknown.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// Is and As re-export the standard library helpers so callers importing this
// package under the name "errors" keep access to them.
func Is(err, target error) bool { return errors.Is(err, target) }

// As re-exports errors.As.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// ─────────────────────────────────────────────────────────────────────────────
// Convenience constructors
// ─────────────────────────────────────────────────────────────────────────────

// NotFound constructs an ErrCodeNotFound AppError.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message, Stack: captureStack(1)}
}

// InvalidParam constructs an ErrCodeBadRequest AppError.
func InvalidParam(message string) *AppError {
	return &AppError{Code: ErrCodeBadRequest, Message: message, Stack: captureStack(1)}
}

// Internal constructs an ErrCodeInternal AppError.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message, Stack: captureStack(1)}
}

// InputError reports a malformed batch document or item.
func InputError(message string) *AppError {
	return &AppError{Code: ErrCodeInput, Message: message, Stack: captureStack(1)}
}

// UpstreamError reports a failed call to the conversation backend.
func UpstreamError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeUpstream, Message: message, Cause: cause, Stack: captureStack(1)}
}

// TimeoutError reports that polling ran out of attempts.
func TimeoutError(message string) *AppError {
	return &AppError{Code: ErrCodeTimeout, Message: message, Stack: captureStack(1)}
}

// ParseError reports an assistant reply that is not the expected JSON object.
func ParseError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeParse, Message: message, Cause: cause, Stack: captureStack(1)}
}

// DeliveryError reports a failed callback delivery.
func DeliveryError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeDelivery, Message: message, Cause: cause, Stack: captureStack(1)}
}

// IOError reports a failure to read from a data source such as the object store.
func IOError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeDataSourceUnavailable, Message: message, Cause: cause, Stack: captureStack(1)}
}

//Personal.AI order the ending
