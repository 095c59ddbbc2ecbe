// Package errors provides the retrieval engine's closed error taxonomy.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes. This is a closed taxonomy: every error raised anywhere in the
// retrieval path is one of these kinds.
const (
	// CodeInvariant marks a precondition violation (e.g. a missing tenant
	// id). Never recovered; always propagates to the caller.
	CodeInvariant = "INVARIANT"

	// CodeBadInput marks a caller-supplied value that is out of range or
	// malformed (unknown tier name, unknown strategy).
	CodeBadInput = "BAD_INPUT"

	// CodeUnavailable marks a transient collaborator failure (vector store
	// transport, embedder remote endpoint, LLM provider).
	CodeUnavailable = "UNAVAILABLE"

	// CodeTimeout marks a bounded wait that elapsed.
	CodeTimeout = "TIMEOUT"

	// CodeRateLimited marks a sliding-window limiter denial. Details carries
	// "kind" (requests|budget) and "retry_after_seconds".
	CodeRateLimited = "RATE_LIMITED"

	// CodeNotFound marks an absent collection or resource.
	CodeNotFound = "NOT_FOUND"

	// CodeInternal marks any otherwise-unclassified fault.
	CodeInternal = "INTERNAL"
)

// RateLimitKind distinguishes the two sliding-window limiter failure modes.
type RateLimitKind string

const (
	RateLimitKindRequests RateLimitKind = "requests"
	RateLimitKindBudget   RateLimitKind = "budget"
)

// AppError represents a taxonomy-classified error.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the taxonomy onto the out-of-scope transport layer's status
// codes, for collaborators that choose to surface errors over HTTP.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeInvariant, CodeBadInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors, one per taxonomy member.

// InvariantError reports a precondition violation. Never caught.
func InvariantError(message string) *AppError {
	return New(CodeInvariant, message)
}

// BadInputError reports a malformed or out-of-range caller value.
func BadInputError(message string) *AppError {
	return New(CodeBadInput, message)
}

// NotFoundError reports an absent collection or resource.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// InternalError wraps any otherwise-unclassified fault.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// UnavailableError reports a transient collaborator failure.
func UnavailableError(service string, err error) *AppError {
	message := "service unavailable"
	if service != "" {
		message = fmt.Sprintf("%s is unavailable", service)
	}
	return Wrap(CodeUnavailable, message, err)
}

// TimeoutErr reports a bounded wait that elapsed for the named operation.
func TimeoutErr(operation string) *AppError {
	message := "operation timed out"
	if operation != "" {
		message = fmt.Sprintf("%s timed out", operation)
	}
	return New(CodeTimeout, message)
}

// RateLimitedError reports a sliding-window limiter denial.
func RateLimitedError(kind RateLimitKind, retryAfterSeconds float64) *AppError {
	err := New(CodeRateLimited, fmt.Sprintf("rate limit exceeded (%s)", kind))
	err = err.WithDetail("kind", string(kind))
	err = err.WithDetail("retry_after_seconds", fmt.Sprintf("%.3f", retryAfterSeconds))
	return err
}

// IsNotFound reports whether err is a NotFound application error.
func IsNotFound(err error) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == CodeNotFound
}

// IsInvariant reports whether err is an Invariant application error.
func IsInvariant(err error) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == CodeInvariant
}

// IsRateLimited reports whether err is a RateLimited application error, and
// if so what kind and retry-after it carries.
func IsRateLimited(err error) (kind RateLimitKind, retryAfterSeconds float64, ok bool) {
	appErr, isApp := err.(*AppError)
	if !isApp || appErr.Code != CodeRateLimited {
		return "", 0, false
	}
	kind = RateLimitKind(appErr.Details["kind"])
	fmt.Sscanf(appErr.Details["retry_after_seconds"], "%f", &retryAfterSeconds)
	return kind, retryAfterSeconds, true
}

// ErrorResponse is the standard JSON error response shape for the
// out-of-scope transport layer.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON error response to the ResponseWriter.
func WriteJSON(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteError writes an error response, using the AppError's own code and
// status when available and sanitizing unclassified errors.
func WriteError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*AppError); ok {
		WriteJSON(w, appErr.HTTPStatus(), ErrorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}

	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal server error",
		Code:    CodeInternal,
		Message: "An unexpected error occurred",
	})
}
