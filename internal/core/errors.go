package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Upstream error defaults
const (
	DefaultUpstreamStatus = http.StatusInternalServerError
	DefaultUpstreamDetail = "Server Connection Error"
)

var (
	// ErrBackendUnreachable marks a model-list fetch that failed at the network or decode level.
	ErrBackendUnreachable = errors.New("backend unreachable")
	// ErrModelNotFound is matched by every ModelNotFoundError.
	ErrModelNotFound = errors.New("model not found")
	// ErrBackendIndexOutOfRange is returned for an explicit backend index outside the configured list.
	ErrBackendIndexOutOfRange = errors.New("backend index out of range")
	// ErrAPIDisabled is returned while the OpenAI API is switched off.
	ErrAPIDisabled = errors.New("openai api is disabled")
)

// ModelNotFoundError reports a model id absent from the current catalog.
type ModelNotFoundError struct {
	ModelID string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %q not found", e.ModelID)
}

// Is makes errors.Is(err, ErrModelNotFound) match.
func (e *ModelNotFoundError) Is(target error) bool {
	return target == ErrModelNotFound
}

// UpstreamError is the single failure shape of a resolved completion call.
type UpstreamError struct {
	StatusCode int
	Detail     string
	Err        error
}

// NewUpstreamError fills in the default status and detail when they are unknown.
func NewUpstreamError(status int, detail string, cause error) *UpstreamError {
	if status <= 0 {
		status = DefaultUpstreamStatus
	}
	if detail == "" {
		detail = DefaultUpstreamDetail
	}
	return &UpstreamError{StatusCode: status, Detail: detail, Err: cause}
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream error (status %d): %s: %v", e.StatusCode, e.Detail, e.Err)
	}
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Detail)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// BackendIndexError carries the offending index and the configured count.
type BackendIndexError struct {
	Index int
	Count int
}

func (e *BackendIndexError) Error() string {
	return fmt.Sprintf("backend index %d out of range [0, %d)", e.Index, e.Count)
}

func (e *BackendIndexError) Is(target error) bool {
	return target == ErrBackendIndexOutOfRange
}

// StatusCodeFor maps a gateway error onto the HTTP status returned to the caller.
func StatusCodeFor(err error) int {
	var upstream *UpstreamError
	switch {
	case errors.As(err, &upstream):
		return upstream.StatusCode
	case errors.Is(err, ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBackendIndexOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, ErrAPIDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// MessageFor returns the caller-visible message of a gateway error.
func MessageFor(err error) string {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Detail
	}
	return err.Error()
}
