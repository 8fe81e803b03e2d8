package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotAvailable  = errors.New("not available")
	ErrNotFound      = errors.New("not found")
	ErrNotConfigured = errors.New("not configured")

	ErrSourceFailed = errors.New("log source failed")
	ErrUpstream     = errors.New("upstream error")
	ErrUnavailable  = errors.New("service unavailable")
)

// UpstreamError несёт статус и сообщение, которые вернул upstream (Control API, LiveKit).
type UpstreamError struct {
	Status  int
	Message string
	URL     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s returned %d: %s", e.URL, e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

func ToHTTP(err error) int {
	var ue *UpstreamError
	if errors.As(err, &ue) && ue.Status >= 400 && ue.Status <= 599 {
		return ue.Status
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotAvailable), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
