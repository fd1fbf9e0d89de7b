package twitter

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrUnauthorized     = errors.New("twitter: unauthorized")
	ErrBadRequest       = errors.New("twitter: bad request")
	ErrRateLimited      = errors.New("twitter: rate limited")
	ErrNotFound         = errors.New("twitter: not found")
	ErrMalformedPage    = errors.New("twitter: malformed page")
	ErrResponseTooLarge = errors.New("twitter: response too large")
)

// HTTPError is a non-2xx response of the remote API.
type HTTPError struct {
	StatusCode int
	Title      string
	Detail     string
	// ResetAt is set on 429 responses carrying x-rate-limit-reset.
	ResetAt time.Time
}

func (e *HTTPError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("twitter: http %d: %s", e.StatusCode, e.Detail)
	case e.Title != "":
		return fmt.Sprintf("twitter: http %d: %s", e.StatusCode, e.Title)
	default:
		return fmt.Sprintf("twitter: http %d", e.StatusCode)
	}
}

// Is maps the status code to the matching sentinel so callers can use
// errors.Is(err, ErrUnauthorized).
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsUnauthorized reports whether err is an authorization failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
