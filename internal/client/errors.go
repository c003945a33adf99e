// ABOUTME: Error classification for Cashly API calls
// ABOUTME: Separates authentication rejections from transient failures

package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTransport marks failures that never produced an HTTP response
var ErrTransport = errors.New("transport failure")

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsAuthRejected reports whether the backend refused the credential (401/403)
func IsAuthRejected(err error) bool {
	switch StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

// IsTransient reports whether err is a network, timeout or server-side failure
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransport) {
		return true
	}
	code := StatusCode(err)
	return code >= 500 || code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}
