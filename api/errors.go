package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyBaseURL is returned by New when no base URL is given.
	ErrEmptyBaseURL = errors.New("api base url is empty")
)

// StatusError is returned when the remote service answers with a non-2xx status.
type StatusError struct {
	Method     string // Method of the failed request.
	Path       string // Path of the failed request, relative to the base URL.
	StatusCode int    // Status code of the response.
	Body       string // Readable excerpt of the response body.
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s : %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s : %d %s : %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// IsNotFound reports whether err is a StatusError with a 404 status.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
