package gateway

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned for a 404 response.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the server rejects the request and no
	// refresh could fix it.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotNIfTI is returned by Upload for files without a .nii extension.
	ErrNotNIfTI = errors.New("only .nii files can be uploaded")
)

// NetworkError wraps a transport level failure.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError is a non-2xx response other than 404 and 401.
type StatusError struct {
	Method    string
	URL       string
	Code      int
	RequestID string
	Body      string
}

func (e *StatusError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: status %d", e.Method, e.URL, e.Code)
	if e.Body != "" {
		fmt.Fprintf(&b, ": %s", e.Body)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " (request %s)", e.RequestID)
	}
	return b.String()
}
