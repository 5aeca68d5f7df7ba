package domain

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError represents a file or resource that was not found at a
// specific ref.
type NotFoundError struct {
	Resource string
	Ref      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found at ref %s", e.Resource, e.Ref)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, ref string) *NotFoundError {
	return &NotFoundError{Resource: resource, Ref: ref}
}

// IsNotFound checks if an error is or wraps a NotFoundError. It also matches
// common "not found" messages from external systems (GitHub API, filesystem)
// that cannot be typed at the source.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{"not found", "no such file or directory", "404"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
