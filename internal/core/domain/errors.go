package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrQueryNotFound    = errors.New("query not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidDomain    = errors.New("invalid domain")

	// ErrBackendUnavailable marks a vector index or embedding provider
	// that is unreachable or timed out. The retrieval orchestrator
	// recovers from it locally; it only surfaces when every backend
	// failed.
	ErrBackendUnavailable = errors.New("backend unavailable")

	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
