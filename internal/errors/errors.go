// Package errors defines the service-level error taxonomy and its mapping
// onto HTTP responses. Handlers stay clean by funneling every service error
// through Abort.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// gormNotFound lets Abort translate raw repository misses without every
// service having to re-wrap them.
var gormNotFound = gorm.ErrRecordNotFound

var (
	// ErrValidation marks malformed or rejected input. No state is mutated.
	ErrValidation = errors.New("validation failed")

	// ErrNotMatched marks messaging or history access without a mutual match.
	ErrNotMatched = errors.New("users are not matched")

	// ErrForbidden marks an action against a user in the blocking exclusion set.
	ErrForbidden = errors.New("action not allowed")

	// ErrDuplicate marks an already-existing pair relationship. Callers treat
	// it as a no-op success, not a hard failure.
	ErrDuplicate = errors.New("relationship already exists")

	ErrNotFound = errors.New("record not found")

	// ErrExternal marks a collaborator failure (mail, geocoding). It is always
	// swallowed at the call boundary and never reaches a handler.
	ErrExternal = errors.New("external service failure")
)

// Validationf wraps ErrValidation with a caller-facing reason.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Forbiddenf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

// Abort writes the HTTP response for a service error. Infra errors that carry
// no taxonomy sentinel become opaque 500s.
func Abort(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotMatched):
		c.JSON(http.StatusForbidden, gin.H{"error": "you must match with this user first"})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrDuplicate):
		// Idempotent re-submission reads as success.
		c.JSON(http.StatusOK, gin.H{"message": "already done"})
	case errors.Is(err, ErrNotFound), errors.Is(err, gormNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
