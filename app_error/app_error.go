package app_error

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
)

// Sentinel errors for the competition engine. Controllers map these onto
// HTTP statuses; batch passes use them to decide between skip and abort.
var (
	ErrNotFound          = errors.New("not found")
	ErrNotYetConcluded   = errors.New("not yet concluded")
	ErrInconsistentState = errors.New("inconsistent competition state")
)

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// NotYetConcludedf signals that an evaluation was requested before its
// round or competition ended. Callers must not compute on partial data.
func NotYetConcludedf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotYetConcluded)...)
}

// InconsistentStatef signals that a competition's stored isActive and
// completionReason contradict each other. The state repair pass fixes it.
func InconsistentStatef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInconsistentState)...)
}

func WithHTTPStatus(c *gin.Context, err error, status int) {
	c.JSON(status, gin.H{"error": err.Error()})
}

// HTTPStatusFor maps engine errors onto HTTP statuses.
func HTTPStatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrNotYetConcluded):
		return 409
	case errors.Is(err, ErrInconsistentState):
		return 409
	default:
		return 500
	}
}
