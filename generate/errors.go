package generate

import (
	"errors"
	"fmt"
	"time"
)

// Errors that reach the caller. Everything else is absorbed with a fallback
// or reported as an internal fault.
var (
	ErrInvalidInput     = errors.New("a valid http(s) URL is required")
	ErrRateLimited      = errors.New("free usage limit exceeded")
	ErrGenerationFailed = errors.New("text generation failed")
)

// RateLimitError carries the quota state of a rejected request. It matches
// ErrRateLimited with errors.Is.
type RateLimitError struct {
	Remaining int
	ResetAt   time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%v: %d remaining, resets at %s", ErrRateLimited, e.Remaining, e.ResetAt.Format(time.RFC3339))
}

// Is reports whether target is ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
