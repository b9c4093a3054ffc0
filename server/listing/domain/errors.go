package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidFormat        = errors.New("unsupported image format")
	ErrTooLarge             = errors.New("image exceeds maximum size")
	ErrCorruptImage         = errors.New("image data could not be decoded")
	ErrDerivativeGeneration = errors.New("derivative generation failed")
	ErrNotFound             = errors.New("listing not found")
	ErrForbidden            = errors.New("not the listing owner")

	// ErrRecordWrite is the uniform caller-facing error for any failure of
	// the two-phase persistence, regardless of compensation outcome.
	ErrRecordWrite = errors.New("failed to save images")
)

type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violated field, not just the first.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field)
	}
	return "validation failed: " + strings.Join(fields, ", ")
}

type RateLimitError struct {
	Remaining int
	ResetAt   time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}
