package httpresp

import "time"

const (
	ErrUnauthorized       = "unauthorized"
	ErrMissingBearerToken = "bearer token is required"
	ErrInvalidToken       = "invalid token"
	ErrForbidden          = "forbidden"
	ErrInsufficientRole   = "insufficient permissions"
	ErrNotFound           = "not found"
	ErrSaveImagesFailed   = "failed to save images"
	ErrInternal           = "internal server error"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrorResponse struct {
	Error      string           `json:"error"`
	Violations []FieldViolation `json:"violations"`
}

type RateLimitResponse struct {
	Error     string    `json:"error"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

func NewOKResponse() OKResponse {
	return OKResponse{OK: true}
}

func NewValidationErrorResponse(violations []FieldViolation) ValidationErrorResponse {
	return ValidationErrorResponse{Error: "validation failed", Violations: violations}
}

func NewRateLimitResponse(remaining int, resetAt time.Time) RateLimitResponse {
	return RateLimitResponse{Error: "rate limit exceeded", Remaining: remaining, ResetAt: resetAt}
}
