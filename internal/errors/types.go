package errors

// represents a standardized error response
type ErrorResponse struct {
	Error   string `json:"error"`             // error code (e.g., "unauthorized", "insufficient_credits")
	Message string `json:"message"`           // user-friendly message
	Details string `json:"details,omitempty"` // optional details (sanitized in production)
}

// insufficient-funds payload; the client uses it to open the paywall
type InsufficientCreditsResponse struct {
	ErrorResponse
	Required  int `json:"required"`
	Available int `json:"available"`
}

type ErrorInfo struct {
	category  string
	sanitized string
}

// standard error codes
const (
	CodeUnauthorized        = "unauthorized"
	CodeForbidden           = "forbidden"
	CodeNotFound            = "not_found"
	CodeValidationError     = "validation_error"
	CodeServerError         = "server_error"
	CodeBadRequest          = "bad_request"
	CodeConflict            = "conflict"
	CodeTooManyRequests     = "too_many_requests"
	CodeInsufficientCredits = "insufficient_credits"
	CodeGenerationFailed    = "generation_failed"
	CodeGenerationTimedOut  = "generation_timed_out"
	CodeUpstreamError       = "upstream_error"
)

// error categories for classification
const (
	CategoryDatabase   = "database"
	CategoryNetwork    = "network"
	CategoryValidation = "validation"
	CategoryAuth       = "auth"
	CategoryNotFound   = "not_found"
	CategoryTimeout    = "timeout"
	CategoryUnknown    = "unknown"
)
