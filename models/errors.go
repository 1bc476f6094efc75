package models

import "fmt"

// Error codes surfaced in API responses. The scrape codes double as the
// categories the scraper sorts low-level fetch failures into.
const (
	ErrCodeTimeout      = "SCRAPE_TIMEOUT"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeReadability  = "CONTENT_EXTRACTION_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// Refinement error codes, mapped from LLM provider failures.
const (
	ErrCodeLLMFailure     = "LLM_FAILURE"
	ErrCodeLLMAuthFailure = "LLM_AUTH_FAILURE"
	ErrCodeLLMRateLimited = "LLM_RATE_LIMITED"
)

// ScrapeError carries an error code through the call stack so the API layer
// can map failures to HTTP statuses without string matching. It wraps the
// causing error for errors.Is and errors.As.
type ScrapeError struct {
	Code    string
	Message string
	Err     error
}

// NewScrapeError builds a coded error around err, which may be nil.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// ErrorDetail is the error object embedded in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToDetail strips the wrapped cause, leaving what the API exposes.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
