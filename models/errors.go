package models

import "fmt"

// Error codes for every stage of a menu refresh.
const (
	ErrCodeTimeout          = "SCRAPE_TIMEOUT"
	ErrCodeNetwork          = "NETWORK_ERROR"
	ErrCodeScriptEvaluation = "SCRIPT_EVALUATION_FAILED"
	ErrCodeParsing          = "PARSING_FAILED"
	ErrCodeDecoding         = "DECODING_FAILED"
	ErrCodeBrowserCrash     = "BROWSER_CRASH"

	// ErrCodeEmptyResult is a soft condition: the page loaded and decoded
	// but no restaurant qualified.
	ErrCodeEmptyResult = "EMPTY_RESULT"
)

// MsgNoRestaurants is shown when a refresh found nothing and there is no
// cached data to fall back on.
const MsgNoRestaurants = "No restaurants found. The website structure may have changed."

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// UserMessage renders the error as text fit for the person looking at the
// lunch list.
func (e *ScrapeError) UserMessage() string {
	switch e.Code {
	case ErrCodeTimeout:
		return "Request timed out. Please check your internet connection."
	case ErrCodeNetwork:
		return "Network error: " + e.detail()
	case ErrCodeScriptEvaluation:
		return "Failed to read the page: " + e.detail()
	case ErrCodeParsing:
		return "Failed to parse restaurant data"
	case ErrCodeDecoding:
		return "Failed to decode data: " + e.detail()
	case ErrCodeEmptyResult:
		return MsgNoRestaurants
	default:
		return "Unexpected error: " + e.detail()
	}
}

func (e *ScrapeError) detail() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}
