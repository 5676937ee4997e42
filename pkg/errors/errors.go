package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents a failed page fetch
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeExtraction represents a failure while processing one item block or card
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeSession represents browser session errors
	ErrorTypeSession ErrorType = "session"
	// ErrorTypeOutput represents errors while writing result files
	ErrorTypeOutput ErrorType = "output"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeNoData represents a run that finished without a single record
	ErrorTypeNoData ErrorType = "no_data"
)

// FetchKind narrows a network error down to what went wrong on the wire.
type FetchKind string

const (
	FetchTimeout    FetchKind = "timeout"
	FetchConnection FetchKind = "connection"
	FetchHTTPStatus FetchKind = "http_status"
	FetchOther      FetchKind = "other"
)

// CrawlerError represents a crawler-specific error
type CrawlerError struct {
	Type       ErrorType
	Kind       FetchKind
	StatusCode int
	Provider   string
	Message    string
	Err        error
	Time       time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	label := string(e.Type)
	if e.Kind != "" {
		label += "/" + string(e.Kind)
	}
	head := "[" + label + "]"
	if e.Provider != "" {
		head += " " + e.Provider + ":"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s - %v", head, e.Message, e.Err)
	}
	return head + " " + e.Message
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable.
// Nothing in the run retries on its own; the flag is informational for callers.
func (e *CrawlerError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return e.Kind == FetchTimeout || e.Kind == FetchConnection || e.StatusCode >= 500
	default:
		return false
	}
}

// New creates a new CrawlerError
func New(errType ErrorType, provider, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:     errType,
		Provider: provider,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewFetch creates a network error of the given kind
func NewFetch(kind FetchKind, provider, message string, err error) *CrawlerError {
	e := New(ErrorTypeNetwork, provider, message, err)
	e.Kind = kind
	return e
}

// NewHTTPStatus creates a network error for a response status >= 400
func NewHTTPStatus(provider string, status int) *CrawlerError {
	e := NewFetch(FetchHTTPStatus, provider, fmt.Sprintf("unexpected status code: %d", status), nil)
	e.StatusCode = status
	return e
}

// NewParsing creates a new parsing error
func NewParsing(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeParsing, provider, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(provider string, duration time.Duration) *CrawlerError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, provider, message, nil)
}

// NewExtraction creates an error for a single item that could not be processed
func NewExtraction(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeExtraction, provider, message, err)
}

// NewSession creates a new browser session error
func NewSession(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeSession, provider, message, err)
}

// NewOutput creates a new output error
func NewOutput(message string, err error) *CrawlerError {
	return New(ErrorTypeOutput, "", message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(provider, message string, err error) *CrawlerError {
	return New(ErrorTypePublisher, provider, message, err)
}

// NewValidation creates a new validation error
func NewValidation(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeValidation, provider, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// NewNoData creates the terminal error for a run that extracted nothing
func NewNoData(provider string) *CrawlerError {
	return New(ErrorTypeNoData, provider, "no data extracted", nil)
}

// TypeOf returns the ErrorType of the first CrawlerError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var ce *CrawlerError
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ""
}

// Is reports whether err carries a CrawlerError of the given type.
func Is(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}
