package models

import (
	"errors"
	"fmt"
)

// Error codes carried by ScrapeError. The CLI maps them to exit behavior:
// only failures that leave zero usable data are allowed to abort the run.
const (
	ErrCodeBrowserLaunch = "BROWSER_LAUNCH_FAILED"
	ErrCodeNavigation    = "NAVIGATION_FAILED"
	ErrCodeTimeout       = "SCRAPE_TIMEOUT"
	ErrCodeTableWait     = "TABLE_WAIT_TIMEOUT"
	ErrCodeLogin         = "LOGIN_FAILED"
	ErrCodeExtraction    = "EXTRACTION_FAILED"
)

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

// HasCode reports whether err (or anything it wraps) is a ScrapeError
// with the given code.
func HasCode(err error, code string) bool {
	var se *ScrapeError
	return errors.As(err, &se) && se.Code == code
}
