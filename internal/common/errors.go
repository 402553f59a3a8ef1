package common

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the extraction pipeline. Everything else is
// absorbed by the stage that produced it.
var (
	ErrFetch           = errors.New("document fetch failed")
	ErrDocumentParse   = errors.New("document parse failed")
	ErrConfiguration   = errors.New("missing configuration")
	ErrNoTextExtracted = errors.New("no text extracted")
)

// AppError carries a stable code plus the error kind it belongs to, so
// callers can branch with errors.Is against the sentinels above.
type AppError struct {
	Code    string
	Message string
	Kind    error
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func NewFetchError(message string, cause error) *AppError {
	return &AppError{Code: "FETCH_ERROR", Message: message, Kind: ErrFetch, Cause: cause}
}

func NewDocumentParseError(message string, cause error) *AppError {
	return &AppError{Code: "DOCUMENT_PARSE_ERROR", Message: message, Kind: ErrDocumentParse, Cause: cause}
}

func NewConfigurationError(message string) *AppError {
	return &AppError{Code: "CONFIGURATION_ERROR", Message: message, Kind: ErrConfiguration}
}

func NewNoTextExtractedError(message string) *AppError {
	return &AppError{Code: "NO_TEXT_EXTRACTED", Message: message, Kind: ErrNoTextExtracted}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
