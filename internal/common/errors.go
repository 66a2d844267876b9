package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes for the pipeline stages.
const (
	CodeConfig             = "CONFIG_ERROR"
	CodeCapture            = "CAPTURE_ERROR"
	CodeExtraction         = "EXTRACTION_ERROR"
	CodeParsing            = "PARSING_ERROR"
	CodeDateConversion     = "DATE_CONVERSION_ERROR"
	CodePersistence        = "PERSISTENCE_ERROR"
	CodeCalendarPermission = "CALENDAR_PERMISSION_ERROR"
	CodeCalendarWrite      = "CALENDAR_WRITE_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")

	ErrInvalidImage      = errors.New("invalid image")
	ErrNoTextFound       = errors.New("no text found")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrMalformedResponse = errors.New("malformed response")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func NewCaptureError(message string, cause error) *AppError {
	return NewAppError(CodeCapture, message, cause)
}

func NewExtractionError(message string, cause error) *AppError {
	return NewAppError(CodeExtraction, message, cause)
}

func NewParsingError(message string, cause error) *AppError {
	return NewAppError(CodeParsing, message, cause)
}

func NewDateConversionError(message string, cause error) *AppError {
	return NewAppError(CodeDateConversion, message, cause)
}

func NewPersistenceError(message string, cause error) *AppError {
	return NewAppError(CodePersistence, message, cause)
}

func NewCalendarPermissionError(message string, cause error) *AppError {
	return NewAppError(CodeCalendarPermission, message, cause)
}

func NewCalendarWriteError(message string, cause error) *AppError {
	return NewAppError(CodeCalendarWrite, message, cause)
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var ae *AppError
		if !errors.As(err, &ae) {
			return false
		}
		if ae.Code == code {
			return true
		}
		err = ae.Cause
	}
	return false
}

// APIError is a non-success answer from the parsing endpoint.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return "api error: " + e.Message
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// ToStatus maps domain errors onto gRPC status codes.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &apiErr):
		return status.Error(codes.Unavailable, err.Error())
	case HasCode(err, CodeCalendarPermission):
		return status.Error(codes.PermissionDenied, err.Error())
	case HasCode(err, CodeCapture), HasCode(err, CodeExtraction), HasCode(err, CodeParsing):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
