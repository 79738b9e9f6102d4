package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a gistdl error code.
type ErrorCode string

const (
	ErrInvalidConfig   ErrorCode = "INVALID_CONFIG"
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrListingFailed   ErrorCode = "LISTING_FAILED"
	ErrDirectoryFailed ErrorCode = "DIRECTORY_FAILED"
	ErrDownloadFailed  ErrorCode = "DOWNLOAD_FAILED"
	ErrWriteFailed     ErrorCode = "WRITE_FAILED"
	ErrCancelled       ErrorCode = "CANCELLED"
	ErrInternal        ErrorCode = "INTERNAL"
)

// GistError represents a structured error with code, message and details.
type GistError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error // underlying cause, may be nil
}

// Error implements the error interface.
func (e *GistError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *GistError) Unwrap() error {
	return e.Err
}

// NewInvalidConfig creates an error for missing or malformed configuration.
func NewInvalidConfig(msg string) *GistError {
	return &GistError{
		Code:    ErrInvalidConfig,
		Message: msg,
	}
}

// NewInvalidRequest creates an error for invalid request parameters.
func NewInvalidRequest(msg string) *GistError {
	return &GistError{
		Code:    ErrInvalidRequest,
		Message: msg,
	}
}

// NewNotFound creates an error for a missing run or record.
func NewNotFound(identifier string) *GistError {
	return &GistError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewListingFailed creates an error for a failed gist listing request.
// page is the 1-based page that failed; status is the HTTP status or 0 for transport errors.
func NewListingFailed(page, status int, err error) *GistError {
	msg := fmt.Sprintf("listing page %d failed", page)
	if status != 0 {
		msg = fmt.Sprintf("listing page %d failed: HTTP %d", page, status)
	} else if err != nil {
		msg = fmt.Sprintf("listing page %d failed: %v", page, err)
	}
	return &GistError{
		Code:    ErrListingFailed,
		Message: msg,
		Details: map[string]any{"page": page, "status": status},
		Err:     err,
	}
}

// NewDirectoryFailed creates an error for a gist directory that could not be created.
func NewDirectoryFailed(dir string, err error) *GistError {
	return &GistError{
		Code:    ErrDirectoryFailed,
		Message: fmt.Sprintf("cannot create directory %s: %v", dir, err),
		Details: map[string]any{"dir": dir},
		Err:     err,
	}
}

// NewDownloadFailed creates an error for a raw content retrieval failure.
func NewDownloadFailed(url string, status int, err error) *GistError {
	msg := fmt.Sprintf("download of %s failed", url)
	if status != 0 {
		msg = fmt.Sprintf("download of %s failed: HTTP %d", url, status)
	} else if err != nil {
		msg = fmt.Sprintf("download of %s failed: %v", url, err)
	}
	return &GistError{
		Code:    ErrDownloadFailed,
		Message: msg,
		Details: map[string]any{"url": url, "status": status},
		Err:     err,
	}
}

// NewWriteFailed creates an error for a local write failure.
func NewWriteFailed(path string, err error) *GistError {
	return &GistError{
		Code:    ErrWriteFailed,
		Message: fmt.Sprintf("cannot write %s: %v", path, err),
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// NewCancelled creates an error for an operation aborted by context cancellation.
func NewCancelled(operation string) *GistError {
	return &GistError{
		Code:    ErrCancelled,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewInternal creates an error for unexpected internal errors.
func NewInternal(err error) *GistError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &GistError{
		Code:    ErrInternal,
		Message: msg,
		Err:     err,
	}
}

// Is checks if err, or any error it wraps, is a GistError with the given code.
func Is(err error, code ErrorCode) bool {
	var gErr *GistError
	if stderrors.As(err, &gErr) {
		return gErr.Code == code
	}
	return false
}

// CodeOf returns the code of a GistError, or ErrInternal for any other error.
func CodeOf(err error) ErrorCode {
	var gErr *GistError
	if stderrors.As(err, &gErr) {
		return gErr.Code
	}
	return ErrInternal
}
