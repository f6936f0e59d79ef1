package api

import (
	"errors"
	"fmt"

	"github.com/hellofit/fitledger/internal/feed"
	"github.com/hellofit/fitledger/internal/ledger"
)

// Application-level JSON-RPC error codes, in the implementation-defined
// -32000..-32099 range.
const (
	ErrServerError      = -32000
	ErrNotAuthenticated = -32001
	ErrAlreadyPlanned   = -32002
	ErrPartialApply     = -32003
	ErrNotFound         = -32004
)

// Error represents an API error
type Error struct {
	Code    int
	Message string
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// classifyError maps service failures onto JSON-RPC error codes so clients
// can branch without parsing messages.
func classifyError(err error) (int, string) {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code, apiErr.Message
	case errors.Is(err, ledger.ErrNotAuthenticated):
		return ErrNotAuthenticated, "Not signed in"
	case errors.Is(err, ledger.ErrAlreadyPlanned):
		return ErrAlreadyPlanned, "Already added for today"
	case errors.Is(err, ledger.ErrPartialApply):
		return ErrPartialApply, "Completion partially applied"
	case errors.Is(err, ledger.ErrNotInCatalog), errors.Is(err, feed.ErrPostNotFound):
		return ErrNotFound, "Not found"
	default:
		return ErrServerError, "Server error"
	}
}
