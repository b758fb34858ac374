package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/teamwork/internal/domain/shared"
)

// Stable error codes returned to clients.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeMalformedQuery   = "MALFORMED_QUERY"
	CodeStorageFailure   = "STORAGE_FAILURE"
	CodeInternal         = "INTERNAL"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var kindCodes = []struct {
	kind error
	code string
	hint string
}{
	{shared.ErrValidation, CodeValidationFailed, "Fix the listed input and retry"},
	{shared.ErrForbidden, CodeForbidden, "Check the caller's role and project membership"},
	{shared.ErrNotFound, CodeNotFound, "Check ID spelling"},
	{shared.ErrConflict, CodeConflict, "Reload the entity and retry"},
	{shared.ErrMalformedQuery, CodeMalformedQuery, "See teamwork://docs/query for the listing syntax"},
	{shared.ErrStorage, CodeStorageFailure, "Retry later"},
}

// MapError maps domain errors to MCP error codes. Errors outside the
// taxonomy become INTERNAL.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, kc := range kindCodes {
		if errors.Is(err, kc.kind) {
			return &APIError{Code: kc.code, Message: err.Error(), RecoveryHint: kc.hint}
		}
	}
	return &APIError{Code: CodeInternal, Message: err.Error()}
}
