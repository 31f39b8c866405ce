package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/editor"
	"github.com/rpggio/pagesmith/internal/generation"
)

// ErrUnknownMethod is returned by Handle for an unrecognized tool name.
var ErrUnknownMethod = errors.New("unknown method")

// Stable error codes returned to MCP clients.
const (
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeGenerationInvalid = "GENERATION_INVALID"
	CodePersistenceFailed = "PERSISTENCE_FAILED"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeNotFound          = "NOT_FOUND"
	CodeUnknownMethod     = "UNKNOWN_METHOD"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	Retryable    bool   `json:"retryable,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
	Err          error  `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain errors to MCP error codes. It returns nil for errors
// outside the known kinds.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, editor.ErrUnauthenticated):
		return &APIError{Code: CodeUnauthenticated, Message: err.Error(), Err: err, RecoveryHint: "Call sign_in first"}
	case errors.Is(err, editor.ErrNotFound):
		return &APIError{Code: CodeNotFound, Message: err.Error(), Err: err, RecoveryHint: "Check the id; list_projects and get_state show what exists"}
	case errors.Is(err, document.ErrValidation):
		apiErr := &APIError{Code: CodeValidationFailed, Message: err.Error(), Err: err, RecoveryHint: "Fix the input; nothing was changed"}
		var verr *document.ValidationError
		if errors.As(err, &verr) && verr.Field != "" {
			apiErr.Details = map[string]string{"field": verr.Field}
		}
		return apiErr
	case errors.Is(err, generation.ErrNotConfigured):
		return &APIError{Code: CodeGenerationInvalid, Message: err.Error(), Err: err, RecoveryHint: "Set generation.api_key or GEMINI_API_KEY and restart the server"}
	case errors.Is(err, generation.ErrGenerationInvalid):
		return &APIError{Code: CodeGenerationInvalid, Message: err.Error(), Err: err, Retryable: true, RecoveryHint: "Nothing was created; retry or rephrase the description"}
	case errors.Is(err, editor.ErrPersistence):
		apiErr := &APIError{Code: CodePersistenceFailed, Message: err.Error(), Err: err, RecoveryHint: "The edit is kept locally; call retry_writes"}
		var perr *editor.PersistenceError
		if errors.As(err, &perr) {
			apiErr.Retryable = perr.Retryable()
			apiErr.Details = map[string]string{"op": perr.Op, "kind": string(perr.Kind), "id": perr.ID}
		}
		return apiErr
	case errors.Is(err, ErrUnknownMethod):
		return &APIError{Code: CodeUnknownMethod, Message: err.Error(), Err: err, RecoveryHint: "Call tools/list for the available tools"}
	default:
		return nil
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
