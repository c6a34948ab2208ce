package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/rileyhilliard/statuspage/internal/api"
	"github.com/rileyhilliard/statuspage/internal/errors"
)

// Machine mode flag - when true, outputs JSON and suppresses human-friendly decorations
var machineMode bool

// MachineMode returns true if machine-readable output is enabled
func MachineMode() bool {
	return machineMode
}

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Error codes for machine-readable output.
// These map to specific actions an LLM/automation can take.
const (
	ErrCodeConfigNotFound = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "CONFIG_INVALID"
	ErrCodeConnectFailed  = "CONNECT_FAILED"
	ErrCodeBackendError   = "BACKEND_ERROR"
	ErrCodeTriggerFailed  = "TRIGGER_FAILED"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeUnknown        = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	env := JSONEnvelope{
		Success: true,
		Data:    data,
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONError writes an error response to the writer.
func WriteJSONError(w io.Writer, code, message, suggestion string, details interface{}) error {
	env := JSONEnvelope{
		Success: false,
		Error: &JSONError{
			Code:       code,
			Message:    message,
			Suggestion: suggestion,
			Details:    details,
		},
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	jsonErr := ErrorToJSON(err)
	env := JSONEnvelope{
		Success: false,
		Error:   jsonErr,
	}
	return writeJSONEnvelope(w, env)
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	// Check if it's our structured error type
	var spErr *errors.Error
	if stderrors.As(err, &spErr) {
		return &JSONError{
			Code:       mapErrorCode(spErr.Code, spErr.Message),
			Message:    spErr.Message,
			Suggestion: spErr.Suggestion,
			Details:    backendDetails(err),
		}
	}

	// Bare client errors
	if api.IsTransport(err) {
		return &JSONError{
			Code:    ErrCodeConnectFailed,
			Message: err.Error(),
			Details: backendDetails(err),
		}
	}
	var statusErr *api.StatusError
	if stderrors.As(err, &statusErr) {
		return &JSONError{
			Code:    ErrCodeBackendError,
			Message: api.Detail(err),
			Details: backendDetails(err),
		}
	}

	// Generic error
	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(internalCode, message string) string {
	switch internalCode {
	case errors.ErrConfig:
		// Distinguish between not found and invalid
		msgLower := strings.ToLower(message)
		if strings.Contains(msgLower, "not found") || strings.Contains(msgLower, "couldn't find") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrConnect:
		return ErrCodeConnectFailed
	case errors.ErrBackend:
		return ErrCodeBackendError
	case errors.ErrTrigger:
		return ErrCodeTriggerFailed
	case errors.ErrInput:
		return ErrCodeInvalidInput
	}

	return ErrCodeUnknown
}

// backendDetails exposes the request behind a client failure, or nil.
func backendDetails(err error) interface{} {
	var transportErr *api.TransportError
	if stderrors.As(err, &transportErr) {
		return map[string]interface{}{
			"method": transportErr.Method,
			"url":    transportErr.URL,
		}
	}
	var statusErr *api.StatusError
	if stderrors.As(err, &statusErr) {
		return map[string]interface{}{
			"status": statusErr.StatusCode,
			"detail": statusErr.Detail,
		}
	}
	return nil
}
