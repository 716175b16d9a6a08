package llm

import "fmt"

// Error categories for generative-model client failures.
const (
	ErrorTypeNetwork    = "network"
	ErrorTypeAPI        = "api"
	ErrorTypeParse      = "parse"
	ErrorTypeValidation = "validation"
)

// Error represents a failure talking to or interpreting the model API.
type Error struct {
	Type    string
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("model %s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("model %s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newNetworkError(err error) *Error {
	return &Error{Type: ErrorTypeNetwork, Message: "model API unreachable", Err: err}
}

func newAPIError(code int, message string) *Error {
	return &Error{Type: ErrorTypeAPI, Code: code, Message: message}
}

func newParseError(content string, err error) *Error {
	return &Error{Type: ErrorTypeParse, Message: fmt.Sprintf("unusable model output: %.200s", content), Err: err}
}

func newValidationError(message string, err error) *Error {
	return &Error{Type: ErrorTypeValidation, Message: message, Err: err}
}
