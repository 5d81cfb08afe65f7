package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentloop/internal/util"
)

// ErrorCode classifies tool failures with stable machine readable codes.
type ErrorCode string

const (
	// CodeUnknownTool means the requested tool is not registered.
	CodeUnknownTool ErrorCode = "UNKNOWN_TOOL"
	// CodeInvalidArguments means the arguments failed schema validation.
	CodeInvalidArguments ErrorCode = "INVALID_ARGUMENTS"
	// CodeExecutionError means the handler failed or panicked.
	CodeExecutionError ErrorCode = "EXECUTION_ERROR"
	// CodePathOutsideSandbox means a file path escaped the sandbox root.
	CodePathOutsideSandbox ErrorCode = "PATH_OUTSIDE_SANDBOX"
	// CodeFileNotFound means the target file does not exist.
	CodeFileNotFound ErrorCode = "FILE_NOT_FOUND"
	// CodeNotAFile means the target exists but is not a regular file.
	CodeNotAFile ErrorCode = "NOT_A_FILE"
	// CodeNotADirectory means the target exists but is not a directory.
	CodeNotADirectory ErrorCode = "NOT_A_DIRECTORY"
	// CodeFileTooLarge means the file exceeds the configured size cap.
	CodeFileTooLarge ErrorCode = "FILE_TOO_LARGE"
	// CodeFileTypeNotAllowed means the extension is not on the allow list.
	CodeFileTypeNotAllowed ErrorCode = "FILE_TYPE_NOT_ALLOWED"
	// CodeEncodingError means the file content could not be decoded.
	CodeEncodingError ErrorCode = "ENCODING_ERROR"
	// CodeInvalidExpression means the calculator rejected the expression.
	CodeInvalidExpression ErrorCode = "INVALID_EXPRESSION"
	// CodeDivisionByZero means the expression divides by zero.
	CodeDivisionByZero ErrorCode = "DIVISION_BY_ZERO"
	// CodeResultOutOfRange means the numeric result exceeds safe bounds.
	CodeResultOutOfRange ErrorCode = "RESULT_OUT_OF_RANGE"
	// CodeUnavailable means an environment lookup could not be completed.
	CodeUnavailable ErrorCode = "UNAVAILABLE"
)

// Result is the outcome of a tool invocation. Exactly one of the success
// payload or the error code/message pair is meaningful, selected by OK.
type Result struct {
	OK      bool      `json:"ok"`
	Payload string    `json:"payload,omitempty"`
	Code    ErrorCode `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Ok creates a success result with the given payload.
func Ok(payload string) Result {
	return Result{OK: true, Payload: payload}
}

// Err creates a failure result with a code and message.
func Err(code ErrorCode, message string) Result {
	return Result{Code: code, Message: message}
}

// Errf creates a failure result with a formatted message.
func Errf(code ErrorCode, format string, args ...any) Result {
	return Result{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Output renders the result as the text fed back to the model. Failures keep
// the "Error (CODE): message" shape so the model can react to the code.
func (r Result) Output() string {
	if r.OK {
		return r.Payload
	}
	return fmt.Sprintf("Error (%s): %s", r.Code, r.Message)
}

// Handler executes a tool with validated arguments.
type Handler func(ctx context.Context, args map[string]any) Result

// Spec declares a tool: its identity, the JSON schema of its arguments and
// the handler that runs it.
type Spec struct {
	// Name is the unique tool identifier, e.g. "read_file".
	Name string
	// Description explains the tool to the model.
	Description string
	// Parameters is a JSON schema object describing the arguments.
	Parameters map[string]any
	// Handler is invoked after argument validation succeeds.
	Handler Handler
}

// NewSpecFromStruct builds a Spec whose parameter schema is derived from a Go
// struct via reflection: json tags name the fields, description tags document
// them, pointer and omitempty fields are optional.
func NewSpecFromStruct(name, description string, params any, handler Handler) *Spec {
	return &Spec{
		Name:        name,
		Description: description,
		Parameters:  util.CreateSchema(params),
		Handler:     handler,
	}
}

// DuplicateToolError is returned when registering a name twice.
type DuplicateToolError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool '%s' is already registered", e.Name)
}

// SpecError is returned when a spec is malformed.
type SpecError struct {
	Name    string
	Message string
}

// Error implements the error interface.
func (e *SpecError) Error() string {
	return fmt.Sprintf("invalid tool spec '%s': %s", e.Name, e.Message)
}
