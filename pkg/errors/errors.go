// Package errors provides the structured error taxonomy for the MCP
// engine. Every failure that can leave the engine is classified into a
// kind with a stable JSON-RPC error code, so transports never have to
// interpret raw Go errors.
package errors

import "fmt"

// Code is a stable JSON-RPC numeric error code.
type Code int

const (
	// Standard JSON-RPC 2.0 codes
	CodeParseError     Code = -32700
	CodeInvalidRequest Code = -32600
	CodeMethodNotFound Code = -32601
	CodeInvalidParams  Code = -32602
	CodeInternal       Code = -32603

	// MCP-specific codes
	CodeLimitExceeded  Code = -32000
	CodeNotInitialized Code = -32002
	CodeAccessDenied   Code = -32003
)

// Category classifies an error for logging and handling.
type Category string

const (
	CategoryProtocol   Category = "protocol"
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategoryLimits     Category = "limits"
	CategorySecurity   Category = "security"
	CategoryInternal   Category = "internal"
)

// MCPError is the interface all engine errors implement.
type MCPError interface {
	error

	// Code returns the JSON-RPC error code.
	Code() Code

	// Message returns the human-readable error message.
	Message() string

	// Detail returns additional technical detail, if any.
	Detail() string

	// Category returns the error category for classification.
	Category() Category

	// WithDetail returns a copy of the error with extra detail appended.
	WithDetail(detail string) MCPError

	// Unwrap returns the underlying cause for errors.Is/As traversal.
	Unwrap() error
}

type baseError struct {
	code     Code
	message  string
	detail   string
	category Category
	cause    error
}

func (e *baseError) Error() string {
	if e.detail != "" {
		return fmt.Sprintf("%s: %s", e.message, e.detail)
	}
	return e.message
}

func (e *baseError) Code() Code         { return e.code }
func (e *baseError) Message() string    { return e.message }
func (e *baseError) Detail() string     { return e.detail }
func (e *baseError) Category() Category { return e.category }
func (e *baseError) Unwrap() error      { return e.cause }

func (e *baseError) WithDetail(detail string) MCPError {
	copied := *e
	if copied.detail != "" {
		copied.detail = fmt.Sprintf("%s; %s", copied.detail, detail)
	} else {
		copied.detail = detail
	}
	return &copied
}

// New creates an MCPError with an explicit code, message and category.
func New(code Code, message string, category Category) MCPError {
	return &baseError{code: code, message: message, category: category}
}

// Newf creates an MCPError with a formatted message.
func Newf(code Code, category Category, format string, args ...interface{}) MCPError {
	return &baseError{code: code, message: fmt.Sprintf(format, args...), category: category}
}

// Wrap attaches a taxonomy classification to an underlying error.
func Wrap(err error, code Code, message string, category Category) MCPError {
	return &baseError{code: code, message: message, category: category, cause: err}
}

// Taxonomy constructors.

// ParseError marks bytes that could not be decoded as JSON.
func ParseError(detail string) MCPError {
	return &baseError{code: CodeParseError, message: "Parse error", detail: detail, category: CategoryProtocol}
}

// InvalidRequest marks a structurally malformed JSON-RPC envelope.
func InvalidRequest(detail string) MCPError {
	return &baseError{code: CodeInvalidRequest, message: "Invalid request", detail: detail, category: CategoryProtocol}
}

// InvalidParams marks missing or mistyped request parameters.
func InvalidParams(detail string) MCPError {
	return &baseError{code: CodeInvalidParams, message: "Invalid params", detail: detail, category: CategoryValidation}
}

// MethodNotFound marks an unknown method name; the message carries the
// client's original method string.
func MethodNotFound(method string) MCPError {
	return Newf(CodeMethodNotFound, CategoryNotFound, "Method not found: %s", method)
}

// UnknownTool marks a tools/call naming a tool the handler does not have.
func UnknownTool(name string) MCPError {
	return Newf(CodeMethodNotFound, CategoryNotFound, "Tool not found: %s", name)
}

// UnknownResource marks a resources/read for a URI the handler does not serve.
func UnknownResource(uri string) MCPError {
	return Newf(CodeMethodNotFound, CategoryNotFound, "Resource not found: %s", uri)
}

// UnknownPrompt marks a prompts/get naming a prompt the handler does not have.
func UnknownPrompt(name string) MCPError {
	return Newf(CodeMethodNotFound, CategoryNotFound, "Prompt not found: %s", name)
}

// NotInitialized marks a capability request on a session that has not
// completed the handshake.
func NotInitialized() MCPError {
	return New(CodeNotInitialized, "Not initialized", CategoryProtocol)
}

// UnsupportedProtocolVersion marks an initialize naming a revision
// outside the supported set.
func UnsupportedProtocolVersion(requested string, supported []string) MCPError {
	return Newf(CodeInternal, CategoryProtocol,
		"Unsupported protocol version: %s. Supported versions: %v", requested, supported)
}

// TooManySessions marks a session-store capacity violation.
func TooManySessions(max int) MCPError {
	return Newf(CodeLimitExceeded, CategoryLimits, "Too many sessions (max: %d)", max)
}

// MessageTooLarge marks an inbound frame or body over the size limit.
func MessageTooLarge(size, max int) MCPError {
	return Newf(CodeLimitExceeded, CategoryLimits, "Message too large: %d bytes (max: %d)", size, max)
}

// RateLimitExceeded marks a session that exhausted its token bucket.
func RateLimitExceeded() MCPError {
	return New(CodeLimitExceeded, "Rate limit exceeded", CategoryLimits)
}

// InvalidPath marks a path escaping the allowed roots.
func InvalidPath(path string) MCPError {
	return Newf(CodeAccessDenied, CategorySecurity, "Invalid path: %s", path)
}

// PermissionDenied marks an operation the caller may not perform.
func PermissionDenied(detail string) MCPError {
	return Newf(CodeAccessDenied, CategorySecurity, "Permission denied: %s", detail)
}

// Internal marks any other failure, including handler-originated ones.
func Internal(detail string) MCPError {
	return &baseError{code: CodeInternal, message: "Internal error", detail: detail, category: CategoryInternal}
}
