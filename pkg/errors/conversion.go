package errors

import "errors"

// FromError coerces any error into an MCPError. Errors already carrying
// a taxonomy classification pass through (including wrapped ones);
// everything else, handler failures included, becomes a generic internal
// error with code -32603.
func FromError(err error) MCPError {
	if err == nil {
		return nil
	}
	var mcpErr MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}
	return Wrap(err, CodeInternal, err.Error(), CategoryInternal)
}

// As extracts an MCPError from err's chain without converting.
func As(err error) (MCPError, bool) {
	var mcpErr MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given JSON-RPC code.
func IsCode(err error, code Code) bool {
	if mcpErr, ok := As(err); ok {
		return mcpErr.Code() == code
	}
	return false
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, category Category) bool {
	if mcpErr, ok := As(err); ok {
		return mcpErr.Category() == category
	}
	return false
}
