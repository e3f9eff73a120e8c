// Package result defines the outcome type returned by every bridge operation
// and the closed set of error codes it can carry.
package result

import "fmt"

// ErrorCode classifies the outcome of a host operation. Values mirror the
// ReturnCode field of the host wire envelope: positive is success, zero is
// "not set", negative values are errors.
type ErrorCode int

const (
	CodeSuccess             ErrorCode = 1
	CodeNotSet              ErrorCode = 0
	CodeInvalidParameter    ErrorCode = -1
	CodeNotFound            ErrorCode = -2
	CodeUnauthorized        ErrorCode = -3
	CodeNotSupported        ErrorCode = -4
	CodeModuleNotLoaded     ErrorCode = -5
	CodeSdkNotLoaded        ErrorCode = -6
	CodeSdkNotInitialized   ErrorCode = -7
	CodeInvalidState        ErrorCode = -8
	CodeParseFailure        ErrorCode = -9
	CodeSdkReturnedNull     ErrorCode = -10
	CodeAuthTimeout         ErrorCode = -11
	CodeClientCorrupted     ErrorCode = -12
	CodeNetworkTimeout      ErrorCode = -13
	CodeOAuthCallbackFailed ErrorCode = -14
	CodeException           ErrorCode = -15
	CodeUnknown             ErrorCode = -99
)

type codeInfo struct {
	name        string
	description string
	recoverable bool
}

var codes = map[ErrorCode]codeInfo{
	CodeSuccess:             {"SUCCESS", "Operation completed successfully", false},
	CodeNotSet:              {"NOT_SET", "Host did not set a return code", false},
	CodeInvalidParameter:    {"INVALID_PARAMETER", "A parameter was missing or invalid", false},
	CodeNotFound:            {"NOT_FOUND", "The requested resource was not found", false},
	CodeUnauthorized:        {"UNAUTHORIZED", "The user is not authorized; sign in again", true},
	CodeNotSupported:        {"NOT_SUPPORTED", "The operation is not supported by this SDK", false},
	CodeModuleNotLoaded:     {"MODULE_NOT_LOADED", "The SDK module has not finished loading", true},
	CodeSdkNotLoaded:        {"SDK_NOT_LOADED", "The Viverse SDK script is not loaded", false},
	CodeSdkNotInitialized:   {"SDK_NOT_INITIALIZED", "The SDK client has not been initialized", false},
	CodeInvalidState:        {"INVALID_STATE", "The operation is not valid in the current state", false},
	CodeParseFailure:        {"PARSE_FAILURE", "The host response could not be parsed", false},
	CodeSdkReturnedNull:     {"SDK_RETURNED_NULL", "The SDK returned no data", true},
	CodeAuthTimeout:         {"AUTH_TIMEOUT", "Authentication timed out", true},
	CodeClientCorrupted:     {"CLIENT_CORRUPTED", "The SDK client is in a corrupted state; reinitialize it", true},
	CodeNetworkTimeout:      {"NETWORK_TIMEOUT", "The request timed out", true},
	CodeOAuthCallbackFailed: {"OAUTH_CALLBACK_FAILED", "The OAuth callback failed", true},
	CodeException:           {"EXCEPTION", "The host raised an exception", false},
	CodeUnknown:             {"UNKNOWN", "Unknown error", false},
}

// FromReturnCode maps a wire ReturnCode onto the taxonomy.
func FromReturnCode(rc int) ErrorCode {
	if rc > 0 {
		return CodeSuccess
	}
	c := ErrorCode(rc)
	if _, ok := codes[c]; ok {
		return c
	}
	return CodeUnknown
}

// String returns the machine-readable name of the code.
func (c ErrorCode) String() string {
	if info, ok := codes[c]; ok {
		return info.name
	}
	return fmt.Sprintf("ERROR_CODE(%d)", int(c))
}

// Description returns a human-readable explanation of the code.
func (c ErrorCode) Description() string {
	if info, ok := codes[c]; ok {
		return info.description
	}
	return codes[CodeUnknown].description
}

// Recoverable reports whether a caller should retry or force-reinitialize the
// client after seeing this code. Other failures end the call, not the process.
func (c ErrorCode) Recoverable() bool {
	return codes[c].recoverable
}

// Error is the error form of a failed Result.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String() + ": " + e.Code.Description()
	}
	return e.Code.String() + ": " + e.Message
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new Error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}
