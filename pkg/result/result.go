package result

// Result is the outcome of one asynchronous operation. A successful Result
// carries Data; a failed one carries a non-success Code and a Message.
// RawPayload keeps the undecoded host payload for diagnostics.
type Result[T any] struct {
	Data       T         `json:"data"`
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message,omitempty"`
	RawPayload string    `json:"rawPayload,omitempty"`
}

// Success creates a successful Result.
func Success[T any](data T, raw string) Result[T] {
	return Result[T]{Data: data, Code: CodeSuccess, RawPayload: raw}
}

// Failure creates a failed Result. CodeSuccess is not a failure code and is
// replaced with CodeUnknown.
func Failure[T any](code ErrorCode, message string) Result[T] {
	if code == CodeSuccess {
		code = CodeUnknown
	}
	if message == "" {
		message = code.Description()
	}
	return Result[T]{Code: code, Message: message}
}

// FailureWithPayload creates a failed Result that keeps the host payload.
func FailureWithPayload[T any](code ErrorCode, message, raw string) Result[T] {
	r := Failure[T](code, message)
	r.RawPayload = raw
	return r
}

// FailureFrom re-types a failed Result. Calling it with a successful Result
// yields an InvalidState failure.
func FailureFrom[T, U any](r Result[U]) Result[T] {
	if r.IsSuccess() {
		return Failure[T](CodeInvalidState, "expected a failed result")
	}
	return Result[T]{Code: r.Code, Message: r.Message, RawPayload: r.RawPayload}
}

// IsSuccess reports whether the operation succeeded.
func (r Result[T]) IsSuccess() bool {
	return r.Code == CodeSuccess
}

// Recoverable reports whether the failure is worth a retry.
func (r Result[T]) Recoverable() bool {
	return !r.IsSuccess() && r.Code.Recoverable()
}

// Err returns nil on success and an *Error otherwise.
func (r Result[T]) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return &Error{Code: r.Code, Message: r.Message}
}
