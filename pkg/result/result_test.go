package result

import (
	"errors"
	"testing"
)

const resultTestPrefix = "result:result_test"

func TestFromReturnCode(t *testing.T) {
	tests := []struct {
		name string
		rc   int
		want ErrorCode
	}{
		{"one is success", 1, CodeSuccess},
		{"any positive is success", 200, CodeSuccess},
		{"zero is not set", 0, CodeNotSet},
		{"invalid parameter", -1, CodeInvalidParameter},
		{"parse failure", -9, CodeParseFailure},
		{"exception", -15, CodeException},
		{"unmapped negative", -42, CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromReturnCode(tt.rc); got != tt.want {
				t.Errorf("%s - FromReturnCode(%d) = %v, want %v", resultTestPrefix, tt.rc, got, tt.want)
			}
		})
	}
}

func TestErrorCode_Recoverable(t *testing.T) {
	recoverable := map[ErrorCode]bool{
		CodeSdkReturnedNull:     true,
		CodeAuthTimeout:         true,
		CodeClientCorrupted:     true,
		CodeNetworkTimeout:      true,
		CodeOAuthCallbackFailed: true,
		CodeModuleNotLoaded:     true,
		CodeUnauthorized:        true,
	}

	for code := range codes {
		if got := code.Recoverable(); got != recoverable[code] {
			t.Errorf("%s - %v.Recoverable() = %v, want %v", resultTestPrefix, code, got, recoverable[code])
		}
	}
}

func TestErrorCode_String(t *testing.T) {
	if CodeParseFailure.String() != "PARSE_FAILURE" {
		t.Errorf("%s - String() = %q, want PARSE_FAILURE", resultTestPrefix, CodeParseFailure.String())
	}
	if ErrorCode(-1234).String() != "ERROR_CODE(-1234)" {
		t.Errorf("%s - unexpected String() for unmapped code: %q", resultTestPrefix, ErrorCode(-1234).String())
	}
	if ErrorCode(-1234).Description() != CodeUnknown.Description() {
		t.Errorf("%s - unmapped code should describe as unknown", resultTestPrefix)
	}
}

func TestSuccess(t *testing.T) {
	r := Success("payload", `"payload"`)
	if !r.IsSuccess() {
		t.Fatalf("%s - expected success", resultTestPrefix)
	}
	if r.Data != "payload" {
		t.Errorf("%s - Data = %q, want payload", resultTestPrefix, r.Data)
	}
	if r.Err() != nil {
		t.Errorf("%s - Err() = %v, want nil", resultTestPrefix, r.Err())
	}
	if r.Recoverable() {
		t.Errorf("%s - success must not be recoverable", resultTestPrefix)
	}
}

func TestFailure_NeverCarriesSuccessCode(t *testing.T) {
	r := Failure[int](CodeSuccess, "")
	if r.IsSuccess() {
		t.Fatalf("%s - Failure must not report success", resultTestPrefix)
	}
	if r.Code != CodeUnknown {
		t.Errorf("%s - Code = %v, want UNKNOWN", resultTestPrefix, r.Code)
	}
	if r.Message == "" {
		t.Errorf("%s - expected default message", resultTestPrefix)
	}
}

func TestFailure_Err(t *testing.T) {
	r := Failure[string](CodeNetworkTimeout, "slow host")
	err := r.Err()
	if err == nil {
		t.Fatalf("%s - expected error", resultTestPrefix)
	}
	if !errors.Is(err, NewError(CodeNetworkTimeout, "")) {
		t.Errorf("%s - errors.Is should match on code", resultTestPrefix)
	}
	if errors.Is(err, NewError(CodeNotFound, "")) {
		t.Errorf("%s - errors.Is must not match a different code", resultTestPrefix)
	}
	if err.Error() != "NETWORK_TIMEOUT: slow host" {
		t.Errorf("%s - Error() = %q", resultTestPrefix, err.Error())
	}
	if !r.Recoverable() {
		t.Errorf("%s - network timeout should be recoverable", resultTestPrefix)
	}
}

func TestFailureFrom(t *testing.T) {
	src := FailureWithPayload[string](CodeNotFound, "no such room", `{"roomId":"1"}`)
	got := FailureFrom[[]int](src)
	if got.Code != CodeNotFound || got.Message != "no such room" || got.RawPayload != `{"roomId":"1"}` {
		t.Errorf("%s - FailureFrom lost fields: %+v", resultTestPrefix, got)
	}

	fromOK := FailureFrom[int](Success("x", ""))
	if fromOK.Code != CodeInvalidState {
		t.Errorf("%s - FailureFrom(success) code = %v, want INVALID_STATE", resultTestPrefix, fromOK.Code)
	}
}
