package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrLocalOnlyResult is returned when a local-only result would be sent.
var ErrLocalOnlyResult = errors.New("result is local only and cannot be serialized")

// Result is the transport-level outcome attached to every response.
// Local faults are wrapped into a Result instead of being propagated.
type Result struct {
	Code        ResultCode
	ErrorCode   ErrorCode
	Description string
	Details     json.RawMessage
}

// OK returns a success result.
func OK() Result {
	return Result{Code: ResultOK}
}

// FormationViolation returns a result for malformed input.
func FormationViolation(description string) Result {
	return Result{Code: ResultFormationViolation, ErrorCode: ErrorCodeFormatViolation, Description: description}
}

// SignatureError returns a result for a bad or missing signature.
func SignatureError(description string) Result {
	return Result{Code: ResultSignatureError, ErrorCode: ErrorCodeSecurityError, Description: description}
}

// RequestError returns a result carrying a remote-declared error.
func RequestError(code ErrorCode, description string, details json.RawMessage) Result {
	return Result{Code: ResultRequestError, ErrorCode: code, Description: description, Details: details}
}

// Failed returns a generic failure result.
func Failed(description string) Result {
	return Result{Code: ResultFailed, ErrorCode: ErrorCodeGenericError, Description: description}
}

// ServerError returns a result for a failure inside the remote node.
func ServerError(description string) Result {
	return Result{Code: ResultServerError, ErrorCode: ErrorCodeInternalError, Description: description}
}

// ExceptionOccurred wraps a local fault.
func ExceptionOccurred(err error) Result {
	desc := "unknown exception"
	if err != nil {
		desc = err.Error()
	}
	return Result{Code: ResultExceptionOccurred, ErrorCode: ErrorCodeInternalError, Description: desc}
}

// Timeout returns the local result for an unanswered request.
func Timeout(after time.Duration) Result {
	return Result{Code: ResultTimeout, Description: fmt.Sprintf("no response within %s", after)}
}

// Cancelled returns the local result for an abandoned wait.
func Cancelled() Result {
	return Result{Code: ResultCancelled, Description: "wait cancelled"}
}

// ConnectionLost returns the local result for a closed link.
func ConnectionLost() Result {
	return Result{Code: ResultConnectionLost, Description: "connection lost"}
}

// IsOK returns true if the result indicates success.
func (r Result) IsOK() bool {
	return r.Code == ResultOK
}

// IsLocalOnly returns true if the result must never be serialized.
func (r Result) IsLocalOnly() bool {
	return r.Code.IsLocalOnly()
}

// String returns a short description of the result.
func (r Result) String() string {
	if r.IsOK() {
		return r.Code.String()
	}
	if r.ErrorCode != "" {
		return fmt.Sprintf("%s(%s): %s", r.Code, r.ErrorCode, r.Description)
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Description)
}

// Equal compares two results including their details.
func (r Result) Equal(o Result) bool {
	return r.Code == o.Code &&
		r.ErrorCode == o.ErrorCode &&
		r.Description == o.Description &&
		rawEqual(r.Details, o.Details)
}

// Err returns nil for a success result and a *ResultError otherwise.
func (r Result) Err() error {
	if r.IsOK() {
		return nil
	}
	return &ResultError{Result: r}
}

// ResultError exposes a non-OK Result as an error.
type ResultError struct {
	Result Result
}

func (e *ResultError) Error() string {
	return e.Result.String()
}

// CallError returns the CALLERROR elements for a failure result.
func (r Result) CallError() (ErrorCode, string, json.RawMessage, error) {
	if r.IsOK() {
		return "", "", nil, errors.New("success result has no error representation")
	}
	if r.IsLocalOnly() {
		return "", "", nil, ErrLocalOnlyResult
	}

	code := r.ErrorCode
	if code == "" {
		switch r.Code {
		case ResultFormationViolation:
			code = ErrorCodeFormatViolation
		case ResultSignatureError:
			code = ErrorCodeSecurityError
		case ResultServerError, ResultExceptionOccurred:
			code = ErrorCodeInternalError
		default:
			code = ErrorCodeGenericError
		}
	}
	details := r.Details
	if len(details) == 0 {
		details = json.RawMessage("{}")
	}
	return code, r.Description, details, nil
}

// ResultFromCallError maps received CALLERROR elements to a Result.
func ResultFromCallError(code ErrorCode, description string, details json.RawMessage) Result {
	if isEmptyObject(details) {
		details = nil
	}
	switch {
	case code == ErrorCodeSecurityError:
		return Result{Code: ResultSignatureError, ErrorCode: code, Description: description, Details: details}
	case code.IsFormation():
		return Result{Code: ResultFormationViolation, ErrorCode: code, Description: description, Details: details}
	case code == ErrorCodeInternalError:
		return Result{Code: ResultServerError, ErrorCode: code, Description: description, Details: details}
	default:
		return RequestError(code, description, details)
	}
}

func isEmptyObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("{}")) || bytes.Equal(trimmed, []byte("null"))
}

// rawEqual compares two JSON values ignoring insignificant whitespace.
func rawEqual(a, b json.RawMessage) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(bytes.TrimSpace(a)) == len(bytes.TrimSpace(b))
	}
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
