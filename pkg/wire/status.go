package wire

// ResultCode classifies the outcome attached to every response.
type ResultCode uint8

const (
	// ResultOK indicates the request was processed successfully.
	ResultOK ResultCode = iota

	// ResultFormationViolation indicates structurally invalid input.
	ResultFormationViolation

	// ResultSignatureError indicates an invalid or missing signature.
	ResultSignatureError

	// ResultRequestError carries a remote-declared error code.
	ResultRequestError

	// ResultFailed indicates a generic processing failure.
	ResultFailed

	// ResultServerError indicates a failure inside the remote node.
	ResultServerError

	// ResultExceptionOccurred wraps a local fault for delivery.
	ResultExceptionOccurred

	// ResultTimeout indicates no response arrived before the deadline.
	// Local only.
	ResultTimeout

	// ResultCancelled indicates the caller stopped waiting. Local only.
	ResultCancelled

	// ResultConnectionLost indicates the link closed while waiting. Local only.
	ResultConnectionLost
)

// String returns the result code name.
func (c ResultCode) String() string {
	switch c {
	case ResultOK:
		return "OK"
	case ResultFormationViolation:
		return "FORMATION_VIOLATION"
	case ResultSignatureError:
		return "SIGNATURE_ERROR"
	case ResultRequestError:
		return "REQUEST_ERROR"
	case ResultFailed:
		return "FAILED"
	case ResultServerError:
		return "SERVER_ERROR"
	case ResultExceptionOccurred:
		return "EXCEPTION_OCCURRED"
	case ResultTimeout:
		return "TIMEOUT"
	case ResultCancelled:
		return "CANCELLED"
	case ResultConnectionLost:
		return "CONNECTION_LOST"
	default:
		return "UNKNOWN"
	}
}

// IsLocalOnly returns true for outcomes that never cross the wire.
func (c ResultCode) IsLocalOnly() bool {
	return c == ResultTimeout || c == ResultCancelled || c == ResultConnectionLost
}

// ErrorCode is the CALLERROR error code.
type ErrorCode string

// OCPP-J error codes.
const (
	ErrorCodeFormatViolation               ErrorCode = "FormatViolation"
	ErrorCodeGenericError                  ErrorCode = "GenericError"
	ErrorCodeInternalError                 ErrorCode = "InternalError"
	ErrorCodeMessageTypeNotSupported       ErrorCode = "MessageTypeNotSupported"
	ErrorCodeNotImplemented                ErrorCode = "NotImplemented"
	ErrorCodeNotSupported                  ErrorCode = "NotSupported"
	ErrorCodeOccurrenceConstraintViolation ErrorCode = "OccurrenceConstraintViolation"
	ErrorCodePropertyConstraintViolation   ErrorCode = "PropertyConstraintViolation"
	ErrorCodeProtocolError                 ErrorCode = "ProtocolError"
	ErrorCodeRpcFrameworkError             ErrorCode = "RpcFrameworkError"
	ErrorCodeSecurityError                 ErrorCode = "SecurityError"
	ErrorCodeTypeConstraintViolation       ErrorCode = "TypeConstraintViolation"
)

// Networking extension error codes.
const (
	// ErrorCodeUnknownNetworkingNode reports an unreachable destination.
	ErrorCodeUnknownNetworkingNode ErrorCode = "UnknownNetworkingNode"

	// ErrorCodeForwardingLoop reports a network path with a repeated node.
	ErrorCodeForwardingLoop ErrorCode = "ForwardingLoop"
)

// IsFormation returns true for codes describing malformed input.
func (c ErrorCode) IsFormation() bool {
	switch c {
	case ErrorCodeFormatViolation,
		ErrorCodeOccurrenceConstraintViolation,
		ErrorCodePropertyConstraintViolation,
		ErrorCodeTypeConstraintViolation:
		return true
	}
	return false
}
