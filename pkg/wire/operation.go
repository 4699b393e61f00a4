package wire

// MessageType is the OCPP-J message type id (first frame element).
type MessageType uint8

const (
	// MessageTypeCall is a request.
	MessageTypeCall MessageType = 2

	// MessageTypeCallResult is a successful response.
	MessageTypeCallResult MessageType = 3

	// MessageTypeCallError is an error response.
	MessageTypeCallError MessageType = 4
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case MessageTypeCall:
		return "CALL"
	case MessageTypeCallResult:
		return "CALLRESULT"
	case MessageTypeCallError:
		return "CALLERROR"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true if t is a known message type.
func (t MessageType) IsValid() bool {
	return t >= MessageTypeCall && t <= MessageTypeCallError
}

// IsResponse returns true for CALLRESULT and CALLERROR.
func (t MessageType) IsResponse() bool {
	return t == MessageTypeCallResult || t == MessageTypeCallError
}
