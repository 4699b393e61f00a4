package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
)

// Frame errors.
var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrFrameLength        = errors.New("unexpected number of frame elements")
)

// MaxActionLength is the maximum length of a CALL action name.
const MaxActionLength = 36

// MaxContextLength is the maximum length of a payload context URI.
const MaxContextLength = 512

// Frame is one OCPP-J message with the networking extension. Which fields
// are meaningful depends on Type.
type Frame struct {
	Type          MessageType
	DestinationID ids.NetworkingNodeID
	NetworkPath   NetworkPath
	RequestID     ids.RequestID

	// CALL only.
	Action string

	// CALL and CALLRESULT.
	Payload json.RawMessage

	// CALLERROR only.
	ErrorCode        ErrorCode
	ErrorDescription string
	ErrorDetails     json.RawMessage
}

// FrameError reports a frame that could not be parsed. The fields that
// were decoded before the failure are exposed so that the receiver can still
// address a FormationViolation reply; the frame itself is never returned.
type FrameError struct {
	Type        MessageType
	RequestID   ids.RequestID
	NetworkPath NetworkPath
	Err         error
}

func (e *FrameError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("invalid %s frame %s: %v", e.Type, e.RequestID, e.Err)
	}
	return fmt.Sprintf("invalid frame: %v", e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// CanReply returns true if enough of a CALL was decoded to send a
// CALLERROR back.
func (e *FrameError) CanReply() bool {
	return e.Type == MessageTypeCall && e.RequestID != ""
}

// NewCall creates a CALL frame.
func NewCall(dest ids.NetworkingNodeID, path NetworkPath, id ids.RequestID, action string, payload json.RawMessage) *Frame {
	return &Frame{Type: MessageTypeCall, DestinationID: dest, NetworkPath: path, RequestID: id, Action: action, Payload: payload}
}

// NewCallResult creates a CALLRESULT frame.
func NewCallResult(dest ids.NetworkingNodeID, path NetworkPath, id ids.RequestID, payload json.RawMessage) *Frame {
	return &Frame{Type: MessageTypeCallResult, DestinationID: dest, NetworkPath: path, RequestID: id, Payload: payload}
}

// NewCallError creates a CALLERROR frame from a failure result.
func NewCallError(dest ids.NetworkingNodeID, path NetworkPath, id ids.RequestID, result Result) (*Frame, error) {
	code, desc, details, err := result.CallError()
	if err != nil {
		return nil, err
	}
	return &Frame{
		Type:             MessageTypeCallError,
		DestinationID:    dest,
		NetworkPath:      path,
		RequestID:        id,
		ErrorCode:        code,
		ErrorDescription: desc,
		ErrorDetails:     details,
	}, nil
}

// Result returns the transport-level result a response frame carries.
func (f *Frame) Result() Result {
	if f.Type == MessageTypeCallError {
		return ResultFromCallError(f.ErrorCode, f.ErrorDescription, f.ErrorDetails)
	}
	return OK()
}

// Validate checks the frame before encoding.
func (f *Frame) Validate() error {
	if !f.Type.IsValid() {
		return fmt.Errorf("%w: %d", ErrUnknownMessageType, f.Type)
	}
	if ids.IsEmpty(f.RequestID) {
		return errors.New("frame requires a request id")
	}
	if ids.IsEmpty(f.DestinationID) {
		return errors.New("frame requires a destination id")
	}
	if err := f.NetworkPath.Validate(); err != nil {
		return err
	}
	if f.Type == MessageTypeCall && f.Action == "" {
		return errors.New("CALL requires an action")
	}
	if f.Type == MessageTypeCallError && f.ErrorCode == "" {
		return errors.New("CALLERROR requires an error code")
	}
	return nil
}

// MarshalJSON encodes the frame as an OCPP-J array.
func (f *Frame) MarshalJSON() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	path := f.NetworkPath
	if path == nil {
		path = NetworkPath{}
	}
	payload := f.Payload
	if len(bytes.TrimSpace(payload)) == 0 {
		payload = json.RawMessage("{}")
	}

	switch f.Type {
	case MessageTypeCall:
		return json.Marshal([]any{f.Type, f.DestinationID, path, f.RequestID, f.Action, payload})
	case MessageTypeCallResult:
		return json.Marshal([]any{f.Type, f.DestinationID, path, f.RequestID, payload})
	default:
		details := f.ErrorDetails
		if len(bytes.TrimSpace(details)) == 0 {
			details = json.RawMessage("{}")
		}
		return json.Marshal([]any{f.Type, f.DestinationID, path, f.RequestID, f.ErrorCode, f.ErrorDescription, details})
	}
}

// EncodeFrame encodes a frame to bytes.
func EncodeFrame(f *Frame) ([]byte, error) {
	data, err := f.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	return data, nil
}

// PeekFrameType returns the message type of an encoded frame without
// decoding the rest of it.
func PeekFrameType(data []byte) (MessageType, error) {
	var head []json.RawMessage
	if err := json.Unmarshal(data, &head); err != nil || len(head) == 0 {
		return 0, &ParseError{Expected: "OCPP-J array", Err: ErrNotAnArray}
	}
	n, err := Int(head[0])
	if err != nil || !MessageType(n).IsValid() {
		return 0, fmt.Errorf("%w: %s", ErrUnknownMessageType, head[0])
	}
	return MessageType(n), nil
}

// ParseFrame decodes an OCPP-J frame. It never panics; on failure it
// returns a *FrameError.
func ParseFrame(data []byte) (*Frame, error) {
	trimmed := bytes.TrimSpace(data)
	var elems []json.RawMessage
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &FrameError{Err: &ParseError{Expected: "OCPP-J array", Err: ErrNotAnArray}}
	}
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, &FrameError{Err: &ParseError{Expected: "OCPP-J array", Err: err}}
	}
	if len(elems) == 0 {
		return nil, &FrameError{Err: &ParseError{Field: "messageTypeId", Expected: "2, 3 or 4", Missing: true}}
	}

	n, err := Int(elems[0])
	if err != nil || !MessageType(n).IsValid() {
		return nil, &FrameError{Err: &ParseError{Field: "messageTypeId", Expected: "2, 3 or 4", Err: ErrUnknownMessageType}}
	}
	f := &Frame{Type: MessageType(n)}
	fe := &FrameError{Type: f.Type}

	want := map[MessageType]int{MessageTypeCall: 6, MessageTypeCallResult: 5, MessageTypeCallError: 7}[f.Type]
	if len(elems) < 4 {
		fe.Err = fmt.Errorf("%w: %d, want %d", ErrFrameLength, len(elems), want)
		return nil, fe
	}

	// Request id and path first, so a CALLERROR can still be addressed.
	if f.RequestID, err = element(elems, 3, "requestId", "string[1..36]", requestIDParse); err != nil {
		fe.Err = err
		return nil, fe
	}
	fe.RequestID = f.RequestID
	if f.NetworkPath, err = element(elems, 2, "networkPath", "array of node ids", ParseHops); err != nil {
		fe.Err = err
		return nil, fe
	}
	fe.NetworkPath = f.NetworkPath

	if len(elems) != want {
		fe.Err = fmt.Errorf("%w: %d, want %d", ErrFrameLength, len(elems), want)
		return nil, fe
	}
	if f.DestinationID, err = element(elems, 1, "destinationId", "node id", nodeIDParse); err != nil {
		fe.Err = err
		return nil, fe
	}

	switch f.Type {
	case MessageTypeCall:
		if f.Action, err = element(elems, 4, "action", "string[1..36]", NonEmptyString(MaxActionLength)); err != nil {
			fe.Err = err
			return nil, fe
		}
		if f.Payload, err = element(elems, 5, "payload", "JSON object", objectParse); err != nil {
			fe.Err = err
			return nil, fe
		}
	case MessageTypeCallResult:
		if f.Payload, err = element(elems, 4, "payload", "JSON object", objectParse); err != nil {
			fe.Err = err
			return nil, fe
		}
	case MessageTypeCallError:
		code, err := element(elems, 4, "errorCode", "string", NonEmptyString(0))
		if err != nil {
			fe.Err = err
			return nil, fe
		}
		f.ErrorCode = ErrorCode(code)
		if f.ErrorDescription, err = element(elems, 5, "errorDescription", "string[..255]", MaxString(255)); err != nil {
			fe.Err = err
			return nil, fe
		}
		if f.ErrorDetails, err = element(elems, 6, "errorDetails", "JSON object", objectParse); err != nil {
			fe.Err = err
			return nil, fe
		}
	}
	return f, nil
}

func element[T any](elems []json.RawMessage, i int, name, expected string, parse ParseFunc[T]) (T, error) {
	var zero T
	if i >= len(elems) || isNull(elems[i]) {
		return zero, &ParseError{Field: name, Expected: expected, Missing: true}
	}
	v, err := parse(elems[i])
	if err != nil {
		return zero, fieldError(name, expected, err)
	}
	return v, nil
}

func requestIDParse(raw json.RawMessage) (ids.RequestID, error) {
	s, err := NonEmptyString(36)(raw)
	if err != nil {
		return "", err
	}
	return ids.Parse[ids.RequestID](s)
}

func nodeIDParse(raw json.RawMessage) (ids.NetworkingNodeID, error) {
	s, err := String(raw)
	if err != nil {
		return "", err
	}
	return ids.ParseNodeID(s)
}

func objectParse(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotAnObject
	}
	return Raw(trimmed)
}
