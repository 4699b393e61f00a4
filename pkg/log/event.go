package log

import (
	"time"

	"github.com/google/uuid"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// Event is one protocol event captured by a networking node.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// LinkID identifies the link the event belongs to (UUID). Empty for
	// node-level events.
	LinkID string `cbor:"2,keyasint,omitempty"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// NodeID is the networking node that captured the event.
	NodeID string `cbor:"6,keyasint,omitempty"`

	// RemoteID is the neighbour on the other end of the link.
	RemoteID string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Route       *RouteEvent       `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// NewLinkID returns a fresh link id.
func NewLinkID() string {
	return uuid.NewString()
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which part of the node captured the event.
type Layer uint8

const (
	// LayerTransport is the raw frame layer.
	LayerTransport Layer = 0
	// LayerWire is the decoded frame layer.
	LayerWire Layer = 1
	// LayerService is the request/response layer.
	LayerService Layer = 2
	// LayerRouting is the forwarding layer.
	LayerRouting Layer = 3
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerService:
		return "SERVICE"
	case LayerRouting:
		return "ROUTING"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a CALL, CALLRESULT or CALLERROR.
	CategoryMessage Category = 0
	// CategoryRoute indicates a forwarding decision.
	CategoryRoute Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryRoute:
		return "ROUTE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data.
type FrameEvent struct {
	// Size is the frame size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// DefaultMaxFrameSize is the capture limit for raw frames in error events.
const DefaultMaxFrameSize = 4096

// NewFrameEvent captures data, keeping at most max bytes. A max of zero
// keeps everything.
func NewFrameEvent(data []byte, max int) *FrameEvent {
	fe := &FrameEvent{Size: len(data)}
	if max > 0 && len(data) > max {
		fe.Data = append([]byte(nil), data[:max]...)
		fe.Truncated = true
		return fe
	}
	fe.Data = append([]byte(nil), data...)
	return fe
}

// MessageEvent captures a decoded frame.
type MessageEvent struct {
	Type          wire.MessageType `cbor:"1,keyasint"`
	RequestID     string           `cbor:"2,keyasint"`
	Action        string           `cbor:"3,keyasint,omitempty"`
	DestinationID string           `cbor:"4,keyasint,omitempty"`
	NetworkPath   []string         `cbor:"5,keyasint,omitempty"`

	// ResultCode is set for responses.
	ResultCode *wire.ResultCode `cbor:"6,keyasint,omitempty"`

	// ErrorCode is the CALLERROR code, if any.
	ErrorCode string `cbor:"7,keyasint,omitempty"`

	// Signatures is the number of signatures carried by the payload.
	Signatures int `cbor:"8,keyasint,omitempty"`

	// Runtime is the round trip of a response, stored as nanoseconds.
	Runtime *time.Duration `cbor:"9,keyasint,omitempty"`
}

// NewMessageEvent summarizes a frame.
func NewMessageEvent(f *wire.Frame) *MessageEvent {
	me := &MessageEvent{
		Type:          f.Type,
		RequestID:     string(f.RequestID),
		Action:        f.Action,
		DestinationID: string(f.DestinationID),
	}
	for _, hop := range f.NetworkPath {
		me.NetworkPath = append(me.NetworkPath, string(hop))
	}
	if f.Type.IsResponse() {
		code := f.Result().Code
		me.ResultCode = &code
		me.ErrorCode = string(f.ErrorCode)
	}
	return me
}

// StateChangeEvent captures link and request lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// Key identifies the entity, e.g. a request id.
	Key string `cbor:"2,keyasint,omitempty"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"3,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"4,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"5,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityLink indicates a link state change.
	StateEntityLink StateEntity = 0
	// StateEntityRequest indicates an outstanding request state change.
	StateEntityRequest StateEntity = 1
	// StateEntityNode indicates a node state change.
	StateEntityNode StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityLink:
		return "LINK"
	case StateEntityRequest:
		return "REQUEST"
	case StateEntityNode:
		return "NODE"
	default:
		return "UNKNOWN"
	}
}

// RouteEvent captures a forwarding decision.
type RouteEvent struct {
	RequestID string   `cbor:"1,keyasint"`
	Decision  string   `cbor:"2,keyasint"`
	NextHop   string   `cbor:"3,keyasint,omitempty"`
	Path      []string `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the OCPP error code (if applicable).
	Code string `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
