package wire

import (
	"fmt"
	"strconv"
	"time"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
)

// DefaultRequestTimeout is used when a request does not set its own timeout.
const DefaultRequestTimeout = 30 * time.Second

// Request is the generic envelope around a request payload.
//
// The payload is immutable once the request is created; only NetworkPath is
// updated for transit bookkeeping.
type Request[P any] struct {
	RequestID       ids.RequestID
	Action          string
	Context         string
	DestinationID   ids.NetworkingNodeID
	NetworkPath     NetworkPath
	Signatures      []Signature
	CustomData      CustomData
	EventTrackingID ids.EventTrackingID

	// RequestTimestamp is when the request was created.
	RequestTimestamp time.Time

	// RequestTimeout bounds the wait for the response. Zero selects the
	// correlator's default.
	RequestTimeout time.Duration

	Payload P
}

// RequestOption customizes NewRequest.
type RequestOption func(*requestOptions)

type requestOptions struct {
	context    string
	timeout    time.Duration
	tracking   ids.EventTrackingID
	path       NetworkPath
	customData CustomData
	timestamp  time.Time
}

// WithContext sets the context URI of the request.
func WithContext(ctx string) RequestOption {
	return func(o *requestOptions) { o.context = ctx }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) { o.timeout = d }
}

// WithEventTrackingID groups the request with related exchanges.
func WithEventTrackingID(id ids.EventTrackingID) RequestOption {
	return func(o *requestOptions) { o.tracking = id }
}

// WithNetworkPath sets the initial network path.
func WithNetworkPath(p NetworkPath) RequestOption {
	return func(o *requestOptions) { o.path = p }
}

// WithCustomData attaches vendor data.
func WithCustomData(c CustomData) RequestOption {
	return func(o *requestOptions) { o.customData = c }
}

// WithTimestamp overrides the creation timestamp.
func WithTimestamp(t time.Time) RequestOption {
	return func(o *requestOptions) { o.timestamp = t }
}

// NewRequest creates a request and mints its RequestID from gen.
//
// NewRequest panics on contract violations by the caller: a nil generator,
// an empty destination or action, or a negative timeout.
func NewRequest[P any](gen ids.Generator, dest ids.NetworkingNodeID, action string, payload P, opts ...RequestOption) *Request[P] {
	if gen == nil {
		panic("wire: NewRequest requires an id generator")
	}
	if ids.IsEmpty(dest) {
		panic("wire: NewRequest requires a destination")
	}
	if action == "" || len(action) > MaxActionLength {
		panic(fmt.Sprintf("wire: invalid action %q", action))
	}

	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout < 0 {
		panic(fmt.Sprintf("wire: negative request timeout %s", o.timeout))
	}
	if err := o.path.Validate(); err != nil {
		panic(fmt.Sprintf("wire: invalid network path: %v", err))
	}
	if o.timestamp.IsZero() {
		o.timestamp = time.Now().UTC()
	}
	id := gen.NewRequestID()
	if o.tracking == "" {
		o.tracking = gen.NewEventTrackingID()
	}

	return &Request[P]{
		RequestID:        id,
		Action:           action,
		Context:          o.context,
		DestinationID:    dest,
		NetworkPath:      o.path,
		CustomData:       o.customData,
		EventTrackingID:  o.tracking,
		RequestTimestamp: o.timestamp,
		RequestTimeout:   o.timeout,
		Payload:          payload,
	}
}

// Timeout returns the effective timeout.
func (r *Request[P]) Timeout() time.Duration {
	if r.RequestTimeout > 0 {
		return r.RequestTimeout
	}
	return DefaultRequestTimeout
}

// Origin returns the node that initiated the request, or "" if the request
// has not left its origin yet.
func (r *Request[P]) Origin() ids.NetworkingNodeID {
	return r.NetworkPath.First()
}

// Equal compares all envelope fields and the payload.
func (r *Request[P]) Equal(o *Request[P]) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.RequestID == o.RequestID &&
		r.Action == o.Action &&
		r.Context == o.Context &&
		r.DestinationID == o.DestinationID &&
		r.NetworkPath.Equal(o.NetworkPath) &&
		SignaturesEqual(r.Signatures, o.Signatures) &&
		r.CustomData.Equal(o.CustomData) &&
		r.EventTrackingID == o.EventTrackingID &&
		r.RequestTimestamp.Equal(o.RequestTimestamp) &&
		r.RequestTimeout == o.RequestTimeout &&
		Equal(r.Payload, o.Payload)
}

// Hash combines all envelope fields and the payload.
func (r *Request[P]) Hash() uint64 {
	h := newHasher()
	h.addString(weightRequestID, string(r.RequestID))
	h.addString(weightAction, r.Action)
	h.addString(weightContext, r.Context)
	h.addString(weightDest, string(r.DestinationID))
	h.addString(weightPath, r.NetworkPath.String())
	h.addSignatures(weightSigs, r.Signatures)
	h.addCustomData(weightCustom, r.CustomData)
	h.addString(weightTracking, string(r.EventTrackingID))
	h.addTime(weightTimestamp, r.RequestTimestamp)
	h.addString(weightTimeout, durationKey(r.RequestTimeout))
	h.addValue(weightPayload, r.Payload)
	return h.sum()
}

// Response is the generic envelope around a response payload. It always
// references the request it answers.
type Response[Q, P any] struct {
	Request *Request[Q]
	Result  Result

	// Payload is the zero value unless Result is OK.
	Payload P

	// Context is the response context URI. Empty until the response is
	// serialized or received.
	Context string

	DestinationID     ids.NetworkingNodeID
	NetworkPath       NetworkPath
	Signatures        []Signature
	CustomData        CustomData
	ResponseTimestamp time.Time

	// Runtime is the locally measured round trip. It is not part of the
	// response's identity.
	Runtime time.Duration
}

// NewResponse creates a successful response addressed back along the
// request's reversed network path.
func NewResponse[Q, P any](req *Request[Q], payload P) *Response[Q, P] {
	if req == nil {
		panic("wire: NewResponse requires a request")
	}
	return &Response[Q, P]{
		Request:           req,
		Result:            OK(),
		Payload:           payload,
		DestinationID:     req.Origin(),
		NetworkPath:       req.NetworkPath.Reverse(),
		ResponseTimestamp: time.Now().UTC(),
	}
}

// FailedResponse creates a failure response. It panics if result is OK.
func FailedResponse[Q, P any](req *Request[Q], result Result) *Response[Q, P] {
	if req == nil {
		panic("wire: FailedResponse requires a request")
	}
	if result.IsOK() {
		panic("wire: FailedResponse requires a failure result")
	}
	return &Response[Q, P]{
		Request:           req,
		Result:            result,
		DestinationID:     req.Origin(),
		NetworkPath:       req.NetworkPath.Reverse(),
		ResponseTimestamp: time.Now().UTC(),
	}
}

// FormationViolationResponse answers a malformed request.
func FormationViolationResponse[Q, P any](req *Request[Q], description string) *Response[Q, P] {
	return FailedResponse[Q, P](req, FormationViolation(description))
}

// SignatureErrorResponse answers a request with a bad or missing signature.
func SignatureErrorResponse[Q, P any](req *Request[Q], description string) *Response[Q, P] {
	return FailedResponse[Q, P](req, SignatureError(description))
}

// RequestErrorResponse answers a request with an explicit error code.
func RequestErrorResponse[Q, P any](req *Request[Q], code ErrorCode, description string) *Response[Q, P] {
	return FailedResponse[Q, P](req, RequestError(code, description, nil))
}

// ExceptionResponse wraps a local fault.
func ExceptionResponse[Q, P any](req *Request[Q], err error) *Response[Q, P] {
	return FailedResponse[Q, P](req, ExceptionOccurred(err))
}

// RequestID returns the id of the originating request.
func (r *Response[Q, P]) RequestID() ids.RequestID {
	if r.Request == nil {
		return ""
	}
	return r.Request.RequestID
}

// IsOK returns true if the response carries a success result.
func (r *Response[Q, P]) IsOK() bool {
	return r.Result.IsOK()
}

// Equal compares all envelope fields, the Result and the payload. Two
// responses with different results are never equal, even if their payloads
// are.
func (r *Response[Q, P]) Equal(o *Response[Q, P]) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.RequestID() == o.RequestID() &&
		r.Result.Equal(o.Result) &&
		r.Context == o.Context &&
		r.DestinationID == o.DestinationID &&
		r.NetworkPath.Equal(o.NetworkPath) &&
		SignaturesEqual(r.Signatures, o.Signatures) &&
		r.CustomData.Equal(o.CustomData) &&
		r.ResponseTimestamp.Equal(o.ResponseTimestamp) &&
		Equal(r.Payload, o.Payload)
}

// Hash combines all envelope fields, the Result and the payload.
func (r *Response[Q, P]) Hash() uint64 {
	h := newHasher()
	h.addString(weightRequestID, string(r.RequestID()))
	h.add(weightResult, uint64(r.Result.Code)+1)
	h.addString(weightErrorCode, string(r.Result.ErrorCode))
	h.addString(weightErrorDesc, r.Result.Description)
	h.addBytes(weightDetails, compactRaw(r.Result.Details))
	h.addString(weightContext, r.Context)
	h.addString(weightDest, string(r.DestinationID))
	h.addString(weightPath, r.NetworkPath.String())
	h.addSignatures(weightSigs, r.Signatures)
	h.addCustomData(weightCustom, r.CustomData)
	h.addTime(weightTimestamp, r.ResponseTimestamp)
	h.addValue(weightPayload, r.Payload)
	return h.sum()
}

func durationKey(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return strconv.FormatInt(int64(d), 10)
}
