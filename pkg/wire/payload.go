package wire

import (
	"encoding/json"
	"errors"
)

// Payload errors.
var (
	ErrNoCodec         = errors.New("payload codec not configured")
	ErrContextMismatch = errors.New("context does not match action")
)

// Envelope-owned payload keys.
const (
	KeyContext    = "@context"
	KeySignatures = "signatures"
	KeyCustomData = "customData"
)

// PayloadMeta holds the envelope-owned parts of a JSON payload.
type PayloadMeta struct {
	// Context is the context URI naming the payload's message type. Empty
	// when the sender did not declare one.
	Context    string
	Signatures []Signature
	CustomData CustomData
}

// DecodePayload parses a JSON payload object. The context, signatures and
// customData are extracted into the returned meta, the remaining fields are handed to
// codec.Parse and whatever it leaves unconsumed is retained in
// meta.CustomData.Unrecognized.
func DecodePayload[T any](raw json.RawMessage, codec PayloadCodec[T]) (T, PayloadMeta, error) {
	var zero T
	var meta PayloadMeta
	if codec.Parse == nil {
		return zero, meta, ErrNoCodec
	}

	o, err := ParseObject(raw)
	if err != nil {
		return zero, meta, err
	}
	if meta.Context, err = payloadContext(o); err != nil {
		return zero, PayloadMeta{}, err
	}
	if meta.Signatures, err = OptionalSlice(o, KeySignatures, "array of Signature", ParseSignature); err != nil {
		return zero, PayloadMeta{}, err
	}
	if meta.CustomData.Vendor, err = OptionalVendorData(o); err != nil {
		return zero, PayloadMeta{}, err
	}

	v, err := codec.Parse(o)
	if err != nil {
		return zero, PayloadMeta{}, err
	}
	meta.CustomData.Unrecognized = o.Rest()
	return v, meta, nil
}

// EncodePayload serializes v with its envelope-owned fields.
func EncodePayload[T any](v T, meta PayloadMeta, codec PayloadCodec[T]) (json.RawMessage, error) {
	if codec.Serialize == nil {
		return nil, ErrNoCodec
	}
	b := NewBuilder()
	codec.Serialize(v, b)
	b.SetIf(meta.Context != "", KeyContext, meta.Context)
	SetSlice(b, KeySignatures, meta.Signatures, SerializeSignature)
	meta.CustomData.Vendor.SetOn(b)
	b.Merge(meta.CustomData.Unrecognized)
	return json.Marshal(b.Build())
}

// PayloadContext returns the context URI declared by a JSON payload, or ""
// if it declares none. It only fails on a payload that is not an object or
// whose context is not a non-empty string.
func PayloadContext(raw json.RawMessage) (string, error) {
	o, err := ParseObject(raw)
	if err != nil {
		return "", err
	}
	return payloadContext(o)
}

func payloadContext(o *Object) (string, error) {
	ctx, err := Optional(o, KeyContext, "context URI", NonEmptyString(MaxContextLength))
	if err != nil || ctx == nil {
		return "", err
	}
	return *ctx, nil
}

// MetaOf returns the envelope-owned payload parts of a request.
func (r *Request[P]) MetaOf() PayloadMeta {
	return PayloadMeta{Context: r.Context, Signatures: r.Signatures, CustomData: r.CustomData}
}

// MetaOf returns the envelope-owned payload parts of a response.
func (r *Response[Q, P]) MetaOf() PayloadMeta {
	return PayloadMeta{Context: r.Context, Signatures: r.Signatures, CustomData: r.CustomData}
}

// MustDecodePayload is like DecodePayload but panics on malformed input.
// It is meant for payloads built by the caller, such as fixtures.
func MustDecodePayload[T any](raw json.RawMessage, codec PayloadCodec[T]) (T, PayloadMeta) {
	v, meta, err := DecodePayload(raw, codec)
	if err != nil {
		panic("wire: " + err.Error())
	}
	return v, meta
}
