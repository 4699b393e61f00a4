package wire

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"slices"
	"time"
)

// Signature wire limits.
const (
	MaxKeyIDLength         = 64
	MaxSigningMethodLength = 50
	MaxSignatureNameLength = 50
)

// DefaultEncodingMethod is the encoding used for Signature.Value on the wire.
const DefaultEncodingMethod = "base64"

// Signature is a cryptographic signature over a message's canonical payload.
type Signature struct {
	// KeyID references the signer's key.
	KeyID string

	// Value is the raw signature.
	Value []byte

	// SigningMethod names the algorithm, e.g. "ed25519-sha256".
	SigningMethod string

	// EncodingMethod names the encoding of Value on the wire.
	EncodingMethod string

	Name        *string
	Description *string
	Timestamp   *time.Time
	CustomData  VendorData
}

// Equal compares two signatures field by field.
func (s Signature) Equal(o Signature) bool {
	return s.KeyID == o.KeyID &&
		bytes.Equal(s.Value, o.Value) &&
		s.SigningMethod == o.SigningMethod &&
		s.EncodingMethod == o.EncodingMethod &&
		ptrEqual(s.Name, o.Name) &&
		ptrEqual(s.Description, o.Description) &&
		timePtrEqual(s.Timestamp, o.Timestamp) &&
		s.CustomData.Equal(o.CustomData)
}

// SignaturesEqual compares two signature lists in order.
func SignaturesEqual(a, b []Signature) bool {
	return slices.EqualFunc(a, b, Signature.Equal)
}

// ParseSignature parses a signature object.
func ParseSignature(raw json.RawMessage) (Signature, error) {
	return ObjectOf(parseSignatureObject)(raw)
}

func parseSignatureObject(o *Object) (Signature, error) {
	var sig Signature
	var err error

	if sig.KeyID, err = Mandatory(o, "keyId", "string[1..64]", NonEmptyString(MaxKeyIDLength)); err != nil {
		return Signature{}, err
	}
	if sig.Value, err = Mandatory(o, "value", "base64 string", Base64); err != nil {
		return Signature{}, err
	}
	if sig.SigningMethod, err = Mandatory(o, "signingMethod", "string[1..50]", NonEmptyString(MaxSigningMethodLength)); err != nil {
		return Signature{}, err
	}
	encoding, err := Optional(o, "encodingMethod", "string", Enum(DefaultEncodingMethod))
	if err != nil {
		return Signature{}, err
	}
	if encoding != nil {
		sig.EncodingMethod = *encoding
	}
	if sig.Name, err = Optional(o, "name", "string[..50]", MaxString(MaxSignatureNameLength)); err != nil {
		return Signature{}, err
	}
	if sig.Description, err = Optional(o, "description", "string", String); err != nil {
		return Signature{}, err
	}
	if sig.Timestamp, err = Optional(o, "timestamp", "RFC 3339 timestamp", Timestamp); err != nil {
		return Signature{}, err
	}
	if sig.CustomData, err = OptionalVendorData(o); err != nil {
		return Signature{}, err
	}
	return sig, nil
}

// SerializeSignature renders a signature as a JSON object.
func SerializeSignature(sig Signature) any {
	b := NewBuilder().
		Set("keyId", sig.KeyID).
		Set("value", base64.StdEncoding.EncodeToString(sig.Value)).
		Set("signingMethod", sig.SigningMethod).
		SetString("encodingMethod", sig.EncodingMethod)
	SetOptional(b, "name", sig.Name, nil)
	SetOptional(b, "description", sig.Description, nil)
	SetOptional(b, "timestamp", sig.Timestamp, func(t time.Time) any { return FormatTimestamp(t) })
	sig.CustomData.SetOn(b)
	return b.Build()
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
