package wire

import (
	"encoding/json"
	"errors"
	"maps"
)

// ErrMissingVendorID is returned for a customData object without vendorId.
var ErrMissingVendorID = errors.New("customData requires vendorId")

// MaxVendorIDLength is the maximum length of customData.vendorId.
const MaxVendorIDLength = 255

// VendorData is a vendor-keyed customData object. Its raw fields are kept
// verbatim; "vendorId" is always present in a parsed value.
type VendorData map[string]json.RawMessage

// VendorID returns the vendor id, or "" if unset.
func (v VendorData) VendorID() string {
	raw, ok := v["vendorId"]
	if !ok {
		return ""
	}
	s, _ := String(raw)
	return s
}

// Equal compares two vendor data objects ignoring whitespace.
func (v VendorData) Equal(o VendorData) bool {
	return maps.EqualFunc(v, o, rawEqualFunc)
}

// SetOn writes the object as "customData" unless it is empty.
func (v VendorData) SetOn(b *Builder) {
	if len(v) == 0 {
		return
	}
	b.Set("customData", map[string]json.RawMessage(v))
}

// NewVendorData creates vendor data for a vendor. Extra fields are encoded
// with encoding/json.
func NewVendorData(vendorID string, fields map[string]any) (VendorData, error) {
	if vendorID == "" {
		return nil, ErrMissingVendorID
	}
	v := VendorData{}
	id, _ := json.Marshal(vendorID)
	v["vendorId"] = id
	for name, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		v[name] = raw
	}
	return v, nil
}

// ParseVendorData parses a customData object.
func ParseVendorData(raw json.RawMessage) (VendorData, error) {
	return ObjectOf(func(o *Object) (VendorData, error) {
		if _, err := Mandatory(o, "vendorId", "string[1..255]", NonEmptyString(MaxVendorIDLength)); err != nil {
			return nil, err
		}
		v := VendorData{}
		for name, value := range o.fields {
			v[name] = append(json.RawMessage(nil), value...)
		}
		return v, nil
	})(raw)
}

// OptionalVendorData parses the optional "customData" field of o.
func OptionalVendorData(o *Object) (VendorData, error) {
	v, err := Optional(o, "customData", "CustomData", ParseVendorData)
	if err != nil || v == nil {
		return nil, err
	}
	return *v, nil
}

// CustomData is the envelope's extension bag. Vendor holds the payload's
// customData object; Unrecognized retains unknown top-level payload fields
// and is written back at the top level on serialization.
type CustomData struct {
	Vendor       VendorData
	Unrecognized map[string]json.RawMessage
}

// IsEmpty returns true if neither part carries data.
func (c CustomData) IsEmpty() bool {
	return len(c.Vendor) == 0 && len(c.Unrecognized) == 0
}

// Equal compares both parts.
func (c CustomData) Equal(o CustomData) bool {
	return c.Vendor.Equal(o.Vendor) && maps.EqualFunc(c.Unrecognized, o.Unrecognized, rawEqualFunc)
}

func rawEqualFunc(a, b json.RawMessage) bool {
	return rawEqual(a, b)
}
