package wire

import (
	"bytes"
	"encoding/json"
)

// SerializeFunc converts T into a JSON-encodable value.
type SerializeFunc[T any] func(v T) any

// Codec is a pluggable (de)serialization strategy for one value type.
// Message types expose Codec fields for nested objects so callers can
// customize them without touching the message type itself.
type Codec[T any] struct {
	Parse     ParseFunc[T]
	Serialize SerializeFunc[T]
}

// Or fills unset strategies from def.
func (c Codec[T]) Or(def Codec[T]) Codec[T] {
	if c.Parse == nil {
		c.Parse = def.Parse
	}
	if c.Serialize == nil {
		c.Serialize = def.Serialize
	}
	return c
}

// PayloadCodec (de)serializes a message payload object. Parse sees the
// payload without the envelope-owned signatures and customData fields.
type PayloadCodec[T any] struct {
	Parse     func(o *Object) (T, error)
	Serialize func(v T, b *Builder)
}

// Builder accumulates the fields of a JSON object.
type Builder struct {
	fields map[string]any
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{fields: make(map[string]any)}
}

// Set sets a field.
func (b *Builder) Set(name string, v any) *Builder {
	b.fields[name] = v
	return b
}

// SetIf sets a field only when cond is true.
func (b *Builder) SetIf(cond bool, name string, v any) *Builder {
	if cond {
		b.fields[name] = v
	}
	return b
}

// SetString sets a string field unless it is empty.
func (b *Builder) SetString(name, v string) *Builder {
	return b.SetIf(v != "", name, v)
}

// SetRaw sets a pre-encoded JSON value unless it is empty.
func (b *Builder) SetRaw(name string, raw json.RawMessage) *Builder {
	if len(bytes.TrimSpace(raw)) == 0 {
		return b
	}
	b.fields[name] = raw
	return b
}

// Merge copies fields that are not already set.
func (b *Builder) Merge(fields map[string]json.RawMessage) *Builder {
	for name, raw := range fields {
		if _, exists := b.fields[name]; !exists {
			b.fields[name] = raw
		}
	}
	return b
}

// Build returns the accumulated fields.
func (b *Builder) Build() map[string]any {
	return b.fields
}

// MarshalJSON encodes the fields. Keys are emitted in sorted order.
func (b *Builder) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.fields)
}

// SetOptional sets a field from an optional value using serialize.
func SetOptional[T any](b *Builder, name string, v *T, serialize SerializeFunc[T]) *Builder {
	if v == nil {
		return b
	}
	if serialize == nil {
		return b.Set(name, *v)
	}
	return b.Set(name, serialize(*v))
}

// SetSlice sets an array field unless it is empty.
func SetSlice[T any](b *Builder, name string, items []T, serialize SerializeFunc[T]) *Builder {
	if len(items) == 0 {
		return b
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		if serialize == nil {
			out = append(out, item)
			continue
		}
		out = append(out, serialize(item))
	}
	return b.Set(name, out)
}

// SerializeObject adapts an object serializer to a SerializeFunc.
func SerializeObject[T any](serialize func(v T, b *Builder)) SerializeFunc[T] {
	return func(v T) any {
		b := NewBuilder()
		serialize(v, b)
		return b.Build()
	}
}
