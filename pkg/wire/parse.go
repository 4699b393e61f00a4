package wire

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Parse errors.
var (
	ErrNotAnObject  = errors.New("not a JSON object")
	ErrNotAnArray   = errors.New("not a JSON array")
	ErrTooLong      = errors.New("value too long")
	ErrNegative     = errors.New("value must not be negative")
	ErrUnknownValue = errors.New("unknown enumeration value")
	ErrEmptyString  = errors.New("value must not be empty")
)

// ParseError describes a missing or invalid field. Field is a dotted path
// for nested objects and uses [i] for array elements.
type ParseError struct {
	Field    string
	Expected string
	Missing  bool
	Err      error
}

func (e *ParseError) Error() string {
	switch {
	case e.Field == "":
		if e.Err != nil {
			return fmt.Sprintf("invalid JSON: expected %s: %v", e.Expected, e.Err)
		}
		return fmt.Sprintf("invalid JSON: expected %s", e.Expected)
	case e.Missing:
		return fmt.Sprintf("missing mandatory field %q (expected %s)", e.Field, e.Expected)
	case e.Err != nil:
		return fmt.Sprintf("invalid field %q: expected %s: %v", e.Field, e.Expected, e.Err)
	default:
		return fmt.Sprintf("invalid field %q: expected %s", e.Field, e.Expected)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// fieldError attaches a field name to err, prefixing nested paths.
func fieldError(name, expected string, err error) error {
	var pe *ParseError
	if errors.As(err, &pe) && pe.Field != "" {
		sep := "."
		if strings.HasPrefix(pe.Field, "[") {
			sep = ""
		}
		return &ParseError{Field: name + sep + pe.Field, Expected: pe.Expected, Missing: pe.Missing, Err: pe.Err}
	}
	return &ParseError{Field: name, Expected: expected, Err: err}
}

// ParseFunc converts a raw JSON value into T.
type ParseFunc[T any] func(raw json.RawMessage) (T, error)

// Object is a JSON object being parsed field by field. It remembers which
// fields were consumed so the remainder can be retained.
type Object struct {
	fields map[string]json.RawMessage
	used   map[string]struct{}
}

// ParseObject decodes raw into an Object. It never panics.
func ParseObject(raw []byte) (*Object, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &ParseError{Expected: "JSON object", Err: ErrNotAnObject}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, &ParseError{Expected: "JSON object", Err: err}
	}
	return &Object{fields: fields, used: make(map[string]struct{}, len(fields))}, nil
}

// Has reports whether the field is present and not null.
func (o *Object) Has(name string) bool {
	raw, ok := o.fields[name]
	return ok && !isNull(raw)
}

// Len returns the number of fields in the object.
func (o *Object) Len() int {
	return len(o.fields)
}

func (o *Object) take(name string) (json.RawMessage, bool) {
	raw, ok := o.fields[name]
	if ok {
		o.used[name] = struct{}{}
	}
	return raw, ok
}

// Rest returns the fields not consumed so far, or nil if there are none.
func (o *Object) Rest() map[string]json.RawMessage {
	var rest map[string]json.RawMessage
	for name, raw := range o.fields {
		if _, ok := o.used[name]; ok {
			continue
		}
		if rest == nil {
			rest = make(map[string]json.RawMessage)
		}
		rest[name] = raw
	}
	return rest
}

// Mandatory parses a field that must be present.
func Mandatory[T any](o *Object, name, expected string, parse ParseFunc[T]) (T, error) {
	var zero T
	raw, ok := o.take(name)
	if !ok || isNull(raw) {
		return zero, &ParseError{Field: name, Expected: expected, Missing: true}
	}
	v, err := parse(raw)
	if err != nil {
		return zero, fieldError(name, expected, err)
	}
	return v, nil
}

// Optional parses a field that may be absent. Absence (or null) yields nil;
// a present but invalid value is still an error.
func Optional[T any](o *Object, name, expected string, parse ParseFunc[T]) (*T, error) {
	raw, ok := o.take(name)
	if !ok || isNull(raw) {
		return nil, nil
	}
	v, err := parse(raw)
	if err != nil {
		return nil, fieldError(name, expected, err)
	}
	return &v, nil
}

// OptionalSlice parses an optional array field; absence yields nil.
func OptionalSlice[T any](o *Object, name, expected string, elem ParseFunc[T]) ([]T, error) {
	v, err := Optional(o, name, expected, Slice(elem))
	if err != nil || v == nil {
		return nil, err
	}
	return *v, nil
}

// MandatorySlice parses an array field that must be present. An empty
// array is valid.
func MandatorySlice[T any](o *Object, name, expected string, elem ParseFunc[T]) ([]T, error) {
	return Mandatory(o, name, expected, Slice(elem))
}

// Slice lifts an element parser to a JSON array parser.
func Slice[T any](elem ParseFunc[T]) ParseFunc[[]T] {
	return func(raw json.RawMessage) ([]T, error) {
		var items []json.RawMessage
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '[' {
			return nil, ErrNotAnArray
		}
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		out := make([]T, 0, len(items))
		for i, item := range items {
			v, err := elem(item)
			if err != nil {
				return nil, fieldError("["+strconv.Itoa(i)+"]", "element", err)
			}
			out = append(out, v)
		}
		return out, nil
	}
}

// ObjectOf adapts an object parser to a ParseFunc.
func ObjectOf[T any](parse func(o *Object) (T, error)) ParseFunc[T] {
	return func(raw json.RawMessage) (T, error) {
		o, err := ParseObject(raw)
		if err != nil {
			var zero T
			return zero, err
		}
		return parse(o)
	}
}

// String parses a JSON string.
func String(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.New("not a string")
	}
	return s, nil
}

// NonEmptyString parses a non-empty string of at most max runes.
// A max of zero disables the length check.
func NonEmptyString(max int) ParseFunc[string] {
	return func(raw json.RawMessage) (string, error) {
		s, err := String(raw)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(s) == "" {
			return "", ErrEmptyString
		}
		if max > 0 && len([]rune(s)) > max {
			return "", fmt.Errorf("%w: %d > %d", ErrTooLong, len([]rune(s)), max)
		}
		return s, nil
	}
}

// MaxString parses a possibly empty string of at most max runes.
func MaxString(max int) ParseFunc[string] {
	return func(raw json.RawMessage) (string, error) {
		s, err := String(raw)
		if err != nil {
			return "", err
		}
		if len([]rune(s)) > max {
			return "", fmt.Errorf("%w: %d > %d", ErrTooLong, len([]rune(s)), max)
		}
		return s, nil
	}
}

// Int parses a JSON integer.
func Int(raw json.RawMessage) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errors.New("not a number")
	}
	v, err := n.Int64()
	if err != nil {
		return 0, errors.New("not an integer")
	}
	return v, nil
}

// NonNegativeInt parses a JSON integer >= 0.
func NonNegativeInt(raw json.RawMessage) (int64, error) {
	v, err := Int(raw)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, ErrNegative
	}
	return v, nil
}

// Decimal parses a JSON number.
func Decimal(raw json.RawMessage) (float64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errors.New("not a number")
	}
	return n.Float64()
}

// Bool parses a JSON boolean.
func Bool(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, errors.New("not a boolean")
	}
	return b, nil
}

// Timestamp parses an RFC 3339 timestamp. The result is in UTC.
func Timestamp(raw json.RawMessage) (time.Time, error) {
	s, err := String(raw)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.New("not an RFC 3339 timestamp")
	}
	return t.UTC(), nil
}

// FormatTimestamp renders t the way Timestamp parses it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Base64 parses a standard base64 string.
func Base64(raw json.RawMessage) ([]byte, error) {
	s, err := String(raw)
	if err != nil {
		return nil, err
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New("not base64")
	}
	return b, nil
}

// Raw returns a copy of the raw value.
func Raw(raw json.RawMessage) (json.RawMessage, error) {
	if !json.Valid(raw) {
		return nil, errors.New("not valid JSON")
	}
	return append(json.RawMessage(nil), raw...), nil
}

// Enum parses a string restricted to the given values.
func Enum[T ~string](values ...T) ParseFunc[T] {
	return func(raw json.RawMessage) (T, error) {
		s, err := String(raw)
		if err != nil {
			return "", err
		}
		if !slices.Contains(values, T(s)) {
			return "", fmt.Errorf("%w: %q", ErrUnknownValue, s)
		}
		return T(s), nil
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
