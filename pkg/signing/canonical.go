package signing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// ErrNotCanonicalizable is returned for payloads that are not JSON objects.
var ErrNotCanonicalizable = errors.New("payload is not a JSON object")

// Canonicalize returns the bytes a payload is signed over.
func Canonicalize(payload []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCanonicalizable, err)
	}
	if obj == nil {
		return nil, ErrNotCanonicalizable
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrNotCanonicalizable)
	}
	delete(obj, wire.KeySignatures)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obj); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
