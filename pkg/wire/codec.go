package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/spaolacci/murmur3"
)

// fingerprintMode is the CBOR encoder mode used to compare and hash
// payloads. It is deterministic so that equal values always produce equal
// bytes regardless of map iteration order.
var fingerprintMode cbor.EncMode

// cloneDecMode decodes fingerprints back into values for Clone.
var cloneDecMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	fingerprintMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	cloneDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Fingerprint returns the deterministic CBOR encoding of v.
func Fingerprint(v any) ([]byte, error) {
	return fingerprintMode.Marshal(v)
}

// Equal compares two values by their deterministic encoding.
func Equal(a, b any) bool {
	dataA, errA := Fingerprint(a)
	dataB, errB := Fingerprint(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(dataA, dataB)
}

// Clone creates a deep copy of v by re-encoding.
func Clone[T any](v T) (T, error) {
	var result T
	data, err := Fingerprint(v)
	if err != nil {
		return result, err
	}
	err = cloneDecMode.Unmarshal(data, &result)
	return result, err
}

// Fixed field weights for envelope hashing. Every field gets a distinct odd
// multiplier so that swapping two field values changes the hash.
const (
	hashSeed        uint64 = 0x9E3779B97F4A7C15
	hashPrime       uint64 = 1099511628211
	weightRequestID uint64 = 3
	weightAction    uint64 = 5
	weightContext   uint64 = 7
	weightDest      uint64 = 11
	weightPath      uint64 = 13
	weightSigs      uint64 = 17
	weightCustom    uint64 = 19
	weightTracking  uint64 = 23
	weightTimestamp uint64 = 29
	weightTimeout   uint64 = 31
	weightPayload   uint64 = 37
	weightResult    uint64 = 41
	weightErrorCode uint64 = 43
	weightErrorDesc uint64 = 47
	weightDetails   uint64 = 53

	// absentHash stands in for optional fields that are not set.
	absentHash uint64 = 0xA5A5A5A5A5A5A5A5
)

// hasher combines weighted field hashes.
type hasher struct {
	acc uint64
}

func newHasher() *hasher {
	return &hasher{acc: hashSeed}
}

func (h *hasher) add(weight uint64, fieldHash uint64) {
	h.acc = h.acc*hashPrime + weight*fieldHash
}

func (h *hasher) addString(weight uint64, s string) {
	if s == "" {
		h.add(weight, absentHash)
		return
	}
	h.add(weight, murmur3.Sum64([]byte(s)))
}

func (h *hasher) addBytes(weight uint64, b []byte) {
	if len(b) == 0 {
		h.add(weight, absentHash)
		return
	}
	h.add(weight, murmur3.Sum64(b))
}

func (h *hasher) addValue(weight uint64, v any) {
	data, err := Fingerprint(v)
	if err != nil {
		h.add(weight, absentHash)
		return
	}
	h.addBytes(weight, data)
}

func (h *hasher) sum() uint64 {
	return h.acc
}

func (h *hasher) addTime(weight uint64, t time.Time) {
	if t.IsZero() {
		h.add(weight, absentHash)
		return
	}
	h.add(weight, uint64(t.UnixNano()))
}

func (h *hasher) addCustomData(weight uint64, c CustomData) {
	if c.IsEmpty() {
		h.add(weight, absentHash)
		return
	}
	h.addValue(weight, [2]map[string][]byte{normalizeRawMap(c.Vendor), normalizeRawMap(c.Unrecognized)})
}

func (h *hasher) addSignatures(weight uint64, sigs []Signature) {
	if len(sigs) == 0 {
		h.add(weight, absentHash)
		return
	}
	type normalized struct {
		KeyID, SigningMethod, EncodingMethod string
		Value                                []byte
		Name, Description                    *string
		Timestamp                            int64
		CustomData                           map[string][]byte
	}
	out := make([]normalized, len(sigs))
	for i, s := range sigs {
		out[i] = normalized{
			KeyID:          s.KeyID,
			SigningMethod:  s.SigningMethod,
			EncodingMethod: s.EncodingMethod,
			Value:          s.Value,
			Name:           s.Name,
			Description:    s.Description,
			CustomData:     normalizeRawMap(s.CustomData),
		}
		if s.Timestamp != nil {
			out[i].Timestamp = s.Timestamp.UnixNano()
		}
	}
	h.addValue(weight, out)
}

func normalizeRawMap[M ~map[string]json.RawMessage](m M) map[string][]byte {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(m))
	for k, raw := range m {
		out[k] = compactRaw(raw)
	}
	return out
}

func compactRaw(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
