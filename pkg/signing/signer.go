package signing

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// ErrNoKeys is returned by Sign without key ids.
var ErrNoKeys = errors.New("no signing keys given")

// Signer produces signatures with keys from a KeyStore.
type Signer struct {
	keys  KeyStore
	clock clock.Clock
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithSignerClock sets the clock used for signature timestamps.
func WithSignerClock(c clock.Clock) SignerOption {
	return func(s *Signer) { s.clock = c }
}

// NewSigner creates a signer.
func NewSigner(keys KeyStore, opts ...SignerOption) *Signer {
	s := &Signer{keys: keys, clock: clock.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign returns one signature per key id over the canonical form of payload.
func (s *Signer) Sign(payload []byte, keyIDs ...string) ([]wire.Signature, error) {
	if len(keyIDs) == 0 {
		return nil, ErrNoKeys
	}
	canonical, err := Canonicalize(payload)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	sigs := make([]wire.Signature, 0, len(keyIDs))
	for _, id := range keyIDs {
		key, err := s.keys.SigningKey(id)
		if err != nil {
			return nil, err
		}
		value, err := key.Sign(canonical)
		if err != nil {
			return nil, fmt.Errorf("sign with %s: %w", id, err)
		}
		ts := now
		sigs = append(sigs, wire.Signature{
			KeyID:          id,
			Value:          value,
			SigningMethod:  string(key.Public().Algorithm),
			EncodingMethod: wire.DefaultEncodingMethod,
			Timestamp:      &ts,
		})
	}
	return sigs, nil
}
