package signing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// ErrSignature is the class of all verification failures.
var ErrSignature = errors.New("signature verification failed")

// Verification failure reasons.
var (
	ErrMissingSignature = errors.New("missing signature")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrMethodMismatch   = errors.New("signing method does not match key")
	ErrNoTrustedSigner  = errors.New("no trusted signer")
)

// VerificationError reports why a payload was rejected.
type VerificationError struct {
	KeyID  string
	Reason error
}

func (e *VerificationError) Error() string {
	if e.KeyID != "" {
		return fmt.Sprintf("%v: key %s: %v", ErrSignature, e.KeyID, e.Reason)
	}
	return fmt.Sprintf("%v: %v", ErrSignature, e.Reason)
}

func (e *VerificationError) Unwrap() error {
	return e.Reason
}

// Is makes every VerificationError match ErrSignature.
func (e *VerificationError) Is(target error) bool {
	return target == ErrSignature
}

// Policy selects which of a message's signatures must validate.
type Policy uint8

const (
	// PolicyNone skips verification.
	PolicyNone Policy = iota

	// PolicyAnyTrusted accepts a payload once one signature from a trusted
	// key validates. Signatures from unknown keys are ignored; a signature
	// from a trusted key that does not validate rejects the payload.
	PolicyAnyTrusted

	// PolicyAllDeclared requires every signature to come from a trusted key
	// and validate.
	PolicyAllDeclared
)

var policyNames = map[Policy]string{
	PolicyNone:        "none",
	PolicyAnyTrusted:  "any-trusted",
	PolicyAllDeclared: "all-declared",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Policy(%d)", p)
}

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	for p, name := range policyNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return PolicyNone, fmt.Errorf("unknown verification policy %q", s)
}

// Verifier checks signatures against trusted keys.
type Verifier struct {
	keys             KeyStore
	policy           Policy
	requireSignature bool
}

// NewVerifier creates a verifier.
func NewVerifier(keys KeyStore, policy Policy, requireSignature bool) *Verifier {
	return &Verifier{keys: keys, policy: policy, requireSignature: requireSignature}
}

// Policy returns the configured policy.
func (v *Verifier) Policy() Policy {
	return v.policy
}

// Verify checks sigs over the canonical form of payload. It returns nil or
// a *VerificationError.
func (v *Verifier) Verify(payload []byte, sigs []wire.Signature) error {
	if len(sigs) == 0 {
		if v.requireSignature {
			return &VerificationError{Reason: ErrMissingSignature}
		}
		return nil
	}
	if v.policy == PolicyNone {
		return nil
	}

	canonical, err := Canonicalize(payload)
	if err != nil {
		return &VerificationError{Reason: err}
	}

	trusted := 0
	for _, sig := range sigs {
		key, err := v.keys.VerificationKey(sig.KeyID)
		if err != nil {
			if v.policy == PolicyAllDeclared || errors.Is(err, ErrRevokedKey) {
				return &VerificationError{KeyID: sig.KeyID, Reason: err}
			}
			continue
		}
		if err := verifyOne(key, sig, canonical); err != nil {
			return err
		}
		trusted++
	}
	if trusted == 0 {
		return &VerificationError{Reason: ErrNoTrustedSigner}
	}
	return nil
}

func verifyOne(key PublicKey, sig wire.Signature, canonical []byte) error {
	if sig.SigningMethod != string(key.Algorithm) {
		return &VerificationError{
			KeyID:  sig.KeyID,
			Reason: fmt.Errorf("%w: %s, key is %s", ErrMethodMismatch, sig.SigningMethod, key.Algorithm),
		}
	}
	ok, err := key.Verify(canonical, sig.Value)
	if err != nil {
		return &VerificationError{KeyID: sig.KeyID, Reason: err}
	}
	if !ok {
		return &VerificationError{KeyID: sig.KeyID, Reason: ErrInvalidSignature}
	}
	return nil
}
