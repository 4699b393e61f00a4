package ids

import (
	crand "crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator mints fresh identifiers.
type Generator interface {
	NewRequestID() RequestID
	NewEventTrackingID() EventTrackingID
}

// Policy selects the randomness source used for identifier generation.
type Policy uint8

const (
	// PolicyCryptographic uses a cryptographically secure source.
	PolicyCryptographic Policy = iota

	// PolicyFast uses a seeded, non-cryptographic PCG source.
	PolicyFast
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyCryptographic:
		return "cryptographic"
	case PolicyFast:
		return "fast"
	default:
		return "unknown"
	}
}

// ParsePolicy decodes a policy name. The empty string selects
// PolicyCryptographic.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cryptographic", "crypto":
		return PolicyCryptographic, nil
	case "fast":
		return PolicyFast, nil
	default:
		return 0, fmt.Errorf("unknown id policy %q", s)
	}
}

// NewGenerator returns the default generator for a policy.
func NewGenerator(policy Policy) Generator {
	if policy == PolicyFast {
		var seed [16]byte
		_, _ = crand.Read(seed[:])
		return NewRandomGenerator(PolicyFast, binary.LittleEndian.Uint64(seed[:8]), binary.LittleEndian.Uint64(seed[8:]))
	}
	return UUIDGenerator{}
}

// UUIDGenerator mints random (version 4) UUIDs.
type UUIDGenerator struct{}

// NewRequestID returns a new UUID request id.
func (UUIDGenerator) NewRequestID() RequestID {
	return RequestID(uuid.NewString())
}

// NewEventTrackingID returns a new UUID event tracking id.
func (UUIDGenerator) NewEventTrackingID() EventTrackingID {
	return EventTrackingID(uuid.NewString())
}

// RandomGenerator mints 128-bit hex identifiers from the source selected by
// its policy. It is safe for concurrent use.
type RandomGenerator struct {
	mu     sync.Mutex
	policy Policy
	rng    *rand.Rand
}

// NewRandomGenerator creates a generator. The seeds are only used by
// PolicyFast; equal seeds yield equal sequences.
func NewRandomGenerator(policy Policy, seed1, seed2 uint64) *RandomGenerator {
	g := &RandomGenerator{policy: policy}
	if policy == PolicyFast {
		g.rng = rand.New(rand.NewPCG(seed1, seed2))
	}
	return g
}

// Policy returns the generator's randomness policy.
func (g *RandomGenerator) Policy() Policy {
	return g.policy
}

func (g *RandomGenerator) next() string {
	var buf [16]byte
	if g.policy == PolicyCryptographic {
		_, _ = crand.Read(buf[:])
		return hex.EncodeToString(buf[:])
	}

	g.mu.Lock()
	binary.BigEndian.PutUint64(buf[:8], g.rng.Uint64())
	binary.BigEndian.PutUint64(buf[8:], g.rng.Uint64())
	g.mu.Unlock()
	return hex.EncodeToString(buf[:])
}

// NewRequestID returns a new random request id.
func (g *RandomGenerator) NewRequestID() RequestID {
	return RequestID(g.next())
}

// NewEventTrackingID returns a new random event tracking id.
func (g *RandomGenerator) NewEventTrackingID() EventTrackingID {
	return EventTrackingID(g.next())
}

// SequenceGenerator mints "<prefix><n>" identifiers from an atomic counter.
// It is deterministic and intended for tests and simulations.
type SequenceGenerator struct {
	prefix string
	next   atomic.Uint64
}

// NewSequenceGenerator creates a generator starting at 1.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// NewRequestID returns the next request id in the sequence.
func (g *SequenceGenerator) NewRequestID() RequestID {
	return RequestID(g.prefix + strconv.FormatUint(g.next.Add(1), 10))
}

// NewEventTrackingID returns the next event tracking id in the sequence.
func (g *SequenceGenerator) NewEventTrackingID() EventTrackingID {
	return EventTrackingID(g.prefix + "evt-" + strconv.FormatUint(g.next.Add(1), 10))
}

// Compile-time interface satisfaction checks.
var (
	_ Generator = UUIDGenerator{}
	_ Generator = (*RandomGenerator)(nil)
	_ Generator = (*SequenceGenerator)(nil)
)
