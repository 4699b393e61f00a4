package ids

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
)

// Identifier errors.
var (
	ErrEmptyIdentifier   = errors.New("identifier must not be empty")
	ErrIdentifierTooLong = errors.New("identifier too long")
)

// MaxNodeIDLength is the maximum length of a networking node identity.
const MaxNodeIDLength = 48

// Identifier is the constraint satisfied by all identifier types.
type Identifier interface {
	~string
}

// RequestID correlates a request with its response. It is minted by the
// initiator and unique among a connection's outstanding requests.
type RequestID string

// NetworkingNodeID identifies a CSMS, charging station or relay node.
type NetworkingNodeID string

// EventTrackingID groups related exchanges (e.g. retries of one logical
// operation). It is used for observability only.
type EventTrackingID string

// String returns the request id.
func (id RequestID) String() string { return string(id) }

// String returns the node id.
func (id NetworkingNodeID) String() string { return string(id) }

// String returns the event tracking id.
func (id EventTrackingID) String() string { return string(id) }

// Parse parses s into an identifier of type T. Surrounding whitespace is
// removed; an empty result is rejected.
func Parse[T Identifier](s string) (T, error) {
	var zero T
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return zero, ErrEmptyIdentifier
	}
	return T(trimmed), nil
}

// MustParse is like Parse but panics on invalid input. Use it only for
// identifiers built from trusted local values.
func MustParse[T Identifier](s string) T {
	id, err := Parse[T](s)
	if err != nil {
		panic(fmt.Sprintf("ids: invalid identifier %q: %v", s, err))
	}
	return id
}

// ParseNodeID parses a networking node identity and enforces its length limit.
func ParseNodeID(s string) (NetworkingNodeID, error) {
	id, err := Parse[NetworkingNodeID](s)
	if err != nil {
		return "", err
	}
	if len(id) > MaxNodeIDLength {
		return "", fmt.Errorf("%w: %d > %d", ErrIdentifierTooLong, len(id), MaxNodeIDLength)
	}
	return id, nil
}

// Compare orders two identifiers lexically.
func Compare[T Identifier](a, b T) int {
	return cmp.Compare(a, b)
}

// Equal reports whether a and b are the same identifier.
func Equal[T Identifier](a, b T) bool {
	return a == b
}

// IsEmpty reports whether id is the zero identifier.
func IsEmpty[T Identifier](id T) bool {
	return strings.TrimSpace(string(id)) == ""
}
