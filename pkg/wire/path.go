package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
)

// Network path errors.
var (
	ErrForwardingLoop = errors.New("forwarding loop: node already in network path")
	ErrNotOnPath      = errors.New("node is not the next hop of the network path")
	ErrEmptyNodeID    = errors.New("empty networking node id in network path")
)

// NetworkPath is the ordered breadcrumb of nodes a message has passed
// through. It is the only routing state carried by a message.
type NetworkPath []ids.NetworkingNodeID

// NewNetworkPath builds a path from node ids. It panics if the ids repeat,
// since a locally built path must be well-formed.
func NewNetworkPath(nodes ...ids.NetworkingNodeID) NetworkPath {
	p := NetworkPath(slices.Clone(nodes))
	if err := p.Validate(); err != nil {
		panic(fmt.Sprintf("wire: invalid network path %s: %v", p, err))
	}
	return p
}

// Len returns the number of hops.
func (p NetworkPath) Len() int {
	return len(p)
}

// IsEmpty returns true if the path has no hops.
func (p NetworkPath) IsEmpty() bool {
	return len(p) == 0
}

// First returns the first hop, or "" if the path is empty.
func (p NetworkPath) First() ids.NetworkingNodeID {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// Last returns the last hop, or "" if the path is empty.
func (p NetworkPath) Last() ids.NetworkingNodeID {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Contains reports whether node is on the path.
func (p NetworkPath) Contains(node ids.NetworkingNodeID) bool {
	return slices.Contains(p, node)
}

// Append returns a new path with node added at the end. It fails with
// ErrForwardingLoop if node is already on the path.
func (p NetworkPath) Append(node ids.NetworkingNodeID) (NetworkPath, error) {
	if ids.IsEmpty(node) {
		return nil, ErrEmptyNodeID
	}
	if p.Contains(node) {
		return nil, fmt.Errorf("%w: %s in %s", ErrForwardingLoop, node, p)
	}
	out := make(NetworkPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, node), nil
}

// Reverse returns a new path with the hops in reverse order.
func (p NetworkPath) Reverse() NetworkPath {
	out := slices.Clone(p)
	slices.Reverse(out)
	return out
}

// StripFirst removes node from the front of the path. It fails with
// ErrNotOnPath if node is not the first hop.
func (p NetworkPath) StripFirst(node ids.NetworkingNodeID) (NetworkPath, error) {
	if len(p) == 0 || p[0] != node {
		return nil, fmt.Errorf("%w: %s, path %s", ErrNotOnPath, node, p)
	}
	return slices.Clone(p[1:]), nil
}

// Validate checks that no hop is empty or repeated.
func (p NetworkPath) Validate() error {
	seen := make(map[ids.NetworkingNodeID]struct{}, len(p))
	for _, node := range p {
		if ids.IsEmpty(node) {
			return ErrEmptyNodeID
		}
		if _, dup := seen[node]; dup {
			return fmt.Errorf("%w: %s", ErrForwardingLoop, node)
		}
		seen[node] = struct{}{}
	}
	return nil
}

// Equal compares two paths hop by hop. Nil and empty paths are equal.
func (p NetworkPath) Equal(o NetworkPath) bool {
	return slices.Equal(p, o)
}

// String renders the path as "[A,B,C]".
func (p NetworkPath) String() string {
	parts := make([]string, len(p))
	for i, node := range p {
		parts[i] = string(node)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// MarshalJSON encodes the path as an array of strings. An empty path is [].
func (p NetworkPath) MarshalJSON() ([]byte, error) {
	out := make([]string, len(p))
	for i, node := range p {
		out[i] = string(node)
	}
	return json.Marshal(out)
}

// LoopFree returns the longest prefix of the path without a repeated hop.
// It returns p itself if no hop repeats.
func (p NetworkPath) LoopFree() NetworkPath {
	seen := make(map[ids.NetworkingNodeID]struct{}, len(p))
	for i, node := range p {
		if _, dup := seen[node]; dup {
			return slices.Clone(p[:i])
		}
		seen[node] = struct{}{}
	}
	return p
}

// ParseNetworkPath parses a JSON array of node ids and rejects repeats.
func ParseNetworkPath(raw json.RawMessage) (NetworkPath, error) {
	path, err := ParseHops(raw)
	if err != nil {
		return nil, err
	}
	if err := path.Validate(); err != nil {
		return nil, err
	}
	return path, nil
}

// ParseHops parses a JSON array of non-empty node ids. Repeated hops are
// kept so that the receiver can answer a looping message; the router
// rejects them.
func ParseHops(raw json.RawMessage) (NetworkPath, error) {
	nodes, err := Slice(func(raw json.RawMessage) (ids.NetworkingNodeID, error) {
		s, err := String(raw)
		if err != nil {
			return "", err
		}
		return ids.ParseNodeID(s)
	})(raw)
	if err != nil {
		return nil, err
	}
	return NetworkPath(nodes), nil
}
