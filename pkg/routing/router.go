// Package routing decides where a message goes next in a mesh of
// networking nodes.
//
// Routing is source-recorded: every node that forwards a request appends its
// own id to the request's network path. The terminal node answers along the
// reversed path and each hop strips itself before passing the response on,
// so no node keeps per-request routing state. A node only knows its direct
// links and, optionally, an uplink that receives everything it cannot
// deliver otherwise.
package routing

import (
	"errors"
	"fmt"
	"sync"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// Routing errors.
var (
	ErrUnknownDestination = errors.New("unknown networking node")
	ErrForwardingLoop     = wire.ErrForwardingLoop
	ErrUnknownLink        = errors.New("unknown link")
	ErrMisaddressed       = errors.New("response is not addressed to this node")
)

// Action is what to do with a message.
type Action uint8

const (
	// DeliverLocal hands the message to this node's handlers or waiters.
	DeliverLocal Action = iota

	// Forward sends the message to Decision.NextHop.
	Forward
)

func (a Action) String() string {
	if a == Forward {
		return "FORWARD"
	}
	return "DELIVER_LOCAL"
}

// Decision is the routing outcome for one message.
type Decision struct {
	Action  Action
	NextHop ids.NetworkingNodeID

	// Path is the network path to put on the forwarded frame.
	Path wire.NetworkPath
}

// Router routes messages for one node. It is safe for concurrent use.
type Router struct {
	self ids.NetworkingNodeID

	mu     sync.RWMutex
	links  map[ids.NetworkingNodeID]struct{}
	uplink ids.NetworkingNodeID
}

// New creates a router for node self. It panics on an empty id.
func New(self ids.NetworkingNodeID) *Router {
	if ids.IsEmpty(self) {
		panic("routing: router requires a node id")
	}
	return &Router{self: self, links: make(map[ids.NetworkingNodeID]struct{})}
}

// Self returns the id of the routing node.
func (r *Router) Self() ids.NetworkingNodeID {
	return r.self
}

// AddLink records a direct neighbour.
func (r *Router) AddLink(node ids.NetworkingNodeID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[node] = struct{}{}
}

// RemoveLink forgets a neighbour. If it was the uplink, the uplink is
// cleared as well.
func (r *Router) RemoveLink(node ids.NetworkingNodeID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.links, node)
	if r.uplink == node {
		r.uplink = ""
	}
}

// HasLink returns true if node is a direct neighbour.
func (r *Router) HasLink(node ids.NetworkingNodeID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.links[node]
	return ok
}

// SetUplink selects the neighbour that receives requests for unknown
// destinations. The uplink need not be linked yet; an empty id clears it.
func (r *Router) SetUplink(node ids.NetworkingNodeID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uplink = node
}

// Uplink returns the configured uplink, or "".
func (r *Router) Uplink() ids.NetworkingNodeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.uplink
}

// RouteRequest decides how to handle a request for dest that arrived with
// path. A request forwarded by this node carries path+self; a path that
// already contains this node is a loop and is never forwarded.
func (r *Router) RouteRequest(dest ids.NetworkingNodeID, path wire.NetworkPath) (Decision, error) {
	if err := path.Validate(); err != nil {
		return Decision{}, err
	}
	if path.Contains(r.self) {
		return Decision{}, fmt.Errorf("%w: %s in %s", ErrForwardingLoop, r.self, path)
	}
	if dest == r.self {
		return Decision{Action: DeliverLocal, Path: path}, nil
	}

	next, err := path.Append(r.self)
	if err != nil {
		return Decision{}, err
	}

	r.mu.RLock()
	_, linked := r.links[dest]
	uplink := r.uplink
	r.mu.RUnlock()

	switch {
	case linked:
		return Decision{Action: Forward, NextHop: dest, Path: next}, nil
	case uplink != "" && !path.Contains(uplink):
		return Decision{Action: Forward, NextHop: uplink, Path: next}, nil
	default:
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownDestination, dest)
	}
}

// ResponsePath returns the path of a response to a request that arrived
// with requestPath.
func ResponsePath(requestPath wire.NetworkPath) wire.NetworkPath {
	return requestPath.Reverse()
}

// RouteResponse decides how to handle a response for dest that arrived with
// path. This node strips itself from the front of the path; an exhausted
// path means the response has reached its origin.
func (r *Router) RouteResponse(dest ids.NetworkingNodeID, path wire.NetworkPath) (Decision, error) {
	if err := path.Validate(); err != nil {
		return Decision{}, err
	}
	rest := path
	if path.First() == r.self {
		rest, _ = path.StripFirst(r.self)
	}

	if rest.IsEmpty() {
		if dest == r.self {
			return Decision{Action: DeliverLocal}, nil
		}
		if r.HasLink(dest) {
			return Decision{Action: Forward, NextHop: dest}, nil
		}
		return Decision{}, fmt.Errorf("%w: %s, path %s", ErrMisaddressed, dest, path)
	}
	if rest.Contains(r.self) {
		return Decision{}, fmt.Errorf("%w: %s appears after the first hop of %s", ErrForwardingLoop, r.self, path)
	}

	next := rest.First()
	if !r.HasLink(next) {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownLink, next)
	}
	return Decision{Action: Forward, NextHop: next, Path: rest}, nil
}

// ResultFor maps a routing error to the result returned to the sender.
func ResultFor(err error) wire.Result {
	switch {
	case errors.Is(err, ErrForwardingLoop):
		return wire.RequestError(wire.ErrorCodeForwardingLoop, err.Error(), nil)
	case errors.Is(err, ErrUnknownDestination), errors.Is(err, ErrUnknownLink), errors.Is(err, ErrMisaddressed):
		return wire.RequestError(wire.ErrorCodeUnknownNetworkingNode, err.Error(), nil)
	default:
		return wire.FormationViolation(err.Error())
	}
}
