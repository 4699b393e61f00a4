package service

import (
	"context"
	"fmt"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/registry"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// Inbound is a request delivered to this node, with its payload already
// parsed and its signatures verified.
type Inbound struct {
	// From is the neighbour the request arrived from.
	From    ids.NetworkingNodeID
	Frame   *wire.Frame
	Binding *registry.Binding

	// Payload is the parsed request payload; its dynamic type is the Q of
	// the registry entry.
	Payload any
	Meta    wire.PayloadMeta
}

// Outbound is a handler's answer. Payload is only serialized when Result
// is OK.
type Outbound struct {
	Payload any

	// Meta.Context defaults to the response context of the action.
	Meta   wire.PayloadMeta
	Result wire.Result

	binding *registry.Binding
}

// HandlerFunc answers one request. It runs on its own goroutine; ctx is
// cancelled when the node closes.
type HandlerFunc func(ctx context.Context, in *Inbound) Outbound

// RegisterHandler installs the handler for requests with the given context
// URI. The context must belong to a registered action.
func (n *Node) RegisterHandler(requestContext string, h HandlerFunc) error {
	if requestContext == "" {
		return ErrEmptyContext
	}
	b, err := n.reg.ByContext(requestContext)
	if err != nil {
		return err
	}
	if b.RequestContext != requestContext {
		return fmt.Errorf("%w: %s is a response context", registry.ErrUnknownContext, requestContext)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.handlers[requestContext]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, requestContext)
	}
	n.handlers[requestContext] = h
	return nil
}

func (n *Node) handler(requestContext string) HandlerFunc {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.handlers[requestContext]
}

// Handle installs a typed handler for action. The action must be registered
// with payload types Q and P. A nil response from fn is answered with
// ExceptionOccurred.
func Handle[Q, P any](n *Node, action string, fn func(ctx context.Context, req *wire.Request[Q]) *wire.Response[Q, P]) error {
	entry, err := registry.Lookup[Q, P](n.reg, action)
	if err != nil {
		return err
	}
	return n.RegisterHandler(entry.RequestContext, func(ctx context.Context, in *Inbound) Outbound {
		reqContext := in.Meta.Context
		if reqContext == "" {
			reqContext = entry.RequestContext
		}
		req := &wire.Request[Q]{
			RequestID:        in.Frame.RequestID,
			Action:           in.Frame.Action,
			Context:          reqContext,
			DestinationID:    in.Frame.DestinationID,
			NetworkPath:      in.Frame.NetworkPath,
			Signatures:       in.Meta.Signatures,
			CustomData:       in.Meta.CustomData,
			RequestTimestamp: n.clock.Now().UTC(),
			Payload:          in.Payload.(Q),
		}
		resp := fn(ctx, req)
		if resp == nil {
			return Outbound{Result: wire.ExceptionOccurred(fmt.Errorf("%s handler returned no response", action))}
		}
		return Outbound{Payload: resp.Payload, Meta: resp.MetaOf(), Result: resp.Result}
	})
}
