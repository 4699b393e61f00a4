package service

import (
	"context"
	"fmt"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/interaction"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/log"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/registry"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/routing"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// Send signs, routes and transmits req and waits for its response. It
// returns exactly one response for every request; failures of any kind
// are reported through the response's Result.
//
// Send sets req.Context if empty, appends the node's signatures and
// replaces req.NetworkPath with the path the request leaves with.
func Send[Q, P any](ctx context.Context, n *Node, req *wire.Request[Q]) *wire.Response[Q, P] {
	entry, err := registry.Lookup[Q, P](n.reg, req.Action)
	if err != nil {
		return wire.ExceptionResponse[Q, P](req, err)
	}
	if req.Context == "" {
		req.Context = entry.RequestContext
	}
	if n.State() != StateRunning {
		return wire.ExceptionResponse[Q, P](req, ErrNodeClosed)
	}

	if n.signer != nil {
		raw, err := wire.EncodePayload(req.Payload, wire.PayloadMeta{Context: req.Context, CustomData: req.CustomData}, entry.Request)
		if err != nil {
			return wire.ExceptionResponse[Q, P](req, err)
		}
		sigs, err := n.signer.Sign(raw, n.keyIDs...)
		if err != nil {
			return wire.ExceptionResponse[Q, P](req, fmt.Errorf("signing %s: %w", req.Action, err))
		}
		req.Signatures = append(req.Signatures, sigs...)
	}

	d, err := n.router.RouteRequest(req.DestinationID, req.NetworkPath)
	if err != nil {
		n.scope.Error(log.LayerRouting, "send", err, "")
		return wire.FailedResponse[Q, P](req, routing.ResultFor(err))
	}
	if d.Action == routing.DeliverLocal {
		return wire.ExceptionResponse[Q, P](req, ErrSelfAddressed)
	}

	ls := n.link(d.NextHop)
	if ls == nil {
		err := fmt.Errorf("%w: next hop %s", routing.ErrUnknownLink, d.NextHop)
		return wire.FailedResponse[Q, P](req, routing.ResultFor(err))
	}
	req.NetworkPath = d.Path
	logRoute(ls.scope, log.DirectionOut, req.RequestID.String(), d)

	return interaction.Call(ctx, ls.client, entry, req, n.verifier)
}

func logRoute(scope log.Scope, dir log.Direction, requestID string, d routing.Decision) {
	path := make([]string, len(d.Path))
	for i, node := range d.Path {
		path[i] = string(node)
	}
	scope.Log(log.Event{
		Direction: dir,
		Layer:     log.LayerRouting,
		Category:  log.CategoryRoute,
		Route: &log.RouteEvent{
			RequestID: requestID,
			Decision:  d.Action.String(),
			NextHop:   string(d.NextHop),
			Path:      path,
		},
	})
}
