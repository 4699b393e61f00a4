package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/log"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/registry"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/routing"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// HandleFrame processes one frame received from the neighbour from. It is
// installed as the handler of every link added with AddLink and never
// blocks on request handlers.
func (n *Node) HandleFrame(from ids.NetworkingNodeID, data []byte) {
	ls := n.link(from)
	if ls == nil {
		n.scope.Error(log.LayerService, "dispatch", fmt.Errorf("%w: %s", ErrUnknownLink, from), "")
		return
	}

	f, err := wire.ParseFrame(data)
	if err != nil {
		n.rejectFrame(ls, data, err)
		return
	}
	ls.scope.Log(log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Message:   log.NewMessageEvent(f),
	})

	if f.Type == wire.MessageTypeCall {
		n.handleCall(ls, f)
		return
	}
	n.handleResponse(ls, f)
}

// rejectFrame logs an unparseable frame and answers it with a
// FormationViolation if enough of a CALL was decoded to address a reply.
func (n *Node) rejectFrame(ls *linkState, data []byte, err error) {
	ls.scope.Log(log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryError,
		Frame:     log.NewFrameEvent(data, log.DefaultMaxFrameSize),
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: err.Error(),
			Code:    string(wire.ErrorCodeFormatViolation),
			Context: "parse",
		},
	})

	var fe *wire.FrameError
	if !errors.As(err, &fe) || !fe.CanReply() {
		n.debugLog("dropped malformed frame", "from", ls.remote(), "error", err)
		return
	}
	n.replyError(ls, fe.RequestID, fe.NetworkPath, wire.FormationViolation(err.Error()))
}

func (n *Node) handleCall(ls *linkState, f *wire.Frame) {
	d, err := n.router.RouteRequest(f.DestinationID, f.NetworkPath)
	if err != nil {
		ls.scope.Error(log.LayerRouting, "route", err, "")
		n.replyError(ls, f.RequestID, f.NetworkPath, routing.ResultFor(err))
		return
	}
	logRoute(ls.scope, log.DirectionIn, f.RequestID.String(), d)

	if d.Action == routing.Forward {
		fwd := wire.NewCall(f.DestinationID, d.Path, f.RequestID, f.Action, f.Payload)
		if err := n.transmit(d.NextHop, fwd); err != nil {
			n.replyError(ls, f.RequestID, f.NetworkPath, routing.ResultFor(err))
		}
		return
	}

	n.mu.RLock()
	running := n.state == StateRunning
	if running {
		n.wg.Add(1)
	}
	n.mu.RUnlock()
	if !running {
		return
	}
	go func() {
		defer n.wg.Done()
		n.dispatch(ls, f)
	}()
}

// dispatch parses, verifies and answers a request addressed to this node.
func (n *Node) dispatch(ls *linkState, f *wire.Frame) {
	out := n.process(n.ctx, ls.remote(), f)
	if !out.Result.IsOK() {
		n.replyError(ls, f.RequestID, f.NetworkPath, out.Result)
		return
	}

	b := out.binding
	meta := out.Meta
	if meta.Context == "" {
		meta.Context = b.ResponseContext
	}
	if n.signer != nil {
		raw, err := b.SerializeResponse(out.Payload, meta)
		if err != nil {
			n.replyError(ls, f.RequestID, f.NetworkPath, wire.ExceptionOccurred(err))
			return
		}
		sigs, err := n.signer.Sign(raw, n.keyIDs...)
		if err != nil {
			n.replyError(ls, f.RequestID, f.NetworkPath, wire.ExceptionOccurred(err))
			return
		}
		meta.Signatures = append(slices.Clone(meta.Signatures), sigs...)
	}

	raw, err := b.SerializeResponse(out.Payload, meta)
	if err != nil {
		n.replyError(ls, f.RequestID, f.NetworkPath, wire.ExceptionOccurred(err))
		return
	}
	reply := wire.NewCallResult(responseDestination(ls, f.NetworkPath), f.NetworkPath.Reverse(), f.RequestID, raw)
	if err := n.transmit(ls.remote(), reply); err != nil {
		ls.scope.Error(log.LayerService, "reply", err, "")
	}
}

// process turns a request frame into the handler's answer. Every failure
// becomes a non-OK Result.
func (n *Node) process(ctx context.Context, from ids.NetworkingNodeID, f *wire.Frame) (out Outbound) {
	b, res := n.binding(f)
	if !res.IsOK() {
		return Outbound{Result: res}
	}
	payload, meta, err := b.ParseRequest(f.Payload)
	if err != nil {
		return Outbound{Result: wire.FormationViolation(err.Error())}
	}
	if n.verifier != nil {
		if err := n.verifier.Verify(f.Payload, meta.Signatures); err != nil {
			return Outbound{Result: wire.SignatureError(err.Error())}
		}
	}
	h := n.handler(b.RequestContext)
	if h == nil {
		err := fmt.Errorf("%w for %s", ErrNoHandler, f.Action)
		return Outbound{Result: wire.RequestError(wire.ErrorCodeNotImplemented, err.Error(), nil)}
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrHandlerPanic, r)
			n.scope.Error(log.LayerService, "handler", err, string(wire.ErrorCodeInternalError))
			out = Outbound{Result: wire.ExceptionOccurred(err)}
		}
	}()
	out = h(ctx, &Inbound{From: from, Frame: f, Binding: b, Payload: payload, Meta: meta})
	out.binding = b
	return out
}

// binding selects the registry binding of a request. A context declared in
// the payload takes precedence and must be the request context of the
// frame's action; without one the action name decides.
func (n *Node) binding(f *wire.Frame) (*registry.Binding, wire.Result) {
	ctx, err := wire.PayloadContext(f.Payload)
	if err != nil {
		return nil, wire.FormationViolation(err.Error())
	}
	if ctx == "" {
		b, err := n.reg.ByAction(f.Action)
		if err != nil {
			return nil, wire.RequestError(wire.ErrorCodeNotImplemented, err.Error(), nil)
		}
		return b, wire.OK()
	}

	b, err := n.reg.ByContext(ctx)
	if err != nil {
		return nil, wire.RequestError(wire.ErrorCodeNotSupported, err.Error(), nil)
	}
	if b.RequestContext != ctx || b.Action != f.Action {
		err := fmt.Errorf("%w: %s is not a request context of %s", wire.ErrContextMismatch, ctx, f.Action)
		return nil, wire.FormationViolation(err.Error())
	}
	return b, wire.OK()
}

// replyError answers a request with a CALLERROR on the link it arrived on.
// Local-only results are reported as ExceptionOccurred. A looping request
// path is cut before its first repeated hop.
func (n *Node) replyError(ls *linkState, id ids.RequestID, path wire.NetworkPath, result wire.Result) {
	if result.IsLocalOnly() {
		result = wire.ExceptionOccurred(result.Err())
	}
	reply, err := wire.NewCallError(responseDestination(ls, path), path.LoopFree().Reverse(), id, result)
	if err != nil {
		ls.scope.Error(log.LayerService, "reply", err, "")
		return
	}
	if err := n.transmit(ls.remote(), reply); err != nil {
		ls.scope.Error(log.LayerService, "reply", err, "")
	}
}

// responseDestination is the origin of a request: the first node on its
// path, or the neighbour itself when the path is empty.
func responseDestination(ls *linkState, path wire.NetworkPath) ids.NetworkingNodeID {
	if origin := path.First(); origin != "" {
		return origin
	}
	return ls.remote()
}

func (n *Node) handleResponse(ls *linkState, f *wire.Frame) {
	d, err := n.router.RouteResponse(f.DestinationID, f.NetworkPath)
	if err != nil {
		ls.scope.Error(log.LayerRouting, "response routing", err, "")
		return
	}
	if d.Action == routing.Forward {
		logRoute(ls.scope, log.DirectionIn, f.RequestID.String(), d)
		fwd := *f
		fwd.NetworkPath = d.Path
		if err := n.transmit(d.NextHop, &fwd); err != nil {
			ls.scope.Error(log.LayerRouting, "response routing", err, "")
		}
		return
	}
	ls.client.Correlator().Complete(f)
}

// transmit encodes f and sends it on the link to next.
func (n *Node) transmit(next ids.NetworkingNodeID, f *wire.Frame) error {
	ls := n.link(next)
	if ls == nil {
		return fmt.Errorf("%w: %s", routing.ErrUnknownLink, next)
	}
	data, err := wire.EncodeFrame(f)
	if err != nil {
		return err
	}
	ls.scope.Log(log.Event{
		Direction: log.DirectionOut,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Message:   log.NewMessageEvent(f),
	})
	if err := ls.link.Send(data); err != nil {
		return fmt.Errorf("%w: %s: %v", routing.ErrUnknownLink, next, err)
	}
	return nil
}
