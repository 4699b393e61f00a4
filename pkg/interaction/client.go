package interaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/log"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/registry"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// Sender writes encoded frames to a link.
type Sender interface {
	Send(data []byte) error
}

// Verifier checks the signatures of a received payload.
type Verifier interface {
	Verify(payload []byte, sigs []wire.Signature) error
}

// Client sends CALLs over one link and waits for their answers.
type Client struct {
	sender Sender
	corr   *Correlator
	logger log.Scope
}

// NewClient creates a client. The correlator must belong to the same link
// as sender.
func NewClient(sender Sender, corr *Correlator, logger log.Scope) *Client {
	if logger.Now == nil {
		logger.Now = corr.clock.Now
	}
	return &Client{sender: sender, corr: corr, logger: logger}
}

// Correlator returns the client's correlator.
func (c *Client) Correlator() *Correlator {
	return c.corr
}

// Exchange sends a CALL frame and waits for its outcome.
func (c *Client) Exchange(ctx context.Context, f *wire.Frame, timeout time.Duration) Outcome {
	if f.Type != wire.MessageTypeCall {
		return Outcome{State: StateFailed, Err: errors.New("only CALL frames can be exchanged")}
	}
	p, err := c.corr.Register(f.RequestID, timeout)
	if err != nil {
		return Outcome{State: StateFailed, Err: err}
	}

	data, err := wire.EncodeFrame(f)
	if err != nil {
		c.corr.Fail(f.RequestID, err)
		return p.Wait(ctx)
	}
	c.logger.Log(log.Event{
		Direction: log.DirectionOut,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Message:   log.NewMessageEvent(f),
	})
	if err := c.sender.Send(data); err != nil {
		c.corr.Fail(f.RequestID, err)
	} else {
		p.MarkSent()
	}
	return p.Wait(ctx)
}

// Call sends req as a CALL along req.NetworkPath and converts whatever
// happens into exactly one response. An empty req.Context is set to the
// entry's request context. A nil verifier skips signature checks.
func Call[Q, P any](ctx context.Context, c *Client, entry registry.Entry[Q, P], req *wire.Request[Q], verifier Verifier) *wire.Response[Q, P] {
	if req.Context == "" {
		req.Context = entry.RequestContext
	}
	raw, err := wire.EncodePayload(req.Payload, req.MetaOf(), entry.Request)
	if err != nil {
		return wire.ExceptionResponse[Q, P](req, err)
	}

	out := c.Exchange(ctx, wire.NewCall(req.DestinationID, req.NetworkPath, req.RequestID, req.Action, raw), req.RequestTimeout)
	resp := decodeOutcome(out, entry, req, verifier)
	resp.Runtime = out.Runtime
	resp.ResponseTimestamp = c.corr.clock.Now().UTC()
	return resp
}

func decodeOutcome[Q, P any](out Outcome, entry registry.Entry[Q, P], req *wire.Request[Q], verifier Verifier) *wire.Response[Q, P] {
	if out.State != StateAcknowledged {
		return wire.FailedResponse[Q, P](req, out.Result())
	}

	f := out.Frame
	var resp *wire.Response[Q, P]
	if f.Type == wire.MessageTypeCallError {
		resp = wire.FailedResponse[Q, P](req, f.Result())
	} else {
		resp = decodeResult(f.Payload, entry, req, verifier)
	}
	resp.DestinationID = f.DestinationID
	resp.NetworkPath = f.NetworkPath
	return resp
}

func decodeResult[Q, P any](payload json.RawMessage, entry registry.Entry[Q, P], req *wire.Request[Q], verifier Verifier) *wire.Response[Q, P] {
	v, meta, err := wire.DecodePayload(payload, entry.Response)
	if err != nil {
		return wire.FormationViolationResponse[Q, P](req, err.Error())
	}
	if meta.Context != "" && entry.ResponseContext != "" && meta.Context != entry.ResponseContext {
		err := fmt.Errorf("%w: got %s, want %s", wire.ErrContextMismatch, meta.Context, entry.ResponseContext)
		return wire.FormationViolationResponse[Q, P](req, err.Error())
	}
	if verifier != nil {
		if err := verifier.Verify(payload, meta.Signatures); err != nil {
			resp := wire.SignatureErrorResponse[Q, P](req, err.Error())
			resp.Signatures = meta.Signatures
			return resp
		}
	}
	resp := wire.NewResponse[Q, P](req, v)
	resp.Context = meta.Context
	resp.Signatures = meta.Signatures
	resp.CustomData = meta.CustomData
	return resp
}
