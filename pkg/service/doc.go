// Package service runs an OCPP networking node.
//
// A Node ties the lower-level packages together:
//   - one interaction.Correlator and Client per link
//   - a routing.Router for forwarding and reverse addressing
//   - a frozen registry.Registry for payload codecs
//   - an optional signing.Signer and Verifier
//   - handlers keyed by request context URI
//
// # Sending
//
// Send signs, routes and transmits a typed request and blocks until its
// response, deadline, cancellation or link loss. Whatever happens, the
// caller gets exactly one *wire.Response whose Result says how the exchange
// ended:
//
//	node, err := service.NewNode(cfg, messages.NewRegistry())
//	node.AddLink(link)
//
//	req := wire.NewRequest(gen, "CSMS", messages.ActionHeartbeat, messages.HeartbeatRequest{})
//	resp := service.Send[messages.HeartbeatRequest, messages.HeartbeatResponse](ctx, node, req)
//	if !resp.IsOK() {
//		return resp.Result.Err()
//	}
//
// # Receiving
//
// Links hand every frame to HandleFrame. Requests for other nodes are
// relayed, requests for this node are parsed, verified and dispatched to
// their handler on a separate goroutine. Responses are either relayed along
// their network path or completed on the correlator of the link they
// arrived on.
//
//	service.Handle(node, messages.ActionHeartbeat,
//		func(ctx context.Context, req *wire.Request[messages.HeartbeatRequest]) *wire.Response[messages.HeartbeatRequest, messages.HeartbeatResponse] {
//			return wire.NewResponse[messages.HeartbeatRequest](req, messages.HeartbeatResponse{CurrentTime: time.Now()})
//		})
package service
