// Package wire defines the OCPP-J wire format and the generic message
// envelope shared by every request/response pair.
//
// Frames are JSON arrays using the networking extension, which adds the
// destination and the network path travelled so far:
//
//	CALL:       [2, "<destinationId>", [networkPath], "<requestId>", "<action>", {payload}]
//	CALLRESULT: [3, "<destinationId>", [networkPath], "<requestId>", {payload}]
//	CALLERROR:  [4, "<destinationId>", [networkPath], "<requestId>", "<errorCode>", "<errorDescription>", {errorDetails}]
//
// # Envelope
//
// Request[P] and Response[Q, P] wrap a payload with routing and security
// metadata. Signatures and customData travel inside the JSON payload but are
// owned by the envelope; message types only see their own fields.
//
// # Parsing
//
// Parsing never panics on remote input. Object, Mandatory and Optional
// produce a *ParseError naming the offending field. Unknown payload fields
// are retained in CustomData.Unrecognized so newer protocol revisions
// survive a parse/serialize round trip.
//
// # Results
//
// Every response carries a Result. Timeout, Cancelled and ConnectionLost are
// local-only: they are produced by the correlator and never serialized.
package wire
