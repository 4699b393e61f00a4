// Package transport defines the link abstraction a networking node uses to
// exchange encoded OCPP-J frames with its neighbours.
//
// A Link carries whole frames; byte-stream framing, TLS and reconnection
// belong to the concrete transport behind it. Frames sent on one link must
// be delivered in order. Pipe provides an in-memory pair of links for
// embedding several nodes in one process and for tests:
//
//	a, b := transport.NewPipe("CSMS", "CS1", 16)
//	csms.AddLink(a)
//	station.AddLink(b)
package transport
