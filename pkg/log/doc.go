// Package log provides protocol capture for OCPP networking nodes.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, wire, routing,
// service). It is separate from operational logging (slog): protocol
// capture is a complete machine-readable trace of what a node sent,
// received, forwarded and discarded.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	opts = append(opts, service.WithProtocolLogger(log.NewSlogAdapter(slog.Default())))
//
//	// For production: write to a binary file
//	fl, _ := log.NewFileLogger("/var/log/ocpp/csms.olog")
//
//	// Both
//	logger := log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Event Types
//
//   - Transport: raw frame bytes (FrameEvent)
//   - Wire: decoded frames (MessageEvent)
//   - Routing: forwarding decisions (RouteEvent)
//   - Service: link and request state changes (StateChangeEvent)
//
// Errors at any layer use ErrorEventData. Responses that cannot be
// correlated are logged as CategoryError events with context "correlation".
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with integer keys.
package log
