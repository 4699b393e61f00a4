package service

import (
	"errors"
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/log"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/signing"
)

// Service errors.
var (
	ErrNodeClosed     = errors.New("node closed")
	ErrDuplicateLink  = errors.New("link to node already exists")
	ErrUnknownLink    = errors.New("no link to node")
	ErrSelfAddressed  = errors.New("request is addressed to the sending node")
	ErrNoHandler      = errors.New("no handler registered")
	ErrHandlerPanic   = errors.New("handler panicked")
	ErrNilRegistry    = errors.New("registry is required")
	ErrEmptyContext   = errors.New("handler context is required")
	ErrDuplicateRoute = errors.New("handler already registered")
)

// ServiceState represents the node state.
type ServiceState uint8

const (
	// StateRunning - node accepts links and requests.
	StateRunning ServiceState = iota

	// StateStopping - Close is in progress.
	StateStopping

	// StateStopped - node has been closed.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Option configures a Node.
type Option func(*options)

type options struct {
	clock          clock.Clock
	generator      ids.Generator
	keys           signing.KeyStore
	logger         *slog.Logger
	protocolLogger log.Logger
}

// WithClock sets the clock driving request deadlines and timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithGenerator overrides the id generator selected by the configuration.
func WithGenerator(g ids.Generator) Option {
	return func(o *options) { o.generator = g }
}

// WithKeyStore replaces the key store built from the signing configuration.
func WithKeyStore(keys signing.KeyStore) Option {
	return func(o *options) { o.keys = keys }
}

// WithLogger sets the operational logger. Nil disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProtocolLogger adds a protocol event logger next to the configured
// protocol log file.
func WithProtocolLogger(l log.Logger) Option {
	return func(o *options) { o.protocolLogger = l }
}
