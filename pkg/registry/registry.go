// Package registry maps OCPP actions and context URIs to payload codecs.
//
// A Registry is filled once during startup and then frozen. After Freeze
// it is read-only and lookups take no locks, so a single instance can be
// shared by every node and link of a process.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// Registry errors.
var (
	ErrFrozen          = errors.New("registry is frozen")
	ErrDuplicate       = errors.New("duplicate registration")
	ErrUnknownAction   = errors.New("unknown action")
	ErrUnknownContext  = errors.New("unknown context")
	ErrTypeMismatch    = errors.New("registered payload types differ")
	ErrIncompleteEntry = errors.New("incomplete registry entry")
)

// Kind selects the request or response side of an action.
type Kind string

// Context kinds.
const (
	KindRequest  Kind = "request"
	KindResponse Kind = "response"
)

// ContextBase is the prefix of all generated context URIs.
const ContextBase = "https://open.charging.cloud/context/ocpp"

// ContextURI builds the context URI of one side of an action, e.g.
// "https://open.charging.cloud/context/ocpp/v2.1/bootNotification/request".
func ContextURI(version, action string, kind Kind) string {
	if action != "" {
		action = strings.ToLower(action[:1]) + action[1:]
	}
	return ContextBase + "/" + version + "/" + action + "/" + string(kind)
}

// Entry describes one action with typed codecs for both directions.
type Entry[Q, P any] struct {
	Action          string
	RequestContext  string
	ResponseContext string
	Request         wire.PayloadCodec[Q]
	Response        wire.PayloadCodec[P]
}

// Binding is the type-erased view of an Entry used for dispatch.
type Binding struct {
	Action          string
	RequestContext  string
	ResponseContext string

	ParseRequest      func(raw json.RawMessage) (any, wire.PayloadMeta, error)
	SerializeRequest  func(v any, meta wire.PayloadMeta) (json.RawMessage, error)
	ParseResponse     func(raw json.RawMessage) (any, wire.PayloadMeta, error)
	SerializeResponse func(v any, meta wire.PayloadMeta) (json.RawMessage, error)

	entry any
}

// Registry holds the bindings of all known actions.
type Registry struct {
	mu        sync.RWMutex
	frozen    atomic.Bool
	byAction  map[string]*Binding
	byContext map[string]*Binding
}

// New creates an empty, writable registry.
func New() *Registry {
	return &Registry{
		byAction:  make(map[string]*Binding),
		byContext: make(map[string]*Binding),
	}
}

// Register adds an action. Contexts default to ContextURI("v2.1", ...).
func Register[Q, P any](r *Registry, e Entry[Q, P]) error {
	if e.Action == "" || e.Request.Parse == nil || e.Request.Serialize == nil ||
		e.Response.Parse == nil || e.Response.Serialize == nil {
		return fmt.Errorf("%w: %q", ErrIncompleteEntry, e.Action)
	}
	if e.RequestContext == "" {
		e.RequestContext = ContextURI(DefaultVersion, e.Action, KindRequest)
	}
	if e.ResponseContext == "" {
		e.ResponseContext = ContextURI(DefaultVersion, e.Action, KindResponse)
	}

	b := &Binding{
		Action:            e.Action,
		RequestContext:    e.RequestContext,
		ResponseContext:   e.ResponseContext,
		ParseRequest:      erasedParse(e.Request),
		SerializeRequest:  erasedSerialize(e.Request),
		ParseResponse:     erasedParse(e.Response),
		SerializeResponse: erasedSerialize(e.Response),
		entry:             e,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return ErrFrozen
	}
	if _, exists := r.byAction[e.Action]; exists {
		return fmt.Errorf("%w: action %s", ErrDuplicate, e.Action)
	}
	for _, ctx := range []string{e.RequestContext, e.ResponseContext} {
		if _, exists := r.byContext[ctx]; exists {
			return fmt.Errorf("%w: context %s", ErrDuplicate, ctx)
		}
	}
	r.byAction[e.Action] = b
	r.byContext[e.RequestContext] = b
	r.byContext[e.ResponseContext] = b
	return nil
}

// MustRegister is like Register but panics on error. It is meant for
// static catalogs built at init time.
func MustRegister[Q, P any](r *Registry, e Entry[Q, P]) {
	if err := Register(r, e); err != nil {
		panic(err)
	}
}

// DefaultVersion is the protocol version used for generated contexts.
const DefaultVersion = "v2.1"

// Freeze ends the registration phase. It is idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen.Store(true)
	r.mu.Unlock()
}

// Frozen returns true once Freeze has been called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// ByAction returns the binding of an action.
func (r *Registry) ByAction(action string) (*Binding, error) {
	b, ok := r.lookup(r.byAction, action)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	return b, nil
}

// ByContext returns the binding a context URI belongs to.
func (r *Registry) ByContext(ctx string) (*Binding, error) {
	b, ok := r.lookup(r.byContext, ctx)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContext, ctx)
	}
	return b, nil
}

// Actions returns the number of registered actions.
func (r *Registry) Actions() int {
	if !r.frozen.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	return len(r.byAction)
}

func (r *Registry) lookup(m map[string]*Binding, key string) (*Binding, bool) {
	if r.frozen.Load() {
		b, ok := m[key]
		return b, ok
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := m[key]
	return b, ok
}

// Lookup returns the typed entry of an action. It fails with
// ErrTypeMismatch if the action was registered with other payload types.
func Lookup[Q, P any](r *Registry, action string) (Entry[Q, P], error) {
	b, err := r.ByAction(action)
	if err != nil {
		return Entry[Q, P]{}, err
	}
	return Typed[Q, P](b)
}

// Typed recovers the typed entry behind a binding.
func Typed[Q, P any](b *Binding) (Entry[Q, P], error) {
	e, ok := b.entry.(Entry[Q, P])
	if !ok {
		return Entry[Q, P]{}, fmt.Errorf("%w: %s is %T", ErrTypeMismatch, b.Action, b.entry)
	}
	return e, nil
}

func erasedParse[T any](codec wire.PayloadCodec[T]) func(json.RawMessage) (any, wire.PayloadMeta, error) {
	return func(raw json.RawMessage) (any, wire.PayloadMeta, error) {
		v, meta, err := wire.DecodePayload(raw, codec)
		if err != nil {
			return nil, wire.PayloadMeta{}, err
		}
		return v, meta, nil
	}
}

func erasedSerialize[T any](codec wire.PayloadCodec[T]) func(any, wire.PayloadMeta) (json.RawMessage, error) {
	return func(v any, meta wire.PayloadMeta) (json.RawMessage, error) {
		typed, ok := v.(T)
		if !ok {
			var zero T
			return nil, fmt.Errorf("%w: got %T, want %T", ErrTypeMismatch, v, zero)
		}
		return wire.EncodePayload(typed, meta, codec)
	}
}
