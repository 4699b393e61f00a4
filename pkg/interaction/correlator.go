package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/log"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// Correlator errors.
var (
	ErrDuplicateRequestID = errors.New("request id already in flight")
	ErrCorrelatorClosed   = errors.New("correlator is closed")
	ErrNegativeTimeout    = errors.New("negative request timeout")
)

// State is the lifecycle state of an outstanding request.
type State uint32

const (
	StateCreated State = iota
	StateSent
	StateAcknowledged
	StateTimedOut
	StateCancelled
	StateConnectionLost

	// StateFailed means the request could not be handed to the link.
	StateFailed
)

var stateNames = [...]string{
	StateCreated:        "CREATED",
	StateSent:           "SENT",
	StateAcknowledged:   "ACKNOWLEDGED",
	StateTimedOut:       "TIMED_OUT",
	StateCancelled:      "CANCELLED",
	StateConnectionLost: "CONNECTION_LOST",
	StateFailed:         "FAILED",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// IsTerminal returns true for states that end the request.
func (s State) IsTerminal() bool {
	return s >= StateAcknowledged
}

// Outcome is how a pending request ended.
type Outcome struct {
	State State

	// Frame is the response frame for StateAcknowledged.
	Frame *wire.Frame

	// Err is set for StateFailed.
	Err error

	// Timeout is the deadline that applied.
	Timeout time.Duration

	// Runtime is the time from registration to the outcome.
	Runtime time.Duration
}

// Result maps the outcome to the result of the response.
func (o Outcome) Result() wire.Result {
	switch o.State {
	case StateAcknowledged:
		if o.Frame == nil {
			return wire.ExceptionOccurred(errors.New("acknowledged without frame"))
		}
		return o.Frame.Result()
	case StateTimedOut:
		return wire.Timeout(o.Timeout)
	case StateCancelled:
		return wire.Cancelled()
	case StateConnectionLost:
		return wire.ConnectionLost()
	default:
		return wire.ExceptionOccurred(o.Err)
	}
}

// Error returns nil for an acknowledged outcome and an *OutcomeError
// otherwise. A CALLERROR response still counts as acknowledged.
func (o Outcome) Error() error {
	if o.State == StateAcknowledged {
		return nil
	}
	return &OutcomeError{State: o.State, Err: o.Err}
}

// OutcomeError reports a request that ended without a response.
type OutcomeError struct {
	State State
	Err   error
}

func (e *OutcomeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request %s: %v", e.State, e.Err)
	}
	return fmt.Sprintf("request %s", e.State)
}

func (e *OutcomeError) Unwrap() error {
	return e.Err
}

// Pending is one outstanding request.
type Pending struct {
	id      ids.RequestID
	corr    *Correlator
	timeout time.Duration
	started time.Time
	timer   *clock.Timer

	state   atomic.Uint32
	done    chan struct{}
	outcome Outcome
}

// ID returns the request id.
func (p *Pending) ID() ids.RequestID {
	return p.id
}

// State returns the current state.
func (p *Pending) State() State {
	return State(p.state.Load())
}

// Done is closed once the request reached a terminal state.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// MarkSent records that the request was handed to the link.
func (p *Pending) MarkSent() bool {
	return p.state.CompareAndSwap(uint32(StateCreated), uint32(StateSent))
}

// Outcome returns the outcome once terminal.
func (p *Pending) Outcome() (Outcome, bool) {
	select {
	case <-p.done:
		return p.outcome, true
	default:
		return Outcome{}, false
	}
}

// Wait blocks until the request ends or ctx is done. When ctx ends first,
// the request is cancelled locally and stays registered until its response
// or deadline.
func (p *Pending) Wait(ctx context.Context) Outcome {
	select {
	case <-p.done:
		return p.outcome
	case <-ctx.Done():
		p.finish(StateCancelled, nil, ctx.Err())
		<-p.done
		return p.outcome
	}
}

// finish moves the request to a terminal state. Only the first call wins.
func (p *Pending) finish(state State, frame *wire.Frame, err error) bool {
	var from State
	for {
		from = State(p.state.Load())
		if from.IsTerminal() {
			return false
		}
		if p.state.CompareAndSwap(uint32(from), uint32(state)) {
			break
		}
	}
	p.outcome = Outcome{
		State:   state,
		Frame:   frame,
		Timeout: p.timeout,
		Runtime: p.corr.clock.Since(p.started),
	}
	if state == StateFailed || state == StateCancelled {
		p.outcome.Err = err
	}
	close(p.done)
	p.corr.logState(p.id, from, state)
	return true
}

// Correlator tracks the outstanding requests of one link. It is safe for
// concurrent use; it shares no locks with other correlators.
type Correlator struct {
	clock          clock.Clock
	defaultTimeout time.Duration
	logger         log.Scope

	mu      sync.Mutex
	pending map[ids.RequestID]*Pending
	closed  bool
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithClock sets the clock that drives deadlines.
func WithClock(c clock.Clock) Option {
	return func(cr *Correlator) { cr.clock = c }
}

// WithDefaultTimeout sets the timeout for requests registered with zero.
func WithDefaultTimeout(d time.Duration) Option {
	return func(cr *Correlator) { cr.defaultTimeout = d }
}

// WithLogger sets the protocol logger scope.
func WithLogger(s log.Scope) Option {
	return func(cr *Correlator) { cr.logger = s }
}

// NewCorrelator creates an empty correlator.
func NewCorrelator(opts ...Option) *Correlator {
	c := &Correlator{
		clock:          clock.New(),
		defaultTimeout: wire.DefaultRequestTimeout,
		pending:        make(map[ids.RequestID]*Pending),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger.Now == nil {
		c.logger.Now = c.clock.Now
	}
	return c
}

// Register adds an outstanding request. A zero timeout selects the default.
func (c *Correlator) Register(id ids.RequestID, timeout time.Duration) (*Pending, error) {
	if timeout < 0 {
		return nil, ErrNegativeTimeout
	}
	if timeout == 0 {
		timeout = c.defaultTimeout
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrCorrelatorClosed
	}
	if _, exists := c.pending[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateRequestID, id)
	}

	p := &Pending{
		id:      id,
		corr:    c,
		timeout: timeout,
		started: c.clock.Now(),
		done:    make(chan struct{}),
	}
	p.timer = c.clock.AfterFunc(timeout, func() { c.expire(p) })
	c.pending[id] = p
	return p, nil
}

// Complete delivers a response frame. It returns false if no request was
// waiting for it; such frames are logged and discarded.
func (c *Correlator) Complete(f *wire.Frame) bool {
	p := c.remove(f.RequestID, nil)
	if p == nil {
		c.discard(f, "no outstanding request")
		return false
	}
	p.timer.Stop()
	if !p.finish(StateAcknowledged, f, nil) {
		c.discard(f, "request already "+p.State().String())
		return false
	}
	return true
}

// Fail ends a request that could not be sent.
func (c *Correlator) Fail(id ids.RequestID, err error) {
	if p := c.remove(id, nil); p != nil {
		p.timer.Stop()
		p.finish(StateFailed, nil, err)
	}
}

// Close ends every outstanding request with ConnectionLost. Later
// registrations fail with ErrCorrelatorClosed.
func (c *Correlator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[ids.RequestID]*Pending)
	c.mu.Unlock()

	for _, p := range pending {
		p.timer.Stop()
		p.finish(StateConnectionLost, nil, nil)
	}
}

// Len returns the number of registered requests.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Has returns true if id is registered.
func (c *Correlator) Has(id ids.RequestID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[id]
	return ok
}

func (c *Correlator) expire(p *Pending) {
	if c.remove(p.id, p) == nil {
		return
	}
	p.finish(StateTimedOut, nil, nil)
}

// remove deletes id from the table. If want is non-nil, only that exact
// entry is removed.
func (c *Correlator) remove(id ids.RequestID, want *Pending) *Pending {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[id]
	if !ok || (want != nil && p != want) {
		return nil
	}
	delete(c.pending, id)
	return p
}

func (c *Correlator) discard(f *wire.Frame, reason string) {
	c.logger.Log(log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerService,
		Category:  log.CategoryError,
		Message:   log.NewMessageEvent(f),
		Error: &log.ErrorEventData{
			Layer:   log.LayerService,
			Message: fmt.Sprintf("discarded response %s: %s", f.RequestID, reason),
			Context: "correlation",
		},
	})
}

func (c *Correlator) logState(id ids.RequestID, from, to State) {
	c.logger.State(log.StateEntityRequest, string(id), from.String(), to.String(), "")
}
