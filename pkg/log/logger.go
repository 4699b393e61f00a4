package log

import "time"

// Logger receives protocol events. Implementations must be safe for
// concurrent use and should not block.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards all events.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}

// OrNoop returns l, or NoopLogger if l is nil.
func OrNoop(l Logger) Logger {
	if l == nil {
		return NoopLogger{}
	}
	return l
}

// Scope stamps node and link identity on events before passing them on.
type Scope struct {
	Logger   Logger
	NodeID   string
	LinkID   string
	RemoteID string

	// Now returns the event timestamp. Nil uses time.Now.
	Now func() time.Time
}

// Log fills in the scope fields that the event leaves empty.
func (s Scope) Log(event Event) {
	if s.Logger == nil {
		return
	}
	if event.Timestamp.IsZero() {
		if s.Now != nil {
			event.Timestamp = s.Now()
		} else {
			event.Timestamp = time.Now()
		}
	}
	if event.NodeID == "" {
		event.NodeID = s.NodeID
	}
	if event.LinkID == "" {
		event.LinkID = s.LinkID
	}
	if event.RemoteID == "" {
		event.RemoteID = s.RemoteID
	}
	s.Logger.Log(event)
}

// Error logs an error event.
func (s Scope) Error(layer Layer, context string, err error, code string) {
	s.Log(Event{
		Layer:    layer,
		Category: CategoryError,
		Error: &ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Code:    code,
			Context: context,
		},
	})
}

// State logs a state change.
func (s Scope) State(entity StateEntity, key, oldState, newState, reason string) {
	s.Log(Event{
		Layer:    LayerService,
		Category: CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   entity,
			Key:      key,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

var _ Logger = Scope{}
