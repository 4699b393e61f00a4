package log

import "sync"

// MemoryLogger keeps events in memory, up to a limit. It is used by
// diagnostics endpoints and tests.
type MemoryLogger struct {
	mu     sync.Mutex
	limit  int
	events []Event
}

// NewMemoryLogger keeps the most recent limit events. A limit of zero
// keeps everything.
func NewMemoryLogger(limit int) *MemoryLogger {
	return &MemoryLogger{limit: limit}
}

// Log stores the event.
func (m *MemoryLogger) Log(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	if m.limit > 0 && len(m.events) > m.limit {
		m.events = m.events[len(m.events)-m.limit:]
	}
}

// Events returns the stored events matching filter.
func (m *MemoryLogger) Events(filter Filter) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Errors returns the stored error events with the given context.
func (m *MemoryLogger) Errors(context string) []Event {
	cat := CategoryError
	var out []Event
	for _, e := range m.Events(Filter{Category: &cat}) {
		if e.Error != nil && e.Error.Context == context {
			out = append(out, e)
		}
	}
	return out
}

var _ Logger = (*MemoryLogger)(nil)
