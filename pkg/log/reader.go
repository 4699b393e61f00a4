package log

import (
	"errors"
	"io"
	"os"
	"slices"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events. Zero fields match everything.
type Filter struct {
	LinkID    string
	NodeID    string
	RemoteID  string
	RequestID string
	Direction *Direction
	Layer     *Layer
	Category  *Category

	// TimeStart matches events at or after this time.
	TimeStart *time.Time

	// TimeEnd matches events before this time.
	TimeEnd *time.Time
}

// Matches returns true if the event satisfies every criterion.
func (f *Filter) Matches(event Event) bool {
	switch {
	case f.LinkID != "" && event.LinkID != f.LinkID,
		f.NodeID != "" && event.NodeID != f.NodeID,
		f.RemoteID != "" && event.RemoteID != f.RemoteID,
		f.Direction != nil && event.Direction != *f.Direction,
		f.Layer != nil && event.Layer != *f.Layer,
		f.Category != nil && event.Category != *f.Category,
		f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart),
		f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	}
	if f.RequestID != "" && !slices.Contains(requestIDs(event), f.RequestID) {
		return false
	}
	return true
}

func requestIDs(event Event) []string {
	var out []string
	if event.Message != nil {
		out = append(out, event.Message.RequestID)
	}
	if event.Route != nil {
		out = append(out, event.Route.RequestID)
	}
	if event.StateChange != nil && event.StateChange.Entity == StateEntityRequest {
		out = append(out, event.StateChange.Key)
	}
	return out
}

// Reader streams events from a log file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens a log file for reading all events.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a log file for reading events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, decoder: NewDecoder(f), filter: filter}, nil
}

// Next returns the next matching event, or io.EOF.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.file.Close()
}
