package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

func TestEventCBORRoundTrip(t *testing.T) {
	runtime := 42 * time.Millisecond
	code := wire.ResultSignatureError
	event := Event{
		Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC),
		LinkID:    NewLinkID(),
		Direction: DirectionOut,
		Layer:     LayerWire,
		Category:  CategoryMessage,
		NodeID:    "CSMS",
		RemoteID:  "LC1",
		Message: &MessageEvent{
			Type:          wire.MessageTypeCallError,
			RequestID:     "r1",
			DestinationID: "CS1",
			NetworkPath:   []string{"LC1", "CS1"},
			ResultCode:    &code,
			ErrorCode:     "SecurityError",
			Runtime:       &runtime,
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, event.Timestamp)
	}
	if decoded.LinkID != event.LinkID || decoded.NodeID != "CSMS" || decoded.RemoteID != "LC1" {
		t.Errorf("identity fields not preserved: %+v", decoded)
	}
	if decoded.Message == nil {
		t.Fatal("Message is nil")
	}
	if *decoded.Message.ResultCode != wire.ResultSignatureError {
		t.Errorf("ResultCode: got %v", *decoded.Message.ResultCode)
	}
	if *decoded.Message.Runtime != runtime {
		t.Errorf("Runtime: got %v, want %v", *decoded.Message.Runtime, runtime)
	}
	if len(decoded.Message.NetworkPath) != 2 {
		t.Errorf("NetworkPath: got %v", decoded.Message.NetworkPath)
	}
}

func TestNewMessageEvent(t *testing.T) {
	f, err := wire.NewCallError("CSMS", wire.NetworkPath{"LC1"}, "r9",
		wire.RequestError(wire.ErrorCodeUnknownNetworkingNode, "no route", nil))
	if err != nil {
		t.Fatal(err)
	}
	me := NewMessageEvent(f)
	if me.RequestID != "r9" || me.ErrorCode != "UnknownNetworkingNode" {
		t.Errorf("unexpected message event %+v", me)
	}
	if me.ResultCode == nil || *me.ResultCode != wire.ResultRequestError {
		t.Errorf("ResultCode: got %v", me.ResultCode)
	}

	call := NewMessageEvent(wire.NewCall("CS1", nil, "r1", "Heartbeat", nil))
	if call.ResultCode != nil || call.Action != "Heartbeat" {
		t.Errorf("unexpected call event %+v", call)
	}
}

func TestNewFrameEventTruncates(t *testing.T) {
	fe := NewFrameEvent([]byte("0123456789"), 4)
	if fe.Size != 10 || !fe.Truncated || string(fe.Data) != "0123" {
		t.Errorf("unexpected frame event %+v", fe)
	}
	full := NewFrameEvent([]byte("01"), 0)
	if full.Truncated || string(full.Data) != "01" {
		t.Errorf("unexpected frame event %+v", full)
	}
}

func TestFileLoggerAndReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.olog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dir := DirectionIn
			if i%2 == 1 {
				dir = DirectionOut
			}
			logger.Log(Event{
				Timestamp: base.Add(time.Duration(i) * time.Second),
				Direction: dir,
				Layer:     LayerWire,
				Category:  CategoryMessage,
				Message:   &MessageEvent{Type: wire.MessageTypeCall, RequestID: "r"},
			})
		}()
	}
	wg.Wait()
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	logger.Log(Event{}) // ignored after close

	out := DirectionOut
	r, err := NewFilteredReader(path, Filter{Direction: &out, RequestID: "r"})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer r.Close()

	count := 0
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if e.Direction != DirectionOut {
			t.Errorf("filter let through %v", e.Direction)
		}
		count++
	}
	if count != 5 {
		t.Errorf("got %d outgoing events, want 5", count)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	all, err := ReadAll(f)
	if err != nil || len(all) != 10 {
		t.Errorf("ReadAll: got %d events, err %v", len(all), err)
	}
}

func TestFilterTimeWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Minute)
	f := Filter{TimeStart: &start, TimeEnd: &end}

	tests := []struct {
		at   time.Time
		want bool
	}{
		{start.Add(-time.Second), false},
		{start, true},
		{end.Add(-time.Nanosecond), true},
		{end, false},
	}
	for _, tt := range tests {
		if got := f.Matches(Event{Timestamp: tt.at}); got != tt.want {
			t.Errorf("Matches(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestScopeStampsIdentity(t *testing.T) {
	mem := NewMemoryLogger(0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Scope{Logger: mem, NodeID: "CSMS", LinkID: "link-1", RemoteID: "CS1", Now: func() time.Time { return now }}

	s.Error(LayerService, "correlation", errors.New("unknown request id r7"), "")
	s.State(StateEntityRequest, "r7", "SENT", "TIMED_OUT", "")

	events := mem.Events(Filter{})
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, e := range events {
		if e.NodeID != "CSMS" || e.LinkID != "link-1" || e.RemoteID != "CS1" || !e.Timestamp.Equal(now) {
			t.Errorf("scope fields missing: %+v", e)
		}
	}
	if got := mem.Errors("correlation"); len(got) != 1 {
		t.Errorf("Errors(correlation) = %d events, want 1", len(got))
	}
	if got := mem.Events(Filter{RequestID: "r7"}); len(got) != 1 {
		t.Errorf("RequestID filter matched %d events, want 1", len(got))
	}

	Scope{}.Log(Event{}) // nil logger is a no-op
}

func TestMemoryLoggerLimit(t *testing.T) {
	mem := NewMemoryLogger(3)
	for i := range 5 {
		mem.Log(Event{NodeID: string(rune('a' + i))})
	}
	events := mem.Events(Filter{})
	if len(events) != 3 || events[0].NodeID != "c" {
		t.Errorf("unexpected retained events %+v", events)
	}
}

func TestMultiLoggerSkipsNil(t *testing.T) {
	a, b := NewMemoryLogger(0), NewMemoryLogger(0)
	m := NewMultiLogger(a, nil, b)
	m.Log(Event{NodeID: "x"})
	if len(a.Events(Filter{})) != 1 || len(b.Events(Filter{})) != 1 {
		t.Error("event not delivered to every logger")
	}
	if OrNoop(nil) == nil {
		t.Error("OrNoop(nil) returned nil")
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(Event{
		Direction: DirectionIn,
		Layer:     LayerService,
		Category:  CategoryError,
		NodeID:    "CSMS",
		Error:     &ErrorEventData{Layer: LayerService, Message: "late response", Context: "correlation"},
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["level"] != "WARN" {
		t.Errorf("level: got %v, want WARN", entry["level"])
	}
	if entry["node_id"] != "CSMS" || entry["error_context"] != "correlation" {
		t.Errorf("unexpected entry %v", entry)
	}

	buf.Reset()
	adapter.WithLevel(slog.LevelInfo).Log(Event{
		Layer:    LayerRouting,
		Category: CategoryRoute,
		Route:    &RouteEvent{RequestID: "r1", Decision: "FORWARD", NextHop: "LC1"},
	})
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["level"] != "INFO" || entry["next_hop"] != "LC1" {
		t.Errorf("unexpected entry %v", entry)
	}
}
