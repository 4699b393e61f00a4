package transport

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
)

func TestPipeDeliversInOrder(t *testing.T) {
	a, b := NewPipe("CSMS", "CS1", 4)
	defer a.Close()

	if a.RemoteID() != "CS1" || b.RemoteID() != "CSMS" || a.LocalID() != "CSMS" {
		t.Fatalf("unexpected ids %s/%s", a.RemoteID(), b.RemoteID())
	}

	const n = 100
	var (
		mu   sync.Mutex
		got  []string
		from ids.NetworkingNodeID
		wg   sync.WaitGroup
	)
	wg.Add(n)
	b.SetHandler(func(sender ids.NetworkingNodeID, data []byte) {
		mu.Lock()
		got = append(got, string(data))
		from = sender
		mu.Unlock()
		wg.Done()
	})

	for i := range n {
		if err := a.Send([]byte(fmt.Sprintf("frame-%03d", i))); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if from != "CSMS" {
		t.Errorf("sender: got %s, want CSMS", from)
	}
	for i, frame := range got {
		if want := fmt.Sprintf("frame-%03d", i); frame != want {
			t.Fatalf("frame %d: got %s, want %s", i, frame, want)
		}
	}
}

func TestPipeCopiesFrames(t *testing.T) {
	a, b := NewPipe("A", "B", 0)
	defer a.Close()

	received := make(chan []byte, 1)
	b.SetHandler(func(_ ids.NetworkingNodeID, data []byte) { received <- data })

	buf := []byte("hello")
	if err := a.Send(buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'j'

	select {
	case got := <-received:
		if string(got) != "hello" {
			t.Errorf("got %q, want hello", got)
		}
	case <-time.After(time.Second):
		t.Fatal("frame not delivered")
	}
}

func TestPipeCloseNotifiesBothEnds(t *testing.T) {
	a, b := NewPipe("A", "B", 0)

	closed := make(chan ids.NetworkingNodeID, 2)
	a.SetCloseHandler(func() { closed <- "A" })
	b.SetCloseHandler(func() { closed <- "B" })

	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	_ = a.Close()

	seen := map[ids.NetworkingNodeID]bool{}
	for range 2 {
		select {
		case id := <-closed:
			seen[id] = true
		case <-time.After(time.Second):
			t.Fatal("close handler not called")
		}
	}
	if !seen["A"] || !seen["B"] {
		t.Errorf("close handlers called for %v", seen)
	}

	<-a.Done()
	<-b.Done()
	if err := a.Send([]byte("x")); err != ErrLinkClosed {
		t.Errorf("Send after close: got %v, want ErrLinkClosed", err)
	}
}
