package transport

import (
	"sync"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
)

// DefaultPipeBuffer is the queue length used for a zero buffer size.
const DefaultPipeBuffer = 64

// pipeShared is the state both ends of a pipe share.
type pipeShared struct {
	once sync.Once
	done chan struct{}
}

// PipeEnd is one end of an in-memory pipe.
type PipeEnd struct {
	local  ids.NetworkingNodeID
	remote ids.NetworkingNodeID
	shared *pipeShared

	// out is drained by the peer's delivery goroutine.
	out  chan []byte
	peer *PipeEnd

	mu      sync.RWMutex
	handler FrameHandler
	onClose func()

	finished chan struct{}
}

// NewPipe returns two connected links: the first belongs to node a and
// reaches b, the second the other way round. Each direction delivers frames
// in order on its own goroutine.
func NewPipe(a, b ids.NetworkingNodeID, buffer int) (*PipeEnd, *PipeEnd) {
	if buffer <= 0 {
		buffer = DefaultPipeBuffer
	}
	shared := &pipeShared{done: make(chan struct{})}
	endA := &PipeEnd{local: a, remote: b, shared: shared, out: make(chan []byte, buffer), finished: make(chan struct{})}
	endB := &PipeEnd{local: b, remote: a, shared: shared, out: make(chan []byte, buffer), finished: make(chan struct{})}
	endA.peer, endB.peer = endB, endA

	go endB.deliver(endA.out)
	go endA.deliver(endB.out)
	return endA, endB
}

// LocalID returns the node this end belongs to.
func (p *PipeEnd) LocalID() ids.NetworkingNodeID {
	return p.local
}

// RemoteID returns the node at the other end.
func (p *PipeEnd) RemoteID() ids.NetworkingNodeID {
	return p.remote
}

// Send queues a copy of data for the peer. It blocks while the queue is
// full and fails once the pipe is closed.
func (p *PipeEnd) Send(data []byte) error {
	frame := append([]byte(nil), data...)
	select {
	case <-p.shared.done:
		return ErrLinkClosed
	default:
	}
	select {
	case p.out <- frame:
		return nil
	case <-p.shared.done:
		return ErrLinkClosed
	}
}

// SetHandler installs the receiver of incoming frames.
func (p *PipeEnd) SetHandler(h FrameHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
}

// SetCloseHandler installs the close callback.
func (p *PipeEnd) SetCloseHandler(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClose = fn
}

// Close closes both ends. Frames still queued are dropped.
func (p *PipeEnd) Close() error {
	p.shared.once.Do(func() { close(p.shared.done) })
	return nil
}

// Done is closed once this end's delivery goroutine has exited.
func (p *PipeEnd) Done() <-chan struct{} {
	return p.finished
}

// deliver hands frames from in to this end's handler until the pipe closes.
func (p *PipeEnd) deliver(in <-chan []byte) {
	defer func() {
		p.mu.RLock()
		fn := p.onClose
		p.mu.RUnlock()
		if fn != nil {
			fn()
		}
		close(p.finished)
	}()

	for {
		select {
		case <-p.shared.done:
			return
		case frame := <-in:
			p.mu.RLock()
			h := p.handler
			p.mu.RUnlock()
			if h != nil {
				h(p.remote, frame)
			}
		}
	}
}

var _ Link = (*PipeEnd)(nil)
