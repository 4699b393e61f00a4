package transport

import (
	"errors"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
)

// ErrLinkClosed is returned by Send on a closed link.
var ErrLinkClosed = errors.New("link closed")

// FrameHandler receives frames arriving on a link.
type FrameHandler func(from ids.NetworkingNodeID, data []byte)

// Link is a bidirectional frame channel to one neighbour.
type Link interface {
	// RemoteID returns the neighbour's node id.
	RemoteID() ids.NetworkingNodeID

	// Send queues one frame for delivery.
	Send(data []byte) error

	// SetHandler installs the receiver of incoming frames. It must be
	// called before frames arrive; later frames go to the new handler.
	SetHandler(h FrameHandler)

	// SetCloseHandler installs a callback invoked once when the link goes
	// down, from either side.
	SetCloseHandler(fn func())

	// Close shuts the link down.
	Close() error
}
