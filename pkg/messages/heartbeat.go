package messages

import (
	"time"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/registry"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// ActionHeartbeat is the OCPP action name.
const ActionHeartbeat = "Heartbeat"

// HeartbeatRequest has no fields of its own.
type HeartbeatRequest struct{}

// HeartbeatResponse carries the CSMS clock.
type HeartbeatResponse struct {
	CurrentTime time.Time
}

// HeartbeatEntry is the registry entry of Heartbeat.
var HeartbeatEntry = registry.Entry[HeartbeatRequest, HeartbeatResponse]{
	Action: ActionHeartbeat,
	Request: wire.PayloadCodec[HeartbeatRequest]{
		Parse:     func(*wire.Object) (HeartbeatRequest, error) { return HeartbeatRequest{}, nil },
		Serialize: func(HeartbeatRequest, *wire.Builder) {},
	},
	Response: wire.PayloadCodec[HeartbeatResponse]{
		Parse: func(o *wire.Object) (HeartbeatResponse, error) {
			t, err := wire.Mandatory(o, "currentTime", "RFC 3339 timestamp", wire.Timestamp)
			if err != nil {
				return HeartbeatResponse{}, err
			}
			return HeartbeatResponse{CurrentTime: t}, nil
		},
		Serialize: func(r HeartbeatResponse, b *wire.Builder) {
			b.Set("currentTime", wire.FormatTimestamp(r.CurrentTime))
		},
	},
}
