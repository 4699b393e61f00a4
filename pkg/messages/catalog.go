package messages

import (
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/registry"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// Default entries.
var (
	BootNotification = BootNotificationEntry(BootNotificationCodecs{})
	Heartbeat        = HeartbeatEntry
	DataTransfer     = DataTransferEntry(wire.Codec[wire.StatusInfo]{})
)

// Register adds the default entries of this package to r.
func Register(r *registry.Registry) error {
	if err := registry.Register(r, BootNotification); err != nil {
		return err
	}
	if err := registry.Register(r, Heartbeat); err != nil {
		return err
	}
	return registry.Register(r, DataTransfer)
}

// NewRegistry returns a frozen registry holding the default entries.
func NewRegistry() *registry.Registry {
	r := registry.New()
	if err := Register(r); err != nil {
		panic(err)
	}
	r.Freeze()
	return r
}
