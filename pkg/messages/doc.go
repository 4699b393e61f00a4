// Package messages provides payload types and registry entries for a small
// set of OCPP actions: BootNotification, Heartbeat and DataTransfer.
//
// Each action has a Go type per direction, a wire.PayloadCodec for each,
// and a registry.Entry tying them to the action and its context URIs.
// Nested objects are parsed through wire.Codec values, so a caller can swap
// the handling of, say, ChargingStation without touching the message type:
//
//	entry := messages.BootNotificationEntry(messages.BootNotificationCodecs{
//		ChargingStation: myStationCodec,
//	})
//
// Constructors such as NewBootNotificationResponse panic on values the
// protocol forbids; parsers never panic and report the offending field.
package messages
