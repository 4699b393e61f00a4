package messages

import (
	"fmt"
	"slices"
	"time"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/registry"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// ActionBootNotification is the OCPP action name.
const ActionBootNotification = "BootNotification"

// Field limits of BootNotification.
const (
	MaxModelLength           = 20
	MaxVendorNameLength      = 50
	MaxSerialNumberLength    = 25
	MaxFirmwareVersionLength = 50
	MaxICCIDLength           = 20
	MaxIMSILength            = 20
)

// BootReason is why a charging station (re)booted.
type BootReason string

// Boot reasons.
const (
	BootReasonApplicationReset BootReason = "ApplicationReset"
	BootReasonFirmwareUpdate   BootReason = "FirmwareUpdate"
	BootReasonLocalReset       BootReason = "LocalReset"
	BootReasonPowerUp          BootReason = "PowerUp"
	BootReasonRemoteReset      BootReason = "RemoteReset"
	BootReasonScheduledReset   BootReason = "ScheduledReset"
	BootReasonTriggered        BootReason = "Triggered"
	BootReasonUnknown          BootReason = "Unknown"
	BootReasonWatchdog         BootReason = "Watchdog"
)

var bootReasons = []BootReason{
	BootReasonApplicationReset, BootReasonFirmwareUpdate, BootReasonLocalReset,
	BootReasonPowerUp, BootReasonRemoteReset, BootReasonScheduledReset,
	BootReasonTriggered, BootReasonUnknown, BootReasonWatchdog,
}

// RegistrationStatus is the CSMS verdict on a boot notification.
type RegistrationStatus string

// Registration statuses.
const (
	RegistrationAccepted RegistrationStatus = "Accepted"
	RegistrationPending  RegistrationStatus = "Pending"
	RegistrationRejected RegistrationStatus = "Rejected"
)

// Modem describes the wireless module of a charging station.
type Modem struct {
	ICCID      *string
	IMSI       *string
	CustomData wire.VendorData
}

// ChargingStation identifies the booting station.
type ChargingStation struct {
	Model           string
	VendorName      string
	SerialNumber    *string
	FirmwareVersion *string
	Modem           *Modem
	CustomData      wire.VendorData
}

// BootNotificationRequest is sent by a charging station after boot.
type BootNotificationRequest struct {
	ChargingStation ChargingStation
	Reason          BootReason
}

// BootNotificationResponse is the CSMS answer.
type BootNotificationResponse struct {
	CurrentTime time.Time

	// Interval is the heartbeat interval in seconds when accepted, or the
	// retry delay otherwise.
	Interval   int64
	Status     RegistrationStatus
	StatusInfo *wire.StatusInfo
}

// NewBootNotificationRequest creates a request. It panics on an empty model
// or vendor name or an unknown reason.
func NewBootNotificationRequest(station ChargingStation, reason BootReason) BootNotificationRequest {
	if station.Model == "" || station.VendorName == "" {
		panic("messages: charging station requires model and vendor name")
	}
	if !slices.Contains(bootReasons, reason) {
		panic(fmt.Sprintf("messages: unknown boot reason %q", reason))
	}
	return BootNotificationRequest{ChargingStation: station, Reason: reason}
}

// NewBootNotificationResponse creates a response. It panics on a negative
// interval or an unknown status.
func NewBootNotificationResponse(currentTime time.Time, interval int64, status RegistrationStatus) BootNotificationResponse {
	if interval < 0 {
		panic(fmt.Sprintf("messages: negative interval %d", interval))
	}
	switch status {
	case RegistrationAccepted, RegistrationPending, RegistrationRejected:
	default:
		panic(fmt.Sprintf("messages: unknown registration status %q", status))
	}
	return BootNotificationResponse{CurrentTime: currentTime.UTC(), Interval: interval, Status: status}
}

// ModemCodec is the default Modem strategy.
var ModemCodec = wire.Codec[Modem]{
	Parse:     wire.ObjectOf(parseModem),
	Serialize: wire.SerializeObject(serializeModem),
}

func parseModem(o *wire.Object) (Modem, error) {
	var m Modem
	var err error
	if m.ICCID, err = wire.Optional(o, "iccid", "string[..20]", wire.MaxString(MaxICCIDLength)); err != nil {
		return Modem{}, err
	}
	if m.IMSI, err = wire.Optional(o, "imsi", "string[..20]", wire.MaxString(MaxIMSILength)); err != nil {
		return Modem{}, err
	}
	if m.CustomData, err = wire.OptionalVendorData(o); err != nil {
		return Modem{}, err
	}
	return m, nil
}

func serializeModem(m Modem, b *wire.Builder) {
	wire.SetOptional(b, "iccid", m.ICCID, nil)
	wire.SetOptional(b, "imsi", m.IMSI, nil)
	m.CustomData.SetOn(b)
}

// ChargingStationCodecs holds the nested strategies of ChargingStation.
type ChargingStationCodecs struct {
	Modem wire.Codec[Modem]
}

// NewChargingStationCodec builds a ChargingStation strategy. Unset nested
// strategies use the defaults.
func NewChargingStationCodec(c ChargingStationCodecs) wire.Codec[ChargingStation] {
	modem := c.Modem.Or(ModemCodec)
	return wire.Codec[ChargingStation]{
		Parse: wire.ObjectOf(func(o *wire.Object) (ChargingStation, error) {
			var s ChargingStation
			var err error
			if s.Model, err = wire.Mandatory(o, "model", "string[1..20]", wire.NonEmptyString(MaxModelLength)); err != nil {
				return ChargingStation{}, err
			}
			if s.VendorName, err = wire.Mandatory(o, "vendorName", "string[1..50]", wire.NonEmptyString(MaxVendorNameLength)); err != nil {
				return ChargingStation{}, err
			}
			if s.SerialNumber, err = wire.Optional(o, "serialNumber", "string[..25]", wire.MaxString(MaxSerialNumberLength)); err != nil {
				return ChargingStation{}, err
			}
			if s.FirmwareVersion, err = wire.Optional(o, "firmwareVersion", "string[..50]", wire.MaxString(MaxFirmwareVersionLength)); err != nil {
				return ChargingStation{}, err
			}
			if s.Modem, err = wire.Optional(o, "modem", "Modem", modem.Parse); err != nil {
				return ChargingStation{}, err
			}
			if s.CustomData, err = wire.OptionalVendorData(o); err != nil {
				return ChargingStation{}, err
			}
			return s, nil
		}),
		Serialize: wire.SerializeObject(func(s ChargingStation, b *wire.Builder) {
			b.Set("model", s.Model)
			b.Set("vendorName", s.VendorName)
			wire.SetOptional(b, "serialNumber", s.SerialNumber, nil)
			wire.SetOptional(b, "firmwareVersion", s.FirmwareVersion, nil)
			wire.SetOptional(b, "modem", s.Modem, modem.Serialize)
			s.CustomData.SetOn(b)
		}),
	}
}

// ChargingStationCodec is the default ChargingStation strategy.
var ChargingStationCodec = NewChargingStationCodec(ChargingStationCodecs{})

// BootNotificationCodecs holds the nested strategies of both directions.
type BootNotificationCodecs struct {
	ChargingStation wire.Codec[ChargingStation]
	StatusInfo      wire.Codec[wire.StatusInfo]
}

// BootNotificationEntry builds the registry entry. Unset strategies use the
// defaults.
func BootNotificationEntry(c BootNotificationCodecs) registry.Entry[BootNotificationRequest, BootNotificationResponse] {
	station := c.ChargingStation.Or(ChargingStationCodec)
	statusInfo := c.StatusInfo.Or(wire.StatusInfoCodec)

	return registry.Entry[BootNotificationRequest, BootNotificationResponse]{
		Action: ActionBootNotification,
		Request: wire.PayloadCodec[BootNotificationRequest]{
			Parse: func(o *wire.Object) (BootNotificationRequest, error) {
				var r BootNotificationRequest
				var err error
				if r.ChargingStation, err = wire.Mandatory(o, "chargingStation", "ChargingStation", station.Parse); err != nil {
					return BootNotificationRequest{}, err
				}
				if r.Reason, err = wire.Mandatory(o, "reason", "BootReason", wire.Enum(bootReasons...)); err != nil {
					return BootNotificationRequest{}, err
				}
				return r, nil
			},
			Serialize: func(r BootNotificationRequest, b *wire.Builder) {
				b.Set("chargingStation", station.Serialize(r.ChargingStation))
				b.Set("reason", r.Reason)
			},
		},
		Response: wire.PayloadCodec[BootNotificationResponse]{
			Parse: func(o *wire.Object) (BootNotificationResponse, error) {
				var r BootNotificationResponse
				var err error
				if r.CurrentTime, err = wire.Mandatory(o, "currentTime", "RFC 3339 timestamp", wire.Timestamp); err != nil {
					return BootNotificationResponse{}, err
				}
				if r.Interval, err = wire.Mandatory(o, "interval", "integer >= 0", wire.NonNegativeInt); err != nil {
					return BootNotificationResponse{}, err
				}
				if r.Status, err = wire.Mandatory(o, "status", "RegistrationStatus",
					wire.Enum(RegistrationAccepted, RegistrationPending, RegistrationRejected)); err != nil {
					return BootNotificationResponse{}, err
				}
				if r.StatusInfo, err = wire.Optional(o, "statusInfo", "StatusInfo", statusInfo.Parse); err != nil {
					return BootNotificationResponse{}, err
				}
				return r, nil
			},
			Serialize: func(r BootNotificationResponse, b *wire.Builder) {
				b.Set("currentTime", wire.FormatTimestamp(r.CurrentTime))
				b.Set("interval", r.Interval)
				b.Set("status", r.Status)
				wire.SetOptional(b, "statusInfo", r.StatusInfo, statusInfo.Serialize)
			},
		},
	}
}
