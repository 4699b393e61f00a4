package messages

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/registry"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

func ptr[T any](v T) *T { return &v }

var bootTime = time.Date(2025, 3, 14, 15, 9, 26, 535000000, time.UTC)

func TestRoundTrip(t *testing.T) {
	station := ChargingStation{
		Model:           "Wallbox 22",
		VendorName:      "Open Charging",
		SerialNumber:    ptr("SN-0042"),
		FirmwareVersion: ptr("1.4.2"),
		Modem:           &Modem{ICCID: ptr("8949"), IMSI: ptr("26201")},
	}

	t.Run("BootNotificationRequest", func(t *testing.T) {
		roundTrip(t, BootNotification.Request, NewBootNotificationRequest(station, BootReasonPowerUp))
	})
	t.Run("BootNotificationRequestMinimal", func(t *testing.T) {
		roundTrip(t, BootNotification.Request, NewBootNotificationRequest(
			ChargingStation{Model: "M", VendorName: "V"}, BootReasonWatchdog))
	})
	t.Run("BootNotificationResponse", func(t *testing.T) {
		resp := NewBootNotificationResponse(bootTime, 300, RegistrationPending)
		resp.StatusInfo = &wire.StatusInfo{ReasonCode: "Maintenance", AdditionalInfo: ptr("retry later")}
		roundTrip(t, BootNotification.Response, resp)
	})
	t.Run("HeartbeatRequest", func(t *testing.T) {
		roundTrip(t, Heartbeat.Request, HeartbeatRequest{})
	})
	t.Run("HeartbeatResponse", func(t *testing.T) {
		roundTrip(t, Heartbeat.Response, HeartbeatResponse{CurrentTime: bootTime})
	})
	t.Run("DataTransferRequest", func(t *testing.T) {
		roundTrip(t, DataTransfer.Request, NewDataTransferRequest("org.example", ptr("meterValues"), json.RawMessage(`{"kWh":[1.5,2]}`)))
	})
	t.Run("DataTransferResponse", func(t *testing.T) {
		roundTrip(t, DataTransfer.Response, DataTransferResponse{Status: DataTransferUnknownVendorID, Data: json.RawMessage(`"nope"`)})
	})
}

func roundTrip[T any](t *testing.T, codec wire.PayloadCodec[T], v T) {
	t.Helper()
	raw, err := wire.EncodePayload(v, wire.PayloadMeta{}, codec)
	require.NoError(t, err)

	got, meta, err := wire.DecodePayload(raw, codec)
	require.NoError(t, err, "payload %s", raw)
	assert.True(t, wire.Equal(v, got), "round trip of %s:\n got %+v\nwant %+v", raw, got, v)
	assert.True(t, meta.CustomData.IsEmpty())

	again, err := wire.EncodePayload(got, meta, codec)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(again))
}

func TestSerializeParseKeepsForeignJSON(t *testing.T) {
	in := `{
		"chargingStation": {"model": "M", "vendorName": "V", "modem": {}},
		"reason": "RemoteReset",
		"customData": {"vendorId": "com.example", "rack": 4},
		"futureField": {"nested": true}
	}`
	v, meta, err := wire.DecodePayload(json.RawMessage(in), BootNotification.Request)
	require.NoError(t, err)
	assert.Equal(t, BootReasonRemoteReset, v.Reason)
	assert.Equal(t, "com.example", meta.CustomData.Vendor.VendorID())
	assert.Contains(t, meta.CustomData.Unrecognized, "futureField")

	out, err := wire.EncodePayload(v, meta, BootNotification.Request)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestMissingStatusNamesField(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{"BootNotification", func() error {
			_, _, err := wire.DecodePayload(json.RawMessage(`{"currentTime":"2025-01-01T00:00:00Z","interval":60}`), BootNotification.Response)
			return err
		}},
		{"DataTransfer", func() error {
			_, _, err := wire.DecodePayload(json.RawMessage(`{"data":{}}`), DataTransfer.Response)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if err == nil {
				t.Fatal("expected error for missing status")
			}
			var pe *wire.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %T, want *wire.ParseError", err)
			}
			if pe.Field != "status" || !pe.Missing {
				t.Errorf("field = %q missing = %v, want status/true", pe.Field, pe.Missing)
			}
			if !strings.Contains(err.Error(), `"status"`) {
				t.Errorf("error %q does not name status", err)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		codec func(json.RawMessage) error
		in    string
		field string
	}{
		{"unknown reason", decodeWith(BootNotification.Request), `{"chargingStation":{"model":"M","vendorName":"V"},"reason":"Reboot"}`, "reason"},
		{"model too long", decodeWith(BootNotification.Request), `{"chargingStation":{"model":"` + strings.Repeat("x", 21) + `","vendorName":"V"},"reason":"PowerUp"}`, "chargingStation.model"},
		{"invalid optional modem", decodeWith(BootNotification.Request), `{"chargingStation":{"model":"M","vendorName":"V","modem":{"iccid":7}},"reason":"PowerUp"}`, "chargingStation.modem.iccid"},
		{"negative interval", decodeWith(BootNotification.Response), `{"currentTime":"2025-01-01T00:00:00Z","interval":-1,"status":"Accepted"}`, "interval"},
		{"bad timestamp", decodeWith(Heartbeat.Response), `{"currentTime":"yesterday"}`, "currentTime"},
		{"status info without reason", decodeWith(DataTransfer.Response), `{"status":"Rejected","statusInfo":{}}`, "statusInfo.reasonCode"},
		{"empty vendor", decodeWith(DataTransfer.Request), `{"vendorId":""}`, "vendorId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.codec(json.RawMessage(tt.in))
			var pe *wire.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.field, pe.Field)
		})
	}
}

func decodeWith[T any](codec wire.PayloadCodec[T]) func(json.RawMessage) error {
	return func(raw json.RawMessage) error {
		_, _, err := wire.DecodePayload(raw, codec)
		return err
	}
}

func TestConstructorPanics(t *testing.T) {
	assert.PanicsWithValue(t, "messages: negative interval -5", func() {
		NewBootNotificationResponse(bootTime, -5, RegistrationAccepted)
	})
	assert.Panics(t, func() { NewBootNotificationResponse(bootTime, 5, "Maybe") })
	assert.Panics(t, func() { NewBootNotificationRequest(ChargingStation{Model: "M"}, BootReasonPowerUp) })
	assert.Panics(t, func() { NewBootNotificationRequest(ChargingStation{Model: "M", VendorName: "V"}, "Bored") })
	assert.Panics(t, func() { NewDataTransferRequest("", nil, nil) })
	assert.Panics(t, func() { NewDataTransferRequest("v", nil, json.RawMessage("{")) })
	assert.NotPanics(t, func() { NewBootNotificationResponse(bootTime, 0, RegistrationRejected) })
}

func TestCustomNestedStrategy(t *testing.T) {
	// A station codec that upper-cases the vendor name on the way in.
	custom := ChargingStationCodec
	custom.Parse = func(raw json.RawMessage) (ChargingStation, error) {
		s, err := ChargingStationCodec.Parse(raw)
		s.VendorName = strings.ToUpper(s.VendorName)
		return s, err
	}
	entry := BootNotificationEntry(BootNotificationCodecs{ChargingStation: custom})

	v, _, err := wire.DecodePayload(json.RawMessage(`{"chargingStation":{"model":"M","vendorName":"acme"},"reason":"PowerUp"}`), entry.Request)
	require.NoError(t, err)
	assert.Equal(t, "ACME", v.ChargingStation.VendorName)

	// The response side still uses the default StatusInfo strategy.
	_, _, err = wire.DecodePayload(json.RawMessage(`{"currentTime":"2025-01-01T00:00:00Z","interval":1,"status":"Accepted","statusInfo":{"reasonCode":"OK"}}`), entry.Response)
	assert.NoError(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.Frozen())
	assert.Equal(t, 3, r.Actions())

	b, err := r.ByContext(registry.ContextURI(registry.DefaultVersion, ActionBootNotification, registry.KindResponse))
	require.NoError(t, err)
	assert.Equal(t, ActionBootNotification, b.Action)

	entry, err := registry.Lookup[HeartbeatRequest, HeartbeatResponse](r, ActionHeartbeat)
	require.NoError(t, err)
	raw, err := wire.EncodePayload(HeartbeatResponse{CurrentTime: bootTime}, wire.PayloadMeta{}, entry.Response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"currentTime":"2025-03-14T15:09:26.535Z"}`, string(raw))

	_, err = registry.Lookup[DataTransferRequest, HeartbeatResponse](r, ActionDataTransfer)
	assert.ErrorIs(t, err, registry.ErrTypeMismatch)

	assert.ErrorIs(t, Register(r), registry.ErrFrozen)
}
