package messages

import (
	"encoding/json"
	"fmt"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/registry"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// ActionDataTransfer is the OCPP action name.
const ActionDataTransfer = "DataTransfer"

// Field limits of DataTransfer.
const (
	MaxDataTransferVendorIDLength  = 255
	MaxDataTransferMessageIDLength = 50
)

// DataTransferStatus is the outcome of a vendor-specific exchange.
type DataTransferStatus string

// Data transfer statuses.
const (
	DataTransferAccepted         DataTransferStatus = "Accepted"
	DataTransferRejected         DataTransferStatus = "Rejected"
	DataTransferUnknownMessageID DataTransferStatus = "UnknownMessageId"
	DataTransferUnknownVendorID  DataTransferStatus = "UnknownVendorId"
)

// DataTransferRequest carries vendor-specific data. Data is any JSON value.
type DataTransferRequest struct {
	VendorID  string
	MessageID *string
	Data      json.RawMessage
}

// DataTransferResponse answers a DataTransferRequest.
type DataTransferResponse struct {
	Status     DataTransferStatus
	StatusInfo *wire.StatusInfo
	Data       json.RawMessage
}

// NewDataTransferRequest creates a request. It panics on an empty or
// oversized vendor id or on data that is not valid JSON.
func NewDataTransferRequest(vendorID string, messageID *string, data json.RawMessage) DataTransferRequest {
	if vendorID == "" || len([]rune(vendorID)) > MaxDataTransferVendorIDLength {
		panic(fmt.Sprintf("messages: invalid vendor id %q", vendorID))
	}
	if len(data) > 0 && !json.Valid(data) {
		panic("messages: data transfer data is not valid JSON")
	}
	return DataTransferRequest{VendorID: vendorID, MessageID: messageID, Data: data}
}

// DataTransferEntry builds the registry entry. An unset StatusInfo strategy
// uses wire.StatusInfoCodec.
func DataTransferEntry(statusInfo wire.Codec[wire.StatusInfo]) registry.Entry[DataTransferRequest, DataTransferResponse] {
	statusInfo = statusInfo.Or(wire.StatusInfoCodec)

	return registry.Entry[DataTransferRequest, DataTransferResponse]{
		Action: ActionDataTransfer,
		Request: wire.PayloadCodec[DataTransferRequest]{
			Parse: func(o *wire.Object) (DataTransferRequest, error) {
				var r DataTransferRequest
				var err error
				if r.VendorID, err = wire.Mandatory(o, "vendorId", "string[1..255]", wire.NonEmptyString(MaxDataTransferVendorIDLength)); err != nil {
					return DataTransferRequest{}, err
				}
				if r.MessageID, err = wire.Optional(o, "messageId", "string[..50]", wire.MaxString(MaxDataTransferMessageIDLength)); err != nil {
					return DataTransferRequest{}, err
				}
				if r.Data, err = optionalRaw(o, "data"); err != nil {
					return DataTransferRequest{}, err
				}
				return r, nil
			},
			Serialize: func(r DataTransferRequest, b *wire.Builder) {
				b.Set("vendorId", r.VendorID)
				wire.SetOptional(b, "messageId", r.MessageID, nil)
				b.SetRaw("data", r.Data)
			},
		},
		Response: wire.PayloadCodec[DataTransferResponse]{
			Parse: func(o *wire.Object) (DataTransferResponse, error) {
				var r DataTransferResponse
				var err error
				if r.Status, err = wire.Mandatory(o, "status", "DataTransferStatus",
					wire.Enum(DataTransferAccepted, DataTransferRejected, DataTransferUnknownMessageID, DataTransferUnknownVendorID)); err != nil {
					return DataTransferResponse{}, err
				}
				if r.StatusInfo, err = wire.Optional(o, "statusInfo", "StatusInfo", statusInfo.Parse); err != nil {
					return DataTransferResponse{}, err
				}
				if r.Data, err = optionalRaw(o, "data"); err != nil {
					return DataTransferResponse{}, err
				}
				return r, nil
			},
			Serialize: func(r DataTransferResponse, b *wire.Builder) {
				b.Set("status", r.Status)
				wire.SetOptional(b, "statusInfo", r.StatusInfo, statusInfo.Serialize)
				b.SetRaw("data", r.Data)
			},
		},
	}
}

func optionalRaw(o *wire.Object, name string) (json.RawMessage, error) {
	v, err := wire.Optional(o, name, "any JSON value", wire.Raw)
	if err != nil || v == nil {
		return nil, err
	}
	return *v, nil
}
