package wire

// StatusInfo limits.
const (
	MaxReasonCodeLength     = 20
	MaxAdditionalInfoLength = 1024
)

// StatusInfo is the business-level elaboration of a response status. It is
// distinct from the transport-level Result.
type StatusInfo struct {
	ReasonCode     string
	AdditionalInfo *string
	CustomData     VendorData
}

// Equal compares two status infos.
func (s StatusInfo) Equal(o StatusInfo) bool {
	return s.ReasonCode == o.ReasonCode &&
		ptrEqual(s.AdditionalInfo, o.AdditionalInfo) &&
		s.CustomData.Equal(o.CustomData)
}

// StatusInfoCodec is the default StatusInfo strategy.
var StatusInfoCodec = Codec[StatusInfo]{
	Parse:     ObjectOf(parseStatusInfo),
	Serialize: SerializeObject(serializeStatusInfo),
}

func parseStatusInfo(o *Object) (StatusInfo, error) {
	var s StatusInfo
	var err error
	if s.ReasonCode, err = Mandatory(o, "reasonCode", "string[1..20]", NonEmptyString(MaxReasonCodeLength)); err != nil {
		return StatusInfo{}, err
	}
	if s.AdditionalInfo, err = Optional(o, "additionalInfo", "string[..1024]", MaxString(MaxAdditionalInfoLength)); err != nil {
		return StatusInfo{}, err
	}
	if s.CustomData, err = OptionalVendorData(o); err != nil {
		return StatusInfo{}, err
	}
	return s, nil
}

func serializeStatusInfo(s StatusInfo, b *Builder) {
	b.Set("reasonCode", s.ReasonCode)
	SetOptional(b, "additionalInfo", s.AdditionalInfo, nil)
	s.CustomData.SetOn(b)
}
