package wire

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
)

func TestFrameRoundTrip(t *testing.T) {
	callErr, err := NewCallError("CSMS", NetworkPath{"CS1", "LC1"}, "r3",
		RequestError(ErrorCodeNotSupported, "no such action", json.RawMessage(`{"hint":"upgrade"}`)))
	require.NoError(t, err)

	tests := []struct {
		name  string
		frame *Frame
		want  string
	}{
		{
			name:  "call",
			frame: NewCall("CS1", NetworkPath{"CSMS", "LC1"}, "r1", "Heartbeat", json.RawMessage(`{}`)),
			want:  `[2,"CS1",["CSMS","LC1"],"r1","Heartbeat",{}]`,
		},
		{
			name:  "call result",
			frame: NewCallResult("CSMS", NetworkPath{"LC1"}, "r2", json.RawMessage(`{"currentTime":"2024-01-01T00:00:00Z"}`)),
			want:  `[3,"CSMS",["LC1"],"r2",{"currentTime":"2024-01-01T00:00:00Z"}]`,
		},
		{
			name:  "call error",
			frame: callErr,
			want:  `[4,"CSMS",["CS1","LC1"],"r3","NotSupported","no such action",{"hint":"upgrade"}]`,
		},
		{
			name:  "call without path",
			frame: NewCall("CS1", nil, "r4", "Heartbeat", nil),
			want:  `[2,"CS1",[],"r4","Heartbeat",{}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeFrame(tt.frame)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			parsed, err := ParseFrame(data)
			require.NoError(t, err)
			assert.Equal(t, tt.frame.Type, parsed.Type)
			assert.Equal(t, tt.frame.RequestID, parsed.RequestID)
			assert.Equal(t, tt.frame.DestinationID, parsed.DestinationID)
			assert.True(t, tt.frame.NetworkPath.Equal(parsed.NetworkPath))
			assert.Equal(t, tt.frame.Action, parsed.Action)
			assert.Equal(t, tt.frame.ErrorCode, parsed.ErrorCode)

			typ, err := PeekFrameType(data)
			require.NoError(t, err)
			assert.Equal(t, tt.frame.Type, typ)
		})
	}
}

func TestParseFrameErrors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		field     string
		canReply  bool
		requestID ids.RequestID
	}{
		{"not array", `{"a":1}`, "", false, ""},
		{"empty array", `[]`, "messageTypeId", false, ""},
		{"unknown type", `[9,"CS1",[],"r1"]`, "messageTypeId", false, ""},
		{"missing request id", `[2,"CS1",[],null,"Heartbeat",{}]`, "requestId", false, ""},
		{"empty hop", `[2,"CS1",["A",""],"r1","Heartbeat",{}]`, "networkPath", true, "r1"},
		{"missing action", `[2,"CS1",[],"r1","",{}]`, "action", true, "r1"},
		{"payload not object", `[2,"CS1",[],"r1","Heartbeat",[]]`, "payload", true, "r1"},
		{"empty destination", `[3,"",[],"r1",{}]`, "destinationId", false, "r1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFrame([]byte(tt.input))
			require.Error(t, err)
			assert.Nil(t, f, "no partially populated frame on error")

			var fe *FrameError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.canReply, fe.CanReply())
			assert.Equal(t, tt.requestID, fe.RequestID)

			if tt.field != "" {
				var pe *ParseError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, tt.field, pe.Field)
			}
		})
	}
}

func TestParseFrameWrongLength(t *testing.T) {
	_, err := ParseFrame([]byte(`[3,"CSMS",[],"r1",{},"extra"]`))
	assert.True(t, errors.Is(err, ErrFrameLength))
}

func TestFrameResult(t *testing.T) {
	f, err := ParseFrame([]byte(`[4,"CSMS",[],"r1","SecurityError","bad signature",{}]`))
	require.NoError(t, err)

	res := f.Result()
	assert.Equal(t, ResultSignatureError, res.Code)
	assert.Nil(t, res.Details)

	ok, err := ParseFrame([]byte(`[3,"CSMS",[],"r1",{}]`))
	require.NoError(t, err)
	assert.True(t, ok.Result().IsOK())
}

func TestLocalOnlyResultsAreNotSerialized(t *testing.T) {
	for _, res := range []Result{Timeout(0), Cancelled(), ConnectionLost()} {
		_, err := NewCallError("CSMS", nil, "r1", res)
		if !errors.Is(err, ErrLocalOnlyResult) {
			t.Errorf("NewCallError(%s) error = %v, want ErrLocalOnlyResult", res.Code, err)
		}
	}
}

func TestResultMapping(t *testing.T) {
	tests := []struct {
		result   Result
		wireCode ErrorCode
		back     ResultCode
	}{
		{FormationViolation("x"), ErrorCodeFormatViolation, ResultFormationViolation},
		{SignatureError("x"), ErrorCodeSecurityError, ResultSignatureError},
		{RequestError(ErrorCodeNotImplemented, "x", nil), ErrorCodeNotImplemented, ResultRequestError},
		{Failed("x"), ErrorCodeGenericError, ResultRequestError},
		{ServerError("x"), ErrorCodeInternalError, ResultServerError},
		{ExceptionOccurred(errors.New("boom")), ErrorCodeInternalError, ResultServerError},
		{RequestError(ErrorCodeUnknownNetworkingNode, "x", nil), ErrorCodeUnknownNetworkingNode, ResultRequestError},
	}

	for _, tt := range tests {
		t.Run(tt.result.Code.String(), func(t *testing.T) {
			code, _, details, err := tt.result.CallError()
			require.NoError(t, err)
			assert.Equal(t, tt.wireCode, code)
			assert.Equal(t, tt.back, ResultFromCallError(code, "x", details).Code)
		})
	}
}

func TestParseFrameKeepsLoopingPath(t *testing.T) {
	f, err := ParseFrame([]byte(`[2,"B",["A","X","R","X"],"id-1","Heartbeat",{}]`))
	require.NoError(t, err)
	assert.Equal(t, NetworkPath{"A", "X", "R", "X"}, f.NetworkPath)
	assert.ErrorIs(t, f.NetworkPath.Validate(), ErrForwardingLoop)
}
