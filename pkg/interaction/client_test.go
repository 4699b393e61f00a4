package interaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/log"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/registry"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

type echoRequest struct{ Text string }
type echoResponse struct{ Text string }

var echoEntry = registry.Entry[echoRequest, echoResponse]{
	Action: "Echo",
	Request: wire.PayloadCodec[echoRequest]{
		Parse: func(o *wire.Object) (echoRequest, error) {
			s, err := wire.Mandatory(o, "text", "string", wire.String)
			return echoRequest{Text: s}, err
		},
		Serialize: func(v echoRequest, b *wire.Builder) { b.Set("text", v.Text) },
	},
	Response: wire.PayloadCodec[echoResponse]{
		Parse: func(o *wire.Object) (echoResponse, error) {
			s, err := wire.Mandatory(o, "text", "string", wire.String)
			return echoResponse{Text: s}, err
		},
		Serialize: func(v echoResponse, b *wire.Builder) { b.Set("text", v.Text) },
	},
}

// loopSender answers every CALL through reply.
type loopSender struct {
	corr  *Correlator
	reply func(call *wire.Frame) *wire.Frame
	err   error
}

func (s *loopSender) Send(data []byte) error {
	if s.err != nil {
		return s.err
	}
	call, err := wire.ParseFrame(data)
	if err != nil {
		return err
	}
	if resp := s.reply(call); resp != nil {
		go s.corr.Complete(resp)
	}
	return nil
}

type verifierFunc func(payload []byte, sigs []wire.Signature) error

func (f verifierFunc) Verify(payload []byte, sigs []wire.Signature) error { return f(payload, sigs) }

func newEchoRequest(timeout time.Duration) *wire.Request[echoRequest] {
	return wire.NewRequest(ids.NewSequenceGenerator("r"), "CS1", "Echo", echoRequest{Text: "hi"},
		wire.WithNetworkPath(wire.NetworkPath{"CSMS"}), wire.WithTimeout(timeout))
}

func TestCallOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		reply    func(call *wire.Frame) *wire.Frame
		sendErr  error
		verifier Verifier
		want     wire.ResultCode
		wantText string
	}{
		{
			name: "ok",
			reply: func(call *wire.Frame) *wire.Frame {
				return wire.NewCallResult("CSMS", wire.NetworkPath{"CSMS"}, call.RequestID, []byte(`{"text":"hi","extra":1}`))
			},
			want:     wire.ResultOK,
			wantText: "hi",
		},
		{
			name: "call error",
			reply: func(call *wire.Frame) *wire.Frame {
				f, _ := wire.NewCallError("CSMS", nil, call.RequestID, wire.RequestError(wire.ErrorCodeNotImplemented, "later", nil))
				return f
			},
			want: wire.ResultRequestError,
		},
		{
			name: "malformed payload",
			reply: func(call *wire.Frame) *wire.Frame {
				return wire.NewCallResult("CSMS", nil, call.RequestID, []byte(`{"txt":"hi"}`))
			},
			want: wire.ResultFormationViolation,
		},
		{
			name: "bad signature",
			reply: func(call *wire.Frame) *wire.Frame {
				return wire.NewCallResult("CSMS", nil, call.RequestID, []byte(`{"text":"hi"}`))
			},
			verifier: verifierFunc(func([]byte, []wire.Signature) error { return errors.New("missing signature") }),
			want:     wire.ResultSignatureError,
		},
		{
			name:    "send failure",
			sendErr: errors.New("link down"),
			want:    wire.ResultExceptionOccurred,
		},
		{
			name:  "timeout",
			reply: func(*wire.Frame) *wire.Frame { return nil },
			want:  wire.ResultTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corr := NewCorrelator()
			sender := &loopSender{corr: corr, reply: tt.reply, err: tt.sendErr}
			client := NewClient(sender, corr, log.Scope{})

			req := newEchoRequest(50 * time.Millisecond)
			resp := Call(context.Background(), client, echoEntry, req, tt.verifier)

			require.NotNil(t, resp)
			assert.Equal(t, tt.want, resp.Result.Code, resp.Result.String())
			assert.Equal(t, req.RequestID, resp.RequestID())
			assert.Equal(t, tt.wantText, resp.Payload.Text)
			assert.Equal(t, 0, corr.Len())
			if tt.want == wire.ResultOK {
				assert.Contains(t, resp.CustomData.Unrecognized, "extra")
			}
		})
	}
}

func TestExchangeRejectsDuplicateID(t *testing.T) {
	corr := NewCorrelator()
	client := NewClient(&loopSender{corr: corr, reply: func(*wire.Frame) *wire.Frame { return nil }}, corr, log.Scope{})

	_, err := corr.Register("r1", time.Minute)
	require.NoError(t, err)

	out := client.Exchange(context.Background(), wire.NewCall("CS1", nil, "r1", "Echo", nil), 0)
	assert.Equal(t, StateFailed, out.State)
	assert.ErrorIs(t, out.Err, ErrDuplicateRequestID)

	out = client.Exchange(context.Background(), wire.NewCallResult("CS1", nil, "r2", nil), 0)
	assert.Equal(t, StateFailed, out.State)
}

func TestCallCarriesContext(t *testing.T) {
	entry := echoEntry
	entry.RequestContext = registry.ContextURI(registry.DefaultVersion, "Echo", registry.KindRequest)
	entry.ResponseContext = registry.ContextURI(registry.DefaultVersion, "Echo", registry.KindResponse)

	tests := []struct {
		name     string
		replyCtx string
		want     wire.ResultCode
	}{
		{"matching response context", entry.ResponseContext, wire.ResultOK},
		{"no response context", "", wire.ResultOK},
		{"foreign response context", entry.RequestContext, wire.ResultFormationViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corr := NewCorrelator()
			var sentCtx string
			sender := &loopSender{corr: corr, reply: func(call *wire.Frame) *wire.Frame {
				sentCtx, _ = wire.PayloadContext(call.Payload)
				raw, err := wire.EncodePayload(echoResponse{Text: "hi"}, wire.PayloadMeta{Context: tt.replyCtx}, entry.Response)
				require.NoError(t, err)
				return wire.NewCallResult("CSMS", nil, call.RequestID, raw)
			}}
			client := NewClient(sender, corr, log.Scope{})

			req := newEchoRequest(time.Second)
			resp := Call(context.Background(), client, entry, req, nil)

			assert.Equal(t, entry.RequestContext, req.Context)
			assert.Equal(t, entry.RequestContext, sentCtx)
			assert.Equal(t, tt.want, resp.Result.Code, resp.Result.String())
			if tt.want == wire.ResultOK {
				assert.Equal(t, tt.replyCtx, resp.Context)
			}
		})
	}
}
