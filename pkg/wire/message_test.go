package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
)

type heartbeat struct {
	Interval int
}

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestRequest(t *testing.T, opts ...RequestOption) *Request[heartbeat] {
	t.Helper()
	opts = append([]RequestOption{WithTimestamp(fixedTime), WithNetworkPath(NetworkPath{"CSMS", "LC1"})}, opts...)
	return NewRequest(ids.NewSequenceGenerator("r"), "CS1", "Heartbeat", heartbeat{Interval: 60}, opts...)
}

func TestNewRequestDefaults(t *testing.T) {
	req := newTestRequest(t)

	assert.Equal(t, ids.RequestID("r1"), req.RequestID)
	assert.NotEmpty(t, req.EventTrackingID)
	assert.Equal(t, DefaultRequestTimeout, req.Timeout())
	assert.Equal(t, ids.NetworkingNodeID("CSMS"), req.Origin())

	withTimeout := newTestRequest(t, WithTimeout(5*time.Second))
	assert.Equal(t, 5*time.Second, withTimeout.Timeout())
}

func TestNewRequestPanics(t *testing.T) {
	gen := ids.NewSequenceGenerator("r")
	tests := []struct {
		name string
		fn   func()
	}{
		{"nil generator", func() { NewRequest[heartbeat](nil, "CS1", "Heartbeat", heartbeat{}) }},
		{"empty destination", func() { NewRequest(gen, "", "Heartbeat", heartbeat{}) }},
		{"empty action", func() { NewRequest(gen, "CS1", "", heartbeat{}) }},
		{"negative timeout", func() { NewRequest(gen, "CS1", "Heartbeat", heartbeat{}, WithTimeout(-time.Second)) }},
		{"looping path", func() { NewRequest(gen, "CS1", "Heartbeat", heartbeat{}, WithNetworkPath(NetworkPath{"A", "A"})) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, tt.fn)
		})
	}
}

func TestRequestEqualAndHash(t *testing.T) {
	a := newTestRequest(t)
	b := *a
	b.NetworkPath = NetworkPath{"CSMS", "LC1"}
	b.Payload = heartbeat{Interval: 60}

	assert.True(t, a.Equal(&b))
	assert.Equal(t, a.Hash(), b.Hash())

	b.Payload = heartbeat{Interval: 61}
	assert.False(t, a.Equal(&b))
	assert.NotEqual(t, a.Hash(), b.Hash())

	c := *a
	c.Context = "urn:example"
	assert.False(t, a.Equal(&c))
}

func TestNewResponseReversesPath(t *testing.T) {
	req := newTestRequest(t)
	resp := NewResponse[heartbeat, heartbeat](req, heartbeat{Interval: 60})

	assert.True(t, resp.IsOK())
	assert.Equal(t, req.RequestID, resp.RequestID())
	assert.Equal(t, ids.NetworkingNodeID("CSMS"), resp.DestinationID)
	assert.True(t, resp.NetworkPath.Equal(NetworkPath{"LC1", "CSMS"}))
}

func TestResponseResultIsPartOfIdentity(t *testing.T) {
	req := newTestRequest(t)

	ok := NewResponse[heartbeat, heartbeat](req, heartbeat{Interval: 60})
	ok.ResponseTimestamp = fixedTime

	failed := SignatureErrorResponse[heartbeat, heartbeat](req, "bad signature")
	failed.ResponseTimestamp = fixedTime
	failed.Payload = heartbeat{Interval: 60}

	assert.False(t, ok.Equal(failed))
	assert.False(t, failed.Equal(ok))
	assert.NotEqual(t, ok.Hash(), failed.Hash())

	same := NewResponse[heartbeat, heartbeat](req, heartbeat{Interval: 60})
	same.ResponseTimestamp = fixedTime
	same.Runtime = 3 * time.Second
	assert.True(t, ok.Equal(same))
	assert.Equal(t, ok.Hash(), same.Hash())
}

func TestFailedResponsePanicsOnOK(t *testing.T) {
	req := newTestRequest(t)
	assert.Panics(t, func() { FailedResponse[heartbeat, heartbeat](req, OK()) })
}

func TestResponseErr(t *testing.T) {
	req := newTestRequest(t)
	resp := RequestErrorResponse[heartbeat, heartbeat](req, ErrorCodeNotSupported, "nope")

	err := resp.Result.Err()
	require.Error(t, err)
	var re *ResultError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrorCodeNotSupported, re.Result.ErrorCode)
	assert.NoError(t, OK().Err())
}
