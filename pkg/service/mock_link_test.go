package service

import (
	"github.com/stretchr/testify/mock"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/transport"
)

// mockLink is a testify mock of transport.Link.
type mockLink struct {
	mock.Mock
}

func newMockLink(remote ids.NetworkingNodeID) *mockLink {
	m := &mockLink{}
	m.On("RemoteID").Return(remote)
	m.On("SetHandler", mock.Anything).Return()
	m.On("SetCloseHandler", mock.Anything).Return()
	m.On("Close").Return(nil).Maybe()
	return m
}

func (m *mockLink) RemoteID() ids.NetworkingNodeID {
	args := m.Called()
	return args.Get(0).(ids.NetworkingNodeID)
}

func (m *mockLink) Send(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *mockLink) SetHandler(h transport.FrameHandler) {
	m.Called(h)
}

func (m *mockLink) SetCloseHandler(fn func()) {
	m.Called(fn)
}

func (m *mockLink) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ transport.Link = (*mockLink)(nil)
