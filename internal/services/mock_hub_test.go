package services

import (
	"github.com/stretchr/testify/mock"
)

// MockHub is a mock for the Hub interface
type MockHub struct {
	mock.Mock
}

func (m *MockHub) Broadcast(messageType string, data interface{}) {
	m.Called(messageType, data)
}
