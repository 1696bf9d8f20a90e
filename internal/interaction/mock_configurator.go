package interaction

import "github.com/stretchr/testify/mock"

// MockConfigurator is a mock implementation of Configurator using testify/mock.
type MockConfigurator struct {
	mock.Mock
}

func (m *MockConfigurator) Request(req ConfigRequest) {
	m.Called(req)
}
