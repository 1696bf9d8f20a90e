package annotation

import (
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"doc-markup/internal/geometry"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(a Annotation) uuid.UUID {
	args := m.Called(a)
	return args.Get(0).(uuid.UUID)
}

func (m *MockStore) Update(id uuid.UUID, p Patch) bool {
	args := m.Called(id, p)
	return args.Bool(0)
}

func (m *MockStore) Delete(id uuid.UUID) bool {
	args := m.Called(id)
	return args.Bool(0)
}

func (m *MockStore) Select(id uuid.UUID) {
	m.Called(id)
}

func (m *MockStore) Get(id uuid.UUID) (Annotation, bool) {
	args := m.Called(id)
	return args.Get(0).(Annotation), args.Bool(1)
}

func (m *MockStore) ByPage(page int) []Annotation {
	args := m.Called(page)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]Annotation)
}

func (m *MockStore) All() []Annotation {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]Annotation)
}

func (m *MockStore) State() State {
	args := m.Called()
	return args.Get(0).(State)
}

func (m *MockStore) SetActiveTool(tool *Variant) {
	m.Called(tool)
}

func (m *MockStore) SetPendingPlacement(p *geometry.Point) {
	m.Called(p)
}

func (m *MockStore) SetEditing(id uuid.UUID) {
	m.Called(id)
}

func (m *MockStore) SetToolbarCollapsed(collapsed bool) {
	m.Called(collapsed)
}

func (m *MockStore) Reset() {
	m.Called()
}
