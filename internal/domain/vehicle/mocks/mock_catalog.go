package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/carnegotiate/carnegotiate/internal/domain/vehicle"
)

// MockCatalog is a mock implementation of vehicle.Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetVehicle(ctx context.Context, vehicleID uuid.UUID) (*vehicle.Vehicle, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vehicle.Vehicle), args.Error(1)
}

func (m *MockCatalog) SetVehicleStatus(ctx context.Context, vehicleID uuid.UUID, status vehicle.Status) error {
	args := m.Called(ctx, vehicleID, status)
	return args.Error(0)
}
