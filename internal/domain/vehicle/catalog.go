package vehicle

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_catalog.go -package=mocks . Catalog

import (
	"context"

	"github.com/google/uuid"
)

// Catalog is the port to the vehicle catalog collaborator. The postgres
// implementation shares the negotiation database, so its writes participate
// in the caller's transaction; a remote implementation is the compensation
// point if the catalog ever moves out.
type Catalog interface {
	GetVehicle(ctx context.Context, vehicleID uuid.UUID) (*Vehicle, error)
	SetVehicleStatus(ctx context.Context, vehicleID uuid.UUID, status Status) error
}
