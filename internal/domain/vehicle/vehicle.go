package vehicle

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents vehicle listing status.
type Status string

const (
	StatusActive      Status = "ACTIVE"
	StatusPendingSale Status = "PENDING_SALE"
	StatusSold        Status = "SOLD"
	StatusInactive    Status = "INACTIVE"
)

var ErrNotFound = errors.New("vehicle not found")

// Vehicle is the catalog read model the negotiation engine consumes. The
// catalog owns the full listing; only the fields read here are modeled.
type Vehicle struct {
	ID           int64           `json:"id"`
	VehicleID    uuid.UUID       `json:"vehicleId"`
	DealerUserID uuid.UUID       `json:"dealerUserId"`
	AskingPrice  decimal.Decimal `json:"askingPrice"`
	Status       Status          `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// IsAvailable reports whether the vehicle is open for new negotiations.
func (v *Vehicle) IsAvailable() bool {
	return v.Status == StatusActive
}
