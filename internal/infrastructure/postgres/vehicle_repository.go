package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carnegotiate/carnegotiate/internal/domain/vehicle"
)

// VehicleRepository implements vehicle.Catalog against the shared database.
// Statements route through the context transaction, so a status change made
// while accepting an offer commits or rolls back with the negotiation.
type VehicleRepository struct {
	db *DB
}

func NewVehicleRepository(db *DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

func (r *VehicleRepository) GetVehicle(ctx context.Context, vehicleID uuid.UUID) (*vehicle.Vehicle, error) {
	row := r.db.querier(ctx).QueryRow(ctx, `
		SELECT id, vehicle_id, dealer_user_id, asking_price, status, created_at, updated_at
		FROM vehicles WHERE vehicle_id=$1
	`, vehicleID)
	v, err := scanVehicle(row)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, vehicle.ErrNotFound
	}
	return v, nil
}

func (r *VehicleRepository) SetVehicleStatus(ctx context.Context, vehicleID uuid.UUID, status vehicle.Status) error {
	tag, err := r.db.querier(ctx).Exec(ctx, `
		UPDATE vehicles SET status=$2, updated_at=$3 WHERE vehicle_id=$1
	`, vehicleID, status, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vehicle.ErrNotFound
	}
	return nil
}

func scanVehicle(row pgx.Row) (*vehicle.Vehicle, error) {
	var v vehicle.Vehicle
	if err := row.Scan(&v.ID, &v.VehicleID, &v.DealerUserID, &v.AskingPrice, &v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}
