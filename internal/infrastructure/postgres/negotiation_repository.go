package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/carnegotiate/carnegotiate/internal/domain/negotiation"
)

const negotiationColumns = `id, negotiation_id, vehicle_id, buyer_id, status, accepted_price, version, expires_at, created_at, updated_at`

const offerColumns = `id, offer_id, negotiation_id, amount, offered_by, message, status, responded_at, created_at`

// NegotiationRepository implements negotiation.Repository.
type NegotiationRepository struct {
	db *DB
}

func NewNegotiationRepository(db *DB) *NegotiationRepository {
	return &NegotiationRepository{db: db}
}

func (r *NegotiationRepository) Create(ctx context.Context, n *negotiation.Negotiation) error {
	_, err := r.db.querier(ctx).Exec(ctx, `
		INSERT INTO negotiations
		(negotiation_id, vehicle_id, buyer_id, status, accepted_price, version, expires_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, n.NegotiationID, n.VehicleID, n.BuyerID, n.Status, n.AcceptedPrice, n.Version, n.ExpiresAt, n.CreatedAt, n.UpdatedAt)
	return err
}

func (r *NegotiationRepository) GetByID(ctx context.Context, negotiationID uuid.UUID) (*negotiation.Negotiation, error) {
	row := r.db.querier(ctx).QueryRow(ctx, `
		SELECT `+negotiationColumns+` FROM negotiations WHERE negotiation_id=$1
	`, negotiationID)
	return scanNegotiation(row)
}

func (r *NegotiationRepository) GetByIDForUpdate(ctx context.Context, negotiationID uuid.UUID) (*negotiation.Negotiation, error) {
	row := r.db.querier(ctx).QueryRow(ctx, `
		SELECT `+negotiationColumns+` FROM negotiations WHERE negotiation_id=$1 FOR UPDATE
	`, negotiationID)
	return scanNegotiation(row)
}

func (r *NegotiationRepository) UpdateStatus(ctx context.Context, negotiationID uuid.UUID, from, to negotiation.Status) (bool, error) {
	tag, err := r.db.querier(ctx).Exec(ctx, `
		UPDATE negotiations SET status=$3, updated_at=$4 WHERE negotiation_id=$1 AND status=$2
	`, negotiationID, from, to, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *NegotiationRepository) RenewExpiry(ctx context.Context, negotiationID uuid.UUID, expiresAt time.Time) error {
	_, err := r.db.querier(ctx).Exec(ctx, `
		UPDATE negotiations SET expires_at=$2, updated_at=$3 WHERE negotiation_id=$1
	`, negotiationID, expiresAt, time.Now().UTC())
	return err
}

func (r *NegotiationRepository) AcceptCAS(ctx context.Context, negotiationID uuid.UUID, version int, acceptedPrice decimal.Decimal) (bool, error) {
	tag, err := r.db.querier(ctx).Exec(ctx, `
		UPDATE negotiations
		SET status=$3, accepted_price=$4, version=version+1, updated_at=$5
		WHERE negotiation_id=$1 AND version=$2 AND status=$6
	`, negotiationID, version, negotiation.StatusAccepted, acceptedPrice, time.Now().UTC(), negotiation.StatusActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *NegotiationRepository) HasActive(ctx context.Context, vehicleID, buyerID uuid.UUID) (bool, error) {
	row := r.db.querier(ctx).QueryRow(ctx, `
		SELECT 1 FROM negotiations WHERE vehicle_id=$1 AND buyer_id=$2 AND status=$3 LIMIT 1
	`, vehicleID, buyerID, negotiation.StatusActive)
	var v int
	if err := row.Scan(&v); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *NegotiationRepository) ListForUser(ctx context.Context, userID uuid.UUID, filter negotiation.Filter, limit, offset int) ([]*negotiation.Negotiation, error) {
	query := `
		SELECT n.id, n.negotiation_id, n.vehicle_id, n.buyer_id, n.status, n.accepted_price, n.version, n.expires_at, n.created_at, n.updated_at
		FROM negotiations n
		JOIN vehicles v ON v.vehicle_id = n.vehicle_id
	`
	args := []interface{}{userID}
	idx := 2

	switch {
	case filter.Role != nil && *filter.Role == negotiation.PartyBuyer:
		query += ` WHERE n.buyer_id=$1`
	case filter.Role != nil && *filter.Role == negotiation.PartyDealer:
		query += ` WHERE v.dealer_user_id=$1`
	default:
		query += ` WHERE (n.buyer_id=$1 OR v.dealer_user_id=$1)`
	}
	if filter.Status != nil {
		query += ` AND n.status=$` + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	query += ` ORDER BY n.created_at DESC LIMIT $` + itoa(idx) + ` OFFSET $` + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.db.querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var negotiations []*negotiation.Negotiation
	for rows.Next() {
		n, err := scanNegotiation(rows)
		if err != nil {
			return nil, err
		}
		negotiations = append(negotiations, n)
	}
	return negotiations, rows.Err()
}

func (r *NegotiationRepository) CancelOtherActive(ctx context.Context, vehicleID, exceptNegotiationID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.querier(ctx).Query(ctx, `
		UPDATE negotiations SET status=$3, updated_at=$4
		WHERE vehicle_id=$1 AND negotiation_id <> $2 AND status=$5
		RETURNING negotiation_id
	`, vehicleID, exceptNegotiationID, negotiation.StatusCancelled, time.Now().UTC(), negotiation.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

func (r *NegotiationRepository) ExpireDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	q := r.db.querier(ctx)
	rows, err := q.Query(ctx, `
		UPDATE negotiations SET status=$2, updated_at=$1
		WHERE status=$3 AND expires_at < $1
		RETURNING negotiation_id
	`, now, negotiation.StatusExpired, negotiation.StatusActive)
	if err != nil {
		return nil, err
	}
	ids, err := collectIDs(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}
	_, err = q.Exec(ctx, `
		UPDATE offers SET status=$2, responded_at=$1
		WHERE negotiation_id = ANY($3) AND status=$4
	`, now, negotiation.OfferStatusExpired, ids, negotiation.OfferStatusPending)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *NegotiationRepository) ListExpiringBetween(ctx context.Context, from, until time.Time) ([]*negotiation.Negotiation, error) {
	rows, err := r.db.querier(ctx).Query(ctx, `
		SELECT `+negotiationColumns+` FROM negotiations
		WHERE status=$1 AND expires_at > $2 AND expires_at <= $3
		ORDER BY expires_at ASC
	`, negotiation.StatusActive, from, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var negotiations []*negotiation.Negotiation
	for rows.Next() {
		n, err := scanNegotiation(rows)
		if err != nil {
			return nil, err
		}
		negotiations = append(negotiations, n)
	}
	return negotiations, rows.Err()
}

func (r *NegotiationRepository) CreateOffer(ctx context.Context, o *negotiation.Offer) error {
	_, err := r.db.querier(ctx).Exec(ctx, `
		INSERT INTO offers
		(offer_id, negotiation_id, amount, offered_by, message, status, responded_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, o.OfferID, o.NegotiationID, o.Amount, o.OfferedBy, o.Message, o.Status, o.RespondedAt, o.CreatedAt)
	return err
}

func (r *NegotiationRepository) PendingOffer(ctx context.Context, negotiationID uuid.UUID) (*negotiation.Offer, error) {
	// The partial unique index caps this at one row; a second row means the
	// invariant is broken and is surfaced as corruption, not tolerated.
	rows, err := r.db.querier(ctx).Query(ctx, `
		SELECT `+offerColumns+` FROM offers
		WHERE negotiation_id=$1 AND status=$2
		ORDER BY created_at DESC LIMIT 2
	`, negotiationID, negotiation.OfferStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var offers []*negotiation.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(offers) {
	case 0:
		return nil, nil
	case 1:
		return offers[0], nil
	default:
		return nil, negotiation.ErrPendingOfferConflict
	}
}

func (r *NegotiationRepository) CloseOffer(ctx context.Context, offerID uuid.UUID, status negotiation.OfferStatus, respondedAt time.Time) (bool, error) {
	tag, err := r.db.querier(ctx).Exec(ctx, `
		UPDATE offers SET status=$2, responded_at=$3 WHERE offer_id=$1 AND status=$4
	`, offerID, status, respondedAt, negotiation.OfferStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *NegotiationRepository) ExpirePendingOffers(ctx context.Context, negotiationIDs []uuid.UUID, respondedAt time.Time) (int64, error) {
	if len(negotiationIDs) == 0 {
		return 0, nil
	}
	tag, err := r.db.querier(ctx).Exec(ctx, `
		UPDATE offers SET status=$2, responded_at=$1
		WHERE negotiation_id = ANY($3) AND status=$4
	`, respondedAt, negotiation.OfferStatusExpired, negotiationIDs, negotiation.OfferStatusPending)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *NegotiationRepository) ListOffers(ctx context.Context, negotiationID uuid.UUID) ([]*negotiation.Offer, error) {
	rows, err := r.db.querier(ctx).Query(ctx, `
		SELECT `+offerColumns+` FROM offers WHERE negotiation_id=$1 ORDER BY created_at DESC
	`, negotiationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var offers []*negotiation.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func scanNegotiation(row pgx.Row) (*negotiation.Negotiation, error) {
	var n negotiation.Negotiation
	if err := row.Scan(&n.ID, &n.NegotiationID, &n.VehicleID, &n.BuyerID, &n.Status, &n.AcceptedPrice, &n.Version, &n.ExpiresAt, &n.CreatedAt, &n.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

func scanOffer(row pgx.Row) (*negotiation.Offer, error) {
	var o negotiation.Offer
	if err := row.Scan(&o.ID, &o.OfferID, &o.NegotiationID, &o.Amount, &o.OfferedBy, &o.Message, &o.Status, &o.RespondedAt, &o.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func collectIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
