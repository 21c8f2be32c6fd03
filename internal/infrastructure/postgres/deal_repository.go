package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domaindeal "github.com/deal-hub/deal-hub/internal/domain/deal"
)

// DealRepository implements deal.Repository.
type DealRepository struct {
	pool *pgxpool.Pool
}

func NewDealRepository(pool *pgxpool.Pool) *DealRepository {
	return &DealRepository{pool: pool}
}

// Upsert inserts deal metadata or refreshes it in place. The status column
// is only set on insert: the registry service owns status transitions.
func (r *DealRepository) Upsert(ctx context.Context, d *domaindeal.Deal) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO deals (deal_id, car_id, buyer_id, seller_id, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (deal_id) DO UPDATE
		SET car_id = EXCLUDED.car_id,
		    buyer_id = EXCLUDED.buyer_id,
		    seller_id = EXCLUDED.seller_id,
		    updated_at = EXCLUDED.updated_at
	`, d.DealID, d.CarID, d.BuyerID, d.SellerID, d.Status, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *DealRepository) GetByID(ctx context.Context, dealID int64) (*domaindeal.Deal, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT deal_id, car_id, buyer_id, seller_id, status, created_at, updated_at
		FROM deals WHERE deal_id=$1
	`, dealID)
	return scanDeal(row)
}

func (r *DealRepository) List(ctx context.Context, limit, offset int) ([]*domaindeal.Deal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT deal_id, car_id, buyer_id, seller_id, status, created_at, updated_at
		FROM deals ORDER BY updated_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var deals []*domaindeal.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func (r *DealRepository) UpdateStatus(ctx context.Context, dealID int64, status domaindeal.Status) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE deals SET status=$1, updated_at=now() WHERE deal_id=$2
	`, status, dealID)
	return err
}

func scanDeal(row pgx.Row) (*domaindeal.Deal, error) {
	var d domaindeal.Deal
	err := row.Scan(&d.DealID, &d.CarID, &d.BuyerID, &d.SellerID, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
