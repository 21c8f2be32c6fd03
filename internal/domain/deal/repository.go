package deal

import "context"

// Repository persists the deal registry.
type Repository interface {
	Upsert(ctx context.Context, d *Deal) error
	GetByID(ctx context.Context, dealID int64) (*Deal, error)
	List(ctx context.Context, limit, offset int) ([]*Deal, error)
	UpdateStatus(ctx context.Context, dealID int64, status Status) error
}
