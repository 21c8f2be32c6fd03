package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deal-hub/deal-hub/internal/domain/negotiation"
)

// ArchiveRepository is the write-through store of admitted timeline events,
// used to rehydrate in-memory timelines after a restart.
type ArchiveRepository struct {
	pool *pgxpool.Pool
}

func NewArchiveRepository(pool *pgxpool.Pool) *ArchiveRepository {
	return &ArchiveRepository{pool: pool}
}

// ArchiveEvent persists an admitted event. Replays are no-ops: the archive
// carries the same identity guarantee as the timeline.
func (r *ArchiveRepository) ArchiveEvent(ctx context.Context, e *negotiation.Event) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO timeline_events
		(event_id, deal_id, kind, origin_role, amount, subject_id, status, ts, source, seq)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (deal_id, event_id) DO NOTHING
	`, e.ID, e.DealID, e.Kind, e.OriginRole, e.Amount, e.SubjectID, e.Status, e.Timestamp, e.Source, e.Seq)
	return err
}

// UpdateEventStatus mirrors the only mutation the timeline store permits.
func (r *ArchiveRepository) UpdateEventStatus(ctx context.Context, dealID int64, eventID string, status negotiation.Status) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE timeline_events SET status=$1 WHERE deal_id=$2 AND event_id=$3
	`, status, dealID, eventID)
	return err
}

// ListDealIDs returns every deal with archived events.
func (r *ArchiveRepository) ListDealIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT deal_id FROM timeline_events ORDER BY deal_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByDeal returns a deal's archived events in timeline order.
func (r *ArchiveRepository) ListByDeal(ctx context.Context, dealID int64) ([]*negotiation.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_id, deal_id, kind, origin_role, amount, subject_id, status, ts, source, seq
		FROM timeline_events WHERE deal_id=$1 ORDER BY ts ASC, seq ASC
	`, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []*negotiation.Event
	for rows.Next() {
		var e negotiation.Event
		if err := rows.Scan(&e.ID, &e.DealID, &e.Kind, &e.OriginRole, &e.Amount, &e.SubjectID, &e.Status, &e.Timestamp, &e.Source, &e.Seq); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
