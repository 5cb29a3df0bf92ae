package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursehub/checkout-system/internal/model"
	"github.com/coursehub/checkout-system/pkg/database"
)

// OutboxRepository provides access to the transactional outbox. The checkout
// transaction inserts a record; pending records (sent_at IS NULL) are drained
// by the fulfillment worker until every side effect has succeeded.
type OutboxRepository struct {
	pool PoolInterface
}

// NewOutboxRepository creates a new OutboxRepository with the given pool.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// NewOutboxRepositoryWithPool creates a new OutboxRepository with a custom pool
// interface. This is primarily used for testing.
func NewOutboxRepositoryWithPool(pool PoolInterface) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Insert writes an outbox record inside the caller's transaction and returns
// its id. The record becomes visible to the worker only when the transaction
// commits, which is what ties fulfillment to payment durability.
func (r *OutboxRepository) Insert(ctx context.Context, tx database.TxQuerier, topic, key string, payload any) (int64, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal outbox payload: %w", err)
	}

	query := `INSERT INTO outbox (event_id, topic, key, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id int64
	if err := tx.QueryRow(ctx, query, uuid.NewString(), topic, key, data).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert outbox record: %w", err)
	}
	return id, nil
}

// FetchPending returns up to limit unsent records, oldest first.
// On success, returns an empty slice (not nil) when nothing is pending.
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]model.OutboxRecord, error) {
	query := `SELECT id, event_id, topic, key, payload, created_at, sent_at
		FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox records: %w", err)
	}
	defer rows.Close()

	var records []model.OutboxRecord
	for rows.Next() {
		var rec model.OutboxRecord
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.Key, &rec.Payload, &rec.CreatedAt, &rec.SentAt); err != nil {
			return nil, fmt.Errorf("scan outbox record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}

	if records == nil {
		records = []model.OutboxRecord{}
	}
	return records, nil
}

// MarkSent stamps a record as fully processed so the worker stops retrying it.
func (r *OutboxRepository) MarkSent(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `UPDATE outbox SET sent_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark outbox record %d sent: %w", id, err)
	}
	return nil
}
