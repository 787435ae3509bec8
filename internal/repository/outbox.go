package repository

import (
	"context"

	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmoiron/sqlx"
)

// OutboxRepository defines persistence methods for the outbox table.
type OutboxRepository interface {
	// Insert writes a single outbox event inside the caller's transaction.
	Insert(ctx context.Context, tx *sqlx.Tx, ev model.OutboxEvent) error
}

type OutboxRepositoryImpl struct{}

func NewOutboxRepository() *OutboxRepositoryImpl {
	return &OutboxRepositoryImpl{}
}

// Insert adds an event row to outbox. Debezium Outbox SMT picks it up and
// publishes to Kafka based on the `topic` column.
func (r *OutboxRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, ev model.OutboxEvent) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO outbox (aggregate, aggregate_id, topic, payload, created_at)
		VALUES (?, ?, ?, ?, NOW())
	`, ev.Aggregate, ev.AggregateID, ev.Topic, ev.Payload)
	return err
}
