package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptsRepo implements the append-only notification attempt audit trail.
type AttemptsRepo struct {
	pool *pgxpool.Pool
}

// NewAttempts creates a new notification attempts repository.
func NewAttempts(pool *pgxpool.Pool) *AttemptsRepo {
	return &AttemptsRepo{pool: pool}
}

// Compile-time check that AttemptsRepo implements AttemptsRepository.
var _ AttemptsRepository = (*AttemptsRepo)(nil)

// Append records a notification attempt. Rows are never updated or deleted.
func (r *AttemptsRepo) Append(ctx context.Context, p AttemptParams) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notification_attempts (order_id, pending_order_id, channel, outcome, reason_code)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.OrderID, p.PendingOrderID, string(p.Channel), string(p.Outcome), p.ReasonCode,
	)
	if err != nil {
		return fmt.Errorf("append notification attempt: %w", err)
	}
	return nil
}

// ListByOrderID returns the audit trail for an order, oldest first.
func (r *AttemptsRepo) ListByOrderID(ctx context.Context, orderID string) ([]NotificationAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, pending_order_id, channel, outcome, reason_code, created_at
		 FROM notification_attempts
		 WHERE order_id = $1
		 ORDER BY created_at ASC`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notification attempts: %w", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

func scanAttempts(rows pgx.Rows) ([]NotificationAttempt, error) {
	var attempts []NotificationAttempt
	for rows.Next() {
		var a NotificationAttempt
		if err := rows.Scan(&a.ID, &a.OrderID, &a.PendingOrderID, &a.Channel, &a.Outcome, &a.ReasonCode, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification attempts: %w", err)
	}
	return attempts, nil
}
