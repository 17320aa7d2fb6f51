package ingest

import (
	"context"
	"errors"
	"time"

	"pedidos_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence for inbound messages. The unique constraint
// on provider_message_id is the dedup mechanism; there is no read-then-write.
type Repository interface {
	// Insert stores a new inbound message. inserted is false when a message
	// with the same provider message id already exists.
	Insert(ctx context.Context, m Message) (inserted bool, err error)

	// MarkProcessed moves a message to its terminal processed status and
	// records the correlation outcome.
	MarkProcessed(ctx context.Context, id uuid.UUID, outcome string) error

	// GetByProviderMessageID returns a stored message by its BSP identity.
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (Message, error)

	// ListStuck returns accepted messages still in status new older than the
	// given cutoff, oldest first. These missed their first correlation run.
	ListStuck(ctx context.Context, olderThan time.Time, limit int) ([]Message, error)
}

// Repo is the pgx implementation of Repository.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new inbound message repository.
func NewRepository(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Insert(ctx context.Context, m Message) (bool, error) {
	query := `
		INSERT INTO inbound_messages (
			id, provider_message_id, sender_phone_raw, body,
			delivery_path, status, received_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider_message_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		m.ID, m.ProviderMessageID, m.SenderPhoneRaw, m.Body,
		m.DeliveryPath, m.Status, m.ReceivedAt, time.Now(),
	)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "insert inbound message", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) MarkProcessed(ctx context.Context, id uuid.UUID, outcome string) error {
	query := `
		UPDATE inbound_messages
		SET status = $2, outcome = $3
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, StatusProcessed, outcome)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "mark inbound message processed", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("inbound message not found")
	}
	return nil
}

func (r *Repo) GetByProviderMessageID(ctx context.Context, providerMessageID string) (Message, error) {
	query := `
		SELECT id, provider_message_id, sender_phone_raw, body,
		       delivery_path, status, COALESCE(outcome, ''), received_at, created_at
		FROM inbound_messages
		WHERE provider_message_id = $1`

	var m Message
	err := r.pool.QueryRow(ctx, query, providerMessageID).Scan(
		&m.ID, &m.ProviderMessageID, &m.SenderPhoneRaw, &m.Body,
		&m.DeliveryPath, &m.Status, &m.Outcome, &m.ReceivedAt, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, apperr.NotFound("inbound message not found")
		}
		return Message{}, apperr.Wrap(apperr.KindInternal, "get inbound message", err)
	}
	return m, nil
}

func (r *Repo) ListStuck(ctx context.Context, olderThan time.Time, limit int) ([]Message, error) {
	query := `
		SELECT id, provider_message_id, sender_phone_raw, body,
		       delivery_path, status, COALESCE(outcome, ''), received_at, created_at
		FROM inbound_messages
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, StatusNew, olderThan, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list stuck inbound messages", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.ID, &m.ProviderMessageID, &m.SenderPhoneRaw, &m.Body,
			&m.DeliveryPath, &m.Status, &m.Outcome, &m.ReceivedAt, &m.CreatedAt,
		); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan stuck inbound message", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list stuck inbound messages", err)
	}
	return out, nil
}

// Compile-time check that Repo implements Repository
var _ Repository = (*Repo)(nil)
