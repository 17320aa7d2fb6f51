package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pedidos_backend/platform/apperr"
)

const pgUniqueViolation = "23505"

const pendingOrderColumns = `id, order_id, provider_id, user_id, phone_raw, phone_canonical, phone_match_key,
	payload, status, requires_follow_up, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new pending order repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create inserts a pending order in awaiting_confirmation. The partial unique
// index on (phone_match_key, order_id) where status = 'awaiting_confirmation'
// enforces the at-most-one-active invariant without a read-then-write race.
func (r *Repo) Create(ctx context.Context, p CreateParams) (PendingOrder, error) {
	query := `
		INSERT INTO pending_orders
			(order_id, provider_id, user_id, phone_raw, phone_canonical, phone_match_key, payload, status, requires_follow_up)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + pendingOrderColumns

	var po PendingOrder
	err := r.pool.QueryRow(ctx, query,
		p.OrderID, p.ProviderID, p.UserID, p.PhoneRaw, p.PhoneCanonical,
		p.PhoneMatchKey, p.Payload, string(StatusAwaitingConfirmation), p.RequiresFollowUp,
	).Scan(
		&po.ID, &po.OrderID, &po.ProviderID, &po.UserID, &po.PhoneRaw, &po.PhoneCanonical,
		&po.PhoneMatchKey, &po.Payload, &po.Status, &po.RequiresFollowUp, &po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return PendingOrder{}, apperr.Conflict("an active pending order already exists for this provider phone and order id")
		}
		return PendingOrder{}, fmt.Errorf("create pending order: %w", err)
	}
	return po, nil
}

// GetByID retrieves a pending order by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (PendingOrder, error) {
	query := `SELECT ` + pendingOrderColumns + ` FROM pending_orders WHERE id = $1`

	var po PendingOrder
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&po.ID, &po.OrderID, &po.ProviderID, &po.UserID, &po.PhoneRaw, &po.PhoneCanonical,
		&po.PhoneMatchKey, &po.Payload, &po.Status, &po.RequiresFollowUp, &po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PendingOrder{}, apperr.NotFound("pending order not found")
		}
		return PendingOrder{}, fmt.Errorf("get pending order by id: %w", err)
	}
	return po, nil
}

// FindActiveByPhone returns awaiting_confirmation entries for the phone match
// key, oldest first. FIFO ordering is the documented tie-break: absent an
// explicit order reference in the inbound message, the oldest outstanding
// order is resolved first.
func (r *Repo) FindActiveByPhone(ctx context.Context, matchKey string) ([]PendingOrder, error) {
	query := `SELECT ` + pendingOrderColumns + `
		FROM pending_orders
		WHERE phone_match_key = $1 AND status = $2
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, matchKey, string(StatusAwaitingConfirmation))
	if err != nil {
		return nil, fmt.Errorf("find active pending orders: %w", err)
	}
	defer rows.Close()

	return scanPendingOrders(rows)
}

// Transition applies a compare-and-swap status change: the update only
// succeeds when the current status matches from, so a duplicate inbound
// message cannot double-confirm an order.
func (r *Repo) Transition(ctx context.Context, id uuid.UUID, from, to Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE pending_orders SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("transition pending order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("pending order is not in the expected status")
	}
	return nil
}

// List returns pending orders for the operator API, newest first.
func (r *Repo) List(ctx context.Context, p ListParams) ([]PendingOrder, error) {
	limit := p.Limit
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := `SELECT ` + pendingOrderColumns + `
		FROM pending_orders
		WHERE user_id = $1
		  AND ($2::text = '' OR status = $2)
		  AND ($3::text = '' OR phone_match_key = $3)
		ORDER BY created_at DESC
		LIMIT $4`

	rows, err := r.pool.Query(ctx, query, p.UserID, string(p.Status), p.MatchKey, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	defer rows.Close()

	return scanPendingOrders(rows)
}

// Expire sweeps awaiting_confirmation entries created before the cutoff to
// expired. Expired is terminal.
func (r *Repo) Expire(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE pending_orders SET status = $1, updated_at = now()
		 WHERE status = $2 AND created_at < $3`,
		string(StatusExpired), string(StatusAwaitingConfirmation), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("expire pending orders: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanPendingOrders(rows pgx.Rows) ([]PendingOrder, error) {
	var orders []PendingOrder
	for rows.Next() {
		var po PendingOrder
		if err := rows.Scan(
			&po.ID, &po.OrderID, &po.ProviderID, &po.UserID, &po.PhoneRaw, &po.PhoneCanonical,
			&po.PhoneMatchKey, &po.Payload, &po.Status, &po.RequiresFollowUp, &po.CreatedAt, &po.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pending order: %w", err)
		}
		orders = append(orders, po)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending orders: %w", err)
	}
	return orders, nil
}
