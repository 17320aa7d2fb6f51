package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pedidos_backend/platform/apperr"
)

const providerColumns = `id, user_id, display_name, phone_raw, phone_canonical, phone_match_key, payment_terms, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new provider directory repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a provider by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1`

	var p Provider
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.DisplayName, &p.PhoneRaw, &p.PhoneCanonical,
		&p.PhoneMatchKey, &p.PaymentTerms, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Provider{}, apperr.NotFound("provider not found")
		}
		return Provider{}, fmt.Errorf("get provider by id: %w", err)
	}
	return p, nil
}

// FindByCanonical retrieves providers by exact canonical phone equality.
func (r *Repo) FindByCanonical(ctx context.Context, userScope *uuid.UUID, canonical string) ([]Provider, error) {
	query := `SELECT ` + providerColumns + `
		FROM providers
		WHERE phone_canonical = $1 AND ($2::uuid IS NULL OR user_id = $2)
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, canonical, userScope)
	if err != nil {
		return nil, fmt.Errorf("find providers by canonical phone: %w", err)
	}
	defer rows.Close()

	return scanProviders(rows)
}

// FindByMatchKey retrieves providers by trailing-digit match key equality.
func (r *Repo) FindByMatchKey(ctx context.Context, userScope *uuid.UUID, matchKey string) ([]Provider, error) {
	query := `SELECT ` + providerColumns + `
		FROM providers
		WHERE phone_match_key = $1 AND ($2::uuid IS NULL OR user_id = $2)
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, matchKey, userScope)
	if err != nil {
		return nil, fmt.Errorf("find providers by match key: %w", err)
	}
	defer rows.Close()

	return scanProviders(rows)
}

func scanProviders(rows pgx.Rows) ([]Provider, error) {
	var providers []Provider
	for rows.Next() {
		var p Provider
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.DisplayName, &p.PhoneRaw, &p.PhoneCanonical,
			&p.PhoneMatchKey, &p.PaymentTerms, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate providers: %w", err)
	}
	return providers, nil
}
