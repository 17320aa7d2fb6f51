package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Provider is a supplier record owned by an application user. Created and
// edited by user-facing CRUD outside this service; read-only here.
type Provider struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	DisplayName    string
	PhoneRaw       string
	PhoneCanonical string
	PhoneMatchKey  string
	PaymentTerms   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Repository defines read access to the provider directory.
type Repository interface {
	// GetByID returns a single provider.
	GetByID(ctx context.Context, id uuid.UUID) (Provider, error)

	// FindByCanonical returns providers whose stored canonical phone equals
	// the given value, optionally scoped to a user.
	FindByCanonical(ctx context.Context, userScope *uuid.UUID, canonical string) ([]Provider, error)

	// FindByMatchKey returns providers whose trailing-digit match key equals
	// the given value, optionally scoped to a user.
	FindByMatchKey(ctx context.Context, userScope *uuid.UUID, matchKey string) ([]Provider, error)
}
