package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a pending order.
type Status string

const (
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
	StatusConfirmed            Status = "confirmed"
	StatusCancelled            Status = "cancelled"
	// StatusExpired is terminal: an expired pending order never re-enters
	// awaiting_confirmation.
	StatusExpired Status = "expired"
)

// Channel identifies how an order notification was delivered.
type Channel string

const (
	ChannelTemplate     Channel = "template"
	ChannelFallbackText Channel = "fallback_text"
)

// AttemptOutcome is the result of a single notification attempt.
type AttemptOutcome string

const (
	OutcomeSent           AttemptOutcome = "sent"
	OutcomeRejectedPolicy AttemptOutcome = "rejected_policy"
	OutcomeFailed         AttemptOutcome = "failed"
)

// PendingOrder is a durable record of an order awaiting supplier confirmation,
// keyed by the provider's phone and the order id embedded in the notification.
type PendingOrder struct {
	ID               uuid.UUID
	OrderID          string
	ProviderID       uuid.UUID
	UserID           uuid.UUID
	PhoneRaw         string
	PhoneCanonical   string
	PhoneMatchKey    string
	Payload          json.RawMessage
	Status           Status
	RequiresFollowUp bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CreateParams describes a new pending order.
type CreateParams struct {
	OrderID          string
	ProviderID       uuid.UUID
	UserID           uuid.UUID
	PhoneRaw         string
	PhoneCanonical   string
	PhoneMatchKey    string
	Payload          json.RawMessage
	RequiresFollowUp bool
}

// ListParams filters pending order listings for the operator API.
type ListParams struct {
	UserID   uuid.UUID
	Status   Status
	MatchKey string
	Limit    int
}

// NotificationAttempt is one append-only audit row per delivery attempt.
// Never mutated.
type NotificationAttempt struct {
	ID             uuid.UUID
	OrderID        string
	PendingOrderID *uuid.UUID
	Channel        Channel
	Outcome        AttemptOutcome
	ReasonCode     string
	CreatedAt      time.Time
}

// AttemptParams describes a new notification attempt audit row.
type AttemptParams struct {
	OrderID        string
	PendingOrderID *uuid.UUID
	Channel        Channel
	Outcome        AttemptOutcome
	ReasonCode     string
}

// Repository defines persistence for pending orders.
type Repository interface {
	// Create inserts a pending order in awaiting_confirmation. It fails with
	// a conflict when an active entry already exists for the same
	// (provider phone, order id) pair.
	Create(ctx context.Context, p CreateParams) (PendingOrder, error)

	// GetByID returns a single pending order.
	GetByID(ctx context.Context, id uuid.UUID) (PendingOrder, error)

	// FindActiveByPhone returns all awaiting_confirmation entries for the
	// given phone match key, oldest first.
	FindActiveByPhone(ctx context.Context, matchKey string) ([]PendingOrder, error)

	// Transition applies a compare-and-swap status change. It returns a
	// conflict when the current status does not match from.
	Transition(ctx context.Context, id uuid.UUID, from, to Status) error

	// List returns pending orders for the operator API.
	List(ctx context.Context, p ListParams) ([]PendingOrder, error)

	// Expire moves awaiting_confirmation entries created before the cutoff
	// to expired and returns how many were swept.
	Expire(ctx context.Context, cutoff time.Time) (int64, error)
}

// AttemptsRepository defines the append-only notification attempt audit trail.
type AttemptsRepository interface {
	Append(ctx context.Context, p AttemptParams) error
	ListByOrderID(ctx context.Context, orderID string) ([]NotificationAttempt, error)
}
