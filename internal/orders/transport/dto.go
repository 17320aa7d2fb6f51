// Package transport defines request/response DTOs for the orders module.
package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NotifyRequest is the body for sending an order notification to a provider.
type NotifyRequest struct {
	ProviderID string          `json:"providerId" validate:"required,uuid"`
	OrderID    string          `json:"orderId" validate:"required,max=64"`
	Summary    string          `json:"summary" validate:"max=1024"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// NotifyResponse reports how the notification was delivered.
type NotifyResponse struct {
	PendingOrderID   uuid.UUID `json:"pendingOrderId"`
	Channel          string    `json:"channel"`
	RequiresFollowUp bool      `json:"requiresFollowUp"`
}

// ListQuery filters the pending-order listing.
type ListQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=awaiting_confirmation confirmed cancelled expired"`
	Phone  string `form:"phone" validate:"omitempty,min=6"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

// PendingOrderResponse is the API shape of a pending order.
type PendingOrderResponse struct {
	ID               uuid.UUID       `json:"id"`
	OrderID          string          `json:"orderId"`
	ProviderID       uuid.UUID       `json:"providerId"`
	PhoneCanonical   string          `json:"phoneCanonical"`
	Status           string          `json:"status"`
	RequiresFollowUp bool            `json:"requiresFollowUp"`
	Payload          json.RawMessage `json:"payload,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// CancelRequest is the body for an explicit operator cancel.
type CancelRequest struct {
	Reason string `json:"reason" validate:"max=512"`
}

// AttemptResponse is one entry of the notification audit trail.
type AttemptResponse struct {
	ID             uuid.UUID  `json:"id"`
	OrderID        string     `json:"orderId"`
	PendingOrderID *uuid.UUID `json:"pendingOrderId,omitempty"`
	Channel        string     `json:"channel"`
	Outcome        string     `json:"outcome"`
	ReasonCode     string     `json:"reasonCode,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}
