// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"pedidos_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Order Domain Events
// =============================================================================

// OrderConfirmed is published when a supplier confirms a pending order.
// Delivery is best-effort; the durable status transition is authoritative.
type OrderConfirmed struct {
	BaseEvent
	PendingOrderID uuid.UUID `json:"pendingOrderId"`
	OrderID        string    `json:"orderId"`
	ProviderID     uuid.UUID `json:"providerId"`
	UserID         uuid.UUID `json:"userId"`
	ConfirmedBy    string    `json:"confirmedBy"` // sender phone, canonical form
}

func (e OrderConfirmed) EventName() string { return "orders.order.confirmed" }

// OrderCancelled is published when a supplier rejects a pending order or an
// operator cancels it explicitly.
type OrderCancelled struct {
	BaseEvent
	PendingOrderID uuid.UUID `json:"pendingOrderId"`
	OrderID        string    `json:"orderId"`
	ProviderID     uuid.UUID `json:"providerId"`
	UserID         uuid.UUID `json:"userId"`
	Reason         string    `json:"reason,omitempty"`
}

func (e OrderCancelled) EventName() string { return "orders.order.cancelled" }

// NotificationRequiresManualFollowUp is published when the order notification
// could only be delivered via the plain-text fallback, so template delivery
// was never machine-confirmed and an operator should verify the supplier saw it.
type NotificationRequiresManualFollowUp struct {
	BaseEvent
	PendingOrderID uuid.UUID `json:"pendingOrderId"`
	OrderID        string    `json:"orderId"`
	ProviderID     uuid.UUID `json:"providerId"`
	ProviderName   string    `json:"providerName"`
	ProviderPhone  string    `json:"providerPhone"`
}

func (e NotificationRequiresManualFollowUp) EventName() string {
	return "orders.notification.manual_follow_up"
}

// =============================================================================
// Messaging Domain Events
// =============================================================================

// InboundMessageUnattributed is published when an accepted inbound message
// could not be matched to any provider. A data-quality signal, not an error.
type InboundMessageUnattributed struct {
	BaseEvent
	MessageID         uuid.UUID `json:"messageId"`
	ProviderMessageID string    `json:"providerMessageId"`
	SenderPhone       string    `json:"senderPhone"`
	ReceivedAt        time.Time `json:"receivedAt"`
}

func (e InboundMessageUnattributed) EventName() string { return "messaging.inbound.unattributed" }

// InboundMessageUnrecognized is published when a message matched a pending
// order but its body could not be classified as confirm or reject. The order
// is left untouched for human follow-up.
type InboundMessageUnrecognized struct {
	BaseEvent
	MessageID      uuid.UUID `json:"messageId"`
	PendingOrderID uuid.UUID `json:"pendingOrderId"`
	OrderID        string    `json:"orderId"`
	Body           string    `json:"body"`
}

func (e InboundMessageUnrecognized) EventName() string { return "messaging.inbound.unrecognized" }
