// Package ingest is the single entry point for inbound supplier messages.
// All delivery paths (webhook, poll, realtime) feed the same Ingest call;
// duplicates across paths are collapsed by the BSP message id at the
// storage layer, so each message is processed at most once.
package ingest

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryPath identifies which transport first delivered an inbound message.
type DeliveryPath string

const (
	PathWebhook  DeliveryPath = "webhook"
	PathPoll     DeliveryPath = "poll"
	PathRealtime DeliveryPath = "realtime"
)

// MessageStatus is the processing state of a stored inbound message.
type MessageStatus string

const (
	StatusNew MessageStatus = "new"
	// StatusProcessed is terminal: a processed message is never re-run
	// through correlation, whatever the outcome was.
	StatusProcessed MessageStatus = "processed"
	StatusIgnored   MessageStatus = "ignored"
)

// RawInboundEvent is a message as handed over by a delivery path adapter,
// before any normalization or attribution.
type RawInboundEvent struct {
	ProviderMessageID string
	SenderPhone       string
	Body              string
	DeliveryPath      DeliveryPath
	ReceivedAt        time.Time
}

// Message is a durably stored inbound message.
type Message struct {
	ID                uuid.UUID
	ProviderMessageID string
	SenderPhoneRaw    string
	Body              string
	DeliveryPath      DeliveryPath
	Status            MessageStatus
	Outcome           string
	ReceivedAt        time.Time
	CreatedAt         time.Time
}

// IngestResult reports whether an event was accepted as new.
type IngestResult struct {
	Accepted  bool
	MessageID uuid.UUID
}
