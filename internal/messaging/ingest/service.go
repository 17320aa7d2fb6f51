package ingest

import (
	"context"
	"strings"
	"time"

	"pedidos_backend/platform/apperr"
	"pedidos_backend/platform/logger"

	"github.com/google/uuid"
)

// Sink receives each message exactly once, right after first acceptance.
// Implemented by the correlation engine. Sink failures do not undo the
// acceptance; the message stays stored with status new.
type Sink interface {
	OnInboundAccepted(ctx context.Context, msg Message) error
}

// Service deduplicates and stores inbound events.
type Service struct {
	repo Repository
	sink Sink
	log  *logger.Logger
}

// NewService creates a new ingestion service.
func NewService(repo Repository, sink Sink, log *logger.Logger) *Service {
	return &Service{repo: repo, sink: sink, log: log}
}

// Ingest validates an inbound event, stores it at most once, and hands it to
// the sink on first acceptance. Duplicate events are acknowledged as
// Accepted=false and nothing else happens.
func (s *Service) Ingest(ctx context.Context, ev RawInboundEvent) (IngestResult, error) {
	if strings.TrimSpace(ev.ProviderMessageID) == "" {
		return IngestResult{}, apperr.BadRequest("inbound event is missing its message id")
	}
	if strings.TrimSpace(ev.SenderPhone) == "" {
		return IngestResult{}, apperr.BadRequest("inbound event is missing its sender phone")
	}

	receivedAt := ev.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	msg := Message{
		ID:                uuid.New(),
		ProviderMessageID: ev.ProviderMessageID,
		SenderPhoneRaw:    ev.SenderPhone,
		Body:              ev.Body,
		DeliveryPath:      ev.DeliveryPath,
		Status:            StatusNew,
		ReceivedAt:        receivedAt,
	}

	inserted, err := s.repo.Insert(ctx, msg)
	if err != nil {
		return IngestResult{}, err
	}
	if !inserted {
		if s.log != nil {
			s.log.InboundMessage(ev.ProviderMessageID, string(ev.DeliveryPath), false)
		}
		return IngestResult{Accepted: false}, nil
	}

	if s.log != nil {
		s.log.InboundMessage(ev.ProviderMessageID, string(ev.DeliveryPath), true)
	}

	if s.sink != nil {
		if err := s.sink.OnInboundAccepted(ctx, msg); err != nil && s.log != nil {
			s.log.Error("inbound message processing failed",
				"provider_message_id", msg.ProviderMessageID, "error", err)
		}
	}

	return IngestResult{Accepted: true, MessageID: msg.ID}, nil
}

// RecoverStuck re-runs the sink for messages still in status new older than
// the cutoff. A transient sink failure on first acceptance leaves the message
// stored but unprocessed, and because dedup absorbs every redelivery, this
// sweep is the only path that picks it back up. Returns the number of
// messages handed to the sink successfully.
func (s *Service) RecoverStuck(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	if s.sink == nil {
		return 0, nil
	}

	stuck, err := s.repo.ListStuck(ctx, olderThan, limit)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, msg := range stuck {
		if err := s.sink.OnInboundAccepted(ctx, msg); err != nil {
			// Still stuck; the next sweep retries it.
			if s.log != nil {
				s.log.Error("inbound message recovery failed",
					"provider_message_id", msg.ProviderMessageID, "error", err)
			}
			continue
		}
		recovered++
	}
	return recovered, nil
}
