// Package poller implements the polling fallback delivery path: when
// webhook delivery is degraded, recently received messages are fetched
// from the BSP on a schedule and fed through the same ingestion entry
// point. Dedup makes the overlap with webhook delivery harmless.
package poller

import (
	"context"
	"sync/atomic"
	"time"

	"pedidos_backend/internal/messaging/bsp"
	"pedidos_backend/internal/messaging/ingest"
	"pedidos_backend/platform/apperr"
	"pedidos_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// MessageSource lists recent inbound messages. Satisfied by bsp.Client.
type MessageSource interface {
	FetchMessages(ctx context.Context, since time.Time) ([]bsp.WireMessage, error)
}

// Ingestor is the shared ingestion entry point.
type Ingestor interface {
	Ingest(ctx context.Context, ev ingest.RawInboundEvent) (ingest.IngestResult, error)
}

// Poller fetches and ingests recent inbound messages.
type Poller struct {
	source   MessageSource
	ingestor Ingestor
	lookback time.Duration
	log      *logger.Logger
}

// New creates a poller that looks back the given window on each run.
// The window should comfortably exceed the poll interval so that a missed
// run cannot skip messages.
func New(source MessageSource, ingestor Ingestor, lookback time.Duration, log *logger.Logger) *Poller {
	return &Poller{source: source, ingestor: ingestor, lookback: lookback, log: log}
}

// Run performs one poll cycle and reports how many messages were newly
// accepted. Most fetched messages are duplicates of webhook deliveries;
// that is the expected steady state.
func (p *Poller) Run(ctx context.Context) (int, error) {
	since := time.Now().Add(-p.lookback)
	messages, err := p.source.FetchMessages(ctx, since)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUnavailable, "poll inbound messages", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	var accepted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, m := range messages {
		g.Go(func() error {
			result, err := p.ingestor.Ingest(gctx, ingest.RawInboundEvent{
				ProviderMessageID: m.ID,
				SenderPhone:       m.From,
				Body:              m.Body,
				DeliveryPath:      ingest.PathPoll,
				ReceivedAt:        m.Timestamp,
			})
			if err != nil {
				// A single malformed message must not abort the cycle.
				if apperr.Is(err, apperr.KindBadRequest) {
					if p.log != nil {
						p.log.Warn("skipped malformed polled message", "message_id", m.ID, "error", err)
					}
					return nil
				}
				return err
			}
			if result.Accepted {
				accepted.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(accepted.Load()), err
	}

	if p.log != nil && accepted.Load() > 0 {
		p.log.Info("poll cycle recovered messages missed by webhook delivery",
			"fetched", len(messages), "accepted", accepted.Load())
	}
	return int(accepted.Load()), nil
}
