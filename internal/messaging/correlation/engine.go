package correlation

import (
	"context"
	"strings"

	"pedidos_backend/internal/events"
	"pedidos_backend/internal/messaging/ingest"
	ordersrepo "pedidos_backend/internal/orders/repository"
	providerrepo "pedidos_backend/internal/providers/repository"
	"pedidos_backend/platform/apperr"
	"pedidos_backend/platform/logger"
	"pedidos_backend/platform/phone"

	"github.com/google/uuid"
)

// Outcome is the terminal result of correlating one inbound message.
type Outcome string

const (
	OutcomeConfirmed      Outcome = "confirmed"
	OutcomeRejected       Outcome = "rejected"
	OutcomeUnattributed   Outcome = "unattributed"
	OutcomeNoPendingOrder Outcome = "no_pending_order"
	OutcomeUnrecognized   Outcome = "unrecognized"
	// OutcomeAlreadyResolved means the targeted order left awaiting
	// confirmation before this reply landed. The earlier transition stands.
	OutcomeAlreadyResolved Outcome = "already_resolved"
)

// ProviderResolver resolves a normalized phone number to a provider.
// Satisfied by the providers directory service.
type ProviderResolver interface {
	FindByPhone(ctx context.Context, userScope *uuid.UUID, p phone.Normalized) (providerrepo.Provider, error)
}

// MessageMarker finalizes inbound message processing state.
// Satisfied by the ingest repository.
type MessageMarker interface {
	MarkProcessed(ctx context.Context, id uuid.UUID, outcome string) error
}

// Engine attributes accepted inbound messages to providers and drives the
// pending-order state machine from their replies.
type Engine struct {
	messages   MessageMarker
	providers  ProviderResolver
	orders     ordersrepo.Repository
	classifier Classifier
	bus        events.Bus
	log        *logger.Logger
}

// NewEngine creates a correlation engine.
func NewEngine(messages MessageMarker, providers ProviderResolver, orders ordersrepo.Repository, classifier Classifier, bus events.Bus, log *logger.Logger) *Engine {
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	return &Engine{
		messages:   messages,
		providers:  providers,
		orders:     orders,
		classifier: classifier,
		bus:        bus,
		log:        log,
	}
}

// OnInboundAccepted implements ingest.Sink.
func (e *Engine) OnInboundAccepted(ctx context.Context, msg ingest.Message) error {
	_, err := e.Process(ctx, msg)
	return err
}

// Process runs one message through attribution, order selection, and
// classification. Every branch ends with the message marked processed;
// infrastructure errors are the only way out without a terminal outcome.
func (e *Engine) Process(ctx context.Context, msg ingest.Message) (Outcome, error) {
	normalized, err := phone.Normalize(msg.SenderPhoneRaw)
	if err != nil {
		return e.finishUnattributed(ctx, msg)
	}

	provider, err := e.providers.FindByPhone(ctx, nil, normalized)
	if err != nil {
		// Unknown or ambiguous senders are a data-quality signal, not a
		// retryable failure.
		if apperr.Is(err, apperr.KindNotFound) || apperr.Is(err, apperr.KindConflict) {
			return e.finishUnattributed(ctx, msg)
		}
		return "", err
	}

	candidates, err := e.orders.FindActiveByPhone(ctx, normalized.MatchKey)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return e.finish(ctx, msg, OutcomeNoPendingOrder, "")
	}

	target := selectOrder(candidates, msg.Body)

	switch e.classifier.Classify(msg.Body) {
	case IntentConfirm:
		return e.transition(ctx, msg, provider, target, normalized,
			ordersrepo.StatusConfirmed, OutcomeConfirmed)
	case IntentReject:
		return e.transition(ctx, msg, provider, target, normalized,
			ordersrepo.StatusCancelled, OutcomeRejected)
	default:
		if e.bus != nil {
			e.bus.Publish(ctx, events.InboundMessageUnrecognized{
				BaseEvent:      events.NewBaseEvent(),
				MessageID:      msg.ID,
				PendingOrderID: target.ID,
				OrderID:        target.OrderID,
				Body:           msg.Body,
			})
		}
		return e.finish(ctx, msg, OutcomeUnrecognized, target.OrderID)
	}
}

// transition applies the CAS status change and publishes the domain event.
// A CAS conflict means another path resolved the order first; the reply is
// absorbed without overwriting the earlier decision.
func (e *Engine) transition(ctx context.Context, msg ingest.Message, provider providerrepo.Provider, target ordersrepo.PendingOrder, normalized phone.Normalized, to ordersrepo.Status, outcome Outcome) (Outcome, error) {
	err := e.orders.Transition(ctx, target.ID, ordersrepo.StatusAwaitingConfirmation, to)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return e.finish(ctx, msg, OutcomeAlreadyResolved, target.OrderID)
		}
		return "", err
	}

	if e.bus != nil {
		switch to {
		case ordersrepo.StatusConfirmed:
			e.bus.Publish(ctx, events.OrderConfirmed{
				BaseEvent:      events.NewBaseEvent(),
				PendingOrderID: target.ID,
				OrderID:        target.OrderID,
				ProviderID:     provider.ID,
				UserID:         target.UserID,
				ConfirmedBy:    normalized.Canonical,
			})
		case ordersrepo.StatusCancelled:
			e.bus.Publish(ctx, events.OrderCancelled{
				BaseEvent:      events.NewBaseEvent(),
				PendingOrderID: target.ID,
				OrderID:        target.OrderID,
				ProviderID:     provider.ID,
				UserID:         target.UserID,
				Reason:         "rejected by supplier",
			})
		}
	}

	return e.finish(ctx, msg, outcome, target.OrderID)
}

func (e *Engine) finishUnattributed(ctx context.Context, msg ingest.Message) (Outcome, error) {
	if e.bus != nil {
		e.bus.Publish(ctx, events.InboundMessageUnattributed{
			BaseEvent:         events.NewBaseEvent(),
			MessageID:         msg.ID,
			ProviderMessageID: msg.ProviderMessageID,
			SenderPhone:       msg.SenderPhoneRaw,
			ReceivedAt:        msg.ReceivedAt,
		})
	}
	if e.log != nil {
		e.log.Warn("inbound message could not be attributed",
			"provider_message_id", msg.ProviderMessageID,
			"sender_phone", msg.SenderPhoneRaw)
	}
	return e.finish(ctx, msg, OutcomeUnattributed, "")
}

// finish marks the message processed. The outcome is already decided; a
// marking failure is logged but does not change it.
func (e *Engine) finish(ctx context.Context, msg ingest.Message, outcome Outcome, orderID string) (Outcome, error) {
	if err := e.messages.MarkProcessed(ctx, msg.ID, string(outcome)); err != nil {
		if e.log != nil {
			e.log.DatabaseError("mark inbound message processed", err)
		}
	}
	if e.log != nil {
		e.log.CorrelationOutcome(msg.ProviderMessageID, string(outcome), orderID)
	}
	return outcome, nil
}

// selectOrder picks the pending order a reply refers to: an explicit order
// reference in the body wins, otherwise the oldest awaiting order (FIFO).
// Candidates arrive ordered created_at ASC.
func selectOrder(candidates []ordersrepo.PendingOrder, body string) ordersrepo.PendingOrder {
	if len(candidates) == 1 {
		return candidates[0]
	}
	folded := strings.ToLower(body)
	best := -1
	for i, po := range candidates {
		if po.OrderID == "" || !containsOrderRef(folded, strings.ToLower(po.OrderID)) {
			continue
		}
		// Ids can nest ("ORD-1" inside "ORD-11"); the longest reference
		// present in the body is the one the supplier typed out.
		if best < 0 || len(po.OrderID) > len(candidates[best].OrderID) {
			best = i
		}
	}
	if best >= 0 {
		return candidates[best]
	}
	return candidates[0]
}

// containsOrderRef reports whether ref occurs in folded as a whole token.
// The characters adjacent to a match must not themselves belong to an order
// id, so "ord-1" does not fire inside "ord-11".
func containsOrderRef(folded, ref string) bool {
	for from := 0; ; {
		i := strings.Index(folded[from:], ref)
		if i < 0 {
			return false
		}
		i += from
		end := i + len(ref)
		if (i == 0 || !isOrderIDByte(folded[i-1])) &&
			(end == len(folded) || !isOrderIDByte(folded[end])) {
			return true
		}
		from = i + 1
	}
}

func isOrderIDByte(b byte) bool {
	return b == '-' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z')
}
