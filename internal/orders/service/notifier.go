package service

import (
	"context"
	"encoding/json"
	"fmt"

	"pedidos_backend/internal/events"
	"pedidos_backend/internal/messaging/bsp"
	"pedidos_backend/internal/orders/repository"
	providerrepo "pedidos_backend/internal/providers/repository"
	"pedidos_backend/platform/apperr"
	"pedidos_backend/platform/logger"

	"github.com/google/uuid"
)

// MessageSender is the outbound send capability the notifier depends on.
// Satisfied by bsp.Client.
type MessageSender interface {
	SendTemplate(ctx context.Context, phoneNumber, template string, vars map[string]string) (bsp.Result, error)
	SendText(ctx context.Context, phoneNumber, body string) (bsp.Result, error)
}

// NotifyRequest describes the order to send to a supplier.
type NotifyRequest struct {
	OrderID string
	Summary string
	Payload json.RawMessage
}

// NotificationResult reports how the order notification was delivered.
type NotificationResult struct {
	PendingOrderID   uuid.UUID
	Channel          repository.Channel
	RequiresFollowUp bool
}

// Notifier sends the initial order message and creates the pending order
// that tracks the supplier's confirmation.
//
// Template sends to numbers outside the provider's engagement window are
// rejected by policy; a plain-text message re-opens the window, so the
// notifier falls back to one rather than failing the business process.
type Notifier struct {
	sender   MessageSender
	orders   repository.Repository
	attempts repository.AttemptsRepository
	template string
	bus      events.Bus
	log      *logger.Logger
}

// NewNotifier creates an order notifier.
func NewNotifier(sender MessageSender, orders repository.Repository, attempts repository.AttemptsRepository, template string, bus events.Bus, log *logger.Logger) *Notifier {
	return &Notifier{
		sender:   sender,
		orders:   orders,
		attempts: attempts,
		template: template,
		bus:      bus,
		log:      log,
	}
}

// NotifyOrder runs the two-step notification state machine. The send always
// happens before the pending order is created, so a slow or failed network
// call never holds any store lock.
func (n *Notifier) NotifyOrder(ctx context.Context, req NotifyRequest, provider providerrepo.Provider) (NotificationResult, error) {
	if n.sender == nil {
		return NotificationResult{}, apperr.Unavailable("no message sender configured")
	}

	result, err := n.sender.SendTemplate(ctx, provider.PhoneCanonical, n.template, templateVars(req, provider))
	if err != nil {
		n.recordAttempt(ctx, req.OrderID, nil, repository.ChannelTemplate, repository.OutcomeFailed, "unreachable")
		return NotificationResult{}, apperr.Wrap(apperr.KindUnavailable, "send capability unreachable", err)
	}

	switch {
	case result.Status == bsp.StatusSent:
		return n.completeSend(ctx, req, provider, repository.ChannelTemplate, false)

	case result.PolicyRejected():
		n.recordAttempt(ctx, req.OrderID, nil, repository.ChannelTemplate, repository.OutcomeRejectedPolicy, result.ReasonCode)
		return n.sendFallback(ctx, req, provider)

	default:
		n.recordAttempt(ctx, req.OrderID, nil, repository.ChannelTemplate, repository.OutcomeFailed, result.ReasonCode)
		return NotificationResult{}, apperr.BadRequest("order notification rejected: " + result.ReasonCode)
	}
}

// sendFallback sends the plain-text message that both conveys the order and
// prompts the supplier to reply, which resets the engagement window.
func (n *Notifier) sendFallback(ctx context.Context, req NotifyRequest, provider providerrepo.Provider) (NotificationResult, error) {
	result, err := n.sender.SendText(ctx, provider.PhoneCanonical, fallbackBody(req, provider))
	if err != nil {
		n.recordAttempt(ctx, req.OrderID, nil, repository.ChannelFallbackText, repository.OutcomeFailed, "unreachable")
		return NotificationResult{}, apperr.Wrap(apperr.KindUnavailable, "send capability unreachable", err)
	}
	if result.Status != bsp.StatusSent {
		n.recordAttempt(ctx, req.OrderID, nil, repository.ChannelFallbackText, repository.OutcomeFailed, result.ReasonCode)
		return NotificationResult{}, apperr.BadRequest("fallback message rejected; the number needs manual reactivation")
	}

	return n.completeSend(ctx, req, provider, repository.ChannelFallbackText, true)
}

// completeSend records the successful attempt and creates the pending order.
// Fallback deliveries are flagged for manual follow-up because template
// delivery could not be confirmed machine-readably.
func (n *Notifier) completeSend(ctx context.Context, req NotifyRequest, provider providerrepo.Provider, channel repository.Channel, followUp bool) (NotificationResult, error) {
	po, err := n.orders.Create(ctx, repository.CreateParams{
		OrderID:          req.OrderID,
		ProviderID:       provider.ID,
		UserID:           provider.UserID,
		PhoneRaw:         provider.PhoneRaw,
		PhoneCanonical:   provider.PhoneCanonical,
		PhoneMatchKey:    provider.PhoneMatchKey,
		Payload:          req.Payload,
		RequiresFollowUp: followUp,
	})
	if err != nil {
		// The message is already out; surface the conflict instead of
		// sending again.
		if n.log != nil {
			n.log.Warn("pending order creation failed after send",
				"order_id", req.OrderID, "provider_id", provider.ID, "error", err)
		}
		return NotificationResult{}, err
	}

	n.recordAttempt(ctx, req.OrderID, &po.ID, channel, repository.OutcomeSent, "")

	if followUp && n.bus != nil {
		n.bus.Publish(ctx, events.NotificationRequiresManualFollowUp{
			BaseEvent:      events.NewBaseEvent(),
			PendingOrderID: po.ID,
			OrderID:        req.OrderID,
			ProviderID:     provider.ID,
			ProviderName:   provider.DisplayName,
			ProviderPhone:  provider.PhoneCanonical,
		})
	}

	return NotificationResult{
		PendingOrderID:   po.ID,
		Channel:          channel,
		RequiresFollowUp: followUp,
	}, nil
}

// recordAttempt appends to the audit trail; audit failures are logged, never
// allowed to mask the send outcome.
func (n *Notifier) recordAttempt(ctx context.Context, orderID string, pendingOrderID *uuid.UUID, channel repository.Channel, outcome repository.AttemptOutcome, reason string) {
	err := n.attempts.Append(ctx, repository.AttemptParams{
		OrderID:        orderID,
		PendingOrderID: pendingOrderID,
		Channel:        channel,
		Outcome:        outcome,
		ReasonCode:     reason,
	})
	if err != nil && n.log != nil {
		n.log.DatabaseError("append notification attempt", err)
	}
}

func templateVars(req NotifyRequest, provider providerrepo.Provider) map[string]string {
	return map[string]string{
		"order_id":      req.OrderID,
		"provider_name": provider.DisplayName,
		"summary":       req.Summary,
	}
}

func fallbackBody(req NotifyRequest, provider providerrepo.Provider) string {
	return fmt.Sprintf(
		"Hola %s! Te enviamos el pedido %s: %s. Respondé este mensaje para confirmarlo o rechazarlo.",
		provider.DisplayName, req.OrderID, req.Summary,
	)
}
