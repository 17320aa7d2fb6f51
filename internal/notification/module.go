// Package notification fans domain events out to operators: manual
// follow-up alerts go out by email, data-quality signals are logged.
// Everything here is best-effort; the durable order state never depends
// on a notification landing.
package notification

import (
	"context"
	"fmt"

	"pedidos_backend/internal/email"
	"pedidos_backend/internal/events"
	"pedidos_backend/platform/logger"
)

// Module subscribes to domain events and raises operator alerts.
type Module struct {
	sender email.Sender
	log    *logger.Logger
}

// NewModule creates the notification module and registers its handlers on
// the bus.
func NewModule(bus events.Bus, sender email.Sender, log *logger.Logger) *Module {
	m := &Module{sender: sender, log: log}

	bus.Subscribe(events.NotificationRequiresManualFollowUp{}.EventName(),
		events.HandlerFunc(m.onManualFollowUp))
	bus.Subscribe(events.InboundMessageUnattributed{}.EventName(),
		events.HandlerFunc(m.onUnattributed))
	bus.Subscribe(events.InboundMessageUnrecognized{}.EventName(),
		events.HandlerFunc(m.onUnrecognized))

	return m
}

func (m *Module) onManualFollowUp(ctx context.Context, event events.Event) error {
	e, ok := event.(events.NotificationRequiresManualFollowUp)
	if !ok {
		return nil
	}

	m.log.Warn("order delivered via fallback text, needs manual follow-up",
		"order_id", e.OrderID, "provider", e.ProviderName, "phone", e.ProviderPhone)

	if m.sender == nil {
		return nil
	}
	subject := fmt.Sprintf("Pedido %s: confirmar recepción con %s", e.OrderID, e.ProviderName)
	body := fmt.Sprintf(
		"<p>El pedido <strong>%s</strong> para <strong>%s</strong> (%s) se entregó por mensaje de texto "+
			"porque la plantilla fue rechazada por la ventana de contacto.</p>"+
			"<p>Verificá con el proveedor que el mensaje haya llegado.</p>",
		e.OrderID, e.ProviderName, e.ProviderPhone)
	return m.sender.SendAlert(ctx, subject, body)
}

// onUnattributed logs unknown senders for data-quality follow-up. No email:
// these arrive in bulk when a provider changes numbers and would flood the
// operator inbox.
func (m *Module) onUnattributed(_ context.Context, event events.Event) error {
	e, ok := event.(events.InboundMessageUnattributed)
	if !ok {
		return nil
	}
	m.log.Warn("inbound message from unknown sender",
		"provider_message_id", e.ProviderMessageID, "sender_phone", e.SenderPhone)
	return nil
}

func (m *Module) onUnrecognized(_ context.Context, event events.Event) error {
	e, ok := event.(events.InboundMessageUnrecognized)
	if !ok {
		return nil
	}
	m.log.Info("supplier reply not understood, order left untouched",
		"order_id", e.OrderID, "body", e.Body)
	return nil
}
