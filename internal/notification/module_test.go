package notification

import (
	"context"
	"strings"
	"testing"

	"pedidos_backend/internal/events"
	"pedidos_backend/platform/logger"

	"github.com/google/uuid"
)

type recordingSender struct {
	subjects []string
	bodies   []string
}

func (r *recordingSender) SendAlert(_ context.Context, subject, htmlContent string) error {
	r.subjects = append(r.subjects, subject)
	r.bodies = append(r.bodies, htmlContent)
	return nil
}

func TestManualFollowUpSendsAlert(t *testing.T) {
	bus := events.NewInMemoryBus(logger.New("development"))
	sender := &recordingSender{}
	NewModule(bus, sender, logger.New("development"))

	err := bus.PublishSync(context.Background(), events.NotificationRequiresManualFollowUp{
		BaseEvent:      events.NewBaseEvent(),
		PendingOrderID: uuid.New(),
		OrderID:        "ORD-1",
		ProviderID:     uuid.New(),
		ProviderName:   "Verdulería San Martín",
		ProviderPhone:  "+541135562673",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(sender.subjects) != 1 {
		t.Fatalf("sent %d alerts, want 1", len(sender.subjects))
	}
	if !strings.Contains(sender.subjects[0], "ORD-1") {
		t.Errorf("subject %q should reference the order", sender.subjects[0])
	}
	if !strings.Contains(sender.bodies[0], "Verdulería San Martín") {
		t.Errorf("body should name the provider: %q", sender.bodies[0])
	}
}

// Unattributed messages are a data-quality log line, never an email.
func TestUnattributedDoesNotEmail(t *testing.T) {
	bus := events.NewInMemoryBus(logger.New("development"))
	sender := &recordingSender{}
	NewModule(bus, sender, logger.New("development"))

	err := bus.PublishSync(context.Background(), events.InboundMessageUnattributed{
		BaseEvent:         events.NewBaseEvent(),
		MessageID:         uuid.New(),
		ProviderMessageID: "wamid.X",
		SenderPhone:       "+5491144440000",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(sender.subjects) != 0 {
		t.Errorf("sent %d alerts, want 0", len(sender.subjects))
	}
}
