// Package service implements pending-order operations: sending the order
// notification, listing outstanding orders, and explicit operator cancels.
package service

import (
	"context"

	"pedidos_backend/internal/events"
	"pedidos_backend/internal/orders/repository"
	providerrepo "pedidos_backend/internal/providers/repository"
	"pedidos_backend/platform/apperr"
	"pedidos_backend/platform/logger"

	"github.com/google/uuid"
)

// ProviderReader provides read access to the provider directory.
// Satisfied by the providers repository.
type ProviderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (providerrepo.Provider, error)
}

// Service is the operator-facing pending order service.
type Service struct {
	repo      repository.Repository
	attempts  repository.AttemptsRepository
	providers ProviderReader
	notifier  *Notifier
	bus       events.Bus
	log       *logger.Logger
}

// New creates a new orders service.
func New(repo repository.Repository, attempts repository.AttemptsRepository, providers ProviderReader, notifier *Notifier, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		attempts:  attempts,
		providers: providers,
		notifier:  notifier,
		bus:       bus,
		log:       log,
	}
}

// Notify resolves the provider and runs the notification state machine.
// The provider must belong to the calling user.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, providerID uuid.UUID, req NotifyRequest) (NotificationResult, error) {
	provider, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		return NotificationResult{}, err
	}
	if provider.UserID != userID {
		return NotificationResult{}, apperr.NotFound("provider not found")
	}

	return s.notifier.NotifyOrder(ctx, req, provider)
}

// ListPending returns the caller's pending orders, optionally filtered.
func (s *Service) ListPending(ctx context.Context, p repository.ListParams) ([]repository.PendingOrder, error) {
	return s.repo.List(ctx, p)
}

// Attempts returns the notification audit trail for an order.
func (s *Service) Attempts(ctx context.Context, orderID string) ([]repository.NotificationAttempt, error) {
	return s.attempts.ListByOrderID(ctx, orderID)
}

// Cancel performs an explicit operator cancel of an awaiting order.
// The CAS transition guarantees a concurrent supplier confirmation cannot
// be silently overwritten: whichever lands first wins, the other conflicts.
func (s *Service) Cancel(ctx context.Context, userID uuid.UUID, pendingOrderID uuid.UUID, reason string) error {
	po, err := s.repo.GetByID(ctx, pendingOrderID)
	if err != nil {
		return err
	}
	if po.UserID != userID {
		return apperr.NotFound("pending order not found")
	}

	if err := s.repo.Transition(ctx, po.ID, repository.StatusAwaitingConfirmation, repository.StatusCancelled); err != nil {
		return err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.OrderCancelled{
			BaseEvent:      events.NewBaseEvent(),
			PendingOrderID: po.ID,
			OrderID:        po.OrderID,
			ProviderID:     po.ProviderID,
			UserID:         po.UserID,
			Reason:         reason,
		})
	}
	return nil
}
