package service

import (
	"context"
	"testing"

	"pedidos_backend/internal/orders/repository"
	providerrepo "pedidos_backend/internal/providers/repository"
	"pedidos_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeProviderReader struct {
	providers map[uuid.UUID]providerrepo.Provider
}

func (f *fakeProviderReader) GetByID(_ context.Context, id uuid.UUID) (providerrepo.Provider, error) {
	p, ok := f.providers[id]
	if !ok {
		return providerrepo.Provider{}, apperr.NotFound("provider not found")
	}
	return p, nil
}

func newService(store *fakeOrderStore, provider providerrepo.Provider) *Service {
	readers := &fakeProviderReader{providers: map[uuid.UUID]providerrepo.Provider{provider.ID: provider}}
	notifier := NewNotifier(nil, store, &fakeAttempts{}, "order_notification", nil, nil)
	return New(store, &fakeAttempts{}, readers, notifier, nil, nil)
}

func TestNotifyForeignProviderIsNotFound(t *testing.T) {
	provider := testProvider()
	svc := newService(newFakeOrderStore(), provider)

	_, err := svc.Notify(context.Background(), uuid.New(), provider.ID, NotifyRequest{OrderID: "ORD-1"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for another user's provider, got %v", err)
	}
}

func TestCancelAwaitingOrder(t *testing.T) {
	provider := testProvider()
	store := newFakeOrderStore()
	svc := newService(store, provider)

	po, err := store.Create(context.Background(), repository.CreateParams{
		OrderID:       "ORD-2",
		ProviderID:    provider.ID,
		UserID:        provider.UserID,
		PhoneMatchKey: provider.PhoneMatchKey,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Cancel(context.Background(), provider.UserID, po.ID, "supplier closed"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, _ := store.GetByID(context.Background(), po.ID)
	if got.Status != repository.StatusCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}

	// A second cancel loses the CAS and conflicts.
	if err := svc.Cancel(context.Background(), provider.UserID, po.ID, "again"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on repeated cancel, got %v", err)
	}
}

func TestCancelForeignOrderIsNotFound(t *testing.T) {
	provider := testProvider()
	store := newFakeOrderStore()
	svc := newService(store, provider)

	po, err := store.Create(context.Background(), repository.CreateParams{
		OrderID:       "ORD-3",
		ProviderID:    provider.ID,
		UserID:        provider.UserID,
		PhoneMatchKey: provider.PhoneMatchKey,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Cancel(context.Background(), uuid.New(), po.ID, ""); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for another user's order, got %v", err)
	}
}
