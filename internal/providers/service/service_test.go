package service

import (
	"context"
	"testing"

	"pedidos_backend/internal/providers/repository"
	"pedidos_backend/platform/apperr"
	"pedidos_backend/platform/phone"

	"github.com/google/uuid"
)

type fakeRepo struct {
	byCanonical map[string][]repository.Provider
	byMatchKey  map[string][]repository.Provider
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Provider, error) {
	return repository.Provider{}, apperr.NotFound("provider not found")
}

func (f *fakeRepo) FindByCanonical(_ context.Context, userScope *uuid.UUID, canonical string) ([]repository.Provider, error) {
	return scoped(f.byCanonical[canonical], userScope), nil
}

func (f *fakeRepo) FindByMatchKey(_ context.Context, userScope *uuid.UUID, matchKey string) ([]repository.Provider, error) {
	return scoped(f.byMatchKey[matchKey], userScope), nil
}

func scoped(in []repository.Provider, userScope *uuid.UUID) []repository.Provider {
	if userScope == nil {
		return in
	}
	var out []repository.Provider
	for _, p := range in {
		if p.UserID == *userScope {
			out = append(out, p)
		}
	}
	return out
}

func mustNormalize(t *testing.T, raw string) phone.Normalized {
	t.Helper()
	n, err := phone.Normalize(raw)
	if err != nil {
		t.Fatalf("normalize %q: %v", raw, err)
	}
	return n
}

func TestFindByPhoneExactMatch(t *testing.T) {
	n := mustNormalize(t, "+54 9 11 3556-2673")
	want := repository.Provider{ID: uuid.New(), UserID: uuid.New(), PhoneCanonical: n.Canonical}

	svc := New(&fakeRepo{
		byCanonical: map[string][]repository.Provider{n.Canonical: {want}},
	}, nil)

	got, err := svc.FindByPhone(context.Background(), nil, n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("got provider %s, want %s", got.ID, want.ID)
	}
}

func TestFindByPhoneMatchKeyFallback(t *testing.T) {
	n := mustNormalize(t, "01135562673")
	want := repository.Provider{ID: uuid.New(), UserID: uuid.New(), PhoneMatchKey: n.MatchKey}

	svc := New(&fakeRepo{
		byMatchKey: map[string][]repository.Provider{n.MatchKey: {want}},
	}, nil)

	got, err := svc.FindByPhone(context.Background(), nil, n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("got provider %s, want %s", got.ID, want.ID)
	}
}

func TestFindByPhoneAmbiguousAcrossUsers(t *testing.T) {
	n := mustNormalize(t, "541135562673")
	a := repository.Provider{ID: uuid.New(), UserID: uuid.New(), PhoneMatchKey: n.MatchKey}
	b := repository.Provider{ID: uuid.New(), UserID: uuid.New(), PhoneMatchKey: n.MatchKey}

	svc := New(&fakeRepo{
		byMatchKey: map[string][]repository.Provider{n.MatchKey: {a, b}},
	}, nil)

	_, err := svc.FindByPhone(context.Background(), nil, n)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected ambiguity conflict, got %v", err)
	}
}

func TestFindByPhoneUserScopeDisambiguates(t *testing.T) {
	n := mustNormalize(t, "541135562673")
	userA := uuid.New()
	a := repository.Provider{ID: uuid.New(), UserID: userA, PhoneMatchKey: n.MatchKey}
	b := repository.Provider{ID: uuid.New(), UserID: uuid.New(), PhoneMatchKey: n.MatchKey}

	svc := New(&fakeRepo{
		byMatchKey: map[string][]repository.Provider{n.MatchKey: {a, b}},
	}, nil)

	got, err := svc.FindByPhone(context.Background(), &userA, n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("got provider %s, want the user-scoped one %s", got.ID, a.ID)
	}
}

func TestFindByPhoneNotFound(t *testing.T) {
	n := mustNormalize(t, "541135562673")
	svc := New(&fakeRepo{}, nil)

	_, err := svc.FindByPhone(context.Background(), nil, n)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFindByPhonePrefersExactOverFallback(t *testing.T) {
	n := mustNormalize(t, "+54 11 3556 2673")
	exact := repository.Provider{ID: uuid.New(), PhoneCanonical: n.Canonical}
	fuzzy := repository.Provider{ID: uuid.New(), PhoneMatchKey: n.MatchKey}

	svc := New(&fakeRepo{
		byCanonical: map[string][]repository.Provider{n.Canonical: {exact}},
		byMatchKey:  map[string][]repository.Provider{n.MatchKey: {exact, fuzzy}},
	}, nil)

	got, err := svc.FindByPhone(context.Background(), nil, n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != exact.ID {
		t.Errorf("got provider %s, want exact match %s", got.ID, exact.ID)
	}
}
