// Package service implements the provider directory lookup: resolving a
// normalized phone number to the owning user's provider record.
package service

import (
	"context"

	"pedidos_backend/internal/providers/repository"
	"pedidos_backend/platform/apperr"
	"pedidos_backend/platform/logger"
	"pedidos_backend/platform/phone"

	"github.com/google/uuid"
)

// ErrAmbiguous marks a match-key collision across providers. Ambiguity is a
// reportable data-quality condition and is never resolved heuristically.
var ErrAmbiguous = apperr.Conflict("multiple providers share this phone number")

// Service resolves normalized phone numbers against the provider directory.
// Read-only: the directory is owned by external CRUD.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new directory lookup service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// FindByPhone resolves a provider for the given normalized phone.
//
// Primary match is exact canonical equality, scoped to the user when a scope
// is known. Inbound webhook events arrive without a session, so a nil scope
// performs an unscoped lookup. When exact matching fails, a trailing-digit
// match key lookup is tried; if that yields providers belonging to more than
// one party, ErrAmbiguous is returned rather than a guess.
func (s *Service) FindByPhone(ctx context.Context, userScope *uuid.UUID, p phone.Normalized) (repository.Provider, error) {
	exact, err := s.repo.FindByCanonical(ctx, userScope, p.Canonical)
	if err != nil {
		return repository.Provider{}, err
	}
	if provider, err := pick(exact); err != nil || provider.ID != uuid.Nil {
		return provider, err
	}

	fuzzy, err := s.repo.FindByMatchKey(ctx, userScope, p.MatchKey)
	if err != nil {
		return repository.Provider{}, err
	}
	if provider, err := pick(fuzzy); err != nil || provider.ID != uuid.Nil {
		if err == nil && s.log != nil {
			s.log.Debug("provider resolved via match key fallback",
				"provider_id", provider.ID, "match_key", p.MatchKey)
		}
		return provider, err
	}

	return repository.Provider{}, apperr.NotFound("no provider matches this phone number")
}

// pick reduces a candidate list to a single provider. Zero candidates yield
// the zero value, more than one yields ErrAmbiguous.
func pick(candidates []repository.Provider) (repository.Provider, error) {
	switch len(candidates) {
	case 0:
		return repository.Provider{}, nil
	case 1:
		return candidates[0], nil
	default:
		return repository.Provider{}, ErrAmbiguous
	}
}
