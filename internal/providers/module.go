// Package providers provides the provider directory bounded context: the
// read-only mapping from normalized supplier phone numbers to the provider
// records owned by application users.
package providers

import (
	apphttp "pedidos_backend/internal/http"
	"pedidos_backend/internal/providers/handler"
	"pedidos_backend/internal/providers/repository"
	"pedidos_backend/internal/providers/service"
	"pedidos_backend/platform/logger"
	"pedidos_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the providers bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the providers module with all its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "providers"
}

// Directory returns the lookup service for other modules.
func (m *Module) Directory() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts provider directory routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/providers/lookup", m.handler.Lookup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
