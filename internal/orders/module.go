// Package orders provides the pending-order bounded context: sending order
// notifications to suppliers and tracking each order until it is confirmed,
// cancelled, or expired.
package orders

import (
	"pedidos_backend/internal/events"
	apphttp "pedidos_backend/internal/http"
	"pedidos_backend/internal/orders/handler"
	"pedidos_backend/internal/orders/repository"
	"pedidos_backend/internal/orders/service"
	"pedidos_backend/platform/logger"
	"pedidos_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the orders bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	service  *service.Service
	repo     repository.Repository
	attempts repository.AttemptsRepository
}

// NewModule creates and initializes the orders module with all its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, sender service.MessageSender, providers service.ProviderReader, template string, bus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	attempts := repository.NewAttempts(pool)
	notifier := service.NewNotifier(sender, repo, attempts, template, bus, log)
	svc := service.New(repo, attempts, providers, notifier, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler:  h,
		service:  svc,
		repo:     repo,
		attempts: attempts,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "orders"
}

// Repository returns the pending order store for other modules.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// Attempts returns the notification audit trail store.
func (m *Module) Attempts() repository.AttemptsRepository {
	return m.attempts
}

// RegisterRoutes mounts pending order routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/orders/notify", m.handler.Notify)
	ctx.Protected.GET("/orders/pending", m.handler.List)
	ctx.Protected.POST("/orders/pending/:id/cancel", m.handler.Cancel)
	ctx.Protected.GET("/orders/:orderId/attempts", m.handler.Attempts)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
