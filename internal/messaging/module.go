// Package messaging provides the inbound messaging bounded context: the BSP
// client, the deduplicating ingestion entry point, the correlation engine,
// and the three delivery path adapters (webhook, poll, realtime).
package messaging

import (
	"context"

	"pedidos_backend/internal/events"
	apphttp "pedidos_backend/internal/http"
	"pedidos_backend/internal/messaging/bsp"
	"pedidos_backend/internal/messaging/correlation"
	"pedidos_backend/internal/messaging/ingest"
	"pedidos_backend/internal/messaging/poller"
	"pedidos_backend/internal/messaging/webhook"
	ordersrepo "pedidos_backend/internal/orders/repository"
	"pedidos_backend/platform/config"
	"pedidos_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the messaging bounded context module implementing http.Module.
type Module struct {
	client   *bsp.Client
	ingestor *ingest.Service
	engine   *correlation.Engine
	poller   *poller.Poller
	keys     *webhook.KeyRepository
	handler  *webhook.Handler
	log      *logger.Logger
}

// NewModule creates and initializes the messaging module. The BSP client is
// created by the composition root and shared with the orders notifier. The
// correlation engine resolves providers through the given resolver (the
// providers directory service) and transitions orders through the given
// repository.
func NewModule(pool *pgxpool.Pool, client *bsp.Client, lookback config.RetentionConfig, providers correlation.ProviderResolver, orders ordersrepo.Repository, bus events.Bus, log *logger.Logger) *Module {
	messages := ingest.NewRepository(pool)
	engine := correlation.NewEngine(messages, providers, orders, correlation.NewKeywordClassifier(), bus, log)
	ingestor := ingest.NewService(messages, engine, log)
	keys := webhook.NewKeyRepository(pool)

	return &Module{
		client:   client,
		ingestor: ingestor,
		engine:   engine,
		poller:   poller.New(client, ingestor, lookback.GetPollLookback(), log),
		keys:     keys,
		handler:  webhook.NewHandler(ingestor, log),
		log:      log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "messaging"
}

// Client returns the BSP client, nil when no provider is configured.
func (m *Module) Client() *bsp.Client {
	return m.client
}

// Ingestor returns the shared ingestion entry point.
func (m *Module) Ingestor() *ingest.Service {
	return m.ingestor
}

// Poller returns the polling fallback delivery path.
func (m *Module) Poller() *poller.Poller {
	return m.poller
}

// Keys returns the webhook API key repository for provisioning tooling.
func (m *Module) Keys() *webhook.KeyRepository {
	return m.keys
}

// RealtimeHandler returns the callback for a realtime change-feed
// subscription. It feeds the same ingestion entry point as the other
// delivery paths.
func (m *Module) RealtimeHandler() func(ctx context.Context, msg bsp.WireMessage) error {
	return func(ctx context.Context, msg bsp.WireMessage) error {
		_, err := m.ingestor.Ingest(ctx, ingest.RawInboundEvent{
			ProviderMessageID: msg.ID,
			SenderPhone:       msg.From,
			Body:              msg.Body,
			DeliveryPath:      ingest.PathRealtime,
			ReceivedAt:        msg.Timestamp,
		})
		return err
	}
}

// RegisterRoutes mounts the BSP webhook endpoint. It is API-key
// authenticated, not JWT: the caller is the BSP, not an operator.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/webhook/messages", webhook.APIKeyAuthMiddleware(m.keys), m.handler.HandleInbound)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
