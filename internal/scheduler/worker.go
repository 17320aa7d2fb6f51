package scheduler

import (
	"context"
	"fmt"
	"time"

	ordersrepo "pedidos_backend/internal/orders/repository"
	"pedidos_backend/platform/config"
	"pedidos_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// PollRunner performs one poll cycle. Satisfied by poller.Poller.
type PollRunner interface {
	Run(ctx context.Context) (int, error)
}

// StuckRecoverer re-runs correlation for accepted messages that never
// reached a terminal status. Satisfied by ingest.Service.
type StuckRecoverer interface {
	RecoverStuck(ctx context.Context, olderThan time.Time, limit int) (int, error)
}

const (
	// stuckRecoveryGrace keeps the sweep away from messages whose first
	// correlation run may still be in flight.
	stuckRecoveryGrace = 10 * time.Minute
	stuckRecoveryBatch = 100
)

// Worker consumes background tasks and registers the periodic schedule.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	orders    ordersrepo.Repository
	poller    PollRunner
	recoverer StuckRecoverer
	retention time.Duration
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, retention config.RetentionConfig, orders ordersrepo.Repository, poll PollRunner, recoverer StuckRecoverer, log *logger.Logger) (*Worker, error) {
	opt, queue, err := clientSettings(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		orders:    orders,
		poller:    poll,
		recoverer: recoverer,
		retention: retention.GetPendingOrderRetention(),
		log:       log,
	}

	mux.HandleFunc(TaskPendingOrderExpiry, w.handlePendingOrderExpiry)
	mux.HandleFunc(TaskInboundPoll, w.handleInboundPoll)
	mux.HandleFunc(TaskStuckMessageRecovery, w.handleStuckMessageRecovery)

	if err := w.registerPeriodic(opt, queue, retention.GetPollInterval()); err != nil {
		return nil, err
	}

	return w, nil
}

// registerPeriodic sets up the recurring schedule: the expiry sweep every
// hour, the poll fallback on the configured interval, the stuck-message
// recovery sweep every ten minutes.
func (w *Worker) registerPeriodic(opt asynq.RedisClientOpt, queue string, pollInterval time.Duration) error {
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})

	expiryTask, err := NewPendingOrderExpiryTask(PendingOrderExpiryPayload{Retention: w.retention})
	if err != nil {
		return err
	}
	if _, err := scheduler.Register("@every 1h", expiryTask, asynq.Queue(queue)); err != nil {
		return fmt.Errorf("register expiry sweep: %w", err)
	}

	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}
	spec := fmt.Sprintf("@every %s", pollInterval)
	if _, err := scheduler.Register(spec, NewInboundPollTask(), asynq.Queue(queue)); err != nil {
		return fmt.Errorf("register inbound poll: %w", err)
	}

	if _, err := scheduler.Register("@every 10m", NewStuckMessageRecoveryTask(), asynq.Queue(queue)); err != nil {
		return fmt.Errorf("register stuck message recovery: %w", err)
	}

	w.scheduler = scheduler
	return nil
}

// handlePendingOrderExpiry sweeps awaiting orders older than the retention
// window into the terminal expired status. Replies arriving afterwards see
// no pending order.
func (w *Worker) handlePendingOrderExpiry(ctx context.Context, task *asynq.Task) error {
	payload, err := ParsePendingOrderExpiryPayload(task)
	if err != nil {
		return err
	}

	retention := payload.Retention
	if retention <= 0 {
		retention = w.retention
	}

	swept, err := w.orders.Expire(ctx, time.Now().Add(-retention))
	if err != nil {
		return err
	}
	if swept > 0 {
		w.log.Info("expired stale pending orders", "count", swept, "retention", retention)
	}
	return nil
}

func (w *Worker) handleInboundPoll(ctx context.Context, _ *asynq.Task) error {
	if w.poller == nil {
		return nil
	}
	_, err := w.poller.Run(ctx)
	return err
}

// handleStuckMessageRecovery picks up accepted messages whose first
// correlation run failed. Redeliveries cannot reach them (dedup absorbs
// every retry of an already-stored message), so the sweep is their only way
// forward.
func (w *Worker) handleStuckMessageRecovery(ctx context.Context, _ *asynq.Task) error {
	if w.recoverer == nil {
		return nil
	}
	recovered, err := w.recoverer.RecoverStuck(ctx, time.Now().Add(-stuckRecoveryGrace), stuckRecoveryBatch)
	if err != nil {
		return err
	}
	if recovered > 0 {
		w.log.Info("recovered stuck inbound messages", "count", recovered)
	}
	return nil
}

// Run starts the periodic scheduler and the task server, blocking until the
// context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
	}()

	if w.scheduler != nil {
		go func() {
			if err := w.scheduler.Run(); err != nil {
				w.log.Error("periodic scheduler stopped", "error", err)
			}
		}()
	}

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
