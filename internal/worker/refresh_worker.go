package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aulas/internal/amqp"
	applog "aulas/internal/log"
	"aulas/internal/metrics"
	"aulas/internal/services"

	"golang.org/x/sync/errgroup"
)

// Refresher reloads the dashboard dataset.
type Refresher interface {
	Refresh(ctx context.Context) (services.Snapshot, error)
}

// RefreshConsumer delivers refresh requests from a message queue.
type RefreshConsumer interface {
	ConsumeRefreshRequests(ctx context.Context, handler amqp.RefreshRequestHandler) error
}

// RefreshWorker keeps the dashboard snapshot current. It refreshes once on
// start, then on every interval tick and on every queued refresh request.
type RefreshWorker struct {
	refresher Refresher
	consumer  RefreshConsumer
	interval  time.Duration
	metrics   *metrics.Metrics
	logger    *applog.StructuredLogger
}

// NewRefreshWorker creates a worker. An interval of zero disables the
// periodic refresh; m may be nil.
func NewRefreshWorker(refresher Refresher, interval time.Duration, m *metrics.Metrics, logger *applog.Logger) *RefreshWorker {
	return &RefreshWorker{
		refresher: refresher,
		interval:  interval,
		metrics:   m,
		logger:    applog.NewStructuredLogger(logger.WithComponent(applog.ComponentWorker)),
	}
}

// WithConsumer makes Run also serve refresh requests from c.
func (w *RefreshWorker) WithConsumer(c RefreshConsumer) *RefreshWorker {
	w.consumer = c
	return w
}

// Run blocks until ctx is done. A failed startup refresh is logged and
// retried on the next tick; it does not stop the worker.
func (w *RefreshWorker) Run(ctx context.Context) error {
	w.refresh(ctx, metrics.TriggerStartup)

	if w.interval <= 0 && w.consumer == nil {
		<-ctx.Done()
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)

	if w.interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(w.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					w.refresh(ctx, metrics.TriggerSchedule)
				}
			}
		})
	}

	if w.consumer != nil {
		g.Go(func() error {
			err := w.consumer.ConsumeRefreshRequests(ctx, w.HandleRefreshRequest)
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("consume refresh requests: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// HandleRefreshRequest processes one queued refresh request.
func (w *RefreshWorker) HandleRefreshRequest(ctx context.Context, msg *amqp.RefreshRequestMessage) error {
	_, err := w.refresh(ctx, metrics.TriggerMessage)
	if err != nil {
		return fmt.Errorf("refresh request %s: %w", msg.RequestID, err)
	}
	return nil
}

func (w *RefreshWorker) refresh(ctx context.Context, trigger string) (services.Snapshot, error) {
	w.metrics.IncRefreshTrigger(trigger)

	start := time.Now()
	snap, err := w.refresher.Refresh(ctx)
	w.logger.LogRefresh(ctx, trigger, snap.ID,
		len(snap.Dataset.Lessons), len(snap.Dataset.Clients),
		time.Since(start).Milliseconds(), err)
	return snap, err
}
