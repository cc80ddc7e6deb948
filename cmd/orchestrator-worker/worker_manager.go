package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/edulab/orchestrator/pkg/eventbus"
	"github.com/edulab/orchestrator/pkg/log"
	"github.com/edulab/orchestrator/pkg/notify"
	"github.com/edulab/orchestrator/pkg/persistence"
	"github.com/edulab/orchestrator/pkg/services"
	"github.com/robfig/cron/v3"
)

// Retrier pushes failed publications again.
type Retrier interface {
	RetryFailed(ctx context.Context, limit int) (services.RetryReport, error)
}

type WorkerManager struct {
	id            string
	logger        *slog.Logger
	persistence   persistence.Persistence
	eventBus      eventbus.EventBus
	retrier       Retrier
	retrySchedule string
	retryBatch    int
	cron          *cron.Cron
}

func NewWorkerManager(
	id string,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	retrier Retrier,
	retrySchedule string,
	retryBatch int,
	logger *slog.Logger,
) *WorkerManager {
	return &WorkerManager{
		id:            id,
		logger:        logger.With("worker_id", id),
		persistence:   persistence,
		eventBus:      eventBus,
		retrier:       retrier,
		retrySchedule: retrySchedule,
		retryBatch:    retryBatch,
	}
}

// Setup stores requested notifications and schedules the publication retries. It does not block.
func (w *WorkerManager) Setup(ctx context.Context) error {
	if err := notify.RegisterConsumer(w.eventBus, w.persistence.NotificationRepository(), w.logger); err != nil {
		return err
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	if _, err := cron.ParseStandard(w.retrySchedule); err != nil {
		return fmt.Errorf("invalid retry schedule: %w", err)
	}

	w.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	id, err := w.cron.AddFunc(w.retrySchedule, func() { w.retry(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule publication retries: %w", err)
	}

	w.logger.InfoContext(ctx, "Publication retries scheduled", "schedule", w.retrySchedule, "entry_id", id)
	w.cron.Start()

	return nil
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	if err := w.Setup(ctx); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	w.logger.InfoContext(ctx, "Shutting down worker...")
	w.Stop()

	return nil
}

// Stop waits for a running retry pass to finish.
func (w *WorkerManager) Stop() {
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
}

func (w *WorkerManager) retry(ctx context.Context) {
	ctx = log.WithLogger(ctx, w.logger.With("job", "publication_retry"))

	report, err := w.retrier.RetryFailed(ctx, w.retryBatch)
	if err != nil {
		log.FromContext(ctx, w.logger).ErrorContext(ctx, "Publication retry pass failed", "error", err)

		return
	}

	if report.Attempted > 0 {
		log.FromContext(ctx, w.logger).InfoContext(ctx, "Publication retry pass done",
			"succeeded", report.Succeeded,
			"failed", report.Failed,
		)
	}
}
