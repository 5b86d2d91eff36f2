package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitlab.com/pdhero/retur/internal/db"
	"gitlab.com/pdhero/retur/internal/metrics"
	"gitlab.com/pdhero/retur/internal/repository"
	"gitlab.com/pdhero/retur/internal/storage"
)

var errPublisherStopped = errors.New("publisher shutdown during batch processing")

const statusWriteTimeout = 5 * time.Second

type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// Publisher drains the outbox table into the producer. Tasks are claimed in
// one transaction and delivered outside of it, so a slow broker never holds
// row locks.
type Publisher struct {
	db             db.DB
	repo           storage.OutboxTaskRepository
	producer       Producer
	config         PublisherConfig
	logger         *zap.Logger
	timeNow        func() time.Time
	wg             sync.WaitGroup
	shutdownSignal chan struct{}
	stopOnce       sync.Once
}

func NewPublisher(db db.DB, repo storage.OutboxTaskRepository, producer Producer, config PublisherConfig, logger *zap.Logger) *Publisher {
	return &Publisher{
		db:             db,
		repo:           repo,
		producer:       producer,
		config:         config,
		logger:         logger,
		timeNow:        time.Now,
		shutdownSignal: make(chan struct{}),
	}
}

func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("Starting outbox publisher",
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Int("batch_size", p.config.BatchSize))
	p.wg.Add(1)
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil && !errors.Is(err, errPublisherStopped) && ctx.Err() == nil {
				p.logger.Error("Outbox publisher failed to process batch", zap.Error(err))
			}
		case <-p.shutdownSignal:
			p.logger.Info("Outbox publisher received shutdown signal, stopping")
			return nil
		case <-ctx.Done():
			p.logger.Info("Outbox publisher context cancelled, stopping")
			return nil
		}
	}
}

// Shutdown stops the poll loop, waits for the batch in flight and closes the
// producer.
func (p *Publisher) Shutdown(ctx context.Context) {
	p.stopOnce.Do(func() {
		p.logger.Info("Initiating outbox publisher shutdown")
		close(p.shutdownSignal)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			p.logger.Info("Outbox publisher shutdown complete")
		case <-ctx.Done():
			p.logger.Warn("Outbox publisher shutdown timed out")
		}

		if err := p.producer.Close(); err != nil {
			p.logger.Error("Failed to close producer", zap.Error(err))
		}
	})
}

func (p *Publisher) processBatch(ctx context.Context) error {
	tasks, err := p.claimTasks(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	p.logger.Debug("Outbox publisher claimed tasks", zap.Int("count", len(tasks)))

	for i, task := range tasks {
		select {
		case <-p.shutdownSignal:
			p.releaseTasks(ctx, tasks[i:])
			return errPublisherStopped
		case <-ctx.Done():
			p.releaseTasks(ctx, tasks[i:])
			return ctx.Err()
		default:
		}

		if err := p.processSingleTask(ctx, task); err != nil {
			p.logger.Error("Failed to process task", zap.Stringer("task_id", task.ID), zap.Error(err))
		}
	}
	return nil
}

// releaseTasks returns claimed but unsent tasks to CREATED with their attempt
// count untouched, so the next claim picks them up again.
func (p *Publisher) releaseTasks(ctx context.Context, tasks []*repository.OutboxTask) {
	wctx, cancel := p.statusContext(ctx)
	defer cancel()

	for _, task := range tasks {
		err := p.repo.UpdateTaskStatus(wctx, p.db, task.ID, repository.TaskStatusCreated, task.Attempts, task.LastError, nil)
		if err != nil {
			p.logger.Error("Failed to release unsent task", zap.Stringer("task_id", task.ID), zap.Error(err))
			continue
		}
		p.logger.Info("Released unsent task for next run", zap.Stringer("task_id", task.ID))
	}
}

// statusContext detaches status writes from ctx cancellation. A task that
// was claimed must always get its outcome recorded.
func (p *Publisher) statusContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
}

// claimTasks locks a batch of processable tasks and marks them PROCESSING.
func (p *Publisher) claimTasks(ctx context.Context) ([]*repository.OutboxTask, error) {
	tx, err := p.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for fetching tasks: %w", err)
	}

	tasks, err := p.repo.GetProcessableTasksTx(ctx, tx, p.config.BatchSize, p.config.MaxAttempts)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to get processable tasks: %w", err)
	}

	for _, task := range tasks {
		err := p.repo.UpdateTaskStatusTx(ctx, tx, task.ID, repository.TaskStatusProcessing, task.Attempts, task.LastError, nil)
		if err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("failed to mark task %s as PROCESSING: %w", task.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit claimed tasks: %w", err)
	}
	return tasks, nil
}

func (p *Publisher) processSingleTask(ctx context.Context, task *repository.OutboxTask) error {
	l := p.logger.With(zap.Stringer("task_id", task.ID), zap.Int("attempt", task.Attempts+1))

	err := p.producer.SendMessage(ctx, task.Topic, []byte(task.ID.String()), task.Payload)
	if err != nil && ctx.Err() != nil {
		l.Warn("Send interrupted by shutdown", zap.Error(err))
		p.releaseTasks(ctx, []*repository.OutboxTask{task})
		return err
	}

	wctx, cancel := p.statusContext(ctx)
	defer cancel()

	if err != nil {
		metrics.OutboxFailedTotal.Inc()
		attempts := task.Attempts + 1
		errMsg := err.Error()

		if attempts >= p.config.MaxAttempts {
			l.Error("Task reached max attempts, giving up", zap.Int("max_attempts", p.config.MaxAttempts), zap.Error(err))
		} else {
			l.Warn("Failed to send task, will retry", zap.Error(err))
		}

		updateErr := p.repo.UpdateTaskStatus(wctx, p.db, task.ID, repository.TaskStatusFailed, attempts, &errMsg, nil)
		if updateErr != nil {
			return fmt.Errorf("failed to update task status after send failure: %w", updateErr)
		}
		return err
	}

	metrics.OutboxPublishedTotal.Inc()
	now := p.timeNow().UTC()
	if err := p.repo.UpdateTaskStatus(wctx, p.db, task.ID, repository.TaskStatusDone, task.Attempts+1, nil, &now); err != nil {
		return fmt.Errorf("failed to update task status after successful send: %w", err)
	}
	l.Debug("Task published")
	return nil
}
