package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// MaxRetries is the number of failed polls after which an event is
	// marked FAILED.
	MaxRetries int
	// RetryDelay is the base delay before a failed event is polled again.
	RetryDelay time.Duration
	// PublishAttempts bounds the in-poll retries of one publish.
	PublishAttempts int
	// PublishBackoff is the first in-poll retry interval.
	PublishBackoff time.Duration
	// Retention is how long processed events are kept. Zero keeps them.
	Retention     time.Duration
	PurgeInterval time.Duration
}

type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 5
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	if config.PublishAttempts <= 0 {
		config.PublishAttempts = 3
	}
	if config.PublishBackoff <= 0 {
		config.PublishBackoff = 200 * time.Millisecond
	}
	if config.PurgeInterval <= 0 {
		config.PurgeInterval = time.Hour
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.New("outbox")
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  log,
		metrics: m,
		now:     time.Now,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()
	purge := time.NewTicker(p.config.PurgeInterval)
	defer purge.Stop()

	p.logger.Info("Starting outbox processor",
		"batch_size", p.config.BatchSize,
		"poll_interval", p.config.PollInterval.String())

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		case <-purge.C:
			if err := p.Purge(ctx); err != nil {
				p.logger.Error(err, "Failed to purge processed events")
			}
		}
	}
}

// ProcessBatch claims up to BatchSize due events, publishes them and records
// each outcome in the same transaction. It returns the number published.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	tx, err := p.repo.BeginTx(ctx)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("begin_tx", "error").Inc()
		return 0, err
	}
	defer tx.Rollback()

	events, err := p.repo.GetPendingEventsWithLock(ctx, tx, p.config.BatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "error").Inc()
		return 0, fmt.Errorf("failed to get pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "success").Inc()

	// A failed statement aborts the transaction, so the batch stops at the
	// first status update error instead of publishing events it cannot record.
	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			if err := p.recordFailure(ctx, tx, event, err); err != nil {
				return 0, err
			}
			continue
		}
		if err := p.repo.UpdateStatusTx(ctx, tx, event.ID, model.OutboxStatusProcessed, nil, nil); err != nil {
			p.metrics.DatabaseOperations.WithLabelValues("update_status", "error").Inc()
			return 0, fmt.Errorf("failed to mark event %s processed: %w", event.ID, err)
		}
		published++
		p.metrics.OutboxEventsProcessed.Inc()
	}

	if err := tx.Commit(); err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("commit", "error").Inc()
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return published, nil
}

func (p *OutboxProcessor) publish(ctx context.Context, event *model.OutboxEvent) error {
	msg := messaging.Message{
		ID:      event.ID.String(),
		Type:    event.EventType,
		Payload: event.Payload,
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.config.PublishBackoff
	policy := backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(p.config.PublishAttempts-1)),
		ctx,
	)

	return backoff.RetryNotify(func() error {
		return p.broker.Publish(ctx, event.EventType, msg)
	}, policy, func(err error, wait time.Duration) {
		p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
		p.logger.Warn("Retry publishing event",
			"event_id", event.ID.String(),
			"wait", wait.String(),
			"error", err.Error())
	})
}

// recordFailure schedules the next poll with exponential delay, or gives up
// once the event has failed MaxRetries polls.
func (p *OutboxProcessor) recordFailure(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent, cause error) error {
	p.metrics.OutboxEventsFailed.Inc()
	errMsg := cause.Error()
	attempt := event.RetryCount + 1

	status := model.OutboxStatusPending
	var retryAt *time.Time
	if attempt >= p.config.MaxRetries {
		status = model.OutboxStatusFailed
		p.logger.Error(cause, "Giving up on event",
			"event_id", event.ID.String(),
			"event_type", event.EventType,
			"attempts", attempt)
	} else {
		at := p.now().Add(retryDelay(p.config.RetryDelay, attempt))
		retryAt = &at
		p.logger.Warn("Event publish failed, will retry",
			"event_id", event.ID.String(),
			"event_type", event.EventType,
			"retry_at", at.Format(time.RFC3339))
	}

	if err := p.repo.UpdateStatusTx(ctx, tx, event.ID, status, &errMsg, retryAt); err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("update_status", "error").Inc()
		return fmt.Errorf("failed to record failure of event %s: %w", event.ID, err)
	}
	return nil
}

const maxRetryDelay = 24 * time.Hour

// retryDelay doubles base for every failed poll after the first, capped at
// maxRetryDelay.
func retryDelay(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		if delay >= maxRetryDelay/2 {
			return maxRetryDelay
		}
		delay *= 2
	}
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

// Purge deletes processed events older than Retention.
func (p *OutboxProcessor) Purge(ctx context.Context) error {
	if p.config.Retention <= 0 {
		return nil
	}
	n, err := p.repo.DeleteProcessedBefore(ctx, p.now().Add(-p.config.Retention))
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("purge", "error").Inc()
		return err
	}
	if n > 0 {
		p.logger.Info("Purged processed events", "count", n)
	}
	return nil
}
