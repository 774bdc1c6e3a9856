// Package pipeline relays playback updates from the replay controller to a
// downstream sink in batches.
package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/flood-replay-service/internal/domain"
	"github.com/couchcryptid/flood-replay-service/internal/observability"
	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Source publishes playback updates. *replay.Controller satisfies it.
type Source interface {
	Subscribe(buffer int) (<-chan domain.PlaybackUpdate, func())
}

// BatchLoader writes multiple playback updates to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, updates []domain.PlaybackUpdate) error
}

// Relay forwards controller updates to a BatchLoader.
type Relay struct {
	source    Source
	loader    BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int
}

// New creates a Relay that writes at most batchSize updates per LoadBatch.
func New(src Source, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Relay {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Relay{
		source:    src,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// Ready reports whether at least one batch has been delivered.
func (r *Relay) Ready() bool {
	return r.ready.Load()
}

// Run relays updates until ctx is cancelled or the source closes the
// subscription.
func (r *Relay) Run(ctx context.Context) error {
	// Room for a few batches so a brief sink stall does not drop updates.
	updates, unsubscribe := r.source.Subscribe(r.batchSize * 4)
	defer unsubscribe()

	r.logger.Info("relay started", "batch_size", r.batchSize)
	r.metrics.RelayRunning.Set(1)
	defer r.metrics.RelayRunning.Set(0)

	for {
		batch, open := r.nextBatch(ctx, updates)
		if len(batch) > 0 && !r.deliver(ctx, batch) {
			r.logger.Info("relay stopping", "reason", ctx.Err(), "undelivered", len(batch))
			return nil
		}
		if !open {
			r.logger.Info("relay stopping", "reason", "source closed")
			return nil
		}
		if ctx.Err() != nil {
			r.logger.Info("relay stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// nextBatch blocks for the first update and then takes whatever else is
// already queued, up to batchSize. open is false once the source closed
// the channel.
func (r *Relay) nextBatch(ctx context.Context, updates <-chan domain.PlaybackUpdate) (batch []domain.PlaybackUpdate, open bool) {
	select {
	case <-ctx.Done():
		return nil, true
	case u, ok := <-updates:
		if !ok {
			return nil, false
		}
		batch = append(make([]domain.PlaybackUpdate, 0, r.batchSize), u)
	}

	for len(batch) < r.batchSize {
		select {
		case u, ok := <-updates:
			if !ok {
				return batch, false
			}
			batch = append(batch, u)
		default:
			return batch, true
		}
	}
	return batch, true
}

// deliver retries LoadBatch with exponential backoff until it succeeds.
// Returns false if ctx was cancelled first.
func (r *Relay) deliver(ctx context.Context, batch []domain.PlaybackUpdate) bool {
	backoff := initialBackoff
	for {
		err := r.loader.LoadBatch(ctx, batch)
		if err == nil {
			r.metrics.RelayProduced.Add(float64(len(batch)))
			r.metrics.RelayBatchSize.Observe(float64(len(batch)))
			r.ready.Store(true)
			return true
		}

		r.metrics.RelayErrors.Inc()
		if ctx.Err() != nil {
			return false
		}
		r.logger.Error("relay load batch failed", "error", err, "batch_size", len(batch), "retry_in", backoff)
		if !sharedretry.SleepWithContext(ctx, backoff) {
			return false
		}
		backoff = sharedretry.NextBackoff(backoff, maxBackoff)
	}
}
