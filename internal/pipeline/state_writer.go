package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fleet-sentinel/internal/domain"
	"fleet-sentinel/internal/store"
)

type StateWriter struct {
	ch     <-chan *domain.TelemetryMessage
	redis  *store.RedisStore
	logger *zap.Logger
}

func NewStateWriter(
	ch <-chan *domain.TelemetryMessage,
	redis *store.RedisStore,
	logger *zap.Logger,
) *StateWriter {
	return &StateWriter{ch: ch, redis: redis, logger: logger}
}

func (w *StateWriter) Run(ctx context.Context) {
	batch := make([]*domain.TelemetryMessage, 0, 100) // Redis is fast, fixed batch fine
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-w.ch:
			if !ok {
				w.flushBatch(ctx, batch)
				return
			}
			batch = append(batch, msg)
			if len(batch) >= 100 {
				w.flushBatch(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flushBatch(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			w.flushBatch(ctx, batch)
			return
		}
	}
}

func (w *StateWriter) flushBatch(ctx context.Context, batch []*domain.TelemetryMessage) {
	for _, msg := range batch {
		if err := w.redis.PipelineStateUpdate(ctx, msg); err != nil {
			w.logger.Warn("redis state update failed",
				zap.String("asset_id", msg.AssetID), zap.Error(err))
		}
	}
}
