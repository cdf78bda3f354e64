package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fleet-sentinel/internal/domain"
	"fleet-sentinel/internal/metrics"
	"fleet-sentinel/internal/store"
)

type DBWriter struct {
	ch        <-chan *domain.TelemetryMessage
	db        *store.PostgresStore
	batchSize int
	flushMS   int
	logger    *zap.Logger
}

func NewDBWriter(
	ch <-chan *domain.TelemetryMessage,
	db *store.PostgresStore,
	batchSize int,
	flushMS int,
	logger *zap.Logger,
) *DBWriter {
	return &DBWriter{
		ch:        ch,
		db:        db,
		batchSize: batchSize,
		flushMS:   flushMS,
		logger:    logger,
	}
}

func (w *DBWriter) Run(ctx context.Context) {
	batch := make([]*domain.TelemetryMessage, 0, w.batchSize)
	ticker := time.NewTicker(time.Duration(w.flushMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-w.ch:
			if !ok {
				if len(batch) > 0 {
					w.flush(ctx, batch)
				}
				return
			}
			batch = append(batch, msg)
			if len(batch) >= w.batchSize {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			if len(batch) > 0 {
				w.flush(ctx, batch)
			}
			return
		}
	}
}

func (w *DBWriter) flush(ctx context.Context, batch []*domain.TelemetryMessage) {
	err := w.db.BatchInsertTelemetry(ctx, batch)
	if err != nil {
		w.logger.Warn("db write failed, retrying once",
			zap.Int("batch", len(batch)), zap.Error(err))
		time.Sleep(500 * time.Millisecond)
		err = w.db.BatchInsertTelemetry(ctx, batch)
		if err != nil {
			w.logger.Error("db write permanently failed",
				zap.Int("batch", len(batch)), zap.Error(err))
			metrics.DBWriteFailures.Add(int64(len(batch)))
			return
		}
	}
	metrics.DBWriteSuccess.Add(int64(len(batch)))
}
