package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"fleet-sentinel/internal/domain"
	"fleet-sentinel/internal/metrics"
	"fleet-sentinel/internal/scan"
	"fleet-sentinel/internal/store"
)

// ScanRunner periodically runs the anomaly scanner over the live fleet
// snapshot, dedups per (asset, type), persists alerts, and publishes them on
// the fleet alert channel for websocket subscribers.
type ScanRunner struct {
	scanner  *scan.Scanner
	db       *store.PostgresStore
	redis    *store.RedisStore
	fleetID  string
	interval time.Duration
	logger   *zap.Logger
}

func NewScanRunner(
	scanner *scan.Scanner,
	db *store.PostgresStore,
	redis *store.RedisStore,
	fleetID string,
	interval time.Duration,
	logger *zap.Logger,
) *ScanRunner {
	return &ScanRunner{
		scanner:  scanner,
		db:       db,
		redis:    redis,
		fleetID:  fleetID,
		interval: interval,
		logger:   logger,
	}
}

func (r *ScanRunner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce is the on-demand entry used by the HTTP scan endpoint.
func (r *ScanRunner) RunOnce(ctx context.Context) (domain.ScanReport, error) {
	assets, err := r.redis.FleetAssets(ctx, r.fleetID)
	if err != nil {
		return domain.ScanReport{}, err
	}
	report := r.scanner.Scan(assets)
	metrics.AssetsScanned.Add(int64(report.Summary.AssetsScanned))
	r.emit(ctx, &report)
	return report, nil
}

func (r *ScanRunner) runOnce(ctx context.Context) {
	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Warn("scheduled scan failed", zap.Error(err))
	}
}

func (r *ScanRunner) emit(ctx context.Context, report *domain.ScanReport) {
	for _, list := range [][]domain.Alert{
		report.GeofenceViolations,
		report.OffHoursMovement,
		report.OrphanedEquipment,
		report.LongOffline,
	} {
		for _, alert := range list {
			r.emitAlert(ctx, alert)
		}
	}
}

func (r *ScanRunner) emitAlert(ctx context.Context, alert domain.Alert) {
	isDuplicate, err := r.redis.CheckAlertDedup(ctx, alert.AssetID, alert.Type)
	if err != nil {
		r.logger.Warn("alert dedup check failed",
			zap.String("asset_id", alert.AssetID), zap.Error(err))
		return
	}
	if isDuplicate {
		return
	}

	if err := r.db.InsertAlert(ctx, r.fleetID, alert); err != nil {
		r.logger.Warn("alert insert failed",
			zap.String("asset_id", alert.AssetID), zap.Error(err))
		return
	}
	metrics.AlertsRaised.Add(1)

	if err := r.redis.SetAlertDedup(ctx, alert.AssetID, alert.Type); err != nil {
		r.logger.Warn("alert dedup set failed",
			zap.String("asset_id", alert.AssetID), zap.Error(err))
	}

	payload, _ := json.Marshal(alert)
	if err := r.redis.PublishAlert(ctx, r.fleetID, payload); err != nil {
		r.logger.Warn("alert publish failed",
			zap.String("asset_id", alert.AssetID), zap.Error(err))
	}
}
