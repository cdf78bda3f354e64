package trend

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fleet-sentinel/internal/domain"
	"fleet-sentinel/internal/metrics"
)

// OverallEntityID keys the fleet-wide rollup row.
const OverallEntityID = "FLEET"

// Store is the persistence the aggregator needs. TrendTotal's second return
// distinguishes "no row for that date" from a zero-incident row.
type Store interface {
	AttendanceRecordsOn(ctx context.Context, date time.Time) ([]domain.AttendanceRecord, error)
	TrendTotal(ctx context.Context, date time.Time, typ domain.TrendType, entityID string) (int, bool, error)
	UpsertTrend(ctx context.Context, t domain.AttendanceTrend) error
}

// Aggregator recomputes attendance trend rollups for a date. Safe to re-run:
// every write is an upsert on (date, type, entity).
type Aggregator struct {
	store  Store
	logger *zap.Logger
}

func NewAggregator(store Store, logger *zap.Logger) *Aggregator {
	return &Aggregator{store: store, logger: logger}
}

type counts struct {
	lateStart int
	earlyEnd  int
	notOnJob  int
}

func (c *counts) add(status domain.StatusType) {
	switch status {
	case domain.StatusLateStart:
		c.lateStart++
	case domain.StatusEarlyEnd:
		c.earlyEnd++
	case domain.StatusNotOnJob:
		c.notOnJob++
	}
}

func (c *counts) total() int {
	return c.lateStart + c.earlyEnd + c.notOnJob
}

// UpdateTrends recomputes every per-driver, per-job-site, per-department and
// fleet-wide trend row for reportDate.
func (a *Aggregator) UpdateTrends(ctx context.Context, reportDate time.Time) error {
	reportDate = midnight(reportDate)

	records, err := a.store.AttendanceRecordsOn(ctx, reportDate)
	if err != nil {
		return fmt.Errorf("load attendance records for %s: %w", reportDate.Format("2006-01-02"), err)
	}

	drivers := map[string]*counts{}
	jobSites := map[string]*counts{}
	departments := map[string]*counts{}
	overall := &counts{}

	for _, rec := range records {
		bump(drivers, rec.DriverID, rec.Status)
		bump(jobSites, rec.ExpectedJobSite, rec.Status)
		bump(departments, rec.Department, rec.Status)
		overall.add(rec.Status)
	}

	for id, c := range drivers {
		if err := a.upsert(ctx, reportDate, domain.TrendDriver, id, c, true); err != nil {
			return err
		}
	}
	for id, c := range jobSites {
		if err := a.upsert(ctx, reportDate, domain.TrendJobSite, id, c, false); err != nil {
			return err
		}
	}
	for id, c := range departments {
		if err := a.upsert(ctx, reportDate, domain.TrendDepartment, id, c, false); err != nil {
			return err
		}
	}
	return a.upsert(ctx, reportDate, domain.TrendOverall, OverallEntityID, overall, false)
}

func bump(buckets map[string]*counts, key string, status domain.StatusType) {
	if key == "" {
		return
	}
	c, ok := buckets[key]
	if !ok {
		c = &counts{}
		buckets[key] = c
	}
	c.add(status)
}

func (a *Aggregator) upsert(ctx context.Context, date time.Time, typ domain.TrendType, entityID string, c *counts, checkRecurring bool) error {
	t := domain.AttendanceTrend{
		TrendDate:      date,
		Type:           typ,
		EntityID:       entityID,
		LateStartCount: c.lateStart,
		EarlyEndCount:  c.earlyEnd,
		NotOnJobCount:  c.notOnJob,
		TotalIncidents: c.total(),
	}

	t.WeekOverWeekChange = a.periodChange(ctx, date, typ, entityID, c.total(), 7)
	t.MonthOverMonthChange = a.periodChange(ctx, date, typ, entityID, c.total(), 30)

	if checkRecurring && c.total() > 0 {
		t.RecurringPattern, t.RecurringDescription = a.recurring(ctx, date, typ, entityID)
	}

	if err := a.store.UpsertTrend(ctx, t); err != nil {
		return fmt.Errorf("upsert %s trend for %s: %w", typ, entityID, err)
	}
	metrics.TrendRowsUpserted.Add(1)
	return nil
}

// periodChange computes fractional change against the same entity's total N
// days earlier. Nil when there is no baseline: a driver with incidents today
// and no recorded prior total has no defined change, not 0%.
func (a *Aggregator) periodChange(ctx context.Context, date time.Time, typ domain.TrendType, entityID string, total, daysBack int) *float64 {
	prior, found, err := a.store.TrendTotal(ctx, date.AddDate(0, 0, -daysBack), typ, entityID)
	if err != nil {
		a.logger.Warn("trend baseline lookup failed",
			zap.String("trend_type", string(typ)),
			zap.String("entity_id", entityID),
			zap.Int("days_back", daysBack),
			zap.Error(err))
		return nil
	}
	if !found || prior == 0 {
		return nil
	}
	change := float64(total-prior) / float64(prior)
	return &change
}

// recurring reports whether at least 3 of the 4 preceding same-weekday
// dates also had incidents for this entity.
func (a *Aggregator) recurring(ctx context.Context, date time.Time, typ domain.TrendType, entityID string) (bool, string) {
	hits := 0
	for week := 1; week <= 4; week++ {
		total, found, err := a.store.TrendTotal(ctx, date.AddDate(0, 0, -7*week), typ, entityID)
		if err != nil {
			a.logger.Warn("recurring-pattern lookup failed",
				zap.String("entity_id", entityID), zap.Error(err))
			continue
		}
		if found && total > 0 {
			hits++
		}
	}
	if hits < 3 {
		return false, ""
	}
	return true, fmt.Sprintf("recurring %s incidents (%d of the previous 4 weeks)", date.Weekday(), hits)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
