package trend

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fleet-sentinel/internal/domain"
)

// 2026-03-02 is a Monday.
var reportDate = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

type fakeStore struct {
	records map[string][]domain.AttendanceRecord
	trends  map[string]domain.AttendanceTrend
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: map[string][]domain.AttendanceRecord{},
		trends:  map[string]domain.AttendanceTrend{},
	}
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

func trendKey(date time.Time, typ domain.TrendType, entityID string) string {
	return fmt.Sprintf("%s|%s|%s", dateKey(date), typ, entityID)
}

func (f *fakeStore) AttendanceRecordsOn(_ context.Context, date time.Time) ([]domain.AttendanceRecord, error) {
	return f.records[dateKey(date)], nil
}

func (f *fakeStore) TrendTotal(_ context.Context, date time.Time, typ domain.TrendType, entityID string) (int, bool, error) {
	t, ok := f.trends[trendKey(date, typ, entityID)]
	if !ok {
		return 0, false, nil
	}
	return t.TotalIncidents, true, nil
}

func (f *fakeStore) UpsertTrend(_ context.Context, t domain.AttendanceTrend) error {
	f.trends[trendKey(t.TrendDate, t.Type, t.EntityID)] = t
	return nil
}

func (f *fakeStore) addRecord(date time.Time, driverID, jobSite, department string, status domain.StatusType) {
	f.records[dateKey(date)] = append(f.records[dateKey(date)], domain.AttendanceRecord{
		DriverID:        driverID,
		Department:      department,
		ReportDate:      date,
		Status:          status,
		ExpectedJobSite: jobSite,
	})
}

func (f *fakeStore) seedTrend(date time.Time, typ domain.TrendType, entityID string, total int) {
	f.trends[trendKey(date, typ, entityID)] = domain.AttendanceTrend{
		TrendDate: date, Type: typ, EntityID: entityID, TotalIncidents: total,
	}
}

func seedToday(f *fakeStore) {
	f.addRecord(reportDate, "d1", "js1", "earthworks", domain.StatusLateStart)
	f.addRecord(reportDate, "d1", "js1", "earthworks", domain.StatusEarlyEnd)
	f.addRecord(reportDate, "d1", "js1", "earthworks", domain.StatusNotOnJob)
	f.addRecord(reportDate, "d2", "js2", "paving", domain.StatusLateStart)
}

func TestAggregator_UpdateTrends(t *testing.T) {
	store := newFakeStore()
	seedToday(store)
	agg := NewAggregator(store, zap.NewNop())

	require.NoError(t, agg.UpdateTrends(context.Background(), reportDate))

	t.Run("per-driver counts", func(t *testing.T) {
		d1 := store.trends[trendKey(reportDate, domain.TrendDriver, "d1")]
		assert.Equal(t, 1, d1.LateStartCount)
		assert.Equal(t, 1, d1.EarlyEndCount)
		assert.Equal(t, 1, d1.NotOnJobCount)
		assert.Equal(t, 3, d1.TotalIncidents)

		d2 := store.trends[trendKey(reportDate, domain.TrendDriver, "d2")]
		assert.Equal(t, 1, d2.TotalIncidents)
	})

	t.Run("per-job-site and per-department rows", func(t *testing.T) {
		js1 := store.trends[trendKey(reportDate, domain.TrendJobSite, "js1")]
		assert.Equal(t, 3, js1.TotalIncidents)

		paving := store.trends[trendKey(reportDate, domain.TrendDepartment, "paving")]
		assert.Equal(t, 1, paving.TotalIncidents)
	})

	t.Run("fleet-wide rollup", func(t *testing.T) {
		overall := store.trends[trendKey(reportDate, domain.TrendOverall, OverallEntityID)]
		assert.Equal(t, 4, overall.TotalIncidents)
		assert.Equal(t, 2, overall.LateStartCount)
	})

	t.Run("no baseline means nil change, not zero", func(t *testing.T) {
		d1 := store.trends[trendKey(reportDate, domain.TrendDriver, "d1")]
		assert.Nil(t, d1.WeekOverWeekChange)
		assert.Nil(t, d1.MonthOverMonthChange)
	})
}

func TestAggregator_PeriodChange(t *testing.T) {
	store := newFakeStore()
	seedToday(store)
	store.seedTrend(reportDate.AddDate(0, 0, -7), domain.TrendDriver, "d1", 2)
	store.seedTrend(reportDate.AddDate(0, 0, -30), domain.TrendDriver, "d1", 6)
	agg := NewAggregator(store, zap.NewNop())

	require.NoError(t, agg.UpdateTrends(context.Background(), reportDate))

	d1 := store.trends[trendKey(reportDate, domain.TrendDriver, "d1")]

	t.Run("week over week against a real baseline", func(t *testing.T) {
		require.NotNil(t, d1.WeekOverWeekChange)
		assert.InDelta(t, 0.5, *d1.WeekOverWeekChange, 1e-9) // 2 → 3
	})

	t.Run("month over month against a real baseline", func(t *testing.T) {
		require.NotNil(t, d1.MonthOverMonthChange)
		assert.InDelta(t, -0.5, *d1.MonthOverMonthChange, 1e-9) // 6 → 3
	})

	t.Run("zero baseline row still yields nil", func(t *testing.T) {
		store.seedTrend(reportDate.AddDate(0, 0, -7), domain.TrendDriver, "d2", 0)
		require.NoError(t, agg.UpdateTrends(context.Background(), reportDate))
		d2 := store.trends[trendKey(reportDate, domain.TrendDriver, "d2")]
		assert.Nil(t, d2.WeekOverWeekChange)
	})
}

func TestAggregator_Recurring(t *testing.T) {
	t.Run("three of four prior Mondays flags the pattern", func(t *testing.T) {
		store := newFakeStore()
		seedToday(store)
		for _, weeks := range []int{1, 2, 3} {
			store.seedTrend(reportDate.AddDate(0, 0, -7*weeks), domain.TrendDriver, "d1", 2)
		}
		agg := NewAggregator(store, zap.NewNop())
		require.NoError(t, agg.UpdateTrends(context.Background(), reportDate))

		d1 := store.trends[trendKey(reportDate, domain.TrendDriver, "d1")]
		assert.True(t, d1.RecurringPattern)
		assert.Contains(t, d1.RecurringDescription, "Monday")
	})

	t.Run("two of four is not a pattern", func(t *testing.T) {
		store := newFakeStore()
		seedToday(store)
		store.seedTrend(reportDate.AddDate(0, 0, -7), domain.TrendDriver, "d1", 2)
		store.seedTrend(reportDate.AddDate(0, 0, -14), domain.TrendDriver, "d1", 1)
		agg := NewAggregator(store, zap.NewNop())
		require.NoError(t, agg.UpdateTrends(context.Background(), reportDate))

		d1 := store.trends[trendKey(reportDate, domain.TrendDriver, "d1")]
		assert.False(t, d1.RecurringPattern)
	})

	t.Run("only driver trends carry the flag", func(t *testing.T) {
		store := newFakeStore()
		seedToday(store)
		for _, weeks := range []int{1, 2, 3, 4} {
			store.seedTrend(reportDate.AddDate(0, 0, -7*weeks), domain.TrendJobSite, "js1", 2)
		}
		agg := NewAggregator(store, zap.NewNop())
		require.NoError(t, agg.UpdateTrends(context.Background(), reportDate))

		js1 := store.trends[trendKey(reportDate, domain.TrendJobSite, "js1")]
		assert.False(t, js1.RecurringPattern)
	})
}

func TestAggregator_Idempotent(t *testing.T) {
	store := newFakeStore()
	seedToday(store)
	agg := NewAggregator(store, zap.NewNop())

	require.NoError(t, agg.UpdateTrends(context.Background(), reportDate))
	first := make(map[string]domain.AttendanceTrend, len(store.trends))
	for k, v := range store.trends {
		first[k] = v
	}

	require.NoError(t, agg.UpdateTrends(context.Background(), reportDate))
	assert.Equal(t, first, store.trends)
}

func TestAggregator_EmptyDay(t *testing.T) {
	store := newFakeStore()
	agg := NewAggregator(store, zap.NewNop())

	require.NoError(t, agg.UpdateTrends(context.Background(), reportDate))

	// Only the fleet-wide zero row is written.
	require.Len(t, store.trends, 1)
	overall := store.trends[trendKey(reportDate, domain.TrendOverall, OverallEntityID)]
	assert.Equal(t, 0, overall.TotalIncidents)
}
