package attendance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fleet-sentinel/internal/domain"
	"fleet-sentinel/internal/geo"
)

var reportDate = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func testClassifier() *Classifier {
	resolver := geo.NewResolver([]domain.Zone{
		{ID: "zone_site", CenterLat: 40.0, CenterLng: -105.0, RadiusMiles: 10},
	})
	return NewClassifier(resolver, DefaultThresholds, zap.NewNop())
}

func driverDay(events ...domain.AttendanceEvent) DaySheet {
	return DaySheet{
		AssetID: "EXC-1",
		Driver:  &domain.Driver{ID: "d1", Name: "Dave Ortiz", Department: "earthworks"},
		JobSite: &domain.JobSite{ID: "js1", Zone: "zone_site"},
		Date:    reportDate,
		Events:  events,
	}
}

func onSite(t time.Time, typ domain.EventType) domain.AttendanceEvent {
	return domain.AttendanceEvent{Timestamp: t, Type: typ, Latitude: 40.0, Longitude: -105.0, Location: "Site 4"}
}

func statuses(result DayResult) []domain.StatusType {
	out := make([]domain.StatusType, len(result.Records))
	for i, r := range result.Records {
		out[i] = r.Status
	}
	return out
}

func TestClassifier_LateStart(t *testing.T) {
	c := testClassifier()

	t.Run("key-on at 07:45 against 07:30 is 15 minutes late", func(t *testing.T) {
		result, ok := c.ClassifyDay(driverDay(
			onSite(at(7, 45), domain.EventKeyOn),
			onSite(at(16, 45), domain.EventKeyOff),
		))
		require.True(t, ok)
		require.Len(t, result.Records, 1)
		rec := result.Records[0]
		assert.Equal(t, domain.StatusLateStart, rec.Status)
		assert.Equal(t, 15, rec.MinutesLate)
		assert.Equal(t, "d1", rec.DriverID)
	})

	t.Run("on-time key-on produces no records", func(t *testing.T) {
		result, ok := c.ClassifyDay(driverDay(
			onSite(at(7, 15), domain.EventKeyOn),
			onSite(at(16, 45), domain.EventKeyOff),
		))
		require.True(t, ok)
		assert.Empty(t, result.Records)
	})

	t.Run("key-on exactly at threshold is on time", func(t *testing.T) {
		result, ok := c.ClassifyDay(driverDay(
			onSite(at(7, 30), domain.EventKeyOn),
			onSite(at(16, 30), domain.EventKeyOff),
		))
		require.True(t, ok)
		assert.Empty(t, result.Records)
	})
}

func TestClassifier_EarlyEnd(t *testing.T) {
	c := testClassifier()

	result, ok := c.ClassifyDay(driverDay(
		onSite(at(7, 0), domain.EventKeyOn),
		onSite(at(15, 30), domain.EventKeyOff),
	))
	require.True(t, ok)
	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Equal(t, domain.StatusEarlyEnd, rec.Status)
	assert.Equal(t, 60, rec.MinutesEarly)
}

func TestClassifier_MultipleFlags(t *testing.T) {
	c := testClassifier()

	// Late start at the office: two independent flags on the same day.
	result, ok := c.ClassifyDay(driverDay(
		domain.AttendanceEvent{Timestamp: at(8, 0), Type: domain.EventKeyOn, Location: "Main Office"},
		domain.AttendanceEvent{Timestamp: at(16, 45), Type: domain.EventKeyOff, Location: "Main Office"},
	))
	require.True(t, ok)
	assert.ElementsMatch(t,
		[]domain.StatusType{domain.StatusLateStart, domain.StatusNotOnJob},
		statuses(result))
}

func TestClassifier_NotOnJob(t *testing.T) {
	c := testClassifier()

	t.Run("office location without a fix is not on job", func(t *testing.T) {
		result, ok := c.ClassifyDay(driverDay(
			domain.AttendanceEvent{Timestamp: at(7, 0), Type: domain.EventKeyOn, Location: "North Yard"},
			domain.AttendanceEvent{Timestamp: at(16, 45), Type: domain.EventKeyOff, Location: "North Yard"},
		))
		require.True(t, ok)
		assert.Equal(t, []domain.StatusType{domain.StatusNotOnJob}, statuses(result))
	})

	t.Run("empty location without a fix is not on job", func(t *testing.T) {
		result, ok := c.ClassifyDay(driverDay(
			domain.AttendanceEvent{Timestamp: at(7, 0), Type: domain.EventKeyOn},
			domain.AttendanceEvent{Timestamp: at(16, 45), Type: domain.EventKeyOff},
		))
		require.True(t, ok)
		assert.Equal(t, []domain.StatusType{domain.StatusNotOnJob}, statuses(result))
	})

	t.Run("coordinates beat the location string", func(t *testing.T) {
		// GPS puts the asset on site even though the log says office.
		result, ok := c.ClassifyDay(driverDay(
			domain.AttendanceEvent{Timestamp: at(7, 0), Type: domain.EventKeyOn,
				Location: "Office?", Latitude: 40.0, Longitude: -105.0},
			onSite(at(16, 45), domain.EventKeyOff),
		))
		require.True(t, ok)
		assert.Empty(t, result.Records)
	})

	t.Run("coordinates off site flag even with a clean location string", func(t *testing.T) {
		result, ok := c.ClassifyDay(driverDay(
			domain.AttendanceEvent{Timestamp: at(7, 0), Type: domain.EventKeyOn,
				Location: "Site 4", Latitude: 10.0, Longitude: 10.0},
			onSite(at(16, 45), domain.EventKeyOff),
		))
		require.True(t, ok)
		assert.Equal(t, []domain.StatusType{domain.StatusNotOnJob}, statuses(result))
	})
}

func TestClassifier_DriverResolution(t *testing.T) {
	c := testClassifier()

	t.Run("driver name parsed from asset label", func(t *testing.T) {
		day := DaySheet{
			AssetID:    "TRK-2",
			AssetLabel: "Water Truck 210 (Maria Chen)",
			Date:       reportDate,
			Events:     []domain.AttendanceEvent{onSite(at(7, 45), domain.EventKeyOn)},
		}
		result, ok := c.ClassifyDay(day)
		require.True(t, ok)
		assert.Equal(t, "Maria Chen", result.DriverName)
	})

	for _, vacant := range []string{"open", "Vacant", "UNASSIGNED", ""} {
		t.Run(fmt.Sprintf("label %q is skipped", vacant), func(t *testing.T) {
			day := DaySheet{
				AssetID:    "TRK-2",
				AssetLabel: fmt.Sprintf("Water Truck 210 (%s)", vacant),
				Date:       reportDate,
				Events:     []domain.AttendanceEvent{onSite(at(7, 45), domain.EventKeyOn)},
			}
			_, ok := c.ClassifyDay(day)
			assert.False(t, ok)
		})
	}

	t.Run("label without a driver suffix is skipped", func(t *testing.T) {
		day := DaySheet{
			AssetID:    "GEN-3",
			AssetLabel: "Generator 310",
			Date:       reportDate,
			Events:     []domain.AttendanceEvent{onSite(at(7, 45), domain.EventKeyOn)},
		}
		_, ok := c.ClassifyDay(day)
		assert.False(t, ok)
	})
}

func TestClassifier_BadEvents(t *testing.T) {
	c := testClassifier()

	t.Run("zero timestamps are skipped, day under-classifies", func(t *testing.T) {
		result, ok := c.ClassifyDay(driverDay(
			domain.AttendanceEvent{Type: domain.EventKeyOn, Location: "Site 4"},
		))
		require.True(t, ok)
		assert.Empty(t, result.Records)
	})

	t.Run("no events at all still classifies without flags", func(t *testing.T) {
		result, ok := c.ClassifyDay(driverDay())
		require.True(t, ok)
		assert.Empty(t, result.Records)
	})
}

type fakeRecordStore struct {
	records map[string]domain.AttendanceRecord
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: map[string]domain.AttendanceRecord{}}
}

func (f *fakeRecordStore) UpsertAttendanceRecord(_ context.Context, rec domain.AttendanceRecord) error {
	key := fmt.Sprintf("%s|%s|%s", rec.DriverID, rec.ReportDate.Format("2006-01-02"), rec.Status)
	f.records[key] = rec
	return nil
}

func TestClassifier_RecordUpsert(t *testing.T) {
	c := testClassifier()
	store := newFakeRecordStore()

	day := driverDay(
		onSite(at(7, 45), domain.EventKeyOn),
		onSite(at(16, 45), domain.EventKeyOff),
	)

	_, ok := c.Record(context.Background(), store, day)
	require.True(t, ok)
	_, ok = c.Record(context.Background(), store, day)
	require.True(t, ok)

	// One row per (driver, date, status), no duplicates on re-run.
	assert.Len(t, store.records, 1)
}

func TestThresholds(t *testing.T) {
	// Both historical threshold sets stay available until product picks one.
	assert.Equal(t, "07:30", DefaultThresholds.ExpectedStart)
	assert.Equal(t, "16:30", DefaultThresholds.ExpectedEnd)
	assert.Equal(t, "07:00", LegacyThresholds.ExpectedStart)
	assert.Equal(t, "17:00", LegacyThresholds.ExpectedEnd)
}
