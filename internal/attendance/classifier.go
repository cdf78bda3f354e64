package attendance

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"fleet-sentinel/internal/domain"
	"fleet-sentinel/internal/geo"
)

// Thresholds are the expected shift boundaries, "HH:MM". Two generations of
// the attendance rollout ran with different values and product has not
// reconciled them, so both are exported and the caller must pick one.
type Thresholds struct {
	ExpectedStart string
	ExpectedEnd   string
}

var (
	DefaultThresholds = Thresholds{ExpectedStart: "07:30", ExpectedEnd: "16:30"}
	LegacyThresholds  = Thresholds{ExpectedStart: "07:00", ExpectedEnd: "17:00"}
)

// DaySheet is one asset's event log for one calendar day, with whatever
// identity data the importer could attach.
type DaySheet struct {
	AssetID    string
	AssetLabel string
	Driver     *domain.Driver
	JobSite    *domain.JobSite
	Date       time.Time
	Events     []domain.AttendanceEvent
}

// DayResult is the classification outcome for one driver-day. Records holds
// one entry per flagged status; an empty slice means on time.
type DayResult struct {
	DriverID   string
	DriverName string
	Department string
	Date       time.Time
	Records    []domain.AttendanceRecord
}

// RecordStore persists classification results with upsert semantics on
// (driver, date, status type).
type RecordStore interface {
	UpsertAttendanceRecord(ctx context.Context, rec domain.AttendanceRecord) error
}

// Classifier turns a day's ignition/location events into attendance
// exception records. Status dimensions are independent: the same day can be
// both a late start and not-on-job.
type Classifier struct {
	resolver   *geo.Resolver
	thresholds Thresholds
	logger     *zap.Logger
}

func NewClassifier(resolver *geo.Resolver, thresholds Thresholds, logger *zap.Logger) *Classifier {
	if thresholds.ExpectedStart == "" {
		thresholds = DefaultThresholds
	}
	return &Classifier{
		resolver:   resolver,
		thresholds: thresholds,
		logger:     logger,
	}
}

// assetLabelDriver matches labels like "Excavator 12 (John Smith)".
var assetLabelDriver = regexp.MustCompile(`\(([^)]+)\)\s*$`)

var noDriverValues = map[string]bool{
	"":           true,
	"open":       true,
	"vacant":     true,
	"unassigned": true,
}

// resolveDriver works out who drove the asset that day. Returns false when
// there is no usable driver, in which case the day is skipped entirely.
func (c *Classifier) resolveDriver(day *DaySheet) (id, name, department string, ok bool) {
	if day.Driver != nil {
		if noDriverValues[strings.ToLower(strings.TrimSpace(day.Driver.Name))] {
			return "", "", "", false
		}
		return day.Driver.ID, day.Driver.Name, day.Driver.Department, true
	}

	m := assetLabelDriver.FindStringSubmatch(day.AssetLabel)
	if m == nil {
		return "", "", "", false
	}
	name = strings.TrimSpace(m[1])
	if noDriverValues[strings.ToLower(name)] {
		return "", "", "", false
	}
	// No driver table entry; the name doubles as a stable key.
	return name, name, "", true
}

// ClassifyDay classifies one driver-day. The second return is false when
// the day was skipped (no driver, or no classifiable events).
func (c *Classifier) ClassifyDay(day DaySheet) (DayResult, bool) {
	driverID, driverName, department, ok := c.resolveDriver(&day)
	if !ok {
		c.logger.Debug("skipping asset-day with no driver",
			zap.String("asset_id", day.AssetID), zap.String("label", day.AssetLabel))
		return DayResult{}, false
	}

	result := DayResult{
		DriverID:   driverID,
		DriverName: driverName,
		Department: department,
		Date:       day.Date,
	}

	firstOn, haveOn := firstEvent(day.Events, domain.EventKeyOn)
	lastOff, haveOff := lastEvent(day.Events, domain.EventKeyOff)

	expectedStart, errStart := clockOn(day.Date, c.thresholds.ExpectedStart)
	expectedEnd, errEnd := clockOn(day.Date, c.thresholds.ExpectedEnd)
	if errStart != nil || errEnd != nil {
		c.logger.Warn("unparseable attendance thresholds, skipping day",
			zap.String("start", c.thresholds.ExpectedStart), zap.String("end", c.thresholds.ExpectedEnd))
		return DayResult{}, false
	}

	base := domain.AttendanceRecord{
		DriverID:   driverID,
		DriverName: driverName,
		Department: department,
		ReportDate: day.Date,
	}
	if day.JobSite != nil {
		base.ExpectedJobSite = day.JobSite.ID
	}

	if haveOn {
		minutesLate := int(firstOn.Timestamp.Sub(expectedStart).Minutes())
		if minutesLate > 0 {
			rec := base
			rec.Status = domain.StatusLateStart
			rec.ExpectedStart = expectedStart
			rec.ActualStart = firstOn.Timestamp
			rec.MinutesLate = minutesLate
			rec.Notes = fmt.Sprintf("first key-on at %s, expected %s",
				firstOn.Timestamp.Format("15:04"), c.thresholds.ExpectedStart)
			result.Records = append(result.Records, rec)
		}
	}

	if haveOff {
		minutesEarly := int(expectedEnd.Sub(lastOff.Timestamp).Minutes())
		if minutesEarly > 0 {
			rec := base
			rec.Status = domain.StatusEarlyEnd
			rec.ExpectedEnd = expectedEnd
			rec.ActualEnd = lastOff.Timestamp
			rec.MinutesEarly = minutesEarly
			rec.Notes = fmt.Sprintf("last key-off at %s, expected %s",
				lastOff.Timestamp.Format("15:04"), c.thresholds.ExpectedEnd)
			result.Records = append(result.Records, rec)
		}
	}

	if haveOn {
		if onJob, location := c.onJobSite(&firstOn, day.JobSite); !onJob {
			rec := base
			rec.Status = domain.StatusNotOnJob
			rec.ActualStart = firstOn.Timestamp
			rec.ActualLocation = location
			rec.Notes = "asset started away from assigned job site"
			result.Records = append(result.Records, rec)
		}
	}

	return result, true
}

// onJobSite decides whether the event happened at the assigned job site.
// With coordinates, the geometric resolver is authoritative. The office/yard
// substring test is the legacy fallback for fix-less event logs.
func (c *Classifier) onJobSite(ev *domain.AttendanceEvent, site *domain.JobSite) (bool, string) {
	if ev.HasFix() && site != nil && site.Zone != "" {
		zone := c.resolver.Resolve(ev.Latitude, ev.Longitude)
		if zone == geo.ZoneNoFix {
			return c.locationHeuristic(ev.Location)
		}
		return zone == site.Zone, zone
	}
	return c.locationHeuristic(ev.Location)
}

func (c *Classifier) locationHeuristic(location string) (bool, string) {
	trimmed := strings.TrimSpace(location)
	if trimmed == "" {
		return false, ""
	}
	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "office") || strings.Contains(lower, "yard") {
		return false, trimmed
	}
	return true, trimmed
}

// Record classifies a day and upserts every flagged record. Per-record
// failures are logged and skipped so one bad row never aborts a batch.
func (c *Classifier) Record(ctx context.Context, store RecordStore, day DaySheet) (DayResult, bool) {
	result, ok := c.ClassifyDay(day)
	if !ok {
		return result, false
	}
	for _, rec := range result.Records {
		if err := store.UpsertAttendanceRecord(ctx, rec); err != nil {
			c.logger.Warn("attendance record upsert failed",
				zap.String("driver_id", rec.DriverID),
				zap.String("status", string(rec.Status)),
				zap.Error(err))
		}
	}
	return result, true
}

func firstEvent(events []domain.AttendanceEvent, typ domain.EventType) (domain.AttendanceEvent, bool) {
	for _, e := range events {
		if e.Type == typ && !e.Timestamp.IsZero() {
			return e, true
		}
	}
	return domain.AttendanceEvent{}, false
}

func lastEvent(events []domain.AttendanceEvent, typ domain.EventType) (domain.AttendanceEvent, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == typ && !events[i].Timestamp.IsZero() {
			return events[i], true
		}
	}
	return domain.AttendanceEvent{}, false
}

// clockOn places an "HH:MM" clock value on the given date, in the date's
// location.
func clockOn(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse clock %q: %w", clock, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}
