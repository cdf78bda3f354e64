package scan

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fleet-sentinel/internal/domain"
	"fleet-sentinel/internal/geo"
)

// DefaultOfflineThreshold is how stale an asset's telemetry may be before
// the long-offline detector fires.
const DefaultOfflineThreshold = 6 * time.Hour

// CheckinSource answers whether a worker was checked in for an asset at a
// given time. The orphaned-equipment detector refuses to run without one:
// movement with nobody checked in can only be judged against real timecard
// data, not assumed.
type CheckinSource interface {
	CheckedIn(assetID string, at time.Time) (bool, error)
}

type Config struct {
	OfflineThreshold time.Duration
}

// Scanner runs the four anomaly detectors over a fleet snapshot. It is
// stateless per call; construct one and share it.
type Scanner struct {
	resolver     *geo.Resolver
	checkins     CheckinSource
	offlineAfter time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewScanner(resolver *geo.Resolver, checkins CheckinSource, cfg Config, logger *zap.Logger) *Scanner {
	threshold := cfg.OfflineThreshold
	if threshold <= 0 {
		threshold = DefaultOfflineThreshold
	}
	return &Scanner{
		resolver:     resolver,
		checkins:     checkins,
		offlineAfter: threshold,
		logger:       logger,
		now:          time.Now,
	}
}

// Scan runs every detector for every asset. Detectors are independent: an
// asset may land in several alert lists in the same report.
func (s *Scanner) Scan(assets []domain.Asset) domain.ScanReport {
	report := domain.ScanReport{
		GeofenceViolations: []domain.Alert{},
		OffHoursMovement:   []domain.Alert{},
		OrphanedEquipment:  []domain.Alert{},
		LongOffline:        []domain.Alert{},
	}

	if s.checkins == nil {
		report.Summary.Notes = append(report.Summary.Notes,
			"orphaned equipment detection skipped: no worker check-in source configured")
	}

	for i := range assets {
		a := &assets[i]
		if alert, ok := s.checkGeofence(a); ok {
			report.GeofenceViolations = append(report.GeofenceViolations, alert)
		}
		if alert, ok := s.checkOffHours(a); ok {
			report.OffHoursMovement = append(report.OffHoursMovement, alert)
		}
		if alert, ok := s.checkOrphaned(a); ok {
			report.OrphanedEquipment = append(report.OrphanedEquipment, alert)
		}
		if alert, ok := s.checkOffline(a); ok {
			report.LongOffline = append(report.LongOffline, alert)
		}
	}

	report.Summary.AssetsScanned = len(assets)
	report.Summary.TotalAlerts = report.TotalAlerts()
	report.Summary.ScannedAt = s.now()
	return report
}

// checkGeofence flags an asset whose resolved zone disagrees with its
// assignment. A fix outside every configured zone is HIGH regardless of
// assignment; a mismatch between two known zones is MEDIUM and needs the
// expected zone wired in, otherwise the check is skipped.
func (s *Scanner) checkGeofence(a *domain.Asset) (domain.Alert, bool) {
	if !a.HasFix() {
		return domain.Alert{}, false
	}
	zone := s.resolver.Resolve(a.Latitude, a.Longitude)
	if zone == geo.ZoneNoFix {
		return domain.Alert{}, false
	}

	if zone == geo.ZoneUnassigned {
		return s.newAlert(a, domain.AlertGeofenceViolation, domain.SeverityHigh, zone,
			"asset located outside all configured zones"), true
	}
	if a.ExpectedZone == "" {
		// No assignment known; a mismatch verdict would be meaningless.
		return domain.Alert{}, false
	}
	if zone != a.ExpectedZone {
		return s.newAlert(a, domain.AlertGeofenceViolation, domain.SeverityMedium, zone,
			fmt.Sprintf("asset in zone %s, expected zone %s", zone, a.ExpectedZone)), true
	}
	return domain.Alert{}, false
}

// checkOffHours flags movement outside the resolved zone's working-hours
// window. "HH:MM" strings compare lexically; a time equal to either
// boundary is inside the window.
func (s *Scanner) checkOffHours(a *domain.Asset) (domain.Alert, bool) {
	if !a.IgnitionOn && !a.IsMoving {
		return domain.Alert{}, false
	}
	if !a.HasFix() {
		return domain.Alert{}, false
	}
	zoneID := s.resolver.Resolve(a.Latitude, a.Longitude)
	if zoneID == geo.ZoneNoFix || zoneID == geo.ZoneUnassigned {
		return domain.Alert{}, false
	}
	zone, ok := s.resolver.Zone(zoneID)
	if !ok || len(zone.Hours.Days) == 0 || zone.Hours.Start == "" || zone.Hours.End == "" {
		return domain.Alert{}, false
	}

	t := a.LastUpdate
	if t.IsZero() {
		return domain.Alert{}, false
	}

	dayOK := false
	for _, d := range zone.Hours.Days {
		if t.Weekday() == d {
			dayOK = true
			break
		}
	}
	if !dayOK {
		return s.newAlert(a, domain.AlertOffHoursMovement, domain.SeverityMedium, zoneID,
			fmt.Sprintf("movement on %s, outside working days for zone %s", t.Weekday(), zoneID)), true
	}

	clock := t.Format("15:04")
	if clock < zone.Hours.Start || clock > zone.Hours.End {
		return s.newAlert(a, domain.AlertOffHoursMovement, domain.SeverityMedium, zoneID,
			fmt.Sprintf("movement at %s, outside %s-%s window for zone %s",
				clock, zone.Hours.Start, zone.Hours.End, zoneID)), true
	}
	return domain.Alert{}, false
}

// checkOrphaned flags equipment moving with no worker checked in. Without a
// check-in source the detector emits nothing; the scan summary carries the
// insufficient-data note instead of a false positive.
func (s *Scanner) checkOrphaned(a *domain.Asset) (domain.Alert, bool) {
	if s.checkins == nil {
		return domain.Alert{}, false
	}
	if !a.IsMoving && !a.IgnitionOn {
		return domain.Alert{}, false
	}

	checkedIn, err := s.checkins.CheckedIn(a.ID, a.LastUpdate)
	if err != nil {
		s.logger.Warn("check-in lookup failed, skipping orphaned-equipment check",
			zap.String("asset_id", a.ID), zap.Error(err))
		return domain.Alert{}, false
	}
	if checkedIn {
		return domain.Alert{}, false
	}
	return s.newAlert(a, domain.AlertOrphanedEquipment, domain.SeverityHigh, "",
		"equipment movement with no checked-in worker"), true
}

func (s *Scanner) checkOffline(a *domain.Asset) (domain.Alert, bool) {
	if a.LastUpdate.IsZero() {
		return domain.Alert{}, false
	}
	age := s.now().Sub(a.LastUpdate)
	if age <= s.offlineAfter {
		return domain.Alert{}, false
	}
	return s.newAlert(a, domain.AlertLongOffline, domain.SeverityLow, "",
		fmt.Sprintf("no telemetry for %s (threshold %s)", age.Round(time.Minute), s.offlineAfter)), true
}

func (s *Scanner) newAlert(a *domain.Asset, typ domain.AlertType, sev domain.AlertSeverity, zone, details string) domain.Alert {
	alert := domain.Alert{
		ID:        uuid.New().String(),
		Type:      typ,
		Severity:  sev,
		AssetID:   a.ID,
		Zone:      zone,
		Timestamp: s.now(),
		Details:   details,
	}
	if a.HasFix() {
		alert.Latitude = a.Latitude
		alert.Longitude = a.Longitude
	}
	return alert
}
