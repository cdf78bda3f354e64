package domain

import "time"

type AlertType string

const (
	AlertGeofenceViolation AlertType = "GEOFENCE_VIOLATION"
	AlertOffHoursMovement  AlertType = "OFF_HOURS_MOVEMENT"
	AlertOrphanedEquipment AlertType = "ORPHANED_EQUIPMENT"
	AlertLongOffline       AlertType = "LONG_OFFLINE"
)

type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "HIGH"
	SeverityMedium AlertSeverity = "MEDIUM"
	SeverityLow    AlertSeverity = "LOW"
)

// Alert is one detected anomaly. Alerts are transient per scan; persistence
// is the caller's concern.
type Alert struct {
	ID        string        `json:"id"`
	Type      AlertType     `json:"alert_type"`
	Severity  AlertSeverity `json:"severity"`
	AssetID   string        `json:"asset_id"`
	Zone      string        `json:"zone,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Details   string        `json:"details"`
	Latitude  float64       `json:"latitude,omitempty"`
	Longitude float64       `json:"longitude,omitempty"`
}

// ScanReport aggregates one pass of the anomaly scanner. An asset may appear
// in more than one list; categories are not deduplicated against each other.
type ScanReport struct {
	GeofenceViolations []Alert     `json:"geofence_violations"`
	OffHoursMovement   []Alert     `json:"off_hours_movement"`
	OrphanedEquipment  []Alert     `json:"orphaned_equipment"`
	LongOffline        []Alert     `json:"long_offline"`
	Summary            ScanSummary `json:"summary"`
}

type ScanSummary struct {
	AssetsScanned int       `json:"assets_scanned"`
	TotalAlerts   int       `json:"total_alerts"`
	ScannedAt     time.Time `json:"scanned_at"`
	// Notes carries degraded-mode information, e.g. a detector that could
	// not run because its data source is not wired in.
	Notes []string `json:"notes,omitempty"`
}

// TotalAlerts recounts across all four categories.
func (r *ScanReport) TotalAlerts() int {
	return len(r.GeofenceViolations) + len(r.OffHoursMovement) +
		len(r.OrphanedEquipment) + len(r.LongOffline)
}
