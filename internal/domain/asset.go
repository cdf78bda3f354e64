package domain

import "time"

// Asset is the snapshot the detection engines work on. Producers (telemetry
// ingestion, DB loaders) populate it fully before handing it to the core;
// the engines never reach back into their source.
type Asset struct {
	ID    string
	Label string

	Latitude  float64
	Longitude float64

	IgnitionOn bool
	IsMoving   bool
	LastUpdate time.Time

	// ExpectedZone is the zone the asset is supposed to operate in.
	// Empty means no assignment is known and geofence checks are skipped.
	ExpectedZone string

	Status string
}

// HasFix reports whether the asset has a usable GPS position.
// (0,0) is the standard "no fix" sentinel from trackers.
func (a *Asset) HasFix() bool {
	return !(a.Latitude == 0 && a.Longitude == 0)
}

// WorkingHours is a zone's permitted operating window. Start/End are
// "HH:MM"; a time on either boundary is inside the window.
type WorkingHours struct {
	Days  []time.Weekday
	Start string
	End   string
}

// Zone is a named circular geographic region.
type Zone struct {
	ID          string
	Name        string
	CenterLat   float64
	CenterLng   float64
	RadiusMiles float64
	Hours       WorkingHours
}

type SecurityLevel string

const (
	LevelAdmin SecurityLevel = "ADMIN"
	LevelPE    SecurityLevel = "PE"
)

// PEAssignment scopes a requester to a set of zones.
type PEAssignment struct {
	Email    string
	Zones    []string
	Security SecurityLevel
}
