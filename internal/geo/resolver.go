package geo

import (
	"math"

	"fleet-sentinel/internal/domain"
)

const (
	// ZoneUnassigned is returned for a valid fix that falls inside no
	// configured zone. Distinct from ZoneNoFix.
	ZoneUnassigned = "UNASSIGNED"

	// ZoneNoFix is returned when the coordinate is the (0,0) tracker
	// sentinel or otherwise unusable.
	ZoneNoFix = ""

	earthRadiusMiles = 3959.0
)

// Resolver maps coordinates to configured zones. Zone order is the
// declaration order in the config file; the first containing zone wins.
type Resolver struct {
	zones []domain.Zone
}

func NewResolver(zones []domain.Zone) *Resolver {
	return &Resolver{zones: zones}
}

func (r *Resolver) Zones() []domain.Zone {
	return r.zones
}

// Zone returns the configured zone with the given ID.
func (r *Resolver) Zone(id string) (domain.Zone, bool) {
	for _, z := range r.zones {
		if z.ID == id {
			return z, true
		}
	}
	return domain.Zone{}, false
}

// Resolve maps a GPS coordinate to a zone ID. A (0,0) or non-finite
// coordinate means no fix and resolves to ZoneNoFix; a real fix outside
// every zone resolves to ZoneUnassigned.
func (r *Resolver) Resolve(lat, lng float64) string {
	if !validFix(lat, lng) {
		return ZoneNoFix
	}
	for _, z := range r.zones {
		if HaversineMiles(lat, lng, z.CenterLat, z.CenterLng) <= z.RadiusMiles {
			return z.ID
		}
	}
	return ZoneUnassigned
}

func validFix(lat, lng float64) bool {
	if lat == 0 && lng == 0 {
		return false
	}
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// HaversineMiles computes the great-circle distance between two points.
func HaversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
