package geo

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"fleet-sentinel/internal/domain"
)

// ZoneConfig is the parsed zones/PE file. Zones keep file order because
// resolution is first-match-wins.
type ZoneConfig struct {
	Zones       []domain.Zone
	Assignments map[string]domain.PEAssignment
}

type zoneConfigFile struct {
	Zones []struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Center       []float64 `json:"center"`
		RadiusMiles  float64   `json:"radius_miles"`
		WorkingHours struct {
			Days  []string `json:"days"`
			Start string   `json:"start"`
			End   string   `json:"end"`
		} `json:"working_hours"`
	} `json:"zones"`
	PEAssignments map[string]struct {
		Email         string   `json:"email"`
		Zones         []string `json:"zones"`
		SecurityLevel string   `json:"security_level"`
	} `json:"pe_assignments"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sun":       time.Sunday,
	"mon":       time.Monday,
	"tue":       time.Tuesday,
	"wed":       time.Wednesday,
	"thu":       time.Thursday,
	"fri":       time.Friday,
	"sat":       time.Saturday,
}

// LoadZoneConfig reads the zones/PE JSON file. A missing file is not an
// error: it yields an empty config, so every fix resolves UNASSIGNED and
// every non-admin sees nothing. The caller is expected to log that case.
func LoadZoneConfig(path string) (*ZoneConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &ZoneConfig{Assignments: map[string]domain.PEAssignment{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read zone config: %w", err)
	}
	return ParseZoneConfig(data)
}

func ParseZoneConfig(data []byte) (*ZoneConfig, error) {
	var raw zoneConfigFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse zone config: %w", err)
	}

	cfg := &ZoneConfig{Assignments: make(map[string]domain.PEAssignment, len(raw.PEAssignments))}

	for _, z := range raw.Zones {
		if z.ID == "" || len(z.Center) != 2 {
			return nil, fmt.Errorf("zone config: zone %q needs an id and a [lat, lng] center", z.ID)
		}
		zone := domain.Zone{
			ID:          z.ID,
			Name:        z.Name,
			CenterLat:   z.Center[0],
			CenterLng:   z.Center[1],
			RadiusMiles: z.RadiusMiles,
			Hours: domain.WorkingHours{
				Start: z.WorkingHours.Start,
				End:   z.WorkingHours.End,
			},
		}
		for _, d := range z.WorkingHours.Days {
			wd, ok := weekdayNames[strings.ToLower(d)]
			if !ok {
				return nil, fmt.Errorf("zone config: zone %q has unknown weekday %q", z.ID, d)
			}
			zone.Hours.Days = append(zone.Hours.Days, wd)
		}
		cfg.Zones = append(cfg.Zones, zone)
	}

	for id, pe := range raw.PEAssignments {
		level := domain.SecurityLevel(strings.ToUpper(pe.SecurityLevel))
		if level == "" {
			level = domain.LevelPE
		}
		cfg.Assignments[id] = domain.PEAssignment{
			Email:    pe.Email,
			Zones:    pe.Zones,
			Security: level,
		}
	}

	return cfg, nil
}
