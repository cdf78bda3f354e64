package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"fleet-sentinel/internal/domain"
)

func testZones() []domain.Zone {
	return []domain.Zone{
		{ID: "zone_alpha", CenterLat: 40.0, CenterLng: -105.0, RadiusMiles: 10},
		{ID: "zone_beta", CenterLat: 40.05, CenterLng: -105.0, RadiusMiles: 10},
	}
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(testZones())

	t.Run("zero coordinate means no fix, not unassigned", func(t *testing.T) {
		assert.Equal(t, ZoneNoFix, r.Resolve(0, 0))
	})

	t.Run("NaN coordinate means no fix", func(t *testing.T) {
		assert.Equal(t, ZoneNoFix, r.Resolve(math.NaN(), -105.0))
	})

	t.Run("out of range coordinate means no fix", func(t *testing.T) {
		assert.Equal(t, ZoneNoFix, r.Resolve(91.0, -105.0))
	})

	t.Run("point at zone center resolves to that zone", func(t *testing.T) {
		assert.Equal(t, "zone_alpha", r.Resolve(40.0, -105.0))
	})

	t.Run("point outside every zone is unassigned", func(t *testing.T) {
		assert.Equal(t, ZoneUnassigned, r.Resolve(10.0, 10.0))
	})

	t.Run("resolution is deterministic", func(t *testing.T) {
		first := r.Resolve(40.02, -105.01)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, r.Resolve(40.02, -105.01))
		}
	})

	t.Run("overlapping zones resolve to first in declaration order", func(t *testing.T) {
		// zone_beta's center is ~3.5 miles from zone_alpha's, inside both.
		assert.Equal(t, "zone_alpha", r.Resolve(40.05, -105.0))
	})

	t.Run("point just past the radius does not resolve", func(t *testing.T) {
		single := NewResolver([]domain.Zone{
			{ID: "zone_alpha", CenterLat: 40.0, CenterLng: -105.0, RadiusMiles: 10},
		})
		// ~10.5 miles due north of center
		assert.Equal(t, ZoneUnassigned, single.Resolve(40.152, -105.0))
	})
}

func TestResolver_Zone(t *testing.T) {
	r := NewResolver(testZones())

	z, ok := r.Zone("zone_beta")
	assert.True(t, ok)
	assert.Equal(t, "zone_beta", z.ID)

	_, ok = r.Zone("nope")
	assert.False(t, ok)
}

func TestHaversineMiles(t *testing.T) {
	t.Run("zero distance at identical points", func(t *testing.T) {
		assert.InDelta(t, 0, HaversineMiles(40.0, -105.0, 40.0, -105.0), 1e-9)
	})

	t.Run("one degree of latitude is about 69 miles", func(t *testing.T) {
		assert.InDelta(t, 69.1, HaversineMiles(40.0, -105.0, 41.0, -105.0), 0.2)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := HaversineMiles(40.0, -105.0, 39.5, -104.5)
		b := HaversineMiles(39.5, -104.5, 40.0, -105.0)
		assert.InDelta(t, a, b, 1e-9)
	})
}

func TestResolver_Empty(t *testing.T) {
	r := NewResolver(nil)

	t.Run("any fix is unassigned with no zones configured", func(t *testing.T) {
		assert.Equal(t, ZoneUnassigned, r.Resolve(40.0, -105.0))
	})

	t.Run("no fix stays no fix", func(t *testing.T) {
		assert.Equal(t, ZoneNoFix, r.Resolve(0, 0))
	})
}
