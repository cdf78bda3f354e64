package access

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fleet-sentinel/internal/domain"
	"fleet-sentinel/internal/geo"
)

func testFilter() *Filter {
	resolver := geo.NewResolver([]domain.Zone{
		{ID: "zone_north", CenterLat: 40.0, CenterLng: -105.0, RadiusMiles: 10},
		{ID: "zone_south", CenterLat: 39.0, CenterLng: -105.0, RadiusMiles: 10},
	})
	assignments := map[string]domain.PEAssignment{
		"pe_north": {Email: "north@example.com", Zones: []string{"zone_north"}, Security: domain.LevelPE},
		"admin":    {Email: "admin@example.com", Security: domain.LevelAdmin},
	}
	return NewFilter(resolver, assignments, zap.NewNop())
}

func TestFilter_VisibleAssets(t *testing.T) {
	f := testFilter()

	northAsset := domain.Asset{ID: "a1", Latitude: 40.0, Longitude: -105.0}
	southAsset := domain.Asset{ID: "a2", Latitude: 39.0, Longitude: -105.0}
	strayAsset := domain.Asset{ID: "a3", Latitude: 10.0, Longitude: 10.0}
	noFixAsset := domain.Asset{ID: "a4"}

	all := []domain.Asset{northAsset, southAsset, strayAsset, noFixAsset}

	t.Run("admin sees the exact input list", func(t *testing.T) {
		visible := f.VisibleAssets(all, "admin@example.com")
		assert.Equal(t, all, visible)
	})

	t.Run("non-admin sees only permitted zones", func(t *testing.T) {
		visible := f.VisibleAssets(all, "north@example.com")
		require.Len(t, visible, 1)
		assert.Equal(t, "a1", visible[0].ID)
	})

	t.Run("unassigned and no-fix assets never visible to non-admins", func(t *testing.T) {
		visible := f.VisibleAssets([]domain.Asset{strayAsset, noFixAsset}, "north@example.com")
		assert.Empty(t, visible)
	})

	t.Run("unknown identity fails closed", func(t *testing.T) {
		visible := f.VisibleAssets(all, "stranger@example.com")
		assert.Empty(t, visible)
	})

	t.Run("identity match is case-insensitive", func(t *testing.T) {
		visible := f.VisibleAssets(all, "North@Example.com")
		require.Len(t, visible, 1)
	})
}

func TestFilter_AdminBypassLargeFleet(t *testing.T) {
	f := testFilter()

	assets := make([]domain.Asset, 0, 50)
	for i := 0; i < 50; i++ {
		lat := 40.0
		if i%2 == 0 {
			lat = 39.0
		}
		assets = append(assets, domain.Asset{
			ID:       fmt.Sprintf("a%d", i),
			Latitude: lat, Longitude: -105.0,
		})
	}

	visible := f.VisibleAssets(assets, "admin@example.com")
	assert.Len(t, visible, 50)
	assert.Equal(t, assets, visible)
}

func TestFilter_Lookup(t *testing.T) {
	f := testFilter()

	pe, ok := f.Lookup("north@example.com")
	require.True(t, ok)
	assert.Equal(t, domain.LevelPE, pe.Security)

	_, ok = f.Lookup("nobody@example.com")
	assert.False(t, ok)
}
