package access

import (
	"strings"

	"go.uber.org/zap"

	"fleet-sentinel/internal/domain"
	"fleet-sentinel/internal/geo"
)

// Filter restricts asset visibility to a requester's permitted zones.
// Unknown requesters fail closed: they see nothing.
type Filter struct {
	resolver    *geo.Resolver
	assignments map[string]domain.PEAssignment // keyed by lowercase email
	logger      *zap.Logger
}

func NewFilter(resolver *geo.Resolver, assignments map[string]domain.PEAssignment, logger *zap.Logger) *Filter {
	byEmail := make(map[string]domain.PEAssignment, len(assignments))
	for _, pe := range assignments {
		if pe.Email != "" {
			byEmail[strings.ToLower(pe.Email)] = pe
		}
	}
	return &Filter{
		resolver:    resolver,
		assignments: byEmail,
		logger:      logger,
	}
}

// Lookup returns the PE assignment for a requester identity.
func (f *Filter) Lookup(identity string) (domain.PEAssignment, bool) {
	pe, ok := f.assignments[strings.ToLower(strings.TrimSpace(identity))]
	return pe, ok
}

// VisibleAssets returns the subset of assets the requester may see.
// Admins see everything. Non-admins see only assets whose resolved zone is
// in their permitted set; assets with no fix or no matching zone are never
// shown to non-admins.
func (f *Filter) VisibleAssets(assets []domain.Asset, identity string) []domain.Asset {
	pe, ok := f.Lookup(identity)
	if !ok {
		f.logger.Warn("unknown requester, returning no assets", zap.String("identity", identity))
		return []domain.Asset{}
	}

	if pe.Security == domain.LevelAdmin {
		return assets
	}

	permitted := make(map[string]bool, len(pe.Zones))
	for _, z := range pe.Zones {
		permitted[z] = true
	}

	visible := make([]domain.Asset, 0, len(assets))
	for _, a := range assets {
		zone := f.resolver.Resolve(a.Latitude, a.Longitude)
		if zone == geo.ZoneNoFix || zone == geo.ZoneUnassigned {
			continue
		}
		if permitted[zone] {
			visible = append(visible, a)
		}
	}
	return visible
}
