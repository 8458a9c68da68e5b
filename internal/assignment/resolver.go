// Package assignment resolves which services apply to a property and manages
// the per-property service assignments the resolution is built from.
package assignment

import (
	"github.com/amoylab/cleanbill/internal/apiserver/database"

	"github.com/shopspring/decimal"
)

// EffectiveService is the resolved price and status of one service type for a property
type EffectiveService struct {
	ServiceTypeID   string
	ServiceTypeName string
	EffectivePrice  decimal.Decimal
	IsActive        bool
	IsInherited     bool
	// OverrideID is the property's own assignment backing this entry, if any
	OverrideID *string
}

// Resolve combines a property's live assignments (direct) with those of its
// parent. Parent-derived entries come first, then direct-only entries, each
// in the order given.
//
// A parent assignment that is inactive removes the service entirely; a child
// cannot revive it. A child assignment for a service the parent also carries
// is an override: it may change the price or opt out, but stays inherited.
func Resolve(direct, parent []database.PropertyServiceType) []EffectiveService {
	byType := make(map[string]*database.PropertyServiceType, len(direct))
	for i := range direct {
		byType[direct[i].ServiceTypeID] = &direct[i]
	}

	result := make([]EffectiveService, 0, len(direct)+len(parent))
	inParent := make(map[string]bool, len(parent))
	for i := range parent {
		pa := &parent[i]
		inParent[pa.ServiceTypeID] = true
		if !pa.IsActive {
			continue
		}

		es := EffectiveService{
			ServiceTypeID:   pa.ServiceTypeID,
			ServiceTypeName: serviceTypeName(pa),
			IsInherited:     true,
		}
		if da, ok := byType[pa.ServiceTypeID]; ok {
			es.EffectivePrice = firstPrice(da.CustomPrice, pa.CustomPrice, basePrice(pa))
			es.IsActive = da.IsActive
			es.OverrideID = &da.ID
		} else {
			es.EffectivePrice = firstPrice(pa.CustomPrice, basePrice(pa))
			es.IsActive = true
		}
		result = append(result, es)
	}

	for i := range direct {
		da := &direct[i]
		if inParent[da.ServiceTypeID] {
			continue
		}
		result = append(result, EffectiveService{
			ServiceTypeID:   da.ServiceTypeID,
			ServiceTypeName: serviceTypeName(da),
			EffectivePrice:  firstPrice(da.CustomPrice, basePrice(da)),
			IsActive:        da.IsActive,
			OverrideID:      &da.ID,
		})
	}
	return result
}

// Active filters resolved services down to the billable ones
func Active(services []EffectiveService) []EffectiveService {
	active := make([]EffectiveService, 0, len(services))
	for _, es := range services {
		if es.IsActive {
			active = append(active, es)
		}
	}
	return active
}

// EffectivePrice is the price an assignment bills at when it stands alone
func EffectivePrice(a *database.PropertyServiceType) decimal.Decimal {
	return firstPrice(a.CustomPrice, basePrice(a))
}

func firstPrice(prices ...decimal.NullDecimal) decimal.Decimal {
	for _, p := range prices {
		if p.Valid {
			return p.Decimal
		}
	}
	return decimal.Zero
}

func basePrice(a *database.PropertyServiceType) decimal.NullDecimal {
	if a.ServiceType == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(a.ServiceType.BasePrice)
}

func serviceTypeName(a *database.PropertyServiceType) string {
	if a.ServiceType == nil {
		return ""
	}
	return a.ServiceType.Name
}
