package assignment

import (
	"testing"

	"github.com/amoylab/cleanbill/internal/apiserver/database"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serviceType(id, name, price string) *database.ServiceType {
	return &database.ServiceType{
		Base:      database.Base{ID: id},
		Name:      name,
		BasePrice: decimal.RequireFromString(price),
		IsActive:  true,
	}
}

func assigned(id string, st *database.ServiceType, custom string, active bool) database.PropertyServiceType {
	a := database.PropertyServiceType{
		Base:          database.Base{ID: id},
		ServiceTypeID: st.ID,
		IsActive:      active,
		ServiceType:   st,
	}
	if custom != "" {
		a.CustomPrice = decimal.NewNullDecimal(decimal.RequireFromString(custom))
	}
	return a
}

func TestResolve(t *testing.T) {
	cleaning := serviceType("st-clean", "Cleaning", "50.00")
	windows := serviceType("st-windows", "Windows", "20.00")
	stairs := serviceType("st-stairs", "Stairs", "15.00")

	tests := []struct {
		name   string
		direct []database.PropertyServiceType
		parent []database.PropertyServiceType
		want   []EffectiveService
	}{
		{
			name:   "inherits active parent service at base price",
			parent: []database.PropertyServiceType{assigned("p1", cleaning, "", true)},
			want: []EffectiveService{
				{ServiceTypeID: "st-clean", ServiceTypeName: "Cleaning", EffectivePrice: decimal.RequireFromString("50"), IsActive: true, IsInherited: true},
			},
		},
		{
			name:   "inherits parent custom price",
			parent: []database.PropertyServiceType{assigned("p1", cleaning, "45.50", true)},
			want: []EffectiveService{
				{ServiceTypeID: "st-clean", ServiceTypeName: "Cleaning", EffectivePrice: decimal.RequireFromString("45.5"), IsActive: true, IsInherited: true},
			},
		},
		{
			name:   "child override price wins",
			direct: []database.PropertyServiceType{assigned("c1", cleaning, "60.00", true)},
			parent: []database.PropertyServiceType{assigned("p1", cleaning, "45.50", true)},
			want: []EffectiveService{
				{ServiceTypeID: "st-clean", ServiceTypeName: "Cleaning", EffectivePrice: decimal.RequireFromString("60"), IsActive: true, IsInherited: true, OverrideID: ptr("c1")},
			},
		},
		{
			name:   "override without price falls back to parent price",
			direct: []database.PropertyServiceType{assigned("c1", cleaning, "", true)},
			parent: []database.PropertyServiceType{assigned("p1", cleaning, "45.50", true)},
			want: []EffectiveService{
				{ServiceTypeID: "st-clean", ServiceTypeName: "Cleaning", EffectivePrice: decimal.RequireFromString("45.5"), IsActive: true, IsInherited: true, OverrideID: ptr("c1")},
			},
		},
		{
			name:   "child opt-out stays visible as inactive",
			direct: []database.PropertyServiceType{assigned("c1", cleaning, "", false)},
			parent: []database.PropertyServiceType{assigned("p1", cleaning, "", true)},
			want: []EffectiveService{
				{ServiceTypeID: "st-clean", ServiceTypeName: "Cleaning", EffectivePrice: decimal.RequireFromString("50"), IsActive: false, IsInherited: true, OverrideID: ptr("c1")},
			},
		},
		{
			name:   "parent deactivation is absolute",
			direct: []database.PropertyServiceType{assigned("c1", cleaning, "10.00", true)},
			parent: []database.PropertyServiceType{assigned("p1", cleaning, "", false)},
			want:   []EffectiveService{},
		},
		{
			name:   "direct only service on a root",
			direct: []database.PropertyServiceType{assigned("c1", windows, "", false), assigned("c2", stairs, "12.00", true)},
			want: []EffectiveService{
				{ServiceTypeID: "st-windows", ServiceTypeName: "Windows", EffectivePrice: decimal.RequireFromString("20"), IsActive: false, OverrideID: ptr("c1")},
				{ServiceTypeID: "st-stairs", ServiceTypeName: "Stairs", EffectivePrice: decimal.RequireFromString("12"), IsActive: true, OverrideID: ptr("c2")},
			},
		},
		{
			name:   "parent entries come before direct only entries",
			direct: []database.PropertyServiceType{assigned("c1", stairs, "", true), assigned("c2", cleaning, "55.00", true)},
			parent: []database.PropertyServiceType{assigned("p1", cleaning, "", true), assigned("p2", windows, "", true)},
			want: []EffectiveService{
				{ServiceTypeID: "st-clean", ServiceTypeName: "Cleaning", EffectivePrice: decimal.RequireFromString("55"), IsActive: true, IsInherited: true, OverrideID: ptr("c2")},
				{ServiceTypeID: "st-windows", ServiceTypeName: "Windows", EffectivePrice: decimal.RequireFromString("20"), IsActive: true, IsInherited: true},
				{ServiceTypeID: "st-stairs", ServiceTypeName: "Stairs", EffectivePrice: decimal.RequireFromString("15"), IsActive: true, OverrideID: ptr("c1")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.direct, tt.parent)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].ServiceTypeID, got[i].ServiceTypeID)
				assert.Equal(t, tt.want[i].ServiceTypeName, got[i].ServiceTypeName)
				assert.True(t, tt.want[i].EffectivePrice.Equal(got[i].EffectivePrice),
					"price %s != %s", tt.want[i].EffectivePrice, got[i].EffectivePrice)
				assert.Equal(t, tt.want[i].IsActive, got[i].IsActive)
				assert.Equal(t, tt.want[i].IsInherited, got[i].IsInherited)
				assert.Equal(t, tt.want[i].OverrideID, got[i].OverrideID)
			}
		})
	}
}

func TestResolve_DeactivatedParentHidesDirectOnlyToo(t *testing.T) {
	cleaning := serviceType("st-clean", "Cleaning", "50.00")

	// the child assignment matches an inactive parent entry, so it is not direct-only either
	got := Resolve(
		[]database.PropertyServiceType{assigned("c1", cleaning, "", true)},
		[]database.PropertyServiceType{assigned("p1", cleaning, "", false)},
	)
	assert.Empty(t, got)
}

func TestActive(t *testing.T) {
	in := []EffectiveService{{ServiceTypeID: "a", IsActive: true}, {ServiceTypeID: "b"}, {ServiceTypeID: "c", IsActive: true}}
	got := Active(in)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ServiceTypeID)
	assert.Equal(t, "c", got[1].ServiceTypeID)
}

func TestEffectivePrice(t *testing.T) {
	cleaning := serviceType("st-clean", "Cleaning", "50.00")
	a := assigned("a", cleaning, "", true)
	assert.Equal(t, "50.00", EffectivePrice(&a).StringFixed(2))

	a = assigned("a", cleaning, "0", true)
	assert.Equal(t, "0.00", EffectivePrice(&a).StringFixed(2))

	a.ServiceType = nil
	a.CustomPrice = decimal.NullDecimal{}
	assert.True(t, EffectivePrice(&a).IsZero())
}

func ptr(s string) *string { return &s }
