package invoice

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/apiserver/database/databasetest"
	"github.com/amoylab/cleanbill/internal/assignment"
	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store       *database.Store
	assignments *assignment.Service
	svc         *Service
	caller      identity.Caller
}

func newFixture(t *testing.T, cfg Config) *fixture {
	store := databasetest.New(t)
	assignments := assignment.NewService(store, zap.NewNop())
	return &fixture{
		store:       store,
		assignments: assignments,
		svc:         NewService(store, assignments, cfg, zap.NewNop(), WithClock(func() time.Time { return testNow })),
		caller:      databasetest.Tenant(t, store, "acme"),
	}
}

func (f *fixture) property(t *testing.T, typ database.PropertyType, parent *database.Property, active bool) *database.Property {
	t.Helper()
	p := &database.Property{
		Base:         database.Base{TenantID: f.caller.TenantID},
		PropertyType: typ,
		Name:         string(typ),
		IsActive:     active,
	}
	if parent != nil {
		p.ParentPropertyID = &parent.ID
	}
	require.NoError(t, f.store.CreateProperty(context.Background(), p))
	return p
}

func (f *fixture) serviceType(t *testing.T, name, price string) *database.ServiceType {
	t.Helper()
	st := &database.ServiceType{
		Base:      database.Base{TenantID: f.caller.TenantID},
		Name:      name,
		BasePrice: d(price),
		IsActive:  true,
	}
	require.NoError(t, f.store.CreateServiceType(context.Background(), st))
	return st
}

func header() Header {
	return Header{
		IssueDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2024, 4, 14, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) createInvoice(t *testing.T, property *database.Property, prices ...string) *database.Invoice {
	t.Helper()
	var items []ItemParams
	for _, p := range prices {
		items = append(items, ItemParams{Description: "Cleaning", UnitPrice: d(p)})
	}
	inv, err := f.svc.Create(context.Background(), f.caller, CreateParams{PropertyID: property.ID, Header: header(), Items: items})
	require.NoError(t, err)
	return inv
}

func assertTotals(t *testing.T, inv *database.Invoice) {
	t.Helper()
	assert.True(t, inv.Total.Equal(inv.Subtotal.Sub(inv.Discount).Add(inv.Tax)),
		"total %s != %s - %s + %s", inv.Total, inv.Subtotal, inv.Discount, inv.Tax)
}

func TestService_Create(t *testing.T) {
	f := newFixture(t, Config{})
	house := f.property(t, database.PropertyHouse, nil, true)

	h := header()
	h.Discount = d("5.00")
	h.Tax = d("9.31")
	inv, err := f.svc.Create(context.Background(), f.caller, CreateParams{
		PropertyID: house.ID,
		Header:     h,
		Items: []ItemParams{
			{Description: "Deep clean", Quantity: d2n("2.5"), UnitPrice: d("19.99")},
			{Description: "Windows", UnitPrice: d("10.00"), SortOrder: intPtr(7)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-202403-0001", inv.InvoiceNumber)
	assert.Equal(t, database.InvoiceDraft, inv.Status)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, "Deep clean", inv.Items[0].Description)
	assert.Equal(t, "49.98", inv.Items[0].Total.StringFixed(2))
	assert.Equal(t, 0, inv.Items[0].SortOrder)
	assert.Equal(t, "1.00", inv.Items[1].Quantity.StringFixed(2))
	assert.Equal(t, 7, inv.Items[1].SortOrder)
	assert.Equal(t, "59.98", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "64.29", inv.Total.StringFixed(2))
	assertTotals(t, inv)
	require.NotNil(t, inv.Property)
	assert.Equal(t, house.ID, inv.Property.ID)

	second := f.createInvoice(t, house, "1.00")
	assert.Equal(t, "INV-202403-0002", second.InvoiceNumber)
}

func TestService_CreateUnknownProperty(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.svc.Create(context.Background(), f.caller, CreateParams{PropertyID: "missing", Header: header()})
	assert.ErrorIs(t, err, errorx.ErrPropertyNotFound)
}

func TestService_NumbersAreUniqueUnderConcurrency(t *testing.T) {
	f := newFixture(t, Config{NumberRetries: 5})
	house := f.property(t, database.PropertyHouse, nil, true)

	const n = 50
	var wg sync.WaitGroup
	numbers := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inv, err := f.svc.Create(context.Background(), f.caller, CreateParams{
				PropertyID: house.ID,
				Header:     header(),
				Items:      []ItemParams{{Description: "x", UnitPrice: d("1")}},
			})
			errs[i] = err
			if err == nil {
				numbers[i] = inv.InvoiceNumber
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[numbers[i]], "duplicate number %s", numbers[i])
		seen[numbers[i]] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen["INV-202403-0001"])
	assert.True(t, seen["INV-202403-0050"])
}

func TestService_NumbersSkipDeletedInvoices(t *testing.T) {
	f := newFixture(t, Config{})
	house := f.property(t, database.PropertyHouse, nil, true)
	first := f.createInvoice(t, house, "1.00")
	require.NoError(t, f.svc.Delete(context.Background(), f.caller, first.ID))

	second := f.createInvoice(t, house, "1.00")
	assert.Equal(t, "INV-202403-0002", second.InvoiceNumber)
}

func TestService_NumbersArePerTenant(t *testing.T) {
	f := newFixture(t, Config{})
	house := f.property(t, database.PropertyHouse, nil, true)
	f.createInvoice(t, house, "1.00")

	other := databasetest.Tenant(t, f.store, "other")
	p := &database.Property{Base: database.Base{TenantID: other.TenantID}, PropertyType: database.PropertyHouse, Name: "h", IsActive: true}
	require.NoError(t, f.store.CreateProperty(context.Background(), p))
	inv, err := f.svc.Create(context.Background(), other, CreateParams{PropertyID: p.ID, Header: header()})
	require.NoError(t, err)
	assert.Equal(t, "INV-202403-0001", inv.InvoiceNumber)
}

func TestService_GenerateSkipsEmptyTargets(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	building := f.property(t, database.PropertyBuilding, nil, true)
	f.property(t, database.PropertyUnit, building, true)
	f.property(t, database.PropertyUnit, building, true)
	u3 := f.property(t, database.PropertyUnit, building, true)
	f.property(t, database.PropertyUnit, building, false)
	cleaning := f.serviceType(t, "Cleaning", "80.00")

	// only u3 carries an active service
	_, err := f.assignments.Assign(ctx, f.caller, assignment.AssignParams{PropertyID: u3.ID, ServiceTypeID: cleaning.ID})
	require.NoError(t, err)

	h := header()
	h.Tax = d("15.20")
	invoices, err := f.svc.Generate(ctx, f.caller, GenerateParams{PropertyID: building.ID, Header: h})
	require.NoError(t, err)
	require.Len(t, invoices, 1)

	inv := invoices[0]
	assert.Equal(t, u3.ID, inv.PropertyID)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Cleaning", inv.Items[0].Description)
	require.NotNil(t, inv.Items[0].ServiceTypeID)
	assert.Equal(t, cleaning.ID, *inv.Items[0].ServiceTypeID)
	assert.Equal(t, "80.00", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "95.20", inv.Total.StringFixed(2))
	assertTotals(t, inv)
}

func TestService_GenerateUsesEffectivePrices(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	building := f.property(t, database.PropertyBuilding, nil, true)
	u1 := f.property(t, database.PropertyUnit, building, true)
	u2 := f.property(t, database.PropertyUnit, building, true)
	cleaning := f.serviceType(t, "Cleaning", "50.00")
	windows := f.serviceType(t, "Windows", "20.00")

	_, err := f.assignments.BulkAssign(ctx, f.caller, building.ID, []string{cleaning.ID, windows.ID})
	require.NoError(t, err)
	_, err = f.assignments.Assign(ctx, f.caller, assignment.AssignParams{
		PropertyID: u1.ID, ServiceTypeID: cleaning.ID, CustomPrice: d2n("65.00"),
	})
	require.NoError(t, err)
	off := false
	_, err = f.assignments.Assign(ctx, f.caller, assignment.AssignParams{
		PropertyID: u2.ID, ServiceTypeID: windows.ID, IsActive: &off,
	})
	require.NoError(t, err)

	invoices, err := f.svc.Generate(ctx, f.caller, GenerateParams{PropertyID: building.ID, Header: header()})
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.NotEqual(t, invoices[0].InvoiceNumber, invoices[1].InvoiceNumber)

	byProperty := map[string]*database.Invoice{}
	for _, inv := range invoices {
		byProperty[inv.PropertyID] = inv
	}
	require.Contains(t, byProperty, u1.ID)
	require.Contains(t, byProperty, u2.ID)
	assert.Equal(t, "85.00", byProperty[u1.ID].Subtotal.StringFixed(2))
	assert.Equal(t, "50.00", byProperty[u2.ID].Subtotal.StringFixed(2))
	require.Len(t, byProperty[u2.ID].Items, 1)
	assert.Equal(t, cleaning.ID, *byProperty[u2.ID].Items[0].ServiceTypeID)
}

func TestService_GenerateForPropertyWithoutChildren(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	house := f.property(t, database.PropertyHouse, nil, true)

	invoices, err := f.svc.Generate(ctx, f.caller, GenerateParams{PropertyID: house.ID, Header: header()})
	require.NoError(t, err)
	assert.Empty(t, invoices)

	cleaning := f.serviceType(t, "Cleaning", "50.00")
	_, err = f.assignments.Assign(ctx, f.caller, assignment.AssignParams{PropertyID: house.ID, ServiceTypeID: cleaning.ID})
	require.NoError(t, err)

	invoices, err = f.svc.Generate(ctx, f.caller, GenerateParams{PropertyID: house.ID, Header: header()})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, house.ID, invoices[0].PropertyID)
}

func TestService_UpdateRecomputesTotal(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	house := f.property(t, database.PropertyHouse, nil, true)
	inv := f.createInvoice(t, house, "100.00")

	discount := d("12.34")
	updated, err := f.svc.Update(ctx, f.caller, inv.ID, UpdateParams{Discount: &discount})
	require.NoError(t, err)
	assert.Equal(t, "87.66", updated.Total.StringFixed(2))
	assertTotals(t, updated)

	tax := d("0.01")
	updated, err = f.svc.Update(ctx, f.caller, inv.ID, UpdateParams{Tax: &tax})
	require.NoError(t, err)
	assert.Equal(t, "87.67", updated.Total.StringFixed(2))
	assertTotals(t, updated)

	// discounts beyond the subtotal are allowed to go negative
	big := d("150.00")
	updated, err = f.svc.Update(ctx, f.caller, inv.ID, UpdateParams{Discount: &big})
	require.NoError(t, err)
	assert.Equal(t, "-49.99", updated.Total.StringFixed(2))
	assertTotals(t, updated)
}

func TestService_RejectsSubCentAmounts(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	house := f.property(t, database.PropertyHouse, nil, true)

	withHeader := func(discount string) Header {
		h := header()
		h.Discount = d(discount)
		return h
	}
	cases := map[string]CreateParams{
		"discount":   {PropertyID: house.ID, Header: withHeader("0.005"), Items: []ItemParams{{Description: "Cleaning", UnitPrice: d("10")}}},
		"unit price": {PropertyID: house.ID, Header: header(), Items: []ItemParams{{Description: "Cleaning", UnitPrice: d("0.333")}}},
		"quantity":   {PropertyID: house.ID, Header: header(), Items: []ItemParams{{Description: "Cleaning", Quantity: decimal.NewNullDecimal(d("1.125")), UnitPrice: d("10")}}},
	}
	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.caller, params)
			assert.ErrorIs(t, err, errorx.ErrValidation)
		})
	}

	_, err := f.svc.Generate(ctx, f.caller, GenerateParams{PropertyID: house.ID, Header: withHeader("0.001")})
	assert.ErrorIs(t, err, errorx.ErrValidation)

	_, total, err := f.svc.List(ctx, f.caller, database.InvoiceFilter{}, database.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)

	// trailing zeros and two places are accepted and keep the totals exact
	inv, err := f.svc.Create(ctx, f.caller, CreateParams{
		PropertyID: house.ID,
		Header:     withHeader("0.010"),
		Items:      []ItemParams{{Description: "Cleaning", Quantity: decimal.NewNullDecimal(d("1.50")), UnitPrice: d("0.33")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "0.50", inv.Items[0].Total.StringFixed(2))
	assert.Equal(t, "0.49", inv.Total.StringFixed(2))
	assertTotals(t, inv)

	bad := d("1.234")
	_, err = f.svc.Update(ctx, f.caller, inv.ID, UpdateParams{Tax: &bad})
	assert.ErrorIs(t, err, errorx.ErrValidation)
}

func TestService_UpdateClampsWhenConfigured(t *testing.T) {
	f := newFixture(t, Config{ClampNegativeTotals: true})
	house := f.property(t, database.PropertyHouse, nil, true)
	inv := f.createInvoice(t, house, "10.00")

	big := d("50.00")
	updated, err := f.svc.Update(context.Background(), f.caller, inv.ID, UpdateParams{Discount: &big})
	require.NoError(t, err)
	assert.True(t, updated.Total.IsZero())
}

func TestService_UpdateFields(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	house := f.property(t, database.PropertyHouse, nil, true)
	inv := f.createInvoice(t, house, "10.00")

	sent := database.InvoiceSent
	notes := "thanks"
	paid := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	updated, err := f.svc.Update(ctx, f.caller, inv.ID, UpdateParams{
		Status:   &sent,
		Notes:    &notes,
		PaidDate: &sql.NullTime{Time: paid, Valid: true},
	})
	require.NoError(t, err)
	assert.Equal(t, database.InvoiceSent, updated.Status)
	assert.Equal(t, "thanks", updated.Notes)
	require.NotNil(t, updated.PaidDate)
	assert.Equal(t, paid, database.Day(*updated.PaidDate, time.UTC))
	assert.Equal(t, "10.00", updated.Total.StringFixed(2))

	// explicit null clears the paid date
	updated, err = f.svc.Update(ctx, f.caller, inv.ID, UpdateParams{PaidDate: &sql.NullTime{}})
	require.NoError(t, err)
	assert.Nil(t, updated.PaidDate)

	bogus := database.InvoiceStatus("archived")
	_, err = f.svc.Update(ctx, f.caller, inv.ID, UpdateParams{Status: &bogus})
	assert.ErrorIs(t, err, errorx.ErrValidation)

	_, err = f.svc.Update(ctx, f.caller, "missing", UpdateParams{Notes: &notes})
	assert.ErrorIs(t, err, errorx.ErrInvoiceNotFound)
}

func TestService_DeleteGuard(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	house := f.property(t, database.PropertyHouse, nil, true)

	for _, status := range []database.InvoiceStatus{database.InvoiceSent, database.InvoicePaid, database.InvoiceOverdue} {
		inv := f.createInvoice(t, house, "10.00")
		_, err := f.svc.Update(ctx, f.caller, inv.ID, UpdateParams{Status: &status})
		require.NoError(t, err)

		err = f.svc.Delete(ctx, f.caller, inv.ID)
		assert.ErrorIs(t, err, errorx.ErrCannotDelete, status)
		assert.Equal(t, errorx.KindDomain, errorx.KindOf(err))
	}

	for _, status := range []database.InvoiceStatus{database.InvoiceDraft, database.InvoiceCancelled} {
		inv := f.createInvoice(t, house, "10.00", "5.00")
		_, err := f.svc.Update(ctx, f.caller, inv.ID, UpdateParams{Status: &status})
		require.NoError(t, err)

		require.NoError(t, f.svc.Delete(ctx, f.caller, inv.ID))
		_, err = f.svc.Get(ctx, f.caller, inv.ID)
		assert.ErrorIs(t, err, errorx.ErrInvoiceNotFound)

		var live int64
		require.NoError(t, f.store.DB(ctx).Model(&database.InvoiceItem{}).Where("invoice_id = ?", inv.ID).Count(&live).Error)
		assert.Zero(t, live)
		var all int64
		require.NoError(t, f.store.DB(ctx).Unscoped().Model(&database.InvoiceItem{}).Where("invoice_id = ?", inv.ID).Count(&all).Error)
		assert.EqualValues(t, 2, all)
	}

	assert.ErrorIs(t, f.svc.Delete(ctx, f.caller, "missing"), errorx.ErrInvoiceNotFound)
}

func TestService_MarkOverdue(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	house := f.property(t, database.PropertyHouse, nil, true)

	past := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	setup := func(status database.InvoiceStatus, due time.Time) *database.Invoice {
		inv := f.createInvoice(t, house, "10.00")
		_, err := f.svc.Update(ctx, f.caller, inv.ID, UpdateParams{Status: &status, DueDate: &due})
		require.NoError(t, err)
		return inv
	}
	sentPast := setup(database.InvoiceSent, past)
	draftPast := setup(database.InvoiceDraft, past)
	sentToday := setup(database.InvoiceSent, today)
	paidPast := setup(database.InvoicePaid, past)

	count, err := f.svc.MarkOverdue(ctx, f.caller)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	expect := map[string]database.InvoiceStatus{
		sentPast.ID:  database.InvoiceOverdue,
		draftPast.ID: database.InvoiceDraft,
		sentToday.ID: database.InvoiceSent,
		paidPast.ID:  database.InvoicePaid,
	}
	for id, status := range expect {
		inv, err := f.svc.Get(ctx, f.caller, id)
		require.NoError(t, err)
		assert.Equal(t, status, inv.Status)
	}

	// idempotent
	count, err = f.svc.MarkOverdue(ctx, f.caller)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestService_MarkOverdueStaysInTenant(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	house := f.property(t, database.PropertyHouse, nil, true)
	inv := f.createInvoice(t, house, "10.00")
	sent := database.InvoiceSent
	past := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.Update(ctx, f.caller, inv.ID, UpdateParams{Status: &sent, DueDate: &past})
	require.NoError(t, err)

	other := databasetest.Tenant(t, f.store, "other")
	count, err := f.svc.MarkOverdue(ctx, other)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = f.svc.MarkOverdue(ctx, identity.System().ForTenant(f.caller.TenantID))
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestService_TenantIsolation(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	house := f.property(t, database.PropertyHouse, nil, true)
	inv := f.createInvoice(t, house, "10.00")

	other := databasetest.Tenant(t, f.store, "other")
	_, err := f.svc.Get(ctx, other, inv.ID)
	assert.ErrorIs(t, err, errorx.ErrInvoiceNotFound)
	notes := "x"
	_, err = f.svc.Update(ctx, other, inv.ID, UpdateParams{Notes: &notes})
	assert.ErrorIs(t, err, errorx.ErrInvoiceNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, other, inv.ID), errorx.ErrInvoiceNotFound)
	_, err = f.svc.Generate(ctx, other, GenerateParams{PropertyID: house.ID, Header: header()})
	assert.ErrorIs(t, err, errorx.ErrPropertyNotFound)

	list, total, err := f.svc.List(ctx, other, database.InvoiceFilter{}, database.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)

	list, total, err = f.svc.List(ctx, f.caller, database.InvoiceFilter{Status: database.InvoiceDraft, PropertyID: house.ID}, database.Page{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, inv.ID, list[0].ID)
}

func TestService_ReadOnlyCallerCannotWrite(t *testing.T) {
	f := newFixture(t, Config{})
	house := f.property(t, database.PropertyHouse, nil, true)
	reader := f.caller
	reader.Role = identity.RoleUser

	_, err := f.svc.Create(context.Background(), reader, CreateParams{PropertyID: house.ID, Header: header()})
	assert.ErrorIs(t, err, errorx.ErrForbidden)
	_, err = f.svc.MarkOverdue(context.Background(), reader)
	assert.ErrorIs(t, err, errorx.ErrForbidden)
}

func d2n(s string) decimal.NullDecimal { return decimal.NewNullDecimal(d(s)) }

func intPtr(i int) *int { return &i }
