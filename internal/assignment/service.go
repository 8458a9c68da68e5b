package assignment

import (
	"context"
	"errors"
	"sort"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/common/cnst"
	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"
	"github.com/amoylab/cleanbill/pkg/trace"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Store is the persistence the assignment service needs
type Store interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	GetProperty(ctx context.Context, caller identity.Caller, id string) (*database.Property, error)
	GetPropertyForUpdate(ctx context.Context, caller identity.Caller, id string) (*database.Property, error)
	GetServiceType(ctx context.Context, caller identity.Caller, id string) (*database.ServiceType, error)
	FindServiceTypes(ctx context.Context, tenantID string, ids []string) ([]*database.ServiceType, error)
	GetAssignment(ctx context.Context, caller identity.Caller, id string) (*database.PropertyServiceType, error)
	PropertyAssignments(ctx context.Context, propertyID string) ([]database.PropertyServiceType, error)
	AssignedServiceTypeIDs(ctx context.Context, propertyID string, serviceTypeIDs []string) (map[string]bool, error)
	CreateAssignment(ctx context.Context, a *database.PropertyServiceType) error
	UpdateColumns(ctx context.Context, model any, columns ...string) error
	SoftDeleteAssignment(ctx context.Context, id string) error
	HardDeleteAssignment(ctx context.Context, id string) error
}

// AssignParams describes a single assignment
type AssignParams struct {
	PropertyID    string
	ServiceTypeID string
	CustomPrice   decimal.NullDecimal
	// IsActive defaults to true when nil
	IsActive *bool
}

// UpdateParams changes an assignment. A nil CustomPrice leaves the price
// untouched; a non-nil invalid one clears the override.
type UpdateParams struct {
	CustomPrice *decimal.NullDecimal
	IsActive    *bool
}

// Service manages assignments and resolves effective services
type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.Named("assignment"),
	}
}

// EffectiveServices resolves the services that apply to a property visible to the caller
func (s *Service) EffectiveServices(ctx context.Context, caller identity.Caller, propertyID string) ([]EffectiveService, error) {
	property, err := s.store.GetProperty(ctx, caller, propertyID)
	if err != nil {
		return nil, err
	}
	return s.ResolveProperty(ctx, property)
}

// ResolveProperty resolves an already loaded property. Ownership is the caller's concern.
func (s *Service) ResolveProperty(ctx context.Context, property *database.Property) ([]EffectiveService, error) {
	span := trace.Tracer(cnst.TraceCatalog).Start(ctx, cnst.SpanResolveServices).
		WithAttrs(attribute.String(cnst.AttrPropertyID, property.ID))
	defer span.End()
	ctx = span.Ctx

	direct, err := s.store.PropertyAssignments(ctx, property.ID)
	if err != nil {
		span.Fail(err)
		return nil, err
	}

	var parent []database.PropertyServiceType
	if property.HasParent() {
		parent, err = s.store.PropertyAssignments(ctx, *property.ParentPropertyID)
		if err != nil {
			span.Fail(err)
			return nil, err
		}
	}
	return Resolve(direct, parent), nil
}

// List returns the live assignments of a property
func (s *Service) List(ctx context.Context, caller identity.Caller, propertyID string) ([]database.PropertyServiceType, error) {
	if _, err := s.store.GetProperty(ctx, caller, propertyID); err != nil {
		return nil, err
	}
	return s.store.PropertyAssignments(ctx, propertyID)
}

// Get returns one live assignment
func (s *Service) Get(ctx context.Context, caller identity.Caller, id string) (*database.PropertyServiceType, error) {
	return s.store.GetAssignment(ctx, caller, id)
}

// Assign creates one assignment. A live assignment for the same pair is a conflict.
func (s *Service) Assign(ctx context.Context, caller identity.Caller, params AssignParams) (*database.PropertyServiceType, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	if err := checkPrice(params.CustomPrice); err != nil {
		return nil, err
	}

	var created *database.PropertyServiceType
	err := s.store.Transaction(ctx, func(ctx context.Context) error {
		// the property row lock serializes concurrent assigns to it
		property, err := s.store.GetPropertyForUpdate(ctx, caller, params.PropertyID)
		if err != nil {
			return err
		}
		st, err := s.store.GetServiceType(ctx, caller, params.ServiceTypeID)
		if err != nil {
			return err
		}
		if st.TenantID != property.TenantID {
			return errorx.ErrServiceTypeNotFound
		}

		assigned, err := s.store.AssignedServiceTypeIDs(ctx, property.ID, []string{st.ID})
		if err != nil {
			return err
		}
		if assigned[st.ID] {
			return errorx.ErrAlreadyAssigned.
				WithDetail("propertyId", property.ID).
				WithDetail("serviceTypeId", st.ID)
		}

		isActive := true
		if params.IsActive != nil {
			isActive = *params.IsActive
		}
		a := &database.PropertyServiceType{
			Base:          database.Base{TenantID: property.TenantID},
			PropertyID:    property.ID,
			ServiceTypeID: st.ID,
			CustomPrice:   params.CustomPrice,
			IsActive:      isActive,
		}
		if err := s.store.CreateAssignment(ctx, a); err != nil {
			return err
		}
		a.ServiceType = st
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("service assigned",
		zap.String("tenant_id", created.TenantID),
		zap.String("property_id", created.PropertyID),
		zap.String("service_type_id", created.ServiceTypeID),
		zap.String("by", caller.UserID))
	return created, nil
}

// BulkAssign assigns every listed service type that is not yet assigned and
// returns the property's full assignment list. Missing service types fail the
// whole call.
func (s *Service) BulkAssign(ctx context.Context, caller identity.Caller, propertyID string, serviceTypeIDs []string) ([]database.PropertyServiceType, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	ids := dedupe(serviceTypeIDs)

	var result []database.PropertyServiceType
	err := s.store.Transaction(ctx, func(ctx context.Context) error {
		property, err := s.store.GetPropertyForUpdate(ctx, caller, propertyID)
		if err != nil {
			return err
		}

		found, err := s.store.FindServiceTypes(ctx, property.TenantID, ids)
		if err != nil {
			return err
		}
		if missing := missingIDs(ids, found); len(missing) > 0 {
			return errorx.ErrServiceTypeNotFound.WithDetail("missing", missing)
		}

		assigned, err := s.store.AssignedServiceTypeIDs(ctx, property.ID, ids)
		if err != nil {
			return err
		}
		created := 0
		for _, id := range ids {
			if assigned[id] {
				continue
			}
			a := &database.PropertyServiceType{
				Base:          database.Base{TenantID: property.TenantID},
				PropertyID:    property.ID,
				ServiceTypeID: id,
				IsActive:      true,
			}
			if err := s.store.CreateAssignment(ctx, a); err != nil {
				return err
			}
			created++
		}

		s.logger.Info("services bulk assigned",
			zap.String("property_id", property.ID),
			zap.Int("requested", len(ids)),
			zap.Int("created", created),
			zap.String("by", caller.UserID))

		result, err = s.store.PropertyAssignments(ctx, property.ID)
		return err
	})
	return result, err
}

// Update changes the custom price or active flag of a live assignment
func (s *Service) Update(ctx context.Context, caller identity.Caller, id string, params UpdateParams) (*database.PropertyServiceType, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	if params.CustomPrice != nil {
		if err := checkPrice(*params.CustomPrice); err != nil {
			return nil, err
		}
	}

	a, err := s.store.GetAssignment(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	var columns []string
	if params.CustomPrice != nil {
		a.CustomPrice = *params.CustomPrice
		columns = append(columns, "custom_price")
	}
	if params.IsActive != nil {
		a.IsActive = *params.IsActive
		columns = append(columns, "is_active")
	}
	if len(columns) == 0 {
		return a, nil
	}
	if err := s.store.UpdateColumns(ctx, a, columns...); err != nil {
		return nil, err
	}

	s.logger.Info("assignment updated", zap.String("assignment_id", id), zap.Strings("fields", columns), zap.String("by", caller.UserID))
	return a, nil
}

// Remove deletes an assignment: child overrides are hard deleted, root assignments soft deleted
func (s *Service) Remove(ctx context.Context, caller identity.Caller, id string) error {
	if err := caller.RequireWrite(); err != nil {
		return err
	}

	return s.store.Transaction(ctx, func(ctx context.Context) error {
		a, err := s.store.GetAssignment(ctx, caller, id)
		if err != nil {
			return err
		}
		// the property may already be gone; treat it as a root then
		override := false
		property, err := s.store.GetProperty(ctx, caller, a.PropertyID)
		switch {
		case err == nil:
			override = property.HasParent()
		case !errors.Is(err, errorx.ErrPropertyNotFound):
			return err
		}

		if override {
			err = s.store.HardDeleteAssignment(ctx, id)
		} else {
			err = s.store.SoftDeleteAssignment(ctx, id)
		}
		if err != nil {
			return err
		}
		s.logger.Info("assignment removed", zap.String("assignment_id", id), zap.Bool("override", override), zap.String("by", caller.UserID))
		return nil
	})
}

func checkPrice(price decimal.NullDecimal) error {
	if !price.Valid {
		return nil
	}
	return database.CheckScale("customPrice", price.Decimal)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func missingIDs(want []string, found []*database.ServiceType) []string {
	have := make(map[string]bool, len(found))
	for _, st := range found {
		have[st.ID] = true
	}
	var missing []string
	for _, id := range want {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}
