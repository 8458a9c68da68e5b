// Package property manages properties and the one-level building/unit hierarchy.
package property

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"

	"go.uber.org/zap"
)

// Store is the persistence the property service needs
type Store interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	GetClient(ctx context.Context, caller identity.Caller, id string) (*database.Client, error)
	CreateProperty(ctx context.Context, property *database.Property) error
	CreateProperties(ctx context.Context, properties []*database.Property) error
	GetProperty(ctx context.Context, caller identity.Caller, id string) (*database.Property, error)
	GetPropertyForUpdate(ctx context.Context, caller identity.Caller, id string) (*database.Property, error)
	ListProperties(ctx context.Context, caller identity.Caller, filter database.PropertyFilter, page database.Page) ([]*database.Property, int64, error)
	CountChildren(ctx context.Context, parentID string) (int64, error)
	ChildPropertyIDs(ctx context.Context, parentIDs []string) ([]string, error)
	ParentOf(ctx context.Context, id string) (string, error)
	UpdateColumns(ctx context.Context, model any, columns ...string) error
	SoftDeleteProperties(ctx context.Context, ids []string) error
	SoftDeletePropertyAssignments(ctx context.Context, propertyIDs []string) error
}

// MaxUnits bounds NumberOfUnits on building creation
const MaxUnits = 500

type CreateParams struct {
	ClientID         *string
	ParentPropertyID *string
	PropertyType     database.PropertyType
	Name             string
	Address          string
	City             string
	PostalCode       string
	Notes            string
	// IsActive defaults to true when nil
	IsActive *bool
	// NumberOfUnits creates "Unit 1".."Unit N" children; buildings only
	NumberOfUnits int
}

// UpdateParams changes a property; nil fields are left untouched. ClientID and
// ParentPropertyID clear the reference when present but not Valid.
type UpdateParams struct {
	ClientID         *sql.NullString
	ParentPropertyID *sql.NullString
	PropertyType     *database.PropertyType
	Name             *string
	Address          *string
	City             *string
	PostalCode       *string
	Notes            *string
	IsActive         *bool
}

type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.Named("property"),
	}
}

// Get returns a live property with its client and live children
func (s *Service) Get(ctx context.Context, caller identity.Caller, id string) (*database.Property, error) {
	return s.store.GetProperty(ctx, caller, id)
}

func (s *Service) List(ctx context.Context, caller identity.Caller, filter database.PropertyFilter, page database.Page) ([]*database.Property, int64, error) {
	return s.store.ListProperties(ctx, caller, filter, page)
}

// Create adds a property, and for buildings optionally its numbered units
func (s *Service) Create(ctx context.Context, caller identity.Caller, params CreateParams) (*database.Property, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	if !params.PropertyType.Valid() {
		return nil, errorx.ErrValidation.WithDetail("reason", "unknown property type "+string(params.PropertyType))
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, errorx.ErrValidation.WithDetail("reason", "name is required")
	}
	if params.NumberOfUnits < 0 || params.NumberOfUnits > MaxUnits {
		return nil, errorx.ErrValidation.WithDetail("reason", fmt.Sprintf("number of units must be between 0 and %d", MaxUnits))
	}
	if params.NumberOfUnits > 0 && params.PropertyType != database.PropertyBuilding {
		return nil, errorx.ErrInvalidUnitCount
	}
	if hasRef(params.ParentPropertyID) && params.PropertyType != database.PropertyUnit {
		return nil, errorx.ErrInvalidChildType
	}

	var id string
	err := s.store.Transaction(ctx, func(ctx context.Context) error {
		tenantID := caller.TenantID
		if hasRef(params.ClientID) {
			client, err := s.store.GetClient(ctx, caller, *params.ClientID)
			if err != nil {
				return err
			}
			tenantID = client.TenantID
		}
		if hasRef(params.ParentPropertyID) {
			parent, err := s.parent(ctx, caller, *params.ParentPropertyID)
			if err != nil {
				return err
			}
			if hasRef(params.ClientID) && parent.TenantID != tenantID {
				return errorx.ErrParentNotFound
			}
			tenantID = parent.TenantID
		}

		isActive := true
		if params.IsActive != nil {
			isActive = *params.IsActive
		}
		property := &database.Property{
			Base:             database.Base{TenantID: tenantID},
			ClientID:         ref(params.ClientID),
			ParentPropertyID: ref(params.ParentPropertyID),
			PropertyType:     params.PropertyType,
			Name:             params.Name,
			Address:          params.Address,
			City:             params.City,
			PostalCode:       params.PostalCode,
			Notes:            params.Notes,
			IsActive:         isActive,
		}
		if err := s.store.CreateProperty(ctx, property); err != nil {
			return err
		}
		id = property.ID

		units := make([]*database.Property, 0, params.NumberOfUnits)
		for i := 1; i <= params.NumberOfUnits; i++ {
			parentID := property.ID
			units = append(units, &database.Property{
				Base:             database.Base{TenantID: tenantID},
				ClientID:         property.ClientID,
				ParentPropertyID: &parentID,
				PropertyType:     database.PropertyUnit,
				Name:             fmt.Sprintf("Unit %d", i),
				Address:          property.Address,
				City:             property.City,
				PostalCode:       property.PostalCode,
				IsActive:         true,
			})
		}
		return s.store.CreateProperties(ctx, units)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("property created",
		zap.String("property_id", id),
		zap.String("type", string(params.PropertyType)),
		zap.Int("units", params.NumberOfUnits),
		zap.String("by", caller.UserID))
	return s.store.GetProperty(ctx, caller, id)
}

// Update applies the given fields, enforcing the hierarchy rules on the
// resulting type and parent
func (s *Service) Update(ctx context.Context, caller identity.Caller, id string, params UpdateParams) (*database.Property, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	if params.PropertyType != nil && !params.PropertyType.Valid() {
		return nil, errorx.ErrValidation.WithDetail("reason", "unknown property type "+string(*params.PropertyType))
	}
	if params.Name != nil && strings.TrimSpace(*params.Name) == "" {
		return nil, errorx.ErrValidation.WithDetail("reason", "name is required")
	}

	err := s.store.Transaction(ctx, func(ctx context.Context) error {
		property, err := s.store.GetPropertyForUpdate(ctx, caller, id)
		if err != nil {
			return err
		}

		var columns []string
		if params.ClientID != nil {
			if params.ClientID.Valid {
				client, err := s.store.GetClient(ctx, caller, params.ClientID.String)
				if err != nil {
					return err
				}
				if client.TenantID != property.TenantID {
					return errorx.ErrClientNotFound
				}
			}
			property.ClientID = nullRef(*params.ClientID)
			columns = append(columns, "client_id")
		}
		if params.PropertyType != nil {
			property.PropertyType = *params.PropertyType
			columns = append(columns, "property_type")
		}
		if params.ParentPropertyID != nil {
			property.ParentPropertyID = nullRef(*params.ParentPropertyID)
			columns = append(columns, "parent_property_id")
		}
		if params.PropertyType != nil || params.ParentPropertyID != nil {
			if err := s.checkHierarchy(ctx, caller, property); err != nil {
				return err
			}
		}

		if params.Name != nil {
			property.Name = *params.Name
			columns = append(columns, "name")
		}
		if params.Address != nil {
			property.Address = *params.Address
			columns = append(columns, "address")
		}
		if params.City != nil {
			property.City = *params.City
			columns = append(columns, "city")
		}
		if params.PostalCode != nil {
			property.PostalCode = *params.PostalCode
			columns = append(columns, "postal_code")
		}
		if params.Notes != nil {
			property.Notes = *params.Notes
			columns = append(columns, "notes")
		}
		if params.IsActive != nil {
			property.IsActive = *params.IsActive
			columns = append(columns, "is_active")
		}
		if len(columns) == 0 {
			return nil
		}
		if err := s.store.UpdateColumns(ctx, property, columns...); err != nil {
			return err
		}
		s.logger.Info("property updated", zap.String("property_id", id), zap.Strings("fields", columns), zap.String("by", caller.UserID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetProperty(ctx, caller, id)
}

// Delete soft deletes a property together with its live children and the
// assignments of both
func (s *Service) Delete(ctx context.Context, caller identity.Caller, id string) error {
	if err := caller.RequireWrite(); err != nil {
		return err
	}

	return s.store.Transaction(ctx, func(ctx context.Context) error {
		property, err := s.store.GetPropertyForUpdate(ctx, caller, id)
		if err != nil {
			return err
		}
		children, err := s.store.ChildPropertyIDs(ctx, []string{property.ID})
		if err != nil {
			return err
		}
		ids := append([]string{property.ID}, children...)
		if err := s.store.SoftDeletePropertyAssignments(ctx, ids); err != nil {
			return err
		}
		if err := s.store.SoftDeleteProperties(ctx, ids); err != nil {
			return err
		}
		s.logger.Info("property deleted", zap.String("property_id", id), zap.Int("children", len(children)), zap.String("by", caller.UserID))
		return nil
	})
}

// checkHierarchy validates the type and parent a property is about to be saved with
func (s *Service) checkHierarchy(ctx context.Context, caller identity.Caller, property *database.Property) error {
	if property.PropertyType == database.PropertyUnit {
		// a unit cannot be a parent itself
		n, err := s.store.CountChildren(ctx, property.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return errorx.ErrHasChildren.WithDetail("children", n)
		}
	}
	if !property.HasParent() {
		return nil
	}
	if property.PropertyType != database.PropertyUnit {
		return errorx.ErrInvalidChildType
	}

	parentID := *property.ParentPropertyID
	if parentID == property.ID {
		return errorx.ErrParentCycle
	}
	parent, err := s.parent(ctx, caller, parentID)
	if err != nil {
		return err
	}
	if parent.TenantID != property.TenantID {
		return errorx.ErrParentNotFound
	}
	return s.checkCycle(ctx, property.ID, parentID)
}

// checkCycle walks the ancestors of parentID and fails if it reaches id
func (s *Service) checkCycle(ctx context.Context, id, parentID string) error {
	visited := map[string]bool{id: true}
	for current := parentID; current != ""; {
		if visited[current] {
			return errorx.ErrParentCycle
		}
		visited[current] = true
		next, err := s.store.ParentOf(ctx, current)
		if err != nil {
			return err
		}
		current = next
	}
	return nil
}

// parent loads a prospective parent; units cannot take children
func (s *Service) parent(ctx context.Context, caller identity.Caller, id string) (*database.Property, error) {
	parent, err := s.store.GetProperty(ctx, caller, id)
	if errors.Is(err, errorx.ErrPropertyNotFound) {
		return nil, errorx.ErrParentNotFound
	}
	if err != nil {
		return nil, err
	}
	if parent.PropertyType == database.PropertyUnit {
		return nil, errorx.ErrInvalidParent
	}
	return parent, nil
}

func hasRef(id *string) bool {
	return id != nil && *id != ""
}

func ref(id *string) *string {
	if !hasRef(id) {
		return nil
	}
	v := *id
	return &v
}

func nullRef(v sql.NullString) *string {
	if !v.Valid || v.String == "" {
		return nil
	}
	s := v.String
	return &s
}
