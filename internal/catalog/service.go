// Package catalog manages a tenant's service types and their checklists.
package catalog

import (
	"context"
	"strings"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Store interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	CreateServiceType(ctx context.Context, st *database.ServiceType) error
	GetServiceType(ctx context.Context, caller identity.Caller, id string) (*database.ServiceType, error)
	ListServiceTypes(ctx context.Context, caller identity.Caller, filter database.ServiceTypeFilter, page database.Page) ([]*database.ServiceType, int64, error)
	ServiceTypeNameTaken(ctx context.Context, tenantID, name, excludeID string) (bool, error)
	ReplaceChecklist(ctx context.Context, st *database.ServiceType, items []database.ChecklistItem) error
	UpdateColumns(ctx context.Context, model any, columns ...string) error
	SoftDeleteServiceType(ctx context.Context, id string) error
}

type ChecklistItemParams struct {
	Name        string
	Description string
	SortOrder   int
}

type CreateParams struct {
	Name                     string
	Description              string
	BasePrice                decimal.Decimal
	EstimatedDurationMinutes *int
	Checklist                []ChecklistItemParams
}

// UpdateParams changes a service type; nil fields are left untouched
type UpdateParams struct {
	Name                     *string
	Description              *string
	BasePrice                *decimal.Decimal
	EstimatedDurationMinutes *int
	IsActive                 *bool
}

type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.Named("catalog"),
	}
}

// Get returns a live service type with its checklist in order
func (s *Service) Get(ctx context.Context, caller identity.Caller, id string) (*database.ServiceType, error) {
	return s.store.GetServiceType(ctx, caller, id)
}

func (s *Service) List(ctx context.Context, caller identity.Caller, filter database.ServiceTypeFilter, page database.Page) ([]*database.ServiceType, int64, error) {
	return s.store.ListServiceTypes(ctx, caller, filter, page)
}

// Create adds a service type and its checklist in the caller's tenant
func (s *Service) Create(ctx context.Context, caller identity.Caller, params CreateParams) (*database.ServiceType, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(params.Name)
	if err := validate(name, params.BasePrice, params.EstimatedDurationMinutes); err != nil {
		return nil, err
	}
	items, err := checklist(params.Checklist)
	if err != nil {
		return nil, err
	}

	st := &database.ServiceType{
		Base:                     database.Base{TenantID: caller.TenantID},
		Name:                     name,
		Description:              params.Description,
		BasePrice:                params.BasePrice,
		EstimatedDurationMinutes: params.EstimatedDurationMinutes,
		IsActive:                 true,
	}
	err = s.store.Transaction(ctx, func(ctx context.Context) error {
		if err := s.checkName(ctx, caller.TenantID, name, ""); err != nil {
			return err
		}
		if err := s.store.CreateServiceType(ctx, st); err != nil {
			return err
		}
		return s.store.ReplaceChecklist(ctx, st, items)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("service type created",
		zap.String("tenant_id", st.TenantID),
		zap.String("service_type_id", st.ID),
		zap.Int("checklist_items", len(items)),
		zap.String("by", caller.UserID))
	return s.store.GetServiceType(ctx, caller, st.ID)
}

func (s *Service) Update(ctx context.Context, caller identity.Caller, id string, params UpdateParams) (*database.ServiceType, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}

	err := s.store.Transaction(ctx, func(ctx context.Context) error {
		st, err := s.store.GetServiceType(ctx, caller, id)
		if err != nil {
			return err
		}

		var columns []string
		if params.Name != nil {
			name := strings.TrimSpace(*params.Name)
			if name != st.Name {
				if err := s.checkName(ctx, st.TenantID, name, st.ID); err != nil {
					return err
				}
				st.Name = name
				columns = append(columns, "name")
			}
		}
		if params.Description != nil {
			st.Description = *params.Description
			columns = append(columns, "description")
		}
		if params.BasePrice != nil {
			st.BasePrice = *params.BasePrice
			columns = append(columns, "base_price")
		}
		if params.EstimatedDurationMinutes != nil {
			st.EstimatedDurationMinutes = params.EstimatedDurationMinutes
			columns = append(columns, "estimated_duration_minutes")
		}
		if params.IsActive != nil {
			st.IsActive = *params.IsActive
			columns = append(columns, "is_active")
		}
		if err := validate(st.Name, st.BasePrice, st.EstimatedDurationMinutes); err != nil {
			return err
		}
		if len(columns) == 0 {
			return nil
		}
		if err := s.store.UpdateColumns(ctx, st, columns...); err != nil {
			return err
		}
		s.logger.Info("service type updated", zap.String("service_type_id", id), zap.Strings("fields", columns), zap.String("by", caller.UserID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetServiceType(ctx, caller, id)
}

// ReplaceChecklist swaps the whole checklist of a service type
func (s *Service) ReplaceChecklist(ctx context.Context, caller identity.Caller, id string, items []ChecklistItemParams) (*database.ServiceType, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	rows, err := checklist(items)
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(ctx context.Context) error {
		st, err := s.store.GetServiceType(ctx, caller, id)
		if err != nil {
			return err
		}
		if err := s.store.ReplaceChecklist(ctx, st, rows); err != nil {
			return err
		}
		s.logger.Info("checklist replaced", zap.String("service_type_id", id), zap.Int("items", len(rows)), zap.String("by", caller.UserID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetServiceType(ctx, caller, id)
}

// Delete deactivates and soft deletes a service type with its checklist.
// Existing assignments keep billing at the type's last price.
func (s *Service) Delete(ctx context.Context, caller identity.Caller, id string) error {
	if err := caller.RequireWrite(); err != nil {
		return err
	}

	return s.store.Transaction(ctx, func(ctx context.Context) error {
		st, err := s.store.GetServiceType(ctx, caller, id)
		if err != nil {
			return err
		}
		st.IsActive = false
		if err := s.store.UpdateColumns(ctx, st, "is_active"); err != nil {
			return err
		}
		if err := s.store.SoftDeleteServiceType(ctx, st.ID); err != nil {
			return err
		}
		s.logger.Info("service type deleted", zap.String("service_type_id", id), zap.String("by", caller.UserID))
		return nil
	})
}

func (s *Service) checkName(ctx context.Context, tenantID, name, excludeID string) error {
	taken, err := s.store.ServiceTypeNameTaken(ctx, tenantID, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return errorx.ErrNameExists.WithDetail("name", name)
	}
	return nil
}

func validate(name string, basePrice decimal.Decimal, minutes *int) error {
	switch {
	case name == "":
		return errorx.ErrValidation.WithDetail("reason", "name is required")
	case basePrice.IsNegative():
		return errorx.ErrValidation.WithDetail("reason", "base price must not be negative")
	case minutes != nil && *minutes < 0:
		return errorx.ErrValidation.WithDetail("reason", "estimated duration must not be negative")
	}
	return database.CheckScale("basePrice", basePrice)
}

func checklist(params []ChecklistItemParams) ([]database.ChecklistItem, error) {
	items := make([]database.ChecklistItem, 0, len(params))
	for _, p := range params {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, errorx.ErrValidation.WithDetail("reason", "checklist item name is required")
		}
		items = append(items, database.ChecklistItem{
			Name:        name,
			Description: p.Description,
			SortOrder:   p.SortOrder,
		})
	}
	return items, nil
}
