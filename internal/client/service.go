// Package client manages the customers that own properties.
package client

import (
	"context"
	"strings"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"

	"go.uber.org/zap"
)

type Store interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	CreateClient(ctx context.Context, client *database.Client) error
	GetClient(ctx context.Context, caller identity.Caller, id string) (*database.Client, error)
	ListClients(ctx context.Context, caller identity.Caller, filter database.ClientFilter, page database.Page) ([]*database.Client, int64, error)
	ClientNameTaken(ctx context.Context, tenantID, name, excludeID string) (bool, error)
	ClientPropertyCounts(ctx context.Context, clientIDs []string) (map[string]int64, error)
	ClientPropertyIDs(ctx context.Context, clientID string) ([]string, error)
	ChildPropertyIDs(ctx context.Context, parentIDs []string) ([]string, error)
	UpdateColumns(ctx context.Context, model any, columns ...string) error
	SoftDeleteClient(ctx context.Context, id string) error
	SoftDeleteProperties(ctx context.Context, ids []string) error
	SoftDeletePropertyAssignments(ctx context.Context, propertyIDs []string) error
}

type CreateParams struct {
	Name           string
	Email          string
	Phone          string
	Address        string
	BillingAddress string
	Notes          string
}

// UpdateParams changes a client; nil fields are left untouched
type UpdateParams struct {
	Name           *string
	Email          *string
	Phone          *string
	Address        *string
	BillingAddress *string
	Notes          *string
	IsActive       *bool
}

// Summary is a listed client with the number of live properties it owns
type Summary struct {
	*database.Client
	PropertyCount int64
}

type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.Named("client"),
	}
}

func (s *Service) Get(ctx context.Context, caller identity.Caller, id string) (*database.Client, error) {
	return s.store.GetClient(ctx, caller, id)
}

// List returns clients ordered by name, each with its property count
func (s *Service) List(ctx context.Context, caller identity.Caller, filter database.ClientFilter, page database.Page) ([]Summary, int64, error) {
	clients, total, err := s.store.ListClients(ctx, caller, filter, page)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]string, len(clients))
	for i, c := range clients {
		ids[i] = c.ID
	}
	counts, err := s.store.ClientPropertyCounts(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]Summary, len(clients))
	for i, c := range clients {
		summaries[i] = Summary{Client: c, PropertyCount: counts[c.ID]}
	}
	return summaries, total, nil
}

// Create adds a client in the caller's tenant. Names are unique among live clients.
func (s *Service) Create(ctx context.Context, caller identity.Caller, params CreateParams) (*database.Client, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, errorx.ErrValidation.WithDetail("reason", "name is required")
	}

	client := &database.Client{
		Base:           database.Base{TenantID: caller.TenantID},
		Name:           name,
		Email:          params.Email,
		Phone:          params.Phone,
		Address:        params.Address,
		BillingAddress: params.BillingAddress,
		Notes:          params.Notes,
		IsActive:       true,
	}
	err := s.store.Transaction(ctx, func(ctx context.Context) error {
		if err := s.checkName(ctx, caller.TenantID, name, ""); err != nil {
			return err
		}
		return s.store.CreateClient(ctx, client)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("client created", zap.String("tenant_id", client.TenantID), zap.String("client_id", client.ID), zap.String("by", caller.UserID))
	return client, nil
}

func (s *Service) Update(ctx context.Context, caller identity.Caller, id string, params UpdateParams) (*database.Client, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}

	var client *database.Client
	err := s.store.Transaction(ctx, func(ctx context.Context) error {
		var err error
		client, err = s.store.GetClient(ctx, caller, id)
		if err != nil {
			return err
		}

		var columns []string
		if params.Name != nil {
			name := strings.TrimSpace(*params.Name)
			if name == "" {
				return errorx.ErrValidation.WithDetail("reason", "name is required")
			}
			if name != client.Name {
				if err := s.checkName(ctx, client.TenantID, name, client.ID); err != nil {
					return err
				}
				client.Name = name
				columns = append(columns, "name")
			}
		}
		set := func(column string, dst *string, v *string) {
			if v != nil {
				*dst = *v
				columns = append(columns, column)
			}
		}
		set("email", &client.Email, params.Email)
		set("phone", &client.Phone, params.Phone)
		set("address", &client.Address, params.Address)
		set("billing_address", &client.BillingAddress, params.BillingAddress)
		set("notes", &client.Notes, params.Notes)
		if params.IsActive != nil {
			client.IsActive = *params.IsActive
			columns = append(columns, "is_active")
		}
		if len(columns) == 0 {
			return nil
		}
		if err := s.store.UpdateColumns(ctx, client, columns...); err != nil {
			return err
		}
		s.logger.Info("client updated", zap.String("client_id", id), zap.Strings("fields", columns), zap.String("by", caller.UserID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Delete soft deletes a client, its properties, their units and every
// assignment hanging off them
func (s *Service) Delete(ctx context.Context, caller identity.Caller, id string) error {
	if err := caller.RequireWrite(); err != nil {
		return err
	}

	return s.store.Transaction(ctx, func(ctx context.Context) error {
		client, err := s.store.GetClient(ctx, caller, id)
		if err != nil {
			return err
		}
		owned, err := s.store.ClientPropertyIDs(ctx, client.ID)
		if err != nil {
			return err
		}
		children, err := s.store.ChildPropertyIDs(ctx, owned)
		if err != nil {
			return err
		}
		ids := dedupe(append(owned, children...))

		if err := s.store.SoftDeletePropertyAssignments(ctx, ids); err != nil {
			return err
		}
		if err := s.store.SoftDeleteProperties(ctx, ids); err != nil {
			return err
		}
		if err := s.store.SoftDeleteClient(ctx, client.ID); err != nil {
			return err
		}
		s.logger.Info("client deleted", zap.String("client_id", id), zap.Int("properties", len(ids)), zap.String("by", caller.UserID))
		return nil
	})
}

func (s *Service) checkName(ctx context.Context, tenantID, name, excludeID string) error {
	taken, err := s.store.ClientNameTaken(ctx, tenantID, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return errorx.ErrNameExists.WithDetail("name", name)
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
