package dto

import (
	"time"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/client"
)

type CreateClientRequest struct {
	Name           string `json:"name" binding:"required,max=255"`
	Email          string `json:"email" binding:"omitempty,email,max=255"`
	Phone          string `json:"phone" binding:"max=50"`
	Address        string `json:"address"`
	BillingAddress string `json:"billingAddress"`
	Notes          string `json:"notes"`
}

func (r CreateClientRequest) Params() client.CreateParams {
	return client.CreateParams{
		Name:           r.Name,
		Email:          r.Email,
		Phone:          r.Phone,
		Address:        r.Address,
		BillingAddress: r.BillingAddress,
		Notes:          r.Notes,
	}
}

type UpdateClientRequest struct {
	Name           *string `json:"name" binding:"omitempty,min=1,max=255"`
	Email          *string `json:"email" binding:"omitempty,max=255"`
	Phone          *string `json:"phone" binding:"omitempty,max=50"`
	Address        *string `json:"address"`
	BillingAddress *string `json:"billingAddress"`
	Notes          *string `json:"notes"`
	IsActive       *bool   `json:"isActive"`
}

func (r UpdateClientRequest) Params() client.UpdateParams {
	return client.UpdateParams{
		Name:           r.Name,
		Email:          r.Email,
		Phone:          r.Phone,
		Address:        r.Address,
		BillingAddress: r.BillingAddress,
		Notes:          r.Notes,
		IsActive:       r.IsActive,
	}
}

type ClientListQuery struct {
	PageQuery
	Search   string `form:"search"`
	IsActive *bool  `form:"isActive"`
}

func (q ClientListQuery) Filter() database.ClientFilter {
	return database.ClientFilter{Search: q.Search, IsActive: q.IsActive}
}

type ClientResponse struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenantId"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	BillingAddress string    `json:"billingAddress"`
	Notes          string    `json:"notes"`
	IsActive       bool      `json:"isActive"`
	PropertyCount  *int64    `json:"propertyCount,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func FromClient(c *database.Client) ClientResponse {
	return ClientResponse{
		ID:             c.ID,
		TenantID:       c.TenantID,
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		Address:        c.Address,
		BillingAddress: c.BillingAddress,
		Notes:          c.Notes,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func FromClientSummary(s client.Summary) ClientResponse {
	resp := FromClient(s.Client)
	count := s.PropertyCount
	resp.PropertyCount = &count
	return resp
}
