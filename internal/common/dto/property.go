package dto

import (
	"database/sql"
	"time"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/property"
)

type CreatePropertyRequest struct {
	ClientID         *string `json:"clientId" binding:"omitempty,uuid"`
	ParentPropertyID *string `json:"parentPropertyId" binding:"omitempty,uuid"`
	PropertyType     string  `json:"propertyType" binding:"required,property_type"`
	Name             string  `json:"name" binding:"required,max=255"`
	Address          string  `json:"address"`
	City             string  `json:"city" binding:"max=100"`
	PostalCode       string  `json:"postalCode" binding:"max=20"`
	Notes            string  `json:"notes"`
	IsActive         *bool   `json:"isActive"`
	NumberOfUnits    int     `json:"numberOfUnits" binding:"min=0"`
}

func (r CreatePropertyRequest) Params() property.CreateParams {
	return property.CreateParams{
		ClientID:         r.ClientID,
		ParentPropertyID: r.ParentPropertyID,
		PropertyType:     database.PropertyType(r.PropertyType),
		Name:             r.Name,
		Address:          r.Address,
		City:             r.City,
		PostalCode:       r.PostalCode,
		Notes:            r.Notes,
		IsActive:         r.IsActive,
		NumberOfUnits:    r.NumberOfUnits,
	}
}

// UpdatePropertyRequest uses Nullable for the references so an explicit null detaches
type UpdatePropertyRequest struct {
	ClientID         Nullable[string] `json:"clientId"`
	ParentPropertyID Nullable[string] `json:"parentPropertyId"`
	PropertyType     *string          `json:"propertyType" binding:"omitempty,property_type"`
	Name             *string          `json:"name" binding:"omitempty,min=1,max=255"`
	Address          *string          `json:"address"`
	City             *string          `json:"city" binding:"omitempty,max=100"`
	PostalCode       *string          `json:"postalCode" binding:"omitempty,max=20"`
	Notes            *string          `json:"notes"`
	IsActive         *bool            `json:"isActive"`
}

func (r UpdatePropertyRequest) Params() property.UpdateParams {
	p := property.UpdateParams{
		ClientID:         nullString(r.ClientID),
		ParentPropertyID: nullString(r.ParentPropertyID),
		Name:             r.Name,
		Address:          r.Address,
		City:             r.City,
		PostalCode:       r.PostalCode,
		Notes:            r.Notes,
		IsActive:         r.IsActive,
	}
	if r.PropertyType != nil {
		t := database.PropertyType(*r.PropertyType)
		p.PropertyType = &t
	}
	return p
}

func nullString(n Nullable[string]) *sql.NullString {
	if !n.Set {
		return nil
	}
	return &sql.NullString{String: n.Value, Valid: n.Valid && n.Value != ""}
}

type PropertyListQuery struct {
	PageQuery
	ClientID     string `form:"clientId"`
	PropertyType string `form:"propertyType" binding:"omitempty,property_type"`
	ParentID     string `form:"parentId"`
	ParentsOnly  bool   `form:"parentsOnly"`
	IsActive     *bool  `form:"isActive"`
	Search       string `form:"search"`
}

func (q PropertyListQuery) Filter() database.PropertyFilter {
	return database.PropertyFilter{
		ClientID:     q.ClientID,
		PropertyType: database.PropertyType(q.PropertyType),
		ParentID:     q.ParentID,
		ParentsOnly:  q.ParentsOnly,
		IsActive:     q.IsActive,
		Search:       q.Search,
	}
}

type PropertyRef struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PropertyType string `json:"propertyType"`
	IsActive     bool   `json:"isActive"`
}

type ClientRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PropertyResponse struct {
	ID               string        `json:"id"`
	TenantID         string        `json:"tenantId"`
	ClientID         *string       `json:"clientId"`
	ParentPropertyID *string       `json:"parentPropertyId"`
	PropertyType     string        `json:"propertyType"`
	Name             string        `json:"name"`
	Address          string        `json:"address"`
	City             string        `json:"city"`
	PostalCode       string        `json:"postalCode"`
	Notes            string        `json:"notes"`
	IsActive         bool          `json:"isActive"`
	Client           *ClientRef    `json:"client,omitempty"`
	Children         []PropertyRef `json:"children"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

func FromProperty(p *database.Property) PropertyResponse {
	resp := PropertyResponse{
		ID:               p.ID,
		TenantID:         p.TenantID,
		ClientID:         p.ClientID,
		ParentPropertyID: p.ParentPropertyID,
		PropertyType:     string(p.PropertyType),
		Name:             p.Name,
		Address:          p.Address,
		City:             p.City,
		PostalCode:       p.PostalCode,
		Notes:            p.Notes,
		IsActive:         p.IsActive,
		Children:         make([]PropertyRef, 0, len(p.Children)),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.Client != nil {
		resp.Client = &ClientRef{ID: p.Client.ID, Name: p.Client.Name}
	}
	for _, c := range p.Children {
		resp.Children = append(resp.Children, PropertyRef{
			ID:           c.ID,
			Name:         c.Name,
			PropertyType: string(c.PropertyType),
			IsActive:     c.IsActive,
		})
	}
	return resp
}
