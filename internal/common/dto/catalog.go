package dto

import (
	"time"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/catalog"

	"github.com/shopspring/decimal"
)

type ChecklistItemRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	SortOrder   int    `json:"sortOrder"`
}

func checklistParams(items []ChecklistItemRequest) []catalog.ChecklistItemParams {
	return Map(items, func(i ChecklistItemRequest) catalog.ChecklistItemParams {
		return catalog.ChecklistItemParams{Name: i.Name, Description: i.Description, SortOrder: i.SortOrder}
	})
}

type CreateServiceTypeRequest struct {
	Name                     string                 `json:"name" binding:"required,max=255"`
	Description              string                 `json:"description"`
	BasePrice                decimal.Decimal        `json:"basePrice"`
	EstimatedDurationMinutes *int                   `json:"estimatedDurationMinutes"`
	ChecklistItems           []ChecklistItemRequest `json:"checklistItems" binding:"dive"`
}

func (r CreateServiceTypeRequest) Params() catalog.CreateParams {
	return catalog.CreateParams{
		Name:                     r.Name,
		Description:              r.Description,
		BasePrice:                r.BasePrice,
		EstimatedDurationMinutes: r.EstimatedDurationMinutes,
		Checklist:                checklistParams(r.ChecklistItems),
	}
}

type UpdateServiceTypeRequest struct {
	Name                     *string          `json:"name" binding:"omitempty,min=1,max=255"`
	Description              *string          `json:"description"`
	BasePrice                *decimal.Decimal `json:"basePrice"`
	EstimatedDurationMinutes *int             `json:"estimatedDurationMinutes"`
	IsActive                 *bool            `json:"isActive"`
}

func (r UpdateServiceTypeRequest) Params() catalog.UpdateParams {
	return catalog.UpdateParams{
		Name:                     r.Name,
		Description:              r.Description,
		BasePrice:                r.BasePrice,
		EstimatedDurationMinutes: r.EstimatedDurationMinutes,
		IsActive:                 r.IsActive,
	}
}

type ReplaceChecklistRequest struct {
	Items []ChecklistItemRequest `json:"items" binding:"dive"`
}

func (r ReplaceChecklistRequest) Params() []catalog.ChecklistItemParams {
	return checklistParams(r.Items)
}

type ServiceTypeListQuery struct {
	PageQuery
	Search   string `form:"search"`
	IsActive *bool  `form:"isActive"`
}

func (q ServiceTypeListQuery) Filter() database.ServiceTypeFilter {
	return database.ServiceTypeFilter{Search: q.Search, IsActive: q.IsActive}
}

type ChecklistItemResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int    `json:"sortOrder"`
}

type ServiceTypeResponse struct {
	ID                       string                  `json:"id"`
	TenantID                 string                  `json:"tenantId"`
	Name                     string                  `json:"name"`
	Description              string                  `json:"description"`
	BasePrice                string                  `json:"basePrice"`
	EstimatedDurationMinutes *int                    `json:"estimatedDurationMinutes"`
	IsActive                 bool                    `json:"isActive"`
	ChecklistItems           []ChecklistItemResponse `json:"checklistItems"`
	CreatedAt                time.Time               `json:"createdAt"`
	UpdatedAt                time.Time               `json:"updatedAt"`
}

func FromServiceType(st *database.ServiceType) ServiceTypeResponse {
	return ServiceTypeResponse{
		ID:                       st.ID,
		TenantID:                 st.TenantID,
		Name:                     st.Name,
		Description:              st.Description,
		BasePrice:                Money(st.BasePrice),
		EstimatedDurationMinutes: st.EstimatedDurationMinutes,
		IsActive:                 st.IsActive,
		ChecklistItems: Map(st.ChecklistItems, func(i database.ChecklistItem) ChecklistItemResponse {
			return ChecklistItemResponse{ID: i.ID, Name: i.Name, Description: i.Description, SortOrder: i.SortOrder}
		}),
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
	}
}
