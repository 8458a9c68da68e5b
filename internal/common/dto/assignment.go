package dto

import (
	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/assignment"

	"github.com/shopspring/decimal"
)

type AssignServiceRequest struct {
	ServiceTypeID string              `json:"serviceTypeId" binding:"required"`
	CustomPrice   decimal.NullDecimal `json:"customPrice"`
	IsActive      *bool               `json:"isActive"`
}

func (r AssignServiceRequest) Params(propertyID string) assignment.AssignParams {
	return assignment.AssignParams{
		PropertyID:    propertyID,
		ServiceTypeID: r.ServiceTypeID,
		CustomPrice:   r.CustomPrice,
		IsActive:      r.IsActive,
	}
}

type BulkAssignRequest struct {
	ServiceTypeIDs []string `json:"serviceTypeIds" binding:"required,min=1"`
}

// UpdateAssignmentRequest clears the custom price on an explicit null
type UpdateAssignmentRequest struct {
	CustomPrice Nullable[decimal.Decimal] `json:"customPrice"`
	IsActive    *bool                     `json:"isActive"`
}

func (r UpdateAssignmentRequest) Params() assignment.UpdateParams {
	p := assignment.UpdateParams{IsActive: r.IsActive}
	if r.CustomPrice.Set {
		p.CustomPrice = &decimal.NullDecimal{Decimal: r.CustomPrice.Value, Valid: r.CustomPrice.Valid}
	}
	return p
}

type AssignmentResponse struct {
	ID              string  `json:"id"`
	PropertyID      string  `json:"propertyId"`
	ServiceTypeID   string  `json:"serviceTypeId"`
	ServiceTypeName string  `json:"serviceTypeName"`
	CustomPrice     *string `json:"customPrice"`
	EffectivePrice  string  `json:"effectivePrice"`
	IsActive        bool    `json:"isActive"`
	// IsInherited is always false: a stored assignment belongs to its own property
	IsInherited bool `json:"isInherited"`
}

func FromAssignment(a database.PropertyServiceType) AssignmentResponse {
	resp := AssignmentResponse{
		ID:             a.ID,
		PropertyID:     a.PropertyID,
		ServiceTypeID:  a.ServiceTypeID,
		CustomPrice:    MoneyPtr(a.CustomPrice),
		EffectivePrice: Money(assignment.EffectivePrice(&a)),
		IsActive:       a.IsActive,
		IsInherited:    false,
	}
	if a.ServiceType != nil {
		resp.ServiceTypeName = a.ServiceType.Name
	}
	return resp
}

type EffectiveServiceResponse struct {
	ServiceTypeID   string  `json:"serviceTypeId"`
	ServiceTypeName string  `json:"serviceTypeName"`
	EffectivePrice  string  `json:"effectivePrice"`
	IsActive        bool    `json:"isActive"`
	IsInherited     bool    `json:"isInherited"`
	OverrideID      *string `json:"overrideId"`
}

func FromEffectiveService(es assignment.EffectiveService) EffectiveServiceResponse {
	return EffectiveServiceResponse{
		ServiceTypeID:   es.ServiceTypeID,
		ServiceTypeName: es.ServiceTypeName,
		EffectivePrice:  Money(es.EffectivePrice),
		IsActive:        es.IsActive,
		IsInherited:     es.IsInherited,
		OverrideID:      es.OverrideID,
	}
}
