package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PropertyType enumerates the kinds of property. Only units may have a parent.
type PropertyType string

const (
	PropertyHouse      PropertyType = "house"
	PropertyApartment  PropertyType = "apartment"
	PropertyBuilding   PropertyType = "building"
	PropertyCommercial PropertyType = "commercial"
	PropertyUnit       PropertyType = "unit"
)

func (t PropertyType) Valid() bool {
	switch t {
	case PropertyHouse, PropertyApartment, PropertyBuilding, PropertyCommercial, PropertyUnit:
		return true
	}
	return false
}

// InvoiceStatus is the invoice state machine
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceOverdue, InvoiceCancelled:
		return true
	}
	return false
}

// Deletable reports whether an invoice in this status may be deleted
func (s InvoiceStatus) Deletable() bool {
	return s == InvoiceDraft || s == InvoiceCancelled
}

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCard         PaymentMethod = "card"
	PaymentOther        PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentBankTransfer, PaymentCard, PaymentOther:
		return true
	}
	return false
}

// Base is embedded by every tenant-owned, soft-deletable row
type Base struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	TenantID  string `gorm:"type:varchar(36);not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Tenant is the isolation boundary
type Tenant struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Slug      string    `json:"slug" gorm:"type:varchar(100);not null;uniqueIndex"`
	IsActive  bool      `json:"isActive" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *Tenant) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

type Client struct {
	Base
	Name           string `gorm:"type:varchar(255);not null;index"`
	Email          string `gorm:"type:varchar(255)"`
	Phone          string `gorm:"type:varchar(50)"`
	Address        string `gorm:"type:text"`
	BillingAddress string `gorm:"type:text"`
	Notes          string `gorm:"type:text"`
	IsActive       bool   `gorm:"not null"`
}

type Property struct {
	Base
	ClientID         *string      `gorm:"type:varchar(36);index"`
	ParentPropertyID *string      `gorm:"type:varchar(36);index"`
	PropertyType     PropertyType `gorm:"type:varchar(20);not null"`
	Name             string       `gorm:"type:varchar(255);not null"`
	Address          string       `gorm:"type:text"`
	City             string       `gorm:"type:varchar(100)"`
	PostalCode       string       `gorm:"type:varchar(20)"`
	Notes            string       `gorm:"type:text"`
	IsActive         bool         `gorm:"not null"`

	Client   *Client    `gorm:"foreignKey:ClientID"`
	Children []Property `gorm:"foreignKey:ParentPropertyID"`
}

// HasParent reports whether the property is a child in the hierarchy
func (p *Property) HasParent() bool {
	return p.ParentPropertyID != nil && *p.ParentPropertyID != ""
}

type ServiceType struct {
	Base
	Name                     string          `gorm:"type:varchar(255);not null;index"`
	Description              string          `gorm:"type:text"`
	BasePrice                decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	EstimatedDurationMinutes *int
	IsActive                 bool `gorm:"not null"`

	ChecklistItems []ChecklistItem `gorm:"foreignKey:ServiceTypeID"`
}

type ChecklistItem struct {
	Base
	ServiceTypeID string `gorm:"type:varchar(36);not null;index"`
	Name          string `gorm:"type:varchar(255);not null"`
	Description   string `gorm:"type:text"`
	SortOrder     int    `gorm:"not null"`
}

// PropertyServiceType assigns a service type to a property
type PropertyServiceType struct {
	Base
	PropertyID    string              `gorm:"type:varchar(36);not null;index"`
	ServiceTypeID string              `gorm:"type:varchar(36);not null;index"`
	CustomPrice   decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	IsActive      bool                `gorm:"not null"`

	ServiceType *ServiceType `gorm:"foreignKey:ServiceTypeID"`
}

// Invoice does not embed Base so the tenant column can join the number index
type Invoice struct {
	ID            string          `gorm:"primaryKey;type:varchar(36)"`
	TenantID      string          `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_invoices_tenant_number,priority:1"`
	InvoiceNumber string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_invoices_tenant_number,priority:2"`
	PropertyID    string          `gorm:"type:varchar(36);not null;index"`
	Status        InvoiceStatus   `gorm:"type:varchar(20);not null;index"`
	PeriodStart   *time.Time      `gorm:"type:date"`
	PeriodEnd     *time.Time      `gorm:"type:date"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Discount      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Tax           decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Total         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	IssueDate     time.Time       `gorm:"type:date;not null"`
	DueDate       time.Time       `gorm:"type:date;not null"`
	PaidDate      *time.Time      `gorm:"type:date"`
	Notes         string          `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`

	Property *Property    `gorm:"foreignKey:PropertyID"`
	Items    []InvoiceItem `gorm:"foreignKey:InvoiceID"`
	Payments []Payment     `gorm:"foreignKey:InvoiceID"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

type InvoiceItem struct {
	Base
	InvoiceID     string          `gorm:"type:varchar(36);not null;index"`
	ServiceTypeID *string         `gorm:"type:varchar(36)"`
	Description   string          `gorm:"type:varchar(500);not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Total         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	SortOrder     int             `gorm:"not null"`
}

type Payment struct {
	Base
	InvoiceID     string          `gorm:"type:varchar(36);not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	PaymentDate   time.Time       `gorm:"type:date;not null"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(20);not null"`
	Reference     string          `gorm:"type:varchar(255)"`
	Notes         string          `gorm:"type:text"`
}

// models lists every table in migration order
func models() []any {
	return []any{
		&Tenant{},
		&Client{},
		&Property{},
		&ServiceType{},
		&ChecklistItem{},
		&PropertyServiceType{},
		&Invoice{},
		&InvoiceItem{},
		&Payment{},
	}
}

// Day truncates t to a calendar date in loc, returned as midnight UTC
func Day(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
