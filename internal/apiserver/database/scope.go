package database

import (
	"github.com/amoylab/cleanbill/internal/identity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantScope restricts a query to the caller's tenant unless the caller bypasses tenancy
func TenantScope(caller identity.Caller) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if caller.BypassTenant {
			return db
		}
		return db.Where("tenant_id = ?", caller.TenantID)
	}
}

// ForUpdate locks the selected rows until the transaction ends.
// SQLite has no row locks; its single connection already serializes writers.
func ForUpdate(db *gorm.DB) *gorm.DB {
	if DatabaseType(db.Dialector.Name()) == SQLite {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Page is an offset/limit window; a zero Limit means no limit
type Page struct {
	Offset int
	Limit  int
}

func (p Page) scope(db *gorm.DB) *gorm.DB {
	if p.Offset > 0 {
		db = db.Offset(p.Offset)
	}
	if p.Limit > 0 {
		db = db.Limit(p.Limit)
	}
	return db
}

func creationOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

// findPage counts the rows matched by q, then loads one page of them into dest
func findPage(q *gorm.DB, page Page, dest any, order func(*gorm.DB) *gorm.DB) (int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, err
	}
	err := q.Session(&gorm.Session{}).Scopes(page.scope, order).Find(dest).Error
	return total, err
}
