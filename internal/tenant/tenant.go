// Package tenant holds the tenant model and default-tenant lookup.
package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ErrNoTenant reports an empty tenants table; the seed step normally
// guarantees one.
var ErrNoTenant = errors.New("no tenant found")

// Tenant is a team whose vendor spend is tracked.
type Tenant struct {
	ID   snowflake.ID `gorm:"primaryKey" json:"id"`
	Name string       `gorm:"type:text;not null" json:"name"`
	Slug string       `gorm:"type:text;not null;unique" json:"slug"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// Default returns the single tenant the sync engine operates for.
func Default(ctx context.Context, db *gorm.DB) (Tenant, error) {
	var t Tenant
	err := db.WithContext(ctx).Order("created_at ASC").First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Tenant{}, ErrNoTenant
		}
		return Tenant{}, err
	}
	return t, nil
}
