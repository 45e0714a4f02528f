// Package seed bootstraps required rows on startup.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/tenant"
)

const (
	defaultTenantName = "Main"
	defaultTenantSlug = "main"
)

var Module = fx.Module("seed",
	fx.Invoke(func(db *gorm.DB, node *snowflake.Node, log *zap.Logger) error {
		return EnsureDefaultTenant(db, node, log)
	}),
)

// EnsureDefaultTenant creates the single tenant the sync engine operates
// for when the tenants table is empty. Re-running is a no-op.
func EnsureDefaultTenant(db *gorm.DB, node *snowflake.Node, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing tenant.Tenant
		err := tx.WithContext(ctx).
			Where("slug = ?", defaultTenantSlug).
			First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		t := tenant.Tenant{
			ID:   node.Generate(),
			Name: defaultTenantName,
			Slug: defaultTenantSlug,
		}
		if err := tx.WithContext(ctx).Create(&t).Error; err != nil {
			return err
		}
		log.Info("seeded default tenant", zap.String("slug", defaultTenantSlug))
		return nil
	})
}
