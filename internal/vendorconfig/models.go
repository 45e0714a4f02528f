// Package vendorconfig stores per-vendor sync settings and encrypted
// credentials.
package vendorconfig

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Config is one tenant's settings for one vendor.
type Config struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID snowflake.ID `gorm:"not null;index:idx_vendor_configs_tenant_vendor,priority:1" json:"tenant_id"`
	Vendor   string       `gorm:"type:text;not null;index:idx_vendor_configs_tenant_vendor,priority:2" json:"vendor"`

	// EncryptedCredentials is an AES-256-GCM sealed JSON object of
	// vendor-specific credential fields.
	EncryptedCredentials *string `gorm:"type:text" json:"-"`

	LastSyncAt     *time.Time `gorm:"" json:"last_sync_at"`
	LastSyncStatus *string    `gorm:"type:text" json:"last_sync_status"`

	// StalenessThresholdMinutes marks the vendor's data stale when the
	// last successful sync is older than this.
	StalenessThresholdMinutes int `gorm:"not null;default:360" json:"staleness_threshold_minutes"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Config) TableName() string { return "vendor_configs" }
