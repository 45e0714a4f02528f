// Package domain contains persistence models for the daily usage ledger.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"

	snapshotdomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
)

// Source types for usage records.
const (
	SourceAPI     = "api"
	SourceManual  = "manual"
	SourceScraper = "scraper"
	SourceSeat    = "seat"
)

// Confidence levels for usage records.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Record is one member's spend/usage for a period, append-only. Daily sync
// rows use a single calendar day as their period (midnight to 23:59:59.999
// UTC) so range sums work for both daily and legacy monthly rows.
type Record struct {
	ID       snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID snowflake.ID  `gorm:"not null;index:idx_usage_records_tenant_vendor,priority:1" json:"tenant_id"`
	MemberID *snowflake.ID `gorm:"index" json:"member_id"`

	Vendor         string  `gorm:"type:text;not null;index:idx_usage_records_tenant_vendor,priority:2" json:"vendor"`
	VendorEmail    *string `gorm:"type:text" json:"vendor_email"`
	VendorUsername *string `gorm:"type:text" json:"vendor_username"`

	SpendCents  int64     `gorm:"not null" json:"spend_cents"`
	Tokens      *int64    `gorm:"" json:"tokens"`
	PeriodStart time.Time `gorm:"not null;index" json:"period_start"`
	PeriodEnd   time.Time `gorm:"not null" json:"period_end"`

	Confidence string    `gorm:"type:text;not null;default:high" json:"confidence"`
	SourceType string    `gorm:"type:text;not null;default:api" json:"source_type"`
	SyncedAt   time.Time `gorm:"not null" json:"synced_at"`
	CreatedBy  *string   `gorm:"type:text" json:"-"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Record) TableName() string { return "usage_records" }

// DailyRecord is a not-yet-persisted daily delta produced from a snapshot
// diff. The writer assigns IDs, period bounds, and member resolution.
type DailyRecord struct {
	Vendor         snapshotdomain.Vendor
	VendorEmail    *string
	VendorUsername *string
	SpendCents     int64
	Tokens         *int64
	Confidence     string
	SourceType     string
}

// Resolver maps a vendor identity to an internal member id. Pure lookup,
// no side effects; a nil result means the identity is not yet linked and
// the record is written without a member reference.
type Resolver interface {
	Resolve(email, username *string) *snowflake.ID
}

// ResolverBuilder constructs a per-vendor Resolver, typically by loading
// the tenant's identity mappings once per sync.
type ResolverBuilder interface {
	BuildResolver(ctx context.Context, tenantID snowflake.ID, vendor snapshotdomain.Vendor) (Resolver, error)
}
