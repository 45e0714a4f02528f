package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"

	snapshotdomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
)

// WriteOptions controls a record write.
type WriteOptions struct {
	// DryRun computes everything but performs no database mutation.
	DryRun bool
}

// RecordWriter persists daily usage rows with idempotent overwrite semantics.
type RecordWriter interface {
	// WriteDaily replaces today's rows for the batch's vendor and source
	// types, then inserts the given records. Re-running the same day's
	// sync reproduces the same rows instead of duplicating them.
	WriteDaily(ctx context.Context, tenantID snowflake.ID, records []DailyRecord, opts WriteOptions, asOf time.Time) (int, error)

	// EnsureMonthlySeatCosts writes per-seat subscription records for the
	// as-of calendar month unless any already exist for that month.
	EnsureMonthlySeatCosts(ctx context.Context, tenantID snowflake.ID, snap snapshotdomain.VendorSnapshot, opts WriteOptions, asOf time.Time) (int, error)
}
