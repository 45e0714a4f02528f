// Package usage converts snapshot diffs into durable daily usage rows.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	snapshotdomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/usage/domain"
)

// DeltasToRecords converts a diff's member deltas and new members into daily
// records. Deltas and new members with zero or negative spend are dropped;
// negative values should not occur but are filtered defensively.
func DeltasToRecords(vendor snapshotdomain.Vendor, deltas []snapshotdomain.MemberDelta, newMembers []snapshotdomain.MemberSnapshot, sourceType string) []domain.DailyRecord {
	records := make([]domain.DailyRecord, 0, len(deltas)+len(newMembers))

	for _, d := range deltas {
		if d.DeltaSpendCents <= 0 {
			continue
		}
		records = append(records, domain.DailyRecord{
			Vendor:         vendor,
			VendorEmail:    d.VendorEmail,
			VendorUsername: d.VendorUsername,
			SpendCents:     d.DeltaSpendCents,
			Tokens:         d.DeltaTokens,
			Confidence:     domain.ConfidenceMedium,
			SourceType:     sourceType,
		})
	}

	// New members report their full cumulative value as today's delta.
	for _, m := range newMembers {
		if m.SpendCents <= 0 {
			continue
		}
		records = append(records, domain.DailyRecord{
			Vendor:         vendor,
			VendorEmail:    m.VendorEmail,
			VendorUsername: m.VendorUsername,
			SpendCents:     m.SpendCents,
			Tokens:         m.Tokens,
			Confidence:     domain.ConfidenceMedium,
			SourceType:     sourceType,
		})
	}

	return records
}

// Writer is the gorm-backed record writer.
type Writer struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	resolver domain.ResolverBuilder
}

// NewWriter constructs a record writer.
func NewWriter(db *gorm.DB, log *zap.Logger, genID *snowflake.Node, resolver domain.ResolverBuilder) *Writer {
	return &Writer{
		db:       db,
		log:      log.Named("usage.writer"),
		genID:    genID,
		resolver: resolver,
	}
}

var _ domain.RecordWriter = (*Writer)(nil)

// WriteDaily writes the given records against the as-of UTC calendar day.
// Existing rows for the same tenant, vendor, day, and source types are
// deleted first so a re-run of the same sync is idempotent.
func (w *Writer) WriteDaily(ctx context.Context, tenantID snowflake.ID, records []domain.DailyRecord, opts domain.WriteOptions, asOf time.Time) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	start, end := dayBounds(asOf)
	return w.writeRange(ctx, tenantID, records, opts, start, end, asOf)
}

// EnsureMonthlySeatCosts writes seat-cost records spanning the as-of calendar
// month, once per month: if any seat-source rows already exist for the vendor
// in that month, nothing is written.
func (w *Writer) EnsureMonthlySeatCosts(ctx context.Context, tenantID snowflake.ID, snap snapshotdomain.VendorSnapshot, opts domain.WriteOptions, asOf time.Time) (int, error) {
	records := SeatCostRecords(snap)
	if len(records) == 0 {
		return 0, nil
	}
	start, end := monthBounds(asOf)

	var existing int64
	err := w.db.WithContext(ctx).
		Model(&domain.Record{}).
		Where("tenant_id = ? AND vendor = ? AND source_type = ? AND period_start >= ? AND period_end <= ?",
			tenantID, string(snap.Vendor), domain.SourceSeat, start, end).
		Count(&existing).Error
	if err != nil {
		return 0, fmt.Errorf("count seat records: %w", err)
	}
	if existing > 0 {
		return 0, nil
	}

	return w.writeRange(ctx, tenantID, records, opts, start, end, asOf)
}

func (w *Writer) writeRange(ctx context.Context, tenantID snowflake.ID, records []domain.DailyRecord, opts domain.WriteOptions, start, end, asOf time.Time) (int, error) {
	vendor := records[0].Vendor
	sourceTypes := collectSourceTypes(records)

	resolver, err := w.resolver.BuildResolver(ctx, tenantID, vendor)
	if err != nil {
		return 0, fmt.Errorf("build resolver: %w", err)
	}

	rows := make([]domain.Record, 0, len(records))
	unresolved := 0
	for _, r := range records {
		memberID := resolver.Resolve(r.VendorEmail, r.VendorUsername)
		if memberID == nil {
			unresolved++
		}
		rows = append(rows, domain.Record{
			ID:             w.genID.Generate(),
			TenantID:       tenantID,
			MemberID:       memberID,
			Vendor:         string(r.Vendor),
			VendorEmail:    r.VendorEmail,
			VendorUsername: r.VendorUsername,
			SpendCents:     r.SpendCents,
			Tokens:         r.Tokens,
			PeriodStart:    start,
			PeriodEnd:      end,
			Confidence:     r.Confidence,
			SourceType:     r.SourceType,
			SyncedAt:       asOf.UTC(),
			CreatedAt:      asOf.UTC(),
		})
	}

	if unresolved > 0 {
		// Unlinked identities still count toward aggregate totals; they
		// get a member reference once an admin reconciles them.
		w.log.Info("records without a linked member",
			zap.String("vendor", string(vendor)),
			zap.Int("count", unresolved),
		)
	}

	if opts.DryRun {
		return len(rows), nil
	}

	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).
			Where("tenant_id = ? AND vendor = ? AND period_start >= ? AND period_end <= ? AND source_type IN ?",
				tenantID, string(vendor), start, end, sourceTypes).
			Delete(&domain.Record{}).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Create(&rows).Error
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func collectSourceTypes(records []domain.DailyRecord) []string {
	seen := make(map[string]struct{}, 2)
	types := make([]string, 0, 2)
	for _, r := range records {
		if _, ok := seen[r.SourceType]; ok {
			continue
		}
		seen[r.SourceType] = struct{}{}
		types = append(types, r.SourceType)
	}
	return types
}

func dayBounds(asOf time.Time) (time.Time, time.Time) {
	t := asOf.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), time.UTC)
	return start, end
}

func monthBounds(asOf time.Time) (time.Time, time.Time) {
	t := asOf.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}
