// Package snapshot stores vendor snapshots with day-rollover rotation.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
)

// Row is the persisted per-vendor snapshot state, one row per vendor.
type Row struct {
	Vendor           string         `gorm:"primaryKey;column:vendor"`
	Snapshot         datatypes.JSON `gorm:"column:snapshot;not null"`
	PreviousSnapshot datatypes.JSON `gorm:"column:previous_snapshot"`
	CapturedAt       time.Time      `gorm:"column:captured_at;not null"`
}

// TableName sets the database table name.
func (Row) TableName() string { return "vendor_snapshots" }

// Store is the gorm-backed snapshot store.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewStore constructs a snapshot store.
func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log.Named("snapshot.store")}
}

var _ domain.Store = (*Store)(nil)

// LoadDiffBase returns the diff base for a vendor, preferring the
// end-of-prior-day snapshot so re-syncs within a day always diff against
// the true start of today.
func (s *Store) LoadDiffBase(ctx context.Context, vendor domain.Vendor) (*domain.VendorSnapshot, error) {
	row, err := s.find(ctx, vendor)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	if len(row.PreviousSnapshot) > 0 {
		return decodeSnapshot(row.PreviousSnapshot)
	}
	// First day: no prior-day state yet.
	return decodeSnapshot(row.Snapshot)
}

// Load returns the most recent snapshot for a vendor.
func (s *Store) Load(ctx context.Context, vendor domain.Vendor) (*domain.VendorSnapshot, error) {
	row, err := s.find(ctx, vendor)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return decodeSnapshot(row.Snapshot)
}

// Save persists a new snapshot, rotating the stored one into the prior-day
// slot on the first save of a new UTC calendar day.
func (s *Store) Save(ctx context.Context, vendor domain.Vendor, snap domain.VendorSnapshot, asOf time.Time) error {
	encoded, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	now := asOf.UTC()
	todayStart := dayStart(now)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := findTx(ctx, tx, vendor)
		if err != nil {
			return err
		}

		if row == nil {
			return tx.WithContext(ctx).Create(&Row{
				Vendor:     string(vendor),
				Snapshot:   encoded,
				CapturedAt: now,
			}).Error
		}

		updates := map[string]any{
			"snapshot":    datatypes.JSON(encoded),
			"captured_at": now,
		}
		if row.CapturedAt.UTC().Before(todayStart) {
			// First save today: the stored snapshot is yesterday's
			// final state and becomes the next diff base.
			updates["previous_snapshot"] = row.Snapshot
			s.log.Debug("rotating prior-day snapshot",
				zap.String("vendor", string(vendor)),
				zap.Time("captured_at", row.CapturedAt),
			)
		}

		return tx.WithContext(ctx).
			Model(&Row{}).
			Where("vendor = ?", string(vendor)).
			Updates(updates).Error
	})
}

func (s *Store) find(ctx context.Context, vendor domain.Vendor) (*Row, error) {
	return findTx(ctx, s.db, vendor)
}

func findTx(ctx context.Context, db *gorm.DB, vendor domain.Vendor) (*Row, error) {
	var row Row
	err := db.WithContext(ctx).
		Where("vendor = ?", string(vendor)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func decodeSnapshot(raw datatypes.JSON) (*domain.VendorSnapshot, error) {
	var snap domain.VendorSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
