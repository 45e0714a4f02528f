package domain

import (
	"context"
	"time"
)

// Store persists one current and one prior-day snapshot per vendor.
type Store interface {
	// LoadDiffBase returns the snapshot to diff against: the end-of-prior-day
	// state when one exists, else the current snapshot (first day), else nil
	// when the vendor has never been synced.
	LoadDiffBase(ctx context.Context, vendor Vendor) (*VendorSnapshot, error)

	// Load returns the most recent snapshot, or nil when none exists.
	Load(ctx context.Context, vendor Vendor) (*VendorSnapshot, error)

	// Save stores a new snapshot. When asOf falls on a later UTC calendar
	// day than the stored capture time, the stored snapshot rotates into
	// the prior-day slot first; same-day saves leave the prior-day slot
	// untouched so the diff base stays at the true start of the day.
	Save(ctx context.Context, vendor Vendor, snap VendorSnapshot, asOf time.Time) error
}
