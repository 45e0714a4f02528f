// Package sync orchestrates per-vendor snapshot-diff synchronization.
package sync

import (
	"context"
	"errors"
	"sync"

	snapshotdomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
)

// ErrNoFetcher reports a vendor with no registered snapshot fetcher.
var ErrNoFetcher = errors.New("no fetcher registered for vendor")

// Fetcher obtains a vendor's current cumulative snapshot. Implementations
// wrap the vendor's API or scraped export; network, auth, and rate-limit
// failures surface as ordinary errors and fail only that vendor's sync.
type Fetcher interface {
	Vendor() snapshotdomain.Vendor
	Fetch(ctx context.Context, credentials map[string]string) (snapshotdomain.VendorSnapshot, error)
}

// Registry holds the fetchers available to the orchestrator, keyed by vendor.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[snapshotdomain.Vendor]Fetcher
}

// NewRegistry constructs an empty fetcher registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[snapshotdomain.Vendor]Fetcher)}
}

// Register adds a fetcher, replacing any previous one for the same vendor.
func (r *Registry) Register(f Fetcher) {
	r.mu.Lock()
	r.fetchers[f.Vendor()] = f
	r.mu.Unlock()
}

// Lookup returns the fetcher for a vendor.
func (r *Registry) Lookup(vendor snapshotdomain.Vendor) (Fetcher, bool) {
	r.mu.RLock()
	f, ok := r.fetchers[vendor]
	r.mu.RUnlock()
	return f, ok
}
