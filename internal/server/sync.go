package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	snapshotdomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
	syncengine "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/sync"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/tenant"
)

type triggerSyncRequest struct {
	Vendor string `json:"vendor"`
	DryRun bool   `json:"dryRun"`
}

type vendorResultResponse struct {
	Vendor         string                          `json:"vendor"`
	Status         string                          `json:"status"`
	RecordsWritten int                             `json:"recordsWritten"`
	Deltas         []snapshotdomain.MemberDelta    `json:"deltas"`
	NewMembers     []snapshotdomain.MemberSnapshot `json:"newMembers"`
	Baseline       bool                            `json:"baseline,omitempty"`
	DryRun         bool                            `json:"dryRun,omitempty"`
	Error          string                          `json:"error,omitempty"`
}

// TriggerSync runs a sync batch synchronously and returns the per-vendor
// outcomes. A vendor in the body narrows the batch to that vendor.
func (s *Server) TriggerSync(c *gin.Context) {
	if !s.triggerLimit.Allow(c.ClientIP()) {
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	var req triggerSyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	var vendors []snapshotdomain.Vendor
	if req.Vendor != "" {
		vendor, ok := snapshotdomain.ParseVendor(req.Vendor)
		if !ok {
			AbortWithError(c, newValidationError("vendor", "unknown_vendor", "unknown vendor: "+req.Vendor))
			return
		}
		vendors = []snapshotdomain.Vendor{vendor}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.Sync.RunTimeout)
	defer cancel()

	batch := s.orchestrator.SyncAll(ctx, vendors, syncengine.Options{DryRun: req.DryRun})

	results := make([]vendorResultResponse, 0, len(batch.Results))
	for _, r := range batch.Results {
		results = append(results, toVendorResult(r))
	}

	status := http.StatusOK
	if batch.Failed() {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{
		"results":        results,
		"recordsWritten": batch.RecordsWritten(),
		"failed":         batch.Failed(),
	})
}

// CaptureSnapshot accepts an out-of-band captured snapshot for a vendor
// without an API, and runs the sync pipeline on it.
func (s *Server) CaptureSnapshot(c *gin.Context) {
	var snap snapshotdomain.VendorSnapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	vendor, ok := snapshotdomain.ParseVendor(string(snap.Vendor))
	if !ok {
		AbortWithError(c, newValidationError("vendor", "unknown_vendor", "unknown vendor: "+string(snap.Vendor)))
		return
	}
	snap.Vendor = vendor
	if len(snap.Members) == 0 {
		AbortWithError(c, newValidationError("members", "required", "snapshot has no members"))
		return
	}

	dryRun := c.Query("dryRun") == "true"
	res := s.orchestrator.SyncSnapshot(c.Request.Context(), snap, syncengine.Options{DryRun: dryRun})

	status := http.StatusOK
	if res.Err != nil {
		status = http.StatusInternalServerError
	}
	c.JSON(status, toVendorResult(res))
}

type vendorStatusResponse struct {
	Vendor         string     `json:"vendor"`
	Configured     bool       `json:"configured"`
	LastSyncAt     *time.Time `json:"lastSyncAt"`
	LastSyncStatus *string    `json:"lastSyncStatus"`
	Stale          bool       `json:"stale"`
}

// SyncStatus reports per-vendor sync freshness. A vendor is stale when its
// last successful sync is older than its staleness threshold.
func (s *Server) SyncStatus(c *gin.Context) {
	ctx := c.Request.Context()
	ten, err := tenant.Default(ctx, s.db)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	configs, err := s.vendorConfigs.List(ctx, ten.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	byVendor := make(map[string]vendorStatusResponse, len(configs))
	now := s.clock.Now()
	for _, cfg := range configs {
		stale := cfg.LastSyncAt == nil ||
			now.Sub(cfg.LastSyncAt.UTC()) > time.Duration(cfg.StalenessThresholdMinutes)*time.Minute
		byVendor[cfg.Vendor] = vendorStatusResponse{
			Vendor:         cfg.Vendor,
			Configured:     true,
			LastSyncAt:     cfg.LastSyncAt,
			LastSyncStatus: cfg.LastSyncStatus,
			Stale:          stale,
		}
	}

	statuses := make([]vendorStatusResponse, 0, len(snapshotdomain.AllVendors))
	for _, vendor := range snapshotdomain.AllVendors {
		if st, ok := byVendor[string(vendor)]; ok {
			statuses = append(statuses, st)
			continue
		}
		statuses = append(statuses, vendorStatusResponse{Vendor: string(vendor), Stale: true})
	}

	c.JSON(http.StatusOK, gin.H{"vendors": statuses})
}

// ListSyncRuns returns the most recent sync run log entries.
func (s *Server) ListSyncRuns(c *gin.Context) {
	ctx := c.Request.Context()
	ten, err := tenant.Default(ctx, s.db)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	runs, err := s.runLog.Recent(ctx, ten.ID, 50)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func toVendorResult(r syncengine.Result) vendorResultResponse {
	resp := vendorResultResponse{
		Vendor:         string(r.Vendor),
		Status:         syncengine.RunStatusSuccess,
		RecordsWritten: r.RecordsWritten,
		Deltas:         r.Deltas,
		NewMembers:     r.NewMembers,
		Baseline:       r.Baseline,
		DryRun:         r.DryRun,
	}
	// Dry-run callers inspect these lists; encode them as [] rather than null.
	if resp.Deltas == nil {
		resp.Deltas = []snapshotdomain.MemberDelta{}
	}
	if resp.NewMembers == nil {
		resp.NewMembers = []snapshotdomain.MemberSnapshot{}
	}
	switch {
	case r.Err != nil:
		resp.Status = syncengine.RunStatusFailed
		resp.Error = r.Err.Error()
	case r.Skipped:
		resp.Status = syncengine.RunStatusSkipped
	}
	return resp
}
