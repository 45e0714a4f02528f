package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/clock"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/config"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/observability/metrics"
	snapshotdomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/tenant"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/usage"
	usagedomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/usage/domain"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/vendorconfig"
)

// Options controls a sync invocation.
type Options struct {
	// DryRun performs fetch, diff, and logging but no storage mutation.
	DryRun bool
}

// Result is the outcome of one vendor's sync.
type Result struct {
	Vendor         snapshotdomain.Vendor           `json:"vendor"`
	RecordsWritten int                             `json:"records_written"`
	Deltas         []snapshotdomain.MemberDelta    `json:"deltas"`
	NewMembers     []snapshotdomain.MemberSnapshot `json:"new_members"`

	// Baseline marks a vendor's first-ever sync: the snapshot is stored
	// as the diff base and no records are written.
	Baseline bool `json:"baseline,omitempty"`
	// Skipped marks a vendor with no registered fetcher (manual capture).
	Skipped bool `json:"skipped,omitempty"`
	DryRun  bool `json:"dry_run,omitempty"`
	Err     error `json:"-"`
}

// BatchResult aggregates per-vendor results; failures never short-circuit
// the rest of the batch.
type BatchResult struct {
	Results []Result
}

// Failed reports whether any vendor's sync failed.
func (b BatchResult) Failed() bool {
	for _, r := range b.Results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// RecordsWritten totals records written across vendors.
func (b BatchResult) RecordsWritten() int {
	total := 0
	for _, r := range b.Results {
		total += r.RecordsWritten
	}
	return total
}

// Params collects the orchestrator's dependencies.
type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	Config        config.Config
	Store         snapshotdomain.Store
	Writer        usagedomain.RecordWriter
	Registry      *Registry
	VendorConfigs *vendorconfig.Service
	RunLog        *RunLog
	Metrics       *metrics.SyncMetrics
}

// Orchestrator runs the per-vendor pipeline: fetch, diff, materialize,
// rotate. Vendors are independent; concurrent syncs of the same vendor are
// not supported and must be serialized by the caller.
type Orchestrator struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	cfg           config.Config
	store         snapshotdomain.Store
	writer        usagedomain.RecordWriter
	registry      *Registry
	vendorConfigs *vendorconfig.Service
	runLog        *RunLog
	metrics       *metrics.SyncMetrics
}

// NewOrchestrator constructs the sync orchestrator.
func NewOrchestrator(p Params) *Orchestrator {
	return &Orchestrator{
		db:            p.DB,
		log:           p.Log.Named("sync"),
		clock:         p.Clock,
		cfg:           p.Config,
		store:         p.Store,
		writer:        p.Writer,
		registry:      p.Registry,
		vendorConfigs: p.VendorConfigs,
		runLog:        p.RunLog,
		metrics:       p.Metrics,
	}
}

// SyncVendor fetches one vendor's snapshot and runs the full pipeline.
func (o *Orchestrator) SyncVendor(ctx context.Context, vendor snapshotdomain.Vendor, opts Options) Result {
	ctx, span := otel.Tracer("sync").Start(ctx, "sync.vendor")
	span.SetAttributes(attribute.String("vendor", string(vendor)))
	defer span.End()

	started := o.clock.Now()
	log := o.log.With(zap.String("vendor", string(vendor)), zap.Bool("dry_run", opts.DryRun))

	ten, err := tenant.Default(ctx, o.db)
	if err != nil {
		return o.finish(ctx, Result{Vendor: vendor, DryRun: opts.DryRun, Err: err}, 0, started)
	}

	fetcher, ok := o.registry.Lookup(vendor)
	if !ok {
		if !vendor.IsAPIVendor() {
			// Manual-capture vendors are synced out of band through
			// SyncSnapshot once an operator captures their data.
			log.Info("no fetcher registered, vendor requires manual capture")
			return Result{Vendor: vendor, Skipped: true, DryRun: opts.DryRun}
		}
		res := Result{Vendor: vendor, DryRun: opts.DryRun, Err: fmt.Errorf("%w: %s", ErrNoFetcher, vendor)}
		return o.finish(ctx, res, o.runLog.Begin(ctx, ten.ID, string(vendor), opts.DryRun, started), started)
	}

	runID := o.runLog.Begin(ctx, ten.ID, string(vendor), opts.DryRun, started)

	creds, err := o.vendorConfigs.CredentialsFor(ctx, ten.ID, vendor)
	if err != nil {
		return o.finish(ctx, Result{Vendor: vendor, DryRun: opts.DryRun, Err: err}, runID, started)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, o.cfg.Sync.FetchTimeout)
	snap, err := fetcher.Fetch(fetchCtx, creds)
	cancel()
	if err != nil {
		// The store row stays untouched; the next run retries from the
		// same diff base.
		res := Result{Vendor: vendor, DryRun: opts.DryRun, Err: fmt.Errorf("fetch %s: %w", vendor, err)}
		return o.finish(ctx, res, runID, started)
	}
	log.Info("fetched snapshot", zap.Int("members", len(snap.Members)))

	res := o.pipeline(ctx, ten.ID, snap, opts)
	if !opts.DryRun {
		_ = o.vendorConfigs.MarkSyncResult(ctx, ten.ID, vendor, res.Err, o.clock.Now())
	}
	return o.finish(ctx, res, runID, started)
}

// SyncSnapshot runs the pipeline for an already-captured snapshot. This is
// the entry point for manual-capture vendors, whose snapshots arrive from
// out-of-band scraper or import steps.
func (o *Orchestrator) SyncSnapshot(ctx context.Context, snap snapshotdomain.VendorSnapshot, opts Options) Result {
	started := o.clock.Now()
	ten, err := tenant.Default(ctx, o.db)
	if err != nil {
		return Result{Vendor: snap.Vendor, DryRun: opts.DryRun, Err: err}
	}
	runID := o.runLog.Begin(ctx, ten.ID, string(snap.Vendor), opts.DryRun, started)
	res := o.pipeline(ctx, ten.ID, snap, opts)
	if !opts.DryRun {
		_ = o.vendorConfigs.MarkSyncResult(ctx, ten.ID, snap.Vendor, res.Err, o.clock.Now())
	}
	return o.finish(ctx, res, runID, started)
}

// pipeline is the core sequence: load base, diff, materialize, rotate.
// Rotation happens strictly after a successful write; a failed write leaves
// the baseline untouched so the lost records reappear in the next diff.
func (o *Orchestrator) pipeline(ctx context.Context, tenantID snowflake.ID, snap snapshotdomain.VendorSnapshot, opts Options) Result {
	vendor := snap.Vendor
	now := o.clock.Now()
	log := o.log.With(zap.String("vendor", string(vendor)), zap.Bool("dry_run", opts.DryRun))
	res := Result{Vendor: vendor, DryRun: opts.DryRun}

	base, err := o.store.LoadDiffBase(ctx, vendor)
	if err != nil {
		res.Err = fmt.Errorf("load diff base: %w", err)
		return res
	}

	if base == nil {
		// First run ever: there is no meaningful delta, only a baseline.
		log.Info("first sync, seeding baseline", zap.Int("members", len(snap.Members)))
		if !opts.DryRun {
			if err := o.store.Save(ctx, vendor, snap, now); err != nil {
				res.Err = fmt.Errorf("seed baseline: %w", err)
				return res
			}
		}
		res.Baseline = true
		return res
	}

	diff := snapshotdomain.ComputeDiff(snap, *base)
	res.Deltas = diff.Deltas
	res.NewMembers = diff.NewMembers
	logDiff(log, diff)

	sourceType := usagedomain.SourceScraper
	if vendor.IsAPIVendor() {
		sourceType = usagedomain.SourceAPI
	}
	records := usage.DeltasToRecords(vendor, diff.Deltas, diff.NewMembers, sourceType)

	if len(records) > 0 {
		written, err := o.writer.WriteDaily(ctx, tenantID, records, usagedomain.WriteOptions{DryRun: opts.DryRun}, now)
		if err != nil {
			res.Err = fmt.Errorf("write daily records: %w", err)
			return res
		}
		res.RecordsWritten = written
	}

	if o.cfg.Sync.SeatCosts {
		written, err := o.writer.EnsureMonthlySeatCosts(ctx, tenantID, snap, usagedomain.WriteOptions{DryRun: opts.DryRun}, now)
		if err != nil {
			res.Err = fmt.Errorf("write seat costs: %w", err)
			return res
		}
		res.RecordsWritten += written
	}

	// Rotate even when the diff was empty: "no change today" still
	// advances the baseline so tomorrow's diff is correct.
	if !opts.DryRun {
		if err := o.store.Save(ctx, vendor, snap, now); err != nil {
			res.Err = fmt.Errorf("rotate snapshot: %w", err)
			return res
		}
	}

	return res
}

// SyncAll syncs the given vendors (all of them when empty), running API
// vendors concurrently with bounded parallelism and manual-capture vendors
// serially. Per-vendor failures are collected, not propagated.
func (o *Orchestrator) SyncAll(ctx context.Context, vendors []snapshotdomain.Vendor, opts Options) BatchResult {
	if len(vendors) == 0 {
		vendors = snapshotdomain.AllVendors
	}

	var parallel, serial []snapshotdomain.Vendor
	for _, v := range vendors {
		if v.IsAPIVendor() {
			parallel = append(parallel, v)
		} else {
			serial = append(serial, v)
		}
	}

	var mu stdsync.Mutex
	var results []Result

	pool := pond.NewPool(o.cfg.Sync.MaxParallel)
	group := pool.NewGroupContext(ctx)
	for _, v := range parallel {
		vendor := v
		group.Submit(func() {
			r := o.SyncVendor(ctx, vendor, opts)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		})
	}
	_ = group.Wait()
	pool.StopAndWait()

	for _, v := range serial {
		results = append(results, o.SyncVendor(ctx, v, opts))
	}

	batch := BatchResult{Results: results}
	o.log.Info("sync batch finished",
		zap.Int("vendors", len(results)),
		zap.Int("records_written", batch.RecordsWritten()),
		zap.Bool("failed", batch.Failed()),
	)
	return batch
}

func (o *Orchestrator) finish(ctx context.Context, res Result, runID snowflake.ID, started time.Time) Result {
	finished := o.clock.Now()
	status := RunStatusSuccess
	switch {
	case res.Err != nil:
		status = RunStatusFailed
	case res.Skipped:
		status = RunStatusSkipped
	}

	o.runLog.Finish(ctx, runID, status, res.RecordsWritten, res.Err, finished)
	o.metrics.ObserveRun(string(res.Vendor), status, finished.Sub(started))
	if res.RecordsWritten > 0 && !res.DryRun {
		o.metrics.AddRecordsWritten(string(res.Vendor), res.RecordsWritten)
	}

	if res.Err != nil {
		o.log.Warn("vendor sync failed",
			zap.String("vendor", string(res.Vendor)),
			zap.Error(res.Err),
		)
	}
	return res
}

func logDiff(log *zap.Logger, diff snapshotdomain.SnapshotDiff) {
	for _, d := range diff.Deltas {
		log.Debug("member delta",
			zap.String("member", deltaName(d.VendorEmail, d.VendorUsername)),
			zap.Int64("delta_spend_cents", d.DeltaSpendCents),
			zap.Bool("billing_reset", d.BillingReset),
		)
	}
	for _, m := range diff.NewMembers {
		log.Debug("new member",
			zap.String("member", deltaName(m.VendorEmail, m.VendorUsername)),
			zap.Int64("spend_cents", m.SpendCents),
		)
	}
	if diff.VendorTotalDeltaCents != nil {
		log.Debug("pool delta", zap.Int64("delta_cents", *diff.VendorTotalDeltaCents))
	}
}

func deltaName(email, username *string) string {
	switch {
	case username != nil && *username != "":
		return *username
	case email != nil && *email != "":
		return *email
	}
	return "(unknown)"
}
