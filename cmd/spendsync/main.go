// Command spendsync runs one sync batch and exits. It is the entry point
// for cron-style deployments that do not need the long-lived API service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/clock"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/config"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/member"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/migration"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/observability"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/seed"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot"
	snapshotdomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
	syncengine "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/sync"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/usage"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/vendorconfig"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/pkg/db"
)

type batchOptions struct {
	vendor string
	dryRun bool
}

func main() {
	opts := batchOptions{}
	flag.StringVar(&opts.vendor, "vendor", "", "sync a single vendor instead of all")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "fetch and diff without writing")
	flag.Parse()

	if opts.vendor != "" {
		if _, ok := snapshotdomain.ParseVendor(opts.vendor); !ok {
			fmt.Fprintf(os.Stderr, "unknown vendor: %s\n", opts.vendor)
			os.Exit(2)
		}
	}

	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,
		seed.Module,

		snapshot.Module,
		usage.Module,
		member.Module,
		vendorconfig.Module,
		syncengine.Module,

		fx.Supply(opts),
		fx.Invoke(runBatch),
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func runBatch(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	orchestrator *syncengine.Orchestrator,
	cfg config.Config,
	log *zap.Logger,
	opts batchOptions,
) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.RunTimeout)
				defer cancel()

				var vendors []snapshotdomain.Vendor
				if opts.vendor != "" {
					vendor, _ := snapshotdomain.ParseVendor(opts.vendor)
					vendors = []snapshotdomain.Vendor{vendor}
				}

				batch := orchestrator.SyncAll(ctx, vendors, syncengine.Options{DryRun: opts.dryRun})

				code := 0
				if batch.Failed() {
					code = 1
				}
				log.Info("batch complete",
					zap.Int("records_written", batch.RecordsWritten()),
					zap.Int("exit_code", code),
				)
				_ = shutdowner.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
	})
}
