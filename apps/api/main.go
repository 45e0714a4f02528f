// Command api is the long-lived operator service: it exposes the sync
// trigger and status endpoints and runs the cron schedule.
package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/clock"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/config"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/member"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/migration"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/observability"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/seed"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/server"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot"
	syncengine "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/sync"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/usage"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/vendorconfig"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		seed.Module,

		snapshot.Module,
		usage.Module,
		member.Module,
		vendorconfig.Module,
		syncengine.Module,
		syncengine.SchedulerModule,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterAPIRoutes()
		}),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
