package sync

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("sync",
	fx.Provide(NewRegistry),
	fx.Provide(NewRunLog),
	fx.Provide(NewOrchestrator),
)

// SchedulerModule runs the cron schedule; only the API service includes it.
var SchedulerModule = fx.Module("sync.scheduler",
	fx.Provide(NewScheduler),
	fx.Invoke(runScheduler),
)

func runScheduler(lc fx.Lifecycle, scheduler *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return scheduler.Stop(ctx)
		},
	})
}
