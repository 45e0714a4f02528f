package sync

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/config"
)

// Scheduler triggers full sync batches on a cron schedule when running the
// long-lived API service. The one-shot batch binary does not use it.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

// NewScheduler wires the orchestrator onto the configured cron spec. Each
// run is bounded by the configured run timeout so a hung vendor API cannot
// stall the next scheduled batch.
func NewScheduler(cfg config.Config, orchestrator *Orchestrator, log *zap.Logger) (*Scheduler, error) {
	log = log.Named("sync.scheduler")
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{log})))

	_, err := c.AddFunc(cfg.Sync.CronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.RunTimeout)
		defer cancel()

		batch := orchestrator.SyncAll(ctx, nil, Options{})
		if batch.Failed() {
			log.Warn("scheduled sync finished with failures")
		}
	})
	if err != nil {
		return nil, err
	}

	return &Scheduler{cron: c, log: log}, nil
}

// Start begins the schedule.
func (s *Scheduler) Start() {
	s.log.Info("starting sync schedule")
	s.cron.Start()
}

// Stop halts the schedule and waits for a running batch to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zap to the cron logger interface for panic recovery.
type cronLogger struct {
	log *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Sugar().Infow(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
