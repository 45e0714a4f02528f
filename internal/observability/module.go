// Package observability bundles logging, metrics, and tracing wiring.
package observability

import (
	"go.uber.org/fx"

	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/config"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/observability/logger"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/observability/metrics"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/observability/tracing"
)

var Module = fx.Module("observability",
	logger.Module,
	tracing.Module,
	fx.Provide(func(cfg config.Config) *metrics.SyncMetrics {
		return metrics.SyncWithConfig(metrics.Config{
			ServiceName: "ai-spend-dashboard",
			Environment: cfg.Environment,
		})
	}),
)
