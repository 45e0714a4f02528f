package usage

import (
	"go.uber.org/fx"

	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/usage/domain"
)

var Module = fx.Module("usage.writer",
	fx.Provide(
		fx.Annotate(NewWriter, fx.As(new(domain.RecordWriter))),
	),
)
