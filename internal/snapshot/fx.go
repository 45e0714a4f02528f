package snapshot

import (
	"go.uber.org/fx"

	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
)

var Module = fx.Module("snapshot.store",
	fx.Provide(
		fx.Annotate(NewStore, fx.As(new(domain.Store))),
	),
)
