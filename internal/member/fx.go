package member

import (
	"go.uber.org/fx"

	usagedomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/usage/domain"
)

var Module = fx.Module("member.resolver",
	fx.Provide(
		fx.Annotate(NewBuilder, fx.As(new(usagedomain.ResolverBuilder))),
	),
)
