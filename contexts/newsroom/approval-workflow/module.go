package approvalworkflow

import (
	"log/slog"

	httpadapter "summit/contexts/newsroom/approval-workflow/adapters/http"
	"summit/contexts/newsroom/approval-workflow/adapters/memory"
	"summit/contexts/newsroom/approval-workflow/application/commands"
	"summit/contexts/newsroom/approval-workflow/application/queries"
	"summit/contexts/newsroom/approval-workflow/domain/entities"
	"summit/contexts/newsroom/approval-workflow/domain/services"
	"summit/contexts/newsroom/approval-workflow/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Articles   ports.ArticleRepository
	Thresholds services.QuorumThresholds
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	thresholds := deps.Thresholds.WithDefaults()
	articleUseCase := commands.ArticleUseCase{
		Articles: deps.Articles,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Logger:   deps.Logger,
	}
	reviewUseCase := commands.ReviewUseCase{
		Articles:   deps.Articles,
		Thresholds: thresholds,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	articleQueries := queries.ArticleQueries{
		Articles:   deps.Articles,
		Thresholds: thresholds,
	}
	return Module{
		Handler: httpadapter.Handler{
			Articles: articleUseCase,
			Reviews:  reviewUseCase,
			Queries:  articleQueries,
			Logger:   deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to one memory store. Zero thresholds
// fall back to two journalists and one leader.
func NewInMemoryModule(seed []entities.Article, thresholds services.QuorumThresholds, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Articles:   store,
		Thresholds: thresholds,
		Clock:      store,
		IDGen:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
