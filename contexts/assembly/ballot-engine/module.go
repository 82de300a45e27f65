package ballotengine

import (
	"log/slog"

	httpadapter "summit/contexts/assembly/ballot-engine/adapters/http"
	"summit/contexts/assembly/ballot-engine/adapters/memory"
	"summit/contexts/assembly/ballot-engine/application/commands"
	"summit/contexts/assembly/ballot-engine/application/queries"
	"summit/contexts/assembly/ballot-engine/domain/entities"
	"summit/contexts/assembly/ballot-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Resolutions ports.ResolutionRepository
	Ballots     ports.BallotRepository
	Directory   ports.Directory
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	resolutionUseCase := commands.ResolutionUseCase{
		Resolutions: deps.Resolutions,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Logger:      deps.Logger,
	}
	ballotUseCase := commands.BallotUseCase{
		Resolutions: deps.Resolutions,
		Ballots:     deps.Ballots,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Logger:      deps.Logger,
	}
	resolutionQueries := queries.ResolutionQueries{
		Resolutions: deps.Resolutions,
		Ballots:     deps.Ballots,
		Directory:   deps.Directory,
	}
	return Module{
		Handler: httpadapter.Handler{
			Resolutions: resolutionUseCase,
			Ballots:     ballotUseCase,
			Queries:     resolutionQueries,
			Logger:      deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Resolution, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Resolutions: store,
		Ballots:     store,
		Directory:   store,
		Clock:       store,
		IDGen:       store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
