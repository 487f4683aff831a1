package components

import (
	"log/slog"

	"library-lending-api/internal/infra/docstore"
	"library-lending-api/internal/pkg/clock"
	"library-lending-api/internal/pkg/config"
	"library-lending-api/internal/usecase/commands"
	"library-lending-api/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseCommandsModule,
	usecaseQueriesModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		func(store docstore.Store, clk clock.Clock, cfg config.Config) commands.LendingCommands {
			return commands.NewLendingCommands(store, clk, cfg.Lending.LoanDuration)
		},
		commands.NewProfileCommands,
		commands.NewNotificationCommands,
		func(store docstore.Store, logger *slog.Logger) commands.TimeoutCommands {
			return commands.NewTimeoutCommands(store, logger)
		},
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewBookQueries,
		queries.NewAuthorQueries,
		queries.NewSearchQueries,
		queries.NewHomeQueries,
		queries.NewProfileQueries,
		queries.NewNotificationQueries,
	),
)
