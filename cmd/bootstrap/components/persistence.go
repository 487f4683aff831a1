package components

import (
	"context"
	"log/slog"

	"library-lending-api/internal/infra/docstore"
	"library-lending-api/internal/infra/readstore"
	"library-lending-api/internal/infra/seed"
	"library-lending-api/internal/usecase/commands"
	"library-lending-api/internal/usecase/queries"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	docstoreModule,
	readstoreModule,
	fx.Invoke(seedCatalog),
)

var docstoreModule = fx.Module("persistence/docstore",
	fx.Provide(
		fx.Annotate(
			NewDocumentStore,
			fx.As(new(docstore.Store)),
		),
	),
)

var readstoreModule = fx.Module("persistence/readstore",
	fx.Provide(
		// Availability
		fx.Annotate(
			readstore.NewAvailabilityReadStore,
			fx.As(new(queries.AvailabilityReader)),
		),
		// Catalog (random book selection)
		fx.Annotate(
			readstore.NewCatalogReadStore,
			fx.As(new(queries.BookPicker)),
			fx.As(new(commands.RandomBookPicker)),
		),
		// Search
		fx.Annotate(
			readstore.NewSearchReadStore,
			fx.As(new(queries.Searcher)),
		),
		// Notification count
		fx.Annotate(
			readstore.NewNotificationReadStore,
			fx.As(new(queries.NotificationCounter)),
		),
	),
)

func NewDocumentStore(pool *pgxpool.Pool) (*docstore.PostgresStore, error) {
	return docstore.NewPostgresStore(context.Background(), pool)
}

func seedCatalog(lc fx.Lifecycle, store docstore.Store, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return seed.EnsureCatalog(ctx, store, logger)
		},
	})
}
