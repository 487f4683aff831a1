package readstore

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"library-lending-api/internal/domain/catalog"
	"library-lending-api/internal/infra"
	"library-lending-api/internal/infra/docstore"
)

// AvailabilityReadStore reads the derived per-book copy aggregate. The
// application never writes it; the counts fall out of the copy documents.
type AvailabilityReadStore struct {
	pool *pgxpool.Pool
}

func NewAvailabilityReadStore(pool *pgxpool.Pool) *AvailabilityReadStore {
	return &AvailabilityReadStore{pool: pool}
}

// ByBook returns the aggregate plus the result token it was computed at. A
// book with no copies yields a zero aggregate, not an error.
func (r *AvailabilityReadStore) ByBook(ctx context.Context, bookID string) (catalog.Availability, docstore.Stats, error) {
	// Token before counts, so a concurrent borrow can only make the token
	// stale, never tag stale counts as fresh.
	var version int64
	err := r.pool.QueryRow(ctx,
		`SELECT version FROM collection_versions WHERE collection = 'BookCopies'`).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		version = 0
	} else if err != nil {
		return catalog.Availability{}, docstore.Stats{}, infra.WrapRepoErr("failed to read availability version", err)
	}
	stats := docstore.Stats{ResultEtag: "Q:BookCopies-" + strconv.FormatInt(version, 10)}

	agg := catalog.Availability{BookID: bookID}
	err = r.pool.QueryRow(ctx,
		`SELECT
			count(*) FILTER (WHERE data->>'status' = 'Available'),
			count(*)
		 FROM documents
		 WHERE collection = 'BookCopies' AND data->>'bookId' = $1`,
		bookID).Scan(&agg.Available, &agg.Total)
	if err != nil {
		return catalog.Availability{}, docstore.Stats{}, infra.WrapRepoErr("failed to read availability", err)
	}
	return agg, stats, nil
}
