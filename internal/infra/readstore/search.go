package readstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"library-lending-api/internal/infra"
	"library-lending-api/internal/usecase/queries"
)

const searchPageSize = 10

// SearchReadStore answers the global search endpoint with a substring match
// over book titles/descriptions and author names. No relevance ranking; hits
// come back in id order.
type SearchReadStore struct {
	pool *pgxpool.Pool
}

func NewSearchReadStore(pool *pgxpool.Pool) *SearchReadStore {
	return &SearchReadStore{pool: pool}
}

// Search returns up to one page of hits plus a result token derived from the
// versions of both searched collections.
func (r *SearchReadStore) Search(ctx context.Context, query string, offset int) ([]queries.SearchHit, string, error) {
	// Token before the data query; a write in between only invalidates the
	// token early.
	token, err := r.resultToken(ctx)
	if err != nil {
		return nil, "", err
	}

	pattern := "%" + query + "%"

	rows, err := r.pool.Query(ctx, `
		SELECT id, 'Book' AS kind, data->>'title' AS display
		FROM documents
		WHERE collection = 'Books'
		  AND ($1 = '' OR data->>'title' ILIKE $2 OR data->>'description' ILIKE $2)
		UNION ALL
		SELECT id, 'Author' AS kind,
		       (data->>'firstName') || ' ' || (data->>'lastName') AS display
		FROM documents
		WHERE collection = 'Authors'
		  AND ($1 = '' OR (data->>'firstName') || ' ' || (data->>'lastName') ILIKE $2)
		ORDER BY id
		LIMIT $3 OFFSET $4`,
		query, pattern, searchPageSize, offset)
	if err != nil {
		return nil, "", infra.WrapRepoErr("failed to run search query", err)
	}
	defer rows.Close()

	hits := make([]queries.SearchHit, 0, searchPageSize)
	for rows.Next() {
		var hit queries.SearchHit
		if err := rows.Scan(&hit.ID, &hit.Kind, &hit.Display); err != nil {
			return nil, "", infra.WrapRepoErr("failed to scan search row", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, "", infra.WrapRepoErr("failed to iterate search rows", err)
	}
	return hits, token, nil
}

func (r *SearchReadStore) resultToken(ctx context.Context) (string, error) {
	var books, authors int64
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT version FROM collection_versions WHERE collection = 'Books'), 0),
			COALESCE((SELECT version FROM collection_versions WHERE collection = 'Authors'), 0)`).
		Scan(&books, &authors)
	if err != nil {
		return "", infra.WrapRepoErr("failed to read search result token", err)
	}
	return fmt.Sprintf("Q:Search-%d-%d", books, authors), nil
}
