package readstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"

	"library-lending-api/internal/domain/catalog"
	"library-lending-api/internal/infra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CatalogReadStore serves catalog reads the session query surface does not
// cover, notably random picks.
type CatalogReadStore struct {
	pool *pgxpool.Pool
}

func NewCatalogReadStore(pool *pgxpool.Pool) *CatalogReadStore {
	return &CatalogReadStore{pool: pool}
}

// RandomBooks picks n books at random. Used by the home page and the welcome
// notification; results are deliberately never cached.
func (r *CatalogReadStore) RandomBooks(ctx context.Context, n int) ([]*catalog.Book, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, data FROM documents
		 WHERE collection = 'Books'
		 ORDER BY random()
		 LIMIT $1`, n)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query random books", err)
	}
	defer rows.Close()

	books := make([]*catalog.Book, 0, n)
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, infra.WrapRepoErr("failed to scan book row", err)
		}
		book := &catalog.Book{}
		if err := json.Unmarshal(data, book); err != nil {
			return nil, infra.WrapRepoErr("failed to decode book "+id, err)
		}
		book.ID = id
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate book rows", err)
	}
	return books, nil
}
