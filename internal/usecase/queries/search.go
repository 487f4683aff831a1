package queries

import (
	"context"

	"library-lending-api/internal/pkg/errs"
)

const (
	maxSearchOffset = 10000
)

// Searcher is the search read store: one page of hits plus the result token.
type Searcher interface {
	Search(ctx context.Context, query string, offset int) ([]SearchHit, string, error)
}

type SearchQueries interface {
	Search(ctx context.Context, query string, offset int) ([]SearchHit, string, error)
}

type searchQueries struct {
	searcher Searcher
}

func NewSearchQueries(searcher Searcher) SearchQueries {
	return &searchQueries{searcher: searcher}
}

func (q *searchQueries) Search(ctx context.Context, query string, offset int) ([]SearchHit, string, error) {
	if offset < 0 {
		offset = 0
	}
	if offset > maxSearchOffset {
		offset = maxSearchOffset
	}

	hits, token, err := q.searcher.Search(ctx, query, offset)
	if err != nil {
		return nil, "", errs.Wrap(err, "search failed")
	}
	return hits, token, nil
}
