package queries

import (
	"context"

	"library-lending-api/internal/domain/catalog"
	"library-lending-api/internal/domain/lending"
	"library-lending-api/internal/infra/docstore"
	"library-lending-api/internal/pkg/errs"
)

type ProfileQueries interface {
	// GetProfile lists the user's outstanding loans joined to their books.
	GetProfile(ctx context.Context, userID string) (*ProfileView, error)
}

type profileQueries struct {
	store docstore.Store
}

func NewProfileQueries(store docstore.Store) ProfileQueries {
	return &profileQueries{store: store}
}

func (q *profileQueries) GetProfile(ctx context.Context, userID string) (*ProfileView, error) {
	sess := q.store.OpenSession()

	borrowed, _, err := docstore.QueryAs[lending.BorrowedBook](ctx, sess, docstore.Query{
		Collection: lending.Collection,
		Filters:    []docstore.Filter{{Field: "userId", Equals: userID}},
		Missing:    []string{"returnedOn"},
	})
	if err != nil {
		return nil, errs.Wrap(err, "failed to query borrowed books")
	}

	view := &ProfileView{ID: userID, Borrowed: make([]BookRef, 0, len(borrowed))}

	seen := make(map[string]struct{})
	for _, loan := range borrowed {
		if _, dup := seen[loan.BookID]; dup {
			continue
		}
		seen[loan.BookID] = struct{}{}

		book, err := docstore.LoadAs[catalog.Book](ctx, sess, loan.BookID)
		if err != nil {
			return nil, errs.Wrap(err, "failed to load book")
		}
		if book == nil {
			continue
		}
		view.Borrowed = append(view.Borrowed, BookRef{ID: book.ID, Title: book.Title})
	}
	return view, nil
}
