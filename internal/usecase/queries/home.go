package queries

import (
	"context"

	"library-lending-api/internal/domain/catalog"
	"library-lending-api/internal/infra/docstore"
	"library-lending-api/internal/pkg/errs"
)

const homeBookCount = 8

// BookPicker supplies random books for the home page.
type BookPicker interface {
	RandomBooks(ctx context.Context, n int) ([]*catalog.Book, error)
}

type HomeQueries interface {
	// HomeBooks returns a randomized selection; never cached.
	HomeBooks(ctx context.Context) ([]HomeBookView, error)
}

type homeQueries struct {
	store  docstore.Store
	picker BookPicker
}

func NewHomeQueries(store docstore.Store, picker BookPicker) HomeQueries {
	return &homeQueries{store: store, picker: picker}
}

func (q *homeQueries) HomeBooks(ctx context.Context) ([]HomeBookView, error) {
	books, err := q.picker.RandomBooks(ctx, homeBookCount)
	if err != nil {
		return nil, errs.Wrap(err, "failed to pick home books")
	}

	sess := q.store.OpenSession()
	authors := make(map[string]*catalog.Author)

	views := make([]HomeBookView, 0, len(books))
	for _, book := range books {
		view := HomeBookView{ID: book.ID, Title: book.Title}

		author, cached := authors[book.AuthorID]
		if !cached {
			author, err = docstore.LoadAs[catalog.Author](ctx, sess, book.AuthorID)
			if err != nil {
				return nil, errs.Wrap(err, "failed to load author")
			}
			authors[book.AuthorID] = author
		}
		if author != nil {
			view.Author = &AuthorView{ID: author.ID, FirstName: author.FirstName, LastName: author.LastName}
		}
		views = append(views, view)
	}
	return views, nil
}
