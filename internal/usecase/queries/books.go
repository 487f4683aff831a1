package queries

import (
	"context"

	"library-lending-api/internal/domain/catalog"
	"library-lending-api/internal/infra/docstore"
	"library-lending-api/internal/pkg/errs"
)

var (
	ErrBookNotFound   = errs.New("book not found")
	ErrAuthorNotFound = errs.New("author not found")
)

// AvailabilityReader reads the derived copy aggregate with its result token.
type AvailabilityReader interface {
	ByBook(ctx context.Context, bookID string) (catalog.Availability, docstore.Stats, error)
}

type BookQueries interface {
	// GetBook assembles the book page: book, author, availability. The
	// returned token validates the whole assembly; its parts are combined in
	// fixed call-site order (availability, author, book).
	GetBook(ctx context.Context, bookID string) (*BookView, string, error)
}

type bookQueries struct {
	store        docstore.Store
	availability AvailabilityReader
}

func NewBookQueries(store docstore.Store, availability AvailabilityReader) BookQueries {
	return &bookQueries{store: store, availability: availability}
}

func (q *bookQueries) GetBook(ctx context.Context, bookID string) (*BookView, string, error) {
	sess := q.store.OpenSession()

	book, err := docstore.LoadAs[catalog.Book](ctx, sess, bookID)
	if err != nil {
		return nil, "", errs.Wrap(err, "failed to load book")
	}
	if book == nil {
		return nil, "", errs.Mark(errs.New("no book "+bookID), ErrBookNotFound)
	}

	author, err := docstore.LoadAs[catalog.Author](ctx, sess, book.AuthorID)
	if err != nil {
		return nil, "", errs.Wrap(err, "failed to load author")
	}

	availability, stats, err := q.availability.ByBook(ctx, book.ID)
	if err != nil {
		return nil, "", errs.Wrap(err, "failed to read availability")
	}

	view := &BookView{
		ID:          book.ID,
		Title:       book.Title,
		Description: book.Description,
		Availability: AvailabilityView{
			Available: availability.Available,
			Total:     availability.Total,
		},
	}

	var authorCV string
	if author != nil {
		view.Author = &AuthorView{ID: author.ID, FirstName: author.FirstName, LastName: author.LastName}
		authorCV, _ = sess.ChangeVectorOf(author)
	}
	bookCV, _ := sess.ChangeVectorOf(book)

	return view, docstore.CompositeTag(stats.ResultEtag, authorCV, bookCV), nil
}
