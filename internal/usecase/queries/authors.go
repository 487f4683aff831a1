package queries

import (
	"context"

	"library-lending-api/internal/domain/catalog"
	"library-lending-api/internal/infra/docstore"
	"library-lending-api/internal/pkg/errs"
)

type AuthorQueries interface {
	GetAuthor(ctx context.Context, authorID string) (*AuthorDetailView, string, error)
}

type authorQueries struct {
	store docstore.Store
}

func NewAuthorQueries(store docstore.Store) AuthorQueries {
	return &authorQueries{store: store}
}

func (q *authorQueries) GetAuthor(ctx context.Context, authorID string) (*AuthorDetailView, string, error) {
	sess := q.store.OpenSession()

	author, err := docstore.LoadAs[catalog.Author](ctx, sess, authorID)
	if err != nil {
		return nil, "", errs.Wrap(err, "failed to load author")
	}
	if author == nil {
		return nil, "", errs.Mark(errs.New("no author "+authorID), ErrAuthorNotFound)
	}

	books, stats, err := docstore.QueryAs[catalog.Book](ctx, sess, docstore.Query{
		Collection: catalog.Books,
		Filters:    []docstore.Filter{{Field: "authorId", Equals: authorID}},
	})
	if err != nil {
		return nil, "", errs.Wrap(err, "failed to query author's books")
	}

	view := &AuthorDetailView{
		ID:        author.ID,
		FirstName: author.FirstName,
		LastName:  author.LastName,
		Books:     make([]BookRef, 0, len(books)),
	}
	for _, book := range books {
		view.Books = append(view.Books, BookRef{ID: book.ID, Title: book.Title})
	}

	authorCV, _ := sess.ChangeVectorOf(author)
	return view, docstore.CompositeTag(stats.ResultEtag, authorCV), nil
}
