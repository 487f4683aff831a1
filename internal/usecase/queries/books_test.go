//go:build unit

package queries_test

import (
	"context"
	"testing"

	"library-lending-api/internal/domain/catalog"
	"library-lending-api/internal/infra/docstore"
	"library-lending-api/internal/usecase/queries"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/suite"
)

type stubAvailability struct {
	availability catalog.Availability
	token        string
}

func (a *stubAvailability) ByBook(_ context.Context, bookID string) (catalog.Availability, docstore.Stats, error) {
	result := a.availability
	result.BookID = bookID
	return result, docstore.Stats{ResultEtag: a.token}, nil
}

type BookQueriesTestSuite struct {
	suite.Suite
	ctx          context.Context
	store        *docstore.MemoryStore
	availability *stubAvailability
	books        queries.BookQueries
}

func (s *BookQueriesTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = docstore.NewMemoryStore()
	s.availability = &stubAvailability{
		availability: catalog.Availability{Available: 2, Total: 3},
		token:        "Q:BookCopies-7",
	}
	s.books = queries.NewBookQueries(s.store, s.availability)
}

func TestBookQueriesSuite(t *testing.T) {
	suite.Run(t, new(BookQueriesTestSuite))
}

func (s *BookQueriesTestSuite) seedCatalog() {
	sess := s.store.OpenSession()
	sess.Store(&catalog.Author{ID: catalog.BuildAuthorID("a1"), FirstName: "Ursula K.", LastName: "Le Guin"})
	sess.Store(&catalog.Book{
		ID:          catalog.BuildBookID("1"),
		Title:       "A Wizard of Earthsea",
		AuthorID:    catalog.BuildAuthorID("a1"),
		Description: "The true names of things.",
	})
	s.Require().NoError(sess.SaveChanges(s.ctx))
}

func (s *BookQueriesTestSuite) TestGetBookAssemblesView() {
	s.seedCatalog()

	view, etag, err := s.books.GetBook(s.ctx, catalog.BuildBookID("1"))
	s.Require().NoError(err)

	want := &queries.BookView{
		ID:          catalog.BuildBookID("1"),
		Title:       "A Wizard of Earthsea",
		Description: "The true names of things.",
		Author: &queries.AuthorView{
			ID:        catalog.BuildAuthorID("a1"),
			FirstName: "Ursula K.",
			LastName:  "Le Guin",
		},
		Availability: queries.AvailabilityView{Available: 2, Total: 3},
	}
	s.Empty(cmp.Diff(want, view))

	// Token covers availability, author, and book, in that order.
	s.Equal("Q:BookCopies-7=A:1-mem=A:1-mem", etag)
}

func (s *BookQueriesTestSuite) TestTokenChangesWhenBookChanges() {
	s.seedCatalog()

	_, before, err := s.books.GetBook(s.ctx, catalog.BuildBookID("1"))
	s.Require().NoError(err)

	sess := s.store.OpenSession()
	book, err := docstore.LoadAs[catalog.Book](s.ctx, sess, catalog.BuildBookID("1"))
	s.Require().NoError(err)
	book.Description = "Revised."
	sess.Store(book)
	s.Require().NoError(sess.SaveChanges(s.ctx))

	_, after, err := s.books.GetBook(s.ctx, catalog.BuildBookID("1"))
	s.Require().NoError(err)
	s.NotEqual(before, after)
}

func (s *BookQueriesTestSuite) TestMissingAuthorDegradesToUncached() {
	sess := s.store.OpenSession()
	sess.Store(&catalog.Book{
		ID:       catalog.BuildBookID("1"),
		Title:    "Orphan",
		AuthorID: catalog.BuildAuthorID("gone"),
	})
	s.Require().NoError(sess.SaveChanges(s.ctx))

	view, etag, err := s.books.GetBook(s.ctx, catalog.BuildBookID("1"))
	s.Require().NoError(err)
	s.Nil(view.Author)
	// A partial assembly never gets a validator.
	s.Empty(etag)
}

func (s *BookQueriesTestSuite) TestGetBookNotFound() {
	_, _, err := s.books.GetBook(s.ctx, catalog.BuildBookID("none"))
	s.ErrorIs(err, queries.ErrBookNotFound)
}
