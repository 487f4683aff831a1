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

type AuthorQueriesTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *docstore.MemoryStore
	authors queries.AuthorQueries
}

func (s *AuthorQueriesTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = docstore.NewMemoryStore()
	s.authors = queries.NewAuthorQueries(s.store)
}

func TestAuthorQueriesSuite(t *testing.T) {
	suite.Run(t, new(AuthorQueriesTestSuite))
}

func (s *AuthorQueriesTestSuite) TestGetAuthorListsTheirBooks() {
	sess := s.store.OpenSession()
	sess.Store(&catalog.Author{ID: catalog.BuildAuthorID("a1"), FirstName: "Jane", LastName: "Austen"})
	sess.Store(&catalog.Author{ID: catalog.BuildAuthorID("a2"), FirstName: "Charles", LastName: "Dickens"})
	sess.Store(&catalog.Book{ID: catalog.BuildBookID("1"), Title: "Emma", AuthorID: catalog.BuildAuthorID("a1")})
	sess.Store(&catalog.Book{ID: catalog.BuildBookID("2"), Title: "Persuasion", AuthorID: catalog.BuildAuthorID("a1")})
	sess.Store(&catalog.Book{ID: catalog.BuildBookID("3"), Title: "Bleak House", AuthorID: catalog.BuildAuthorID("a2")})
	s.Require().NoError(sess.SaveChanges(s.ctx))

	view, etag, err := s.authors.GetAuthor(s.ctx, catalog.BuildAuthorID("a1"))
	s.Require().NoError(err)

	want := &queries.AuthorDetailView{
		ID:        catalog.BuildAuthorID("a1"),
		FirstName: "Jane",
		LastName:  "Austen",
		Books: []queries.BookRef{
			{ID: catalog.BuildBookID("1"), Title: "Emma"},
			{ID: catalog.BuildBookID("2"), Title: "Persuasion"},
		},
	}
	s.Empty(cmp.Diff(want, view))
	s.NotEmpty(etag)
}

func (s *AuthorQueriesTestSuite) TestTokenChangesWhenAnyBookChanges() {
	sess := s.store.OpenSession()
	sess.Store(&catalog.Author{ID: catalog.BuildAuthorID("a1"), FirstName: "Jane", LastName: "Austen"})
	sess.Store(&catalog.Book{ID: catalog.BuildBookID("1"), Title: "Emma", AuthorID: catalog.BuildAuthorID("a1")})
	s.Require().NoError(sess.SaveChanges(s.ctx))

	_, before, err := s.authors.GetAuthor(s.ctx, catalog.BuildAuthorID("a1"))
	s.Require().NoError(err)

	// A new title by the same author must invalidate the listing.
	add := s.store.OpenSession()
	add.Store(&catalog.Book{ID: catalog.BuildBookID("2"), Title: "Persuasion", AuthorID: catalog.BuildAuthorID("a1")})
	s.Require().NoError(add.SaveChanges(s.ctx))

	_, after, err := s.authors.GetAuthor(s.ctx, catalog.BuildAuthorID("a1"))
	s.Require().NoError(err)
	s.NotEqual(before, after)
}

func (s *AuthorQueriesTestSuite) TestGetAuthorNotFound() {
	_, _, err := s.authors.GetAuthor(s.ctx, catalog.BuildAuthorID("none"))
	s.ErrorIs(err, queries.ErrAuthorNotFound)
}
