//go:build e2e

package readstore_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"library-lending-api/internal/domain/account"
	"library-lending-api/internal/domain/catalog"
	"library-lending-api/internal/infra/docstore"
	"library-lending-api/internal/infra/readstore"
	"library-lending-api/tests/common/dbtest"
)

type ReadStoreTestSuite struct {
	suite.Suite
	ctx   context.Context
	pool  *pgxpool.Pool
	store *docstore.PostgresStore
}

func TestReadStoreTestSuite(t *testing.T) {
	suite.Run(t, new(ReadStoreTestSuite))
}

func (s *ReadStoreTestSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pool = dbtest.NewIsolatedPool(s.T())

	store, err := docstore.NewPostgresStore(s.ctx, s.pool)
	s.Require().NoError(err)
	s.store = store
}

func (s *ReadStoreTestSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, `TRUNCATE documents, collection_versions, timeout_queue`)
	s.Require().NoError(err)
}

func (s *ReadStoreTestSuite) mustSave(entities ...docstore.Entity) {
	sess := s.store.OpenSession()
	for _, e := range entities {
		sess.Store(e)
	}
	s.Require().NoError(sess.SaveChanges(s.ctx))
}

func (s *ReadStoreTestSuite) TestAvailabilityByBook() {
	s.mustSave(
		&catalog.BookCopy{ID: "BookCopies/1-1", BookID: "Books/1", BookEditionID: "BookEditions/1", Status: catalog.CopyAvailable},
		&catalog.BookCopy{ID: "BookCopies/1-2", BookID: "Books/1", BookEditionID: "BookEditions/1", Status: catalog.CopyAvailable},
		&catalog.BookCopy{ID: "BookCopies/1-3", BookID: "Books/1", BookEditionID: "BookEditions/1", Status: catalog.CopyBorrowed},
		&catalog.BookCopy{ID: "BookCopies/2-1", BookID: "Books/2", BookEditionID: "BookEditions/2", Status: catalog.CopyAvailable},
	)

	r := readstore.NewAvailabilityReadStore(s.pool)

	agg, stats, err := r.ByBook(s.ctx, "Books/1")
	s.Require().NoError(err)
	s.Equal(2, agg.Available)
	s.Equal(3, agg.Total)
	s.Equal("Q:BookCopies-1", stats.ResultEtag)

	// A status flip moves both the counts and the token.
	sess := s.store.OpenSession()
	flipped := &catalog.BookCopy{}
	_, err = sess.Load(s.ctx, "BookCopies/1-1", flipped)
	s.Require().NoError(err)
	flipped.Status = catalog.CopyBorrowed
	sess.Store(flipped)
	s.Require().NoError(sess.SaveChanges(s.ctx))

	agg, stats, err = r.ByBook(s.ctx, "Books/1")
	s.Require().NoError(err)
	s.Equal(1, agg.Available)
	s.Equal(3, agg.Total)
	s.Equal("Q:BookCopies-2", stats.ResultEtag)
}

func (s *ReadStoreTestSuite) TestAvailabilityForUnknownBookIsZero() {
	r := readstore.NewAvailabilityReadStore(s.pool)

	agg, stats, err := r.ByBook(s.ctx, "Books/404")
	s.Require().NoError(err)
	s.Equal(0, agg.Available)
	s.Equal(0, agg.Total)
	s.Equal("Q:BookCopies-0", stats.ResultEtag)
}

func (s *ReadStoreTestSuite) TestSearchMatchesTitlesAndAuthors() {
	s.mustSave(
		&catalog.Book{ID: "Books/1", Title: "Solaris", AuthorID: "Authors/1"},
		&catalog.Book{ID: "Books/2", Title: "The Dispossessed", AuthorID: "Authors/2"},
	)
	s.mustSave(
		&catalog.Author{ID: "Authors/1", FirstName: "Stanislaw", LastName: "Lem"},
		&catalog.Author{ID: "Authors/2", FirstName: "Ursula", LastName: "Le Guin"},
	)

	r := readstore.NewSearchReadStore(s.pool)

	hits, token, err := r.Search(s.ctx, "solaris", 0)
	s.Require().NoError(err)
	s.Require().Len(hits, 1)
	s.Equal("Books/1", hits[0].ID)
	s.Equal("Book", hits[0].Kind)
	s.Equal("Solaris", hits[0].Display)
	s.Equal("Q:Search-1-1", token)

	hits, _, err = r.Search(s.ctx, "le guin", 0)
	s.Require().NoError(err)
	s.Require().Len(hits, 1)
	s.Equal("Authors/2", hits[0].ID)
	s.Equal("Author", hits[0].Kind)

	hits, _, err = r.Search(s.ctx, "", 0)
	s.Require().NoError(err)
	s.Len(hits, 4, "an empty query lists everything")
}

func (s *ReadStoreTestSuite) TestRandomBooksPicksDistinct() {
	s.mustSave(
		&catalog.Book{ID: "Books/1", Title: "Solaris", AuthorID: "Authors/1"},
		&catalog.Book{ID: "Books/2", Title: "Emma", AuthorID: "Authors/2"},
		&catalog.Book{ID: "Books/3", Title: "Dracula", AuthorID: "Authors/3"},
	)

	r := readstore.NewCatalogReadStore(s.pool)

	books, err := r.RandomBooks(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(books, 2)
	s.NotEqual(books[0].ID, books[1].ID)
	s.NotEmpty(books[0].Title)
}

func (s *ReadStoreTestSuite) TestNotificationCountByUser() {
	s.mustSave(
		&account.Notification{ID: "Notifications/1", UserID: "Users/alice", Kind: account.KindGeneral, Text: "hi"},
		&account.Notification{ID: "Notifications/2", UserID: "Users/alice", Kind: account.KindBookOverdue, Text: "late"},
		&account.Notification{ID: "Notifications/3", UserID: "Users/bob", Kind: account.KindGeneral, Text: "hi"},
	)

	r := readstore.NewNotificationReadStore(s.pool)

	count, err := r.CountByUser(s.ctx, "Users/alice")
	s.Require().NoError(err)
	s.Equal(2, count)

	count, err = r.CountByUser(s.ctx, "Users/nobody")
	s.Require().NoError(err)
	s.Equal(0, count)
}
