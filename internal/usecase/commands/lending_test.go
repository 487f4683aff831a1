//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"library-lending-api/internal/domain/account"
	"library-lending-api/internal/domain/catalog"
	"library-lending-api/internal/domain/lending"
	"library-lending-api/internal/infra/docstore"
	"library-lending-api/internal/pkg/clock"
	"library-lending-api/internal/usecase/commands"

	"github.com/stretchr/testify/suite"
)

const loanDuration = 30 * time.Second

type LendingCommandsTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *docstore.MemoryStore
	clock   *clock.MockClock
	lending commands.LendingCommands
}

func (s *LendingCommandsTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = docstore.NewMemoryStore()
	s.clock = clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.lending = commands.NewLendingCommands(s.store, s.clock, loanDuration)
}

func TestLendingCommandsSuite(t *testing.T) {
	suite.Run(t, new(LendingCommandsTestSuite))
}

// seedBook writes one book with the given copies and returns the book id.
func (s *LendingCommandsTestSuite) seedBook(bookNumber string, copyStatuses ...catalog.CopyStatus) string {
	sess := s.store.OpenSession()
	bookID := catalog.BuildBookID(bookNumber)
	sess.Store(&catalog.Book{
		ID:       bookID,
		Title:    "Book " + bookNumber,
		AuthorID: catalog.BuildAuthorID("a1"),
	})
	for i, status := range copyStatuses {
		sess.Store(&catalog.BookCopy{
			ID:            catalog.BuildBookCopyID(bookNumber + "-" + string(rune('1'+i))),
			BookEditionID: catalog.BuildBookEditionID(bookNumber),
			BookID:        bookID,
			Status:        status,
		})
	}
	s.Require().NoError(sess.SaveChanges(s.ctx))
	return bookID
}

func (s *LendingCommandsTestSuite) copyStatuses(bookID string) map[string]string {
	statuses := make(map[string]string)
	err := s.store.ForEachDocument(catalog.BookCopies, func(id string, fields map[string]any) {
		if fields["bookId"] == bookID {
			statuses[id], _ = fields["status"].(string)
		}
	})
	s.Require().NoError(err)
	return statuses
}

func (s *LendingCommandsTestSuite) TestBorrowLendsOneCopy() {
	bookID := s.seedBook("1", catalog.CopyAvailable, catalog.CopyAvailable)
	userID := account.BuildUserID("alice")

	borrowed, err := s.lending.Borrow(s.ctx, userID, bookID)
	s.Require().NoError(err)

	s.True(lending.IsIDOf(borrowed.ID))
	s.Equal(userID, borrowed.UserID)
	s.Equal(bookID, borrowed.BookID)
	s.Equal(s.clock.Now(), borrowed.BorrowedFrom)
	s.Equal(s.clock.Now().Add(loanDuration), borrowed.BorrowedTo)
	s.Nil(borrowed.ReturnedOn)

	// Exactly one copy flipped to Borrowed.
	statuses := s.copyStatuses(bookID)
	borrowedCount := 0
	for _, status := range statuses {
		if status == string(catalog.CopyBorrowed) {
			borrowedCount++
		}
	}
	s.Equal(1, borrowedCount)
	s.Equal(string(catalog.CopyBorrowed), statuses[borrowed.BookCopyID])

	// The loan's due time is the scheduled refresh.
	s.Empty(s.store.PopDueRefreshes(borrowed.BorrowedTo.Add(-time.Second)))
	s.Equal([]string{borrowed.ID}, s.store.PopDueRefreshes(borrowed.BorrowedTo))
}

func (s *LendingCommandsTestSuite) TestBorrowWithoutAvailableCopy() {
	bookID := s.seedBook("1", catalog.CopyBorrowed)

	_, err := s.lending.Borrow(s.ctx, account.BuildUserID("alice"), bookID)
	s.ErrorIs(err, commands.ErrNoAvailableCopy)
}

func (s *LendingCommandsTestSuite) TestBorrowUnknownBook() {
	_, err := s.lending.Borrow(s.ctx, account.BuildUserID("alice"), catalog.BuildBookID("none"))
	s.ErrorIs(err, commands.ErrNoAvailableCopy)
}

func (s *LendingCommandsTestSuite) TestConcurrentBorrowOfLastCopy() {
	// Both borrowers read the same single available copy; the memory store
	// serializes the commits, so the second one fails its version check the
	// same way a second request would against Postgres.
	bookID := s.seedBook("1", catalog.CopyAvailable)

	_, err := s.lending.Borrow(s.ctx, account.BuildUserID("alice"), bookID)
	s.Require().NoError(err)

	_, err = s.lending.Borrow(s.ctx, account.BuildUserID("bob"), bookID)
	s.ErrorIs(err, commands.ErrNoAvailableCopy)
}

// interceptStore runs a hook right before a session commits, to wedge a
// competing write into the gap between read and save.
type interceptStore struct {
	inner      docstore.Store
	beforeSave func()
}

func (s *interceptStore) OpenSession() docstore.Session {
	return &interceptSession{Session: s.inner.OpenSession(), store: s}
}

type interceptSession struct {
	docstore.Session
	store *interceptStore
}

func (s *interceptSession) SaveChanges(ctx context.Context) error {
	if hook := s.store.beforeSave; hook != nil {
		s.store.beforeSave = nil
		hook()
	}
	return s.Session.SaveChanges(ctx)
}

func (s *LendingCommandsTestSuite) TestBorrowConflictWhenCopyTakenMidFlight() {
	bookID := s.seedBook("1", catalog.CopyAvailable)

	raced := &interceptStore{inner: s.store}
	raced.beforeSave = func() {
		// Bob commits the same copy after Alice read it but before she saves.
		sess := s.store.OpenSession()
		bookCopy, err := docstore.LoadAs[catalog.BookCopy](s.ctx, sess, catalog.BuildBookCopyID("1-1"))
		s.Require().NoError(err)
		bookCopy.Status = catalog.CopyBorrowed
		sess.Store(bookCopy)
		s.Require().NoError(sess.SaveChanges(s.ctx))
	}

	racedLending := commands.NewLendingCommands(raced, s.clock, loanDuration)
	_, err := racedLending.Borrow(s.ctx, account.BuildUserID("alice"), bookID)
	s.ErrorIs(err, commands.ErrBorrowConflict)
}

func (s *LendingCommandsTestSuite) TestReturnFreesCopyAndClosesLoan() {
	bookID := s.seedBook("1", catalog.CopyAvailable)
	userID := account.BuildUserID("alice")

	borrowed, err := s.lending.Borrow(s.ctx, userID, bookID)
	s.Require().NoError(err)

	s.clock.Add(10 * time.Second)
	s.Require().NoError(s.lending.Return(s.ctx, userID, borrowed.ID))

	sess := s.store.OpenSession()
	closed, err := docstore.LoadAs[lending.BorrowedBook](s.ctx, sess, borrowed.ID)
	s.Require().NoError(err)
	s.Require().NotNil(closed.ReturnedOn)
	s.Equal(s.clock.Now(), *closed.ReturnedOn)
	s.False(closed.Outstanding())

	statuses := s.copyStatuses(bookID)
	s.Equal(string(catalog.CopyAvailable), statuses[borrowed.BookCopyID])

	// The overdue refresh was cancelled with the return.
	s.Empty(s.store.PopDueRefreshes(borrowed.BorrowedTo.Add(time.Hour)))
}

func (s *LendingCommandsTestSuite) TestReturnedCopyCanBeBorrowedAgain() {
	bookID := s.seedBook("1", catalog.CopyAvailable)
	userID := account.BuildUserID("alice")

	first, err := s.lending.Borrow(s.ctx, userID, bookID)
	s.Require().NoError(err)
	s.Require().NoError(s.lending.Return(s.ctx, userID, first.ID))

	second, err := s.lending.Borrow(s.ctx, account.BuildUserID("bob"), bookID)
	s.Require().NoError(err)
	s.Equal(first.BookCopyID, second.BookCopyID)
}

func (s *LendingCommandsTestSuite) TestReturnUnknownLoan() {
	err := s.lending.Return(s.ctx, account.BuildUserID("alice"), lending.BuildID("none"))
	s.ErrorIs(err, commands.ErrBorrowedBookNotFound)
}

func (s *LendingCommandsTestSuite) TestReturnByNonOwner() {
	bookID := s.seedBook("1", catalog.CopyAvailable)

	borrowed, err := s.lending.Borrow(s.ctx, account.BuildUserID("alice"), bookID)
	s.Require().NoError(err)

	err = s.lending.Return(s.ctx, account.BuildUserID("bob"), borrowed.ID)
	s.ErrorIs(err, commands.ErrNotOwner)

	// The loan is untouched.
	sess := s.store.OpenSession()
	still, loadErr := docstore.LoadAs[lending.BorrowedBook](s.ctx, sess, borrowed.ID)
	s.Require().NoError(loadErr)
	s.True(still.Outstanding())
}

func (s *LendingCommandsTestSuite) TestReturnTwice() {
	bookID := s.seedBook("1", catalog.CopyAvailable)
	userID := account.BuildUserID("alice")

	borrowed, err := s.lending.Borrow(s.ctx, userID, bookID)
	s.Require().NoError(err)
	s.Require().NoError(s.lending.Return(s.ctx, userID, borrowed.ID))

	err = s.lending.Return(s.ctx, userID, borrowed.ID)
	s.ErrorIs(err, commands.ErrAlreadyReturned)
}

func (s *LendingCommandsTestSuite) TestReturnSurvivesMissingCopy() {
	bookID := s.seedBook("1", catalog.CopyAvailable)
	userID := account.BuildUserID("alice")

	borrowed, err := s.lending.Borrow(s.ctx, userID, bookID)
	s.Require().NoError(err)

	// The copy was withdrawn from the catalog while on loan.
	sess := s.store.OpenSession()
	bookCopy, err := docstore.LoadAs[catalog.BookCopy](s.ctx, sess, borrowed.BookCopyID)
	s.Require().NoError(err)
	sess.Delete(bookCopy)
	s.Require().NoError(sess.SaveChanges(s.ctx))

	s.Require().NoError(s.lending.Return(s.ctx, userID, borrowed.ID))

	check := s.store.OpenSession()
	closed, err := docstore.LoadAs[lending.BorrowedBook](s.ctx, check, borrowed.ID)
	s.Require().NoError(err)
	s.False(closed.Outstanding())
}

func (s *LendingCommandsTestSuite) TestCopyCountConservedThroughLending() {
	bookID := s.seedBook("1", catalog.CopyAvailable, catalog.CopyAvailable, catalog.CopyAvailable)
	userID := account.BuildUserID("alice")

	first, err := s.lending.Borrow(s.ctx, userID, bookID)
	s.Require().NoError(err)
	_, err = s.lending.Borrow(s.ctx, account.BuildUserID("bob"), bookID)
	s.Require().NoError(err)
	s.Require().NoError(s.lending.Return(s.ctx, userID, first.ID))

	statuses := s.copyStatuses(bookID)
	s.Len(statuses, 3)
	available := 0
	for _, status := range statuses {
		if status == string(catalog.CopyAvailable) {
			available++
		}
	}
	s.Equal(2, available)
}
