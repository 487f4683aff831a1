package commands

import (
	"context"
	"time"

	"library-lending-api/internal/domain/catalog"
	"library-lending-api/internal/domain/lending"
	"library-lending-api/internal/infra/docstore"
	"library-lending-api/internal/pkg/clock"
	"library-lending-api/internal/pkg/errs"
)

var (
	ErrNoAvailableCopy      = errs.New("no available copy")
	ErrBorrowConflict       = errs.New("borrow conflict")
	ErrBorrowedBookNotFound = errs.New("borrowed book not found")
	ErrNotOwner             = errs.New("borrowed book owned by another user")
	ErrAlreadyReturned      = errs.New("book already returned")
)

type LendingCommands interface {
	Borrow(ctx context.Context, userID, bookID string) (*lending.BorrowedBook, error)
	Return(ctx context.Context, userID, borrowedBookID string) error
}

type lendingCommands struct {
	store        docstore.Store
	clock        clock.Clock
	loanDuration time.Duration
}

func NewLendingCommands(store docstore.Store, clk clock.Clock, loanDuration time.Duration) LendingCommands {
	return &lendingCommands{
		store:        store,
		clock:        clk,
		loanDuration: loanDuration,
	}
}

// Borrow lends one available copy of the book to the user.
//
// The copy is picked arbitrarily among the available ones; only that single
// copy document is version-checked at commit, so two users borrowing
// different copies of the same title never conflict. When the check fails
// (another borrower won the race for this copy) the caller gets
// ErrBorrowConflict and decides whether to retry; there is no retry here.
func (c *lendingCommands) Borrow(ctx context.Context, userID, bookID string) (*lending.BorrowedBook, error) {
	sess := c.store.OpenSession()

	copies, _, err := docstore.QueryAs[catalog.BookCopy](ctx, sess, docstore.Query{
		Collection: catalog.BookCopies,
		Filters: []docstore.Filter{
			{Field: "bookId", Equals: bookID},
			{Field: "status", Equals: string(catalog.CopyAvailable)},
		},
		Limit: 1,
	})
	if err != nil {
		return nil, errs.Wrap(err, "failed to find an available copy")
	}
	if len(copies) == 0 {
		return nil, errs.Mark(errs.New("no available copy of "+bookID), ErrNoAvailableCopy)
	}

	sess.UseOptimisticConcurrency(true)

	bookCopy := copies[0]
	bookCopy.Status = catalog.CopyBorrowed
	sess.Store(bookCopy)

	borrowed := lending.NewBorrowedBook(userID,
		lending.CopyRef{CopyID: bookCopy.ID, BookID: bookCopy.BookID},
		c.clock.Now(), c.loanDuration)
	sess.Store(borrowed)
	// The lapse of the refresh marker is what eventually produces the
	// overdue timeout message for this loan.
	sess.ScheduleRefresh(borrowed, borrowed.BorrowedTo)

	if err := sess.SaveChanges(ctx); err != nil {
		if docstore.IsConcurrency(err) {
			return nil, errs.Mark(err, ErrBorrowConflict)
		}
		return nil, errs.Wrap(err, "failed to commit borrow")
	}
	return borrowed, nil
}

// Return closes the loan and frees the copy, both in one commit. A copy that
// no longer exists does not block the return; the loan record still closes.
func (c *lendingCommands) Return(ctx context.Context, userID, borrowedBookID string) error {
	sess := c.store.OpenSession()

	borrowed, err := docstore.LoadAs[lending.BorrowedBook](ctx, sess, borrowedBookID)
	if err != nil {
		return errs.Wrap(err, "failed to load borrowed book")
	}
	if borrowed == nil {
		return errs.Mark(errs.New("no borrowed book "+borrowedBookID), ErrBorrowedBookNotFound)
	}
	if borrowed.UserID != userID {
		return errs.Mark(errs.New("borrowed book "+borrowedBookID+" not owned by caller"), ErrNotOwner)
	}
	if !borrowed.Outstanding() {
		return errs.Mark(errs.New("borrowed book "+borrowedBookID+" already returned"), ErrAlreadyReturned)
	}

	sess.UseOptimisticConcurrency(true)

	now := c.clock.Now()
	borrowed.ReturnedOn = &now
	sess.Store(borrowed)
	sess.ClearRefresh(borrowed)

	bookCopy, err := docstore.LoadAs[catalog.BookCopy](ctx, sess, borrowed.BookCopyID)
	if err != nil {
		return errs.Wrap(err, "failed to load book copy")
	}
	if bookCopy != nil {
		bookCopy.Status = catalog.CopyAvailable
		sess.Store(bookCopy)
	}

	if err := sess.SaveChanges(ctx); err != nil {
		if docstore.IsConcurrency(err) {
			return errs.Mark(err, ErrBorrowConflict)
		}
		return errs.Wrap(err, "failed to commit return")
	}
	return nil
}
