package lending

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Collection = "BorrowedBooks"

	idPrefix = Collection + "/"
)

// BorrowedBook records one loan of one physical copy. It is created when a
// borrow succeeds and mutated exactly once, when the copy is returned.
// Rows are never deleted; the ledger is the audit trail.
type BorrowedBook struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	BookCopyID   string     `json:"bookCopyId"`
	BookID       string     `json:"bookId"`
	BorrowedFrom time.Time  `json:"borrowedFrom"`
	BorrowedTo   time.Time  `json:"borrowedTo"`
	ReturnedOn   *time.Time `json:"returnedOn,omitempty"`
}

func (b *BorrowedBook) DocumentID() string      { return b.ID }
func (b *BorrowedBook) SetDocumentID(id string) { b.ID = id }
func (b *BorrowedBook) Collection() string      { return Collection }

func (b *BorrowedBook) Outstanding() bool { return b.ReturnedOn == nil }

func BuildID(value string) string { return idPrefix + value }

func NewID() string { return idPrefix + uuid.NewString() }

// IsIDOf reports whether id belongs to the BorrowedBook identity space.
// Timeout messages carry ids of arbitrary refreshed documents, so consumers
// must filter with this before treating one as a loan timeout.
func IsIDOf(id string) bool { return strings.HasPrefix(id, idPrefix) }

// NewBorrowedBook starts a loan of copy by user at from, due after duration.
func NewBorrowedBook(userID string, copy CopyRef, from time.Time, duration time.Duration) *BorrowedBook {
	return &BorrowedBook{
		ID:           NewID(),
		UserID:       userID,
		BookCopyID:   copy.CopyID,
		BookID:       copy.BookID,
		BorrowedFrom: from,
		BorrowedTo:   from.Add(duration),
	}
}

// CopyRef carries the identifiers of the copy being lent.
type CopyRef struct {
	CopyID string
	BookID string
}
