package catalog

type CopyStatus string

const (
	CopyAvailable CopyStatus = "Available"
	CopyBorrowed  CopyStatus = "Borrowed"
)

// BookCopy is one physical copy of a book. Its status is mutated only by the
// lending commands, under optimistic concurrency.
type BookCopy struct {
	ID            string     `json:"id"`
	BookEditionID string     `json:"bookEditionId"`
	BookID        string     `json:"bookId"`
	Status        CopyStatus `json:"status"`
}

func BuildBookCopyID(value string) string { return "BookCopies/" + value }

func (c *BookCopy) DocumentID() string      { return c.ID }
func (c *BookCopy) SetDocumentID(id string) { c.ID = id }
func (c *BookCopy) Collection() string      { return BookCopies }

// Availability is the derived per-book aggregate (available vs total copies).
// It is read-only to the application; the store maintains it.
type Availability struct {
	BookID    string `json:"bookId"`
	Available int    `json:"available"`
	Total     int    `json:"total"`
}
