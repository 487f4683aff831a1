package catalog

// Collection names used by the document store.
const (
	Books        = "Books"
	Authors      = "Authors"
	BookEditions = "BookEditions"
	BookCopies   = "BookCopies"
)
