package catalog

// Book is a title in the catalog. Physical items are BookCopy documents.
type Book struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	AuthorID    string `json:"authorId"`
	Description string `json:"description,omitempty"`
}

func BuildBookID(value string) string { return "Books/" + value }

func (b *Book) DocumentID() string      { return b.ID }
func (b *Book) SetDocumentID(id string) { b.ID = id }
func (b *Book) Collection() string      { return Books }

type Author struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func BuildAuthorID(value string) string { return "Authors/" + value }

func (a *Author) DocumentID() string      { return a.ID }
func (a *Author) SetDocumentID(id string) { a.ID = id }
func (a *Author) Collection() string      { return Authors }

// BookEdition distinguishes printings of the same title; every copy is of
// exactly one edition.
type BookEdition struct {
	ID        string `json:"id"`
	BookID    string `json:"bookId"`
	Name      string `json:"name"`
	Published int    `json:"published,omitempty"`
}

func BuildBookEditionID(value string) string { return "BookEditions/" + value }

func (e *BookEdition) DocumentID() string      { return e.ID }
func (e *BookEdition) SetDocumentID(id string) { e.ID = id }
func (e *BookEdition) Collection() string      { return BookEditions }
