package queries

// View types returned to the handler layer.

type AuthorView struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type AvailabilityView struct {
	Available int `json:"available"`
	Total     int `json:"total"`
}

type BookView struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	Author       *AuthorView      `json:"author,omitempty"`
	Availability AvailabilityView `json:"availability"`
}

type BookRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type AuthorDetailView struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Books     []BookRef `json:"books"`
}

type HomeBookView struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Author *AuthorView `json:"author,omitempty"`
}

type ProfileView struct {
	ID       string    `json:"id"`
	Borrowed []BookRef `json:"borrowed"`
}

type NotificationView struct {
	ID               string `json:"id"`
	Kind             string `json:"kind"`
	Text             string `json:"text"`
	ReferencedItemID string `json:"referencedItemId,omitempty"`
}

// SearchHit is one global search result: a book or an author.
type SearchHit struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Display string `json:"display"`
}
