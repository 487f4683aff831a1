// Package seed loads a small starter catalog on first boot so the API is
// usable against an empty database.
package seed

import (
	"context"
	"log/slog"
	"math/rand"
	"strconv"

	"library-lending-api/internal/domain/catalog"
	"library-lending-api/internal/infra/docstore"
	"library-lending-api/internal/pkg/errs"
)

type seedBook struct {
	title       string
	description string
	author      string // index into seedAuthors
}

type seedAuthor struct {
	firstName string
	lastName  string
}

var seedAuthors = map[string]seedAuthor{
	"austen":    {"Jane", "Austen"},
	"dickens":   {"Charles", "Dickens"},
	"tolstoy":   {"Leo", "Tolstoy"},
	"woolf":     {"Virginia", "Woolf"},
	"orwell":    {"George", "Orwell"},
	"achebe":    {"Chinua", "Achebe"},
	"lem":       {"Stanisław", "Lem"},
	"le-guin":   {"Ursula K.", "Le Guin"},
	"marquez":   {"Gabriel", "García Márquez"},
	"murakami":  {"Haruki", "Murakami"},
	"atwood":    {"Margaret", "Atwood"},
	"borges":    {"Jorge Luis", "Borges"},
}

var seedBooks = []seedBook{
	{"Pride and Prejudice", "A sharp comedy of manners in Regency England.", "austen"},
	{"Emma", "Matchmaking gone wrong in the village of Highbury.", "austen"},
	{"Great Expectations", "Pip's rise and reckoning.", "dickens"},
	{"Bleak House", "A lawsuit that outlives its litigants.", "dickens"},
	{"Anna Karenina", "Love against the grain of society.", "tolstoy"},
	{"War and Peace", "Five families through the Napoleonic wars.", "tolstoy"},
	{"Mrs Dalloway", "One June day in London.", "woolf"},
	{"To the Lighthouse", "The Ramsays and the passage of time.", "woolf"},
	{"Nineteen Eighty-Four", "Surveillance, language, and the last free man.", "orwell"},
	{"Things Fall Apart", "Okonkwo and the coming of the colonizers.", "achebe"},
	{"Solaris", "A planet that answers back.", "lem"},
	{"The Left Hand of Darkness", "An envoy on a world without fixed gender.", "le-guin"},
	{"A Wizard of Earthsea", "The true names of things.", "le-guin"},
	{"One Hundred Years of Solitude", "Seven generations of the Buendía family.", "marquez"},
	{"Kafka on the Shore", "Two journeys that fold into one.", "murakami"},
	{"The Handmaid's Tale", "Offred's testimony from Gilead.", "atwood"},
	{"Ficciones", "Labyrinths, libraries, and forking paths.", "borges"},
}

// EnsureCatalog writes the starter catalog if the Books collection is empty.
// Each book gets one edition and a pseudo-random number of copies; the rand
// seed is fixed so repeated empty-database boots produce the same catalog.
func EnsureCatalog(ctx context.Context, store docstore.Store, logger *slog.Logger) error {
	sess := store.OpenSession()

	existing, _, err := sess.QueryRaw(ctx, docstore.Query{Collection: catalog.Books, Limit: 1})
	if err != nil {
		return errs.Wrap(err, "failed to probe catalog")
	}
	if len(existing) > 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(42))
	copies := 0

	for slug, a := range seedAuthors {
		sess.Store(&catalog.Author{
			ID:        catalog.BuildAuthorID(slug),
			FirstName: a.firstName,
			LastName:  a.lastName,
		})
	}

	for i, b := range seedBooks {
		bookNumber := strconv.Itoa(i + 1)
		book := &catalog.Book{
			ID:          catalog.BuildBookID(bookNumber),
			Title:       b.title,
			AuthorID:    catalog.BuildAuthorID(b.author),
			Description: b.description,
		}
		sess.Store(book)

		edition := &catalog.BookEdition{
			ID:     catalog.BuildBookEditionID(bookNumber),
			BookID: book.ID,
			Name:   "First edition",
		}
		sess.Store(edition)

		copyCount := rng.Intn(5) + 1
		for copyNumber := 1; copyNumber <= copyCount; copyNumber++ {
			sess.Store(&catalog.BookCopy{
				ID:            catalog.BuildBookCopyID(bookNumber + "-" + strconv.Itoa(copyNumber)),
				BookEditionID: edition.ID,
				BookID:        book.ID,
				Status:        catalog.CopyAvailable,
			})
			copies++
		}
	}

	if err := sess.SaveChanges(ctx); err != nil {
		return errs.Wrap(err, "failed to write starter catalog")
	}

	logger.Info("seeded starter catalog",
		"authors", len(seedAuthors), "books", len(seedBooks), "copies", copies)
	return nil
}
