package commands

import (
	"context"

	"library-lending-api/internal/domain/account"
	"library-lending-api/internal/domain/catalog"
	"library-lending-api/internal/infra/docstore"
	"library-lending-api/internal/pkg/errs"
)

const welcomeText = "Welcome in the Library of Ravens! \U0001F499 Check out this random book!"

// RandomBookPicker supplies the book the welcome notification points at.
type RandomBookPicker interface {
	RandomBooks(ctx context.Context, n int) ([]*catalog.Book, error)
}

type ProfileCommands interface {
	// EnsureUser creates the user on first access and reports whether it did.
	EnsureUser(ctx context.Context, userID string) (created bool, err error)
}

type profileCommands struct {
	store  docstore.Store
	picker RandomBookPicker
}

func NewProfileCommands(store docstore.Store, picker RandomBookPicker) ProfileCommands {
	return &profileCommands{store: store, picker: picker}
}

func (c *profileCommands) EnsureUser(ctx context.Context, userID string) (bool, error) {
	sess := c.store.OpenSession()

	existing, err := docstore.LoadAs[account.User](ctx, sess, userID)
	if err != nil {
		return false, errs.Wrap(err, "failed to load user")
	}
	if existing != nil {
		return false, nil
	}

	sess.Store(&account.User{ID: userID})

	welcome := &account.Notification{
		ID:     account.NewNotificationID(),
		UserID: userID,
		Kind:   account.KindGeneral,
		Text:   welcomeText,
	}
	// Point the welcome at a random book when the catalog has one.
	books, err := c.picker.RandomBooks(ctx, 1)
	if err != nil {
		return false, errs.Wrap(err, "failed to pick welcome book")
	}
	if len(books) > 0 {
		welcome.ReferencedItemID = books[0].ID
	}
	sess.Store(welcome)

	if err := sess.SaveChanges(ctx); err != nil {
		return false, errs.Wrap(err, "failed to create user")
	}
	return true, nil
}
