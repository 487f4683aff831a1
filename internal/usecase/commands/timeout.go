package commands

import (
	"context"
	"fmt"
	"log/slog"

	jsoniter "github.com/json-iterator/go"

	"library-lending-api/internal/domain/account"
	"library-lending-api/internal/domain/catalog"
	"library-lending-api/internal/domain/lending"
	"library-lending-api/internal/infra/docstore"
	"library-lending-api/internal/pkg/errs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMalformedTimeoutMessage is fatal for the message that caused it: the
// consumer dead-letters instead of retrying, because a payload we cannot
// parse means an upstream bug worth surfacing, not a transient fault.
var ErrMalformedTimeoutMessage = errs.New("malformed timeout message")

// TimeoutMessage is the queue payload emitted when a document's scheduled
// refresh lapses with no successor.
type TimeoutMessage struct {
	ID string `json:"id"`
}

type TimeoutCommands interface {
	ProcessTimeout(ctx context.Context, payload []byte) error
}

type timeoutCommands struct {
	store  docstore.Store
	logger *slog.Logger
}

func NewTimeoutCommands(store docstore.Store, logger *slog.Logger) TimeoutCommands {
	return &timeoutCommands{store: store, logger: logger}
}

// ProcessTimeout handles one refresh-lapse message. Not every refreshed
// document is a loan, and a loan may have been returned between the marker
// lapsing and the message arriving; both cases are benign no-ops.
//
// Delivery is at least once. A redelivered message for a still-outstanding
// loan creates a duplicate notification; that tradeoff is accepted rather
// than deduplicating by (user, loan).
func (c *timeoutCommands) ProcessTimeout(ctx context.Context, payload []byte) error {
	var msg TimeoutMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return errs.Mark(errs.Wrap(err, "failed to parse timeout payload"), ErrMalformedTimeoutMessage)
	}
	if msg.ID == "" {
		return errs.Mark(errs.New("timeout payload carries no id"), ErrMalformedTimeoutMessage)
	}

	if !lending.IsIDOf(msg.ID) {
		return nil
	}

	c.logger.Info("received loan timeout", "id", msg.ID)

	sess := c.store.OpenSession()

	borrowed, err := docstore.LoadAs[lending.BorrowedBook](ctx, sess, msg.ID)
	if err != nil {
		return errs.Wrap(err, "failed to load borrowed book")
	}
	if borrowed == nil {
		c.logger.Warn("timeout for unknown borrowed book", "id", msg.ID)
		return nil
	}
	if !borrowed.Outstanding() {
		// Returned before the timeout fired; the race is expected.
		return nil
	}

	book, err := docstore.LoadAs[catalog.Book](ctx, sess, borrowed.BookID)
	if err != nil {
		return errs.Wrap(err, "failed to load book")
	}

	sess.Store(&account.Notification{
		ID:               account.NewNotificationID(),
		UserID:           borrowed.UserID,
		Kind:             account.KindBookOverdue,
		Text:             overdueText(book),
		ReferencedItemID: borrowed.BookID,
	})

	if err := sess.SaveChanges(ctx); err != nil {
		return errs.Wrap(err, "failed to store overdue notification")
	}
	return nil
}

func overdueText(book *catalog.Book) string {
	if book == nil {
		return "Your borrowed book is overdue. Please return it to the library."
	}
	return fmt.Sprintf("%q is overdue. Please return it to the library.", book.Title)
}
