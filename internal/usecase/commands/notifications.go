package commands

import (
	"context"

	"library-lending-api/internal/domain/account"
	"library-lending-api/internal/infra/docstore"
	"library-lending-api/internal/pkg/errs"
)

var ErrNotificationNotFound = errs.New("notification not found")

type NotificationCommands interface {
	Delete(ctx context.Context, userID, notificationID string) error
}

type notificationCommands struct {
	store docstore.Store
}

func NewNotificationCommands(store docstore.Store) NotificationCommands {
	return &notificationCommands{store: store}
}

// Delete removes a notification its owner dismissed. No tombstone is kept.
func (c *notificationCommands) Delete(ctx context.Context, userID, notificationID string) error {
	sess := c.store.OpenSession()

	notification, err := docstore.LoadAs[account.Notification](ctx, sess, notificationID)
	if err != nil {
		return errs.Wrap(err, "failed to load notification")
	}
	if notification == nil {
		return errs.Mark(errs.New("no notification "+notificationID), ErrNotificationNotFound)
	}
	if notification.UserID != userID {
		return errs.Mark(errs.New("notification "+notificationID+" not owned by caller"), ErrNotOwner)
	}

	sess.Delete(notification)
	if err := sess.SaveChanges(ctx); err != nil {
		return errs.Wrap(err, "failed to delete notification")
	}
	return nil
}
