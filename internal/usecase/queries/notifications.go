package queries

import (
	"context"

	"library-lending-api/internal/domain/account"
	"library-lending-api/internal/infra/docstore"
	"library-lending-api/internal/pkg/errs"
)

// MaxNotifications caps one listing; clients poll the count for the rest.
const MaxNotifications = 25

// NotificationCounter answers the badge poll without loading documents.
type NotificationCounter interface {
	CountByUser(ctx context.Context, userID string) (int, error)
}

type NotificationQueries interface {
	List(ctx context.Context, userID string, limit int) ([]NotificationView, error)
	Count(ctx context.Context, userID string) (int, error)
}

type notificationQueries struct {
	store   docstore.Store
	counter NotificationCounter
}

func NewNotificationQueries(store docstore.Store, counter NotificationCounter) NotificationQueries {
	return &notificationQueries{store: store, counter: counter}
}

// List returns the user's notifications in id order, which is insertion
// order because ids are time-ordered.
func (q *notificationQueries) List(ctx context.Context, userID string, limit int) ([]NotificationView, error) {
	if limit <= 0 || limit > MaxNotifications {
		limit = MaxNotifications
	}

	sess := q.store.OpenSession()
	notifications, _, err := docstore.QueryAs[account.Notification](ctx, sess, docstore.Query{
		Collection: account.Notifications,
		Filters:    []docstore.Filter{{Field: "userId", Equals: userID}},
		Limit:      limit,
	})
	if err != nil {
		return nil, errs.Wrap(err, "failed to query notifications")
	}

	views := make([]NotificationView, 0, len(notifications))
	for _, n := range notifications {
		views = append(views, NotificationView{
			ID:               n.ID,
			Kind:             string(n.Kind),
			Text:             n.Text,
			ReferencedItemID: n.ReferencedItemID,
		})
	}
	return views, nil
}

func (q *notificationQueries) Count(ctx context.Context, userID string) (int, error) {
	count, err := q.counter.CountByUser(ctx, userID)
	if err != nil {
		return 0, errs.Wrap(err, "failed to count notifications")
	}
	return count, nil
}
