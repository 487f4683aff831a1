package readstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"library-lending-api/internal/infra"
)

// NotificationReadStore answers the badge-poll count without materializing
// the notification documents.
type NotificationReadStore struct {
	pool *pgxpool.Pool
}

func NewNotificationReadStore(pool *pgxpool.Pool) *NotificationReadStore {
	return &NotificationReadStore{pool: pool}
}

func (r *NotificationReadStore) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM documents
		 WHERE collection = 'Notifications' AND data->>'userId' = $1`,
		userID).Scan(&count)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to count notifications", err)
	}
	return count, nil
}
