package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"library-lending-api/internal/pkg/config"
	"library-lending-api/internal/pkg/errs"
	"library-lending-api/internal/usecase/commands"
)

// Messages that keep failing for transient reasons are parked after this
// many attempts so one poisoned row cannot wedge the queue.
const maxAttempts = 5

// sweepDueSQL atomically moves every lapsed refresh into the timeout queue.
// Clearing refresh_at in the same statement guarantees a document is enqueued
// at most once per scheduled refresh.
const sweepDueSQL = `
WITH due AS (
	UPDATE documents
	SET refresh_at = NULL
	WHERE refresh_at <= now()
	RETURNING id
)
INSERT INTO timeout_queue (payload)
SELECT jsonb_build_object('id', id) FROM due`

const claimBatchSQL = `
SELECT id, payload
FROM timeout_queue
WHERE NOT dead
ORDER BY id
LIMIT $1
FOR UPDATE SKIP LOCKED`

// TimeoutWorker turns lapsed loan refreshes into overdue notifications.
// Delivery is at least once: a crash between processing and commit replays
// the message, and duplicate notifications are acceptable.
type TimeoutWorker struct {
	pool     *pgxpool.Pool
	timeouts commands.TimeoutCommands
	logger   *slog.Logger
	cfg      config.WorkerConfig
}

func NewTimeoutWorker(pool *pgxpool.Pool, timeouts commands.TimeoutCommands, logger *slog.Logger, cfg config.Config) *TimeoutWorker {
	return &TimeoutWorker{
		pool:     pool,
		timeouts: timeouts,
		logger:   logger,
		cfg:      cfg.Worker,
	}
}

// Run blocks until ctx is cancelled.
func (w *TimeoutWorker) Run(ctx context.Context) {
	sweep := time.NewTicker(w.cfg.SweepInterval)
	defer sweep.Stop()
	poll := time.NewTicker(w.cfg.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			if err := w.SweepDue(ctx); err != nil {
				w.logger.Error("timeout sweep failed", "error", err)
			}
		case <-poll.C:
			if err := w.ConsumeBatch(ctx); err != nil {
				w.logger.Error("timeout consume failed", "error", err)
			}
		}
	}
}

// SweepDue enqueues a timeout message for every document whose scheduled
// refresh has lapsed.
func (w *TimeoutWorker) SweepDue(ctx context.Context) error {
	tag, err := w.pool.Exec(ctx, sweepDueSQL)
	if err != nil {
		return errs.Wrap(err, "failed to sweep due refreshes")
	}
	if n := tag.RowsAffected(); n > 0 {
		w.logger.Info("enqueued lapsed refreshes", "count", n)
	}
	return nil
}

// ConsumeBatch claims up to BatchSize queued messages and processes them.
// Successful messages are deleted; malformed ones are dead-lettered so they
// can be inspected, everything else is retried with an attempt counter.
func (w *TimeoutWorker) ConsumeBatch(ctx context.Context) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return errs.Wrap(err, "failed to begin consume transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, claimBatchSQL, w.cfg.BatchSize)
	if err != nil {
		return errs.Wrap(err, "failed to claim timeout batch")
	}

	type message struct {
		id      int64
		payload []byte
	}
	var batch []message
	for rows.Next() {
		var m message
		if err := rows.Scan(&m.id, &m.payload); err != nil {
			rows.Close()
			return errs.Wrap(err, "failed to scan timeout message")
		}
		batch = append(batch, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errs.Wrap(err, "failed to read timeout batch")
	}
	if len(batch) == 0 {
		return nil
	}

	for _, m := range batch {
		err := w.timeouts.ProcessTimeout(ctx, m.payload)
		switch {
		case err == nil:
			if err := w.deleteMessage(ctx, tx, m.id); err != nil {
				return err
			}
		case errors.Is(err, commands.ErrMalformedTimeoutMessage):
			w.logger.Warn("dead-lettering malformed timeout message", "message_id", m.id, "error", err)
			if err := w.deadLetter(ctx, tx, m.id); err != nil {
				return err
			}
		default:
			w.logger.Error("timeout message processing failed", "message_id", m.id, "error", err)
			if err := w.recordFailure(ctx, tx, m.id); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.Wrap(err, "failed to commit consume transaction")
	}
	return nil
}

func (w *TimeoutWorker) deleteMessage(ctx context.Context, tx pgx.Tx, id int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM timeout_queue WHERE id = $1`, id); err != nil {
		return errs.Wrap(err, "failed to delete timeout message")
	}
	return nil
}

func (w *TimeoutWorker) deadLetter(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE timeout_queue SET dead = true, attempts = attempts + 1 WHERE id = $1`, id)
	if err != nil {
		return errs.Wrap(err, "failed to dead-letter timeout message")
	}
	return nil
}

func (w *TimeoutWorker) recordFailure(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE timeout_queue SET attempts = attempts + 1, dead = (attempts + 1 >= $2) WHERE id = $1`,
		id, maxAttempts)
	if err != nil {
		return errs.Wrap(err, "failed to record timeout message failure")
	}
	return nil
}
