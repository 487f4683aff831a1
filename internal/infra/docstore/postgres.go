package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"library-lending-api/internal/pkg/errs"
)

const pgErrCodeUniqueViolation = "23505"

// PostgresStore keeps documents in a single JSONB table. It is constructed at
// startup and shared read-only thereafter; all mutable state lives in
// sessions.
type PostgresStore struct {
	pool   *pgxpool.Pool
	nodeID string
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	nodeID, err := EnsureSchema(ctx, pool)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, nodeID: nodeID}, nil
}

func (s *PostgresStore) OpenSession() Session {
	return &pgSession{
		store:   s,
		tracked: make(map[string]string),
		writes:  make(map[string]*pendingWrite),
	}
}

func (s *PostgresStore) Pool() *pgxpool.Pool { return s.pool }

type pendingWrite struct {
	entity       Entity
	setRefresh   *time.Time
	clearRefresh bool
}

type pgSession struct {
	store      *PostgresStore
	tracked    map[string]string // id -> change vector as last read/saved
	writes     map[string]*pendingWrite
	writeOrder []string
	deletes    []Entity
	optimistic bool
}

func (s *pgSession) Load(ctx context.Context, id string, entity Entity) (bool, error) {
	var data []byte
	var cv string
	err := s.store.pool.QueryRow(ctx,
		`SELECT data, change_vector FROM documents WHERE id = $1`, id).
		Scan(&data, &cv)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(err, "failed to load document "+id)
	}

	if err := json.Unmarshal(data, entity); err != nil {
		return false, errs.Wrap(err, "failed to decode document "+id)
	}
	entity.SetDocumentID(id)
	s.tracked[id] = cv
	return true, nil
}

func (s *pgSession) QueryRaw(ctx context.Context, q Query) ([]Document, Stats, error) {
	// The token is read before the rows. A write landing in between leaves
	// the token behind the data, so a client revalidating with it refetches
	// instead of getting a 304 for stale rows.
	stats, err := s.collectionStats(ctx, q.Collection)
	if err != nil {
		return nil, Stats{}, err
	}

	sql := `SELECT id, data, change_vector FROM documents WHERE collection = $1`
	args := []any{q.Collection}

	for _, f := range q.Filters {
		args = append(args, f.Field, f.Equals)
		sql += fmt.Sprintf(" AND data->>$%d = $%d", len(args)-1, len(args))
	}
	for _, field := range q.Missing {
		args = append(args, field)
		sql += fmt.Sprintf(" AND data->>$%d IS NULL", len(args))
	}

	sql += " ORDER BY id"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.store.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, Stats{}, errs.Wrap(err, "failed to query collection "+q.Collection)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc := Document{Collection: q.Collection}
		if err := rows.Scan(&doc.ID, &doc.Data, &doc.ChangeVector); err != nil {
			return nil, Stats{}, errs.Wrap(err, "failed to scan document row")
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, Stats{}, errs.Wrap(err, "failed to iterate document rows")
	}
	return docs, stats, nil
}

func (s *pgSession) collectionStats(ctx context.Context, collection string) (Stats, error) {
	var version int64
	err := s.store.pool.QueryRow(ctx,
		`SELECT version FROM collection_versions WHERE collection = $1`, collection).
		Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		version = 0
	} else if err != nil {
		return Stats{}, errs.Wrap(err, "failed to read collection version")
	}
	return Stats{ResultEtag: "Q:" + collection + "-" + strconv.FormatInt(version, 10)}, nil
}

func (s *pgSession) Attach(entity Entity, changeVector string) {
	s.tracked[entity.DocumentID()] = changeVector
}

func (s *pgSession) Store(entity Entity) {
	id := entity.DocumentID()
	if w, ok := s.writes[id]; ok {
		w.entity = entity
		return
	}
	s.writes[id] = &pendingWrite{entity: entity}
	s.writeOrder = append(s.writeOrder, id)
}

func (s *pgSession) Delete(entity Entity) {
	s.deletes = append(s.deletes, entity)
}

func (s *pgSession) ScheduleRefresh(entity Entity, at time.Time) {
	s.Store(entity)
	w := s.writes[entity.DocumentID()]
	w.setRefresh = &at
	w.clearRefresh = false
}

func (s *pgSession) ClearRefresh(entity Entity) {
	s.Store(entity)
	w := s.writes[entity.DocumentID()]
	w.setRefresh = nil
	w.clearRefresh = true
}

func (s *pgSession) UseOptimisticConcurrency(on bool) {
	s.optimistic = on
}

func (s *pgSession) ChangeVectorOf(entity Entity) (string, bool) {
	cv, ok := s.tracked[entity.DocumentID()]
	return cv, ok
}

// SaveChanges commits every buffered write and delete in one transaction.
// With optimistic concurrency enabled, each tracked document is updated with
// a compare-and-swap on its change vector; any mismatch aborts the whole
// transaction with ErrConcurrency.
func (s *pgSession) SaveChanges(ctx context.Context) error {
	if len(s.writes) == 0 && len(s.deletes) == 0 {
		return nil
	}

	tx, err := s.store.pool.Begin(ctx)
	if err != nil {
		return errs.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			if !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				slog.Warn("failed to rollback docstore transaction", "error", rollbackErr.Error())
			}
		}
	}()

	touched := make(map[string]struct{})
	newVectors := make(map[string]string)

	for _, id := range s.writeOrder {
		w := s.writes[id]
		if id == "" {
			return errs.New("cannot store a document without an id")
		}
		cv, err := s.applyWrite(ctx, tx, id, w)
		if err != nil {
			return err
		}
		newVectors[id] = cv
		touched[w.entity.Collection()] = struct{}{}
	}

	for _, entity := range s.deletes {
		if err := s.applyDelete(ctx, tx, entity); err != nil {
			return err
		}
		touched[entity.Collection()] = struct{}{}
	}

	for collection := range touched {
		_, err := tx.Exec(ctx,
			`INSERT INTO collection_versions (collection, version) VALUES ($1, 1)
			 ON CONFLICT (collection) DO UPDATE SET version = collection_versions.version + 1`,
			collection)
		if err != nil {
			return errs.Wrap(err, "failed to bump collection version")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.Wrap(err, "failed to commit transaction")
	}

	for id, cv := range newVectors {
		s.tracked[id] = cv
	}
	s.writes = make(map[string]*pendingWrite)
	s.writeOrder = nil
	s.deletes = nil
	return nil
}

func (s *pgSession) applyWrite(ctx context.Context, tx pgx.Tx, id string, w *pendingWrite) (string, error) {
	data, err := json.Marshal(w.entity)
	if err != nil {
		return "", errs.Wrap(err, "failed to encode document "+id)
	}

	trackedCV, tracked := s.tracked[id]
	if tracked {
		sql := `UPDATE documents SET
				data = $2,
				version = documents.version + 1,
				change_vector = 'A:' || (documents.version + 1)::text || '-' || $3,
				refresh_at = CASE WHEN $4 THEN $5 WHEN $6 THEN NULL ELSE documents.refresh_at END
			WHERE id = $1`
		args := []any{id, data, s.store.nodeID, w.setRefresh != nil, w.setRefresh, w.clearRefresh}
		if s.optimistic {
			args = append(args, trackedCV)
			sql += fmt.Sprintf(" AND change_vector = $%d", len(args))
		}
		sql += " RETURNING change_vector"

		var cv string
		err := tx.QueryRow(ctx, sql, args...).Scan(&cv)
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.Mark(errs.New("update rejected for "+id), ErrConcurrency)
		}
		if err != nil {
			return "", errs.Wrap(err, "failed to update document "+id)
		}
		return cv, nil
	}

	if s.optimistic {
		var cv string
		err := tx.QueryRow(ctx,
			`INSERT INTO documents (id, collection, data, version, change_vector, refresh_at)
			 VALUES ($1, $2, $3, 1, 'A:1-' || $4, $5)
			 RETURNING change_vector`,
			id, w.entity.Collection(), data, s.store.nodeID, w.setRefresh).Scan(&cv)
		if isUniqueViolation(err) {
			return "", errs.Mark(errs.New("insert rejected for "+id), ErrConcurrency)
		}
		if err != nil {
			return "", errs.Wrap(err, "failed to insert document "+id)
		}
		return cv, nil
	}

	// Last write wins when concurrency checks are off.
	var cv string
	err = tx.QueryRow(ctx,
		`INSERT INTO documents (id, collection, data, version, change_vector, refresh_at)
		 VALUES ($1, $2, $3, 1, 'A:1-' || $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			version = documents.version + 1,
			change_vector = 'A:' || (documents.version + 1)::text || '-' || $4,
			refresh_at = CASE WHEN $6 THEN $5 WHEN $7 THEN NULL ELSE documents.refresh_at END
		 RETURNING change_vector`,
		id, w.entity.Collection(), data, s.store.nodeID,
		w.setRefresh, w.setRefresh != nil, w.clearRefresh).Scan(&cv)
	if err != nil {
		return "", errs.Wrap(err, "failed to upsert document "+id)
	}
	return cv, nil
}

func (s *pgSession) applyDelete(ctx context.Context, tx pgx.Tx, entity Entity) error {
	id := entity.DocumentID()
	trackedCV, tracked := s.tracked[id]

	sql := `DELETE FROM documents WHERE id = $1`
	args := []any{id}
	if s.optimistic && tracked {
		args = append(args, trackedCV)
		sql += " AND change_vector = $2"
	}

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return errs.Wrap(err, "failed to delete document "+id)
	}
	if tag.RowsAffected() == 0 && s.optimistic && tracked {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, id).Scan(&exists); err != nil {
			return errs.Wrap(err, "failed to check document "+id)
		}
		if exists {
			return errs.Mark(errs.New("delete rejected for "+id), ErrConcurrency)
		}
	}
	delete(s.tracked, id)
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrCodeUniqueViolation
}
