// Package docstore is a small document-session layer over Postgres: documents
// are JSONB rows addressed by string ids with collection prefixes, every row
// carries an opaque change vector used both for optimistic concurrency and for
// HTTP cache validation, and mutations are buffered in a session and committed
// atomically by SaveChanges.
package docstore

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"

	"library-lending-api/internal/pkg/errs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrConcurrency is returned by SaveChanges when a version-checked document
// changed between read and commit. Callers decide whether to retry; the
// session never retries on its own.
var ErrConcurrency = errors.New("document changed concurrently")

func IsConcurrency(err error) bool {
	return errors.Is(err, ErrConcurrency)
}

// Entity is any document the session can track. Ids are minted by the domain
// (collection-prefixed strings), never by the store.
type Entity interface {
	DocumentID() string
	SetDocumentID(id string)
	Collection() string
}

// Document is a raw query result: undecoded payload plus the change vector it
// had when read.
type Document struct {
	ID           string
	Collection   string
	Data         []byte
	ChangeVector string
}

// Filter is an equality predicate on a top-level string field of the
// document payload.
type Filter struct {
	Field  string
	Equals string
}

type Query struct {
	Collection string
	Filters    []Filter
	// Missing lists fields that must be absent or null (e.g. returnedOn for
	// outstanding loans).
	Missing []string
	Limit   int
	Offset  int
}

// Stats carries the query's result token. The token is invalidated whenever
// any document in the queried collection changes, which is a conservative
// superset of "any document the query could match".
type Stats struct {
	ResultEtag string
}

// Session is one unit of work. Loads and queries attach change vectors;
// Store/Delete buffer mutations; SaveChanges commits them all at once, with a
// compare-and-swap on every tracked document when optimistic concurrency is
// enabled.
type Session interface {
	Load(ctx context.Context, id string, entity Entity) (bool, error)
	QueryRaw(ctx context.Context, q Query) ([]Document, Stats, error)

	// Attach registers an externally decoded entity with the change vector it
	// was read at. QueryAs calls this for every decoded result.
	Attach(entity Entity, changeVector string)

	Store(entity Entity)
	Delete(entity Entity)

	// ScheduleRefresh sets the document's scheduled-refresh marker; its lapse
	// produces a timeout message. ClearRefresh removes the marker.
	ScheduleRefresh(entity Entity, at time.Time)
	ClearRefresh(entity Entity)

	UseOptimisticConcurrency(on bool)

	// ChangeVectorOf returns the change vector the entity was last read or
	// saved at, if the session tracks it.
	ChangeVectorOf(entity Entity) (string, bool)

	SaveChanges(ctx context.Context) error
}

// Store hands out independent sessions. One session per request.
type Store interface {
	OpenSession() Session
}

// QueryAs runs q and decodes every result into a fresh T, attaching each to
// the session so later saves are version-checked.
func QueryAs[T any, PT interface {
	*T
	Entity
}](ctx context.Context, s Session, q Query) ([]PT, Stats, error) {
	docs, stats, err := s.QueryRaw(ctx, q)
	if err != nil {
		return nil, Stats{}, err
	}

	out := make([]PT, 0, len(docs))
	for _, doc := range docs {
		e := PT(new(T))
		if err := json.Unmarshal(doc.Data, e); err != nil {
			return nil, Stats{}, errs.Wrap(err, "failed to decode document "+doc.ID)
		}
		e.SetDocumentID(doc.ID)
		s.Attach(e, doc.ChangeVector)
		out = append(out, e)
	}
	return out, stats, nil
}

// LoadAs loads id into a fresh T, returning nil when absent.
func LoadAs[T any, PT interface {
	*T
	Entity
}](ctx context.Context, s Session, id string) (PT, error) {
	e := PT(new(T))
	found, err := s.Load(ctx, id, e)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return e, nil
}
