package docstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"library-lending-api/internal/pkg/errs"
)

// MemoryStore mirrors the Postgres store's observable semantics (change
// vectors, optimistic checks, refresh markers, collection versions) without a
// database. The unit tests run against it; the lending logic cannot tell the
// two apart.
type MemoryStore struct {
	mu       sync.Mutex
	docs     map[string]*memDoc
	versions map[string]int64
	nodeID   string
}

type memDoc struct {
	collection string
	data       []byte
	version    int64
	refreshAt  *time.Time
}

func (d *memDoc) changeVector(nodeID string) string {
	return fmt.Sprintf("A:%d-%s", d.version, nodeID)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]*memDoc),
		versions: make(map[string]int64),
		nodeID:   "mem",
	}
}

func (m *MemoryStore) OpenSession() Session {
	return &memSession{
		store:   m,
		tracked: make(map[string]string),
		writes:  make(map[string]*pendingWrite),
	}
}

// PopDueRefreshes clears and returns the ids of documents whose refresh
// marker lapsed at or before now, in the role the Postgres sweeper plays in
// production.
func (m *MemoryStore) PopDueRefreshes(now time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []string
	for id, doc := range m.docs {
		if doc.refreshAt != nil && !doc.refreshAt.After(now) {
			doc.refreshAt = nil
			due = append(due, id)
		}
	}
	sort.Strings(due)
	return due
}

// ForEachDocument visits every document of a collection with its decoded
// top-level fields. Derived aggregates in tests are computed from this, in
// the role the store's map-reduce indexes play in production.
func (m *MemoryStore) ForEachDocument(collection string, fn func(id string, fields map[string]any)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, doc := range m.docs {
		if doc.collection != collection {
			continue
		}
		fields, err := decodeFields(doc.data)
		if err != nil {
			return err
		}
		fn(id, fields)
	}
	return nil
}

type memSession struct {
	store      *MemoryStore
	tracked    map[string]string
	writes     map[string]*pendingWrite
	writeOrder []string
	deletes    []Entity
	optimistic bool
}

func (s *memSession) Load(_ context.Context, id string, entity Entity) (bool, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	doc, ok := s.store.docs[id]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(doc.data, entity); err != nil {
		return false, errs.Wrap(err, "failed to decode document "+id)
	}
	entity.SetDocumentID(id)
	s.tracked[id] = doc.changeVector(s.store.nodeID)
	return true, nil
}

func (s *memSession) QueryRaw(_ context.Context, q Query) ([]Document, Stats, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	var ids []string
	for id, doc := range s.store.docs {
		if doc.collection == q.Collection {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var docs []Document
	for _, id := range ids {
		doc := s.store.docs[id]
		fields, err := decodeFields(doc.data)
		if err != nil {
			return nil, Stats{}, err
		}
		if !matches(fields, q) {
			continue
		}
		docs = append(docs, Document{
			ID:           id,
			Collection:   q.Collection,
			Data:         doc.data,
			ChangeVector: doc.changeVector(s.store.nodeID),
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(docs) {
			docs = nil
		} else {
			docs = docs[q.Offset:]
		}
	}
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}

	stats := Stats{ResultEtag: "Q:" + q.Collection + "-" + strconv.FormatInt(s.store.versions[q.Collection], 10)}
	return docs, stats, nil
}

func decodeFields(data []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errs.Wrap(err, "failed to decode document fields")
	}
	return fields, nil
}

func matches(fields map[string]any, q Query) bool {
	for _, f := range q.Filters {
		v, ok := fields[f.Field].(string)
		if !ok || v != f.Equals {
			return false
		}
	}
	for _, field := range q.Missing {
		if v, ok := fields[field]; ok && v != nil {
			return false
		}
	}
	return true
}

func (s *memSession) Attach(entity Entity, changeVector string) {
	s.tracked[entity.DocumentID()] = changeVector
}

func (s *memSession) Store(entity Entity) {
	id := entity.DocumentID()
	if w, ok := s.writes[id]; ok {
		w.entity = entity
		return
	}
	s.writes[id] = &pendingWrite{entity: entity}
	s.writeOrder = append(s.writeOrder, id)
}

func (s *memSession) Delete(entity Entity) {
	s.deletes = append(s.deletes, entity)
}

func (s *memSession) ScheduleRefresh(entity Entity, at time.Time) {
	s.Store(entity)
	w := s.writes[entity.DocumentID()]
	w.setRefresh = &at
	w.clearRefresh = false
}

func (s *memSession) ClearRefresh(entity Entity) {
	s.Store(entity)
	w := s.writes[entity.DocumentID()]
	w.setRefresh = nil
	w.clearRefresh = true
}

func (s *memSession) UseOptimisticConcurrency(on bool) {
	s.optimistic = on
}

func (s *memSession) ChangeVectorOf(entity Entity) (string, bool) {
	cv, ok := s.tracked[entity.DocumentID()]
	return cv, ok
}

func (s *memSession) SaveChanges(_ context.Context) error {
	if len(s.writes) == 0 && len(s.deletes) == 0 {
		return nil
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	// Validate every version check before applying anything, so a rejected
	// commit leaves the store untouched.
	if s.optimistic {
		for _, id := range s.writeOrder {
			current, exists := s.store.docs[id]
			trackedCV, tracked := s.tracked[id]
			if tracked {
				if !exists || current.changeVector(s.store.nodeID) != trackedCV {
					return errs.Mark(errs.New("update rejected for "+id), ErrConcurrency)
				}
			} else if exists {
				return errs.Mark(errs.New("insert rejected for "+id), ErrConcurrency)
			}
		}
		for _, entity := range s.deletes {
			id := entity.DocumentID()
			current, exists := s.store.docs[id]
			if trackedCV, tracked := s.tracked[id]; tracked && exists &&
				current.changeVector(s.store.nodeID) != trackedCV {
				return errs.Mark(errs.New("delete rejected for "+id), ErrConcurrency)
			}
		}
	}

	touched := make(map[string]struct{})

	for _, id := range s.writeOrder {
		if id == "" {
			return errs.New("cannot store a document without an id")
		}
		w := s.writes[id]
		data, err := json.Marshal(w.entity)
		if err != nil {
			return errs.Wrap(err, "failed to encode document "+id)
		}

		doc, exists := s.store.docs[id]
		if !exists {
			doc = &memDoc{collection: w.entity.Collection()}
			s.store.docs[id] = doc
		}
		doc.data = data
		doc.version++
		if w.setRefresh != nil {
			at := *w.setRefresh
			doc.refreshAt = &at
		} else if w.clearRefresh {
			doc.refreshAt = nil
		}
		s.tracked[id] = doc.changeVector(s.store.nodeID)
		touched[w.entity.Collection()] = struct{}{}
	}

	for _, entity := range s.deletes {
		id := entity.DocumentID()
		if _, exists := s.store.docs[id]; exists {
			delete(s.store.docs, id)
			touched[entity.Collection()] = struct{}{}
		}
		delete(s.tracked, id)
	}

	for collection := range touched {
		s.store.versions[collection]++
	}

	s.writes = make(map[string]*pendingWrite)
	s.writeOrder = nil
	s.deletes = nil
	return nil
}
