// Package store implements the in-memory reactive document collection: plain
// CRUD with schema validation, a change-event stream, and live queries whose
// cached results are maintained incrementally by the change detector.
package store

import (
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/VinayaSathyanarayana/rxdb/pkg/document"
	"github.com/VinayaSathyanarayana/rxdb/pkg/query"
	"github.com/VinayaSathyanarayana/rxdb/pkg/querychange"
	"github.com/VinayaSathyanarayana/rxdb/pkg/schema"
)

// DefaultWatchChannelBuffer is the capacity of subscription event channels.
const DefaultWatchChannelBuffer = 256

// Options configures a Store.
type Options struct {
	// Schema defines the primary key and optional document validation.
	Schema *schema.Schema
	// Evaluator executes queries. Defaults to query.DefaultEvaluator.
	Evaluator query.Evaluator
	Logger    logr.Logger
}

// Store is a mutable document collection keyed by primary key. Documents are
// deep-copied on the way in and out, so snapshots handed to watchers and
// query results are never mutated in place.
type Store struct {
	mu       sync.RWMutex
	schema   *schema.Schema
	eval     query.Evaluator
	docs     map[string]document.Document
	watchers map[uuid.UUID]chan querychange.Event
	log      logr.Logger
}

// New creates an empty store.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	eval := opts.Evaluator
	if eval == nil {
		eval = query.DefaultEvaluator{}
	}
	sch := opts.Schema
	if sch == nil {
		sch = schema.New("id")
	}

	return &Store{
		schema:   sch,
		eval:     eval,
		docs:     make(map[string]document.Document),
		watchers: make(map[uuid.UUID]chan querychange.Event),
		log:      logger.WithName("store"),
	}
}

// Schema returns the collection schema.
func (s *Store) Schema() *schema.Schema { return s.schema }

// Insert adds a new document and emits an insert event. Inserting an existing
// primary key is an error.
func (s *Store) Insert(doc document.Document) error {
	if err := s.schema.Validate(doc); err != nil {
		return err
	}
	key, _ := document.Key(doc, s.schema.PrimaryKey())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[key]; exists {
		return NewDuplicateKeyError(key)
	}

	snapshot := document.DeepCopy(doc)
	s.docs[key] = snapshot
	s.log.V(4).Info("insert", "key", key)
	s.notify(querychange.Event{Op: querychange.OpInsert, Document: snapshot})

	return nil
}

// Upsert adds or replaces a document, emitting an insert or update event.
func (s *Store) Upsert(doc document.Document) error {
	if err := s.schema.Validate(doc); err != nil {
		return err
	}
	key, _ := document.Key(doc, s.schema.PrimaryKey())

	s.mu.Lock()
	defer s.mu.Unlock()

	op := querychange.OpInsert
	if _, exists := s.docs[key]; exists {
		op = querychange.OpUpdate
	}

	snapshot := document.DeepCopy(doc)
	s.docs[key] = snapshot
	s.log.V(4).Info("upsert", "key", key, "op", op.String())
	s.notify(querychange.Event{Op: op, Document: snapshot})

	return nil
}

// Remove deletes a document by primary key and emits a remove event carrying
// the last known snapshot.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, exists := s.docs[key]
	if !exists {
		return NewNotFoundError(key)
	}

	delete(s.docs, key)
	s.log.V(4).Info("remove", "key", key)
	s.notify(querychange.Event{Op: querychange.OpRemove, Document: snapshot})

	return nil
}

// Get returns a copy of the document stored under the given primary key.
func (s *Store) Get(key string) (document.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.docs[key]
	if !exists {
		return nil, false
	}
	return document.DeepCopy(doc), true
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Query runs a full execution of the query: evaluate the selector and sort
// over the whole collection, then apply the skip/limit window.
func (s *Store) Query(q *query.Query) ([]document.Document, error) {
	s.mu.RLock()
	docs := s.snapshotLocked()
	s.mu.RUnlock()

	matched, err := s.eval.Evaluate(docs, q.Selector, q.NormalizedSort())
	if err != nil {
		return nil, err
	}

	return document.CopyResults(query.Window(matched, q.Skip, q.Limit)), nil
}

// snapshotLocked collects the stored snapshots. Callers hold s.mu.
func (s *Store) snapshotLocked() []document.Document {
	docs := make([]document.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	return docs
}

// notify fans an event out to all subscriptions. Callers hold s.mu. A
// subscriber that stopped draining its buffered channel loses events and is
// expected to recover by re-executing its queries.
func (s *Store) notify(ev querychange.Event) {
	for id, ch := range s.watchers {
		select {
		case ch <- ev:
		default:
			s.log.Info("watch channel full, dropping event", "subscription", id,
				"op", ev.Op.String())
		}
	}
}
