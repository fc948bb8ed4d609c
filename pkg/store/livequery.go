package store

import (
	"sync"

	"github.com/go-logr/logr"

	"github.com/VinayaSathyanarayana/rxdb/pkg/document"
	"github.com/VinayaSathyanarayana/rxdb/pkg/query"
	"github.com/VinayaSathyanarayana/rxdb/pkg/querychange"
)

// LiveQuery keeps a query's result open and continuously updated as the
// collection changes. Each incoming change-event batch is fed to the change
// detector; depending on the outcome the cached result is kept, swapped for
// the incrementally patched one, or replaced by a full re-execution. A single
// goroutine consumes the subscription, so detection calls for one query never
// overlap.
type LiveQuery struct {
	store    *Store
	query    *query.Query
	detector *querychange.Detector
	sub      *Subscription

	mu      sync.RWMutex
	results []document.Document

	done chan struct{}
	log  logr.Logger
}

// LiveQuery opens a live query backed by the given detector. The initial
// result is a full execution; the subscription is registered in the same lock
// section that takes the snapshot, so no write can slip between the two.
func (s *Store) LiveQuery(q *query.Query, detector *querychange.Detector) (*LiveQuery, error) {
	if detector == nil {
		detector = querychange.New(querychange.Config{
			Optimize:  true,
			Evaluator: s.eval,
			Logger:    s.log,
		})
	}

	s.mu.Lock()
	sub := s.watchLocked()
	docs := s.snapshotLocked()
	s.mu.Unlock()

	matched, err := s.eval.Evaluate(docs, q.Selector, q.NormalizedSort())
	if err != nil {
		sub.Cancel()
		return nil, err
	}
	initial := document.CopyResults(query.Window(matched, q.Skip, q.Limit))

	lq := &LiveQuery{
		store:    s,
		query:    q,
		detector: detector,
		sub:      sub,
		results:  initial,
		done:     make(chan struct{}),
		log:      s.log.WithName("livequery"),
	}

	go lq.run()

	return lq, nil
}

// Results returns a snapshot of the current cached result window.
func (lq *LiveQuery) Results() []document.Document {
	lq.mu.RLock()
	defer lq.mu.RUnlock()
	return document.CopyResults(lq.results)
}

// Close tears down the subscription and stops result maintenance.
func (lq *LiveQuery) Close() {
	lq.sub.Cancel()
	<-lq.done
}

func (lq *LiveQuery) run() {
	defer close(lq.done)

	for ev := range lq.sub.Events() {
		batch := []querychange.Event{ev}
		// drain whatever else is already queued into the same batch
	drain:
		for {
			select {
			case next, ok := <-lq.sub.Events():
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}

		lq.apply(batch)
	}
}

func (lq *LiveQuery) apply(batch []querychange.Event) {
	lq.mu.RLock()
	previous := lq.results
	lq.mu.RUnlock()

	outcome, err := lq.detector.Detect(lq.query, previous, batch)
	if err != nil {
		lq.log.Error(err, "change detection failed, falling back to full query")
		lq.reExecute()
		return
	}

	switch outcome.Kind {
	case querychange.Unchanged:
		lq.log.V(6).Info("batch left results unchanged", "events", len(batch))

	case querychange.Updated:
		lq.mu.Lock()
		lq.results = outcome.Results
		lq.mu.Unlock()
		lq.log.V(4).Info("results patched incrementally", "events", len(batch),
			"results", len(outcome.Results))

	case querychange.MustReExecute:
		lq.log.V(4).Info("batch unresolvable, re-executing", "events", len(batch))
		lq.reExecute()
	}
}

func (lq *LiveQuery) reExecute() {
	results, err := lq.store.Query(lq.query)
	if err != nil {
		lq.log.Error(err, "full re-execution failed, keeping stale results")
		return
	}

	lq.mu.Lock()
	lq.results = results
	lq.mu.Unlock()
}
