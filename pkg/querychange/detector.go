// Package querychange decides, per change event, whether the cached result of
// a live query is still exact, can be patched incrementally, or has to be
// recomputed by a full query. Whenever exactness cannot be proven cheaply the
// detector defers to a full re-execution: an expensive right answer over a
// cheap wrong one.
package querychange

import (
	"github.com/go-logr/logr"

	"github.com/VinayaSathyanarayana/rxdb/pkg/document"
	"github.com/VinayaSathyanarayana/rxdb/pkg/query"
)

// Config configures a Detector. Flags are plain values captured at
// construction so concurrent detectors stay independent.
type Config struct {
	// Optimize enables the incremental path. When false every non-empty
	// batch reports MustReExecute, so the optimization can be validated
	// against the exhaustive path before being trusted.
	Optimize bool
	// Trace makes every taken decision branch observable through Logger.
	Trace bool
	// Evaluator is the matching/sorting engine shared with full execution.
	// Defaults to query.DefaultEvaluator.
	Evaluator query.Evaluator
	Logger    logr.Logger
}

// Detector inspects change events against a query's cached result. It is
// stateless across calls and safe for concurrent use on distinct queries; a
// single query's cache must be updated by at most one in-flight Detect call
// at a time.
type Detector struct {
	optimize bool
	trace    bool
	eval     query.Evaluator
	log      logr.Logger
}

// New creates a detector from an explicit configuration.
func New(config Config) *Detector {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	eval := config.Evaluator
	if eval == nil {
		eval = query.DefaultEvaluator{}
	}

	return &Detector{
		optimize: config.Optimize,
		trace:    config.Trace,
		eval:     eval,
		log:      log.WithName("querychange"),
	}
}

// Detect folds a batch of change events over the previous result sequence and
// reports the new sequence, certifies no observable change, or signals that a
// full re-execution is required. Inputs are never mutated. An evaluator fault
// fails the whole batch.
func (d *Detector) Detect(q *query.Query, previous []document.Document, events []Event) (Outcome, error) {
	if len(events) == 0 {
		return unchanged(), nil
	}
	if !d.optimize {
		return reExecute(), nil
	}

	working := previous
	changed := false
	for i := range events {
		// later events must see the effects of earlier ones
		out, err := d.handleOne(q, working, events[i])
		if err != nil {
			return Outcome{}, err
		}

		switch out.Kind {
		case MustReExecute:
			// no partial optimization once one event is unresolvable
			return out, nil
		case Updated:
			working = out.Results
			changed = true
		}
	}

	if !changed {
		return unchanged(), nil
	}
	return updated(working), nil
}

// handleOne resolves a single event against the current working result set.
func (d *Detector) handleOne(q *query.Query, current []document.Document, ev Event) (Outcome, error) {
	c := &eventCtx{d: d, q: q, results: current, ev: ev}

	switch ev.Op {
	case OpRemove:
		return d.handleRemove(c)
	case OpInsert, OpUpdate:
		return d.handleWrite(c)
	default:
		d.traceBranch(c, "unknown-operation")
		return reExecute(), nil
	}
}

func (d *Detector) handleRemove(c *eventCtx) (Outcome, error) {
	matches, err := c.matchesNow()
	if err != nil {
		return Outcome{}, err
	}

	// a document that never matched cannot affect results by disappearing
	if !matches {
		d.traceBranch(c, "remove-nonmatching")
		return unchanged(), nil
	}

	if c.q.Skip > 0 && !c.isFilled() {
		before, err := c.sortsBeforeFirst()
		if err != nil {
			return Outcome{}, err
		}
		if before {
			// the removed document sat in the skipped region ahead of the
			// window, which shifts left by one; no backfill is attempted
			d.traceBranch(c, "remove-before-window")
			return updated(document.CopyResults(c.results[1:])), nil
		}
	}

	if !c.isFilled() && c.wasInResults() {
		// safe removal: no limit pressure requires a replacement
		d.traceBranch(c, "remove-in-results")
		return updated(c.withoutEventDoc()), nil
	}

	if c.q.Limit > 0 {
		after, err := c.sortsAfterLast()
		if err != nil {
			return Outcome{}, err
		}
		if after {
			// removal beyond the visible window is unobservable
			d.traceBranch(c, "remove-after-window")
			return unchanged(), nil
		}
	}

	d.traceBranch(c, "remove-unresolved")
	return reExecute(), nil
}

func (d *Detector) handleWrite(c *eventCtx) (Outcome, error) {
	if c.q.Skip == 0 && c.q.Limit == 0 {
		matches, err := c.matchesNow()
		if err != nil {
			return Outcome{}, err
		}
		wasIn := c.wasInResults()

		if !wasIn && !matches {
			// irrelevant document, no pagination to disturb
			d.traceBranch(c, "write-irrelevant")
			return unchanged(), nil
		}

		if wasIn && matches {
			next := c.withoutEventDoc()

			// NOTE: historical behavior kept on purpose: the sort-change
			// check compares the new snapshot against whichever other result
			// entry survives first, not against the document's own prior
			// snapshot (no prior snapshot is retained anywhere). When the new
			// sort-field value collides with that entry's value, a needed
			// resort is skipped. See DESIGN.md.
			sortChanged := false
			if len(next) > 0 {
				sortChanged = c.sortFieldChanged(next[0])
			}

			next = append(next, c.ev.Document)

			if sortChanged {
				d.traceBranch(c, "write-replaced-resorted")
				sorted, err := d.eval.Evaluate(next, c.q.Selector, c.q.NormalizedSort())
				if err != nil {
					return Outcome{}, NewEvaluatorError("resort", err)
				}
				return updated(sorted), nil
			}

			d.traceBranch(c, "write-replaced")
			return updated(next), nil
		}
	}

	// new match insertion, active skip/limit, or match loss on update
	d.traceBranch(c, "write-unresolved")
	return reExecute(), nil
}

func (d *Detector) traceBranch(c *eventCtx, branch string) {
	if !d.trace {
		return
	}
	d.log.Info("decision", "branch", branch, "op", c.ev.Op.String(),
		"document", c.ev.Document, "results", len(c.results))
}
