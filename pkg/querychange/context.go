package querychange

import (
	"github.com/VinayaSathyanarayana/rxdb/pkg/document"
	"github.com/VinayaSathyanarayana/rxdb/pkg/query"
	"github.com/VinayaSathyanarayana/rxdb/pkg/selector"
)

// eventCtx carries one event through the decision table. The predicates are
// computed lazily and memoized in call-local cells, so each evaluator round
// trip happens at most once per event and no state outlives the call.
type eventCtx struct {
	d       *Detector
	q       *query.Query
	results []document.Document
	ev      Event

	wasIn       *bool
	matches     *bool
	beforeFirst *bool
	afterLast   *bool
}

func (c *eventCtx) eventKey() string {
	key, _ := document.Key(c.ev.Document, c.q.PrimaryKey)
	return key
}

// wasInResults reports whether a document sharing the event's primary key
// exists in the current results.
func (c *eventCtx) wasInResults() bool {
	if c.wasIn == nil {
		found := false
		key := c.eventKey()
		for _, r := range c.results {
			if k, ok := document.Key(r, c.q.PrimaryKey); ok && k == key {
				found = true
				break
			}
		}
		c.wasIn = &found
	}
	return *c.wasIn
}

// matchesNow reports whether the event document satisfies the selector, using
// the evaluator on a single-document batch so membership can never disagree
// with full execution.
func (c *eventCtx) matchesNow() (bool, error) {
	if c.matches == nil {
		out, err := c.d.eval.Evaluate([]document.Document{c.ev.Document}, c.q.Selector, nil)
		if err != nil {
			return false, NewEvaluatorError("selector membership", err)
		}
		m := len(out) == 1
		c.matches = &m
	}
	return *c.matches, nil
}

// isFilled reports whether the result window is at capacity. Absence of a
// limit counts as filled: there is no backfill accounting without a limit.
func (c *eventCtx) isFilled() bool {
	return c.q.Limit == 0 || len(c.results) >= c.q.Limit
}

// sortsBeforeFirst reports whether the event document is ordered before the
// current first result. Empty results give the ordering nothing to compare
// against and report false, which lets the event fall through to a full
// re-execution.
func (c *eventCtx) sortsBeforeFirst() (bool, error) {
	if c.beforeFirst == nil {
		v := false
		if len(c.results) > 0 {
			first, decided, err := c.orderedFirstKey(c.results[0])
			if err != nil {
				return false, err
			}
			v = decided && first == c.eventKey()
		}
		c.beforeFirst = &v
	}
	return *c.beforeFirst, nil
}

// sortsAfterLast reports whether the event document is ordered strictly after
// the current last result. Empty results report false.
func (c *eventCtx) sortsAfterLast() (bool, error) {
	if c.afterLast == nil {
		v := false
		if len(c.results) > 0 {
			first, decided, err := c.orderedFirstKey(c.results[len(c.results)-1])
			if err != nil {
				return false, err
			}
			// a stable sort keeps ties in batch order, so the event document
			// losing first place means it is ordered strictly after
			v = decided && first != c.eventKey()
		}
		c.afterLast = &v
	}
	return *c.afterLast, nil
}

// orderedFirstKey hands the evaluator a two-document batch (event document
// first) and reads the primary key it places first, reusing the exact
// ordering of full execution rather than a bespoke comparator. The ordering
// is undecidable when the evaluator does not return both documents.
func (c *eventCtx) orderedFirstKey(other document.Document) (string, bool, error) {
	pair := []document.Document{c.ev.Document, other}
	out, err := c.d.eval.Evaluate(pair, c.q.Selector, c.q.NormalizedSort())
	if err != nil {
		return "", false, NewEvaluatorError("pairwise ordering", err)
	}
	if len(out) != 2 {
		return "", false, nil
	}

	first, ok := document.Key(out[0], c.q.PrimaryKey)
	return first, ok, nil
}

// sortFieldChanged reports whether any sort-relevant field of the event
// document differs from the given result entry.
func (c *eventCtx) sortFieldChanged(other document.Document) bool {
	for _, sf := range c.q.NormalizedSort() {
		va, _ := document.Get(other, sf.Field)
		vb, _ := document.Get(c.ev.Document, sf.Field)
		if selector.CompareValues(va, vb) != 0 {
			return true
		}
	}
	return false
}

// withoutEventDoc filters the entry sharing the event's primary key out of
// the current results, producing a fresh sequence.
func (c *eventCtx) withoutEventDoc() []document.Document {
	key := c.eventKey()
	out := make([]document.Document, 0, len(c.results))
	for _, r := range c.results {
		if k, ok := document.Key(r, c.q.PrimaryKey); ok && k == key {
			continue
		}
		out = append(out, r)
	}
	return out
}
