package query

import (
	"slices"

	"github.com/VinayaSathyanarayana/rxdb/pkg/document"
	"github.com/VinayaSathyanarayana/rxdb/pkg/selector"
)

// Evaluator filters a batch of document snapshots with a selector and, when a
// sort spec is given, orders the matching subset. The returned slice contains
// the snapshots it was given (no copies), so callers can rely on identity.
//
// A single evaluator serves membership tests, pairwise ordering decisions and
// full resorts, which guarantees that incremental ordering decisions can
// never disagree with a full execution.
type Evaluator interface {
	Evaluate(docs []document.Document, sel *selector.Selector, sort []SortField) ([]document.Document, error)
}

// DefaultEvaluator is the in-process evaluator: selector filtering plus a
// stable sort over the sort spec. With no sort spec the input order is kept.
type DefaultEvaluator struct{}

var _ Evaluator = DefaultEvaluator{}

func (DefaultEvaluator) Evaluate(docs []document.Document, sel *selector.Selector, sort []SortField) ([]document.Document, error) {
	out := make([]document.Document, 0, len(docs))
	for _, doc := range docs {
		if sel.Matches(doc) {
			out = append(out, doc)
		}
	}

	if len(sort) > 0 {
		slices.SortStableFunc(out, func(a, b document.Document) int {
			return compareBySort(a, b, sort)
		})
	}

	return out, nil
}

func compareBySort(a, b document.Document, sort []SortField) int {
	for _, sf := range sort {
		va, _ := document.Get(a, sf.Field)
		vb, _ := document.Get(b, sf.Field)
		c := selector.CompareValues(va, vb)
		if c == 0 {
			continue
		}
		if sf.Order == Descending {
			return -c
		}
		return c
	}
	return 0
}
