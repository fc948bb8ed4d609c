// Package query defines the immutable query descriptor and the evaluator
// capability used both for full query execution and as the ordering oracle of
// incremental change detection.
package query

import (
	"github.com/VinayaSathyanarayana/rxdb/pkg/document"
	"github.com/VinayaSathyanarayana/rxdb/pkg/selector"
)

// Order is the direction of a sort field.
type Order int

const (
	Ascending Order = iota
	Descending
)

// SortField names a document field and the direction it orders results in.
type SortField struct {
	Field string
	Order Order
}

// Query describes a declarative query: selector plus sort plus pagination.
// It is immutable for the duration of a detection call.
type Query struct {
	// Selector determines membership. A nil selector matches everything.
	Selector *selector.Selector
	// Sort is the ordered list of sort fields. Empty means primary-key order.
	Sort []SortField
	// Skip is the number of leading matches excluded from the result window.
	Skip int
	// Limit caps the result window. Zero means no limit.
	Limit int
	// PrimaryKey is the field holding the document identity.
	PrimaryKey string
}

// NormalizedSort returns the effective sort spec: the declared one, or
// ascending primary key when none is given, so query order is always total.
func (q *Query) NormalizedSort() []SortField {
	if len(q.Sort) > 0 {
		return q.Sort
	}
	return []SortField{{Field: q.PrimaryKey, Order: Ascending}}
}

// Window applies skip/limit windowing to an ordered match set. The returned
// slice aliases docs; callers treating results as values must not mutate it.
func Window(docs []document.Document, skip, limit int) []document.Document {
	if skip > 0 {
		if skip >= len(docs) {
			return []document.Document{}
		}
		docs = docs[skip:]
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}
