package querychange

import (
	"github.com/VinayaSathyanarayana/rxdb/pkg/document"
)

// Kind classifies a detection outcome.
type Kind int

const (
	// Unchanged certifies that the cached result already equals what a full
	// execution would produce.
	Unchanged Kind = iota + 1
	// Updated carries the exact new result sequence.
	Updated
	// MustReExecute signals that the change could not be resolved cheaply and
	// the caller has to run a full query.
	MustReExecute
)

func (k Kind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Updated:
		return "updated"
	case MustReExecute:
		return "must-re-execute"
	default:
		return "invalid"
	}
}

// Outcome is the three-state result of change detection. Results is set only
// for Updated outcomes.
type Outcome struct {
	Kind    Kind
	Results []document.Document
}

func unchanged() Outcome { return Outcome{Kind: Unchanged} }

func updated(results []document.Document) Outcome {
	return Outcome{Kind: Updated, Results: results}
}

func reExecute() Outcome { return Outcome{Kind: MustReExecute} }
