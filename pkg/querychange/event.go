package querychange

import (
	"github.com/VinayaSathyanarayana/rxdb/pkg/document"
)

// Op is the kind of change a collection event describes.
type Op int

const (
	OpInsert Op = iota + 1
	OpUpdate
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event registers a change to a single logical document. For OpRemove the
// document is the last known pre-deletion snapshot, used only to test whether
// the removed document used to satisfy the selector and ordering.
type Event struct {
	Op       Op
	Document document.Document
}
