// Package document defines the unstructured document snapshots the store and
// the query layer operate on.
package document

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Document represents an unstructured document as map[string]any. Can contain
// embedded maps, slices, and primitives (int64, float64, string, bool). Two
// snapshots with the same primary-key value describe the same logical
// document but may differ in content over time.
type Document = map[string]any

// Get looks up a field by a dotted path ("address.city"), traversing embedded
// maps. The second return value reports whether the full path resolved.
func Get(doc Document, path string) (any, bool) {
	if doc == nil || path == "" {
		return nil, false
	}

	var cur any = doc
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}

	return cur, true
}

// Key renders the primary-key value of a document to its string identity.
func Key(doc Document, pkField string) (string, bool) {
	v, ok := Get(doc, pkField)
	if !ok || v == nil {
		return "", false
	}
	return fmt.Sprintf("%v", v), true
}

// DeepCopy creates a deep copy of a document.
func DeepCopy(doc Document) Document {
	if doc == nil {
		return nil
	}
	c, ok := deepCopy(doc).(Document)
	if !ok {
		return nil
	}
	return c
}

// CopyResults copies a result sequence. The snapshots themselves are shared:
// results are treated as values and snapshots are never mutated in place.
func CopyResults(results []Document) []Document {
	if results == nil {
		return nil
	}
	out := make([]Document, len(results))
	copy(out, results)
	return out
}

// deepCopy creates a deep copy of a document or any nested structure.
func deepCopy(val any) any {
	switch v := val.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, subVal := range v {
			result[k] = deepCopy(subVal)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, subVal := range v {
			result[i] = deepCopy(subVal)
		}
		return result

	default:
		// primitives are already canonical
		return v
	}
}

// DeepEqual checks whether two documents are equal using their canonical JSON
// representation, falling back to reflection when a document does not
// marshal.
func DeepEqual(a, b Document) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return string(ja) == string(jb)
}
