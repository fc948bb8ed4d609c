// Package selector implements the declarative field-based predicate that
// determines query membership: comparison and logical operators over document
// fields. Unstructured selectors (e.g. `{"age": {"$gte": 18}}`) are parsed
// into an AST that the evaluator uses to filter documents.
package selector

import (
	"encoding/json"
	"fmt"

	"github.com/VinayaSathyanarayana/rxdb/pkg/document"
)

// Operator represents a comparison operator (e.g. $eq, $gt, $in).
type Operator string

const (
	OpEq     Operator = "$eq"
	OpNe     Operator = "$ne"
	OpGt     Operator = "$gt"
	OpGte    Operator = "$gte"
	OpLt     Operator = "$lt"
	OpLte    Operator = "$lte"
	OpIn     Operator = "$in"
	OpNin    Operator = "$nin"
	OpExists Operator = "$exists"
)

// Node is the common interface for all nodes in the selector AST.
type Node interface {
	Matches(doc document.Document) bool
}

// FieldNode represents a comparison on a single (possibly nested) field.
type FieldNode struct {
	Field    string
	Operator Operator
	Value    any
}

// LogicalNode combines child nodes with $and, $or or $not.
type LogicalNode struct {
	Operator string
	Children []Node
}

// Selector is a parsed, immutable predicate over documents.
type Selector struct {
	root Node
	raw  map[string]any
}

// Parse converts a map-based selector into a Selector:
//
//	{ "age": { "$gt": 25 }, "status": "active" }
func Parse(sel map[string]any) (*Selector, error) {
	root, err := parseNode(sel)
	if err != nil {
		return nil, err
	}
	return &Selector{root: root, raw: sel}, nil
}

func parseNode(sel map[string]any) (Node, error) {
	nodes := []Node{}

	for key, val := range sel {
		switch key {
		case "$and", "$or":
			list, ok := val.([]any)
			if !ok {
				return nil, NewParseError(fmt.Sprintf("value for %s must be a list", key))
			}
			children := make([]Node, 0, len(list))
			for _, item := range list {
				subMap, ok := item.(map[string]any)
				if !ok {
					return nil, NewParseError(fmt.Sprintf("element of %s must be an object", key))
				}
				subNode, err := parseNode(subMap)
				if err != nil {
					return nil, err
				}
				children = append(children, subNode)
			}
			nodes = append(nodes, &LogicalNode{Operator: key, Children: children})

		case "$not":
			subMap, ok := val.(map[string]any)
			if !ok {
				return nil, NewParseError("value for $not must be an object")
			}
			subNode, err := parseNode(subMap)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, &LogicalNode{Operator: key, Children: []Node{subNode}})

		default:
			if valMap, ok := val.(map[string]any); ok {
				for op, opVal := range valMap {
					switch Operator(op) {
					case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpNin, OpExists:
						nodes = append(nodes, &FieldNode{Field: key, Operator: Operator(op), Value: opVal})
					default:
						return nil, NewParseError(fmt.Sprintf("unknown operator %s", op))
					}
				}
			} else {
				// implicit $eq
				nodes = append(nodes, &FieldNode{Field: key, Operator: OpEq, Value: val})
			}
		}
	}

	return &LogicalNode{Operator: "$and", Children: nodes}, nil
}

// Matches reports whether a document satisfies the selector. A nil selector
// matches every document.
func (s *Selector) Matches(doc document.Document) bool {
	if s == nil || s.root == nil {
		return true
	}
	return s.root.Matches(doc)
}

func (s *Selector) String() string {
	if s == nil {
		return "{}"
	}
	b, err := json.Marshal(s.raw)
	if err != nil {
		return ""
	}
	return string(b)
}

// Matches checks whether a document satisfies a field comparison.
func (n *FieldNode) Matches(doc document.Document) bool {
	val, exists := document.Get(doc, n.Field)

	if n.Operator == OpExists {
		want, ok := n.Value.(bool)
		if !ok {
			want = true
		}
		return exists == want
	}
	if !exists {
		return false
	}

	switch n.Operator {
	case OpEq:
		return CompareValues(val, n.Value) == 0
	case OpNe:
		return CompareValues(val, n.Value) != 0
	case OpGt:
		return CompareValues(val, n.Value) > 0
	case OpGte:
		return CompareValues(val, n.Value) >= 0
	case OpLt:
		return CompareValues(val, n.Value) < 0
	case OpLte:
		return CompareValues(val, n.Value) <= 0
	case OpIn:
		return containsValue(n.Value, val)
	case OpNin:
		return !containsValue(n.Value, val)
	}
	return false
}

// Matches evaluates a logical combination of child nodes.
func (n *LogicalNode) Matches(doc document.Document) bool {
	switch n.Operator {
	case "$and":
		for _, child := range n.Children {
			if !child.Matches(doc) {
				return false
			}
		}
		return true
	case "$or":
		for _, child := range n.Children {
			if child.Matches(doc) {
				return true
			}
		}
		return false
	case "$not":
		for _, child := range n.Children {
			if child.Matches(doc) {
				return false
			}
		}
		return true
	}
	return false
}

func containsValue(list any, val any) bool {
	items, ok := list.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if CompareValues(val, item) == 0 {
			return true
		}
	}
	return false
}

// CompareValues returns -1 if a < b, 0 if a == b, 1 if a > b. Numbers compare
// numerically across integer and float representations, booleans order false
// before true, everything else falls back to string comparison so the
// ordering is total.
func CompareValues(a, b any) int {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}

	ba, okA := a.(bool)
	bb, okB := b.(bool)
	if okA && okB {
		switch {
		case ba == bb:
			return 0
		case bb:
			return -1
		default:
			return 1
		}
	}

	sa := fmt.Sprintf("%v", a)
	sb := fmt.Sprintf("%v", b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch i := v.(type) {
	case float64:
		return i, true
	case float32:
		return float64(i), true
	case int:
		return float64(i), true
	case int32:
		return float64(i), true
	case int64:
		return float64(i), true
	}
	return 0, false
}
