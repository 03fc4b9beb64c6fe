package document

import (
	"strconv"
	"strings"
)

// Kind identifies the shape of a Node. The set is closed: every value parsed
// out of a YAML or JSON document maps onto exactly one of these.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Entry is one key/value pair of a mapping node. Mapping entries keep the
// order they were declared in, which is what makes generated field order
// stable across runs.
type Entry struct {
	Key   string
	Value *Node
}

// Node is an untyped document tree value. It is produced once by the loader
// and treated as read-only by everything downstream.
type Node struct {
	Kind Kind

	Str     string // KindString
	Num     string // KindNumber, decimal text as written
	Bool    bool   // KindBool
	Items   []*Node // KindSequence
	Entries []Entry // KindMapping
}

// Get returns the value for key in a mapping node.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.Kind != KindMapping {
		return nil, false
	}
	for i := range n.Entries {
		if n.Entries[i].Key == key {
			return n.Entries[i].Value, true
		}
	}
	return nil, false
}

// Has reports whether a mapping node contains key.
func (n *Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// StringOf returns the string value for key, or "" when absent or not a string.
func (n *Node) StringOf(key string) string {
	v, ok := n.Get(key)
	if !ok || v == nil || v.Kind != KindString {
		return ""
	}
	return v.Str
}

// SequenceOf returns the sequence items for key, or nil.
func (n *Node) SequenceOf(key string) []*Node {
	v, ok := n.Get(key)
	if !ok || v == nil || v.Kind != KindSequence {
		return nil
	}
	return v.Items
}

// MappingOf returns the mapping node for key, or nil.
func (n *Node) MappingOf(key string) *Node {
	v, ok := n.Get(key)
	if !ok || v == nil || v.Kind != KindMapping {
		return nil
	}
	return v
}

// BoolOf returns the bool value for key and whether it was present.
func (n *Node) BoolOf(key string) (bool, bool) {
	v, ok := n.Get(key)
	if !ok || v == nil || v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}

// Int64 converts a number node to int64.
func (n *Node) Int64() (int64, bool) {
	if n == nil || n.Kind != KindNumber {
		return 0, false
	}
	v, err := strconv.ParseInt(n.Num, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Float64 converts a number node to float64.
func (n *Node) Float64() (float64, bool) {
	if n == nil || n.Kind != KindNumber {
		return 0, false
	}
	v, err := strconv.ParseFloat(n.Num, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Interface converts the node to a plain Go value. Mapping order is lost, so
// this is only used for opaque payloads like enum values, defaults and
// examples that are carried through verbatim.
func (n *Node) Interface() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindNull:
		return nil
	case KindBool:
		return n.Bool
	case KindString:
		return n.Str
	case KindNumber:
		if i, err := strconv.ParseInt(n.Num, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(n.Num, 64); err == nil {
			return f
		}
		return n.Num
	case KindSequence:
		out := make([]any, 0, len(n.Items))
		for _, item := range n.Items {
			out = append(out, item.Interface())
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(n.Entries))
		for _, e := range n.Entries {
			out[e.Key] = e.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

// WriteCanonical writes a deterministic serialization of the node. Two nodes
// with the same structure and declaration order produce identical output, so
// the result is usable as a cache signature for anonymous schemas.
func (n *Node) WriteCanonical(sb *strings.Builder) {
	if n == nil {
		sb.WriteString("~")
		return
	}
	switch n.Kind {
	case KindNull:
		sb.WriteString("~")
	case KindBool:
		if n.Bool {
			sb.WriteString("t")
		} else {
			sb.WriteString("f")
		}
	case KindNumber:
		sb.WriteByte('n')
		sb.WriteString(n.Num)
	case KindString:
		sb.WriteByte('s')
		sb.WriteString(strconv.Itoa(len(n.Str)))
		sb.WriteByte(':')
		sb.WriteString(n.Str)
	case KindSequence:
		sb.WriteByte('[')
		for _, item := range n.Items {
			item.WriteCanonical(sb)
			sb.WriteByte(',')
		}
		sb.WriteByte(']')
	case KindMapping:
		sb.WriteByte('{')
		for _, e := range n.Entries {
			sb.WriteString(strconv.Itoa(len(e.Key)))
			sb.WriteByte(':')
			sb.WriteString(e.Key)
			sb.WriteByte('=')
			e.Value.WriteCanonical(sb)
			sb.WriteByte(',')
		}
		sb.WriteByte('}')
	}
}
