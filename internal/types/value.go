// Package types holds the data model shared by every flowq layer: the
// scalar/list record value, the ack-state enum, and the sentinel error kinds.
package types

import "fmt"

// Kind tags which variant of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindText
	KindList
)

// Value is a single record field: a scalar, or a homogeneous list of
// scalars. Value has no map variant, so a nested map cannot be stored in a
// Record at all.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Text  string
	List  []Value // elements are always non-list scalars
}

func Null() Value                { return Value{Kind: KindNull} }
func Int(v int64) Value          { return Value{Kind: KindInt, Int: v} }
func Float(v float64) Value      { return Value{Kind: KindFloat, Float: v} }
func Text(v string) Value        { return Value{Kind: KindText, Text: v} }
func List(items ...Value) Value  { return Value{Kind: KindList, List: items} }

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// SQLType infers the ALTER-TABLE column type flowq uses to store v the
// first time a field with this kind is observed (spec.md §4.1
// create_column: str->TEXT, float->REAL, int->INTEGER).
func (v Value) SQLType() (string, error) {
	switch v.Kind {
	case KindText, KindNull:
		return "TEXT", nil
	case KindFloat:
		return "REAL", nil
	case KindInt:
		return "INTEGER", nil
	default:
		return "", fmt.Errorf("%w: value of kind %d has no scalar column type", ErrInvalidRecord, v.Kind)
	}
}

// Record is a named bag of scalar/list values. It has no identity until
// inserted into an ack queue.
type Record map[string]Value

// Clone returns a shallow-independent copy of r (lists are copied too).
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if v.Kind == KindList {
			list := make([]Value, len(v.List))
			copy(list, v.List)
			v.List = list
		}
		out[k] = v
	}
	return out
}
