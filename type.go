package zen

import (
	"fmt"
	"sort"
	"strings"
)

// Type represents the host type that an expression models.
type Type interface {
	typ()
	String() string
}

func (BoolType) typ()     {}
func (IntType) typ()      {}
func (BigType) typ()      {}
func (RealType) typ()     {}
func (CharType) typ()     {}
func (StringType) typ()   {}
func (SeqType) typ()      {}
func (ObjectType) typ()   {}
func (ListType) typ()     {}
func (MapType) typ()      {}
func (SetType) typ()      {}
func (ConstMapType) typ() {}

// BoolType represents a boolean.
type BoolType struct{}

func (t BoolType) String() string { return "bool" }

// IntType represents a fixed-width two's complement integer.
type IntType struct {
	Width  uint
	Signed bool
}

func (t IntType) String() string {
	if t.Signed {
		return fmt.Sprintf("int%d", t.Width)
	}
	return fmt.Sprintf("uint%d", t.Width)
}

// BigType represents an unbounded mathematical integer.
type BigType struct{}

func (t BigType) String() string { return "bigint" }

// RealType represents an unbounded rational number.
type RealType struct{}

func (t RealType) String() string { return "real" }

// CharType represents a unicode code point. Chars are modeled as 32-bit
// unsigned bitvectors on every backend.
type CharType struct{}

func (t CharType) String() string { return "char" }

// StringType represents a unicode string. Strings share their solver
// representation with sequences of chars; CastExpr converts between the two
// for free.
type StringType struct{}

func (t StringType) String() string { return "string" }

// SeqType represents a finite sequence of elements.
type SeqType struct {
	Elem Type
}

func (t SeqType) String() string { return fmt.Sprintf("(seq %s)", t.Elem) }

// ObjectField is a single named field of an object type.
type ObjectField struct {
	Name string
	Type Type
}

// ObjectType represents a record with a fixed set of named fields.
// Fields are kept sorted by name so that equal object types compare
// structurally and field iteration order is deterministic.
type ObjectType struct {
	Fields []ObjectField
}

// NewObjectType returns an object type with fields sorted by name.
func NewObjectType(fields ...ObjectField) ObjectType {
	other := make([]ObjectField, len(fields))
	copy(other, fields)
	sort.Slice(other, func(i, j int) bool { return other[i].Name < other[j].Name })
	for i := 1; i < len(other); i++ {
		assert(other[i-1].Name != other[i].Name, "duplicate object field: %s", other[i].Name)
	}
	return ObjectType{Fields: other}
}

// Field returns the field with the given name, if it exists.
func (t ObjectType) Field(name string) (ObjectField, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return ObjectField{}, false
}

func (t ObjectType) String() string {
	var buf strings.Builder
	buf.WriteString("(object")
	for _, f := range t.Fields {
		fmt.Fprintf(&buf, " (%s %s)", f.Name, f.Type)
	}
	buf.WriteString(")")
	return buf.String()
}

// OptionType returns the object type produced by a map lookup: a "found"
// flag plus a "value" of the map's value type.
func OptionType(valueType Type) ObjectType {
	return NewObjectType(
		ObjectField{Name: "found", Type: BoolType{}},
		ObjectField{Name: "value", Type: valueType},
	)
}

// ListType represents a finite list of elements.
type ListType struct {
	Elem Type
}

func (t ListType) String() string { return fmt.Sprintf("(list %s)", t.Elem) }

// MapType represents a map with symbolic keys, backed by the solver's
// array theory.
type MapType struct {
	Key   Type
	Value Type
}

func (t MapType) String() string { return fmt.Sprintf("(map %s %s)", t.Key, t.Value) }

// SetType represents a finite set of elements.
type SetType struct {
	Elem Type
}

func (t SetType) String() string { return fmt.Sprintf("(set %s)", t.Elem) }

// ConstMapType represents a map whose keys are restricted to constants.
// Unset keys read as the value type's default, so a const map is total.
type ConstMapType struct {
	Key   Type
	Value Type
}

func (t ConstMapType) String() string { return fmt.Sprintf("(cmap %s %s)", t.Key, t.Value) }

// TypesEqual returns true if a and b are structurally identical.
func TypesEqual(a, b Type) bool {
	switch a := a.(type) {
	case BoolType, BigType, RealType, CharType, StringType:
		return a == b
	case IntType:
		b, ok := b.(IntType)
		return ok && a == b
	case SeqType:
		b, ok := b.(SeqType)
		return ok && TypesEqual(a.Elem, b.Elem)
	case ObjectType:
		b, ok := b.(ObjectType)
		if !ok || len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name || !TypesEqual(a.Fields[i].Type, b.Fields[i].Type) {
				return false
			}
		}
		return true
	case ListType:
		b, ok := b.(ListType)
		return ok && TypesEqual(a.Elem, b.Elem)
	case MapType:
		b, ok := b.(MapType)
		return ok && TypesEqual(a.Key, b.Key) && TypesEqual(a.Value, b.Value)
	case SetType:
		b, ok := b.(SetType)
		return ok && TypesEqual(a.Elem, b.Elem)
	case ConstMapType:
		b, ok := b.(ConstMapType)
		return ok && TypesEqual(a.Key, b.Key) && TypesEqual(a.Value, b.Value)
	default:
		panic(fmt.Sprintf("zen.TypesEqual: unknown type: %T", a))
	}
}

// BitSize returns the bit width of t under a decision diagram encoding.
// Returns false if t has no fixed-width encoding.
func BitSize(t Type) (uint, bool) {
	switch t := t.(type) {
	case BoolType:
		return WidthBool, true
	case IntType:
		return t.Width, true
	case CharType:
		return Width32, true
	default:
		return 0, false
	}
}

func isBoolType(t Type) bool {
	_, ok := t.(BoolType)
	return ok
}
