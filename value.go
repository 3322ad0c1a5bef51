package zen

import (
	"fmt"

	"github.com/benbjohnson/immutable"
)

// Value represents the symbolic value of an expression under a solver:
// a term handle for primitive types and a structured composite for
// objects, lists, and constant-keyed maps. Values carry no type of their
// own; operations over values recurse on the host type instead.
type Value interface {
	value()
}

func (*BoolValue) value()     {}
func (*IntValue) value()      {}
func (*BigValue) value()      {}
func (*RealValue) value()     {}
func (*CharValue) value()     {}
func (*SeqValue) value()      {}
func (*ObjectValue) value()   {}
func (*ListValue) value()     {}
func (*MapValue) value()      {}
func (*SetValue) value()      {}
func (*ConstMapValue) value() {}

// BoolValue wraps a boolean term.
type BoolValue struct {
	Expr Bool
}

// IntValue wraps a fixed-width bitvector term.
type IntValue struct {
	Expr Bitvec
}

// BigValue wraps an unbounded integer term.
type BigValue struct {
	Expr Integer
}

// RealValue wraps a rational term.
type RealValue struct {
	Expr Real
}

// CharValue wraps a 32-bit bitvector term holding a code point.
type CharValue struct {
	Expr Bitvec
}

// SeqValue wraps a sequence or string term.
type SeqValue struct {
	Expr Seq
}

// MapValue wraps an array-theory map term.
type MapValue struct {
	Expr Array
}

// SetValue wraps a finite set term.
type SetValue struct {
	Expr Set
}

// ObjectValue represents an object as a sorted map from field name to
// field value.
type ObjectValue struct {
	Fields *immutable.SortedMap
}

// NewObjectValue returns an object value with the given fields.
func NewObjectValue(fields map[string]Value) *ObjectValue {
	m := immutable.NewSortedMap(nil)
	for name, value := range fields {
		m = m.Set(name, value)
	}
	return &ObjectValue{Fields: m}
}

// Field returns the value of the given field.
func (v *ObjectValue) Field(name string) Value {
	fv, ok := v.Fields.Get(name)
	assert(ok, "object value: no such field: %s", name)
	return fv.(Value)
}

// WithField returns a copy of v with one field replaced.
func (v *ObjectValue) WithField(name string, value Value) *ObjectValue {
	_, ok := v.Fields.Get(name)
	assert(ok, "object value: no such field: %s", name)
	return &ObjectValue{Fields: v.Fields.Set(name, value)}
}

// GuardedElems represents the contents of a list at one possible length.
// The guard is the condition under which the list has this length.
type GuardedElems struct {
	Guard Bool
	Elems []Value
}

// ListValue represents a list as a sorted map from possible length to the
// guarded elements at that length. Guards of distinct lengths are
// disjoint and exactly one holds in any model.
type ListValue struct {
	Groups *immutable.SortedMap
}

// NewListValue returns a list value holding the given length groups.
func NewListValue(groups map[int]*GuardedElems) *ListValue {
	m := immutable.NewSortedMap(nil)
	for length, group := range groups {
		assert(len(group.Elems) == length, "list value: group size mismatch: %d != %d", len(group.Elems), length)
		m = m.Set(length, group)
	}
	return &ListValue{Groups: m}
}

// Group returns the guarded elements at the given length, if present.
func (v *ListValue) Group(length int) (*GuardedElems, bool) {
	g, ok := v.Groups.Get(length)
	if !ok {
		return nil, false
	}
	return g.(*GuardedElems), true
}

// Lengths returns the possible lengths in ascending order.
func (v *ListValue) Lengths() []int {
	lengths := make([]int, 0, v.Groups.Len())
	for itr := v.Groups.Iterator(); !itr.Done(); {
		k, _ := itr.Next()
		lengths = append(lengths, k.(int))
	}
	return lengths
}

// ConstMapValue represents a constant-keyed map as a sorted map from
// canonical key literal to value. Keys not present read as the value
// type's default.
type ConstMapValue struct {
	Entries *immutable.SortedMap
}

// NewConstMapValue returns an empty constant-keyed map value.
func NewConstMapValue() *ConstMapValue {
	return &ConstMapValue{Entries: immutable.NewSortedMap(&literalComparer{})}
}

// Set returns a copy of v with key bound to value.
func (v *ConstMapValue) Set(key Literal, value Value) *ConstMapValue {
	return &ConstMapValue{Entries: v.Entries.Set(key, value)}
}

// Delete returns a copy of v with key removed.
func (v *ConstMapValue) Delete(key Literal) *ConstMapValue {
	return &ConstMapValue{Entries: v.Entries.Delete(key)}
}

// Get returns the value bound to key, if present.
func (v *ConstMapValue) Get(key Literal) (Value, bool) {
	ev, ok := v.Entries.Get(key)
	if !ok {
		return nil, false
	}
	return ev.(Value), true
}

// literalComparer orders canonical key literals. Keys of one map share a
// single literal form; mixed forms order by kind for determinism.
type literalComparer struct{}

func (c *literalComparer) Compare(a, b interface{}) int {
	ra, rb := literalRank(a), literalRank(b)
	if ra != rb {
		return ra - rb
	}

	switch a := a.(type) {
	case bool:
		bb := b.(bool)
		if a == bb {
			return 0
		} else if !a {
			return -1
		}
		return 1
	case uint64:
		bb := b.(uint64)
		if a < bb {
			return -1
		} else if a > bb {
			return 1
		}
		return 0
	case int64:
		bb := b.(int64)
		if a < bb {
			return -1
		} else if a > bb {
			return 1
		}
		return 0
	case string:
		bb := b.(string)
		if a < bb {
			return -1
		} else if a > bb {
			return 1
		}
		return 0
	default:
		panic(fmt.Sprintf("zen: cannot compare literal: %T", a))
	}
}

func literalRank(v interface{}) int {
	switch v.(type) {
	case bool:
		return 0
	case uint64:
		return 1
	case int64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

// unsupported returns an error naming the backend and the construct it
// cannot represent.
func unsupported(s Solver, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s: %w", s.Name(), fmt.Sprintf(format, args...), ErrUnsupportedExpr)
}

// term returns the raw solver handle of a primitive value.
func term(v Value) Term {
	switch v := v.(type) {
	case *BoolValue:
		return v.Expr
	case *IntValue:
		return v.Expr
	case *BigValue:
		return v.Expr
	case *RealValue:
		return v.Expr
	case *CharValue:
		return v.Expr
	case *SeqValue:
		return v.Expr
	default:
		panic(fmt.Sprintf("zen: value has no term form: %T", v))
	}
}

// wrapTerm wraps a raw solver handle in the value form for typ.
func wrapTerm(t Term, typ Type) Value {
	switch typ.(type) {
	case BoolType:
		return &BoolValue{Expr: t}
	case IntType:
		return &IntValue{Expr: t}
	case BigType:
		return &BigValue{Expr: t}
	case RealType:
		return &RealValue{Expr: t}
	case CharType:
		return &CharValue{Expr: t}
	case StringType, SeqType:
		return &SeqValue{Expr: t}
	default:
		panic(fmt.Sprintf("zen: type has no term form: %s", typ))
	}
}

// Merge combines two values of the same type under a guard: the result
// behaves as a when the guard holds and as b otherwise. Composites merge
// recursively; list groups absent on one side take that side's guard as
// false and default elements.
func Merge(s Solver, typ Type, guard Bool, a, b Value) (Value, error) {
	switch typ := typ.(type) {
	case BoolType:
		return &BoolValue{Expr: s.IteBool(guard, a.(*BoolValue).Expr, b.(*BoolValue).Expr)}, nil

	case IntType:
		return &IntValue{Expr: s.IteBitvec(guard, a.(*IntValue).Expr, b.(*IntValue).Expr)}, nil

	case CharType:
		return &CharValue{Expr: s.IteBitvec(guard, a.(*CharValue).Expr, b.(*CharValue).Expr)}, nil

	case BigType:
		is, ok := s.(IntegerSolver)
		if !ok {
			return nil, unsupported(s, "bigint merge")
		}
		return &BigValue{Expr: is.IteInteger(guard, a.(*BigValue).Expr, b.(*BigValue).Expr)}, nil

	case RealType:
		rs, ok := s.(RealSolver)
		if !ok {
			return nil, unsupported(s, "real merge")
		}
		return &RealValue{Expr: rs.IteReal(guard, a.(*RealValue).Expr, b.(*RealValue).Expr)}, nil

	case StringType, SeqType:
		ss, ok := s.(SeqSolver)
		if !ok {
			return nil, unsupported(s, "sequence merge")
		}
		return &SeqValue{Expr: ss.IteSeq(guard, a.(*SeqValue).Expr, b.(*SeqValue).Expr)}, nil

	case ObjectType:
		av, bv := a.(*ObjectValue), b.(*ObjectValue)
		fields := immutable.NewSortedMap(nil)
		for _, f := range typ.Fields {
			fv, err := Merge(s, f.Type, guard, av.Field(f.Name), bv.Field(f.Name))
			if err != nil {
				return nil, err
			}
			fields = fields.Set(f.Name, fv)
		}
		return &ObjectValue{Fields: fields}, nil

	case ListType:
		return mergeListValue(s, typ, guard, a.(*ListValue), b.(*ListValue))

	case MapType:
		ms, ok := s.(MapSolver)
		if !ok {
			return nil, unsupported(s, "map merge")
		}
		return &MapValue{Expr: ms.IteMap(guard, a.(*MapValue).Expr, b.(*MapValue).Expr)}, nil

	case SetType:
		ss, ok := s.(SetSolver)
		if !ok {
			return nil, unsupported(s, "set merge")
		}
		return &SetValue{Expr: ss.IteSet(guard, a.(*SetValue).Expr, b.(*SetValue).Expr)}, nil

	case ConstMapType:
		return mergeConstMapValue(s, typ, guard, a.(*ConstMapValue), b.(*ConstMapValue))

	default:
		panic(fmt.Sprintf("zen.Merge: invalid type: %s", typ))
	}
}

func mergeListValue(s Solver, typ ListType, guard Bool, a, b *ListValue) (Value, error) {
	groups := immutable.NewSortedMap(nil)
	for _, length := range unionLengths(a, b) {
		ag, aok := a.Group(length)
		bg, bok := b.Group(length)

		var aguard, bguard Bool
		var aelems, belems []Value
		if aok {
			aguard, aelems = ag.Guard, ag.Elems
		} else {
			aguard = s.False()
			var err error
			if aelems, err = defaultElems(s, typ.Elem, length); err != nil {
				return nil, err
			}
		}
		if bok {
			bguard, belems = bg.Guard, bg.Elems
		} else {
			bguard = s.False()
			var err error
			if belems, err = defaultElems(s, typ.Elem, length); err != nil {
				return nil, err
			}
		}

		elems := make([]Value, length)
		for i := 0; i < length; i++ {
			ev, err := Merge(s, typ.Elem, guard, aelems[i], belems[i])
			if err != nil {
				return nil, err
			}
			elems[i] = ev
		}
		groups = groups.Set(length, &GuardedElems{
			Guard: s.IteBool(guard, aguard, bguard),
			Elems: elems,
		})
	}
	return &ListValue{Groups: groups}, nil
}

func unionLengths(a, b *ListValue) []int {
	lengths := a.Lengths()
	seen := make(map[int]struct{}, len(lengths))
	for _, length := range lengths {
		seen[length] = struct{}{}
	}
	for _, length := range b.Lengths() {
		if _, ok := seen[length]; !ok {
			lengths = append(lengths, length)
		}
	}
	return lengths
}

func defaultElems(s Solver, elem Type, n int) ([]Value, error) {
	elems := make([]Value, n)
	for i := range elems {
		v, err := DefaultValue(s, elem)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return elems, nil
}

func mergeConstMapValue(s Solver, typ ConstMapType, guard Bool, a, b *ConstMapValue) (Value, error) {
	result := NewConstMapValue()
	for _, key := range unionKeys(a, b) {
		av, err := constMapEntry(s, typ, a, key)
		if err != nil {
			return nil, err
		}
		bv, err := constMapEntry(s, typ, b, key)
		if err != nil {
			return nil, err
		}
		mv, err := Merge(s, typ.Value, guard, av, bv)
		if err != nil {
			return nil, err
		}
		result = result.Set(key, mv)
	}
	return result, nil
}

func unionKeys(a, b *ConstMapValue) []Literal {
	var keys []Literal
	seen := make(map[Literal]struct{})
	for itr := a.Entries.Iterator(); !itr.Done(); {
		k, _ := itr.Next()
		keys = append(keys, k)
		seen[k] = struct{}{}
	}
	for itr := b.Entries.Iterator(); !itr.Done(); {
		k, _ := itr.Next()
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func constMapEntry(s Solver, typ ConstMapType, m *ConstMapValue, key Literal) (Value, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}
	return DefaultValue(s, typ.Value)
}

// Eq returns the condition under which two values of the same type are
// equal. Objects compare fieldwise, lists compare lengthwise over their
// shared length groups, and constant-keyed maps compare over the union
// of their keys with defaults for absent entries.
func Eq(s Solver, typ Type, a, b Value) (Bool, error) {
	switch typ := typ.(type) {
	case BoolType:
		return s.Iff(a.(*BoolValue).Expr, b.(*BoolValue).Expr), nil

	case IntType:
		return s.BitvecEq(a.(*IntValue).Expr, b.(*IntValue).Expr), nil

	case CharType:
		return s.BitvecEq(a.(*CharValue).Expr, b.(*CharValue).Expr), nil

	case BigType:
		is, ok := s.(IntegerSolver)
		if !ok {
			return nil, unsupported(s, "bigint equality")
		}
		return is.IntegerEq(a.(*BigValue).Expr, b.(*BigValue).Expr), nil

	case RealType:
		rs, ok := s.(RealSolver)
		if !ok {
			return nil, unsupported(s, "real equality")
		}
		return rs.RealEq(a.(*RealValue).Expr, b.(*RealValue).Expr), nil

	case StringType, SeqType:
		ss, ok := s.(SeqSolver)
		if !ok {
			return nil, unsupported(s, "sequence equality")
		}
		return ss.SeqEq(a.(*SeqValue).Expr, b.(*SeqValue).Expr), nil

	case ObjectType:
		av, bv := a.(*ObjectValue), b.(*ObjectValue)
		acc := s.True()
		for _, f := range typ.Fields {
			eq, err := Eq(s, f.Type, av.Field(f.Name), bv.Field(f.Name))
			if err != nil {
				return nil, err
			}
			acc = s.And(acc, eq)
		}
		return acc, nil

	case ListType:
		return eqListValue(s, typ, a.(*ListValue), b.(*ListValue))

	case MapType:
		ms, ok := s.(MapSolver)
		if !ok {
			return nil, unsupported(s, "map equality")
		}
		return ms.MapEq(a.(*MapValue).Expr, b.(*MapValue).Expr), nil

	case SetType:
		ss, ok := s.(SetSolver)
		if !ok {
			return nil, unsupported(s, "set equality")
		}
		return ss.SetEq(a.(*SetValue).Expr, b.(*SetValue).Expr), nil

	case ConstMapType:
		av, bv := a.(*ConstMapValue), b.(*ConstMapValue)
		acc := s.True()
		for _, key := range unionKeys(av, bv) {
			ae, err := constMapEntry(s, typ, av, key)
			if err != nil {
				return nil, err
			}
			be, err := constMapEntry(s, typ, bv, key)
			if err != nil {
				return nil, err
			}
			eq, err := Eq(s, typ.Value, ae, be)
			if err != nil {
				return nil, err
			}
			acc = s.And(acc, eq)
		}
		return acc, nil

	default:
		panic(fmt.Sprintf("zen.Eq: invalid type: %s", typ))
	}
}

// eqListValue builds a disjunction over the lengths both lists can take.
// Length guards are exact, so lengths present on only one side cannot
// witness equality and are skipped.
func eqListValue(s Solver, typ ListType, a, b *ListValue) (Bool, error) {
	acc := s.False()
	for itr := a.Groups.Iterator(); !itr.Done(); {
		k, v := itr.Next()
		length := k.(int)
		ag := v.(*GuardedElems)

		bg, ok := b.Group(length)
		if !ok {
			continue
		}

		cond := s.And(ag.Guard, bg.Guard)
		for i := 0; i < length; i++ {
			eq, err := Eq(s, typ.Elem, ag.Elems[i], bg.Elems[i])
			if err != nil {
				return nil, err
			}
			cond = s.And(cond, eq)
		}
		acc = s.Or(acc, cond)
	}
	return acc, nil
}

// DefaultValue returns the value modeling the zero value of typ: false,
// zero, the empty string, a list known to be empty, an object of field
// defaults, or an empty map or set.
func DefaultValue(s Solver, typ Type) (Value, error) {
	switch typ := typ.(type) {
	case BoolType:
		return &BoolValue{Expr: s.False()}, nil

	case IntType:
		return &IntValue{Expr: s.BitvecConst(0, typ.Width)}, nil

	case CharType:
		return &CharValue{Expr: s.BitvecConst(0, Width32)}, nil

	case BigType:
		is, ok := s.(IntegerSolver)
		if !ok {
			return nil, unsupported(s, "bigint default")
		}
		return &BigValue{Expr: is.IntegerConst(0)}, nil

	case RealType:
		rs, ok := s.(RealSolver)
		if !ok {
			return nil, unsupported(s, "real default")
		}
		return &RealValue{Expr: rs.RealConst(0)}, nil

	case StringType:
		ss, ok := s.(SeqSolver)
		if !ok {
			return nil, unsupported(s, "string default")
		}
		return &SeqValue{Expr: ss.SeqConst("")}, nil

	case SeqType:
		ss, ok := s.(SeqSolver)
		if !ok {
			return nil, unsupported(s, "sequence default")
		}
		if isCharSeqType(typ) {
			return &SeqValue{Expr: ss.SeqConst("")}, nil
		}
		seq, err := ss.SeqEmpty(typ)
		if err != nil {
			return nil, err
		}
		return &SeqValue{Expr: seq}, nil

	case ObjectType:
		fields := immutable.NewSortedMap(nil)
		for _, f := range typ.Fields {
			fv, err := DefaultValue(s, f.Type)
			if err != nil {
				return nil, err
			}
			fields = fields.Set(f.Name, fv)
		}
		return &ObjectValue{Fields: fields}, nil

	case ListType:
		groups := immutable.NewSortedMap(nil)
		groups = groups.Set(0, &GuardedElems{Guard: s.True()})
		return &ListValue{Groups: groups}, nil

	case MapType:
		ms, ok := s.(MapSolver)
		if !ok {
			return nil, unsupported(s, "map default")
		}
		m, err := ms.MapEmpty(typ)
		if err != nil {
			return nil, err
		}
		return &MapValue{Expr: m}, nil

	case SetType:
		ss, ok := s.(SetSolver)
		if !ok {
			return nil, unsupported(s, "set default")
		}
		set, err := ss.SetEmpty(typ)
		if err != nil {
			return nil, err
		}
		return &SetValue{Expr: set}, nil

	case ConstMapType:
		return NewConstMapValue(), nil

	default:
		panic(fmt.Sprintf("zen.DefaultValue: invalid type: %s", typ))
	}
}
