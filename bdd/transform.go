package bdd

import (
	"github.com/benbjohnson/zen"
	"github.com/dalzilio/rudd"
)

// Manager owns a diagram shared by state sets and transformers so their
// nodes can combine. Each state type receives one canonical block of
// levels for set elements and one auxiliary block for relation results,
// allocated pairwise so a state bit sits next to its next-state bit.
// Managers are single-threaded and append only.
type Manager struct {
	bdd    rudd.Set
	levels map[*zen.ArbitraryExpr][]int
	types  map[string]*stateSpace
	next   int
}

// NewManager returns a manager with an empty diagram.
func NewManager() (*Manager, error) {
	b, err := rudd.New(1, rudd.Nodesize(defaultNodesize), rudd.Cachesize(defaultCachesize))
	if err != nil {
		return nil, err
	}
	return &Manager{
		bdd:    b,
		levels: make(map[*zen.ArbitraryExpr][]int),
		types:  make(map[string]*stateSpace),
	}, nil
}

// Solver returns a solver sharing the manager's diagram and layout.
// Use one at a time; fresh allocations bump the shared level counter.
func (m *Manager) Solver() *Solver {
	return &Solver{
		bdd:    m.bdd,
		levels: m.levels,
		vars:   make(map[*zen.ArbitraryExpr]*variable),
		next:   &m.next,
	}
}

// stateSpace is the canonical layout for one state type: an expression
// shaped like the type over canonical leaves, a second one over
// auxiliary leaves, and the cubes and renaming node between the blocks.
type stateSpace struct {
	typ     zen.Type
	expr    zen.Expr
	auxExpr zen.Expr
	vars    []*zen.ArbitraryExpr
	cube    rudd.Node
	auxCube rudd.Node
	shift   rudd.Node
}

// space returns the canonical layout for a type, building it on first
// use. Layouts are cached by the type's printed form.
func (m *Manager) space(typ zen.Type) (*stateSpace, error) {
	key := typ.String()
	if sp, ok := m.types[key]; ok {
		return sp, nil
	}

	expr, leaves, err := expand(typ, "")
	if err != nil {
		return nil, err
	}
	auxExpr, auxLeaves, err := expand(typ, "")
	if err != nil {
		return nil, err
	}

	var canonical, auxiliary []int
	for i, leaf := range leaves {
		width, ok := zen.BitSize(leaf.Type)
		assert(ok)

		ls := make([]int, width)
		als := make([]int, width)
		for bit := range ls {
			ls[bit] = m.next
			als[bit] = m.next + 1
			m.next += 2
		}
		m.levels[leaf] = ls
		m.levels[auxLeaves[i]] = als
		canonical = append(canonical, ls...)
		auxiliary = append(auxiliary, als...)
	}
	if m.next > m.bdd.Varnum() {
		assert(m.bdd.SetVarnum(m.next) == nil)
	}

	shift := m.bdd.True()
	for i, level := range canonical {
		shift = m.bdd.And(shift, m.bdd.Equiv(m.bdd.Ithvar(level), m.bdd.Ithvar(auxiliary[i])))
	}

	sp := &stateSpace{
		typ:     typ,
		expr:    expr,
		auxExpr: auxExpr,
		vars:    leaves,
		cube:    m.bdd.Makeset(canonical),
		auxCube: m.bdd.Makeset(auxiliary),
		shift:   shift,
	}
	m.types[key] = sp
	return sp, nil
}

// expand builds an expression shaped like typ out of fresh arbitrary
// leaves, one per fixed-width component. Leaves are named by field path;
// a scalar state has the empty path.
func expand(typ zen.Type, path string) (zen.Expr, []*zen.ArbitraryExpr, error) {
	switch typ := typ.(type) {
	case zen.ObjectType:
		fields := make(map[string]zen.Expr, len(typ.Fields))
		var leaves []*zen.ArbitraryExpr
		for _, field := range typ.Fields {
			sub, subLeaves, err := expand(field.Type, fieldPath(path, field.Name))
			if err != nil {
				return nil, nil, err
			}
			fields[field.Name] = sub
			leaves = append(leaves, subLeaves...)
		}
		return zen.NewCreateObjectExpr(typ, fields), leaves, nil

	default:
		if _, ok := zen.BitSize(typ); !ok {
			return nil, nil, unsupportedf("%s state", typ)
		}
		leaf := zen.NewArbitraryExpr(typ, path)
		return leaf, []*zen.ArbitraryExpr{leaf}, nil
	}
}

func fieldPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}

// evaluate runs an expression through a manager-backed solver and
// returns its diagram node. The expression must be boolean.
func (m *Manager) evaluate(expr zen.Expr) (rudd.Node, error) {
	assert(zen.TypesEqual(zen.TypeOf(expr), zen.BoolType{}))
	ev := zen.NewEvaluator(m.Solver(), nil)
	v, err := ev.Evaluate(expr)
	if err != nil {
		return nil, err
	}
	return v.(*zen.BoolValue).Expr.(rudd.Node), nil
}

// StateSet represents a set of states of one type as a diagram over the
// type's canonical variables.
type StateSet struct {
	m     *Manager
	space *stateSpace
	node  rudd.Node
}

// StateSet builds the set of states satisfying a predicate.
func (m *Manager) StateSet(typ zen.Type, pred func(zen.Expr) zen.Expr) (*StateSet, error) {
	sp, err := m.space(typ)
	if err != nil {
		return nil, err
	}
	node, err := m.evaluate(pred(sp.expr))
	if err != nil {
		return nil, err
	}
	return &StateSet{m: m, space: sp, node: node}, nil
}

// EmptySet returns the set containing no states.
func (m *Manager) EmptySet(typ zen.Type) (*StateSet, error) {
	sp, err := m.space(typ)
	if err != nil {
		return nil, err
	}
	return &StateSet{m: m, space: sp, node: m.bdd.False()}, nil
}

// FullSet returns the set containing every state.
func (m *Manager) FullSet(typ zen.Type) (*StateSet, error) {
	sp, err := m.space(typ)
	if err != nil {
		return nil, err
	}
	return &StateSet{m: m, space: sp, node: m.bdd.True()}, nil
}

// Type returns the state type of the set.
func (ss *StateSet) Type() zen.Type { return ss.space.typ }

// Union returns the states in either set.
func (ss *StateSet) Union(other *StateSet) *StateSet {
	assert(ss.m == other.m && ss.space == other.space)
	return &StateSet{m: ss.m, space: ss.space, node: ss.m.bdd.Or(ss.node, other.node)}
}

// Intersect returns the states in both sets.
func (ss *StateSet) Intersect(other *StateSet) *StateSet {
	assert(ss.m == other.m && ss.space == other.space)
	return &StateSet{m: ss.m, space: ss.space, node: ss.m.bdd.And(ss.node, other.node)}
}

// Negate returns the states not in the set.
func (ss *StateSet) Negate() *StateSet {
	return &StateSet{m: ss.m, space: ss.space, node: ss.m.bdd.Not(ss.node)}
}

// IsEmpty reports whether the set contains no states.
func (ss *StateSet) IsEmpty() bool {
	return ss.m.bdd.Equal(ss.node, ss.m.bdd.False())
}

// IsFull reports whether the set contains every state.
func (ss *StateSet) IsFull() bool {
	return ss.m.bdd.Equal(ss.node, ss.m.bdd.True())
}

// Equals reports whether two sets contain the same states.
func (ss *StateSet) Equals(other *StateSet) bool {
	assert(ss.m == other.m && ss.space == other.space)
	return ss.m.bdd.Equal(ss.node, other.node)
}

// SubsetOf reports whether every state of the set is in other.
func (ss *StateSet) SubsetOf(other *StateSet) bool {
	assert(ss.m == other.m && ss.space == other.space)
	return ss.m.bdd.Equal(ss.m.bdd.Imp(ss.node, other.node), ss.m.bdd.True())
}

// Element returns one state in the set, keyed by field path; a scalar
// state uses the empty path. The second return is false when the set is
// empty.
func (ss *StateSet) Element() (map[string]zen.Literal, bool, error) {
	if ss.IsEmpty() {
		return nil, false, nil
	}

	assignment := make(map[int]bool)
	if err := ss.m.bdd.Allsat(ss.node, func(bits []int) error {
		for level, bit := range bits {
			assignment[level] = bit == 1
		}
		return errFound
	}); err != nil && err != errFound {
		return nil, false, err
	}

	out := make(map[string]zen.Literal, len(ss.space.vars))
	for _, leaf := range ss.space.vars {
		var value uint64
		for i, level := range ss.m.levels[leaf] {
			if assignment[level] {
				value |= 1 << uint(i)
			}
		}
		out[leaf.Name] = literalOf(value, leaf.Type)
	}
	return out, true, nil
}

// Transformer represents a relation between two state types, built from
// a symbolic function. Forward application computes the image of a set
// of inputs; backwards application computes the preimage of a set of
// outputs.
type Transformer struct {
	m    *Manager
	in   *stateSpace
	out  *stateSpace
	node rudd.Node
}

// NewTransformer builds the relation f(in) == out as a diagram over the
// input type's canonical block and the output type's auxiliary block.
func NewTransformer(m *Manager, inType, outType zen.Type, f func(zen.Expr) zen.Expr) (*Transformer, error) {
	in, err := m.space(inType)
	if err != nil {
		return nil, err
	}
	out, err := m.space(outType)
	if err != nil {
		return nil, err
	}
	node, err := m.evaluate(zen.NewEqExpr(f(in.expr), out.auxExpr))
	if err != nil {
		return nil, err
	}
	return &Transformer{m: m, in: in, out: out, node: node}, nil
}

// TransformForward returns the image of src under the relation.
func (t *Transformer) TransformForward(src *StateSet) *StateSet {
	assert(src.m == t.m && src.space == t.in)
	image := t.m.bdd.AppEx(t.node, src.node, rudd.OPand, t.in.cube)
	node := t.m.bdd.AppEx(image, t.out.shift, rudd.OPand, t.out.auxCube)
	return &StateSet{m: t.m, space: t.out, node: node}
}

// TransformBackwards returns the preimage of dst under the relation.
func (t *Transformer) TransformBackwards(dst *StateSet) *StateSet {
	assert(dst.m == t.m && dst.space == t.out)
	lifted := t.m.bdd.AppEx(dst.node, t.out.shift, rudd.OPand, t.out.cube)
	node := t.m.bdd.AppEx(t.node, lifted, rudd.OPand, t.out.auxCube)
	return &StateSet{m: t.m, space: t.in, node: node}
}

// InputSet returns the inputs related to some output satisfying the
// predicate. The predicate sees the input and output state; nil means
// no constraint.
func (t *Transformer) InputSet(pred func(in, out zen.Expr) zen.Expr) (*StateSet, error) {
	constraint, err := t.constraint(pred)
	if err != nil {
		return nil, err
	}
	node := t.m.bdd.AppEx(t.node, constraint, rudd.OPand, t.out.auxCube)
	return &StateSet{m: t.m, space: t.in, node: node}, nil
}

// OutputSet returns the outputs related to some input satisfying the
// predicate.
func (t *Transformer) OutputSet(pred func(in, out zen.Expr) zen.Expr) (*StateSet, error) {
	constraint, err := t.constraint(pred)
	if err != nil {
		return nil, err
	}
	image := t.m.bdd.AppEx(t.node, constraint, rudd.OPand, t.in.cube)
	node := t.m.bdd.AppEx(image, t.out.shift, rudd.OPand, t.out.auxCube)
	return &StateSet{m: t.m, space: t.out, node: node}, nil
}

func (t *Transformer) constraint(pred func(in, out zen.Expr) zen.Expr) (rudd.Node, error) {
	if pred == nil {
		return t.m.bdd.True(), nil
	}
	return t.m.evaluate(pred(t.in.expr, t.out.auxExpr))
}
