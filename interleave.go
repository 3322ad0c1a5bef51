package zen

import (
	"fmt"
	"sort"
)

// Interleave computes which arbitrary values should have their decision
// diagram variables interleaved. Two values land in the same group when
// they meet in an operation whose diagram size depends on variable
// ordering: addition, subtraction, multiplication, bitwise and, bitwise
// exclusive or, equality, ordered comparison, and sequence concatenation.
// Groups whose members are all boolean are not formed, since single-bit
// values gain nothing from interleaving.
//
// Groups are returned in first-encounter order of their members. The
// analysis is memoized by node identity and shares one pass with the
// structure of the DAG. Constructs with no fixed-width encoding return an
// error wrapping ErrUnsupportedExpr.
func Interleave(expr Expr, env *Env) ([][]*ArbitraryExpr, error) {
	if env == nil {
		env = NewEnv()
	}
	ix := &interleaver{
		env:   env,
		sets:  newDisjointSet(),
		cache: make(map[Expr]interleaving),
	}
	if _, err := ix.analyze(expr); err != nil {
		return nil, err
	}
	return ix.sets.groups(), nil
}

// interleaving is the abstract result of analyzing one expression: either
// a flat set of arbitrary values or a per-field projection for objects.
type interleaving interface {
	interleaving()
}

func (varSet) interleaving()    {}
func (fieldSets) interleaving() {}

type varSet map[*ArbitraryExpr]struct{}

type fieldSets map[string]interleaving

type interleaver struct {
	env   *Env
	sets  *disjointSet
	cache map[Expr]interleaving
}

func (ix *interleaver) analyze(expr Expr) (interleaving, error) {
	if iv, ok := ix.cache[expr]; ok {
		return iv, nil
	}
	iv, err := ix.analyzeExpr(expr)
	if err != nil {
		return nil, err
	}
	ix.cache[expr] = iv
	return iv, nil
}

func (ix *interleaver) analyzeExpr(expr Expr) (interleaving, error) {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return varSet{}, nil

	case *ArbitraryExpr:
		if _, ok := BitSize(expr.Type); !ok {
			return nil, ddUnsupported("arbitrary %s value", expr.Type)
		}
		ix.sets.add(expr)
		return varSet{expr: struct{}{}}, nil

	case *ParamExpr:
		bound, ok := ix.env.expr(expr)
		assert(ok, "interleave: unbound parameter: %s", expr)
		return ix.analyze(bound)

	case *NotExpr:
		return ix.analyze(expr.Input)

	case *BinaryExpr:
		a, err := ix.analyze(expr.LHS)
		if err != nil {
			return nil, err
		}
		b, err := ix.analyze(expr.RHS)
		if err != nil {
			return nil, err
		}
		if combiningOp(expr.Op) {
			ix.combine(a, b)
		}
		return ix.union(a, b), nil

	case *EqExpr:
		a, err := ix.analyze(expr.LHS)
		if err != nil {
			return nil, err
		}
		b, err := ix.analyze(expr.RHS)
		if err != nil {
			return nil, err
		}
		ix.combine(a, b)
		return ix.union(a, b), nil

	case *IfExpr:
		// The guard is analyzed for its own combinations but does not
		// combine with the branches; the branches union into the result.
		if _, err := ix.analyze(expr.Cond); err != nil {
			return nil, err
		}
		a, err := ix.analyze(expr.True)
		if err != nil {
			return nil, err
		}
		b, err := ix.analyze(expr.False)
		if err != nil {
			return nil, err
		}
		return ix.union(a, b), nil

	case *GetFieldExpr:
		r, err := ix.analyze(expr.Record)
		if err != nil {
			return nil, err
		}
		if fs, ok := r.(fieldSets); ok {
			if iv, ok := fs[expr.Field]; ok {
				return iv, nil
			}
			return varSet{}, nil
		}
		return r, nil

	case *WithFieldExpr:
		r, err := ix.analyze(expr.Record)
		if err != nil {
			return nil, err
		}
		v, err := ix.analyze(expr.Value)
		if err != nil {
			return nil, err
		}
		if fs, ok := r.(fieldSets); ok {
			out := make(fieldSets, len(fs))
			for name, iv := range fs {
				out[name] = iv
			}
			out[expr.Field] = v
			return out, nil
		}
		return ix.union(r, v), nil

	case *CreateObjectExpr:
		fs := make(fieldSets, len(expr.Fields))
		for i, f := range expr.Type.Fields {
			iv, err := ix.analyze(expr.Fields[i])
			if err != nil {
				return nil, err
			}
			fs[f.Name] = iv
		}
		return fs, nil

	case *ListEmptyExpr:
		return varSet{}, nil

	case *ListAddFrontExpr:
		a, err := ix.analyze(expr.List)
		if err != nil {
			return nil, err
		}
		b, err := ix.analyze(expr.Elem)
		if err != nil {
			return nil, err
		}
		return ix.union(a, b), nil

	case *ListCaseExpr:
		// Only the empty continuation is visible here; the cons
		// continuation is instantiated during evaluation, after
		// variable layout is fixed, so its combinations go unseen.
		a, err := ix.analyze(expr.List)
		if err != nil {
			return nil, err
		}
		b, err := ix.analyze(expr.Empty)
		if err != nil {
			return nil, err
		}
		return ix.union(a, b), nil

	case *ConstMapSetExpr:
		a, err := ix.analyze(expr.Map)
		if err != nil {
			return nil, err
		}
		b, err := ix.analyze(expr.Value)
		if err != nil {
			return nil, err
		}
		return ix.union(a, b), nil

	case *ConstMapDeleteExpr:
		return ix.analyze(expr.Map)

	case *ConstMapGetExpr:
		return ix.analyze(expr.Map)

	case *SeqConcatExpr:
		a, err := ix.analyze(expr.LHS)
		if err != nil {
			return nil, err
		}
		b, err := ix.analyze(expr.RHS)
		if err != nil {
			return nil, err
		}
		ix.combine(a, b)
		return ix.union(a, b), nil

	case *CastExpr:
		return ix.analyze(expr.Input)

	case *MapEmptyExpr, *MapSetExpr, *MapDeleteExpr, *MapGetExpr:
		return nil, ddUnsupported("map expression")

	case *SetEmptyExpr, *SetAddExpr, *SetDeleteExpr, *SetContainsExpr, *SetCombineExpr, *SetSizeExpr:
		return nil, ddUnsupported("set expression")

	case *SeqLengthExpr, *SeqAtExpr, *SeqContainsExpr, *SeqIndexOfExpr, *SeqSliceExpr, *SeqReplaceFirstExpr, *SeqMatchExpr:
		return nil, ddUnsupported("sequence expression")

	default:
		panic(fmt.Sprintf("zen.Interleave: invalid expression type: %T", expr))
	}
}

func combiningOp(op BinaryOp) bool {
	switch op {
	case ADD, SUB, MUL, AND, XOR:
		return true
	}
	return op.IsCompare()
}

func ddUnsupported(format string, args ...interface{}) error {
	return fmt.Errorf("decision diagram: %s: %w", fmt.Sprintf(format, args...), ErrUnsupportedExpr)
}

// combine merges the interleave classes of all values on both sides.
// Nothing is merged when either side is empty or holds only booleans.
func (ix *interleaver) combine(a, b interleaving) {
	va, vb := ix.flatten(a), ix.flatten(b)
	if len(va) == 0 || len(vb) == 0 {
		return
	}
	if allBool(va) || allBool(vb) {
		return
	}

	base := ix.sets.add(va[0])
	for _, node := range va[1:] {
		ix.sets.union(base, ix.sets.add(node))
	}
	for _, node := range vb {
		ix.sets.union(base, ix.sets.add(node))
	}
}

// union merges two analysis results without changing interleave classes.
// Field structure survives only when both sides have it.
func (ix *interleaver) union(a, b interleaving) interleaving {
	if av, ok := a.(varSet); ok && len(av) == 0 {
		return b
	}
	if bv, ok := b.(varSet); ok && len(bv) == 0 {
		return a
	}

	afs, aok := a.(fieldSets)
	bfs, bok := b.(fieldSets)
	if aok && bok {
		out := make(fieldSets, len(afs))
		for name, iv := range afs {
			out[name] = iv
		}
		for name, iv := range bfs {
			if prev, ok := out[name]; ok {
				out[name] = ix.union(prev, iv)
			} else {
				out[name] = iv
			}
		}
		return out
	}

	out := make(varSet)
	for _, node := range ix.flatten(a) {
		out[node] = struct{}{}
	}
	for _, node := range ix.flatten(b) {
		out[node] = struct{}{}
	}
	return out
}

// flatten collects the distinct arbitrary values of an analysis result,
// ordered by first encounter.
func (ix *interleaver) flatten(iv interleaving) []*ArbitraryExpr {
	seen := make(map[*ArbitraryExpr]struct{})
	var nodes []*ArbitraryExpr

	var collect func(iv interleaving)
	collect = func(iv interleaving) {
		switch iv := iv.(type) {
		case varSet:
			for node := range iv {
				if _, ok := seen[node]; !ok {
					seen[node] = struct{}{}
					nodes = append(nodes, node)
				}
			}
		case fieldSets:
			for _, sub := range iv {
				collect(sub)
			}
		}
	}
	collect(iv)

	sort.Slice(nodes, func(i, j int) bool {
		return ix.sets.indexOf(nodes[i]) < ix.sets.indexOf(nodes[j])
	})
	return nodes
}

func allBool(nodes []*ArbitraryExpr) bool {
	for _, node := range nodes {
		if !isBoolType(node.Type) {
			return false
		}
	}
	return true
}

// disjointSet is a union-find structure over arbitrary expressions,
// backed by index arrays rather than per-node link fields.
type disjointSet struct {
	parent []int
	rank   []int
	nodes  []*ArbitraryExpr
	index  map[*ArbitraryExpr]int
}

func newDisjointSet() *disjointSet {
	return &disjointSet{index: make(map[*ArbitraryExpr]int)}
}

// add registers a node and returns its index. Adding a node twice
// returns the original index.
func (s *disjointSet) add(node *ArbitraryExpr) int {
	if i, ok := s.index[node]; ok {
		return i
	}
	i := len(s.nodes)
	s.nodes = append(s.nodes, node)
	s.parent = append(s.parent, i)
	s.rank = append(s.rank, 0)
	s.index[node] = i
	return i
}

func (s *disjointSet) indexOf(node *ArbitraryExpr) int {
	i, ok := s.index[node]
	assert(ok, "disjoint set: unregistered node: %s", node)
	return i
}

func (s *disjointSet) find(i int) int {
	for s.parent[i] != i {
		s.parent[i] = s.parent[s.parent[i]]
		i = s.parent[i]
	}
	return i
}

func (s *disjointSet) union(i, j int) {
	ri, rj := s.find(i), s.find(j)
	if ri == rj {
		return
	}
	if s.rank[ri] < s.rank[rj] {
		ri, rj = rj, ri
	}
	s.parent[rj] = ri
	if s.rank[ri] == s.rank[rj] {
		s.rank[ri]++
	}
}

// groups returns the equivalence classes ordered by the first-registered
// member of each class, with members in registration order.
func (s *disjointSet) groups() [][]*ArbitraryExpr {
	members := make(map[int][]*ArbitraryExpr)
	var order []int
	for i, node := range s.nodes {
		root := s.find(i)
		if _, ok := members[root]; !ok {
			order = append(order, root)
		}
		members[root] = append(members[root], node)
	}

	out := make([][]*ArbitraryExpr, 0, len(order))
	for _, root := range order {
		out = append(out, members[root])
	}
	return out
}
