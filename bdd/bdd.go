package bdd

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/zen"
	"github.com/dalzilio/rudd"
)

// Ensure solver implements interface.
var _ zen.Solver = (*Solver)(nil)

// Initial diagram sizing, following the library's own examples.
const (
	defaultNodesize  = 10000
	defaultCachesize = 5000
)

// Solver represents a solver that evaluates formulas as binary decision
// diagrams. Booleans and fixed-width integers have a diagram form;
// everything else reports an error wrapping zen.ErrUnsupportedExpr.
type Solver struct {
	bdd    rudd.Set
	levels map[*zen.ArbitraryExpr][]int
	vars   map[*zen.ArbitraryExpr]*variable
	next   *int
	stats  Stats
}

// NewSolver returns a solver whose variable order is planned from the
// combine analysis of expr. Arbitrary values outside the plan allocate
// levels after it in evaluation order.
func NewSolver(expr zen.Expr, env *zen.Env) (*Solver, error) {
	groups, err := zen.Interleave(expr, env)
	if err != nil {
		return nil, err
	}
	levels, total := planLevels(groups)

	varnum := total
	if varnum == 0 {
		varnum = 1
	}
	b, err := rudd.New(varnum, rudd.Nodesize(defaultNodesize), rudd.Cachesize(defaultCachesize))
	if err != nil {
		return nil, err
	}

	next := total
	return &Solver{
		bdd:    b,
		levels: levels,
		vars:   make(map[*zen.ArbitraryExpr]*variable),
		next:   &next,
	}, nil
}

// planLevels assigns decision levels to the bits of every arbitrary
// value. Same-width members of a combine group have their bits
// interleaved so related values stay adjacent in the order; booleans
// and lone members lay out sequentially.
func planLevels(groups [][]*zen.ArbitraryExpr) (map[*zen.ArbitraryExpr][]int, int) {
	levels := make(map[*zen.ArbitraryExpr][]int)
	next := 0

	for _, group := range groups {
		byWidth := make(map[uint][]*zen.ArbitraryExpr)
		var widths []uint
		for _, node := range group {
			width, ok := zen.BitSize(node.Type)
			assert(ok)
			if _, exists := byWidth[width]; !exists {
				widths = append(widths, width)
			}
			byWidth[width] = append(byWidth[width], node)
		}

		for _, width := range widths {
			members := byWidth[width]
			if width == 1 || len(members) == 1 {
				for _, node := range members {
					ls := make([]int, width)
					for i := range ls {
						ls[i] = next
						next++
					}
					levels[node] = ls
				}
				continue
			}

			// Bit i of member j lands at base + i*k + j.
			base, k := next, len(members)
			for j, node := range members {
				ls := make([]int, width)
				for i := uint(0); i < width; i++ {
					ls[i] = base + int(i)*k + j
				}
				levels[node] = ls
			}
			next += int(width) * k
		}
	}
	return levels, next
}

// Name returns the backend name used in error messages.
func (s *Solver) Name() string { return "bdd" }

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats { return s.stats }

// variable tracks the diagram bits allocated for an arbitrary value.
type variable struct {
	node   *zen.ArbitraryExpr
	levels []int
	bits   bitvec
}

// bitvec represents a fixed-width value as one diagram node per bit,
// least significant bit first.
type bitvec []rudd.Node

func (s *Solver) variable(node *zen.ArbitraryExpr) *variable {
	if v, ok := s.vars[node]; ok {
		return v
	}

	width, ok := zen.BitSize(node.Type)
	assert(ok)

	levels, ok := s.levels[node]
	if !ok {
		levels = make([]int, width)
		for i := range levels {
			levels[i] = *s.next
			*s.next++
		}
		if *s.next > s.bdd.Varnum() {
			assert(s.bdd.SetVarnum(*s.next) == nil)
		}
	}

	bits := make(bitvec, width)
	for i, level := range levels {
		bits[i] = s.bdd.Ithvar(level)
	}
	v := &variable{node: node, levels: levels, bits: bits}
	s.vars[node] = v
	return v
}

func (s *Solver) True() zen.Bool  { return s.bdd.True() }
func (s *Solver) False() zen.Bool { return s.bdd.False() }

func (s *Solver) And(a, b zen.Bool) zen.Bool {
	return s.bdd.And(a.(rudd.Node), b.(rudd.Node))
}

func (s *Solver) Or(a, b zen.Bool) zen.Bool {
	return s.bdd.Or(a.(rudd.Node), b.(rudd.Node))
}

func (s *Solver) Not(a zen.Bool) zen.Bool {
	return s.bdd.Not(a.(rudd.Node))
}

func (s *Solver) Iff(a, b zen.Bool) zen.Bool {
	return s.bdd.Equiv(a.(rudd.Node), b.(rudd.Node))
}

func (s *Solver) IteBool(guard, a, b zen.Bool) zen.Bool {
	return s.bdd.Ite(guard.(rudd.Node), a.(rudd.Node), b.(rudd.Node))
}

func (s *Solver) BoolVar(node *zen.ArbitraryExpr) (zen.Var, zen.Bool) {
	v := s.variable(node)
	return v, v.bits[0]
}

func (s *Solver) BitvecConst(value uint64, width uint) zen.Bitvec {
	bits := make(bitvec, width)
	for i := uint(0); i < width; i++ {
		if value&(1<<i) != 0 {
			bits[i] = s.bdd.True()
		} else {
			bits[i] = s.bdd.False()
		}
	}
	return bits
}

func (s *Solver) BitvecVar(node *zen.ArbitraryExpr) (zen.Var, zen.Bitvec) {
	v := s.variable(node)
	return v, v.bits
}

// BitvecBinary applies an arithmetic or bitwise operator bit by bit.
// Multiplication, division, and shifts by a symbolic amount have no
// tractable diagram form and report errors.
func (s *Solver) BitvecBinary(op zen.BinaryOp, a, b zen.Bitvec) (zen.Bitvec, error) {
	x, y := a.(bitvec), b.(bitvec)
	assert(len(x) == len(y))

	switch op {
	case zen.ADD:
		return s.add(x, y, s.bdd.False()), nil
	case zen.SUB:
		return s.add(x, s.complement(y), s.bdd.True()), nil
	case zen.AND:
		return s.bitwise(x, y, rudd.OPand), nil
	case zen.OR:
		return s.bitwise(x, y, rudd.OPor), nil
	case zen.XOR:
		return s.bitwise(x, y, rudd.OPxor), nil
	case zen.SHL, zen.LSHR, zen.ASHR:
		return s.shift(op, x, y)
	default:
		return nil, unsupportedf("%s operation", op)
	}
}

// add computes x + y + carry with a ripple carry chain.
func (s *Solver) add(x, y bitvec, carry rudd.Node) bitvec {
	out := make(bitvec, len(x))
	for i := range x {
		out[i] = s.bdd.Apply(s.bdd.Apply(x[i], y[i], rudd.OPxor), carry, rudd.OPxor)
		carry = s.bdd.Or(
			s.bdd.And(x[i], y[i]),
			s.bdd.And(carry, s.bdd.Or(x[i], y[i])),
		)
	}
	return out
}

func (s *Solver) complement(x bitvec) bitvec {
	out := make(bitvec, len(x))
	for i := range x {
		out[i] = s.bdd.Not(x[i])
	}
	return out
}

func (s *Solver) bitwise(x, y bitvec, op rudd.Operator) bitvec {
	out := make(bitvec, len(x))
	for i := range x {
		out[i] = s.bdd.Apply(x[i], y[i], op)
	}
	return out
}

// shift moves bits by a constant amount. The shift amount must denote a
// constant; the width of x bounds it.
func (s *Solver) shift(op zen.BinaryOp, x, y bitvec) (zen.Bitvec, error) {
	n, ok := constValue(y)
	if !ok {
		return nil, unsupportedf("symbolic shift")
	}
	width := uint64(len(x))
	if n > width {
		n = width
	}

	out := make(bitvec, len(x))
	switch op {
	case zen.SHL:
		for i := range out {
			if uint64(i) < n {
				out[i] = s.bdd.False()
			} else {
				out[i] = x[uint64(i)-n]
			}
		}
	case zen.LSHR:
		for i := range out {
			if uint64(i)+n < width {
				out[i] = x[uint64(i)+n]
			} else {
				out[i] = s.bdd.False()
			}
		}
	case zen.ASHR:
		sign := x[len(x)-1]
		for i := range out {
			if uint64(i)+n < width {
				out[i] = x[uint64(i)+n]
			} else {
				out[i] = sign
			}
		}
	}
	return out, nil
}

// constValue returns the constant a bitvec denotes when every bit is a
// constant node.
func constValue(x bitvec) (uint64, bool) {
	var value uint64
	for i, bit := range x {
		if bit == nil {
			return 0, false
		}
		switch *bit {
		case 0:
		case 1:
			value |= 1 << uint(i)
		default:
			return 0, false
		}
	}
	return value, true
}

func (s *Solver) BitvecCompare(op zen.BinaryOp, a, b zen.Bitvec) (zen.Bool, error) {
	x, y := a.(bitvec), b.(bitvec)
	assert(len(x) == len(y))

	switch op {
	case zen.ULT:
		return s.unsignedLess(x, y, false), nil
	case zen.ULE:
		return s.unsignedLess(x, y, true), nil
	case zen.SLT:
		return s.signedLess(x, y, false), nil
	case zen.SLE:
		return s.signedLess(x, y, true), nil
	default:
		panic(fmt.Sprintf("bdd.Solver.BitvecCompare: invalid operation: %s", op))
	}
}

// unsignedLess builds the comparison from the least significant bit up:
// at each bit the result is "strictly less here" or "equal here and
// less below".
func (s *Solver) unsignedLess(x, y bitvec, orEqual bool) rudd.Node {
	result := s.bdd.From(orEqual)
	for i := range x {
		result = s.bdd.Or(
			s.bdd.And(s.bdd.Not(x[i]), y[i]),
			s.bdd.And(s.bdd.Equiv(x[i], y[i]), result),
		)
	}
	return result
}

// signedLess reduces to the unsigned comparison by flipping sign bits.
func (s *Solver) signedLess(x, y bitvec, orEqual bool) rudd.Node {
	fx := make(bitvec, len(x))
	copy(fx, x)
	fy := make(bitvec, len(y))
	copy(fy, y)
	fx[len(fx)-1] = s.bdd.Not(fx[len(fx)-1])
	fy[len(fy)-1] = s.bdd.Not(fy[len(fy)-1])
	return s.unsignedLess(fx, fy, orEqual)
}

func (s *Solver) BitvecEq(a, b zen.Bitvec) zen.Bool {
	x, y := a.(bitvec), b.(bitvec)
	assert(len(x) == len(y))

	result := s.bdd.True()
	for i := range x {
		result = s.bdd.And(result, s.bdd.Equiv(x[i], y[i]))
	}
	return result
}

func (s *Solver) BitvecNot(a zen.Bitvec) zen.Bitvec {
	return s.complement(a.(bitvec))
}

func (s *Solver) BitvecResize(a zen.Bitvec, from, to uint, signed bool) zen.Bitvec {
	x := a.(bitvec)
	if to <= from {
		out := make(bitvec, to)
		copy(out, x[:to])
		return out
	}

	out := make(bitvec, to)
	copy(out, x)
	fill := s.bdd.False()
	if signed {
		fill = x[len(x)-1]
	}
	for i := from; i < to; i++ {
		out[i] = fill
	}
	return out
}

func (s *Solver) IteBitvec(guard zen.Bool, a, b zen.Bitvec) zen.Bitvec {
	g := guard.(rudd.Node)
	x, y := a.(bitvec), b.(bitvec)
	assert(len(x) == len(y))

	out := make(bitvec, len(x))
	for i := range x {
		out[i] = s.bdd.Ite(g, x[i], y[i])
	}
	return out
}

// model is one satisfying assignment, keyed by decision level. Levels a
// formula does not mention read as false.
type model map[int]bool

var errFound = errors.New("found")

// Satisfiable reports whether cond has a satisfying assignment. The
// check is a constant-time comparison against the false node; finding a
// model walks the first satisfying path.
func (s *Solver) Satisfiable(cond zen.Bool) (zen.Model, bool, error) {
	t := time.Now()
	defer func() {
		s.stats.SolveN++
		s.stats.SolveTime += time.Since(t)
	}()

	n := cond.(rudd.Node)
	if s.bdd.Equal(n, s.bdd.False()) {
		return nil, false, nil
	}

	m := make(model)
	if err := s.bdd.Allsat(n, func(assignment []int) error {
		for level, bit := range assignment {
			m[level] = bit == 1
		}
		return errFound
	}); err != nil && err != errFound {
		return nil, false, err
	}
	return m, true, nil
}

// Value extracts the assignment of a variable from a model.
func (s *Solver) Value(mo zen.Model, v zen.Var) (zen.Literal, error) {
	m := mo.(model)
	va := v.(*variable)

	var value uint64
	for i, level := range va.levels {
		if m[level] {
			value |= 1 << uint(i)
		}
	}
	return literalOf(value, va.node.Type), nil
}

// literalOf converts raw bits to the literal form of a type.
func literalOf(value uint64, typ zen.Type) zen.Literal {
	switch typ := typ.(type) {
	case zen.BoolType:
		return value != 0
	case zen.IntType:
		if typ.Signed {
			return toSigned(value, typ.Width)
		}
		return value
	case zen.CharType:
		return int64(value)
	default:
		panic(fmt.Sprintf("bdd: type has no literal form: %s", typ))
	}
}

// toSigned reinterprets the low width bits of value as a signed integer.
func toSigned(value uint64, width uint) int64 {
	if width < 64 && value&(1<<(width-1)) != 0 {
		value |= ^uint64(0) << width
	}
	return int64(value)
}

func unsupportedf(format string, args ...interface{}) error {
	return fmt.Errorf("bdd: %s: %w", fmt.Sprintf(format, args...), zen.ErrUnsupportedExpr)
}

func assert(condition bool) {
	if !condition {
		panic("assert failed")
	}
}

// Stats represents statistics for the solver.
type Stats struct {
	SolveN    int
	SolveTime time.Duration
}
