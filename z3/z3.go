package z3

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	api "github.com/Z3Prover/z3/src/api/go"
	"github.com/benbjohnson/zen"
)

// Ensure solver implements interfaces.
var _ zen.Solver = (*Solver)(nil)
var _ zen.IntegerSolver = (*Solver)(nil)
var _ zen.RealSolver = (*Solver)(nil)
var _ zen.SeqSolver = (*Solver)(nil)
var _ zen.MapSolver = (*Solver)(nil)
var _ zen.SetSolver = (*Solver)(nil)
var _ zen.Optimizer = (*Solver)(nil)

// Solver represents a solver backed by an embedded Z3 context.
type Solver struct {
	ctx   *api.Context
	vars  map[*zen.ArbitraryExpr]*variable
	defs  []*api.Expr
	n     int
	stats Stats
}

// NewSolver returns a new instance of Solver.
func NewSolver() *Solver {
	return &Solver{
		ctx:  api.NewContext(),
		vars: make(map[*zen.ArbitraryExpr]*variable),
	}
}

// Name returns the backend name used in error messages.
func (s *Solver) Name() string { return "z3" }

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats { return s.stats }

// variable tracks the term created for an arbitrary value so that model
// readout can evaluate it later. Map variables hold an array pair
// instead of a single term.
type variable struct {
	node *zen.ArbitraryExpr
	expr *api.Expr
	m    *mapExpr
}

// symbol returns a fresh symbol name. Distinct arbitrary values may
// share a declared name, so every symbol carries an ordinal suffix.
func (s *Solver) symbol(prefix string) string {
	name := fmt.Sprintf("%s!%d", prefix, s.n)
	s.n++
	return name
}

// define synthesizes an if-then-else term. The binding exposes no ite
// constructor, so the result is a fresh constant pinned to one branch or
// the other by definitional constraints asserted at every check.
func (s *Solver) define(guard, a, b *api.Expr) *api.Expr {
	v := s.ctx.MkConst(s.ctx.MkStringSymbol(s.symbol("ite")), a.GetSort())
	s.defs = append(s.defs, s.ctx.MkImplies(guard, s.ctx.MkEq(v, a)))
	s.defs = append(s.defs, s.ctx.MkImplies(s.ctx.MkNot(guard), s.ctx.MkEq(v, b)))
	return v
}

func (s *Solver) True() zen.Bool  { return s.ctx.MkTrue() }
func (s *Solver) False() zen.Bool { return s.ctx.MkFalse() }

func (s *Solver) And(a, b zen.Bool) zen.Bool {
	return s.ctx.MkAnd(a.(*api.Expr), b.(*api.Expr))
}

func (s *Solver) Or(a, b zen.Bool) zen.Bool {
	return s.ctx.MkOr(a.(*api.Expr), b.(*api.Expr))
}

func (s *Solver) Not(a zen.Bool) zen.Bool {
	return s.ctx.MkNot(a.(*api.Expr))
}

func (s *Solver) Iff(a, b zen.Bool) zen.Bool {
	return s.ctx.MkIff(a.(*api.Expr), b.(*api.Expr))
}

func (s *Solver) IteBool(guard, a, b zen.Bool) zen.Bool {
	g := guard.(*api.Expr)
	return s.ctx.MkOr(
		s.ctx.MkAnd(g, a.(*api.Expr)),
		s.ctx.MkAnd(s.ctx.MkNot(g), b.(*api.Expr)),
	)
}

func (s *Solver) BoolVar(node *zen.ArbitraryExpr) (zen.Var, zen.Bool) {
	if v, ok := s.vars[node]; ok {
		return v, v.expr
	}
	v := &variable{node: node, expr: s.ctx.MkBoolConst(s.symbol(node.Name))}
	s.vars[node] = v
	return v, v.expr
}

func (s *Solver) BitvecConst(value uint64, width uint) zen.Bitvec {
	return s.ctx.MkBVFromInt64(int64(value), width)
}

func (s *Solver) BitvecVar(node *zen.ArbitraryExpr) (zen.Var, zen.Bitvec) {
	if v, ok := s.vars[node]; ok {
		return v, v.expr
	}
	width, ok := zen.BitSize(node.Type)
	assert(ok)
	v := &variable{node: node, expr: s.ctx.MkBVConst(s.symbol(node.Name), width)}
	s.vars[node] = v
	return v, v.expr
}

func (s *Solver) BitvecBinary(op zen.BinaryOp, a, b zen.Bitvec) (zen.Bitvec, error) {
	lhs, rhs := a.(*api.Expr), b.(*api.Expr)
	switch op {
	case zen.ADD:
		return s.ctx.MkBVAdd(lhs, rhs), nil
	case zen.SUB:
		return s.ctx.MkBVSub(lhs, rhs), nil
	case zen.MUL:
		return s.ctx.MkBVMul(lhs, rhs), nil
	case zen.UDIV:
		return s.ctx.MkBVUDiv(lhs, rhs), nil
	case zen.SDIV:
		return s.ctx.MkBVSDiv(lhs, rhs), nil
	case zen.UREM:
		return s.ctx.MkBVURem(lhs, rhs), nil
	case zen.SREM:
		return s.ctx.MkBVSRem(lhs, rhs), nil
	case zen.AND:
		return s.ctx.MkBVAnd(lhs, rhs), nil
	case zen.OR:
		return s.ctx.MkBVOr(lhs, rhs), nil
	case zen.XOR:
		return s.ctx.MkBVXor(lhs, rhs), nil
	case zen.SHL:
		return s.ctx.MkBVShl(lhs, rhs), nil
	case zen.LSHR:
		return s.ctx.MkBVLShr(lhs, rhs), nil
	case zen.ASHR:
		return s.ctx.MkBVAShr(lhs, rhs), nil
	default:
		panic(fmt.Sprintf("z3.Solver.BitvecBinary: invalid operation: %s", op))
	}
}

func (s *Solver) BitvecCompare(op zen.BinaryOp, a, b zen.Bitvec) (zen.Bool, error) {
	lhs, rhs := a.(*api.Expr), b.(*api.Expr)
	switch op {
	case zen.ULT:
		return s.ctx.MkBVULT(lhs, rhs), nil
	case zen.ULE:
		return s.ctx.MkBVULE(lhs, rhs), nil
	case zen.SLT:
		return s.ctx.MkBVSLT(lhs, rhs), nil
	case zen.SLE:
		return s.ctx.MkBVSLE(lhs, rhs), nil
	default:
		panic(fmt.Sprintf("z3.Solver.BitvecCompare: invalid operation: %s", op))
	}
}

func (s *Solver) BitvecEq(a, b zen.Bitvec) zen.Bool {
	return s.ctx.MkEq(a.(*api.Expr), b.(*api.Expr))
}

func (s *Solver) BitvecNot(a zen.Bitvec) zen.Bitvec {
	return s.ctx.MkBVNot(a.(*api.Expr))
}

func (s *Solver) BitvecResize(a zen.Bitvec, from, to uint, signed bool) zen.Bitvec {
	src := a.(*api.Expr)
	if to == from {
		return src
	} else if to < from {
		return s.ctx.MkExtract(to-1, 0, src)
	} else if signed {
		return s.ctx.MkSignExt(to-from, src)
	}
	return s.ctx.MkZeroExt(to-from, src)
}

func (s *Solver) IteBitvec(guard zen.Bool, a, b zen.Bitvec) zen.Bitvec {
	return s.define(guard.(*api.Expr), a.(*api.Expr), b.(*api.Expr))
}

// Satisfiable reports whether cond can be made true. Definitional
// constraints for synthesized terms are asserted alongside the
// condition; they never change satisfiability.
func (s *Solver) Satisfiable(cond zen.Bool) (zen.Model, bool, error) {
	t := time.Now()
	defer func() {
		s.stats.SolveN++
		s.stats.SolveTime += time.Since(t)
	}()

	solver := s.ctx.NewSolver()
	solver.Assert(cond.(*api.Expr))
	for _, def := range s.defs {
		solver.Assert(def)
	}

	switch solver.Check() {
	case api.Unsatisfiable:
		return nil, false, nil
	case api.Satisfiable:
		return solver.Model(), true, nil
	default:
		return nil, false, unknownError(solver.ReasonUnknown())
	}
}

// unknownError maps the reason an answer is unknown to a sentinel error.
func unknownError(reason string) error {
	switch {
	case strings.Contains(reason, "timeout"):
		return zen.ErrSolverTimeout
	case strings.Contains(reason, "canceled"):
		return zen.ErrSolverCanceled
	case strings.Contains(reason, "(resource limits reached)"):
		return zen.ErrSolverResourceLimit
	case strings.Contains(reason, "unknown"):
		return zen.ErrSolverUnknown
	default:
		return fmt.Errorf("z3: %s", reason)
	}
}

// Value extracts the assignment of a variable from a model. Fixed-width
// values parse from the numeral the model prints; values with no literal
// form are reported in their printed solver form.
func (s *Solver) Value(model zen.Model, v zen.Var) (zen.Literal, error) {
	m := model.(*api.Model)
	va := v.(*variable)

	if va.m != nil {
		present, err := s.eval(m, va.m.present)
		if err != nil {
			return nil, err
		}
		values, err := s.eval(m, va.m.values)
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("(map %s %s)", present, values), nil
	}

	str, err := s.eval(m, va.expr)
	if err != nil {
		return nil, err
	}

	switch typ := va.node.Type.(type) {
	case zen.BoolType:
		switch str {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, &Error{Op: "model eval", Message: fmt.Sprintf("malformed boolean: %s", str)}

	case zen.IntType:
		value, err := parseBitvec(str)
		if err != nil {
			return nil, &Error{Op: "model eval", Message: err.Error()}
		}
		if typ.Signed {
			return toSigned(value, typ.Width), nil
		}
		return value, nil

	case zen.CharType:
		value, err := parseBitvec(str)
		if err != nil {
			return nil, &Error{Op: "model eval", Message: err.Error()}
		}
		return int64(value), nil

	case zen.BigType:
		value, err := parseInteger(str)
		if err != nil {
			return nil, &Error{Op: "model eval", Message: err.Error()}
		}
		return value, nil

	case zen.RealType:
		return parseReal(str), nil

	case zen.StringType:
		return parseString(str)

	case zen.SeqType:
		if _, ok := typ.Elem.(zen.CharType); ok {
			return parseString(str)
		}
		return str, nil

	default:
		return str, nil
	}
}

func (s *Solver) eval(m *api.Model, expr *api.Expr) (string, error) {
	result, ok := m.Eval(expr, true)
	if !ok {
		return "", &Error{Op: "model eval", Message: expr.String()}
	}
	return result.String(), nil
}

func (s *Solver) IntegerConst(value int64) zen.Integer {
	return s.ctx.MkInt64(value, s.ctx.MkIntSort())
}

func (s *Solver) IntegerVar(node *zen.ArbitraryExpr) (zen.Var, zen.Integer) {
	if v, ok := s.vars[node]; ok {
		return v, v.expr
	}
	v := &variable{node: node, expr: s.ctx.MkIntConst(s.symbol(node.Name))}
	s.vars[node] = v
	return v, v.expr
}

// IntegerBinary applies an operator over unbounded integers. Division
// and remainder follow the solver's integer semantics; bitwise
// operators have no unbounded form and report an error.
func (s *Solver) IntegerBinary(op zen.BinaryOp, a, b zen.Integer) (zen.Integer, error) {
	lhs, rhs := a.(*api.Expr), b.(*api.Expr)
	switch op {
	case zen.ADD:
		return s.ctx.MkAdd(lhs, rhs), nil
	case zen.SUB:
		return s.ctx.MkSub(lhs, rhs), nil
	case zen.MUL:
		return s.ctx.MkMul(lhs, rhs), nil
	case zen.UDIV, zen.SDIV:
		return s.ctx.MkDiv(lhs, rhs), nil
	case zen.UREM, zen.SREM:
		return s.ctx.MkRem(lhs, rhs), nil
	default:
		return nil, unsupportedf("bigint operation %s", op)
	}
}

func (s *Solver) IntegerCompare(op zen.BinaryOp, a, b zen.Integer) (zen.Bool, error) {
	lhs, rhs := a.(*api.Expr), b.(*api.Expr)
	switch op {
	case zen.ULT, zen.SLT:
		return s.ctx.MkLt(lhs, rhs), nil
	case zen.ULE, zen.SLE:
		return s.ctx.MkLe(lhs, rhs), nil
	default:
		panic(fmt.Sprintf("z3.Solver.IntegerCompare: invalid operation: %s", op))
	}
}

func (s *Solver) IntegerEq(a, b zen.Integer) zen.Bool {
	return s.ctx.MkEq(a.(*api.Expr), b.(*api.Expr))
}

func (s *Solver) IteInteger(guard zen.Bool, a, b zen.Integer) zen.Integer {
	return s.define(guard.(*api.Expr), a.(*api.Expr), b.(*api.Expr))
}

func (s *Solver) RealConst(value int64) zen.Real {
	return s.ctx.MkInt64(value, s.ctx.MkRealSort())
}

func (s *Solver) RealVar(node *zen.ArbitraryExpr) (zen.Var, zen.Real) {
	if v, ok := s.vars[node]; ok {
		return v, v.expr
	}
	v := &variable{node: node, expr: s.ctx.MkRealConst(s.symbol(node.Name))}
	s.vars[node] = v
	return v, v.expr
}

func (s *Solver) RealBinary(op zen.BinaryOp, a, b zen.Real) (zen.Real, error) {
	lhs, rhs := a.(*api.Expr), b.(*api.Expr)
	switch op {
	case zen.ADD:
		return s.ctx.MkAdd(lhs, rhs), nil
	case zen.SUB:
		return s.ctx.MkSub(lhs, rhs), nil
	case zen.MUL:
		return s.ctx.MkMul(lhs, rhs), nil
	case zen.UDIV, zen.SDIV:
		return s.ctx.MkDiv(lhs, rhs), nil
	default:
		return nil, unsupportedf("real operation %s", op)
	}
}

func (s *Solver) RealCompare(op zen.BinaryOp, a, b zen.Real) (zen.Bool, error) {
	lhs, rhs := a.(*api.Expr), b.(*api.Expr)
	switch op {
	case zen.ULT, zen.SLT:
		return s.ctx.MkLt(lhs, rhs), nil
	case zen.ULE, zen.SLE:
		return s.ctx.MkLe(lhs, rhs), nil
	default:
		panic(fmt.Sprintf("z3.Solver.RealCompare: invalid operation: %s", op))
	}
}

func (s *Solver) RealEq(a, b zen.Real) zen.Bool {
	return s.ctx.MkEq(a.(*api.Expr), b.(*api.Expr))
}

func (s *Solver) IteReal(guard zen.Bool, a, b zen.Real) zen.Real {
	return s.define(guard.(*api.Expr), a.(*api.Expr), b.(*api.Expr))
}

func (s *Solver) SeqConst(value string) zen.Seq {
	return s.ctx.MkString(value)
}

func (s *Solver) SeqEmpty(typ zen.SeqType) (zen.Seq, error) {
	sort, err := s.seqSort(typ)
	if err != nil {
		return nil, err
	}
	return s.ctx.MkEmptySeq(sort), nil
}

func (s *Solver) SeqVar(node *zen.ArbitraryExpr) (zen.Var, zen.Seq, error) {
	if v, ok := s.vars[node]; ok {
		return v, v.expr, nil
	}

	var sort *api.Sort
	switch typ := node.Type.(type) {
	case zen.StringType:
		sort = s.ctx.MkStringSort()
	case zen.SeqType:
		var err error
		if sort, err = s.seqSort(typ); err != nil {
			return nil, nil, err
		}
	default:
		panic(fmt.Sprintf("z3.Solver.SeqVar: invalid type: %s", node.Type))
	}

	v := &variable{node: node, expr: s.ctx.MkConst(s.ctx.MkStringSymbol(s.symbol(node.Name)), sort)}
	s.vars[node] = v
	return v, v.expr, nil
}

func (s *Solver) SeqConcat(a, b zen.Seq) zen.Seq {
	return s.ctx.MkSeqConcat(a.(*api.Expr), b.(*api.Expr))
}

func (s *Solver) SeqLength(a zen.Seq) zen.Integer {
	return s.ctx.MkSeqLength(a.(*api.Expr))
}

func (s *Solver) SeqAt(a zen.Seq, index zen.Integer) zen.Seq {
	return s.ctx.MkSeqAt(a.(*api.Expr), index.(*api.Expr))
}

func (s *Solver) SeqContains(op zen.SeqContainsOp, seq, sub zen.Seq) zen.Bool {
	a, b := seq.(*api.Expr), sub.(*api.Expr)
	switch op {
	case zen.PREFIXOF:
		return s.ctx.MkSeqPrefix(b, a)
	case zen.SUFFIXOF:
		return s.ctx.MkSeqSuffix(b, a)
	case zen.CONTAINS:
		return s.ctx.MkSeqContains(a, b)
	default:
		panic(fmt.Sprintf("z3.Solver.SeqContains: invalid operation: %s", op))
	}
}

func (s *Solver) SeqIndexOf(seq, sub zen.Seq, offset zen.Integer) zen.Integer {
	return s.ctx.MkSeqIndexOf(seq.(*api.Expr), sub.(*api.Expr), offset.(*api.Expr))
}

func (s *Solver) SeqSlice(seq zen.Seq, offset, length zen.Integer) zen.Seq {
	return s.ctx.MkSeqExtract(seq.(*api.Expr), offset.(*api.Expr), length.(*api.Expr))
}

func (s *Solver) SeqReplaceFirst(seq, old, new zen.Seq) zen.Seq {
	return s.ctx.MkSeqReplace(seq.(*api.Expr), old.(*api.Expr), new.(*api.Expr))
}

func (s *Solver) SeqMatch(seq zen.Seq, regex *zen.Regex) (zen.Bool, error) {
	re, err := s.compileRegex(regex)
	if err != nil {
		return nil, err
	}
	return s.ctx.MkInRe(seq.(*api.Expr), re), nil
}

func (s *Solver) SeqEq(a, b zen.Seq) zen.Bool {
	return s.ctx.MkEq(a.(*api.Expr), b.(*api.Expr))
}

func (s *Solver) IteSeq(guard zen.Bool, a, b zen.Seq) zen.Seq {
	return s.define(guard.(*api.Expr), a.(*api.Expr), b.(*api.Expr))
}

// compileRegex lowers a regex to a term over the string sort.
func (s *Solver) compileRegex(re *zen.Regex) (*api.Expr, error) {
	switch re.Kind {
	case zen.RegexEmpty:
		return s.ctx.MkReEmpty(s.ctx.MkReSort(s.ctx.MkStringSort())), nil
	case zen.RegexEpsilon:
		return s.ctx.MkToRe(s.ctx.MkString("")), nil
	case zen.RegexRange:
		return s.ctx.MkReRange(s.ctx.MkString(string(re.Lo)), s.ctx.MkString(string(re.Hi))), nil
	case zen.RegexConcat:
		lhs, err := s.compileRegex(re.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := s.compileRegex(re.RHS)
		if err != nil {
			return nil, err
		}
		return s.ctx.MkReConcat(lhs, rhs), nil
	case zen.RegexUnion:
		lhs, err := s.compileRegex(re.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := s.compileRegex(re.RHS)
		if err != nil {
			return nil, err
		}
		return s.ctx.MkReUnion(lhs, rhs), nil
	case zen.RegexStar:
		sub, err := s.compileRegex(re.LHS)
		if err != nil {
			return nil, err
		}
		return s.ctx.MkReStar(sub), nil
	default:
		panic(fmt.Sprintf("z3.Solver.compileRegex: invalid regex kind: %d", re.Kind))
	}
}

// mapExpr represents a map as a pair of arrays: a presence array marking
// stored keys and a value array holding their values. Deleting restores
// the value slot to the type default so observationally equal maps
// compare equal as arrays.
type mapExpr struct {
	present *api.Expr
	values  *api.Expr
	def     *api.Expr
}

func (s *Solver) MapEmpty(typ zen.MapType) (zen.Array, error) {
	keySort, err := s.sortOf(typ.Key)
	if err != nil {
		return nil, err
	}
	def, err := s.defaultTerm(typ.Value)
	if err != nil {
		return nil, err
	}
	return &mapExpr{
		present: s.ctx.MkConstArray(keySort, s.ctx.MkFalse()),
		values:  s.ctx.MkConstArray(keySort, def),
		def:     def,
	}, nil
}

// MapVar creates a symbolic map. Absent keys are pinned to the value
// default so that array equality coincides with map equality.
func (s *Solver) MapVar(node *zen.ArbitraryExpr) (zen.Var, zen.Array, error) {
	if v, ok := s.vars[node]; ok {
		return v, v.m, nil
	}

	typ := node.Type.(zen.MapType)
	keySort, err := s.sortOf(typ.Key)
	if err != nil {
		return nil, nil, err
	}
	valueSort, err := s.sortOf(typ.Value)
	if err != nil {
		return nil, nil, err
	}
	def, err := s.defaultTerm(typ.Value)
	if err != nil {
		return nil, nil, err
	}

	boolSort := s.ctx.MkBoolSort()
	present := s.ctx.MkConst(s.ctx.MkStringSymbol(s.symbol(node.Name+"!present")), s.ctx.MkArraySort(keySort, boolSort))
	values := s.ctx.MkConst(s.ctx.MkStringSymbol(s.symbol(node.Name+"!values")), s.ctx.MkArraySort(keySort, valueSort))

	k := s.ctx.MkConst(s.ctx.MkStringSymbol(s.symbol("k")), keySort)
	body := s.ctx.MkImplies(
		s.ctx.MkNot(s.ctx.MkSelect(present, k)),
		s.ctx.MkEq(s.ctx.MkSelect(values, k), def),
	)
	s.defs = append(s.defs, s.ctx.MkForall([]*api.Expr{k}, body))

	v := &variable{node: node, m: &mapExpr{present: present, values: values, def: def}}
	s.vars[node] = v
	return v, v.m, nil
}

func (s *Solver) MapSet(m zen.Array, key, value zen.Term) zen.Array {
	me := m.(*mapExpr)
	k := key.(*api.Expr)
	return &mapExpr{
		present: s.ctx.MkStore(me.present, k, s.ctx.MkTrue()),
		values:  s.ctx.MkStore(me.values, k, value.(*api.Expr)),
		def:     me.def,
	}
}

func (s *Solver) MapDelete(m zen.Array, key zen.Term) zen.Array {
	me := m.(*mapExpr)
	k := key.(*api.Expr)
	return &mapExpr{
		present: s.ctx.MkStore(me.present, k, s.ctx.MkFalse()),
		values:  s.ctx.MkStore(me.values, k, me.def),
		def:     me.def,
	}
}

func (s *Solver) MapGet(m zen.Array, key zen.Term) (zen.Bool, zen.Term) {
	me := m.(*mapExpr)
	k := key.(*api.Expr)
	return s.ctx.MkSelect(me.present, k), s.ctx.MkSelect(me.values, k)
}

func (s *Solver) MapEq(a, b zen.Array) zen.Bool {
	am, bm := a.(*mapExpr), b.(*mapExpr)
	return s.ctx.MkAnd(
		s.ctx.MkEq(am.present, bm.present),
		s.ctx.MkEq(am.values, bm.values),
	)
}

func (s *Solver) IteMap(guard zen.Bool, a, b zen.Array) zen.Array {
	g := guard.(*api.Expr)
	am, bm := a.(*mapExpr), b.(*mapExpr)
	return &mapExpr{
		present: s.define(g, am.present, bm.present),
		values:  s.define(g, am.values, bm.values),
		def:     am.def,
	}
}

func (s *Solver) SetEmpty(typ zen.SetType) (zen.Set, error) {
	sort, err := s.setSort(typ)
	if err != nil {
		return nil, err
	}
	return s.ctx.MkFiniteSetEmpty(sort), nil
}

func (s *Solver) SetVar(node *zen.ArbitraryExpr) (zen.Var, zen.Set, error) {
	if v, ok := s.vars[node]; ok {
		return v, v.expr, nil
	}
	sort, err := s.setSort(node.Type.(zen.SetType))
	if err != nil {
		return nil, nil, err
	}
	v := &variable{node: node, expr: s.ctx.MkConst(s.ctx.MkStringSymbol(s.symbol(node.Name)), sort)}
	s.vars[node] = v
	return v, v.expr, nil
}

func (s *Solver) SetAdd(set zen.Set, elem zen.Term) zen.Set {
	return s.ctx.MkFiniteSetUnion(set.(*api.Expr), s.ctx.MkFiniteSetSingleton(elem.(*api.Expr)))
}

func (s *Solver) SetDelete(set zen.Set, elem zen.Term) zen.Set {
	return s.ctx.MkFiniteSetDifference(set.(*api.Expr), s.ctx.MkFiniteSetSingleton(elem.(*api.Expr)))
}

func (s *Solver) SetContains(set zen.Set, elem zen.Term) zen.Bool {
	return s.ctx.MkFiniteSetMember(elem.(*api.Expr), set.(*api.Expr))
}

func (s *Solver) SetCombine(op zen.SetOp, a, b zen.Set) zen.Set {
	lhs, rhs := a.(*api.Expr), b.(*api.Expr)
	switch op {
	case zen.UNION:
		return s.ctx.MkFiniteSetUnion(lhs, rhs)
	case zen.INTERSECT:
		return s.ctx.MkFiniteSetIntersect(lhs, rhs)
	case zen.DIFFERENCE:
		return s.ctx.MkFiniteSetDifference(lhs, rhs)
	default:
		panic(fmt.Sprintf("z3.Solver.SetCombine: invalid operation: %s", op))
	}
}

func (s *Solver) SetSize(set zen.Set) zen.Integer {
	return s.ctx.MkFiniteSetSize(set.(*api.Expr))
}

func (s *Solver) SetEq(a, b zen.Set) zen.Bool {
	return s.ctx.MkEq(a.(*api.Expr), b.(*api.Expr))
}

func (s *Solver) IteSet(guard zen.Bool, a, b zen.Set) zen.Set {
	return s.define(guard.(*api.Expr), a.(*api.Expr), b.(*api.Expr))
}

// Maximize finds the largest value of the objective subject to the
// constraint. Bitvector objectives are ordered by unsigned value.
func (s *Solver) Maximize(objective zen.Term, constraint zen.Bool) (zen.Literal, zen.Model, bool, error) {
	return s.optimize(objective, constraint, true)
}

// Minimize finds the smallest value of the objective subject to the
// constraint.
func (s *Solver) Minimize(objective zen.Term, constraint zen.Bool) (zen.Literal, zen.Model, bool, error) {
	return s.optimize(objective, constraint, false)
}

func (s *Solver) optimize(objective zen.Term, constraint zen.Bool, maximize bool) (zen.Literal, zen.Model, bool, error) {
	t := time.Now()
	defer func() {
		s.stats.SolveN++
		s.stats.SolveTime += time.Since(t)
	}()

	opt := s.ctx.NewOptimize()
	opt.Assert(constraint.(*api.Expr))
	for _, def := range s.defs {
		opt.Assert(def)
	}

	var handle uint
	if maximize {
		handle = opt.Maximize(objective.(*api.Expr))
	} else {
		handle = opt.Minimize(objective.(*api.Expr))
	}

	switch opt.Check() {
	case api.Unsatisfiable:
		return nil, nil, false, nil
	case api.Satisfiable:
	default:
		return nil, nil, false, unknownError(opt.ReasonUnknown())
	}

	var bound *api.Expr
	if maximize {
		bound = opt.GetUpper(handle)
	} else {
		bound = opt.GetLower(handle)
	}
	best, err := parseBound(bound.String())
	if err != nil {
		return nil, nil, false, err
	}
	return best, opt.Model(), true, nil
}

// parseBound parses the optimum reported for an objective.
func parseBound(str string) (zen.Literal, error) {
	switch {
	case strings.Contains(str, "oo"), strings.Contains(str, "epsilon"):
		return nil, &Error{Op: "optimize", Message: fmt.Sprintf("objective has no finite optimum: %s", str)}
	case strings.HasPrefix(str, "#"):
		return parseBitvec(str)
	case strings.ContainsAny(str, "./"):
		return parseReal(str), nil
	default:
		return parseInteger(str)
	}
}

// sortOf maps a type to its solver sort. Types the evaluator decomposes
// before they reach the backend have no sort.
func (s *Solver) sortOf(typ zen.Type) (*api.Sort, error) {
	switch typ := typ.(type) {
	case zen.BoolType:
		return s.ctx.MkBoolSort(), nil
	case zen.IntType:
		return s.ctx.MkBvSort(typ.Width), nil
	case zen.CharType:
		return s.ctx.MkBvSort(zen.Width32), nil
	case zen.BigType:
		return s.ctx.MkIntSort(), nil
	case zen.RealType:
		return s.ctx.MkRealSort(), nil
	case zen.StringType:
		return s.ctx.MkStringSort(), nil
	case zen.SeqType:
		return s.seqSort(typ)
	case zen.SetType:
		return s.setSort(typ)
	default:
		return nil, unsupportedf("%s sort", typ)
	}
}

func (s *Solver) seqSort(typ zen.SeqType) (*api.Sort, error) {
	if _, ok := typ.Elem.(zen.CharType); ok {
		return s.ctx.MkStringSort(), nil
	}
	elem, err := s.sortOf(typ.Elem)
	if err != nil {
		return nil, err
	}
	return s.ctx.MkSeqSort(elem), nil
}

func (s *Solver) setSort(typ zen.SetType) (*api.Sort, error) {
	elem, err := s.sortOf(typ.Elem)
	if err != nil {
		return nil, err
	}
	return s.ctx.MkFiniteSetSort(elem), nil
}

// defaultTerm returns the default value term for a type.
func (s *Solver) defaultTerm(typ zen.Type) (*api.Expr, error) {
	switch typ := typ.(type) {
	case zen.BoolType:
		return s.ctx.MkFalse(), nil
	case zen.IntType:
		return s.ctx.MkBVFromInt64(0, typ.Width), nil
	case zen.CharType:
		return s.ctx.MkBVFromInt64(0, zen.Width32), nil
	case zen.BigType:
		return s.ctx.MkInt64(0, s.ctx.MkIntSort()), nil
	case zen.RealType:
		return s.ctx.MkInt64(0, s.ctx.MkRealSort()), nil
	case zen.StringType:
		return s.ctx.MkString(""), nil
	case zen.SeqType:
		sort, err := s.seqSort(typ)
		if err != nil {
			return nil, err
		}
		return s.ctx.MkEmptySeq(sort), nil
	case zen.SetType:
		sort, err := s.setSort(typ)
		if err != nil {
			return nil, err
		}
		return s.ctx.MkFiniteSetEmpty(sort), nil
	default:
		return nil, unsupportedf("%s default", typ)
	}
}

// parseBitvec parses a bitvector numeral in its printed form.
func parseBitvec(str string) (uint64, error) {
	switch {
	case strings.HasPrefix(str, "#x"):
		return strconv.ParseUint(str[2:], 16, 64)
	case strings.HasPrefix(str, "#b"):
		return strconv.ParseUint(str[2:], 2, 64)
	default:
		return strconv.ParseUint(str, 10, 64)
	}
}

// parseInteger parses an integer numeral, including the parenthesized
// negative form.
func parseInteger(str string) (int64, error) {
	if strings.HasPrefix(str, "(- ") && strings.HasSuffix(str, ")") {
		v, err := strconv.ParseInt(strings.TrimSpace(str[3:len(str)-1]), 10, 64)
		return -v, err
	}
	return strconv.ParseInt(str, 10, 64)
}

// parseReal parses a real numeral into an integer literal when the value
// is integral. Non-integral values keep their printed form.
func parseReal(str string) zen.Literal {
	s := strings.TrimSpace(str)
	neg := false
	for strings.HasPrefix(s, "(- ") && strings.HasSuffix(s, ")") {
		neg = !neg
		s = strings.TrimSpace(s[3 : len(s)-1])
	}
	if i := strings.Index(s, "."); i != -1 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return str
	}
	if neg {
		v = -v
	}
	return v
}

// parseString parses a quoted string literal. Embedded quotes are
// doubled in the printed form; other escapes keep their printed form.
func parseString(str string) (string, error) {
	if len(str) < 2 || !strings.HasPrefix(str, `"`) || !strings.HasSuffix(str, `"`) {
		return "", &Error{Op: "model eval", Message: fmt.Sprintf("malformed string literal: %s", str)}
	}
	return strings.ReplaceAll(str[1:len(str)-1], `""`, `"`), nil
}

// toSigned reinterprets the low width bits of value as a signed integer.
func toSigned(value uint64, width uint) int64 {
	if width < 64 && value&(1<<(width-1)) != 0 {
		value |= ^uint64(0) << width
	}
	return int64(value)
}

func unsupportedf(format string, args ...interface{}) error {
	return fmt.Errorf("z3: %s: %w", fmt.Sprintf(format, args...), zen.ErrUnsupportedExpr)
}

func assert(condition bool) {
	if !condition {
		panic("assert failed")
	}
}

// Error represents an error from the Z3 backend.
type Error struct {
	Op      string
	Message string
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return fmt.Sprintf("z3: %s: %s", e.Op, e.Message)
}

// Stats represents statistics for the solver.
type Stats struct {
	SolveN    int
	SolveTime time.Duration
}
