package zen

import (
	"fmt"

	"github.com/benbjohnson/immutable"
)

// Env holds bindings for parameters. Callers bind expressions for the
// parameters of a function under analysis; evaluation binds values for
// the parameters it introduces during list case analysis. Bindings are
// never replaced, so memoization by node identity stays sound.
type Env struct {
	values map[*ParamExpr]Value
	exprs  map[*ParamExpr]Expr
}

// NewEnv returns an empty environment.
func NewEnv() *Env {
	return &Env{
		values: make(map[*ParamExpr]Value),
		exprs:  make(map[*ParamExpr]Expr),
	}
}

// BindExpr binds a parameter to an expression. Binding an already bound
// parameter is a programming error.
func (e *Env) BindExpr(param *ParamExpr, expr Expr) {
	assert(TypesEqual(param.Type, TypeOf(expr)), "bind: type mismatch: %s != %s", param.Type, TypeOf(expr))
	e.assertUnbound(param)
	e.exprs[param] = expr
}

func (e *Env) bindValue(param *ParamExpr, value Value) {
	e.assertUnbound(param)
	e.values[param] = value
}

func (e *Env) assertUnbound(param *ParamExpr) {
	_, ok := e.values[param]
	assert(!ok, "bind: parameter already bound: %s", param)
	_, ok = e.exprs[param]
	assert(!ok, "bind: parameter already bound: %s", param)
}

// expr returns the expression bound to a parameter, if any.
func (e *Env) expr(param *ParamExpr) (Expr, bool) {
	ex, ok := e.exprs[param]
	return ex, ok
}

// Evaluator translates an expression DAG into solver terms. Results are
// memoized by node identity, so a node referenced from several parents is
// translated once. Each arbitrary expression is bound to exactly one
// solver variable. An evaluator is single-threaded and tied to one
// solver; construct a new one per run.
type Evaluator struct {
	solver Solver
	env    *Env

	cache map[Expr]Value
	vars  map[*ArbitraryExpr]Var
	order []*ArbitraryExpr
}

// NewEvaluator returns an evaluator over the given solver. A nil env is
// treated as empty.
func NewEvaluator(solver Solver, env *Env) *Evaluator {
	if env == nil {
		env = NewEnv()
	}
	return &Evaluator{
		solver: solver,
		env:    env,
		cache:  make(map[Expr]Value),
		vars:   make(map[*ArbitraryExpr]Var),
	}
}

// ArbitraryExprs returns the arbitrary expressions evaluated so far in
// first-evaluation order.
func (e *Evaluator) ArbitraryExprs() []*ArbitraryExpr {
	return e.order
}

// Var returns the solver variable created for an arbitrary expression.
func (e *Evaluator) Var(node *ArbitraryExpr) (Var, bool) {
	v, ok := e.vars[node]
	return v, ok
}

// Evaluate returns the symbolic value of expr.
func (e *Evaluator) Evaluate(expr Expr) (Value, error) {
	if v, ok := e.cache[expr]; ok {
		return v, nil
	}
	v, err := e.evalExpr(expr)
	if err != nil {
		return nil, err
	}
	e.cache[expr] = v
	return v, nil
}

func (e *Evaluator) registerVar(node *ArbitraryExpr, v Var) {
	if _, ok := e.vars[node]; !ok {
		e.vars[node] = v
		e.order = append(e.order, node)
	}
}

func (e *Evaluator) evalExpr(expr Expr) (Value, error) {
	s := e.solver

	switch expr := expr.(type) {
	case *ConstantExpr:
		return e.evalConstant(expr)

	case *ArbitraryExpr:
		return e.evalArbitrary(expr)

	case *ParamExpr:
		if v, ok := e.env.values[expr]; ok {
			return v, nil
		}
		if bound, ok := e.env.exprs[expr]; ok {
			return e.Evaluate(bound)
		}
		assert(false, "unbound parameter: %s", expr)
		return nil, nil

	case *NotExpr:
		v, err := e.Evaluate(expr.Input)
		if err != nil {
			return nil, err
		}
		if isBoolType(TypeOf(expr.Input)) {
			return &BoolValue{Expr: s.Not(v.(*BoolValue).Expr)}, nil
		}
		return wrapTerm(s.BitvecNot(term(v).(Bitvec)), TypeOf(expr.Input)), nil

	case *BinaryExpr:
		return e.evalBinary(expr)

	case *EqExpr:
		av, err := e.Evaluate(expr.LHS)
		if err != nil {
			return nil, err
		}
		bv, err := e.Evaluate(expr.RHS)
		if err != nil {
			return nil, err
		}
		eq, err := Eq(s, TypeOf(expr.LHS), av, bv)
		if err != nil {
			return nil, err
		}
		return &BoolValue{Expr: eq}, nil

	case *IfExpr:
		// Both branches are evaluated; the guard selects between them
		// inside the solver rather than through control flow.
		cond, err := e.Evaluate(expr.Cond)
		if err != nil {
			return nil, err
		}
		tv, err := e.Evaluate(expr.True)
		if err != nil {
			return nil, err
		}
		fv, err := e.Evaluate(expr.False)
		if err != nil {
			return nil, err
		}
		return Merge(s, TypeOf(expr.True), cond.(*BoolValue).Expr, tv, fv)

	case *GetFieldExpr:
		rv, err := e.Evaluate(expr.Record)
		if err != nil {
			return nil, err
		}
		return rv.(*ObjectValue).Field(expr.Field), nil

	case *WithFieldExpr:
		rv, err := e.Evaluate(expr.Record)
		if err != nil {
			return nil, err
		}
		fv, err := e.Evaluate(expr.Value)
		if err != nil {
			return nil, err
		}
		return rv.(*ObjectValue).WithField(expr.Field, fv), nil

	case *CreateObjectExpr:
		fields := immutable.NewSortedMap(nil)
		for i, f := range expr.Type.Fields {
			fv, err := e.Evaluate(expr.Fields[i])
			if err != nil {
				return nil, err
			}
			fields = fields.Set(f.Name, fv)
		}
		return &ObjectValue{Fields: fields}, nil

	case *ListEmptyExpr:
		groups := immutable.NewSortedMap(nil)
		groups = groups.Set(0, &GuardedElems{Guard: s.True()})
		return &ListValue{Groups: groups}, nil

	case *ListAddFrontExpr:
		return e.evalListAddFront(expr)

	case *ListCaseExpr:
		return e.evalListCase(expr)

	case *MapEmptyExpr:
		ms, ok := s.(MapSolver)
		if !ok {
			return nil, unsupported(s, "map expression")
		}
		m, err := ms.MapEmpty(expr.Type)
		if err != nil {
			return nil, err
		}
		return &MapValue{Expr: m}, nil

	case *MapSetExpr:
		ms, ok := s.(MapSolver)
		if !ok {
			return nil, unsupported(s, "map expression")
		}
		mv, kv, vv, err := e.evalTriple(expr.Map, expr.Key, expr.Value)
		if err != nil {
			return nil, err
		}
		return &MapValue{Expr: ms.MapSet(mv.(*MapValue).Expr, term(kv), term(vv))}, nil

	case *MapDeleteExpr:
		ms, ok := s.(MapSolver)
		if !ok {
			return nil, unsupported(s, "map expression")
		}
		mv, err := e.Evaluate(expr.Map)
		if err != nil {
			return nil, err
		}
		kv, err := e.Evaluate(expr.Key)
		if err != nil {
			return nil, err
		}
		return &MapValue{Expr: ms.MapDelete(mv.(*MapValue).Expr, term(kv))}, nil

	case *MapGetExpr:
		ms, ok := s.(MapSolver)
		if !ok {
			return nil, unsupported(s, "map expression")
		}
		mv, err := e.Evaluate(expr.Map)
		if err != nil {
			return nil, err
		}
		kv, err := e.Evaluate(expr.Key)
		if err != nil {
			return nil, err
		}
		found, raw := ms.MapGet(mv.(*MapValue).Expr, term(kv))
		valueType := TypeOf(expr.Map).(MapType).Value
		return NewObjectValue(map[string]Value{
			"found": &BoolValue{Expr: found},
			"value": wrapTerm(raw, valueType),
		}), nil

	case *SetEmptyExpr:
		ss, ok := s.(SetSolver)
		if !ok {
			return nil, unsupported(s, "set expression")
		}
		set, err := ss.SetEmpty(expr.Type)
		if err != nil {
			return nil, err
		}
		return &SetValue{Expr: set}, nil

	case *SetAddExpr:
		ss, ok := s.(SetSolver)
		if !ok {
			return nil, unsupported(s, "set expression")
		}
		sv, ev, err := e.evalPair(expr.Set, expr.Elem)
		if err != nil {
			return nil, err
		}
		return &SetValue{Expr: ss.SetAdd(sv.(*SetValue).Expr, term(ev))}, nil

	case *SetDeleteExpr:
		ss, ok := s.(SetSolver)
		if !ok {
			return nil, unsupported(s, "set expression")
		}
		sv, ev, err := e.evalPair(expr.Set, expr.Elem)
		if err != nil {
			return nil, err
		}
		return &SetValue{Expr: ss.SetDelete(sv.(*SetValue).Expr, term(ev))}, nil

	case *SetContainsExpr:
		ss, ok := s.(SetSolver)
		if !ok {
			return nil, unsupported(s, "set expression")
		}
		sv, ev, err := e.evalPair(expr.Set, expr.Elem)
		if err != nil {
			return nil, err
		}
		return &BoolValue{Expr: ss.SetContains(sv.(*SetValue).Expr, term(ev))}, nil

	case *SetCombineExpr:
		ss, ok := s.(SetSolver)
		if !ok {
			return nil, unsupported(s, "set expression")
		}
		av, bv, err := e.evalPair(expr.LHS, expr.RHS)
		if err != nil {
			return nil, err
		}
		return &SetValue{Expr: ss.SetCombine(expr.Op, av.(*SetValue).Expr, bv.(*SetValue).Expr)}, nil

	case *SetSizeExpr:
		ss, ok := s.(SetSolver)
		if !ok {
			return nil, unsupported(s, "set expression")
		}
		sv, err := e.Evaluate(expr.Set)
		if err != nil {
			return nil, err
		}
		return &BigValue{Expr: ss.SetSize(sv.(*SetValue).Expr)}, nil

	case *ConstMapSetExpr:
		mv, err := e.Evaluate(expr.Map)
		if err != nil {
			return nil, err
		}
		vv, err := e.Evaluate(expr.Value)
		if err != nil {
			return nil, err
		}
		return mv.(*ConstMapValue).Set(expr.Key, vv), nil

	case *ConstMapDeleteExpr:
		mv, err := e.Evaluate(expr.Map)
		if err != nil {
			return nil, err
		}
		return mv.(*ConstMapValue).Delete(expr.Key), nil

	case *ConstMapGetExpr:
		mv, err := e.Evaluate(expr.Map)
		if err != nil {
			return nil, err
		}
		if v, ok := mv.(*ConstMapValue).Get(expr.Key); ok {
			return v, nil
		}
		return DefaultValue(s, TypeOf(expr.Map).(ConstMapType).Value)

	case *SeqConcatExpr:
		ss, ok := s.(SeqSolver)
		if !ok {
			return nil, unsupported(s, "sequence expression")
		}
		av, bv, err := e.evalPair(expr.LHS, expr.RHS)
		if err != nil {
			return nil, err
		}
		return &SeqValue{Expr: ss.SeqConcat(av.(*SeqValue).Expr, bv.(*SeqValue).Expr)}, nil

	case *SeqLengthExpr:
		ss, ok := s.(SeqSolver)
		if !ok {
			return nil, unsupported(s, "sequence expression")
		}
		sv, err := e.Evaluate(expr.Seq)
		if err != nil {
			return nil, err
		}
		return &BigValue{Expr: ss.SeqLength(sv.(*SeqValue).Expr)}, nil

	case *SeqAtExpr:
		ss, ok := s.(SeqSolver)
		if !ok {
			return nil, unsupported(s, "sequence expression")
		}
		sv, iv, err := e.evalPair(expr.Seq, expr.Index)
		if err != nil {
			return nil, err
		}
		return &SeqValue{Expr: ss.SeqAt(sv.(*SeqValue).Expr, iv.(*BigValue).Expr)}, nil

	case *SeqContainsExpr:
		ss, ok := s.(SeqSolver)
		if !ok {
			return nil, unsupported(s, "sequence expression")
		}
		sv, subv, err := e.evalPair(expr.Seq, expr.Sub)
		if err != nil {
			return nil, err
		}
		return &BoolValue{Expr: ss.SeqContains(expr.Op, sv.(*SeqValue).Expr, subv.(*SeqValue).Expr)}, nil

	case *SeqIndexOfExpr:
		ss, ok := s.(SeqSolver)
		if !ok {
			return nil, unsupported(s, "sequence expression")
		}
		sv, subv, ov, err := e.evalTriple(expr.Seq, expr.Sub, expr.Offset)
		if err != nil {
			return nil, err
		}
		return &BigValue{Expr: ss.SeqIndexOf(sv.(*SeqValue).Expr, subv.(*SeqValue).Expr, ov.(*BigValue).Expr)}, nil

	case *SeqSliceExpr:
		ss, ok := s.(SeqSolver)
		if !ok {
			return nil, unsupported(s, "sequence expression")
		}
		sv, ov, lv, err := e.evalTriple(expr.Seq, expr.Offset, expr.Length)
		if err != nil {
			return nil, err
		}
		return &SeqValue{Expr: ss.SeqSlice(sv.(*SeqValue).Expr, ov.(*BigValue).Expr, lv.(*BigValue).Expr)}, nil

	case *SeqReplaceFirstExpr:
		ss, ok := s.(SeqSolver)
		if !ok {
			return nil, unsupported(s, "sequence expression")
		}
		sv, oldv, newv, err := e.evalTriple(expr.Seq, expr.Old, expr.New)
		if err != nil {
			return nil, err
		}
		return &SeqValue{Expr: ss.SeqReplaceFirst(sv.(*SeqValue).Expr, oldv.(*SeqValue).Expr, newv.(*SeqValue).Expr)}, nil

	case *SeqMatchExpr:
		ss, ok := s.(SeqSolver)
		if !ok {
			return nil, unsupported(s, "sequence expression")
		}
		sv, err := e.Evaluate(expr.Seq)
		if err != nil {
			return nil, err
		}
		match, err := ss.SeqMatch(sv.(*SeqValue).Expr, expr.Regex)
		if err != nil {
			return nil, err
		}
		return &BoolValue{Expr: match}, nil

	case *CastExpr:
		return e.evalCast(expr)

	default:
		panic(fmt.Sprintf("zen.Evaluator: invalid expression type: %T", expr))
	}
}

func (e *Evaluator) evalPair(a, b Expr) (Value, Value, error) {
	av, err := e.Evaluate(a)
	if err != nil {
		return nil, nil, err
	}
	bv, err := e.Evaluate(b)
	if err != nil {
		return nil, nil, err
	}
	return av, bv, nil
}

func (e *Evaluator) evalTriple(a, b, c Expr) (Value, Value, Value, error) {
	av, bv, err := e.evalPair(a, b)
	if err != nil {
		return nil, nil, nil, err
	}
	cv, err := e.Evaluate(c)
	if err != nil {
		return nil, nil, nil, err
	}
	return av, bv, cv, nil
}

func (e *Evaluator) evalConstant(expr *ConstantExpr) (Value, error) {
	s := e.solver
	switch typ := expr.Type.(type) {
	case BoolType:
		if expr.Bool() {
			return &BoolValue{Expr: s.True()}, nil
		}
		return &BoolValue{Expr: s.False()}, nil

	case IntType:
		return &IntValue{Expr: s.BitvecConst(expr.Uint64(), typ.Width)}, nil

	case CharType:
		return &CharValue{Expr: s.BitvecConst(expr.Uint64(), Width32)}, nil

	case BigType:
		is, ok := s.(IntegerSolver)
		if !ok {
			return nil, unsupported(s, "bigint expression")
		}
		return &BigValue{Expr: is.IntegerConst(expr.Int64())}, nil

	case RealType:
		rs, ok := s.(RealSolver)
		if !ok {
			return nil, unsupported(s, "real expression")
		}
		return &RealValue{Expr: rs.RealConst(expr.Int64())}, nil

	case StringType:
		ss, ok := s.(SeqSolver)
		if !ok {
			return nil, unsupported(s, "string expression")
		}
		return &SeqValue{Expr: ss.SeqConst(expr.Str())}, nil

	case SeqType:
		ss, ok := s.(SeqSolver)
		if !ok {
			return nil, unsupported(s, "sequence expression")
		}
		if str, ok := expr.Value.(string); ok {
			return &SeqValue{Expr: ss.SeqConst(str)}, nil
		}
		seq, err := ss.SeqEmpty(typ)
		if err != nil {
			return nil, err
		}
		return &SeqValue{Expr: seq}, nil

	case ConstMapType:
		return NewConstMapValue(), nil

	default:
		panic(fmt.Sprintf("zen.Evaluator: invalid constant type: %s", expr.Type))
	}
}

func (e *Evaluator) evalArbitrary(expr *ArbitraryExpr) (Value, error) {
	s := e.solver
	switch expr.Type.(type) {
	case BoolType:
		v, b := s.BoolVar(expr)
		e.registerVar(expr, v)
		return &BoolValue{Expr: b}, nil

	case IntType, CharType:
		v, b := s.BitvecVar(expr)
		e.registerVar(expr, v)
		return wrapTerm(b, expr.Type), nil

	case BigType:
		is, ok := s.(IntegerSolver)
		if !ok {
			return nil, unsupported(s, "arbitrary bigint")
		}
		v, b := is.IntegerVar(expr)
		e.registerVar(expr, v)
		return &BigValue{Expr: b}, nil

	case RealType:
		rs, ok := s.(RealSolver)
		if !ok {
			return nil, unsupported(s, "arbitrary real")
		}
		v, b := rs.RealVar(expr)
		e.registerVar(expr, v)
		return &RealValue{Expr: b}, nil

	case StringType, SeqType:
		ss, ok := s.(SeqSolver)
		if !ok {
			return nil, unsupported(s, "arbitrary sequence")
		}
		v, b, err := ss.SeqVar(expr)
		if err != nil {
			return nil, err
		}
		e.registerVar(expr, v)
		return &SeqValue{Expr: b}, nil

	case MapType:
		ms, ok := s.(MapSolver)
		if !ok {
			return nil, unsupported(s, "arbitrary map")
		}
		v, b, err := ms.MapVar(expr)
		if err != nil {
			return nil, err
		}
		e.registerVar(expr, v)
		return &MapValue{Expr: b}, nil

	case SetType:
		ss, ok := s.(SetSolver)
		if !ok {
			return nil, unsupported(s, "arbitrary set")
		}
		v, b, err := ss.SetVar(expr)
		if err != nil {
			return nil, err
		}
		e.registerVar(expr, v)
		return &SetValue{Expr: b}, nil

	default:
		// Composite arbitrary values are expanded by callers into
		// their primitive parts before evaluation.
		return nil, unsupported(s, "arbitrary %s value", expr.Type)
	}
}

func (e *Evaluator) evalBinary(expr *BinaryExpr) (Value, error) {
	s := e.solver
	av, bv, err := e.evalPair(expr.LHS, expr.RHS)
	if err != nil {
		return nil, err
	}

	switch typ := TypeOf(expr.LHS).(type) {
	case BoolType:
		a, b := av.(*BoolValue).Expr, bv.(*BoolValue).Expr
		switch expr.Op {
		case AND:
			return &BoolValue{Expr: s.And(a, b)}, nil
		case OR:
			return &BoolValue{Expr: s.Or(a, b)}, nil
		case XOR:
			return &BoolValue{Expr: s.Not(s.Iff(a, b))}, nil
		default:
			panic(fmt.Sprintf("zen.Evaluator: invalid boolean operator: %s", expr.Op))
		}

	case IntType, CharType:
		a, b := term(av).(Bitvec), term(bv).(Bitvec)
		if expr.Op.IsCompare() {
			cond, err := s.BitvecCompare(expr.Op, a, b)
			if err != nil {
				return nil, err
			}
			return &BoolValue{Expr: cond}, nil
		}
		result, err := s.BitvecBinary(expr.Op, a, b)
		if err != nil {
			return nil, err
		}
		return wrapTerm(result, typ), nil

	case BigType:
		is, ok := s.(IntegerSolver)
		if !ok {
			return nil, unsupported(s, "bigint expression")
		}
		a, b := av.(*BigValue).Expr, bv.(*BigValue).Expr
		if expr.Op.IsCompare() {
			cond, err := is.IntegerCompare(expr.Op, a, b)
			if err != nil {
				return nil, err
			}
			return &BoolValue{Expr: cond}, nil
		}
		result, err := is.IntegerBinary(expr.Op, a, b)
		if err != nil {
			return nil, err
		}
		return &BigValue{Expr: result}, nil

	case RealType:
		rs, ok := s.(RealSolver)
		if !ok {
			return nil, unsupported(s, "real expression")
		}
		a, b := av.(*RealValue).Expr, bv.(*RealValue).Expr
		if expr.Op.IsCompare() {
			cond, err := rs.RealCompare(expr.Op, a, b)
			if err != nil {
				return nil, err
			}
			return &BoolValue{Expr: cond}, nil
		}
		result, err := rs.RealBinary(expr.Op, a, b)
		if err != nil {
			return nil, err
		}
		return &RealValue{Expr: result}, nil

	default:
		panic(fmt.Sprintf("zen.Evaluator: invalid binary operand type: %s", typ))
	}
}

func (e *Evaluator) evalListAddFront(expr *ListAddFrontExpr) (Value, error) {
	lv, ev, err := e.evalPair(expr.List, expr.Elem)
	if err != nil {
		return nil, err
	}

	groups := immutable.NewSortedMap(nil)
	for itr := lv.(*ListValue).Groups.Iterator(); !itr.Done(); {
		k, v := itr.Next()
		group := v.(*GuardedElems)

		elems := make([]Value, 0, len(group.Elems)+1)
		elems = append(elems, ev)
		elems = append(elems, group.Elems...)
		groups = groups.Set(k.(int)+1, &GuardedElems{Guard: group.Guard, Elems: elems})
	}
	return &ListValue{Groups: groups}, nil
}

// evalListCase splits a list into its possible lengths, evaluates the
// matching continuation for each, and merges the results weighted by the
// length guards. The cons continuation is instantiated with fresh
// parameters per length so each instantiation evaluates independently.
func (e *Evaluator) evalListCase(expr *ListCaseExpr) (Value, error) {
	s := e.solver
	listType := TypeOf(expr.List).(ListType)
	resultType := TypeOf(expr.Empty)

	lv, err := e.Evaluate(expr.List)
	if err != nil {
		return nil, err
	}
	groups := lv.(*ListValue).Groups
	assert(groups.Len() > 0, "match: list value has no length groups")

	var result Value
	for itr := groups.Iterator(); !itr.Done(); {
		k, v := itr.Next()
		length := k.(int)
		group := v.(*GuardedElems)

		var branch Value
		if length == 0 {
			if branch, err = e.Evaluate(expr.Empty); err != nil {
				return nil, err
			}
		} else {
			head := NewParamExpr(listType.Elem)
			tail := NewParamExpr(listType)
			e.env.bindValue(head, group.Elems[0])

			tailGroups := immutable.NewSortedMap(nil)
			tailGroups = tailGroups.Set(length-1, &GuardedElems{Guard: s.True(), Elems: group.Elems[1:]})
			e.env.bindValue(tail, &ListValue{Groups: tailGroups})

			if branch, err = e.Evaluate(expr.Cons(head, tail)); err != nil {
				return nil, err
			}
		}

		if result == nil {
			result = branch
		} else if result, err = Merge(s, resultType, group.Guard, branch, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (e *Evaluator) evalCast(expr *CastExpr) (Value, error) {
	s := e.solver
	from := TypeOf(expr.Input)
	v, err := e.Evaluate(expr.Input)
	if err != nil {
		return nil, err
	}

	// String casts relabel the same sequence term.
	if isCharSeqType(from) && isCharSeqType(expr.To) {
		return v, nil
	}

	fromW, _ := BitSize(from)
	toW, _ := BitSize(expr.To)
	resized := s.BitvecResize(term(v).(Bitvec), fromW, toW, isSignedType(from))
	return wrapTerm(resized, expr.To), nil
}
