package zen

// ModelCheck searches for an assignment of the arbitrary values in expr
// that makes it true. The returned map assigns a literal to every
// arbitrary value reached during evaluation; a nil map with a nil error
// means the expression is unsatisfiable.
func ModelCheck(s Solver, expr Expr, env *Env) (map[*ArbitraryExpr]Literal, error) {
	assert(isBoolType(TypeOf(expr)), "model check: expression is not boolean: %s", TypeOf(expr))

	ev := NewEvaluator(s, env)
	v, err := ev.Evaluate(expr)
	if err != nil {
		return nil, err
	}

	model, ok, err := s.Satisfiable(v.(*BoolValue).Expr)
	if err != nil {
		return nil, err
	} else if !ok {
		return nil, nil
	}
	return extractModel(s, ev, model)
}

// Maximize finds the largest value of a numeric objective subject to a
// boolean constraint. Returns the optimal objective literal and an
// assignment witnessing it, or nils when the constraint is
// unsatisfiable. Backends that cannot optimize return an error wrapping
// ErrUnsupportedExpr.
func Maximize(s Solver, objective, constraint Expr, env *Env) (Literal, map[*ArbitraryExpr]Literal, error) {
	return optimize(s, objective, constraint, env, true)
}

// Minimize finds the smallest value of a numeric objective subject to a
// boolean constraint.
func Minimize(s Solver, objective, constraint Expr, env *Env) (Literal, map[*ArbitraryExpr]Literal, error) {
	return optimize(s, objective, constraint, env, false)
}

func optimize(s Solver, objective, constraint Expr, env *Env, maximize bool) (Literal, map[*ArbitraryExpr]Literal, error) {
	assert(isNumericType(TypeOf(objective)), "optimize: objective is not numeric: %s", TypeOf(objective))
	assert(isBoolType(TypeOf(constraint)), "optimize: constraint is not boolean: %s", TypeOf(constraint))

	opt, ok := s.(Optimizer)
	if !ok {
		return nil, nil, unsupported(s, "optimization")
	}

	ev := NewEvaluator(s, env)
	objv, err := ev.Evaluate(objective)
	if err != nil {
		return nil, nil, err
	}
	conv, err := ev.Evaluate(constraint)
	if err != nil {
		return nil, nil, err
	}

	var best Literal
	var model Model
	if maximize {
		best, model, ok, err = opt.Maximize(term(objv), conv.(*BoolValue).Expr)
	} else {
		best, model, ok, err = opt.Minimize(term(objv), conv.(*BoolValue).Expr)
	}
	if err != nil {
		return nil, nil, err
	} else if !ok {
		return nil, nil, nil
	}

	assignments, err := extractModel(s, ev, model)
	if err != nil {
		return nil, nil, err
	}
	return best, assignments, nil
}

func extractModel(s Solver, ev *Evaluator, model Model) (map[*ArbitraryExpr]Literal, error) {
	out := make(map[*ArbitraryExpr]Literal, len(ev.ArbitraryExprs()))
	for _, node := range ev.ArbitraryExprs() {
		v, ok := ev.Var(node)
		assert(ok, "model check: no variable for %s", node)

		lit, err := s.Value(model, v)
		if err != nil {
			return nil, err
		}
		out[node] = lit
	}
	return out, nil
}
