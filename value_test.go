package zen_test

import (
	"testing"

	"github.com/benbjohnson/zen"
	"github.com/benbjohnson/zen/bdd"
	"github.com/davecgh/go-spew/spew"
)

// checkBDD model checks expr on a fresh diagram solver.
func checkBDD(tb testing.TB, expr zen.Expr) map[*zen.ArbitraryExpr]zen.Literal {
	tb.Helper()
	s, err := bdd.NewSolver(expr, nil)
	if err != nil {
		tb.Fatal(err)
	}
	model, err := zen.ModelCheck(s, expr, nil)
	if err != nil {
		tb.Fatal(err)
	}
	return model
}

func TestValueEq_Object(t *testing.T) {
	typ := zen.NewObjectType(
		zen.ObjectField{Name: "n", Type: uint8Type},
		zen.ObjectField{Name: "flag", Type: zen.BoolType{}},
	)
	x := zen.NewArbitraryExpr(uint8Type, "x")
	a := zen.NewArbitraryExpr(zen.BoolType{}, "a")

	lhs := zen.NewCreateObjectExpr(typ, map[string]zen.Expr{"n": x, "flag": a})
	rhs := zen.NewCreateObjectExpr(typ, map[string]zen.Expr{
		"n":    zen.NewIntConstantExpr(3, uint8Type),
		"flag": zen.NewBoolConstantExpr(true),
	})

	model := checkBDD(t, zen.NewEqExpr(lhs, rhs))
	if model == nil {
		t.Fatal("expected satisfiable")
	}
	if model[x] != uint64(3) || model[a] != true {
		t.Fatalf("unexpected model: %s", spew.Sdump(model))
	}
}

func TestValueEq_List(t *testing.T) {
	t.Run("LengthGuards", func(t *testing.T) {
		cond := zen.NewArbitraryExpr(zen.BoolType{}, "c")
		elem := zen.NewArbitraryExpr(uint8Type, "e")
		empty := zen.NewListEmptyExpr(uint8Type)
		one := zen.NewListAddFrontExpr(empty, elem)
		list := zen.NewIfExpr(cond, one, empty)

		model := checkBDD(t, zen.NewEqExpr(list, empty))
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[cond] != false {
			t.Fatalf("unexpected model: %s", spew.Sdump(model))
		}
	})

	t.Run("MismatchedLengths", func(t *testing.T) {
		elem := zen.NewArbitraryExpr(uint8Type, "e")
		empty := zen.NewListEmptyExpr(uint8Type)
		one := zen.NewListAddFrontExpr(empty, elem)

		if model := checkBDD(t, zen.NewEqExpr(one, empty)); model != nil {
			t.Fatalf("expected unsatisfiable, got %s", spew.Sdump(model))
		}
	})

	t.Run("Elementwise", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		empty := zen.NewListEmptyExpr(uint8Type)
		lhs := zen.NewListAddFrontExpr(empty, x)
		rhs := zen.NewListAddFrontExpr(empty, zen.NewIntConstantExpr(5, uint8Type))

		model := checkBDD(t, zen.NewEqExpr(lhs, rhs))
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[x] != uint64(5) {
			t.Fatalf("unexpected model: %s", spew.Sdump(model))
		}
	})
}

func TestValueMerge_Object(t *testing.T) {
	typ := zen.NewObjectType(zen.ObjectField{Name: "n", Type: uint8Type})
	cond := zen.NewArbitraryExpr(zen.BoolType{}, "c")

	objA := zen.NewCreateObjectExpr(typ, map[string]zen.Expr{"n": zen.NewIntConstantExpr(9, uint8Type)})
	objB := zen.NewCreateObjectExpr(typ, map[string]zen.Expr{"n": zen.NewIntConstantExpr(3, uint8Type)})
	merged := zen.NewIfExpr(cond, objA, objB)

	expr := zen.NewEqExpr(zen.NewGetFieldExpr(merged, "n"), zen.NewIntConstantExpr(9, uint8Type))
	model := checkBDD(t, expr)
	if model == nil {
		t.Fatal("expected satisfiable")
	}
	if model[cond] != true {
		t.Fatalf("unexpected model: %s", spew.Sdump(model))
	}
}

func TestValueMerge_ConstantGuard(t *testing.T) {
	x := zen.NewArbitraryExpr(uint8Type, "x")
	y := zen.NewArbitraryExpr(uint8Type, "y")

	s, err := bdd.NewSolver(zen.NewEqExpr(x, y), nil)
	if err != nil {
		t.Fatal(err)
	}
	ev := zen.NewEvaluator(s, nil)

	eval := func(tb testing.TB, expr zen.Expr) zen.Value {
		tb.Helper()
		v, err := ev.Evaluate(expr)
		if err != nil {
			tb.Fatal(err)
		}
		return v
	}

	// selects verifies the merged value equals want in every model.
	selects := func(tb testing.TB, typ zen.Type, guard zen.Bool, a, b, want zen.Value) {
		tb.Helper()
		m, err := zen.Merge(s, typ, guard, a, b)
		if err != nil {
			tb.Fatal(err)
		}
		eq, err := zen.Eq(s, typ, m, want)
		if err != nil {
			tb.Fatal(err)
		}
		if _, ok, err := s.Satisfiable(s.Not(eq)); err != nil {
			tb.Fatal(err)
		} else if ok {
			tb.Fatal("merged value differs from the selected side")
		}
	}

	both := func(tb testing.TB, typ zen.Type, a, b zen.Value) {
		tb.Helper()
		selects(tb, typ, s.True(), a, b, a)
		selects(tb, typ, s.False(), a, b, b)
	}

	t.Run("Bool", func(t *testing.T) {
		c := zen.NewArbitraryExpr(zen.BoolType{}, "c")
		both(t, zen.BoolType{}, eval(t, c), eval(t, zen.NewBoolConstantExpr(false)))
	})

	t.Run("Int", func(t *testing.T) {
		both(t, uint8Type, eval(t, x), eval(t, y))
	})

	t.Run("Object", func(t *testing.T) {
		typ := zen.NewObjectType(zen.ObjectField{Name: "n", Type: uint8Type})
		a := eval(t, zen.NewCreateObjectExpr(typ, map[string]zen.Expr{"n": x}))
		b := eval(t, zen.NewCreateObjectExpr(typ, map[string]zen.Expr{"n": y}))
		both(t, typ, a, b)
	})

	t.Run("List", func(t *testing.T) {
		empty := zen.NewListEmptyExpr(uint8Type)
		a := eval(t, zen.NewListAddFrontExpr(empty, x))
		b := eval(t, zen.NewListAddFrontExpr(empty, y))
		both(t, zen.ListType{Elem: uint8Type}, a, b)
	})

	t.Run("ConstMap", func(t *testing.T) {
		typ := zen.ConstMapType{Key: uint8Type, Value: uint8Type}
		empty := zen.NewEmptyConstMapExpr(typ)
		a := eval(t, zen.NewConstMapSetExpr(empty, 1, x))
		b := eval(t, zen.NewConstMapSetExpr(empty, 2, y))
		both(t, typ, a, b)
	})
}

func TestValueDefault_Object(t *testing.T) {
	objType := zen.NewObjectType(
		zen.ObjectField{Name: "n", Type: uint8Type},
		zen.ObjectField{Name: "flag", Type: zen.BoolType{}},
	)
	mapType := zen.ConstMapType{Key: uint8Type, Value: objType}
	missing := zen.NewConstMapGetExpr(zen.NewEmptyConstMapExpr(mapType), 1)

	t.Run("ZeroFields", func(t *testing.T) {
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(zen.NewGetFieldExpr(missing, "n"), zen.NewIntConstantExpr(0, uint8Type)),
			zen.NewEqExpr(zen.NewGetFieldExpr(missing, "flag"), zen.NewBoolConstantExpr(false)),
		)
		if model := checkBDD(t, expr); model == nil {
			t.Fatal("expected satisfiable")
		}
	})

	t.Run("NonZeroUnsatisfiable", func(t *testing.T) {
		expr := zen.NewEqExpr(zen.NewGetFieldExpr(missing, "n"), zen.NewIntConstantExpr(1, uint8Type))
		if model := checkBDD(t, expr); model != nil {
			t.Fatalf("expected unsatisfiable, got %s", spew.Sdump(model))
		}
	})
}
