package z3_test

import (
	"testing"

	"github.com/benbjohnson/zen"
	"github.com/benbjohnson/zen/z3"
	"github.com/google/go-cmp/cmp"
)

var (
	uint8Type  = zen.IntType{Width: zen.Width8}
	int8Type   = zen.IntType{Width: zen.Width8, Signed: true}
	uint16Type = zen.IntType{Width: zen.Width16}
	int16Type  = zen.IntType{Width: zen.Width16, Signed: true}
)

// check model checks expr on a fresh solver.
func check(tb testing.TB, expr zen.Expr) map[*zen.ArbitraryExpr]zen.Literal {
	tb.Helper()
	model, err := zen.ModelCheck(z3.NewSolver(), expr, nil)
	if err != nil {
		tb.Fatal(err)
	}
	return model
}

func TestSolver_ModelCheck(t *testing.T) {
	t.Run("ConstantTrue", func(t *testing.T) {
		model := check(t, zen.NewBoolConstantExpr(true))
		if model == nil {
			t.Fatal("expected satisfiable")
		} else if len(model) != 0 {
			t.Fatalf("unexpected assignments: %v", model)
		}
	})

	t.Run("ConstantFalse", func(t *testing.T) {
		if model := check(t, zen.NewBoolConstantExpr(false)); model != nil {
			t.Fatalf("expected unsatisfiable, got %v", model)
		}
	})

	t.Run("Contradiction", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewGtExpr(x, zen.NewIntConstantExpr(5, uint8Type)),
			zen.NewLtExpr(x, zen.NewIntConstantExpr(5, uint8Type)),
		)
		if model := check(t, expr); model != nil {
			t.Fatalf("expected unsatisfiable, got %v", model)
		}
	})
}

func TestSolver_Bitvec(t *testing.T) {
	t.Run("Mul", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		y := zen.NewArbitraryExpr(uint8Type, "y")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(x, zen.NewIntConstantExpr(5, uint8Type)),
			zen.NewEqExpr(zen.NewBinaryExpr(zen.MUL, x, y), zen.NewIntConstantExpr(35, uint8Type)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		want := map[*zen.ArbitraryExpr]zen.Literal{x: uint64(5), y: uint64(7)}
		if diff := cmp.Diff(want, model); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("UnsignedDivRem", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		three := zen.NewIntConstantExpr(3, uint8Type)
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(zen.NewBinaryExpr(zen.UDIV, x, three), zen.NewIntConstantExpr(10, uint8Type)),
			zen.NewEqExpr(zen.NewBinaryExpr(zen.UREM, x, three), zen.NewIntConstantExpr(2, uint8Type)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[x] != uint64(32) {
			t.Fatalf("unexpected assignment: %v", model[x])
		}
	})

	t.Run("SignedDivRem", func(t *testing.T) {
		x := zen.NewArbitraryExpr(int8Type, "x")
		three := zen.NewInt64ConstantExpr(3, int8Type)
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(zen.NewBinaryExpr(zen.SDIV, x, three), zen.NewInt64ConstantExpr(-4, int8Type)),
			zen.NewEqExpr(zen.NewBinaryExpr(zen.SREM, x, three), zen.NewInt64ConstantExpr(-1, int8Type)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[x] != int64(-13) {
			t.Fatalf("unexpected assignment: %v", model[x])
		}
	})

	t.Run("SymbolicShift", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		y := zen.NewArbitraryExpr(uint8Type, "y")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(zen.NewBinaryExpr(zen.SHL, x, y), zen.NewIntConstantExpr(16, uint8Type)),
			zen.NewBinaryExpr(zen.AND,
				zen.NewEqExpr(y, zen.NewIntConstantExpr(4, uint8Type)),
				zen.NewLtExpr(x, zen.NewIntConstantExpr(16, uint8Type)),
			),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[x] != uint64(1) {
			t.Fatalf("unexpected assignment: %v", model[x])
		}
	})

	t.Run("Char", func(t *testing.T) {
		c := zen.NewArbitraryExpr(zen.CharType{}, "c")
		model := check(t, zen.NewEqExpr(c, zen.NewCharConstantExpr('Z')))
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[c] != int64('Z') {
			t.Fatalf("unexpected assignment: %v", model[c])
		}
	})
}

func TestSolver_Cast(t *testing.T) {
	t.Run("SignExtend", func(t *testing.T) {
		x := zen.NewArbitraryExpr(int8Type, "x")
		expr := zen.NewEqExpr(
			zen.NewCastExpr(x, int16Type),
			zen.NewInt64ConstantExpr(-100, int16Type),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[x] != int64(-100) {
			t.Fatalf("unexpected assignment: %v", model[x])
		}
	})

	t.Run("ZeroExtendBounds", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		expr := zen.NewEqExpr(
			zen.NewCastExpr(x, uint16Type),
			zen.NewIntConstantExpr(300, uint16Type),
		)
		if model := check(t, expr); model != nil {
			t.Fatalf("expected unsatisfiable, got %v", model)
		}
	})

	t.Run("Truncate", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint16Type, "x")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(x, zen.NewIntConstantExpr(263, uint16Type)),
			zen.NewEqExpr(zen.NewCastExpr(x, uint8Type), zen.NewIntConstantExpr(7, uint8Type)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[x] != uint64(263) {
			t.Fatalf("unexpected assignment: %v", model[x])
		}
	})
}

func TestSolver_Big(t *testing.T) {
	t.Run("Arithmetic", func(t *testing.T) {
		n := zen.NewArbitraryExpr(zen.BigType{}, "n")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(zen.NewBinaryExpr(zen.MUL, n, n), zen.NewBigConstantExpr(1369)),
			zen.NewGtExpr(n, zen.NewBigConstantExpr(0)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[n] != int64(37) {
			t.Fatalf("unexpected assignment: %v", model[n])
		}
	})

	t.Run("Negative", func(t *testing.T) {
		n := zen.NewArbitraryExpr(zen.BigType{}, "n")
		expr := zen.NewEqExpr(
			zen.NewBinaryExpr(zen.ADD, n, zen.NewBigConstantExpr(10)),
			zen.NewBigConstantExpr(3),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[n] != int64(-7) {
			t.Fatalf("unexpected assignment: %v", model[n])
		}
	})

	t.Run("Compare", func(t *testing.T) {
		n := zen.NewArbitraryExpr(zen.BigType{}, "n")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewGtExpr(n, zen.NewBigConstantExpr(100)),
			zen.NewBinaryExpr(zen.AND,
				zen.NewLtExpr(n, zen.NewBigConstantExpr(103)),
				zen.NewNeExpr(n, zen.NewBigConstantExpr(101)),
			),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[n] != int64(102) {
			t.Fatalf("unexpected assignment: %v", model[n])
		}
	})
}

func TestSolver_Real(t *testing.T) {
	t.Run("Integral", func(t *testing.T) {
		r := zen.NewArbitraryExpr(zen.RealType{}, "r")
		expr := zen.NewEqExpr(zen.NewBinaryExpr(zen.ADD, r, r), zen.NewRealConstantExpr(10))
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[r] != int64(5) {
			t.Fatalf("unexpected assignment: %v", model[r])
		}
	})

	t.Run("Negative", func(t *testing.T) {
		r := zen.NewArbitraryExpr(zen.RealType{}, "r")
		expr := zen.NewEqExpr(
			zen.NewBinaryExpr(zen.MUL, zen.NewRealConstantExpr(3), r),
			zen.NewRealConstantExpr(-6),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[r] != int64(-2) {
			t.Fatalf("unexpected assignment: %v", model[r])
		}
	})

	t.Run("Ordered", func(t *testing.T) {
		r := zen.NewArbitraryExpr(zen.RealType{}, "r")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewGeExpr(r, zen.NewRealConstantExpr(7)),
			zen.NewLeExpr(r, zen.NewRealConstantExpr(7)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[r] != int64(7) {
			t.Fatalf("unexpected assignment: %v", model[r])
		}
	})
}

func TestSolver_String(t *testing.T) {
	strType := zen.StringType{}

	t.Run("Concat", func(t *testing.T) {
		s := zen.NewArbitraryExpr(strType, "s")
		expr := zen.NewEqExpr(
			zen.NewSeqConcatExpr(s, zen.NewStringConstantExpr("-v2")),
			zen.NewStringConstantExpr("app-v2"),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[s] != "app" {
			t.Fatalf("unexpected assignment: %q", model[s])
		}
	})

	t.Run("LengthWithPrefix", func(t *testing.T) {
		s := zen.NewArbitraryExpr(strType, "s")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(zen.NewSeqLengthExpr(s), zen.NewBigConstantExpr(2)),
			zen.NewSeqContainsExpr(zen.PREFIXOF, s, zen.NewStringConstantExpr("ab")),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[s] != "ab" {
			t.Fatalf("unexpected assignment: %q", model[s])
		}
	})

	t.Run("Contains", func(t *testing.T) {
		s := zen.NewArbitraryExpr(strType, "s")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(zen.NewSeqLengthExpr(s), zen.NewBigConstantExpr(3)),
			zen.NewSeqContainsExpr(zen.CONTAINS, s, zen.NewStringConstantExpr("ell")),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[s] != "ell" {
			t.Fatalf("unexpected assignment: %q", model[s])
		}
	})

	t.Run("PrefixSuffix", func(t *testing.T) {
		s := zen.NewArbitraryExpr(strType, "s")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(zen.NewSeqLengthExpr(s), zen.NewBigConstantExpr(2)),
			zen.NewBinaryExpr(zen.AND,
				zen.NewSeqContainsExpr(zen.PREFIXOF, s, zen.NewStringConstantExpr("a")),
				zen.NewSeqContainsExpr(zen.SUFFIXOF, s, zen.NewStringConstantExpr("b")),
			),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[s] != "ab" {
			t.Fatalf("unexpected assignment: %q", model[s])
		}
	})

	t.Run("IndexOf", func(t *testing.T) {
		s := zen.NewArbitraryExpr(strType, "s")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(
				zen.NewSeqIndexOfExpr(s, zen.NewStringConstantExpr("b"), zen.NewBigConstantExpr(0)),
				zen.NewBigConstantExpr(1),
			),
			zen.NewBinaryExpr(zen.AND,
				zen.NewEqExpr(zen.NewSeqLengthExpr(s), zen.NewBigConstantExpr(2)),
				zen.NewSeqContainsExpr(zen.PREFIXOF, s, zen.NewStringConstantExpr("a")),
			),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[s] != "ab" {
			t.Fatalf("unexpected assignment: %q", model[s])
		}
	})

	t.Run("Slice", func(t *testing.T) {
		s := zen.NewArbitraryExpr(strType, "s")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(
				zen.NewSeqSliceExpr(s, zen.NewBigConstantExpr(1), zen.NewBigConstantExpr(2)),
				zen.NewStringConstantExpr("bc"),
			),
			zen.NewBinaryExpr(zen.AND,
				zen.NewEqExpr(zen.NewSeqLengthExpr(s), zen.NewBigConstantExpr(3)),
				zen.NewSeqContainsExpr(zen.PREFIXOF, s, zen.NewStringConstantExpr("a")),
			),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[s] != "abc" {
			t.Fatalf("unexpected assignment: %q", model[s])
		}
	})

	t.Run("ReplaceFirst", func(t *testing.T) {
		x := zen.NewArbitraryExpr(strType, "x")
		expr := zen.NewEqExpr(
			zen.NewSeqReplaceFirstExpr(
				zen.NewStringConstantExpr("banana"),
				zen.NewStringConstantExpr("na"),
				x,
			),
			zen.NewStringConstantExpr("bapana"),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[x] != "pa" {
			t.Fatalf("unexpected assignment: %q", model[x])
		}
	})

	t.Run("At", func(t *testing.T) {
		s := zen.NewArbitraryExpr(strType, "s")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(
				zen.NewSeqAtExpr(s, zen.NewBigConstantExpr(1)),
				zen.NewStringConstantExpr("x"),
			),
			zen.NewBinaryExpr(zen.AND,
				zen.NewEqExpr(zen.NewSeqLengthExpr(s), zen.NewBigConstantExpr(2)),
				zen.NewSeqContainsExpr(zen.PREFIXOF, s, zen.NewStringConstantExpr("a")),
			),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[s] != "ax" {
			t.Fatalf("unexpected assignment: %q", model[s])
		}
	})
}

func TestSolver_Regex(t *testing.T) {
	strType := zen.StringType{}

	t.Run("Literal", func(t *testing.T) {
		s := zen.NewArbitraryExpr(strType, "s")
		model := check(t, zen.NewSeqMatchExpr(s, zen.NewRegexLiteral("ab")))
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[s] != "ab" {
			t.Fatalf("unexpected assignment: %q", model[s])
		}
	})

	t.Run("Range", func(t *testing.T) {
		s := zen.NewArbitraryExpr(strType, "s")
		re := zen.NewRegexConcat(zen.NewRegexLiteral("id"), zen.NewRegexRange('0', '9'))
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewSeqMatchExpr(s, re),
			zen.NewSeqContainsExpr(zen.CONTAINS, s, zen.NewStringConstantExpr("7")),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[s] != "id7" {
			t.Fatalf("unexpected assignment: %q", model[s])
		}
	})

	t.Run("Star", func(t *testing.T) {
		s := zen.NewArbitraryExpr(strType, "s")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewSeqMatchExpr(s, zen.NewRegexStar(zen.NewRegexLiteral("ab"))),
			zen.NewEqExpr(zen.NewSeqLengthExpr(s), zen.NewBigConstantExpr(4)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[s] != "abab" {
			t.Fatalf("unexpected assignment: %q", model[s])
		}
	})

	t.Run("Union", func(t *testing.T) {
		s := zen.NewArbitraryExpr(strType, "s")
		re := zen.NewRegexUnion(zen.NewRegexLiteral("yes"), zen.NewRegexLiteral("no"))
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewSeqMatchExpr(s, re),
			zen.NewEqExpr(zen.NewSeqLengthExpr(s), zen.NewBigConstantExpr(2)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[s] != "no" {
			t.Fatalf("unexpected assignment: %q", model[s])
		}
	})

	t.Run("Plus", func(t *testing.T) {
		s := zen.NewArbitraryExpr(strType, "s")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewSeqMatchExpr(s, zen.NewRegexPlus(zen.NewRegexChar('a'))),
			zen.NewEqExpr(zen.NewSeqLengthExpr(s), zen.NewBigConstantExpr(3)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[s] != "aaa" {
			t.Fatalf("unexpected assignment: %q", model[s])
		}
	})

	t.Run("Optional", func(t *testing.T) {
		s := zen.NewArbitraryExpr(strType, "s")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewSeqMatchExpr(s, zen.NewRegexOptional(zen.NewRegexChar('x'))),
			zen.NewEqExpr(zen.NewSeqLengthExpr(s), zen.NewBigConstantExpr(1)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[s] != "x" {
			t.Fatalf("unexpected assignment: %q", model[s])
		}
	})

	t.Run("Empty", func(t *testing.T) {
		s := zen.NewArbitraryExpr(strType, "s")
		if model := check(t, zen.NewSeqMatchExpr(s, zen.NewRegexEmpty())); model != nil {
			t.Fatalf("expected unsatisfiable, got %v", model)
		}
	})
}

func TestSolver_Map(t *testing.T) {
	mapType := zen.MapType{Key: uint8Type, Value: uint8Type}

	t.Run("StoredKeyFound", func(t *testing.T) {
		k := zen.NewArbitraryExpr(uint8Type, "k")
		m := zen.NewMapSetExpr(
			zen.NewMapEmptyExpr(mapType),
			zen.NewIntConstantExpr(5, uint8Type),
			zen.NewIntConstantExpr(9, uint8Type),
		)
		opt := zen.NewMapGetExpr(m, k)
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewGetFieldExpr(opt, "found"),
			zen.NewEqExpr(zen.NewGetFieldExpr(opt, "value"), zen.NewIntConstantExpr(9, uint8Type)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[k] != uint64(5) {
			t.Fatalf("unexpected assignment: %v", model[k])
		}
	})

	t.Run("MissingKeyDefault", func(t *testing.T) {
		k := zen.NewArbitraryExpr(uint8Type, "k")
		opt := zen.NewMapGetExpr(zen.NewMapEmptyExpr(mapType), k)

		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(zen.NewGetFieldExpr(opt, "found"), zen.NewBoolConstantExpr(false)),
			zen.NewEqExpr(zen.NewGetFieldExpr(opt, "value"), zen.NewIntConstantExpr(0, uint8Type)),
		)
		if model := check(t, expr); model == nil {
			t.Fatal("expected satisfiable")
		}

		expr = zen.NewEqExpr(zen.NewGetFieldExpr(opt, "value"), zen.NewIntConstantExpr(1, uint8Type))
		if model := check(t, expr); model != nil {
			t.Fatalf("expected unsatisfiable, got %v", model)
		}
	})

	t.Run("DeleteRestoresDefault", func(t *testing.T) {
		five := zen.NewIntConstantExpr(5, uint8Type)
		m := zen.NewMapDeleteExpr(
			zen.NewMapSetExpr(zen.NewMapEmptyExpr(mapType), five, zen.NewIntConstantExpr(9, uint8Type)),
			five,
		)
		opt := zen.NewMapGetExpr(m, five)

		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(zen.NewGetFieldExpr(opt, "found"), zen.NewBoolConstantExpr(false)),
			zen.NewEqExpr(zen.NewGetFieldExpr(opt, "value"), zen.NewIntConstantExpr(0, uint8Type)),
		)
		if model := check(t, expr); model == nil {
			t.Fatal("expected satisfiable")
		}

		expr = zen.NewEqExpr(zen.NewGetFieldExpr(opt, "value"), zen.NewIntConstantExpr(9, uint8Type))
		if model := check(t, expr); model != nil {
			t.Fatalf("expected unsatisfiable, got %v", model)
		}
	})

	t.Run("EqualAfterDelete", func(t *testing.T) {
		k := zen.NewArbitraryExpr(uint8Type, "k")
		v := zen.NewArbitraryExpr(uint8Type, "v")
		m := zen.NewMapDeleteExpr(
			zen.NewMapSetExpr(zen.NewMapEmptyExpr(mapType), k, v),
			k,
		)
		expr := zen.NewNotExpr(zen.NewEqExpr(m, zen.NewMapEmptyExpr(mapType)))
		if model := check(t, expr); model != nil {
			t.Fatalf("expected unsatisfiable, got %v", model)
		}
	})

	t.Run("SymbolicMap", func(t *testing.T) {
		m := zen.NewArbitraryExpr(mapType, "m")
		opt := zen.NewMapGetExpr(m, zen.NewIntConstantExpr(5, uint8Type))
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewGetFieldExpr(opt, "found"),
			zen.NewEqExpr(zen.NewGetFieldExpr(opt, "value"), zen.NewIntConstantExpr(7, uint8Type)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if _, ok := model[m].(string); !ok {
			t.Fatalf("unexpected map assignment: %#v", model[m])
		}
	})

	t.Run("SymbolicMapDefault", func(t *testing.T) {
		m := zen.NewArbitraryExpr(mapType, "m")
		k := zen.NewArbitraryExpr(uint8Type, "k")
		opt := zen.NewMapGetExpr(m, k)
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(zen.NewGetFieldExpr(opt, "found"), zen.NewBoolConstantExpr(false)),
			zen.NewEqExpr(zen.NewGetFieldExpr(opt, "value"), zen.NewIntConstantExpr(1, uint8Type)),
		)
		if model := check(t, expr); model != nil {
			t.Fatalf("expected unsatisfiable, got %v", model)
		}
	})
}

func TestSolver_Set(t *testing.T) {
	setType := zen.SetType{Elem: uint8Type}

	newSet := func(elems ...uint64) zen.Expr {
		set := zen.Expr(zen.NewSetEmptyExpr(setType))
		for _, elem := range elems {
			set = zen.NewSetAddExpr(set, zen.NewIntConstantExpr(elem, uint8Type))
		}
		return set
	}

	t.Run("AddContains", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewSetContainsExpr(newSet(1, 2), x),
			zen.NewNeExpr(x, zen.NewIntConstantExpr(1, uint8Type)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[x] != uint64(2) {
			t.Fatalf("unexpected assignment: %v", model[x])
		}
	})

	t.Run("Size", func(t *testing.T) {
		size := zen.NewSetSizeExpr(newSet(1, 2))
		if model := check(t, zen.NewEqExpr(size, zen.NewBigConstantExpr(2))); model == nil {
			t.Fatal("expected satisfiable")
		}
		if model := check(t, zen.NewEqExpr(size, zen.NewBigConstantExpr(3))); model != nil {
			t.Fatalf("expected unsatisfiable, got %v", model)
		}
	})

	t.Run("Union", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		union := zen.NewSetCombineExpr(zen.UNION, newSet(1, 2), newSet(2, 3))
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewSetContainsExpr(union, x),
			zen.NewNotExpr(zen.NewSetContainsExpr(newSet(1, 2), x)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[x] != uint64(3) {
			t.Fatalf("unexpected assignment: %v", model[x])
		}
	})

	t.Run("Intersect", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		intersect := zen.NewSetCombineExpr(zen.INTERSECT, newSet(1, 2), newSet(2, 3))
		model := check(t, zen.NewSetContainsExpr(intersect, x))
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[x] != uint64(2) {
			t.Fatalf("unexpected assignment: %v", model[x])
		}
	})

	t.Run("Difference", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		diff := zen.NewSetCombineExpr(zen.DIFFERENCE, newSet(1, 2), newSet(2, 3))
		model := check(t, zen.NewSetContainsExpr(diff, x))
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[x] != uint64(1) {
			t.Fatalf("unexpected assignment: %v", model[x])
		}
	})

	t.Run("DeleteRemoves", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		set := zen.NewSetDeleteExpr(newSet(4), zen.NewIntConstantExpr(4, uint8Type))
		if model := check(t, zen.NewSetContainsExpr(set, x)); model != nil {
			t.Fatalf("expected unsatisfiable, got %v", model)
		}
	})

	t.Run("SymbolicSet", func(t *testing.T) {
		set := zen.NewArbitraryExpr(setType, "set")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewSetContainsExpr(set, zen.NewIntConstantExpr(9, uint8Type)),
			zen.NewEqExpr(zen.NewSetSizeExpr(set), zen.NewBigConstantExpr(1)),
		)
		if model := check(t, expr); model == nil {
			t.Fatal("expected satisfiable")
		}

		expr = zen.NewBinaryExpr(zen.AND,
			zen.NewSetContainsExpr(set, zen.NewIntConstantExpr(9, uint8Type)),
			zen.NewEqExpr(zen.NewSetSizeExpr(set), zen.NewBigConstantExpr(0)),
		)
		if model := check(t, expr); model != nil {
			t.Fatalf("expected unsatisfiable, got %v", model)
		}
	})
}

func TestSolver_Ite(t *testing.T) {
	t.Run("BranchSelection", func(t *testing.T) {
		c := zen.NewArbitraryExpr(zen.BoolType{}, "c")
		expr := zen.NewEqExpr(
			zen.NewIfExpr(c, zen.NewIntConstantExpr(10, uint8Type), zen.NewIntConstantExpr(20, uint8Type)),
			zen.NewIntConstantExpr(10, uint8Type),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[c] != true {
			t.Fatalf("unexpected assignment: %v", model[c])
		}
	})

	t.Run("StringBranches", func(t *testing.T) {
		c := zen.NewArbitraryExpr(zen.BoolType{}, "c")
		expr := zen.NewEqExpr(
			zen.NewIfExpr(c, zen.NewStringConstantExpr("yes"), zen.NewStringConstantExpr("no")),
			zen.NewStringConstantExpr("no"),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[c] != false {
			t.Fatalf("unexpected assignment: %v", model[c])
		}
	})

	t.Run("MapBranches", func(t *testing.T) {
		mapType := zen.MapType{Key: uint8Type, Value: uint8Type}
		c := zen.NewArbitraryExpr(zen.BoolType{}, "c")
		one := zen.NewIntConstantExpr(1, uint8Type)
		m := zen.NewIfExpr(c,
			zen.NewMapSetExpr(zen.NewMapEmptyExpr(mapType), one, one),
			zen.NewMapEmptyExpr(mapType),
		)
		expr := zen.NewGetFieldExpr(zen.NewMapGetExpr(m, one), "found")
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[c] != true {
			t.Fatalf("unexpected assignment: %v", model[c])
		}
	})
}

func TestSolver_Optimize(t *testing.T) {
	t.Run("MaximizeBig", func(t *testing.T) {
		n := zen.NewArbitraryExpr(zen.BigType{}, "n")
		constraint := zen.NewBinaryExpr(zen.AND,
			zen.NewGeExpr(n, zen.NewBigConstantExpr(3)),
			zen.NewLeExpr(n, zen.NewBigConstantExpr(17)),
		)
		best, model, err := zen.Maximize(z3.NewSolver(), n, constraint, nil)
		if err != nil {
			t.Fatal(err)
		} else if model == nil {
			t.Fatal("expected satisfiable")
		}
		if best != int64(17) {
			t.Fatalf("unexpected optimum: %v", best)
		}
		if model[n] != int64(17) {
			t.Fatalf("unexpected assignment: %v", model[n])
		}
	})

	t.Run("MinimizeBig", func(t *testing.T) {
		n := zen.NewArbitraryExpr(zen.BigType{}, "n")
		constraint := zen.NewGtExpr(n, zen.NewBigConstantExpr(5))
		best, model, err := zen.Minimize(z3.NewSolver(), n, constraint, nil)
		if err != nil {
			t.Fatal(err)
		} else if model == nil {
			t.Fatal("expected satisfiable")
		}
		if best != int64(6) {
			t.Fatalf("unexpected optimum: %v", best)
		}
	})

	t.Run("MaximizeBitvec", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		constraint := zen.NewLtExpr(x, zen.NewIntConstantExpr(10, uint8Type))
		best, model, err := zen.Maximize(z3.NewSolver(), x, constraint, nil)
		if err != nil {
			t.Fatal(err)
		} else if model == nil {
			t.Fatal("expected satisfiable")
		}

		var optimum uint64
		switch v := best.(type) {
		case uint64:
			optimum = v
		case int64:
			optimum = uint64(v)
		default:
			t.Fatalf("unexpected optimum type: %T", best)
		}
		if optimum != 9 {
			t.Fatalf("unexpected optimum: %v", best)
		}
		if model[x] != uint64(9) {
			t.Fatalf("unexpected assignment: %v", model[x])
		}
	})

	t.Run("MinimizeReal", func(t *testing.T) {
		r := zen.NewArbitraryExpr(zen.RealType{}, "r")
		constraint := zen.NewGeExpr(r, zen.NewRealConstantExpr(4))
		best, model, err := zen.Minimize(z3.NewSolver(), r, constraint, nil)
		if err != nil {
			t.Fatal(err)
		} else if model == nil {
			t.Fatal("expected satisfiable")
		}
		if best != int64(4) {
			t.Fatalf("unexpected optimum: %v", best)
		}
	})

	t.Run("Unsatisfiable", func(t *testing.T) {
		n := zen.NewArbitraryExpr(zen.BigType{}, "n")
		constraint := zen.NewBinaryExpr(zen.AND,
			zen.NewGtExpr(n, zen.NewBigConstantExpr(5)),
			zen.NewLtExpr(n, zen.NewBigConstantExpr(5)),
		)
		best, model, err := zen.Maximize(z3.NewSolver(), n, constraint, nil)
		if err != nil {
			t.Fatal(err)
		}
		if best != nil || model != nil {
			t.Fatalf("expected no optimum, got %v / %v", best, model)
		}
	})

	t.Run("Unbounded", func(t *testing.T) {
		n := zen.NewArbitraryExpr(zen.BigType{}, "n")
		constraint := zen.NewGtExpr(n, zen.NewBigConstantExpr(0))
		if _, _, err := zen.Maximize(z3.NewSolver(), n, constraint, nil); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestSolver_Stats(t *testing.T) {
	s := z3.NewSolver()
	x := zen.NewArbitraryExpr(uint8Type, "x")

	if _, err := zen.ModelCheck(s, zen.NewEqExpr(x, zen.NewIntConstantExpr(1, uint8Type)), nil); err != nil {
		t.Fatal(err)
	}
	if got := s.Stats().SolveN; got != 1 {
		t.Fatalf("unexpected solve count: %d", got)
	}

	if _, _, err := zen.Maximize(s, x, zen.NewLtExpr(x, zen.NewIntConstantExpr(10, uint8Type)), nil); err != nil {
		t.Fatal(err)
	}
	if got := s.Stats().SolveN; got != 2 {
		t.Fatalf("unexpected solve count: %d", got)
	}
}
