package bdd_test

import (
	"errors"
	"testing"

	"github.com/benbjohnson/zen"
	"github.com/benbjohnson/zen/bdd"
)

var (
	uint8Type = zen.IntType{Width: zen.Width8}
	int8Type  = zen.IntType{Width: zen.Width8, Signed: true}
)

// check model checks expr on a fresh solver.
func check(tb testing.TB, expr zen.Expr) map[*zen.ArbitraryExpr]zen.Literal {
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

func TestSolver_Bitvec(t *testing.T) {
	t.Run("AddWraps", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		expr := zen.NewEqExpr(
			zen.NewBinaryExpr(zen.ADD, x, zen.NewIntConstantExpr(1, uint8Type)),
			zen.NewIntConstantExpr(0, uint8Type),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[x] != uint64(255) {
			t.Fatalf("unexpected assignment: %v", model[x])
		}
	})

	t.Run("Sub", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		y := zen.NewArbitraryExpr(uint8Type, "y")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(zen.NewBinaryExpr(zen.SUB, x, y), zen.NewIntConstantExpr(200, uint8Type)),
			zen.NewEqExpr(y, zen.NewIntConstantExpr(100, uint8Type)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[x] != uint64(44) {
			t.Fatalf("unexpected assignment: %v", model[x])
		}
	})

	t.Run("Bitwise", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		c0F := zen.NewIntConstantExpr(0x0F, uint8Type)
		cF0 := zen.NewIntConstantExpr(0xF0, uint8Type)

		// Both conjuncts pin the low nibble to 0xA.
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(zen.NewBinaryExpr(zen.AND, x, c0F), zen.NewIntConstantExpr(0x0A, uint8Type)),
			zen.NewEqExpr(zen.NewBinaryExpr(zen.OR, x, cF0), zen.NewIntConstantExpr(0xFA, uint8Type)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if v := model[x].(uint64); v&0x0F != 0x0A {
			t.Fatalf("unexpected assignment: %#x", v)
		}
	})

	t.Run("Complement", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		expr := zen.NewEqExpr(zen.NewNotExpr(x), zen.NewIntConstantExpr(0x0F, uint8Type))
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[x] != uint64(0xF0) {
			t.Fatalf("unexpected assignment: %v", model[x])
		}
	})

	t.Run("ShiftConstant", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		two := zen.NewIntConstantExpr(2, uint8Type)

		expr := zen.NewEqExpr(zen.NewBinaryExpr(zen.SHL, x, two), zen.NewIntConstantExpr(0x14, uint8Type))
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if v := model[x].(uint64); (v<<2)&0xFF != 0x14 {
			t.Fatalf("unexpected assignment: %#x", v)
		}

		expr = zen.NewEqExpr(zen.NewBinaryExpr(zen.LSHR, x, two), zen.NewIntConstantExpr(0x3F, uint8Type))
		model = check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if v := model[x].(uint64); v>>2 != 0x3F {
			t.Fatalf("unexpected assignment: %#x", v)
		}
	})

	t.Run("ArithmeticShift", func(t *testing.T) {
		x := zen.NewArbitraryExpr(int8Type, "x")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewEqExpr(
				zen.NewBinaryExpr(zen.ASHR, x, zen.NewInt64ConstantExpr(2, int8Type)),
				zen.NewInt64ConstantExpr(-2, int8Type),
			),
			zen.NewLtExpr(x, zen.NewInt64ConstantExpr(0, int8Type)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if v := model[x].(int64); v>>2 != -2 {
			t.Fatalf("unexpected assignment: %d", v)
		}
	})

	t.Run("CompareUnsigned", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewGtExpr(x, zen.NewIntConstantExpr(250, uint8Type)),
			zen.NewLeExpr(x, zen.NewIntConstantExpr(251, uint8Type)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[x] != uint64(251) {
			t.Fatalf("unexpected assignment: %v", model[x])
		}
	})

	t.Run("CompareSigned", func(t *testing.T) {
		x := zen.NewArbitraryExpr(int8Type, "x")
		expr := zen.NewBinaryExpr(zen.AND,
			zen.NewLtExpr(x, zen.NewInt64ConstantExpr(-126, int8Type)),
			zen.NewGeExpr(x, zen.NewInt64ConstantExpr(-128, int8Type)),
		)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if v := model[x].(int64); v != -128 && v != -127 {
			t.Fatalf("unexpected assignment: %d", v)
		}
	})

	t.Run("Resize", func(t *testing.T) {
		x := zen.NewArbitraryExpr(int8Type, "x")
		wide := zen.NewCastExpr(x, zen.IntType{Width: zen.Width16, Signed: true})
		expr := zen.NewEqExpr(wide, zen.NewInt64ConstantExpr(-5, zen.IntType{Width: zen.Width16, Signed: true}))
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[x] != int64(-5) {
			t.Fatalf("unexpected assignment: %v", model[x])
		}
	})

	t.Run("Char", func(t *testing.T) {
		c := zen.NewArbitraryExpr(zen.CharType{}, "c")
		expr := zen.NewEqExpr(c, zen.NewCharConstantExpr('A'))
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[c] != int64('A') {
			t.Fatalf("unexpected assignment: %v", model[c])
		}
	})
}

func TestSolver_Bool(t *testing.T) {
	a := zen.NewArbitraryExpr(zen.BoolType{}, "a")
	b := zen.NewArbitraryExpr(zen.BoolType{}, "b")

	t.Run("Iff", func(t *testing.T) {
		expr := zen.NewBinaryExpr(zen.AND, zen.NewEqExpr(a, b), a)
		model := check(t, expr)
		if model == nil {
			t.Fatal("expected satisfiable")
		}
		if model[a] != true || model[b] != true {
			t.Fatalf("unexpected model: %v, %v", model[a], model[b])
		}
	})

	t.Run("Contradiction", func(t *testing.T) {
		expr := zen.NewBinaryExpr(zen.AND, a, zen.NewNotExpr(a))
		if model := check(t, expr); model != nil {
			t.Fatal("expected unsatisfiable")
		}
	})
}

func TestSolver_Unsupported(t *testing.T) {
	t.Run("Mul", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		y := zen.NewArbitraryExpr(uint8Type, "y")
		expr := zen.NewEqExpr(zen.NewBinaryExpr(zen.MUL, x, y), zen.NewIntConstantExpr(6, uint8Type))

		s, err := bdd.NewSolver(expr, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := zen.ModelCheck(s, expr, nil); !errors.Is(err, zen.ErrUnsupportedExpr) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("SymbolicShift", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		n := zen.NewArbitraryExpr(uint8Type, "n")
		expr := zen.NewEqExpr(zen.NewBinaryExpr(zen.SHL, x, n), zen.NewIntConstantExpr(4, uint8Type))

		s, err := bdd.NewSolver(expr, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := zen.ModelCheck(s, expr, nil); !errors.Is(err, zen.ErrUnsupportedExpr) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("StringVariable", func(t *testing.T) {
		s := zen.NewArbitraryExpr(zen.StringType{}, "s")
		expr := zen.NewEqExpr(s, zen.NewStringConstantExpr("ab"))
		if _, err := bdd.NewSolver(expr, nil); !errors.Is(err, zen.ErrUnsupportedExpr) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("BigVariable", func(t *testing.T) {
		n := zen.NewArbitraryExpr(zen.BigType{}, "n")
		expr := zen.NewEqExpr(n, zen.NewBigConstantExpr(3))
		if _, err := bdd.NewSolver(expr, nil); !errors.Is(err, zen.ErrUnsupportedExpr) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestSolver_Stats(t *testing.T) {
	x := zen.NewArbitraryExpr(uint8Type, "x")
	expr := zen.NewEqExpr(x, zen.NewIntConstantExpr(1, uint8Type))

	s, err := bdd.NewSolver(expr, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zen.ModelCheck(s, expr, nil); err != nil {
		t.Fatal(err)
	}
	if got := s.Stats(); got.SolveN != 1 {
		t.Fatalf("unexpected solve count: %d", got.SolveN)
	}
}
