package zen_test

import (
	"errors"
	"testing"

	"github.com/benbjohnson/zen"
)

func TestInterleave(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		y := zen.NewArbitraryExpr(uint8Type, "y")
		expr := zen.NewEqExpr(zen.NewBinaryExpr(zen.ADD, x, y), zen.NewIntConstantExpr(10, uint8Type))

		groups, err := zen.Interleave(expr, nil)
		if err != nil {
			t.Fatal(err)
		}
		wantGroups(t, groups, [][]*zen.ArbitraryExpr{{x, y}})
	})

	t.Run("BitwiseAnd", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		y := zen.NewArbitraryExpr(uint8Type, "y")
		expr := zen.NewEqExpr(zen.NewBinaryExpr(zen.AND, x, y), zen.NewIntConstantExpr(0, uint8Type))

		groups, err := zen.Interleave(expr, nil)
		if err != nil {
			t.Fatal(err)
		}
		wantGroups(t, groups, [][]*zen.ArbitraryExpr{{x, y}})
	})

	t.Run("Compare", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		y := zen.NewArbitraryExpr(uint8Type, "y")
		groups, err := zen.Interleave(zen.NewLeExpr(x, y), nil)
		if err != nil {
			t.Fatal(err)
		}
		wantGroups(t, groups, [][]*zen.ArbitraryExpr{{x, y}})
	})

	t.Run("BitwiseOrDoesNotCombine", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		y := zen.NewArbitraryExpr(uint8Type, "y")
		expr := zen.NewEqExpr(zen.NewBinaryExpr(zen.OR, x, y), zen.NewIntConstantExpr(0, uint8Type))

		groups, err := zen.Interleave(expr, nil)
		if err != nil {
			t.Fatal(err)
		}
		wantGroups(t, groups, [][]*zen.ArbitraryExpr{{x}, {y}})
	})

	t.Run("Transitive", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		y := zen.NewArbitraryExpr(uint8Type, "y")
		z := zen.NewArbitraryExpr(uint8Type, "z")
		sum := zen.NewBinaryExpr(zen.ADD, zen.NewBinaryExpr(zen.ADD, x, y), z)
		expr := zen.NewEqExpr(sum, zen.NewIntConstantExpr(0, uint8Type))

		groups, err := zen.Interleave(expr, nil)
		if err != nil {
			t.Fatal(err)
		}
		wantGroups(t, groups, [][]*zen.ArbitraryExpr{{x, y, z}})
	})

	t.Run("BoolExempt", func(t *testing.T) {
		a := zen.NewArbitraryExpr(zen.BoolType{}, "a")
		b := zen.NewArbitraryExpr(zen.BoolType{}, "b")
		groups, err := zen.Interleave(zen.NewEqExpr(a, b), nil)
		if err != nil {
			t.Fatal(err)
		}
		wantGroups(t, groups, [][]*zen.ArbitraryExpr{{a}, {b}})
	})

	t.Run("IfGuardSeparate", func(t *testing.T) {
		cond := zen.NewArbitraryExpr(zen.BoolType{}, "c")
		x := zen.NewArbitraryExpr(uint8Type, "x")
		y := zen.NewArbitraryExpr(uint8Type, "y")
		z := zen.NewArbitraryExpr(uint8Type, "z")
		expr := zen.NewEqExpr(zen.NewIfExpr(cond, x, y), z)

		groups, err := zen.Interleave(expr, nil)
		if err != nil {
			t.Fatal(err)
		}
		wantGroups(t, groups, [][]*zen.ArbitraryExpr{{cond}, {x, y, z}})
	})

	t.Run("FieldProjection", func(t *testing.T) {
		typ := zen.NewObjectType(
			zen.ObjectField{Name: "a", Type: uint8Type},
			zen.ObjectField{Name: "b", Type: uint8Type},
		)
		a := zen.NewArbitraryExpr(uint8Type, "a")
		b := zen.NewArbitraryExpr(uint8Type, "b")
		w := zen.NewArbitraryExpr(uint8Type, "w")
		obj := zen.NewCreateObjectExpr(typ, map[string]zen.Expr{"a": a, "b": b})
		expr := zen.NewEqExpr(zen.NewGetFieldExpr(obj, "a"), w)

		groups, err := zen.Interleave(expr, nil)
		if err != nil {
			t.Fatal(err)
		}
		wantGroups(t, groups, [][]*zen.ArbitraryExpr{{a, w}, {b}})
	})

	t.Run("CastTransparent", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		y := zen.NewArbitraryExpr(uint16Type, "y")
		expr := zen.NewEqExpr(zen.NewCastExpr(x, uint16Type), y)

		groups, err := zen.Interleave(expr, nil)
		if err != nil {
			t.Fatal(err)
		}
		wantGroups(t, groups, [][]*zen.ArbitraryExpr{{x, y}})
	})

	t.Run("BoundParam", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		y := zen.NewArbitraryExpr(uint8Type, "y")
		p := zen.NewParamExpr(uint8Type)
		env := zen.NewEnv()
		env.BindExpr(p, x)

		groups, err := zen.Interleave(zen.NewEqExpr(p, y), env)
		if err != nil {
			t.Fatal(err)
		}
		wantGroups(t, groups, [][]*zen.ArbitraryExpr{{x, y}})
	})

	t.Run("ListCaseConsUnseen", func(t *testing.T) {
		x := zen.NewArbitraryExpr(uint8Type, "x")
		y := zen.NewArbitraryExpr(uint8Type, "y")
		z := zen.NewArbitraryExpr(uint8Type, "z")
		list := zen.NewListAddFrontExpr(zen.NewListEmptyExpr(uint8Type), x)
		expr := zen.NewListCaseExpr(list, y, func(head, tail zen.Expr) zen.Expr {
			return zen.NewBinaryExpr(zen.ADD, head, z)
		})

		groups, err := zen.Interleave(expr, nil)
		if err != nil {
			t.Fatal(err)
		}
		wantGroups(t, groups, [][]*zen.ArbitraryExpr{{x}, {y}})
	})

	t.Run("Unsupported", func(t *testing.T) {
		t.Run("BigArbitrary", func(t *testing.T) {
			n := zen.NewArbitraryExpr(zen.BigType{}, "n")
			expr := zen.NewEqExpr(n, zen.NewBigConstantExpr(0))
			if _, err := zen.Interleave(expr, nil); !errors.Is(err, zen.ErrUnsupportedExpr) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
		t.Run("Map", func(t *testing.T) {
			m := zen.NewMapEmptyExpr(zen.MapType{Key: uint8Type, Value: zen.BoolType{}})
			expr := zen.NewGetFieldExpr(zen.NewMapGetExpr(m, zen.NewIntConstantExpr(1, uint8Type)), "found")
			if _, err := zen.Interleave(expr, nil); !errors.Is(err, zen.ErrUnsupportedExpr) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
		t.Run("Set", func(t *testing.T) {
			s := zen.NewSetEmptyExpr(zen.SetType{Elem: uint8Type})
			expr := zen.NewSetContainsExpr(s, zen.NewIntConstantExpr(1, uint8Type))
			if _, err := zen.Interleave(expr, nil); !errors.Is(err, zen.ErrUnsupportedExpr) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
		t.Run("SeqLength", func(t *testing.T) {
			s := zen.NewArbitraryExpr(zen.StringType{}, "s")
			expr := zen.NewEqExpr(zen.NewSeqLengthExpr(s), zen.NewBigConstantExpr(1))
			if _, err := zen.Interleave(expr, nil); !errors.Is(err, zen.ErrUnsupportedExpr) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	})
}

// wantGroups checks group membership and order by node identity.
func wantGroups(tb testing.TB, got, want [][]*zen.ArbitraryExpr) {
	tb.Helper()
	if len(got) != len(want) {
		tb.Fatalf("unexpected group count: %d, want %d", len(got), len(want))
	}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			tb.Fatalf("group %d: unexpected size: %d, want %d", i, len(got[i]), len(want[i]))
		}
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				tb.Fatalf("group %d: unexpected member %d: %s", i, j, got[i][j])
			}
		}
	}
}
