package zen_test

import (
	"testing"

	"github.com/benbjohnson/zen"
)

func TestRegex_Concat(t *testing.T) {
	ab := zen.NewRegexLiteral("ab")

	t.Run("EpsilonLeft", func(t *testing.T) {
		if re := zen.NewRegexConcat(zen.NewRegexEpsilon(), ab); re != ab {
			t.Fatalf("unexpected regex: %s", re)
		}
	})
	t.Run("EpsilonRight", func(t *testing.T) {
		if re := zen.NewRegexConcat(ab, zen.NewRegexEpsilon()); re != ab {
			t.Fatalf("unexpected regex: %s", re)
		}
	})
	t.Run("Empty", func(t *testing.T) {
		if re := zen.NewRegexConcat(ab, zen.NewRegexEmpty()); re.Kind != zen.RegexEmpty {
			t.Fatalf("unexpected regex: %s", re)
		}
		if re := zen.NewRegexConcat(zen.NewRegexEmpty(), ab); re.Kind != zen.RegexEmpty {
			t.Fatalf("unexpected regex: %s", re)
		}
	})
}

func TestRegex_Union(t *testing.T) {
	ab := zen.NewRegexLiteral("ab")

	t.Run("EmptyLeft", func(t *testing.T) {
		if re := zen.NewRegexUnion(zen.NewRegexEmpty(), ab); re != ab {
			t.Fatalf("unexpected regex: %s", re)
		}
	})
	t.Run("EmptyRight", func(t *testing.T) {
		if re := zen.NewRegexUnion(ab, zen.NewRegexEmpty()); re != ab {
			t.Fatalf("unexpected regex: %s", re)
		}
	})
}

func TestRegex_Star(t *testing.T) {
	t.Run("Idempotent", func(t *testing.T) {
		star := zen.NewRegexStar(zen.NewRegexChar('a'))
		if re := zen.NewRegexStar(star); re != star {
			t.Fatalf("unexpected regex: %s", re)
		}
	})
	t.Run("EmptyLanguage", func(t *testing.T) {
		if re := zen.NewRegexStar(zen.NewRegexEmpty()); re.Kind != zen.RegexEpsilon {
			t.Fatalf("unexpected regex: %s", re)
		}
		if re := zen.NewRegexStar(zen.NewRegexEpsilon()); re.Kind != zen.RegexEpsilon {
			t.Fatalf("unexpected regex: %s", re)
		}
	})
}

func TestRegex_String(t *testing.T) {
	re := zen.NewRegexUnion(
		zen.NewRegexConcat(zen.NewRegexChar('a'), zen.NewRegexRange('0', '9')),
		zen.NewRegexStar(zen.NewRegexChar('b')),
	)
	if got, want := re.String(), `(re-union (re-concat (re-char 'a') (re-range '0' '9')) (re-star (re-char 'b')))`; got != want {
		t.Fatalf("unexpected string: %s", got)
	}
}
