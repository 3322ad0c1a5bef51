package zen

import (
	"fmt"
	"strings"
)

// RegexKind enumerates the node kinds of a regular expression.
type RegexKind int

const (
	// RegexEmpty matches no string at all.
	RegexEmpty = RegexKind(iota)

	// RegexEpsilon matches only the empty string.
	RegexEpsilon

	// RegexRange matches a single char within an inclusive range.
	RegexRange

	// RegexConcat matches the concatenation of two languages.
	RegexConcat

	// RegexUnion matches either of two languages.
	RegexUnion

	// RegexStar matches zero or more repetitions of a language.
	RegexStar
)

// Regex represents a regular expression over chars. A match covers the
// whole string. Regexes are immutable once constructed.
type Regex struct {
	Kind RegexKind

	// Lo and Hi bound the inclusive char range of a RegexRange node.
	Lo rune
	Hi rune

	// LHS and RHS are the operands of concat and union nodes. Star nodes
	// use LHS only.
	LHS *Regex
	RHS *Regex
}

// NewRegexEmpty returns a regex matching no string.
func NewRegexEmpty() *Regex { return &Regex{Kind: RegexEmpty} }

// NewRegexEpsilon returns a regex matching only the empty string.
func NewRegexEpsilon() *Regex { return &Regex{Kind: RegexEpsilon} }

// NewRegexChar returns a regex matching a single char.
func NewRegexChar(r rune) *Regex { return NewRegexRange(r, r) }

// NewRegexRange returns a regex matching one char in the inclusive range
// [lo, hi].
func NewRegexRange(lo, hi rune) *Regex {
	assert(lo <= hi, "regex: invalid range: %q > %q", lo, hi)
	return &Regex{Kind: RegexRange, Lo: lo, Hi: hi}
}

// NewRegexLiteral returns a regex matching exactly the given string.
func NewRegexLiteral(s string) *Regex {
	re := NewRegexEpsilon()
	for _, r := range s {
		re = NewRegexConcat(re, NewRegexChar(r))
	}
	return re
}

// NewRegexConcat returns a regex matching lhs followed by rhs.
func NewRegexConcat(lhs, rhs *Regex) *Regex {
	if lhs.Kind == RegexEpsilon {
		return rhs
	}
	if rhs.Kind == RegexEpsilon {
		return lhs
	}
	if lhs.Kind == RegexEmpty || rhs.Kind == RegexEmpty {
		return NewRegexEmpty()
	}
	return &Regex{Kind: RegexConcat, LHS: lhs, RHS: rhs}
}

// NewRegexUnion returns a regex matching either lhs or rhs.
func NewRegexUnion(lhs, rhs *Regex) *Regex {
	if lhs.Kind == RegexEmpty {
		return rhs
	}
	if rhs.Kind == RegexEmpty {
		return lhs
	}
	return &Regex{Kind: RegexUnion, LHS: lhs, RHS: rhs}
}

// NewRegexStar returns a regex matching zero or more repetitions of re.
func NewRegexStar(re *Regex) *Regex {
	switch re.Kind {
	case RegexEmpty, RegexEpsilon:
		return NewRegexEpsilon()
	case RegexStar:
		return re
	}
	return &Regex{Kind: RegexStar, LHS: re}
}

// NewRegexPlus returns a regex matching one or more repetitions of re.
func NewRegexPlus(re *Regex) *Regex {
	return NewRegexConcat(re, NewRegexStar(re))
}

// NewRegexOptional returns a regex matching re or the empty string.
func NewRegexOptional(re *Regex) *Regex {
	return NewRegexUnion(NewRegexEpsilon(), re)
}

func (re *Regex) String() string {
	var buf strings.Builder
	re.writeTo(&buf)
	return buf.String()
}

func (re *Regex) writeTo(buf *strings.Builder) {
	switch re.Kind {
	case RegexEmpty:
		buf.WriteString("(re-empty)")
	case RegexEpsilon:
		buf.WriteString("(re-eps)")
	case RegexRange:
		if re.Lo == re.Hi {
			fmt.Fprintf(buf, "(re-char %q)", re.Lo)
		} else {
			fmt.Fprintf(buf, "(re-range %q %q)", re.Lo, re.Hi)
		}
	case RegexConcat:
		buf.WriteString("(re-concat ")
		re.LHS.writeTo(buf)
		buf.WriteString(" ")
		re.RHS.writeTo(buf)
		buf.WriteString(")")
	case RegexUnion:
		buf.WriteString("(re-union ")
		re.LHS.writeTo(buf)
		buf.WriteString(" ")
		re.RHS.writeTo(buf)
		buf.WriteString(")")
	case RegexStar:
		buf.WriteString("(re-star ")
		re.LHS.writeTo(buf)
		buf.WriteString(")")
	default:
		panic(fmt.Sprintf("zen.Regex: invalid kind: %d", re.Kind))
	}
}
