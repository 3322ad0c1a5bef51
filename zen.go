package zen

import (
	"errors"
	"fmt"
)

// Standard widths.
const (
	WidthBool = 1
	Width8    = 8
	Width16   = 16
	Width32   = 32
	Width64   = 64
)

var (
	ErrSolverTimeout       = errors.New("Solver timeout")
	ErrSolverCanceled      = errors.New("Solver canceled")
	ErrSolverResourceLimit = errors.New("Solver resource limit")
	ErrSolverUnknown       = errors.New("Solver unknown error")

	// ErrUnsupportedExpr is returned when an expression cannot be represented
	// by the selected backend. Errors wrapping it name the backend and the
	// offending construct.
	ErrUnsupportedExpr = errors.New("unsupported expression")
)

// Literal represents a concrete value carried by a constant expression or
// extracted from a model. It is one of: bool, int64, uint64, or string.
// Fixed-width integer constants are stored as two's complement uint64
// internally; model extraction returns int64 for signed types and chars.
type Literal = interface{}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
