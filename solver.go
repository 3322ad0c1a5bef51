package zen

// Solver term handles. Each backend supplies its own concrete types; the
// evaluator threads them through without inspecting them. Passing a handle
// created by one backend to another is a programming error and panics
// inside the receiving backend.
type (
	// Model represents a satisfying assignment produced by a solver.
	Model interface{}

	// Var represents a solver variable created for an arbitrary value.
	Var interface{}

	// Bool represents a boolean term.
	Bool interface{}

	// Bitvec represents a fixed-width bitvector term.
	Bitvec interface{}

	// Integer represents an unbounded integer term.
	Integer interface{}

	// Real represents a rational term.
	Real interface{}

	// Seq represents a sequence or string term.
	Seq interface{}

	// Array represents a map term backed by an array theory.
	Array interface{}

	// Set represents a finite set term.
	Set interface{}

	// Term represents any of the term handles above.
	Term interface{}
)

// Solver represents the capabilities every backend must provide: boolean
// structure, fixed-width bitvector arithmetic, and satisfiability checks.
// Optional theories are expressed as additional interfaces that backends
// may implement; the evaluator discovers them by type assertion.
//
// Variable constructors are idempotent per node: calling them twice with
// the same arbitrary expression returns the same variable.
type Solver interface {
	// Name returns the backend name used in error messages.
	Name() string

	True() Bool
	False() Bool
	And(a, b Bool) Bool
	Or(a, b Bool) Bool
	Not(a Bool) Bool
	Iff(a, b Bool) Bool
	IteBool(guard, a, b Bool) Bool
	BoolVar(node *ArbitraryExpr) (Var, Bool)

	BitvecConst(value uint64, width uint) Bitvec
	BitvecVar(node *ArbitraryExpr) (Var, Bitvec)

	// BitvecBinary applies an arithmetic or bitwise operator. Backends
	// return an error wrapping ErrUnsupportedExpr for operators they
	// cannot express.
	BitvecBinary(op BinaryOp, a, b Bitvec) (Bitvec, error)

	// BitvecCompare applies one of the canonical ordered comparisons:
	// ULT, ULE, SLT, or SLE.
	BitvecCompare(op BinaryOp, a, b Bitvec) (Bool, error)

	BitvecEq(a, b Bitvec) Bool
	BitvecNot(a Bitvec) Bitvec

	// BitvecResize converts a bitvector between widths. Widening extends
	// by sign when signed is true and by zero otherwise.
	BitvecResize(a Bitvec, from, to uint, signed bool) Bitvec

	IteBitvec(guard Bool, a, b Bitvec) Bitvec

	// Satisfiable reports whether the condition can be made true. The
	// model is valid only when ok is true.
	Satisfiable(cond Bool) (model Model, ok bool, err error)

	// Value extracts the assignment of a variable from a model.
	Value(model Model, v Var) (Literal, error)
}

// IntegerSolver is implemented by backends with an unbounded integer
// theory.
type IntegerSolver interface {
	IntegerConst(value int64) Integer
	IntegerVar(node *ArbitraryExpr) (Var, Integer)
	IntegerBinary(op BinaryOp, a, b Integer) (Integer, error)
	IntegerCompare(op BinaryOp, a, b Integer) (Bool, error)
	IntegerEq(a, b Integer) Bool
	IteInteger(guard Bool, a, b Integer) Integer
}

// RealSolver is implemented by backends with a rational theory.
type RealSolver interface {
	RealConst(value int64) Real
	RealVar(node *ArbitraryExpr) (Var, Real)
	RealBinary(op BinaryOp, a, b Real) (Real, error)
	RealCompare(op BinaryOp, a, b Real) (Bool, error)
	RealEq(a, b Real) Bool
	IteReal(guard Bool, a, b Real) Real
}

// SeqSolver is implemented by backends with a sequence and string theory.
// Indices and lengths are unbounded integer terms.
type SeqSolver interface {
	SeqConst(value string) Seq
	SeqEmpty(typ SeqType) (Seq, error)
	SeqVar(node *ArbitraryExpr) (Var, Seq, error)
	SeqConcat(a, b Seq) Seq
	SeqLength(a Seq) Integer
	SeqAt(a Seq, index Integer) Seq
	SeqContains(op SeqContainsOp, seq, sub Seq) Bool
	SeqIndexOf(seq, sub Seq, offset Integer) Integer
	SeqSlice(seq Seq, offset, length Integer) Seq
	SeqReplaceFirst(seq, old, new Seq) Seq
	SeqMatch(seq Seq, regex *Regex) (Bool, error)
	SeqEq(a, b Seq) Bool
	IteSeq(guard Bool, a, b Seq) Seq
}

// MapSolver is implemented by backends that model maps with symbolic keys
// over an array theory.
type MapSolver interface {
	MapEmpty(typ MapType) (Array, error)
	MapVar(node *ArbitraryExpr) (Var, Array, error)
	MapSet(m Array, key, value Term) Array
	MapDelete(m Array, key Term) Array

	// MapGet returns a found flag and the stored value. Absent keys
	// read as the value type's default.
	MapGet(m Array, key Term) (Bool, Term)

	MapEq(a, b Array) Bool
	IteMap(guard Bool, a, b Array) Array
}

// SetSolver is implemented by backends with a finite set theory.
type SetSolver interface {
	SetEmpty(typ SetType) (Set, error)
	SetVar(node *ArbitraryExpr) (Var, Set, error)
	SetAdd(s Set, elem Term) Set
	SetDelete(s Set, elem Term) Set
	SetContains(s Set, elem Term) Bool
	SetCombine(op SetOp, a, b Set) Set
	SetSize(s Set) Integer
	SetEq(a, b Set) Bool
	IteSet(guard Bool, a, b Set) Set
}

// Optimizer is implemented by backends that can maximize or minimize an
// objective term subject to a constraint. The returned literal is the
// optimal objective value; the model assigns all variables.
type Optimizer interface {
	Maximize(objective Term, constraint Bool) (Literal, Model, bool, error)
	Minimize(objective Term, constraint Bool) (Literal, Model, bool, error)
}
