package zen

import (
	"fmt"
	"strings"
)

// Expr represents a node in an immutable expression DAG. Nodes are built
// once through their constructors and never mutated afterward, so shared
// subexpressions can be referenced from multiple parents and memoized by
// node identity.
type Expr interface {
	expr()
	String() string
}

func (*ConstantExpr) expr()        {}
func (*ArbitraryExpr) expr()       {}
func (*ParamExpr) expr()           {}
func (*NotExpr) expr()             {}
func (*BinaryExpr) expr()          {}
func (*EqExpr) expr()              {}
func (*IfExpr) expr()              {}
func (*GetFieldExpr) expr()        {}
func (*WithFieldExpr) expr()       {}
func (*CreateObjectExpr) expr()    {}
func (*ListEmptyExpr) expr()       {}
func (*ListAddFrontExpr) expr()    {}
func (*ListCaseExpr) expr()        {}
func (*MapEmptyExpr) expr()        {}
func (*MapSetExpr) expr()          {}
func (*MapDeleteExpr) expr()       {}
func (*MapGetExpr) expr()          {}
func (*SetEmptyExpr) expr()        {}
func (*SetAddExpr) expr()          {}
func (*SetDeleteExpr) expr()       {}
func (*SetContainsExpr) expr()     {}
func (*SetCombineExpr) expr()      {}
func (*SetSizeExpr) expr()         {}
func (*ConstMapSetExpr) expr()     {}
func (*ConstMapDeleteExpr) expr()  {}
func (*ConstMapGetExpr) expr()     {}
func (*SeqConcatExpr) expr()       {}
func (*SeqLengthExpr) expr()       {}
func (*SeqAtExpr) expr()           {}
func (*SeqContainsExpr) expr()     {}
func (*SeqIndexOfExpr) expr()      {}
func (*SeqSliceExpr) expr()        {}
func (*SeqReplaceFirstExpr) expr() {}
func (*SeqMatchExpr) expr()        {}
func (*CastExpr) expr()            {}

// BinaryOp represents an operator for a BinaryExpr.
type BinaryOp int

const (
	arithmetic_op_begin = BinaryOp(iota)
	ADD
	SUB
	MUL
	UDIV
	SDIV
	UREM
	SREM
	AND
	OR
	XOR
	SHL
	LSHR
	ASHR
	arithmetic_op_end

	compare_op_begin
	ULT
	ULE
	UGT
	UGE
	SLT
	SLE
	SGT
	SGE
	compare_op_end
)

var binaryOps = [...]string{
	ADD:  "add",
	SUB:  "sub",
	MUL:  "mul",
	UDIV: "udiv",
	SDIV: "sdiv",
	UREM: "urem",
	SREM: "srem",
	AND:  "and",
	OR:   "or",
	XOR:  "xor",
	SHL:  "shl",
	LSHR: "lshr",
	ASHR: "ashr",

	ULT: "ult",
	ULE: "ule",
	UGT: "ugt",
	UGE: "uge",
	SLT: "slt",
	SLE: "sle",
	SGT: "sgt",
	SGE: "sge",
}

// IsArithmetic returns true if op is an arithmetic or bitwise operator.
func (op BinaryOp) IsArithmetic() bool {
	return op > arithmetic_op_begin && op < arithmetic_op_end
}

// IsCompare returns true if op is an ordered comparison operator.
func (op BinaryOp) IsCompare() bool {
	return op > compare_op_begin && op < compare_op_end
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOps) && binaryOps[op] != "" {
		return binaryOps[op]
	}
	return fmt.Sprintf("BinaryOp<%d>", op)
}

// SetOp represents an operator for a SetCombineExpr.
type SetOp int

const (
	UNION = SetOp(iota)
	INTERSECT
	DIFFERENCE
)

var setOps = [...]string{
	UNION:      "union",
	INTERSECT:  "intersect",
	DIFFERENCE: "difference",
}

func (op SetOp) String() string {
	if int(op) < len(setOps) {
		return setOps[op]
	}
	return fmt.Sprintf("SetOp<%d>", op)
}

// SeqContainsOp represents an operator for a SeqContainsExpr.
type SeqContainsOp int

const (
	PREFIXOF = SeqContainsOp(iota)
	SUFFIXOF
	CONTAINS
)

var seqContainsOps = [...]string{
	PREFIXOF: "prefixof",
	SUFFIXOF: "suffixof",
	CONTAINS: "contains",
}

func (op SeqContainsOp) String() string {
	if int(op) < len(seqContainsOps) {
		return seqContainsOps[op]
	}
	return fmt.Sprintf("SeqContainsOp<%d>", op)
}

// ConstantExpr represents a literal value. Fixed-width integers and chars
// are stored as two's complement uint64 values masked to their width.
type ConstantExpr struct {
	Type  Type
	Value Literal
}

// NewBoolConstantExpr returns a boolean constant.
func NewBoolConstantExpr(value bool) *ConstantExpr {
	return &ConstantExpr{Type: BoolType{}, Value: value}
}

// NewIntConstantExpr returns a fixed-width integer constant. The value is
// masked to the type's width.
func NewIntConstantExpr(value uint64, typ IntType) *ConstantExpr {
	assert(typ.Width > 0 && typ.Width <= Width64, "int constant: invalid width: %d", typ.Width)
	return &ConstantExpr{Type: typ, Value: value & bitmask(typ.Width)}
}

// NewInt64ConstantExpr returns a fixed-width integer constant from a signed
// value. The value is truncated to the type's width.
func NewInt64ConstantExpr(value int64, typ IntType) *ConstantExpr {
	return NewIntConstantExpr(uint64(value), typ)
}

// NewCharConstantExpr returns a char constant for the given code point.
func NewCharConstantExpr(r rune) *ConstantExpr {
	return &ConstantExpr{Type: CharType{}, Value: uint64(uint32(r))}
}

// NewBigConstantExpr returns an unbounded integer constant.
func NewBigConstantExpr(value int64) *ConstantExpr {
	return &ConstantExpr{Type: BigType{}, Value: value}
}

// NewRealConstantExpr returns a whole-valued real constant.
func NewRealConstantExpr(value int64) *ConstantExpr {
	return &ConstantExpr{Type: RealType{}, Value: value}
}

// NewStringConstantExpr returns a string constant.
func NewStringConstantExpr(value string) *ConstantExpr {
	return &ConstantExpr{Type: StringType{}, Value: value}
}

// NewEmptySeqExpr returns an empty sequence constant.
func NewEmptySeqExpr(typ SeqType) *ConstantExpr {
	if _, ok := typ.Elem.(CharType); ok {
		return &ConstantExpr{Type: typ, Value: ""}
	}
	return &ConstantExpr{Type: typ, Value: nil}
}

// NewEmptyConstMapExpr returns an empty constant-keyed map.
func NewEmptyConstMapExpr(typ ConstMapType) *ConstantExpr {
	return &ConstantExpr{Type: typ, Value: nil}
}

// Bool returns the value of a boolean constant.
func (e *ConstantExpr) Bool() bool {
	v, ok := e.Value.(bool)
	assert(ok, "constant is not boolean: %s", e)
	return v
}

// IsTrue returns true if e is the boolean constant true.
func (e *ConstantExpr) IsTrue() bool {
	v, ok := e.Value.(bool)
	return ok && v
}

// IsFalse returns true if e is the boolean constant false.
func (e *ConstantExpr) IsFalse() bool {
	v, ok := e.Value.(bool)
	return ok && !v
}

// Uint64 returns the raw two's complement value of a fixed-width constant.
func (e *ConstantExpr) Uint64() uint64 {
	v, ok := e.Value.(uint64)
	assert(ok, "constant is not fixed-width: %s", e)
	return v
}

// Int64 returns the signed value of an integer constant. Fixed-width
// values are sign extended from their width.
func (e *ConstantExpr) Int64() int64 {
	switch v := e.Value.(type) {
	case int64:
		return v
	case uint64:
		return signExtend(v, e.width())
	default:
		assert(false, "constant is not an integer: %s", e)
		return 0
	}
}

// Str returns the value of a string constant.
func (e *ConstantExpr) Str() string {
	v, ok := e.Value.(string)
	assert(ok, "constant is not a string: %s", e)
	return v
}

// IsZero returns true if e is a fixed-width constant equal to zero.
func (e *ConstantExpr) IsZero() bool {
	v, ok := e.Value.(uint64)
	return ok && v == 0
}

// IsAllOnes returns true if every bit of a fixed-width constant is set.
func (e *ConstantExpr) IsAllOnes() bool {
	v, ok := e.Value.(uint64)
	return ok && v == bitmask(e.width())
}

func (e *ConstantExpr) width() uint {
	w, ok := BitSize(e.Type)
	assert(ok, "constant has no fixed width: %s", e.Type)
	return w
}

func (e *ConstantExpr) mask(value uint64) *ConstantExpr {
	return &ConstantExpr{Type: e.Type, Value: value & bitmask(e.width())}
}

// Add returns the sum of e and other.
func (e *ConstantExpr) Add(other *ConstantExpr) *ConstantExpr {
	return e.mask(e.Uint64() + other.Uint64())
}

// Sub returns the difference of e and other.
func (e *ConstantExpr) Sub(other *ConstantExpr) *ConstantExpr {
	return e.mask(e.Uint64() - other.Uint64())
}

// Mul returns the product of e and other.
func (e *ConstantExpr) Mul(other *ConstantExpr) *ConstantExpr {
	return e.mask(e.Uint64() * other.Uint64())
}

// UDiv returns the quotient of unsigned division of e by other.
func (e *ConstantExpr) UDiv(other *ConstantExpr) *ConstantExpr {
	assert(!other.IsZero(), "udiv: division by zero")
	return e.mask(e.Uint64() / other.Uint64())
}

// SDiv returns the quotient of signed division of e by other.
func (e *ConstantExpr) SDiv(other *ConstantExpr) *ConstantExpr {
	assert(!other.IsZero(), "sdiv: division by zero")
	return e.mask(uint64(e.Int64() / other.Int64()))
}

// URem returns the remainder of unsigned division of e by other.
func (e *ConstantExpr) URem(other *ConstantExpr) *ConstantExpr {
	assert(!other.IsZero(), "urem: division by zero")
	return e.mask(e.Uint64() % other.Uint64())
}

// SRem returns the remainder of signed division of e by other.
func (e *ConstantExpr) SRem(other *ConstantExpr) *ConstantExpr {
	assert(!other.IsZero(), "srem: division by zero")
	return e.mask(uint64(e.Int64() % other.Int64()))
}

// And returns the bitwise and of e and other.
func (e *ConstantExpr) And(other *ConstantExpr) *ConstantExpr {
	return e.mask(e.Uint64() & other.Uint64())
}

// Or returns the bitwise or of e and other.
func (e *ConstantExpr) Or(other *ConstantExpr) *ConstantExpr {
	return e.mask(e.Uint64() | other.Uint64())
}

// Xor returns the bitwise exclusive or of e and other.
func (e *ConstantExpr) Xor(other *ConstantExpr) *ConstantExpr {
	return e.mask(e.Uint64() ^ other.Uint64())
}

// Not returns the bitwise complement of e.
func (e *ConstantExpr) Not() *ConstantExpr {
	return e.mask(^e.Uint64())
}

// Shl returns e shifted left by other bits.
func (e *ConstantExpr) Shl(other *ConstantExpr) *ConstantExpr {
	shift := other.Uint64()
	if shift >= uint64(e.width()) {
		return e.mask(0)
	}
	return e.mask(e.Uint64() << shift)
}

// LShr returns e logically shifted right by other bits.
func (e *ConstantExpr) LShr(other *ConstantExpr) *ConstantExpr {
	shift := other.Uint64()
	if shift >= uint64(e.width()) {
		return e.mask(0)
	}
	return e.mask(e.Uint64() >> shift)
}

// AShr returns e arithmetically shifted right by other bits.
func (e *ConstantExpr) AShr(other *ConstantExpr) *ConstantExpr {
	shift := other.Uint64()
	if shift >= uint64(e.width()) {
		shift = uint64(e.width()) - 1
	}
	return e.mask(uint64(signExtend(e.Uint64(), e.width()) >> shift))
}

// Resize returns e converted to the given fixed-width type. Narrowing
// truncates; widening extends by the sign of e's own type.
func (e *ConstantExpr) Resize(to Type) *ConstantExpr {
	w, ok := BitSize(to)
	assert(ok, "resize: target type has no fixed width: %s", to)
	value := e.Uint64()
	if w > e.width() && isSignedType(e.Type) {
		value = uint64(signExtend(value, e.width()))
	}
	return &ConstantExpr{Type: to, Value: value & bitmask(w)}
}

// Ult returns true if e is unsigned less than other.
func (e *ConstantExpr) Ult(other *ConstantExpr) bool { return e.Uint64() < other.Uint64() }

// Ule returns true if e is unsigned less than or equal to other.
func (e *ConstantExpr) Ule(other *ConstantExpr) bool { return e.Uint64() <= other.Uint64() }

// Slt returns true if e is signed less than other.
func (e *ConstantExpr) Slt(other *ConstantExpr) bool { return e.Int64() < other.Int64() }

// Sle returns true if e is signed less than or equal to other.
func (e *ConstantExpr) Sle(other *ConstantExpr) bool { return e.Int64() <= other.Int64() }

func (e *ConstantExpr) String() string {
	return fmt.Sprintf("(const %s %s)", formatLiteral(e.Value), e.Type)
}

// bitmask returns a mask of w low bits.
func bitmask(w uint) uint64 {
	if w >= Width64 {
		return ^uint64(0)
	}
	return (uint64(1) << w) - 1
}

// signExtend interprets the low w bits of value as a two's complement
// signed integer.
func signExtend(value uint64, w uint) int64 {
	shift := Width64 - w
	return int64(value<<shift) >> shift
}

func isSignedType(t Type) bool {
	it, ok := t.(IntType)
	return ok && it.Signed
}

func isNumericType(t Type) bool {
	switch t.(type) {
	case IntType, CharType, BigType, RealType:
		return true
	default:
		return false
	}
}

func isFixedWidthType(t Type) bool {
	_, ok := BitSize(t)
	return ok
}

func isConstantExpr(expr Expr) bool {
	_, ok := expr.(*ConstantExpr)
	return ok
}

// ArbitraryExpr represents an unknown input chosen by the solver. Each
// distinct node maps to exactly one solver variable.
type ArbitraryExpr struct {
	Type Type
	Name string
}

// NewArbitraryExpr returns a new arbitrary value of the given type.
func NewArbitraryExpr(typ Type, name string) *ArbitraryExpr {
	return &ArbitraryExpr{Type: typ, Name: name}
}

func (e *ArbitraryExpr) String() string {
	name := e.Name
	if name == "" {
		name = "_"
	}
	return fmt.Sprintf("(arb %s %s)", name, e.Type)
}

// ParamExpr represents a bound parameter introduced by a list case
// expression. Parameters are resolved through an Env.
type ParamExpr struct {
	Type Type
	ID   uint64
}

var nextParamID uint64

// NewParamExpr returns a new parameter with a process-unique identifier.
func NewParamExpr(typ Type) *ParamExpr {
	nextParamID++
	return &ParamExpr{Type: typ, ID: nextParamID}
}

func (e *ParamExpr) String() string { return fmt.Sprintf("(param %d %s)", e.ID, e.Type) }

// NotExpr represents a logical complement of a boolean expression or a
// bitwise complement of a fixed-width integer expression.
type NotExpr struct {
	Input Expr
}

// NewNotExpr returns an expression complementing input.
func NewNotExpr(input Expr) Expr {
	typ := TypeOf(input)
	assert(isBoolType(typ) || isFixedWidthType(typ), "not: invalid operand type: %s", typ)

	if input, ok := input.(*ConstantExpr); ok {
		if isBoolType(typ) {
			return NewBoolConstantExpr(!input.Bool())
		}
		return input.Not()
	}

	// Double negation cancels out.
	if input, ok := input.(*NotExpr); ok {
		return input.Input
	}
	return &NotExpr{Input: input}
}

func (e *NotExpr) String() string { return fmt.Sprintf("(not %s)", e.Input) }

// BinaryExpr represents an arithmetic, bitwise, or ordered comparison
// operation over two operands of the same type.
type BinaryExpr struct {
	Op  BinaryOp
	LHS Expr
	RHS Expr
}

// NewBinaryExpr returns an expression combining two operands with op.
// The constructor folds constants and normalizes operand order where the
// operator allows, so the result may not be a *BinaryExpr. Greater-than
// comparisons are stored as less-than comparisons with swapped operands.
func NewBinaryExpr(op BinaryOp, lhs, rhs Expr) Expr {
	switch op {
	case ADD:
		return newAddExpr(lhs, rhs)
	case SUB:
		return newSubExpr(lhs, rhs)
	case MUL:
		return newMulExpr(lhs, rhs)
	case UDIV, SDIV, UREM, SREM:
		return newDivExpr(op, lhs, rhs)
	case AND:
		return newAndExpr(lhs, rhs)
	case OR:
		return newOrExpr(lhs, rhs)
	case XOR:
		return newXorExpr(lhs, rhs)
	case SHL, LSHR, ASHR:
		return newShiftExpr(op, lhs, rhs)
	case ULT, ULE, SLT, SLE:
		return newCompareExpr(op, lhs, rhs)
	case UGT:
		return newCompareExpr(ULT, rhs, lhs)
	case UGE:
		return newCompareExpr(ULE, rhs, lhs)
	case SGT:
		return newCompareExpr(SLT, rhs, lhs)
	case SGE:
		return newCompareExpr(SLE, rhs, lhs)
	default:
		panic(fmt.Sprintf("zen.NewBinaryExpr: invalid op: %d", op))
	}
}

func binaryOperandType(op BinaryOp, lhs, rhs Expr) Type {
	typ := TypeOf(lhs)
	assert(TypesEqual(typ, TypeOf(rhs)), "%s: operand type mismatch: %s != %s", op, typ, TypeOf(rhs))
	return typ
}

func newAddExpr(lhs, rhs Expr) Expr {
	typ := binaryOperandType(ADD, lhs, rhs)

	// Boolean addition is equivalent to exclusive or.
	if isBoolType(typ) {
		return newXorExpr(lhs, rhs)
	}
	assert(isNumericType(typ), "add: invalid operand type: %s", typ)

	// Normalize constants to the left-hand side.
	if !isConstantExpr(lhs) && isConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	if lhs, ok := lhs.(*ConstantExpr); ok && isFixedWidthType(typ) {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Add(rhs)
		}

		// 0 + X == X
		if lhs.IsZero() {
			return rhs
		}

		if rhs, ok := rhs.(*BinaryExpr); ok {
			if rlhs, ok := rhs.LHS.(*ConstantExpr); ok {
				switch rhs.Op {
				case ADD: // C1 + (C2 + X) == (C1 + C2) + X
					return newAddExpr(lhs.Add(rlhs), rhs.RHS)
				case SUB: // C1 + (C2 - X) == (C1 + C2) - X
					return newSubExpr(lhs.Add(rlhs), rhs.RHS)
				}
			}
		}
	}
	return &BinaryExpr{Op: ADD, LHS: lhs, RHS: rhs}
}

func newSubExpr(lhs, rhs Expr) Expr {
	typ := binaryOperandType(SUB, lhs, rhs)

	// Boolean subtraction is equivalent to exclusive or.
	if isBoolType(typ) {
		return newXorExpr(lhs, rhs)
	}
	assert(isNumericType(typ), "sub: invalid operand type: %s", typ)

	// X - X == 0
	if lhs == rhs {
		return zeroConstant(typ)
	}

	if isFixedWidthType(typ) {
		// X - C == -C + X
		if rc, ok := rhs.(*ConstantExpr); ok {
			if lc, ok := lhs.(*ConstantExpr); ok {
				return lc.Sub(rc)
			}
			return newAddExpr(rc.mask(0).Sub(rc), lhs)
		}

		if lhs, ok := lhs.(*ConstantExpr); ok {
			if rhs, ok := rhs.(*BinaryExpr); ok {
				if rlhs, ok := rhs.LHS.(*ConstantExpr); ok {
					switch rhs.Op {
					case ADD: // C1 - (C2 + X) == (C1 - C2) - X
						return newSubExpr(lhs.Sub(rlhs), rhs.RHS)
					case SUB: // C1 - (C2 - X) == (C1 - C2) + X
						return newAddExpr(lhs.Sub(rlhs), rhs.RHS)
					}
				}
			}
		}
	}
	return &BinaryExpr{Op: SUB, LHS: lhs, RHS: rhs}
}

func newMulExpr(lhs, rhs Expr) Expr {
	typ := binaryOperandType(MUL, lhs, rhs)

	// Boolean multiplication is equivalent to and.
	if isBoolType(typ) {
		return newAndExpr(lhs, rhs)
	}
	assert(isNumericType(typ), "mul: invalid operand type: %s", typ)

	// Normalize constants to the left-hand side.
	if !isConstantExpr(lhs) && isConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	if lhs, ok := lhs.(*ConstantExpr); ok && isFixedWidthType(typ) {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Mul(rhs)
		}

		// 0 * X == 0
		if lhs.IsZero() {
			return lhs
		}
		// 1 * X == X
		if lhs.Uint64() == 1 {
			return rhs
		}
	}
	return &BinaryExpr{Op: MUL, LHS: lhs, RHS: rhs}
}

func newDivExpr(op BinaryOp, lhs, rhs Expr) Expr {
	typ := binaryOperandType(op, lhs, rhs)
	assert(isNumericType(typ), "%s: invalid operand type: %s", op, typ)

	if !isFixedWidthType(typ) {
		// Unbounded division is always signed.
		assert(op == SDIV || op == SREM, "%s: invalid operand type: %s", op, typ)
		return &BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
	}

	if rhs, ok := rhs.(*ConstantExpr); ok && !rhs.IsZero() {
		// X / 1 == X, X % 1 == 0
		if rhs.Uint64() == 1 {
			switch op {
			case UDIV, SDIV:
				return lhs
			default:
				return zeroConstant(typ)
			}
		}

		if lhs, ok := lhs.(*ConstantExpr); ok {
			switch op {
			case UDIV:
				return lhs.UDiv(rhs)
			case SDIV:
				return lhs.SDiv(rhs)
			case UREM:
				return lhs.URem(rhs)
			default:
				return lhs.SRem(rhs)
			}
		}
	}
	return &BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
}

func newAndExpr(lhs, rhs Expr) Expr {
	typ := binaryOperandType(AND, lhs, rhs)
	assert(isBoolType(typ) || isFixedWidthType(typ), "and: invalid operand type: %s", typ)

	// X & X == X
	if lhs == rhs {
		return lhs
	}

	// Normalize constants to the left-hand side.
	if !isConstantExpr(lhs) && isConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	if lhs, ok := lhs.(*ConstantExpr); ok {
		if isBoolType(typ) {
			if lhs.IsFalse() {
				return lhs
			}
			return rhs
		}
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.And(rhs)
		}
		if lhs.IsZero() {
			return lhs
		}
		if lhs.IsAllOnes() {
			return rhs
		}
	}
	return &BinaryExpr{Op: AND, LHS: lhs, RHS: rhs}
}

func newOrExpr(lhs, rhs Expr) Expr {
	typ := binaryOperandType(OR, lhs, rhs)
	assert(isBoolType(typ) || isFixedWidthType(typ), "or: invalid operand type: %s", typ)

	// X | X == X
	if lhs == rhs {
		return lhs
	}

	// Normalize constants to the left-hand side.
	if !isConstantExpr(lhs) && isConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	if lhs, ok := lhs.(*ConstantExpr); ok {
		if isBoolType(typ) {
			if lhs.IsTrue() {
				return lhs
			}
			return rhs
		}
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Or(rhs)
		}
		if lhs.IsZero() {
			return rhs
		}
		if lhs.IsAllOnes() {
			return lhs
		}
	}
	return &BinaryExpr{Op: OR, LHS: lhs, RHS: rhs}
}

func newXorExpr(lhs, rhs Expr) Expr {
	typ := binaryOperandType(XOR, lhs, rhs)
	assert(isBoolType(typ) || isFixedWidthType(typ), "xor: invalid operand type: %s", typ)

	// X ^ X == 0
	if lhs == rhs {
		return zeroConstant(typ)
	}

	// Normalize constants to the left-hand side.
	if !isConstantExpr(lhs) && isConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	if lhs, ok := lhs.(*ConstantExpr); ok {
		if isBoolType(typ) {
			if lhs.IsFalse() {
				return rhs
			}
			return NewNotExpr(rhs)
		}
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Xor(rhs)
		}
		if lhs.IsZero() {
			return rhs
		}
	}
	return &BinaryExpr{Op: XOR, LHS: lhs, RHS: rhs}
}

func newShiftExpr(op BinaryOp, lhs, rhs Expr) Expr {
	typ := binaryOperandType(op, lhs, rhs)
	assert(isFixedWidthType(typ) && !isBoolType(typ), "%s: invalid operand type: %s", op, typ)

	if rhs, ok := rhs.(*ConstantExpr); ok {
		// X shift 0 == X
		if rhs.IsZero() {
			return lhs
		}

		if lhs, ok := lhs.(*ConstantExpr); ok {
			switch op {
			case SHL:
				return lhs.Shl(rhs)
			case LSHR:
				return lhs.LShr(rhs)
			default:
				return lhs.AShr(rhs)
			}
		}
	}
	return &BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
}

func newCompareExpr(op BinaryOp, lhs, rhs Expr) Expr {
	typ := binaryOperandType(op, lhs, rhs)
	assert(isNumericType(typ), "%s: invalid operand type: %s", op, typ)
	strict := op == ULT || op == SLT

	// X < X == false, X <= X == true
	if lhs == rhs {
		return NewBoolConstantExpr(!strict)
	}

	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			switch op {
			case ULT:
				return NewBoolConstantExpr(lhs.Ult(rhs))
			case ULE:
				return NewBoolConstantExpr(lhs.Ule(rhs))
			case SLT:
				return NewBoolConstantExpr(lhs.Slt(rhs))
			default:
				return NewBoolConstantExpr(lhs.Sle(rhs))
			}
		}
	}
	return &BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
}

// zeroConstant returns the zero constant for a numeric or boolean type.
func zeroConstant(typ Type) Expr {
	switch typ := typ.(type) {
	case BoolType:
		return NewBoolConstantExpr(false)
	case IntType:
		return NewIntConstantExpr(0, typ)
	case CharType:
		return NewCharConstantExpr(0)
	case BigType:
		return NewBigConstantExpr(0)
	case RealType:
		return NewRealConstantExpr(0)
	default:
		panic(fmt.Sprintf("zen.zeroConstant: invalid type: %s", typ))
	}
}

// NewLtExpr returns a less-than comparison using the signedness of the
// operand type.
func NewLtExpr(lhs, rhs Expr) Expr { return NewBinaryExpr(orderedOp(ULT, SLT, lhs), lhs, rhs) }

// NewLeExpr returns a less-than-or-equal comparison using the signedness
// of the operand type.
func NewLeExpr(lhs, rhs Expr) Expr { return NewBinaryExpr(orderedOp(ULE, SLE, lhs), lhs, rhs) }

// NewGtExpr returns a greater-than comparison using the signedness of the
// operand type.
func NewGtExpr(lhs, rhs Expr) Expr { return NewBinaryExpr(orderedOp(UGT, SGT, lhs), lhs, rhs) }

// NewGeExpr returns a greater-than-or-equal comparison using the
// signedness of the operand type.
func NewGeExpr(lhs, rhs Expr) Expr { return NewBinaryExpr(orderedOp(UGE, SGE, lhs), lhs, rhs) }

func orderedOp(unsigned, signed BinaryOp, lhs Expr) BinaryOp {
	switch typ := TypeOf(lhs).(type) {
	case IntType:
		if typ.Signed {
			return signed
		}
		return unsigned
	case CharType:
		return unsigned
	case BigType, RealType:
		return signed
	default:
		panic(fmt.Sprintf("zen.orderedOp: invalid operand type: %s", TypeOf(lhs)))
	}
}

func (e *BinaryExpr) String() string { return fmt.Sprintf("(%s %s %s)", e.Op, e.LHS, e.RHS) }

// EqExpr represents a structural equality comparison between two
// expressions of the same type. Equality is defined for every type,
// including objects, lists, maps, and sets.
type EqExpr struct {
	LHS Expr
	RHS Expr
}

// NewEqExpr returns an expression comparing lhs and rhs for equality.
func NewEqExpr(lhs, rhs Expr) Expr {
	typ := TypeOf(lhs)
	assert(TypesEqual(typ, TypeOf(rhs)), "eq: operand type mismatch: %s != %s", typ, TypeOf(rhs))

	// X == X is always true.
	if lhs == rhs {
		return NewBoolConstantExpr(true)
	}

	// Normalize constants to the left-hand side.
	if !isConstantExpr(lhs) && isConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	if lc, ok := lhs.(*ConstantExpr); ok {
		if rc, ok := rhs.(*ConstantExpr); ok {
			if eq, ok := constantEq(lc, rc); ok {
				return NewBoolConstantExpr(eq)
			}
			return &EqExpr{LHS: lhs, RHS: rhs}
		}

		// true == X simplifies to X, false == X to its complement.
		if isBoolType(typ) {
			if lc.IsTrue() {
				return rhs
			}
			return NewNotExpr(rhs)
		}

		if isFixedWidthType(typ) {
			if rhs, ok := rhs.(*BinaryExpr); ok {
				if rlhs, ok := rhs.LHS.(*ConstantExpr); ok {
					switch rhs.Op {
					case ADD: // C1 == C2 + X iff C1 - C2 == X
						return NewEqExpr(lc.Sub(rlhs), rhs.RHS)
					case SUB: // C1 == C2 - X iff C2 - C1 == X
						return NewEqExpr(rlhs.Sub(lc), rhs.RHS)
					}
				}
			}
		}
	}
	return &EqExpr{LHS: lhs, RHS: rhs}
}

// NewNeExpr returns an expression comparing lhs and rhs for inequality.
func NewNeExpr(lhs, rhs Expr) Expr {
	return NewNotExpr(NewEqExpr(lhs, rhs))
}

// constantEq compares two constants of the same type. Returns ok=false if
// the constants have no comparable literal form.
func constantEq(a, b *ConstantExpr) (eq, ok bool) {
	if a.Value == nil || b.Value == nil {
		return a.Value == nil && b.Value == nil, true
	}
	switch a.Value.(type) {
	case bool, uint64, int64, string:
		return a.Value == b.Value, true
	default:
		return false, false
	}
}

func (e *EqExpr) String() string { return fmt.Sprintf("(eq %s %s)", e.LHS, e.RHS) }

// IfExpr represents a conditional choice between two expressions of the
// same type.
type IfExpr struct {
	Cond  Expr
	True  Expr
	False Expr
}

// NewIfExpr returns an expression selecting between two branches.
func NewIfExpr(cond, trueExpr, falseExpr Expr) Expr {
	assert(isBoolType(TypeOf(cond)), "if: condition is not boolean: %s", TypeOf(cond))
	assert(TypesEqual(TypeOf(trueExpr), TypeOf(falseExpr)), "if: branch type mismatch: %s != %s", TypeOf(trueExpr), TypeOf(falseExpr))

	// Fold a constant condition to its branch.
	if cond, ok := cond.(*ConstantExpr); ok {
		if cond.Bool() {
			return trueExpr
		}
		return falseExpr
	}

	// Identical branches make the condition irrelevant.
	if trueExpr == falseExpr {
		return trueExpr
	}

	// Normalize a negated condition by swapping branches.
	if cond, ok := cond.(*NotExpr); ok {
		return NewIfExpr(cond.Input, falseExpr, trueExpr)
	}
	return &IfExpr{Cond: cond, True: trueExpr, False: falseExpr}
}

func (e *IfExpr) String() string { return fmt.Sprintf("(if %s %s %s)", e.Cond, e.True, e.False) }

// GetFieldExpr represents a field projection from an object.
type GetFieldExpr struct {
	Record Expr
	Field  string
}

// NewGetFieldExpr returns an expression projecting a field from record.
func NewGetFieldExpr(record Expr, field string) Expr {
	typ, ok := TypeOf(record).(ObjectType)
	assert(ok, "get: not an object: %s", TypeOf(record))
	_, ok = typ.Field(field)
	assert(ok, "get: no such field: %s in %s", field, typ)

	switch record := record.(type) {
	case *CreateObjectExpr:
		return record.Field(field)
	case *WithFieldExpr:
		if record.Field == field {
			return record.Value
		}
		return NewGetFieldExpr(record.Record, field)
	}
	return &GetFieldExpr{Record: record, Field: field}
}

func (e *GetFieldExpr) String() string { return fmt.Sprintf("(get %s %s)", e.Record, e.Field) }

// WithFieldExpr represents an object with a single field replaced.
type WithFieldExpr struct {
	Record Expr
	Field  string
	Value  Expr
}

// NewWithFieldExpr returns an expression replacing one field of record.
func NewWithFieldExpr(record Expr, field string, value Expr) Expr {
	typ, ok := TypeOf(record).(ObjectType)
	assert(ok, "with: not an object: %s", TypeOf(record))
	f, ok := typ.Field(field)
	assert(ok, "with: no such field: %s in %s", field, typ)
	assert(TypesEqual(f.Type, TypeOf(value)), "with: field type mismatch: %s != %s", f.Type, TypeOf(value))

	// Replace the field directly on a literal object.
	if record, ok := record.(*CreateObjectExpr); ok {
		fields := make([]Expr, len(record.Fields))
		copy(fields, record.Fields)
		for i, tf := range typ.Fields {
			if tf.Name == field {
				fields[i] = value
			}
		}
		return &CreateObjectExpr{Type: typ, Fields: fields}
	}
	return &WithFieldExpr{Record: record, Field: field, Value: value}
}

func (e *WithFieldExpr) String() string {
	return fmt.Sprintf("(with %s %s %s)", e.Record, e.Field, e.Value)
}

// CreateObjectExpr represents a literal object. Field expressions are
// stored in the order of the type's sorted fields.
type CreateObjectExpr struct {
	Type   ObjectType
	Fields []Expr
}

// NewCreateObjectExpr returns a literal object of the given type. The
// fields map must cover the type's fields exactly.
func NewCreateObjectExpr(typ ObjectType, fields map[string]Expr) *CreateObjectExpr {
	assert(len(fields) == len(typ.Fields), "object: field count mismatch: %d != %d", len(fields), len(typ.Fields))
	exprs := make([]Expr, len(typ.Fields))
	for i, f := range typ.Fields {
		value, ok := fields[f.Name]
		assert(ok, "object: missing field: %s", f.Name)
		assert(TypesEqual(f.Type, TypeOf(value)), "object: field type mismatch: %s: %s != %s", f.Name, f.Type, TypeOf(value))
		exprs[i] = value
	}
	return &CreateObjectExpr{Type: typ, Fields: exprs}
}

// Field returns the expression stored for the given field name.
func (e *CreateObjectExpr) Field(name string) Expr {
	for i, f := range e.Type.Fields {
		if f.Name == name {
			return e.Fields[i]
		}
	}
	assert(false, "object: no such field: %s", name)
	return nil
}

func (e *CreateObjectExpr) String() string {
	var buf strings.Builder
	buf.WriteString("(object")
	for i, f := range e.Type.Fields {
		fmt.Fprintf(&buf, " (%s %s)", f.Name, e.Fields[i])
	}
	buf.WriteString(")")
	return buf.String()
}

// ListEmptyExpr represents an empty list.
type ListEmptyExpr struct {
	Type ListType
}

// NewListEmptyExpr returns an empty list of the given element type.
func NewListEmptyExpr(elem Type) *ListEmptyExpr {
	return &ListEmptyExpr{Type: ListType{Elem: elem}}
}

func (e *ListEmptyExpr) String() string { return fmt.Sprintf("(empty-list %s)", e.Type.Elem) }

// ListAddFrontExpr represents a list with an element prepended.
type ListAddFrontExpr struct {
	List Expr
	Elem Expr
}

// NewListAddFrontExpr returns list with elem prepended.
func NewListAddFrontExpr(list, elem Expr) *ListAddFrontExpr {
	typ, ok := TypeOf(list).(ListType)
	assert(ok, "cons: not a list: %s", TypeOf(list))
	assert(TypesEqual(typ.Elem, TypeOf(elem)), "cons: element type mismatch: %s != %s", typ.Elem, TypeOf(elem))
	return &ListAddFrontExpr{List: list, Elem: elem}
}

func (e *ListAddFrontExpr) String() string { return fmt.Sprintf("(cons %s %s)", e.Elem, e.List) }

// ListCaseExpr represents structural case analysis of a list. Empty is
// the result when the list is empty; Cons produces the result from
// parameters bound to the head and tail otherwise. Cons is an opaque
// continuation instantiated once per possible length during evaluation.
type ListCaseExpr struct {
	List  Expr
	Empty Expr
	Cons  func(head, tail Expr) Expr
}

// NewListCaseExpr returns a case analysis over list.
func NewListCaseExpr(list, empty Expr, cons func(head, tail Expr) Expr) *ListCaseExpr {
	_, ok := TypeOf(list).(ListType)
	assert(ok, "match: not a list: %s", TypeOf(list))
	assert(cons != nil, "match: nil cons continuation")
	return &ListCaseExpr{List: list, Empty: empty, Cons: cons}
}

func (e *ListCaseExpr) String() string { return fmt.Sprintf("(match %s %s _)", e.List, e.Empty) }

// MapEmptyExpr represents an empty map with symbolic keys.
type MapEmptyExpr struct {
	Type MapType
}

// NewMapEmptyExpr returns an empty map of the given type.
func NewMapEmptyExpr(typ MapType) *MapEmptyExpr {
	return &MapEmptyExpr{Type: typ}
}

func (e *MapEmptyExpr) String() string {
	return fmt.Sprintf("(empty-map %s %s)", e.Type.Key, e.Type.Value)
}

// MapSetExpr represents a map with one key bound to a value.
type MapSetExpr struct {
	Map   Expr
	Key   Expr
	Value Expr
}

// NewMapSetExpr returns m with key bound to value.
func NewMapSetExpr(m, key, value Expr) *MapSetExpr {
	typ, ok := TypeOf(m).(MapType)
	assert(ok, "map-set: not a map: %s", TypeOf(m))
	assert(TypesEqual(typ.Key, TypeOf(key)), "map-set: key type mismatch: %s != %s", typ.Key, TypeOf(key))
	assert(TypesEqual(typ.Value, TypeOf(value)), "map-set: value type mismatch: %s != %s", typ.Value, TypeOf(value))
	return &MapSetExpr{Map: m, Key: key, Value: value}
}

func (e *MapSetExpr) String() string {
	return fmt.Sprintf("(map-set %s %s %s)", e.Map, e.Key, e.Value)
}

// MapDeleteExpr represents a map with one key removed.
type MapDeleteExpr struct {
	Map Expr
	Key Expr
}

// NewMapDeleteExpr returns m with key removed.
func NewMapDeleteExpr(m, key Expr) *MapDeleteExpr {
	typ, ok := TypeOf(m).(MapType)
	assert(ok, "map-del: not a map: %s", TypeOf(m))
	assert(TypesEqual(typ.Key, TypeOf(key)), "map-del: key type mismatch: %s != %s", typ.Key, TypeOf(key))
	return &MapDeleteExpr{Map: m, Key: key}
}

func (e *MapDeleteExpr) String() string { return fmt.Sprintf("(map-del %s %s)", e.Map, e.Key) }

// MapGetExpr represents a map lookup. The result is an option-shaped
// object with a "found" flag and a "value" field.
type MapGetExpr struct {
	Map Expr
	Key Expr
}

// NewMapGetExpr returns a lookup of key in m.
func NewMapGetExpr(m, key Expr) *MapGetExpr {
	typ, ok := TypeOf(m).(MapType)
	assert(ok, "map-get: not a map: %s", TypeOf(m))
	assert(TypesEqual(typ.Key, TypeOf(key)), "map-get: key type mismatch: %s != %s", typ.Key, TypeOf(key))
	return &MapGetExpr{Map: m, Key: key}
}

func (e *MapGetExpr) String() string { return fmt.Sprintf("(map-get %s %s)", e.Map, e.Key) }

// SetEmptyExpr represents an empty set.
type SetEmptyExpr struct {
	Type SetType
}

// NewSetEmptyExpr returns an empty set of the given type.
func NewSetEmptyExpr(typ SetType) *SetEmptyExpr {
	return &SetEmptyExpr{Type: typ}
}

func (e *SetEmptyExpr) String() string { return fmt.Sprintf("(empty-set %s)", e.Type.Elem) }

// SetAddExpr represents a set with an element added.
type SetAddExpr struct {
	Set  Expr
	Elem Expr
}

// NewSetAddExpr returns set with elem added.
func NewSetAddExpr(set, elem Expr) *SetAddExpr {
	typ, ok := TypeOf(set).(SetType)
	assert(ok, "set-add: not a set: %s", TypeOf(set))
	assert(TypesEqual(typ.Elem, TypeOf(elem)), "set-add: element type mismatch: %s != %s", typ.Elem, TypeOf(elem))
	return &SetAddExpr{Set: set, Elem: elem}
}

func (e *SetAddExpr) String() string { return fmt.Sprintf("(set-add %s %s)", e.Set, e.Elem) }

// SetDeleteExpr represents a set with an element removed.
type SetDeleteExpr struct {
	Set  Expr
	Elem Expr
}

// NewSetDeleteExpr returns set with elem removed.
func NewSetDeleteExpr(set, elem Expr) *SetDeleteExpr {
	typ, ok := TypeOf(set).(SetType)
	assert(ok, "set-del: not a set: %s", TypeOf(set))
	assert(TypesEqual(typ.Elem, TypeOf(elem)), "set-del: element type mismatch: %s != %s", typ.Elem, TypeOf(elem))
	return &SetDeleteExpr{Set: set, Elem: elem}
}

func (e *SetDeleteExpr) String() string { return fmt.Sprintf("(set-del %s %s)", e.Set, e.Elem) }

// SetContainsExpr represents a set membership test.
type SetContainsExpr struct {
	Set  Expr
	Elem Expr
}

// NewSetContainsExpr returns a membership test of elem in set.
func NewSetContainsExpr(set, elem Expr) *SetContainsExpr {
	typ, ok := TypeOf(set).(SetType)
	assert(ok, "set-has: not a set: %s", TypeOf(set))
	assert(TypesEqual(typ.Elem, TypeOf(elem)), "set-has: element type mismatch: %s != %s", typ.Elem, TypeOf(elem))
	return &SetContainsExpr{Set: set, Elem: elem}
}

func (e *SetContainsExpr) String() string { return fmt.Sprintf("(set-has %s %s)", e.Set, e.Elem) }

// SetCombineExpr represents a union, intersection, or difference of two
// sets of the same type.
type SetCombineExpr struct {
	Op  SetOp
	LHS Expr
	RHS Expr
}

// NewSetCombineExpr returns a combination of two sets.
func NewSetCombineExpr(op SetOp, lhs, rhs Expr) *SetCombineExpr {
	typ, ok := TypeOf(lhs).(SetType)
	assert(ok, "%s: not a set: %s", op, TypeOf(lhs))
	assert(TypesEqual(typ, TypeOf(rhs)), "%s: operand type mismatch: %s != %s", op, typ, TypeOf(rhs))
	return &SetCombineExpr{Op: op, LHS: lhs, RHS: rhs}
}

func (e *SetCombineExpr) String() string { return fmt.Sprintf("(%s %s %s)", e.Op, e.LHS, e.RHS) }

// SetSizeExpr represents the cardinality of a set as an unbounded integer.
type SetSizeExpr struct {
	Set Expr
}

// NewSetSizeExpr returns the cardinality of set.
func NewSetSizeExpr(set Expr) *SetSizeExpr {
	_, ok := TypeOf(set).(SetType)
	assert(ok, "set-size: not a set: %s", TypeOf(set))
	return &SetSizeExpr{Set: set}
}

func (e *SetSizeExpr) String() string { return fmt.Sprintf("(set-size %s)", e.Set) }

// ConstMapSetExpr represents a constant-keyed map with one key bound.
type ConstMapSetExpr struct {
	Map   Expr
	Key   Literal
	Value Expr
}

// NewConstMapSetExpr returns m with the constant key bound to value.
func NewConstMapSetExpr(m Expr, key Literal, value Expr) *ConstMapSetExpr {
	typ, ok := TypeOf(m).(ConstMapType)
	assert(ok, "cmap-set: not a const map: %s", TypeOf(m))
	assert(TypesEqual(typ.Value, TypeOf(value)), "cmap-set: value type mismatch: %s != %s", typ.Value, TypeOf(value))
	return &ConstMapSetExpr{Map: m, Key: canonLiteral(key, typ.Key), Value: value}
}

func (e *ConstMapSetExpr) String() string {
	return fmt.Sprintf("(cmap-set %s %s %s)", e.Map, formatLiteral(e.Key), e.Value)
}

// ConstMapDeleteExpr represents a constant-keyed map with one key removed.
type ConstMapDeleteExpr struct {
	Map Expr
	Key Literal
}

// NewConstMapDeleteExpr returns m with the constant key removed.
func NewConstMapDeleteExpr(m Expr, key Literal) *ConstMapDeleteExpr {
	typ, ok := TypeOf(m).(ConstMapType)
	assert(ok, "cmap-del: not a const map: %s", TypeOf(m))
	return &ConstMapDeleteExpr{Map: m, Key: canonLiteral(key, typ.Key)}
}

func (e *ConstMapDeleteExpr) String() string {
	return fmt.Sprintf("(cmap-del %s %s)", e.Map, formatLiteral(e.Key))
}

// ConstMapGetExpr represents a lookup of a constant key. Unset keys read
// as the default value of the map's value type.
type ConstMapGetExpr struct {
	Map Expr
	Key Literal
}

// NewConstMapGetExpr returns a lookup of the constant key in m.
func NewConstMapGetExpr(m Expr, key Literal) *ConstMapGetExpr {
	typ, ok := TypeOf(m).(ConstMapType)
	assert(ok, "cmap-get: not a const map: %s", TypeOf(m))
	return &ConstMapGetExpr{Map: m, Key: canonLiteral(key, typ.Key)}
}

func (e *ConstMapGetExpr) String() string {
	return fmt.Sprintf("(cmap-get %s %s)", e.Map, formatLiteral(e.Key))
}

// canonLiteral converts a constant key to the canonical literal form for
// the given key type so that equal keys compare equal.
func canonLiteral(key Literal, typ Type) Literal {
	switch typ := typ.(type) {
	case BoolType:
		v, ok := key.(bool)
		assert(ok, "literal: expected bool, got %T", key)
		return v
	case IntType:
		switch v := key.(type) {
		case uint64:
			return v & bitmask(typ.Width)
		case int64:
			return uint64(v) & bitmask(typ.Width)
		case int:
			return uint64(int64(v)) & bitmask(typ.Width)
		default:
			assert(false, "literal: expected integer, got %T", key)
			return nil
		}
	case CharType:
		switch v := key.(type) {
		case uint64:
			return v & bitmask(Width32)
		case int64:
			return uint64(v) & bitmask(Width32)
		case int32:
			return uint64(uint32(v))
		case int:
			return uint64(int64(v)) & bitmask(Width32)
		default:
			assert(false, "literal: expected char, got %T", key)
			return nil
		}
	case BigType:
		switch v := key.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		default:
			assert(false, "literal: expected integer, got %T", key)
			return nil
		}
	case StringType:
		v, ok := key.(string)
		assert(ok, "literal: expected string, got %T", key)
		return v
	default:
		assert(false, "literal: unsupported key type: %s", typ)
		return nil
	}
}

func formatLiteral(v Literal) string {
	switch v := v.(type) {
	case nil:
		return "empty"
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// SeqConcatExpr represents the concatenation of two sequences.
type SeqConcatExpr struct {
	LHS Expr
	RHS Expr
}

// NewSeqConcatExpr returns the concatenation of two sequences or strings.
func NewSeqConcatExpr(lhs, rhs Expr) Expr {
	typ := TypeOf(lhs)
	assert(isSeqType(typ), "concat: not a sequence: %s", typ)
	assert(TypesEqual(typ, TypeOf(rhs)), "concat: operand type mismatch: %s != %s", typ, TypeOf(rhs))

	if lc, ok := lhs.(*ConstantExpr); ok {
		if rc, ok := rhs.(*ConstantExpr); ok {
			if ls, ok := lc.Value.(string); ok {
				return &ConstantExpr{Type: typ, Value: ls + rc.Str()}
			}
			return lc // both empty
		}
		if isEmptySeqConstant(lc) {
			return rhs
		}
	}
	if rc, ok := rhs.(*ConstantExpr); ok && isEmptySeqConstant(rc) {
		return lhs
	}
	return &SeqConcatExpr{LHS: lhs, RHS: rhs}
}

func isEmptySeqConstant(e *ConstantExpr) bool {
	if e.Value == nil {
		return true
	}
	s, ok := e.Value.(string)
	return ok && s == ""
}

func (e *SeqConcatExpr) String() string { return fmt.Sprintf("(concat %s %s)", e.LHS, e.RHS) }

// SeqLengthExpr represents the length of a sequence as an unbounded
// integer.
type SeqLengthExpr struct {
	Seq Expr
}

// NewSeqLengthExpr returns the length of a sequence or string.
func NewSeqLengthExpr(seq Expr) Expr {
	assert(isSeqType(TypeOf(seq)), "length: not a sequence: %s", TypeOf(seq))
	if seq, ok := seq.(*ConstantExpr); ok {
		if s, ok := seq.Value.(string); ok {
			return NewBigConstantExpr(int64(len([]rune(s))))
		}
		return NewBigConstantExpr(0)
	}
	return &SeqLengthExpr{Seq: seq}
}

func (e *SeqLengthExpr) String() string { return fmt.Sprintf("(length %s)", e.Seq) }

// SeqAtExpr represents the subsequence of length at most one at an index.
type SeqAtExpr struct {
	Seq   Expr
	Index Expr
}

// NewSeqAtExpr returns the unit subsequence of seq at index. An index out
// of range yields the empty sequence.
func NewSeqAtExpr(seq, index Expr) *SeqAtExpr {
	assert(isSeqType(TypeOf(seq)), "at: not a sequence: %s", TypeOf(seq))
	assertBigType("at", index)
	return &SeqAtExpr{Seq: seq, Index: index}
}

func (e *SeqAtExpr) String() string { return fmt.Sprintf("(at %s %s)", e.Seq, e.Index) }

// SeqContainsExpr represents a prefix, suffix, or substring test.
type SeqContainsExpr struct {
	Op  SeqContainsOp
	Seq Expr
	Sub Expr
}

// NewSeqContainsExpr returns a containment test of sub against seq.
func NewSeqContainsExpr(op SeqContainsOp, seq, sub Expr) *SeqContainsExpr {
	typ := TypeOf(seq)
	assert(isSeqType(typ), "%s: not a sequence: %s", op, typ)
	assert(TypesEqual(typ, TypeOf(sub)), "%s: operand type mismatch: %s != %s", op, typ, TypeOf(sub))
	return &SeqContainsExpr{Op: op, Seq: seq, Sub: sub}
}

func (e *SeqContainsExpr) String() string { return fmt.Sprintf("(%s %s %s)", e.Op, e.Sub, e.Seq) }

// SeqIndexOfExpr represents the index of the first occurrence of a
// subsequence at or after an offset, or -1 if none exists.
type SeqIndexOfExpr struct {
	Seq    Expr
	Sub    Expr
	Offset Expr
}

// NewSeqIndexOfExpr returns the index of sub within seq starting at
// offset.
func NewSeqIndexOfExpr(seq, sub, offset Expr) *SeqIndexOfExpr {
	typ := TypeOf(seq)
	assert(isSeqType(typ), "indexof: not a sequence: %s", typ)
	assert(TypesEqual(typ, TypeOf(sub)), "indexof: operand type mismatch: %s != %s", typ, TypeOf(sub))
	assertBigType("indexof", offset)
	return &SeqIndexOfExpr{Seq: seq, Sub: sub, Offset: offset}
}

func (e *SeqIndexOfExpr) String() string {
	return fmt.Sprintf("(indexof %s %s %s)", e.Seq, e.Sub, e.Offset)
}

// SeqSliceExpr represents a subsequence by offset and length.
type SeqSliceExpr struct {
	Seq    Expr
	Offset Expr
	Length Expr
}

// NewSeqSliceExpr returns the subsequence of seq at offset with the given
// length. Out of range portions are dropped.
func NewSeqSliceExpr(seq, offset, length Expr) *SeqSliceExpr {
	assert(isSeqType(TypeOf(seq)), "slice: not a sequence: %s", TypeOf(seq))
	assertBigType("slice", offset)
	assertBigType("slice", length)
	return &SeqSliceExpr{Seq: seq, Offset: offset, Length: length}
}

func (e *SeqSliceExpr) String() string {
	return fmt.Sprintf("(slice %s %s %s)", e.Seq, e.Offset, e.Length)
}

// SeqReplaceFirstExpr represents a sequence with the first occurrence of
// a subsequence replaced.
type SeqReplaceFirstExpr struct {
	Seq Expr
	Old Expr
	New Expr
}

// NewSeqReplaceFirstExpr returns seq with the first occurrence of old
// replaced by new.
func NewSeqReplaceFirstExpr(seq, oldExpr, newExpr Expr) *SeqReplaceFirstExpr {
	typ := TypeOf(seq)
	assert(isSeqType(typ), "replace: not a sequence: %s", typ)
	assert(TypesEqual(typ, TypeOf(oldExpr)), "replace: operand type mismatch: %s != %s", typ, TypeOf(oldExpr))
	assert(TypesEqual(typ, TypeOf(newExpr)), "replace: operand type mismatch: %s != %s", typ, TypeOf(newExpr))
	return &SeqReplaceFirstExpr{Seq: seq, Old: oldExpr, New: newExpr}
}

func (e *SeqReplaceFirstExpr) String() string {
	return fmt.Sprintf("(replace %s %s %s)", e.Seq, e.Old, e.New)
}

// SeqMatchExpr represents a regular expression match over a whole string.
type SeqMatchExpr struct {
	Seq   Expr
	Regex *Regex
}

// NewSeqMatchExpr returns a test of seq against a regular expression.
func NewSeqMatchExpr(seq Expr, regex *Regex) *SeqMatchExpr {
	typ := TypeOf(seq)
	assert(isCharSeqType(typ), "match-re: not a string: %s", typ)
	assert(regex != nil, "match-re: nil regex")
	return &SeqMatchExpr{Seq: seq, Regex: regex}
}

func (e *SeqMatchExpr) String() string { return fmt.Sprintf("(match-re %s %s)", e.Seq, e.Regex) }

func isSeqType(t Type) bool {
	switch t.(type) {
	case StringType, SeqType:
		return true
	default:
		return false
	}
}

// isCharSeqType returns true for strings and sequences of chars, which
// share a single solver representation.
func isCharSeqType(t Type) bool {
	switch t := t.(type) {
	case StringType:
		return true
	case SeqType:
		_, ok := t.Elem.(CharType)
		return ok
	default:
		return false
	}
}

// seqElemType returns the element type of a sequence or string.
func seqElemType(t Type) Type {
	switch t := t.(type) {
	case StringType:
		return CharType{}
	case SeqType:
		return t.Elem
	default:
		panic(fmt.Sprintf("zen.seqElemType: not a sequence: %s", t))
	}
}

func assertBigType(op string, expr Expr) {
	_, ok := TypeOf(expr).(BigType)
	assert(ok, "%s: index is not a bigint: %s", op, TypeOf(expr))
}

// CastExpr represents a conversion between representationally compatible
// types: integer resizes, char and uint32 conversions, and string and
// char sequence conversions.
type CastExpr struct {
	Input Expr
	To    Type
}

// NewCastExpr returns input converted to the given type.
func NewCastExpr(input Expr, to Type) Expr {
	from := TypeOf(input)
	if TypesEqual(from, to) {
		return input
	}
	assert(castable(from, to), "cast: invalid conversion: %s to %s", from, to)

	if input, ok := input.(*ConstantExpr); ok {
		if isFixedWidthType(from) {
			return input.Resize(to)
		}
		return &ConstantExpr{Type: to, Value: input.Value}
	}

	// A cast of a cast between string representations only relabels the
	// same term.
	if inner, ok := input.(*CastExpr); ok && isCharSeqType(from) && isCharSeqType(to) {
		return NewCastExpr(inner.Input, to)
	}
	return &CastExpr{Input: input, To: to}
}

func castable(from, to Type) bool {
	switch {
	case isFixedWidthType(from) && isFixedWidthType(to) && !isBoolType(from) && !isBoolType(to):
		return true
	case isCharSeqType(from) && isCharSeqType(to):
		return true
	default:
		return false
	}
}

func (e *CastExpr) String() string { return fmt.Sprintf("(cast %s %s)", e.Input, e.To) }

// TypeOf returns the host type modeled by expr.
func TypeOf(expr Expr) Type {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return expr.Type
	case *ArbitraryExpr:
		return expr.Type
	case *ParamExpr:
		return expr.Type
	case *NotExpr:
		return TypeOf(expr.Input)
	case *BinaryExpr:
		if expr.Op.IsCompare() {
			return BoolType{}
		}
		return TypeOf(expr.LHS)
	case *EqExpr:
		return BoolType{}
	case *IfExpr:
		return TypeOf(expr.True)
	case *GetFieldExpr:
		typ := TypeOf(expr.Record).(ObjectType)
		f, ok := typ.Field(expr.Field)
		assert(ok, "get: no such field: %s", expr.Field)
		return f.Type
	case *WithFieldExpr:
		return TypeOf(expr.Record)
	case *CreateObjectExpr:
		return expr.Type
	case *ListEmptyExpr:
		return expr.Type
	case *ListAddFrontExpr:
		return TypeOf(expr.List)
	case *ListCaseExpr:
		return TypeOf(expr.Empty)
	case *MapEmptyExpr:
		return expr.Type
	case *MapSetExpr:
		return TypeOf(expr.Map)
	case *MapDeleteExpr:
		return TypeOf(expr.Map)
	case *MapGetExpr:
		return OptionType(TypeOf(expr.Map).(MapType).Value)
	case *SetEmptyExpr:
		return expr.Type
	case *SetAddExpr:
		return TypeOf(expr.Set)
	case *SetDeleteExpr:
		return TypeOf(expr.Set)
	case *SetContainsExpr:
		return BoolType{}
	case *SetCombineExpr:
		return TypeOf(expr.LHS)
	case *SetSizeExpr:
		return BigType{}
	case *ConstMapSetExpr:
		return TypeOf(expr.Map)
	case *ConstMapDeleteExpr:
		return TypeOf(expr.Map)
	case *ConstMapGetExpr:
		return TypeOf(expr.Map).(ConstMapType).Value
	case *SeqConcatExpr:
		return TypeOf(expr.LHS)
	case *SeqLengthExpr:
		return BigType{}
	case *SeqAtExpr:
		return TypeOf(expr.Seq)
	case *SeqContainsExpr:
		return BoolType{}
	case *SeqIndexOfExpr:
		return BigType{}
	case *SeqSliceExpr:
		return TypeOf(expr.Seq)
	case *SeqReplaceFirstExpr:
		return TypeOf(expr.Seq)
	case *SeqMatchExpr:
		return BoolType{}
	case *CastExpr:
		return expr.To
	default:
		panic(fmt.Sprintf("zen.TypeOf: invalid expression type: %T", expr))
	}
}

// ExprVisitor represents a visitor for walking an expression DAG.
type ExprVisitor interface {
	// Visit is invoked for each expression encountered during a walk.
	// Returning nil skips the expression's children.
	Visit(expr Expr) ExprVisitor
}

// WalkExpr traverses an expression DAG in depth-first order. The cons
// continuation of a list case expression is opaque and is not walked.
func WalkExpr(v ExprVisitor, expr Expr) {
	if v = v.Visit(expr); v == nil {
		return
	}

	switch expr := expr.(type) {
	case *ConstantExpr, *ArbitraryExpr, *ParamExpr, *ListEmptyExpr, *MapEmptyExpr, *SetEmptyExpr:
	case *NotExpr:
		WalkExpr(v, expr.Input)
	case *BinaryExpr:
		WalkExpr(v, expr.LHS)
		WalkExpr(v, expr.RHS)
	case *EqExpr:
		WalkExpr(v, expr.LHS)
		WalkExpr(v, expr.RHS)
	case *IfExpr:
		WalkExpr(v, expr.Cond)
		WalkExpr(v, expr.True)
		WalkExpr(v, expr.False)
	case *GetFieldExpr:
		WalkExpr(v, expr.Record)
	case *WithFieldExpr:
		WalkExpr(v, expr.Record)
		WalkExpr(v, expr.Value)
	case *CreateObjectExpr:
		for _, f := range expr.Fields {
			WalkExpr(v, f)
		}
	case *ListAddFrontExpr:
		WalkExpr(v, expr.List)
		WalkExpr(v, expr.Elem)
	case *ListCaseExpr:
		WalkExpr(v, expr.List)
		WalkExpr(v, expr.Empty)
	case *MapSetExpr:
		WalkExpr(v, expr.Map)
		WalkExpr(v, expr.Key)
		WalkExpr(v, expr.Value)
	case *MapDeleteExpr:
		WalkExpr(v, expr.Map)
		WalkExpr(v, expr.Key)
	case *MapGetExpr:
		WalkExpr(v, expr.Map)
		WalkExpr(v, expr.Key)
	case *SetAddExpr:
		WalkExpr(v, expr.Set)
		WalkExpr(v, expr.Elem)
	case *SetDeleteExpr:
		WalkExpr(v, expr.Set)
		WalkExpr(v, expr.Elem)
	case *SetContainsExpr:
		WalkExpr(v, expr.Set)
		WalkExpr(v, expr.Elem)
	case *SetCombineExpr:
		WalkExpr(v, expr.LHS)
		WalkExpr(v, expr.RHS)
	case *SetSizeExpr:
		WalkExpr(v, expr.Set)
	case *ConstMapSetExpr:
		WalkExpr(v, expr.Map)
		WalkExpr(v, expr.Value)
	case *ConstMapDeleteExpr:
		WalkExpr(v, expr.Map)
	case *ConstMapGetExpr:
		WalkExpr(v, expr.Map)
	case *SeqConcatExpr:
		WalkExpr(v, expr.LHS)
		WalkExpr(v, expr.RHS)
	case *SeqLengthExpr:
		WalkExpr(v, expr.Seq)
	case *SeqAtExpr:
		WalkExpr(v, expr.Seq)
		WalkExpr(v, expr.Index)
	case *SeqContainsExpr:
		WalkExpr(v, expr.Seq)
		WalkExpr(v, expr.Sub)
	case *SeqIndexOfExpr:
		WalkExpr(v, expr.Seq)
		WalkExpr(v, expr.Sub)
		WalkExpr(v, expr.Offset)
	case *SeqSliceExpr:
		WalkExpr(v, expr.Seq)
		WalkExpr(v, expr.Offset)
		WalkExpr(v, expr.Length)
	case *SeqReplaceFirstExpr:
		WalkExpr(v, expr.Seq)
		WalkExpr(v, expr.Old)
		WalkExpr(v, expr.New)
	case *SeqMatchExpr:
		WalkExpr(v, expr.Seq)
	case *CastExpr:
		WalkExpr(v, expr.Input)
	default:
		panic(fmt.Sprintf("zen.WalkExpr: invalid expression type: %T", expr))
	}
}

// FindArbitraryExprs returns all unique arbitrary values reachable from
// expr in depth-first encounter order. Expressions bound to parameters
// through an environment are not followed.
func FindArbitraryExprs(expr Expr) []*ArbitraryExpr {
	v := &arbitraryExprFinder{seen: make(map[Expr]struct{})}
	WalkExpr(v, expr)
	return v.exprs
}

type arbitraryExprFinder struct {
	seen  map[Expr]struct{}
	exprs []*ArbitraryExpr
}

func (v *arbitraryExprFinder) Visit(expr Expr) ExprVisitor {
	if _, ok := v.seen[expr]; ok {
		return nil
	}
	v.seen[expr] = struct{}{}

	if expr, ok := expr.(*ArbitraryExpr); ok {
		v.exprs = append(v.exprs, expr)
	}
	return v
}
