package tensorexpr

import (
	"fmt"
	"math"
)

// ConstantExpr represents a typed immediate value. Integer kinds (and Bool)
// are carried in Int, floating point kinds in Float.
type ConstantExpr struct {
	Dtype Dtype
	Int   int64
	Float float64
}

// NewIntConstant returns a new integer constant, truncated to the dtype's
// declared width.
func NewIntConstant(value int64, dtype Dtype) *ConstantExpr {
	assert(!dtype.Kind.IsFloat(), "int constant with float dtype: %s", dtype)
	return &ConstantExpr{Dtype: dtype, Int: truncInt(dtype.Kind, value)}
}

// NewFloatConstant returns a new floating point constant.
func NewFloatConstant(value float64, dtype Dtype) *ConstantExpr {
	assert(dtype.Kind.IsFloat(), "float constant with non-float dtype: %s", dtype)
	if dtype.Kind == Float32 {
		value = float64(float32(value))
	}
	return &ConstantExpr{Dtype: dtype, Float: value}
}

// NewBoolConstant returns a new boolean constant.
func NewBoolConstant(value bool) *ConstantExpr {
	if value {
		return &ConstantExpr{Dtype: BoolTy, Int: 1}
	}
	return &ConstantExpr{Dtype: BoolTy}
}

// ZeroOf returns the additive identity of the given dtype.
func ZeroOf(dtype Dtype) *ConstantExpr {
	return &ConstantExpr{Dtype: dtype}
}

// OneOf returns the multiplicative identity of the given dtype.
func OneOf(dtype Dtype) *ConstantExpr {
	if dtype.Kind.IsFloat() {
		return &ConstantExpr{Dtype: dtype, Float: 1}
	}
	return &ConstantExpr{Dtype: dtype, Int: 1}
}

// String returns the string representation of the expression.
func (e *ConstantExpr) String() string {
	if e.Dtype.Kind.IsFloat() {
		return fmt.Sprintf("(const %v %s)", e.Float, e.Dtype)
	}
	return fmt.Sprintf("(const %d %s)", e.Int, e.Dtype)
}

// IsZero returns true if the constant is the additive identity.
func (e *ConstantExpr) IsZero() bool {
	if e.Dtype.Kind.IsFloat() {
		return e.Float == 0
	}
	return e.Int == 0
}

// IsOne returns true if the constant is the multiplicative identity.
func (e *ConstantExpr) IsOne() bool {
	if e.Dtype.Kind.IsFloat() {
		return e.Float == 1
	}
	return e.Int == 1
}

// IsNegative returns true if the constant is less than zero.
func (e *ConstantExpr) IsNegative() bool {
	if e.Dtype.Kind.IsFloat() {
		return e.Float < 0
	}
	return e.Int < 0
}

// Negate returns the constant multiplied by negative one.
func (e *ConstantExpr) Negate() *ConstantExpr {
	if e.Dtype.Kind.IsFloat() {
		return NewFloatConstant(-e.Float, e.Dtype)
	}
	return NewIntConstant(-e.Int, e.Dtype)
}

// Cast returns the constant converted to a new dtype.
func (e *ConstantExpr) Cast(dtype Dtype) *ConstantExpr {
	if e.Dtype == dtype {
		return e
	}
	switch {
	case dtype.Kind.IsFloat() && e.Dtype.Kind.IsFloat():
		return NewFloatConstant(e.Float, dtype)
	case dtype.Kind.IsFloat():
		return NewFloatConstant(float64(e.Int), dtype)
	case e.Dtype.Kind.IsFloat():
		return NewIntConstant(int64(e.Float), dtype)
	default:
		return NewIntConstant(e.Int, dtype)
	}
}

// truncInt truncates v to the declared width of an integer kind.
func truncInt(kind ScalarKind, v int64) int64 {
	switch kind {
	case Bool:
		if v != 0 {
			return 1
		}
		return 0
	case Int8:
		return int64(int8(v))
	case Int16:
		return int64(int16(v))
	case Int32:
		return int64(int32(v))
	case Int64:
		return v
	default:
		panic(fmt.Sprintf("truncInt: non-integer kind: %s", kind))
	}
}

// evalBinaryOp evaluates a primitive binary operation over two constants.
// Returns false if the operation cannot be computed at compile time, such
// as integer division by zero or a bitwise operation on floats.
func evalBinaryOp(op BinaryOp, lhs, rhs *ConstantExpr) (*ConstantExpr, bool) {
	dtype := promoteConstTypes(lhs, rhs)
	if dtype.Kind == Bool {
		return evalBoolOp(op, lhs, rhs)
	}
	lhs, rhs = lhs.Cast(dtype), rhs.Cast(dtype)
	if dtype.Kind.IsFloat() {
		return evalFloatOp(op, lhs, rhs, dtype)
	}
	return evalIntOp(op, lhs, rhs, dtype)
}

func evalIntOp(op BinaryOp, lhs, rhs *ConstantExpr, dtype Dtype) (*ConstantExpr, bool) {
	a, b := lhs.Int, rhs.Int
	switch op {
	case ADD:
		return NewIntConstant(a+b, dtype), true
	case SUB:
		return NewIntConstant(a-b, dtype), true
	case MUL:
		return NewIntConstant(a*b, dtype), true
	case DIV:
		if b == 0 {
			return nil, false
		}
		return NewIntConstant(a/b, dtype), true
	case MOD:
		if b == 0 {
			return nil, false
		}
		return NewIntConstant(a%b, dtype), true
	case AND:
		return NewIntConstant(a&b, dtype), true
	case XOR:
		return NewIntConstant(a^b, dtype), true
	case LSHIFT:
		if b < 0 || b >= 64 {
			return nil, false
		}
		return NewIntConstant(a<<uint(b), dtype), true
	case RSHIFT:
		if b < 0 || b >= 64 {
			return nil, false
		}
		return NewIntConstant(a>>uint(b), dtype), true
	default:
		return nil, false
	}
}

func evalFloatOp(op BinaryOp, lhs, rhs *ConstantExpr, dtype Dtype) (*ConstantExpr, bool) {
	a, b := lhs.Float, rhs.Float
	switch op {
	case ADD:
		return NewFloatConstant(a+b, dtype), true
	case SUB:
		return NewFloatConstant(a-b, dtype), true
	case MUL:
		return NewFloatConstant(a*b, dtype), true
	case DIV:
		if b == 0 {
			return nil, false
		}
		return NewFloatConstant(a/b, dtype), true
	case MOD:
		return NewFloatConstant(math.Mod(a, b), dtype), true
	default:
		// Bitwise operations do not apply to floats.
		return nil, false
	}
}

func evalBoolOp(op BinaryOp, lhs, rhs *ConstantExpr) (*ConstantExpr, bool) {
	switch op {
	case AND:
		return NewBoolConstant(lhs.Int&rhs.Int != 0), true
	case XOR:
		return NewBoolConstant(lhs.Int^rhs.Int != 0), true
	default:
		return nil, false
	}
}

// evalMaxMin evaluates a constant Max or Min. For floats the propagateNaNs
// flag decides whether a NaN operand wins the comparison.
func evalMaxMin(isMax bool, lhs, rhs *ConstantExpr, propagateNaNs bool) (*ConstantExpr, bool) {
	dtype := promoteConstTypes(lhs, rhs)
	lhs, rhs = lhs.Cast(dtype), rhs.Cast(dtype)
	if dtype.Kind.IsFloat() {
		a, b := lhs.Float, rhs.Float
		if math.IsNaN(a) || math.IsNaN(b) {
			if propagateNaNs {
				return NewFloatConstant(math.NaN(), dtype), true
			}
			if math.IsNaN(a) {
				return rhs, true
			}
			return lhs, true
		}
		if isMax == (a > b) {
			return lhs, true
		}
		return rhs, true
	}
	if isMax == (lhs.Int > rhs.Int) {
		return lhs, true
	}
	return rhs, true
}

// evalIntrinsic evaluates an intrinsic over constant arguments.
func evalIntrinsic(op IntrinsicOp, args []*ConstantExpr) (*ConstantExpr, bool) {
	if len(args) != 1 {
		return nil, false
	}
	arg := args[0]
	if !arg.Dtype.Kind.IsFloat() {
		switch op {
		case IntrinsicAbs:
			if arg.Int < 0 {
				return NewIntConstant(-arg.Int, arg.Dtype), true
			}
			return arg, true
		case IntrinsicFloor, IntrinsicCeil:
			return arg, true
		default:
			return nil, false
		}
	}

	var v float64
	switch op {
	case IntrinsicAbs:
		v = math.Abs(arg.Float)
	case IntrinsicSqrt:
		v = math.Sqrt(arg.Float)
	case IntrinsicExp:
		v = math.Exp(arg.Float)
	case IntrinsicLog:
		v = math.Log(arg.Float)
	case IntrinsicFloor:
		v = math.Floor(arg.Float)
	case IntrinsicCeil:
		v = math.Ceil(arg.Float)
	default:
		return nil, false
	}
	return NewFloatConstant(v, arg.Dtype), true
}

// promoteConstTypes promotes the dtypes of two constants, widening a
// single-lane constant to the other side's lane count first.
func promoteConstTypes(lhs, rhs *ConstantExpr) Dtype {
	lt, rt := lhs.Dtype, rhs.Dtype
	if lt.Lanes == 1 {
		lt.Lanes = rt.Lanes
	} else if rt.Lanes == 1 {
		rt.Lanes = lt.Lanes
	}
	return PromoteTypes(lt, rt)
}

// foldConst evaluates op over two constant expressions. Used by the folding
// pass when combining scalar coefficients, which are numeric by invariant.
func foldConst(op BinaryOp, lhs, rhs Expr) *ConstantExpr {
	lc, ok := lhs.(*ConstantExpr)
	assert(ok, "foldConst: non-constant lhs: %s", lhs)
	rc, ok := rhs.(*ConstantExpr)
	assert(ok, "foldConst: non-constant rhs: %s", rhs)
	ret, ok := evalBinaryOp(op, lc, rc)
	assert(ok, "foldConst: unevaluable op: %s", op)
	return ret
}
