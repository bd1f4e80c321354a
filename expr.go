package tensorexpr

import (
	"fmt"
	"strings"
)

// Expr represents an immutable expression tree node. Nodes are never
// mutated after construction; rewrites allocate new nodes and share
// unchanged subtrees.
type Expr interface {
	expr()
}

func (*ConstantExpr) expr()  {}
func (*VarExpr) expr()       {}
func (*BinaryExpr) expr()    {}
func (*MaxExpr) expr()       {}
func (*MinExpr) expr()       {}
func (*CastExpr) expr()      {}
func (*IntrinsicExpr) expr() {}
func (*BroadcastExpr) expr() {}
func (*Term) expr()          {}
func (*Polynomial) expr()    {}
func (*RoundOff) expr()      {}

// BinaryOp represents a binary expression operation.
type BinaryOp int

// BinaryExpr operations.
const (
	ADD = BinaryOp(iota)
	SUB
	MUL
	DIV
	MOD
	AND
	XOR
	LSHIFT
	RSHIFT
)

var binaryOps = [...]string{
	ADD:    "add",
	SUB:    "sub",
	MUL:    "mul",
	DIV:    "div",
	MOD:    "mod",
	AND:    "and",
	XOR:    "xor",
	LSHIFT: "lshift",
	RSHIFT: "rshift",
}

// String returns the string representation of the operation.
func (op BinaryOp) String() string {
	if op >= 0 && op < BinaryOp(len(binaryOps)) && binaryOps[op] != "" {
		return binaryOps[op]
	}
	return fmt.Sprintf("BinaryOp<%d>", op)
}

// VarExpr represents a named free variable.
type VarExpr struct {
	Name  string
	Dtype Dtype
}

// NewVar returns a new variable expression.
func NewVar(name string, dtype Dtype) *VarExpr {
	return &VarExpr{Name: name, Dtype: dtype}
}

// String returns the string representation of the expression.
func (e *VarExpr) String() string {
	return e.Name
}

// BinaryExpr represents a primitive operation on two expressions.
type BinaryExpr struct {
	Op  BinaryOp
	LHS Expr
	RHS Expr
}

// NewBinaryExpr returns a new instance of BinaryExpr.
func NewBinaryExpr(op BinaryOp, lhs, rhs Expr) *BinaryExpr {
	return &BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
}

// String returns the string representation of the expression.
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Op, e.LHS, e.RHS)
}

// MaxExpr represents the maximum of two expressions. PropagateNaNs
// controls whether a non-finite operand wins a constant-fold comparison.
type MaxExpr struct {
	LHS           Expr
	RHS           Expr
	PropagateNaNs bool
}

// String returns the string representation of the expression.
func (e *MaxExpr) String() string {
	return fmt.Sprintf("(max %s %s)", e.LHS, e.RHS)
}

// MinExpr represents the minimum of two expressions.
type MinExpr struct {
	LHS           Expr
	RHS           Expr
	PropagateNaNs bool
}

// String returns the string representation of the expression.
func (e *MinExpr) String() string {
	return fmt.Sprintf("(min %s %s)", e.LHS, e.RHS)
}

// CastExpr represents a conversion of an expression to a new dtype.
type CastExpr struct {
	Src   Expr
	Dtype Dtype
}

// NewCastExpr returns a new instance of CastExpr.
func NewCastExpr(src Expr, dtype Dtype) *CastExpr {
	return &CastExpr{Src: src, Dtype: dtype}
}

// String returns the string representation of the expression.
func (e *CastExpr) String() string {
	return fmt.Sprintf("(cast %s %s)", e.Dtype, e.Src)
}

// IntrinsicOp represents an intrinsic function.
type IntrinsicOp int

// IntrinsicExpr operations.
const (
	IntrinsicAbs = IntrinsicOp(iota)
	IntrinsicSqrt
	IntrinsicExp
	IntrinsicLog
	IntrinsicFloor
	IntrinsicCeil
)

var intrinsicOps = [...]string{
	IntrinsicAbs:   "abs",
	IntrinsicSqrt:  "sqrt",
	IntrinsicExp:   "exp",
	IntrinsicLog:   "log",
	IntrinsicFloor: "floor",
	IntrinsicCeil:  "ceil",
}

// String returns the string representation of the operation.
func (op IntrinsicOp) String() string {
	if op >= 0 && op < IntrinsicOp(len(intrinsicOps)) {
		return intrinsicOps[op]
	}
	return fmt.Sprintf("IntrinsicOp<%d>", op)
}

// IntrinsicExpr represents a call to an intrinsic function.
type IntrinsicExpr struct {
	Op   IntrinsicOp
	Args []Expr
}

// NewIntrinsicExpr returns a new instance of IntrinsicExpr.
func NewIntrinsicExpr(op IntrinsicOp, args ...Expr) *IntrinsicExpr {
	return &IntrinsicExpr{Op: op, Args: args}
}

// String returns the string representation of the expression.
func (e *IntrinsicExpr) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(%s", e.Op)
	for _, arg := range e.Args {
		fmt.Fprintf(&sb, " %s", arg)
	}
	sb.WriteString(")")
	return sb.String()
}

// BroadcastExpr repeats a scalar value across a number of lanes.
type BroadcastExpr struct {
	Value Expr
	Lanes int
}

// NewBroadcastExpr returns a new instance of BroadcastExpr.
func NewBroadcastExpr(value Expr, lanes int) *BroadcastExpr {
	return &BroadcastExpr{Value: value, Lanes: lanes}
}

// String returns the string representation of the expression.
func (e *BroadcastExpr) String() string {
	return fmt.Sprintf("(broadcast %d %s)", e.Lanes, e.Value)
}

// ExprDtype returns the dtype of the expression.
func ExprDtype(expr Expr) Dtype {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return expr.Dtype
	case *VarExpr:
		return expr.Dtype
	case *BinaryExpr:
		return promoteBinary(expr.LHS, expr.RHS)
	case *MaxExpr:
		return promoteBinary(expr.LHS, expr.RHS)
	case *MinExpr:
		return promoteBinary(expr.LHS, expr.RHS)
	case *CastExpr:
		return expr.Dtype
	case *IntrinsicExpr:
		if len(expr.Args) == 0 {
			malformed("empty list of types")
		}
		return ExprDtype(expr.Args[0])
	case *BroadcastExpr:
		d := ExprDtype(expr.Value)
		return Dtype{Kind: d.Kind, Lanes: expr.Lanes}
	case *Term:
		return expr.dtype
	case *Polynomial:
		return expr.dtype
	case *RoundOff:
		return promoteBinary(expr.Dividend, expr.Divisor)
	default:
		panic("unreachable")
	}
}

// IsConstant returns true if expr is a compile-time constant.
func IsConstant(expr Expr) bool {
	_, ok := expr.(*ConstantExpr)
	return ok
}

// Walk calls fn for expr and every child of expr in depth-first order.
// If fn returns false for a node its children are not visited.
func Walk(expr Expr, fn func(Expr) bool) {
	if !fn(expr) {
		return
	}
	switch expr := expr.(type) {
	case *ConstantExpr, *VarExpr:
		// no children
	case *BinaryExpr:
		Walk(expr.LHS, fn)
		Walk(expr.RHS, fn)
	case *MaxExpr:
		Walk(expr.LHS, fn)
		Walk(expr.RHS, fn)
	case *MinExpr:
		Walk(expr.LHS, fn)
		Walk(expr.RHS, fn)
	case *CastExpr:
		Walk(expr.Src, fn)
	case *IntrinsicExpr:
		for _, arg := range expr.Args {
			Walk(arg, fn)
		}
	case *BroadcastExpr:
		Walk(expr.Value, fn)
	case *Term:
		Walk(expr.scalar, fn)
		for _, v := range expr.variables {
			Walk(v, fn)
		}
	case *Polynomial:
		Walk(expr.scalar, fn)
		for _, t := range expr.terms {
			Walk(t, fn)
		}
	case *RoundOff:
		Walk(expr.Dividend, fn)
		Walk(expr.Divisor, fn)
	default:
		panic("unreachable")
	}
}
