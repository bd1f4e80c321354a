// Package tensorexpr implements a two-phase algebraic simplifier for the
// expression trees produced by a tensor-loop code generator.
//
// Simplification runs in two stages:
//
//  1. A folding pass recursively combines similar operations into Terms
//     (interacting through multiplication) and Polynomials (interacting
//     through addition). Components of each Term and Polynomial are
//     reordered into a consistent hash order so like terms can be combined
//     or cancelled.
//  2. Once the tree is minimal, an expansion pass rewrites each Term into a
//     sequence of multiplies and each Polynomial into a sequence of adds,
//     factoring out a trivial scalar GCD where one exists.
//
// The output tree contains only primitive operators and is safe for any
// downstream consumer.
package tensorexpr

import "fmt"

// ScalarKind identifies the element type of an expression.
type ScalarKind int

const (
	Bool ScalarKind = iota
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
)

var scalarKinds = [...]string{
	Bool:    "bool",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Float32: "float32",
	Float64: "float64",
}

// String returns the string representation of the kind.
func (k ScalarKind) String() string {
	if k >= 0 && k < ScalarKind(len(scalarKinds)) {
		return scalarKinds[k]
	}
	return fmt.Sprintf("ScalarKind<%d>", int(k))
}

// IsInt returns true if k is an integer kind.
func (k ScalarKind) IsInt() bool {
	return k >= Int8 && k <= Int64
}

// IsFloat returns true if k is a floating point kind.
func (k ScalarKind) IsFloat() bool {
	return k == Float32 || k == Float64
}

// Dtype describes the element kind and lane count of an expression.
// Scalar expressions have a single lane; vectorized constructs such as
// broadcasts carry more.
type Dtype struct {
	Kind  ScalarKind
	Lanes int
}

// Common single-lane dtypes.
var (
	BoolTy    = Dtype{Kind: Bool, Lanes: 1}
	Int8Ty    = Dtype{Kind: Int8, Lanes: 1}
	Int16Ty   = Dtype{Kind: Int16, Lanes: 1}
	Int32Ty   = Dtype{Kind: Int32, Lanes: 1}
	Int64Ty   = Dtype{Kind: Int64, Lanes: 1}
	Float32Ty = Dtype{Kind: Float32, Lanes: 1}
	Float64Ty = Dtype{Kind: Float64, Lanes: 1}
)

// String returns the string representation of the dtype.
func (d Dtype) String() string {
	if d.Lanes == 1 {
		return d.Kind.String()
	}
	return fmt.Sprintf("%sx%d", d.Kind, d.Lanes)
}

// PromoteTypes returns the dtype produced by combining operands of dtype a
// and b. Kinds promote by rank; lane counts must agree.
func PromoteTypes(a, b Dtype) Dtype {
	assert(a.Lanes == b.Lanes, "promote: lane mismatch: %d != %d", a.Lanes, b.Lanes)
	if b.Kind > a.Kind {
		return Dtype{Kind: b.Kind, Lanes: a.Lanes}
	}
	return Dtype{Kind: a.Kind, Lanes: a.Lanes}
}

// promoteBinary returns the dtype of a binary node over lhs & rhs. A
// constant operand's lane count is widened to match the other side before
// promotion, so scalar immediates combine cleanly with multi-lane operands.
func promoteBinary(lhs, rhs Expr) Dtype {
	lt, rt := ExprDtype(lhs), ExprDtype(rhs)
	if IsConstant(lhs) {
		lt.Lanes = rt.Lanes
	} else if IsConstant(rhs) {
		rt.Lanes = lt.Lanes
	}
	return PromoteTypes(lt, rt)
}

// promoteScalarVec returns the promoted dtype of a scalar constant combined
// with a non-empty component list. The scalar's lane count is widened to the
// first component's lanes before promotion.
func promoteScalarVec[E Expr](scalar Expr, components []E) (Dtype, error) {
	if len(components) == 0 {
		return Dtype{}, &MalformedError{Reason: "empty list of types"}
	}
	t := ExprDtype(scalar)
	t.Lanes = ExprDtype(components[0]).Lanes
	for _, e := range components {
		t = PromoteTypes(t, ExprDtype(e))
	}
	return t, nil
}

// MalformedError is returned by Simplify when a canonical form is
// constructed from degenerate input, such as a Term with no variables.
type MalformedError struct {
	Reason string
}

// Error implements the error interface.
func (e *MalformedError) Error() string {
	return "tensorexpr: malformed input: " + e.Reason
}

// IsMalformed returns true if err is a MalformedError.
func IsMalformed(err error) bool {
	_, ok := err.(*MalformedError)
	return ok
}

// malformed panics with a MalformedError. The panic is recovered at the
// Simplify boundary and returned as an error.
func malformed(format string, args ...interface{}) {
	panic(&MalformedError{Reason: fmt.Sprintf(format, args...)})
}

// recoverMalformed converts a MalformedError panic into an error return.
// Any other panic is re-raised.
func recoverMalformed(err *error) {
	if r := recover(); r != nil {
		if e, ok := r.(*MalformedError); ok {
			*err = e
			return
		}
		panic(r)
	}
}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
