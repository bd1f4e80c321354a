package tensorexpr_test

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/yuroc0598/tensorexpr"
)

func TestExpansion_ScalarFirst(t *testing.T) {
	x := tensorexpr.NewVar("x", tensorexpr.Int32Ty)
	out := mustSimplify(t, mul(x, c32(3)))
	if diff := cmp.Diff(
		tensorexpr.Expr(tensorexpr.NewBinaryExpr(tensorexpr.MUL, c32(3), x)),
		out,
	); diff != "" {
		t.Fatal(diff)
	}
}

func TestExpansion_IdentityScalarElided(t *testing.T) {
	x := tensorexpr.NewVar("x", tensorexpr.Int32Ty)
	out := mustSimplify(t, mul(x, c32(1)))
	if diff := cmp.Diff(tensorexpr.Expr(x), out); diff != "" {
		t.Fatal(diff)
	}
}

func TestExpansion_ZeroScalarCollapses(t *testing.T) {
	x := tensorexpr.NewVar("x", tensorexpr.Int32Ty)
	out := mustSimplify(t, mul(x, c32(0)))
	if diff := cmp.Diff(tensorexpr.Expr(tensorexpr.ZeroOf(tensorexpr.Int32Ty)), out); diff != "" {
		t.Fatal(diff)
	}
}

func TestExpansion_NegativeScalarAsSub(t *testing.T) {
	x := tensorexpr.NewVar("x", tensorexpr.Int32Ty)
	out := mustSimplify(t, sub(x, c32(3)))
	if diff := cmp.Diff(
		tensorexpr.Expr(tensorexpr.NewBinaryExpr(tensorexpr.SUB, x, c32(3))),
		out,
	); diff != "" {
		t.Fatal(diff)
	}
}

func TestExpansion_NegativeLeadingTerm(t *testing.T) {
	x := tensorexpr.NewVar("x", tensorexpr.Int32Ty)
	out := mustSimplify(t, sub(c32(3), x))
	want := tensorexpr.NewBinaryExpr(tensorexpr.ADD,
		tensorexpr.NewBinaryExpr(tensorexpr.MUL, c32(-1), x),
		c32(3),
	)
	if diff := cmp.Diff(tensorexpr.Expr(want), out); diff != "" {
		t.Fatal(diff)
	}
}

func TestExpansion_FactorizeIncludesScalar(t *testing.T) {
	x := tensorexpr.NewVar("x", tensorexpr.Int32Ty)
	out := mustSimplify(t, add(mul(c32(2), x), c32(6)))
	want := tensorexpr.NewBinaryExpr(tensorexpr.MUL,
		c32(2),
		tensorexpr.NewBinaryExpr(tensorexpr.ADD, x, c32(3)),
	)
	if diff := cmp.Diff(tensorexpr.Expr(want), out); diff != "" {
		t.Fatal(diff)
	}
}

func TestExpansion_FactorizeNegativeCoefficients(t *testing.T) {
	x := tensorexpr.NewVar("x", tensorexpr.Int32Ty)
	y := tensorexpr.NewVar("y", tensorexpr.Int32Ty)

	e := add(mul(c32(-2), x), mul(c32(-4), y))
	out := mustSimplify(t, e)

	b, ok := out.(*tensorexpr.BinaryExpr)
	if !ok || b.Op != tensorexpr.MUL {
		t.Fatalf("expected top-level mul, got %s", spew.Sdump(out))
	}
	if diff := cmp.Diff(tensorexpr.Expr(c32(2)), b.LHS); diff != "" {
		t.Fatal(diff)
	}
	assertSemanticEq(t, e, out, "x", "y")
}

func TestExpansion_FloatCoefficientsNotFactorized(t *testing.T) {
	x := tensorexpr.NewVar("x", tensorexpr.Float32Ty)
	y := tensorexpr.NewVar("y", tensorexpr.Float32Ty)

	two := tensorexpr.NewFloatConstant(2, tensorexpr.Float32Ty)
	four := tensorexpr.NewFloatConstant(4, tensorexpr.Float32Ty)
	out := mustSimplify(t, add(mul(two, x), mul(four, y)))

	b, ok := out.(*tensorexpr.BinaryExpr)
	if !ok || b.Op != tensorexpr.ADD {
		t.Fatalf("expected top-level add, got %s", spew.Sdump(out))
	}
}
