package tensorexpr_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yuroc0598/tensorexpr"
)

func TestExprDtype(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		e := tensorexpr.NewIntConstant(7, tensorexpr.Int32Ty)
		if d := tensorexpr.ExprDtype(e); d != tensorexpr.Int32Ty {
			t.Fatalf("unexpected dtype: %s", d)
		}
	})
	t.Run("Var", func(t *testing.T) {
		e := tensorexpr.NewVar("x", tensorexpr.Int64Ty)
		if d := tensorexpr.ExprDtype(e); d != tensorexpr.Int64Ty {
			t.Fatalf("unexpected dtype: %s", d)
		}
	})
	t.Run("BinaryPromotes", func(t *testing.T) {
		e := tensorexpr.NewBinaryExpr(tensorexpr.ADD,
			tensorexpr.NewVar("x", tensorexpr.Int32Ty),
			tensorexpr.NewVar("y", tensorexpr.Int64Ty),
		)
		if d := tensorexpr.ExprDtype(e); d != tensorexpr.Int64Ty {
			t.Fatalf("unexpected dtype: %s", d)
		}
	})
	t.Run("ConstantLanesWiden", func(t *testing.T) {
		// A scalar immediate combined with a multi-lane operand takes the
		// operand's lane count before promotion.
		e := tensorexpr.NewBinaryExpr(tensorexpr.MUL,
			tensorexpr.NewIntConstant(2, tensorexpr.Int32Ty),
			tensorexpr.NewBroadcastExpr(tensorexpr.NewVar("x", tensorexpr.Int32Ty), 4),
		)
		if d := tensorexpr.ExprDtype(e); d != (tensorexpr.Dtype{Kind: tensorexpr.Int32, Lanes: 4}) {
			t.Fatalf("unexpected dtype: %s", d)
		}
	})
	t.Run("Cast", func(t *testing.T) {
		e := tensorexpr.NewCastExpr(tensorexpr.NewVar("x", tensorexpr.Int32Ty), tensorexpr.Float64Ty)
		if d := tensorexpr.ExprDtype(e); d != tensorexpr.Float64Ty {
			t.Fatalf("unexpected dtype: %s", d)
		}
	})
}

func TestBinaryOp_String(t *testing.T) {
	t.Run("Known", func(t *testing.T) {
		if s := tensorexpr.ADD.String(); s != "add" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("Unknown", func(t *testing.T) {
		if s := tensorexpr.BinaryOp(100).String(); s != "BinaryOp<100>" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
}

func TestBinaryExpr_String(t *testing.T) {
	e := tensorexpr.NewBinaryExpr(tensorexpr.ADD,
		tensorexpr.NewVar("x", tensorexpr.Int32Ty),
		tensorexpr.NewIntConstant(1, tensorexpr.Int32Ty),
	)
	if s := e.String(); s != "(add x (const 1 int32))" {
		t.Fatalf("unexpected string: %s", s)
	}
}

func TestConstantExpr(t *testing.T) {
	t.Run("Truncate", func(t *testing.T) {
		if diff := cmp.Diff(
			tensorexpr.NewIntConstant(44, tensorexpr.Int8Ty),
			tensorexpr.NewIntConstant(300, tensorexpr.Int8Ty),
		); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Negate", func(t *testing.T) {
		if diff := cmp.Diff(
			tensorexpr.NewIntConstant(-7, tensorexpr.Int32Ty),
			tensorexpr.NewIntConstant(7, tensorexpr.Int32Ty).Negate(),
		); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("CastIntToFloat", func(t *testing.T) {
		if diff := cmp.Diff(
			tensorexpr.NewFloatConstant(7, tensorexpr.Float64Ty),
			tensorexpr.NewIntConstant(7, tensorexpr.Int32Ty).Cast(tensorexpr.Float64Ty),
		); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("CastFloatToIntTruncates", func(t *testing.T) {
		if diff := cmp.Diff(
			tensorexpr.NewIntConstant(3, tensorexpr.Int32Ty),
			tensorexpr.NewFloatConstant(3.9, tensorexpr.Float64Ty).Cast(tensorexpr.Int32Ty),
		); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Identities", func(t *testing.T) {
		if !tensorexpr.ZeroOf(tensorexpr.Float32Ty).IsZero() {
			t.Fatal("expected zero")
		} else if !tensorexpr.OneOf(tensorexpr.Int16Ty).IsOne() {
			t.Fatal("expected one")
		}
	})
}

func TestPromoteTypes(t *testing.T) {
	t.Run("Rank", func(t *testing.T) {
		if d := tensorexpr.PromoteTypes(tensorexpr.Int32Ty, tensorexpr.Float32Ty); d != tensorexpr.Float32Ty {
			t.Fatalf("unexpected dtype: %s", d)
		}
	})
	t.Run("Symmetric", func(t *testing.T) {
		a := tensorexpr.PromoteTypes(tensorexpr.Int8Ty, tensorexpr.Int64Ty)
		b := tensorexpr.PromoteTypes(tensorexpr.Int64Ty, tensorexpr.Int8Ty)
		if a != b {
			t.Fatalf("promotion not symmetric: %s != %s", a, b)
		}
	})
}

func TestWalk(t *testing.T) {
	e := tensorexpr.NewBinaryExpr(tensorexpr.ADD,
		tensorexpr.NewVar("x", tensorexpr.Int32Ty),
		tensorexpr.NewBinaryExpr(tensorexpr.MUL,
			tensorexpr.NewIntConstant(2, tensorexpr.Int32Ty),
			tensorexpr.NewVar("y", tensorexpr.Int32Ty),
		),
	)

	var names []string
	tensorexpr.Walk(e, func(e tensorexpr.Expr) bool {
		if v, ok := e.(*tensorexpr.VarExpr); ok {
			names = append(names, v.Name)
		}
		return true
	})
	if diff := cmp.Diff([]string{"x", "y"}, names); diff != "" {
		t.Fatal(diff)
	}
}
