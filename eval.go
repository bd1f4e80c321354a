package tensorexpr

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Evaluator evaluates expressions to constants under an assignment of
// variable names to values. It understands the simplifier's internal node
// kinds as well, so trees can be checked for semantic equivalence at any
// point in the pipeline.
type Evaluator struct {
	bindings map[string]*ConstantExpr
}

// NewEvaluator returns a new instance of Evaluator with the given
// variable/value assignment.
func NewEvaluator(bindings map[string]*ConstantExpr) *Evaluator {
	m := make(map[string]*ConstantExpr, len(bindings))
	for name, value := range bindings {
		m[name] = value
	}
	return &Evaluator{bindings: m}
}

// Bind assigns a value to a variable name, replacing any previous binding.
func (ev *Evaluator) Bind(name string, value *ConstantExpr) {
	ev.bindings[name] = value
}

// Validate returns an error describing every unbound variable in expr, or
// nil if all variables are bound.
func (ev *Evaluator) Validate(expr Expr) error {
	var err error
	seen := make(map[string]struct{})
	Walk(expr, func(e Expr) bool {
		v, ok := e.(*VarExpr)
		if !ok {
			return true
		}
		if _, bound := ev.bindings[v.Name]; bound {
			return true
		}
		if _, dup := seen[v.Name]; !dup {
			seen[v.Name] = struct{}{}
			err = multierr.Append(err, errors.Errorf("unbound variable %q", v.Name))
		}
		return true
	})
	return err
}

// Evaluate evaluates expr to a constant expression. Returns an error if a
// variable is unbound or an operation cannot be computed, such as division
// by zero.
func (ev *Evaluator) Evaluate(expr Expr) (*ConstantExpr, error) {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return expr, nil

	case *VarExpr:
		value, ok := ev.bindings[expr.Name]
		if !ok {
			return nil, errors.Errorf("unbound variable %q", expr.Name)
		}
		return value, nil

	case *BinaryExpr:
		lhs, rhs, err := ev.evaluatePair(expr.LHS, expr.RHS)
		if err != nil {
			return nil, err
		}
		ret, ok := evalBinaryOp(expr.Op, lhs, rhs)
		if !ok {
			return nil, errors.Errorf("cannot evaluate: %s", expr)
		}
		return ret, nil

	case *MaxExpr:
		lhs, rhs, err := ev.evaluatePair(expr.LHS, expr.RHS)
		if err != nil {
			return nil, err
		}
		ret, ok := evalMaxMin(true, lhs, rhs, expr.PropagateNaNs)
		if !ok {
			return nil, errors.Errorf("cannot evaluate: %s", expr)
		}
		return ret, nil

	case *MinExpr:
		lhs, rhs, err := ev.evaluatePair(expr.LHS, expr.RHS)
		if err != nil {
			return nil, err
		}
		ret, ok := evalMaxMin(false, lhs, rhs, expr.PropagateNaNs)
		if !ok {
			return nil, errors.Errorf("cannot evaluate: %s", expr)
		}
		return ret, nil

	case *CastExpr:
		src, err := ev.Evaluate(expr.Src)
		if err != nil {
			return nil, err
		}
		return src.Cast(expr.Dtype), nil

	case *IntrinsicExpr:
		args := make([]*ConstantExpr, len(expr.Args))
		for i, arg := range expr.Args {
			c, err := ev.Evaluate(arg)
			if err != nil {
				return nil, err
			}
			args[i] = c
		}
		ret, ok := evalIntrinsic(expr.Op, args)
		if !ok {
			return nil, errors.Errorf("cannot evaluate: %s", expr)
		}
		return ret, nil

	case *BroadcastExpr:
		// A broadcast of a constant evaluates to the splatted constant.
		value, err := ev.Evaluate(expr.Value)
		if err != nil {
			return nil, err
		}
		return &ConstantExpr{
			Dtype: Dtype{Kind: value.Dtype.Kind, Lanes: expr.Lanes},
			Int:   value.Int,
			Float: value.Float,
		}, nil

	case *Term:
		ret, err := ev.Evaluate(expr.scalar)
		if err != nil {
			return nil, err
		}
		for _, v := range expr.variables {
			c, err := ev.Evaluate(v)
			if err != nil {
				return nil, err
			}
			product, ok := evalBinaryOp(MUL, ret, c)
			if !ok {
				return nil, errors.Errorf("cannot evaluate: %s", expr)
			}
			ret = product
		}
		return ret, nil

	case *Polynomial:
		ret, err := ev.Evaluate(expr.scalar)
		if err != nil {
			return nil, err
		}
		for _, t := range expr.terms {
			c, err := ev.Evaluate(t)
			if err != nil {
				return nil, err
			}
			sum, ok := evalBinaryOp(ADD, ret, c)
			if !ok {
				return nil, errors.Errorf("cannot evaluate: %s", expr)
			}
			ret = sum
		}
		return ret, nil

	case *RoundOff:
		dividend, divisor, err := ev.evaluatePair(expr.Dividend, expr.Divisor)
		if err != nil {
			return nil, err
		}
		quotient, ok := evalBinaryOp(DIV, dividend, divisor)
		if !ok {
			return nil, errors.Errorf("cannot evaluate: %s", expr)
		}
		ret, ok := evalBinaryOp(MUL, quotient, divisor)
		if !ok {
			return nil, errors.Errorf("cannot evaluate: %s", expr)
		}
		return ret, nil

	default:
		return nil, errors.Errorf("invalid expression type: %T", expr)
	}
}

func (ev *Evaluator) evaluatePair(lhs, rhs Expr) (*ConstantExpr, *ConstantExpr, error) {
	lc, err := ev.Evaluate(lhs)
	if err != nil {
		return nil, nil, err
	}
	rc, err := ev.Evaluate(rhs)
	if err != nil {
		return nil, nil, err
	}
	return lc, rc, nil
}
