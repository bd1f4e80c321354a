package tensorexpr

// termExpander is the expansion pass. It rewrites any remaining Term,
// Polynomial or RoundOff node back into primitive operators so the output
// tree is safe for consumers that understand only elementary binary
// operations. It shares the folding pass's hash provider so hash values
// stay comparable across both passes.
type termExpander struct {
	hasher *HashProvider
}

// mutate expands a single expression bottom-up.
func (x *termExpander) mutate(e Expr) Expr {
	switch e := e.(type) {
	case *ConstantExpr, *VarExpr:
		return e
	case *Term:
		return x.expandTerm(e)
	case *Polynomial:
		return x.expandPolynomial(e)
	case *RoundOff:
		return x.expandRoundOff(e)
	case *BinaryExpr:
		return rebuildBinary(e, x.mutate(e.LHS), x.mutate(e.RHS))
	case *MaxExpr:
		lhs, rhs := x.mutate(e.LHS), x.mutate(e.RHS)
		if lhs == e.LHS && rhs == e.RHS {
			return e
		}
		return &MaxExpr{LHS: lhs, RHS: rhs, PropagateNaNs: e.PropagateNaNs}
	case *MinExpr:
		lhs, rhs := x.mutate(e.LHS), x.mutate(e.RHS)
		if lhs == e.LHS && rhs == e.RHS {
			return e
		}
		return &MinExpr{LHS: lhs, RHS: rhs, PropagateNaNs: e.PropagateNaNs}
	case *CastExpr:
		src := x.mutate(e.Src)
		if src == e.Src {
			return e
		}
		return &CastExpr{Src: src, Dtype: e.Dtype}
	case *IntrinsicExpr:
		args := e.Args
		changed := false
		for i, arg := range e.Args {
			if mutated := x.mutate(arg); mutated != arg {
				if !changed {
					args = make([]Expr, len(e.Args))
					copy(args, e.Args)
					changed = true
				}
				args[i] = mutated
			}
		}
		if !changed {
			return e
		}
		return &IntrinsicExpr{Op: e.Op, Args: args}
	case *BroadcastExpr:
		value := x.mutate(e.Value)
		if value == e.Value {
			return e
		}
		return &BroadcastExpr{Value: value, Lanes: e.Lanes}
	default:
		panic("unreachable")
	}
}

// expandTerm rewrites a Term as a left-associated chain of multiplies:
// the scalar first, then each variable in canonical hash order. An
// identity scalar is elided; a zero scalar collapses the whole term.
func (x *termExpander) expandTerm(t *Term) Expr {
	scalar := t.scalar.(*ConstantExpr)
	if scalar.IsZero() {
		return ZeroOf(ExprDtype(t))
	}

	var ret Expr
	if !scalar.IsOne() {
		ret = scalar
	}
	for _, v := range t.variables {
		v = x.mutate(v)
		if ret == nil {
			ret = v
			continue
		}
		ret = &BinaryExpr{Op: MUL, LHS: ret, RHS: v}
	}
	return ret
}

// expandPolynomial rewrites a Polynomial as a left-associated chain of
// adds over the expanded terms, with the scalar last. A term or scalar
// with a negative coefficient is emitted as a subtraction. A common scalar
// factor is extracted first where one exists.
func (x *termExpander) expandPolynomial(v *Polynomial) Expr {
	if ret := x.factorizePolynomial(v); ret != nil {
		return ret
	}

	var ret Expr
	for i, t := range v.terms {
		if i == 0 {
			ret = x.expandTerm(t)
			continue
		}
		if sc := t.scalar.(*ConstantExpr); sc.IsNegative() {
			neg := mustTerm(x.hasher, sc.Negate(), t.variables...)
			ret = &BinaryExpr{Op: SUB, LHS: ret, RHS: x.expandTerm(neg)}
			continue
		}
		ret = &BinaryExpr{Op: ADD, LHS: ret, RHS: x.expandTerm(t)}
	}

	scalar := v.scalar.(*ConstantExpr)
	if scalar.IsZero() {
		return ret
	}
	if scalar.IsNegative() {
		return &BinaryExpr{Op: SUB, LHS: ret, RHS: scalar.Negate()}
	}
	return &BinaryExpr{Op: ADD, LHS: ret, RHS: scalar}
}

// factorizePolynomial extracts the greatest common divisor across the
// scalar constant and every term coefficient. If its magnitude exceeds one
// the polynomial is rewritten as GCD * (polynomial with coefficients
// divided through), and the inner polynomial is expanded recursively.
// Returns nil when no common factor exists or a coefficient is not an
// integer constant.
func (x *termExpander) factorizePolynomial(v *Polynomial) Expr {
	scalar := v.scalar.(*ConstantExpr)
	if !scalar.Dtype.Kind.IsInt() {
		return nil
	}

	g := abs64(scalar.Int)
	for _, t := range v.terms {
		sc := t.scalar.(*ConstantExpr)
		if !sc.Dtype.Kind.IsInt() {
			return nil
		}
		g = gcd64(g, abs64(sc.Int))
	}
	if g <= 1 {
		return nil
	}

	terms := make([]*Term, len(v.terms))
	for i, t := range v.terms {
		terms[i] = scaleDownTerm(x.hasher, t, g)
	}
	inner := mustPolynomial(x.hasher, NewIntConstant(scalar.Int/g, scalar.Dtype), terms...)

	// The inner coefficients now share no factor, so the recursion takes
	// the plain expansion path.
	return &BinaryExpr{
		Op:  MUL,
		LHS: NewIntConstant(g, scalar.Dtype),
		RHS: x.expandPolynomial(inner),
	}
}

// expandRoundOff rewrites RoundOff(value, divisor) into its primitive
// component: (value / divisor) * divisor under truncating division.
func (x *termExpander) expandRoundOff(r *RoundOff) Expr {
	dividend, divisor := x.mutate(r.Dividend), x.mutate(r.Divisor)
	return &BinaryExpr{
		Op:  MUL,
		LHS: &BinaryExpr{Op: DIV, LHS: dividend, RHS: divisor},
		RHS: divisor,
	}
}
