package tensorexpr

import "github.com/benbjohnson/immutable"

// Simplify folds e into canonical sum-of-products form, combining and
// cancelling like terms and constant-folding, then expands the canonical
// form back into primitive operators. The returned tree contains only
// primitive node kinds.
//
// A fresh hash provider is constructed per call and shared by both passes,
// so concurrent Simplify calls are independent.
func Simplify(e Expr) (ret Expr, err error) {
	defer recoverMalformed(&err)
	p := newPolynomialTransformer()
	folded := p.mutate(e)
	x := &termExpander{hasher: p.hasher}
	return x.mutate(folded), nil
}

// SimplifyStmt simplifies every expression embedded in a statement tree:
// loop bounds, conditions, store indices and values. Statement structure
// is otherwise unchanged.
func SimplifyStmt(s Stmt) (ret Stmt, err error) {
	defer recoverMalformed(&err)
	p := newPolynomialTransformer()
	folded := mutateStmt(s, p.mutate)
	x := &termExpander{hasher: p.hasher}
	return mutateStmt(folded, x.mutate), nil
}

// polynomialTransformer is the folding pass. It rewrites a general
// expression bottom-up into canonical Term/Polynomial form, combining
// components that share a variable set and evaluating fully-constant
// subtrees.
type polynomialTransformer struct {
	hasher *HashProvider
}

func newPolynomialTransformer() *polynomialTransformer {
	return &polynomialTransformer{hasher: NewHashProvider()}
}

// mutate folds a single expression. Children are folded before their
// parent; a node is rebuilt only if a child changed identity.
func (p *polynomialTransformer) mutate(e Expr) Expr {
	switch e := e.(type) {
	case *ConstantExpr, *VarExpr:
		return e
	case *BinaryExpr:
		switch e.Op {
		case ADD:
			return p.mutateAdd(e)
		case SUB:
			return p.mutateSub(e)
		case MUL:
			return p.mutateMul(e)
		case DIV:
			return p.mutateDiv(e)
		default:
			return p.mutateBinary(e)
		}
	case *MaxExpr:
		return p.mutateMax(e)
	case *MinExpr:
		return p.mutateMin(e)
	case *CastExpr:
		return p.mutateCast(e)
	case *IntrinsicExpr:
		return p.mutateIntrinsic(e)
	case *BroadcastExpr:
		return p.mutateBroadcast(e)
	case *Term, *Polynomial, *RoundOff:
		// Already canonical.
		return e
	default:
		panic("unreachable")
	}
}

func (p *polynomialTransformer) mutateAdd(v *BinaryExpr) Expr {
	lhs, rhs := p.mutate(v.LHS), p.mutate(v.RHS)

	if lc, lok := lhs.(*ConstantExpr); lok {
		if rc, rok := rhs.(*ConstantExpr); rok {
			if ret, ok := evalBinaryOp(ADD, lc, rc); ok {
				return ret
			}
			return rebuildBinary(v, lhs, rhs)
		}
	}

	// Bool has no additive algebra; the node stays opaque.
	if ExprDtype(lhs).Kind == Bool || ExprDtype(rhs).Kind == Bool {
		return rebuildBinary(v, lhs, rhs)
	}

	// value + negated remainder of value: (x + -(x % d)) => roundoff
	if ret := p.isModRoundOff(lhs, rhs, false); ret != nil {
		return ret
	}
	if ret := p.isModRoundOff(rhs, lhs, false); ret != nil {
		return ret
	}

	return p.addComponents(lhs, rhs)
}

func (p *polynomialTransformer) mutateSub(v *BinaryExpr) Expr {
	lhs, rhs := p.mutate(v.LHS), p.mutate(v.RHS)

	if lc, lok := lhs.(*ConstantExpr); lok {
		if rc, rok := rhs.(*ConstantExpr); rok {
			if ret, ok := evalBinaryOp(SUB, lc, rc); ok {
				return ret
			}
			return rebuildBinary(v, lhs, rhs)
		}
	}

	// Bool has no additive algebra; the node stays opaque.
	if ExprDtype(lhs).Kind == Bool || ExprDtype(rhs).Kind == Bool {
		return rebuildBinary(v, lhs, rhs)
	}

	// (x - x % d) => roundoff
	if ret := p.isModRoundOff(lhs, rhs, true); ret != nil {
		return ret
	}

	// Subtraction threads a negated coefficient through the additive merge
	// machinery rather than materializing a negation node, so x - x cancels
	// exactly.
	return p.addComponents(lhs, p.negate(rhs))
}

// addComponents merges two folded operands additively. Both operands are
// already in canonical form or are primitive leaves.
func (p *polynomialTransformer) addComponents(lhs, rhs Expr) Expr {
	lhsPoly, _ := lhs.(*Polynomial)
	rhsPoly, _ := rhs.(*Polynomial)
	lhsTerm, _ := lhs.(*Term)
	rhsTerm, _ := rhs.(*Term)

	switch {
	case lhsPoly != nil && rhsPoly != nil:
		return p.addPolynomials(lhsPoly, rhsPoly)
	case lhsPoly != nil && rhsTerm != nil:
		return p.insertTerm(lhsPoly, rhsTerm)
	case rhsPoly != nil && lhsTerm != nil:
		return p.insertTerm(rhsPoly, lhsTerm)
	case lhsTerm != nil && rhsTerm != nil:
		return p.addTerms(lhsTerm, rhsTerm)
	}

	// Polynomial + constant or opaque operand.
	if lhsPoly == nil && rhsPoly != nil {
		lhs, rhs = rhs, lhs
		lhsPoly = rhsPoly
	}
	if lhsPoly != nil {
		if rc, ok := rhs.(*ConstantExpr); ok {
			return mustPolynomial(p.hasher, foldConst(ADD, lhsPoly.scalar, rc), lhsPoly.terms...)
		}
		return p.insertTerm(lhsPoly, mustTerm(p.hasher, immediate(ExprDtype(rhs), 1), rhs))
	}

	// Term + constant or opaque operand.
	if lhsTerm == nil && rhsTerm != nil {
		lhs, rhs = rhs, lhs
		lhsTerm = rhsTerm
	}
	if lhsTerm != nil {
		if rc, ok := rhs.(*ConstantExpr); ok {
			return mustPolynomial(p.hasher, rc, lhsTerm)
		}
		return p.addTerms(lhsTerm, mustTerm(p.hasher, immediate(ExprDtype(rhs), 1), rhs))
	}

	// Constant + opaque operand.
	if lc, ok := lhs.(*ConstantExpr); ok {
		return mustPolynomial(p.hasher, lc, mustTerm(p.hasher, immediate(ExprDtype(rhs), 1), rhs))
	}
	if rc, ok := rhs.(*ConstantExpr); ok {
		return mustPolynomial(p.hasher, rc, mustTerm(p.hasher, immediate(ExprDtype(lhs), 1), lhs))
	}

	// Two opaque operands: x + x folds to 2*x.
	if p.hasher.Hash(lhs) == p.hasher.Hash(rhs) {
		return mustTerm(p.hasher, immediate(ExprDtype(lhs), 2), lhs)
	}
	return newPolynomialFromTerms(p.hasher, []*Term{
		mustTerm(p.hasher, immediate(ExprDtype(lhs), 1), lhs),
		mustTerm(p.hasher, immediate(ExprDtype(rhs), 1), rhs),
	})
}

// addTerms combines two Terms additively. Terms over the same variable set
// merge into one; a cancelled coefficient collapses to the zero constant of
// the promoted dtype.
func (p *polynomialTransformer) addTerms(lhs, rhs *Term) Expr {
	if lhs.HashVars() == rhs.HashVars() {
		scalar := foldConst(ADD, lhs.scalar, rhs.scalar)
		if scalar.IsZero() {
			return ZeroOf(PromoteTypes(ExprDtype(lhs), ExprDtype(rhs)))
		}
		return mustTerm(p.hasher, scalar, lhs.variables...)
	}
	return newPolynomialFromTerms(p.hasher, []*Term{lhs, rhs})
}

// addPolynomials merges the term lists of two Polynomials, combining Terms
// that represent the same variables and summing the scalar constants.
func (p *polynomialTransformer) addPolynomials(lhs, rhs *Polynomial) Expr {
	varmap := immutable.NewSortedMap(&hashComparer{})
	for _, t := range lhs.terms {
		varmap = p.addOrUpdateTerm(varmap, t)
	}
	for _, t := range rhs.terms {
		varmap = p.addOrUpdateTerm(varmap, t)
	}

	scalar := foldConst(ADD, lhs.scalar, rhs.scalar)
	if varmap.Len() == 0 {
		return scalar
	}
	return newPolynomialFromMap(p.hasher, scalar, varmap)
}

// addOrUpdateTerm inserts term into varmap keyed by variable-set hash. On a
// hash match the coefficients are summed; a term whose combined coefficient
// becomes zero is dropped.
func (p *polynomialTransformer) addOrUpdateTerm(varmap *immutable.SortedMap, term *Term) *immutable.SortedMap {
	key := term.HashVars()
	prev, ok := varmap.Get(key)
	if !ok {
		return varmap.Set(key, term)
	}

	other := prev.(*Term)
	scalar := foldConst(ADD, other.scalar, term.scalar)
	if scalar.IsZero() {
		return varmap.Delete(key)
	}
	return varmap.Set(key, mustTerm(p.hasher, scalar, other.variables...))
}

// insertTerm adds a single Term into a Polynomial, combining it with an
// existing Term over the same variable set if one exists.
func (p *polynomialTransformer) insertTerm(poly *Polynomial, term *Term) Expr {
	key := term.HashVars()
	terms := make([]*Term, 0, len(poly.terms)+1)
	combined := false
	for _, t := range poly.terms {
		if t.HashVars() != key {
			terms = append(terms, t)
			continue
		}
		combined = true
		scalar := foldConst(ADD, t.scalar, term.scalar)
		if !scalar.IsZero() {
			terms = append(terms, mustTerm(p.hasher, scalar, t.variables...))
		}
	}
	if !combined {
		terms = append(terms, term)
	}

	if len(terms) == 0 {
		return poly.scalar
	}
	return mustPolynomial(p.hasher, poly.scalar, terms...)
}

// negate returns the additive inverse of a folded operand, keeping the
// negation inside scalar coefficients.
func (p *polynomialTransformer) negate(e Expr) Expr {
	switch e := e.(type) {
	case *ConstantExpr:
		return e.Negate()
	case *Term:
		return mustTerm(p.hasher, e.scalar.(*ConstantExpr).Negate(), e.variables...)
	case *Polynomial:
		terms := make([]*Term, len(e.terms))
		for i, t := range e.terms {
			terms[i] = mustTerm(p.hasher, t.scalar.(*ConstantExpr).Negate(), t.variables...)
		}
		return mustPolynomial(p.hasher, e.scalar.(*ConstantExpr).Negate(), terms...)
	default:
		return mustTerm(p.hasher, immediate(ExprDtype(e), -1), e)
	}
}

func (p *polynomialTransformer) mutateMul(v *BinaryExpr) Expr {
	lhs, rhs := p.mutate(v.LHS), p.mutate(v.RHS)

	if lc, lok := lhs.(*ConstantExpr); lok {
		if rc, rok := rhs.(*ConstantExpr); rok {
			if ret, ok := evalBinaryOp(MUL, lc, rc); ok {
				return ret
			}
			return rebuildBinary(v, lhs, rhs)
		}
	}

	// Bool has no multiplicative algebra; the node stays opaque.
	if ExprDtype(lhs).Kind == Bool || ExprDtype(rhs).Kind == Bool {
		return rebuildBinary(v, lhs, rhs)
	}

	// (x / y) * y => roundoff
	if ret := p.isDivRoundOff(lhs, rhs); ret != nil {
		return ret
	}
	if ret := p.isDivRoundOff(rhs, lhs); ret != nil {
		return ret
	}

	return p.mulComponents(lhs, rhs)
}

// mulComponents merges two folded operands multiplicatively.
func (p *polynomialTransformer) mulComponents(lhs, rhs Expr) Expr {
	lhsPoly, _ := lhs.(*Polynomial)
	rhsPoly, _ := rhs.(*Polynomial)
	lhsTerm, _ := lhs.(*Term)
	rhsTerm, _ := rhs.(*Term)

	switch {
	case lhsPoly != nil && rhsPoly != nil:
		return p.mulPolynomials(lhsPoly, rhsPoly)
	case lhsPoly != nil && rhsTerm != nil:
		return p.polyByTerm(lhsPoly, rhsTerm)
	case rhsPoly != nil && lhsTerm != nil:
		return p.polyByTerm(rhsPoly, lhsTerm)
	case lhsTerm != nil && rhsTerm != nil:
		return p.mulTerms(lhsTerm, rhsTerm)
	}

	// Polynomial x constant or opaque operand.
	if lhsPoly == nil && rhsPoly != nil {
		lhs, rhs = rhs, lhs
		lhsPoly = rhsPoly
	}
	if lhsPoly != nil {
		if rc, ok := rhs.(*ConstantExpr); ok {
			return p.polyByConstant(lhsPoly, rc)
		}
		return p.polyByTerm(lhsPoly, mustTerm(p.hasher, immediate(ExprDtype(rhs), 1), rhs))
	}

	// Term x constant or opaque operand.
	if lhsTerm == nil && rhsTerm != nil {
		lhs, rhs = rhs, lhs
		lhsTerm = rhsTerm
	}
	if lhsTerm != nil {
		if rc, ok := rhs.(*ConstantExpr); ok {
			scalar := foldConst(MUL, lhsTerm.scalar, rc)
			if scalar.IsZero() {
				return ZeroOf(ExprDtype(lhsTerm))
			}
			return mustTerm(p.hasher, scalar, lhsTerm.variables...)
		}
		// Insert the new component into the term's flat variable list.
		variables := make([]Expr, 0, len(lhsTerm.variables)+1)
		variables = append(variables, lhsTerm.variables...)
		variables = append(variables, rhs)
		return mustTerm(p.hasher, lhsTerm.scalar, variables...)
	}

	// Constant x opaque operand.
	if lc, ok := lhs.(*ConstantExpr); ok {
		return mustTerm(p.hasher, lc, rhs)
	}
	if rc, ok := rhs.(*ConstantExpr); ok {
		return mustTerm(p.hasher, rc, lhs)
	}

	// Two opaque operands. Repeated variables stay as repeated flat
	// entries; there is no exponent tracking.
	return mustTerm(p.hasher, immediate(ExprDtype(lhs), 1), lhs, rhs)
}

// mulTerms multiplies two Terms: coefficients constant-fold, variable
// lists concatenate.
func (p *polynomialTransformer) mulTerms(lhs, rhs *Term) Expr {
	scalar := foldConst(MUL, lhs.scalar, rhs.scalar)
	if scalar.IsZero() {
		return ZeroOf(PromoteTypes(ExprDtype(lhs), ExprDtype(rhs)))
	}

	variables := make([]Expr, 0, len(lhs.variables)+len(rhs.variables))
	variables = append(variables, lhs.variables...)
	variables = append(variables, rhs.variables...)
	return mustTerm(p.hasher, scalar, variables...)
}

// polyByTerm distributes a Term over every component of a Polynomial,
// re-merging any resulting Terms with equal variable sets.
func (p *polynomialTransformer) polyByTerm(poly *Polynomial, term *Term) Expr {
	varmap := immutable.NewSortedMap(&hashComparer{})
	for _, t := range poly.terms {
		if product, ok := p.mulTerms(t, term).(*Term); ok {
			varmap = p.addOrUpdateTerm(varmap, product)
		}
	}

	// The polynomial's scalar times the term becomes another term.
	scalar := foldConst(MUL, poly.scalar, term.scalar)
	if !scalar.IsZero() {
		varmap = p.addOrUpdateTerm(varmap, mustTerm(p.hasher, scalar, term.variables...))
	}

	zero := ZeroOf(ExprDtype(poly))
	if varmap.Len() == 0 {
		return zero
	}
	return newPolynomialFromMap(p.hasher, zero, varmap)
}

// mulPolynomials fully distributes one Polynomial over another: every Term
// of the left times every Term of the right, all results merged by
// variable-set hash.
func (p *polynomialTransformer) mulPolynomials(lhs, rhs *Polynomial) Expr {
	varmap := immutable.NewSortedMap(&hashComparer{})
	for _, lt := range lhs.terms {
		for _, rt := range rhs.terms {
			if product, ok := p.mulTerms(lt, rt).(*Term); ok {
				varmap = p.addOrUpdateTerm(varmap, product)
			}
		}
	}

	// Cross terms against the opposite scalar.
	if sc := rhs.scalar.(*ConstantExpr); !sc.IsZero() {
		for _, lt := range lhs.terms {
			varmap = p.addOrUpdateTerm(varmap, mustTerm(p.hasher, foldConst(MUL, lt.scalar, sc), lt.variables...))
		}
	}
	if sc := lhs.scalar.(*ConstantExpr); !sc.IsZero() {
		for _, rt := range rhs.terms {
			varmap = p.addOrUpdateTerm(varmap, mustTerm(p.hasher, foldConst(MUL, rt.scalar, sc), rt.variables...))
		}
	}

	scalar := foldConst(MUL, lhs.scalar, rhs.scalar)
	if varmap.Len() == 0 {
		return scalar
	}
	return newPolynomialFromMap(p.hasher, scalar, varmap)
}

// polyByConstant scales every coefficient of a Polynomial. Variable sets
// are unchanged so no re-merge is needed.
func (p *polynomialTransformer) polyByConstant(poly *Polynomial, c *ConstantExpr) Expr {
	terms := make([]*Term, 0, len(poly.terms))
	for _, t := range poly.terms {
		scalar := foldConst(MUL, t.scalar, c)
		if !scalar.IsZero() {
			terms = append(terms, mustTerm(p.hasher, scalar, t.variables...))
		}
	}

	scalar := foldConst(MUL, poly.scalar, c)
	if len(terms) == 0 {
		return scalar
	}
	return mustPolynomial(p.hasher, scalar, terms...)
}

// isModRoundOff matches "value" plus the negated remainder of value by a
// constant divisor, the most common spelling of the rounding idiom:
//
//	x - x % d          (sub)
//	x + -1 * (x % d)   (add; the negation has already folded into a Term)
//
// On a match it returns RoundOff(value, divisor), otherwise nil.
func (p *polynomialTransformer) isModRoundOff(value, neg Expr, sub bool) Expr {
	var mod *BinaryExpr
	if sub {
		m, ok := neg.(*BinaryExpr)
		if !ok || m.Op != MOD {
			return nil
		}
		mod = m
	} else {
		t, ok := neg.(*Term)
		if !ok || len(t.variables) != 1 {
			return nil
		}
		if sc := t.scalar.(*ConstantExpr); !sc.Negate().IsOne() {
			return nil
		}
		m, ok := t.variables[0].(*BinaryExpr)
		if !ok || m.Op != MOD {
			return nil
		}
		mod = m
	}

	divisor, ok := mod.RHS.(*ConstantExpr)
	if !ok || divisor.IsZero() || !divisor.Dtype.Kind.IsInt() {
		return nil
	}
	if !ExprDtype(mod.LHS).Kind.IsInt() {
		return nil
	}
	if p.hasher.Hash(value) != p.hasher.Hash(mod.LHS) {
		return nil
	}
	return NewRoundOff(value, mod.RHS)
}

// isDivRoundOff matches (x / y) * y over integer operands, the direct
// spelling of the rounding idiom, so it survives folding.
func (p *polynomialTransformer) isDivRoundOff(div, other Expr) Expr {
	d, ok := div.(*BinaryExpr)
	if !ok || d.Op != DIV {
		return nil
	}
	if !ExprDtype(d.LHS).Kind.IsInt() || !ExprDtype(d.RHS).Kind.IsInt() {
		return nil
	}
	if p.hasher.Hash(d.RHS) != p.hasher.Hash(other) {
		return nil
	}
	return NewRoundOff(d.LHS, d.RHS)
}

func (p *polynomialTransformer) mutateDiv(v *BinaryExpr) Expr {
	lhs, rhs := p.mutate(v.LHS), p.mutate(v.RHS)

	if lc, lok := lhs.(*ConstantExpr); lok {
		if rc, rok := rhs.(*ConstantExpr); rok {
			if ret, ok := evalBinaryOp(DIV, lc, rc); ok {
				return ret
			}
			// Division by a zero constant is left un-folded.
			return rebuildBinary(v, lhs, rhs)
		}
	}

	if rc, ok := rhs.(*ConstantExpr); ok && rc.Dtype.Kind.IsInt() && !rc.IsZero() {
		if ret := p.factorizeDivision(lhs, rc); ret != nil {
			return ret
		}
	}

	return rebuildBinary(v, lhs, rhs)
}

// factorizeDivision extracts the GCD shared by a canonical dividend's
// scalar coefficients and a constant divisor. Division does not distribute,
// so this is the only simplification attempted under a Div.
func (p *polynomialTransformer) factorizeDivision(lhs Expr, rhs *ConstantExpr) Expr {
	var coeffs []int64
	switch lhs := lhs.(type) {
	case *Term:
		sc := lhs.scalar.(*ConstantExpr)
		if !sc.Dtype.Kind.IsInt() {
			return nil
		}
		coeffs = []int64{sc.Int}
	case *Polynomial:
		sc := lhs.scalar.(*ConstantExpr)
		if !sc.Dtype.Kind.IsInt() {
			return nil
		}
		coeffs = []int64{sc.Int}
		for _, t := range lhs.terms {
			tc := t.scalar.(*ConstantExpr)
			if !tc.Dtype.Kind.IsInt() {
				return nil
			}
			coeffs = append(coeffs, tc.Int)
		}
	default:
		return nil
	}

	g := abs64(rhs.Int)
	for _, c := range coeffs {
		g = gcd64(g, abs64(c))
	}
	if g <= 1 {
		return nil
	}

	scaled := p.scaleDown(lhs, g)
	divisor := rhs.Int / g
	if divisor == 1 {
		return scaled
	}
	return &BinaryExpr{Op: DIV, LHS: scaled, RHS: NewIntConstant(divisor, rhs.Dtype)}
}

// scaleDown divides every scalar coefficient of a canonical form by g.
// g must divide each coefficient exactly.
func (p *polynomialTransformer) scaleDown(e Expr, g int64) Expr {
	switch e := e.(type) {
	case *Term:
		return scaleDownTerm(p.hasher, e, g)
	case *Polynomial:
		sc := e.scalar.(*ConstantExpr)
		terms := make([]*Term, len(e.terms))
		for i, t := range e.terms {
			terms[i] = scaleDownTerm(p.hasher, t, g)
		}
		return mustPolynomial(p.hasher, NewIntConstant(sc.Int/g, sc.Dtype), terms...)
	default:
		panic("unreachable")
	}
}

// mutateBinary is the generic rule for operators with no algebraic rewrite:
// Mod, And, Xor and the shifts. The node is rebuilt only if a child changed
// and evaluated only if both folded operands are constant.
func (p *polynomialTransformer) mutateBinary(v *BinaryExpr) Expr {
	lhs, rhs := p.mutate(v.LHS), p.mutate(v.RHS)
	if lc, lok := lhs.(*ConstantExpr); lok {
		if rc, rok := rhs.(*ConstantExpr); rok {
			if ret, ok := evalBinaryOp(v.Op, lc, rc); ok {
				return ret
			}
		}
	}
	return rebuildBinary(v, lhs, rhs)
}

func (p *polynomialTransformer) mutateMax(v *MaxExpr) Expr {
	lhs, rhs := p.mutate(v.LHS), p.mutate(v.RHS)
	if lc, lok := lhs.(*ConstantExpr); lok {
		if rc, rok := rhs.(*ConstantExpr); rok {
			if ret, ok := evalMaxMin(true, lc, rc, v.PropagateNaNs); ok {
				return ret
			}
		}
	}
	if lhs == v.LHS && rhs == v.RHS {
		return v
	}
	return &MaxExpr{LHS: lhs, RHS: rhs, PropagateNaNs: v.PropagateNaNs}
}

func (p *polynomialTransformer) mutateMin(v *MinExpr) Expr {
	lhs, rhs := p.mutate(v.LHS), p.mutate(v.RHS)
	if lc, lok := lhs.(*ConstantExpr); lok {
		if rc, rok := rhs.(*ConstantExpr); rok {
			if ret, ok := evalMaxMin(false, lc, rc, v.PropagateNaNs); ok {
				return ret
			}
		}
	}
	if lhs == v.LHS && rhs == v.RHS {
		return v
	}
	return &MinExpr{LHS: lhs, RHS: rhs, PropagateNaNs: v.PropagateNaNs}
}

func (p *polynomialTransformer) mutateCast(v *CastExpr) Expr {
	src := p.mutate(v.Src)
	if c, ok := src.(*ConstantExpr); ok {
		return c.Cast(v.Dtype)
	}
	if src == v.Src {
		return v
	}
	return &CastExpr{Src: src, Dtype: v.Dtype}
}

func (p *polynomialTransformer) mutateIntrinsic(v *IntrinsicExpr) Expr {
	args := v.Args
	constants := make([]*ConstantExpr, 0, len(v.Args))
	changed := false
	for i, arg := range v.Args {
		mutated := p.mutate(arg)
		if mutated != arg {
			if !changed {
				args = make([]Expr, len(v.Args))
				copy(args, v.Args)
				changed = true
			}
			args[i] = mutated
		}
		if c, ok := mutated.(*ConstantExpr); ok {
			constants = append(constants, c)
		}
	}

	if len(constants) == len(args) {
		if ret, ok := evalIntrinsic(v.Op, constants); ok {
			return ret
		}
	}
	if !changed {
		return v
	}
	return &IntrinsicExpr{Op: v.Op, Args: args}
}

func (p *polynomialTransformer) mutateBroadcast(v *BroadcastExpr) Expr {
	value := p.mutate(v.Value)
	if value == v.Value {
		return v
	}
	return &BroadcastExpr{Value: value, Lanes: v.Lanes}
}

// rebuildBinary returns v unchanged if neither child changed identity,
// otherwise a new node over the folded children.
func rebuildBinary(v *BinaryExpr, lhs, rhs Expr) Expr {
	if lhs == v.LHS && rhs == v.RHS {
		return v
	}
	return &BinaryExpr{Op: v.Op, LHS: lhs, RHS: rhs}
}

// immediate returns a single-lane constant of the given dtype's kind.
func immediate(dtype Dtype, v int64) *ConstantExpr {
	d := Dtype{Kind: dtype.Kind, Lanes: 1}
	if d.Kind.IsFloat() {
		return NewFloatConstant(float64(v), d)
	}
	return NewIntConstant(v, d)
}

// scaleDownTerm divides a Term's coefficient by g.
func scaleDownTerm(hasher *HashProvider, t *Term, g int64) *Term {
	sc := t.scalar.(*ConstantExpr)
	return mustTerm(hasher, NewIntConstant(sc.Int/g, sc.Dtype), t.variables...)
}

func gcd64(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
