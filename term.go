package tensorexpr

import (
	"fmt"
	"strings"

	"github.com/benbjohnson/immutable"
	"golang.org/x/exp/slices"
)

// Term represents a grouping of expressions through multiplication:
// product(scalar, variables...). The scalar is always a constant and the
// variable list is sorted by structural hash, so two Terms over the same
// variables compare equal regardless of the order they were built in.
//
// Terms exist only between the folding and expansion passes of a single
// Simplify call; they never appear in an output tree.
type Term struct {
	hasher    *HashProvider
	scalar    Expr
	variables []Expr
	dtype     Dtype
	hashVars  SimplifierHashType
}

// NewTerm returns a new Term over the given scalar and variables. Returns
// a MalformedError if scalar is not constant or variables is empty.
func NewTerm(hasher *HashProvider, scalar Expr, variables ...Expr) (*Term, error) {
	if !IsConstant(scalar) {
		return nil, &MalformedError{Reason: "term scalar must be constant"}
	} else if len(variables) == 0 {
		return nil, &MalformedError{Reason: "term with no variables"}
	}

	dtype, err := promoteScalarVec(scalar, variables)
	if err != nil {
		return nil, err
	}

	vars := make([]Expr, len(variables))
	copy(vars, variables)
	sortByHash(hasher, vars)

	return &Term{
		hasher:    hasher,
		scalar:    scalar,
		variables: vars,
		dtype:     dtype,
		hashVars:  hasher.hashExprs(tagTerm, vars),
	}, nil
}

// mustTerm is the internal constructor used by the passes, where a
// construction failure indicates malformed input to Simplify.
func mustTerm(hasher *HashProvider, scalar Expr, variables ...Expr) *Term {
	t, err := NewTerm(hasher, scalar, variables...)
	if err != nil {
		panic(err)
	}
	return t
}

// Scalar returns the constant coefficient of the term.
func (t *Term) Scalar() Expr {
	return t.scalar
}

// Variables returns the canonical, hash-sorted component list. The
// returned slice must not be modified.
func (t *Term) Variables() []Expr {
	return t.variables
}

// HashVars returns the hash over just the variable components of the term,
// used to decide whether two Terms can be combined.
func (t *Term) HashVars() SimplifierHashType {
	return t.hashVars
}

// String returns the string representation of the expression.
func (t *Term) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(term %s", t.scalar)
	for _, v := range t.variables {
		fmt.Fprintf(&sb, " %s", v)
	}
	sb.WriteString(")")
	return sb.String()
}

// Polynomial represents a grouping of Terms through addition:
// sum(terms..., scalar). Terms are sorted by structural hash, mirroring
// the canonical ordering inside a Term.
type Polynomial struct {
	hasher   *HashProvider
	scalar   Expr
	terms    []*Term
	dtype    Dtype
	hashVars SimplifierHashType
}

// NewPolynomial returns a new Polynomial over the given scalar and terms.
// Returns a MalformedError if scalar is not constant or terms is empty.
func NewPolynomial(hasher *HashProvider, scalar Expr, terms ...*Term) (*Polynomial, error) {
	if !IsConstant(scalar) {
		return nil, &MalformedError{Reason: "polynomial scalar must be constant"}
	} else if len(terms) == 0 {
		return nil, &MalformedError{Reason: "polynomial with no terms"}
	}

	dtype, err := promoteScalarVec(scalar, terms)
	if err != nil {
		return nil, err
	}

	sorted := make([]*Term, len(terms))
	copy(sorted, terms)
	sortByHash(hasher, sorted)

	return &Polynomial{
		hasher:   hasher,
		scalar:   scalar,
		terms:    sorted,
		dtype:    dtype,
		hashVars: hasher.hashExprs(tagPolynomial, termExprs(sorted)),
	}, nil
}

// mustPolynomial is the internal constructor used by the passes.
func mustPolynomial(hasher *HashProvider, scalar Expr, terms ...*Term) *Polynomial {
	p, err := NewPolynomial(hasher, scalar, terms...)
	if err != nil {
		panic(err)
	}
	return p
}

// newPolynomialFromTerms builds a Polynomial with no scalar component; the
// scalar is the zero of the promoted term dtype.
func newPolynomialFromTerms(hasher *HashProvider, terms []*Term) *Polynomial {
	if len(terms) == 0 {
		panic(&MalformedError{Reason: "polynomial with no terms"})
	}
	dtype := ExprDtype(terms[0])
	for _, t := range terms[1:] {
		dtype = PromoteTypes(dtype, ExprDtype(t))
	}
	return mustPolynomial(hasher, ZeroOf(dtype), terms...)
}

// newPolynomialFromMap builds a Polynomial from a variable-set-hash to
// Term map, used when merging.
func newPolynomialFromMap(hasher *HashProvider, scalar Expr, varmap *immutable.SortedMap) *Polynomial {
	terms := make([]*Term, 0, varmap.Len())
	itr := varmap.Iterator()
	for !itr.Done() {
		_, v := itr.Next()
		terms = append(terms, v.(*Term))
	}
	return mustPolynomial(hasher, scalar, terms...)
}

// Scalar returns the constant component of the polynomial.
func (p *Polynomial) Scalar() Expr {
	return p.scalar
}

// Terms returns the canonical, hash-sorted term list. The returned slice
// must not be modified.
func (p *Polynomial) Terms() []*Term {
	return p.terms
}

// HashVars returns the hash over just the term list of the polynomial.
func (p *Polynomial) HashVars() SimplifierHashType {
	return p.hashVars
}

// String returns the string representation of the expression.
func (p *Polynomial) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(poly %s", p.scalar)
	for _, t := range p.terms {
		fmt.Fprintf(&sb, " %s", t)
	}
	sb.WriteString(")")
	return sb.String()
}

// RoundOff represents the multiple of Divisor nearest below Dividend:
// (Dividend / Divisor) * Divisor under truncating integer division. It is
// kept distinct from a generic product so the idiom survives folding
// instead of being reconstituted as opaque arithmetic.
type RoundOff struct {
	Dividend Expr
	Divisor  Expr
}

// NewRoundOff returns a new instance of RoundOff.
func NewRoundOff(dividend, divisor Expr) *RoundOff {
	return &RoundOff{Dividend: dividend, Divisor: divisor}
}

// String returns the string representation of the expression.
func (r *RoundOff) String() string {
	return fmt.Sprintf("(roundoff %s %s)", r.Dividend, r.Divisor)
}

// sortByHash orders components by structural hash to normalize the order
// of a Term's or Polynomial's component list.
func sortByHash[E Expr](hasher *HashProvider, components []E) {
	slices.SortFunc(components, func(a, b E) int {
		ha, hb := hasher.Hash(a), hasher.Hash(b)
		switch {
		case ha < hb:
			return -1
		case ha > hb:
			return 1
		default:
			return 0
		}
	})
}

// termExprs converts a Term slice to an Expr slice for hashing.
func termExprs(terms []*Term) []Expr {
	exprs := make([]Expr, len(terms))
	for i, t := range terms {
		exprs[i] = t
	}
	return exprs
}

// hashComparer orders SimplifierHashType keys inside an immutable
// SortedMap. Implements immutable.Comparer.
type hashComparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b,
// and returns 0 if a is equal to b.
func (c *hashComparer) Compare(a, b interface{}) int {
	if i, j := a.(SimplifierHashType), b.(SimplifierHashType); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
