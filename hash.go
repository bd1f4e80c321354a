package tensorexpr

import "math"

// SimplifierHashType is a deterministic structural hash over an expression.
// Structurally identical subtrees hash equal; the simplifier treats hash
// equality as a proxy for structural equality when merging Terms and
// Polynomials by variable set.
type SimplifierHashType uint64

// HashProvider computes structural hashes over expressions. Hashes are
// memoized per node, so a provider must not outlive the nodes it has seen.
// One provider is shared by both passes of a single Simplify call so hash
// values stay comparable across the pipeline.
type HashProvider struct {
	cache map[Expr]SimplifierHashType
}

// NewHashProvider returns a new instance of HashProvider.
func NewHashProvider() *HashProvider {
	return &HashProvider{cache: make(map[Expr]SimplifierHashType)}
}

// FNV-1a parameters, used as the mixing function.
const (
	hashOffset = SimplifierHashType(14695981039346656037)
	hashPrime  = SimplifierHashType(1099511628211)
)

func hashMix(h SimplifierHashType, v uint64) SimplifierHashType {
	for i := 0; i < 8; i++ {
		h ^= SimplifierHashType(v & 0xff)
		h *= hashPrime
		v >>= 8
	}
	return h
}

func hashString(h SimplifierHashType, s string) SimplifierHashType {
	for i := 0; i < len(s); i++ {
		h ^= SimplifierHashType(s[i])
		h *= hashPrime
	}
	return h
}

// Node kind tags mixed into the hash so different shapes over the same
// children cannot collide trivially.
const (
	tagConstant = iota + 1
	tagVar
	tagBinary
	tagMax
	tagMin
	tagCast
	tagIntrinsic
	tagBroadcast
	tagTerm
	tagPolynomial
	tagRoundOff
)

// Hash returns the structural hash of the expression.
func (h *HashProvider) Hash(expr Expr) SimplifierHashType {
	if v, ok := h.cache[expr]; ok {
		return v
	}
	v := h.compute(expr)
	h.cache[expr] = v
	return v
}

func (h *HashProvider) compute(expr Expr) SimplifierHashType {
	switch expr := expr.(type) {
	case *ConstantExpr:
		v := hashMix(hashOffset, tagConstant)
		v = hashDtype(v, expr.Dtype)
		if expr.Dtype.Kind.IsFloat() {
			return hashMix(v, math.Float64bits(expr.Float))
		}
		return hashMix(v, uint64(expr.Int))
	case *VarExpr:
		v := hashMix(hashOffset, tagVar)
		v = hashDtype(v, expr.Dtype)
		return hashString(v, expr.Name)
	case *BinaryExpr:
		v := hashMix(hashOffset, tagBinary)
		v = hashMix(v, uint64(expr.Op))
		v = hashMix(v, uint64(h.Hash(expr.LHS)))
		return hashMix(v, uint64(h.Hash(expr.RHS)))
	case *MaxExpr:
		v := hashMix(hashOffset, tagMax)
		v = hashBool(v, expr.PropagateNaNs)
		v = hashMix(v, uint64(h.Hash(expr.LHS)))
		return hashMix(v, uint64(h.Hash(expr.RHS)))
	case *MinExpr:
		v := hashMix(hashOffset, tagMin)
		v = hashBool(v, expr.PropagateNaNs)
		v = hashMix(v, uint64(h.Hash(expr.LHS)))
		return hashMix(v, uint64(h.Hash(expr.RHS)))
	case *CastExpr:
		v := hashMix(hashOffset, tagCast)
		v = hashDtype(v, expr.Dtype)
		return hashMix(v, uint64(h.Hash(expr.Src)))
	case *IntrinsicExpr:
		v := hashMix(hashOffset, tagIntrinsic)
		v = hashMix(v, uint64(expr.Op))
		for _, arg := range expr.Args {
			v = hashMix(v, uint64(h.Hash(arg)))
		}
		return v
	case *BroadcastExpr:
		v := hashMix(hashOffset, tagBroadcast)
		v = hashMix(v, uint64(expr.Lanes))
		return hashMix(v, uint64(h.Hash(expr.Value)))
	case *Term:
		v := hashMix(hashOffset, tagTerm)
		v = hashMix(v, uint64(h.Hash(expr.scalar)))
		return hashMix(v, uint64(expr.HashVars()))
	case *Polynomial:
		v := hashMix(hashOffset, tagPolynomial)
		v = hashMix(v, uint64(h.Hash(expr.scalar)))
		return hashMix(v, uint64(expr.HashVars()))
	case *RoundOff:
		v := hashMix(hashOffset, tagRoundOff)
		v = hashMix(v, uint64(h.Hash(expr.Dividend)))
		return hashMix(v, uint64(h.Hash(expr.Divisor)))
	default:
		panic("unreachable")
	}
}

// hashExprs returns a combined hash over a sequence of expressions. Used
// for variable-set hashes, which cover a canonical component list only.
func (h *HashProvider) hashExprs(tag uint64, exprs []Expr) SimplifierHashType {
	v := hashMix(hashOffset, tag)
	for _, e := range exprs {
		v = hashMix(v, uint64(h.Hash(e)))
	}
	return v
}

func hashDtype(h SimplifierHashType, d Dtype) SimplifierHashType {
	h = hashMix(h, uint64(d.Kind))
	return hashMix(h, uint64(d.Lanes))
}

func hashBool(h SimplifierHashType, b bool) SimplifierHashType {
	if b {
		return hashMix(h, 1)
	}
	return hashMix(h, 0)
}
