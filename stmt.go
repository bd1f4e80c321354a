package tensorexpr

import (
	"fmt"
	"strings"
)

// Stmt represents an immutable statement tree node. The simplifier rewrites
// the expressions embedded in a statement but leaves the statement
// structure itself unchanged.
type Stmt interface {
	stmt()
}

func (*Block) stmt() {}
func (*Store) stmt() {}
func (*For) stmt()   {}
func (*Cond) stmt()  {}

// Block represents an ordered sequence of statements.
type Block struct {
	Stmts []Stmt
}

// NewBlock returns a new instance of Block.
func NewBlock(stmts ...Stmt) *Block {
	return &Block{Stmts: stmts}
}

// String returns the string representation of the statement.
func (s *Block) String() string {
	var sb strings.Builder
	sb.WriteString("(block")
	for _, st := range s.Stmts {
		fmt.Fprintf(&sb, " %s", st)
	}
	sb.WriteString(")")
	return sb.String()
}

// Store represents a write of a value to a buffer element.
type Store struct {
	Buf   *VarExpr
	Index Expr
	Value Expr
}

// NewStore returns a new instance of Store.
func NewStore(buf *VarExpr, index, value Expr) *Store {
	return &Store{Buf: buf, Index: index, Value: value}
}

// String returns the string representation of the statement.
func (s *Store) String() string {
	return fmt.Sprintf("(store %s %s %s)", s.Buf, s.Index, s.Value)
}

// For represents a counted loop over [Start, Stop).
type For struct {
	Var   *VarExpr
	Start Expr
	Stop  Expr
	Body  Stmt
}

// NewFor returns a new instance of For.
func NewFor(v *VarExpr, start, stop Expr, body Stmt) *For {
	return &For{Var: v, Start: start, Stop: stop, Body: body}
}

// String returns the string representation of the statement.
func (s *For) String() string {
	return fmt.Sprintf("(for %s %s %s %s)", s.Var, s.Start, s.Stop, s.Body)
}

// Cond represents a conditional statement. False may be nil.
type Cond struct {
	Condition Expr
	True      Stmt
	False     Stmt
}

// NewCond returns a new instance of Cond.
func NewCond(condition Expr, truth, falsity Stmt) *Cond {
	return &Cond{Condition: condition, True: truth, False: falsity}
}

// String returns the string representation of the statement.
func (s *Cond) String() string {
	if s.False == nil {
		return fmt.Sprintf("(cond %s %s)", s.Condition, s.True)
	}
	return fmt.Sprintf("(cond %s %s %s)", s.Condition, s.True, s.False)
}

// mutateStmt rewrites every expression embedded in s with fn, rebuilding a
// statement node only when one of its children changed identity.
func mutateStmt(s Stmt, fn func(Expr) Expr) Stmt {
	switch s := s.(type) {
	case *Block:
		stmts := s.Stmts
		changed := false
		for i, st := range s.Stmts {
			if mutated := mutateStmt(st, fn); mutated != st {
				if !changed {
					stmts = make([]Stmt, len(s.Stmts))
					copy(stmts, s.Stmts)
					changed = true
				}
				stmts[i] = mutated
			}
		}
		if !changed {
			return s
		}
		return &Block{Stmts: stmts}

	case *Store:
		index, value := fn(s.Index), fn(s.Value)
		if index == s.Index && value == s.Value {
			return s
		}
		return &Store{Buf: s.Buf, Index: index, Value: value}

	case *For:
		start, stop := fn(s.Start), fn(s.Stop)
		body := mutateStmt(s.Body, fn)
		if start == s.Start && stop == s.Stop && body == s.Body {
			return s
		}
		return &For{Var: s.Var, Start: start, Stop: stop, Body: body}

	case *Cond:
		condition := fn(s.Condition)
		truth := mutateStmt(s.True, fn)
		falsity := s.False
		if falsity != nil {
			falsity = mutateStmt(falsity, fn)
		}
		if condition == s.Condition && truth == s.True && falsity == s.False {
			return s
		}
		return &Cond{Condition: condition, True: truth, False: falsity}

	default:
		panic("unreachable")
	}
}
