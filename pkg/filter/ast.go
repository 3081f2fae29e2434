// Package filter implements the row-filter expression language: a small,
// deliberately flat boolean DSL over string values. There is no operator
// precedence and no parenthesization; AND and OR split the text into flat
// part lists, so mixing the two in one expression yields undefined grouping.
package filter

// Expr is a boolean expression node.
type Expr interface {
	exprNode()
}

// Value is an operand node that resolves to a string during evaluation.
type Value interface {
	valueNode()
}

// Literal is a quoted string literal.
type Literal struct {
	Text string
}

// ColumnRef is a bare identifier. It resolves against the row-data map
// first; failing that, numeric text resolves to itself and anything else
// falls back to its verbatim text.
type ColumnRef struct {
	Name string
}

// ContextCall is a SESSION_CONTEXT('key') lookup. A missing key is a hard
// evaluation error.
type ContextCall struct {
	Key string
}

// Comparison is an equality or, when Negated, inequality between two values.
// Comparison is always string equality, including for numeric text.
type Comparison struct {
	Left    Value
	Right   Value
	Negated bool
}

// BoolLiteral is a bare TRUE or FALSE.
type BoolLiteral struct {
	Value bool
}

// And is a flat conjunction. Parts evaluate left to right and short-circuit
// on the first false.
type And struct {
	Parts []Expr
}

// Or is a flat disjunction. Parts evaluate left to right and short-circuit
// on the first true.
type Or struct {
	Parts []Expr
}

func (Comparison) exprNode()  {}
func (BoolLiteral) exprNode() {}
func (And) exprNode()         {}
func (Or) exprNode()          {}

func (Literal) valueNode()     {}
func (ColumnRef) valueNode()   {}
func (ContextCall) valueNode() {}
