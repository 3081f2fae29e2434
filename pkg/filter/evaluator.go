package filter

import (
	"errors"
	"fmt"
)

// ErrMissingContextKey is returned when SESSION_CONTEXT references a key
// absent from the session-context map. Callers treat this as a hard
// evaluation failure; the authorization engine converts it to a deny.
var ErrMissingContextKey = errors.New("session context key not found")

// Evaluator evaluates filter expressions against one row and the current
// session context. All comparisons are string equality.
type Evaluator struct {
	// Row is the representative row data for the resource under check.
	Row map[string]string
	// Context is the store-global session-context map.
	Context map[string]string
}

// Evaluate parses and evaluates expression text in one step.
func Evaluate(expression string, row, context map[string]string) (bool, error) {
	expr, err := Parse(expression)
	if err != nil {
		return false, err
	}
	ev := Evaluator{Row: row, Context: context}
	return ev.Eval(expr)
}

// Eval evaluates a parsed expression tree.
func (e Evaluator) Eval(expr Expr) (bool, error) {
	switch node := expr.(type) {
	case BoolLiteral:
		return node.Value, nil
	case Comparison:
		left, err := e.resolve(node.Left)
		if err != nil {
			return false, err
		}
		right, err := e.resolve(node.Right)
		if err != nil {
			return false, err
		}
		if node.Negated {
			return left != right, nil
		}
		return left == right, nil
	case And:
		for _, part := range node.Parts {
			ok, err := e.Eval(part)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case Or:
		for _, part := range node.Parts {
			ok, err := e.Eval(part)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w: unexpected node %T", ErrInvalidExpression, expr)
	}
}

// resolve turns an operand into its string value.
func (e Evaluator) resolve(v Value) (string, error) {
	switch operand := v.(type) {
	case Literal:
		return operand.Text, nil
	case ContextCall:
		value, ok := e.Context[operand.Key]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrMissingContextKey, operand.Key)
		}
		return value, nil
	case ColumnRef:
		if value, ok := e.Row[operand.Name]; ok {
			return value, nil
		}
		// Unknown tokens (numbers included) compare by their literal text.
		return operand.Name, nil
	default:
		return "", fmt.Errorf("%w: unexpected operand %T", ErrInvalidExpression, v)
	}
}
