package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidExpression is returned when filter text cannot be parsed.
var ErrInvalidExpression = errors.New("invalid filter expression")

// Parse parses filter text into an expression tree. An optional leading
// WHERE keyword is stripped. AND and OR are flat splits over the remaining
// text; each part must be a comparison or a TRUE/FALSE literal.
func Parse(text string) (Expr, error) {
	trimmed := strings.TrimSpace(text)
	if upper := strings.ToUpper(trimmed); strings.HasPrefix(upper, "WHERE ") {
		trimmed = strings.TrimSpace(trimmed[len("WHERE "):])
	}
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}
	return parseExpr(trimmed)
}

func parseExpr(text string) (Expr, error) {
	// Logical splits come first so comparisons inside parts stay intact;
	// resolving "=" first would turn any conjunction containing a
	// comparison into a single malformed comparison. The cost is that a
	// quoted literal cannot contain the " AND " / " OR " separator text.
	// The splits are flat: no precedence between AND and OR, no parentheses.
	if strings.Contains(text, " AND ") {
		parts := strings.Split(text, " AND ")
		node := And{Parts: make([]Expr, 0, len(parts))}
		for _, part := range parts {
			sub, err := parseTerm(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			node.Parts = append(node.Parts, sub)
		}
		return node, nil
	}

	if strings.Contains(text, " OR ") {
		parts := strings.Split(text, " OR ")
		node := Or{Parts: make([]Expr, 0, len(parts))}
		for _, part := range parts {
			sub, err := parseTerm(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			node.Parts = append(node.Parts, sub)
		}
		return node, nil
	}

	return parseTerm(text)
}

// parseTerm parses a single comparison or boolean literal.
func parseTerm(text string) (Expr, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty term", ErrInvalidExpression)
	}

	if pos := strings.IndexByte(text, '='); pos >= 0 {
		left := text[:pos]
		right := text[pos+1:]
		negated := false
		if strings.HasSuffix(strings.TrimRight(left, " "), "!") {
			negated = true
			left = strings.TrimRight(left, " ")
			left = left[:len(left)-1]
		}
		leftValue, err := parseValue(strings.TrimSpace(left))
		if err != nil {
			return nil, err
		}
		rightValue, err := parseValue(strings.TrimSpace(right))
		if err != nil {
			return nil, err
		}
		return Comparison{Left: leftValue, Right: rightValue, Negated: negated}, nil
	}

	switch strings.ToUpper(text) {
	case "TRUE":
		return BoolLiteral{Value: true}, nil
	case "FALSE":
		return BoolLiteral{Value: false}, nil
	}

	return nil, fmt.Errorf("%w: cannot evaluate %q", ErrInvalidExpression, text)
}

// parseValue classifies one comparison operand.
func parseValue(text string) (Value, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty operand", ErrInvalidExpression)
	}

	if quoted, ok := unquote(text); ok {
		return Literal{Text: quoted}, nil
	}

	upper := strings.ToUpper(text)
	if strings.HasPrefix(upper, "SESSION_CONTEXT(") && strings.HasSuffix(text, ")") {
		inner := text[len("SESSION_CONTEXT(") : len(text)-1]
		inner = strings.TrimSpace(inner)
		if key, ok := unquote(inner); ok {
			inner = key
		}
		if inner == "" {
			return nil, fmt.Errorf("%w: SESSION_CONTEXT needs a key", ErrInvalidExpression)
		}
		return ContextCall{Key: inner}, nil
	}

	// Bare token: row-data lookup happens at evaluation time, with numeric
	// and verbatim fallbacks, so classification stays a ColumnRef here.
	return ColumnRef{Name: text}, nil
}

// unquote strips one level of matching single or double quotes.
func unquote(text string) (string, bool) {
	if len(text) < 2 {
		return "", false
	}
	first := text[0]
	last := text[len(text)-1]
	if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
		return text[1 : len(text)-1], true
	}
	return "", false
}
