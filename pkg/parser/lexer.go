package parser

import "fmt"

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenString
	tokenPunct
)

type token struct {
	kind   tokenKind
	text   string
	offset int
	end    int
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// lex splits statement text into identifier, quoted-string and punctuation
// tokens. String tokens carry their text with the quotes stripped.
func lex(text string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '\'' || c == '"':
			start := i
			i++
			for i < len(text) && text[i] != c {
				i++
			}
			if i >= len(text) {
				return nil, &ParseError{Offset: start, Msg: "unterminated string literal"}
			}
			tokens = append(tokens, token{kind: tokenString, text: text[start+1 : i], offset: start, end: i + 1})
			i++
		case isIdentChar(c):
			start := i
			for i < len(text) && isIdentChar(text[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: text[start:i], offset: start, end: i})
		case c == '(' || c == ')' || c == ',' || c == '.' || c == ';' || c == '=' || c == '!':
			tokens = append(tokens, token{kind: tokenPunct, text: string(c), offset: i, end: i + 1})
			i++
		default:
			return nil, &ParseError{Offset: i, Token: string(c), Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	return tokens, nil
}
