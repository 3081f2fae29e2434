package parser

import (
	"fmt"
	"strings"

	"github.com/lakegrant/lakegrant/pkg/filter"
	"github.com/lakegrant/lakegrant/pkg/model"
)

// Parse parses one statement. A single trailing semicolon is permitted.
func Parse(text string) (*Statement, error) {
	tokens, err := lex(text)
	if err != nil {
		return nil, err
	}
	if n := len(tokens); n > 0 && tokens[n-1].kind == tokenPunct && tokens[n-1].text == ";" {
		tokens = tokens[:n-1]
	}
	if len(tokens) == 0 {
		return nil, ErrEmptyStatement
	}

	p := &stmtParser{src: text, tokens: tokens}
	head, _ := p.next()
	if head.kind != tokenIdent {
		return nil, p.errAt(head, "expected a statement keyword")
	}

	var st *Statement
	switch strings.ToUpper(head.text) {
	case "GRANT":
		st, err = p.parseGrant()
	case "REVOKE":
		st, err = p.parseRevoke()
	case "CREATE":
		st, err = p.parseCreate()
	case "DROP":
		st, err = p.parseDrop()
	case "SHOW":
		st, err = p.parseShow()
	default:
		return nil, p.errAt(head, fmt.Sprintf("unknown statement %q", head.text))
	}
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return st, nil
}

type stmtParser struct {
	src    string
	tokens []token
	pos    int
}

func (p *stmtParser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *stmtParser) next() (token, bool) {
	tok, ok := p.peek()
	if ok {
		p.pos++
	}
	return tok, ok
}

func (p *stmtParser) errAt(tok token, msg string) error {
	return &ParseError{Offset: tok.offset, Token: tok.text, Msg: msg}
}

func (p *stmtParser) errEOF(msg string) error {
	return &ParseError{Offset: len(p.src), Msg: msg}
}

// keywordIs reports whether tok is the given keyword, case-insensitively.
func keywordIs(tok token, keyword string) bool {
	return tok.kind == tokenIdent && strings.EqualFold(tok.text, keyword)
}

func (p *stmtParser) expectKeyword(keyword string) error {
	tok, ok := p.next()
	if !ok {
		return p.errEOF(fmt.Sprintf("expected %s", keyword))
	}
	if !keywordIs(tok, keyword) {
		return p.errAt(tok, fmt.Sprintf("expected %s", keyword))
	}
	return nil
}

func (p *stmtParser) expectIdent(what string) (token, error) {
	tok, ok := p.next()
	if !ok {
		return token{}, p.errEOF("expected " + what)
	}
	if tok.kind != tokenIdent {
		return token{}, p.errAt(tok, "expected "+what)
	}
	return tok, nil
}

func (p *stmtParser) expectString(what string) (token, error) {
	tok, ok := p.next()
	if !ok {
		return token{}, p.errEOF("expected " + what)
	}
	if tok.kind != tokenString {
		return token{}, p.errAt(tok, "expected "+what)
	}
	return tok, nil
}

func (p *stmtParser) expectPunct(text string) error {
	tok, ok := p.next()
	if !ok {
		return p.errEOF(fmt.Sprintf("expected %q", text))
	}
	if tok.kind != tokenPunct || tok.text != text {
		return p.errAt(tok, fmt.Sprintf("expected %q", text))
	}
	return nil
}

func (p *stmtParser) expectEnd() error {
	if tok, ok := p.peek(); ok {
		return p.errAt(tok, "unexpected trailing input")
	}
	return nil
}

func (p *stmtParser) parseGrant() (*Statement, error) {
	st := &Statement{Kind: StatementGrant}

	actions, err := p.parseActionList()
	if err != nil {
		return nil, err
	}
	st.Actions = actions

	if err := p.expectKeyword("ON"); err != nil {
		return nil, err
	}
	st.Resource, err = p.parseResource()
	if err != nil {
		return nil, err
	}

	if err := p.expectKeyword("TO"); err != nil {
		return nil, err
	}
	st.Principal, err = p.parsePrincipal()
	if err != nil {
		return nil, err
	}
	st.HasPrincipal = true

	if tok, ok := p.peek(); ok && keywordIs(tok, "WITH") {
		p.next()
		if err := p.expectKeyword("GRANT"); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("OPTION"); err != nil {
			return nil, err
		}
		st.GrantOption = true
	}

	if tok, ok := p.peek(); ok && keywordIs(tok, "WHERE") {
		p.next()
		rowFilter, err := p.parseRowFilter(tok)
		if err != nil {
			return nil, err
		}
		st.RowFilter = rowFilter
	}

	return st, nil
}

// parseRowFilter consumes the remainder of the statement as raw filter text
// and validates it against the filter grammar.
func (p *stmtParser) parseRowFilter(whereTok token) (*model.RowFilter, error) {
	raw := strings.TrimSpace(p.src[whereTok.end:])
	raw = strings.TrimSpace(strings.TrimSuffix(raw, ";"))
	if raw == "" {
		return nil, p.errAt(whereTok, "WHERE requires a filter expression")
	}
	if _, err := filter.Parse(raw); err != nil {
		return nil, &ParseError{Offset: whereTok.end, Token: raw, Msg: "invalid row filter", Err: err}
	}
	p.pos = len(p.tokens)
	return &model.RowFilter{Expression: raw}, nil
}

func (p *stmtParser) parseRevoke() (*Statement, error) {
	st := &Statement{Kind: StatementRevoke}

	actions, err := p.parseActionList()
	if err != nil {
		return nil, err
	}
	st.Actions = actions

	if err := p.expectKeyword("ON"); err != nil {
		return nil, err
	}
	st.Resource, err = p.parseResource()
	if err != nil {
		return nil, err
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	st.Principal, err = p.parsePrincipal()
	if err != nil {
		return nil, err
	}
	st.HasPrincipal = true

	return st, nil
}

func (p *stmtParser) parseCreate() (*Statement, error) {
	tok, ok := p.next()
	if !ok {
		return nil, p.errEOF("expected ROLE or TAG")
	}
	switch {
	case keywordIs(tok, "ROLE"):
		name, err := p.expectIdent("role name")
		if err != nil {
			return nil, err
		}
		return &Statement{Kind: StatementCreateRole, Name: name.text}, nil
	case keywordIs(tok, "TAG"):
		name, err := p.expectIdent("tag name")
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("VALUES"); err != nil {
			return nil, err
		}
		values, err := p.parseQuotedList()
		if err != nil {
			return nil, err
		}
		return &Statement{Kind: StatementCreateTag, Name: name.text, TagValues: values}, nil
	default:
		return nil, p.errAt(tok, "expected ROLE or TAG")
	}
}

func (p *stmtParser) parseDrop() (*Statement, error) {
	tok, ok := p.next()
	if !ok {
		return nil, p.errEOF("expected ROLE or TAG")
	}
	switch {
	case keywordIs(tok, "ROLE"):
		name, err := p.expectIdent("role name")
		if err != nil {
			return nil, err
		}
		return &Statement{Kind: StatementDropRole, Name: name.text}, nil
	case keywordIs(tok, "TAG"):
		name, err := p.expectIdent("tag name")
		if err != nil {
			return nil, err
		}
		return &Statement{Kind: StatementDropTag, Name: name.text}, nil
	default:
		return nil, p.errAt(tok, "expected ROLE or TAG")
	}
}

func (p *stmtParser) parseShow() (*Statement, error) {
	tok, ok := p.next()
	if !ok {
		return nil, p.errEOF("expected PERMISSIONS, ROLES or TAGS")
	}
	switch {
	case keywordIs(tok, "PERMISSIONS"):
		st := &Statement{Kind: StatementShowPermissions}
		if next, ok := p.peek(); ok && keywordIs(next, "FOR") {
			p.next()
			principal, err := p.parsePrincipal()
			if err != nil {
				return nil, err
			}
			st.Principal = principal
			st.HasPrincipal = true
		}
		return st, nil
	case keywordIs(tok, "ROLES"):
		return &Statement{Kind: StatementShowRoles}, nil
	case keywordIs(tok, "TAGS"):
		return &Statement{Kind: StatementShowTags}, nil
	default:
		return nil, p.errAt(tok, "expected PERMISSIONS, ROLES or TAGS")
	}
}

// parseActionList parses one or more comma-separated action tokens.
func (p *stmtParser) parseActionList() ([]model.Action, error) {
	var actions []model.Action
	for {
		tok, err := p.expectIdent("action")
		if err != nil {
			return nil, err
		}
		action, parseErr := model.ParseAction(tok.text)
		if parseErr != nil {
			return nil, &ParseError{Offset: tok.offset, Token: tok.text, Msg: "unknown action", Err: parseErr}
		}
		actions = append(actions, action)

		next, ok := p.peek()
		if !ok || next.kind != tokenPunct || next.text != "," {
			return actions, nil
		}
		p.next()
	}
}

// parseResource parses DATABASE <name>, <db>.<table> with an optional quoted
// column list, a quoted data-location path, or RESOURCES TAGGED conditions.
func (p *stmtParser) parseResource() (model.Resource, error) {
	tok, ok := p.next()
	if !ok {
		return model.Resource{}, p.errEOF("expected a resource")
	}

	if tok.kind == tokenString {
		return model.NewDataLocation(tok.text), nil
	}
	if tok.kind != tokenIdent {
		return model.Resource{}, p.errAt(tok, "expected a resource")
	}

	switch {
	case keywordIs(tok, "DATABASE"):
		name, err := p.expectIdent("database name")
		if err != nil {
			return model.Resource{}, err
		}
		return model.NewDatabase(name.text), nil

	case keywordIs(tok, "RESOURCES"):
		if err := p.expectKeyword("TAGGED"); err != nil {
			return model.Resource{}, err
		}
		var conditions []model.TagCondition
		for {
			key, err := p.expectIdent("tag key")
			if err != nil {
				return model.Resource{}, err
			}
			values, err := p.parseQuotedList()
			if err != nil {
				return model.Resource{}, err
			}
			conditions = append(conditions, model.TagCondition{Key: key.text, Values: values})

			next, ok := p.peek()
			if !ok || !keywordIs(next, "AND") {
				return model.NewTaggedResource(conditions), nil
			}
			p.next()
		}

	default:
		// <database>.<table> with an optional parenthesized column list.
		if err := p.expectPunct("."); err != nil {
			return model.Resource{}, err
		}
		table, err := p.expectIdent("table name")
		if err != nil {
			return model.Resource{}, err
		}
		var columns []string
		if next, ok := p.peek(); ok && next.kind == tokenPunct && next.text == "(" {
			columns, err = p.parseQuotedList()
			if err != nil {
				return model.Resource{}, err
			}
		}
		return model.NewTable(tok.text, table.text, columns), nil
	}
}

// parsePrincipal parses ROLE <name>, USER '<id>', GROUP '<name>',
// EXTERNAL_ACCOUNT '<id>' or TAGGED <key> (<quoted values>).
func (p *stmtParser) parsePrincipal() (model.Principal, error) {
	tok, ok := p.next()
	if !ok {
		return model.Principal{}, p.errEOF("expected a principal")
	}
	if tok.kind != tokenIdent {
		return model.Principal{}, p.errAt(tok, "expected a principal")
	}

	switch {
	case keywordIs(tok, "ROLE"):
		name, err := p.expectIdent("role name")
		if err != nil {
			return model.Principal{}, err
		}
		return model.NewRole(name.text), nil
	case keywordIs(tok, "USER"):
		id, err := p.expectString("quoted user identifier")
		if err != nil {
			return model.Principal{}, err
		}
		return model.NewUser(id.text), nil
	case keywordIs(tok, "GROUP"):
		name, err := p.expectString("quoted group name")
		if err != nil {
			return model.Principal{}, err
		}
		return model.NewSamlGroup(name.text), nil
	case keywordIs(tok, "EXTERNAL_ACCOUNT"):
		id, err := p.expectString("quoted account identifier")
		if err != nil {
			return model.Principal{}, err
		}
		return model.NewExternalAccount(id.text), nil
	case keywordIs(tok, "TAGGED"):
		key, err := p.expectIdent("tag key")
		if err != nil {
			return model.Principal{}, err
		}
		values, err := p.parseQuotedList()
		if err != nil {
			return model.Principal{}, err
		}
		return model.NewTaggedPrincipal(key.text, values), nil
	default:
		return model.Principal{}, &ParseError{
			Offset: tok.offset,
			Token:  tok.text,
			Msg:    "unknown principal kind",
			Err:    model.ErrUnknownPrincipalKind,
		}
	}
}

// parseQuotedList parses a parenthesized, comma-separated list of quoted
// strings with at least one element.
func (p *stmtParser) parseQuotedList() ([]string, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var values []string
	for {
		value, err := p.expectString("quoted string")
		if err != nil {
			return nil, err
		}
		values = append(values, value.text)

		tok, ok := p.next()
		if !ok {
			return nil, p.errEOF(`expected "," or ")"`)
		}
		if tok.kind == tokenPunct && tok.text == ")" {
			return values, nil
		}
		if tok.kind != tokenPunct || tok.text != "," {
			return nil, p.errAt(tok, `expected "," or ")"`)
		}
	}
}
