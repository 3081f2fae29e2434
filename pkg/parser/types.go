// Package parser parses textual lake-permission statements (GRANT, REVOKE,
// CREATE ROLE, CREATE TAG, DROP, SHOW) into structured statements. Keyword
// matching is case-insensitive; a malformed statement yields one parse error
// naming the offending token and its offset.
package parser

import (
	"errors"
	"fmt"

	"github.com/lakegrant/lakegrant/pkg/model"
)

// StatementKind represents the kind of parsed statement
type StatementKind int

const (
	StatementUnknown StatementKind = iota
	StatementGrant
	StatementRevoke
	StatementCreateRole
	StatementCreateTag
	StatementDropRole
	StatementDropTag
	StatementShowPermissions
	StatementShowRoles
	StatementShowTags
)

// String implements the Stringer interface for StatementKind
func (k StatementKind) String() string {
	switch k {
	case StatementGrant:
		return "GRANT"
	case StatementRevoke:
		return "REVOKE"
	case StatementCreateRole:
		return "CREATE ROLE"
	case StatementCreateTag:
		return "CREATE TAG"
	case StatementDropRole:
		return "DROP ROLE"
	case StatementDropTag:
		return "DROP TAG"
	case StatementShowPermissions:
		return "SHOW PERMISSIONS"
	case StatementShowRoles:
		return "SHOW ROLES"
	case StatementShowTags:
		return "SHOW TAGS"
	default:
		return "UNKNOWN"
	}
}

// Statement is one parsed statement. The populated fields depend on Kind:
// Grant/Revoke fill Actions, Resource and Principal (Grant also GrantOption
// and RowFilter); Create/Drop fill Name (CreateTag also TagValues);
// ShowPermissions fills Principal when a FOR clause was present.
type Statement struct {
	Kind         StatementKind
	Actions      []model.Action
	Resource     model.Resource
	Principal    model.Principal
	HasPrincipal bool
	GrantOption  bool
	RowFilter    *model.RowFilter
	Name         string
	TagValues    []string
}

// ErrEmptyStatement is returned when the statement text holds no tokens.
var ErrEmptyStatement = errors.New("empty statement")

// ErrNotAGrant is returned when a non-GRANT statement is converted to a
// permission.
var ErrNotAGrant = errors.New("statement is not a GRANT and cannot be converted to a permission")

// ParseError describes the single offending token of a malformed statement.
type ParseError struct {
	Offset int
	Token  string
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("parse error at offset %d near %q: %s", e.Offset, e.Token, e.Msg)
	}
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ToPermission converts a parsed GRANT statement into a permission record.
// Converting any other statement kind is a usage error.
func (s *Statement) ToPermission() (model.Permission, error) {
	if s.Kind != StatementGrant {
		return model.Permission{}, fmt.Errorf("%w: %s", ErrNotAGrant, s.Kind)
	}
	perm := model.Permission{
		Principal:   s.Principal,
		Resource:    s.Resource,
		Actions:     append([]model.Action(nil), s.Actions...),
		GrantOption: s.GrantOption,
	}
	if s.RowFilter != nil {
		f := *s.RowFilter
		perm.RowFilter = &f
	}
	if err := perm.Validate(); err != nil {
		return model.Permission{}, err
	}
	return perm, nil
}
