// Package model defines the domain types for lake permissions: principals,
// resources, actions, permissions, tags and roles, together with the
// matching predicates the rest of the system routes through.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// PrincipalKind identifies the variant of a Principal.
type PrincipalKind int

const (
	PrincipalUser PrincipalKind = iota
	PrincipalRole
	PrincipalSamlGroup
	PrincipalExternalAccount
	PrincipalTagged
)

// String implements the Stringer interface for PrincipalKind
func (k PrincipalKind) String() string {
	switch k {
	case PrincipalUser:
		return "USER"
	case PrincipalRole:
		return "ROLE"
	case PrincipalSamlGroup:
		return "GROUP"
	case PrincipalExternalAccount:
		return "EXTERNAL_ACCOUNT"
	case PrincipalTagged:
		return "TAGGED"
	default:
		return "UNKNOWN"
	}
}

// Principal is an identity that can hold permissions. The Kind field selects
// the variant; ID carries the user identifier, role name, group name or
// external account ID. Tagged principals are parse-accepted but never match
// during authorization.
type Principal struct {
	Kind      PrincipalKind `json:"kind"`
	ID        string        `json:"id,omitempty"`
	TagKey    string        `json:"tagKey,omitempty"`
	TagValues []string      `json:"tagValues,omitempty"`
}

// NewUser returns a user principal.
func NewUser(id string) Principal {
	return Principal{Kind: PrincipalUser, ID: id}
}

// NewRole returns a role principal.
func NewRole(name string) Principal {
	return Principal{Kind: PrincipalRole, ID: name}
}

// NewSamlGroup returns a SAML group principal.
func NewSamlGroup(name string) Principal {
	return Principal{Kind: PrincipalSamlGroup, ID: name}
}

// NewExternalAccount returns a cross-account principal.
func NewExternalAccount(id string) Principal {
	return Principal{Kind: PrincipalExternalAccount, ID: id}
}

// NewTaggedPrincipal returns a tag-condition principal.
func NewTaggedPrincipal(tagKey string, tagValues []string) Principal {
	return Principal{Kind: PrincipalTagged, TagKey: tagKey, TagValues: tagValues}
}

// Equal reports per-variant value equality.
func (p Principal) Equal(other Principal) bool {
	return p.Key() == other.Key()
}

// Key returns a stable identity string usable as a map key. Tag values are
// sorted so logically equal tagged principals share a key.
func (p Principal) Key() string {
	if p.Kind == PrincipalTagged {
		values := append([]string(nil), p.TagValues...)
		sort.Strings(values)
		return fmt.Sprintf("%s|%s=%s", p.Kind, p.TagKey, strings.Join(values, ","))
	}
	return fmt.Sprintf("%s|%s", p.Kind, p.ID)
}

// String implements the Stringer interface for Principal
func (p Principal) String() string {
	switch p.Kind {
	case PrincipalRole:
		return "ROLE " + p.ID
	case PrincipalTagged:
		return fmt.Sprintf("TAGGED %s ('%s')", p.TagKey, strings.Join(p.TagValues, "', '"))
	default:
		return fmt.Sprintf("%s '%s'", p.Kind, p.ID)
	}
}

// ResourceKind identifies the variant of a Resource.
type ResourceKind int

const (
	ResourceDatabase ResourceKind = iota
	ResourceTable
	ResourceDataLocation
	ResourceTagged
)

// String implements the Stringer interface for ResourceKind
func (k ResourceKind) String() string {
	switch k {
	case ResourceDatabase:
		return "DATABASE"
	case ResourceTable:
		return "TABLE"
	case ResourceDataLocation:
		return "DATA_LOCATION"
	case ResourceTagged:
		return "TAGGED"
	default:
		return "UNKNOWN"
	}
}

// TagCondition is one key/values condition on a tagged resource.
type TagCondition struct {
	Key    string   `json:"key"`
	Values []string `json:"values"`
}

// Resource is a protected object. Database and Table use the Database/Table
// name fields; Table may carry an optional column subset (stored but not
// consulted by coverage). DataLocation is a path prefix. Tagged resources
// are parse-accepted but never covered.
type Resource struct {
	Kind          ResourceKind   `json:"kind"`
	Database      string         `json:"database,omitempty"`
	Table         string         `json:"table,omitempty"`
	Columns       []string       `json:"columns,omitempty"`
	Path          string         `json:"path,omitempty"`
	TagConditions []TagCondition `json:"tagConditions,omitempty"`
}

// NewDatabase returns a database resource.
func NewDatabase(name string) Resource {
	return Resource{Kind: ResourceDatabase, Database: name}
}

// NewTable returns a table resource with an optional column subset.
func NewTable(database, table string, columns []string) Resource {
	return Resource{Kind: ResourceTable, Database: database, Table: table, Columns: columns}
}

// NewDataLocation returns a data location resource for a path prefix.
func NewDataLocation(path string) Resource {
	return Resource{Kind: ResourceDataLocation, Path: path}
}

// NewTaggedResource returns a tag-condition resource.
func NewTaggedResource(conditions []TagCondition) Resource {
	return Resource{Kind: ResourceTagged, TagConditions: conditions}
}

// Equal reports per-variant value equality. Column subsets participate in
// identity: grants on different column sets are distinct entries.
func (r Resource) Equal(other Resource) bool {
	return r.Key() == other.Key()
}

// Key returns a stable identity string usable as a map key.
func (r Resource) Key() string {
	switch r.Kind {
	case ResourceDatabase:
		return "DATABASE|" + r.Database
	case ResourceTable:
		return fmt.Sprintf("TABLE|%s.%s|%s", r.Database, r.Table, strings.Join(r.Columns, ","))
	case ResourceDataLocation:
		return "DATA_LOCATION|" + r.Path
	case ResourceTagged:
		parts := make([]string, 0, len(r.TagConditions))
		for _, c := range r.TagConditions {
			values := append([]string(nil), c.Values...)
			sort.Strings(values)
			parts = append(parts, c.Key+"="+strings.Join(values, ","))
		}
		sort.Strings(parts)
		return "TAGGED|" + strings.Join(parts, "&")
	default:
		return "UNKNOWN"
	}
}

// String implements the Stringer interface for Resource
func (r Resource) String() string {
	switch r.Kind {
	case ResourceDatabase:
		return "DATABASE " + r.Database
	case ResourceTable:
		if len(r.Columns) > 0 {
			return fmt.Sprintf("%s.%s('%s')", r.Database, r.Table, strings.Join(r.Columns, "', '"))
		}
		return r.Database + "." + r.Table
	case ResourceDataLocation:
		return "'" + r.Path + "'"
	case ResourceTagged:
		parts := make([]string, 0, len(r.TagConditions))
		for _, c := range r.TagConditions {
			parts = append(parts, fmt.Sprintf("%s ('%s')", c.Key, strings.Join(c.Values, "', '")))
		}
		return "RESOURCES TAGGED " + strings.Join(parts, " AND ")
	default:
		return "UNKNOWN"
	}
}

// RowFilter restricts the rows a grant applies to. Expression holds the
// filter text evaluated by the filter package. SessionContext is a static
// snapshot kept for forward compatibility; the dynamic evaluator ignores it.
type RowFilter struct {
	Expression     string            `json:"expression"`
	SessionContext map[string]string `json:"sessionContext,omitempty"`
}

// Permission is a stored grant of actions to a principal on a resource.
// The uniqueness key is (principal, resource); a later grant for the same
// pair replaces the earlier entry wholesale.
type Permission struct {
	Principal   Principal  `json:"principal"`
	Resource    Resource   `json:"resource"`
	Actions     []Action   `json:"actions"`
	GrantOption bool       `json:"grantOption,omitempty"`
	RowFilter   *RowFilter `json:"rowFilter,omitempty"`
}

// Key returns the (principal, resource) uniqueness key.
func (p Permission) Key() string {
	return p.Principal.Key() + "#" + p.Resource.Key()
}

// HasAction reports whether the permission's action set contains a. There is
// no action hierarchy; membership is exact.
func (p Permission) HasAction(a Action) bool {
	for _, have := range p.Actions {
		if have == a {
			return true
		}
	}
	return false
}

// HasAnyAction reports whether the permission's action set intersects actions.
func (p Permission) HasAnyAction(actions []Action) bool {
	for _, a := range actions {
		if p.HasAction(a) {
			return true
		}
	}
	return false
}

// Validate checks structural invariants of the permission.
func (p Permission) Validate() error {
	if len(p.Actions) == 0 {
		return fmt.Errorf("permission for %s on %s: %w", p.Principal, p.Resource, ErrEmptyActions)
	}
	return nil
}

// Tag is a declared key with an allowed value set. Tags are declarative
// only: nothing ties them to tagged principals or resources yet.
type Tag struct {
	Key         string   `json:"key"`
	Values      []string `json:"values"`
	Description string   `json:"description,omitempty"`
}
