// Package export re-emits store state as executable statements and as a
// human-readable summary. The statement output is presentation only; the
// JSON snapshot remains the canonical serialization.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lakegrant/lakegrant/pkg/model"
	"github.com/lakegrant/lakegrant/pkg/store"
)

// Statements renders the state as CREATE ROLE, CREATE TAG and GRANT
// statements that pkg/parser accepts. Roles and tags come out sorted by
// name; permissions keep their grant order, since re-executing them must
// reproduce the same first-match scan order.
func Statements(state store.State) []string {
	var out []string

	for role := range state.Roles {
		out = append(out, fmt.Sprintf("CREATE ROLE %s;", role))
	}
	sort.Strings(out)

	tags := make([]string, 0, len(state.Tags))
	for _, tag := range state.Tags {
		tags = append(tags, fmt.Sprintf("CREATE TAG %s VALUES (%s);", tag.Key, quotedList(tag.Values)))
	}
	sort.Strings(tags)
	out = append(out, tags...)

	for _, perm := range state.Permissions {
		out = append(out, grantStatement(perm))
	}
	return out
}

func grantStatement(perm model.Permission) string {
	var b strings.Builder
	b.WriteString("GRANT ")
	for i, action := range perm.Actions {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(action.String())
	}
	b.WriteString(" ON ")
	b.WriteString(perm.Resource.String())
	b.WriteString(" TO ")
	b.WriteString(perm.Principal.String())
	if perm.GrantOption {
		b.WriteString(" WITH GRANT OPTION")
	}
	if perm.RowFilter != nil {
		b.WriteString(" WHERE ")
		b.WriteString(perm.RowFilter.Expression)
	}
	b.WriteString(";")
	return b.String()
}

// Summary renders counts plus the roles, tags and permissions in readable
// form.
func Summary(state store.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d permission(s), %d role(s), %d tag(s)\n", len(state.Permissions), len(state.Roles), len(state.Tags))

	if len(state.Roles) > 0 {
		b.WriteString("\nRoles:\n")
		names := make([]string, 0, len(state.Roles))
		for role := range state.Roles {
			names = append(names, role)
		}
		sort.Strings(names)
		for _, role := range names {
			members := state.Roles[role]
			if len(members) == 0 {
				fmt.Fprintf(&b, "  %s (no members)\n", role)
				continue
			}
			fmt.Fprintf(&b, "  %s: %s\n", role, strings.Join(members, ", "))
		}
	}

	if len(state.Tags) > 0 {
		b.WriteString("\nTags:\n")
		for _, tag := range state.Tags {
			fmt.Fprintf(&b, "  %s = %s\n", tag.Key, strings.Join(tag.Values, ", "))
		}
	}

	if len(state.Permissions) > 0 {
		b.WriteString("\nPermissions:\n")
		for _, perm := range state.Permissions {
			fmt.Fprintf(&b, "  %s\n", strings.TrimSuffix(grantStatement(perm), ";"))
		}
	}

	if len(state.SessionContext) > 0 {
		b.WriteString("\nSession context:\n")
		keys := make([]string, 0, len(state.SessionContext))
		for k := range state.SessionContext {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s = %s\n", k, state.SessionContext[k])
		}
	}
	return b.String()
}

func quotedList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, ", ")
}
