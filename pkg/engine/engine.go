// Package engine answers authorization checks against a store snapshot. A
// check scans granted permissions in grant order and allows on the first
// entry whose principal resolves, action set contains the requested action,
// resource covers the requested resource, and row filter (if any) passes.
// Checks never return an error: anything that cannot be evaluated denies.
package engine

import (
	"github.com/lakegrant/lakegrant/internal/sample"
	"github.com/lakegrant/lakegrant/pkg/filter"
	"github.com/lakegrant/lakegrant/pkg/model"
	"github.com/lakegrant/lakegrant/pkg/store"
)

// EntryTrace records how one granted entry fared during a check. FilterMatch
// is true when the entry has no row filter or the filter evaluated true.
type EntryTrace struct {
	Index          int
	Permission     model.Permission
	PrincipalMatch bool
	ActionMatch    bool
	ResourceMatch  bool
	FilterMatch    bool
	Matched        bool
}

// Check reports whether the principal may perform the action on the
// resource, evaluating row filters against a representative sample row.
func Check(state store.State, principal model.Principal, resource model.Resource, action model.Action) bool {
	return CheckWithRow(state, principal, resource, action, nil)
}

// CheckWithRow is Check with an explicit row for filter evaluation. A nil
// row falls back to the representative sample row for the resource.
func CheckWithRow(state store.State, principal model.Principal, resource model.Resource, action model.Action, row map[string]string) bool {
	if row == nil {
		row = sample.RowFor(resource)
	}
	for _, perm := range state.Permissions {
		if !PrincipalMatches(state.Roles, principal, perm.Principal) {
			continue
		}
		if !perm.HasAction(action) {
			continue
		}
		if !resource.CoveredBy(perm.Resource) {
			continue
		}
		if !filterPasses(perm.RowFilter, row, state.SessionContext) {
			continue
		}
		return true
	}
	return false
}

// CheckWithTrace runs the same scan as CheckWithRow but records every
// entry's outcome. Unlike the first-match scan it keeps going after a
// match, so the trace shows how each entry fared, matched or not. The
// trace is diagnostic output only; the decision is identical to
// CheckWithRow's.
func CheckWithTrace(state store.State, principal model.Principal, resource model.Resource, action model.Action, row map[string]string) (bool, []EntryTrace) {
	if row == nil {
		row = sample.RowFor(resource)
	}
	allowed := false
	traces := make([]EntryTrace, 0, len(state.Permissions))
	for i, perm := range state.Permissions {
		tr := EntryTrace{
			Index:          i,
			Permission:     perm,
			PrincipalMatch: PrincipalMatches(state.Roles, principal, perm.Principal),
			ActionMatch:    perm.HasAction(action),
			ResourceMatch:  resource.CoveredBy(perm.Resource),
			FilterMatch:    filterPasses(perm.RowFilter, row, state.SessionContext),
		}
		tr.Matched = tr.PrincipalMatch && tr.ActionMatch && tr.ResourceMatch && tr.FilterMatch
		if tr.Matched {
			allowed = true
		}
		traces = append(traces, tr)
	}
	return allowed, traces
}

// PrincipalMatches reports whether a granted principal applies to the
// requester. A grant to a role also applies to users who are direct members
// of that role. Membership is one level deep: roles never contain roles.
// Tagged principals never match anything.
func PrincipalMatches(roles map[string][]string, requester, granted model.Principal) bool {
	if granted.Kind == model.PrincipalTagged || requester.Kind == model.PrincipalTagged {
		return false
	}
	if requester.Equal(granted) {
		return true
	}
	if granted.Kind == model.PrincipalRole && requester.Kind == model.PrincipalUser {
		for _, member := range roles[granted.ID] {
			if member == requester.ID {
				return true
			}
		}
	}
	return false
}

func filterPasses(rf *model.RowFilter, row, sessionContext map[string]string) bool {
	if rf == nil {
		return true
	}
	ok, err := filter.Evaluate(rf.Expression, row, sessionContext)
	if err != nil {
		return false
	}
	return ok
}
