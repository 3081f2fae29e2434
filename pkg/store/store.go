// Package store holds the mutable permission state: the ordered list of
// granted permissions, role memberships, tag definitions and the session
// context. All access is guarded by a single RWMutex so the store is safe
// for concurrent use.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/lakegrant/lakegrant/pkg/model"
)

var (
	// ErrRoleExists is returned when creating a role that already exists.
	ErrRoleExists = errors.New("role already exists")
	// ErrRoleNotFound is returned when referencing a role that does not exist.
	ErrRoleNotFound = errors.New("role not found")
	// ErrTagNotFound is returned when dropping a tag that does not exist.
	ErrTagNotFound = errors.New("tag not found")
)

// State is a point-in-time copy of everything the store holds. It is the
// unit of persistence: snapshots are written out whole and loaded back whole.
type State struct {
	Permissions    []model.Permission  `json:"permissions"`
	Roles          map[string][]string `json:"roles"`
	Tags           []model.Tag         `json:"tags"`
	SessionContext map[string]string   `json:"sessionContext"`
}

// MutationHook is invoked after every successful mutation with a snapshot of
// the new state. It runs while the store's write lock is held, so hooks see
// snapshots in mutation order.
type MutationHook func(State)

// Store is the in-memory permission store. Permissions keep their grant
// order; granting again for the same principal and resource replaces the
// earlier entry in place.
type Store struct {
	mu             sync.RWMutex
	permissions    []model.Permission
	roles          map[string]map[string]struct{}
	tags           map[string]model.Tag
	sessionContext map[string]string
	hook           MutationHook
}

// New creates an empty store.
func New() *Store {
	return &Store{
		roles:          make(map[string]map[string]struct{}),
		tags:           make(map[string]model.Tag),
		sessionContext: make(map[string]string),
	}
}

// SetMutationHook registers the hook called after each mutation. Passing nil
// clears it.
func (s *Store) SetMutationHook(hook MutationHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// Grant records a permission. An existing entry for the same principal and
// resource is replaced wholesale, keeping its position in the grant order.
func (s *Store) Grant(perm model.Permission) error {
	if err := perm.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := perm.Key()
	for i := range s.permissions {
		if s.permissions[i].Key() == key {
			s.permissions[i] = perm
			s.notifyLocked()
			return nil
		}
	}
	s.permissions = append(s.permissions, perm)
	s.notifyLocked()
	return nil
}

// Revoke removes every entry for the principal and resource whose action set
// intersects the revoked actions, returning how many entries were removed.
// Entries are removed whole: revoking one of an entry's actions drops the
// entire entry, remaining actions included.
func (s *Store) Revoke(principal model.Principal, resource model.Resource, actions []model.Action) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.permissions[:0]
	for _, perm := range s.permissions {
		if perm.Principal.Equal(principal) && perm.Resource.Equal(resource) && perm.HasAnyAction(actions) {
			continue
		}
		kept = append(kept, perm)
	}
	removed := len(s.permissions) - len(kept)
	s.permissions = kept
	if removed > 0 {
		s.notifyLocked()
	}
	return removed
}

// CreateRole registers a new empty role.
func (s *Store) CreateRole(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[name]; ok {
		return fmt.Errorf("%w: %s", ErrRoleExists, name)
	}
	s.roles[name] = make(map[string]struct{})
	s.notifyLocked()
	return nil
}

// DropRole removes a role, its memberships and every permission granted to
// it.
func (s *Store) DropRole(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrRoleNotFound, name)
	}
	delete(s.roles, name)

	rolePrincipal := model.NewRole(name)
	kept := s.permissions[:0]
	for _, perm := range s.permissions {
		if perm.Principal.Equal(rolePrincipal) {
			continue
		}
		kept = append(kept, perm)
	}
	s.permissions = kept
	s.notifyLocked()
	return nil
}

// AddMember adds a user to a role. Adding an existing member is a no-op.
func (s *Store) AddMember(role, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.roles[role]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoleNotFound, role)
	}
	members[user] = struct{}{}
	s.notifyLocked()
	return nil
}

// RemoveMember removes a user from a role. Removing a non-member is a no-op.
func (s *Store) RemoveMember(role, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.roles[role]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoleNotFound, role)
	}
	delete(members, user)
	s.notifyLocked()
	return nil
}

// CreateTag registers a tag definition, replacing any earlier definition
// with the same key.
func (s *Store) CreateTag(tag model.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tags[tag.Key] = tag
	s.notifyLocked()
	return nil
}

// DropTag removes a tag definition.
func (s *Store) DropTag(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tags[key]; !ok {
		return fmt.Errorf("%w: %s", ErrTagNotFound, key)
	}
	delete(s.tags, key)
	s.notifyLocked()
	return nil
}

// SetSessionContext replaces the session context wholesale.
func (s *Store) SetSessionContext(ctx map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessionContext = make(map[string]string, len(ctx))
	for k, v := range ctx {
		s.sessionContext[k] = v
	}
	s.notifyLocked()
}

// Permissions returns all entries in grant order.
func (s *Store) Permissions() []model.Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Permission(nil), s.permissions...)
}

// PermissionsForPrincipal returns the entries granted directly to the given
// principal, in grant order.
func (s *Store) PermissionsForPrincipal(principal model.Principal) []model.Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Permission
	for _, perm := range s.permissions {
		if perm.Principal.Equal(principal) {
			out = append(out, perm)
		}
	}
	return out
}

// PermissionsForResource returns the entries whose granted resource covers
// the given resource, in grant order.
func (s *Store) PermissionsForResource(resource model.Resource) []model.Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Permission
	for _, perm := range s.permissions {
		if resource.CoveredBy(perm.Resource) {
			out = append(out, perm)
		}
	}
	return out
}

// RoleMembers returns the sorted members of a role.
func (s *Store) RoleMembers(role string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members, ok := s.roles[role]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, role)
	}
	return sortedKeys(members), nil
}

// HasRole reports whether the role exists.
func (s *Store) HasRole(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.roles[role]
	return ok
}

// ListRoles returns all role names, sorted.
func (s *Store) ListRoles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.roles)
}

// ListTags returns all tag definitions, sorted by key.
func (s *Store) ListTags() []model.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Tag, 0, len(s.tags))
	for _, tag := range s.tags {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// SessionContext returns a copy of the current session context.
func (s *Store) SessionContext() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.sessionContext))
	for k, v := range s.sessionContext {
		out[k] = v
	}
	return out
}

// Snapshot returns a copy of the full store state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Load replaces the store contents with a previously taken snapshot. The
// mutation hook is not invoked.
func (s *Store) Load(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.permissions = append([]model.Permission(nil), state.Permissions...)
	s.roles = make(map[string]map[string]struct{}, len(state.Roles))
	for role, members := range state.Roles {
		set := make(map[string]struct{}, len(members))
		for _, m := range members {
			set[m] = struct{}{}
		}
		s.roles[role] = set
	}
	s.tags = make(map[string]model.Tag, len(state.Tags))
	for _, tag := range state.Tags {
		s.tags[tag.Key] = tag
	}
	s.sessionContext = make(map[string]string, len(state.SessionContext))
	for k, v := range state.SessionContext {
		s.sessionContext[k] = v
	}
}

func (s *Store) snapshotLocked() State {
	state := State{
		Permissions:    append([]model.Permission(nil), s.permissions...),
		Roles:          make(map[string][]string, len(s.roles)),
		Tags:           make([]model.Tag, 0, len(s.tags)),
		SessionContext: make(map[string]string, len(s.sessionContext)),
	}
	for role, members := range s.roles {
		state.Roles[role] = sortedKeys(members)
	}
	for _, tag := range s.tags {
		state.Tags = append(state.Tags, tag)
	}
	sort.Slice(state.Tags, func(i, j int) bool { return state.Tags[i].Key < state.Tags[j].Key })
	for k, v := range s.sessionContext {
		state.SessionContext[k] = v
	}
	return state
}

func (s *Store) notifyLocked() {
	if s.hook != nil {
		s.hook(s.snapshotLocked())
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
