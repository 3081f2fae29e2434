package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lakegrant/lakegrant/pkg/engine"
	"github.com/lakegrant/lakegrant/pkg/model"
	"github.com/lakegrant/lakegrant/pkg/parser"
	"github.com/lakegrant/lakegrant/pkg/storage"
	"github.com/lakegrant/lakegrant/pkg/store"
)

// MemoryOptions configures the in-memory backend.
type MemoryOptions struct {
	// Storage, when set, is loaded at startup and written after every
	// mutation.
	Storage storage.Store
	Logger  zerolog.Logger
}

// Memory is the local backend: parser, store and engine wired together,
// optionally persisted through a snapshot store.
type Memory struct {
	store   *store.Store
	persist storage.Store
	log     zerolog.Logger
}

// NewMemory creates an in-memory backend. When options carry a snapshot
// store, the last saved state is loaded before the backend is returned.
func NewMemory(opts MemoryOptions) (*Memory, error) {
	m := &Memory{
		store:   store.New(),
		persist: opts.Storage,
		log:     opts.Logger,
	}
	if m.persist != nil {
		state, ok, err := m.persist.Load()
		if err != nil {
			return nil, fmt.Errorf("loading snapshot: %w", err)
		}
		if ok {
			m.store.Load(state)
			m.log.Info().
				Int("permissions", len(state.Permissions)).
				Int("roles", len(state.Roles)).
				Msg("loaded persisted state")
		}
		m.store.SetMutationHook(func(state store.State) {
			if err := m.persist.Save(state); err != nil {
				m.log.Error().Err(err).Msg("persisting snapshot failed")
			}
		})
	}
	return m, nil
}

// Store exposes the underlying permission store for callers that need raw
// snapshots (export, status).
func (m *Memory) Store() *store.Store {
	return m.store
}

func (m *Memory) ExecuteStatement(ctx context.Context, text string) (Outcome, error) {
	st, err := parser.Parse(text)
	if err != nil {
		m.log.Debug().Err(err).Str("statement", text).Msg("statement rejected")
		return Failure("%v", err), nil
	}
	m.log.Debug().Stringer("kind", st.Kind).Msg("executing statement")

	switch st.Kind {
	case parser.StatementGrant:
		perm, err := st.ToPermission()
		if err != nil {
			return Failure("%v", err), nil
		}
		return m.Grant(ctx, perm)

	case parser.StatementRevoke:
		return m.Revoke(ctx, st.Principal, st.Resource, st.Actions)

	case parser.StatementCreateRole:
		if err := m.store.CreateRole(st.Name); err != nil {
			return Failure("%v", err), nil
		}
		return Success("Created role: %s", st.Name), nil

	case parser.StatementCreateTag:
		return m.CreateTag(ctx, model.Tag{Key: st.Name, Values: st.TagValues})

	case parser.StatementDropRole:
		if err := m.store.DropRole(st.Name); err != nil {
			return Failure("%v", err), nil
		}
		return Success("Dropped role: %s", st.Name), nil

	case parser.StatementDropTag:
		return m.DeleteTag(ctx, st.Name)

	case parser.StatementShowPermissions:
		var perms []model.Permission
		if st.HasPrincipal {
			perms = m.store.PermissionsForPrincipal(st.Principal)
		} else {
			perms = m.store.Permissions()
		}
		return Success("Found %d permission(s)", len(perms)), nil

	case parser.StatementShowRoles:
		return Success("Roles: %s", strings.Join(m.store.ListRoles(), ", ")), nil

	case parser.StatementShowTags:
		tags := m.store.ListTags()
		keys := make([]string, len(tags))
		for i, tag := range tags {
			keys[i] = tag.Key
		}
		return Success("Tags: %s", strings.Join(keys, ", ")), nil

	default:
		return Failure("unsupported statement kind: %s", st.Kind), nil
	}
}

func (m *Memory) Grant(_ context.Context, perm model.Permission) (Outcome, error) {
	if err := m.store.Grant(perm); err != nil {
		return Failure("%v", err), nil
	}
	m.log.Info().
		Stringer("principal", perm.Principal).
		Stringer("resource", perm.Resource).
		Str("actions", actionList(perm.Actions)).
		Msg("granted")
	return Success("Granted %s on %s to %s", actionList(perm.Actions), perm.Resource, perm.Principal), nil
}

func (m *Memory) Revoke(_ context.Context, principal model.Principal, resource model.Resource, actions []model.Action) (Outcome, error) {
	removed := m.store.Revoke(principal, resource, actions)
	m.log.Info().
		Stringer("principal", principal).
		Stringer("resource", resource).
		Int("removed", removed).
		Msg("revoked")
	return Success("Revoked %d permission(s) for %s on %s", removed, principal, resource), nil
}

func (m *Memory) CheckPermission(_ context.Context, principal model.Principal, resource model.Resource, action model.Action) (bool, error) {
	allowed := engine.Check(m.store.Snapshot(), principal, resource, action)
	m.log.Debug().
		Stringer("principal", principal).
		Stringer("resource", resource).
		Stringer("action", action).
		Bool("allowed", allowed).
		Msg("checked permission")
	return allowed, nil
}

// CheckPermissionWithTrace is CheckPermission plus the per-entry scan trace.
// Not part of the Backend interface: the AWS adapter cannot produce one.
func (m *Memory) CheckPermissionWithTrace(_ context.Context, principal model.Principal, resource model.Resource, action model.Action) (bool, []engine.EntryTrace) {
	return engine.CheckWithTrace(m.store.Snapshot(), principal, resource, action, nil)
}

func (m *Memory) CreateTag(_ context.Context, tag model.Tag) (Outcome, error) {
	if err := m.store.CreateTag(tag); err != nil {
		return Failure("%v", err), nil
	}
	return Success("Created tag: %s with values [%s]", tag.Key, strings.Join(tag.Values, ", ")), nil
}

func (m *Memory) DeleteTag(_ context.Context, key string) (Outcome, error) {
	if err := m.store.DropTag(key); err != nil {
		return Failure("%v", err), nil
	}
	return Success("Deleted tag: %s", key), nil
}

func (m *Memory) ListPermissionsForPrincipal(_ context.Context, principal model.Principal) ([]model.Permission, error) {
	return m.store.PermissionsForPrincipal(principal), nil
}

func (m *Memory) ListPermissionsForResource(_ context.Context, resource model.Resource) ([]model.Permission, error) {
	return m.store.PermissionsForResource(resource), nil
}

func (m *Memory) SetSessionContext(_ context.Context, sessionContext map[string]string) error {
	m.store.SetSessionContext(sessionContext)
	return nil
}

// AddMember adds a user to a role. Membership has no statement form, so
// this lives on the concrete backend only.
func (m *Memory) AddMember(role, user string) error {
	return m.store.AddMember(role, user)
}

// RemoveMember removes a user from a role.
func (m *Memory) RemoveMember(role, user string) error {
	return m.store.RemoveMember(role, user)
}

func (m *Memory) Close() error {
	if m.persist != nil {
		return m.persist.Close()
	}
	return nil
}

var _ Backend = (*Memory)(nil)
