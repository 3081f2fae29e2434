package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakegrant/lakegrant/pkg/model"
	"github.com/lakegrant/lakegrant/pkg/storage"
)

func newMemory(t *testing.T) *Memory {
	t.Helper()
	m, err := NewMemory(MemoryOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func execute(t *testing.T, m *Memory, statements ...string) {
	t.Helper()
	for _, text := range statements {
		outcome, err := m.ExecuteStatement(context.Background(), text)
		require.NoError(t, err)
		require.Equal(t, OutcomeSuccess, outcome.Kind, "statement %q: %s", text, outcome.Message)
	}
}

func TestExecuteGrantAndCheck(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	execute(t, m,
		"CREATE ROLE analyst",
		"GRANT SELECT ON DATABASE sales TO ROLE analyst",
	)
	require.NoError(t, m.AddMember("analyst", "alice@corp.com"))

	allowed, err := m.CheckPermission(ctx, model.NewUser("alice@corp.com"), model.NewTable("sales", "orders", nil), model.ActionSelect)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = m.CheckPermission(ctx, model.NewUser("alice@corp.com"), model.NewTable("hr", "employees", nil), model.ActionSelect)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestExecuteStatementOutcomes(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		text    string
		kind    OutcomeKind
		message string
	}{
		{"create role", "CREATE ROLE analyst", OutcomeSuccess, "Created role: analyst"},
		{"duplicate role", "CREATE ROLE analyst", OutcomeError, ""},
		{"create tag", "CREATE TAG department VALUES ('sales')", OutcomeSuccess, "Created tag: department with values [sales]"},
		{"grant", "GRANT SELECT ON sales.orders TO ROLE analyst", OutcomeSuccess, "Granted SELECT on sales.orders to ROLE analyst"},
		{"show permissions", "SHOW PERMISSIONS", OutcomeSuccess, "Found 1 permission(s)"},
		{"show roles", "SHOW ROLES", OutcomeSuccess, "Roles: analyst"},
		{"show tags", "SHOW TAGS", OutcomeSuccess, "Tags: department"},
		{"revoke", "REVOKE SELECT ON sales.orders FROM ROLE analyst", OutcomeSuccess, "Revoked 1 permission(s)"},
		{"drop tag", "DROP TAG department", OutcomeSuccess, "Deleted tag: department"},
		{"drop missing tag", "DROP TAG department", OutcomeError, ""},
		{"drop role", "DROP ROLE analyst", OutcomeSuccess, "Dropped role: analyst"},
		{"drop missing role", "DROP ROLE analyst", OutcomeError, ""},
		{"parse error", "GRANT NOTHING", OutcomeError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := m.ExecuteStatement(ctx, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, outcome.Kind, outcome.Message)
			if tt.message != "" {
				assert.Contains(t, outcome.Message, tt.message)
			}
		})
	}
}

func TestExecuteShowPermissionsForPrincipal(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	execute(t, m,
		"GRANT SELECT ON DATABASE sales TO ROLE analyst",
		"GRANT SELECT ON DATABASE sales TO ROLE auditor",
	)

	outcome, err := m.ExecuteStatement(ctx, "SHOW PERMISSIONS FOR ROLE analyst")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "Found 1 permission(s)", outcome.Message)
}

func TestGrantOverridesExisting(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	execute(t, m,
		"GRANT SELECT, INSERT ON sales.orders TO ROLE analyst",
		"GRANT DESCRIBE ON sales.orders TO ROLE analyst",
	)

	perms, err := m.ListPermissionsForPrincipal(ctx, model.NewRole("analyst"))
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, []model.Action{model.ActionDescribe}, perms[0].Actions)
}

func TestSessionContextDrivesRowFilters(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	execute(t, m, "GRANT SELECT ON sales.orders TO ROLE mgr WHERE region = SESSION_CONTEXT('user_region')")
	mgr := model.NewRole("mgr")
	orders := model.NewTable("sales", "orders", nil)

	// The sample row for sales.orders carries region=west.
	require.NoError(t, m.SetSessionContext(ctx, map[string]string{"user_region": "west"}))
	allowed, err := m.CheckPermission(ctx, mgr, orders, model.ActionSelect)
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, m.SetSessionContext(ctx, map[string]string{"user_region": "east"}))
	allowed, err = m.CheckPermission(ctx, mgr, orders, model.ActionSelect)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Missing context key denies instead of erroring.
	require.NoError(t, m.SetSessionContext(ctx, map[string]string{}))
	allowed, err = m.CheckPermission(ctx, mgr, orders, model.ActionSelect)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCheckPermissionWithTrace(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	execute(t, m, "GRANT SELECT ON DATABASE sales TO ROLE analyst")

	allowed, traces := m.CheckPermissionWithTrace(ctx, model.NewRole("analyst"), model.NewTable("sales", "orders", nil), model.ActionSelect)
	assert.True(t, allowed)
	require.Len(t, traces, 1)
	assert.True(t, traces[0].Matched)
}

func TestListPermissionsForResource(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	execute(t, m,
		"GRANT SELECT ON DATABASE sales TO ROLE analyst",
		"GRANT SELECT ON DATABASE hr TO ROLE analyst",
	)

	perms, err := m.ListPermissionsForResource(ctx, model.NewTable("sales", "orders", nil))
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, model.NewDatabase("sales"), perms[0].Resource)
}

func TestPersistenceAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	first, err := NewMemory(MemoryOptions{
		Storage: storage.NewFileStore(path),
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	execute(t, first,
		"CREATE ROLE analyst",
		"GRANT SELECT ON DATABASE sales TO ROLE analyst",
	)
	require.NoError(t, first.Close())

	second, err := NewMemory(MemoryOptions{
		Storage: storage.NewFileStore(path),
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	defer second.Close()

	allowed, err := second.CheckPermission(ctx, model.NewRole("analyst"), model.NewTable("sales", "orders", nil), model.ActionSelect)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, []string{"analyst"}, second.Store().ListRoles())
}
