package awslf

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lakeformation"
	lftypes "github.com/aws/aws-sdk-go-v2/service/lakeformation/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakegrant/lakegrant/pkg/backend"
	"github.com/lakegrant/lakegrant/pkg/model"
)

type stubAPI struct {
	grantIn    *lakeformation.GrantPermissionsInput
	grantErr   error
	grantCalls int

	revokeIn *lakeformation.RevokePermissionsInput

	listIn  *lakeformation.ListPermissionsInput
	listOut *lakeformation.ListPermissionsOutput

	createTagIn *lakeformation.CreateLFTagInput
	deleteTagIn *lakeformation.DeleteLFTagInput
}

func (s *stubAPI) GrantPermissions(_ context.Context, in *lakeformation.GrantPermissionsInput, _ ...func(*lakeformation.Options)) (*lakeformation.GrantPermissionsOutput, error) {
	s.grantIn = in
	s.grantCalls++
	if s.grantErr != nil {
		err := s.grantErr
		s.grantErr = nil
		return nil, err
	}
	return &lakeformation.GrantPermissionsOutput{}, nil
}

func (s *stubAPI) RevokePermissions(_ context.Context, in *lakeformation.RevokePermissionsInput, _ ...func(*lakeformation.Options)) (*lakeformation.RevokePermissionsOutput, error) {
	s.revokeIn = in
	return &lakeformation.RevokePermissionsOutput{}, nil
}

func (s *stubAPI) ListPermissions(_ context.Context, in *lakeformation.ListPermissionsInput, _ ...func(*lakeformation.Options)) (*lakeformation.ListPermissionsOutput, error) {
	s.listIn = in
	if s.listOut != nil {
		return s.listOut, nil
	}
	return &lakeformation.ListPermissionsOutput{}, nil
}

func (s *stubAPI) CreateLFTag(_ context.Context, in *lakeformation.CreateLFTagInput, _ ...func(*lakeformation.Options)) (*lakeformation.CreateLFTagOutput, error) {
	s.createTagIn = in
	return &lakeformation.CreateLFTagOutput{}, nil
}

func (s *stubAPI) DeleteLFTag(_ context.Context, in *lakeformation.DeleteLFTagInput, _ ...func(*lakeformation.Options)) (*lakeformation.DeleteLFTagOutput, error) {
	s.deleteTagIn = in
	return &lakeformation.DeleteLFTagOutput{}, nil
}

func newClient(stub *stubAPI) *Client {
	return NewWithAPI(stub, Options{Logger: zerolog.Nop(), MaxRetryElapsed: 500 * time.Millisecond})
}

func TestGrantBuildsRequest(t *testing.T) {
	stub := &stubAPI{}
	c := newClient(stub)

	outcome, err := c.Grant(context.Background(), model.Permission{
		Principal:   model.NewRole("arn:aws:iam::123456789012:role/analyst"),
		Resource:    model.NewTable("sales", "orders", nil),
		Actions:     []model.Action{model.ActionSelect, model.ActionDescribe},
		GrantOption: true,
	})
	require.NoError(t, err)
	assert.Equal(t, backend.OutcomeSuccess, outcome.Kind)

	require.NotNil(t, stub.grantIn)
	assert.Equal(t, "arn:aws:iam::123456789012:role/analyst", aws.ToString(stub.grantIn.Principal.DataLakePrincipalIdentifier))
	require.NotNil(t, stub.grantIn.Resource.Table)
	assert.Equal(t, "sales", aws.ToString(stub.grantIn.Resource.Table.DatabaseName))
	assert.Equal(t, []lftypes.Permission{lftypes.PermissionSelect, lftypes.PermissionDescribe}, stub.grantIn.Permissions)
	assert.Equal(t, stub.grantIn.Permissions, stub.grantIn.PermissionsWithGrantOption)
}

func TestGrantColumnSubsetUsesTableWithColumns(t *testing.T) {
	stub := &stubAPI{}
	c := newClient(stub)

	_, err := c.Grant(context.Background(), model.Permission{
		Principal: model.NewUser("arn:aws:iam::123456789012:user/alice"),
		Resource:  model.NewTable("sales", "orders", []string{"id", "amount"}),
		Actions:   []model.Action{model.ActionSelect},
	})
	require.NoError(t, err)

	require.NotNil(t, stub.grantIn.Resource.TableWithColumns)
	assert.Equal(t, []string{"id", "amount"}, stub.grantIn.Resource.TableWithColumns.ColumnNames)
}

func TestGrantUnsupportedFeatures(t *testing.T) {
	c := newClient(&stubAPI{})
	ctx := context.Background()

	_, err := c.Grant(ctx, model.Permission{
		Principal: model.NewRole("analyst"),
		Resource:  model.NewTable("sales", "orders", nil),
		Actions:   []model.Action{model.ActionSelect},
		RowFilter: &model.RowFilter{Expression: "region = 'west'"},
	})
	assert.ErrorIs(t, err, backend.ErrUnsupportedFeature)

	_, err = c.Grant(ctx, model.Permission{
		Principal: model.NewTaggedPrincipal("department", []string{"sales"}),
		Resource:  model.NewDatabase("sales"),
		Actions:   []model.Action{model.ActionSelect},
	})
	assert.ErrorIs(t, err, backend.ErrUnsupportedFeature)

	_, err = c.Grant(ctx, model.Permission{
		Principal: model.NewRole("analyst"),
		Resource:  model.NewTaggedResource([]model.TagCondition{{Key: "k", Values: []string{"v"}}}),
		Actions:   []model.Action{model.ActionSelect},
	})
	assert.ErrorIs(t, err, backend.ErrUnsupportedFeature)
}

func TestGrantRetriesThrottling(t *testing.T) {
	stub := &stubAPI{grantErr: &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}}
	c := newClient(stub)

	outcome, err := c.Grant(context.Background(), model.Permission{
		Principal: model.NewRole("analyst"),
		Resource:  model.NewDatabase("sales"),
		Actions:   []model.Action{model.ActionSelect},
	})
	require.NoError(t, err)
	assert.Equal(t, backend.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, 2, stub.grantCalls)
}

func TestGrantDoesNotRetryOtherErrors(t *testing.T) {
	denied := &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "no"}
	stub := &stubAPI{grantErr: denied}
	c := newClient(stub)

	_, err := c.Grant(context.Background(), model.Permission{
		Principal: model.NewRole("analyst"),
		Resource:  model.NewDatabase("sales"),
		Actions:   []model.Action{model.ActionSelect},
	})
	require.Error(t, err)
	var apiErr smithy.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "AccessDeniedException", apiErr.ErrorCode())
	assert.Equal(t, 1, stub.grantCalls)
}

func TestCheckPermission(t *testing.T) {
	stub := &stubAPI{
		listOut: &lakeformation.ListPermissionsOutput{
			PrincipalResourcePermissions: []lftypes.PrincipalResourcePermissions{
				{
					Principal:   &lftypes.DataLakePrincipal{DataLakePrincipalIdentifier: aws.String("arn:aws:iam::123456789012:role/analyst")},
					Resource:    &lftypes.Resource{Database: &lftypes.DatabaseResource{Name: aws.String("sales")}},
					Permissions: []lftypes.Permission{lftypes.PermissionSelect},
				},
			},
		},
	}
	c := newClient(stub)
	ctx := context.Background()
	analyst := model.NewRole("arn:aws:iam::123456789012:role/analyst")
	sales := model.NewDatabase("sales")

	allowed, err := c.CheckPermission(ctx, analyst, sales, model.ActionSelect)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = c.CheckPermission(ctx, analyst, sales, model.ActionDelete)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = c.CheckPermission(ctx, model.NewRole("arn:aws:iam::123456789012:role/other"), sales, model.ActionSelect)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestListPermissionsForPrincipalConverts(t *testing.T) {
	stub := &stubAPI{
		listOut: &lakeformation.ListPermissionsOutput{
			PrincipalResourcePermissions: []lftypes.PrincipalResourcePermissions{
				{
					Principal: &lftypes.DataLakePrincipal{DataLakePrincipalIdentifier: aws.String("arn:aws:iam::123456789012:user/alice")},
					Resource: &lftypes.Resource{Table: &lftypes.TableResource{
						DatabaseName: aws.String("sales"),
						Name:         aws.String("orders"),
					}},
					Permissions:                []lftypes.Permission{lftypes.PermissionSelect, lftypes.PermissionInsert},
					PermissionsWithGrantOption: []lftypes.Permission{lftypes.PermissionSelect},
				},
			},
		},
	}
	c := newClient(stub)

	perms, err := c.ListPermissionsForPrincipal(context.Background(), model.NewUser("arn:aws:iam::123456789012:user/alice"))
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, model.NewUser("arn:aws:iam::123456789012:user/alice"), perms[0].Principal)
	assert.Equal(t, model.NewTable("sales", "orders", nil), perms[0].Resource)
	assert.Equal(t, []model.Action{model.ActionSelect, model.ActionInsert}, perms[0].Actions)
	assert.True(t, perms[0].GrantOption)
}

func TestExecuteStatementDispatch(t *testing.T) {
	stub := &stubAPI{}
	c := newClient(stub)
	ctx := context.Background()

	outcome, err := c.ExecuteStatement(ctx, "CREATE TAG department VALUES ('sales')")
	require.NoError(t, err)
	assert.Equal(t, backend.OutcomeSuccess, outcome.Kind)
	require.NotNil(t, stub.createTagIn)
	assert.Equal(t, "department", aws.ToString(stub.createTagIn.TagKey))

	outcome, err = c.ExecuteStatement(ctx, "REVOKE SELECT ON DATABASE sales FROM ROLE analyst")
	require.NoError(t, err)
	assert.Equal(t, backend.OutcomeSuccess, outcome.Kind)
	require.NotNil(t, stub.revokeIn)

	// Roles are an emulator concept; the service has no statement for them.
	_, err = c.ExecuteStatement(ctx, "CREATE ROLE analyst")
	assert.ErrorIs(t, err, backend.ErrUnsupportedFeature)
}

func TestSetSessionContextUnsupported(t *testing.T) {
	c := newClient(&stubAPI{})
	err := c.SetSessionContext(context.Background(), map[string]string{"user_region": "west"})
	assert.ErrorIs(t, err, backend.ErrUnsupportedFeature)
}

func TestConvertActionsMapping(t *testing.T) {
	got, err := convertActions([]model.Action{
		model.ActionSelect, model.ActionUpdate, model.ActionDropTable, model.ActionAlterTable, model.ActionDataLocationAccess,
	})
	require.NoError(t, err)
	assert.Equal(t, []lftypes.Permission{
		lftypes.PermissionSelect,
		lftypes.PermissionInsert,
		lftypes.PermissionDrop,
		lftypes.PermissionAlter,
		lftypes.PermissionDataLocationAccess,
	}, got)

	_, err = convertActions([]model.Action{model.ActionGrantWithGrantOption})
	assert.ErrorIs(t, err, backend.ErrUnsupportedFeature)
}

func TestConvertAWSPrincipalClassification(t *testing.T) {
	tests := []struct {
		id   string
		want model.PrincipalKind
	}{
		{"arn:aws:iam::123456789012:user/alice", model.PrincipalUser},
		{"arn:aws:iam::123456789012:role/analyst", model.PrincipalRole},
		{"arn:aws:iam::123456789012:root", model.PrincipalExternalAccount},
		{"Engineering", model.PrincipalSamlGroup},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			p, err := convertAWSPrincipal(&lftypes.DataLakePrincipal{DataLakePrincipalIdentifier: aws.String(tt.id)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Kind)
			assert.Equal(t, tt.id, p.ID)
		})
	}

	_, err := convertAWSPrincipal(nil)
	assert.Error(t, err)
}
