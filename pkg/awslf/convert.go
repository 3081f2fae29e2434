package awslf

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	lftypes "github.com/aws/aws-sdk-go-v2/service/lakeformation/types"

	"github.com/lakegrant/lakegrant/pkg/backend"
	"github.com/lakegrant/lakegrant/pkg/model"
)

func convertPrincipal(p model.Principal) (lftypes.DataLakePrincipal, error) {
	if p.Kind == model.PrincipalTagged {
		return lftypes.DataLakePrincipal{}, fmt.Errorf("%w: tagged principals", backend.ErrUnsupportedFeature)
	}
	return lftypes.DataLakePrincipal{DataLakePrincipalIdentifier: aws.String(p.ID)}, nil
}

func convertResource(r model.Resource) (*lftypes.Resource, error) {
	switch r.Kind {
	case model.ResourceDatabase:
		return &lftypes.Resource{
			Database: &lftypes.DatabaseResource{Name: aws.String(r.Database)},
		}, nil
	case model.ResourceTable:
		if len(r.Columns) > 0 {
			return &lftypes.Resource{
				TableWithColumns: &lftypes.TableWithColumnsResource{
					DatabaseName: aws.String(r.Database),
					Name:         aws.String(r.Table),
					ColumnNames:  r.Columns,
				},
			}, nil
		}
		return &lftypes.Resource{
			Table: &lftypes.TableResource{
				DatabaseName: aws.String(r.Database),
				Name:         aws.String(r.Table),
			},
		}, nil
	case model.ResourceDataLocation:
		return &lftypes.Resource{
			DataLocation: &lftypes.DataLocationResource{ResourceArn: aws.String(r.Path)},
		}, nil
	case model.ResourceTagged:
		return nil, fmt.Errorf("%w: tagged resources", backend.ErrUnsupportedFeature)
	default:
		return nil, fmt.Errorf("%w: resource kind %s", backend.ErrUnsupportedFeature, r.Kind)
	}
}

// Lake Formation has no UPDATE permission; it is expressed as INSERT, the
// closest write grant, matching how the statement surface treats it.
func convertActions(actions []model.Action) ([]lftypes.Permission, error) {
	out := make([]lftypes.Permission, 0, len(actions))
	for _, a := range actions {
		switch a {
		case model.ActionSelect:
			out = append(out, lftypes.PermissionSelect)
		case model.ActionInsert, model.ActionUpdate:
			out = append(out, lftypes.PermissionInsert)
		case model.ActionDelete:
			out = append(out, lftypes.PermissionDelete)
		case model.ActionCreateTable:
			out = append(out, lftypes.PermissionCreateTable)
		case model.ActionDropTable:
			out = append(out, lftypes.PermissionDrop)
		case model.ActionAlterTable:
			out = append(out, lftypes.PermissionAlter)
		case model.ActionDescribe:
			out = append(out, lftypes.PermissionDescribe)
		case model.ActionDataLocationAccess:
			out = append(out, lftypes.PermissionDataLocationAccess)
		default:
			return nil, fmt.Errorf("%w: action %s", backend.ErrUnsupportedFeature, a)
		}
	}
	return out, nil
}

func convertAWSPrincipal(p *lftypes.DataLakePrincipal) (model.Principal, error) {
	if p == nil || p.DataLakePrincipalIdentifier == nil {
		return model.Principal{}, fmt.Errorf("aws principal has no identifier")
	}
	id := *p.DataLakePrincipalIdentifier
	switch {
	case strings.HasPrefix(id, "arn:aws:iam::") && strings.Contains(id, ":user/"):
		return model.NewUser(id), nil
	case strings.HasPrefix(id, "arn:aws:iam::") && strings.Contains(id, ":role/"):
		return model.NewRole(id), nil
	case strings.HasPrefix(id, "arn:aws:iam::"):
		return model.NewExternalAccount(id), nil
	default:
		return model.NewSamlGroup(id), nil
	}
}

func convertAWSResource(r *lftypes.Resource) (model.Resource, error) {
	switch {
	case r == nil:
		return model.Resource{}, fmt.Errorf("aws resource is empty")
	case r.Database != nil:
		return model.NewDatabase(aws.ToString(r.Database.Name)), nil
	case r.Table != nil:
		return model.NewTable(aws.ToString(r.Table.DatabaseName), aws.ToString(r.Table.Name), nil), nil
	case r.TableWithColumns != nil:
		return model.NewTable(
			aws.ToString(r.TableWithColumns.DatabaseName),
			aws.ToString(r.TableWithColumns.Name),
			r.TableWithColumns.ColumnNames,
		), nil
	case r.DataLocation != nil:
		return model.NewDataLocation(aws.ToString(r.DataLocation.ResourceArn)), nil
	default:
		return model.Resource{}, fmt.Errorf("%w: aws resource variant", backend.ErrUnsupportedFeature)
	}
}

func convertAWSPermission(p lftypes.Permission) (model.Action, bool) {
	switch p {
	case lftypes.PermissionSelect:
		return model.ActionSelect, true
	case lftypes.PermissionInsert:
		return model.ActionInsert, true
	case lftypes.PermissionDelete:
		return model.ActionDelete, true
	case lftypes.PermissionCreateTable:
		return model.ActionCreateTable, true
	case lftypes.PermissionDrop:
		return model.ActionDropTable, true
	case lftypes.PermissionAlter:
		return model.ActionAlterTable, true
	case lftypes.PermissionDescribe:
		return model.ActionDescribe, true
	case lftypes.PermissionDataLocationAccess:
		return model.ActionDataLocationAccess, true
	default:
		return 0, false
	}
}

func convertEntry(entry lftypes.PrincipalResourcePermissions) (model.Permission, error) {
	principal, err := convertAWSPrincipal(entry.Principal)
	if err != nil {
		return model.Permission{}, err
	}
	resource, err := convertAWSResource(entry.Resource)
	if err != nil {
		return model.Permission{}, err
	}
	var actions []model.Action
	for _, p := range entry.Permissions {
		if a, ok := convertAWSPermission(p); ok {
			actions = append(actions, a)
		}
	}
	return model.Permission{
		Principal:   principal,
		Resource:    resource,
		Actions:     actions,
		GrantOption: len(entry.PermissionsWithGrantOption) > 0,
	}, nil
}
