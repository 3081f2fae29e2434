// Package awslf implements the backend port on top of AWS Lake Formation.
// It is a thin adapter: model types convert 1:1 to SDK types, throttled
// calls retry with capped exponential backoff, and nothing is evaluated
// locally. Anything the service cannot express (tagged principals and
// resources, row filters, roles, session context) returns
// backend.ErrUnsupportedFeature instead of an approximation.
package awslf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lakeformation"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/lakegrant/lakegrant/pkg/backend"
	"github.com/lakegrant/lakegrant/pkg/model"
	"github.com/lakegrant/lakegrant/pkg/parser"
)

// API is the slice of the Lake Formation client the adapter calls. Tests
// substitute a stub.
type API interface {
	GrantPermissions(ctx context.Context, in *lakeformation.GrantPermissionsInput, opts ...func(*lakeformation.Options)) (*lakeformation.GrantPermissionsOutput, error)
	RevokePermissions(ctx context.Context, in *lakeformation.RevokePermissionsInput, opts ...func(*lakeformation.Options)) (*lakeformation.RevokePermissionsOutput, error)
	ListPermissions(ctx context.Context, in *lakeformation.ListPermissionsInput, opts ...func(*lakeformation.Options)) (*lakeformation.ListPermissionsOutput, error)
	CreateLFTag(ctx context.Context, in *lakeformation.CreateLFTagInput, opts ...func(*lakeformation.Options)) (*lakeformation.CreateLFTagOutput, error)
	DeleteLFTag(ctx context.Context, in *lakeformation.DeleteLFTagInput, opts ...func(*lakeformation.Options)) (*lakeformation.DeleteLFTagOutput, error)
}

// Options configures the adapter.
type Options struct {
	Region   string
	Profile  string
	Endpoint string
	Logger   zerolog.Logger

	// MaxRetryElapsed caps the total time spent retrying a throttled call.
	// Zero means the default of 30 seconds.
	MaxRetryElapsed time.Duration
}

// Client implements backend.Backend against Lake Formation.
type Client struct {
	api             API
	log             zerolog.Logger
	maxRetryElapsed time.Duration
}

// New loads AWS configuration and returns a Lake Formation backed client.
func New(ctx context.Context, opts Options) (*Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	api := lakeformation.NewFromConfig(cfg, func(o *lakeformation.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return NewWithAPI(api, opts), nil
}

// NewWithAPI wires the adapter onto an existing client or stub.
func NewWithAPI(api API, opts Options) *Client {
	elapsed := opts.MaxRetryElapsed
	if elapsed == 0 {
		elapsed = 30 * time.Second
	}
	return &Client{api: api, log: opts.Logger, maxRetryElapsed: elapsed}
}

func (c *Client) ExecuteStatement(ctx context.Context, text string) (backend.Outcome, error) {
	st, err := parser.Parse(text)
	if err != nil {
		return backend.Failure("%v", err), nil
	}

	switch st.Kind {
	case parser.StatementGrant:
		perm, err := st.ToPermission()
		if err != nil {
			return backend.Failure("%v", err), nil
		}
		return c.Grant(ctx, perm)
	case parser.StatementRevoke:
		return c.Revoke(ctx, st.Principal, st.Resource, st.Actions)
	case parser.StatementCreateTag:
		return c.CreateTag(ctx, model.Tag{Key: st.Name, Values: st.TagValues})
	case parser.StatementDropTag:
		return c.DeleteTag(ctx, st.Name)
	default:
		return backend.Outcome{}, fmt.Errorf("%w: %s statements on aws", backend.ErrUnsupportedFeature, st.Kind)
	}
}

func (c *Client) Grant(ctx context.Context, perm model.Permission) (backend.Outcome, error) {
	if perm.RowFilter != nil {
		return backend.Outcome{}, fmt.Errorf("%w: row filters on aws", backend.ErrUnsupportedFeature)
	}
	principal, err := convertPrincipal(perm.Principal)
	if err != nil {
		return backend.Outcome{}, err
	}
	resource, err := convertResource(perm.Resource)
	if err != nil {
		return backend.Outcome{}, err
	}
	permissions, err := convertActions(perm.Actions)
	if err != nil {
		return backend.Outcome{}, err
	}

	in := &lakeformation.GrantPermissionsInput{
		Principal:   &principal,
		Resource:    resource,
		Permissions: permissions,
	}
	if perm.GrantOption {
		in.PermissionsWithGrantOption = permissions
	}

	err = c.retry(ctx, "GrantPermissions", func() error {
		_, err := c.api.GrantPermissions(ctx, in)
		return err
	})
	if err != nil {
		return backend.Outcome{}, fmt.Errorf("granting permissions: %w", err)
	}
	return backend.Success("Granted permissions successfully"), nil
}

func (c *Client) Revoke(ctx context.Context, principal model.Principal, resource model.Resource, actions []model.Action) (backend.Outcome, error) {
	awsPrincipal, err := convertPrincipal(principal)
	if err != nil {
		return backend.Outcome{}, err
	}
	awsResource, err := convertResource(resource)
	if err != nil {
		return backend.Outcome{}, err
	}
	permissions, err := convertActions(actions)
	if err != nil {
		return backend.Outcome{}, err
	}

	err = c.retry(ctx, "RevokePermissions", func() error {
		_, err := c.api.RevokePermissions(ctx, &lakeformation.RevokePermissionsInput{
			Principal:   &awsPrincipal,
			Resource:    awsResource,
			Permissions: permissions,
		})
		return err
	})
	if err != nil {
		return backend.Outcome{}, fmt.Errorf("revoking permissions: %w", err)
	}
	return backend.Success("Revoked permissions successfully"), nil
}

// CheckPermission lists the permissions on the resource and looks for an
// entry matching the principal and action. The service is authoritative;
// no coverage or role logic runs here.
func (c *Client) CheckPermission(ctx context.Context, principal model.Principal, resource model.Resource, action model.Action) (bool, error) {
	awsPrincipal, err := convertPrincipal(principal)
	if err != nil {
		return false, err
	}
	awsResource, err := convertResource(resource)
	if err != nil {
		return false, err
	}
	wanted, err := convertActions([]model.Action{action})
	if err != nil {
		return false, err
	}

	var out *lakeformation.ListPermissionsOutput
	err = c.retry(ctx, "ListPermissions", func() error {
		var err error
		out, err = c.api.ListPermissions(ctx, &lakeformation.ListPermissionsInput{
			Resource: awsResource,
		})
		return err
	})
	if err != nil {
		return false, fmt.Errorf("listing permissions: %w", err)
	}

	for _, entry := range out.PrincipalResourcePermissions {
		if entry.Principal == nil || entry.Principal.DataLakePrincipalIdentifier == nil {
			continue
		}
		if aws.ToString(entry.Principal.DataLakePrincipalIdentifier) != aws.ToString(awsPrincipal.DataLakePrincipalIdentifier) {
			continue
		}
		for _, p := range entry.Permissions {
			if p == wanted[0] {
				return true, nil
			}
		}
	}
	return false, nil
}

func (c *Client) CreateTag(ctx context.Context, tag model.Tag) (backend.Outcome, error) {
	err := c.retry(ctx, "CreateLFTag", func() error {
		_, err := c.api.CreateLFTag(ctx, &lakeformation.CreateLFTagInput{
			TagKey:    aws.String(tag.Key),
			TagValues: tag.Values,
		})
		return err
	})
	if err != nil {
		return backend.Outcome{}, fmt.Errorf("creating lf-tag: %w", err)
	}
	return backend.Success("Created tag: %s", tag.Key), nil
}

func (c *Client) DeleteTag(ctx context.Context, key string) (backend.Outcome, error) {
	err := c.retry(ctx, "DeleteLFTag", func() error {
		_, err := c.api.DeleteLFTag(ctx, &lakeformation.DeleteLFTagInput{
			TagKey: aws.String(key),
		})
		return err
	})
	if err != nil {
		return backend.Outcome{}, fmt.Errorf("deleting lf-tag: %w", err)
	}
	return backend.Success("Deleted tag: %s", key), nil
}

func (c *Client) ListPermissionsForPrincipal(ctx context.Context, principal model.Principal) ([]model.Permission, error) {
	awsPrincipal, err := convertPrincipal(principal)
	if err != nil {
		return nil, err
	}
	return c.listPermissions(ctx, &lakeformation.ListPermissionsInput{Principal: &awsPrincipal})
}

func (c *Client) ListPermissionsForResource(ctx context.Context, resource model.Resource) ([]model.Permission, error) {
	awsResource, err := convertResource(resource)
	if err != nil {
		return nil, err
	}
	return c.listPermissions(ctx, &lakeformation.ListPermissionsInput{Resource: awsResource})
}

func (c *Client) listPermissions(ctx context.Context, in *lakeformation.ListPermissionsInput) ([]model.Permission, error) {
	var perms []model.Permission
	for {
		var out *lakeformation.ListPermissionsOutput
		err := c.retry(ctx, "ListPermissions", func() error {
			var err error
			out, err = c.api.ListPermissions(ctx, in)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("listing permissions: %w", err)
		}
		for _, entry := range out.PrincipalResourcePermissions {
			perm, err := convertEntry(entry)
			if err != nil {
				c.log.Warn().Err(err).Msg("skipping unconvertible permission entry")
				continue
			}
			perms = append(perms, perm)
		}
		if out.NextToken == nil {
			return perms, nil
		}
		in.NextToken = out.NextToken
	}
}

// SetSessionContext has no Lake Formation counterpart; row-level context
// lives in the query engine there.
func (c *Client) SetSessionContext(context.Context, map[string]string) error {
	return fmt.Errorf("%w: session context on aws", backend.ErrUnsupportedFeature)
}

func (c *Client) Close() error {
	return nil
}

// retry runs the call, retrying with exponential backoff while the service
// reports throttling. Other failures abort immediately.
func (c *Client) retry(ctx context.Context, op string, call func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = c.maxRetryElapsed

	return backoff.Retry(func() error {
		err := call()
		if err == nil {
			return nil
		}
		if isThrottle(err) {
			c.log.Warn().Str("operation", op).Err(err).Msg("throttled, backing off")
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(policy, ctx))
}

func isThrottle(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "ThrottlingException", "TooManyRequestsException", "RequestLimitExceeded":
		return true
	default:
		return false
	}
}

var _ backend.Backend = (*Client)(nil)
