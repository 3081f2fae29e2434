// Package backend defines the port the rest of the system programs against:
// one interface implemented by the in-memory engine and by the AWS Lake
// Formation adapter. Which implementation runs is always an explicit
// configuration choice made by the caller.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lakegrant/lakegrant/pkg/model"
)

// ErrUnsupportedFeature is returned by a backend that cannot express the
// requested operation, rather than silently approximating it.
var ErrUnsupportedFeature = errors.New("unsupported feature")

// OutcomeKind discriminates the Outcome variants.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeError
	OutcomePermissionCheck
)

// Outcome is the result of executing a statement. Success and Error carry
// Message; PermissionCheck carries Allowed and Reason.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Allowed bool
	Reason  string
}

// Success returns a success outcome with a formatted message.
func Success(format string, args ...any) Outcome {
	return Outcome{Kind: OutcomeSuccess, Message: fmt.Sprintf(format, args...)}
}

// Failure returns an error outcome with a formatted message.
func Failure(format string, args ...any) Outcome {
	return Outcome{Kind: OutcomeError, Message: fmt.Sprintf(format, args...)}
}

// PermissionCheck returns a permission-check outcome.
func PermissionCheck(allowed bool, reason string) Outcome {
	return Outcome{Kind: OutcomePermissionCheck, Allowed: allowed, Reason: reason}
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSuccess:
		return o.Message
	case OutcomeError:
		return "error: " + o.Message
	case OutcomePermissionCheck:
		verdict := "DENIED"
		if o.Allowed {
			verdict = "ALLOWED"
		}
		if o.Reason != "" {
			return verdict + " (" + o.Reason + ")"
		}
		return verdict
	default:
		return "unknown outcome"
	}
}

// Backend executes lake-permission operations. Implementations take a
// context on every call: the AWS strategy does network I/O.
type Backend interface {
	// ExecuteStatement parses and applies one textual statement. Statement
	// level failures (parse errors, unknown roles) come back as an Error
	// outcome; the error return is reserved for infrastructure failures.
	ExecuteStatement(ctx context.Context, text string) (Outcome, error)

	// Grant records a permission.
	Grant(ctx context.Context, perm model.Permission) (Outcome, error)

	// Revoke removes granted entries matching the principal, resource and
	// any of the actions.
	Revoke(ctx context.Context, principal model.Principal, resource model.Resource, actions []model.Action) (Outcome, error)

	// CheckPermission reports whether the principal may perform the action
	// on the resource. It never fails open: errors mean denied.
	CheckPermission(ctx context.Context, principal model.Principal, resource model.Resource, action model.Action) (bool, error)

	// CreateTag creates or updates a tag definition.
	CreateTag(ctx context.Context, tag model.Tag) (Outcome, error)

	// DeleteTag removes a tag definition.
	DeleteTag(ctx context.Context, key string) (Outcome, error)

	// ListPermissionsForPrincipal returns entries granted directly to the
	// principal.
	ListPermissionsForPrincipal(ctx context.Context, principal model.Principal) ([]model.Permission, error)

	// ListPermissionsForResource returns entries whose granted resource
	// covers the given resource.
	ListPermissionsForResource(ctx context.Context, resource model.Resource) ([]model.Permission, error)

	// SetSessionContext replaces the session context used by row filters.
	SetSessionContext(ctx context.Context, sessionContext map[string]string) error

	Close() error
}

func actionList(actions []model.Action) string {
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}
