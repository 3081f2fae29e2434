package model

import "errors"

var (
	// ErrUnknownAction is returned when an action token or value is not part
	// of the action enumeration.
	ErrUnknownAction = errors.New("unknown action")

	// ErrUnknownPrincipalKind is returned when a principal kind token or
	// value is not recognized.
	ErrUnknownPrincipalKind = errors.New("unknown principal kind")

	// ErrUnknownResourceKind is returned when a resource kind token or value
	// is not recognized.
	ErrUnknownResourceKind = errors.New("unknown resource kind")

	// ErrEmptyActions is returned when a permission carries no actions.
	ErrEmptyActions = errors.New("permission has no actions")
)
