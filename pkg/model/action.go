package model

import (
	"fmt"
	"strings"
)

// Action is an operation right grantable on a resource.
type Action int

const (
	ActionSelect Action = iota
	ActionInsert
	ActionUpdate
	ActionDelete
	ActionCreateTable
	ActionDropTable
	ActionAlterTable
	ActionDescribe
	ActionDataLocationAccess
	ActionGrantWithGrantOption
)

var actionNames = map[Action]string{
	ActionSelect:               "SELECT",
	ActionInsert:               "INSERT",
	ActionUpdate:               "UPDATE",
	ActionDelete:               "DELETE",
	ActionCreateTable:          "CREATE_TABLE",
	ActionDropTable:            "DROP_TABLE",
	ActionAlterTable:           "ALTER_TABLE",
	ActionDescribe:             "DESCRIBE",
	ActionDataLocationAccess:   "DATA_LOCATION_ACCESS",
	ActionGrantWithGrantOption: "GRANT_WITH_GRANT_OPTION",
}

// String returns the statement token for the action, e.g. "CREATE_TABLE".
func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("ACTION(%d)", int(a))
}

// ParseAction maps a statement token to an Action. Matching is
// case-insensitive; multi-word actions use underscores.
func ParseAction(token string) (Action, error) {
	upper := strings.ToUpper(strings.TrimSpace(token))
	for action, name := range actionNames {
		if name == upper {
			return action, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, token)
}

// MarshalText encodes the action as its statement token. Snapshots and
// exports both rely on this form.
func (a Action) MarshalText() ([]byte, error) {
	name, ok := actionNames[a]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAction, int(a))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a statement token into the action.
func (a *Action) UnmarshalText(text []byte) error {
	action, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = action
	return nil
}
