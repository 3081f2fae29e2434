package main

import (
	"fmt"
	"strings"

	"github.com/lakegrant/lakegrant/pkg/model"
)

// parsePrincipal reads the command-line principal form: "ROLE analyst",
// "USER alice@corp.com", "GROUP analysts" or "EXTERNAL_ACCOUNT 123456789012".
// Quotes around the identifier are optional on the command line.
func parsePrincipal(s string) (model.Principal, error) {
	kind, id, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return model.Principal{}, fmt.Errorf("invalid principal %q: expected \"KIND identifier\"", s)
	}
	id = strings.Trim(strings.TrimSpace(id), "'")

	switch strings.ToUpper(kind) {
	case "USER":
		return model.NewUser(id), nil
	case "ROLE":
		return model.NewRole(id), nil
	case "GROUP":
		return model.NewSamlGroup(id), nil
	case "EXTERNAL_ACCOUNT":
		return model.NewExternalAccount(id), nil
	default:
		return model.Principal{}, fmt.Errorf("invalid principal kind %q", kind)
	}
}

// parseResource reads the command-line resource form: "DATABASE sales",
// "sales.orders" or an s3:// path.
func parseResource(s string) (model.Resource, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(strings.ToUpper(s), "DATABASE "):
		return model.NewDatabase(strings.TrimSpace(s[len("DATABASE "):])), nil
	case strings.HasPrefix(s, "s3://"):
		return model.NewDataLocation(s), nil
	case strings.Contains(s, "."):
		db, table, _ := strings.Cut(s, ".")
		return model.NewTable(db, table, nil), nil
	default:
		return model.Resource{}, fmt.Errorf("invalid resource %q: expected \"DATABASE name\", \"db.table\" or an s3:// path", s)
	}
}

// parseContext reads repeated key=value session context flags.
func parseContext(pairs []string) (map[string]string, error) {
	ctx := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid context entry %q: expected key=value", pair)
		}
		ctx[k] = v
	}
	return ctx, nil
}
