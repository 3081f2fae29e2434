// Package sample provides representative row data for row-filter evaluation
// when no real row is available, plus the seed statements used by the demo.
// Real deployments would pull rows from the query engine instead.
package sample

import "github.com/lakegrant/lakegrant/pkg/model"

// RowFor returns a representative row for the given resource.
func RowFor(resource model.Resource) map[string]string {
	switch resource.Kind {
	case model.ResourceTable:
		switch resource.Database + "." + resource.Table {
		case "sales.orders":
			return map[string]string{
				"region":      "west",
				"department":  "sales",
				"customer_id": "12345",
				"amount":      "1000.00",
				"status":      "active",
			}
		case "hr.employees":
			return map[string]string{
				"department": "engineering",
				"manager":    "john_doe",
				"level":      "senior",
				"region":     "west",
			}
		case "finance.transactions":
			return map[string]string{
				"classification": "confidential",
				"department":     "finance",
				"region":         "east",
			}
		default:
			return map[string]string{
				"region":     "west",
				"department": "general",
			}
		}
	case model.ResourceDatabase:
		row := map[string]string{
			"database_owner": "admin",
			"classification": "internal",
		}
		if resource.Database == "finance" {
			row["department"] = "finance"
		}
		return row
	default:
		return map[string]string{"access_level": "public"}
	}
}

// SeedStatements returns the statements the demo executes against a fresh
// backend.
func SeedStatements() []string {
	return []string{
		"CREATE ROLE data_scientist",
		"CREATE ROLE analyst",
		"CREATE TAG department VALUES ('sales', 'finance', 'engineering')",
		"CREATE TAG classification VALUES ('public', 'internal', 'confidential')",
		"GRANT SELECT, DESCRIBE ON DATABASE sales TO ROLE analyst",
		"GRANT SELECT ON sales.orders TO ROLE data_scientist WHERE region = SESSION_CONTEXT('user_region')",
		"GRANT SELECT ON hr.employees('name', 'department') TO USER 'alice@corp.com'",
		"GRANT DATA_LOCATION_ACCESS ON 's3://lake/raw/' TO EXTERNAL_ACCOUNT '123456789012'",
		"GRANT SELECT ON finance.transactions TO ROLE analyst WITH GRANT OPTION WHERE classification != 'confidential'",
	}
}
