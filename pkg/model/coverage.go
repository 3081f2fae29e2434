package model

import "strings"

// CoveredBy reports whether a check on r is satisfied by a grant on granted.
// This is the single authoritative coverage predicate; every caller routes
// through it. The relation is asymmetric and kind-specific:
//
//   - a Table is covered by an identical Table (column subsets are stored
//     but ignored here) or by a Database with the table's database name
//   - a Database is covered only by an identical Database
//   - a DataLocation is covered by a grant whose path is a prefix of its own
//   - Tagged resources have no coverage relation
func (r Resource) CoveredBy(granted Resource) bool {
	switch r.Kind {
	case ResourceTable:
		switch granted.Kind {
		case ResourceTable:
			return r.Database == granted.Database && r.Table == granted.Table
		case ResourceDatabase:
			return r.Database == granted.Database
		}
		return false
	case ResourceDatabase:
		return granted.Kind == ResourceDatabase && r.Database == granted.Database
	case ResourceDataLocation:
		return granted.Kind == ResourceDataLocation && strings.HasPrefix(r.Path, granted.Path)
	default:
		return false
	}
}
