package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sortSpec whitelists the columns a list endpoint may sort on. Anything else
// falls back to the default column, so user input never reaches ORDER BY.
type sortSpec struct {
	columns  map[string]struct{}
	fallback string
}

func newSortSpec(fallback string, columns ...string) sortSpec {
	s := sortSpec{columns: make(map[string]struct{}, len(columns)+1), fallback: fallback}
	s.columns[fallback] = struct{}{}
	for _, c := range columns {
		s.columns[c] = struct{}{}
	}
	return s
}

var (
	productSort = newSortSpec("created_at", "id", "updated_at", "sku", "name", "price", "stock")
	orderSort   = newSortSpec("created_at", "id", "updated_at", "status", "total", "confirmed_at")
	auditSort   = newSortSpec("timestamp", "action", "entity_type")
)

// column returns field if whitelisted, the fallback otherwise
func (s sortSpec) column(field string) string {
	field = strings.ToLower(strings.TrimSpace(field))
	if _, ok := s.columns[field]; ok {
		return field
	}
	return s.fallback
}

// by builds the ORDER BY column; direction defaults to descending
func (s sortSpec) by(field, dir string) clause.OrderByColumn {
	return clause.OrderByColumn{
		Column: clause.Column{Name: s.column(field)},
		Desc:   !strings.EqualFold(strings.TrimSpace(dir), "asc"),
	}
}
