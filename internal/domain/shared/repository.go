package shared

// Filter is the list query shared by the property, tenant and transaction
// repositories. Filters holds repository-specific keys; each repository
// documents the keys it understands and rejects values it cannot parse.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]interface{}
}

// DefaultFilter returns the first page of 20, newest first
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  make(map[string]interface{}),
	}
}

// Offset returns the row offset of the requested page, or 0 when paging is off
func (f Filter) Offset() int {
	if f.PageSize <= 0 || f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
