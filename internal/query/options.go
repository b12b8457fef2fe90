package query

import (
	"strings"

	"genealogycore/pkg/domain"

	"go.einride.tech/aip/ordering"
)

// Sort directions accepted by ListOptions.SortOrder.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListOptions selects, orders and pages a listing. OrderBy takes AIP-132
// syntax ("surname desc, given_name") and wins over SortField/SortOrder.
// Filter takes an AIP-160 expression.
type ListOptions struct {
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
	SortField string `json:"sort_field"`
	SortOrder string `json:"sort_order"`
	OrderBy   string `json:"order_by"`
	Filter    string `json:"filter"`
}

// sortKeys resolves the requested ordering against the schema.
func (o ListOptions) sortKeys(schema Schema) ([]SortKey, error) {
	if strings.TrimSpace(o.OrderBy) != "" {
		var orderBy ordering.OrderBy
		if err := orderBy.UnmarshalString(o.OrderBy); err != nil {
			return nil, domain.Invalid("order_by", "%v", err)
		}
		if err := orderBy.ValidateForPaths(schema.FieldNames()...); err != nil {
			return nil, domain.Invalid("order_by", "%v", err)
		}
		keys := make([]SortKey, 0, len(orderBy.Fields))
		for _, field := range orderBy.Fields {
			keys = append(keys, SortKey{Field: field.Path, Desc: field.Desc})
		}
		return keys, nil
	}
	if o.SortField == "" {
		if o.SortOrder != "" {
			return nil, domain.Invalid("sort_order", "requires sort_field")
		}
		return schema.DefaultSort, nil
	}
	if _, ok := schema.Fields[o.SortField]; !ok {
		return nil, domain.Invalid("sort_field", "cannot sort %s by %q", schema.Kind, o.SortField)
	}
	switch strings.ToLower(o.SortOrder) {
	case "", SortAsc:
		return []SortKey{{Field: o.SortField}}, nil
	case SortDesc:
		return []SortKey{{Field: o.SortField, Desc: true}}, nil
	}
	return nil, domain.Invalid("sort_order", "must be %q or %q", SortAsc, SortDesc)
}
