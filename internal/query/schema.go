package query

import (
	"sort"

	"genealogycore/pkg/domain"
)

// FieldType selects how a field is compared.
type FieldType int

const (
	// Text compares with a case-insensitive collator.
	Text FieldType = iota
	// Date compares normalized sortable dates ("1850", "1850-03-12").
	Date
	// Timestamp compares record timestamps.
	Timestamp
	// Number compares integers.
	Number
)

// Field is a queryable field. Key names the JSON member holding the value,
// which differs from Name when a raw value sorts by its normalized form.
type Field struct {
	Name string
	Key  string
	Type FieldType
}

// Schema describes the sortable, filterable and searchable fields of one
// entity type.
type Schema struct {
	Kind domain.EntityType
	// Fields are sortable and filterable.
	Fields map[string]Field
	// Search lists the text fields matched by Search.
	Search []string
	// DefaultSort orders List and Search when no sort is requested.
	DefaultSort []SortKey
}

// SortKey is one ordering term.
type SortKey struct {
	Field string
	Desc  bool
}

// FieldNames returns the sorted field names.
func (s Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fields(list ...Field) map[string]Field {
	base := []Field{
		{Name: "id", Type: Text},
		{Name: "version", Type: Number},
		{Name: "created_at", Type: Timestamp},
		{Name: "updated_at", Type: Timestamp},
	}
	out := make(map[string]Field, len(base)+len(list))
	for _, f := range append(base, list...) {
		if f.Key == "" {
			f.Key = f.Name
		}
		out[f.Name] = f
	}
	return out
}

func text(names ...string) []Field {
	out := make([]Field, 0, len(names))
	for _, name := range names {
		out = append(out, Field{Name: name, Type: Text})
	}
	return out
}

var schemas = map[domain.EntityType]Schema{
	domain.EntityPerson: {
		Fields: fields(append(text("given_name", "surname", "full_name", "gender", "birth_place", "death_place"),
			Field{Name: "birth_date", Key: "birth_date_sort", Type: Date},
			Field{Name: "death_date", Key: "death_date_sort", Type: Date},
		)...),
		Search:      []string{"given_name", "surname", "full_name"},
		DefaultSort: []SortKey{{Field: "surname"}, {Field: "given_name"}},
	},
	domain.EntityPersonName: {
		Fields:      fields(text("person_id", "given_name", "surname", "name_type")...),
		Search:      []string{"given_name", "surname"},
		DefaultSort: []SortKey{{Field: "surname"}, {Field: "given_name"}},
	},
	domain.EntityFamily: {
		Fields: fields(append(text("partner1_id", "partner1_name", "partner2_id", "partner2_name", "relationship_type", "marriage_place"),
			Field{Name: "marriage_date", Type: Date},
			Field{Name: "child_count", Type: Number},
		)...),
		Search:      []string{"partner1_name", "partner2_name"},
		DefaultSort: []SortKey{{Field: "partner1_name"}, {Field: "partner2_name"}},
	},
	domain.EntitySource: {
		Fields:      fields(text("source_type", "title", "author", "publisher")...),
		Search:      []string{"title", "author"},
		DefaultSort: []SortKey{{Field: "title"}},
	},
	domain.EntityCitation: {
		Fields:      fields(text("source_id", "fact_type", "fact_owner_id", "page", "quality", "evidence_type")...),
		Search:      []string{"page", "quoted_text", "analysis"},
		DefaultSort: []SortKey{{Field: "fact_type"}, {Field: "page"}},
	},
	domain.EntityMedia: {
		Fields: fields(append(text("owner_type", "owner_id", "file_name", "mime_type", "caption"),
			Field{Name: "file_size", Type: Number},
		)...),
		Search:      []string{"file_name", "caption"},
		DefaultSort: []SortKey{{Field: "file_name"}},
	},
	domain.EntityEvent: {
		Fields: fields(append(text("owner_type", "owner_id", "fact_type", "place"),
			Field{Name: "date", Key: "date_sort", Type: Date},
		)...),
		Search:      []string{"fact_type", "place", "description"},
		DefaultSort: []SortKey{{Field: "date"}, {Field: "fact_type"}},
	},
	domain.EntityAttribute: {
		Fields:      fields(text("person_id", "fact_type", "value", "place")...),
		Search:      []string{"fact_type", "value"},
		DefaultSort: []SortKey{{Field: "fact_type"}, {Field: "value"}},
	},
}

func init() {
	for kind, schema := range schemas {
		schema.Kind = kind
		schemas[kind] = schema
	}
}

// SchemaFor returns the schema of a versioned entity type.
func SchemaFor(kind domain.EntityType) (Schema, error) {
	schema, ok := schemas[kind]
	if !ok {
		return Schema{}, domain.Invalid("entity_type", "unknown entity type %q", kind)
	}
	return schema, nil
}
