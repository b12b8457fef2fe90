// Package query lists and searches entities with deterministic ordering:
// requested sort keys first, absent values last in either direction, and the
// entity ID as the final tie-break.
package query

import (
	"context"
	"sort"
	"strings"

	"genealogycore/pkg/domain"

	"golang.org/x/text/cases"
)

// Engine answers list and search queries against a store snapshot.
type Engine struct {
	store domain.PersistentStore
}

// New constructs an Engine over store.
func New(store domain.PersistentStore) *Engine {
	return &Engine{store: store}
}

// List returns one page of the live entities of kind. Total counts every
// entity matching the filter.
func (e *Engine) List(ctx context.Context, kind domain.EntityType, opts ListOptions) (domain.Page[domain.Entity], error) {
	schema, err := SchemaFor(kind)
	if err != nil {
		return domain.Page[domain.Entity]{}, err
	}
	window, err := domain.PageOptions{Limit: opts.Limit, Offset: opts.Offset}.Normalize()
	if err != nil {
		return domain.Page[domain.Entity]{}, err
	}
	keys, err := opts.sortKeys(schema)
	if err != nil {
		return domain.Page[domain.Entity]{}, err
	}
	cmp := newComparer()
	match, err := compileFilter(schema, opts.Filter, cmp)
	if err != nil {
		return domain.Page[domain.Entity]{}, err
	}

	var page domain.Page[domain.Entity]
	err = e.store.View(ctx, func(view domain.TransactionView) error {
		records, err := load(view, kind, match)
		if err != nil {
			return err
		}
		sortRecords(records, schema, keys, cmp)
		page = domain.Paginate(entities(records), window)
		return nil
	})
	return page, err
}

// Search returns up to limit entities of kind whose search fields contain
// query, ignoring case. Results use the schema's default order.
func (e *Engine) Search(ctx context.Context, kind domain.EntityType, query string, limit int) ([]domain.Entity, error) {
	schema, err := SchemaFor(kind)
	if err != nil {
		return nil, err
	}
	window, err := domain.PageOptions{Limit: limit}.Normalize()
	if err != nil {
		return nil, err
	}
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(query))
	if needle == "" {
		return []domain.Entity{}, nil
	}
	match := func(r record) bool {
		for _, key := range schema.Search {
			if strings.Contains(fold.String(r.text(key)), needle) {
				return true
			}
		}
		return false
	}

	var out []domain.Entity
	err = e.store.View(ctx, func(view domain.TransactionView) error {
		records, err := load(view, kind, match)
		if err != nil {
			return err
		}
		sortRecords(records, schema, schema.DefaultSort, newComparer())
		out = domain.Paginate(entities(records), window).Entries
		return nil
	})
	return out, err
}

func load(view domain.TransactionView, kind domain.EntityType, match predicate) ([]record, error) {
	var records []record
	for _, entity := range view.List(kind) {
		r, err := newRecord(entity)
		if err != nil {
			return nil, err
		}
		if match(r) {
			records = append(records, r)
		}
	}
	return records, nil
}

func sortRecords(records []record, schema Schema, keys []SortKey, cmp comparer) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		for _, key := range keys {
			field := schema.Fields[key.Field]
			va, vb := a.value(field), b.value(field)
			switch {
			case !va.present && !vb.present:
				continue
			case !va.present:
				return false
			case !vb.present:
				return true
			}
			n := cmp.compare(field, va, vb)
			if n == 0 {
				continue
			}
			if key.Desc {
				return n > 0
			}
			return n < 0
		}
		return a.entity.Meta().ID < b.entity.Meta().ID
	})
}

func entities(records []record) []domain.Entity {
	out := make([]domain.Entity, 0, len(records))
	for _, r := range records {
		out = append(out, r.entity)
	}
	return out
}
