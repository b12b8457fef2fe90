package main

import (
	"context"
	"encoding/json"
	"sort"

	"genealogycore/internal/core"
	"genealogycore/internal/query"
	"genealogycore/pkg/domain"
)

// entityOps erases the record type of a repository so commands can dispatch
// on the entity type argument.
type entityOps interface {
	create(ctx context.Context, raw []byte) (any, error)
	get(ctx context.Context, id string) (any, error)
	save(ctx context.Context, id string, version int, raw []byte) (any, error)
	delete(ctx context.Context, id string, version int) error
	list(ctx context.Context, opts query.ListOptions) (any, error)
	search(ctx context.Context, q string, limit int) (any, error)
	history(ctx context.Context, id string, opts domain.PageOptions) (any, error)
	restorePoints(ctx context.Context, id string, opts domain.PageOptions) (any, error)
	rollback(ctx context.Context, id string, target int) (any, error)
}

type repoOps[T domain.Entity] struct {
	repo *core.Repository[T]
}

func (r repoOps[T]) decode(raw []byte) (T, error) {
	var e T
	if err := json.Unmarshal(raw, &e); err != nil {
		return e, domain.Invalid("data", "invalid %s JSON: %v", r.repo.Kind(), err)
	}
	return e, nil
}

func (r repoOps[T]) create(ctx context.Context, raw []byte) (any, error) {
	e, err := r.decode(raw)
	if err != nil {
		return nil, err
	}
	return r.repo.Create(ctx, e)
}

func (r repoOps[T]) get(ctx context.Context, id string) (any, error) {
	return r.repo.Get(ctx, id)
}

func (r repoOps[T]) save(ctx context.Context, id string, version int, raw []byte) (any, error) {
	e, err := r.decode(raw)
	if err != nil {
		return nil, err
	}
	e = e.WithMeta(domain.Base{ID: id}).(T)
	return r.repo.Save(ctx, e, version)
}

func (r repoOps[T]) delete(ctx context.Context, id string, version int) error {
	return r.repo.Delete(ctx, id, version)
}

func (r repoOps[T]) list(ctx context.Context, opts query.ListOptions) (any, error) {
	return r.repo.List(ctx, opts)
}

func (r repoOps[T]) search(ctx context.Context, q string, limit int) (any, error) {
	return r.repo.Search(ctx, q, limit)
}

func (r repoOps[T]) history(ctx context.Context, id string, opts domain.PageOptions) (any, error) {
	return r.repo.History(ctx, id, opts)
}

func (r repoOps[T]) restorePoints(ctx context.Context, id string, opts domain.PageOptions) (any, error) {
	return r.repo.RestorePoints(ctx, id, opts)
}

func (r repoOps[T]) rollback(ctx context.Context, id string, target int) (any, error) {
	return r.repo.Rollback(ctx, id, target)
}

func (a *app) ops(kind string) (entityOps, error) {
	svc := a.svc
	table := map[domain.EntityType]entityOps{
		domain.EntityPerson:     repoOps[domain.Person]{svc.Persons},
		domain.EntityPersonName: repoOps[domain.PersonName]{svc.Names},
		domain.EntityFamily:     repoOps[domain.Family]{svc.Families},
		domain.EntitySource:     repoOps[domain.Source]{svc.Sources},
		domain.EntityCitation:   repoOps[domain.Citation]{svc.Citations},
		domain.EntityMedia:      repoOps[domain.Media]{svc.Media},
		domain.EntityEvent:      repoOps[domain.Event]{svc.Events},
		domain.EntityAttribute:  repoOps[domain.Attribute]{svc.Attributes},
	}
	ops, ok := table[domain.EntityType(kind)]
	if !ok {
		names := make([]string, 0, len(table))
		for k := range table {
			names = append(names, string(k))
		}
		sort.Strings(names)
		return nil, domain.Invalid("entity_type", "unknown entity type %q (want one of %v)", kind, names)
	}
	return ops, nil
}
