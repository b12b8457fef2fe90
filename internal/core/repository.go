package core

import (
	"context"
	"fmt"

	"genealogycore/internal/history"
	"genealogycore/internal/query"
	"genealogycore/pkg/domain"
)

// Repository exposes the versioned operation set for one entity type.
type Repository[T domain.Entity] struct {
	svc  *Service
	kind domain.EntityType
}

func newRepository[T domain.Entity](svc *Service, kind domain.EntityType) *Repository[T] {
	return &Repository[T]{svc: svc, kind: kind}
}

// Kind returns the entity type served.
func (r *Repository[T]) Kind() domain.EntityType { return r.kind }

func (r *Repository[T]) op(verb string) string { return verb + "_" + string(r.kind) }

func (r *Repository[T]) cast(e domain.Entity) (T, error) {
	typed, ok := e.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: unexpected entity type %T", r.kind, e)
	}
	return typed, nil
}

// Create stores e at version 1.
func (r *Repository[T]) Create(ctx context.Context, e T) (T, error) {
	var created T
	err := r.svc.instrument(ctx, r.op("create"), entityAttrs(r.kind, e.Meta().ID), func(ctx context.Context) error {
		_, err := r.svc.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			out, err := tx.Create(e)
			if err != nil {
				return err
			}
			created, err = r.cast(out)
			return err
		})
		return err
	})
	return created, err
}

// Get returns the live record or a NotFoundError.
func (r *Repository[T]) Get(ctx context.Context, id string) (T, error) {
	var found T
	err := r.svc.instrument(ctx, r.op("get"), entityAttrs(r.kind, id), func(ctx context.Context) error {
		return r.svc.store.View(ctx, func(view domain.TransactionView) error {
			e, ok := view.Find(r.kind, id)
			if !ok {
				return domain.NotFoundError{Entity: r.kind, ID: id}
			}
			var err error
			found, err = r.cast(e)
			return err
		})
	})
	return found, err
}

// Save replaces the record's state when expectedVersion is current.
func (r *Repository[T]) Save(ctx context.Context, e T, expectedVersion int) (T, error) {
	var saved T
	err := r.svc.instrument(ctx, r.op("save"), entityAttrs(r.kind, e.Meta().ID), func(ctx context.Context) error {
		_, err := r.svc.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			out, err := tx.Save(e, expectedVersion)
			if err != nil {
				return err
			}
			saved, err = r.cast(out)
			return err
		})
		return err
	})
	return saved, err
}

// Delete removes the record when expectedVersion is current. Records that
// cannot outlive it go in the same transaction; payloads of every media
// record removed that way are pruned after the commit.
func (r *Repository[T]) Delete(ctx context.Context, id string, expectedVersion int) error {
	var removedMedia []string
	err := r.svc.instrument(ctx, r.op("delete"), entityAttrs(r.kind, id), func(ctx context.Context) error {
		_, err := r.svc.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			before := liveIDs(tx.Snapshot(), domain.EntityMedia)
			if err := tx.Delete(r.kind, id, expectedVersion); err != nil {
				return err
			}
			after := liveIDs(tx.Snapshot(), domain.EntityMedia)
			removedMedia = removedMedia[:0]
			for mediaID := range before {
				if _, ok := after[mediaID]; !ok {
					removedMedia = append(removedMedia, mediaID)
				}
			}
			return nil
		})
		return err
	})
	if err == nil {
		for _, mediaID := range removedMedia {
			r.svc.pruneMedia(ctx, mediaID)
		}
	}
	return err
}

func liveIDs(view domain.TransactionView, kind domain.EntityType) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, e := range view.List(kind) {
		ids[e.Meta().ID] = struct{}{}
	}
	return ids
}

// List returns one sorted, filtered page.
func (r *Repository[T]) List(ctx context.Context, opts query.ListOptions) (domain.Page[T], error) {
	var page domain.Page[T]
	err := r.svc.instrument(ctx, r.op("list"), entityAttrs(r.kind, ""), func(ctx context.Context) error {
		raw, err := r.svc.query.List(ctx, r.kind, opts)
		if err != nil {
			return err
		}
		entries, err := castAll[T](r, raw.Entries)
		if err != nil {
			return err
		}
		page = domain.Page[T]{Entries: entries, Total: raw.Total, Limit: raw.Limit, Offset: raw.Offset, HasMore: raw.HasMore}
		return nil
	})
	return page, err
}

// Search returns up to limit records whose search fields contain q.
func (r *Repository[T]) Search(ctx context.Context, q string, limit int) ([]T, error) {
	var out []T
	err := r.svc.instrument(ctx, r.op("search"), entityAttrs(r.kind, ""), func(ctx context.Context) error {
		raw, err := r.svc.query.Search(ctx, r.kind, q, limit)
		if err != nil {
			return err
		}
		out, err = castAll[T](r, raw)
		return err
	})
	return out, err
}

// History pages the record's ledger entries, newest first.
func (r *Repository[T]) History(ctx context.Context, id string, opts domain.PageOptions) (domain.Page[domain.Change], error) {
	var page domain.Page[domain.Change]
	err := r.svc.instrument(ctx, r.op("history"), entityAttrs(r.kind, id), func(ctx context.Context) error {
		var err error
		page, err = r.svc.history.ListForEntity(ctx, r.kind, id, opts)
		return err
	})
	return page, err
}

// RestorePoints pages the record's reconstructable versions, newest first.
func (r *Repository[T]) RestorePoints(ctx context.Context, id string, opts domain.PageOptions) (domain.Page[history.RestorePoint], error) {
	var page domain.Page[history.RestorePoint]
	err := r.svc.instrument(ctx, r.op("restore_points"), entityAttrs(r.kind, id), func(ctx context.Context) error {
		var err error
		page, err = r.svc.history.RestorePoints(ctx, r.kind, id, opts)
		return err
	})
	return page, err
}

// Rollback writes the record's state at target as a new version.
func (r *Repository[T]) Rollback(ctx context.Context, id string, target int) (history.RollbackResult, error) {
	var result history.RollbackResult
	err := r.svc.instrument(ctx, r.op("rollback"), entityAttrs(r.kind, id), func(ctx context.Context) error {
		var err error
		result, err = r.svc.history.Rollback(ctx, r.kind, id, target)
		return err
	})
	return result, err
}

func castAll[T domain.Entity](r *Repository[T], in []domain.Entity) ([]T, error) {
	out := make([]T, 0, len(in))
	for _, e := range in {
		typed, err := r.cast(e)
		if err != nil {
			return nil, err
		}
		out = append(out, typed)
	}
	return out, nil
}
