// Package history serves the change ledger: per-record and global history
// pages, restore points reconstructed from recorded diffs, and rollback.
package history

import (
	"context"
	"time"

	"genealogycore/pkg/domain"
)

// Service reads the ledger and writes rollbacks through a persistent store.
type Service struct {
	store domain.PersistentStore
}

// New constructs a Service over store.
func New(store domain.PersistentStore) *Service {
	return &Service{store: store}
}

// GlobalFilter narrows the global ledger. Zero values match everything.
type GlobalFilter struct {
	Entity domain.EntityType `json:"entity_type,omitempty"`
	Action domain.Action     `json:"action,omitempty"`
}

func (f GlobalFilter) validate() error {
	if f.Entity != "" && !knownKind(f.Entity) {
		return domain.Invalid("entity_type", "unknown entity type %q", f.Entity)
	}
	if f.Action != "" && !f.Action.Valid() {
		return domain.Invalid("action", "unknown action %q", f.Action)
	}
	return nil
}

func (f GlobalFilter) match(change domain.Change) bool {
	return (f.Entity == "" || change.Entity == f.Entity) && (f.Action == "" || change.Action == f.Action)
}

func knownKind(kind domain.EntityType) bool {
	return kind.IsVersioned() || kind == domain.EntityFamilyChild
}

// ListForEntity pages the ledger entries of one record, newest first. History
// outlives the record, so a deleted ID still lists its entries. Families and
// persons also list the child links naming them, since those entries are
// keyed by the "family/person" link ID rather than either record.
func (s *Service) ListForEntity(ctx context.Context, kind domain.EntityType, id string, opts domain.PageOptions) (domain.Page[domain.Change], error) {
	if !knownKind(kind) {
		return domain.Page[domain.Change]{}, domain.Invalid("entity_type", "unknown entity type %q", kind)
	}
	opts, err := opts.Normalize()
	if err != nil {
		return domain.Page[domain.Change]{}, err
	}
	var page domain.Page[domain.Change]
	err = s.store.View(ctx, func(view domain.TransactionView) error {
		if kind != domain.EntityFamily && kind != domain.EntityPerson {
			page = domain.Paginate(view.History(kind, id), opts)
			return nil
		}
		var matched []domain.Change
		for _, change := range view.Ledger() {
			if (change.Entity == kind && change.EntityID == id) || linkNames(change, kind, id) {
				matched = append(matched, change)
			}
		}
		page = domain.Paginate(matched, opts)
		return nil
	})
	return page, err
}

func linkNames(change domain.Change, kind domain.EntityType, id string) bool {
	if change.Entity != domain.EntityFamilyChild {
		return false
	}
	familyID, personID, ok := domain.SplitLinkEntityID(change.EntityID)
	if !ok {
		return false
	}
	return (kind == domain.EntityFamily && familyID == id) || (kind == domain.EntityPerson && personID == id)
}

// ListGlobal pages the whole ledger, newest first.
func (s *Service) ListGlobal(ctx context.Context, filter GlobalFilter, opts domain.PageOptions) (domain.Page[domain.Change], error) {
	if err := filter.validate(); err != nil {
		return domain.Page[domain.Change]{}, err
	}
	opts, err := opts.Normalize()
	if err != nil {
		return domain.Page[domain.Change]{}, err
	}
	var page domain.Page[domain.Change]
	err = s.store.View(ctx, func(view domain.TransactionView) error {
		var matched []domain.Change
		for _, change := range view.Ledger() {
			if filter.match(change) {
				matched = append(matched, change)
			}
		}
		page = domain.Paginate(matched, opts)
		return nil
	})
	return page, err
}

// RestorePoint is a reconstructed past version of a record.
type RestorePoint struct {
	Version   int           `json:"version"`
	Timestamp time.Time     `json:"timestamp"`
	Action    domain.Action `json:"action"`
	Summary   string        `json:"summary"`
	IsCurrent bool          `json:"is_current"`
	State     domain.Entity `json:"state"`
}

// RestorePoints pages the versions of a live record newest first, each with
// its exact field state.
func (s *Service) RestorePoints(ctx context.Context, kind domain.EntityType, id string, opts domain.PageOptions) (domain.Page[RestorePoint], error) {
	if !kind.IsVersioned() {
		return domain.Page[RestorePoint]{}, domain.Invalid("entity_type", "%q has no versions", kind)
	}
	opts, err := opts.Normalize()
	if err != nil {
		return domain.Page[RestorePoint]{}, err
	}
	var page domain.Page[RestorePoint]
	err = s.store.View(ctx, func(view domain.TransactionView) error {
		current, ok := view.Find(kind, id)
		if !ok {
			return domain.NotFoundError{Entity: kind, ID: id}
		}
		history := view.History(kind, id)
		var versions []domain.Change
		for _, change := range history {
			if change.Action == domain.ActionCreated || change.Action == domain.ActionUpdated {
				versions = append(versions, change)
			}
		}
		window := domain.Paginate(versions, opts)
		page = domain.Page[RestorePoint]{Total: window.Total, Limit: window.Limit, Offset: window.Offset, HasMore: window.HasMore, Entries: []RestorePoint{}}
		for _, change := range window.Entries {
			state, err := domain.Reconstruct(current, history, change.Version)
			if err != nil {
				return err
			}
			page.Entries = append(page.Entries, RestorePoint{
				Version:   change.Version,
				Timestamp: change.Timestamp,
				Action:    change.Action,
				Summary:   change.Summary(),
				IsCurrent: change.Version == current.Meta().Version,
				State:     state,
			})
		}
		return nil
	})
	return page, err
}

// RollbackResult describes the version written by a rollback.
type RollbackResult struct {
	NewVersion int           `json:"new_version"`
	Changes    []string      `json:"changes"`
	Entity     domain.Entity `json:"entity"`
	Entry      domain.Change `json:"entry"`
}

// Rollback restores the record to target as a new version. The state is
// reconstructed against the version observed at read time, so an edit landing
// in between fails the rollback with a ConflictError.
func (s *Service) Rollback(ctx context.Context, kind domain.EntityType, id string, target int) (RollbackResult, error) {
	return s.rollback(ctx, kind, id, target, 0)
}

// RollbackVersion is Rollback for a caller that states the version it
// believes is current.
func (s *Service) RollbackVersion(ctx context.Context, kind domain.EntityType, id string, target, expectedVersion int) (RollbackResult, error) {
	if expectedVersion < 1 {
		return RollbackResult{}, domain.Invalid("expected_version", "must be at least 1")
	}
	return s.rollback(ctx, kind, id, target, expectedVersion)
}

func (s *Service) rollback(ctx context.Context, kind domain.EntityType, id string, target, expectedVersion int) (RollbackResult, error) {
	if !kind.IsVersioned() {
		return RollbackResult{}, domain.Invalid("entity_type", "%q has no versions", kind)
	}
	var (
		restored domain.Entity
		current  domain.Entity
	)
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		var ok bool
		current, ok = view.Find(kind, id)
		if !ok {
			return domain.NotFoundError{Entity: kind, ID: id}
		}
		var err error
		restored, err = domain.Reconstruct(current, view.History(kind, id), target)
		return err
	})
	if err != nil {
		return RollbackResult{}, err
	}
	observed := current.Meta().Version
	if expectedVersion == 0 {
		expectedVersion = observed
	}
	if expectedVersion != observed {
		return RollbackResult{}, domain.ConflictError{Entity: kind, ID: id, Expected: expectedVersion, Current: observed}
	}
	if target == observed {
		return RollbackResult{NewVersion: observed, Changes: []string{}, Entity: current}, nil
	}

	var result RollbackResult
	_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		saved, entry, err := tx.Restore(restored, expectedVersion, target)
		if err != nil {
			return err
		}
		result = RollbackResult{
			NewVersion: saved.Meta().Version,
			Changes:    entry.ChangedFields(),
			Entity:     saved,
			Entry:      entry,
		}
		return nil
	})
	if err != nil {
		return RollbackResult{}, err
	}
	return result, nil
}
