package domain

import "context"

// Transaction exposes the operations a persistence implementation must support
// within an atomic scope. Every mutation appends ledger entries that commit
// together with the state change or not at all.
type Transaction interface {
	Snapshot() TransactionView
	Find(kind EntityType, id string) (Entity, bool)
	// Create stores a new entity at version 1. An empty ID is generated.
	Create(e Entity) (Entity, error)
	// Save replaces the full state of an existing entity when expectedVersion
	// matches the stored version. Saving an unknown ID creates it.
	Save(e Entity, expectedVersion int) (Entity, error)
	// Restore saves a reconstructed past state and tags the ledger entry with
	// the version it was restored from.
	Restore(e Entity, expectedVersion, restoredFrom int) (Entity, Change, error)
	Delete(kind EntityType, id string, expectedVersion int) error
	LinkChild(link FamilyChild) (FamilyChild, error)
	UnlinkChild(familyID, personID string) error
}

// TransactionView provides read-only access to a consistent state.
type TransactionView interface {
	RuleView
	Find(kind EntityType, id string) (Entity, bool)
	// List returns the live entities of one kind ordered by ID.
	List(kind EntityType) []Entity
	FamiliesForChild(personID string) []FamilyChild
	// History returns the ledger entries of one record, newest first.
	History(kind EntityType, id string) []Change
	// Ledger returns every ledger entry, newest first.
	Ledger() []Change
}

// PersistentStore is the abstraction shared by the in-memory store and the
// durable backends wrapping it.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	Get(kind EntityType, id string) (Entity, bool)
}

// EntityRef identifies a versioned record.
type EntityRef struct {
	Kind EntityType
	ID   string
}

// Batch is the net effect of one committed transaction, handed to a Journal
// so durable backends can persist it in a single backend transaction.
type Batch struct {
	Upserts     []Entity
	Deletes     []EntityRef
	LinkUpserts []FamilyChild
	LinkDeletes []FamilyChild
	EdgeUpserts []PedigreeEdge
	EdgeDeletes []string
	Changes     []Change
}

// Empty reports whether the batch carries nothing to persist.
func (b Batch) Empty() bool {
	return len(b.Upserts) == 0 && len(b.Deletes) == 0 && len(b.LinkUpserts) == 0 &&
		len(b.LinkDeletes) == 0 && len(b.EdgeUpserts) == 0 && len(b.EdgeDeletes) == 0 &&
		len(b.Changes) == 0
}

// Journal persists committed batches. Commit runs before the in-memory state
// is swapped; an error aborts the transaction.
type Journal interface {
	Commit(ctx context.Context, batch Batch) error
}
