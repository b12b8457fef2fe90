// Package memory provides the in-memory transactional read-model store. It is
// used directly for tests and ephemeral environments and is wrapped by the
// durable backends, which persist every committed batch through a Journal.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"genealogycore/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Entity aliases domain.Entity.
	Entity = domain.Entity
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// Store provides an in-memory transactional store for the genealogy read model.
//
// Writers serialize on writeMu. Committed state is never mutated in place: a
// transaction copies every table it touches and the result is swapped in
// under mu, so readers never wait for a writer's journal I/O.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   memoryState
	engine  *RulesEngine
	journal domain.Journal
	nowFn   func() time.Time
	idFn    func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.nowFn = fn
		}
	}
}

// WithIDGenerator overrides the generator used for entity and ledger IDs.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.idFn = fn
		}
	}
}

// WithRulesEngine installs the engine evaluated before every commit.
func WithRulesEngine(engine *RulesEngine) Option {
	return func(s *Store) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithJournal installs a durable journal that must accept every batch before
// it becomes visible.
func WithJournal(journal domain.Journal) Option {
	return func(s *Store) { s.journal = journal }
}

// NewStore constructs an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		state:  newMemoryState(),
		engine: domain.NewRulesEngine(),
		nowFn:  func() time.Time { return time.Now().UTC() },
		idFn:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reset discards every entity, link and ledger entry. The journal is not
// touched.
func (s *Store) Reset() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.swap(newMemoryState())
}

// RulesEngine exposes the configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

func (s *Store) committed() memoryState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) swap(state memoryState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// RunInTransaction executes fn within a copy-on-write view of the store state.
// The mutation, its ledger entries and the journal write commit together: on
// any error nothing becomes visible.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.committed()
	now := s.nowFn().UTC()
	if now.Before(current.last) {
		now = current.last
	}
	tx := newTransaction(s, current, now)

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil && len(tx.changes) > 0 {
		res, err := s.engine.Evaluate(ctx, stateView{state: &tx.state}, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if len(tx.changes) == 0 {
		return result, nil
	}
	if s.journal != nil {
		if err := s.journal.Commit(ctx, tx.batch()); err != nil {
			return Result{}, err
		}
	}
	tx.state.last = now
	s.swap(tx.state)
	return result, nil
}

// View executes fn against the committed state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	state := s.committed()
	return fn(stateView{state: &state})
}

// Get returns a live entity by kind and ID.
func (s *Store) Get(kind domain.EntityType, id string) (Entity, bool) {
	state := s.committed()
	return stateView{state: &state}.Find(kind, id)
}

// Snapshot captures the full store state for external persistence.
type Snapshot struct {
	Entities []Entity
	Links    []domain.FamilyChild
	Edges    []domain.PedigreeEdge
	Ledger   []Change
}

// ExportState clones the committed state.
func (s *Store) ExportState() Snapshot {
	state := s.committed()
	var snap Snapshot
	for _, kind := range domain.VersionedTypes() {
		for _, id := range sortedKeys(state.entities[kind]) {
			snap.Entities = append(snap.Entities, state.entities[kind][id])
		}
	}
	for _, familyID := range sortedKeys(state.children) {
		for _, personID := range sortedKeys(state.children[familyID]) {
			snap.Links = append(snap.Links, state.children[familyID][personID])
		}
	}
	for _, personID := range sortedKeys(state.edges) {
		snap.Edges = append(snap.Edges, state.edges[personID])
	}
	snap.Ledger = make([]Change, 0, len(state.ledger))
	for _, change := range state.ledger {
		snap.Ledger = append(snap.Ledger, change.Clone())
	}
	return snap
}

// ImportState replaces the store state with the provided snapshot. Deleted
// IDs, the ledger sequence and the timestamp floor are rebuilt from the ledger.
func (s *Store) ImportState(snap Snapshot) {
	state := newMemoryState()
	for _, e := range snap.Entities {
		state.entities[e.Kind()][e.Meta().ID] = domain.Normalize(e).WithMeta(e.Meta())
	}
	for _, link := range snap.Links {
		if state.children[link.FamilyID] == nil {
			state.children[link.FamilyID] = make(map[string]domain.FamilyChild)
		}
		state.children[link.FamilyID][link.PersonID] = link
	}
	for _, edge := range snap.Edges {
		state.edges[edge.PersonID] = edge
	}
	ledger := make([]Change, 0, len(snap.Ledger))
	for _, change := range snap.Ledger {
		ledger = append(ledger, change.Clone())
	}
	sort.SliceStable(ledger, func(i, j int) bool { return ledger[i].Seq < ledger[j].Seq })
	for _, change := range ledger {
		if change.Seq > state.seq {
			state.seq = change.Seq
		}
		if change.Timestamp.After(state.last) {
			state.last = change.Timestamp
		}
		if change.Action == domain.ActionDeleted {
			if _, live := state.entities[change.Entity][change.EntityID]; !live {
				state.tombstones[refKey(change.Entity, change.EntityID)] = change.Version
			}
		}
	}
	state.ledger = ledger

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.swap(state)
}

type memoryState struct {
	entities   map[domain.EntityType]map[string]Entity
	children   map[string]map[string]domain.FamilyChild
	edges      map[string]domain.PedigreeEdge
	tombstones map[string]int
	ledger     []Change
	seq        int64
	last       time.Time
}

func newMemoryState() memoryState {
	state := memoryState{
		entities:   make(map[domain.EntityType]map[string]Entity),
		children:   make(map[string]map[string]domain.FamilyChild),
		edges:      make(map[string]domain.PedigreeEdge),
		tombstones: make(map[string]int),
	}
	for _, kind := range domain.VersionedTypes() {
		state.entities[kind] = make(map[string]Entity)
	}
	return state
}

func refKey(kind domain.EntityType, id string) string {
	return string(kind) + "/" + id
}

func splitRefKey(key string) domain.EntityRef {
	kind, id, _ := strings.Cut(key, "/")
	return domain.EntityRef{Kind: domain.EntityType(kind), ID: id}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
