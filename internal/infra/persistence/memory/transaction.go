package memory

import (
	"maps"
	"sort"
	"time"

	"genealogycore/pkg/domain"
)

// transaction represents a mutation set applied to a private copy of the
// store state. Tables are copied on first write.
type transaction struct {
	store   *Store
	state   memoryState
	now     time.Time
	changes []Change

	ownTables   map[domain.EntityType]bool
	ownChildren map[string]bool
	ownEdges    bool
	ownTombs    bool

	touched      map[string]struct{}
	touchedLinks map[string]domain.FamilyChild
	touchedEdges map[string]struct{}
}

func newTransaction(store *Store, state memoryState, now time.Time) *transaction {
	// Outer maps are copied up front; inner tables stay shared until written.
	state.entities = maps.Clone(state.entities)
	state.children = maps.Clone(state.children)
	return &transaction{
		store:        store,
		state:        state,
		now:          now,
		ownTables:    make(map[domain.EntityType]bool),
		ownChildren:  make(map[string]bool),
		touched:      make(map[string]struct{}),
		touchedLinks: make(map[string]domain.FamilyChild),
		touchedEdges: make(map[string]struct{}),
	}
}

func (tx *transaction) table(kind domain.EntityType) map[string]Entity {
	if !tx.ownTables[kind] {
		tx.state.entities[kind] = maps.Clone(tx.state.entities[kind])
		if tx.state.entities[kind] == nil {
			tx.state.entities[kind] = make(map[string]Entity)
		}
		tx.ownTables[kind] = true
	}
	return tx.state.entities[kind]
}

func (tx *transaction) familyLinks(familyID string) map[string]domain.FamilyChild {
	if !tx.ownChildren[familyID] {
		links := maps.Clone(tx.state.children[familyID])
		if links == nil {
			links = make(map[string]domain.FamilyChild)
		}
		tx.state.children[familyID] = links
		tx.ownChildren[familyID] = true
	}
	return tx.state.children[familyID]
}

func (tx *transaction) edges() map[string]domain.PedigreeEdge {
	if !tx.ownEdges {
		tx.state.edges = maps.Clone(tx.state.edges)
		if tx.state.edges == nil {
			tx.state.edges = make(map[string]domain.PedigreeEdge)
		}
		tx.ownEdges = true
	}
	return tx.state.edges
}

func (tx *transaction) tombstones() map[string]int {
	if !tx.ownTombs {
		tx.state.tombstones = maps.Clone(tx.state.tombstones)
		if tx.state.tombstones == nil {
			tx.state.tombstones = make(map[string]int)
		}
		tx.ownTombs = true
	}
	return tx.state.tombstones
}

func (tx *transaction) view() stateView { return stateView{state: &tx.state} }

// recordChange stamps and appends a ledger entry. Appending to the shared
// ledger slice is safe: readers of the committed state never look past their
// own length and only one transaction runs at a time.
func (tx *transaction) recordChange(change Change) Change {
	tx.state.seq++
	change.ID = tx.store.idFn()
	change.Seq = tx.state.seq
	change.Timestamp = tx.now
	tx.state.ledger = append(tx.state.ledger, change)
	tx.changes = append(tx.changes, change)
	return change.Clone()
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return tx.view()
}

func (tx *transaction) Find(kind domain.EntityType, id string) (Entity, bool) {
	return tx.view().Find(kind, id)
}

// Create stores a new entity at version 1.
func (tx *transaction) Create(e Entity) (Entity, error) {
	if e == nil {
		return nil, domain.Invalid("entity", "is required")
	}
	id := e.Meta().ID
	if id == "" {
		id = tx.store.idFn()
	}
	kind := e.Kind()
	if current, ok := tx.state.entities[kind][id]; ok {
		return nil, domain.ConflictError{Entity: kind, ID: id, Expected: 0, Current: current.Meta().Version}
	}
	if _, deleted := tx.state.tombstones[refKey(kind, id)]; deleted {
		return nil, domain.Invalid("id", "%s %s was deleted and cannot be reused", kind, id)
	}
	return tx.insert(e, id)
}

func (tx *transaction) insert(e Entity, id string) (Entity, error) {
	e = domain.Normalize(e)
	if err := tx.check(e); err != nil {
		return nil, err
	}
	e = e.WithMeta(domain.Base{ID: id, Version: 1, CreatedAt: tx.now, UpdatedAt: tx.now})
	diff, err := domain.Diff(nil, e)
	if err != nil {
		return nil, err
	}
	tx.put(e)
	stored, _ := tx.Find(e.Kind(), id)
	tx.recordChange(Change{
		Entity:     e.Kind(),
		EntityID:   id,
		EntityName: stored.DisplayName(),
		Action:     domain.ActionCreated,
		Version:    1,
		Changes:    diff,
	})
	return stored, nil
}

// Save replaces the full state of an entity when expectedVersion matches.
func (tx *transaction) Save(e Entity, expectedVersion int) (Entity, error) {
	saved, _, err := tx.save(e, expectedVersion, 0)
	return saved, err
}

// Restore saves a reconstructed state and tags the ledger entry.
func (tx *transaction) Restore(e Entity, expectedVersion, restoredFrom int) (Entity, Change, error) {
	return tx.save(e, expectedVersion, restoredFrom)
}

func (tx *transaction) save(e Entity, expectedVersion, restoredFrom int) (Entity, Change, error) {
	if e == nil {
		return nil, Change{}, domain.Invalid("entity", "is required")
	}
	kind, id := e.Kind(), e.Meta().ID
	if id == "" {
		created, err := tx.Create(e)
		return created, tx.lastChange(), err
	}
	current, ok := tx.state.entities[kind][id]
	if !ok {
		if _, deleted := tx.state.tombstones[refKey(kind, id)]; deleted {
			return nil, Change{}, domain.NotFoundError{Entity: kind, ID: id}
		}
		created, err := tx.insert(e, id)
		return created, tx.lastChange(), err
	}
	meta := current.Meta()
	if expectedVersion != meta.Version {
		return nil, Change{}, domain.ConflictError{Entity: kind, ID: id, Expected: expectedVersion, Current: meta.Version}
	}

	next := domain.Normalize(e)
	if err := tx.check(next); err != nil {
		return nil, Change{}, err
	}
	next = next.WithMeta(domain.Base{ID: id, Version: meta.Version + 1, CreatedAt: meta.CreatedAt, UpdatedAt: tx.now})
	diff, err := domain.Diff(current, next)
	if err != nil {
		return nil, Change{}, err
	}
	tx.put(next)
	if family, ok := next.(domain.Family); ok {
		tx.refreshFamilyEdges(family.ID)
	}
	stored, _ := tx.Find(kind, id)
	change := tx.recordChange(Change{
		Entity:       kind,
		EntityID:     id,
		EntityName:   stored.DisplayName(),
		Action:       domain.ActionUpdated,
		Version:      meta.Version + 1,
		Changes:      diff,
		RestoredFrom: restoredFrom,
	})
	return stored, change, nil
}

func (tx *transaction) lastChange() Change {
	if len(tx.changes) == 0 {
		return Change{}
	}
	return tx.changes[len(tx.changes)-1].Clone()
}

// Delete removes a live entity and cascades to the records it owns. Children
// are removed before their owner so the ledger reads in causal order.
func (tx *transaction) Delete(kind domain.EntityType, id string, expectedVersion int) error {
	current, ok := tx.state.entities[kind][id]
	if !ok {
		return domain.NotFoundError{Entity: kind, ID: id}
	}
	if version := current.Meta().Version; expectedVersion != version {
		return domain.ConflictError{Entity: kind, ID: id, Expected: expectedVersion, Current: version}
	}
	switch kind {
	case domain.EntityFamily:
		for _, link := range tx.view().FamilyChildren(id) {
			tx.unlink(link)
		}
	case domain.EntityPerson:
		if err := tx.detachPerson(id); err != nil {
			return err
		}
	}
	tx.remove(current)
	return nil
}

func (tx *transaction) detachPerson(personID string) error {
	tx.deleteOwned(domain.EntityPersonName, func(e Entity) bool {
		return e.(domain.PersonName).PersonID == personID
	})
	tx.deleteOwned(domain.EntityAttribute, func(e Entity) bool {
		return e.(domain.Attribute).PersonID == personID
	})
	for _, link := range tx.view().FamiliesForChild(personID) {
		tx.unlink(link)
	}
	for _, e := range tx.view().List(domain.EntityFamily) {
		family := e.(domain.Family)
		if family.Partner1ID != personID && family.Partner2ID != personID {
			continue
		}
		if family.Partner1ID == personID {
			family.Partner1ID = ""
		}
		if family.Partner2ID == personID {
			family.Partner2ID = ""
		}
		if _, err := tx.Save(family, family.Version); err != nil {
			return err
		}
	}
	return nil
}

func (tx *transaction) deleteOwned(kind domain.EntityType, owned func(Entity) bool) {
	for _, e := range tx.view().List(kind) {
		if _, live := tx.state.entities[kind][e.Meta().ID]; live && owned(e) {
			tx.remove(e)
		}
	}
}

func (tx *transaction) remove(e Entity) {
	kind, meta := e.Kind(), e.Meta()
	name := e.DisplayName()
	if stored, ok := tx.Find(kind, meta.ID); ok {
		name = stored.DisplayName()
	}
	delete(tx.table(kind), meta.ID)
	tx.touched[refKey(kind, meta.ID)] = struct{}{}
	tx.tombstones()[refKey(kind, meta.ID)] = meta.Version
	tx.recordChange(Change{
		Entity:     kind,
		EntityID:   meta.ID,
		EntityName: name,
		Action:     domain.ActionDeleted,
		Version:    meta.Version,
	})
	tx.removeDependents(kind, meta.ID)
}

// removeDependents deletes the records whose references to a removed record
// would no longer pass check: events and media it owns, and the citations of
// a source.
func (tx *transaction) removeDependents(kind domain.EntityType, id string) {
	tx.deleteOwned(domain.EntityEvent, func(e Entity) bool {
		ev := e.(domain.Event)
		return ev.OwnerType == kind && ev.OwnerID == id
	})
	tx.deleteOwned(domain.EntityMedia, func(e Entity) bool {
		m := e.(domain.Media)
		return m.OwnerType == kind && m.OwnerID == id
	})
	if kind == domain.EntitySource {
		tx.deleteOwned(domain.EntityCitation, func(e Entity) bool {
			return e.(domain.Citation).SourceID == id
		})
	}
}

// LinkChild attaches a person to a family as a child and refreshes the
// person's pedigree edge.
func (tx *transaction) LinkChild(link domain.FamilyChild) (domain.FamilyChild, error) {
	if link.RelationshipType == "" {
		link.RelationshipType = domain.ChildBiological
	}
	if err := domain.Validate(link); err != nil {
		return domain.FamilyChild{}, err
	}
	if _, ok := tx.state.entities[domain.EntityFamily][link.FamilyID]; !ok {
		return domain.FamilyChild{}, domain.NotFoundError{Entity: domain.EntityFamily, ID: link.FamilyID}
	}
	person, ok := tx.view().FindPerson(link.PersonID)
	if !ok {
		return domain.FamilyChild{}, domain.NotFoundError{Entity: domain.EntityPerson, ID: link.PersonID}
	}
	if _, exists := tx.state.children[link.FamilyID][link.PersonID]; exists {
		return domain.FamilyChild{}, domain.Invalid("person_id", "%s is already a child of family %s", link.PersonID, link.FamilyID)
	}
	link.CreatedAt = tx.now
	tx.familyLinks(link.FamilyID)[link.PersonID] = link
	tx.touchedLinks[link.Key()] = link
	tx.refreshEdge(link.PersonID)
	relationship, err := domain.NewFieldChange[any](nil, link.RelationshipType)
	if err != nil {
		return domain.FamilyChild{}, err
	}
	tx.recordChange(Change{
		Entity:     domain.EntityFamilyChild,
		EntityID:   link.Key(),
		EntityName: person.DisplayName(),
		Action:     domain.ActionLinked,
		Changes:    map[string]domain.FieldChange{"relationship_type": relationship},
	})
	return link, nil
}

// UnlinkChild detaches a child from a family.
func (tx *transaction) UnlinkChild(familyID, personID string) error {
	link, ok := tx.state.children[familyID][personID]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityFamilyChild, ID: domain.LinkEntityID(familyID, personID)}
	}
	tx.unlink(link)
	return nil
}

func (tx *transaction) unlink(link domain.FamilyChild) {
	links := tx.familyLinks(link.FamilyID)
	delete(links, link.PersonID)
	if len(links) == 0 {
		delete(tx.state.children, link.FamilyID)
		delete(tx.ownChildren, link.FamilyID)
	}
	tx.touchedLinks[link.Key()] = link
	tx.refreshEdge(link.PersonID)
	tx.recordChange(Change{
		Entity:     domain.EntityFamilyChild,
		EntityID:   link.Key(),
		EntityName: tx.view().personName(link.PersonID),
		Action:     domain.ActionUnlinked,
	})
}

// refreshEdge recomputes a person's parents from their preferred family link.
func (tx *transaction) refreshEdge(personID string) {
	current, had := tx.state.edges[personID]
	link, ok := preferredParentLink(tx.view().FamiliesForChild(personID))
	if !ok {
		if had {
			delete(tx.edges(), personID)
			tx.touchedEdges[personID] = struct{}{}
		}
		return
	}
	family := tx.state.entities[domain.EntityFamily][link.FamilyID].(domain.Family)
	next := domain.PedigreeEdge{
		PersonID: personID,
		FamilyID: family.ID,
		FatherID: family.Partner1ID,
		MotherID: family.Partner2ID,
	}
	if had && current == next {
		return
	}
	tx.edges()[personID] = next
	tx.touchedEdges[personID] = struct{}{}
}

func (tx *transaction) refreshFamilyEdges(familyID string) {
	for _, link := range tx.view().FamilyChildren(familyID) {
		tx.refreshEdge(link.PersonID)
	}
}

func (tx *transaction) put(e Entity) {
	meta := e.Meta()
	tx.table(e.Kind())[meta.ID] = e
	tx.touched[refKey(e.Kind(), meta.ID)] = struct{}{}
}

// check validates an entity and the records it references.
func (tx *transaction) check(e Entity) error {
	if err := domain.Validate(e); err != nil {
		return err
	}
	exists := func(kind domain.EntityType, id string) error {
		if _, ok := tx.state.entities[kind][id]; !ok {
			return domain.NotFoundError{Entity: kind, ID: id}
		}
		return nil
	}
	switch v := e.(type) {
	case domain.PersonName:
		return exists(domain.EntityPerson, v.PersonID)
	case domain.Attribute:
		return exists(domain.EntityPerson, v.PersonID)
	case domain.Event:
		return exists(v.OwnerType, v.OwnerID)
	case domain.Citation:
		return exists(domain.EntitySource, v.SourceID)
	case domain.Media:
		if !v.OwnerType.IsVersioned() {
			return domain.Invalid("owner_type", "unknown entity type %q", v.OwnerType)
		}
		return exists(v.OwnerType, v.OwnerID)
	case domain.Family:
		for _, partner := range []string{v.Partner1ID, v.Partner2ID} {
			if partner == "" {
				continue
			}
			if err := exists(domain.EntityPerson, partner); err != nil {
				return err
			}
		}
	}
	return nil
}

// batch computes the net effect of the transaction for the journal.
func (tx *transaction) batch() domain.Batch {
	var b domain.Batch
	for _, key := range sortedKeys(tx.touched) {
		ref := splitRefKey(key)
		if e, ok := tx.state.entities[ref.Kind][ref.ID]; ok {
			b.Upserts = append(b.Upserts, e)
		} else {
			b.Deletes = append(b.Deletes, ref)
		}
	}
	for _, key := range sortedKeys(tx.touchedLinks) {
		link := tx.touchedLinks[key]
		if current, ok := tx.state.children[link.FamilyID][link.PersonID]; ok {
			b.LinkUpserts = append(b.LinkUpserts, current)
		} else {
			b.LinkDeletes = append(b.LinkDeletes, link)
		}
	}
	for _, personID := range sortedKeys(tx.touchedEdges) {
		if edge, ok := tx.state.edges[personID]; ok {
			b.EdgeUpserts = append(b.EdgeUpserts, edge)
		} else {
			b.EdgeDeletes = append(b.EdgeDeletes, personID)
		}
	}
	b.Changes = make([]Change, 0, len(tx.changes))
	for _, change := range tx.changes {
		b.Changes = append(b.Changes, change.Clone())
	}
	sort.SliceStable(b.Changes, func(i, j int) bool { return b.Changes[i].Seq < b.Changes[j].Seq })
	return b
}
