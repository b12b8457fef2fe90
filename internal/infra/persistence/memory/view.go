package memory

import (
	"sort"

	"genealogycore/pkg/domain"
)

// stateView exposes read-only, decorated access to one state value. Cached
// projections (partner names, child counts, parent names) are filled in here
// rather than stored.
type stateView struct {
	state *memoryState
}

func (v stateView) Find(kind domain.EntityType, id string) (Entity, bool) {
	e, ok := v.state.entities[kind][id]
	if !ok {
		return nil, false
	}
	return v.decorate(e), true
}

func (v stateView) List(kind domain.EntityType) []Entity {
	table := v.state.entities[kind]
	out := make([]Entity, 0, len(table))
	for _, id := range sortedKeys(table) {
		out = append(out, v.decorate(table[id]))
	}
	return out
}

func (v stateView) FindPerson(id string) (domain.Person, bool) {
	e, ok := v.state.entities[domain.EntityPerson][id]
	if !ok {
		return domain.Person{}, false
	}
	return e.(domain.Person), true
}

func (v stateView) FindFamily(id string) (domain.Family, bool) {
	e, ok := v.Find(domain.EntityFamily, id)
	if !ok {
		return domain.Family{}, false
	}
	return e.(domain.Family), true
}

func (v stateView) FamilyChildren(familyID string) []domain.FamilyChild {
	links := v.state.children[familyID]
	out := make([]domain.FamilyChild, 0, len(links))
	for _, personID := range sortedKeys(links) {
		out = append(out, links[personID])
	}
	return out
}

func (v stateView) FamiliesForChild(personID string) []domain.FamilyChild {
	var out []domain.FamilyChild
	for _, familyID := range sortedKeys(v.state.children) {
		if link, ok := v.state.children[familyID][personID]; ok {
			out = append(out, link)
		}
	}
	return out
}

func (v stateView) PedigreeEdge(personID string) (domain.PedigreeEdge, bool) {
	edge, ok := v.state.edges[personID]
	if !ok {
		return domain.PedigreeEdge{}, false
	}
	edge.FatherName = v.personName(edge.FatherID)
	edge.MotherName = v.personName(edge.MotherID)
	return edge, true
}

func (v stateView) History(kind domain.EntityType, id string) []Change {
	var out []Change
	for i := len(v.state.ledger) - 1; i >= 0; i-- {
		change := v.state.ledger[i]
		if change.Entity == kind && change.EntityID == id {
			out = append(out, change.Clone())
		}
	}
	return out
}

func (v stateView) Ledger() []Change {
	out := make([]Change, 0, len(v.state.ledger))
	for i := len(v.state.ledger) - 1; i >= 0; i-- {
		out = append(out, v.state.ledger[i].Clone())
	}
	return out
}

func (v stateView) decorate(e Entity) Entity {
	family, ok := e.(domain.Family)
	if !ok {
		return e
	}
	family.Partner1Name = v.personName(family.Partner1ID)
	family.Partner2Name = v.personName(family.Partner2ID)
	family.ChildCount = len(v.state.children[family.ID])
	return family
}

func (v stateView) personName(id string) string {
	if id == "" {
		return ""
	}
	person, ok := v.FindPerson(id)
	if !ok {
		return ""
	}
	return person.DisplayName()
}

// preferredParentLink picks the family whose partners become a person's
// pedigree parents: biological links first, then the oldest link.
func preferredParentLink(links []domain.FamilyChild) (domain.FamilyChild, bool) {
	if len(links) == 0 {
		return domain.FamilyChild{}, false
	}
	sorted := append([]domain.FamilyChild(nil), links...)
	sort.SliceStable(sorted, func(i, j int) bool {
		bi := sorted[i].RelationshipType == domain.ChildBiological
		bj := sorted[j].RelationshipType == domain.ChildBiological
		if bi != bj {
			return bi
		}
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].FamilyID < sorted[j].FamilyID
	})
	return sorted[0], true
}
