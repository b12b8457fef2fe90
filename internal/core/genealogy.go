package core

import (
	"context"
	"sort"

	"genealogycore/internal/browse"
	"genealogycore/internal/history"
	"genealogycore/pkg/domain"

	"go.opentelemetry.io/otel/attribute"
)

// MaxAncestorGenerations caps Ancestors.
const MaxAncestorGenerations = 20

// LinkChild attaches a person to a family as a child.
func (s *Service) LinkChild(ctx context.Context, link domain.FamilyChild) (domain.FamilyChild, error) {
	var linked domain.FamilyChild
	attrs := linkAttrs(link.FamilyID, link.PersonID)
	err := s.instrument(ctx, "link_child", attrs, func(ctx context.Context) error {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			linked, err = tx.LinkChild(link)
			return err
		})
		return err
	})
	return linked, err
}

// UnlinkChild detaches a child from a family.
func (s *Service) UnlinkChild(ctx context.Context, familyID, personID string) error {
	return s.instrument(ctx, "unlink_child", linkAttrs(familyID, personID), func(ctx context.Context) error {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.UnlinkChild(familyID, personID)
		})
		return err
	})
}

// Children lists the child links of a family.
func (s *Service) Children(ctx context.Context, familyID string) ([]domain.FamilyChild, error) {
	var out []domain.FamilyChild
	err := s.instrument(ctx, "list_children", entityAttrs(domain.EntityFamily, familyID), func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			if _, ok := view.FindFamily(familyID); !ok {
				return domain.NotFoundError{Entity: domain.EntityFamily, ID: familyID}
			}
			out = view.FamilyChildren(familyID)
			return nil
		})
	})
	return out, err
}

// ParentFamilies lists the families a person is linked to as a child.
func (s *Service) ParentFamilies(ctx context.Context, personID string) ([]domain.FamilyChild, error) {
	var out []domain.FamilyChild
	err := s.instrument(ctx, "list_parent_families", entityAttrs(domain.EntityPerson, personID), func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			if _, ok := view.FindPerson(personID); !ok {
				return domain.NotFoundError{Entity: domain.EntityPerson, ID: personID}
			}
			out = view.FamiliesForChild(personID)
			return nil
		})
	})
	return out, err
}

// PedigreeEdge returns a person's parents. A person without parent links
// yields an edge carrying only PersonID.
func (s *Service) PedigreeEdge(ctx context.Context, personID string) (domain.PedigreeEdge, error) {
	var edge domain.PedigreeEdge
	err := s.instrument(ctx, "pedigree_edge", entityAttrs(domain.EntityPerson, personID), func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			if _, ok := view.FindPerson(personID); !ok {
				return domain.NotFoundError{Entity: domain.EntityPerson, ID: personID}
			}
			var ok bool
			if edge, ok = view.PedigreeEdge(personID); !ok {
				edge = domain.PedigreeEdge{PersonID: personID}
			}
			return nil
		})
	})
	return edge, err
}

// Ancestor is one person in an ancestor chart. Number is the Ahnentafel
// position: the root is 1, a person n has father 2n and mother 2n+1.
type Ancestor struct {
	Number     int           `json:"number"`
	Generation int           `json:"generation"`
	Person     domain.Person `json:"person"`
}

// Ancestors walks up to generations levels of parents above personID. The
// root person is generation 0 and is not included.
func (s *Service) Ancestors(ctx context.Context, personID string, generations int) ([]Ancestor, error) {
	var out []Ancestor
	attrs := append(entityAttrs(domain.EntityPerson, personID), attribute.Int("generations", generations))
	err := s.instrument(ctx, "ancestors", attrs, func(ctx context.Context) error {
		if generations < 1 || generations > MaxAncestorGenerations {
			return domain.Invalid("generations", "must be between 1 and %d", MaxAncestorGenerations)
		}
		return s.store.View(ctx, func(view domain.TransactionView) error {
			if _, ok := view.FindPerson(personID); !ok {
				return domain.NotFoundError{Entity: domain.EntityPerson, ID: personID}
			}
			type node struct {
				id     string
				number int
				gen    int
			}
			queue := []node{{id: personID, number: 1}}
			for len(queue) > 0 {
				n := queue[0]
				queue = queue[1:]
				if n.gen == generations {
					continue
				}
				edge, ok := view.PedigreeEdge(n.id)
				if !ok {
					continue
				}
				for i, parentID := range []string{edge.FatherID, edge.MotherID} {
					if parentID == "" {
						continue
					}
					parent, ok := view.FindPerson(parentID)
					if !ok {
						continue
					}
					next := node{id: parentID, number: n.number*2 + i, gen: n.gen + 1}
					out = append(out, Ancestor{Number: next.number, Generation: next.gen, Person: parent})
					queue = append(queue, next)
				}
			}
			sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
			return nil
		})
	})
	return out, err
}

// CitationsForFact lists citations attached to one fact of one owner,
// ordered by ID.
func (s *Service) CitationsForFact(ctx context.Context, factType, ownerID string) ([]domain.Citation, error) {
	var out []domain.Citation
	attrs := []attribute.KeyValue{attribute.String("fact.type", factType), attribute.String("fact.owner_id", ownerID)}
	err := s.instrument(ctx, "citations_for_fact", attrs, func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			out = collect(view, domain.EntityCitation, func(c domain.Citation) bool {
				return c.FactType == factType && c.FactOwnerID == ownerID
			})
			return nil
		})
	})
	return out, err
}

// PersonFacets bundles the records owned by a person.
type PersonFacets struct {
	Person     domain.Person        `json:"person"`
	Names      []domain.PersonName  `json:"names"`
	Attributes []domain.Attribute   `json:"attributes"`
	Events     []domain.Event       `json:"events"`
	Media      []domain.Media       `json:"media"`
	Families   []domain.FamilyChild `json:"parent_families"`
}

// PersonFacets returns a person with their names, attributes, events, media
// and parent family links. Media carry no payloads.
func (s *Service) PersonFacets(ctx context.Context, personID string) (PersonFacets, error) {
	var out PersonFacets
	err := s.instrument(ctx, "person_facets", entityAttrs(domain.EntityPerson, personID), func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			person, ok := view.FindPerson(personID)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityPerson, ID: personID}
			}
			out = PersonFacets{
				Person:     person,
				Names:      collect(view, domain.EntityPersonName, func(n domain.PersonName) bool { return n.PersonID == personID }),
				Attributes: collect(view, domain.EntityAttribute, func(a domain.Attribute) bool { return a.PersonID == personID }),
				Events: collect(view, domain.EntityEvent, func(e domain.Event) bool {
					return e.OwnerType == domain.EntityPerson && e.OwnerID == personID
				}),
				Media: collect(view, domain.EntityMedia, func(m domain.Media) bool {
					return m.OwnerType == domain.EntityPerson && m.OwnerID == personID
				}),
				Families: view.FamiliesForChild(personID),
			}
			return nil
		})
	})
	return out, err
}

// SurnameLetters lists surname initials with person counts.
func (s *Service) SurnameLetters(ctx context.Context) ([]browse.LetterCount, error) {
	var out []browse.LetterCount
	err := s.instrument(ctx, "surname_letters", nil, func(ctx context.Context) error {
		var err error
		out, err = s.browse.SurnameLetters(ctx)
		return err
	})
	return out, err
}

// SurnamesForLetter lists the surnames starting with letter.
func (s *Service) SurnamesForLetter(ctx context.Context, letter string) ([]browse.SurnameCount, error) {
	var out []browse.SurnameCount
	err := s.instrument(ctx, "surnames_for_letter", []attribute.KeyValue{attribute.String("letter", letter)}, func(ctx context.Context) error {
		var err error
		out, err = s.browse.SurnamesForLetter(ctx, letter)
		return err
	})
	return out, err
}

// PlaceHierarchy lists the places directly below parent; an empty parent
// lists the top level.
func (s *Service) PlaceHierarchy(ctx context.Context, parent string) ([]browse.PlaceEntry, error) {
	var out []browse.PlaceEntry
	err := s.instrument(ctx, "place_hierarchy", []attribute.KeyValue{attribute.String("parent", parent)}, func(ctx context.Context) error {
		var err error
		out, err = s.browse.PlaceChildren(ctx, parent)
		return err
	})
	return out, err
}

// GlobalHistory pages the whole ledger, newest first.
func (s *Service) GlobalHistory(ctx context.Context, filter history.GlobalFilter, opts domain.PageOptions) (domain.Page[domain.Change], error) {
	var page domain.Page[domain.Change]
	attrs := []attribute.KeyValue{attribute.String("filter.entity_type", string(filter.Entity)), attribute.String("filter.action", string(filter.Action))}
	err := s.instrument(ctx, "global_history", attrs, func(ctx context.Context) error {
		var err error
		page, err = s.history.ListGlobal(ctx, filter, opts)
		return err
	})
	return page, err
}

func collect[T domain.Entity](view domain.TransactionView, kind domain.EntityType, keep func(T) bool) []T {
	var out []T
	for _, e := range view.List(kind) {
		if typed, ok := e.(T); ok && keep(typed) {
			out = append(out, typed)
		}
	}
	return out
}

func linkAttrs(familyID, personID string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String("family.id", familyID), attribute.String("person.id", personID)}
}
