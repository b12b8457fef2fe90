package core

import (
	"context"
	"fmt"

	"genealogycore/pkg/domain"
)

const pedigreeCycleRuleName = "pedigree_cycle"

// PedigreeCycleRule blocks parent assignments that would make a person their
// own ancestor.
func PedigreeCycleRule() domain.Rule {
	return pedigreeCycleRule{}
}

type pedigreeCycleRule struct{}

func (pedigreeCycleRule) Name() string { return pedigreeCycleRuleName }

func (pedigreeCycleRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	checked := map[string]struct{}{}
	for _, familyID := range touchedFamilies(changes) {
		for _, link := range view.FamilyChildren(familyID) {
			if _, ok := checked[link.PersonID]; ok {
				continue
			}
			checked[link.PersonID] = struct{}{}
			if isOwnAncestor(view, link.PersonID) {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     pedigreeCycleRuleName,
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("person %s would be their own ancestor", link.PersonID),
					Entity:   domain.EntityPerson,
					EntityID: link.PersonID,
				})
			}
		}
	}
	return res, nil
}

// isOwnAncestor walks the pedigree edges upward from personID.
func isOwnAncestor(view domain.RuleView, personID string) bool {
	visited := map[string]struct{}{}
	queue := parentsOf(view, personID)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == personID {
			return true
		}
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		queue = append(queue, parentsOf(view, id)...)
	}
	return false
}

func parentsOf(view domain.RuleView, personID string) []string {
	edge, ok := view.PedigreeEdge(personID)
	if !ok {
		return nil
	}
	var out []string
	if edge.FatherID != "" {
		out = append(out, edge.FatherID)
	}
	if edge.MotherID != "" {
		out = append(out, edge.MotherID)
	}
	return out
}
