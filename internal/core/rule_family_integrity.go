package core

import (
	"context"
	"fmt"

	"genealogycore/pkg/domain"
)

const familyIntegrityRuleName = "family_integrity"

// FamilyIntegrityRule blocks families whose partners are the same person and
// children linked to a family they are a partner of.
func FamilyIntegrityRule() domain.Rule {
	return familyIntegrityRule{}
}

type familyIntegrityRule struct{}

func (familyIntegrityRule) Name() string { return familyIntegrityRuleName }

func (familyIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, familyID := range touchedFamilies(changes) {
		family, ok := view.FindFamily(familyID)
		if !ok {
			continue
		}
		if family.Partner1ID != "" && family.Partner1ID == family.Partner2ID {
			res.Violations = append(res.Violations, familyViolation(family.ID,
				fmt.Sprintf("family %s lists %s as both partners", family.ID, family.Partner1ID)))
		}
		for _, link := range view.FamilyChildren(family.ID) {
			if link.PersonID == family.Partner1ID || link.PersonID == family.Partner2ID {
				res.Violations = append(res.Violations, familyViolation(family.ID,
					fmt.Sprintf("person %s is both partner and child of family %s", link.PersonID, family.ID)))
			}
		}
	}
	return res, nil
}

func familyViolation(familyID, message string) domain.Violation {
	return domain.Violation{
		Rule:     familyIntegrityRuleName,
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityFamily,
		EntityID: familyID,
	}
}
