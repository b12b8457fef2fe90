package core

import "genealogycore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in integrity
// rules registered.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(FamilyIntegrityRule())
	engine.Register(PedigreeCycleRule())
	return engine
}

// touchedFamilies returns the families whose partners or children changed.
func touchedFamilies(changes []domain.Change) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, change := range changes {
		switch change.Entity {
		case domain.EntityFamily:
			if change.Action != domain.ActionDeleted {
				add(change.EntityID)
			}
		case domain.EntityFamilyChild:
			if change.Action == domain.ActionLinked {
				familyID, _, _ := domain.SplitLinkEntityID(change.EntityID)
				add(familyID)
			}
		}
	}
	return out
}
