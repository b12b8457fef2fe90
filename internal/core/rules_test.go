package core

import (
	"context"
	"errors"
	"testing"

	"genealogycore/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func violatedRules(t *testing.T, err error) []string {
	t.Helper()
	var blocked domain.RuleViolationError
	require.True(t, errors.As(err, &blocked), "expected rule violation, got %v", err)
	var names []string
	for _, v := range blocked.Result.Violations {
		names = append(names, v.Rule)
	}
	return names
}

func TestDefaultRulesEngineRegistersIntegrityRules(t *testing.T) {
	assert.Equal(t, []string{"family_integrity", "pedigree_cycle"}, NewDefaultRulesEngine().Rules())
}

func TestFamilyIntegrityRejectsSamePartnerTwice(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustPerson(t, svc, "a", "Adam", "Smith")

	_, err := svc.Families.Create(ctx, domain.Family{Base: domain.Base{ID: "f1"}, Partner1ID: "a", Partner2ID: "a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, violatedRules(t, err), "family_integrity")

	_, err = svc.Families.Get(ctx, "f1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFamilyIntegrityRejectsPartnerAsChild(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustPerson(t, svc, "a", "Adam", "Smith")
	mustFamily(t, svc, "f1", "a", "")

	_, err := svc.LinkChild(ctx, domain.FamilyChild{FamilyID: "f1", PersonID: "a"})
	require.Error(t, err)
	assert.Contains(t, violatedRules(t, err), "family_integrity")

	children, err := svc.Children(ctx, "f1")
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestPedigreeCycleRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustPerson(t, svc, "a", "Adam", "Smith")
	mustPerson(t, svc, "b", "Ben", "Smith")
	mustFamily(t, svc, "f1", "a", "")
	mustLink(t, svc, "f1", "b")
	mustFamily(t, svc, "f2", "b", "")

	_, err := svc.LinkChild(ctx, domain.FamilyChild{FamilyID: "f2", PersonID: "a"})
	require.Error(t, err)
	assert.Equal(t, []string{"pedigree_cycle"}, violatedRules(t, err))

	edge, err := svc.PedigreeEdge(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, edge.FatherID)
}

func TestPedigreeCycleThroughPartnerChange(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustPerson(t, svc, "a", "Adam", "Smith")
	mustPerson(t, svc, "b", "Ben", "Smith")
	mustPerson(t, svc, "c", "Cora", "Smith")
	f1 := mustFamily(t, svc, "f1", "a", "")
	mustLink(t, svc, "f1", "b")
	mustFamily(t, svc, "f2", "b", "")
	mustLink(t, svc, "f2", "c")

	f1.Partner2ID = "c"
	_, err := svc.Families.Save(ctx, f1, f1.Version)
	require.Error(t, err)
	assert.Contains(t, violatedRules(t, err), "pedigree_cycle")
}
