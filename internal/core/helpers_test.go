package core

import (
	"context"
	"testing"

	"genealogycore/internal/infra/persistence/memory"
	"genealogycore/pkg/domain"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	store := memory.NewStore(memory.WithRulesEngine(NewDefaultRulesEngine()))
	return NewService(store, opts...)
}

func mustPerson(t *testing.T, svc *Service, id, given, surname string) domain.Person {
	t.Helper()
	p, err := svc.Persons.Create(context.Background(), domain.Person{Base: domain.Base{ID: id}, GivenName: given, Surname: surname})
	require.NoError(t, err)
	return p
}

func mustFamily(t *testing.T, svc *Service, id, father, mother string) domain.Family {
	t.Helper()
	f, err := svc.Families.Create(context.Background(), domain.Family{Base: domain.Base{ID: id}, Partner1ID: father, Partner2ID: mother})
	require.NoError(t, err)
	return f
}

func mustLink(t *testing.T, svc *Service, familyID, personID string) {
	t.Helper()
	_, err := svc.LinkChild(context.Background(), domain.FamilyChild{FamilyID: familyID, PersonID: personID})
	require.NoError(t, err)
}
