package core

import (
	"context"
	"testing"

	"genealogycore/internal/history"
	"genealogycore/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAncestorsNumbering(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustPerson(t, svc, "root", "Rose", "Young")
	mustPerson(t, svc, "dad", "David", "Young")
	mustPerson(t, svc, "mum", "Mary", "Old")
	mustPerson(t, svc, "gf", "George", "Young")
	mustPerson(t, svc, "gm", "Grace", "Young")
	mustFamily(t, svc, "f1", "dad", "mum")
	mustLink(t, svc, "f1", "root")
	mustFamily(t, svc, "f2", "gf", "gm")
	mustLink(t, svc, "f2", "dad")

	ancestors, err := svc.Ancestors(ctx, "root", 2)
	require.NoError(t, err)
	require.Len(t, ancestors, 4)
	var got []string
	for _, a := range ancestors {
		got = append(got, a.Person.ID)
	}
	assert.Equal(t, []string{"dad", "mum", "gf", "gm"}, got)
	assert.Equal(t, []int{2, 3, 4, 5}, []int{ancestors[0].Number, ancestors[1].Number, ancestors[2].Number, ancestors[3].Number})
	assert.Equal(t, 2, ancestors[2].Generation)

	one, err := svc.Ancestors(ctx, "root", 1)
	require.NoError(t, err)
	assert.Len(t, one, 2)

	_, err = svc.Ancestors(ctx, "root", 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Ancestors(ctx, "nobody", 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	edge, err := svc.PedigreeEdge(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "dad", edge.FatherID)
	assert.Equal(t, "mum", edge.MotherID)

	families, err := svc.ParentFamilies(ctx, "dad")
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "f2", families[0].FamilyID)

	require.NoError(t, svc.UnlinkChild(ctx, "f1", "root"))
	edge, err = svc.PedigreeEdge(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, domain.PedigreeEdge{PersonID: "root"}, edge)
	assert.ErrorIs(t, svc.UnlinkChild(ctx, "f1", "root"), domain.ErrNotFound)
}

func TestCitationsForFactAndFacets(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustPerson(t, svc, "p1", "Alice", "Smith")
	_, err := svc.Sources.Create(ctx, domain.Source{Base: domain.Base{ID: "s1"}, Title: "Parish register"})
	require.NoError(t, err)
	for _, c := range []domain.Citation{
		{Base: domain.Base{ID: "c2"}, SourceID: "s1", FactType: "birth", FactOwnerID: "p1", Page: "12"},
		{Base: domain.Base{ID: "c1"}, SourceID: "s1", FactType: "birth", FactOwnerID: "p1", Page: "3"},
		{Base: domain.Base{ID: "c3"}, SourceID: "s1", FactType: "death", FactOwnerID: "p1"},
	} {
		_, err := svc.Citations.Create(ctx, c)
		require.NoError(t, err)
	}

	cites, err := svc.CitationsForFact(ctx, "birth", "p1")
	require.NoError(t, err)
	require.Len(t, cites, 2)
	assert.Equal(t, "c1", cites[0].ID)
	assert.Equal(t, "c2", cites[1].ID)

	_, err = svc.Names.Create(ctx, domain.PersonName{PersonID: "p1", Surname: "Smyth", NameType: domain.NameAlias})
	require.NoError(t, err)
	_, err = svc.Attributes.Create(ctx, domain.Attribute{PersonID: "p1", FactType: "occupation", Value: "weaver"})
	require.NoError(t, err)
	_, err = svc.Events.Create(ctx, domain.Event{OwnerType: domain.EntityPerson, OwnerID: "p1", FactType: "baptism", Date: "1850"})
	require.NoError(t, err)

	facets, err := svc.PersonFacets(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", facets.Person.FullName)
	require.Len(t, facets.Names, 1)
	assert.Equal(t, "Smyth", facets.Names[0].Surname)
	require.Len(t, facets.Attributes, 1)
	require.Len(t, facets.Events, 1)
	assert.Equal(t, "1850", facets.Events[0].DateSort)
	assert.Empty(t, facets.Media)

	_, err = svc.PersonFacets(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBrowseAndGlobalHistory(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Persons.Create(ctx, domain.Person{Base: domain.Base{ID: "p1"}, Surname: "Smith", BirthPlace: "Leeds, Yorkshire, England"})
	require.NoError(t, err)
	_, err = svc.Persons.Create(ctx, domain.Person{Base: domain.Base{ID: "p2"}, Surname: "Stone", BirthPlace: "York, Yorkshire, England"})
	require.NoError(t, err)

	letters, err := svc.SurnameLetters(ctx)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, 2, letters[0].Count)

	surnames, err := svc.SurnamesForLetter(ctx, "S")
	require.NoError(t, err)
	assert.Len(t, surnames, 2)

	places, err := svc.PlaceHierarchy(ctx, "")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "England", places[0].Name)
	assert.Equal(t, 2, places[0].Count)

	page, err := svc.GlobalHistory(ctx, history.GlobalFilter{Entity: domain.EntityPerson}, domain.PageOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.True(t, page.HasMore)
	assert.Equal(t, "p2", page.Entries[0].EntityID)

	_, err = svc.GlobalHistory(ctx, history.GlobalFilter{Action: "exploded"}, domain.PageOptions{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
