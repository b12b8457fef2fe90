package core

import (
	"context"
	"errors"
	"testing"

	"genealogycore/internal/query"
	"genealogycore/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	created := mustPerson(t, svc, "p1", "Alice", "Smith")
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, "Alice Smith", created.FullName)

	got, err := svc.Persons.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, created, got)

	got.Surname = "Jones"
	saved, err := svc.Persons.Save(ctx, got, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)

	got.Surname = "Brown"
	_, err = svc.Persons.Save(ctx, got, 1)
	var conflict domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, 2, conflict.Current)

	require.Error(t, svc.Persons.Delete(ctx, "p1", 1))
	require.NoError(t, svc.Persons.Delete(ctx, "p1", 2))

	_, err = svc.Persons.Get(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Persons.Delete(ctx, "p1", 2), domain.ErrNotFound)

	page, err := svc.Persons.History(ctx, "p1", domain.PageOptions{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)
	assert.Equal(t, domain.ActionDeleted, page.Entries[0].Action)
	assert.Equal(t, domain.ActionCreated, page.Entries[2].Action)
}

func TestRepositoryListAndSearch(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustPerson(t, svc, "p1", "Carl", "Clark")
	mustPerson(t, svc, "p2", "Anna", "anderson")
	mustPerson(t, svc, "p3", "Bea", "Brown")

	page, err := svc.Persons.List(ctx, query.ListOptions{OrderBy: "surname desc"})
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)
	assert.Equal(t, []string{"Clark", "Brown", "anderson"},
		[]string{page.Entries[0].Surname, page.Entries[1].Surname, page.Entries[2].Surname})
	assert.Equal(t, 3, page.Total)

	page, err = svc.Persons.List(ctx, query.ListOptions{Filter: `surname = "Brown"`})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "p3", page.Entries[0].ID)

	_, err = svc.Persons.List(ctx, query.ListOptions{SortField: "shoe_size"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	found, err := svc.Persons.Search(ctx, "ANDER", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "p2", found[0].ID)
}

func TestRepositoryRestorePointsAndRollback(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	p := mustPerson(t, svc, "p1", "Alice", "Smith")
	p.Surname = "Jones"
	_, err := svc.Persons.Save(ctx, p, 1)
	require.NoError(t, err)

	points, err := svc.Persons.RestorePoints(ctx, "p1", domain.PageOptions{})
	require.NoError(t, err)
	require.Len(t, points.Entries, 2)
	assert.True(t, points.Entries[0].IsCurrent)
	assert.Equal(t, 1, points.Entries[1].Version)

	result, err := svc.Persons.Rollback(ctx, "p1", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, result.NewVersion)
	assert.Equal(t, []string{"surname"}, result.Changes)

	current, err := svc.Persons.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Smith", current.Surname)

	_, err = svc.Persons.Rollback(ctx, "p1", 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Persons.Rollback(ctx, "p1", 9)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReferencedRecordsMustExist(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Citations.Create(ctx, domain.Citation{SourceID: "missing", FactType: "birth", FactOwnerID: "p1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Names.Create(ctx, domain.PersonName{PersonID: "missing", Surname: "X"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
