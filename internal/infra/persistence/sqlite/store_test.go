package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"genealogycore/internal/infra/persistence/memory"
	"genealogycore/internal/infra/persistence/sqlite"
	"genealogycore/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("%s-%03d", filepath.Base(t.Name()), n)
	}
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store, err := sqlite.NewStore(path,
		memory.WithIDGenerator(ids),
		memory.WithClock(func() time.Time { clock = clock.Add(time.Second); return clock }),
	)
	require.NoError(t, err)
	return store
}

func run(store domain.PersistentStore, fn func(domain.Transaction) error) error {
	_, err := store.RunInTransaction(context.Background(), fn)
	return err
}

func TestStoreHydratesCommittedStateOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tree.db")
	store := openStore(t, path)
	assert.Equal(t, path, store.Path())

	var person, family domain.Entity
	require.NoError(t, run(store, func(tx domain.Transaction) error {
		var err error
		if person, err = tx.Create(domain.Person{GivenName: "Alice", Surname: "Anderson", BirthDate: "ABT 1850"}); err != nil {
			return err
		}
		if family, err = tx.Create(domain.Family{Partner2ID: person.Meta().ID}); err != nil {
			return err
		}
		child, err := tx.Create(domain.Person{GivenName: "Bob", Surname: "Anderson"})
		if err != nil {
			return err
		}
		_, err = tx.LinkChild(domain.FamilyChild{FamilyID: family.Meta().ID, PersonID: child.Meta().ID})
		return err
	}))
	updated := person.(domain.Person)
	updated.Surname = "Xavier"
	require.NoError(t, run(store, func(tx domain.Transaction) error {
		_, err := tx.Save(updated, 1)
		return err
	}))
	require.NoError(t, store.Close())

	reopened := openStore(t, path)
	defer func() { _ = reopened.Close() }()

	got, ok := reopened.Get(domain.EntityPerson, person.Meta().ID)
	require.True(t, ok)
	p := got.(domain.Person)
	assert.Equal(t, 2, p.Version)
	assert.Equal(t, "Xavier", p.Surname)
	assert.Equal(t, "Alice Xavier", p.FullName)
	assert.Equal(t, "1850", p.BirthDateSort)

	require.NoError(t, reopened.View(context.Background(), func(view domain.TransactionView) error {
		children := view.FamilyChildren(family.Meta().ID)
		require.Len(t, children, 1)
		edge, ok := view.PedigreeEdge(children[0].PersonID)
		require.True(t, ok)
		assert.Equal(t, person.Meta().ID, edge.MotherID)

		history := view.History(domain.EntityPerson, person.Meta().ID)
		require.Len(t, history, 2)
		assert.Equal(t, domain.ActionUpdated, history[0].Action)
		assert.Equal(t, []string{"surname"}, history[0].ChangedFields())
		assert.Len(t, view.Ledger(), 5)
		return nil
	}))

	stale := p
	stale.Surname = "Young"
	err := run(reopened, func(tx domain.Transaction) error {
		_, err := tx.Save(stale, 1)
		return err
	})
	var conflict domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, 2, conflict.Current)
}

func TestStoreContinuesLedgerSequenceAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.db")
	store := openStore(t, path)
	require.NoError(t, run(store, func(tx domain.Transaction) error {
		_, err := tx.Create(domain.Source{Title: "Parish register"})
		return err
	}))
	require.NoError(t, store.Close())

	reopened := openStore(t, path)
	defer func() { _ = reopened.Close() }()
	require.NoError(t, run(reopened, func(tx domain.Transaction) error {
		_, err := tx.Create(domain.Source{Base: domain.Base{ID: "src-2"}, Title: "Census 1880"})
		return err
	}))
	require.NoError(t, reopened.View(context.Background(), func(view domain.TransactionView) error {
		ledger := view.Ledger()
		require.Len(t, ledger, 2)
		assert.Equal(t, int64(2), ledger[0].Seq)
		assert.Equal(t, int64(1), ledger[1].Seq)
		assert.False(t, ledger[0].Timestamp.Before(ledger[1].Timestamp))
		return nil
	}))
}

func TestDeletedRecordsStayDeletedAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.db")
	store := openStore(t, path)
	var source domain.Entity
	require.NoError(t, run(store, func(tx domain.Transaction) error {
		var err error
		source, err = tx.Create(domain.Source{Title: "Bible"})
		return err
	}))
	require.NoError(t, run(store, func(tx domain.Transaction) error {
		return tx.Delete(domain.EntitySource, source.Meta().ID, 1)
	}))
	require.NoError(t, store.Close())

	reopened := openStore(t, path)
	defer func() { _ = reopened.Close() }()
	_, ok := reopened.Get(domain.EntitySource, source.Meta().ID)
	assert.False(t, ok)
	err := run(reopened, func(tx domain.Transaction) error {
		return tx.Delete(domain.EntitySource, source.Meta().ID, 1)
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStorageFailureLeavesStateUntouched(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "tree.db"))
	require.NoError(t, store.DB().Close())

	err := run(store, func(tx domain.Transaction) error {
		_, err := tx.Create(domain.Source{Base: domain.Base{ID: "s1"}, Title: "Will"})
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrStorage))
	_, ok := store.Get(domain.EntitySource, "s1")
	assert.False(t, ok)
	require.NoError(t, store.View(context.Background(), func(view domain.TransactionView) error {
		assert.Empty(t, view.Ledger())
		return nil
	}))
}

func TestIsBusy(t *testing.T) {
	assert.False(t, sqlite.IsBusy(errors.New("boom")))
	assert.False(t, sqlite.IsBusy(nil))
}
