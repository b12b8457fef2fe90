package domain_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"genealogycore/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawString(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}

func TestDiffReportsOnlyChangedTrackedFields(t *testing.T) {
	before := domain.Person{Base: domain.Base{ID: "p1", Version: 1}, GivenName: "Alice", Surname: "Anderson"}.Normalize()
	after := before
	after.Surname = "Xavier"
	after = after.Normalize()
	after.Version = 2
	after.UpdatedAt = time.Now()

	changes, err := domain.Diff(before, after)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "Anderson", rawString(t, changes["surname"].Old))
	assert.Equal(t, "Xavier", rawString(t, changes["surname"].New))
}

func TestDiffCreatedSkipsEmptyFields(t *testing.T) {
	changes, err := domain.Diff(nil, domain.Family{Partner1ID: "p1", ChildCount: 3, Partner1Name: "cached"})
	require.NoError(t, err)
	assert.Equal(t, []string{"partner1_id"}, keys(changes))
	assert.Equal(t, "null", string(changes["partner1_id"].Old))
}

func TestDiffRejectsMismatchedKinds(t *testing.T) {
	_, err := domain.Diff(domain.Source{Title: "a"}, domain.Person{})
	assert.Error(t, err)
}

func keys(m map[string]domain.FieldChange) []string {
	return domain.Change{Changes: m}.ChangedFields()
}

// history builds ledger entries for a person edited through the given states.
func history(t *testing.T, states ...domain.Person) (domain.Person, []domain.Change) {
	t.Helper()
	var (
		entries []domain.Change
		prev    domain.Entity
		current domain.Person
	)
	for i, state := range states {
		state = state.Normalize()
		state.Base = domain.Base{ID: "p1", Version: i + 1, UpdatedAt: time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC)}
		changes, err := domain.Diff(prev, state)
		require.NoError(t, err)
		action := domain.ActionUpdated
		if i == 0 {
			action = domain.ActionCreated
		}
		entries = append(entries, domain.Change{
			Seq: int64(i + 1), Entity: domain.EntityPerson, EntityID: "p1",
			Action: action, Version: i + 1, Timestamp: state.UpdatedAt, Changes: changes,
		})
		prev, current = state, state
	}
	return current, entries
}

func TestReconstructReplaysBackwards(t *testing.T) {
	current, entries := history(t,
		domain.Person{GivenName: "Alice", Surname: "Anderson", BirthDate: "1850"},
		domain.Person{GivenName: "Alice", Surname: "Baker", BirthDate: "1850"},
		domain.Person{GivenName: "Alicia", Surname: "Clark", BirthPlace: "Boston, MA, USA"},
	)

	v1, err := domain.Reconstruct(current, entries, 1)
	require.NoError(t, err)
	p := v1.(domain.Person)
	assert.Equal(t, "Alice", p.GivenName)
	assert.Equal(t, "Anderson", p.Surname)
	assert.Equal(t, "Alice Anderson", p.FullName)
	assert.Equal(t, "1850", p.BirthDateSort)
	assert.Empty(t, p.BirthPlace)
	assert.Equal(t, 1, p.Version)
	assert.Equal(t, entries[0].Timestamp, p.UpdatedAt)

	v2, err := domain.Reconstruct(current, entries, 2)
	require.NoError(t, err)
	assert.Equal(t, "Baker", v2.(domain.Person).Surname)

	same, err := domain.Reconstruct(current, entries, 3)
	require.NoError(t, err)
	assert.Equal(t, current, same)
}

func TestReconstructBounds(t *testing.T) {
	current, entries := history(t, domain.Person{GivenName: "A"}, domain.Person{GivenName: "B"})

	_, err := domain.Reconstruct(current, entries, 0)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, err = domain.Reconstruct(current, entries, 3)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = domain.Reconstruct(current, entries[1:], 1)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "missing created entry")
}

func TestDecodeEntityUnknownKind(t *testing.T) {
	_, err := domain.DecodeEntity("tree", []byte(`{}`))
	assert.True(t, errors.Is(err, domain.ErrValidation))
}
