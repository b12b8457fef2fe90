package testutil

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubDBStoresAndQueriesRows(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	require.NoError(t, conn.Ping(ctx))

	_, err := conn.ExecContext(ctx, "INSERT INTO pedigree_edges (person_id, family_id) VALUES ($1, $2) ON CONFLICT (person_id) DO NOTHING", []driver.NamedValue{
		{Value: "p1"}, {Value: "f1"},
	})
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, "INSERT INTO pedigree_edges (person_id, family_id) VALUES ($1, $2) ON CONFLICT (person_id) DO NOTHING", []driver.NamedValue{
		{Value: "p1"}, {Value: "f2"},
	})
	require.NoError(t, err)
	rows := conn.Rows("pedigree_edges")
	require.Len(t, rows, 1)
	assert.Equal(t, "f2", rows[0]["family_id"])

	rs, err := conn.QueryContext(ctx, "SELECT person_id, family_id FROM pedigree_edges ORDER BY person_id", nil)
	require.NoError(t, err)
	dest := make([]driver.Value, 2)
	require.NoError(t, rs.Next(dest))
	assert.Equal(t, []driver.Value{"p1", "f2"}, dest)

	_, err = conn.ExecContext(ctx, "DELETE FROM pedigree_edges WHERE person_id = $1", []driver.NamedValue{{Value: "p1"}})
	require.NoError(t, err)
	assert.Empty(t, conn.Rows("pedigree_edges"))
}

func TestStubDBStagesWritesUntilCommit(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	insert := func(id string) {
		_, err := conn.ExecContext(ctx, "INSERT INTO ledger (seq, id) VALUES ($1, $2)", []driver.NamedValue{{Value: int64(1)}, {Value: id}})
		require.NoError(t, err)
	}

	tx, err := conn.BeginTx(ctx, driver.TxOptions{})
	require.NoError(t, err)
	insert("a")
	assert.Empty(t, conn.Rows("ledger"))
	require.NoError(t, tx.Rollback())
	assert.Empty(t, conn.Rows("ledger"))

	conn.CommitErrs = []error{errors.New("serialization")}
	tx, err = conn.BeginTx(ctx, driver.TxOptions{})
	require.NoError(t, err)
	insert("b")
	require.Error(t, tx.Commit())
	assert.Empty(t, conn.Rows("ledger"))

	tx, err = conn.BeginTx(ctx, driver.TxOptions{})
	require.NoError(t, err)
	insert("c")
	require.NoError(t, tx.Commit())
	require.Len(t, conn.Rows("ledger"), 1)
	assert.Equal(t, 1, conn.Commits)
}
