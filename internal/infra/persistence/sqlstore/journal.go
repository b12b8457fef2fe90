// Package sqlstore persists committed read-model batches to a SQL database and
// hydrates the in-memory store from it. The sqlite and postgres backends share
// this journal and differ only in driver, placeholder flavor and retry policy.
package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"genealogycore/internal/infra/persistence/memory"
	"genealogycore/pkg/domain"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Compile-time contract assertion.
var _ domain.Journal = (*Journal)(nil)

const (
	tableEntities = "entities"
	tableChildren = "family_children"
	tableEdges    = "pedigree_edges"
	tableLedger   = "ledger"
)

// RetryFunc runs op, retrying transient failures as the backend sees fit.
type RetryFunc func(ctx context.Context, op func() error) error

func runOnce(_ context.Context, op func() error) error { return op() }

// Journal writes every batch in a single database transaction.
type Journal struct {
	db     *sqlx.DB
	flavor sqlbuilder.Flavor
	retry  RetryFunc
}

// Option configures a Journal.
type Option func(*Journal)

// WithRetry installs the policy used for transient commit failures.
func WithRetry(fn RetryFunc) Option {
	return func(j *Journal) {
		if fn != nil {
			j.retry = fn
		}
	}
}

// NewJournal builds a journal over db using the flavor's placeholder syntax.
func NewJournal(db *sqlx.DB, flavor sqlbuilder.Flavor, opts ...Option) *Journal {
	j := &Journal{db: db, flavor: flavor, retry: runOnce}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// DB exposes the underlying handle.
func (j *Journal) DB() *sqlx.DB { return j.db }

type statement struct {
	label string
	query string
	args  []any
}

// Commit persists the batch atomically. Failures surface as StorageError.
func (j *Journal) Commit(ctx context.Context, batch domain.Batch) error {
	if batch.Empty() {
		return nil
	}
	stmts, err := j.statements(batch)
	if err != nil {
		return domain.StorageError{Op: "encode batch", Err: err}
	}
	if err := j.retry(ctx, func() error { return j.exec(ctx, stmts) }); err != nil {
		return domain.StorageError{Op: "commit batch", Err: err}
	}
	return nil
}

func (j *Journal) exec(ctx context.Context, stmts []statement) (retErr error) {
	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			return errors.Wrap(err, stmt.label)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

func (j *Journal) statements(batch domain.Batch) ([]statement, error) {
	var stmts []statement
	for _, e := range batch.Upserts {
		payload, err := json.Marshal(e)
		if err != nil {
			return nil, errors.Wrapf(err, "encode %s %s", e.Kind(), e.Meta().ID)
		}
		meta := e.Meta()
		stmts = append(stmts, j.upsert(tableEntities,
			[]string{"entity_key", "kind", "id", "version", "payload"},
			[]any{entityKey(e.Kind(), meta.ID), string(e.Kind()), meta.ID, meta.Version, string(payload)},
		))
	}
	for _, ref := range batch.Deletes {
		stmts = append(stmts, j.delete(tableEntities, "entity_key", entityKey(ref.Kind, ref.ID)))
	}
	for _, link := range batch.LinkDeletes {
		stmts = append(stmts, j.delete(tableChildren, "link_key", link.Key()))
	}
	for _, link := range batch.LinkUpserts {
		stmts = append(stmts, j.upsert(tableChildren,
			[]string{"link_key", "family_id", "person_id", "relationship_type", "created_at"},
			[]any{link.Key(), link.FamilyID, link.PersonID, string(link.RelationshipType), formatTime(link.CreatedAt)},
		))
	}
	for _, personID := range batch.EdgeDeletes {
		stmts = append(stmts, j.delete(tableEdges, "person_id", personID))
	}
	for _, edge := range batch.EdgeUpserts {
		stmts = append(stmts, j.upsert(tableEdges,
			[]string{"person_id", "family_id", "father_id", "mother_id"},
			[]any{edge.PersonID, edge.FamilyID, edge.FatherID, edge.MotherID},
		))
	}
	for _, change := range batch.Changes {
		payload, err := json.Marshal(change)
		if err != nil {
			return nil, errors.Wrapf(err, "encode ledger entry %d", change.Seq)
		}
		ib := j.flavor.NewInsertBuilder()
		ib.InsertInto(tableLedger)
		ib.Cols("seq", "id", "entity_type", "entity_id", "action", "version", "recorded_at", "payload")
		ib.Values(change.Seq, change.ID, string(change.Entity), change.EntityID, string(change.Action), change.Version, formatTime(change.Timestamp), string(payload))
		query, args := ib.Build()
		stmts = append(stmts, statement{label: "insert ledger", query: query, args: args})
	}
	return stmts, nil
}

// upsert builds an insert that overwrites the row sharing the first column.
func (j *Journal) upsert(table string, cols []string, values []any) statement {
	ib := j.flavor.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(cols...)
	ib.Values(values...)
	updates := make([]string, 0, len(cols)-1)
	for _, col := range cols[1:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}
	ib.SQL(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", cols[0], strings.Join(updates, ", ")))
	query, args := ib.Build()
	return statement{label: "upsert " + table, query: query, args: args}
}

func (j *Journal) delete(table, keyCol, key string) statement {
	del := j.flavor.NewDeleteBuilder()
	del.DeleteFrom(table)
	del.Where(del.Equal(keyCol, key))
	query, args := del.Build()
	return statement{label: "delete " + table, query: query, args: args}
}

type entityRow struct {
	Key     string `db:"entity_key"`
	Kind    string `db:"kind"`
	ID      string `db:"id"`
	Version int    `db:"version"`
	Payload string `db:"payload"`
}

type linkRow struct {
	Key              string `db:"link_key"`
	FamilyID         string `db:"family_id"`
	PersonID         string `db:"person_id"`
	RelationshipType string `db:"relationship_type"`
	CreatedAt        string `db:"created_at"`
}

type edgeRow struct {
	PersonID string `db:"person_id"`
	FamilyID string `db:"family_id"`
	FatherID string `db:"father_id"`
	MotherID string `db:"mother_id"`
}

type ledgerRow struct {
	Seq     int64  `db:"seq"`
	Payload string `db:"payload"`
}

// Load reads the persisted state for hydrating a memory store.
func (j *Journal) Load(ctx context.Context) (memory.Snapshot, error) {
	var snap memory.Snapshot

	var entities []entityRow
	if err := j.selectAll(ctx, &entities, tableEntities, "entity_key", "entity_key", "kind", "id", "version", "payload"); err != nil {
		return snap, err
	}
	for _, row := range entities {
		e, err := domain.DecodeEntity(domain.EntityType(row.Kind), []byte(row.Payload))
		if err != nil {
			return snap, domain.StorageError{Op: "decode " + row.Key, Err: err}
		}
		snap.Entities = append(snap.Entities, e)
	}

	var links []linkRow
	if err := j.selectAll(ctx, &links, tableChildren, "link_key", "link_key", "family_id", "person_id", "relationship_type", "created_at"); err != nil {
		return snap, err
	}
	for _, row := range links {
		createdAt, err := parseTime(row.CreatedAt)
		if err != nil {
			return snap, domain.StorageError{Op: "decode " + row.Key, Err: err}
		}
		snap.Links = append(snap.Links, domain.FamilyChild{
			FamilyID:         row.FamilyID,
			PersonID:         row.PersonID,
			RelationshipType: domain.ChildRelationship(row.RelationshipType),
			CreatedAt:        createdAt,
		})
	}

	var edges []edgeRow
	if err := j.selectAll(ctx, &edges, tableEdges, "person_id", "person_id", "family_id", "father_id", "mother_id"); err != nil {
		return snap, err
	}
	for _, row := range edges {
		snap.Edges = append(snap.Edges, domain.PedigreeEdge{
			PersonID: row.PersonID,
			FamilyID: row.FamilyID,
			FatherID: row.FatherID,
			MotherID: row.MotherID,
		})
	}

	var ledger []ledgerRow
	if err := j.selectAll(ctx, &ledger, tableLedger, "seq", "seq", "payload"); err != nil {
		return snap, err
	}
	for _, row := range ledger {
		var change domain.Change
		if err := json.Unmarshal([]byte(row.Payload), &change); err != nil {
			return snap, domain.StorageError{Op: fmt.Sprintf("decode ledger entry %d", row.Seq), Err: err}
		}
		snap.Ledger = append(snap.Ledger, change)
	}
	return snap, nil
}

func (j *Journal) selectAll(ctx context.Context, dest any, table, orderBy string, cols ...string) error {
	sb := j.flavor.NewSelectBuilder()
	sb.Select(cols...)
	sb.From(table)
	sb.OrderBy(orderBy)
	query, args := sb.Build()
	if err := j.db.SelectContext(ctx, dest, query, args...); err != nil {
		return domain.StorageError{Op: "load " + table, Err: errors.Wrapf(err, "select %s", table)}
	}
	return nil
}

func entityKey(kind domain.EntityType, id string) string {
	return string(kind) + "/" + id
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}
