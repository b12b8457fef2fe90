package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Keys carried by Base. They change on every write and are never diffed.
var metaFields = map[string]struct{}{
	"id":         {},
	"version":    {},
	"created_at": {},
	"updated_at": {},
}

// derivedFields lists per-type projections recomputed from other fields.
// Diffs skip them; Reconstruct recomputes them through Normalize.
var derivedFields = map[EntityType][]string{
	EntityPerson: {"full_name", "birth_date_sort", "death_date_sort"},
	EntityFamily: {"partner1_name", "partner2_name", "child_count"},
	EntityEvent:  {"date_sort"},
}

func isTracked(kind EntityType, field string) bool {
	if _, ok := metaFields[field]; ok {
		return false
	}
	for _, derived := range derivedFields[kind] {
		if derived == field {
			return false
		}
	}
	return true
}

// EncodeFields flattens an entity into its JSON fields.
func EncodeFields(e Entity) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind(), err)
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind(), err)
	}
	return fields, nil
}

// DecodeEntity materializes an entity of the given kind from its JSON form.
func DecodeEntity(kind EntityType, raw []byte) (Entity, error) {
	var (
		out Entity
		err error
	)
	switch kind {
	case EntityPerson:
		var v Person
		err = json.Unmarshal(raw, &v)
		out = v
	case EntityPersonName:
		var v PersonName
		err = json.Unmarshal(raw, &v)
		out = v
	case EntityFamily:
		var v Family
		err = json.Unmarshal(raw, &v)
		out = v
	case EntitySource:
		var v Source
		err = json.Unmarshal(raw, &v)
		out = v
	case EntityCitation:
		var v Citation
		err = json.Unmarshal(raw, &v)
		out = v
	case EntityMedia:
		var v Media
		err = json.Unmarshal(raw, &v)
		out = v
	case EntityEvent:
		var v Event
		err = json.Unmarshal(raw, &v)
		out = v
	case EntityAttribute:
		var v Attribute
		err = json.Unmarshal(raw, &v)
		out = v
	default:
		return nil, Invalid("entity_type", "unknown entity type %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return out, nil
}

// Diff compares two snapshots of the same entity field by field and returns
// only the fields that differ. A nil before yields the non-empty fields of
// after with a null old value, which is what "created" entries record.
func Diff(before, after Entity) (map[string]FieldChange, error) {
	if after == nil {
		return nil, nil
	}
	kind := after.Kind()
	afterFields, err := EncodeFields(after)
	if err != nil {
		return nil, err
	}
	changes := make(map[string]FieldChange)
	if before == nil {
		for field, value := range afterFields {
			if !isTracked(kind, field) || isZeroJSON(value) {
				continue
			}
			changes[field] = FieldChange{Old: json.RawMessage("null"), New: cloneRawMessage(value)}
		}
		return changes, nil
	}
	if before.Kind() != kind {
		return nil, fmt.Errorf("diff %s against %s", before.Kind(), kind)
	}
	beforeFields, err := EncodeFields(before)
	if err != nil {
		return nil, err
	}
	for field, value := range afterFields {
		if !isTracked(kind, field) {
			continue
		}
		old, ok := beforeFields[field]
		if ok && bytes.Equal(old, value) {
			continue
		}
		if !ok {
			old = json.RawMessage("null")
		}
		changes[field] = FieldChange{Old: cloneRawMessage(old), New: cloneRawMessage(value)}
	}
	return changes, nil
}

// Reconstruct rebuilds the exact field state of current at version target by
// undoing, newest first, every updated entry above target. history holds the
// entity's ledger entries in any order.
func Reconstruct(current Entity, history []Change, target int) (Entity, error) {
	meta := current.Meta()
	if target < 1 {
		return nil, Invalid("version", "target version must be at least 1, got %d", target)
	}
	if target > meta.Version {
		return nil, NotFoundError{Entity: current.Kind(), ID: meta.ID, Version: target}
	}
	if target == meta.Version {
		return current, nil
	}

	entries := make([]Change, 0, len(history))
	for _, change := range history {
		if change.Entity == current.Kind() && change.EntityID == meta.ID {
			entries = append(entries, change)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Seq > entries[j].Seq })

	fields, err := EncodeFields(current)
	if err != nil {
		return nil, err
	}
	var (
		found     bool
		updatedAt = meta.UpdatedAt
	)
	for _, entry := range entries {
		if entry.Action != ActionCreated && entry.Action != ActionUpdated {
			continue
		}
		if entry.Version == target {
			found = true
			updatedAt = entry.Timestamp
			break
		}
		if entry.Version < target {
			break
		}
		for field, change := range entry.Changes {
			fields[field] = cloneRawMessage(change.Old)
		}
	}
	if !found {
		return nil, NotFoundError{Entity: current.Kind(), ID: meta.ID, Version: target}
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("reconstruct %s %s: %w", current.Kind(), meta.ID, err)
	}
	restored, err := DecodeEntity(current.Kind(), raw)
	if err != nil {
		return nil, err
	}
	restored = Normalize(restored)
	return restored.WithMeta(Base{ID: meta.ID, Version: target, CreatedAt: meta.CreatedAt, UpdatedAt: updatedAt}), nil
}

// isZeroJSON reports whether raw encodes a zero value.
func isZeroJSON(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", `""`, "0", "false", "[]", "{}":
		return true
	}
	return false
}
