package domain

import (
	"bytes"
	"encoding/json"
)

// FieldChange holds the JSON encoded old and new value of a single field.
// Old is null for fields reported by a "created" entry.
type FieldChange struct {
	Old json.RawMessage `json:"old"`
	New json.RawMessage `json:"new"`
}

// NewFieldChange builds a field change from typed values.
func NewFieldChange[T any](oldValue, newValue T) (FieldChange, error) {
	oldRaw, err := json.Marshal(oldValue)
	if err != nil {
		return FieldChange{}, err
	}
	newRaw, err := json.Marshal(newValue)
	if err != nil {
		return FieldChange{}, err
	}
	return FieldChange{Old: oldRaw, New: newRaw}, nil
}

// Clone returns a copy that shares no bytes with the receiver.
func (c FieldChange) Clone() FieldChange {
	return FieldChange{Old: cloneRawMessage(c.Old), New: cloneRawMessage(c.New)}
}

// Equal reports whether both sides carry identical JSON.
func (c FieldChange) Equal(other FieldChange) bool {
	return bytes.Equal(c.Old, other.Old) && bytes.Equal(c.New, other.New)
}

// DecodeOld unmarshals the old value into dst.
func (c FieldChange) DecodeOld(dst any) error {
	if len(c.Old) == 0 {
		return nil
	}
	return json.Unmarshal(c.Old, dst)
}

// DecodeNew unmarshals the new value into dst.
func (c FieldChange) DecodeNew(dst any) error {
	if len(c.New) == 0 {
		return nil
	}
	return json.Unmarshal(c.New, dst)
}

func cloneFieldChanges(in map[string]FieldChange) map[string]FieldChange {
	if in == nil {
		return nil
	}
	out := make(map[string]FieldChange, len(in))
	for field, change := range in {
		out[field] = change.Clone()
	}
	return out
}

func cloneRawMessage(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	cloned := make(json.RawMessage, len(raw))
	copy(cloned, raw)
	return cloned
}
