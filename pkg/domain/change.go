package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Action indicates the type of modification recorded in the ledger.
type Action string

// Ledger actions.
const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionLinked   Action = "linked"
	ActionUnlinked Action = "unlinked"
)

// Valid reports whether the action is one of the known ledger actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted, ActionLinked, ActionUnlinked:
		return true
	}
	return false
}

// Change is an immutable ledger entry describing one mutation.
//
// Version is the entity version produced by the mutation for created and
// updated entries and the last live version for deleted entries. Link entries
// carry no version. Seq orders entries globally and never repeats.
type Change struct {
	ID           string                 `json:"id"`
	Seq          int64                  `json:"seq"`
	Entity       EntityType             `json:"entity_type"`
	EntityID     string                 `json:"entity_id"`
	EntityName   string                 `json:"entity_name"`
	Action       Action                 `json:"action"`
	Version      int                    `json:"version"`
	Timestamp    time.Time              `json:"timestamp"`
	Changes      map[string]FieldChange `json:"changes,omitempty"`
	RestoredFrom int                    `json:"restored_from,omitempty"`
}

// Clone returns a deep copy of the entry.
func (c Change) Clone() Change {
	c.Changes = cloneFieldChanges(c.Changes)
	return c
}

// ChangedFields returns the sorted names of the fields touched by the entry.
func (c Change) ChangedFields() []string {
	fields := make([]string, 0, len(c.Changes))
	for field := range c.Changes {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Summary renders a short human readable description of the entry.
func (c Change) Summary() string {
	switch c.Action {
	case ActionUpdated:
		fields := c.ChangedFields()
		switch {
		case c.RestoredFrom > 0 && len(fields) > 0:
			return "restored version " + strconv.Itoa(c.RestoredFrom) + ": " + strings.Join(fields, ", ")
		case c.RestoredFrom > 0:
			return "restored version " + strconv.Itoa(c.RestoredFrom)
		case len(fields) == 0:
			return "updated"
		}
		return "changed " + strings.Join(fields, ", ")
	case ActionLinked, ActionUnlinked:
		return string(c.Action) + " " + c.EntityID
	}
	return string(c.Action)
}

// LinkEntityID returns the ledger entity id used for family-child links.
func LinkEntityID(familyID, personID string) string {
	return familyID + "/" + personID
}

// SplitLinkEntityID reverses LinkEntityID.
func SplitLinkEntityID(id string) (familyID, personID string, ok bool) {
	return strings.Cut(id, "/")
}

// SortNewestFirst orders ledger entries by descending sequence.
func SortNewestFirst(changes []Change) {
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].Seq > changes[j].Seq })
}
