package query

import (
	"encoding/json"
	"strings"
	"time"

	"genealogycore/pkg/domain"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// record is an entity with its fields decoded for comparison.
type record struct {
	entity domain.Entity
	raw    map[string]json.RawMessage
}

func newRecord(e domain.Entity) (record, error) {
	raw, err := domain.EncodeFields(e)
	if err != nil {
		return record{}, err
	}
	return record{entity: e, raw: raw}, nil
}

// value is a decoded field value. Absent text and dates are empty strings.
type value struct {
	text    string
	number  int64
	time    time.Time
	present bool
}

func (r record) text(key string) string {
	var s string
	_ = json.Unmarshal(r.raw[key], &s)
	return s
}

func (r record) value(f Field) value {
	switch f.Type {
	case Number:
		var n int64
		_ = json.Unmarshal(r.raw[f.Key], &n)
		return value{number: n, present: true}
	case Timestamp:
		var t time.Time
		_ = json.Unmarshal(r.raw[f.Key], &t)
		return value{time: t, present: !t.IsZero()}
	case Date:
		// Sort keys are already normalized; raw dates such as marriage_date are not.
		s := domain.NormalizeDate(r.text(f.Key))
		return value{text: s, present: s != ""}
	default:
		s := strings.TrimSpace(r.text(f.Key))
		return value{text: s, present: s != ""}
	}
}

// comparer orders values of any field type. Collators are not safe for
// concurrent use, so each query builds its own.
type comparer struct {
	col *collate.Collator
}

func newComparer() comparer {
	return comparer{col: collate.New(language.Und, collate.IgnoreCase)}
}

// compare orders present values. Callers handle absent values.
func (c comparer) compare(f Field, a, b value) int {
	switch f.Type {
	case Number:
		return compareOrdered(a.number, b.number)
	case Timestamp:
		return a.time.Compare(b.time)
	case Date:
		return strings.Compare(a.text, b.text)
	}
	if n := c.col.CompareString(a.text, b.text); n != 0 {
		return n
	}
	return strings.Compare(a.text, b.text)
}

func compareOrdered[T int64 | int](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
