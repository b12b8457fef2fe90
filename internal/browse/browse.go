// Package browse computes navigation indices over the live person set:
// surnames grouped by initial letter and the place hierarchy. Nothing is
// persisted; every call recomputes from a store snapshot.
package browse

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"genealogycore/pkg/domain"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// LetterCount is one entry of the surname letter index.
type LetterCount struct {
	Letter string `json:"letter"`
	Count  int    `json:"count"`
}

// SurnameCount is one surname under a letter.
type SurnameCount struct {
	Surname string `json:"surname"`
	Count   int    `json:"count"`
}

// PlaceEntry is one child segment of the place hierarchy.
type PlaceEntry struct {
	Name        string `json:"name"`
	FullPath    string `json:"full_path"`
	Count       int    `json:"count"`
	HasChildren bool   `json:"has_children"`
}

// Index builds browse indices from a store.
type Index struct {
	store domain.PersistentStore
}

// New constructs an Index over store.
func New(store domain.PersistentStore) *Index {
	return &Index{store: store}
}

func (i *Index) persons(ctx context.Context) ([]domain.Person, error) {
	var out []domain.Person
	err := i.store.View(ctx, func(view domain.TransactionView) error {
		for _, e := range view.List(domain.EntityPerson) {
			if p, ok := e.(domain.Person); ok {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

func initial(surname string) string {
	r, _ := utf8.DecodeRuneInString(surname)
	return string(unicode.ToUpper(r))
}

// SurnameLetters counts persons per uppercase initial of their surname.
func (i *Index) SurnameLetters(ctx context.Context) ([]LetterCount, error) {
	persons, err := i.persons(ctx)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, p := range persons {
		if surname := strings.TrimSpace(p.Surname); surname != "" {
			counts[initial(surname)]++
		}
	}
	out := make([]LetterCount, 0, len(counts))
	for letter, n := range counts {
		out = append(out, LetterCount{Letter: letter, Count: n})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Letter < out[b].Letter })
	return out, nil
}

// SurnamesForLetter counts persons per exact surname starting with letter.
func (i *Index) SurnamesForLetter(ctx context.Context, letter string) ([]SurnameCount, error) {
	letter = strings.TrimSpace(letter)
	if utf8.RuneCountInString(letter) != 1 {
		return nil, domain.Invalid("letter", "must be a single character")
	}
	letter = initial(letter)
	persons, err := i.persons(ctx)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, p := range persons {
		if surname := strings.TrimSpace(p.Surname); surname != "" && initial(surname) == letter {
			counts[surname]++
		}
	}
	out := make([]SurnameCount, 0, len(counts))
	for surname, n := range counts {
		out = append(out, SurnameCount{Surname: surname, Count: n})
	}
	col := collate.New(language.Und, collate.IgnoreCase)
	sort.Slice(out, func(a, b int) bool {
		if n := col.CompareString(out[a].Surname, out[b].Surname); n != 0 {
			return n < 0
		}
		return out[a].Surname < out[b].Surname
	})
	return out, nil
}

// PlaceChildren returns the next segment below parent for every birth and
// death place. parent is a place string in the usual most-specific-first
// form ("MA, USA"); empty means the top of the hierarchy, which is the last
// segment of each place.
func (i *Index) PlaceChildren(ctx context.Context, parent string) ([]PlaceEntry, error) {
	prefix := domain.ParsePlace(parent).Reversed()
	persons, err := i.persons(ctx)
	if err != nil {
		return nil, err
	}
	entries := map[string]*PlaceEntry{}
	for _, p := range persons {
		for _, raw := range []string{p.BirthPlace, p.DeathPlace} {
			path := domain.ParsePlace(raw).Reversed()
			if len(path) <= len(prefix) || !path.HasPrefix(prefix) {
				continue
			}
			name := path[len(prefix)]
			entry, ok := entries[name]
			if !ok {
				full := append(domain.Place{}, path[:len(prefix)+1]...)
				entry = &PlaceEntry{Name: name, FullPath: full.Reversed().String()}
				entries[name] = entry
			}
			entry.Count++
			if len(path) > len(prefix)+1 {
				entry.HasChildren = true
			}
		}
	}
	out := make([]PlaceEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, *entry)
	}
	col := collate.New(language.Und, collate.IgnoreCase)
	sort.Slice(out, func(a, b int) bool {
		if n := col.CompareString(out[a].Name, out[b].Name); n != 0 {
			return n < 0
		}
		return out[a].Name < out[b].Name
	})
	return out, nil
}
