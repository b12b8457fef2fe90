package domain

// Page size bounds shared by every paged read.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// PageOptions selects a window of an ordered listing.
type PageOptions struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Normalize applies the default and maximum limit. A negative offset is
// rejected.
func (o PageOptions) Normalize() (PageOptions, error) {
	if o.Offset < 0 {
		return o, Invalid("offset", "must not be negative")
	}
	switch {
	case o.Limit <= 0:
		o.Limit = DefaultLimit
	case o.Limit > MaxLimit:
		o.Limit = MaxLimit
	}
	return o, nil
}

// Page is one window of a listing. Total counts the full matching set.
type Page[T any] struct {
	Entries []T  `json:"entries"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// Paginate cuts the window selected by opts out of items.
func Paginate[T any](items []T, opts PageOptions) Page[T] {
	page := Page[T]{Total: len(items), Limit: opts.Limit, Offset: opts.Offset, Entries: []T{}}
	if opts.Offset >= len(items) {
		return page
	}
	end := opts.Offset + opts.Limit
	if end > len(items) {
		end = len(items)
	}
	page.Entries = append(page.Entries, items[opts.Offset:end]...)
	page.HasMore = end < len(items)
	return page
}
