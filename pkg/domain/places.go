package domain

import "strings"

// Place is a parsed place hierarchy ordered most specific first, the order
// people write it in: "Boston, MA, USA" is {"Boston", "MA", "USA"}.
type Place []string

// ParsePlace splits a comma separated place string, trimming blanks and
// dropping empty segments.
func ParsePlace(raw string) Place {
	var place Place
	for _, segment := range strings.Split(raw, ",") {
		if segment = strings.TrimSpace(segment); segment != "" {
			place = append(place, segment)
		}
	}
	return place
}

// Reversed returns the hierarchy top level first ({"USA", "MA", "Boston"}).
func (p Place) Reversed() Place {
	out := make(Place, len(p))
	for i, segment := range p {
		out[len(p)-1-i] = segment
	}
	return out
}

// String joins the segments back in their original order.
func (p Place) String() string {
	return strings.Join(p, ", ")
}

// HasPrefix reports whether p starts with prefix, comparing segments exactly.
func (p Place) HasPrefix(prefix Place) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}
