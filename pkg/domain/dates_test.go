package domain_test

import (
	"testing"

	"genealogycore/pkg/domain"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"":                        "",
		"1850":                    "1850",
		"1850-03":                 "1850-03",
		"1850-03-12":              "1850-03-12",
		"12 MAR 1850":             "1850-03-12",
		"12 March 1850":           "1850-03-12",
		"ABT MAR 1850":            "1850-03",
		"bef 1900":                "1900",
		"BET 1850 AND 1860":       "1850",
		"FROM 1 JAN 1900 TO 1910": "1900-01-01",
		"March 3, 1850":           "1850-03-03",
		"unknown":                 "",
		"12":                      "",
	}
	for raw, want := range cases {
		assert.Equal(t, want, domain.NormalizeDate(raw), raw)
	}
}

func TestParsePlace(t *testing.T) {
	place := domain.ParsePlace(" Boston , MA,, USA ")
	assert.Equal(t, domain.Place{"Boston", "MA", "USA"}, place)
	assert.Equal(t, domain.Place{"USA", "MA", "Boston"}, place.Reversed())
	assert.Equal(t, "Boston, MA, USA", place.String())
	assert.True(t, place.Reversed().HasPrefix(domain.Place{"USA", "MA"}))
	assert.False(t, place.Reversed().HasPrefix(domain.Place{"UK"}))
	assert.Empty(t, domain.ParsePlace(" , "))
}
