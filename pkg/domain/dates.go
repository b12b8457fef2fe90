package domain

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var monthNames = map[string]int{
	"JAN": 1, "JANUARY": 1,
	"FEB": 2, "FEBRUARY": 2,
	"MAR": 3, "MARCH": 3,
	"APR": 4, "APRIL": 4,
	"MAY": 5,
	"JUN": 6, "JUNE": 6,
	"JUL": 7, "JULY": 7,
	"AUG": 8, "AUGUST": 8,
	"SEP": 9, "SEPT": 9, "SEPTEMBER": 9,
	"OCT": 10, "OCTOBER": 10,
	"NOV": 11, "NOVEMBER": 11,
	"DEC": 12, "DECEMBER": 12,
}

// Qualifiers that precede a date without changing its sort position.
var dateQualifiers = map[string]struct{}{
	"ABT": {}, "ABOUT": {}, "BEF": {}, "BEFORE": {}, "AFT": {}, "AFTER": {},
	"EST": {}, "CAL": {}, "CA": {}, "C": {}, "CIRCA": {}, "BET": {}, "BETWEEN": {},
	"FROM": {}, "TO": {}, "INT": {},
}

// NormalizeDate turns a free-form genealogical date into a lexically sortable
// key: "YYYY-MM-DD", "YYYY-MM" or "YYYY" depending on precision. Ranges sort
// by their first date. Unparseable input yields "".
//
//	"12 MAR 1850"      -> "1850-03-12"
//	"ABT MAR 1850"     -> "1850-03"
//	"BET 1850 AND 1860" -> "1850"
//	"1850-03-12"       -> "1850-03-12"
func NormalizeDate(raw string) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}
	if key, ok := normalizeISO(raw); ok {
		return key
	}

	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '.' || r == '/' || r == '(' || r == ')'
	})
	var day, month, year int
	for _, token := range tokens {
		if _, ok := dateQualifiers[token]; ok {
			continue
		}
		if token == "AND" || token == "-" {
			if year > 0 {
				break
			}
			continue
		}
		if m, ok := monthNames[token]; ok {
			if month == 0 {
				month = m
			}
			continue
		}
		n, err := strconv.Atoi(token)
		if err != nil || n <= 0 {
			continue
		}
		switch {
		case len(token) >= 3:
			year = n
		case day == 0 && n <= 31 && year == 0:
			day = n
		}
		if year > 0 {
			break
		}
	}
	if year == 0 {
		return ""
	}
	return formatSortKey(year, month, day)
}

func normalizeISO(raw string) (string, bool) {
	parts := strings.Split(raw, "-")
	if len(parts) > 3 || len(parts[0]) != 4 {
		return "", false
	}
	values := make([]int, 0, 3)
	for i, part := range parts {
		if i > 0 && len(part) != 2 {
			return "", false
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return "", false
		}
		values = append(values, n)
	}
	for len(values) < 3 {
		values = append(values, 0)
	}
	if values[1] > 12 || values[2] > 31 {
		return "", false
	}
	return formatSortKey(values[0], values[1], values[2]), true
}

func formatSortKey(year, month, day int) string {
	switch {
	case month == 0:
		return fmt.Sprintf("%04d", year)
	case day == 0:
		return fmt.Sprintf("%04d-%02d", year, month)
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
