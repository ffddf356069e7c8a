// Package numbering formats ordinal labels for form sections, fields and
// checklist rows.
package numbering

import (
	"strconv"
	"strings"
)

// System names a numbering style.
type System string

const (
	Numeric System = "numeric"
	Alpha   System = "alpha"
	Roman   System = "roman"
)

// Valid reports whether s is one of the known systems.
func (s System) Valid() bool {
	switch s {
	case Numeric, Alpha, Roman:
		return true
	}
	return false
}

// Format renders the 1-based ordinal n in system s. Unknown systems fall back
// to Numeric; n <= 0 renders as "".
func Format(s System, n int) string {
	if n <= 0 {
		return ""
	}
	switch s {
	case Alpha:
		return alpha(n)
	case Roman:
		return roman(n)
	default:
		return strconv.Itoa(n)
	}
}

// Label joins a prefix and an ordinal the way headings show them: "2.C".
// An empty part is skipped.
func Label(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}

// alpha is bijective base-26: A..Z, AA..AZ, BA...
func alpha(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append(b, byte('A'+n%26))
		n /= 26
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

var romanTable = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func roman(n int) string {
	var b strings.Builder
	for _, r := range romanTable {
		for n >= r.value {
			b.WriteString(r.symbol)
			n -= r.value
		}
	}
	return b.String()
}
