// Package resolve derives normalized quantities (squares, linear feet,
// square feet) from the raw fields of a roof report or an insurance
// estimate. Every function is pure; an unavailable value is reported as
// Missing rather than as an error or a silent zero.
package resolve

import (
	"fmt"
	"strconv"
	"strings"
)

// Quantity is a number that may be missing.
type Quantity struct {
	value float64
	known bool
}

// Missing is the absent quantity.
var Missing = Quantity{}

// Known wraps a present value.
func Known(v float64) Quantity {
	return Quantity{value: v, known: true}
}

// Value returns the number and whether it is present.
func (q Quantity) Value() (float64, bool) {
	return q.value, q.known
}

// IsMissing reports whether q has no value.
func (q Quantity) IsMissing() bool {
	return !q.known
}

// Plus adds two quantities; the result is missing if either is.
func (q Quantity) Plus(o Quantity) Quantity {
	if !q.known || !o.known {
		return Missing
	}
	return Known(q.value + o.value)
}

// Scale multiplies a present quantity by f.
func (q Quantity) Scale(f float64) Quantity {
	if !q.known {
		return Missing
	}
	return Known(q.value * f)
}

// Or returns q when present, otherwise the fallback.
func (q Quantity) Or(fallback Quantity) Quantity {
	if q.known {
		return q
	}
	return fallback
}

func (q Quantity) String() string {
	if !q.known {
		return "missing"
	}
	return strconv.FormatFloat(q.value, 'f', -1, 64)
}

// Format renders a present quantity as "<number> <unit>" with one decimal
// place and returns nil when missing.
func (q Quantity) Format(unit Unit) *string {
	if !q.known {
		return nil
	}
	s := fmt.Sprintf("%.1f %s", q.value, unit)
	return &s
}

// sumPresent adds the present quantities and is missing only when every
// input is missing.
func sumPresent(qs ...Quantity) Quantity {
	var total float64
	seen := false
	for _, q := range qs {
		if q.known {
			total += q.value
			seen = true
		}
	}
	if !seen {
		return Missing
	}
	return Known(total)
}

// ParseNumber extracts a number from free text by dropping every character
// other than digits, '.' and '-'. Empty or malformed input is Missing; an
// explicit "0" is a present zero.
func ParseNumber(s string) Quantity {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return Missing
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return Missing
	}
	return Known(v)
}

// ParseNumberPtr is ParseNumber for optional values.
func ParseNumberPtr(s *string) Quantity {
	if s == nil {
		return Missing
	}
	return ParseNumber(*s)
}
