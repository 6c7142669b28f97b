package resolve

import (
	"regexp"
	"strings"

	"github.com/sells-group/roofclaim/internal/model"
)

// Unit is a normalized estimate unit.
type Unit string

const (
	UnitSQ Unit = "SQ"
	UnitLF Unit = "LF"
	UnitSF Unit = "SF"
	UnitEA Unit = "EA"
)

var unitAliases = map[string]Unit{
	"sq":          UnitSQ,
	"sqs":         UnitSQ,
	"square":      UnitSQ,
	"squares":     UnitSQ,
	"sf":          UnitSF,
	"sqft":        UnitSF,
	"sq ft":       UnitSF,
	"sq. ft":      UnitSF,
	"sq.ft":       UnitSF,
	"square feet": UnitSF,
	"ft2":         UnitSF,
	"ft²":         UnitSF,
	"lf":          UnitLF,
	"lin ft":      UnitLF,
	"ln ft":       UnitLF,
	"linear feet": UnitLF,
	"ft":          UnitLF,
	"feet":        UnitLF,
	"ea":          UnitEA,
	"each":        UnitEA,
}

// ParseUnit maps an estimate unit label to its normalized form.
func ParseUnit(s string) (Unit, bool) {
	key := strings.TrimSuffix(normalizeText(s), ".")
	u, ok := unitAliases[key]
	return u, ok
}

// convert changes v from one unit to another; only area units convert
// between each other.
func convert(v float64, from, to Unit) (float64, bool) {
	switch {
	case from == to:
		return v, true
	case from == UnitSF && to == UnitSQ:
		return v / 100, true
	case from == UnitSQ && to == UnitSF:
		return v * 100, true
	default:
		return 0, false
	}
}

// itemQuantity returns the item's amount in the target unit. Items without
// a unit are read in the kind's native unit; items with an incompatible
// unit are missing.
func itemQuantity(it model.InsuranceLineItem, native, target Unit) Quantity {
	if it.Quantity.Value == nil {
		return Missing
	}
	from := native
	if it.Quantity.Unit != nil && strings.TrimSpace(*it.Quantity.Unit) != "" {
		u, ok := ParseUnit(*it.Quantity.Unit)
		if !ok {
			return Missing
		}
		from = u
	}
	v, ok := convert(*it.Quantity.Value, from, target)
	if !ok {
		return Missing
	}
	return Known(v)
}

// sumKind totals every matching item in the target unit. It is missing when
// no matching item has a usable quantity.
func (t *Table) sumKind(section model.RoofSection, kind ItemKind, target Unit) Quantity {
	native := t.NativeUnit(kind)
	var qs []Quantity
	for _, it := range t.Items(section, kind) {
		qs = append(qs, itemQuantity(it, native, target))
	}
	return sumPresent(qs...)
}

// TearOffSQ totals the shingle removal items in squares.
func (t *Table) TearOffSQ(section model.RoofSection) Quantity {
	return t.sumKind(section, KindTearOff, UnitSQ)
}

// FeltSQ totals the felt/underlayment items in squares.
func (t *Table) FeltSQ(section model.RoofSection) Quantity {
	return t.sumKind(section, KindFelt, UnitSQ)
}

// LinearItem totals a linear kind (drip edge, starter, ridge cap, step
// flashing) in linear feet.
func (t *Table) LinearItem(section model.RoofSection, kind ItemKind) Quantity {
	return t.sumKind(section, kind, UnitLF)
}

// AreaItem totals an area kind (ice and water shield) in square feet.
func (t *Table) AreaItem(section model.RoofSection, kind ItemKind) Quantity {
	return t.sumKind(section, kind, UnitSF)
}

// Presence reports whether any line item belongs to kind.
func (t *Table) Presence(section model.RoofSection, kind ItemKind) bool {
	return len(t.Items(section, kind)) > 0
}

// Band is a steep-charge pitch band.
type Band string

const (
	Band7to9   Band = "7to9"
	Band10to12 Band = "10to12"
)

// Direction distinguishes the removal and reinstall halves of a steep charge.
type Direction string

const (
	DirectionRemove  Direction = "remove"
	DirectionPutBack Direction = "putback"
)

// SteepKind maps a band and direction to its line item kind.
func SteepKind(band Band, dir Direction) ItemKind {
	return ItemKind("steep_" + string(band) + "_" + string(dir))
}

// SteepAddOn totals the steep-charge items for a band and direction in
// squares.
func (t *Table) SteepAddOn(section model.RoofSection, band Band, dir Direction) Quantity {
	return t.sumKind(section, SteepKind(band, dir), UnitSQ)
}

var threeTabRe = regexp.MustCompile(`cut\s+from\s+3[\s-]*tab`)

// MentionsCutFrom3Tab reports whether any item of kind says its material is
// cut from 3-tab shingles, in the description or the options text.
func (t *Table) MentionsCutFrom3Tab(section model.RoofSection, kind ItemKind) bool {
	for _, it := range t.Items(section, kind) {
		if threeTabRe.MatchString(normalizeText(it.Description)) {
			return true
		}
		if it.OptionsText != nil && threeTabRe.MatchString(normalizeText(*it.OptionsText)) {
			return true
		}
	}
	return false
}

// Descriptions joins the descriptions of the items that belong to kind.
func (t *Table) Descriptions(section model.RoofSection, kind ItemKind) []string {
	var out []string
	for _, it := range t.Items(section, kind) {
		out = append(out, strings.TrimSpace(it.Description))
	}
	return out
}
