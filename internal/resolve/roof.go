package resolve

import (
	"regexp"
	"strconv"

	"github.com/sells-group/roofclaim/internal/model"
)

// valleyShieldWidthFt is the width of ice and water shield laid along each
// valley, used to turn valley length into shield area.
const valleyShieldWidthFt = 6

// PitchSet is a set of pitch rises (the N in N/12).
type PitchSet map[int]struct{}

// Pitches builds a PitchSet.
func Pitches(rises ...int) PitchSet {
	s := make(PitchSet, len(rises))
	for _, r := range rises {
		s[r] = struct{}{}
	}
	return s
}

// Contains reports whether rise is in the set.
func (s PitchSet) Contains(rise int) bool {
	_, ok := s[rise]
	return ok
}

var (
	// Steep7to9 is the 7/12 through 9/12 steep-charge band.
	Steep7to9 = Pitches(7, 8, 9)
	// Steep10to12 is the 10/12 and 12/12 steep-charge band.
	Steep10to12 = Pitches(10, 12)
)

var pitchRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*(?:[/:]\s*12)?`)

// PitchRise parses the rise out of a pitch label such as "7/12" or "7:12".
// Fractional rises are truncated.
func PitchRise(pitch string) (int, bool) {
	m := pitchRe.FindStringSubmatch(pitch)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

func measure(s model.RoofStructure, f model.MeasurementField) Quantity {
	return ParseNumberPtr(s.Measurements.Get(f))
}

// TotalSquares prefers the 0% row of the waste table and falls back to the
// total roof area in squares.
func TotalSquares(s model.RoofStructure) Quantity {
	for _, row := range s.WasteTable {
		pct := ParseNumber(row.WastePercent)
		if v, ok := pct.Value(); ok && v == 0 {
			if sq := ParseNumber(row.Squares); !sq.IsMissing() {
				return sq
			}
		}
	}
	return measure(s, model.FieldTotalRoofArea).Scale(0.01)
}

// RecommendedWastePercent is the waste percent of the first recommended row.
func RecommendedWastePercent(s model.RoofStructure) Quantity {
	row, _ := s.RecommendedWaste()
	if row == nil {
		return Missing
	}
	return ParseNumber(row.WastePercent)
}

// RecommendedWasteSquares returns the squares of the first recommended waste
// row. When that row lists a percent but no usable squares, the total is
// grown by that percent instead.
func RecommendedWasteSquares(s model.RoofStructure) Quantity {
	row, _ := s.RecommendedWaste()
	if row == nil {
		return Missing
	}
	if sq := ParseNumber(row.Squares); !sq.IsMissing() {
		return sq
	}
	pct, ok := ParseNumber(row.WastePercent).Value()
	if !ok {
		return Missing
	}
	return TotalSquares(s).Scale(1 + pct/100)
}

// EavesRakesLF prefers the combined eaves/rakes field, then the sum of the
// individual fields when at least one is present.
func EavesRakesLF(s model.RoofStructure) Quantity {
	if q := measure(s, model.FieldEavesRakes); !q.IsMissing() {
		return q
	}
	return sumPresent(measure(s, model.FieldTotalEaves), measure(s, model.FieldTotalRakes))
}

// HipsRidgesLF sums hips and ridges, falling back to the combined field.
func HipsRidgesLF(s model.RoofStructure) Quantity {
	sum := sumPresent(measure(s, model.FieldTotalHips), measure(s, model.FieldTotalRidges))
	return sum.Or(measure(s, model.FieldHipsRidges))
}

// ValleysSF is the shield area needed to cover every valley.
func ValleysSF(s model.RoofStructure) Quantity {
	return measure(s, model.FieldTotalValleys).Scale(valleyShieldWidthFt)
}

// StepFlashingLF is wall plus step flashing; both must be known.
func StepFlashingLF(s model.RoofStructure) Quantity {
	return measure(s, model.FieldTotalWallFlashing).Plus(measure(s, model.FieldTotalStepFlashing))
}

// SteepSquares sums the pitch breakdown rows whose rise falls in pitches.
// A pitch that does not appear contributes zero, so the result is never
// missing.
func SteepSquares(s model.RoofStructure, pitches PitchSet) Quantity {
	var total float64
	for _, row := range s.PitchBreakdown {
		rise, ok := PitchRise(row.Pitch)
		if !ok || !pitches.Contains(rise) {
			continue
		}
		sq := ParseNumber(row.Squares).Or(ParseNumber(row.AreaSqft).Scale(0.01))
		if v, ok := sq.Value(); ok {
			total += v
		}
	}
	return Known(total)
}

// SteepPutBackSquares adds the recommended waste percent on top of the
// steep squares. An unknown percent counts as zero.
func SteepPutBackSquares(s model.RoofStructure, pitches PitchSet) Quantity {
	steep := SteepSquares(s, pitches)
	pct, ok := RecommendedWastePercent(s).Value()
	if !ok {
		pct = 0
	}
	return steep.Scale(1 + pct/100)
}
