// Package review applies human corrections to extracted report data before
// analysis. Edits are applied to a copy; the input is never modified.
package review

import (
	"fmt"

	"github.com/sells-group/roofclaim/internal/model"
)

// Op names one kind of edit.
type Op string

// Roof report edits.
const (
	OpSetMeasurement      Op = "set_measurement"
	OpAddPitchRow         Op = "add_pitch_row"
	OpUpdatePitchRow      Op = "update_pitch_row"
	OpRemovePitchRow      Op = "remove_pitch_row"
	OpAddWasteRow         Op = "add_waste_row"
	OpUpdateWasteRow      Op = "update_waste_row"
	OpRemoveWasteRow      Op = "remove_waste_row"
	OpSetRecommendedWaste Op = "set_recommended_waste"
	OpAddStructure        Op = "add_structure"
	OpRemoveStructure     Op = "remove_structure"
)

// Insurance estimate edits.
const (
	OpSetClaimField  Op = "set_claim_field"
	OpSetPriceList   Op = "set_price_list"
	OpSetSectionName Op = "set_section_name"
	OpAddLineItem    Op = "add_line_item"
	OpUpdateLineItem Op = "update_line_item"
	OpRemoveLineItem Op = "remove_line_item"
	OpAddSection     Op = "add_section"
	OpRemoveSection  Op = "remove_section"
)

// Edit is one change to a report. Structure is the structure number on the
// roof side and the roof number on the insurance side. Index is a zero-based
// row or line item position.
type Edit struct {
	Op        Op                       `json:"op"`
	Structure int                      `json:"structure,omitempty"`
	Index     int                      `json:"index,omitempty"`
	Field     string                   `json:"field,omitempty"`
	Value     *string                  `json:"value,omitempty"`
	Values    []string                 `json:"values,omitempty"`
	Pitch     *model.PitchRow          `json:"pitch,omitempty"`
	Waste     *model.WasteRow          `json:"waste,omitempty"`
	Item      *model.InsuranceLineItem `json:"item,omitempty"`
}

// EditError reports an edit that could not be applied. Position is the
// edit's index in the submitted batch.
type EditError struct {
	Position int
	Op       Op
	Msg      string
}

func (e *EditError) Error() string {
	return fmt.Sprintf("review: edit %d (%s): %s", e.Position, e.Op, e.Msg)
}

type failure string

func failf(format string, args ...any) failure {
	return failure(fmt.Sprintf(format, args...))
}

func checkIndex(i, n int, what string) failure {
	if i < 0 || i >= n {
		return failf("%s index %d out of range (have %d)", what, i, n)
	}
	return ""
}
