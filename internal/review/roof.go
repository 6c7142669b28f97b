package review

import "github.com/sells-group/roofclaim/internal/model"

// ApplyRoof applies edits in order to a copy of data. The first edit that
// fails aborts the batch with an *EditError and nothing is returned.
func ApplyRoof(data model.RoofReportData, edits []Edit) (model.RoofReportData, error) {
	out := data.Clone()
	for i, e := range edits {
		if msg := applyRoof(&out, e); msg != "" {
			return model.RoofReportData{}, &EditError{Position: i, Op: e.Op, Msg: string(msg)}
		}
	}
	return out, nil
}

func applyRoof(r *model.RoofReportData, e Edit) failure {
	switch e.Op {
	case OpAddStructure:
		next := 1
		for _, s := range r.Structures {
			if s.StructureNumber >= next {
				next = s.StructureNumber + 1
			}
		}
		r.Structures = append(r.Structures, model.RoofStructure{StructureNumber: next})
		r.StructureCount = len(r.Structures)
		return ""
	case OpRemoveStructure:
		pos := structureIndex(r, e.Structure)
		if pos < 0 {
			return failf("structure %d not found", e.Structure)
		}
		if len(r.Structures) == 1 {
			return "cannot remove the only structure"
		}
		r.Structures = append(r.Structures[:pos], r.Structures[pos+1:]...)
		for i := range r.Structures {
			r.Structures[i].StructureNumber = i + 1
		}
		r.StructureCount = len(r.Structures)
		return ""
	}

	pos := structureIndex(r, e.Structure)
	if pos < 0 {
		return failf("structure %d not found", e.Structure)
	}
	s := &r.Structures[pos]

	switch e.Op {
	case OpSetMeasurement:
		f, err := model.ParseMeasurementField(e.Field)
		if err != nil {
			return failure(err.Error())
		}
		_ = s.Measurements.Set(f, e.Value)

	case OpAddPitchRow:
		if e.Pitch == nil {
			return "pitch row required"
		}
		s.PitchBreakdown = append(s.PitchBreakdown, *e.Pitch)
	case OpUpdatePitchRow:
		if e.Pitch == nil {
			return "pitch row required"
		}
		if msg := checkIndex(e.Index, len(s.PitchBreakdown), "pitch row"); msg != "" {
			return msg
		}
		s.PitchBreakdown[e.Index] = *e.Pitch
	case OpRemovePitchRow:
		if msg := checkIndex(e.Index, len(s.PitchBreakdown), "pitch row"); msg != "" {
			return msg
		}
		s.PitchBreakdown = append(s.PitchBreakdown[:e.Index], s.PitchBreakdown[e.Index+1:]...)

	case OpAddWasteRow:
		if e.Waste == nil {
			return "waste row required"
		}
		s.WasteTable = append(s.WasteTable, *e.Waste)
		if e.Waste.Recommended {
			recommendOnly(s, len(s.WasteTable)-1)
		}
	case OpUpdateWasteRow:
		if e.Waste == nil {
			return "waste row required"
		}
		if msg := checkIndex(e.Index, len(s.WasteTable), "waste row"); msg != "" {
			return msg
		}
		s.WasteTable[e.Index] = *e.Waste
		if e.Waste.Recommended {
			recommendOnly(s, e.Index)
		}
	case OpRemoveWasteRow:
		if msg := checkIndex(e.Index, len(s.WasteTable), "waste row"); msg != "" {
			return msg
		}
		s.WasteTable = append(s.WasteTable[:e.Index], s.WasteTable[e.Index+1:]...)
	case OpSetRecommendedWaste:
		if msg := checkIndex(e.Index, len(s.WasteTable), "waste row"); msg != "" {
			return msg
		}
		recommendOnly(s, e.Index)

	default:
		return failf("unsupported roof edit %q", e.Op)
	}
	return ""
}

func structureIndex(r *model.RoofReportData, number int) int {
	for i := range r.Structures {
		if r.Structures[i].StructureNumber == number {
			return i
		}
	}
	return -1
}

// recommendOnly flags row i and clears every other row.
func recommendOnly(s *model.RoofStructure, i int) {
	for j := range s.WasteTable {
		s.WasteTable[j].Recommended = j == i
	}
}
