package review

import "github.com/sells-group/roofclaim/internal/model"

// ApplyInsurance applies edits in order to a copy of data. The first edit
// that fails aborts the batch with an *EditError.
func ApplyInsurance(data model.InsuranceReportData, edits []Edit) (model.InsuranceReportData, error) {
	out := data.Clone()
	for i, e := range edits {
		if msg := applyInsurance(&out, e); msg != "" {
			return model.InsuranceReportData{}, &EditError{Position: i, Op: e.Op, Msg: string(msg)}
		}
	}
	return out, nil
}

func applyInsurance(r *model.InsuranceReportData, e Edit) failure {
	switch e.Op {
	case OpSetClaimField:
		v := ""
		if e.Value != nil {
			v = *e.Value
		}
		switch e.Field {
		case "claim_id":
			r.ClaimID = v
		case "date":
			r.Date = v
		default:
			return failf("unknown claim field %q", e.Field)
		}
		return ""
	case OpSetPriceList:
		r.PriceList = append([]string(nil), e.Values...)
		return ""
	case OpAddSection:
		r.RoofSections = append(r.RoofSections, model.RoofSection{
			RoofNumber: len(r.RoofSections) + 1,
			LineItems:  []model.InsuranceLineItem{},
		})
		r.StructureCount = len(r.RoofSections)
		return ""
	case OpRemoveSection:
		pos := sectionIndex(r, e.Structure)
		if pos < 0 {
			return failf("roof section %d not found", e.Structure)
		}
		if len(r.RoofSections) == 1 {
			return "cannot remove the only roof section"
		}
		r.RoofSections = append(r.RoofSections[:pos], r.RoofSections[pos+1:]...)
		for i := range r.RoofSections {
			r.RoofSections[i].RoofNumber = i + 1
		}
		r.StructureCount = len(r.RoofSections)
		return ""
	}

	pos := sectionIndex(r, e.Structure)
	if pos < 0 {
		return failf("roof section %d not found", e.Structure)
	}
	sec := &r.RoofSections[pos]

	switch e.Op {
	case OpSetSectionName:
		sec.SectionName = e.Value
	case OpAddLineItem:
		if e.Item == nil {
			return "line item required"
		}
		it := *e.Item
		if it.ItemNo == 0 {
			it.ItemNo = nextItemNo(sec)
		}
		sec.LineItems = append(sec.LineItems, it)
	case OpUpdateLineItem:
		if e.Item == nil {
			return "line item required"
		}
		if msg := checkIndex(e.Index, len(sec.LineItems), "line item"); msg != "" {
			return msg
		}
		it := *e.Item
		if it.ItemNo == 0 {
			it.ItemNo = sec.LineItems[e.Index].ItemNo
		}
		sec.LineItems[e.Index] = it
	case OpRemoveLineItem:
		if msg := checkIndex(e.Index, len(sec.LineItems), "line item"); msg != "" {
			return msg
		}
		sec.LineItems = append(sec.LineItems[:e.Index], sec.LineItems[e.Index+1:]...)
	default:
		return failf("unsupported insurance edit %q", e.Op)
	}
	return ""
}

func sectionIndex(r *model.InsuranceReportData, number int) int {
	for i := range r.RoofSections {
		if r.RoofSections[i].RoofNumber == number {
			return i
		}
	}
	return -1
}

func nextItemNo(sec *model.RoofSection) int {
	n := 0
	for _, it := range sec.LineItems {
		if it.ItemNo > n {
			n = it.ItemNo
		}
	}
	return n + 1
}
