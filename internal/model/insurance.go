package model

// Quantity is a line item amount with its estimate unit (e.g. "SQ", "LF").
type Quantity struct {
	Value *float64 `json:"value"`
	Unit  *string  `json:"unit"`
}

// InsuranceLineItem is one priced line of a claim estimate.
type InsuranceLineItem struct {
	ItemNo      int      `json:"item_no"`
	Description string   `json:"description"`
	Quantity    Quantity `json:"quantity"`
	OptionsText *string  `json:"options_text"`
}

// RoofSection groups the line items that belong to one structure.
type RoofSection struct {
	RoofNumber  int                 `json:"roofNumber"`
	SectionName *string             `json:"section_name"`
	LineItems   []InsuranceLineItem `json:"line_items"`
}

// IsPlaceholder reports whether the section stands in for a structure the
// extractor could not find in the estimate.
func (s RoofSection) IsPlaceholder() bool {
	return s.SectionName == nil && len(s.LineItems) == 0
}

// InsuranceReportData is the canonical multi-structure claim estimate.
type InsuranceReportData struct {
	ClaimID        string        `json:"claim_id"`
	Date           string        `json:"date"`
	PriceList      []string      `json:"price_list"`
	StructureCount int           `json:"structureCount"`
	RoofSections   []RoofSection `json:"roofSections"`
}

// Section returns the section at the given zero-based position, or a
// placeholder numbered index+1 when the estimate has fewer sections.
func (r *InsuranceReportData) Section(index int) RoofSection {
	if index >= 0 && index < len(r.RoofSections) {
		return r.RoofSections[index]
	}
	return RoofSection{RoofNumber: index + 1}
}

// Clone returns a deep copy suitable for editing.
func (r InsuranceReportData) Clone() InsuranceReportData {
	out := r
	out.PriceList = append([]string(nil), r.PriceList...)
	out.RoofSections = make([]RoofSection, len(r.RoofSections))
	for i, s := range r.RoofSections {
		cp := s
		cp.LineItems = make([]InsuranceLineItem, len(s.LineItems))
		for j, it := range s.LineItems {
			cp.LineItems[j] = it.clone()
		}
		if s.SectionName != nil {
			name := *s.SectionName
			cp.SectionName = &name
		}
		out.RoofSections[i] = cp
	}
	return out
}

func (it InsuranceLineItem) clone() InsuranceLineItem {
	out := it
	if it.Quantity.Value != nil {
		v := *it.Quantity.Value
		out.Quantity.Value = &v
	}
	if it.Quantity.Unit != nil {
		u := *it.Quantity.Unit
		out.Quantity.Unit = &u
	}
	if it.OptionsText != nil {
		o := *it.OptionsText
		out.OptionsText = &o
	}
	return out
}
