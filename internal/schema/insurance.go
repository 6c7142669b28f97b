package schema

import (
	"strings"

	"github.com/sells-group/roofclaim/internal/model"
)

// DetectInsuranceShape classifies a decoded insurance report.
func DetectInsuranceShape(obj map[string]any) Shape {
	if _, ok := obj["roofSections"]; ok {
		return ShapeMulti
	}
	if _, ok := obj["structureCount"]; ok {
		return ShapeMulti
	}
	if _, ok := obj["sections"]; ok {
		return ShapeSingle
	}
	return ShapeUnknown
}

// ParseInsurance validates a raw insurance estimate and returns it in
// canonical form. A legacy estimate with a flat sections list becomes a
// single roof section numbered 1.
func ParseInsurance(raw []byte) (*model.InsuranceReportData, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	out := &model.InsuranceReportData{}
	if out.ClaimID, err = textOrEmpty(obj, "claim_id", ""); err != nil {
		return nil, err
	}
	if out.Date, err = textOrEmpty(obj, "date", ""); err != nil {
		return nil, err
	}
	if out.PriceList, err = priceList(obj["price_list"]); err != nil {
		return nil, err
	}

	switch DetectInsuranceShape(obj) {
	case ShapeSingle:
		sec, err := mergeLegacySections(obj)
		if err != nil {
			return nil, err
		}
		out.StructureCount = 1
		out.RoofSections = []model.RoofSection{sec}
		return out, nil
	case ShapeMulti:
		if err := parseMultiInsurance(obj, out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, schemaErr("", "insurance report has neither roofSections nor sections")
	}
}

func priceList(v any) ([]string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, nil
		}
		return []string{x}, nil
	case []any:
		out := make([]string, 0, len(x))
		for i, e := range x {
			s, err := text(e, index("price_list", i))
			if err != nil {
				return nil, err
			}
			if s != nil {
				out = append(out, *s)
			}
		}
		return out, nil
	default:
		return nil, schemaErr("price_list", "expected string or array, got %s", typeName(v))
	}
}

func parseMultiInsurance(obj map[string]any, out *model.InsuranceReportData) error {
	cv, ok := obj["structureCount"]
	if !ok || cv == nil {
		return schemaErr("structureCount", "required")
	}
	count, err := integer(cv, "structureCount")
	if err != nil {
		return err
	}
	if count < 1 {
		return schemaErr("structureCount", "must be at least 1, got %d", count)
	}

	items, err := array(obj, "roofSections", "")
	if err != nil {
		return err
	}
	if len(items) != count {
		return schemaErr("roofSections", "structureCount is %d but %d sections present", count, len(items))
	}

	out.StructureCount = count
	out.RoofSections = make([]model.RoofSection, 0, count)
	for i, it := range items {
		path := index("roofSections", i)
		so, ok := it.(map[string]any)
		if !ok {
			return schemaErr(path, "expected object, got %s", typeName(it))
		}
		nv, ok := so["roofNumber"]
		if !ok || nv == nil {
			return schemaErr(join(path, "roofNumber"), "required")
		}
		num, err := integer(nv, join(path, "roofNumber"))
		if err != nil {
			return err
		}
		if num < 1 {
			return schemaErr(join(path, "roofNumber"), "must be positive, got %d", num)
		}
		sec, err := parseSection(so, path)
		if err != nil {
			return err
		}
		sec.RoofNumber = num
		out.RoofSections = append(out.RoofSections, sec)
	}
	return nil
}

// mergeLegacySections folds every legacy section into one roof section.
// Names are joined with " / " and line items keep their order.
func mergeLegacySections(obj map[string]any) (model.RoofSection, error) {
	merged := model.RoofSection{RoofNumber: 1}
	items, err := array(obj, "sections", "")
	if err != nil {
		return merged, err
	}

	var names []string
	for i, it := range items {
		path := index("sections", i)
		so, ok := it.(map[string]any)
		if !ok {
			return merged, schemaErr(path, "expected object, got %s", typeName(it))
		}
		sec, err := parseSection(so, path)
		if err != nil {
			return merged, err
		}
		if sec.SectionName != nil && strings.TrimSpace(*sec.SectionName) != "" {
			names = append(names, strings.TrimSpace(*sec.SectionName))
		}
		merged.LineItems = append(merged.LineItems, sec.LineItems...)
	}
	if len(names) > 0 {
		name := strings.Join(names, " / ")
		merged.SectionName = &name
	}
	if merged.LineItems == nil {
		merged.LineItems = []model.InsuranceLineItem{}
	}
	return merged, nil
}

func parseSection(obj map[string]any, path string) (model.RoofSection, error) {
	var sec model.RoofSection
	var err error
	if sec.SectionName, err = text(obj["section_name"], join(path, "section_name")); err != nil {
		return sec, err
	}

	items, err := array(obj, "line_items", path)
	if err != nil {
		return sec, err
	}
	sec.LineItems = make([]model.InsuranceLineItem, 0, len(items))
	for i, it := range items {
		ip := index(join(path, "line_items"), i)
		io, ok := it.(map[string]any)
		if !ok {
			return sec, schemaErr(ip, "expected object, got %s", typeName(it))
		}
		li, err := parseLineItem(io, ip, i+1)
		if err != nil {
			return sec, err
		}
		sec.LineItems = append(sec.LineItems, li)
	}
	return sec, nil
}

// parseLineItem reads one estimate line. A missing item number takes the
// item's position in its section.
func parseLineItem(obj map[string]any, path string, position int) (model.InsuranceLineItem, error) {
	li := model.InsuranceLineItem{ItemNo: position}
	var err error
	if v, ok := obj["item_no"]; ok && v != nil {
		if li.ItemNo, err = integer(v, join(path, "item_no")); err != nil {
			return li, err
		}
	}
	if li.Description, err = textOrEmpty(obj, "description", path); err != nil {
		return li, err
	}
	if li.OptionsText, err = text(obj["options_text"], join(path, "options_text")); err != nil {
		return li, err
	}

	switch q := obj["quantity"].(type) {
	case nil:
	case map[string]any:
		qp := join(path, "quantity")
		if li.Quantity.Value, err = number(q["value"], join(qp, "value")); err != nil {
			return li, err
		}
		if li.Quantity.Unit, err = text(q["unit"], join(qp, "unit")); err != nil {
			return li, err
		}
	default:
		// Some extractions flatten the quantity to a bare number.
		if li.Quantity.Value, err = number(q, join(path, "quantity")); err != nil {
			return li, err
		}
		if li.Quantity.Unit, err = text(obj["unit"], join(path, "unit")); err != nil {
			return li, err
		}
	}
	return li, nil
}
