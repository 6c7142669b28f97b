package schema

import (
	"sort"

	"github.com/sells-group/roofclaim/internal/model"
)

// DetectRoofShape classifies a decoded roof report.
func DetectRoofShape(obj map[string]any) Shape {
	if _, ok := obj["structures"]; ok {
		return ShapeMulti
	}
	if _, ok := obj["structureCount"]; ok {
		return ShapeMulti
	}
	if _, ok := obj["measurements"]; ok {
		return ShapeSingle
	}
	return ShapeUnknown
}

// ParseRoof validates a raw roof report and returns it in canonical form.
// A legacy report without structureCount becomes a one-structure report.
func ParseRoof(raw []byte) (*model.RoofReportData, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	switch DetectRoofShape(obj) {
	case ShapeSingle:
		s, err := parseStructure(obj, "")
		if err != nil {
			return nil, err
		}
		s.StructureNumber = 1
		return &model.RoofReportData{StructureCount: 1, Structures: []model.RoofStructure{s}}, nil
	case ShapeMulti:
		return parseMultiRoof(obj)
	default:
		return nil, schemaErr("", "roof report has neither structures nor measurements")
	}
}

func parseMultiRoof(obj map[string]any) (*model.RoofReportData, error) {
	cv, ok := obj["structureCount"]
	if !ok || cv == nil {
		return nil, schemaErr("structureCount", "required")
	}
	count, err := integer(cv, "structureCount")
	if err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, schemaErr("structureCount", "must be at least 1, got %d", count)
	}

	items, err := array(obj, "structures", "")
	if err != nil {
		return nil, err
	}
	if len(items) != count {
		return nil, schemaErr("structures", "structureCount is %d but %d structures present", count, len(items))
	}

	out := &model.RoofReportData{StructureCount: count, Structures: make([]model.RoofStructure, 0, count)}
	seen := make(map[int]bool, count)
	for i, it := range items {
		path := index("structures", i)
		so, ok := it.(map[string]any)
		if !ok {
			return nil, schemaErr(path, "expected object, got %s", typeName(it))
		}
		nv, ok := so["structureNumber"]
		if !ok || nv == nil {
			return nil, schemaErr(join(path, "structureNumber"), "required")
		}
		num, err := integer(nv, join(path, "structureNumber"))
		if err != nil {
			return nil, err
		}
		if num < 1 {
			return nil, schemaErr(join(path, "structureNumber"), "must be positive, got %d", num)
		}
		if seen[num] {
			return nil, schemaErr(join(path, "structureNumber"), "duplicate structure number %d", num)
		}
		seen[num] = true

		s, err := parseStructure(so, path)
		if err != nil {
			return nil, err
		}
		s.StructureNumber = num
		out.Structures = append(out.Structures, s)
	}
	return out, nil
}

func parseStructure(obj map[string]any, path string) (model.RoofStructure, error) {
	var s model.RoofStructure

	mo, err := object(obj, "measurements", path)
	if err != nil {
		return s, err
	}
	if s.Measurements, err = parseMeasurements(mo, join(path, "measurements")); err != nil {
		return s, err
	}

	pitches, err := array(obj, "pitch_breakdown", path)
	if err != nil {
		return s, err
	}
	if pitches != nil {
		s.PitchBreakdown = make([]model.PitchRow, 0, len(pitches))
	}
	for i, p := range pitches {
		rp := index(join(path, "pitch_breakdown"), i)
		po, ok := p.(map[string]any)
		if !ok {
			return s, schemaErr(rp, "expected object, got %s", typeName(p))
		}
		var row model.PitchRow
		if row.Pitch, err = textOrEmpty(po, "pitch", rp); err != nil {
			return s, err
		}
		if row.AreaSqft, err = textOrEmpty(po, "area_sqft", rp); err != nil {
			return s, err
		}
		if row.Squares, err = textOrEmpty(po, "squares", rp); err != nil {
			return s, err
		}
		s.PitchBreakdown = append(s.PitchBreakdown, row)
	}

	waste, err := array(obj, "waste_table", path)
	if err != nil {
		return s, err
	}
	if waste != nil {
		s.WasteTable = make([]model.WasteRow, 0, len(waste))
	}
	for i, w := range waste {
		rp := index(join(path, "waste_table"), i)
		wo, ok := w.(map[string]any)
		if !ok {
			return s, schemaErr(rp, "expected object, got %s", typeName(w))
		}
		var row model.WasteRow
		if row.WastePercent, err = textOrEmpty(wo, "waste_percent", rp); err != nil {
			return s, err
		}
		if row.AreaSqft, err = textOrEmpty(wo, "area_sqft", rp); err != nil {
			return s, err
		}
		if row.Squares, err = textOrEmpty(wo, "squares", rp); err != nil {
			return s, err
		}
		if row.Recommended, err = boolean(wo["recommended"], join(rp, "recommended")); err != nil {
			return s, err
		}
		s.WasteTable = append(s.WasteTable, row)
	}
	return s, nil
}

func parseMeasurements(obj map[string]any, path string) (model.Measurements, error) {
	var m model.Measurements
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := text(obj[k], join(path, k))
		if err != nil {
			return m, err
		}
		if f, err := model.ParseMeasurementField(k); err == nil {
			if err := m.Set(f, v); err != nil {
				return m, schemaErr(join(path, k), "%v", err)
			}
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]*string)
		}
		m.Extra[k] = v
	}
	return m, nil
}
