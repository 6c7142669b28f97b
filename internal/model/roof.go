package model

import (
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"
)

// MeasurementField names one measured quantity on a roof report.
type MeasurementField string

const (
	FieldTotalRoofArea     MeasurementField = "total_roof_area"
	FieldTotalEaves        MeasurementField = "total_eaves"
	FieldTotalValleys      MeasurementField = "total_valleys"
	FieldTotalHips         MeasurementField = "total_hips"
	FieldTotalRidges       MeasurementField = "total_ridges"
	FieldTotalRakes        MeasurementField = "total_rakes"
	FieldTotalWallFlashing MeasurementField = "total_wall_flashing"
	FieldTotalStepFlashing MeasurementField = "total_step_flashing"
	FieldHipsRidges        MeasurementField = "hips_ridges"
	FieldEavesRakes        MeasurementField = "eaves_rakes"
	FieldPredominantPitch  MeasurementField = "predominant_pitch"
)

// MeasurementFields lists every known measurement in display order.
var MeasurementFields = []MeasurementField{
	FieldTotalRoofArea,
	FieldTotalEaves,
	FieldTotalValleys,
	FieldTotalHips,
	FieldTotalRidges,
	FieldTotalRakes,
	FieldTotalWallFlashing,
	FieldTotalStepFlashing,
	FieldHipsRidges,
	FieldEavesRakes,
	FieldPredominantPitch,
}

// ParseMeasurementField validates a measurement name.
func ParseMeasurementField(name string) (MeasurementField, error) {
	for _, f := range MeasurementFields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", eris.Errorf("unknown measurement field %q", name)
}

// Measurements holds the free-text measured values of one structure. Values
// carry their unit inline (e.g. "1234 sqft") and are nil when not reported.
// Keys outside the known set survive a decode/encode cycle through Extra.
type Measurements struct {
	TotalRoofArea     *string
	TotalEaves        *string
	TotalValleys      *string
	TotalHips         *string
	TotalRidges       *string
	TotalRakes        *string
	TotalWallFlashing *string
	TotalStepFlashing *string
	HipsRidges        *string
	EavesRakes        *string
	PredominantPitch  *string

	Extra map[string]*string
}

func (m *Measurements) slot(f MeasurementField) **string {
	switch f {
	case FieldTotalRoofArea:
		return &m.TotalRoofArea
	case FieldTotalEaves:
		return &m.TotalEaves
	case FieldTotalValleys:
		return &m.TotalValleys
	case FieldTotalHips:
		return &m.TotalHips
	case FieldTotalRidges:
		return &m.TotalRidges
	case FieldTotalRakes:
		return &m.TotalRakes
	case FieldTotalWallFlashing:
		return &m.TotalWallFlashing
	case FieldTotalStepFlashing:
		return &m.TotalStepFlashing
	case FieldHipsRidges:
		return &m.HipsRidges
	case FieldEavesRakes:
		return &m.EavesRakes
	case FieldPredominantPitch:
		return &m.PredominantPitch
	default:
		return nil
	}
}

// Get returns the raw value for f, or nil.
func (m Measurements) Get(f MeasurementField) *string {
	p := m.slot(f)
	if p == nil {
		return nil
	}
	return *p
}

// Set replaces the value for f. A nil value clears it.
func (m *Measurements) Set(f MeasurementField, v *string) error {
	p := m.slot(f)
	if p == nil {
		return eris.Errorf("unknown measurement field %q", f)
	}
	*p = v
	return nil
}

// MarshalJSON writes known fields (null when unset) followed by Extra keys.
func (m Measurements) MarshalJSON() ([]byte, error) {
	out := make(map[string]*string, len(MeasurementFields)+len(m.Extra))
	for k, v := range m.Extra {
		out[k] = v
	}
	for _, f := range MeasurementFields {
		out[string(f)] = m.Get(f)
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads known fields into their slots and the rest into Extra.
func (m *Measurements) UnmarshalJSON(data []byte) error {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Measurements{}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if f, err := ParseMeasurementField(k); err == nil {
			_ = m.Set(f, raw[k])
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]*string)
		}
		m.Extra[k] = raw[k]
	}
	return nil
}

// PitchRow is one line of a pitch breakdown table.
type PitchRow struct {
	Pitch    string `json:"pitch"`
	AreaSqft string `json:"area_sqft"`
	Squares  string `json:"squares"`
}

// WasteRow is one line of a waste calculation table.
type WasteRow struct {
	WastePercent string `json:"waste_percent"`
	AreaSqft     string `json:"area_sqft"`
	Squares      string `json:"squares"`
	Recommended  bool   `json:"recommended"`
}

// RoofStructure is the measured geometry of one physical roof section.
type RoofStructure struct {
	StructureNumber int          `json:"structureNumber"`
	Measurements    Measurements `json:"measurements"`
	PitchBreakdown  []PitchRow   `json:"pitch_breakdown"`
	WasteTable      []WasteRow   `json:"waste_table"`
}

// RecommendedWaste returns the first row flagged as recommended and the
// number of flagged rows.
func (s RoofStructure) RecommendedWaste() (*WasteRow, int) {
	var first *WasteRow
	n := 0
	for i := range s.WasteTable {
		if s.WasteTable[i].Recommended {
			if first == nil {
				first = &s.WasteTable[i]
			}
			n++
		}
	}
	return first, n
}

// RoofReportData is the canonical multi-structure roof report.
type RoofReportData struct {
	StructureCount int             `json:"structureCount"`
	Structures     []RoofStructure `json:"structures"`
}

// Structure returns the structure with the given number, or nil.
func (r *RoofReportData) Structure(number int) *RoofStructure {
	for i := range r.Structures {
		if r.Structures[i].StructureNumber == number {
			return &r.Structures[i]
		}
	}
	return nil
}

// LegacyRoofReport is the single-structure shape produced by older
// extractions: one structure's tables at the top level.
type LegacyRoofReport struct {
	Measurements   Measurements `json:"measurements"`
	PitchBreakdown []PitchRow   `json:"pitch_breakdown"`
	WasteTable     []WasteRow   `json:"waste_table"`
}

// ToLegacy converts a single-structure report back to the legacy shape.
func (r RoofReportData) ToLegacy() (LegacyRoofReport, error) {
	if r.StructureCount != 1 || len(r.Structures) != 1 {
		return LegacyRoofReport{}, eris.Errorf("legacy conversion requires exactly one structure, have %d", r.StructureCount)
	}
	s := r.Structures[0]
	return LegacyRoofReport{
		Measurements:   s.Measurements,
		PitchBreakdown: s.PitchBreakdown,
		WasteTable:     s.WasteTable,
	}, nil
}

// Clone returns a deep copy suitable for editing.
func (r RoofReportData) Clone() RoofReportData {
	out := RoofReportData{StructureCount: r.StructureCount}
	out.Structures = make([]RoofStructure, len(r.Structures))
	for i, s := range r.Structures {
		cp := s
		cp.Measurements = s.Measurements.clone()
		cp.PitchBreakdown = append([]PitchRow(nil), s.PitchBreakdown...)
		cp.WasteTable = append([]WasteRow(nil), s.WasteTable...)
		out.Structures[i] = cp
	}
	return out
}

func (m Measurements) clone() Measurements {
	var out Measurements
	for _, f := range MeasurementFields {
		if v := m.Get(f); v != nil {
			s := *v
			_ = out.Set(f, &s)
		}
	}
	if m.Extra != nil {
		out.Extra = make(map[string]*string, len(m.Extra))
		for k, v := range m.Extra {
			if v == nil {
				out.Extra[k] = nil
				continue
			}
			s := *v
			out.Extra[k] = &s
		}
	}
	return out
}
