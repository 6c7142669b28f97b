package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestParseMeasurementField(t *testing.T) {
	t.Parallel()

	f, err := ParseMeasurementField("total_eaves")
	require.NoError(t, err)
	assert.Equal(t, FieldTotalEaves, f)

	_, err = ParseMeasurementField("total_gutters")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown measurement field")
}

func TestMeasurements_GetSet(t *testing.T) {
	t.Parallel()

	var m Measurements
	for _, f := range MeasurementFields {
		assert.Nil(t, m.Get(f), string(f))
	}

	require.NoError(t, m.Set(FieldTotalValleys, strp("40 ft")))
	assert.Equal(t, "40 ft", *m.TotalValleys)
	assert.Equal(t, "40 ft", *m.Get(FieldTotalValleys))

	require.NoError(t, m.Set(FieldTotalValleys, nil))
	assert.Nil(t, m.TotalValleys)

	assert.Error(t, m.Set(MeasurementField("bogus"), strp("1")))
	assert.Nil(t, m.Get(MeasurementField("bogus")))
}

func TestMeasurements_JSONPreservesUnknownKeys(t *testing.T) {
	t.Parallel()

	in := `{"total_roof_area":"3000 sqft","total_eaves":null,"facets":"12"}`
	var m Measurements
	require.NoError(t, json.Unmarshal([]byte(in), &m))

	require.NotNil(t, m.TotalRoofArea)
	assert.Equal(t, "3000 sqft", *m.TotalRoofArea)
	assert.Nil(t, m.TotalEaves)
	require.Contains(t, m.Extra, "facets")
	assert.Equal(t, "12", *m.Extra["facets"])

	out, err := json.Marshal(m)
	require.NoError(t, err)

	var back map[string]*string
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, "3000 sqft", *back["total_roof_area"])
	assert.Equal(t, "12", *back["facets"])
	assert.Contains(t, back, "predominant_pitch")
	assert.Nil(t, back["predominant_pitch"])
}

func TestRoofStructure_RecommendedWaste(t *testing.T) {
	t.Parallel()

	s := RoofStructure{WasteTable: []WasteRow{
		{WastePercent: "0", Squares: "30"},
		{WastePercent: "10", Squares: "33", Recommended: true},
		{WastePercent: "15", Squares: "34.5", Recommended: true},
	}}
	row, n := s.RecommendedWaste()
	require.NotNil(t, row)
	assert.Equal(t, "10", row.WastePercent)
	assert.Equal(t, 2, n)

	row, n = RoofStructure{}.RecommendedWaste()
	assert.Nil(t, row)
	assert.Equal(t, 0, n)
}

func TestRoofReportData_ToLegacy(t *testing.T) {
	t.Parallel()

	r := RoofReportData{StructureCount: 1, Structures: []RoofStructure{{
		StructureNumber: 1,
		Measurements:    Measurements{TotalEaves: strp("100 ft")},
		PitchBreakdown:  []PitchRow{{Pitch: "6/12", AreaSqft: "3000", Squares: "30"}},
	}}}
	legacy, err := r.ToLegacy()
	require.NoError(t, err)
	assert.Equal(t, "100 ft", *legacy.Measurements.TotalEaves)
	assert.Len(t, legacy.PitchBreakdown, 1)

	r.StructureCount = 2
	r.Structures = append(r.Structures, RoofStructure{StructureNumber: 2})
	_, err = r.ToLegacy()
	assert.Error(t, err)
}

func TestRoofReportData_CloneIsDeep(t *testing.T) {
	t.Parallel()

	orig := RoofReportData{StructureCount: 1, Structures: []RoofStructure{{
		StructureNumber: 1,
		Measurements:    Measurements{TotalEaves: strp("100 ft"), Extra: map[string]*string{"x": strp("1")}},
		WasteTable:      []WasteRow{{WastePercent: "10"}},
	}}}
	cp := orig.Clone()
	*cp.Structures[0].Measurements.TotalEaves = "5 ft"
	*cp.Structures[0].Measurements.Extra["x"] = "2"
	cp.Structures[0].WasteTable[0].WastePercent = "20"

	assert.Equal(t, "100 ft", *orig.Structures[0].Measurements.TotalEaves)
	assert.Equal(t, "1", *orig.Structures[0].Measurements.Extra["x"])
	assert.Equal(t, "10", orig.Structures[0].WasteTable[0].WastePercent)
	assert.NotNil(t, orig.Structure(1))
	assert.Nil(t, orig.Structure(3))
}
