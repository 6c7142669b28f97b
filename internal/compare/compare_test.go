package compare

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/roofclaim/internal/model"
)

func strp(s string) *string { return &s }

func lineItem(desc string, v float64, unit string) model.InsuranceLineItem {
	return model.InsuranceLineItem{
		Description: desc,
		Quantity:    model.Quantity{Value: &v, Unit: strp(unit)},
	}
}

func fullStructure(number int) model.RoofStructure {
	return model.RoofStructure{
		StructureNumber: number,
		Measurements: model.Measurements{
			TotalRoofArea:     strp("3000 sqft"),
			EavesRakes:        strp("120 ft"),
			TotalHips:         strp("25 ft"),
			TotalRidges:       strp("40 ft"),
			TotalValleys:      strp("40 ft"),
			TotalWallFlashing: strp("12 ft"),
			TotalStepFlashing: strp("8 ft"),
			PredominantPitch:  strp("6/12"),
		},
		PitchBreakdown: []model.PitchRow{
			{Pitch: "6/12", AreaSqft: "2000", Squares: "20"},
			{Pitch: "8/12", AreaSqft: "1000", Squares: "10"},
		},
		WasteTable: []model.WasteRow{
			{WastePercent: "0", AreaSqft: "3000", Squares: "30"},
			{WastePercent: "10", AreaSqft: "3300", Squares: "33", Recommended: true},
			{WastePercent: "15", AreaSqft: "3450", Squares: "34.5"},
		},
	}
}

func fullSection(number int) model.RoofSection {
	items := []model.InsuranceLineItem{
		lineItem("Tear off, haul and dispose of comp. shingles - Laminated", 32, "SQ"),
		lineItem("Roofing felt - 15 lb.", 34, "SQ"),
		lineItem("Drip edge", 120, "LF"),
		lineItem("Asphalt starter - universal starter course", 125, "LF"),
		lineItem("Hip / Ridge cap - Standard profile - composition shingles", 65, "LF"),
		lineItem("Ice & water barrier", 240, "SF"),
		lineItem("Step flashing", 20, "LF"),
		lineItem("Chimney flashing - average (32\" x 36\")", 1, "EA"),
		lineItem("Roof vent - turtle type - Metal", 4, "EA"),
		lineItem("Remove Additional charge for steep roof - 7/12 to 9/12 slope", 10, "SQ"),
		lineItem("Additional charge for steep roof - 7/12 to 9/12 slope", 11, "SQ"),
	}
	for i := range items {
		items[i].ItemNo = i + 1
	}
	return model.RoofSection{RoofNumber: number, SectionName: strp("Dwelling Roof"), LineItems: items}
}

func byName(t *testing.T, cps []model.ComparisonCheckpoint, name string) model.ComparisonCheckpoint {
	t.Helper()
	for _, cp := range cps {
		if cp.Checkpoint == name {
			return cp
		}
	}
	t.Fatalf("checkpoint %q not found", name)
	return model.ComparisonCheckpoint{}
}

func TestEvaluate_AllPass(t *testing.T) {
	t.Parallel()

	cps := Evaluate(fullStructure(1), fullSection(1), nil)
	require.Len(t, cps, len(Checkpoints))
	for i, cp := range cps {
		assert.Equal(t, Checkpoints[i], cp.Checkpoint)
		assert.Equal(t, model.StatusPass, cp.Status, "%s: %s", cp.Checkpoint, cp.Notes)
		assert.NotEmpty(t, cp.Notes, cp.Checkpoint)
	}

	s := Summarize(cps)
	assert.Equal(t, model.Summary{Pass: 14, Total: 14}, s)

	waste := byName(t, cps, CheckpointWasteFactor)
	assert.Equal(t, "33.0 SQ", *waste.RoofReportValue)
	assert.Equal(t, "34.0 SQ", *waste.InsuranceReportValue)
	assert.Nil(t, waste.Warning)

	putBack := byName(t, cps, CheckpointSteep7to9Add)
	assert.Equal(t, "11.0 SQ", *putBack.RoofReportValue)

	vent := byName(t, cps, CheckpointVentilation)
	assert.Nil(t, vent.RoofReportValue)
	assert.Equal(t, "Roof vent - turtle type - Metal", *vent.InsuranceReportValue)
}

func TestEvaluate_FixedCardinalityOnEmptyInput(t *testing.T) {
	t.Parallel()

	cps := Evaluate(model.RoofStructure{StructureNumber: 1}, model.RoofSection{RoofNumber: 1}, nil)
	require.Len(t, cps, 14)
	for i, cp := range cps {
		assert.Equal(t, Checkpoints[i], cp.Checkpoint)
	}

	s := Summarize(cps)
	assert.Equal(t, 14, s.Total)
	assert.Equal(t, s.Total, s.Pass+s.Failed+s.Missing)
	// The four steep checkpoints expect no charge on a roof with no steep
	// squares; everything else has nothing to compare.
	assert.Equal(t, 4, s.Pass)
	assert.Equal(t, 10, s.Missing)
}

func TestEvaluate_Idempotent(t *testing.T) {
	t.Parallel()

	s, sec := fullStructure(1), fullSection(1)
	sec.LineItems = sec.LineItems[:4]

	a, err := json.Marshal(Evaluate(s, sec, nil))
	require.NoError(t, err)
	b, err := json.Marshal(Evaluate(s, sec, nil))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestEvaluate_TotalSquaresScenario(t *testing.T) {
	t.Parallel()

	s := model.RoofStructure{
		StructureNumber: 1,
		WasteTable:      []model.WasteRow{{WastePercent: "0", Squares: "30", AreaSqft: "3000"}},
	}
	sec := model.RoofSection{RoofNumber: 1, LineItems: []model.InsuranceLineItem{
		lineItem("Tear off comp. shingles", 32, "SQ"),
	}}

	cp := Evaluate(s, sec, nil)[0]
	assert.Equal(t, CheckpointTotalSquares, cp.Checkpoint)
	assert.Equal(t, model.StatusPass, cp.Status)
	assert.Equal(t, "30.0 SQ", *cp.RoofReportValue)
	assert.Equal(t, "32.0 SQ", *cp.InsuranceReportValue)
	assert.Contains(t, cp.Notes, "32.0 SQ")
	assert.Contains(t, cp.Notes, "30.0 SQ")
}

func TestEvaluate_MissingInsurancePropagates(t *testing.T) {
	t.Parallel()

	sec := fullSection(1)
	sec.LineItems = sec.LineItems[1:]

	cp := Evaluate(fullStructure(1), sec, nil)[0]
	assert.Equal(t, model.StatusMissing, cp.Status)
	assert.Nil(t, cp.InsuranceReportValue)
	assert.Equal(t, "30.0 SQ", *cp.RoofReportValue)

	cp = Evaluate(model.RoofStructure{}, sec, nil)[0]
	assert.Equal(t, model.StatusMissing, cp.Status)
	assert.Nil(t, cp.InsuranceReportValue)
}

func TestEvaluate_MissingRoofValue(t *testing.T) {
	t.Parallel()

	s := fullStructure(1)
	s.Measurements.EavesRakes = nil

	cp := byName(t, Evaluate(s, fullSection(1), nil), CheckpointDripEdge)
	assert.Equal(t, model.StatusMissing, cp.Status)
	assert.Nil(t, cp.RoofReportValue)
	assert.Equal(t, "120.0 LF", *cp.InsuranceReportValue)
}

func TestEvaluate_DripEdgeFailed(t *testing.T) {
	t.Parallel()

	s := model.RoofStructure{Measurements: model.Measurements{EavesRakes: strp("120 ft")}}
	sec := model.RoofSection{LineItems: []model.InsuranceLineItem{lineItem("Drip edge", 100, "LF")}}

	cp := byName(t, Evaluate(s, sec, nil), CheckpointDripEdge)
	assert.Equal(t, model.StatusFailed, cp.Status)
	assert.Equal(t, "120.0 LF", *cp.RoofReportValue)
	assert.Equal(t, "100.0 LF", *cp.InsuranceReportValue)
	assert.Contains(t, cp.Notes, "20.0 LF")
}

func TestEvaluate_SteepZeroCase(t *testing.T) {
	t.Parallel()

	s := model.RoofStructure{PitchBreakdown: []model.PitchRow{{Pitch: "5/12", AreaSqft: "2000", Squares: "20"}}}
	sec := model.RoofSection{LineItems: []model.InsuranceLineItem{
		lineItem("Remove Additional charge for steep roof - 7/12 to 9/12 slope", 2.5, "SQ"),
	}}

	cps := Evaluate(s, sec, nil)
	cp := byName(t, cps, CheckpointSteep7to9Remove)
	assert.Equal(t, model.StatusFailed, cp.Status)
	require.NotNil(t, cp.RoofReportValue)
	assert.Equal(t, "0.0 SQ", *cp.RoofReportValue)
	assert.Equal(t, "2.5 SQ", *cp.InsuranceReportValue)
	assert.Equal(t, "expected 0 SQ, insurance allows steep charge", cp.Notes)

	cp = byName(t, cps, CheckpointSteep7to9Add)
	assert.Equal(t, model.StatusPass, cp.Status)
	assert.Equal(t, "0.0 SQ", *cp.RoofReportValue)
	assert.Nil(t, cp.InsuranceReportValue)
}

func TestEvaluate_SteepShortfall(t *testing.T) {
	t.Parallel()

	sec := fullSection(1)
	sec.LineItems[9] = lineItem("Remove Additional charge for steep roof - 7/12 to 9/12 slope", 6, "SQ")

	cp := byName(t, Evaluate(fullStructure(1), sec, nil), CheckpointSteep7to9Remove)
	assert.Equal(t, model.StatusFailed, cp.Status)
	assert.Equal(t, "10.0 SQ", *cp.RoofReportValue)
	assert.Equal(t, "6.0 SQ", *cp.InsuranceReportValue)
}

func TestEvaluate_ComparesUnroundedValues(t *testing.T) {
	t.Parallel()

	s := fullStructure(1)
	s.WasteTable[0].Squares = "30.04"
	sec := fullSection(1)
	sec.LineItems[0] = lineItem("Tear off, haul and dispose of comp. shingles - Laminated", 30, "SQ")

	cp := byName(t, Evaluate(s, sec, nil), CheckpointTotalSquares)
	assert.Equal(t, model.StatusFailed, cp.Status)
	assert.Equal(t, "30.0 SQ", *cp.RoofReportValue)
	assert.Equal(t, "30.0 SQ", *cp.InsuranceReportValue)
	assert.Contains(t, cp.Notes, "by 0.04 SQ")
}

func TestEvaluate_SteepNearZeroIsNotZeroCase(t *testing.T) {
	t.Parallel()

	s := model.RoofStructure{PitchBreakdown: []model.PitchRow{{Pitch: "8/12", AreaSqft: "4", Squares: "0.04"}}}
	sec := model.RoofSection{LineItems: []model.InsuranceLineItem{
		lineItem("Remove Additional charge for steep roof - 7/12 to 9/12 slope", 1, "SQ"),
	}}

	cp := byName(t, Evaluate(s, sec, nil), CheckpointSteep7to9Remove)
	assert.Equal(t, model.StatusPass, cp.Status)
	assert.NotEqual(t, "expected 0 SQ, insurance allows steep charge", cp.Notes)
}

func TestEvaluate_ShingleLinesWithoutFelt(t *testing.T) {
	t.Parallel()

	sec := fullSection(1)
	sec.LineItems[0] = lineItem("Remove Laminated - comp. shingle rfg. - w/out felt", 32, "SQ")
	sec.LineItems[1] = lineItem("Laminated - comp. shingle rfg. - w/out felt", 36, "SQ")

	cps := Evaluate(fullStructure(1), sec, nil)

	cp := byName(t, cps, CheckpointTotalSquares)
	assert.Equal(t, model.StatusPass, cp.Status)
	assert.Equal(t, "32.0 SQ", *cp.InsuranceReportValue)

	cp = byName(t, cps, CheckpointWasteFactor)
	assert.Equal(t, model.StatusMissing, cp.Status)
	assert.Nil(t, cp.InsuranceReportValue)

	cp = byName(t, cps, CheckpointUnderlayment)
	assert.Equal(t, model.StatusMissing, cp.Status)
	assert.NotNil(t, cp.Warning)
}

func TestEvaluate_PresenceMissing(t *testing.T) {
	t.Parallel()

	sec := fullSection(1)
	sec.LineItems = append(sec.LineItems[:7], sec.LineItems[8:]...)

	cp := byName(t, Evaluate(fullStructure(1), sec, nil), CheckpointChimneyFlashing)
	assert.Equal(t, model.StatusMissing, cp.Status)
	require.NotNil(t, cp.Warning)
	assert.Contains(t, *cp.Warning, "chimney flashing")
	assert.Nil(t, cp.RoofReportValue)
	assert.Nil(t, cp.InsuranceReportValue)
}

func TestEvaluate_RidgeCapThreeTabWarning(t *testing.T) {
	t.Parallel()

	sec := fullSection(1)
	sec.LineItems[4].OptionsText = strp("Ridge cap cut from 3-tab shingles")

	cp := byName(t, Evaluate(fullStructure(1), sec, nil), CheckpointRidgeCap)
	assert.Equal(t, model.StatusPass, cp.Status)
	require.NotNil(t, cp.Warning)
	assert.Contains(t, *cp.Warning, "3-tab")
}

func TestEvaluate_MultipleRecommendedWasteRows(t *testing.T) {
	t.Parallel()

	s := fullStructure(1)
	s.WasteTable[2].Recommended = true

	cp := byName(t, Evaluate(s, fullSection(1), nil), CheckpointWasteFactor)
	assert.Equal(t, "33.0 SQ", *cp.RoofReportValue)
	require.NotNil(t, cp.Warning)
	assert.Contains(t, *cp.Warning, "2 waste rows")
}

func TestEvaluate_StepFlashingAbsent(t *testing.T) {
	t.Parallel()

	sec := fullSection(1)
	sec.LineItems = append(sec.LineItems[:6], sec.LineItems[7:]...)

	cp := byName(t, Evaluate(fullStructure(1), sec, nil), CheckpointStepFlashing)
	assert.Equal(t, model.StatusMissing, cp.Status)
	assert.Equal(t, "20.0 LF", *cp.RoofReportValue)
	assert.Nil(t, cp.InsuranceReportValue)
	assert.NotNil(t, cp.Warning)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	cps := []model.ComparisonCheckpoint{
		{Status: model.StatusPass},
		{Status: model.StatusFailed},
		{Status: model.StatusMissing},
		{Status: model.StatusMissing},
	}
	assert.Equal(t, model.Summary{Pass: 1, Failed: 1, Missing: 2, Total: 4}, Summarize(cps))
	assert.Equal(t, model.Summary{}, Summarize(nil))
}

func TestCombine(t *testing.T) {
	t.Parallel()

	got := Combine([]model.StructureComparison{
		{Summary: model.Summary{Pass: 10, Failed: 2, Missing: 2, Total: 14}},
		{Summary: model.Summary{Pass: 4, Failed: 0, Missing: 10, Total: 14}},
	})
	assert.Equal(t, model.Summary{Pass: 14, Failed: 2, Missing: 12, Total: 28}, got)
}

func TestCompare_MultiStructure(t *testing.T) {
	t.Parallel()

	roof := &model.RoofReportData{
		StructureCount: 2,
		Structures:     []model.RoofStructure{fullStructure(1), fullStructure(2)},
	}
	ins := &model.InsuranceReportData{
		StructureCount: 1,
		RoofSections:   []model.RoofSection{fullSection(1)},
	}

	res, err := Compare(context.Background(), roof, ins, Options{Concurrency: 2})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.StructureCount)
	require.Len(t, res.Structures, 2)
	assert.Empty(t, res.Comparisons)

	var sum model.Summary
	for i, sc := range res.Structures {
		assert.Equal(t, i+1, sc.StructureNumber)
		assert.Len(t, sc.Comparisons, 14)
		assert.Equal(t, 14, sc.Summary.Total)
		assert.Equal(t, sc.Summary.Total, sc.Summary.Pass+sc.Summary.Failed+sc.Summary.Missing)
		sum = sum.Add(sc.Summary)
	}
	assert.Equal(t, sum, res.Summary)
	assert.Equal(t, 14, res.Structures[0].Summary.Pass)
	// Structure 2 has no paired section, so only the zero-steep checkpoints
	// can pass.
	assert.Equal(t, 2, res.Structures[1].Summary.Pass)
}

func TestCompare_IgnoresSurplusSections(t *testing.T) {
	t.Parallel()

	roof := &model.RoofReportData{StructureCount: 1, Structures: []model.RoofStructure{fullStructure(1)}}
	ins := &model.InsuranceReportData{
		StructureCount: 2,
		RoofSections:   []model.RoofSection{fullSection(1), fullSection(2)},
	}

	res, err := Compare(context.Background(), roof, ins, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.StructureCount)
	require.Len(t, res.Structures, 1)
	assert.Equal(t, 14, res.Summary.Total)
}

func TestCompare_LegacyShape(t *testing.T) {
	t.Parallel()

	roof := &model.RoofReportData{StructureCount: 1, Structures: []model.RoofStructure{fullStructure(1)}}
	ins := &model.InsuranceReportData{StructureCount: 1, RoofSections: []model.RoofSection{fullSection(1)}}

	res, err := Compare(context.Background(), roof, ins, Options{Legacy: true})
	require.NoError(t, err)
	assert.Nil(t, res.Structures)
	assert.Len(t, res.Comparisons, 14)
	assert.Equal(t, model.Summary{Pass: 14, Total: 14}, res.Summary)
	assert.Len(t, res.StructureResults(), 1)
}

func TestCompare_Errors(t *testing.T) {
	t.Parallel()

	_, err := Compare(context.Background(), nil, &model.InsuranceReportData{}, Options{})
	require.Error(t, err)

	_, err = Compare(context.Background(), &model.RoofReportData{}, &model.InsuranceReportData{}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no structures")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	roof := &model.RoofReportData{StructureCount: 1, Structures: []model.RoofStructure{fullStructure(1)}}
	_, err = Compare(ctx, roof, &model.InsuranceReportData{}, Options{})
	require.Error(t, err)
}
