// Package compare reconciles a roof report against an insurance estimate.
// Evaluation is deterministic: the same structure and section always yield
// the same checkpoints, in the same order.
package compare

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/roofclaim/internal/model"
	"github.com/sells-group/roofclaim/internal/resolve"
)

// Checkpoint names, in output order.
const (
	CheckpointTotalSquares      = "Confirm Total Squares"
	CheckpointWasteFactor       = "Check if proper waste factor is applied"
	CheckpointDripEdge          = "Drip Edge"
	CheckpointStarterStrip      = "Starter Strip"
	CheckpointRidgeCap          = "Ridge Cap"
	CheckpointIceWaterValleys   = "Ice and Water Shield in Valleys"
	CheckpointStepFlashing      = "Step flashing"
	CheckpointChimneyFlashing   = "Chimney flashing"
	CheckpointVentilation       = "Ventilation items"
	CheckpointSteep7to9Remove   = "Remove steep 7/12–9/12 (take off)"
	CheckpointSteep7to9Add      = "Add steep 7/12–9/12 (put back)"
	CheckpointSteep10to12Remove = "Remove steep 10/12 & 12/12 (take off)"
	CheckpointSteep10to12Add    = "Add steep 10/12 & 12/12 (put back)"
	CheckpointUnderlayment      = "Underlayment"
)

// Checkpoints lists every checkpoint name in the fixed evaluation order.
var Checkpoints = []string{
	CheckpointTotalSquares,
	CheckpointWasteFactor,
	CheckpointDripEdge,
	CheckpointStarterStrip,
	CheckpointRidgeCap,
	CheckpointIceWaterValleys,
	CheckpointStepFlashing,
	CheckpointChimneyFlashing,
	CheckpointVentilation,
	CheckpointSteep7to9Remove,
	CheckpointSteep7to9Add,
	CheckpointSteep10to12Remove,
	CheckpointSteep10to12Add,
	CheckpointUnderlayment,
}

const steepZeroNote = "expected 0 SQ, insurance allows steep charge"

// Evaluate runs every checkpoint for one roof structure and its paired
// insurance section. A nil table uses the built-in keyword table.
func Evaluate(s model.RoofStructure, sec model.RoofSection, t *resolve.Table) []model.ComparisonCheckpoint {
	if t == nil {
		t = resolve.DefaultTable()
	}

	out := make([]model.ComparisonCheckpoint, 0, len(Checkpoints))
	out = append(out,
		atLeast(CheckpointTotalSquares, resolve.UnitSQ, resolve.TotalSquares(s), t.TearOffSQ(sec)),
		wasteFactor(s, sec, t),
		atLeast(CheckpointDripEdge, resolve.UnitLF, resolve.EavesRakesLF(s), t.LinearItem(sec, resolve.KindDripEdge)),
		atLeast(CheckpointStarterStrip, resolve.UnitLF, resolve.EavesRakesLF(s), t.LinearItem(sec, resolve.KindStarterStrip)),
		ridgeCap(s, sec, t),
		atLeast(CheckpointIceWaterValleys, resolve.UnitSF, resolve.ValleysSF(s), t.AreaItem(sec, resolve.KindIceWaterShield)),
		stepFlashing(s, sec, t),
		presence(CheckpointChimneyFlashing, "chimney flashing", sec, t, resolve.KindChimneyFlashing),
		presence(CheckpointVentilation, "ventilation", sec, t, resolve.KindVentilation),
		steep(CheckpointSteep7to9Remove, resolve.SteepSquares(s, resolve.Steep7to9), t.SteepAddOn(sec, resolve.Band7to9, resolve.DirectionRemove)),
		steep(CheckpointSteep7to9Add, resolve.SteepPutBackSquares(s, resolve.Steep7to9), t.SteepAddOn(sec, resolve.Band7to9, resolve.DirectionPutBack)),
		steep(CheckpointSteep10to12Remove, resolve.SteepSquares(s, resolve.Steep10to12), t.SteepAddOn(sec, resolve.Band10to12, resolve.DirectionRemove)),
		steep(CheckpointSteep10to12Add, resolve.SteepPutBackSquares(s, resolve.Steep10to12), t.SteepAddOn(sec, resolve.Band10to12, resolve.DirectionPutBack)),
		presence(CheckpointUnderlayment, "underlayment", sec, t, resolve.KindUnderlayment),
	)
	return out
}

// epsilon absorbs float noise from unit conversion and waste arithmetic.
// Verdicts compare raw values; rounding only happens for display.
const epsilon = 1e-9

// atLeast applies the general rule: the insurance quantity must cover the
// roof report quantity.
func atLeast(name string, unit resolve.Unit, roof, ins resolve.Quantity) model.ComparisonCheckpoint {
	cp := model.ComparisonCheckpoint{
		Checkpoint:           name,
		RoofReportValue:      roof.Format(unit),
		InsuranceReportValue: ins.Format(unit),
	}

	i, iok := ins.Value()
	r, rok := roof.Value()
	switch {
	case !iok:
		cp.Status = model.StatusMissing
		cp.Notes = fmt.Sprintf("No usable insurance quantity found; roof report shows %s.", display(cp.RoofReportValue))
	case !rok:
		cp.Status = model.StatusMissing
		cp.Notes = fmt.Sprintf("Roof report value unavailable; cannot verify insurance %s.", *cp.InsuranceReportValue)
	case i >= r-epsilon:
		cp.Status = model.StatusPass
		cp.Notes = fmt.Sprintf("Insurance %s is at least the roof report %s.", *cp.InsuranceReportValue, *cp.RoofReportValue)
	default:
		cp.Status = model.StatusFailed
		cp.Notes = fmt.Sprintf("Insurance %s is below the roof report %s by %s %s.",
			*cp.InsuranceReportValue, *cp.RoofReportValue, shortfall(r-i), unit)
	}
	return cp
}

func wasteFactor(s model.RoofStructure, sec model.RoofSection, t *resolve.Table) model.ComparisonCheckpoint {
	cp := atLeast(CheckpointWasteFactor, resolve.UnitSQ, resolve.RecommendedWasteSquares(s), t.FeltSQ(sec))
	if row, n := s.RecommendedWaste(); n > 1 {
		cp.Warning = warn("%d waste rows are marked recommended; using the first (%s%%).", n, strings.TrimSpace(row.WastePercent))
	}
	return cp
}

func ridgeCap(s model.RoofStructure, sec model.RoofSection, t *resolve.Table) model.ComparisonCheckpoint {
	cp := atLeast(CheckpointRidgeCap, resolve.UnitLF, resolve.HipsRidgesLF(s), t.LinearItem(sec, resolve.KindRidgeCap))
	if t.MentionsCutFrom3Tab(sec, resolve.KindRidgeCap) {
		cp.Warning = warn("Insurance ridge cap is cut from 3-tab shingles; confirm the shingle type allows it.")
	}
	return cp
}

func stepFlashing(s model.RoofStructure, sec model.RoofSection, t *resolve.Table) model.ComparisonCheckpoint {
	if !t.Presence(sec, resolve.KindStepFlashing) {
		r := resolve.StepFlashingLF(s)
		return model.ComparisonCheckpoint{
			Checkpoint:      CheckpointStepFlashing,
			Status:          model.StatusMissing,
			RoofReportValue: r.Format(resolve.UnitLF),
			Notes:           fmt.Sprintf("Insurance estimate has no step flashing line item; roof report shows %s.", display(r.Format(resolve.UnitLF))),
			Warning:         warn("No step flashing found in the insurance estimate."),
		}
	}
	return atLeast(CheckpointStepFlashing, resolve.UnitLF, resolve.StepFlashingLF(s), t.LinearItem(sec, resolve.KindStepFlashing))
}

// presence passes when the estimate carries any item of kind. The roof
// report does not measure these, so only the insurance side is reported.
func presence(name, label string, sec model.RoofSection, t *resolve.Table, kind resolve.ItemKind) model.ComparisonCheckpoint {
	cp := model.ComparisonCheckpoint{Checkpoint: name}
	descs := t.Descriptions(sec, kind)
	if len(descs) == 0 {
		cp.Status = model.StatusMissing
		cp.Notes = fmt.Sprintf("Presence check: no %s line item found in the insurance estimate.", label)
		cp.Warning = warn("No %s found in the insurance estimate; confirm whether it is required.", label)
		return cp
	}
	v := strings.Join(descs, "; ")
	cp.Status = model.StatusPass
	cp.InsuranceReportValue = &v
	cp.Notes = fmt.Sprintf("Presence check: insurance estimate includes %s.", label)
	return cp
}

// steep applies the general rule, except that a roof with no squares in
// the band expects no steep charge at all.
func steep(name string, roof, ins resolve.Quantity) model.ComparisonCheckpoint {
	r, ok := roof.Value()
	if !ok || r != 0 {
		return atLeast(name, resolve.UnitSQ, roof, ins)
	}

	zero := resolve.Known(0).Format(resolve.UnitSQ)
	cp := model.ComparisonCheckpoint{
		Checkpoint:           name,
		RoofReportValue:      zero,
		InsuranceReportValue: ins.Format(resolve.UnitSQ),
	}
	if i, ok := ins.Value(); ok && i > 0 {
		cp.Status = model.StatusFailed
		cp.Notes = steepZeroNote
		return cp
	}
	cp.Status = model.StatusPass
	cp.Notes = "Roof report has 0.0 SQ in this pitch band and the insurance estimate has no steep charge."
	return cp
}

// shortfall formats a gap with one decimal, or two when one would show 0.0.
func shortfall(d float64) string {
	if math.Round(d*10) == 0 {
		return strconv.FormatFloat(d, 'f', 2, 64)
	}
	return strconv.FormatFloat(d, 'f', 1, 64)
}

func display(v *string) string {
	if v == nil {
		return "no value"
	}
	return *v
}

func warn(format string, args ...any) *string {
	s := fmt.Sprintf(format, args...)
	return &s
}
