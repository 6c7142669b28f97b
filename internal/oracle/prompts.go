package oracle

import (
	"fmt"
	"strings"

	"github.com/sells-group/roofclaim/internal/model"
)

const roofPrompt = `You read aerial roof measurement reports (EagleView, Hover, GAF QuickMeasure and similar) and return their measurements as JSON.

Return one JSON object and nothing else:
{
  "structureCount": <number of roof structures in the report>,
  "structures": [
    {
      "structureNumber": <1-based>,
      "measurements": {
        "total_roof_area": "<sq ft>",
        "total_eaves": "<ft>",
        "total_rakes": "<ft>",
        "total_valleys": "<ft>",
        "total_hips": "<ft>",
        "total_ridges": "<ft>",
        "hips_ridges": "<ft, only if reported combined>",
        "eaves_rakes": "<ft, only if reported combined>",
        "total_wall_flashing": "<ft>",
        "total_step_flashing": "<ft>",
        "predominant_pitch": "<e.g. 8/12>"
      },
      "pitch_breakdown": [{"pitch": "8/12", "area_sqft": "1200", "squares": "12.0"}],
      "waste_table": [{"waste_percent": "10", "area_sqft": "2695", "squares": "27.0", "recommended": false}]
    }
  ]
}

Rules:
- Copy numbers exactly as printed, as strings, without units.
- Omit a measurement the report does not state. Never guess or compute one.
- The waste table row with 0% waste is the measured area. Mark recommended true only on the row the report marks as suggested or recommended.
- Structures appear in the order the report lists them.`

const insurancePrompt = `You read property insurance claim estimates (Xactimate, Symbility and similar) and return the roofing line items as JSON.

Return one JSON object and nothing else:
{
  "claim_id": "<claim number>",
  "date": "<date of loss or estimate date as printed>",
  "price_list": ["<price list codes>"],
  "structureCount": <number of roof sections>,
  "roofSections": [
    {
      "roofNumber": <1-based>,
      "section_name": "<heading as printed, e.g. Dwelling Roof>",
      "line_items": [
        {
          "item_no": <line number as printed>,
          "description": "<description exactly as printed>",
          "quantity": {"value": <number>, "unit": "<SQ|LF|SF|EA>"},
          "options_text": "<any sub-line notes under the item, or null>"
        }
      ]
    }
  ]
}

Rules:
- Include every roofing line item in the section: tear off, shingles, felt or underlayment, ice and water shield, drip edge, starter, ridge cap, flashing, vents, steep and high roof charges.
- Copy descriptions verbatim, including abbreviations such as "R&R" and "- w/out felt".
- Use null for a quantity value or unit that is not printed.
- One roof section per roof heading in the estimate, in order.`

func systemPrompt(kind model.DocumentKind) string {
	if kind == model.DocumentInsurance {
		return insurancePrompt
	}
	return roofPrompt
}

// userPrompt lays out the pages with markers so the model can cite page
// boundaries, followed by the structure count hint.
func userPrompt(kind model.DocumentKind, pages []Page, structureCount int) string {
	var b strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&b, "<page number=\"%d\">\n%s\n</page>\n", p.Number, strings.TrimSpace(p.Text))
	}
	b.WriteString("\n")

	noun := "roof structures"
	if kind == model.DocumentInsurance {
		noun = "roof sections"
	}
	if structureCount > 0 {
		fmt.Fprintf(&b, "The document covers %d %s. Return exactly %d entries.\n", structureCount, noun, structureCount)
	} else {
		fmt.Fprintf(&b, "Count the %s yourself.\n", noun)
	}
	b.WriteString("Respond with the JSON object only.")
	return b.String()
}
