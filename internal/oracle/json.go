package oracle

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/sells-group/roofclaim/internal/model"
)

// cleanJSON strips markdown fences and any prose around the outermost
// JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// checkShape verifies the top-level keys of either the current or the
// legacy layout for the document kind.
func checkShape(kind model.DocumentKind, raw string) error {
	root := gjson.Parse(raw)
	if !root.IsObject() {
		return eris.New("response is not a JSON object")
	}

	switch kind {
	case model.DocumentInsurance:
		if root.Get("roofSections").IsArray() || root.Get("sections").IsArray() {
			return nil
		}
		return eris.New("missing roofSections array")
	default:
		if root.Get("structures").IsArray() || root.Get("measurements").IsObject() {
			return nil
		}
		return eris.New("missing structures array")
	}
}

// reportedCount returns the structureCount the model reported, or 0.
func reportedCount(raw string) int {
	return int(gjson.Get(raw, "structureCount").Int())
}
