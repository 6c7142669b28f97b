package resolve

import (
	_ "embed"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/roofclaim/internal/model"
)

//go:embed keywords.yaml
var defaultKeywords []byte

// ItemKind identifies a category of claim estimate line item.
type ItemKind string

const (
	KindTearOff            ItemKind = "tear_off"
	KindFelt               ItemKind = "felt"
	KindDripEdge           ItemKind = "drip_edge"
	KindStarterStrip       ItemKind = "starter_strip"
	KindRidgeCap           ItemKind = "ridge_cap"
	KindStepFlashing       ItemKind = "step_flashing"
	KindIceWaterShield     ItemKind = "ice_water_shield"
	KindChimneyFlashing    ItemKind = "chimney_flashing"
	KindVentilation        ItemKind = "ventilation"
	KindUnderlayment       ItemKind = "underlayment"
	KindSteep7to9Remove    ItemKind = "steep_7to9_remove"
	KindSteep7to9PutBack   ItemKind = "steep_7to9_putback"
	KindSteep10to12Remove  ItemKind = "steep_10to12_remove"
	KindSteep10to12PutBack ItemKind = "steep_10to12_putback"
)

// AllKinds lists every kind a keyword table must define.
var AllKinds = []ItemKind{
	KindTearOff,
	KindFelt,
	KindDripEdge,
	KindStarterStrip,
	KindRidgeCap,
	KindStepFlashing,
	KindIceWaterShield,
	KindChimneyFlashing,
	KindVentilation,
	KindUnderlayment,
	KindSteep7to9Remove,
	KindSteep7to9PutBack,
	KindSteep10to12Remove,
	KindSteep10to12PutBack,
}

type kindSpec struct {
	Unit    string   `yaml:"unit"`
	Include []string `yaml:"include"`
	Require []string `yaml:"require"`
	Exclude []string `yaml:"exclude"`
}

type tableFile struct {
	Version int                 `yaml:"version"`
	Kinds   map[string]kindSpec `yaml:"kinds"`
}

type matcher struct {
	unit    Unit
	include []*regexp.Regexp
	require []*regexp.Regexp
	exclude []*regexp.Regexp
}

func (m *matcher) match(text string) bool {
	hit := false
	for _, re := range m.include {
		if re.MatchString(text) {
			hit = true
			break
		}
	}
	if !hit {
		return false
	}
	for _, re := range m.require {
		if !re.MatchString(text) {
			return false
		}
	}
	for _, re := range m.exclude {
		if re.MatchString(text) {
			return false
		}
	}
	return true
}

// Table is a compiled, versioned set of line item patterns. It is immutable
// once built and safe for concurrent use.
type Table struct {
	Version int
	kinds   map[ItemKind]*matcher
}

// ParseTable compiles a YAML keyword table. Every kind in AllKinds must be
// present with at least one include pattern.
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "keywords: parse yaml")
	}
	if f.Version <= 0 {
		return nil, eris.New("keywords: version must be positive")
	}

	t := &Table{Version: f.Version, kinds: make(map[ItemKind]*matcher, len(AllKinds))}
	for _, kind := range AllKinds {
		spec, ok := f.Kinds[string(kind)]
		if !ok {
			return nil, eris.Errorf("keywords: kind %q not defined", kind)
		}
		if len(spec.Include) == 0 {
			return nil, eris.Errorf("keywords: kind %q has no include patterns", kind)
		}
		unit, ok := ParseUnit(spec.Unit)
		if !ok {
			return nil, eris.Errorf("keywords: kind %q has unknown unit %q", kind, spec.Unit)
		}
		m := &matcher{unit: unit}
		var err error
		if m.include, err = compileAll(kind, spec.Include); err != nil {
			return nil, err
		}
		if m.require, err = compileAll(kind, spec.Require); err != nil {
			return nil, err
		}
		if m.exclude, err = compileAll(kind, spec.Exclude); err != nil {
			return nil, err
		}
		t.kinds[kind] = m
	}
	return t, nil
}

func compileAll(kind ItemKind, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, eris.Wrapf(err, "keywords: kind %q pattern %q", kind, p)
		}
		out = append(out, re)
	}
	return out, nil
}

// LoadTable reads a keyword table from disk.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "keywords: read %s", path)
	}
	return ParseTable(data)
}

var defaultTable = sync.OnceValue(func() *Table {
	t, err := ParseTable(defaultKeywords)
	if err != nil {
		panic(err)
	}
	return t
})

// DefaultTable returns the table shipped with the binary.
func DefaultTable() *Table {
	return defaultTable()
}

// NativeUnit returns the unit a kind is measured in.
func (t *Table) NativeUnit(kind ItemKind) Unit {
	if m, ok := t.kinds[kind]; ok {
		return m.unit
	}
	return ""
}

// Match reports whether a line item belongs to kind.
func (t *Table) Match(kind ItemKind, item model.InsuranceLineItem) bool {
	m, ok := t.kinds[kind]
	if !ok {
		return false
	}
	return m.match(normalizeText(item.Description))
}

// Items returns the line items of a section that belong to kind, in order.
func (t *Table) Items(section model.RoofSection, kind ItemKind) []model.InsuranceLineItem {
	var out []model.InsuranceLineItem
	for _, it := range section.LineItems {
		if t.Match(kind, it) {
			out = append(out, it)
		}
	}
	return out
}

var spaceRe = regexp.MustCompile(`\s+`)

func normalizeText(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(strings.ToLower(s), " "))
}
