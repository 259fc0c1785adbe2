package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"tidybids/internal/bids"
	"tidybids/internal/errkind"
)

//go:embed default_catalog.toml
var defaultCatalog string

// FieldSpec describes how one metadata field participates in grouping for a
// modality. Tolerance and precision apply to numeric values only; string and
// sequence fields compare exactly (sequences elementwise under tolerance).
type FieldSpec struct {
	Name string `toml:"name"`
	// Tolerance is the maximum absolute difference under which two numeric
	// values are still equivalent.
	Tolerance float64 `toml:"tolerance"`
	// Precision rounds values to this many decimal places before comparison.
	// Negative means no rounding; a TOML entry that omits precision gets -1,
	// never 0 (which would round to whole integers).
	Precision int `toml:"precision"`
	// SuggestVariantRename marks the field as a variant-naming trigger: a
	// diff on it contributes to the suggested rename token.
	SuggestVariantRename bool `toml:"suggest_variant_rename"`
}

// Catalog holds the per-modality field lists in declaration order. A field
// absent for a modality is ignored for grouping in that modality.
type Catalog struct {
	fields map[bids.Modality][]FieldSpec
}

// rawFieldSpec is the TOML shape; the precision pointer distinguishes an
// omitted key from an explicit 0.
type rawFieldSpec struct {
	Name                 string  `toml:"name"`
	Tolerance            float64 `toml:"tolerance"`
	Precision            *int    `toml:"precision"`
	SuggestVariantRename bool    `toml:"suggest_variant_rename"`
}

func (r rawFieldSpec) spec() FieldSpec {
	precision := -1
	if r.Precision != nil {
		precision = *r.Precision
	}
	return FieldSpec{
		Name:                 r.Name,
		Tolerance:            r.Tolerance,
		Precision:            precision,
		SuggestVariantRename: r.SuggestVariantRename,
	}
}

type rawCatalog struct {
	Anat  []rawFieldSpec `toml:"anat"`
	Dwi   []rawFieldSpec `toml:"dwi"`
	Fmap  []rawFieldSpec `toml:"fmap"`
	Func  []rawFieldSpec `toml:"func"`
	Perf  []rawFieldSpec `toml:"perf"`
	Other []rawFieldSpec `toml:"other"`
}

// New builds a catalog from explicit per-modality field lists, preserving
// slice order as declaration order.
func New(fields map[bids.Modality][]FieldSpec) (*Catalog, error) {
	catalog := &Catalog{fields: make(map[bids.Modality][]FieldSpec, len(fields))}
	for modality, specs := range fields {
		catalog.fields[modality] = append([]FieldSpec(nil), specs...)
	}
	if err := catalog.validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Default returns the embedded catalog covering the standard BIDS
// acquisition fields.
func Default() (*Catalog, error) {
	return parse([]byte(defaultCatalog))
}

// Load reads a catalog from a TOML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errkind.Wrap(errkind.ErrNotFound, "catalog", "load", path, err)
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	catalog, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return catalog, nil
}

func parse(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	catalog := &Catalog{fields: map[bids.Modality][]FieldSpec{
		bids.ModalityAnat:  fieldSpecs(raw.Anat),
		bids.ModalityDwi:   fieldSpecs(raw.Dwi),
		bids.ModalityFmap:  fieldSpecs(raw.Fmap),
		bids.ModalityFunc:  fieldSpecs(raw.Func),
		bids.ModalityPerf:  fieldSpecs(raw.Perf),
		bids.ModalityOther: fieldSpecs(raw.Other),
	}}
	if err := catalog.validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

func fieldSpecs(raw []rawFieldSpec) []FieldSpec {
	if raw == nil {
		return nil
	}
	specs := make([]FieldSpec, len(raw))
	for i, r := range raw {
		specs[i] = r.spec()
	}
	return specs
}

func (c *Catalog) validate() error {
	for modality, specs := range c.fields {
		seen := make(map[string]struct{}, len(specs))
		for _, spec := range specs {
			name := strings.TrimSpace(spec.Name)
			if name == "" {
				return fmt.Errorf("%s: field with empty name", modality)
			}
			if _, dup := seen[name]; dup {
				return fmt.Errorf("%s: field %q declared twice", modality, name)
			}
			seen[name] = struct{}{}
			if spec.Tolerance < 0 {
				return fmt.Errorf("%s.%s: tolerance must be >= 0", modality, name)
			}
		}
	}
	return nil
}

// FieldsFor returns the relevant field specs for a modality in declaration
// order. The returned slice must not be mutated.
func (c *Catalog) FieldsFor(modality bids.Modality) []FieldSpec {
	return c.fields[modality]
}

// Spec looks up one field's spec for a modality.
func (c *Catalog) Spec(modality bids.Modality, field string) (FieldSpec, bool) {
	for _, spec := range c.fields[modality] {
		if spec.Name == field {
			return spec, true
		}
	}
	return FieldSpec{}, false
}
