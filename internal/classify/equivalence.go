package classify

import (
	"math"

	"tidybids/internal/bids"
	"tidybids/internal/catalog"
)

// floatSlack absorbs representation noise so that a difference of exactly the
// configured tolerance still counts as equivalent.
const floatSlack = 1e-12

func roundTo(value float64, precision int) float64 {
	if precision < 0 {
		return value
	}
	scale := math.Pow(10, float64(precision))
	return math.Round(value*scale) / scale
}

func numbersEquivalent(a, b float64, spec catalog.FieldSpec) bool {
	ra := roundTo(a, spec.Precision)
	rb := roundTo(b, spec.Precision)
	diff := math.Abs(ra - rb)
	return diff <= spec.Tolerance+floatSlack
}

// valuesEquivalent applies the per-field equivalence rule: numeric values
// within tolerance after rounding, strings exact, sequences elementwise with
// equal length required. Mismatched kinds are non-equivalent.
func valuesEquivalent(a, b bids.Value, spec catalog.FieldSpec) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case bids.KindNumber:
		return numbersEquivalent(a.Num, b.Num, spec)
	case bids.KindSequence:
		if len(a.Seq) != len(b.Seq) {
			return false
		}
		for i := range a.Seq {
			if !numbersEquivalent(a.Seq[i], b.Seq[i], spec) {
				return false
			}
		}
		return true
	default:
		return a.Str == b.Str
	}
}

// recordsEquivalent compares two records on every catalog field. A field
// missing on one record and present on the other is non-equivalent, never
// imputed; missing on both is no constraint.
func recordsEquivalent(a, b *bids.FileRecord, fields []catalog.FieldSpec) bool {
	for _, spec := range fields {
		va, okA := a.Metadata[spec.Name]
		vb, okB := b.Metadata[spec.Name]
		switch {
		case !okA && !okB:
			continue
		case okA != okB:
			return false
		case !valuesEquivalent(va, vb, spec):
			return false
		}
	}
	return true
}
