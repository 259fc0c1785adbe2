package bids

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Modality is the BIDS datatype directory a file lives under.
type Modality string

const (
	ModalityAnat  Modality = "anat"
	ModalityDwi   Modality = "dwi"
	ModalityFmap  Modality = "fmap"
	ModalityFunc  Modality = "func"
	ModalityPerf  Modality = "perf"
	ModalityOther Modality = "other"
)

// ParseModality maps a datatype directory name onto the modality enum.
// Unknown datatypes fold into ModalityOther rather than failing.
func ParseModality(value string) Modality {
	switch Modality(strings.ToLower(strings.TrimSpace(value))) {
	case ModalityAnat:
		return ModalityAnat
	case ModalityDwi:
		return ModalityDwi
	case ModalityFmap:
		return ModalityFmap
	case ModalityFunc:
		return ModalityFunc
	case ModalityPerf:
		return ModalityPerf
	default:
		return ModalityOther
	}
}

// ValueKind discriminates the metadata value union.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindSequence
)

// Value is one sidecar metadata value: a number, a string, or an ordered
// sequence of numbers (e.g. SliceTiming).
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Seq  []float64
}

func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }

func SequenceValue(seq ...float64) Value {
	cp := make([]float64, len(seq))
	copy(cp, seq)
	return Value{Kind: KindSequence, Seq: cp}
}

// String renders the value for reports and diffs.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return trimFloat(v.Num)
	case KindSequence:
		parts := make([]string, len(v.Seq))
		for i, n := range v.Seq {
			parts[i] = trimFloat(n)
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return v.Str
	}
}

func trimFloat(n float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", n), "0"), ".")
}

// MarshalJSON emits the natural JSON shape for each kind.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindSequence:
		return json.Marshal(v.Seq)
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON detects the kind from the JSON shape.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case strings.HasPrefix(trimmed, "["):
		var seq []float64
		if err := json.Unmarshal(data, &seq); err != nil {
			return fmt.Errorf("metadata sequence: %w", err)
		}
		*v = Value{Kind: KindSequence, Seq: seq}
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("metadata string: %w", err)
		}
		*v = Value{Kind: KindString, Str: s}
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("metadata number: %w", err)
		}
		*v = Value{Kind: KindNumber, Num: n}
	}
	return nil
}

// FileRecord is one imaging file plus the acquisition metadata its sidecar
// reported. Records are rebuilt from the manifest on every pass; the ID is a
// dense arena index assigned by the owning Collection.
type FileRecord struct {
	ID          int
	Path        string
	Entities    []Entity
	Suffix      string
	Extension   string
	Datatype    Modality
	Metadata    map[string]Value
	Companions  []string
	IntendedFor []string
}

// Entity returns the value of one filename entity (e.g. "task") if present.
func (r *FileRecord) Entity(key string) (string, bool) {
	for _, entity := range r.Entities {
		if entity.Key == key {
			return entity.Value, true
		}
	}
	return "", false
}

// Subject returns the sub- entity value.
func (r *FileRecord) Subject() string {
	value, _ := r.Entity("sub")
	return value
}

// Session returns the ses- entity value; empty for single-session datasets.
func (r *FileRecord) Session() string {
	value, _ := r.Entity("ses")
	return value
}

// Clone deep-copies the record.
func (r *FileRecord) Clone() *FileRecord {
	cp := *r
	cp.Entities = append([]Entity(nil), r.Entities...)
	cp.Companions = append([]string(nil), r.Companions...)
	cp.IntendedFor = append([]string(nil), r.IntendedFor...)
	cp.Metadata = make(map[string]Value, len(r.Metadata))
	for key, value := range r.Metadata {
		if value.Kind == KindSequence {
			value.Seq = append([]float64(nil), value.Seq...)
		}
		cp.Metadata[key] = value
	}
	return &cp
}
