package bids

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Entity is one key-value element of a structured BIDS filename.
type Entity struct {
	Key   string
	Value string
}

// entityOrder is the canonical position of each entity in a filename.
var entityOrder = []string{
	"sub", "ses", "task", "acq", "ce", "trc", "rec", "dir",
	"run", "mod", "echo", "flip", "inv", "mt", "part", "recording",
}

func entityRank(key string) int {
	for i, k := range entityOrder {
		if k == key {
			return i
		}
	}
	return len(entityOrder)
}

// ParseName splits a BIDS basename into its ordered entities, suffix, and
// extension. "sub-01_task-rest_bold.nii.gz" yields entities [sub-01,
// task-rest], suffix "bold", extension ".nii.gz".
func ParseName(base string) (entities []Entity, suffix, ext string, err error) {
	name := base
	if idx := strings.IndexByte(name, '.'); idx > 0 {
		ext = name[idx:]
		name = name[:idx]
	}
	chunks := strings.Split(name, "_")
	if len(chunks) < 2 {
		return nil, "", "", fmt.Errorf("filename %q has no suffix chunk", base)
	}
	suffix = chunks[len(chunks)-1]
	if strings.Contains(suffix, "-") {
		return nil, "", "", fmt.Errorf("filename %q ends in an entity, not a suffix", base)
	}
	for _, chunk := range chunks[:len(chunks)-1] {
		key, value, found := strings.Cut(chunk, "-")
		if !found || key == "" || value == "" {
			return nil, "", "", fmt.Errorf("filename %q has malformed entity %q", base, chunk)
		}
		entities = append(entities, Entity{Key: key, Value: value})
	}
	return entities, suffix, ext, nil
}

// ParsePath derives the structured fields of a record from its dataset-relative
// or absolute path: entities and suffix from the basename, datatype from the
// containing directory.
func ParsePath(path string) (entities []Entity, suffix, ext string, datatype Modality, err error) {
	entities, suffix, ext, err = ParseName(filepath.Base(path))
	if err != nil {
		return nil, "", "", ModalityOther, err
	}
	datatype = ParseModality(filepath.Base(filepath.Dir(path)))
	return entities, suffix, ext, datatype, nil
}

// EntityKey is the canonical identity of an entity set: every entity except
// subject and session, plus datatype and suffix, as sorted key-value pairs
// joined by underscores.
func EntityKey(record *FileRecord) string {
	pairs := make([]string, 0, len(record.Entities)+2)
	for _, entity := range record.Entities {
		if entity.Key == "sub" || entity.Key == "ses" {
			continue
		}
		pairs = append(pairs, entity.Key+"-"+entity.Value)
	}
	if record.Datatype != "" {
		pairs = append(pairs, "datatype-"+string(record.Datatype))
	}
	if record.Suffix != "" {
		pairs = append(pairs, "suffix-"+record.Suffix)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "_")
}

// ParseEntityKey reverses EntityKey into an entity map. datatype and suffix
// come back under their reserved keys.
func ParseEntityKey(key string) (map[string]string, error) {
	result := make(map[string]string)
	if strings.TrimSpace(key) == "" {
		return result, nil
	}
	for _, pair := range strings.Split(key, "_") {
		k, v, found := strings.Cut(pair, "-")
		if !found || k == "" || v == "" {
			return nil, fmt.Errorf("entity key %q has malformed pair %q", key, pair)
		}
		if _, dup := result[k]; dup {
			return nil, fmt.Errorf("entity key %q repeats entity %q", key, k)
		}
		result[k] = v
	}
	return result, nil
}

// RenameTarget computes the dataset-relative path a record moves to when its
// entity set is renamed to the given key. Subject, session, and run are kept
// from the record; every other entity, the suffix, and the datatype come from
// the target key.
func RenameTarget(record *FileRecord, key string) (string, error) {
	target, err := ParseEntityKey(key)
	if err != nil {
		return "", err
	}
	suffix := target["suffix"]
	if suffix == "" {
		suffix = record.Suffix
	}
	datatype := record.Datatype
	if dt, ok := target["datatype"]; ok {
		datatype = ParseModality(dt)
	}
	delete(target, "suffix")
	delete(target, "datatype")

	merged := make(map[string]string, len(target)+3)
	for k, v := range target {
		merged[k] = v
	}
	for _, pinned := range []string{"sub", "ses", "run"} {
		if value, ok := record.Entity(pinned); ok {
			merged[pinned] = value
		} else {
			delete(merged, pinned)
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := entityRank(keys[i]), entityRank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})

	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, k+"-"+merged[k])
	}
	parts = append(parts, suffix)
	base := strings.Join(parts, "_") + record.Extension

	dir := "sub-" + record.Subject()
	if session := record.Session(); session != "" {
		dir = filepath.Join(dir, "ses-"+session)
	}
	return filepath.Join(dir, string(datatype), base), nil
}

// SetAcquisition returns the entity key with its acq entity replaced (or
// added). Used by rename suggestions, which always grow the acq value.
func SetAcquisition(key, acqValue string) (string, error) {
	entities, err := ParseEntityKey(key)
	if err != nil {
		return "", err
	}
	entities["acq"] = acqValue
	pairs := make([]string, 0, len(entities))
	for k, v := range entities {
		pairs = append(pairs, k+"-"+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "_"), nil
}
