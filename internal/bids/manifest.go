package bids

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// The manifest is the interface to the out-of-scope metadata reader: a JSON
// snapshot of every file's path, metadata map, companions, and IntendedFor
// targets. All paths are dataset-relative.

const manifestVersion = 1

type manifest struct {
	Version int            `json:"version"`
	Root    string         `json:"root,omitempty"`
	Files   []manifestFile `json:"files"`
}

type manifestFile struct {
	Path        string           `json:"path"`
	Metadata    map[string]Value `json:"metadata,omitempty"`
	Companions  []string         `json:"companions,omitempty"`
	IntendedFor []string         `json:"intended_for,omitempty"`
}

// LoadManifest reads a collection snapshot. The root recorded in the manifest
// may be overridden by the caller (pass "" to keep it).
func LoadManifest(path, rootOverride string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("manifest %s: unsupported version %d", path, m.Version)
	}
	root := m.Root
	if rootOverride != "" {
		root = rootOverride
	}
	collection := NewCollection(root)
	for _, file := range m.Files {
		record := &FileRecord{
			Path:        file.Path,
			Metadata:    file.Metadata,
			Companions:  file.Companions,
			IntendedFor: file.IntendedFor,
		}
		if _, err := collection.Add(record); err != nil {
			return nil, fmt.Errorf("manifest %s: %w", path, err)
		}
	}
	collection.ResolveReferences()
	return collection, nil
}

// SaveManifest writes the collection snapshot, records sorted by path for a
// stable diffable artifact.
func (c *Collection) SaveManifest(path string) error {
	records := c.Records()
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })

	m := manifest{Version: manifestVersion, Root: c.root, Files: make([]manifestFile, 0, len(records))}
	for _, record := range records {
		m.Files = append(m.Files, manifestFile{
			Path:        record.Path,
			Metadata:    record.Metadata,
			Companions:  record.Companions,
			IntendedFor: record.IntendedFor,
		})
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure manifest directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
