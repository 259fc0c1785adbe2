package bids

import (
	"fmt"
	"sort"
)

// Collection is a snapshot of the file collection under curation: an arena of
// FileRecords plus the cross-file reference graph (fieldmap IntendedFor).
// Classification passes treat it as read-only; the apply engine works on a
// Clone and swaps the result in on commit.
type Collection struct {
	root     string
	records  []*FileRecord
	byPath   map[string]int
	outgoing map[int][]int
	incoming map[int][]int

	// Unresolved lists IntendedFor values that matched no record at load time.
	Unresolved []UnresolvedRef
}

// UnresolvedRef is an IntendedFor entry whose target path matched no record.
type UnresolvedRef struct {
	SourcePath string
	Target     string
}

func (u UnresolvedRef) String() string {
	return u.SourcePath + " -> " + u.Target
}

// NewCollection creates an empty collection rooted at the dataset directory.
func NewCollection(root string) *Collection {
	return &Collection{
		root:     root,
		byPath:   make(map[string]int),
		outgoing: make(map[int][]int),
		incoming: make(map[int][]int),
	}
}

// Root returns the dataset root directory.
func (c *Collection) Root() string { return c.root }

// Add inserts a record, assigning its arena ID and deriving entities, suffix,
// and datatype from the path when not already set. Paths are dataset-relative
// and must be unique.
func (c *Collection) Add(record *FileRecord) (*FileRecord, error) {
	if record == nil {
		return nil, fmt.Errorf("nil record")
	}
	if _, exists := c.byPath[record.Path]; exists {
		return nil, fmt.Errorf("duplicate path %q", record.Path)
	}
	if len(record.Entities) == 0 {
		entities, suffix, ext, datatype, err := ParsePath(record.Path)
		if err != nil {
			return nil, err
		}
		record.Entities = entities
		record.Suffix = suffix
		record.Extension = ext
		record.Datatype = datatype
	}
	if record.Metadata == nil {
		record.Metadata = make(map[string]Value)
	}
	record.ID = len(c.records)
	c.records = append(c.records, record)
	c.byPath[record.Path] = record.ID
	return record, nil
}

// ResolveReferences rebuilds the reference graph from every record's
// IntendedFor paths. Values matching no record are collected in Unresolved.
// Call after the last Add and after any batch of path rewrites.
func (c *Collection) ResolveReferences() {
	c.outgoing = make(map[int][]int)
	c.incoming = make(map[int][]int)
	c.Unresolved = nil
	for _, record := range c.records {
		if record == nil {
			continue
		}
		for _, target := range record.IntendedFor {
			targetID, ok := c.byPath[target]
			if !ok {
				c.Unresolved = append(c.Unresolved, UnresolvedRef{SourcePath: record.Path, Target: target})
				continue
			}
			c.outgoing[record.ID] = append(c.outgoing[record.ID], targetID)
			c.incoming[targetID] = append(c.incoming[targetID], record.ID)
		}
	}
}

// Get returns the record with the given arena ID, or nil if removed.
func (c *Collection) Get(id int) *FileRecord {
	if id < 0 || id >= len(c.records) {
		return nil
	}
	return c.records[id]
}

// ByPath looks a record up by its dataset-relative path.
func (c *Collection) ByPath(path string) (*FileRecord, bool) {
	id, ok := c.byPath[path]
	if !ok {
		return nil, false
	}
	return c.records[id], true
}

// Records returns the live records in arena order.
func (c *Collection) Records() []*FileRecord {
	out := make([]*FileRecord, 0, len(c.records))
	for _, record := range c.records {
		if record != nil {
			out = append(out, record)
		}
	}
	return out
}

// Len counts live records.
func (c *Collection) Len() int {
	n := 0
	for _, record := range c.records {
		if record != nil {
			n++
		}
	}
	return n
}

// ReferencesFrom returns ids of records the given record points at.
func (c *Collection) ReferencesFrom(id int) []int {
	return append([]int(nil), c.outgoing[id]...)
}

// ReferencesTo returns ids of records pointing at the given record.
func (c *Collection) ReferencesTo(id int) []int {
	return append([]int(nil), c.incoming[id]...)
}

// Rename moves a record to a new dataset-relative path, re-deriving its
// structured fields and rewriting every IntendedFor entry that named the old
// path. The reference graph is id-keyed, so edges survive unchanged.
func (c *Collection) Rename(id int, newPath string) error {
	record := c.Get(id)
	if record == nil {
		return fmt.Errorf("rename: no record %d", id)
	}
	if _, exists := c.byPath[newPath]; exists {
		return fmt.Errorf("rename: path %q already present", newPath)
	}
	entities, suffix, ext, datatype, err := ParsePath(newPath)
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	oldPath := record.Path
	delete(c.byPath, oldPath)
	record.Path = newPath
	record.Entities = entities
	record.Suffix = suffix
	record.Extension = ext
	record.Datatype = datatype
	c.byPath[newPath] = id

	for _, sourceID := range c.incoming[id] {
		source := c.Get(sourceID)
		if source == nil {
			continue
		}
		for i, target := range source.IntendedFor {
			if target == oldPath {
				source.IntendedFor[i] = newPath
			}
		}
	}
	return nil
}

// Remove drops a record and strips it from every incoming reference list.
// It returns the ids of reference sources that lost their last target, which
// callers surface as warnings rather than cascading the delete.
func (c *Collection) Remove(id int) []int {
	record := c.Get(id)
	if record == nil {
		return nil
	}
	var orphanedSources []int
	for _, sourceID := range c.incoming[id] {
		source := c.Get(sourceID)
		if source == nil {
			continue
		}
		kept := source.IntendedFor[:0]
		for _, target := range source.IntendedFor {
			if target != record.Path {
				kept = append(kept, target)
			}
		}
		source.IntendedFor = kept
		c.outgoing[sourceID] = removeID(c.outgoing[sourceID], id)
		if len(c.outgoing[sourceID]) == 0 {
			orphanedSources = append(orphanedSources, sourceID)
		}
	}
	for _, targetID := range c.outgoing[id] {
		c.incoming[targetID] = removeID(c.incoming[targetID], id)
	}
	delete(c.byPath, record.Path)
	delete(c.outgoing, id)
	delete(c.incoming, id)
	c.records[id] = nil
	sort.Ints(orphanedSources)
	return orphanedSources
}

// Clone deep-copies the collection, preserving arena ids.
func (c *Collection) Clone() *Collection {
	clone := NewCollection(c.root)
	clone.records = make([]*FileRecord, len(c.records))
	for i, record := range c.records {
		if record != nil {
			clone.records[i] = record.Clone()
			clone.byPath[record.Path] = i
		}
	}
	for id, targets := range c.outgoing {
		clone.outgoing[id] = append([]int(nil), targets...)
	}
	for id, sources := range c.incoming {
		clone.incoming[id] = append([]int(nil), sources...)
	}
	clone.Unresolved = append([]UnresolvedRef(nil), c.Unresolved...)
	return clone
}

func removeID(ids []int, id int) []int {
	kept := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			kept = append(kept, candidate)
		}
	}
	return kept
}
