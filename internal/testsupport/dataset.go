package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"tidybids/internal/bids"
)

// DatasetFile describes one record of a fixture dataset.
type DatasetFile struct {
	Path        string
	Metadata    map[string]bids.Value
	Companions  []string
	IntendedFor []string
}

// WriteDataset materializes the files under root and returns the matching
// collection with references resolved.
func WriteDataset(t testing.TB, root string, files []DatasetFile) *bids.Collection {
	t.Helper()

	collection := bids.NewCollection(root)
	for _, file := range files {
		for _, rel := range append([]string{file.Path}, file.Companions...) {
			abs := filepath.Join(root, rel)
			if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
				t.Fatalf("mkdir %s: %v", rel, err)
			}
			if err := os.WriteFile(abs, []byte(rel), 0o644); err != nil {
				t.Fatalf("write %s: %v", rel, err)
			}
		}
		if _, err := collection.Add(&bids.FileRecord{
			Path:        file.Path,
			Metadata:    file.Metadata,
			Companions:  file.Companions,
			IntendedFor: file.IntendedFor,
		}); err != nil {
			t.Fatalf("add %s: %v", file.Path, err)
		}
	}
	collection.ResolveReferences()
	return collection
}

// WriteManifest saves the collection's manifest beside the dataset and
// returns its path.
func WriteManifest(t testing.TB, collection *bids.Collection) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := collection.SaveManifest(path); err != nil {
		t.Fatalf("save manifest: %v", err)
	}
	return path
}
