package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tidybids/internal/bids"
	"tidybids/internal/testsupport"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute %v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func writeCLIConfig(t *testing.T, base, dataset string) string {
	t.Helper()
	path := filepath.Join(base, "config.toml")
	contents := strings.Join([]string{
		"[paths]",
		`dataset_dir = "` + dataset + `"`,
		`staging_dir = "` + filepath.Join(base, "staging") + `"`,
		`log_dir = "` + filepath.Join(base, "logs") + `"`,
		"",
		"[classify]",
		"workers = 1",
		"",
		"[runstore]",
		"enabled = true",
		`path = "` + filepath.Join(base, "history.db") + `"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestClassifyAndApplyEndToEnd(t *testing.T) {
	base := t.TempDir()
	dataset := filepath.Join(base, "dataset")

	collection := testsupport.WriteDataset(t, dataset, []testsupport.DatasetFile{
		{Path: "sub-01/func/sub-01_task-rest_bold.nii.gz",
			Metadata: map[string]bids.Value{"RepetitionTime": bids.NumberValue(2.0)}},
		{Path: "sub-02/func/sub-02_task-rest_bold.nii.gz",
			Metadata: map[string]bids.Value{"RepetitionTime": bids.NumberValue(2.0)}},
		{Path: "sub-03/func/sub-03_task-rest_bold.nii.gz",
			Metadata: map[string]bids.Value{"RepetitionTime": bids.NumberValue(2.5)}},
	})
	manifest := filepath.Join(base, "manifest.json")
	if err := collection.SaveManifest(manifest); err != nil {
		t.Fatalf("save manifest: %v", err)
	}

	configPath := writeCLIConfig(t, base, dataset)
	outDir := filepath.Join(base, "out")

	runCLI(t, "--config", configPath, "classify", "--manifest", manifest, "--out", outDir, "--json")

	summaryPath := filepath.Join(outDir, "summary.csv")
	for _, artifact := range []string{"summary.csv", "files.csv", "acq_groups.csv"} {
		if _, err := os.Stat(filepath.Join(outDir, artifact)); err != nil {
			t.Fatalf("artifact %s missing: %v", artifact, err)
		}
	}

	// Accept the suggested rename for the variant group.
	editSummary(t, summaryPath)

	runCLI(t, "--config", configPath, "apply",
		"--manifest", manifest, "--edits", summaryPath, "--json")

	renamed := filepath.Join(dataset, "sub-03/func/sub-03_task-rest_acq-VARIANTRepetitionTime_bold.nii.gz")
	if _, err := os.Stat(renamed); err != nil {
		t.Fatalf("renamed file missing: %v", err)
	}

	// The manifest was rewritten with the new path.
	reloaded, err := bids.LoadManifest(manifest, dataset)
	if err != nil {
		t.Fatalf("reload manifest: %v", err)
	}
	if _, ok := reloaded.ByPath("sub-03/func/sub-03_task-rest_acq-VARIANTRepetitionTime_bold.nii.gz"); !ok {
		t.Fatalf("manifest not updated with renamed path")
	}

	history := runCLI(t, "--config", configPath, "runs", "--json")
	if !strings.Contains(history, "classify") || !strings.Contains(history, "apply") {
		t.Fatalf("run history missing entries:\n%s", history)
	}
}

// editSummary copies each row's suggested_rename into rename_to for every
// variant row that carries a suggestion.
func editSummary(t *testing.T, path string) {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open summary: %v", err)
	}
	rows, err := csv.NewReader(file).ReadAll()
	_ = file.Close()
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}

	header := rows[0]
	suggestedCol, renameCol := -1, -1
	for i, name := range header {
		switch name {
		case "suggested_rename":
			suggestedCol = i
		case "rename_to":
			renameCol = i
		}
	}
	if suggestedCol < 0 || renameCol < 0 {
		t.Fatalf("summary header missing editable columns: %v", header)
	}
	edited := 0
	for _, row := range rows[1:] {
		if row[suggestedCol] != "" {
			row[renameCol] = row[suggestedCol]
			edited++
		}
	}
	if edited == 0 {
		t.Fatalf("no suggested renames to accept")
	}

	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("rewrite summary: %v", err)
	}
	writer := csv.NewWriter(out)
	if err := writer.WriteAll(rows); err != nil {
		t.Fatalf("write summary: %v", err)
	}
	writer.Flush()
	if err := out.Close(); err != nil {
		t.Fatalf("close summary: %v", err)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "config.toml")

	out := runCLI(t, "config", "init", "--path", target)
	if !strings.Contains(out, target) {
		t.Fatalf("init output missing path: %s", out)
	}

	shown := runCLI(t, "--config", target, "config", "show")
	if !strings.Contains(shown, "[paths]") || !strings.Contains(shown, "staging_dir") {
		t.Fatalf("show output incomplete:\n%s", shown)
	}
}
