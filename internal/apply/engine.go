package apply

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"tidybids/internal/bids"
	"tidybids/internal/catalog"
	"tidybids/internal/classify"
	"tidybids/internal/errkind"
	"tidybids/internal/fileutil"
	"tidybids/internal/logging"
	"tidybids/internal/staging"
)

const lockFileName = ".tidybids.lock"

// Engine applies one batch of edit instructions to the file collection as a
// single transaction: every mutation is computed against a clone of the
// pre-edit snapshot, file moves are staged into a shadow area, and the disk
// phase either completes entirely or is rolled back from the staged copies.
type Engine struct {
	stagingDir string
	logger     *slog.Logger
}

// NewEngine constructs an apply engine staging into the given directory.
func NewEngine(stagingDir string, logger *slog.Logger) *Engine {
	return &Engine{
		stagingDir: stagingDir,
		logger:     logging.NewComponentLogger(logger, "apply"),
	}
}

// Result reports the outcome of one apply run.
type Result struct {
	RunID string
	// Collection is the post-edit snapshot; the input collection is never
	// mutated. Callers persist it (manifest) and re-run classification.
	Collection *bids.Collection
	Renamed    int
	Merged     int
	Deleted    int
	Warnings   []string
}

type fileMove struct {
	oldRel string
	newRel string
}

// Run executes the batch. Validation failures abort before any mutation; a
// failure during the disk phase restores the pre-edit file tree from the
// staging area and returns an error, leaving the caller's collection
// untouched either way.
func (e *Engine) Run(ctx context.Context, collection *bids.Collection, summary *classify.Summary, cat *catalog.Catalog, instructions []EditInstruction) (*Result, error) {
	actionable, warnings, err := validate(collection, summary, instructions)
	if err != nil {
		return nil, err
	}

	result := &Result{Collection: collection, Warnings: warnings}
	if len(actionable) == 0 {
		// Even an all-skipped batch gets a run id so the history row has a key.
		result.RunID = uuid.NewString()
		return result, nil
	}

	clone := collection.Clone()
	var moves []fileMove
	var deletes []string

	// Deletes and merges run before renames so that a rename can reuse paths
	// freed by a delete in the same batch, whichever order the rows came in.
	for _, instruction := range actionable {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if instruction.RenameTo != "" {
			continue
		}
		set := summary.EntitySet(instruction.EntityKey)
		group := set.Group(instruction.Rank)
		if instruction.MergeRank() == 0 {
			removed, orphanWarnings := deleteGroup(clone, group)
			deletes = append(deletes, removed...)
			result.Warnings = append(result.Warnings, orphanWarnings...)
			result.Deleted += group.Count()
			continue
		}
		mergeGroup(clone, cat.FieldsFor(set.Modality), group, set.Group(instruction.MergeRank()))
		result.Merged += group.Count()
	}
	for _, instruction := range actionable {
		if instruction.RenameTo == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		set := summary.EntitySet(instruction.EntityKey)
		group := set.Group(instruction.Rank)
		groupMoves, err := e.planRename(clone, group, instruction.RenameTo)
		if err != nil {
			return nil, err
		}
		moves = append(moves, groupMoves...)
		result.Renamed += group.Count()
	}

	if err := checkReferentialIntegrity(collection, clone); err != nil {
		return nil, err
	}

	runID, err := e.commit(collection.Root(), moves, deletes)
	if err != nil {
		return nil, err
	}
	if runID == "" {
		// Metadata-only batches never touch the staging area but still get
		// a run id for the history store.
		runID = uuid.NewString()
	}

	result.RunID = runID
	result.Collection = clone
	e.logger.Info("apply committed",
		logging.String(logging.FieldRunID, runID),
		logging.Int("renamed", result.Renamed),
		logging.Int("merged", result.Merged),
		logging.Int("deleted", result.Deleted),
		logging.Int("warnings", len(result.Warnings)),
	)
	return result, nil
}

// planRename rewrites every member record (and its companions) on the clone
// and returns the corresponding disk moves. Reference links naming the old
// paths are rewritten by Collection.Rename.
func (e *Engine) planRename(clone *bids.Collection, group *classify.ParamGroup, renameTo string) ([]fileMove, error) {
	var moves []fileMove
	for _, id := range group.MemberIDs {
		record := clone.Get(id)
		if record == nil {
			continue
		}
		oldRel := record.Path
		newRel, err := bids.RenameTarget(record, renameTo)
		if err != nil {
			return nil, errkind.Wrap(errkind.ErrValidation, "apply", "rename", err.Error(), nil)
		}
		if err := clone.Rename(id, newRel); err != nil {
			return nil, errkind.Wrap(errkind.ErrConflict, "apply", "rename", err.Error(), nil)
		}
		moves = append(moves, fileMove{oldRel: oldRel, newRel: newRel})

		companions := record.Companions
		record.Companions = make([]string, 0, len(companions))
		for _, companion := range companions {
			target := companionTarget(companion, oldRel, newRel)
			record.Companions = append(record.Companions, target)
			moves = append(moves, fileMove{oldRel: companion, newRel: target})
		}
	}
	return moves, nil
}

// companionTarget maps a companion path alongside its primary file's move.
// Companions sharing the primary's stem (sidecar json, bval/bvec) keep their
// own extension behind the new stem; anything else just follows into the new
// directory.
func companionTarget(companion, oldRel, newRel string) string {
	oldStem := strings.TrimSuffix(filepath.Base(oldRel), extensionOf(oldRel))
	newStem := strings.TrimSuffix(filepath.Base(newRel), extensionOf(newRel))
	base := filepath.Base(companion)
	if strings.HasPrefix(base, oldStem) {
		return filepath.Join(filepath.Dir(newRel), newStem+strings.TrimPrefix(base, oldStem))
	}
	return filepath.Join(filepath.Dir(newRel), base)
}

func extensionOf(path string) string {
	base := filepath.Base(path)
	if idx := strings.IndexByte(base, '.'); idx > 0 {
		return base[idx:]
	}
	return ""
}

// deleteGroup removes member records and companions from the clone and lists
// the disk paths to remove. Reference sources that lose their last target are
// reported as warnings, never deleted in cascade.
func deleteGroup(clone *bids.Collection, group *classify.ParamGroup) ([]string, []string) {
	var deletes []string
	var warnings []string
	for _, id := range group.MemberIDs {
		record := clone.Get(id)
		if record == nil {
			continue
		}
		deletes = append(deletes, record.Path)
		deletes = append(deletes, record.Companions...)
		for _, sourceID := range clone.Remove(id) {
			if source := clone.Get(sourceID); source != nil {
				warnings = append(warnings, fmt.Sprintf(
					"reference source %s lost its last target; review before deleting it", source.Path))
			}
		}
	}
	return deletes, warnings
}

// mergeGroup rewrites each member's catalog metadata to match the target
// group's representative: fields the target carries are overwritten, fields
// it lacks are removed, so the next classification pass places the records
// in the target group. Files are not renamed by a merge. Re-applying an
// already-applied merge rewrites identical values, so the operation is
// idempotent.
func mergeGroup(clone *bids.Collection, fields []catalog.FieldSpec, source, target *classify.ParamGroup) {
	for _, id := range source.MemberIDs {
		record := clone.Get(id)
		if record == nil {
			continue
		}
		for _, field := range fields {
			value, present := target.Representative[field.Name]
			if !present {
				delete(record.Metadata, field.Name)
				continue
			}
			if value.Kind == bids.KindSequence {
				value.Seq = append([]float64(nil), value.Seq...)
			}
			record.Metadata[field.Name] = value
		}
	}
}

// checkReferentialIntegrity rejects the batch when the post-edit snapshot
// carries a dangling reference that the pre-edit snapshot did not.
func checkReferentialIntegrity(before, after *bids.Collection) error {
	after.ResolveReferences()
	baseline := make(map[string]struct{}, len(before.Unresolved))
	for _, ref := range before.Unresolved {
		baseline[ref.Target] = struct{}{}
	}
	for _, ref := range after.Unresolved {
		if _, known := baseline[ref.Target]; !known {
			return errkind.Wrap(errkind.ErrReferentialIntegrity, "apply", "verify",
				fmt.Sprintf("%s would point at missing file %s after commit", ref.SourcePath, ref.Target), nil)
		}
	}
	return nil
}

// commit performs the disk phase under the dataset lock: stash every touched
// file into the staging area, then execute moves and deletes. Any failure
// restores the already-executed operations from the stash and keeps the area
// on disk for inspection.
func (e *Engine) commit(root string, moves []fileMove, deletes []string) (string, error) {
	deletes = dedupe(deletes)
	if len(moves) == 0 && len(deletes) == 0 {
		return "", nil
	}

	lock := flock.New(filepath.Join(root, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return "", errkind.Wrap(errkind.ErrTransient, "apply", "lock dataset", "", err)
	}
	if !locked {
		return "", errkind.Wrap(errkind.ErrTransient, "apply", "lock dataset",
			"another apply run holds the dataset lock", nil)
	}
	defer func() { _ = lock.Unlock() }()

	area, err := staging.NewArea(e.stagingDir)
	if err != nil {
		return "", errkind.Wrap(errkind.ErrTransient, "apply", "stage", "", err)
	}

	deleted := make(map[string]struct{}, len(deletes))
	for _, rel := range deletes {
		deleted[rel] = struct{}{}
	}
	for _, move := range moves {
		if _, freed := deleted[move.newRel]; !freed && fileutil.Exists(filepath.Join(root, move.newRel)) {
			_ = area.Discard()
			return "", errkind.Wrap(errkind.ErrConflict, "apply", "stage",
				fmt.Sprintf("rename target %s already exists on disk", move.newRel), nil)
		}
		if err := area.Stash(move.oldRel, filepath.Join(root, move.oldRel)); err != nil {
			_ = area.Discard()
			return "", errkind.Wrap(errkind.ErrTransient, "apply", "stage", "", err)
		}
	}
	for _, rel := range deletes {
		if err := area.Stash(rel, filepath.Join(root, rel)); err != nil {
			_ = area.Discard()
			return "", errkind.Wrap(errkind.ErrTransient, "apply", "stage", "", err)
		}
	}

	var executedMoves []fileMove
	var executedDeletes []string
	rollback := func() {
		for i := len(executedMoves) - 1; i >= 0; i-- {
			move := executedMoves[i]
			if err := fileutil.MovePath(filepath.Join(root, move.newRel), filepath.Join(root, move.oldRel)); err != nil {
				e.logger.Error("rollback move failed",
					logging.String("path", move.oldRel),
					logging.String("staging_area", area.Dir()),
					logging.Error(err),
				)
			}
		}
		for _, rel := range executedDeletes {
			if err := area.Restore(rel, filepath.Join(root, rel)); err != nil {
				e.logger.Error("rollback restore failed",
					logging.String("path", rel),
					logging.String("staging_area", area.Dir()),
					logging.Error(err),
				)
			}
		}
	}

	// Removals run first so a move may land on a path freed in this batch.
	for _, rel := range deletes {
		if err := os.Remove(filepath.Join(root, rel)); err != nil {
			rollback()
			return "", errkind.Wrap(errkind.ErrTransient, "apply", "commit",
				fmt.Sprintf("delete %s", rel), err)
		}
		executedDeletes = append(executedDeletes, rel)
	}
	for _, move := range moves {
		if err := fileutil.MovePath(filepath.Join(root, move.oldRel), filepath.Join(root, move.newRel)); err != nil {
			rollback()
			return "", errkind.Wrap(errkind.ErrTransient, "apply", "commit",
				fmt.Sprintf("move %s", move.oldRel), err)
		}
		executedMoves = append(executedMoves, move)
	}

	runID := area.RunID()
	if err := area.Discard(); err != nil {
		e.logger.Warn("failed to discard staging area",
			logging.String("staging_area", area.Dir()),
			logging.Error(err),
		)
	}
	return runID, nil
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, path := range paths {
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	return out
}
