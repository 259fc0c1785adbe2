package classify

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"tidybids/internal/bids"
	"tidybids/internal/catalog"
	"tidybids/internal/logging"
)

// Options controls a classification pass.
type Options struct {
	// Workers is the classification pool size; <= 0 means one per CPU.
	Workers int
}

// Run classifies the whole collection: entity sets are independent, so a
// worker pool processes them concurrently over the read-only snapshot.
// Workers publish per-set results through a channel and one final pass
// assembles them in canonical entity-key order, which keeps ranks and
// assignments deterministic regardless of worker interleaving.
func Run(ctx context.Context, collection *bids.Collection, cat *catalog.Catalog, logger *slog.Logger, opts Options) (*Summary, error) {
	log := logging.NewComponentLogger(logger, "classify")

	sets := make(map[string][]*bids.FileRecord)
	for _, record := range collection.Records() {
		key := bids.EntityKey(record)
		sets[key] = append(sets[key], record)
	}
	keys := make([]string, 0, len(sets))
	for key := range sets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(keys) && len(keys) > 0 {
		workers = len(keys)
	}

	jobs := make(chan string)
	results := make(chan *EntitySetSummary, len(keys))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				records := sets[key]
				fields := cat.FieldsFor(records[0].Datatype)
				set := classifyEntitySet(key, records, fields)
				resolveVariants(set, fields)
				results <- set
			}
		}()
	}

	dispatchErr := func() error {
		defer close(jobs)
		for _, key := range keys {
			select {
			case jobs <- key:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}()
	wg.Wait()
	close(results)
	if dispatchErr != nil {
		return nil, dispatchErr
	}

	summary := &Summary{assignments: make(map[int]Assignment, collection.Len())}
	for set := range results {
		summary.EntitySets = append(summary.EntitySets, set)
	}
	sort.Slice(summary.EntitySets, func(i, j int) bool {
		return summary.EntitySets[i].EntityKey < summary.EntitySets[j].EntityKey
	})
	groups := 0
	for _, set := range summary.EntitySets {
		groups += len(set.Groups)
		for _, group := range set.Groups {
			for _, id := range group.MemberIDs {
				summary.assignments[id] = Assignment{EntityKey: set.EntityKey, Rank: group.Rank}
			}
		}
	}

	log.Info("classification completed",
		logging.Int("files", collection.Len()),
		logging.Int("entity_sets", len(summary.EntitySets)),
		logging.Int("param_groups", groups),
		logging.Int("workers", workers),
	)
	return summary, nil
}
