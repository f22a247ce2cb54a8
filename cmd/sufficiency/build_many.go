package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/config"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/indexio"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/pipeline"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/resultcache"
)

var (
	buildManyBatchPath    string
	buildManyConcurrency  int
	buildManySaveToCache  bool
)

// batchEntry is one line of the --batch file: a snapshot's selection
// inputs. Each entry runs as an independent, self-contained pipeline.Run —
// spec.md §5 allows running independent top-level pipelines concurrently
// since no layer reads any other snapshot's state.
type batchEntry struct {
	SnapshotID string `json:"snapshot_id"`
	IndexPath  string `json:"index_path"`
	FormatID   string `json:"format_id"`
	ProfileID  string `json:"profile_id"`
	BracketID  string `json:"bracket_id"`
}

type batchResult struct {
	SnapshotID string              `json:"snapshot_id"`
	Error      string              `json:"error,omitempty"`
	Result     *pipeline.BuildResult `json:"result,omitempty"`
}

var buildManyCmd = &cobra.Command{
	Use:   "build-many",
	Short: "Run the pipeline over a batch of snapshots concurrently",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(buildManyBatchPath)
		if err != nil {
			return fmt.Errorf("read batch file %s: %w", buildManyBatchPath, err)
		}
		var entries []batchEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return fmt.Errorf("parse batch file %s: %w", buildManyBatchPath, err)
		}

		packSet, err := pipeline.LoadPacks(cfg.DataPackRoot, cfg.ManifestPath)
		if err != nil {
			return fmt.Errorf("load data packs: %w", err)
		}

		var store *resultcache.Store
		if buildManySaveToCache {
			store, err = resultcache.Open(cfg.ResultCachePath)
			if err != nil {
				return fmt.Errorf("open result cache: %w", err)
			}
			defer store.Close()
		}

		results := make([]batchResult, len(entries))

		g, _ := errgroup.WithContext(context.Background())
		g.SetLimit(buildManyConcurrency)

		for i, entry := range entries {
			i, entry := i, entry
			g.Go(func() error {
				results[i] = runBatchEntry(entry, packSet, store)
				return nil
			})
		}
		// errors are captured per-entry in results[i].Error, never aborting
		// the batch — one bad snapshot never prevents the rest from reporting.
		_ = g.Wait()

		sort.Slice(results, func(a, b int) bool { return results[a].SnapshotID < results[b].SnapshotID })

		encoded, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	},
}

func runBatchEntry(entry batchEntry, packSet pipeline.Packs, store *resultcache.Store) batchResult {
	req := pipeline.Request{
		FormatID:     entry.FormatID,
		ProfileID:    entry.ProfileID,
		BracketID:    entry.BracketID,
		DBSnapshotID: entry.SnapshotID,
	}
	if entry.IndexPath != "" {
		index, err := indexio.Load(entry.IndexPath)
		if err != nil {
			log.WithError(err).WithField("snapshot_id", entry.SnapshotID).Warn("primitive index unavailable; layers 1+ will SKIP")
		} else {
			req.Index = &index
		}
	}

	result, err := pipeline.Run(req, packSet)
	if err != nil {
		return batchResult{SnapshotID: entry.SnapshotID, Error: err.Error()}
	}
	if store != nil {
		if err := store.Put(result); err != nil {
			return batchResult{SnapshotID: entry.SnapshotID, Error: fmt.Sprintf("cache build result: %v", err)}
		}
	}
	return batchResult{SnapshotID: entry.SnapshotID, Result: &result}
}

func init() {
	buildManyCmd.Flags().StringVar(&buildManyBatchPath, "batch", "", "path to a JSON array of batch entries (snapshot_id, index_path, format_id, profile_id, bracket_id)")
	buildManyCmd.Flags().IntVar(&buildManyConcurrency, "concurrency", 4, "maximum number of snapshots built concurrently")
	buildManyCmd.Flags().BoolVar(&buildManySaveToCache, "save", false, "save each result to the local result cache")
	buildManyCmd.MarkFlagRequired("batch")
}
