package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/config"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/indexio"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/pipeline"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/resultcache"
)

var (
	buildIndexPath       string
	buildFormatID        string
	buildProfileID       string
	buildBracketID       string
	buildOverrideModelID string
	buildDBSnapshotID    string
	buildSaveToCache     bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run the full sufficiency pipeline for one snapshot/profile/bracket",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		req := requestFromFlags(cfg)

		packSet, err := pipeline.LoadPacks(cfg.DataPackRoot, cfg.ManifestPath)
		if err != nil {
			return fmt.Errorf("load data packs: %w", err)
		}

		result, err := pipeline.Run(req, packSet)
		if err != nil {
			return fmt.Errorf("run pipeline: %w", err)
		}

		log.WithFields(logrusFields(result)).Info("build complete")

		if buildSaveToCache {
			store, err := resultcache.Open(cfg.ResultCachePath)
			if err != nil {
				return fmt.Errorf("open result cache: %w", err)
			}
			defer store.Close()
			if err := store.Put(result); err != nil {
				return fmt.Errorf("cache build result: %w", err)
			}
		}

		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVar(&buildIndexPath, "index", "", "path to the compiled primitive index JSON file")
	buildCmd.Flags().StringVar(&buildFormatID, "format", "", "format identifier (defaults to config)")
	buildCmd.Flags().StringVar(&buildProfileID, "profile", "", "profile id (defaults to config)")
	buildCmd.Flags().StringVar(&buildBracketID, "bracket", "", "bracket id (defaults to config)")
	buildCmd.Flags().StringVar(&buildOverrideModelID, "stress-model-override", "", "optional request_override_model_id")
	buildCmd.Flags().StringVar(&buildDBSnapshotID, "snapshot", "", "db snapshot id to stamp on the result")
	buildCmd.Flags().BoolVar(&buildSaveToCache, "save", false, "save the result to the local result cache")
}

func requestFromFlags(cfg config.Config) pipeline.Request {
	req := pipeline.Request{
		FormatID:               firstNonEmpty(buildFormatID, cfg.Defaults.FormatID),
		ProfileID:              firstNonEmpty(buildProfileID, cfg.Defaults.ProfileID),
		BracketID:              firstNonEmpty(buildBracketID, cfg.Defaults.BracketID),
		RequestOverrideModelID: buildOverrideModelID,
		DBSnapshotID:           buildDBSnapshotID,
	}

	if buildIndexPath != "" {
		index, err := indexio.Load(buildIndexPath)
		if err != nil {
			log.WithError(err).Warn("primitive index unavailable; layers 1+ will SKIP")
		} else {
			req.Index = &index
		}
	}
	return req
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func logrusFields(result pipeline.BuildResult) map[string]interface{} {
	return map[string]interface{}{
		"status":        string(result.Status),
		"build_hash_v1": result.BuildHashV1,
		"profile_id":    result.ProfileID,
		"bracket_id":    result.BracketID,
	}
}
