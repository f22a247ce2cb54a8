package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/config"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/fixtures"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/pipeline"
)

var fixtureTestPath string

// fixtureTestCmd is the successor to cmd/replay's fixture mode and
// internal/replay: it replays a golden JSON fixture (input selection plus
// an optional embedded primitive index) through the pipeline and diffs
// the actual BuildResult against the fixture's pinned expectations.
var fixtureTestCmd = &cobra.Command{
	Use:   "fixture-test",
	Short: "Replay a JSON fixture through the pipeline and diff against its expectations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		fixture, err := fixtures.Load(fixtureTestPath)
		if err != nil {
			return err
		}

		packSet, err := pipeline.LoadPacks(cfg.DataPackRoot, cfg.ManifestPath)
		if err != nil {
			return fmt.Errorf("load data packs: %w", err)
		}

		result, err := pipeline.Run(fixture.ToPipelineRequest(), packSet)
		if err != nil {
			return fmt.Errorf("run pipeline: %w", err)
		}

		diffs := fixture.Compare(result)
		if len(diffs) == 0 {
			fmt.Printf("fixture %s: PASS (build_hash_v1=%s)\n", fixtureTestPath, result.BuildHashV1)
			return nil
		}

		fmt.Printf("fixture %s: FAIL (%d mismatch(es))\n", fixtureTestPath, len(diffs))
		for _, d := range diffs {
			fmt.Printf("  %s:\n    want: %s\n    got:  %s\n", d.Field, d.Want, d.Got)
		}
		return fmt.Errorf("fixture %s did not match", fixtureTestPath)
	},
}

func init() {
	fixtureTestCmd.Flags().StringVar(&fixtureTestPath, "fixture", "", "path to a pipeline fixture JSON file")
	fixtureTestCmd.MarkFlagRequired("fixture")
}
