package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/config"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/packs"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Curated pack manifest operations",
}

var manifestVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validate the curated pack manifest's hash/path/duplicate-entry invariants",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.ManifestPath == "" {
			return fmt.Errorf("no manifest_path configured")
		}

		manifest, err := packs.LoadManifest(cfg.ManifestPath)
		if err != nil {
			return err
		}
		if err := packs.ValidateHashes(filepath.Dir(cfg.ManifestPath), manifest); err != nil {
			return err
		}

		registry, err := packs.LoadRegistry(manifest)
		if err != nil {
			return err
		}
		defer registry.Close()

		fmt.Printf("manifest %s OK: %d entries, all hashes verified\n", manifest.Version, len(manifest.Packs))
		return nil
	},
}

func init() {
	manifestCmd.AddCommand(manifestVerifyCmd)
}
