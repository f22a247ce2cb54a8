package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/config"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/resultcache"
)

var inspectBuildHash string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List or show cached BuildResults by build_hash_v1",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		store, err := resultcache.Open(cfg.ResultCachePath)
		if err != nil {
			return fmt.Errorf("open result cache: %w", err)
		}
		defer store.Close()

		if inspectBuildHash == "" {
			rows, err := store.List()
			if err != nil {
				return err
			}
			for _, r := range rows {
				fmt.Printf("%s  profile=%s bracket=%s status=%s created=%s\n",
					r.BuildHashV1, r.ProfileID, r.BracketID, r.Status, r.CreatedAt)
			}
			return nil
		}

		result, ok, err := store.Get(inspectBuildHash)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no cached build result for build_hash_v1=%s", inspectBuildHash)
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
	inspectCmd.Flags().StringVar(&inspectBuildHash, "build-hash", "", "show the cached result for this build_hash_v1 (omit to list all)")
}
