// Package config loads the CLI harness's runtime.yaml: where the data-pack
// root and curated manifest live, the default output format, and the
// default profile/bracket/stress-model-override selection. None of these
// feed the sufficiency math directly — the pipeline stays a pure function
// of (PrimitiveIndex, profile_id, bracket_id, data packs); this config only
// tells the CLI where to find its inputs and how to print its outputs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root runtime.yaml document.
type Config struct {
	DataPackRoot string `yaml:"data_pack_root"`
	ManifestPath string `yaml:"manifest_path"`
	ResultCachePath string `yaml:"result_cache_path"`
	OutputFormat string `yaml:"output_format"`

	Defaults Defaults `yaml:"defaults"`
}

// Defaults carries the CLI's default selection inputs, all overridable by
// flags on any given invocation.
type Defaults struct {
	FormatID  string `yaml:"format_id"`
	ProfileID string `yaml:"profile_id"`
	BracketID string `yaml:"bracket_id"`
}

// Default returns the built-in configuration used when no --config file is
// given: data packs and manifest under ./data relative to the working
// directory, a local SQLite result cache, JSON output.
func Default() Config {
	return Config{
		DataPackRoot:    "data",
		ManifestPath:    "data/curated_pack_manifest_v1.json",
		ResultCachePath: "sufficiency_results.db",
		OutputFormat:    "json",
		Defaults: Defaults{
			FormatID:  "commander",
			ProfileID: "focused",
			BracketID: "B2",
		},
	}
}

// Load reads and parses a runtime.yaml file at path, layering its fields
// over Default() for anything left unset.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
