// Command sufficiency is the CLI harness around the deck sufficiency
// pipeline: a single binary exposing subcommands for running the pipeline,
// inspecting cached results, replaying fixtures, and verifying the curated
// pack manifest. None of these subcommands feed anything back into the
// pipeline's numeric output — the pipeline itself remains a pure function
// of (PrimitiveIndex, profile_id, bracket_id, data packs).
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	log        = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "sufficiency",
	Short: "Deterministic deck sufficiency pipeline",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		log.SetFormatter(&logrus.JSONFormatter{})
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to runtime.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(buildManyCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(fixtureTestCmd)
	rootCmd.AddCommand(manifestCmd)

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
