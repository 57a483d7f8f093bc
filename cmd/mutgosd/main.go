package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mutgos/mutgos/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mutgosd",
	Short: "mutgosd - MUTGOS core runtime",
	Long: `mutgosd is the MUTGOS entity-graph server core: storage, cache,
the Database Access facade, the Update Manager, the security evaluator,
and client-session channel dispatch, in a single process over a single
bbolt-backed site database.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"mutgosd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to mutgosd.yaml config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	rootCmd.AddCommand(runCmd)
}

func initLogging(level string, jsonOutput bool) {
	log.Init(log.Config{
		Level:      log.Level(level),
		JSONOutput: jsonOutput,
	})
}
