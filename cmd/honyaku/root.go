package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"honyaku/version"
)

var (
	cfgFile string
	workDir string
	verbose bool

	// exitCode is the process exit status: 0 completed, 1 partial,
	// 2 invalid input (set by main on command error).
	exitCode int

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "honyaku",
	Short: "Light-novel translation pipeline with LLM context caching and RAG guidance",
	Long: `Honyaku translates Japanese light-novel volumes into English or
Vietnamese using a cached-context LLM pipeline.

The pipeline includes:
  - Per-volume provider-side context caching with model fallback
  - Series bibles for canonical names and world-setting policy
  - RAG pattern stores with negative-anchor penalties
  - Illustration-aware guidance under canon-event-fidelity rules
  - Resumable per-chapter state with an append-only translation log`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or $HONYAKU_WORK_DIR/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&workDir, "work-dir", "", "working directory (default: $HONYAKU_WORK_DIR or ./WORK)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "debug logging",
	)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	}

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(bibleCmd)
	rootCmd.AddCommand(ragCmd)
	rootCmd.AddCommand(versionCmd)
}
