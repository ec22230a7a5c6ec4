package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"honyaku/internal/agent"
	"honyaku/internal/config"
	"honyaku/internal/gemini"
	"honyaku/internal/manifest"
	"honyaku/internal/rag"
	"honyaku/internal/workdir"
)

var (
	translateChapters   []string
	translateForce      bool
	translateLang       string
	translateContinuity bool
	translateGaps       bool
	translateMultimodal bool
)

var translateCmd = &cobra.Command{
	Use:   "translate <volume_id>",
	Short: "Translate a volume chapter by chapter",
	Long: `Translate runs the full volume lifecycle: manifest validation, bible
resolution, volume cache creation, the sequential chapter loop with model
fallback, continuity aggregation, and finalization.

Re-running resumes: chapters already completed are skipped unless --force.
Exit codes: 0 all chapters completed, 1 partial, 2 invalid input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		volumeID := args[0]

		work, mgr, client, stores, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStores(stores)

		cfg := mgr.Get()
		if cmd.Flags().Changed("lang") {
			cfg.Translator.TargetLanguage = translateLang
		}
		if !work.VolumeExists(volumeID) {
			return fmt.Errorf("volume %s not found under %s", volumeID, work.Path())
		}

		opts := agent.Options{
			Chapters:         translateChapters,
			Force:            translateForce,
			EnableContinuity: cfg.Translator.EnableContinuity,
			EnableGaps:       cfg.Translator.EnableGapAnalysis,
			EnableVisual:     cfg.Translator.EnableMultimodal,
		}
		if cmd.Flags().Changed("enable-continuity") {
			opts.EnableContinuity = translateContinuity
		}
		if cmd.Flags().Changed("enable-gap-analysis") {
			opts.EnableGaps = translateGaps
		}
		if cmd.Flags().Changed("enable-multimodal") {
			opts.EnableVisual = translateMultimodal
		}

		orch := agent.New(work, cfg, client, stores, logger)
		summary, err := orch.TranslateVolume(cmd.Context(), volumeID, opts)
		if err != nil {
			return err
		}

		fmt.Printf("volume %s: %s (%d completed, %d failed, %d skipped)\n",
			summary.VolumeID, summary.State, summary.Completed, summary.Failed, summary.Skipped)
		for _, id := range summary.FailedChapters {
			fmt.Printf("  failed: %s\n", id)
		}
		if summary.State != manifest.StateCompleted {
			exitCode = 1
		}
		return nil
	},
}

func init() {
	translateCmd.Flags().StringSliceVar(&translateChapters, "chapters", nil, "chapter ids to translate (default: all)")
	translateCmd.Flags().BoolVar(&translateForce, "force", false, "re-translate completed chapters")
	translateCmd.Flags().StringVar(&translateLang, "lang", "", "target language: en or vi (default: from config)")
	translateCmd.Flags().BoolVar(&translateContinuity, "enable-continuity", true, "carry continuity across chapters and volumes")
	translateCmd.Flags().BoolVar(&translateGaps, "enable-gap-analysis", true, "inject translation-gap hints")
	translateCmd.Flags().BoolVar(&translateMultimodal, "enable-multimodal", true, "inject illustration guidance")
}

// setup wires the working directory, config manager, Gemini client, and the
// RAG stores the target language needs.
func setup(ctx context.Context) (*workdir.Dir, *config.Manager, *gemini.Client, map[rag.Kind]*rag.Store, error) {
	work, err := workdir.New(workDir)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := work.EnsureExists(); err != nil {
		return nil, nil, nil, nil, err
	}

	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	cfg := mgr.Get()

	backend, err := gemini.NewBackend(ctx, cfg.ResolveAPIKey())
	if err != nil {
		return nil, nil, nil, nil, err
	}
	client := gemini.NewClient(backend, gemini.Config{
		Model:             cfg.Gemini.Model,
		EmbeddingModel:    cfg.Gemini.EmbeddingModel,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
		MaxRetries:        cfg.Gemini.MaxRetries,
		Timeout:           time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second,
		Temperature:       cfg.Gemini.Temperature,
		MaxOutputTokens:   cfg.Gemini.MaxOutputTokens,
		IncludeThoughts:   cfg.Thinking.Enabled,
	}, logger)

	// Rate limits hot-reload; model and cache settings stay fixed for a run.
	mgr.OnChange(func(c *config.Config) {
		client.SetRate(c.Gemini.RequestsPerMinute)
	})
	mgr.WatchConfig()

	stores := make(map[rag.Kind]*rag.Store)
	if cfg.RAG.Enabled {
		kinds := []rag.Kind{rag.KindEnglish}
		if manifest.IsVietnamese(cfg.Translator.TargetLanguage) {
			kinds = []rag.Kind{rag.KindSinoVietnamese, rag.KindVietnameseGrammar}
		}
		for _, kind := range kinds {
			store, err := rag.Open(ctx, kind,
				work.RAGIndexPath(string(kind)), work.RAGSourcePath(string(kind)), client, logger)
			if err != nil {
				logger.Warn("pattern store unavailable", "kind", kind, "error", err)
				continue
			}
			stores[kind] = store
		}
	}

	return work, mgr, client, stores, nil
}

func closeStores(stores map[rag.Kind]*rag.Store) {
	for _, s := range stores {
		s.Close()
	}
}
