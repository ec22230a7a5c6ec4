package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"honyaku/internal/rag"
)

var ragCmd = &cobra.Command{
	Use:   "rag",
	Short: "Manage the pattern stores",
}

var ragKinds = []rag.Kind{
	rag.KindEnglish,
	rag.KindSinoVietnamese,
	rag.KindVietnameseGrammar,
	rag.KindAIisms,
}

var ragBuildCmd = &cobra.Command{
	Use:   "build <kind>",
	Short: "Rebuild a pattern store from its JSON source",
	Long: `Build re-embeds every pattern and negative anchor of one store kind.
Kinds: english_patterns, sino_vietnamese, vietnamese_grammar, ai_isms.
Rebuilding costs one embedding batch per store; during translation runs the
stores are read-only.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := rag.Kind(args[0])
		found := false
		for _, k := range ragKinds {
			if k == kind {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("unknown store kind %q", args[0])
		}

		work, _, client, stores, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStores(stores)

		store, err := rag.Open(cmd.Context(), kind,
			work.RAGIndexPath(string(kind)), work.RAGSourcePath(string(kind)), client, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Rebuild(cmd.Context()); err != nil {
			return err
		}
		count, _ := store.Count()
		negatives, _ := store.NegativeCount()
		fmt.Printf("%s: %d units, %d negative anchors\n", kind, count, negatives)
		return nil
	},
}

var ragStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print entry counts and thresholds for every store",
	RunE: func(cmd *cobra.Command, args []string) error {
		work, _, client, stores, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		closeStores(stores)

		for _, kind := range ragKinds {
			cfg := kind.Config()
			store, err := rag.Open(cmd.Context(), kind,
				work.RAGIndexPath(string(kind)), work.RAGSourcePath(string(kind)), client, logger)
			if err != nil {
				fmt.Printf("%-20s unavailable: %v\n", kind, err)
				continue
			}
			count, _ := store.Count()
			negatives, _ := store.NegativeCount()
			store.Close()
			fmt.Printf("%-20s %5d units  %3d negatives  inject>=%.2f log>=%.2f\n",
				kind, count, negatives, cfg.InjectThreshold, rag.LogThreshold)
		}
		return nil
	},
}

func init() {
	ragCmd.AddCommand(ragBuildCmd)
	ragCmd.AddCommand(ragStatsCmd)
}
