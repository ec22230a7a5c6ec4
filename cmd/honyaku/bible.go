package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"honyaku/internal/bible"
	"honyaku/internal/manifest"
	"honyaku/internal/workdir"
)

var (
	bibleImportSeries string
	bibleImportLang   string
)

var bibleCmd = &cobra.Command{
	Use:   "bible",
	Short: "Manage the series bible registry",
}

var bibleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered series",
	RunE: func(cmd *cobra.Command, args []string) error {
		work, err := workdir.New(workDir)
		if err != nil {
			return err
		}
		idx, err := bible.LoadIndex(work.BibleIndexPath())
		if err != nil {
			return err
		}
		if len(idx.Series) == 0 {
			fmt.Println("no series registered")
			return nil
		}
		ids := make([]string, 0, len(idx.Series))
		for id := range idx.Series {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			entry := idx.Series[id]
			fmt.Printf("%s\t%d entries\t%d volumes\t%s\n",
				id, entry.EntryCount, len(entry.Volumes), entry.LastUpdated)
		}
		return nil
	},
}

var bibleResolveCmd = &cobra.Command{
	Use:   "resolve <volume_id>",
	Short: "Show which series bible a volume would use",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		work, err := workdir.New(workDir)
		if err != nil {
			return err
		}
		m, err := manifest.Load(work.ManifestPath(args[0]))
		if err != nil {
			return err
		}
		resolver, err := bible.NewResolver(work.BiblesPath(), logger)
		if err != nil {
			return err
		}
		b, match, err := resolver.Resolve(m.BibleID, m.VolumeID, m.Metadata.Series, m.Metadata.Title)
		if err != nil {
			fmt.Printf("%s: standalone (no bible matched)\n", args[0])
			return nil
		}
		fmt.Printf("%s: series %s via %s (%d entries)\n",
			args[0], b.SeriesID, match.String(), b.EntryCount())
		return nil
	},
}

var bibleImportCmd = &cobra.Command{
	Use:   "import <volume_id>",
	Short: "Import a volume's character data into a series bible",
	Long: `Import creates or enriches a series bible from the character names and
profiles the librarian extracted into the volume manifest, and links the
volume's short-hash into the registry index. Existing bible entries win.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if bibleImportSeries == "" {
			return fmt.Errorf("--series is required")
		}
		work, err := workdir.New(workDir)
		if err != nil {
			return err
		}
		if err := work.EnsureExists(); err != nil {
			return err
		}
		m, err := manifest.Load(work.ManifestPath(args[0]))
		if err != nil {
			return err
		}
		idx, err := bible.LoadIndex(work.BibleIndexPath())
		if err != nil {
			return err
		}

		biblePath := work.BiblePath(bibleImportSeries)
		b, err := bible.Load(biblePath)
		if err != nil {
			b = &bible.SeriesBible{
				SeriesID: bibleImportSeries,
				SeriesTitle: bible.SeriesTitle{
					JA: m.Metadata.Series,
				},
			}
			fmt.Printf("creating new bible for series %s\n", bibleImportSeries)
		}

		idx.Upsert(bibleImportSeries, bible.IndexEntry{
			BibleFile:     bibleImportSeries + ".json",
			MatchPatterns: []string{m.Metadata.Series},
		})

		added, err := bible.ImportFromManifest(b, idx, m, bibleImportLang, logger)
		if err != nil {
			return err
		}
		idx.Upsert(bibleImportSeries, bible.IndexEntry{EntryCount: b.EntryCount()})

		if err := b.SaveTo(biblePath); err != nil {
			return err
		}
		if err := idx.Save(); err != nil {
			return err
		}
		fmt.Printf("imported %d new characters into %s\n", added, bibleImportSeries)
		return nil
	},
}

func init() {
	bibleImportCmd.Flags().StringVar(&bibleImportSeries, "series", "", "series id to import into (required)")
	bibleImportCmd.Flags().StringVar(&bibleImportLang, "lang", "en", "language metadata to import from")

	bibleCmd.AddCommand(bibleListCmd)
	bibleCmd.AddCommand(bibleResolveCmd)
	bibleCmd.AddCommand(bibleImportCmd)
}
