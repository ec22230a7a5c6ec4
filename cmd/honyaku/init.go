package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"honyaku/internal/config"
	"honyaku/internal/workdir"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the working directory and a default config.yaml",
	Long: `Init scaffolds the working directory layout (volumes, bibles/, rag/)
and writes a default config.yaml with ${GOOGLE_API_KEY} references ready to
edit. An existing config.yaml is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		work, err := workdir.New(workDir)
		if err != nil {
			return err
		}
		if err := work.EnsureExists(); err != nil {
			return err
		}

		cfgPath := cfgFile
		if cfgPath == "" {
			cfgPath = filepath.Join(work.Path(), "config.yaml")
		}
		if _, err := os.Stat(cfgPath); err == nil {
			return fmt.Errorf("config already exists at %s", cfgPath)
		}
		if err := config.WriteDefault(cfgPath); err != nil {
			return err
		}

		fmt.Printf("initialized %s\n", work.Path())
		fmt.Printf("wrote %s\n", cfgPath)
		return nil
	},
}
