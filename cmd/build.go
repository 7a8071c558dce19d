package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docswitch/internal/progress"
	"github.com/ziadkadry99/docswitch/internal/site"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render every page into a static site",
	Long: `Renders the shell once per table entry and writes <page>.html files, an
index.html for the landing page, a search index and a navigation tree,
then copies assets and locally embedded documents into the output directory.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().String("output", "", "override output directory")
	buildCmd.Flags().Bool("no-progress", false, "disable the progress display")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tbl, err := loadTable(cfg)
	if err != nil {
		return err
	}

	outputDir := cfg.OutputDir
	if o, _ := cmd.Flags().GetString("output"); o != "" {
		outputDir = o
	}

	gen := site.NewGenerator(cfg.Shell, outputDir, tbl, renderOptions(cfg))
	gen.Assets = cfg.Assets
	gen.Exclude = cfg.Exclude
	gen.Logger = newLogger()
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); !noProgress {
		gen.Reporter = progress.NewReporter("Rendering")
	}

	count, err := gen.Generate()
	if err != nil {
		return fmt.Errorf("building site: %w", err)
	}

	fmt.Printf("Static site generated: %s (%d pages)\n", outputDir, count)
	return nil
}
