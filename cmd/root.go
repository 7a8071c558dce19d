package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docswitch/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docswitch",
	Short: "Hash-routed pages for static documentation sites",
	Long: `docswitch renders single-page documentation sites where the part of the
address after '#' selects a page. A shell page holds the layout, a
replacement table maps page names to markup or embedded documents, and
docswitch fills the shell's placeholders from the table. It can build a
static copy of every page or serve the site with live reload.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
