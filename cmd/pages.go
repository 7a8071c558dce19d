package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docswitch/internal/site"
)

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "List the pages declared in the replacement table",
	RunE:  runPages,
}

func init() {
	pagesCmd.Flags().Bool("json", false, "print the search index as JSON")
	pagesCmd.Flags().String("search", "", "only list pages matching this query")
	rootCmd.AddCommand(pagesCmd)
}

func runPages(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tbl, err := loadTable(cfg)
	if err != nil {
		return err
	}

	entries := site.BuildSearchIndex(tbl)
	if q, _ := cmd.Flags().GetString("search"); q != "" {
		entries = site.Search(entries, q, 0)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PAGE\tKIND\tTITLE")
	for _, e := range entries {
		title := e.Title
		if e.Source != "" {
			title = e.Source
		}
		marker := ""
		if e.Page == cfg.LandingPage {
			marker = " (landing)"
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\n", e.Page, marker, e.Kind, title)
	}
	return w.Flush()
}
