package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docswitch/internal/site"
)

var renderCmd = &cobra.Command{
	Use:   "render [page]",
	Short: "Render one page to stdout",
	Long: `Renders the shell as a browser would for the address #page and prints
the result. Without a page the landing page is rendered.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().Bool("container", false, "print only the container's content")
	renderCmd.Flags().Bool("report", false, "print the render report to stderr")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tbl, err := loadTable(cfg)
	if err != nil {
		return err
	}
	renderer, err := site.LoadRenderer(cfg.Shell, renderOptions(cfg))
	if err != nil {
		return err
	}

	page := ""
	if len(args) == 1 {
		page = args[0]
	}
	doc, rep, err := renderer.Render(tbl, page)
	if err != nil {
		return err
	}

	if containerOnly, _ := cmd.Flags().GetBool("container"); containerOnly {
		fmt.Fprintln(cmd.OutOrStdout(), doc.ContainerHTML())
	} else {
		out, err := doc.HTML()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}

	if showReport, _ := cmd.Flags().GetBool("report"); showReport {
		fmt.Fprintf(os.Stderr, "page=%s elements=%d hits=%d misses=%d documents=%d duration=%s\n",
			rep.Page, rep.Elements, rep.Hits, rep.Misses, rep.Documents, rep.Duration)
	}
	if _, ok := tbl.Get(rep.Page); !ok {
		newLogger().Warn("page has no table entry", "page", rep.Page)
	}
	return nil
}
