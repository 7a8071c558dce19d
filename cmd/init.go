package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docswitch/internal/config"
	"github.com/ziadkadry99/docswitch/internal/site"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize docswitch configuration with an interactive wizard",
	Long: `Runs an interactive wizard to configure docswitch for your site and writes
a .docswitch.yml file. With --scaffold, a starter shell page, table and
stylesheet are also written where those files do not exist yet.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("defaults", false, "skip the wizard and write the default configuration")
	initCmd.Flags().Bool("scaffold", false, "write a starter shell page and table")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	useDefaults, _ := cmd.Flags().GetBool("defaults")
	scaffold, _ := cmd.Flags().GetBool("scaffold")

	var cfg *config.Config
	if useDefaults {
		cfg = config.DefaultConfig()
		if err := cfg.Save(cfgFile); err != nil {
			return err
		}
		fmt.Printf("Configuration saved to %s\n", cfgFile)
	} else {
		var err error
		if cfg, err = config.RunWizard(cfgFile); err != nil {
			return err
		}
	}

	if !scaffold {
		return nil
	}

	base := filepath.Dir(cfgFile)
	files := []starterFile{
		{filepath.Join(base, cfg.Shell), site.StarterShell},
		{filepath.Join(base, filepath.Dir(cfg.Shell), "style.css"), site.StarterCSS},
	}
	switch strings.ToLower(filepath.Ext(cfg.Table)) {
	case ".yml", ".yaml":
		files = append(files, starterFile{filepath.Join(base, cfg.Table), site.StarterTable})
	default:
		fmt.Printf("Skipping starter table: only YAML tables are scaffolded\n")
	}

	for _, f := range files {
		written, err := writeIfMissing(f.path, f.content)
		if err != nil {
			return err
		}
		if written {
			fmt.Printf("  created %s\n", f.path)
		} else {
			fmt.Printf("  kept existing %s\n", f.path)
		}
	}
	return nil
}

type starterFile struct {
	path    string
	content string
}

// writeIfMissing creates path with content unless it already exists.
func writeIfMissing(path, content string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}
