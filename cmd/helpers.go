package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ziadkadry99/docswitch/internal/config"
	"github.com/ziadkadry99/docswitch/internal/dom"
	"github.com/ziadkadry99/docswitch/internal/site"
	"github.com/ziadkadry99/docswitch/internal/table"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `docswitch init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// loadTable loads the replacement table named by the config.
func loadTable(cfg *config.Config) (*table.Table, error) {
	tbl, err := table.Load(cfg.Table)
	if err != nil {
		return nil, err
	}
	if tbl.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", cfg.Table, table.ErrEmpty)
	}
	return tbl, nil
}

// renderOptions translates the config into renderer options.
func renderOptions(cfg *config.Config) site.RenderOptions {
	return site.RenderOptions{
		DOM: dom.Options{
			ContainerID:      cfg.ContainerID,
			ReplaceableClass: cfg.ReplaceableClass,
		},
		Landing: cfg.LandingPage,
		Escape:  cfg.EscapeMarkup,
	}
}

// newLogger returns a text logger on stderr, at debug level with --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
