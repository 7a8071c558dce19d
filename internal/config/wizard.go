package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
)

// tableCandidates are table files the wizard offers when one already exists.
var tableCandidates = []string{"pages.yml", "pages.yaml", "pages.json", "replace.js", "pages.js"}

// detectShell prefers index.html, then any HTML file in the current directory.
func detectShell() string {
	matches, _ := filepath.Glob("*.html")
	for _, m := range matches {
		if m == "index.html" {
			return m
		}
	}
	if len(matches) > 0 {
		return matches[0]
	}
	return "index.html"
}

// detectTable returns an existing table file, or the default name.
func detectTable() string {
	for _, c := range tableCandidates {
		if matches, _ := filepath.Glob(c); len(matches) > 0 {
			return c
		}
	}
	return "pages.yml"
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to docswitch! Let's configure your site.")
	fmt.Println()

	defaults := DefaultConfig()

	// 1. Shell page.
	shellPrompt := promptui.Prompt{
		Label:   "Shell page (HTML file holding the container)",
		Default: detectShell(),
	}
	shell, err := shellPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("shell page: %w", err)
	}

	// 2. Table file.
	tablePrompt := promptui.Prompt{
		Label:   "Replacement table file (.yml, .json or .js)",
		Default: detectTable(),
		Validate: func(s string) error {
			if !validTableExts[strings.ToLower(filepath.Ext(s))] {
				return fmt.Errorf("unsupported table format")
			}
			return nil
		},
	}
	tablePath, err := tablePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("table file: %w", err)
	}

	// 3. Landing page.
	landingPrompt := promptui.Prompt{
		Label:   "Landing page (shown when the address has no #fragment)",
		Default: defaults.LandingPage,
	}
	landing, err := landingPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("landing page: %w", err)
	}

	// 4. Trust model.
	trustPrompt := promptui.Select{
		Label: "Table content",
		Items: []string{
			"trusted: markup is injected as written",
			"untrusted: markup is escaped, only file: documents embed HTML",
		},
	}
	trustIdx, _, err := trustPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("trust selection: %w", err)
	}

	// 5. Output directory.
	outputPrompt := promptui.Prompt{
		Label:   "Output directory for rendered pages",
		Default: defaults.OutputDir,
	}
	outputDir, err := outputPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}

	// 6. Extra asset patterns.
	assetsPrompt := promptui.Prompt{
		Label:   "Extra asset patterns (comma-separated, leave blank for defaults)",
		Default: "",
	}
	assetsStr, err := assetsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("asset patterns: %w", err)
	}

	cfg := defaults
	cfg.Shell = shell
	cfg.Table = tablePath
	cfg.LandingPage = landing
	cfg.EscapeMarkup = trustIdx == 1
	cfg.OutputDir = outputDir
	if extra := splitAndTrim(assetsStr); len(extra) > 0 {
		cfg.Assets = append(append([]string{}, DefaultAssets...), extra...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
