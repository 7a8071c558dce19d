package site

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ziadkadry99/docswitch/internal/progress"
	"github.com/ziadkadry99/docswitch/internal/table"
)

// InternalDir holds files the generator writes besides the pages. Page
// names under it are refused.
const InternalDir = "_docswitch"

// NotFoundFile is the page shown for fragments that name no page file.
// An entry named _docswitch/404 replaces its content.
const NotFoundFile = InternalDir + "/404.html"

const notFoundPage = InternalDir + "/404"

// ErrUnsafePage is returned by PageFile for names that cannot be written
// as a file below the output directory.
var ErrUnsafePage = errors.New("page name is not a safe relative path")

// Generator renders every page of a table into a static site.
type Generator struct {
	ShellPath string
	OutputDir string
	Table     *table.Table
	Options   RenderOptions

	// Assets and Exclude are glob patterns relative to the shell's directory.
	Assets  []string
	Exclude []string

	Reporter progress.Reporter
	Logger   *slog.Logger
}

// NewGenerator creates a Generator with quiet defaults.
func NewGenerator(shellPath, outputDir string, tbl *table.Table, opts RenderOptions) *Generator {
	return &Generator{
		ShellPath: shellPath,
		OutputDir: outputDir,
		Table:     tbl,
		Options:   opts,
		Reporter:  progress.Discard{},
		Logger:    slog.New(slog.DiscardHandler),
	}
}

// PageFile maps a page name to its output path, relative to the output
// directory, using forward slashes.
func PageFile(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrUnsafePage)
	}
	parts := strings.Split(name, "/")
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.ContainsAny(p, "\\:*?\"<>|\x00") {
			return "", fmt.Errorf("%w: %q", ErrUnsafePage, name)
		}
	}
	if parts[0] == InternalDir {
		return "", fmt.Errorf("%w: %q is reserved", ErrUnsafePage, name)
	}
	return name + ".html", nil
}

// Generate builds the site. Returns the number of pages written, not
// counting index.html and the 404 page.
func (g *Generator) Generate() (int, error) {
	renderer, err := LoadRenderer(g.ShellPath, g.Options)
	if err != nil {
		return 0, err
	}
	if g.Table.Len() == 0 {
		return 0, table.ErrEmpty
	}
	if same, err := sameDir(filepath.Dir(g.ShellPath), g.OutputDir); err != nil {
		return 0, err
	} else if same {
		return 0, fmt.Errorf("output dir %s must differ from the shell's directory", g.OutputDir)
	}
	if err := os.MkdirAll(g.OutputDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating output dir: %w", err)
	}

	names := g.Table.Names()
	files := make(map[string]string, len(names))
	var pages []string
	for _, name := range names {
		rel, err := PageFile(name)
		if err != nil {
			g.Logger.Warn("skipping page", "page", name, "error", err)
			continue
		}
		files[name] = rel
		pages = append(pages, name)
	}
	config := func(name string, missing bool) staticConfig {
		return staticConfig{
			Page:     name,
			Landing:  renderer.Landing(),
			Pages:    files,
			NotFound: NotFoundFile,
			Missing:  missing,
		}
	}

	// The landing page goes first so a page named "index" replaces it.
	if err := g.writePage(renderer, "", "index.html", config(renderer.Landing(), false)); err != nil {
		return 0, err
	}
	if err := g.writePage(renderer, notFoundPage, NotFoundFile, config("", true)); err != nil {
		return 0, err
	}

	written := make(map[string]bool, len(pages))
	g.Reporter.Start(len(pages))
	for i, name := range pages {
		if err := g.writePage(renderer, name, files[name], config(name, false)); err != nil {
			return i, err
		}
		written[files[name]] = true
		g.Reporter.Update(i+1, name)
	}
	g.Reporter.Finish()
	count := len(pages)

	var index []SearchEntry
	for _, e := range BuildSearchIndex(g.Table) {
		if _, ok := files[e.Page]; ok {
			index = append(index, e)
		}
	}
	if err := WriteSearchIndex(index, filepath.Join(g.OutputDir, InternalDir, "pages.json")); err != nil {
		return count, fmt.Errorf("writing search index: %w", err)
	}

	titles := make(map[string]string, len(index))
	for _, e := range index {
		titles[e.Page] = e.Title
	}
	// Links are relative to the site root.
	nav := NavTree(pages, renderer.Slots(), titles).ToHTMLWithLinks(renderer.Landing(), func(name string) string {
		return pageURL(files[name])
	})
	if err := os.WriteFile(filepath.Join(g.OutputDir, InternalDir, "nav.html"), []byte(nav), 0o644); err != nil {
		return count, fmt.Errorf("writing nav: %w", err)
	}

	if err := g.copyAssets(); err != nil {
		return count, fmt.Errorf("copying assets: %w", err)
	}
	g.copyDocuments(written)

	g.Logger.Info("site generated", "pages", count, "output", g.OutputDir)
	return count, nil
}

// staticConfig is published to each built page as window.docswitch for
// StaticScript. Pages maps page names to files relative to the site root.
type staticConfig struct {
	Page     string            `json:"page"`
	Landing  string            `json:"landing"`
	Root     string            `json:"root"`
	Pages    map[string]string `json:"pages"`
	NotFound string            `json:"notFound"`
	Missing  bool              `json:"missing,omitempty"`
}

func (g *Generator) writePage(r *Renderer, page, rel string, cfg staticConfig) error {
	doc, rep, err := r.Render(g.Table, page)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", rel, err)
	}

	// Files below the root resolve assets and documents from the root.
	cfg.Root = strings.Repeat("../", strings.Count(rel, "/"))
	if cfg.Root != "" {
		doc.SetBase(cfg.Root)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config for %s: %w", rel, err)
	}
	doc.AppendInlineScript("window.docswitch = " + string(data) + ";")
	doc.AppendInlineScript(StaticScript)

	out, err := doc.HTML()
	if err != nil {
		return fmt.Errorf("rendering %s: %w", rel, err)
	}

	dest := filepath.Join(g.OutputDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating dir for %s: %w", rel, err)
	}
	if err := os.WriteFile(dest, []byte(out), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}

	g.Logger.Debug("page written", "page", rep.Page, "file", rel,
		"hits", rep.Hits, "misses", rep.Misses, "documents", rep.Documents)
	return nil
}

// pageURL escapes each segment of a page file for use in an href.
func pageURL(file string) string {
	parts := strings.Split(file, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// copyAssets copies files below the shell's directory that match Assets
// and not Exclude. The output directory and the shell itself are skipped.
func (g *Generator) copyAssets() error {
	srcDir := filepath.Dir(g.ShellPath)
	outAbs, err := filepath.Abs(g.OutputDir)
	if err != nil {
		return err
	}
	shellAbs, err := filepath.Abs(g.ShellPath)
	if err != nil {
		return err
	}

	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if abs == outAbs || (rel != "." && MatchesExclude(rel, g.Exclude)) {
				return filepath.SkipDir
			}
			return nil
		}
		if abs == shellAbs || !MatchesInclude(rel, g.Assets) || MatchesExclude(rel, g.Exclude) {
			return nil
		}
		return copyFile(path, filepath.Join(g.OutputDir, rel))
	})
}

// copyDocuments copies the local files that file: entries point at.
// Missing files are logged, since the page still renders as an iframe.
// A document wins over a rendered page of the same file name, otherwise
// the page would embed itself.
func (g *Generator) copyDocuments(pages map[string]bool) {
	srcDir := filepath.Dir(g.ShellPath)
	for _, e := range g.Table.Entries() {
		if e.Value.Kind() != table.DocumentRef {
			continue
		}
		rel, ok := localDocument(e.Value.Source())
		if !ok {
			continue
		}
		if pages[filepath.ToSlash(rel)] {
			g.Logger.Warn("document replaces rendered page", "page", e.Name, "file", filepath.ToSlash(rel))
		}
		src := filepath.Join(srcDir, rel)
		if err := copyFile(src, filepath.Join(g.OutputDir, rel)); err != nil {
			g.Logger.Warn("document not copied", "page", e.Name, "source", e.Value.Source(), "error", err)
		}
	}
}

// localDocument returns the relative file path of a same-site document
// reference, or false for remote or unusable references.
func localDocument(ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return "", false
	}
	rel := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(u.Path, "/")))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

func sameDir(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

// copyFile copies a single file.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
