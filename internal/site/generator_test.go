package site

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ziadkadry99/docswitch/internal/dom"
	"github.com/ziadkadry99/docswitch/internal/table"
)

const testShell = `<!DOCTYPE html>
<html>
<head><title>Docs</title></head>
<body>
<header class="replacable">{header}</header>
<div id="maindiv" class="replacable"></div>
</body>
</html>`

func testOptions() RenderOptions {
	return RenderOptions{DOM: dom.DefaultOptions(), Landing: "main"}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func testTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New(
		table.Entry{Name: "main", Value: "<h1>Welcome</h1><p>Hello there.</p>"},
		table.Entry{Name: "header", Value: "<b>Docs</b>"},
		table.Entry{Name: "about", Value: "file:docs/about.html"},
		table.Entry{Name: "guide/install", Value: "<h2>Install</h2><p>Run the installer.</p>"},
		table.Entry{Name: "../escape", Value: "<p>nope</p>"},
		table.Entry{Name: "_docswitch/pages", Value: "<p>reserved</p>"},
	)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func setupSite(t *testing.T) (src, out string) {
	t.Helper()
	src = t.TempDir()
	out = filepath.Join(src, "site")
	writeFile(t, filepath.Join(src, "index.html"), testShell)
	writeFile(t, filepath.Join(src, "style.css"), "body{}")
	writeFile(t, filepath.Join(src, "img", "logo.png"), "png")
	writeFile(t, filepath.Join(src, "README.md"), "# readme")
	writeFile(t, filepath.Join(src, "docs", "about.html"), "<p>About us</p>")
	return src, out
}

func TestGenerate(t *testing.T) {
	src, out := setupSite(t)

	gen := NewGenerator(filepath.Join(src, "index.html"), out, testTable(t), testOptions())
	gen.Assets = []string{"**/*.css", "**/*.png"}
	gen.Exclude = []string{"*.md"}

	count, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if count != 4 {
		t.Errorf("count = %d, want 4", count)
	}

	index := readFile(t, filepath.Join(out, "index.html"))
	if !strings.Contains(index, "<h1>Welcome</h1><p>Hello there.</p>") {
		t.Errorf("index.html does not hold the landing page:\n%s", index)
	}
	if !strings.Contains(index, "<b>Docs</b>") {
		t.Errorf("index.html header not substituted:\n%s", index)
	}

	install := readFile(t, filepath.Join(out, "guide", "install.html"))
	if !strings.Contains(install, "<p>Run the installer.</p>") {
		t.Errorf("guide/install.html missing content:\n%s", install)
	}

	about := readFile(t, filepath.Join(out, "about.html"))
	if !strings.Contains(about, `<iframe src="docs/about.html" frameborder="0"`) {
		t.Errorf("about.html should embed the document:\n%s", about)
	}
	if got := readFile(t, filepath.Join(out, "docs", "about.html")); got != "<p>About us</p>" {
		t.Errorf("document copy = %q", got)
	}

	for _, want := range []string{"style.css", "img/logo.png", "header.html", "main.html", NotFoundFile} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(want))); err != nil {
			t.Errorf("expected %s in output: %v", want, err)
		}
	}
	for _, unwanted := range []string{"README.md", "site", "_docswitch/pages.html"} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(unwanted))); err == nil {
			t.Errorf("%s should not be in output", unwanted)
		}
	}
	if _, err := os.Stat(filepath.Join(src, "escape.html")); err == nil {
		t.Error("page names must not escape the output directory")
	}
}

func TestGenerateSearchIndexAndNav(t *testing.T) {
	src, out := setupSite(t)

	gen := NewGenerator(filepath.Join(src, "index.html"), out, testTable(t), testOptions())
	if _, err := gen.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var entries []SearchEntry
	if err := json.Unmarshal([]byte(readFile(t, filepath.Join(out, InternalDir, "pages.json"))), &entries); err != nil {
		t.Fatalf("parsing pages.json: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("search entries = %d, want 4", len(entries))
	}
	if entries[0].Page != "main" || entries[0].Title != "Welcome" {
		t.Errorf("first entry = %+v, want main titled Welcome", entries[0])
	}
	if entries[2].Kind != "document" || entries[2].Source != "docs/about.html" {
		t.Errorf("about entry = %+v, want document docs/about.html", entries[2])
	}

	nav := readFile(t, filepath.Join(out, InternalDir, "nav.html"))
	if !strings.Contains(nav, `<a href="guide/install.html">Install</a>`) {
		t.Errorf("nav missing nested page:\n%s", nav)
	}
	if !strings.Contains(nav, `<a href="main.html" class="active">Welcome</a>`) {
		t.Errorf("nav should mark the landing page active:\n%s", nav)
	}
	if strings.Contains(nav, "escape") {
		t.Errorf("nav should not list skipped pages:\n%s", nav)
	}
	if strings.Contains(nav, "header.html") {
		t.Errorf("nav should not list entries that fill the header slot:\n%s", nav)
	}
}

func TestGenerateWiresNavigation(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(src, "site")
	writeFile(t, filepath.Join(src, "index.html"), StarterShell)
	tbl, err := table.ParseYAML([]byte(StarterTable))
	if err != nil {
		t.Fatal(err)
	}

	gen := NewGenerator(filepath.Join(src, "index.html"), out, tbl, testOptions())
	if _, err := gen.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	index := readFile(t, filepath.Join(out, "index.html"))
	for _, want := range []string{
		`window.docswitch = {"page":"main","landing":"main","root":"","pages":{"guide":"guide.html","header":"header.html","main":"main.html"},"notFound":"_docswitch/404.html"};`,
		StaticScript,
		"changePage(",
	} {
		if !strings.Contains(index, want) {
			t.Errorf("index.html missing %q:\n%s", want, index)
		}
	}
	if strings.Contains(index, "<base") {
		t.Errorf("root pages need no base:\n%s", index)
	}

	guide := readFile(t, filepath.Join(out, "guide.html"))
	if !strings.Contains(guide, `window.docswitch = {"page":"guide",`) {
		t.Errorf("guide.html should name its own page:\n%s", guide)
	}

	missing := readFile(t, filepath.Join(out, filepath.FromSlash(NotFoundFile)))
	for _, want := range []string{table.NotFoundMarkup, `<base href="../"/>`, `"root":"../"`, `"missing":true`} {
		if !strings.Contains(missing, want) {
			t.Errorf("404 page missing %q:\n%s", want, missing)
		}
	}

	nav := readFile(t, filepath.Join(out, InternalDir, "nav.html"))
	if !strings.Contains(nav, `href="guide.html"`) || strings.Contains(nav, `href="#`) {
		t.Errorf("nav should link to page files:\n%s", nav)
	}
	if strings.Contains(nav, "header.html") {
		t.Errorf("nav should not list the header slot:\n%s", nav)
	}
}

func TestGenerateNestedPagesResolveFromRoot(t *testing.T) {
	src, out := setupSite(t)

	gen := NewGenerator(filepath.Join(src, "index.html"), out, testTable(t), testOptions())
	if _, err := gen.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	install := readFile(t, filepath.Join(out, "guide", "install.html"))
	for _, want := range []string{`<head><base href="../"/>`, `"page":"guide/install"`, `"root":"../"`} {
		if !strings.Contains(install, want) {
			t.Errorf("guide/install.html missing %q:\n%s", want, install)
		}
	}
}

func TestPageURL(t *testing.T) {
	tests := []struct{ file, want string }{
		{"main.html", "main.html"},
		{"guide/install.html", "guide/install.html"},
		{"my page.html", "my%20page.html"},
		{"100%.html", "100%25.html"},
	}
	for _, tt := range tests {
		if got := pageURL(tt.file); got != tt.want {
			t.Errorf("pageURL(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}

func TestGenerateEscapesMarkup(t *testing.T) {
	src, out := setupSite(t)
	tbl := table.FromMap(map[string]string{"main": "<script>alert(1)</script>"})

	opts := testOptions()
	opts.Escape = true
	gen := NewGenerator(filepath.Join(src, "index.html"), out, tbl, opts)
	if _, err := gen.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	page := readFile(t, filepath.Join(out, "main.html"))
	if strings.Contains(page, "<script>alert(1)</script>") {
		t.Errorf("markup should be escaped:\n%s", page)
	}
	if !strings.Contains(page, "&lt;script&gt;") {
		t.Errorf("escaped markup missing:\n%s", page)
	}
	if !strings.Contains(page, table.NotFoundMarkup) {
		t.Errorf("header has no entry and should render the 404 markup:\n%s", page)
	}
}

func TestGenerateErrors(t *testing.T) {
	src, out := setupSite(t)

	empty, err := table.New()
	if err != nil {
		t.Fatal(err)
	}
	gen := NewGenerator(filepath.Join(src, "index.html"), out, empty, testOptions())
	if _, err := gen.Generate(); !errors.Is(err, table.ErrEmpty) {
		t.Errorf("empty table: err = %v, want ErrEmpty", err)
	}

	gen = NewGenerator(filepath.Join(src, "index.html"), src, testTable(t), testOptions())
	if _, err := gen.Generate(); err == nil {
		t.Error("expected error when output dir is the shell's directory")
	}

	writeFile(t, filepath.Join(src, "bare.html"), "<html><body></body></html>")
	gen = NewGenerator(filepath.Join(src, "bare.html"), out, testTable(t), testOptions())
	if _, err := gen.Generate(); !errors.Is(err, dom.ErrNoContainer) {
		t.Errorf("shell without container: err = %v, want ErrNoContainer", err)
	}
}

func TestPageFile(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"main", "main.html", true},
		{"guide/install", "guide/install.html", true},
		{"", "", false},
		{"..", "", false},
		{"../up", "", false},
		{"a//b", "", false},
		{"/abs", "", false},
		{"c:drive", "", false},
		{"_docswitch/nav", "", false},
		{"_docswitchy", "_docswitchy.html", true},
	}
	for _, tt := range tests {
		got, err := PageFile(tt.name)
		if tt.ok {
			if err != nil || got != tt.want {
				t.Errorf("PageFile(%q) = %q, %v; want %q", tt.name, got, err, tt.want)
			}
			continue
		}
		if !errors.Is(err, ErrUnsafePage) {
			t.Errorf("PageFile(%q) err = %v, want ErrUnsafePage", tt.name, err)
		}
	}
}

func TestLocalDocument(t *testing.T) {
	tests := []struct {
		ref  string
		want string
		ok   bool
	}{
		{"about.html", "about.html", true},
		{"/docs/about.html?x=1#top", filepath.Join("docs", "about.html"), true},
		{"https://example.com/a.html", "", false},
		{"//cdn.example.com/a.html", "", false},
		{"../outside.html", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := localDocument(tt.ref)
		if ok != tt.ok || got != tt.want {
			t.Errorf("localDocument(%q) = %q, %v; want %q, %v", tt.ref, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRenderer(t *testing.T) {
	r, err := NewRenderer([]byte(testShell), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	tbl := testTable(t)

	doc, rep, err := r.Render(tbl, "")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Page != "main" || rep.Hits != 2 || rep.Misses != 0 {
		t.Errorf("landing report = %+v", rep)
	}
	if got := doc.ContainerHTML(); got != "<h1>Welcome</h1><p>Hello there.</p>" {
		t.Errorf("container = %q", got)
	}

	_, rep, err = r.Render(tbl, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Misses != 1 || rep.Hits != 1 {
		t.Errorf("missing page report = %+v, want one miss and one hit", rep)
	}
}

func TestNewRendererRejectsShellWithoutContainer(t *testing.T) {
	_, err := NewRenderer([]byte(`<html><body><p>no container</p></body></html>`), testOptions())
	if !errors.Is(err, dom.ErrNoContainer) {
		t.Errorf("err = %v, want ErrNoContainer", err)
	}
}
