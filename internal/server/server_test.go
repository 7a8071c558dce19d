package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/ziadkadry99/docswitch/internal/dom"
	"github.com/ziadkadry99/docswitch/internal/site"
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

const testTable = `main: "<h1>Welcome</h1><p>Start here.</p>"
header: "<b>Docs</b>"
about: "file:/about.html"
guide/install:
  markup: "<h2>Install</h2><p>Run the installer.</p>"
`

func setupTest(t *testing.T, cfg Config) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "index.html"), testShell)
	writeTestFile(t, filepath.Join(dir, "pages.yml"), testTable)
	writeTestFile(t, filepath.Join(dir, "style.css"), "body{}")

	cfg.ShellPath = filepath.Join(dir, "index.html")
	cfg.TablePath = filepath.Join(dir, "pages.yml")
	cfg.Render = site.RenderOptions{DOM: dom.DefaultOptions(), Landing: "main"}

	srv, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, dir
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
}

func TestHealthCheck(t *testing.T) {
	srv, _ := setupTest(t, Config{})

	w := get(t, srv, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	decode(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv, _ := setupTest(t, Config{AllowAll: true})

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestNewFailsOnMissingTable(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "index.html"), testShell)

	_, err := New(Config{
		ShellPath: filepath.Join(dir, "index.html"),
		TablePath: filepath.Join(dir, "missing.yml"),
		Render:    site.RenderOptions{DOM: dom.DefaultOptions()},
	}, nil)
	if err == nil {
		t.Fatal("expected error for a missing table")
	}
}

func TestPages(t *testing.T) {
	srv, _ := setupTest(t, Config{})

	w := get(t, srv, "/api/pages")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp pagesResponse
	decode(t, w, &resp)

	if resp.Landing != "main" {
		t.Errorf("landing = %q, want main", resp.Landing)
	}
	if len(resp.Pages) != 4 {
		t.Fatalf("pages = %d, want 4", len(resp.Pages))
	}
	if resp.Pages[0].Page != "main" || resp.Pages[0].Title != "Welcome" {
		t.Errorf("first page = %+v", resp.Pages[0])
	}
	if resp.Pages[0].Content != "" {
		t.Error("page listing should not carry content")
	}
	if resp.Pages[3].Page != "guide/install" {
		t.Errorf("last page = %q, want guide/install", resp.Pages[3].Page)
	}
}

func TestRender(t *testing.T) {
	srv, _ := setupTest(t, Config{})

	w := get(t, srv, "/api/render/guide/install")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp renderResponse
	decode(t, w, &resp)

	if resp.Page != "guide/install" || resp.Status != "ok" {
		t.Errorf("page = %q status = %q", resp.Page, resp.Status)
	}
	if resp.Container != "<h2>Install</h2><p>Run the installer.</p>" {
		t.Errorf("container = %q", resp.Container)
	}
	if len(resp.Elements) != 2 || resp.Elements[0] != "<b>Docs</b>" {
		t.Errorf("elements = %q", resp.Elements)
	}
	if resp.Report.Hits != 2 || resp.Report.Misses != 0 {
		t.Errorf("report = %+v", resp.Report)
	}
}

func TestRenderDecodesPageNameOnce(t *testing.T) {
	srv, dir := setupTest(t, Config{})
	writeTestFile(t, filepath.Join(dir, "pages.yml"), `main: "<p>Home</p>"
"100%": "<p>Percent</p>"
"a%41": "<p>Literal</p>"
aA: "<p>Decoded twice</p>"
my page: "<p>Spaces</p>"
`)
	if err := srv.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	tests := []struct {
		target, page, container string
	}{
		{"/api/render/100%25", "100%", "<p>Percent</p>"},
		{"/api/render/a%2541", "a%41", "<p>Literal</p>"},
		{"/api/render/my%20page", "my page", "<p>Spaces</p>"},
	}
	for _, tt := range tests {
		w := get(t, srv, tt.target)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d: %s", tt.target, w.Code, w.Body.String())
			continue
		}
		var resp renderResponse
		decode(t, w, &resp)
		if resp.Page != tt.page || resp.Container != tt.container {
			t.Errorf("%s: page = %q container = %q, want %q %q", tt.target, resp.Page, resp.Container, tt.page, tt.container)
		}
	}
}

func TestRenderLandingAndDocument(t *testing.T) {
	srv, _ := setupTest(t, Config{})

	var landing renderResponse
	decode(t, get(t, srv, "/api/render/"), &landing)
	if landing.Page != "main" || landing.Container != "<h1>Welcome</h1><p>Start here.</p>" {
		t.Errorf("landing = %+v", landing)
	}

	var about renderResponse
	decode(t, get(t, srv, "/api/render/about"), &about)
	if !strings.HasPrefix(about.Container, `<iframe src="/about.html" frameborder="0"`) {
		t.Errorf("about container = %q", about.Container)
	}
	if about.Report.Documents != 1 {
		t.Errorf("about report = %+v", about.Report)
	}
}

func TestRenderUnknownPage(t *testing.T) {
	srv, _ := setupTest(t, Config{})

	w := get(t, srv, "/api/render/missing")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var resp renderResponse
	decode(t, w, &resp)
	if resp.Status != "not_found" {
		t.Errorf("status = %q, want not_found", resp.Status)
	}
	if resp.Container != table.NotFoundMarkup {
		t.Errorf("container = %q, want 404 markup", resp.Container)
	}
}

func TestSearch(t *testing.T) {
	srv, _ := setupTest(t, Config{})

	w := get(t, srv, "/api/search?q=installer")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp searchResponse
	decode(t, w, &resp)
	if len(resp.Results) != 1 || resp.Results[0].Page != "guide/install" {
		t.Errorf("results = %+v", resp.Results)
	}

	var empty searchResponse
	decode(t, get(t, srv, "/api/search?q=nothing-matches"), &empty)
	if empty.Results == nil || len(empty.Results) != 0 {
		t.Errorf("expected an empty result list, got %+v", empty.Results)
	}

	if w := get(t, srv, "/api/search"); w.Code != http.StatusBadRequest {
		t.Errorf("missing q: expected 400, got %d", w.Code)
	}
	if w := get(t, srv, "/api/search?q=x&limit=zero"); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", w.Code)
	}
}

func TestShell(t *testing.T) {
	srv, _ := setupTest(t, Config{})

	for _, target := range []string{"/", "/index.html"} {
		w := get(t, srv, target)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", target, w.Code)
		}
		body := w.Body.String()
		for _, want := range []string{
			"<h1>Welcome</h1><p>Start here.</p>",
			`<script src="/_docswitch/config.js"></script><script src="/_docswitch/boot.js"></script>`,
		} {
			if !strings.Contains(body, want) {
				t.Errorf("%s: missing %q in:\n%s", target, want, body)
			}
		}
	}
}

func TestScriptsAndStatic(t *testing.T) {
	srv, _ := setupTest(t, Config{Watch: true})

	w := get(t, srv, "/_docswitch/boot.js")
	if w.Body.String() != site.BootScript {
		t.Error("boot script not served verbatim")
	}

	w = get(t, srv, "/_docswitch/config.js")
	want := `window.docswitch = {"landing":"main","replaceableClass":"replacable","reload":true};`
	if got := strings.TrimSpace(w.Body.String()); got != want {
		t.Errorf("config.js = %q, want %q", got, want)
	}

	w = get(t, srv, "/style.css")
	if w.Code != http.StatusOK || w.Body.String() != "body{}" {
		t.Errorf("static file: %d %q", w.Code, w.Body.String())
	}
}

func TestNav(t *testing.T) {
	srv, _ := setupTest(t, Config{})

	w := get(t, srv, "/_docswitch/nav.html?page=guide/install")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	nav := w.Body.String()
	for _, want := range []string{
		`<li class="dir expanded"><span class="dir-toggle">Guide</span>`,
		`<a href="#guide/install" class="active">Install</a>`,
		`<a href="#main">Welcome</a>`,
	} {
		if !strings.Contains(nav, want) {
			t.Errorf("nav missing %q:\n%s", want, nav)
		}
	}
	if strings.Contains(nav, "#header") {
		t.Errorf("header fills a slot and should not be listed:\n%s", nav)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setupTest(t, Config{})
	get(t, srv, "/api/render/main")
	get(t, srv, "/api/render/missing")

	m := srv.Metrics()
	if got := testutil.ToFloat64(m.RendersTotal); got != 2 {
		t.Errorf("renders = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues("miss")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TableEntries); got != 4 {
		t.Errorf("table entries = %v, want 4", got)
	}

	w := get(t, srv, "/metrics")
	if !strings.Contains(w.Body.String(), "docswitch_renders_total 2") {
		t.Errorf("metrics output missing render counter:\n%s", w.Body.String())
	}
}

func TestReloadKeepsPreviousTableOnError(t *testing.T) {
	srv, dir := setupTest(t, Config{})

	writeTestFile(t, filepath.Join(dir, "pages.yml"), "main: [unclosed")
	if err := srv.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if got := testutil.ToFloat64(srv.Metrics().TableReloads.WithLabelValues("error")); got != 1 {
		t.Errorf("failed reloads = %v, want 1", got)
	}

	var resp renderResponse
	decode(t, get(t, srv, "/api/render/main"), &resp)
	if resp.Container != "<h1>Welcome</h1><p>Start here.</p>" {
		t.Errorf("previous table should stay in use, container = %q", resp.Container)
	}
}

func TestReloadNotifiesClients(t *testing.T) {
	srv, dir := setupTest(t, Config{Watch: true})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello message
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != "hello" || hello.Client == "" {
		t.Errorf("hello = %+v", hello)
	}
	if got := testutil.ToFloat64(srv.Metrics().ReloadClients); got != 1 {
		t.Errorf("reload clients = %v, want 1", got)
	}

	writeTestFile(t, filepath.Join(dir, "pages.yml"), `main: "<p>Changed</p>"`)
	if err := srv.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	var reload message
	if err := conn.ReadJSON(&reload); err != nil {
		t.Fatalf("read reload: %v", err)
	}
	if reload.Type != "reload" {
		t.Errorf("message type = %q, want reload", reload.Type)
	}

	res, err := http.Get(ts.URL + "/api/render/main")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), "<p>Changed</p>") {
		t.Errorf("render after reload = %s", body)
	}
}

func TestReloadChannelOriginPolicy(t *testing.T) {
	tests := []struct {
		name     string
		allowAll bool
		origin   string
		ok       bool
	}{
		{"no origin", false, "", true},
		{"localhost", false, "http://localhost:3000", true},
		{"loopback", false, "http://127.0.0.1:8080", true},
		{"foreign", false, "http://evil.example", false},
		{"https localhost", false, "https://localhost:3000", false},
		{"foreign with allow all", true, "http://evil.example", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := setupTest(t, Config{AllowAll: tt.allowAll})
			ts := httptest.NewServer(srv.Router())
			defer ts.Close()
			defer srv.hub.Close()

			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", header)
			if tt.ok {
				if err != nil {
					t.Fatalf("dial: %v", err)
				}
				conn.Close()
				return
			}
			if err == nil {
				conn.Close()
				t.Fatal("expected the upgrade to be refused")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("expected 403, got %v", resp)
			}
		})
	}
}

func TestOriginAllowedForSameHost(t *testing.T) {
	srv, _ := setupTest(t, Config{})
	req := httptest.NewRequest("GET", "http://docs.internal:8080/ws", nil)
	req.Header.Set("Origin", "http://docs.internal:8080")
	if !srv.originAllowed(req) {
		t.Error("pages served by the server itself should connect")
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	srv, _ := setupTest(t, Config{})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello message
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}

	srv.hub.Close()
	if srv.hub.Len() != 0 {
		t.Errorf("clients after close = %d", srv.hub.Len())
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed")
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv, dir := setupTest(t, Config{Watch: true})
	if err := srv.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer srv.Shutdown(context.Background())

	writeTestFile(t, filepath.Join(dir, "pages.yml"), `main: "<p>Edited</p>"`)

	reloads := srv.Metrics().TableReloads.WithLabelValues("ok")
	deadline := time.Now().Add(5 * time.Second)
	for testutil.ToFloat64(reloads) < 1 {
		if time.Now().After(deadline) {
			t.Fatal("table change did not trigger a reload")
		}
		time.Sleep(20 * time.Millisecond)
	}

	var resp renderResponse
	decode(t, get(t, srv, "/api/render/main"), &resp)
	if resp.Container != "<p>Edited</p>" {
		t.Errorf("container after reload = %q", resp.Container)
	}
}
