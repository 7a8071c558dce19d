package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/knadh/koanf/providers/file"

	"github.com/ziadkadry99/docswitch/internal/metrics"
	"github.com/ziadkadry99/docswitch/internal/router"
	"github.com/ziadkadry99/docswitch/internal/site"
	"github.com/ziadkadry99/docswitch/internal/table"
)

// localOrigins are the CORS origins allowed unless AllowAll is set.
var localOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}

const (
	bootPath   = "/" + site.InternalDir + "/boot.js"
	configPath = "/" + site.InternalDir + "/config.js"
	navPath    = "/" + site.InternalDir + "/nav.html"

	renderPrefix = "/api/render/"

	defaultSearchLimit = 20
)

// Config holds server configuration.
type Config struct {
	Port      int
	ShellPath string
	TablePath string
	Render    site.RenderOptions
	AllowAll  bool // allow all CORS origins
	Watch     bool // reload on file change and notify browsers
}

// Server is the docswitch development server. It renders pages on request
// from the current shell and table, which Reload swaps atomically.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	hub     *Hub

	mu       sync.RWMutex
	renderer *site.Renderer
	table    *table.Table
	index    []site.SearchEntry

	watchers   []*file.File
	router     chi.Router
	httpServer *http.Server
}

// New loads the shell and table and builds the routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := metrics.New()
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
	s.hub = NewHub(m.ReloadClients, s.originAllowed, logger)
	if err := s.load(); err != nil {
		return nil, err
	}
	s.router = s.buildRouter()
	return s, nil
}

// load reads the shell and table and swaps them in.
func (s *Server) load() error {
	renderer, err := site.LoadRenderer(s.cfg.ShellPath, s.cfg.Render)
	if err != nil {
		return err
	}
	renderer.Observe(s.metrics.ObserveRender)

	tbl, err := table.Load(s.cfg.TablePath)
	if err != nil {
		return err
	}
	index := site.BuildSearchIndex(tbl)

	s.mu.Lock()
	s.renderer = renderer
	s.table = tbl
	s.index = index
	s.mu.Unlock()

	s.metrics.TableEntries.Set(float64(tbl.Len()))
	return nil
}

// Reload re-reads the shell and table. On failure the previous ones stay
// in use. On success every connected browser is told to render again.
func (s *Server) Reload() error {
	if err := s.load(); err != nil {
		s.metrics.TableReloads.WithLabelValues("error").Inc()
		s.logger.Error("reload failed", "error", err)
		return err
	}
	s.metrics.TableReloads.WithLabelValues("ok").Inc()
	s.logger.Info("reloaded", "table", s.cfg.TablePath, "clients", s.hub.Len())
	s.hub.BroadcastReload()
	return nil
}

func (s *Server) current() (*site.Renderer, *table.Table, []site.SearchEntry) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.renderer, s.table, s.index
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   localOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Reload connections are long-lived and stay outside the timeout.
	r.Method(http.MethodGet, "/ws", s.hub)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/pages", s.handlePages)
			r.Get("/render/*", s.handleRender)
			r.Get("/search", s.handleSearch)
		})

		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

		r.Get(bootPath, s.handleBootScript)
		r.Get(configPath, s.handleConfigScript)
		r.Get(navPath, s.handleNav)
		r.Get("/", s.handleShell)
		r.Get("/"+filepath.Base(s.cfg.ShellPath), s.handleShell)
		r.Handle("/*", http.FileServer(http.Dir(filepath.Dir(s.cfg.ShellPath))))
	})

	return r
}

// originAllowed applies the CORS origin policy to reload connections.
// Requests without an Origin header and pages served by this server pass.
func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.cfg.AllowAll {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	host := u.Hostname()
	return u.Scheme == "http" && u.Port() != "" && (host == "localhost" || host == "127.0.0.1")
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.router }

// Metrics returns the server's collectors.
func (s *Server) Metrics() *metrics.Metrics { return s.metrics }

type pagesResponse struct {
	Landing string             `json:"landing"`
	Pages   []site.SearchEntry `json:"pages"`
}

func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	renderer, _, index := s.current()
	pages := make([]site.SearchEntry, len(index))
	for i, e := range index {
		e.Content = ""
		pages[i] = e
	}
	writeJSON(w, http.StatusOK, pagesResponse{Landing: renderer.Landing(), Pages: pages})
}

type reportJSON struct {
	Elements   int     `json:"elements"`
	Hits       int     `json:"hits"`
	Misses     int     `json:"misses"`
	Documents  int     `json:"documents"`
	DurationMS float64 `json:"duration_ms"`
}

type renderResponse struct {
	Page      string     `json:"page"`
	Status    string     `json:"status"` // "ok" or "not_found"
	Container string     `json:"container"`
	Elements  []string   `json:"elements"`
	Report    reportJSON `json:"report"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	// chi matches on the decoded path, so the name is taken from the
	// escaped one and decoded exactly once.
	page, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), renderPrefix))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page name")
		return
	}

	renderer, tbl, _ := s.current()
	doc, rep, err := renderer.Render(tbl, page)
	if err != nil {
		s.logger.Error("render failed", "page", page, "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	resp := renderResponse{
		Page:      rep.Page,
		Status:    "ok",
		Container: doc.ContainerHTML(),
		Elements:  doc.ReplaceableHTML(),
		Report:    toReportJSON(rep),
	}
	status := http.StatusOK
	if _, ok := tbl.Get(rep.Page); !ok {
		resp.Status = "not_found"
		status = http.StatusNotFound
	}
	writeJSON(w, status, resp)
}

func toReportJSON(rep router.Report) reportJSON {
	return reportJSON{
		Elements:   rep.Elements,
		Hits:       rep.Hits,
		Misses:     rep.Misses,
		Documents:  rep.Documents,
		DurationMS: float64(rep.Duration.Microseconds()) / 1000,
	}
}

type searchResponse struct {
	Query   string             `json:"query"`
	Results []site.SearchEntry `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	_, _, index := s.current()
	results := site.Search(index, q, limit)
	if results == nil {
		results = []site.SearchEntry{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: q, Results: results})
}

// handleShell serves the landing page rendered server-side, with the boot
// script attached so hash navigation keeps working.
func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	renderer, tbl, _ := s.current()
	doc, _, err := renderer.Render(tbl, "")
	if err != nil {
		s.logger.Error("render failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	doc.AppendScript(configPath)
	doc.AppendScript(bootPath)

	out, err := doc.HTML()
	if err != nil {
		s.logger.Error("serializing shell", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write([]byte(out))
}

// handleNav serves the navigation tree with fragment links. The page query
// parameter marks the active page.
func (s *Server) handleNav(w http.ResponseWriter, r *http.Request) {
	renderer, tbl, index := s.current()
	titles := make(map[string]string, len(index))
	for _, e := range index {
		titles[e.Page] = e.Title
	}
	active := r.URL.Query().Get("page")
	if active == "" {
		active = renderer.Landing()
	}
	nav := site.NavTree(tbl.Names(), renderer.Slots(), titles).ToHTML(active)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(nav))
}

func (s *Server) handleBootScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Write([]byte(site.BootScript))
}

type clientConfig struct {
	Landing          string `json:"landing"`
	ReplaceableClass string `json:"replaceableClass"`
	Reload           bool   `json:"reload"`
}

func (s *Server) handleConfigScript(w http.ResponseWriter, r *http.Request) {
	renderer, _, _ := s.current()
	data, err := json.Marshal(clientConfig{
		Landing:          renderer.Landing(),
		ReplaceableClass: s.cfg.Render.DOM.ReplaceableClass,
		Reload:           s.cfg.Watch,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "no-store")
	fmt.Fprintf(w, "window.docswitch = %s;\n", data)
}

// Watch reloads whenever the shell or the table changes on disk.
func (s *Server) Watch() error {
	for _, p := range []string{s.cfg.ShellPath, s.cfg.TablePath} {
		f := file.Provider(p)
		name := path.Base(filepath.ToSlash(p))
		err := f.Watch(func(_ interface{}, err error) {
			if err != nil {
				s.logger.Warn("watch", "file", name, "error", err)
				return
			}
			s.logger.Debug("file changed", "file", name)
			s.Reload()
		})
		if err != nil {
			s.unwatch()
			return fmt.Errorf("watching %s: %w", p, err)
		}
		s.watchers = append(s.watchers, f)
	}
	return nil
}

func (s *Server) unwatch() {
	for _, f := range s.watchers {
		if err := f.Unwatch(); err != nil {
			s.logger.Debug("unwatch", "error", err)
		}
	}
	s.watchers = nil
}

// Start begins listening on the configured port. Watching starts first when
// enabled.
func (s *Server) Start() error {
	if s.cfg.Watch {
		if err := s.Watch(); err != nil {
			return err
		}
	}

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("docswitch server listening", "addr", addr, "watch", s.cfg.Watch)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops watching, disconnects reload clients and gracefully shuts
// down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.unwatch()
	s.hub.Close()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
