package site

import (
	"fmt"
	"os"

	"github.com/ziadkadry99/docswitch/internal/dom"
	"github.com/ziadkadry99/docswitch/internal/router"
)

// RenderOptions control how a page is rendered from the shell.
type RenderOptions struct {
	DOM     dom.Options
	Landing string
	Escape  bool
}

// Renderer renders pages headlessly from one shell page. A Renderer holds
// only the shell bytes, so it is safe for concurrent use.
type Renderer struct {
	shell   []byte
	opts    RenderOptions
	observe func(router.Report)
}

// NewRenderer checks that shell has a container and returns a Renderer for it.
func NewRenderer(shell []byte, opts RenderOptions) (*Renderer, error) {
	if opts.Landing == "" {
		opts.Landing = router.LandingPage
	}
	if _, err := dom.ParseBytes(shell, opts.DOM); err != nil {
		return nil, err
	}
	return &Renderer{shell: shell, opts: opts}, nil
}

// LoadRenderer reads the shell page at path.
func LoadRenderer(path string, opts RenderOptions) (*Renderer, error) {
	shell, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shell %s: %w", path, err)
	}
	r, err := NewRenderer(shell, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Observe registers fn to receive the report of every page rendered.
func (r *Renderer) Observe(fn func(router.Report)) {
	r.observe = fn
}

// Landing returns the page rendered for an empty name.
func (r *Renderer) Landing() string { return r.opts.Landing }

// Render parses a fresh copy of the shell and renders page into it, as a
// browser would on first load with page as the fragment. An empty page
// renders the landing page.
func (r *Renderer) Render(tbl router.Table, page string) (*dom.Document, router.Report, error) {
	doc, err := dom.ParseBytes(r.shell, r.opts.DOM)
	if err != nil {
		return nil, router.Report{}, err
	}

	var rep router.Report
	opts := []router.Option{
		router.WithLanding(r.opts.Landing),
		router.WithObserver(func(pass router.Report) {
			rep = pass
			if r.observe != nil {
				r.observe(pass)
			}
		}),
	}
	if r.opts.Escape {
		opts = append(opts, router.WithEscaping())
	}

	router.New(dom.NewLocation(page), doc, tbl, opts...).OnInitialLoad()
	return doc, rep, nil
}

// Slots returns the placeholders of the shell's replaceable elements that
// sit outside the container. Entries filling them are parts of every page
// rather than pages of their own.
func (r *Renderer) Slots() map[string]bool {
	doc, err := dom.ParseBytes(r.shell, r.opts.DOM)
	if err != nil {
		return nil
	}
	slots := make(map[string]bool)
	for _, p := range doc.Slots() {
		slots[p] = true
	}
	return slots
}
