// Package router turns a navigation fragment into rendered page content.
//
// A Router owns the current page name. Each render writes the page's
// placeholder token into the container element, then resolves every
// replaceable element's placeholder against a Table: literal markup is
// written as the element's content, document references become an embedded
// frame, and unknown placeholders get the 404 markup. The router never
// fails; hosts supply the Location and Document it works on.
package router

import (
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/ziadkadry99/docswitch/internal/table"
)

// LandingPage is the page shown when the location carries no fragment.
const LandingPage = "main"

// PlaceholderAttr records the placeholder an element was authored with once
// its content has been substituted, so later passes resolve the same token.
const PlaceholderAttr = "data-docswitch-token"

// FrameResizeScript is set as the onload handler of embedded frames so they
// grow to the height of the loaded document.
const FrameResizeScript = "this.style.height=this.contentWindow.document.documentElement.scrollHeight+'px'"

// Location is the navigation fragment (the part of the address after '#').
type Location interface {
	Fragment() string
	SetFragment(fragment string)
}

// Document is the page the router renders into.
type Document interface {
	// SetContainer replaces the container element's content with markup.
	SetContainer(markup string)
	// Replaceables returns the elements flagged for substitution, in
	// document order, as they are at the moment of the call.
	Replaceables() []Element
}

// Element is a substitution target.
type Element interface {
	// Placeholder returns the token the element was authored with, or its
	// current content if it has not been substituted yet.
	Placeholder() string
	// SetContent replaces the element's content with markup.
	SetContent(markup string)
	// EmbedDocument clears the element and appends a borderless frame
	// loading src as its only child.
	EmbedDocument(src string)
}

// Table resolves placeholders to values.
type Table interface {
	Lookup(content string) (table.Value, bool)
}

// State is the router lifecycle state.
type State int

const (
	Uninitialized State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "uninitialized"
}

// Report summarizes one render pass.
type Report struct {
	Page      string
	Elements  int
	Hits      int
	Misses    int
	Documents int
	Duration  time.Duration
}

// Option configures a Router.
type Option func(*Router)

// WithLanding sets the page used when the initial fragment is empty.
func WithLanding(page string) Option {
	return func(r *Router) {
		if page != "" {
			r.landing = page
		}
	}
}

// WithEscaping treats markup values as untrusted text and escapes them.
// Document references and the 404 markup are unaffected.
func WithEscaping() Option {
	return func(r *Router) { r.escape = true }
}

// WithObserver registers a function called with the report of every pass.
func WithObserver(fn func(Report)) Option {
	return func(r *Router) { r.observe = fn }
}

// Router holds the navigation state for one page and renders it.
// It is meant to be driven from a single goroutine.
type Router struct {
	loc   Location
	doc   Document
	table Table

	state State
	page  string

	landing string
	escape  bool
	observe func(Report)
}

// New creates a Router in the Uninitialized state.
func New(loc Location, doc Document, tbl Table, opts ...Option) *Router {
	r := &Router{
		loc:     loc,
		doc:     doc,
		table:   tbl,
		landing: LandingPage,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnInitialLoad reads the fragment, falling back to the landing page when it
// is empty, and renders it.
func (r *Router) OnInitialLoad() {
	page := r.loc.Fragment()
	if page == "" {
		page = r.landing
		r.loc.SetFragment(page)
	}
	r.page = page
	r.state = Ready
	r.Render()
}

// NavigateTo makes page current and renders it. Any name is accepted;
// names without an entry render the 404 markup.
func (r *Router) NavigateTo(page string) {
	r.loc.SetFragment(page)
	r.page = page
	r.Render()
}

// OnFragmentChange follows a fragment changed outside NavigateTo, by a link
// or the history buttons. It renders only when the fragment names a page
// other than the current one and reports whether it did.
func (r *Router) OnFragmentChange() bool {
	page := r.loc.Fragment()
	if page == "" {
		page = r.landing
	}
	if page == r.page {
		return false
	}
	r.NavigateTo(page)
	return true
}

// DecodeFragment turns a raw location hash into a page name. Browsers
// percent-encode spaces and non-ASCII characters in the hash; they are
// decoded the way decodeURIComponent does. Malformed escapes are kept.
func DecodeFragment(hash string) string {
	raw := strings.TrimPrefix(hash, "#")
	if page, err := url.PathUnescape(raw); err == nil {
		return page
	}
	return raw
}

// Render writes the current page's token into the container and resolves
// every replaceable element. The set of targets is captured once, after the
// token is written, and processed in order.
func (r *Router) Render() Report {
	start := time.Now()

	r.doc.SetContainer(table.Token(r.page))
	targets := r.doc.Replaceables()

	rep := Report{Page: r.page, Elements: len(targets)}
	for _, el := range targets {
		v, ok := r.lookup(el.Placeholder())
		switch {
		case !ok:
			rep.Misses++
			el.SetContent(table.NotFoundMarkup)
		case v.Kind() == table.DocumentRef:
			rep.Documents++
			el.EmbedDocument(v.Source())
		default:
			rep.Hits++
			el.SetContent(r.markup(v))
		}
	}
	rep.Duration = time.Since(start)

	if r.observe != nil {
		r.observe(rep)
	}
	return rep
}

func (r *Router) lookup(content string) (table.Value, bool) {
	if r.table == nil {
		return "", false
	}
	return r.table.Lookup(content)
}

func (r *Router) markup(v table.Value) string {
	if r.escape {
		return html.EscapeString(string(v))
	}
	return string(v)
}

// SetTable swaps the table used by later renders.
func (r *Router) SetTable(tbl Table) { r.table = tbl }

// Page returns the current page name.
func (r *Router) Page() string { return r.page }

// State returns the lifecycle state.
func (r *Router) State() State { return r.state }
