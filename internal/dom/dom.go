// Package dom is a headless host for the router: it parses a shell page
// with golang.org/x/net/html and implements router.Document on the tree.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ziadkadry99/docswitch/internal/router"
)

// ErrNoContainer is returned when the shell has no element with the
// configured container id.
var ErrNoContainer = errors.New("container element not found")

// Options names the elements the router works on.
type Options struct {
	ContainerID      string
	ReplaceableClass string
}

// DefaultOptions matches the ids and classes used by the shipped pages.
func DefaultOptions() Options {
	return Options{
		ContainerID:      "maindiv",
		ReplaceableClass: "replacable",
	}
}

// Document is a parsed shell page.
type Document struct {
	root      *html.Node
	container *html.Node
	opts      Options
}

var _ router.Document = (*Document)(nil)

// Parse reads a shell page.
func Parse(r io.Reader, opts Options) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing shell: %w", err)
	}
	container := findByID(root, opts.ContainerID)
	if container == nil {
		return nil, fmt.Errorf("%w: #%s", ErrNoContainer, opts.ContainerID)
	}
	return &Document{root: root, container: container, opts: opts}, nil
}

// ParseBytes is Parse over an in-memory shell.
func ParseBytes(shell []byte, opts Options) (*Document, error) {
	return Parse(bytes.NewReader(shell), opts)
}

// SetContainer replaces the container's content and forgets any placeholder
// recorded on it.
func (d *Document) SetContainer(markup string) {
	removeAttr(d.container, router.PlaceholderAttr)
	setInnerHTML(d.container, markup)
}

// Replaceables walks the tree in document order and returns every element
// carrying the replaceable class.
func (d *Document) Replaceables() []router.Element {
	var out []router.Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, d.opts.ReplaceableClass) {
			out = append(out, &Element{node: n})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return out
}

// AppendScript adds a script element loading src at the end of the body.
func (d *Document) AppendScript(src string) {
	body := findFirst(d.root, atom.Body)
	if body == nil {
		body = d.root
	}
	body.AppendChild(&html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr:     []html.Attribute{{Key: "src", Val: src}},
	})
}

// AppendInlineScript adds a script element holding code at the end of the
// body.
func (d *Document) AppendInlineScript(code string) {
	body := findFirst(d.root, atom.Body)
	if body == nil {
		body = d.root
	}
	script := &html.Node{Type: html.ElementNode, Data: "script", DataAtom: atom.Script}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: code})
	body.AppendChild(script)
}

// SetBase makes href the base URL of relative links by inserting a base
// element at the start of the head. A shell that declares its own base is
// left alone. Reports whether the element was added.
func (d *Document) SetBase(href string) bool {
	if findFirst(d.root, atom.Base) != nil {
		return false
	}
	head := findFirst(d.root, atom.Head)
	if head == nil {
		return false
	}
	head.InsertBefore(&html.Node{
		Type:     html.ElementNode,
		Data:     "base",
		DataAtom: atom.Base,
		Attr:     []html.Attribute{{Key: "href", Val: href}},
	}, head.FirstChild)
	return true
}

// Slots returns the placeholders of the replaceable elements other than the
// container, in document order. They are filled on every page.
func (d *Document) Slots() []string {
	var out []string
	for _, el := range d.Replaceables() {
		e := el.(*Element)
		if e.node == d.container {
			continue
		}
		out = append(out, e.Placeholder())
	}
	return out
}

// HTML serializes the whole document.
func (d *Document) HTML() (string, error) {
	var b strings.Builder
	if err := html.Render(&b, d.root); err != nil {
		return "", fmt.Errorf("rendering document: %w", err)
	}
	return b.String(), nil
}

// ContainerHTML serializes the container's content.
func (d *Document) ContainerHTML() string {
	return innerHTML(d.container)
}

// ReplaceableHTML serializes the content of every replaceable element, in
// the order Replaceables returns them.
func (d *Document) ReplaceableHTML() []string {
	els := d.Replaceables()
	out := make([]string, len(els))
	for i, el := range els {
		out[i] = innerHTML(el.(*Element).node)
	}
	return out
}

// Element is a replaceable element in a parsed document.
type Element struct {
	node *html.Node
}

var _ router.Element = (*Element)(nil)

// Placeholder returns the recorded token, or the inner HTML when the element
// has not been substituted.
func (e *Element) Placeholder() string {
	if tok, ok := attr(e.node, router.PlaceholderAttr); ok {
		return tok
	}
	return innerHTML(e.node)
}

// SetContent replaces the element's content with markup.
func (e *Element) SetContent(markup string) {
	e.remember()
	setInnerHTML(e.node, markup)
}

// EmbedDocument replaces the element's content with a borderless iframe.
func (e *Element) EmbedDocument(src string) {
	e.remember()
	clearChildren(e.node)
	e.node.AppendChild(&html.Node{
		Type:     html.ElementNode,
		Data:     "iframe",
		DataAtom: atom.Iframe,
		Attr: []html.Attribute{
			{Key: "src", Val: src},
			{Key: "frameborder", Val: "0"},
			{Key: "onload", Val: router.FrameResizeScript},
		},
	})
}

func (e *Element) remember() {
	if _, ok := attr(e.node, router.PlaceholderAttr); ok {
		return
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: router.PlaceholderAttr, Val: innerHTML(e.node)})
}

// Location is an in-memory navigation fragment.
type Location struct {
	fragment string
}

var _ router.Location = (*Location)(nil)

// NewLocation returns a Location holding fragment (without the '#').
func NewLocation(fragment string) *Location {
	return &Location{fragment: fragment}
}

func (l *Location) Fragment() string            { return l.fragment }
func (l *Location) SetFragment(fragment string) { l.fragment = fragment }
