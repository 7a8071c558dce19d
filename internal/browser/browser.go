//go:build js && wasm

package browser

import (
	"log/slog"
	"syscall/js"

	"github.com/ziadkadry99/docswitch/internal/router"
	"github.com/ziadkadry99/docswitch/internal/table"
)

// Location reads and writes window.location.hash.
type Location struct {
	loc js.Value
}

var _ router.Location = (*Location)(nil)

func NewLocation() *Location {
	return &Location{loc: js.Global().Get("location")}
}

// Fragment returns the decoded page name held by the hash.
func (l *Location) Fragment() string {
	return router.DecodeFragment(l.loc.Get("hash").String())
}

func (l *Location) SetFragment(fragment string) {
	l.loc.Set("hash", fragment)
}

// Document renders into the live DOM.
type Document struct {
	doc         js.Value
	containerID string
	class       string
	logger      *slog.Logger
}

var _ router.Document = (*Document)(nil)

// NewDocument binds to the global document. logger may be nil.
func NewDocument(containerID, replaceableClass string, logger *slog.Logger) *Document {
	if logger == nil {
		logger = slog.Default()
	}
	return &Document{
		doc:         js.Global().Get("document"),
		containerID: containerID,
		class:       replaceableClass,
		logger:      logger,
	}
}

func (d *Document) SetContainer(markup string) {
	el := d.doc.Call("getElementById", d.containerID)
	if !el.Truthy() {
		d.logger.Error("container element not found", "id", d.containerID)
		return
	}
	el.Call("removeAttribute", router.PlaceholderAttr)
	el.Set("innerHTML", markup)
}

// Replaceables snapshots the live HTMLCollection so later substitutions do
// not shift the indices being iterated.
func (d *Document) Replaceables() []router.Element {
	coll := d.doc.Call("getElementsByClassName", d.class)
	n := coll.Get("length").Int()
	out := make([]router.Element, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &Element{doc: d.doc, el: coll.Index(i)})
	}
	return out
}

// Element wraps one DOM node.
type Element struct {
	doc js.Value
	el  js.Value
}

var _ router.Element = (*Element)(nil)

func (e *Element) Placeholder() string {
	if e.el.Call("hasAttribute", router.PlaceholderAttr).Bool() {
		return e.el.Call("getAttribute", router.PlaceholderAttr).String()
	}
	return e.el.Get("innerHTML").String()
}

func (e *Element) SetContent(markup string) {
	e.remember()
	e.el.Set("innerHTML", markup)
}

func (e *Element) EmbedDocument(src string) {
	e.remember()
	e.el.Set("innerHTML", "")
	f := e.doc.Call("createElement", "iframe")
	f.Set("src", src)
	f.Set("frameBorder", "0")
	f.Call("setAttribute", "onload", router.FrameResizeScript)
	e.el.Call("appendChild", f)
}

func (e *Element) remember() {
	if e.el.Call("hasAttribute", router.PlaceholderAttr).Bool() {
		return
	}
	e.el.Call("setAttribute", router.PlaceholderAttr, e.el.Get("innerHTML").String())
}

// TableFromGlobal builds a table from a global object such as
// `var replaceText = {...}`, keeping its key order.
func TableFromGlobal(name string) (*table.Table, error) {
	obj := js.Global().Get(name)
	if !obj.Truthy() {
		return nil, table.ErrEmpty
	}
	keys := js.Global().Get("Object").Call("keys", obj)
	n := keys.Length()
	entries := make([]table.Entry, 0, n)
	for i := 0; i < n; i++ {
		k := keys.Index(i).String()
		entries = append(entries, table.Entry{Name: k, Value: table.Value(obj.Get(k).String())})
	}
	if len(entries) == 0 {
		return nil, table.ErrEmpty
	}
	return table.New(entries...)
}

// Listen re-renders on hashchange and exposes changePage(name) on window for
// links in the shell. The returned function removes both hooks.
func Listen(r *router.Router) (release func()) {
	onHash := js.FuncOf(func(this js.Value, args []js.Value) any {
		r.OnFragmentChange()
		return nil
	})
	changePage := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) > 0 {
			r.NavigateTo(args[0].String())
		}
		return nil
	})

	window := js.Global()
	window.Call("addEventListener", "hashchange", onHash)
	window.Set("changePage", changePage)

	return func() {
		window.Call("removeEventListener", "hashchange", onHash)
		window.Delete("changePage")
		onHash.Release()
		changePage.Release()
	}
}
