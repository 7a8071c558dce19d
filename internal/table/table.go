package table

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DocumentPrefix marks a value as a reference to an external document.
const DocumentPrefix = "file:"

// NotFoundMarkup is written into a replaceable element whose placeholder has
// no entry in the table.
const NotFoundMarkup = "<strong><h1>404: Unknown text!</h1></strong>"

var (
	// ErrDuplicateKey is returned when a page name appears twice.
	ErrDuplicateKey = errors.New("duplicate page name")
	// ErrEmpty is returned when a table source declares no pages.
	ErrEmpty = errors.New("table has no entries")
)

// Kind distinguishes the two forms a table value can take.
type Kind int

const (
	Markup Kind = iota
	DocumentRef
)

func (k Kind) String() string {
	switch k {
	case Markup:
		return "markup"
	case DocumentRef:
		return "document"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is the content a page name maps to: either literal markup or,
// when prefixed with "file:", the location of a document to embed.
type Value string

// Kind reports whether v is literal markup or a document reference.
func (v Value) Kind() Kind {
	if strings.HasPrefix(string(v), DocumentPrefix) {
		return DocumentRef
	}
	return Markup
}

// Source returns the document location of a reference value. For markup
// values it returns the markup unchanged.
func (v Value) Source() string {
	return strings.TrimPrefix(string(v), DocumentPrefix)
}

// Entry is one page name and its value.
type Entry struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Token returns the placeholder for a page name, e.g. "{main}".
func Token(name string) string {
	return "{" + name + "}"
}

// Table is an ordered, read-only mapping from page names to values.
// Lookups scan entries in declaration order.
type Table struct {
	entries []Entry
	index   map[string]int
}

// New builds a table from entries, keeping their order.
func New(entries ...Entry) (*Table, error) {
	t := &Table{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if _, dup := t.index[e.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, e.Name)
		}
		t.index[e.Name] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// FromMap builds a table from a plain map. Map iteration order is not
// stable, so entries are sorted by name.
func FromMap(m map[string]string) *Table {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]Entry, len(names))
	for i, name := range names {
		entries[i] = Entry{Name: name, Value: Value(m[name])}
	}
	// Map keys are unique, so New cannot fail here.
	t, _ := New(entries...)
	return t
}

// Lookup scans the table for the first entry whose placeholder equals
// content exactly.
func (t *Table) Lookup(content string) (Value, bool) {
	if t == nil {
		return "", false
	}
	for _, e := range t.entries {
		if content == Token(e.Name) {
			return e.Value, true
		}
	}
	return "", false
}

// Resolve is Lookup with the 404 markup as the fallback.
func (t *Table) Resolve(content string) Value {
	if v, ok := t.Lookup(content); ok {
		return v
	}
	return NotFoundMarkup
}

// Get returns the value for a page name.
func (t *Table) Get(name string) (Value, bool) {
	if t == nil {
		return "", false
	}
	i, ok := t.index[name]
	if !ok {
		return "", false
	}
	return t.entries[i].Value, true
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Names returns the page names in declaration order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns a copy of the entries in declaration order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}
