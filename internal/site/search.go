package site

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ziadkadry99/docswitch/internal/table"
)

// maxContent caps the text kept per page in the search index.
const maxContent = 2000

// SearchEntry represents a single searchable page.
type SearchEntry struct {
	Page    string `json:"page"`
	Title   string `json:"title"`
	Kind    string `json:"kind"`
	Source  string `json:"source,omitempty"`
	Content string `json:"content,omitempty"`
}

// BuildSearchIndex builds one entry per table entry, in table order.
func BuildSearchIndex(tbl *table.Table) []SearchEntry {
	var entries []SearchEntry
	for _, e := range tbl.Entries() {
		entry := SearchEntry{
			Page:  e.Name,
			Title: e.Name,
			Kind:  e.Value.Kind().String(),
		}
		if e.Value.Kind() == table.DocumentRef {
			entry.Source = e.Value.Source()
		} else {
			title, text := extractText(string(e.Value))
			if title != "" {
				entry.Title = title
			}
			entry.Content = truncate(text, maxContent)
		}
		entries = append(entries, entry)
	}
	return entries
}

// extractText returns the first heading and the collapsed text of markup.
func extractText(markup string) (title, text string) {
	z := html.NewTokenizer(strings.NewReader(markup))
	var b, heading strings.Builder
	depth := 0 // >0 while inside a heading
	skip := 0  // >0 while inside script or style

	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(collapse(heading.String())), strings.TrimSpace(collapse(b.String()))
		case html.StartTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Script, atom.Style:
				skip++
			case atom.H1, atom.H2, atom.H3:
				if heading.Len() == 0 {
					depth++
				}
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Script, atom.Style:
				if skip > 0 {
					skip--
				}
			case atom.H1, atom.H2, atom.H3:
				if depth > 0 {
					depth--
				}
			}
			b.WriteByte(' ')
		case html.TextToken:
			if skip > 0 {
				continue
			}
			t := string(z.Text())
			b.WriteString(t)
			if depth > 0 {
				heading.WriteString(t)
			}
		}
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// Search returns entries whose page name, title or content contains every
// word of query, case-insensitively. Title and name matches rank first.
func Search(entries []SearchEntry, query string, limit int) []SearchEntry {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil
	}

	type scored struct {
		entry SearchEntry
		score int
	}
	var hits []scored
	for _, e := range entries {
		head := strings.ToLower(e.Page + " " + e.Title)
		body := strings.ToLower(e.Content)
		score := 0
		for _, w := range words {
			switch {
			case strings.Contains(head, w):
				score += 2
			case strings.Contains(body, w):
				score++
			default:
				score = -1
			}
			if score < 0 {
				break
			}
		}
		if score > 0 {
			hits = append(hits, scored{e, score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]SearchEntry, len(hits))
	for i, h := range hits {
		out[i] = h.entry
	}
	return out
}

// WriteSearchIndex writes the search index as JSON to the given path.
func WriteSearchIndex(entries []SearchEntry, outputPath string) error {
	if entries == nil {
		entries = []SearchEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}
