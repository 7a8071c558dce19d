package site

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/ziadkadry99/docswitch/internal/table"
)

// PageTree represents a node in the navigation tree built from page names.
type PageTree struct {
	Name     string
	Title    string // Display name: the page's first heading, or formatted from Name.
	Path     string // Slash-joined names from the root to this node.
	HasPage  bool   // The table has an entry for Path.
	Children []*PageTree
}

// IsDir reports whether the node groups other pages.
func (t *PageTree) IsDir() bool { return len(t.Children) > 0 }

// BuildTree constructs a PageTree from page names, splitting them on '/'.
// titles is an optional map of page name to display title.
func BuildTree(pages []string, titles map[string]string) *PageTree {
	root := &PageTree{Name: "pages"}

	for _, p := range pages {
		parts := strings.Split(p, "/")
		current := root
		for i, part := range parts {
			var node *PageTree
			for _, child := range current.Children {
				if child.Name == part {
					node = child
					break
				}
			}
			if node == nil {
				node = &PageTree{
					Name:  part,
					Path:  strings.Join(parts[:i+1], "/"),
					Title: formatDirName(part),
				}
				current.Children = append(current.Children, node)
			}
			if i == len(parts)-1 {
				node.HasPage = true
				if title, ok := titles[p]; ok && title != "" {
					node.Title = title
				}
			}
			current = node
		}
	}

	sortTree(root)
	return root
}

// NavTree builds the navigation tree for pages, leaving out entries whose
// token fills a slot outside the container: those appear on every page.
func NavTree(pages []string, slots map[string]bool, titles map[string]string) *PageTree {
	var nav []string
	for _, name := range pages {
		if !slots[table.Token(name)] {
			nav = append(nav, name)
		}
	}
	return BuildTree(nav, titles)
}

// sortTree recursively sorts children: groups first, then pages, by name.
func sortTree(node *PageTree) {
	sort.SliceStable(node.Children, func(i, j int) bool {
		a, b := node.Children[i], node.Children[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		return a.Name < b.Name
	})
	for _, child := range node.Children {
		sortTree(child)
	}
}

// ToHTML renders the tree as nested <ul><li> HTML linking to #page
// fragments. Groups containing activePage are marked expanded.
func (t *PageTree) ToHTML(activePage string) string {
	return t.ToHTMLWithLinks(activePage, func(page string) string { return "#" + page })
}

// ToHTMLWithLinks is ToHTML with href computing each page's link.
func (t *PageTree) ToHTMLWithLinks(activePage string, href func(page string) string) string {
	var b strings.Builder
	renderChildren(&b, t, activePage, computeActiveAncestors(activePage), href)
	return b.String()
}

// computeActiveAncestors returns the paths of the groups above activePage.
// For "guide/install/linux" it returns {"guide", "guide/install"}.
func computeActiveAncestors(activePage string) map[string]bool {
	ancestors := make(map[string]bool)
	parts := strings.Split(activePage, "/")
	for i := 1; i < len(parts); i++ {
		ancestors[strings.Join(parts[:i], "/")] = true
	}
	return ancestors
}

func renderChildren(b *strings.Builder, node *PageTree, activePage string, activeAncestors map[string]bool, href func(string) string) {
	if len(node.Children) == 0 {
		return
	}
	b.WriteString("<ul>\n")
	for _, child := range node.Children {
		label := html.EscapeString(child.Title)
		activeClass := ""
		if child.HasPage && child.Path == activePage {
			activeClass = ` class="active"`
		}

		if !child.IsDir() {
			fmt.Fprintf(b, `<li class="page"><a href="%s"%s>%s</a></li>`+"\n", html.EscapeString(href(child.Path)), activeClass, label)
			continue
		}

		expanded := ""
		if activeAncestors[child.Path] {
			expanded = " expanded"
		}
		if child.HasPage {
			fmt.Fprintf(b, `<li class="dir%s"><a href="%s"%s>%s</a>`+"\n", expanded, html.EscapeString(href(child.Path)), activeClass, label)
		} else {
			fmt.Fprintf(b, `<li class="dir%s"><span class="dir-toggle">%s</span>`+"\n", expanded, label)
		}
		renderChildren(b, child, activePage, activeAncestors, href)
		b.WriteString("</li>\n")
	}
	b.WriteString("</ul>\n")
}

// formatDirName converts a slug to a human-readable display name.
func formatDirName(name string) string {
	words := strings.FieldsFunc(name, func(c rune) bool {
		return c == '-' || c == '_'
	})
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
