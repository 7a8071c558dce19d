package table

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

// markdown compiles markdown entries to markup once, at load time.
var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(),
	),
)

// Load reads a table file. The format is chosen by extension: .yml/.yaml,
// .json, or .js (a script assigning a JSON-compatible object literal, as
// shipped alongside static pages).
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading table %s: %w", path, err)
	}

	var t *Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		t, err = ParseYAML(data)
	case ".json":
		t, err = ParseJSON(data)
	case ".js":
		t, err = ParseScript(data)
	default:
		return nil, fmt.Errorf("unsupported table format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("loading table %s: %w", path, err)
	}
	return t, nil
}

// source is the long form of a table value. Exactly one field must be set.
type source struct {
	Markup   *string `yaml:"markup" json:"markup"`
	Markdown *string `yaml:"markdown" json:"markdown"`
	File     *string `yaml:"file" json:"file"`
}

func (s source) value() (Value, error) {
	set := 0
	for _, f := range []*string{s.Markup, s.Markdown, s.File} {
		if f != nil {
			set++
		}
	}
	if set != 1 {
		return "", errors.New("exactly one of markup, markdown or file must be set")
	}

	switch {
	case s.Markup != nil:
		return Value(*s.Markup), nil
	case s.Markdown != nil:
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(*s.Markdown), &buf); err != nil {
			return "", fmt.Errorf("converting markdown: %w", err)
		}
		return Value(strings.TrimSpace(buf.String())), nil
	default:
		return Value(DocumentPrefix + *s.File), nil
	}
}

// ParseYAML parses a YAML mapping of page names to values. Entries keep the
// order they are declared in.
func ParseYAML(data []byte) (*Table, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, ErrEmpty
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("table must be a mapping (line %d)", root.Line)
	}

	entries := make([]Entry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]

		var v Value
		switch val.Kind {
		case yaml.ScalarNode:
			if val.ShortTag() == "!!null" {
				return nil, fmt.Errorf("page %q (line %d): value is null", key.Value, key.Line)
			}
			v = Value(val.Value)
		case yaml.MappingNode:
			var src source
			if err := val.Decode(&src); err != nil {
				return nil, fmt.Errorf("page %q (line %d): %w", key.Value, key.Line, err)
			}
			var err error
			if v, err = src.value(); err != nil {
				return nil, fmt.Errorf("page %q (line %d): %w", key.Value, key.Line, err)
			}
		default:
			return nil, fmt.Errorf("page %q (line %d): value must be a string or mapping", key.Value, key.Line)
		}
		entries = append(entries, Entry{Name: key.Value, Value: v})
	}

	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	return New(entries...)
}

// ParseJSON parses a JSON object of page names to values, keeping the
// declaration order of its members.
func ParseJSON(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("table must be a JSON object")
	}

	var entries []Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing json: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("page %q: %w", name, err)
		}
		v, err := jsonValue(raw)
		if err != nil {
			return nil, fmt.Errorf("page %q: %w", name, err)
		}
		entries = append(entries, Entry{Name: name, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing json: %w", err)
	}

	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	return New(entries...)
}

func jsonValue(raw json.RawMessage) (Value, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", errors.New("value is null")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Value(s), nil
	}
	var src source
	if err := json.Unmarshal(raw, &src); err != nil {
		return "", fmt.Errorf("value must be a string or object: %w", err)
	}
	return src.value()
}

// ParseScript extracts the first top-level object literal from a script
// such as `var replaceText = {...};` and parses it as JSON. Code before and
// after the literal is ignored.
func ParseScript(data []byte) (*Table, error) {
	lit, err := objectLiteral(data)
	if err != nil {
		return nil, err
	}
	return ParseJSON(lit)
}

// objectLiteral returns the first balanced {...} in src. Braces inside
// string literals and comments are skipped.
func objectLiteral(src []byte) ([]byte, error) {
	depth, start := 0, -1
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '"', '\'', '`':
			i = closingQuote(src, i)
		case '/':
			if i+1 >= len(src) {
				break
			}
			switch src[i+1] {
			case '/':
				if j := bytes.IndexByte(src[i:], '\n'); j >= 0 {
					i += j
				} else {
					i = len(src)
				}
			case '*':
				if j := bytes.Index(src[i+2:], []byte("*/")); j >= 0 {
					i += j + 3
				} else {
					i = len(src)
				}
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return src[start : i+1], nil
				}
			}
		}
	}
	if start >= 0 {
		return nil, errors.New("object literal in script is not closed")
	}
	return nil, errors.New("no object literal found in script")
}

// closingQuote returns the index of the quote ending the string that opens
// at src[open], or len(src) if it is unterminated.
func closingQuote(src []byte, open int) int {
	q := src[open]
	for i := open + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case q:
			return i
		}
	}
	return len(src)
}
