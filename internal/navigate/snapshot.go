// Package navigate provides the navigators a lead hunt can drive: saved
// detail-panel snapshots, JSON entity fixtures, and the Places API.
package navigate

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sells-group/leadhunter/internal/extract"
)

// ErrNoContent is returned for a snapshot whose panel holds no text.
var ErrNoContent = eris.New("navigate: entity has no content")

// handleAttrs are the attributes worth keeping on an element handle.
var handleAttrs = map[string]bool{
	"aria-label":     true,
	"data-item-id":   true,
	"data-cid":       true,
	"data-permalink": true,
	"href":           true,
	"class":          true,
	"role":           true,
}

// blockTags end a line of panel text.
var blockTags = map[atom.Atom]bool{
	atom.Div: true, atom.P: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.Section: true, atom.Article: true, atom.Button: true, atom.Table: true,
}

// Snapshot navigates a set of saved HTML detail panels, one file per entity.
type Snapshot struct {
	paths []string
}

// NewSnapshot creates a navigator over the given files in order.
func NewSnapshot(paths ...string) *Snapshot {
	return &Snapshot{paths: paths}
}

// NewSnapshotDir creates a navigator over every .html file in dir, sorted by
// name.
func NewSnapshotDir(dir string) (*Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "navigate: read dir %s", dir)
	}
	var paths []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".html" && ext != ".htm") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return &Snapshot{paths: paths}, nil
}

// Count returns the number of snapshot files.
func (s *Snapshot) Count(context.Context) (int, error) {
	return len(s.paths), nil
}

// Visit parses the i-th snapshot into a scope.
func (s *Snapshot) Visit(ctx context.Context, i int) (extract.Scope, error) {
	if err := ctx.Err(); err != nil {
		return extract.Scope{}, err
	}
	if i < 0 || i >= len(s.paths) {
		return extract.Scope{}, eris.Errorf("navigate: entity %d out of range", i)
	}
	f, err := os.Open(s.paths[i])
	if err != nil {
		return extract.Scope{}, eris.Wrapf(err, "navigate: open %s", s.paths[i])
	}
	defer f.Close() //nolint:errcheck
	return ParseSnapshot(f)
}

// ParseSnapshot reads one detail panel. The scope is the [role="main"]
// region when present, otherwise the body.
func ParseSnapshot(r io.Reader) (extract.Scope, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return extract.Scope{}, eris.Wrap(err, "navigate: parse html")
	}

	root := find(doc, func(n *html.Node) bool { return attr(n, "role") == "main" })
	if root == nil {
		root = find(doc, func(n *html.Node) bool { return n.DataAtom == atom.Body })
	}
	if root == nil {
		root = doc
	}

	scope := extract.Scope{
		Text:      panelText(root),
		Handles:   collectHandles(root),
		Permalink: permalink(doc),
	}
	if strings.TrimSpace(scope.Text) == "" {
		return extract.Scope{}, ErrNoContent
	}
	return scope, nil
}

func find(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m := find(c, pred); m != nil {
			return m
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// panelText renders visible text with one line per block element.
func panelText(root *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style || n.DataAtom == atom.Noscript {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.DataAtom] {
			b.WriteByte('\n')
		}
	}
	walk(root)
	return normalizeLines(b.String())
}

// normalizeLines collapses runs of spaces and drops blank lines.
func normalizeLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// collectHandles keeps every element that is a headline, a link, or carries
// one of the handle attributes.
func collectHandles(root *html.Node) extract.Elements {
	var out extract.Elements
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if el, ok := handle(n); ok {
				out = append(out, el)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func handle(n *html.Node) (extract.Element, bool) {
	attrs := map[string]string{}
	for _, a := range n.Attr {
		if handleAttrs[a.Key] {
			attrs[a.Key] = a.Val
		}
	}
	if len(attrs) == 0 && n.DataAtom != atom.H1 {
		return extract.Element{}, false
	}
	return extract.Element{
		Tag:   n.Data,
		Attrs: attrs,
		Text:  strings.Join(strings.Fields(panelText(n)), " "),
	}, true
}

// permalink reads the canonical URL of the snapshot.
func permalink(doc *html.Node) string {
	if n := find(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Link && strings.EqualFold(attr(n, "rel"), "canonical")
	}); n != nil {
		return attr(n, "href")
	}
	if n := find(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Meta && attr(n, "property") == "og:url"
	}); n != nil {
		return attr(n, "content")
	}
	if n := find(doc, func(n *html.Node) bool { return attr(n, "data-permalink") != "" }); n != nil {
		return attr(n, "data-permalink")
	}
	return ""
}
