// Package docs loads the documentation pages shown in the reader pane and
// renders markdown for the terminal.
package docs

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
)

//go:embed pages/*.md
var bundled embed.FS

// Page is one markdown document.
type Page struct {
	Name     string
	Title    string
	Markdown string
}

// Load reads every .md file in dir, sorted by name. An empty dir loads the
// bundled pages.
func Load(dir string) ([]Page, error) {
	var fsys fs.FS
	root := "."
	if dir == "" {
		fsys = bundled
		root = "pages"
	} else {
		fsys = os.DirFS(dir)
	}

	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("reading docs directory: %w", err)
	}

	var pages []Page
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		md := string(data)
		pages = append(pages, Page{
			Name:     e.Name(),
			Title:    titleOf(md, e.Name()),
			Markdown: md,
		})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no markdown pages in %q", dir)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Name < pages[j].Name })
	return pages, nil
}

// ResolveDir makes a relative docs directory relative to the project root.
// An empty dir stays empty and selects the bundled pages.
func ResolveDir(root, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

// titleOf returns the first level-one heading, or the file name.
func titleOf(md, name string) string {
	for _, line := range strings.Split(md, "\n") {
		if t, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(t)
		}
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Renderer turns markdown into terminal text with a fixed style and width.
type Renderer struct {
	style string
	width int
	tr    *glamour.TermRenderer
}

// NewRenderer builds a renderer. style is a glamour standard style name;
// "notty" produces plain text.
func NewRenderer(style string, width int) (*Renderer, error) {
	if width < 20 {
		width = 20
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("creating markdown renderer: %w", err)
	}
	return &Renderer{style: style, width: width, tr: tr}, nil
}

// Width returns the wrap width.
func (r *Renderer) Width() int {
	return r.width
}

// Render renders md, trimming surrounding blank lines.
func (r *Renderer) Render(md string) (string, error) {
	out, err := r.tr.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return strings.Trim(out, "\n"), nil
}

// Lines renders a page as plain text lines suitable for selection.
func Lines(p Page, width int) ([]string, error) {
	r, err := NewRenderer("notty", width)
	if err != nil {
		return nil, err
	}
	out, err := r.Render(p.Markdown)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return lines, nil
}
