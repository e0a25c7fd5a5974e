// Package view renders markdown documents resolved across layers, optionally
// wrapped in an HTML layout that is itself resolved across layers.
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/CageChen/layerhub/internal/finder"
	mfs "github.com/CageChen/layerhub/internal/fs"
	"github.com/yuin/goldmark"
)

// LayoutDir is the logical directory layouts are resolved from.
const LayoutDir = "layouts"

// Page is a rendered view.
type Page struct {
	Name   string         `json:"name"`
	Path   string         `json:"path"`
	Layer  string         `json:"layer"`
	Title  string         `json:"title"`
	HTML   string         `json:"html"`
	TOC    []Heading      `json:"toc"`
	Meta   map[string]any `json:"meta,omitempty"`
	Layout string         `json:"layout,omitempty"`
}

// layoutData is what layout templates execute against.
type layoutData struct {
	Title   string
	Content template.HTML
	TOC     []Heading
	Meta    map[string]any
}

// Renderer resolves and renders views.
type Renderer struct {
	finder *finder.Finder
	fs     mfs.FileSystem
	md     goldmark.Markdown
}

// NewRenderer creates a Renderer. A nil fsys uses the local filesystem.
func NewRenderer(f *finder.Finder, fsys mfs.FileSystem) *Renderer {
	return &Renderer{
		finder: f,
		fs:     mfs.OrDefault(fsys),
		md:     newMarkdown(),
	}
}

// Render resolves name to the first matching file and renders it. A name
// that resolves nowhere yields an error wrapping os.ErrNotExist.
func (r *Renderer) Render(name string) (*Page, error) {
	m, ok := r.finder.FindFile(name)
	if !ok {
		return nil, fmt.Errorf("view %q: %w", name, os.ErrNotExist)
	}

	source, err := r.fs.ReadFile(m.Path)
	if err != nil {
		return nil, mfs.WrapIO("read", m.Path, err)
	}

	meta, body, err := splitFrontMatter(source)
	if err != nil {
		return nil, fmt.Errorf("view %q: %w", name, err)
	}

	html, toc, err := convert(r.md, body)
	if err != nil {
		return nil, fmt.Errorf("view %q: %w", name, err)
	}

	page := &Page{
		Name:  name,
		Path:  m.Path,
		Layer: r.layerOf(m.Path),
		HTML:  html,
		TOC:   toc,
		Meta:  meta,
	}
	if title, ok := meta["title"].(string); ok && title != "" {
		page.Title = title
	} else if len(toc) > 0 {
		page.Title = toc[0].Title
	}

	if layout, ok := meta["layout"].(string); ok && layout != "" {
		page.Layout = layout
		if err := r.applyLayout(page); err != nil {
			return nil, err
		}
	}
	return page, nil
}

func (r *Renderer) applyLayout(page *Page) error {
	name := LayoutDir + "/" + strings.TrimSuffix(page.Layout, ".html") + ".html"
	m, ok := r.finder.FindFile(name)
	if !ok {
		return fmt.Errorf("layout %q for view %q: %w", page.Layout, page.Name, os.ErrNotExist)
	}

	source, err := r.fs.ReadFile(m.Path)
	if err != nil {
		return mfs.WrapIO("read", m.Path, err)
	}
	tmpl, err := template.New(page.Layout).Parse(string(source))
	if err != nil {
		return fmt.Errorf("layout %q: %w", page.Layout, err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, layoutData{
		Title:   page.Title,
		Content: template.HTML(page.HTML),
		TOC:     page.TOC,
		Meta:    page.Meta,
	})
	if err != nil {
		return fmt.Errorf("layout %q: %w", page.Layout, err)
	}
	page.HTML = buf.String()
	return nil
}

func (r *Renderer) layerOf(path string) string {
	for _, p := range r.finder.Paths() {
		if strings.HasPrefix(path, p) {
			return p
		}
	}
	return ""
}
