// Package view renders the HTML pages and serves the embedded assets.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Renderer renders a named page with named attributes.
type Renderer interface {
	Render(w io.Writer, name string, attrs map[string]any) error
}

// Templates renders pages parsed from html/template files, one page per file.
// Referencing an attribute that was not supplied is a render error.
type Templates struct {
	pages map[string]*template.Template
}

// New parses every *.html file in fsys. A nil fsys selects the built-in pages.
func New(fsys fs.FS) (*Templates, error) {
	if fsys == nil {
		sub, err := fs.Sub(templateFS, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	}
	files, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found")
	}

	t := &Templates{pages: make(map[string]*template.Template, len(files))}
	for _, f := range files {
		tmpl, err := template.ParseFS(fsys, f)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", f, err)
		}
		t.pages[strings.TrimSuffix(path.Base(f), ".html")] = tmpl.Option("missingkey=error")
	}
	return t, nil
}

// Render executes the page into a buffer before writing, so a failing
// template never leaves partial output in w.
func (t *Templates) Render(w io.Writer, name string, attrs map[string]any) error {
	tmpl, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, attrs); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded assets under the given URL prefix.
func Static(prefix string) http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // embedded directory is always present
	}
	return http.StripPrefix(prefix, http.FileServer(http.FS(sub)))
}
