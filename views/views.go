// Package views renders the HTML pages of the secrets site.
//
// Every page is parsed together with layout.html and defines a "content"
// block. Templates and static assets are embedded in the binary.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
)

// Page names
const (
	Home     = "home"
	Login    = "login"
	Register = "register"
	Secrets  = "secrets"
	Submit   = "submit"
)

var pageNames = []string{Home, Login, Register, Secrets, Submit}

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page is the data passed to every template
type Page struct {
	Title         string
	LoggedIn      bool
	Username      string
	Error         string
	Flash         string
	Secrets       []string
	GoogleEnabled bool
}

type Renderer struct {
	pages map[string]*template.Template
}

// New parses all embedded templates
func New() (*Renderer, error) {
	out := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range pageNames {
		t, err := template.New("layout.html").ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		out.pages[name] = t
	}
	return out, nil
}

// Render executes the named page into a buffer and only then writes the
// status and body, so a template failure never leaves a partial page.
func (v *Renderer) Render(w http.ResponseWriter, status int, name string, data *Page) error {
	t, ok := v.pages[name]
	if !ok {
		return fmt.Errorf("unknown view: %s", name)
	}
	if data == nil {
		data = &Page{}
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded assets; mount it under /static/
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
