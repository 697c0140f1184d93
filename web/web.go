// Package web renders the HTML pages and serves the embedded browser assets.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"transittrack/pkg/transit"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Layout is the header and body chrome shared by every page. The back
// control goes one entry back in browser history.
type Layout struct {
	Page          string
	Title         string
	ShowBack      bool
	HeaderActions template.HTML
	Body          template.HTML
}

// Destination is one entry of the landing page.
type Destination struct {
	Name        string
	Path        string
	Title       string
	Description string
	Features    []string
	Action      string
}

var paths = map[string]string{
	"home":      "/",
	"driver":    "/driver",
	"passenger": "/passenger",
	"livemap":   "/livemap",
}

// Path returns the URL path of a named page, or "/" for unknown names.
func Path(name string) string {
	if p, ok := paths[name]; ok {
		return p
	}
	return "/"
}

// Destinations are the two apps offered on the landing page.
func Destinations() []Destination {
	return []Destination{
		{
			Name:        "driver",
			Path:        Path("driver"),
			Title:       "Driver App",
			Description: "For bus drivers to share live location and manage routes",
			Features:    []string{"Real-time GPS tracking", "Route management", "Trip analytics"},
			Action:      "Open Driver App",
		},
		{
			Name:        "passenger",
			Path:        Path("passenger"),
			Title:       "Passenger App",
			Description: "Track buses, plan routes, and get real-time updates",
			Features:    []string{"Live bus tracking", "Real-time ETAs", "Community reports"},
			Action:      "Open Passenger App",
		},
	}
}

// PageData is what the page templates render.
type PageData struct {
	Destinations []Destination
	Routes       []transit.Route
	Buses        []transit.LiveBus
	Stops        []transit.NearbyStop
	Itinerary    transit.Itinerary
	WhatsAppHint string
}

type pageMeta struct {
	title    string
	showBack bool
}

var pages = map[string]pageMeta{
	"selector":  {title: "TransitTrack"},
	"driver":    {title: "Driver Dashboard", showBack: true},
	"passenger": {title: "Live Transport", showBack: true},
	"livemap":   {title: "Live Map", showBack: true},
}

var funcs = template.FuncMap{
	"path": Path,
}

// Renderer executes the embedded page templates inside the layout.
type Renderer struct {
	layout *template.Template
	pages  map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	r := &Renderer{layout: layout, pages: make(map[string]*template.Template, len(pages))}
	for name := range pages {
		t, err := template.New(name + ".html").Funcs(funcs).ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes page with data to w.
func (r *Renderer) Render(w io.Writer, page string, data PageData) error {
	t, ok := r.pages[page]
	meta := pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	layout := Layout{Page: page, Title: meta.title, ShowBack: meta.showBack}
	var buf bytes.Buffer
	if t.Lookup("actions") != nil {
		if err := t.ExecuteTemplate(&buf, "actions", data); err != nil {
			return fmt.Errorf("render %s actions: %w", page, err)
		}
		layout.HeaderActions = template.HTML(buf.String())
		buf.Reset()
	}
	if err := t.ExecuteTemplate(&buf, "body", data); err != nil {
		return fmt.Errorf("render %s body: %w", page, err)
	}
	layout.Body = template.HTML(buf.String())

	return r.layout.Execute(w, layout)
}

// Static serves the embedded assets; mount it under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
