// Package web renders the visitor-facing HTML pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"
	"time"

	"github.com/aretw0/lemon/pkg/domain"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var templateFS embed.FS

// Site holds settings shared by every page.
type Site struct {
	Title    string
	Hub      string
	MusicSrc string
}

// HubEntry is one row of the hub list.
type HubEntry struct {
	domain.PageStatus
	Title string
}

// PageView is the data for an unlocked page.
type PageView struct {
	Key     string
	Title   string
	Body    template.HTML
	Gallery bool
	Images  []string
	Invite  bool
}

// view is what the templates see.
type view struct {
	Site
	SiteTitle      string
	PageTitle      string
	RefreshURL     string
	RefreshSeconds string
	Message        string
	Pages          []HubEntry
	PageView
}

var funcs = template.FuncMap{"imageURL": imageURL}

// imageURL trusts data URLs carrying an image and drops anything else.
func imageURL(src string) template.URL {
	if !strings.HasPrefix(src, "data:image/") {
		return ""
	}
	return template.URL(src)
}

// Renderer executes the embedded templates.
type Renderer struct {
	site   Site
	tmpl   map[string]*template.Template
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer parses the templates.
func NewRenderer(site Site) (*Renderer, error) {
	r := &Renderer{
		site:   site,
		tmpl:   make(map[string]*template.Template),
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
	}
	for _, name := range []string{"landing", "hub", "page", "locked", "error"} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.tmpl[name] = t
	}
	return r, nil
}

// Markdown converts a page body to sanitized HTML.
func (r *Renderer) Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

func (r *Renderer) execute(w io.Writer, name string, v view) error {
	v.Site = r.site
	v.SiteTitle = r.site.Title
	if v.PageTitle == "" {
		v.PageTitle = r.site.Title
	}
	var buf bytes.Buffer
	if err := r.tmpl[name].ExecuteTemplate(&buf, name+".html", v); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Landing renders the start page.
func (r *Renderer) Landing(w io.Writer) error {
	return r.execute(w, "landing", view{})
}

// Hub renders the page list.
func (r *Renderer) Hub(w io.Writer, entries []HubEntry) error {
	return r.execute(w, "hub", view{PageTitle: "Hub", Pages: entries})
}

// Page renders an unlocked page.
func (r *Renderer) Page(w io.Writer, p PageView) error {
	return r.execute(w, "page", view{PageTitle: p.Title, PageView: p})
}

// Locked renders the lock notice, which refreshes to dest after delay.
func (r *Renderer) Locked(w io.Writer, message, dest string, delay time.Duration) error {
	return r.execute(w, "locked", view{
		PageTitle:      "Locked",
		Message:        message,
		RefreshURL:     dest,
		RefreshSeconds: refreshSeconds(delay),
	})
}

// Error renders a plain error page.
func (r *Renderer) Error(w io.Writer, title, message string) error {
	return r.execute(w, "error", view{PageTitle: title, Message: message})
}

// refreshSeconds formats delay for a meta refresh, rounded up to milliseconds.
func refreshSeconds(delay time.Duration) string {
	ms := math.Ceil(float64(delay) / float64(time.Millisecond))
	return fmt.Sprintf("%g", ms/1000)
}
