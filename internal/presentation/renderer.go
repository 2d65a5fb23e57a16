package presentation

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	pageResults        = "results.html"
	pageDashboard      = "dashboard.html"
	pageDashboardError = "dashboard_error.html"
)

// Renderer executes the embedded HTML templates. It is safe for concurrent use.
type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Results renders a results fragment for in.
func (r *Renderer) Results(w io.Writer, in ResultsInput) error {
	view, err := BuildResultsView(in)
	if err != nil {
		return err
	}
	return r.execute(w, pageResults, view)
}

// Dashboard renders the full admin page.
func (r *Renderer) Dashboard(w io.Writer, view DashboardView) error {
	return r.execute(w, pageDashboard, view)
}

// DashboardError renders the failure page with the error text.
func (r *Renderer) DashboardError(w io.Writer, message string) error {
	return r.execute(w, pageDashboardError, message)
}

// execute renders into a buffer first so a template failure never leaves a
// half-written page on w.
func (r *Renderer) execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
