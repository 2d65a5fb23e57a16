// Package presentation renders search results and the analytics dashboard
// as server-side HTML.
package presentation

import (
	"fmt"
	"html/template"
)

// Mode selects the heading of the answer block. The summary is rendered as
// markdown in every mode.
type Mode string

const (
	ModeSummary Mode = "summary"
	ModeSteps   Mode = "steps"
)

// Valid reports whether m is a known mode. The empty mode is treated as
// ModeSummary by callers.
func (m Mode) Valid() bool {
	return m == ModeSummary || m == ModeSteps
}

// QueryResponse is a previously generated answer. Steps is accepted for
// compatibility with older clients and is not rendered.
type QueryResponse struct {
	Summary string   `json:"summary"`
	Steps   []string `json:"steps,omitempty"`
}

// Citation is a source document backing an answer. URL is nil when the
// document has no public location.
type Citation struct {
	ID      int     `json:"id"`
	Title   string  `json:"title"`
	Section string  `json:"section,omitempty"`
	Source  string  `json:"source"`
	URL     *string `json:"url"`
}

// Resource is a static external link shown under every result set.
type Resource struct {
	URL         string
	Title       string
	Description string
}

// Resources are appended to every rendered result, independent of input.
var Resources = []Resource{
	{
		URL:         "https://childsup.ca.gov/",
		Title:       "CA Child Support Services",
		Description: "Official California DCSS portal",
	},
	{
		URL:         "https://www.acf.hhs.gov/css",
		Title:       "Federal OCSE Resources",
		Description: "Federal guidance and tools",
	},
}

// Disclaimer follows every rendered answer.
const Disclaimer = "Always consult the full policy documents below for complete details and current procedures."

// ResultsInput is everything the results view is built from. Query is the
// raw search string; it is carried through but not rendered.
type ResultsInput struct {
	Response  *QueryResponse
	Citations []Citation
	Mode      Mode
	Query     string
}

type CitationView struct {
	ID      int
	Title   string
	Section string
	Source  string
	URL     string
	HasURL  bool
}

// ResultsView is the template model for results.html.
type ResultsView struct {
	NoResults   bool
	HasAnswer   bool
	Heading     string
	SummaryHTML template.HTML
	Disclaimer  string
	Citations   []CitationView
	Resources   []Resource
}

// BuildResultsView applies the display rules to in. When there is neither an
// answer nor a citation only the no-results indicator is shown.
func BuildResultsView(in ResultsInput) (ResultsView, error) {
	if in.Response == nil && len(in.Citations) == 0 {
		return ResultsView{NoResults: true}, nil
	}

	view := ResultsView{Resources: Resources}

	if in.Response != nil {
		html, err := RenderMarkdown(in.Response.Summary)
		if err != nil {
			return ResultsView{}, fmt.Errorf("building results view: %w", err)
		}
		view.HasAnswer = true
		view.Heading = heading(in.Mode)
		view.SummaryHTML = html
		view.Disclaimer = Disclaimer
	}

	view.Citations = make([]CitationView, 0, len(in.Citations))
	for _, c := range in.Citations {
		cv := CitationView{
			ID:      c.ID,
			Title:   c.Title,
			Section: c.Section,
			Source:  c.Source,
		}
		if c.URL != nil {
			cv.URL = *c.URL
			cv.HasURL = true
		}
		view.Citations = append(view.Citations, cv)
	}
	return view, nil
}

func heading(m Mode) string {
	if m == ModeSteps {
		return "Step-by-Step Instructions"
	}
	return "Policy Summary"
}
