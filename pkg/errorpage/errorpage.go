// Package errorpage renders the localized "message could not be sent" page
// shown on internal failures. The page reproduces the submitted subject and
// body so the sender does not lose their text. Both fields are user input and
// are escaped by html/template; they must never reach the page unescaped.
package errorpage

import (
	"embed"
	"html/template"
	"strings"

	"contact-form-backend/pkg/logger"
)

//go:embed assets/send-error.html assets/send-error.de.html
var assets embed.FS

var pages = template.Must(template.ParseFS(assets, "assets/send-error.html", "assets/send-error.de.html"))

type pageContext struct {
	SiteRoot   string
	Subject    string
	Paragraphs []string
}

// Presenter renders error pages anchored at the site root.
type Presenter struct {
	siteRoot string
}

func NewPresenter(baseHost string) *Presenter {
	return &Presenter{siteRoot: "https://" + baseHost}
}

// Render returns the error page for the given language ("de" for German,
// anything else falls back to English). Blank lines in the body separate
// paragraphs.
func (p *Presenter) Render(subject, body, language string) string {
	name := "send-error.html"
	if language == "de" {
		name = "send-error.de.html"
	}
	ctx := pageContext{
		SiteRoot:   p.siteRoot,
		Subject:    subject,
		Paragraphs: strings.Split(body, "\n\n"),
	}
	var out strings.Builder
	if err := pages.ExecuteTemplate(&out, name, ctx); err != nil {
		// Cannot happen with the embedded templates; fall back to a bare
		// page rather than returning nothing.
		logger.Log.Error("Failed to render error page", "error", err.Error())
		return "<!DOCTYPE html><html><body><h1>Something went wrong</h1></body></html>"
	}
	return out.String()
}
