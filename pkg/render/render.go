package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/platinummonkey/teamsites/pkg/content"
)

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Escape rewrites &, < and > as HTML entities. Every user string in the page
// goes through it, attribute values included.
func Escape(s string) string {
	return escaper.Replace(s)
}

// YearsCompeting is max(1, year(now) - founding + 1)
func YearsCompeting(founding int, now time.Time) int {
	years := now.Year() - founding + 1
	if years < 1 {
		return 1
	}
	return years
}

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"esc": Escape,
}).Parse(pageHTML))

type pageData struct {
	Doc            content.Document
	Title          string
	Location       string
	Years          int
	LinkDecoration string
	Tiers          []content.Tier
	NoSponsors     bool
}

// Render produces the public HTML page for doc. The output depends only on
// doc and the calendar year of now.
func Render(doc content.Document, now time.Time) string {
	data := pageData{
		Doc:            doc,
		Title:          doc.Team.Name,
		Location:       joinNonEmpty(", ", doc.Team.City, doc.Team.State),
		Years:          YearsCompeting(doc.Team.Founding, now),
		LinkDecoration: "none",
		NoSponsors:     doc.Sponsors.Empty(),
	}
	if n := strings.TrimSpace(doc.Team.Number); n != "" {
		data.Title = doc.Team.Name + " • " + doc.Team.Number
	}
	if doc.Theme.UnderlineLinks {
		data.LinkDecoration = "underline"
	}
	for _, tier := range doc.Sponsors.Tiers() {
		if len(tier.Sponsors) > 0 {
			data.Tiers = append(data.Tiers, tier)
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		// The template only reads fields of pageData, so this is a programming error.
		panic(fmt.Sprintf("render: failed to execute template: %v", err))
	}
	return buf.String()
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
