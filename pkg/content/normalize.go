package content

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Default theme values
const (
	DefaultBackground = "#f5f7f6"
	DefaultCard       = "#ffffff"
	DefaultText       = "#18241d"
	DefaultHeadline   = "#0b1f16"
	DefaultFooterText = "#c9e6da"
	DefaultAccent     = "#0f8a5f"
	DefaultHeaderBg   = "#ffffff"
	DefaultHeaderText = "#0b1f16"
	DefaultButtonText = "#ffffff"
)

// Decode parses stored content JSON into the untyped input of Normalize.
// Invalid JSON decodes to nil.
func Decode(data []byte) interface{} {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	return raw
}

// Normalize coerces raw into a complete Document using the current year for
// a missing founding year.
func Normalize(raw interface{}, fallbackName string) Document {
	return NormalizeAt(raw, fallbackName, time.Now())
}

// NormalizeAt coerces raw into a complete Document. Non-object input counts
// as an empty object and fields of the wrong type fall back to their default.
func NormalizeAt(raw interface{}, fallbackName string, now time.Time) Document {
	obj := asObject(raw)
	team := asObject(obj["team"])
	theme := asObject(obj["theme"])
	sponsors := asObject(obj["sponsors"])
	calendar := asObject(obj["calendar"])

	doc := Document{
		Team: TeamBlock{
			Name:         stringOr(team, "name", fallbackName),
			Number:       stringOr(team, "number", ""),
			School:       stringOr(team, "school", ""),
			City:         stringOr(team, "city", ""),
			State:        stringOr(team, "state", ""),
			Founding:     founding(team["founding"], now),
			ContactEmail: stringOr(team, "contactEmail", ""),
			About:        stringOr(team, "about", ""),
			Logo:         stringOr(team, "logo", ""),
			Hero:         stringOr(team, "hero", ""),
			Favicon:      stringOr(team, "favicon", ""),
		},
		Theme: ThemeBlock{
			Background:     color(theme, "background", DefaultBackground),
			Card:           color(theme, "card", DefaultCard),
			Text:           color(theme, "text", DefaultText),
			Headline:       color(theme, "headline", DefaultHeadline),
			FooterText:     color(theme, "footerText", DefaultFooterText),
			Accent:         color(theme, "accent", DefaultAccent),
			HeaderBg:       color(theme, "headerBg", DefaultHeaderBg),
			HeaderText:     color(theme, "headerText", DefaultHeaderText),
			ButtonText:     color(theme, "buttonText", DefaultButtonText),
			UnderlineLinks: boolOr(theme, "underlineLinks", true),
		},
		Links:   []LinkItem{},
		Members: []Member{},
		Sponsors: Sponsors{
			Platinum: sponsorList(sponsors["platinum"]),
			Gold:     sponsorList(sponsors["gold"]),
			Silver:   sponsorList(sponsors["silver"]),
			Bronze:   sponsorList(sponsors["bronze"]),
		},
		Outreach:         cardList(obj["outreach"]),
		Resources:        cardList(obj["resources"]),
		Bullets:          []string{},
		ShowTierHeadings: boolOr(obj, "showTierHeadings", true),
		Calendar: Calendar{
			ICS:  stringOr(calendar, "ics", ""),
			GCal: stringOr(calendar, "gcal", ""),
			TZ:   stringOr(calendar, "tz", ""),
		},
	}

	for _, item := range asArray(obj["links"]) {
		m := asObject(item)
		link := LinkItem{
			Label:    stringOr(m, "label", ""),
			Href:     stringOr(m, "href", ""),
			External: boolOr(m, "external", false),
		}
		if strings.TrimSpace(link.Label) != "" && strings.TrimSpace(link.Href) != "" {
			doc.Links = append(doc.Links, link)
		}
	}

	for _, item := range asArray(obj["members"]) {
		m := asObject(item)
		member := Member{
			Name: stringOr(m, "name", ""),
			Role: stringOr(m, "role", ""),
			Img:  stringOr(m, "img", ""),
		}
		if strings.TrimSpace(member.Name) != "" {
			doc.Members = append(doc.Members, member)
		}
	}

	for _, item := range asArray(obj["bullets"]) {
		if b := strings.TrimSpace(stringify(item)); b != "" {
			doc.Bullets = append(doc.Bullets, b)
		}
	}

	return doc
}

func sponsorList(v interface{}) []Sponsor {
	out := []Sponsor{}
	for _, item := range asArray(v) {
		m := asObject(item)
		out = append(out, Sponsor{
			Name: stringOr(m, "name", ""),
			Logo: stringOr(m, "logo", ""),
		})
	}
	return out
}

func cardList(v interface{}) []Card {
	out := []Card{}
	for _, item := range asArray(v) {
		m := asObject(item)
		out = append(out, Card{
			Title: stringOr(m, "title", ""),
			Text:  stringOr(m, "text", ""),
			Img:   stringOr(m, "img", ""),
		})
	}
	return out
}

// MinFoundingYear is the earliest founding year kept by Normalize
const MinFoundingYear = 1800

// founding keeps whole years between MinFoundingYear and next year. Anything
// else, including values too large for an int, counts as missing so the
// rendered page and its inline script agree on the years figure.
func founding(v interface{}, now time.Time) int {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return now.Year()
	}
	f = math.Trunc(f)
	if f < MinFoundingYear || f > float64(now.Year()+1) {
		return now.Year()
	}
	return int(f)
}

func asObject(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func asArray(v interface{}) []interface{} {
	if a, ok := v.([]interface{}); ok {
		return a
	}
	return nil
}

func stringOr(m map[string]interface{}, key, def string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return def
}

// color treats an empty string like a missing value so every CSS variable
// stays populated.
func color(m map[string]interface{}, key, def string) string {
	if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return def
}

func boolOr(m map[string]interface{}, key string, def bool) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return def
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
