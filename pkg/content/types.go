package content

import "errors"

// ErrContentCoercionImpossible is part of the error taxonomy only. Normalize
// is total and never returns it.
var ErrContentCoercionImpossible = errors.New("content coercion impossible")

// Document is a fully populated site content document
type Document struct {
	Team             TeamBlock  `json:"team"`
	Theme            ThemeBlock `json:"theme"`
	Links            []LinkItem `json:"links"`
	Members          []Member   `json:"members"`
	Sponsors         Sponsors   `json:"sponsors"`
	Outreach         []Card     `json:"outreach"`
	Resources        []Card     `json:"resources"`
	Bullets          []string   `json:"bullets"`
	ShowTierHeadings bool       `json:"showTierHeadings"`
	Calendar         Calendar   `json:"calendar"`
}

// TeamBlock describes the team behind the site
type TeamBlock struct {
	Name         string `json:"name"`
	Number       string `json:"number"`
	School       string `json:"school"`
	City         string `json:"city"`
	State        string `json:"state"`
	Founding     int    `json:"founding"`
	ContactEmail string `json:"contactEmail"`
	About        string `json:"about"`
	Logo         string `json:"logo"`
	Hero         string `json:"hero"`
	Favicon      string `json:"favicon"`
}

// ThemeBlock holds the CSS colors of the public page
type ThemeBlock struct {
	Background     string `json:"background"`
	Card           string `json:"card"`
	Text           string `json:"text"`
	Headline       string `json:"headline"`
	FooterText     string `json:"footerText"`
	Accent         string `json:"accent"`
	HeaderBg       string `json:"headerBg"`
	HeaderText     string `json:"headerText"`
	ButtonText     string `json:"buttonText"`
	UnderlineLinks bool   `json:"underlineLinks"`
}

// LinkItem is an entry of the About card
type LinkItem struct {
	Label    string `json:"label"`
	Href     string `json:"href"`
	External bool   `json:"external"`
}

// Member is a person on the team roster
type Member struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Img  string `json:"img"`
}

// Sponsor is a supporter shown in a tier row
type Sponsor struct {
	Name string `json:"name"`
	Logo string `json:"logo"`
}

// Sponsors groups sponsors by tier
type Sponsors struct {
	Platinum []Sponsor `json:"platinum"`
	Gold     []Sponsor `json:"gold"`
	Silver   []Sponsor `json:"silver"`
	Bronze   []Sponsor `json:"bronze"`
}

// Tier is a named sponsor tier
type Tier struct {
	Name     string
	Sponsors []Sponsor
}

// Tiers returns the tiers in display order: Platinum, Gold, Silver, Bronze
func (s Sponsors) Tiers() []Tier {
	return []Tier{
		{Name: "Platinum", Sponsors: s.Platinum},
		{Name: "Gold", Sponsors: s.Gold},
		{Name: "Silver", Sponsors: s.Silver},
		{Name: "Bronze", Sponsors: s.Bronze},
	}
}

// Empty reports whether every tier is empty
func (s Sponsors) Empty() bool {
	return len(s.Platinum)+len(s.Gold)+len(s.Silver)+len(s.Bronze) == 0
}

// Card is an outreach or resource entry
type Card struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Img   string `json:"img"`
}

// Calendar points at the team's published calendars
type Calendar struct {
	ICS  string `json:"ics"`
	GCal string `json:"gcal"`
	TZ   string `json:"tz"`
}

// Enabled reports whether any calendar link is set
func (c Calendar) Enabled() bool {
	return c.ICS != "" || c.GCal != ""
}
