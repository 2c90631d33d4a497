/*
Package render turns a normalized content.Document into the static HTML of a
team's public site.

	html := render.Render(doc, time.Now())

Render is pure: the same document and calendar year always produce the same
bytes. All user-supplied strings, including attribute values and theme colors,
pass through Escape, which rewrites &, < and >.

Sponsor tiers render in the order Platinum, Gold, Silver, Bronze. Empty tiers
are skipped entirely, and tier headings are shown only when the document's
ShowTierHeadings flag is set.
*/
package render
