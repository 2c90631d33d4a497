// Package content defines the site content document and the total
// normalizer that turns stored JSON into it.
//
// Stored content is arbitrary JSON edited from the dashboard. It only becomes
// a Document through Normalize, which never fails: non-object input counts
// as {}, fields of the wrong type take their default, and invalid list
// entries are dropped.
//
//	doc := content.Normalize(content.Decode(row.Data), site.Name)
package content
