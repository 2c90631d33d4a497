package sites

import (
	"fmt"
	"strings"
)

var unsafeSchemes = []string{"javascript:", "data:", "vbscript:"}

// SafeURL reports whether href is acceptable as a link target. Relative
// links, fragments, http(s) and mailto are fine; script-capable schemes are
// not. Control characters and whitespace are ignored when detecting the
// scheme, as browsers do.
func SafeURL(href string) bool {
	var b strings.Builder
	for _, r := range href {
		if r <= ' ' {
			continue
		}
		b.WriteRune(r)
	}
	normalized := strings.ToLower(b.String())
	for _, scheme := range unsafeSchemes {
		if strings.HasPrefix(normalized, scheme) {
			return false
		}
	}
	return true
}

// CheckLinks rejects a raw content document whose links or calendar URLs use
// an unsafe scheme. Image fields are not checked.
func CheckLinks(raw interface{}) error {
	doc, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}

	if links, ok := doc["links"].([]interface{}); ok {
		for i, item := range links {
			link, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if href, ok := link["href"].(string); ok && !SafeURL(href) {
				return &ValidationError{Message: fmt.Sprintf("Link %d has an unsupported URL", i+1)}
			}
		}
	}

	if cal, ok := doc["calendar"].(map[string]interface{}); ok {
		for _, key := range []string{"ics", "gcal"} {
			if href, ok := cal[key].(string); ok && !SafeURL(href) {
				return &ValidationError{Message: fmt.Sprintf("Calendar %s has an unsupported URL", key)}
			}
		}
	}
	return nil
}
