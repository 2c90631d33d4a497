package sites

import (
	"regexp"
	"strings"
	"sync/atomic"
)

const (
	MinSubdomainLength = 3
	MaxSubdomainLength = 40
)

var (
	invalidSubdomainChars = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRuns            = regexp.MustCompile(`-+`)
	subdomainPattern      = regexp.MustCompile(`^[a-z0-9-]{3,40}$`)
)

// DefaultReserved are subdomains no site may claim
var DefaultReserved = []string{
	"www", "app", "admin", "api", "assets", "static", "vercel", "docs", "help", "support",
	"login", "dashboard", "cdn", "img", "images", "app1", "dev", "test", "staging", "prod",
}

// Slugify lowercases s, replaces characters outside [a-z0-9-] with '-',
// collapses runs of '-' and trims them from both ends. The result may be
// shorter than MinSubdomainLength.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = invalidSubdomainChars.ReplaceAllString(s, "-")
	s = hyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ValidationError carries a message safe to show to the user
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateSubdomain checks an already lowercased subdomain against the
// length, character, reserved and hyphen rules, in that order.
func ValidateSubdomain(subdomain string, reserved *Reserved) error {
	if !subdomainPattern.MatchString(subdomain) {
		return &ValidationError{Message: "Subdomain must be 3–40 chars, lowercase letters, numbers, or hyphens"}
	}
	if reserved != nil && reserved.Contains(subdomain) {
		return &ValidationError{Message: "That subdomain is reserved. Please choose a different one."}
	}
	if strings.HasPrefix(subdomain, "-") || strings.HasSuffix(subdomain, "-") {
		return &ValidationError{Message: "Subdomain cannot start or end with a hyphen"}
	}
	return nil
}

// Usable reports whether subdomain can be claimed without user input:
// it is long enough, well formed and not reserved.
func Usable(subdomain string, reserved *Reserved) bool {
	return len(subdomain) >= MinSubdomainLength && ValidateSubdomain(subdomain, reserved) == nil
}

// Reserved is a set of reserved subdomains that can be swapped while the
// server runs.
type Reserved struct {
	set atomic.Pointer[map[string]struct{}]
}

// NewReserved creates a reserved set holding DefaultReserved plus extra
func NewReserved(extra ...string) *Reserved {
	r := &Reserved{}
	r.Set(extra)
	return r
}

// Set replaces the configured entries. DefaultReserved always stays reserved.
func (r *Reserved) Set(extra []string) {
	set := make(map[string]struct{}, len(DefaultReserved)+len(extra))
	for _, s := range DefaultReserved {
		set[s] = struct{}{}
	}
	for _, s := range extra {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			set[s] = struct{}{}
		}
	}
	r.set.Store(&set)
}

// Contains reports whether subdomain is reserved
func (r *Reserved) Contains(subdomain string) bool {
	set := r.set.Load()
	if set == nil {
		return false
	}
	_, ok := (*set)[strings.ToLower(subdomain)]
	return ok
}
