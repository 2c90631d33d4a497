package reconcile

import (
	"strings"

	"github.com/platinummonkey/teamsites/pkg/auth"
	"github.com/platinummonkey/teamsites/pkg/sites"
)

const fallbackSuffix = "-team"

// Intent is the starter workspace derived from a user's email. It is never
// stored.
type Intent struct {
	TeamName  string
	SiteName  string
	Subdomain string
}

// IntentFor derives the starter workspace for user. The subdomain is the
// slugified email local-part, or that slug plus "-team" when the slug alone
// is too short or reserved.
func IntentFor(user auth.User, reserved *sites.Reserved) Intent {
	local := user.LocalPart()
	if local == "" {
		local = "team"
	}
	teamName := local + "'s Team"

	subdomain := sites.Slugify(local)
	if !sites.Usable(subdomain, reserved) {
		subdomain = withSuffix(subdomain, fallbackSuffix)
	}

	return Intent{
		TeamName:  teamName,
		SiteName:  teamName + " Site",
		Subdomain: subdomain,
	}
}

// WithSuffix returns a copy of the intent whose subdomain ends in "-"+suffix
func (i Intent) WithSuffix(suffix string) Intent {
	i.Subdomain = withSuffix(i.Subdomain, "-"+suffix)
	return i
}

// withSuffix appends suffix, shortening base so the result fits the
// subdomain length limit.
func withSuffix(base, suffix string) string {
	if limit := sites.MaxSubdomainLength - len(suffix); len(base) > limit {
		base = strings.TrimRight(base[:limit], "-")
	}
	return sites.Slugify(base + suffix)
}
