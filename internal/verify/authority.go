package verify

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
)

// AuthorityTier ranks how authoritative a cited source is
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not classified
	TierPrimary   AuthorityTier = 1 // Court opinions, statutes, official records, papers
	TierSecondary AuthorityTier = 2 // Encyclopedias, wire services, major publishers
	TierTertiary  AuthorityTier = 3 // Blogs, personal and commercial sites
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

// Confidence is the support an accessible source of this tier lends a claim
func (t AuthorityTier) Confidence() float64 {
	switch t {
	case TierPrimary:
		return 0.9
	case TierSecondary:
		return 0.7
	case TierTertiary:
		return 0.4
	default:
		return 0
	}
}

// AuthorityClassifier classifies cited URLs into authority tiers
type AuthorityClassifier struct {
	primary      []string
	secondary    []string
	pathPatterns []tierPattern
}

type tierPattern struct {
	pattern *regexp.Regexp
	tier    AuthorityTier
}

// NewAuthorityClassifier compiles the authority rules; nil uses the defaults.
// Invalid path patterns are skipped.
func NewAuthorityClassifier(config *model.AuthorityConfig) *AuthorityClassifier {
	if config == nil {
		config = &model.DefaultConfig().Authority
	}

	a := &AuthorityClassifier{
		primary:   normalizeDomains(config.PrimaryDomains),
		secondary: normalizeDomains(config.SecondaryDomains),
	}
	for _, pp := range config.PathPatterns {
		re, err := regexp.Compile(pp.Pattern)
		if err != nil {
			continue
		}
		a.pathPatterns = append(a.pathPatterns, tierPattern{pattern: re, tier: parseTier(pp.Tier)})
	}
	return a
}

// Classify returns the tier of rawURL: listed domains first, then path patterns, then TLD hints
func (a *AuthorityClassifier) Classify(rawURL string) AuthorityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return TierUnknown
	}
	host := strings.ToLower(parsed.Hostname())

	if matchesDomain(host, a.primary) {
		return TierPrimary
	}
	if matchesDomain(host, a.secondary) {
		return TierSecondary
	}

	for _, tp := range a.pathPatterns {
		if tp.pattern.MatchString(parsed.Path) {
			return tp.tier
		}
	}

	for _, suffix := range []string{".gov", ".edu", ".ac.uk", ".gov.uk", ".mil"} {
		if strings.HasSuffix(host, suffix) {
			return TierPrimary
		}
	}
	return TierTertiary
}

func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func parseTier(tier string) AuthorityTier {
	switch strings.ToLower(tier) {
	case "primary", "1":
		return TierPrimary
	case "secondary", "2":
		return TierSecondary
	default:
		return TierTertiary
	}
}
