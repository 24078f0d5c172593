package classify

import (
	"math"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
)

const (
	emptyConfidence     = 0.1
	unmatchedConfidence = 0.3
)

// Classifier maps text to a risk domain
type Classifier struct {
	catalog *Catalog
}

// NewClassifier creates a classifier over catalog (nil = embedded catalog)
func NewClassifier(catalog *Catalog) *Classifier {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Classifier{catalog: catalog}
}

// Catalog returns the classifier's profile catalog
func (c *Classifier) Catalog() *Catalog {
	return c.catalog
}

// Classify scores text against every profile and picks the best one.
// Ties go to the profile with the lowest priority value.
func (c *Classifier) Classify(text string) model.DomainClassification {
	if strings.TrimSpace(text) == "" {
		return model.DomainClassification{
			Domain:     c.catalog.General(),
			Confidence: emptyConfidence,
		}
	}

	scores := make(map[model.DomainID]float64, len(c.catalog.profiles))
	matchedBy := make(map[model.DomainID][]string)

	var best *compiledProfile
	bestScore, runnerUp := 0.0, 0.0

	// Profiles are in priority order, so strict > keeps the earlier one on ties
	for _, cp := range c.catalog.profiles {
		score, matched := cp.score(text)
		scores[cp.profile.ID] = score
		matchedBy[cp.profile.ID] = matched

		switch {
		case score > bestScore:
			runnerUp = bestScore
			bestScore = score
			best = cp
		case score > runnerUp:
			runnerUp = score
		}
	}

	if best == nil {
		return model.DomainClassification{
			Domain:     c.catalog.General(),
			Confidence: unmatchedConfidence,
			Scores:     scores,
		}
	}

	return model.DomainClassification{
		Domain:     cloneProfile(best.profile),
		Confidence: marginConfidence(bestScore, runnerUp),
		Scores:     scores,
		Matched:    matchedBy[best.profile.ID],
	}
}

// marginConfidence grows with the winner's lead over the runner-up
func marginConfidence(best, runnerUp float64) float64 {
	conf := unmatchedConfidence + (1-unmatchedConfidence)*(best/(best+runnerUp+1))
	return math.Max(0, math.Min(1, conf))
}

// score sums keyword and pattern weights, once per occurrence
func (cp *compiledProfile) score(text string) (float64, []string) {
	var total float64
	var matched []string

	for _, terms := range [][]*compiledTerm{cp.keywords, cp.patterns} {
		for _, term := range terms {
			n := len(term.pattern.FindAllStringIndex(text, -1))
			if n == 0 {
				continue
			}
			total += float64(n) * term.weight
			matched = append(matched, term.label)
		}
	}

	return total, matched
}
