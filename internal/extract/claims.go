package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
)

// minClaimWords filters out fragments such as headings or "Yes."
const minClaimWords = 4

var (
	yearPattern     = regexp.MustCompile(`\b(1[0-9]{3}|20[0-9]{2})\b`)
	numberPattern   = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
	citationPattern = regexp.MustCompile(`\b[A-Z][\w.'-]*(\s+[A-Z][\w.'-]*)*\s+v\.?\s+[A-Z][\w.'-]*`)
	quotePattern    = regexp.MustCompile(`["“][^"”]{8,}["”]`)
)

// ClaimExtractor extracts candidate factual claims from text
type ClaimExtractor struct {
	keywords []string
}

// NewClaimExtractor creates a new claim extractor
func NewClaimExtractor() *ClaimExtractor {
	return &ClaimExtractor{
		keywords: []string{
			"ruled", "held that", "court", "statute", "under the law", "is legally",
			"according to", "is defined as", "originated", "invented", "discovered",
			"founded", "established", "introduced", "created", "developed",
			"first", "said", "stated", "wrote", "declared", "mascot", "released",
			"premiered", "born", "died", "is the", "was the", "are the", "were the",
		},
	}
}

// Extract returns one unverified claim per declarative sentence
func (e *ClaimExtractor) Extract(text string) []model.Claim {
	var claims []model.Claim

	for _, seg := range SplitSentences(text) {
		if strings.HasSuffix(strings.TrimRight(seg.Text, `"')]`), "?") {
			continue
		}
		if len(strings.Fields(seg.Text)) < minClaimWords {
			continue
		}

		claims = append(claims, model.Claim{
			Text:               seg.Text,
			StartOffset:        seg.Start,
			EndOffset:          seg.End,
			Heuristic:          e.heuristic(seg.Text),
			Sentence:           seg.Index,
			VerificationSource: model.SourceUnverified,
		})
	}

	return dedupeClaims(claims)
}

// Spans returns the byte ranges of the candidate claims in text
func (e *ClaimExtractor) Spans(text string) []model.Span {
	claims := e.Extract(text)
	spans := make([]model.Span, len(claims))
	for i, c := range claims {
		spans[i] = c.Span()
	}
	return spans
}

// heuristic names the extraction rule that best describes the sentence
func (e *ClaimExtractor) heuristic(sentence string) string {
	switch {
	case citationPattern.MatchString(sentence):
		return "pattern:citation"
	case quotePattern.MatchString(sentence):
		return "pattern:quote"
	}

	lower := strings.ToLower(sentence)
	for _, keyword := range e.keywords {
		if strings.Contains(lower, keyword) {
			return "keyword:" + keyword
		}
	}

	switch {
	case yearPattern.MatchString(sentence):
		return "pattern:year"
	case numberPattern.MatchString(sentence):
		return "pattern:number"
	}
	return "sentence"
}

// HasFactualMarkers reports whether a sentence carries concrete, checkable details
func HasFactualMarkers(sentence string) bool {
	return citationPattern.MatchString(sentence) ||
		quotePattern.MatchString(sentence) ||
		yearPattern.MatchString(sentence) ||
		numberPattern.MatchString(sentence)
}

// dedupeClaims removes duplicate claims (case-insensitive), keeping the first
func dedupeClaims(claims []model.Claim) []model.Claim {
	seen := make(map[string]bool)
	var unique []model.Claim

	for _, claim := range claims {
		key := strings.ToLower(strings.TrimSpace(claim.Text))
		if !seen[key] {
			seen[key] = true
			unique = append(unique, claim)
		}
	}

	return unique
}
