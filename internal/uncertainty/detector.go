package uncertainty

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/ppiankov/veritas/internal/extract"
	"github.com/ppiankov/veritas/internal/model"
)

// Placement scores for a hedge relative to the nearest claim
const (
	scoreInsideEarly = 0.9  // in the opening part of a claim, before its main assertion
	scoreInsideLate  = 0.3  // after the assertion, e.g. a trailing relative clause
	scorePreceding   = 0.8  // directly before a claim
	scoreNearMax     = 0.6  // followed by a claim a few words later
	scoreNearMin     = 0.3  // ... at the edge of nearWindow
	scoreIsolated    = 0.15 // no claim nearby

	earlyFraction = 0.4
	nearWindow    = 80 // bytes
	factualBoost  = 0.1
)

// clauseBoundary marks where a claim's opening part gives way to its asserted content
var clauseBoundary = regexp.MustCompile(`(?i)\b(that|which|who|whom|whose|where|because|although|while|whereas)\b`)

// monthContext matches words that put a following "May" in a date
var monthContext = regexp.MustCompile(`(?i)\b(in|of|on|since|until|from|through|by|during|early|late|mid|last|next|this)$`)

// typeMultiplier discounts hedge types that say less about evidence
var typeMultiplier = map[model.QualifierType]float64{
	model.QualifierAttribution: 1.0,
	model.QualifierEpistemic:   1.0,
	model.QualifierConsensus:   0.95,
	model.QualifierProbability: 0.9,
	model.QualifierScope:       0.9,
}

type lexiconEntry struct {
	pattern *regexp.Regexp
	qtype   model.QualifierType
}

// Hedge lexicon, one pattern per qualifier type
var lexicon = []lexiconEntry{
	{
		qtype: model.QualifierAttribution,
		pattern: regexp.MustCompile(
			`(?i)\b(based\s+on(\s+(the\s+)?(available|current|existing)\s+(information|evidence|data|sources|records))?|according\s+to|reportedly|(it\s+is\s+)?(reported|claimed|said)\s+that|sources\s+(say|suggest|indicate)|as\s+reported\s+by)\b`,
		),
	},
	{
		qtype: model.QualifierEpistemic,
		pattern: regexp.MustCompile(
			`(?i)\b(appears?\s+(to|that)|seems?\s+(to|like|that)|apparently|presumably|supposedly|allegedly|I\s+(believe|think|suspect)|it\s+would\s+seem)\b`,
		),
	},
	{
		qtype: model.QualifierProbability,
		pattern: regexp.MustCompile(
			`(?i)\b(it\s+is\s+possible(\s+that)?|there\s+is\s+a\s+chance|likely|unlikely|probably|possibly|perhaps|may|might|could)\b`,
		),
	},
	{
		qtype: model.QualifierConsensus,
		pattern: regexp.MustCompile(
			`(?i)\b(there\s+is\s+(some\s+|ongoing\s+)?debate|(is|are|was|were|remains?|may\s+be)\s+(disputed|contested|debated|controversial)|scholars\s+disagree|opinions\s+differ|some\s+(historians|experts|scholars)\s+(argue|believe|suggest))\b`,
		),
	},
	{
		qtype: model.QualifierScope,
		pattern: regexp.MustCompile(
			`(?i)\b(as\s+far\s+as\s+I\s+know|to\s+(the\s+best\s+of\s+)?my\s+knowledge|I('m|\s+am)\s+not\s+(certain|sure)|in\s+some\s+cases|generally|typically)\b`,
		),
	},
}

// Detector finds hedge phrases and scores how well they are placed
type Detector struct {
	extractor *extract.ClaimExtractor
}

// NewDetector creates a new uncertainty detector
func NewDetector() *Detector {
	return &Detector{extractor: extract.NewClaimExtractor()}
}

// DetectQualifiers finds hedges and scores them against the text's own candidate claims
func (d *Detector) DetectQualifiers(text string) []model.UncertaintyQualifier {
	return d.Detect(text, d.extractor.Spans(text))
}

// Detect finds hedges in text and scores them against the given claim spans.
// The result is sorted by position; overlapping matches keep the longest.
func (d *Detector) Detect(text string, claims []model.Span) []model.UncertaintyQualifier {
	qualifiers := collapseOverlaps(match(text))
	if len(qualifiers) == 0 {
		return nil
	}

	spans := append([]model.Span(nil), claims...)
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	for i := range qualifiers {
		qualifiers[i].AppropriatenessScore = appropriateness(text, qualifiers[i], spans)
	}
	return qualifiers
}

func match(text string) []model.UncertaintyQualifier {
	var found []model.UncertaintyQualifier
	for _, entry := range lexicon {
		for _, loc := range entry.pattern.FindAllStringIndex(text, -1) {
			if entry.qtype == model.QualifierProbability && monthMay(text, loc[0], loc[1]) {
				continue
			}
			found = append(found, model.UncertaintyQualifier{
				Text:     text[loc[0]:loc[1]],
				Position: loc[0],
				End:      loc[1],
				Type:     entry.qtype,
			})
		}
	}
	return found
}

// collapseOverlaps keeps the longest of any overlapping matches, then orders by position
func collapseOverlaps(found []model.UncertaintyQualifier) []model.UncertaintyQualifier {
	sort.SliceStable(found, func(i, j int) bool {
		li, lj := found[i].End-found[i].Position, found[j].End-found[j].Position
		if li != lj {
			return li > lj
		}
		return found[i].Position < found[j].Position
	})

	var kept []model.UncertaintyQualifier
	for _, q := range found {
		overlaps := false
		for _, k := range kept {
			if q.Span().Overlaps(k.Span()) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, q)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Position < kept[j].Position })
	return kept
}

// appropriateness scores a hedge by its distance to the nearest overlapping or following claim
func appropriateness(text string, q model.UncertaintyQualifier, spans []model.Span) float64 {
	score := scoreIsolated
	var claim *model.Span

	for i := range spans {
		s := spans[i]
		if s.Overlaps(q.Span()) {
			claim = &spans[i]
			if q.Position < openingEnd(text, s) {
				score = scoreInsideEarly
			} else {
				score = scoreInsideLate
			}
			break
		}
		if s.Start >= q.End {
			dist := s.Start - q.End
			switch {
			case onlySeparators(text[q.End:s.Start]):
				claim = &spans[i]
				score = scorePreceding
			case dist <= nearWindow:
				claim = &spans[i]
				score = scoreNearMax - (scoreNearMax-scoreNearMin)*float64(dist)/nearWindow
			}
			break
		}
	}

	if claim != nil && extract.HasFactualMarkers(text[claim.Start:claim.End]) {
		score += factualBoost
	}

	score *= typeMultiplier[q.Type]
	return math.Max(0, math.Min(1, score))
}

// openingEnd is the offset where a claim's opening part ends: its first
// clause boundary, or earlyFraction of the claim when it has none
func openingEnd(text string, s model.Span) int {
	if loc := clauseBoundary.FindStringIndex(text[s.Start:s.End]); loc != nil && loc[0] > 0 {
		return s.Start + loc[0]
	}
	return s.Start + int(earlyFraction*float64(s.Len()))
}

// monthMay reports a capitalised "May" used as a month: "May 2022", "5 May", "in May"
func monthMay(text string, start, end int) bool {
	if text[start:end] != "May" {
		return false
	}
	if after := strings.TrimLeft(text[end:], " \t"); after != "" && isDigit(after[0]) {
		return true
	}
	before := strings.TrimRight(text[:start], " \t")
	if before != "" && isDigit(before[len(before)-1]) {
		return true
	}
	return monthContext.MatchString(before)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func onlySeparators(gap string) bool {
	return strings.IndexFunc(gap, func(r rune) bool {
		return !unicode.IsSpace(r) && !unicode.IsPunct(r)
	}) < 0
}

// Covers reports whether q overlaps span or immediately precedes it with only
// whitespace or punctuation in between
func Covers(text string, q model.UncertaintyQualifier, span model.Span) bool {
	if q.Span().Overlaps(span) {
		return true
	}
	if q.End > span.Start || span.Start > len(text) || q.End < 0 {
		return false
	}
	return onlySeparators(text[q.End:span.Start])
}
