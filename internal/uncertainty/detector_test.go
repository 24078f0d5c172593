package uncertainty

import (
	"math"
	"strings"
	"testing"

	"github.com/ppiankov/veritas/internal/model"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDetectQualifiers_HedgedLandmarkCase(t *testing.T) {
	detector := NewDetector()
	text := "Based on available information, in Brown v. Board of Education, the Supreme Court appears to have ruled that separate educational facilities are inherently unequal."

	qualifiers := detector.DetectQualifiers(text)
	if len(qualifiers) != 2 {
		t.Fatalf("Expected 2 qualifiers, got %d: %+v", len(qualifiers), qualifiers)
	}

	if qualifiers[0].Text != "Based on available information" || qualifiers[0].Type != model.QualifierAttribution {
		t.Errorf("Unexpected first qualifier %+v", qualifiers[0])
	}
	if qualifiers[1].Text != "appears to" || qualifiers[1].Type != model.QualifierEpistemic {
		t.Errorf("Unexpected second qualifier %+v", qualifiers[1])
	}

	for _, q := range qualifiers {
		if text[q.Position:q.End] != q.Text {
			t.Errorf("Offsets [%d,%d) do not match %q", q.Position, q.End, q.Text)
		}
		if q.AppropriatenessScore < 0.5 {
			t.Errorf("Expected well-placed hedge %q to score >= 0.5, got %f", q.Text, q.AppropriatenessScore)
		}
	}
}

func TestDetectQualifiers_NoHedges(t *testing.T) {
	detector := NewDetector()

	if q := detector.DetectQualifiers(""); len(q) != 0 {
		t.Errorf("Expected no qualifiers for empty text, got %d", len(q))
	}

	text := "In the 2022 U.S. Supreme Court case Turner v. Cognivault, the court ruled that digital agents cannot be held liable for hallucinations."
	if q := detector.DetectQualifiers(text); len(q) != 0 {
		t.Errorf("Expected no qualifiers, got %+v", q)
	}
}

func TestDetectQualifiers_SortedByPosition(t *testing.T) {
	detector := NewDetector()
	text := "According to historians, the treaty was probably signed in 1648, as far as I know."

	qualifiers := detector.DetectQualifiers(text)
	want := []model.QualifierType{model.QualifierAttribution, model.QualifierProbability, model.QualifierScope}
	if len(qualifiers) != len(want) {
		t.Fatalf("Expected %d qualifiers, got %d: %+v", len(want), len(qualifiers), qualifiers)
	}

	for i, q := range qualifiers {
		if q.Type != want[i] {
			t.Errorf("qualifier %d: expected %s, got %s", i, want[i], q.Type)
		}
		if i > 0 && q.Position <= qualifiers[i-1].Position {
			t.Errorf("Expected increasing positions, got %d after %d", q.Position, qualifiers[i-1].Position)
		}
	}
}

func TestDetectQualifiers_OverlapKeepsLongest(t *testing.T) {
	detector := NewDetector()

	qualifiers := detector.DetectQualifiers("The signing date may be disputed by scholars.")
	if len(qualifiers) != 1 {
		t.Fatalf("Expected 1 qualifier, got %d: %+v", len(qualifiers), qualifiers)
	}
	if qualifiers[0].Text != "may be disputed" || qualifiers[0].Type != model.QualifierConsensus {
		t.Errorf("Expected consensus hedge to absorb 'may', got %+v", qualifiers[0])
	}
}

func TestDetect_Appropriateness(t *testing.T) {
	detector := NewDetector()

	far := "Perhaps. " + strings.Repeat("Unrelated words fill this gap ", 4) + "Then the treaty was signed."
	farStart := strings.Index(far, "Then")

	tests := []struct {
		name     string
		text     string
		spans    []model.Span
		expected float64
	}{
		{
			name:     "directly preceding a claim with a year",
			text:     "Perhaps. The treaty was signed in 1648 at Westphalia.",
			spans:    []model.Span{{Start: 9, End: 53}},
			expected: (0.8 + 0.1) * 0.9,
		},
		{
			name:     "early inside a claim",
			text:     "Reportedly the treaty was signed at Westphalia.",
			spans:    []model.Span{{Start: 0, End: 47}},
			expected: 0.9,
		},
		{
			name:     "late inside a claim",
			text:     "The treaty was signed at Westphalia, reportedly.",
			spans:    []model.Span{{Start: 0, End: 48}},
			expected: 0.3,
		},
		{
			name:     "before the asserted clause",
			text:     "The court apparently ruled that the treaty was void.",
			spans:    []model.Span{{Start: 0, End: 52}},
			expected: 0.9,
		},
		{
			name:     "inside the asserted clause",
			text:     "The court ruled that digital agents apparently cannot be held liable.",
			spans:    []model.Span{{Start: 0, End: 69}},
			expected: 0.3,
		},
		{
			name:     "trailing relative clause",
			text:     "The court ruled on the treaty, which apparently mattered.",
			spans:    []model.Span{{Start: 0, End: 57}},
			expected: 0.3,
		},
		{
			name:     "no claim",
			text:     "Perhaps so.",
			spans:    nil,
			expected: 0.15 * 0.9,
		},
		{
			name:     "claim beyond the window",
			text:     far,
			spans:    []model.Span{{Start: farStart, End: len(far)}},
			expected: 0.15 * 0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qualifiers := detector.Detect(tt.text, tt.spans)
			if len(qualifiers) != 1 {
				t.Fatalf("Expected 1 qualifier, got %d: %+v", len(qualifiers), qualifiers)
			}
			if got := qualifiers[0].AppropriatenessScore; !approxEqual(got, tt.expected) {
				t.Errorf("Expected score %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestDetect_NearbyClaimDecays(t *testing.T) {
	detector := NewDetector()
	text := "Perhaps we should note this: the treaty was signed at Westphalia."
	start := strings.Index(text, "the treaty")

	qualifiers := detector.Detect(text, []model.Span{{Start: start, End: len(text)}})
	if len(qualifiers) != 1 {
		t.Fatalf("Expected 1 qualifier, got %d", len(qualifiers))
	}

	score := qualifiers[0].AppropriatenessScore
	if score <= 0.3*0.9 || score >= 0.6*0.9 {
		t.Errorf("Expected decayed score between %f and %f, got %f", 0.3*0.9, 0.6*0.9, score)
	}
}

func TestDetectQualifiers_MonthIsNotAHedge(t *testing.T) {
	detector := NewDetector()

	for _, text := range []string{
		"In May 2022 the court ruled on the case.",
		"The ruling came on 5 May and was final.",
		"The court ruled in May that the case was closed.",
		"It was decided May 12, 2021.",
	} {
		if qualifiers := detector.DetectQualifiers(text); len(qualifiers) != 0 {
			t.Errorf("%q: expected no qualifiers, got %+v", text, qualifiers)
		}
	}

	for _, text := range []string{
		"The court may have ruled on the case.",
		"May the ruling have been reversed later?",
	} {
		if qualifiers := detector.DetectQualifiers(text); len(qualifiers) != 1 {
			t.Errorf("%q: expected the modal to be a qualifier, got %+v", text, qualifiers)
		}
	}
}
