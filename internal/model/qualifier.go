package model

// QualifierType categorizes a hedge phrase
type QualifierType string

const (
	QualifierEpistemic   QualifierType = "epistemic-hedge"   // "appears to", "seems", "I believe"
	QualifierAttribution QualifierType = "attribution-hedge" // "according to", "based on", "reportedly"
	QualifierProbability QualifierType = "probability-hedge" // "likely", "probably", "may"
	QualifierConsensus   QualifierType = "consensus-hedge"   // "there is debate", "disputed"
	QualifierScope       QualifierType = "scope-hedge"       // "as far as I know", "to my knowledge"
)

// UncertaintyQualifier is a detected hedge phrase
type UncertaintyQualifier struct {
	Text                 string        `json:"text"`
	Position             int           `json:"position"` // Byte offset of the first character
	End                  int           `json:"end"`      // Byte offset after the last character
	Type                 QualifierType `json:"type"`
	AppropriatenessScore float64       `json:"appropriateness_score"` // How well-placed the hedge is (0-1)
}

// Span returns the qualifier's byte range
func (q UncertaintyQualifier) Span() Span {
	return Span{Start: q.Position, End: q.End}
}
