package model

// DomainID identifies a risk domain
type DomainID string

const (
	DomainLegal         DomainID = "legal"
	DomainHistorical    DomainID = "historical"
	DomainEntertainment DomainID = "entertainment"
	DomainTechnical     DomainID = "technical"
	DomainGeneral       DomainID = "general"
)

// DomainPriority is the deterministic tie-break order (first wins)
var DomainPriority = []DomainID{
	DomainLegal,
	DomainHistorical,
	DomainEntertainment,
	DomainTechnical,
	DomainGeneral,
}

// DomainProfile is a fixed catalog entry describing a risk domain
type DomainProfile struct {
	ID             DomainID          `json:"id" yaml:"id" validate:"required"`
	RiskWeight     float64           `json:"risk_weight" yaml:"risk_weight" validate:"gte=1"`              // Multiplier on trust penalties
	BlockThreshold float64           `json:"block_threshold" yaml:"block_threshold" validate:"gt=0,lte=1"` // Risk above which an unverified claim is blocked
	Priority       int               `json:"priority" yaml:"priority" validate:"gte=0"`                    // Lower wins ties
	Keywords       []WeightedTerm    `json:"-" yaml:"keywords" validate:"dive"`                            // Word-boundary terms
	Patterns       []WeightedPattern `json:"-" yaml:"patterns" validate:"dive"`                            // Regular expressions
}

// WeightedTerm is a keyword or phrase with a score contribution
type WeightedTerm struct {
	Term   string  `yaml:"term" validate:"required"`
	Weight float64 `yaml:"weight" validate:"gt=0"`
}

// WeightedPattern is a regular expression with a score contribution
type WeightedPattern struct {
	Pattern string  `yaml:"pattern" validate:"required"`
	Weight  float64 `yaml:"weight" validate:"gt=0"`
}

// DomainClassification is the output of the domain classifier
type DomainClassification struct {
	Domain     DomainProfile        `json:"domain"`
	Confidence float64              `json:"confidence"`
	Scores     map[DomainID]float64 `json:"scores,omitempty"`  // Raw score per domain
	Matched    []string             `json:"matched,omitempty"` // Terms/patterns that contributed
	Overridden bool                 `json:"overridden,omitempty"`
}
