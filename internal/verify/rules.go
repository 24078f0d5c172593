package verify

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"slices"
	"sync"

	"github.com/ppiankov/veritas/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var embeddedRules []byte

// Rule is a curated pattern rule with a fixed verdict
type Rule struct {
	ID            string           `yaml:"id" json:"id" validate:"required"`
	Description   string           `yaml:"description,omitempty" json:"description,omitempty"`
	Match         string           `yaml:"match" json:"match" validate:"required"`
	All           []string         `yaml:"all,omitempty" json:"all,omitempty"`
	Unless        string           `yaml:"unless,omitempty" json:"unless,omitempty"`
	Domains       []model.DomainID `yaml:"domains,omitempty" json:"domains,omitempty"`
	Hallucination bool             `yaml:"hallucination" json:"hallucination"`
	Confidence    float64          `yaml:"confidence" json:"confidence" validate:"gte=0,lte=1"`
}

type rulePack struct {
	Rules []Rule `yaml:"rules"`
}

type compiledRule struct {
	rule   Rule
	match  *regexp.Regexp
	all    []*regexp.Regexp
	unless *regexp.Regexp
}

// matches reports whether every pattern of the rule fires on claim
func (cr *compiledRule) matches(claim string, domain model.DomainID) bool {
	if len(cr.rule.Domains) > 0 && !slices.Contains(cr.rule.Domains, domain) {
		return false
	}
	if !cr.match.MatchString(claim) {
		return false
	}
	for _, re := range cr.all {
		if !re.MatchString(claim) {
			return false
		}
	}
	return cr.unless == nil || !cr.unless.MatchString(claim)
}

// RuleChecker checks claims against an ordered rule pack; the first matching rule wins
type RuleChecker struct {
	rules []*compiledRule
}

var (
	defaultRulesOnce sync.Once
	defaultRules     *RuleChecker
)

// DefaultRules returns the embedded rule pack
func DefaultRules() *RuleChecker {
	defaultRulesOnce.Do(func() {
		rc, err := ParseRules(embeddedRules)
		if err != nil {
			panic(fmt.Sprintf("embedded rule pack: %v", err))
		}
		defaultRules = rc
	})
	return defaultRules
}

// LoadRules reads a rule pack file; an empty path returns the embedded pack
func LoadRules(path string) (*RuleChecker, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	rc, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rc, nil
}

// ParseRules parses and compiles a YAML rule pack
func ParseRules(data []byte) (*RuleChecker, error) {
	var pack rulePack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("%w: parse rules: %v", model.ErrInvalidConfig, err)
	}

	seen := make(map[string]bool, len(pack.Rules))
	rc := &RuleChecker{rules: make([]*compiledRule, 0, len(pack.Rules))}

	for _, rule := range pack.Rules {
		if err := model.Validate(rule); err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.ID, err)
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("%w: duplicate rule %q", model.ErrInvalidConfig, rule.ID)
		}
		seen[rule.ID] = true

		cr, err := compileRule(rule)
		if err != nil {
			return nil, err
		}
		rc.rules = append(rc.rules, cr)
	}

	return rc, nil
}

func compileRule(rule Rule) (*compiledRule, error) {
	compile := func(pattern string) (*regexp.Regexp, error) {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q: pattern %q: %v", model.ErrInvalidConfig, rule.ID, pattern, err)
		}
		return re, nil
	}

	cr := &compiledRule{rule: rule}
	var err error
	if cr.match, err = compile(rule.Match); err != nil {
		return nil, err
	}
	for _, p := range rule.All {
		re, err := compile(p)
		if err != nil {
			return nil, err
		}
		cr.all = append(cr.all, re)
	}
	if rule.Unless != "" {
		if cr.unless, err = compile(rule.Unless); err != nil {
			return nil, err
		}
	}
	return cr, nil
}

// Check returns the verdict of the first matching rule, or an unverified verdict
func (r *RuleChecker) Check(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return model.Verdict{}, err
	}

	for _, cr := range r.rules {
		if cr.matches(req.Claim, req.Domain.ID) {
			return model.Verdict{
				IsHallucination: cr.rule.Hallucination,
				Confidence:      cr.rule.Confidence,
				Source:          "rule:" + cr.rule.ID,
			}, nil
		}
	}
	return model.Unverified(), nil
}

// Rules lists the rules in evaluation order
func (r *RuleChecker) Rules() []Rule {
	rules := make([]Rule, len(r.rules))
	for i, cr := range r.rules {
		rules[i] = cr.rule
		rules[i].All = slices.Clone(cr.rule.All)
		rules[i].Domains = slices.Clone(cr.rule.Domains)
	}
	return rules
}

// Len returns the number of rules
func (r *RuleChecker) Len() int {
	return len(r.rules)
}
