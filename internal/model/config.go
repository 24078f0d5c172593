package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned when a configuration fails validation
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete veritas configuration
type Config struct {
	Pipeline     PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Verifier     VerifierConfig  `yaml:"verifier" mapstructure:"verifier"`
	LLM          LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Links        LinkConfig      `yaml:"links" mapstructure:"links"`
	Authority    AuthorityConfig `yaml:"authority" mapstructure:"authority"`
	Cache        CacheConfig     `yaml:"cache" mapstructure:"cache"`
	HTTP         HTTPConfig      `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  Concurrency     `yaml:"concurrency" mapstructure:"concurrency"`
	Observer     ObserverConfig  `yaml:"observer" mapstructure:"observer"`
	Logging      LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// PipelineConfig is the process-wide switchboard read by every ProcessResponse call
type PipelineConfig struct {
	Enabled                  bool    `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	DomainSpecificEnabled    bool    `yaml:"domain_specific_enabled" mapstructure:"domain_specific_enabled" json:"domain_specific_enabled"`
	UncertaintyRewardEnabled bool    `yaml:"uncertainty_reward_enabled" mapstructure:"uncertainty_reward_enabled" json:"uncertainty_reward_enabled"`
	HITLThreshold            float64 `yaml:"hitl_threshold" mapstructure:"hitl_threshold" json:"hitl_threshold" validate:"gte=0"`
	AppropriatenessFloor     float64 `yaml:"appropriateness_floor" mapstructure:"appropriateness_floor" json:"appropriateness_floor" validate:"gte=0,lte=1"`
	BasePenalty              float64 `yaml:"base_penalty" mapstructure:"base_penalty" json:"base_penalty" validate:"gte=0"`
	MaxPenalty               float64 `yaml:"max_penalty" mapstructure:"max_penalty" json:"max_penalty" validate:"gte=0,lte=100"`
	MaxBonus                 float64 `yaml:"max_bonus" mapstructure:"max_bonus" json:"max_bonus" validate:"gte=0,lte=100"`
	BonusPerQualifier        float64 `yaml:"bonus_per_qualifier" mapstructure:"bonus_per_qualifier" json:"bonus_per_qualifier" validate:"gte=0"`
}

// ConfigPatch is a partial PipelineConfig; nil fields are left untouched
type ConfigPatch struct {
	Enabled                  *bool    `json:"enabled,omitempty"`
	DomainSpecificEnabled    *bool    `json:"domain_specific_enabled,omitempty"`
	UncertaintyRewardEnabled *bool    `json:"uncertainty_reward_enabled,omitempty"`
	HITLThreshold            *float64 `json:"hitl_threshold,omitempty"`
	AppropriatenessFloor     *float64 `json:"appropriateness_floor,omitempty"`
	BasePenalty              *float64 `json:"base_penalty,omitempty"`
	MaxPenalty               *float64 `json:"max_penalty,omitempty"`
	MaxBonus                 *float64 `json:"max_bonus,omitempty"`
	BonusPerQualifier        *float64 `json:"bonus_per_qualifier,omitempty"`
}

// Merge returns a copy of cfg with the patch applied
func (p ConfigPatch) Merge(cfg PipelineConfig) PipelineConfig {
	if p.Enabled != nil {
		cfg.Enabled = *p.Enabled
	}
	if p.DomainSpecificEnabled != nil {
		cfg.DomainSpecificEnabled = *p.DomainSpecificEnabled
	}
	if p.UncertaintyRewardEnabled != nil {
		cfg.UncertaintyRewardEnabled = *p.UncertaintyRewardEnabled
	}
	if p.HITLThreshold != nil {
		cfg.HITLThreshold = *p.HITLThreshold
	}
	if p.AppropriatenessFloor != nil {
		cfg.AppropriatenessFloor = *p.AppropriatenessFloor
	}
	if p.BasePenalty != nil {
		cfg.BasePenalty = *p.BasePenalty
	}
	if p.MaxPenalty != nil {
		cfg.MaxPenalty = *p.MaxPenalty
	}
	if p.MaxBonus != nil {
		cfg.MaxBonus = *p.MaxBonus
	}
	if p.BonusPerQualifier != nil {
		cfg.BonusPerQualifier = *p.BonusPerQualifier
	}
	return cfg
}

// VerifierConfig controls the claim verifier
type VerifierConfig struct {
	Concurrency  int           `yaml:"concurrency" mapstructure:"concurrency" validate:"gte=1"`     // Claims checked in parallel
	CheckTimeout time.Duration `yaml:"check_timeout" mapstructure:"check_timeout" validate:"gte=0"` // Per-check timeout (0 = none)
	RulesFile    string        `yaml:"rules_file" mapstructure:"rules_file"`                        // Optional rule pack override
	Links        bool          `yaml:"links" mapstructure:"links"`                                  // Check URLs cited in claims
}

// LLMConfig holds model-backed checker settings
type LLMConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=openai anthropic claude ollama"` // "" disables
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"` // seconds
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// LinkConfig controls cited-URL checking
type LinkConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=1"`
}

// AuthorityConfig lists URL authority classification rules
type AuthorityConfig struct {
	PrimaryDomains   []string      `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string      `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	PathPatterns     []PathPattern `yaml:"path_patterns" mapstructure:"path_patterns"`
}

// PathPattern assigns a tier to URLs whose path matches Pattern
type PathPattern struct {
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Tier    string `yaml:"tier" mapstructure:"tier" validate:"oneof=primary secondary tertiary"`
}

// CacheConfig controls the verdict cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl" validate:"gte=0"`
	Dir       string        `yaml:"dir" mapstructure:"dir"` // Disk layer; empty keeps memory only
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl" validate:"gte=0"`
}

// HTTPConfig controls input fetching for the CLI
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gte=0"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitConfig limits outbound calls made by checkers
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size" validate:"gte=1"`
}

// Concurrency controls batch processing
type Concurrency struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
}

// ObserverConfig controls the audit log
type ObserverConfig struct {
	File string `yaml:"file" mapstructure:"file"` // Append-only JSON lines sink; empty disables
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=console json"`
}

// DefaultPipelineConfig returns the process-start defaults
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Enabled:                  true,
		DomainSpecificEnabled:    true,
		UncertaintyRewardEnabled: true,
		HITLThreshold:            0.5,
		AppropriatenessFloor:     0.5,
		BasePenalty:              10,
		MaxPenalty:               20,
		MaxBonus:                 5,
		BonusPerQualifier:        2.5,
	}
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Pipeline: DefaultPipelineConfig(),
		Verifier: VerifierConfig{
			Concurrency:  8,
			CheckTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 300,
		},
		Links: LinkConfig{
			Timeout:       10 * time.Second,
			UserAgent:     "Veritas/0.1 (+https://github.com/ppiankov/veritas)",
			RespectRobots: true,
			MaxRetries:    3,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"supremecourt.gov", "law.cornell.edu", "legislation.gov.uk",
				"justia.com", "courtlistener.com", "archives.gov", "doi.org",
			},
			SecondaryDomains: []string{
				"wikipedia.org", "britannica.com", "reuters.com", "apnews.com",
				"bbc.co.uk", "nytimes.com",
			},
			PathPatterns: []PathPattern{
				{Pattern: `^/(opinions|cases|statutes)/`, Tier: "primary"},
				{Pattern: `\.pdf$`, Tier: "primary"},
				{Pattern: `^/(blog|news)/`, Tier: "tertiary"},
			},
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "Veritas/0.1 (+https://github.com/ppiankov/veritas)",
			MaxBodyBytes: 2_000_000,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Concurrency: Concurrency{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the pipeline switchboard
func (c PipelineConfig) Validate() error {
	return validateStruct(c)
}

// Validate checks the complete configuration
func (c *Config) Validate() error {
	return validateStruct(c)
}

// ValidateProfile checks a domain catalog entry
func ValidateProfile(p DomainProfile) error {
	return validateStruct(p)
}

// Validate checks any struct carrying validate tags
func Validate(v any) error {
	return validateStruct(v)
}

func validateStruct(v any) error {
	err := configValidator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}
