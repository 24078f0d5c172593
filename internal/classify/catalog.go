package classify

import (
	_ "embed"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/veritas/internal/model"
)

//go:embed profiles.yaml
var defaultCatalogYAML []byte

// Catalog is the immutable set of domain profiles
type Catalog struct {
	profiles []*compiledProfile // sorted by priority
	byID     map[model.DomainID]*compiledProfile
}

type compiledProfile struct {
	profile  model.DomainProfile
	keywords []*compiledTerm
	patterns []*compiledTerm
}

type compiledTerm struct {
	pattern *regexp.Regexp
	label   string
	weight  float64
}

type catalogFile struct {
	Profiles []model.DomainProfile `yaml:"profiles"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog returns the embedded catalog
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		c, err := ParseCatalog(defaultCatalogYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded domain catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// ParseCatalog parses and validates a YAML domain catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	catalog := &Catalog{
		byID: make(map[model.DomainID]*compiledProfile),
	}

	for _, profile := range file.Profiles {
		if err := model.ValidateProfile(profile); err != nil {
			return nil, fmt.Errorf("profile %q: %w", profile.ID, err)
		}
		if _, dup := catalog.byID[profile.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate profile %q", model.ErrInvalidConfig, profile.ID)
		}

		cp, err := compileProfile(profile)
		if err != nil {
			return nil, err
		}
		catalog.profiles = append(catalog.profiles, cp)
		catalog.byID[profile.ID] = cp
	}

	// general is the fallback for empty, unmatched and unknown input
	if _, ok := catalog.byID[model.DomainGeneral]; !ok {
		return nil, fmt.Errorf("%w: catalog has no %q profile", model.ErrInvalidConfig, model.DomainGeneral)
	}

	sort.SliceStable(catalog.profiles, func(i, j int) bool {
		return catalog.profiles[i].profile.Priority < catalog.profiles[j].profile.Priority
	})

	return catalog, nil
}

func compileProfile(profile model.DomainProfile) (*compiledProfile, error) {
	cp := &compiledProfile{profile: profile}

	// Keywords match case-insensitively on word boundaries
	for _, kw := range profile.Keywords {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(kw.Term) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("profile %q keyword %q: %w", profile.ID, kw.Term, err)
		}
		cp.keywords = append(cp.keywords, &compiledTerm{pattern: re, label: "keyword:" + kw.Term, weight: kw.Weight})
	}

	for _, p := range profile.Patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: profile %q pattern %q: %v", model.ErrInvalidConfig, profile.ID, p.Pattern, err)
		}
		cp.patterns = append(cp.patterns, &compiledTerm{pattern: re, label: "pattern:" + p.Pattern, weight: p.Weight})
	}

	return cp, nil
}

// Profile looks up a profile by id
func (c *Catalog) Profile(id model.DomainID) (model.DomainProfile, bool) {
	cp, ok := c.byID[id]
	if !ok {
		return model.DomainProfile{}, false
	}
	return cloneProfile(cp.profile), true
}

// General returns the fallback profile
func (c *Catalog) General() model.DomainProfile {
	return cloneProfile(c.byID[model.DomainGeneral].profile)
}

// Profiles returns every profile in priority order
func (c *Catalog) Profiles() []model.DomainProfile {
	out := make([]model.DomainProfile, len(c.profiles))
	for i, cp := range c.profiles {
		out[i] = cloneProfile(cp.profile)
	}
	return out
}

// cloneProfile copies slices so callers can never mutate the catalog
func cloneProfile(p model.DomainProfile) model.DomainProfile {
	p.Keywords = slices.Clone(p.Keywords)
	p.Patterns = slices.Clone(p.Patterns)
	return p
}
