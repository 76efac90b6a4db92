// Package config loads the immutable run configuration for a rankforge
// experiment. The configuration is read once at process start from a YAML
// file and threaded through every component; nothing in this package is
// mutable after Load returns.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/entrhq/rankforge/pkg/types"
	"gopkg.in/yaml.v3"
)

// defaultMainCategories maps a domain name to the catalog main_category
// string that identifies it. Overridable per config file for datasets that
// label categories differently.
var defaultMainCategories = map[string]string{
	"Books":                    "Books",
	"Movies_and_TV":            "Movies & TV",
	"Beauty_and_Personal_Care": "All Beauty",
	"Electronics":              "All Electronics",
	"Sports_and_Outdoors":      "Sports & Outdoors",
	"CDs_and_Vinyl":            "Digital Music",
	"Video_Games":              "Video Games",
}

// DataPaths groups every external table the run consumes.
type DataPaths struct {
	// InteractionsTrain and InteractionsTest are the time-ordered
	// interaction CSVs for the two run modes.
	InteractionsTrain string `yaml:"interactions_train"`
	InteractionsTest  string `yaml:"interactions_test"`

	// Catalog is the item metadata CSV.
	Catalog string `yaml:"catalog"`

	// CandidatePools maps each domain to its per-user negative pool CSV
	// (100 pre-sampled item columns per user).
	CandidatePools map[string]string `yaml:"candidate_pools"`

	// GroupTable is the optional cluster membership CSV consumed by the
	// evaluator's group memory block. Empty disables group memory.
	GroupTable string `yaml:"group_table"`
}

// LLMSettings configures the chat-completion provider.
type LLMSettings struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// Config is the complete, immutable configuration for one experiment run.
type Config struct {
	// Name is the experiment family, e.g. "rankforge". The full namespace
	// on disk also carries the domain list; see ExperimentName.
	Name    string        `yaml:"name"`
	Variant types.Variant `yaml:"variant"`

	// Domains lists the 3 or 4 product domains this run spans, in pool
	// order.
	Domains []string `yaml:"domains"`

	// MainCategories overrides the built-in domain to main_category
	// mapping where present.
	MainCategories map[string]string `yaml:"main_categories"`

	Data DataPaths   `yaml:"data"`
	LLM  LLMSettings `yaml:"llm"`

	// MemoryRoot is the directory holding per-experiment memory
	// namespaces. LogDir receives the session log and the result log.
	MemoryRoot string `yaml:"memory_root"`
	LogDir     string `yaml:"log_dir"`

	CandidateNum    int            `yaml:"candidate_num"`
	EvaluationTimes int            `yaml:"evaluation_times"`
	GroupMemLength  int            `yaml:"group_mem_length"`
	PromptStrategy  types.Strategy `yaml:"prompt_strategy"`

	// UseIntermediateNode keeps the private per-domain description in the
	// evaluation prompt alongside the cross-domain preference.
	UseIntermediateNode bool `yaml:"use_intermediate_node"`

	// Seed feeds every random source (negative sampling, candidate
	// shuffling) so runs are reproducible.
	Seed int64 `yaml:"seed"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Name:                "rankforge",
		Variant:             types.VariantBase,
		MemoryRoot:          "memory",
		LogDir:              "log",
		CandidateNum:        10,
		EvaluationTimes:     1,
		GroupMemLength:      5,
		PromptStrategy:      types.StrategyBasic,
		UseIntermediateNode: true,
		Seed:                1,
	}
}

// Validate rejects configurations the run loop cannot honor.
func (c *Config) Validate() error {
	if len(c.Domains) != 3 && len(c.Domains) != 4 {
		return fmt.Errorf("config: expected 3 or 4 domains, got %d", len(c.Domains))
	}
	for _, d := range c.Domains {
		if _, ok := c.mainCategory(d); !ok {
			return fmt.Errorf("config: no main_category mapping for domain %q", d)
		}
		if c.Data.CandidatePools[d] == "" {
			return fmt.Errorf("config: no candidate pool configured for domain %q", d)
		}
	}
	switch c.Variant {
	case types.VariantBase, types.VariantCrossDomain:
	default:
		return fmt.Errorf("config: unknown variant %q", c.Variant)
	}
	switch c.PromptStrategy {
	case types.StrategyBasic, types.StrategyHistory, types.StrategyRetrieval:
	default:
		return fmt.Errorf("config: unknown prompt strategy %q", c.PromptStrategy)
	}
	if c.Data.Catalog == "" {
		return fmt.Errorf("config: catalog path is required")
	}
	if c.Data.InteractionsTrain == "" || c.Data.InteractionsTest == "" {
		return fmt.Errorf("config: interaction paths are required for both modes")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("config: llm model is required")
	}
	if c.CandidateNum < 2 {
		return fmt.Errorf("config: candidate_num must be at least 2, got %d", c.CandidateNum)
	}
	if c.EvaluationTimes < 1 {
		return fmt.Errorf("config: evaluation_times must be at least 1, got %d", c.EvaluationTimes)
	}
	return nil
}

func (c *Config) mainCategory(domain string) (string, bool) {
	if mc, ok := c.MainCategories[domain]; ok {
		return mc, true
	}
	mc, ok := defaultMainCategories[domain]
	return mc, ok
}

// MainCategory returns the catalog main_category string for a domain. The
// domain must have passed Validate.
func (c *Config) MainCategory(domain string) string {
	mc, _ := c.mainCategory(domain)
	return mc
}

// ExperimentName is the namespace for this run's memory and logs: the
// experiment family plus the domain list, matching the on-disk layout of
// previously seeded memory.
func (c *Config) ExperimentName() string {
	return c.Name + " " + strings.Join(c.Domains, " ")
}

// MemoryDir is the root of the current experiment's memory namespace.
func (c *Config) MemoryDir() string {
	return filepath.Join(c.MemoryRoot, c.ExperimentName())
}

// ResultLogPath is the append-only aggregate metrics log.
func (c *Config) ResultLogPath() string {
	return filepath.Join(c.LogDir, "result.txt")
}

// CaseStudyLogPath receives before/after memory audit entries during
// cross-domain training.
func (c *Config) CaseStudyLogPath() string {
	return filepath.Join(c.LogDir, "case_study.txt")
}

// InteractionsPath returns the feed for the given mode ("train" or "test").
func (c *Config) InteractionsPath(mode string) string {
	if mode == "test" {
		return c.Data.InteractionsTest
	}
	return c.Data.InteractionsTrain
}
