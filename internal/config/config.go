// Package config provides configuration management for Huddle.
// It loads settings from environment variables with the HUDDLE_ prefix
// and provides sensible defaults for all configuration options.
//
// The consensus and conflict heuristics are empirically tuned values, not
// semantic ground truth, so every threshold and the disagreement phrase list
// are configuration. An optional YAML heuristics file can override them
// without touching the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Huddle engine.
type Config struct {
	Engine    EngineConfig
	Scheduler SchedulerConfig
	Storage   StorageConfig
}

// EngineConfig contains the consensus and conflict heuristics.
type EngineConfig struct {
	// SupportThreshold is the confidence at or above which a speaker counts
	// as a supporter of the word they mention (default: 0.6).
	SupportThreshold float64

	// OpposeThreshold is the confidence below which a speaker counts as an
	// opposer (default: 0.3). Values in between contribute mentions only.
	OpposeThreshold float64

	// HighSupportPercentage is the participant share needed for two
	// supporters to reach High consensus (default: 0.7).
	HighSupportPercentage float64

	// MediumSupportPercentage is the participant share needed for a single
	// supporter to reach Medium consensus (default: 0.5).
	MediumSupportPercentage float64

	// StrongAgreementThreshold is the pairwise agreement score at or beyond
	// which (±) an agent pair is reported as strong or conflicting (default: 2).
	StrongAgreementThreshold float64

	// InfluencerConsensusRate is the fraction of an agent's suggestions that
	// must reach consensus for the agent to count as an influencer (default: 0.7).
	InfluencerConsensusRate float64

	// InfluencerMinSuggestions is the minimum suggestion count before the
	// influencer rate is evaluated (default: 3).
	InfluencerMinSuggestions int

	// RiskHistoryWindow is how many recent risk labels feed the majority
	// vote behind an agent's risk tolerance (default: 10).
	RiskHistoryWindow int

	// DisagreementPhrases is the marker set used by the phrase-based
	// disagreement detector. Matching is case-insensitive substring search.
	DisagreementPhrases []string
}

// SchedulerConfig contains background thinking scheduler settings.
type SchedulerConfig struct {
	// ThinkInterval is the period between background thinking ticks
	// (default: 30s).
	ThinkInterval time.Duration

	// MinThinkGap bounds how often the generation service may be invoked for
	// one (game, team) key regardless of tick timing (default: 5s).
	MinThinkGap time.Duration
}

// StorageConfig contains the game-record provider configuration used by the
// demo binary. The memory engine itself persists nothing.
type StorageConfig struct {
	Provider string // Provider type: memory, sqlite (default: memory)
	DataPath string // Path to data directory for sqlite (default: ./data)
}

// DefaultDisagreementPhrases is the built-in marker set for the phrase-based
// conflict heuristic. It is a heuristic signal, not ground truth.
func DefaultDisagreementPhrases() []string {
	return []string{
		"disagree",
		"don't think",
		"do not think",
		"too risky",
		"too dangerous",
		"instead of",
		"rather than",
		"prefer",
		"not ",
		"bad idea",
		"avoid",
	}
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. If HUDDLE_HEURISTICS_PATH points at a YAML file, its values
// override the environment for the engine heuristics.
func LoadConfig() (*Config, error) {
	cfg := buildBaseConfig()

	if path := os.Getenv("HUDDLE_HEURISTICS_PATH"); path != "" {
		if err := cfg.applyHeuristicsFile(path); err != nil {
			return nil, fmt.Errorf("config: failed to load heuristics file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration for impossible values.
func (c *Config) Validate() error {
	e := c.Engine
	if e.SupportThreshold < 0 || e.SupportThreshold > 1 {
		return fmt.Errorf("config: SupportThreshold %.2f outside [0,1]", e.SupportThreshold)
	}
	if e.OpposeThreshold < 0 || e.OpposeThreshold > 1 {
		return fmt.Errorf("config: OpposeThreshold %.2f outside [0,1]", e.OpposeThreshold)
	}
	if e.OpposeThreshold > e.SupportThreshold {
		return fmt.Errorf("config: OpposeThreshold %.2f exceeds SupportThreshold %.2f", e.OpposeThreshold, e.SupportThreshold)
	}
	if e.InfluencerMinSuggestions < 1 {
		return fmt.Errorf("config: InfluencerMinSuggestions must be >= 1, got %d", e.InfluencerMinSuggestions)
	}
	if e.RiskHistoryWindow < 1 {
		return fmt.Errorf("config: RiskHistoryWindow must be >= 1, got %d", e.RiskHistoryWindow)
	}
	if c.Scheduler.ThinkInterval <= 0 {
		return fmt.Errorf("config: ThinkInterval must be > 0, got %v", c.Scheduler.ThinkInterval)
	}
	if c.Scheduler.MinThinkGap < 0 {
		return fmt.Errorf("config: MinThinkGap must be >= 0, got %v", c.Scheduler.MinThinkGap)
	}
	return nil
}

// heuristicsFile mirrors the YAML override file. Pointer fields distinguish
// "absent" from zero values so partial overrides work.
type heuristicsFile struct {
	SupportThreshold         *float64 `yaml:"support_threshold"`
	OpposeThreshold          *float64 `yaml:"oppose_threshold"`
	HighSupportPercentage    *float64 `yaml:"high_support_percentage"`
	MediumSupportPercentage  *float64 `yaml:"medium_support_percentage"`
	StrongAgreementThreshold *float64 `yaml:"strong_agreement_threshold"`
	InfluencerConsensusRate  *float64 `yaml:"influencer_consensus_rate"`
	InfluencerMinSuggestions *int     `yaml:"influencer_min_suggestions"`
	RiskHistoryWindow        *int     `yaml:"risk_history_window"`
	DisagreementPhrases      []string `yaml:"disagreement_phrases"`
}

func (c *Config) applyHeuristicsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var h heuristicsFile
	if err := yaml.Unmarshal(data, &h); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if h.SupportThreshold != nil {
		c.Engine.SupportThreshold = *h.SupportThreshold
	}
	if h.OpposeThreshold != nil {
		c.Engine.OpposeThreshold = *h.OpposeThreshold
	}
	if h.HighSupportPercentage != nil {
		c.Engine.HighSupportPercentage = *h.HighSupportPercentage
	}
	if h.MediumSupportPercentage != nil {
		c.Engine.MediumSupportPercentage = *h.MediumSupportPercentage
	}
	if h.StrongAgreementThreshold != nil {
		c.Engine.StrongAgreementThreshold = *h.StrongAgreementThreshold
	}
	if h.InfluencerConsensusRate != nil {
		c.Engine.InfluencerConsensusRate = *h.InfluencerConsensusRate
	}
	if h.InfluencerMinSuggestions != nil {
		c.Engine.InfluencerMinSuggestions = *h.InfluencerMinSuggestions
	}
	if h.RiskHistoryWindow != nil {
		c.Engine.RiskHistoryWindow = *h.RiskHistoryWindow
	}
	if len(h.DisagreementPhrases) > 0 {
		c.Engine.DisagreementPhrases = h.DisagreementPhrases
	}
	return nil
}

// buildBaseConfig constructs a Config with values from environment variables
// and defaults.
func buildBaseConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			SupportThreshold:         getEnvFloat("HUDDLE_SUPPORT_THRESHOLD", 0.6),
			OpposeThreshold:          getEnvFloat("HUDDLE_OPPOSE_THRESHOLD", 0.3),
			HighSupportPercentage:    getEnvFloat("HUDDLE_HIGH_SUPPORT_PCT", 0.7),
			MediumSupportPercentage:  getEnvFloat("HUDDLE_MEDIUM_SUPPORT_PCT", 0.5),
			StrongAgreementThreshold: getEnvFloat("HUDDLE_STRONG_AGREEMENT", 2.0),
			InfluencerConsensusRate:  getEnvFloat("HUDDLE_INFLUENCER_RATE", 0.7),
			InfluencerMinSuggestions: getEnvInt("HUDDLE_INFLUENCER_MIN_SUGGESTIONS", 3),
			RiskHistoryWindow:        getEnvInt("HUDDLE_RISK_HISTORY_WINDOW", 10),
			DisagreementPhrases:      getEnvList("HUDDLE_DISAGREEMENT_PHRASES", DefaultDisagreementPhrases()),
		},
		Scheduler: SchedulerConfig{
			ThinkInterval: getEnvDuration("HUDDLE_THINK_INTERVAL", 30*time.Second),
			MinThinkGap:   getEnvDuration("HUDDLE_MIN_THINK_GAP", 5*time.Second),
		},
		Storage: StorageConfig{
			Provider: getEnv("HUDDLE_STORAGE_PROVIDER", "memory"),
			DataPath: getEnv("HUDDLE_DATA_PATH", "./data"),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value when unset or unparseable.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value when unset or unparseable.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns a
// default value when unset or unparseable.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList retrieves a comma-separated list environment variable or returns
// the default list when unset.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
