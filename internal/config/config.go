// Package config provides unified configuration loading for headwinds.
// It supports loading from YAML files, a .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/headwinds/internal/agent"
	"github.com/nvandessel/headwinds/internal/culture"
	"github.com/nvandessel/headwinds/internal/simulation"
	"github.com/nvandessel/headwinds/internal/socialgraph"
)

// DefaultFile is the config file looked up in the working directory when no
// path is given.
const DefaultFile = "headwinds.yaml"

// DefaultEnvFile is the dotenv file applied before environment overrides.
const DefaultEnvFile = ".env"

// SimConfig contains all headwinds configuration settings.
type SimConfig struct {
	Embeddings EmbeddingsConfig `json:"embeddings" yaml:"embeddings"`
	Population PopulationConfig `json:"population" yaml:"population"`
	Culture    CultureConfig    `json:"culture" yaml:"culture"`
	Graph      GraphConfig      `json:"graph" yaml:"graph"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Vocabulary is the fixed word set every agent tracks. Words missing
	// from the embedding file are dropped at load time.
	Vocabulary []string `json:"vocabulary" yaml:"vocabulary"`

	Output  OutputConfig  `json:"output" yaml:"output"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// EmbeddingsConfig locates the pretrained vectors.
type EmbeddingsConfig struct {
	// Path is a GloVe-format text file.
	Path string `json:"path" yaml:"path"`

	// Dim is the vector dimension; lines of any other width are skipped.
	Dim int `json:"dim" yaml:"dim"`
}

// PopulationConfig sizes the population and sets per-agent dynamics.
type PopulationConfig struct {
	Agents            int     `json:"agents" yaml:"agents"`
	DecayRate         float64 `json:"decay_rate" yaml:"decay_rate"`
	ReinforcementRate float64 `json:"reinforcement_rate" yaml:"reinforcement_rate"`

	// TimelineRetention caps each agent's stored timeline; 0 is unbounded.
	TimelineRetention int `json:"timeline_retention,omitempty" yaml:"timeline_retention,omitempty"`
}

// CultureConfig controls random cultural profiles.
type CultureConfig struct {
	// Enabled gives every agent a random profile; when false every agent is
	// unbiased.
	Enabled       bool    `json:"enabled" yaml:"enabled"`
	MinTaboo      int     `json:"min_taboo" yaml:"min_taboo"`
	MaxTaboo      int     `json:"max_taboo" yaml:"max_taboo"`
	MinVirtue     int     `json:"min_virtue" yaml:"min_virtue"`
	MaxVirtue     int     `json:"max_virtue" yaml:"max_virtue"`
	Suppression   float64 `json:"suppression" yaml:"suppression"`
	Amplification float64 `json:"amplification" yaml:"amplification"`
}

// GraphConfig controls the random follow graph.
type GraphConfig struct {
	MinFollowing int `json:"min_following" yaml:"min_following"`

	// MaxFollowing of 0 means agents-1.
	MaxFollowing int `json:"max_following" yaml:"max_following"`
}

// SimulationConfig controls the stepping loop.
type SimulationConfig struct {
	Steps           int     `json:"steps" yaml:"steps"`
	PostProbability float64 `json:"post_probability" yaml:"post_probability"`
	Seed            uint64  `json:"seed" yaml:"seed"`
	Workers         int     `json:"workers" yaml:"workers"`
}

// OutputConfig controls where results go.
type OutputConfig struct {
	// Dir holds the results database, message export and trace log.
	Dir string `json:"dir" yaml:"dir"`

	// ExportMessages also writes the message log as JSONL.
	ExportMessages bool `json:"export_messages" yaml:"export_messages"`
}

// LoggingConfig configures operational and message-trace logging.
type LoggingConfig struct {
	// Level sets the log verbosity: "warn", "info" (default), "debug", or
	// "trace". "debug" enables the message trace in the output directory;
	// "trace" additionally records message vectors.
	Level string `json:"level" yaml:"level"`
}

// DefaultVocabulary is the word set used when none is configured.
var DefaultVocabulary = []string{
	"love", "hate", "peace", "war", "happy", "sad", "music", "silence", "life", "death",
	"freedom", "slavery", "truth", "lie", "light", "dark", "good", "evil", "friend", "enemy",
	"hope", "fear", "joy", "anger", "dream", "nightmare", "justice", "crime", "beauty", "ugly",
}

// Default returns a SimConfig with sensible defaults.
func Default() *SimConfig {
	gen := culture.DefaultGeneratorConfig()
	sim := simulation.DefaultConfig()
	params := agent.DefaultParams()

	return &SimConfig{
		Embeddings: EmbeddingsConfig{
			Path: "data/glove.6B.50d.txt",
			Dim:  50,
		},
		Population: PopulationConfig{
			Agents:            500,
			DecayRate:         params.DecayRate,
			ReinforcementRate: params.ReinforcementRate,
		},
		Culture: CultureConfig{
			Enabled:       true,
			MinTaboo:      gen.MinTaboo,
			MaxTaboo:      gen.MaxTaboo,
			MinVirtue:     gen.MinVirtue,
			MaxVirtue:     gen.MaxVirtue,
			Suppression:   gen.Suppression,
			Amplification: gen.Amplification,
		},
		Graph: GraphConfig{
			MinFollowing: 1,
		},
		Simulation: SimulationConfig{
			Steps:           sim.Steps,
			PostProbability: sim.PostProbability,
			Seed:            sim.Seed,
			Workers:         sim.Workers,
		},
		Vocabulary: append([]string(nil), DefaultVocabulary...),
		Output: OutputConfig{
			Dir: "results",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration.
// Order: defaults -> YAML file -> .env -> environment variables.
// An empty path falls back to DefaultFile when it exists.
func Load(path string) (*SimConfig, error) {
	return LoadWithEnv(path, DefaultEnvFile)
}

// LoadWithEnv is Load with an explicit dotenv file. A missing dotenv file
// is not an error.
func LoadWithEnv(path, envFile string) (*SimConfig, error) {
	config := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	if envFile != "" {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file on top of the
// defaults.
func LoadFromFile(path string) (*SimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	config.Embeddings.Path = expandEnvVars(config.Embeddings.Path)
	config.Output.Dir = expandEnvVars(config.Output.Dir)

	return config, nil
}

// Save writes the configuration as YAML.
func (c *SimConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *SimConfig) Validate() error {
	if c.Embeddings.Dim <= 0 {
		return fmt.Errorf("embeddings.dim must be positive, got %d", c.Embeddings.Dim)
	}
	if c.Population.Agents < 0 {
		return fmt.Errorf("population.agents must be non-negative, got %d", c.Population.Agents)
	}
	if err := c.AgentParams().Validate(); err != nil {
		return fmt.Errorf("population: %w", err)
	}
	if c.Culture.Enabled {
		if err := c.CultureGenerator().Validate(); err != nil {
			return fmt.Errorf("culture: %w", err)
		}
	}
	if err := c.GraphGenerator().Validate(); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	if err := c.DriverConfig().Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if len(c.Vocabulary) == 0 {
		return errors.New("vocabulary must not be empty")
	}

	validLevels := map[string]bool{"warn": true, "info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: warn, info, debug, trace, or empty for default)", c.Logging.Level)
	}
	return nil
}

// AgentParams returns the per-agent dynamics. Seed is left zero; the
// scenario fills it from the simulation seed.
func (c *SimConfig) AgentParams() agent.Params {
	return agent.Params{
		DecayRate:         c.Population.DecayRate,
		ReinforcementRate: c.Population.ReinforcementRate,
		TimelineRetention: c.Population.TimelineRetention,
	}
}

// CultureGenerator returns the profile generator settings.
func (c *SimConfig) CultureGenerator() culture.GeneratorConfig {
	return culture.GeneratorConfig{
		MinTaboo:      c.Culture.MinTaboo,
		MaxTaboo:      c.Culture.MaxTaboo,
		MinVirtue:     c.Culture.MinVirtue,
		MaxVirtue:     c.Culture.MaxVirtue,
		Suppression:   c.Culture.Suppression,
		Amplification: c.Culture.Amplification,
	}
}

// GraphGenerator returns the follow-graph generator settings.
func (c *SimConfig) GraphGenerator() socialgraph.GenerateConfig {
	return socialgraph.GenerateConfig{
		MinFollowing: c.Graph.MinFollowing,
		MaxFollowing: c.Graph.MaxFollowing,
	}
}

// DriverConfig returns the stepping configuration.
func (c *SimConfig) DriverConfig() simulation.Config {
	return simulation.Config{
		Steps:           c.Simulation.Steps,
		PostProbability: c.Simulation.PostProbability,
		Seed:            c.Simulation.Seed,
		Workers:         c.Simulation.Workers,
	}
}

// applyEnvOverrides applies HEADWINDS_* environment overrides. A value that
// does not parse is an error naming the variable.
func applyEnvOverrides(config *SimConfig) error {
	if v := os.Getenv("HEADWINDS_EMBEDDINGS_PATH"); v != "" {
		config.Embeddings.Path = v
	}
	if err := envInt("HEADWINDS_EMBEDDINGS_DIM", &config.Embeddings.Dim); err != nil {
		return err
	}
	if err := envInt("HEADWINDS_AGENTS", &config.Population.Agents); err != nil {
		return err
	}
	if err := envFloat("HEADWINDS_DECAY_RATE", &config.Population.DecayRate); err != nil {
		return err
	}
	if err := envFloat("HEADWINDS_REINFORCEMENT_RATE", &config.Population.ReinforcementRate); err != nil {
		return err
	}
	if err := envInt("HEADWINDS_STEPS", &config.Simulation.Steps); err != nil {
		return err
	}
	if err := envFloat("HEADWINDS_POST_PROBABILITY", &config.Simulation.PostProbability); err != nil {
		return err
	}
	if v := os.Getenv("HEADWINDS_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("HEADWINDS_SEED: %w", err)
		}
		config.Simulation.Seed = seed
	}
	if err := envInt("HEADWINDS_WORKERS", &config.Simulation.Workers); err != nil {
		return err
	}
	if v := os.Getenv("HEADWINDS_CULTURE_ENABLED"); v != "" {
		config.Culture.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("HEADWINDS_VOCABULARY"); v != "" {
		config.Vocabulary = splitList(v)
	}
	if v := os.Getenv("HEADWINDS_OUTPUT_DIR"); v != "" {
		config.Output.Dir = v
	}
	if v := os.Getenv("HEADWINDS_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	return nil
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = n
	return nil
}

func envFloat(name string, dst *float64) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = f
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, w := range strings.Split(s, ",") {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
