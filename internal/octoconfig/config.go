// Package octoconfig provides configuration management for the octoweave
// CLI, layered the way the teacher's service config is: defaults, then a
// YAML file, then environment overlay, via viper.
package octoconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all deployment-level configuration for an octoweave run.
// Core algorithm parameters (resolution, probabilities, policy choice) are
// also sourced here by default, but every one of them can be overridden by
// explicit CLI flags or by a caller's own struct when octoweave is used as
// a library — this file never gates what the core packages accept.
type Config struct {
	Grid   GridConfig   `mapstructure:"grid"`
	Ingest IngestConfig `mapstructure:"ingest"`
	Output OutputConfig `mapstructure:"output"`
	Sink   SinkConfig   `mapstructure:"sink"`
	Policy PolicyConfig `mapstructure:"policy"`
	Log    LogConfig    `mapstructure:"log"`
}

// GridConfig holds brick-partitioning configuration.
type GridConfig struct {
	N int `mapstructure:"n"` // bricks per axis; forest is N^3 trees
}

// IngestConfig holds per-chunk occupancy emission configuration.
type IngestConfig struct {
	Res         float64 `mapstructure:"res"`           // finest internal voxel resolution
	EmitRes     float64 `mapstructure:"emit_res"`      // emitted resolution; <=0 means Res
	ProbHit     float64 `mapstructure:"prob_hit"`
	ProbMiss    float64 `mapstructure:"prob_miss"`
	ClampMin    float64 `mapstructure:"clamp_min"`
	ClampMax    float64 `mapstructure:"clamp_max"`
	MaxRange    float64 `mapstructure:"max_range"`     // <=0 means unbounded
	MaxDepthCap int     `mapstructure:"max_depth_cap"` // <=0 means uncapped
	MaxWorkers  int     `mapstructure:"max_workers"`   // <=0 means GOMAXPROCS
}

// OutputConfig holds local output directory configuration.
type OutputConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// SinkConfig holds upload sink configuration for exported artifacts.
type SinkConfig struct {
	Type      string `mapstructure:"type"` // "local" or "cos"
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`
	Scheme    string `mapstructure:"scheme"`
	LocalPath string `mapstructure:"local_path"`
}

// PolicyConfig holds the default level-policy selection.
type PolicyConfig struct {
	Strategy  string    `mapstructure:"strategy"` // uniform, explicit, leaf_count_linear, leaf_count_quantiles, mean_prob_threshold, bands_by_count, bands_by_mean_prob
	Level     int       `mapstructure:"level"`    // used by "uniform"
	Levels    []int     `mapstructure:"levels"`   // used by "explicit"
	MinLevel  int       `mapstructure:"min_level"`
	MaxLevel  int       `mapstructure:"max_level"`
	QLo       float64   `mapstructure:"q_lo"`
	QHi       float64   `mapstructure:"q_hi"`
	Threshold float64   `mapstructure:"threshold"`
	Bands     []float64 `mapstructure:"bands"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path, falling back to
// defaults when no file is present.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("octoweave")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/octoweave")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("config file not found, using defaults")
		} else if os.IsNotExist(err) {
			fmt.Printf("config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("octoweave")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from raw bytes, useful for tests.
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("grid.n", 4)

	v.SetDefault("ingest.res", 0.1)
	v.SetDefault("ingest.emit_res", 0.0)
	v.SetDefault("ingest.prob_hit", 0.7)
	v.SetDefault("ingest.prob_miss", 0.4)
	v.SetDefault("ingest.clamp_min", 0.001)
	v.SetDefault("ingest.clamp_max", 0.999)
	v.SetDefault("ingest.max_range", 0.0)
	v.SetDefault("ingest.max_depth_cap", 0)
	v.SetDefault("ingest.max_workers", 0)

	v.SetDefault("output.data_dir", "./data")

	v.SetDefault("sink.type", "local")
	v.SetDefault("sink.local_path", "./output")

	v.SetDefault("policy.strategy", "uniform")
	v.SetDefault("policy.level", 0)
	v.SetDefault("policy.min_level", 0)
	v.SetDefault("policy.max_level", 0)
	v.SetDefault("policy.q_lo", 0.25)
	v.SetDefault("policy.q_hi", 0.75)
	v.SetDefault("policy.threshold", 0.5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Grid.N < 1 {
		return fmt.Errorf("grid.n must be at least 1")
	}
	if c.Ingest.Res <= 0 {
		return fmt.Errorf("ingest.res must be positive")
	}
	if c.Ingest.ProbHit <= 0 || c.Ingest.ProbHit >= 1 {
		return fmt.Errorf("ingest.prob_hit must be in (0,1)")
	}
	if c.Ingest.ProbMiss <= 0 || c.Ingest.ProbMiss >= 1 {
		return fmt.Errorf("ingest.prob_miss must be in (0,1)")
	}
	if c.Ingest.ClampMin < 0 || c.Ingest.ClampMax > 1 || c.Ingest.ClampMin >= c.Ingest.ClampMax {
		return fmt.Errorf("ingest.clamp_min/clamp_max must satisfy 0 <= clamp_min < clamp_max <= 1")
	}

	switch c.Sink.Type {
	case "local", "cos":
	default:
		return fmt.Errorf("unsupported sink type: %s", c.Sink.Type)
	}

	switch c.Policy.Strategy {
	case "uniform", "explicit", "leaf_count_linear", "leaf_count_quantiles",
		"mean_prob_threshold", "bands_by_count", "bands_by_mean_prob":
	default:
		return fmt.Errorf("unsupported policy strategy: %s", c.Policy.Strategy)
	}

	return nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	if c.Output.DataDir == "" {
		return nil
	}
	return os.MkdirAll(c.Output.DataDir, 0755)
}

// GetRunDir returns the run-specific output directory path.
func (c *Config) GetRunDir(runID string) string {
	return filepath.Join(c.Output.DataDir, runID)
}
