package skilltax

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sosodev/duration"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds secrets read from the environment
var Config struct {
	OpenAIAPIKey          string
	GeminiAPIKey          string
	AzureOpenAIEndpoint   string
	AzureOpenAIAPIKey     string
	AzureOpenAIDeployment string
	S3AccessKeyID         string
	S3SecretAccessKey     string
}

// Pipeline holds the settings used by the stage commands
var Pipeline = DefaultSettings()

// Settings configures every pipeline stage.
type Settings struct {
	DBPath    string `mapstructure:"db_path" yaml:"db_path"`
	SkillsCSV string `mapstructure:"skills_csv" yaml:"skills_csv"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	// MinWords is the smallest description length, in words, that is kept.
	MinWords int `mapstructure:"min_words" yaml:"min_words"`

	Log        LogConfig          `mapstructure:"log" yaml:"log"`
	Embedding  EmbeddingSettings  `mapstructure:"embedding" yaml:"embedding"`
	Clustering ClusteringSettings `mapstructure:"clustering" yaml:"clustering"`
	Naming     NamingConfig       `mapstructure:"naming" yaml:"naming"`
	Upload     UploadSettings     `mapstructure:"upload" yaml:"upload"`
}

type EmbeddingSettings struct {
	Provider          string  `mapstructure:"provider" yaml:"provider"` // "openai" or "gemini"
	Model             string  `mapstructure:"model" yaml:"model"`
	BatchSize         int     `mapstructure:"batch_size" yaml:"batch_size"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	CacheSize         int     `mapstructure:"cache_size" yaml:"cache_size"`
}

type ClusteringSettings struct {
	ClusterConfig `mapstructure:",squash" yaml:",inline"`

	SubClusterDistances map[int]float64 `mapstructure:"sub_cluster_distances" yaml:"sub_cluster_distances"`
	DefaultSubDistance  float64         `mapstructure:"default_sub_distance" yaml:"default_sub_distance"`
	// MaxRuntime is an ISO-8601 duration such as PT30M. Empty means no limit.
	MaxRuntime string `mapstructure:"max_runtime" yaml:"max_runtime"`
}

// Thresholds returns the per-class sub-clustering distances.
func (c ClusteringSettings) Thresholds() ClassThresholds {
	return ClassThresholds{Default: c.DefaultSubDistance, PerClass: c.SubClusterDistances}
}

// Runtime parses MaxRuntime.
func (c ClusteringSettings) Runtime() (time.Duration, error) {
	if c.MaxRuntime == "" {
		return 0, nil
	}
	d, err := duration.Parse(c.MaxRuntime)
	if err != nil {
		return 0, fmt.Errorf("max_runtime %q: %v: %w", c.MaxRuntime, err, ErrConfiguration)
	}
	return d.ToTimeDuration(), nil
}

type UploadSettings struct {
	Bucket   string `mapstructure:"bucket" yaml:"bucket"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
	Region   string `mapstructure:"region" yaml:"region"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// DefaultSettings returns the settings used when no config file is given.
func DefaultSettings() Settings {
	return Settings{
		DBPath:    "skills.db",
		SkillsCSV: "inputs/data/skills_en.csv",
		OutputDir: "outputs",
		MinWords:  3,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Embedding: EmbeddingSettings{
			Provider:          "openai",
			Model:             "text-embedding-3-small",
			BatchSize:         100,
			RequestsPerSecond: 5,
			CacheSize:         10000,
		},
		Clustering: ClusteringSettings{
			ClusterConfig: ClusterConfig{
				DistanceThreshold: 3,
				Affinity:          AffinityEuclidean,
				Linkage:           LinkageWard,
				MaxItems:          20000,
			},
			DefaultSubDistance: 1.5,
			MaxRuntime:         "PT1H",
		},
		Naming: DefaultNamingConfig(),
		Upload: UploadSettings{
			Prefix: "skills-taxonomy",
			Region: "us-east-1",
		},
	}
}

// LoadSettings layers the defaults, the config file and SKILLTAX_* environment
// variables. An empty path reads ./skilltax.yaml when it exists.
func LoadSettings(path string) (Settings, error) {
	v := viper.New()
	defaults, err := yaml.Marshal(DefaultSettings())
	if err != nil {
		return Settings{}, fmt.Errorf("failed to marshal default settings: %w", err)
	}
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Settings{}, fmt.Errorf("failed to read default settings: %w", err)
	}

	if path == "" {
		if _, err := os.Stat("skilltax.yaml"); err == nil {
			path = "skilltax.yaml"
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("SKILLTAX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the settings that can be checked before any data is loaded.
func (s Settings) Validate() error {
	if err := s.Clustering.ClusterConfig.Validate(); err != nil {
		return fmt.Errorf("clustering: %w", err)
	}
	if _, err := s.Clustering.Runtime(); err != nil {
		return fmt.Errorf("clustering: %w", err)
	}
	if err := s.Naming.Validate(); err != nil {
		return fmt.Errorf("naming: %w", err)
	}
	switch s.Embedding.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown embedding provider %q: %w", s.Embedding.Provider, ErrConfiguration)
	}
	if s.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding batch_size must be positive: %w", ErrConfiguration)
	}
	return nil
}

var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage skilltax configuration",
	Long: `Manage skilltax configuration.

Configuration hierarchy (highest to lowest priority):
1. Environment variables (SKILLTAX_*, e.g. SKILLTAX_CLUSTERING_DISTANCE_THRESHOLD)
2. Config file (--config, default ./skilltax.yaml)
3. Defaults

Clustering stops either at clustering.n_clusters or at
clustering.distance_threshold, never both. The default is a distance
threshold of 3, so switching to a fixed cluster count also needs the
threshold set to 0:

  SKILLTAX_CLUSTERING_N_CLUSTERS=20 SKILLTAX_CLUSTERING_DISTANCE_THRESHOLD=0`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(Pipeline)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "skilltax.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		data, err := yaml.Marshal(DefaultSettings())
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		header := "# skilltax configuration\n" +
			"# Secrets (OPENAI_API_KEY, GEMINI_API_KEY, AZURE_OPENAI_*, S3_*) belong in .env\n" +
			"# Set either clustering.n_clusters or clustering.distance_threshold; the other must be 0.\n\n"
		if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
			return fmt.Errorf("error writing config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created default configuration: %s\n", path)
		return nil
	},
}

func init() {
	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configInitCmd)
}
