package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Model      ModelConfig      `yaml:"model" mapstructure:"model"`
	Registry   RegistryConfig   `yaml:"registry" mapstructure:"registry"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend holding patient records and
// the run ledger.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SourceConfig names the collection the pipeline ingests.
type SourceConfig struct {
	Database   string `yaml:"database" mapstructure:"database"`
	Collection string `yaml:"collection" mapstructure:"collection"`
}

// PipelineConfig configures the training stages.
type PipelineConfig struct {
	ArtifactRoot         string  `yaml:"artifact_root" mapstructure:"artifact_root"`
	TestSize             float64 `yaml:"test_size" mapstructure:"test_size"`
	RandomSeed           uint64  `yaml:"random_seed" mapstructure:"random_seed"`
	MissingThreshold     float64 `yaml:"missing_threshold" mapstructure:"missing_threshold"`
	BaseFilePath         string  `yaml:"base_file_path" mapstructure:"base_file_path"`
	DriftPValue          float64 `yaml:"drift_p_value" mapstructure:"drift_p_value"`
	KNNNeighbors         int     `yaml:"knn_neighbors" mapstructure:"knn_neighbors"`
	ExpectedScore        float64 `yaml:"expected_score" mapstructure:"expected_score"`
	OverfittingThreshold float64 `yaml:"overfitting_threshold" mapstructure:"overfitting_threshold"`
}

// ModelConfig holds the classifier hyperparameters.
type ModelConfig struct {
	NumClass            int     `yaml:"num_class" mapstructure:"num_class"`
	NEstimators         int     `yaml:"n_estimators" mapstructure:"n_estimators"`
	MaxDepth            int     `yaml:"max_depth" mapstructure:"max_depth"`
	LearningRate        float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
	Lambda              float64 `yaml:"lambda" mapstructure:"lambda"`
	MinChildWeight      float64 `yaml:"min_child_weight" mapstructure:"min_child_weight"`
	EarlyStoppingRounds int     `yaml:"early_stopping_rounds" mapstructure:"early_stopping_rounds"`
}

// RegistryConfig configures the model registry and its optional mirror.
type RegistryConfig struct {
	Root   string       `yaml:"root" mapstructure:"root"`
	Mirror MirrorConfig `yaml:"mirror" mapstructure:"mirror"`
}

// MirrorConfig holds S3-compatible object storage settings. The mirror is
// disabled when Endpoint is empty.
type MirrorConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Region    string `yaml:"region" mapstructure:"region"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// Enabled reports whether a mirror endpoint is configured.
func (m MirrorConfig) Enabled() bool {
	return m.Endpoint != ""
}

// ServerConfig configures the prediction server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst          int      `yaml:"burst" mapstructure:"burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	Watch          bool     `yaml:"watch" mapstructure:"watch"`
}

// MonitoringConfig configures run health checks and alerting.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	MinTestF1            float64 `yaml:"min_test_f1" mapstructure:"min_test_f1"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("THYROID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "thyroid.db")
	v.SetDefault("source.database", "thyroid-deases")
	v.SetDefault("source.collection", "thyroid")
	v.SetDefault("pipeline.artifact_root", "artifact")
	v.SetDefault("pipeline.test_size", 0.2)
	v.SetDefault("pipeline.random_seed", 42)
	v.SetDefault("pipeline.missing_threshold", 0.25)
	v.SetDefault("pipeline.base_file_path", "hypothyroid_cleaned.csv")
	v.SetDefault("pipeline.drift_p_value", 0.05)
	v.SetDefault("pipeline.knn_neighbors", 3)
	v.SetDefault("pipeline.expected_score", 0.7)
	v.SetDefault("pipeline.overfitting_threshold", 0.1)
	v.SetDefault("model.num_class", 4)
	v.SetDefault("model.n_estimators", 100)
	v.SetDefault("model.max_depth", 6)
	v.SetDefault("model.learning_rate", 0.3)
	v.SetDefault("model.lambda", 1.0)
	v.SetDefault("model.min_child_weight", 1.0)
	v.SetDefault("model.early_stopping_rounds", 15)
	v.SetDefault("registry.root", "saved_models")
	v.SetDefault("registry.mirror.bucket", "thyroid-models")
	v.SetDefault("registry.mirror.region", "us-east-1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.burst", 10)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.min_test_f1", 0.7)
	v.SetDefault("monitoring.lookback_window_hours", 168)
	v.SetDefault("monitoring.check_interval_secs", 3600)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is one of "train",
// "serve" or "dump".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	switch mode {
	case "train":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
		if c.Pipeline.TestSize <= 0 || c.Pipeline.TestSize >= 1 {
			errs = append(errs, "pipeline.test_size must be between 0 and 1")
		}
		if c.Pipeline.MissingThreshold < 0 || c.Pipeline.MissingThreshold > 1 {
			errs = append(errs, "pipeline.missing_threshold must be between 0 and 1")
		}
		if c.Pipeline.KNNNeighbors < 1 {
			errs = append(errs, "pipeline.knn_neighbors must be > 0")
		}
		if c.Pipeline.BaseFilePath == "" {
			errs = append(errs, "pipeline.base_file_path is required")
		}
		if c.Model.NumClass < 2 {
			errs = append(errs, "model.num_class must be >= 2")
		}
		if c.Registry.Mirror.Enabled() && c.Registry.Mirror.Bucket == "" {
			errs = append(errs, "registry.mirror.bucket is required when a mirror endpoint is set")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server.rate_limit must be >= 0")
		}
	case "dump":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
		if c.Source.Collection == "" {
			errs = append(errs, "source.collection is required")
		}
	case "monitor":
		if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
			errs = append(errs, "monitoring.failure_rate_threshold must be between 0 and 1")
		}
		if c.Monitoring.MinTestF1 < 0 || c.Monitoring.MinTestF1 > 1 {
			errs = append(errs, "monitoring.min_test_f1 must be between 0 and 1")
		}
		if c.Monitoring.LookbackWindowHours < 0 {
			errs = append(errs, "monitoring.lookback_window_hours must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
