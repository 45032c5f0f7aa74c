// Package config loads and validates worker configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob the worker reads, loaded once at startup.
type Config struct {
	ProjectID string          `mapstructure:"project_id"`
	JobID     string          `mapstructure:"job_id"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Run       RunConfig       `mapstructure:"run"`
	Ops       OpsConfig       `mapstructure:"ops"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// JobsConfig selects and configures the job record store.
type JobsConfig struct {
	Provider  string          `mapstructure:"provider"`
	Firestore FirestoreConfig `mapstructure:"firestore"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
}

// FirestoreConfig names the collection holding job records.
type FirestoreConfig struct {
	Collection string `mapstructure:"collection"`
}

// PostgresConfig points the job store at a relational table.
type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// StorageConfig selects and configures the blob storage provider.
type StorageConfig struct {
	Provider string      `mapstructure:"provider"`
	S3       S3Config    `mapstructure:"s3"`
	Local    LocalConfig `mapstructure:"local"`
}

// S3Config carries addressing and credentials for S3-compatible stores.
// Endpoint and the static credentials are for MinIO-style deployments;
// leave them empty to use the ambient AWS credential chain.
type S3Config struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// LocalConfig roots the filesystem storage provider.
type LocalConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// PublisherConfig selects and configures the completion-event publisher.
type PublisherConfig struct {
	Provider string       `mapstructure:"provider"`
	PubSub   PubSubConfig `mapstructure:"pubsub"`
	Kafka    KafkaConfig  `mapstructure:"kafka"`
}

// PubSubConfig names the topic completion events are published to.
type PubSubConfig struct {
	TopicID string `mapstructure:"topic_id"`
}

// KafkaConfig addresses the brokers and topic for completion events.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// CrawlerConfig governs fetch pacing and limits.
type CrawlerConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	Delay          time.Duration `mapstructure:"delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// RunConfig bounds the whole crawl.
type RunConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// OpsConfig controls the optional health/metrics listener.
type OpsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load builds a Config from defaults, an optional YAML file, and the
// environment. CRAWLWORKER_-prefixed variables override every key, and
// the bare PROJECT_ID and JOB_ID the job platform injects are bound too.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLWORKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("project_id", "CRAWLWORKER_PROJECT_ID", "PROJECT_ID"); err != nil {
		return Config{}, fmt.Errorf("bind project_id: %w", err)
	}
	if err := v.BindEnv("job_id", "CRAWLWORKER_JOB_ID", "JOB_ID"); err != nil {
		return Config{}, fmt.Errorf("bind job_id: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every key with Viper. Keys without a meaningful
// default get an empty value so environment overrides still reach them
// during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)

	v.SetDefault("jobs.provider", "firestore")
	v.SetDefault("jobs.firestore.collection", "jobs")
	v.SetDefault("jobs.postgres.dsn", "")
	v.SetDefault("jobs.postgres.table", "jobs")

	v.SetDefault("storage.provider", "gcs")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.use_path_style", false)
	v.SetDefault("storage.local.base_dir", "")

	v.SetDefault("publisher.provider", "noop")
	v.SetDefault("publisher.pubsub.topic_id", "")
	v.SetDefault("publisher.kafka.brokers", []string{})
	v.SetDefault("publisher.kafka.topic", "")

	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.delay", "0s")
	v.SetDefault("crawler.request_timeout", "30s")
	v.SetDefault("crawler.user_agent", "kbsearch-crawl-worker/1.0")
	v.SetDefault("crawler.max_body_bytes", 0)

	v.SetDefault("run.timeout", "10m")

	v.SetDefault("ops.enabled", false)
	v.SetDefault("ops.addr", ":9090")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Jobs.Provider {
	case "firestore", "postgres", "memory":
	default:
		return fmt.Errorf("unknown jobs.provider: %s", c.Jobs.Provider)
	}
	switch c.Storage.Provider {
	case "gcs", "s3", "local", "memory":
	default:
		return fmt.Errorf("unknown storage.provider: %s", c.Storage.Provider)
	}
	switch c.Publisher.Provider {
	case "pubsub", "kafka", "noop", "memory":
	default:
		return fmt.Errorf("unknown publisher.provider: %s", c.Publisher.Provider)
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.Delay < 0 {
		return fmt.Errorf("crawler.delay must be >= 0")
	}
	if c.Crawler.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if c.Crawler.MaxBodyBytes < 0 {
		return fmt.Errorf("crawler.max_body_bytes must be >= 0")
	}
	if c.Run.Timeout <= 0 {
		return fmt.Errorf("run.timeout must be > 0")
	}
	if c.Ops.Enabled && c.Ops.Addr == "" {
		return fmt.Errorf("ops.addr must be set when ops is enabled")
	}
	return nil
}
