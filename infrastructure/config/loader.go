package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the config file is looked up when --config is not given
const DefaultPath = "config/config.yaml"

// Queue and storage backends
const (
	BackendSQS    = "sqs"
	BackendRedis  = "redis"
	BackendPubSub = "pubsub"

	BackendS3    = "s3"
	BackendMinio = "minio"
	BackendGCS   = "gcs"
)

// Config represents the complete application configuration
type Config struct {
	Queue     QueueConfig     `yaml:"queue"`
	Storage   StorageConfig   `yaml:"storage"`
	Transcode TranscodeConfig `yaml:"transcode"`
	Worker    WorkerConfig    `yaml:"worker"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// QueueConfig selects and configures the notification queue
type QueueConfig struct {
	Backend      string        `yaml:"backend"`
	Name         string        `yaml:"name"`
	URL          string        `yaml:"url,omitempty"`
	Region       string        `yaml:"region,omitempty"`
	Endpoint     string        `yaml:"endpoint,omitempty"`
	WaitTime     time.Duration `yaml:"wait_time"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxMessages  int           `yaml:"max_messages"`
	Redis        RedisConfig   `yaml:"redis,omitempty"`
	PubSub       PubSubConfig  `yaml:"pubsub,omitempty"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`

	// KeepInFlight leaves the processing list alone at startup. Set it when
	// several workers share one list, since a starting worker would otherwise
	// requeue messages another worker is still handling.
	KeepInFlight bool `yaml:"keep_in_flight,omitempty"`
}

// PubSubConfig contains Google Pub/Sub settings
type PubSubConfig struct {
	Project         string `yaml:"project,omitempty"`
	CredentialsFile string `yaml:"credentials_file,omitempty"`
	TokenFile       string `yaml:"token_file,omitempty"`
}

// StorageConfig selects and configures the object store
type StorageConfig struct {
	Backend           string    `yaml:"backend"`
	Region            string    `yaml:"region,omitempty"`
	Endpoint          string    `yaml:"endpoint,omitempty"`
	AccessKey         string    `yaml:"access_key,omitempty"`
	SecretKey         string    `yaml:"secret_key,omitempty"`
	UseSSL            bool      `yaml:"use_ssl"`
	DestinationPrefix string    `yaml:"destination_prefix"`
	GCS               GCSConfig `yaml:"gcs,omitempty"`
}

// GCSConfig contains Google Cloud Storage settings
type GCSConfig struct {
	CredentialsFile string `yaml:"credentials_file,omitempty"`
	TokenFile       string `yaml:"token_file,omitempty"`
}

// TranscodeConfig contains ffmpeg settings
type TranscodeConfig struct {
	FFmpegPath string `yaml:"ffmpeg_path"`
	Extension  string `yaml:"extension"`
	Quality    string `yaml:"quality"`
	WorkDir    string `yaml:"work_dir,omitempty"`
	KeepFiles  bool   `yaml:"keep_files"`
}

// WorkerConfig controls the poll loop
type WorkerConfig struct {
	StopOnError bool `yaml:"stop_on_error"`
}

// LoggingConfig contains log settings
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}

// MetricsConfig contains the metrics listener address; empty disables it
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	return &Config{
		Queue: QueueConfig{
			Backend:      BackendSQS,
			WaitTime:     20 * time.Second,
			PollInterval: 600 * time.Second,
			MaxMessages:  10,
		},
		Storage: StorageConfig{
			Backend:           BackendS3,
			UseSSL:            true,
			DestinationPrefix: "audio/",
		},
		Transcode: TranscodeConfig{
			FFmpegPath: "ffmpeg",
			Extension:  "mp3",
			Quality:    "0",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads the YAML file at path over the defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadWithEnv loads the file at path, then a .env file from the working
// directory (never overriding the real environment), then applies the
// environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	set("QUEUE_NAME", &c.Queue.Name)
	set("QUEUE_URL", &c.Queue.URL)
	set("QUEUE_BACKEND", &c.Queue.Backend)
	set("STORAGE_BACKEND", &c.Storage.Backend)
	set("AWS_REGION", &c.Queue.Region)
	set("AWS_REGION", &c.Storage.Region)
	set("AWS_ENDPOINT_URL", &c.Queue.Endpoint)
	set("AWS_ENDPOINT_URL", &c.Storage.Endpoint)
	set("REDIS_ADDR", &c.Queue.Redis.Addr)
	set("FFMPEG_PATH", &c.Transcode.FFmpegPath)
	set("WORK_DIR", &c.Transcode.WorkDir)
	set("LOG_LEVEL", &c.Logging.Level)
	set("METRICS_LISTEN", &c.Metrics.Listen)
}

// Validate checks backend names, required names and durations
func (c *Config) Validate() error {
	var errs []error

	switch c.Queue.Backend {
	case BackendSQS:
	case BackendRedis:
		if c.Queue.Redis.Addr == "" {
			errs = append(errs, errors.New("queue.redis.addr is required for the redis backend"))
		}
	case BackendPubSub:
		if c.Queue.PubSub.Project == "" && !strings.HasPrefix(c.Queue.Name, "projects/") {
			errs = append(errs, errors.New("queue.pubsub.project is required for the pubsub backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown queue backend %q (use sqs, redis or pubsub)", c.Queue.Backend))
	}

	if c.Queue.Name == "" && c.Queue.URL == "" {
		errs = append(errs, errors.New("queue name is required (set QUEUE_NAME or queue.name)"))
	}
	if c.Queue.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("queue.poll_interval must be positive, got %s", c.Queue.PollInterval))
	}
	if c.Queue.WaitTime < 0 {
		errs = append(errs, fmt.Errorf("queue.wait_time must not be negative, got %s", c.Queue.WaitTime))
	}
	if c.Queue.MaxMessages < 1 || c.Queue.MaxMessages > 10 {
		errs = append(errs, fmt.Errorf("queue.max_messages must be between 1 and 10, got %d", c.Queue.MaxMessages))
	}

	switch c.Storage.Backend {
	case BackendS3, BackendGCS:
	case BackendMinio:
		if c.Storage.Endpoint == "" {
			errs = append(errs, errors.New("storage.endpoint is required for the minio backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q (use s3, minio or gcs)", c.Storage.Backend))
	}

	if strings.Trim(c.Storage.DestinationPrefix, "/") == "" {
		errs = append(errs, errors.New("storage.destination_prefix must not be empty"))
	}
	if c.Transcode.FFmpegPath == "" {
		errs = append(errs, errors.New("transcode.ffmpeg_path must not be empty"))
	}
	if strings.Trim(c.Transcode.Extension, ".") == "" {
		errs = append(errs, errors.New("transcode.extension must not be empty"))
	}

	return errors.Join(errs...)
}

// GCSTokenFile returns the saved OAuth token used by the Cloud Storage
// backend, falling back to the Pub/Sub token written by the auth command
func (c *Config) GCSTokenFile() string {
	if c.Storage.GCS.TokenFile != "" {
		return c.Storage.GCS.TokenFile
	}
	return c.Queue.PubSub.TokenFile
}

// Mask hides a secret for display
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
