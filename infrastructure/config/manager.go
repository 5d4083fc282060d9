package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Errors for config management
var (
	ErrUnknownKey   = errors.New("unknown config key")
	ErrInvalidValue = errors.New("invalid value")
)

// field binds a dotted key to a getter and setter on Config
type field struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringField(ptr func(c *Config) *string) field {
	return field{
		get: func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) error {
			*ptr(c) = v
			return nil
		},
	}
}

// secretField never returns the stored value
func secretField(ptr func(c *Config) *string) field {
	f := stringField(ptr)
	f.get = func(c *Config) string { return Mask(*ptr(c)) }
	return f
}

func durationField(ptr func(c *Config) *time.Duration) field {
	return field{
		get: func(c *Config) string { return ptr(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			*ptr(c) = d
			return nil
		},
	}
}

func intField(ptr func(c *Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*ptr(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*ptr(c) = n
			return nil
		},
	}
}

func boolField(ptr func(c *Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*ptr(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*ptr(c) = b
			return nil
		},
	}
}

var fields = map[string]field{
	"queue.backend":                 stringField(func(c *Config) *string { return &c.Queue.Backend }),
	"queue.name":                    stringField(func(c *Config) *string { return &c.Queue.Name }),
	"queue.url":                     stringField(func(c *Config) *string { return &c.Queue.URL }),
	"queue.region":                  stringField(func(c *Config) *string { return &c.Queue.Region }),
	"queue.endpoint":                stringField(func(c *Config) *string { return &c.Queue.Endpoint }),
	"queue.wait_time":               durationField(func(c *Config) *time.Duration { return &c.Queue.WaitTime }),
	"queue.poll_interval":           durationField(func(c *Config) *time.Duration { return &c.Queue.PollInterval }),
	"queue.max_messages":            intField(func(c *Config) *int { return &c.Queue.MaxMessages }),
	"queue.redis.addr":              stringField(func(c *Config) *string { return &c.Queue.Redis.Addr }),
	"queue.redis.password":          secretField(func(c *Config) *string { return &c.Queue.Redis.Password }),
	"queue.redis.db":                intField(func(c *Config) *int { return &c.Queue.Redis.DB }),
	"queue.redis.keep_in_flight":    boolField(func(c *Config) *bool { return &c.Queue.Redis.KeepInFlight }),
	"queue.pubsub.project":          stringField(func(c *Config) *string { return &c.Queue.PubSub.Project }),
	"queue.pubsub.credentials_file": stringField(func(c *Config) *string { return &c.Queue.PubSub.CredentialsFile }),
	"queue.pubsub.token_file":       stringField(func(c *Config) *string { return &c.Queue.PubSub.TokenFile }),
	"storage.backend":               stringField(func(c *Config) *string { return &c.Storage.Backend }),
	"storage.region":                stringField(func(c *Config) *string { return &c.Storage.Region }),
	"storage.endpoint":              stringField(func(c *Config) *string { return &c.Storage.Endpoint }),
	"storage.access_key":            stringField(func(c *Config) *string { return &c.Storage.AccessKey }),
	"storage.secret_key":            secretField(func(c *Config) *string { return &c.Storage.SecretKey }),
	"storage.use_ssl":               boolField(func(c *Config) *bool { return &c.Storage.UseSSL }),
	"storage.destination_prefix":    stringField(func(c *Config) *string { return &c.Storage.DestinationPrefix }),
	"storage.gcs.credentials_file":  stringField(func(c *Config) *string { return &c.Storage.GCS.CredentialsFile }),
	"storage.gcs.token_file":        stringField(func(c *Config) *string { return &c.Storage.GCS.TokenFile }),
	"transcode.ffmpeg_path":         stringField(func(c *Config) *string { return &c.Transcode.FFmpegPath }),
	"transcode.extension":           stringField(func(c *Config) *string { return &c.Transcode.Extension }),
	"transcode.quality":             stringField(func(c *Config) *string { return &c.Transcode.Quality }),
	"transcode.work_dir":            stringField(func(c *Config) *string { return &c.Transcode.WorkDir }),
	"transcode.keep_files":          boolField(func(c *Config) *bool { return &c.Transcode.KeepFiles }),
	"worker.stop_on_error":          boolField(func(c *Config) *bool { return &c.Worker.StopOnError }),
	"logging.level":                 stringField(func(c *Config) *string { return &c.Logging.Level }),
	"logging.format":                stringField(func(c *Config) *string { return &c.Logging.Format }),
	"logging.file":                  stringField(func(c *Config) *string { return &c.Logging.File }),
	"metrics.listen":                stringField(func(c *Config) *string { return &c.Metrics.Listen }),
}

// Keys returns every settable key in sorted order
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ConfigManager reads and updates single config entries by dotted key
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(cfg *Config, configPath string) *ConfigManager {
	return &ConfigManager{
		config:     cfg,
		configPath: configPath,
	}
}

// Get returns the current value of key
func (m *ConfigManager) Get(key string) (string, error) {
	f, ok := fields[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return f.get(m.config), nil
}

// Set parses value for key and saves the file. Cross-field checks are left
// to Validate since the environment may supply the rest.
func (m *ConfigManager) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	if err := f.set(m.config, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%w for %s: %v", ErrInvalidValue, key, err)
	}
	return Save(m.config, m.configPath)
}
