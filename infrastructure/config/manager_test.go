package config

import (
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func TestConfigManager_GetSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	mgr := NewConfigManager(cfg, path)

	if err := mgr.Set("queue.name", "uploads"); err != nil {
		t.Fatalf("Set() unexpected error: %v", err)
	}
	if err := mgr.Set("Queue.Poll_Interval", "5m"); err != nil {
		t.Fatalf("Set() unexpected error: %v", err)
	}
	if err := mgr.Set("worker.stop_on_error", "true"); err != nil {
		t.Fatalf("Set() unexpected error: %v", err)
	}

	got, err := mgr.Get("queue.poll_interval")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if got != "5m0s" {
		t.Errorf("Get(queue.poll_interval) = %q, want 5m0s", got)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if loaded.Queue.Name != "uploads" || loaded.Queue.PollInterval != 5*time.Minute || !loaded.Worker.StopOnError {
		t.Errorf("saved config = %+v", loaded)
	}
}

func TestConfigManager_Credentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	mgr := NewConfigManager(Default(), path)

	for key, value := range map[string]string{
		"storage.access_key":     "minioadmin",
		"storage.secret_key":     "supersecret",
		"queue.redis.password":   "hunter2",
		"storage.gcs.token_file": "gcs-token.json",
	} {
		if err := mgr.Set(key, value); err != nil {
			t.Fatalf("Set(%s) unexpected error: %v", key, err)
		}
	}

	tests := []struct {
		key  string
		want string
	}{
		{"storage.access_key", "minioadmin"},
		{"storage.secret_key", "********"},
		{"queue.redis.password", "********"},
		{"storage.gcs.token_file", "gcs-token.json"},
	}
	for _, tt := range tests {
		got, err := mgr.Get(tt.key)
		if err != nil {
			t.Fatalf("Get(%s) unexpected error: %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("Get(%s) = %q, want %q", tt.key, got, tt.want)
		}
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if loaded.Storage.SecretKey != "supersecret" {
		t.Errorf("saved secret_key = %q, want the real value", loaded.Storage.SecretKey)
	}
	if loaded.Storage.AccessKey != "minioadmin" {
		t.Errorf("saved access_key = %q, want minioadmin", loaded.Storage.AccessKey)
	}

	empty, err := NewConfigManager(Default(), "").Get("storage.secret_key")
	if err != nil || empty != "" {
		t.Errorf("Get(storage.secret_key) on empty = %q, %v; want empty", empty, err)
	}
}

func TestConfig_GCSTokenFile(t *testing.T) {
	cfg := Default()
	if got := cfg.GCSTokenFile(); got != "" {
		t.Errorf("GCSTokenFile() = %q, want empty", got)
	}

	cfg.Queue.PubSub.TokenFile = "token.json"
	if got := cfg.GCSTokenFile(); got != "token.json" {
		t.Errorf("GCSTokenFile() = %q, want the Pub/Sub token", got)
	}

	cfg.Storage.GCS.TokenFile = "storage-token.json"
	if got := cfg.GCSTokenFile(); got != "storage-token.json" {
		t.Errorf("GCSTokenFile() = %q, want storage-token.json", got)
	}
}

func TestConfigManager_Errors(t *testing.T) {
	mgr := NewConfigManager(Default(), filepath.Join(t.TempDir(), "config.yaml"))

	tests := []struct {
		name    string
		key     string
		value   string
		wantErr error
	}{
		{"unknown key", "queue.colour", "blue", ErrUnknownKey},
		{"bad duration", "queue.wait_time", "soon", ErrInvalidValue},
		{"bad int", "queue.max_messages", "ten", ErrInvalidValue},
		{"bad bool", "transcode.keep_files", "maybe", ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mgr.Set(tt.key, tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Set() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := mgr.Get("nope"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Get() error = %v, want ErrUnknownKey", err)
	}
}

func TestKeys_SortedAndGettable(t *testing.T) {
	keys := Keys()
	if !sort.StringsAreSorted(keys) {
		t.Error("Keys() should be sorted")
	}

	mgr := NewConfigManager(Default(), "")
	for _, k := range keys {
		if _, err := mgr.Get(k); err != nil {
			t.Errorf("Get(%q) error: %v", k, err)
		}
	}
}
