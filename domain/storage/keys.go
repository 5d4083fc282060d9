package storage

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// DefaultDestinationPrefix is where transcoded audio is written
const DefaultDestinationPrefix = "audio/"

// ErrInvalidKey is returned for object keys that cannot name a local file
var ErrInvalidKey = errors.New("invalid object key")

// LocalName returns the file name a downloaded object is stored under.
// Directory components of the key are discarded.
func LocalName(key string) (string, error) {
	if key == "" || strings.HasSuffix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	name := path.Base(key)
	if name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return name, nil
}

// NormalizePrefix makes sure a non-empty prefix ends with a slash
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// DestinationKey returns the key a local file is uploaded under
func DestinationKey(prefix, localPath string) string {
	return NormalizePrefix(prefix) + filepath.Base(localPath)
}

// UnderPrefix reports whether key lives below prefix
func UnderPrefix(prefix, key string) bool {
	prefix = NormalizePrefix(prefix)
	return prefix != "" && strings.HasPrefix(key, prefix)
}
