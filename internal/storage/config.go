package storage

import (
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// GetString returns config[key], or def when the key is absent or
// blank. Blank is treated as unset so partial config files can rely on
// backend defaults.
func GetString(config map[string]string, key, def string) string {
	if v := config[key]; v != "" {
		return v
	}
	return def
}

// GetBool parses config[key] as a boolean. Besides strconv's forms it
// accepts yes/no. Absent or blank keys return def.
func GetBool(config map[string]string, key string, def bool) (bool, error) {
	v := config[key]
	if v == "" {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &ConfigError{Field: key, Value: v, Message: "must be a boolean (true/false, 1/0, yes/no)", Cause: err}
	}
	return b, nil
}

// GetInt parses config[key] as an integer. Absent or blank keys return
// def.
func GetInt(config map[string]string, key string, def int) (int, error) {
	v := config[key]
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ConfigError{Field: key, Value: v, Message: "must be an integer", Cause: err}
	}
	return n, nil
}

// ExpandPath resolves a leading ~/ against the user's home directory
// and cleans the result. Returns the input untouched when the home
// directory cannot be determined.
func ExpandPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
		return path
	}
	return filepath.Clean(path)
}

// MergeConfig overlays overrides onto defaults without mutating either.
func MergeConfig(defaults, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(defaults)+len(overrides))
	maps.Copy(merged, defaults)
	maps.Copy(merged, overrides)
	return merged
}
