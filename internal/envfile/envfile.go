// Package envfile loads environment variables from .env files.
// Variables already set in the environment take precedence.
package envfile

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Loaded records which variables a file contributed.
type Loaded struct {
	Path string
	Keys []string
}

// Load reads a .env file and sets any variables not already in the environment.
// It returns the keys it set. A missing file yields no keys and no error.
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening env file %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // best-effort close on read-only file

	var keys []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := parseEnvLine(line)
		if !ok {
			continue
		}

		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return keys, fmt.Errorf("setting %s from %s: %w", key, path, err)
		}
		keys = append(keys, key)
	}
	if err := scanner.Err(); err != nil {
		return keys, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return keys, nil
}

// LoadAll loads each path in order, so earlier files win over later ones.
// Files that set nothing are left out of the result. The first read error
// stops loading.
func LoadAll(paths ...string) ([]Loaded, error) {
	var loaded []Loaded
	for _, path := range paths {
		if path == "" {
			continue
		}
		keys, err := Load(path)
		if len(keys) > 0 {
			loaded = append(loaded, Loaded{Path: path, Keys: keys})
		}
		if err != nil {
			return loaded, err
		}
	}
	return loaded, nil
}

// parseEnvLine extracts KEY=VALUE from a line.
// Quoted values keep their contents verbatim; unquoted values drop a
// trailing " # comment".
func parseEnvLine(line string) (key, value string, ok bool) {
	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}

	key = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(key), "export "))
	value = strings.TrimSpace(value)
	if key == "" {
		return "", "", false
	}

	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') {
		if end := strings.IndexByte(value[1:], value[0]); end >= 0 {
			return key, value[1 : end+1], true
		}
	}

	if i := strings.Index(value, " #"); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	return key, value, true
}
