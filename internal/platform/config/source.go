package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// source answers key lookups from lookups searched in order: explicit map,
// process environment, .env file. Values that fail to parse are remembered so
// Load can report them alongside missing fields.
type source struct {
	lookups   []func(string) (string, bool)
	malformed []string
}

func fromMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func (s *source) raw(key string) (string, bool) {
	for _, lookup := range s.lookups {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func (s *source) str(key, def string) string {
	if v, ok := s.raw(key); ok {
		return v
	}
	return def
}

func (s *source) lower(key, def string) string {
	return strings.ToLower(s.str(key, def))
}

func (s *source) duration(key string, def time.Duration) time.Duration {
	v, ok := s.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		s.malformed = append(s.malformed, key)
		return def
	}
	return d
}

func (s *source) integer(key string, def int64) int64 {
	v, ok := s.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		s.malformed = append(s.malformed, key)
		return def
	}
	return n
}

func (s *source) flag(key string, def bool) bool {
	v, ok := s.raw(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	s.malformed = append(s.malformed, key)
	return def
}

// list splits a comma separated value, dropping blanks and lower-casing.
func (s *source) list(key string) []string {
	v, _ := s.raw(key)
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// readDotEnv parses KEY=VALUE lines, tolerating "export " prefixes and
// quoted values. A missing file is an empty layer.
func readDotEnv(path string) (map[string]string, error) {
	values := map[string]string{}
	if path == "" {
		return values, nil
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("config: %s:%d: expected KEY=VALUE", path, n)
		}
		values[key] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}
