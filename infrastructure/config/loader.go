// Package config loads layered YAML configuration with environment overrides.
//
// Files are merged in order: config/default.yaml, config/$APP_RUN_MODE.yaml,
// config/local.yaml. Missing files are skipped. After merging, environment
// variables with the APP_ prefix override individual keys, with __ separating
// nested sections (APP_DB__URL overrides db.url).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix    = "APP_"
	envSeparator = "__"
)

// Load reads the layered configuration into cfg.
func Load(cfg any) error {
	return LoadDir("config", cfg)
}

// LoadDir is Load with an explicit configuration directory, for tests.
func LoadDir(dir string, cfg any) error {
	// .env is optional bootstrap for local runs.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	runMode := os.Getenv("APP_RUN_MODE")
	if runMode == "" {
		runMode = "dev"
	}

	merged := map[string]any{}
	for _, name := range []string{"default", runMode, "local"} {
		layer, err := readLayer(filepath.Join(dir, name+".yaml"))
		if err != nil {
			return fmt.Errorf("read config layer %q: %w", name, err)
		}
		mergeMaps(merged, layer)
	}

	applyEnv(merged, os.Environ())

	raw, err := yaml.Marshal(merged)
	if err != nil {
		return fmt.Errorf("remarshal merged config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func readLayer(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	layer := map[string]any{}
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return nil, err
	}
	return layer, nil
}

func mergeMaps(dst, src map[string]any) {
	for key, value := range src {
		if srcMap, ok := value.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				mergeMaps(dstMap, srcMap)
				continue
			}
		}
		dst[key] = value
	}
}

func applyEnv(dst map[string]any, environ []string) {
	for _, entry := range environ {
		name, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(name, envPrefix) {
			continue
		}
		path := strings.Split(strings.TrimPrefix(name, envPrefix), envSeparator)
		setPath(dst, path, value)
	}
}

func setPath(dst map[string]any, path []string, value string) {
	key := strings.ToLower(path[0])
	if len(path) == 1 {
		// Values are re-parsed by yaml so numbers and booleans keep their type.
		var parsed any
		if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
			parsed = value
		}
		dst[key] = parsed
		return
	}
	next, ok := dst[key].(map[string]any)
	if !ok {
		next = map[string]any{}
		dst[key] = next
	}
	setPath(next, path[1:], value)
}
