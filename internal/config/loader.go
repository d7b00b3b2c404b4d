package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment knobs for the loader itself.
const (
	envPrefix     = "NBALAKE_"
	configFileEnv = "NBALAKE_CONFIG"
	dotenvFileEnv = "NBALAKE_DOTENV"
	defaultDotenv = ".env"
)

// defaultRegionEnv ranks below AWS_REGION, as in the AWS SDK.
var defaultRegionEnv = map[string]string{ //nolint:gochecknoglobals // static lookup table
	"AWS_DEFAULT_REGION": "region",
}

// legacyEnv maps the variable names used by existing deployments onto
// config keys.
var legacyEnv = map[string]string{ //nolint:gochecknoglobals // static lookup table
	"AWS_BUCKET_NAME":     "bucket_name",
	"SPORTS_DATA_API_KEY": "api_key",
	"NBA_ENDPOINT":        "api_endpoint",
	"AWS_REGION":          "region",
}

// envLayers map variable names to config keys, lowest precedence first.
// Each layer is a separate load; a later layer overrides an earlier one.
var envLayers = []func(string) string{ //nolint:gochecknoglobals // static layer order
	lookup(defaultRegionEnv),
	lookup(legacyEnv),
	prefixedKey,
}

// Load builds a Config by layering defaults, optional files, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. YAML file if NBALAKE_CONFIG is set
//  3. dotenv file: NBALAKE_DOTENV, or ./.env when present
//  4. env: AWS_DEFAULT_REGION, then legacy names (AWS_BUCKET_NAME, ...),
//     then NBALAKE_* keys
//
// Missing bucket or API settings are not an error here; they surface in the
// step that needs them.
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(configFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: yaml %s: %w", ErrLoadConfig, path, err)
		}
	}

	if path, ok := dotenvPath(); ok {
		for _, layer := range envLayers {
			if err := k.Load(file.Provider(path), dotenv.ParserEnv("", ".", parked(layer))); err != nil {
				return nil, fmt.Errorf("%w: dotenv %s: %w", ErrLoadConfig, path, err)
			}
		}
	}

	// Empty keys are dropped by the provider, so unrelated variables never
	// reach the struct.
	for _, layer := range envLayers {
		if err := k.Load(env.Provider("", ".", layer), nil); err != nil {
			return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
		}
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects structurally invalid values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.Region == "" {
		return fmt.Errorf("%w: region must not be empty", ErrInvalidConfig)
	}
	if c.ObjectKey == "" {
		return fmt.Errorf("%w: object_key must not be empty", ErrInvalidConfig)
	}
	if c.ReadinessTimeout <= 0 {
		return fmt.Errorf("%w: readiness_timeout must be positive", ErrInvalidConfig)
	}
	if c.ReadinessMinDelay <= 0 || c.ReadinessMaxDelay < c.ReadinessMinDelay {
		return fmt.Errorf("%w: readiness delays must satisfy 0 < min <= max", ErrInvalidConfig)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("%w: fetch_timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

func lookup(names map[string]string) func(string) string {
	return func(name string) string { return names[name] }
}

// prefixedKey maps NBALAKE_FOO_BAR to foo_bar, or "" to skip the variable.
func prefixedKey(name string) string {
	if !strings.HasPrefix(name, envPrefix) || name == configFileEnv || name == dotenvFileEnv {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(name, envPrefix))
}

// parked adapts a layer for dotenv files: names the layer skips are parked
// under a key the struct never reads.
func parked(layer func(string) string) func(string) string {
	return func(name string) string {
		if key := layer(name); key != "" {
			return key
		}
		return "unused." + strings.ToLower(name)
	}
}

func dotenvPath() (string, bool) {
	if path := os.Getenv(dotenvFileEnv); path != "" {
		return path, true
	}
	if _, err := os.Stat(defaultDotenv); errors.Is(err, os.ErrNotExist) {
		return "", false
	}
	return defaultDotenv, true
}
