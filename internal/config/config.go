// Package config loads service configuration from an optional YAML file
// overlaid by FINADV_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Groq      GroqConfig      `koanf:"groq"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Pricing   PricingConfig   `koanf:"pricing"`
	Storage   StorageConfig   `koanf:"storage"`
	Auth      AuthConfig      `koanf:"auth"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type GroqConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

type RateLimitConfig struct {
	Requests    int `koanf:"requests"`
	WindowHours int `koanf:"window_hours"`
}

type PricingConfig struct {
	PerMillionTokens float64 `koanf:"per_million_tokens"`
}

type StorageConfig struct {
	Path string `koanf:"path"`
}

type AuthConfig struct {
	Tokens []TokenEntry `koanf:"tokens"`
}

// TokenEntry maps a SHA-256 token hash to a user ID. Hashes are produced by
// cmd/tokengen.
type TokenEntry struct {
	UserID    string `koanf:"user_id"`
	TokenHash string `koanf:"token_hash"`
}

// TokenHashes returns the token-hash -> user ID map consumed by auth.
func (a AuthConfig) TokenHashes() map[string]string {
	m := make(map[string]string, len(a.Tokens))
	for _, t := range a.Tokens {
		m[t.TokenHash] = t.UserID
	}
	return m
}

// Load reads configuration. The file at path is optional; environment
// variables always win. FINADV_SERVER__PORT=9000 maps to server.port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider("FINADV_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "FINADV_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Default values
	defaults := map[string]any{
		"server.port":                8080,
		"groq.model":                 "gemma-2-9b-instruct",
		"rate_limit.requests":        5,
		"rate_limit.window_hours":    24,
		"pricing.per_million_tokens": 0.10,
		"storage.path":               "./data/advisor.db",
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
