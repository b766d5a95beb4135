package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port      string `yaml:"port"`
		RateLimit struct {
			PerSecond float64 `yaml:"per_second"`
			Burst     int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Logger LoggerConfig `yaml:"logger"`
	Redis  struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Bank struct {
		Path string `yaml:"path"`
		TTL  string `yaml:"ttl"`
	} `yaml:"bank"`
	Grading struct {
		Latency string `yaml:"latency"`
	} `yaml:"grading"`
}

// LoggerConfig selects log level and encoding.
type LoggerConfig struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values that cannot be used as given.
func (c Config) Validate() error {
	if c.Server.RateLimit.PerSecond < 0 {
		return fmt.Errorf("server.rate_limit.per_second must not be negative")
	}
	if c.Server.RateLimit.Burst < 0 {
		return fmt.Errorf("server.rate_limit.burst must not be negative")
	}
	for name, raw := range map[string]string{
		"redis.ttl":       c.Redis.TTL,
		"bank.ttl":        c.Bank.TTL,
		"grading.latency": c.Grading.Latency,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
