package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration. It merges file defaults and
// environment overrides to support both local and deployed runs.
type Config struct {
	HTTPPort int

	DatabaseURL   string
	AMQPURL       string
	RedisURL      string
	DispatcherURL string

	PollInterval time.Duration
	ConfirmReads int
	ConfirmDelay time.Duration
}

// configFile mirrors the YAML schema used by configs/default.yaml. It is
// intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		HTTPPort int `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL   string `yaml:"postgres_url"`
		AMQPURL       string `yaml:"amqp_url"`
		RedisURL      string `yaml:"redis_url"`
		DispatcherURL string `yaml:"dispatcher_url"`
	} `yaml:"dependencies"`
	Monitor struct {
		PollIntervalSeconds int `yaml:"poll_interval_seconds"`
		ConfirmReads        int `yaml:"confirm_reads"`
		ConfirmDelaySeconds int `yaml:"confirm_delay_seconds"`
	} `yaml:"monitor"`
}

// Load reads the YAML file at path (optional; empty string skips it),
// then applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	var file configFile
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg := &Config{
		HTTPPort:      file.Service.HTTPPort,
		DatabaseURL:   file.Dependencies.PostgresURL,
		AMQPURL:       file.Dependencies.AMQPURL,
		RedisURL:      file.Dependencies.RedisURL,
		DispatcherURL: file.Dependencies.DispatcherURL,
		PollInterval:  time.Duration(file.Monitor.PollIntervalSeconds) * time.Second,
		ConfirmReads:  file.Monitor.ConfirmReads,
		ConfirmDelay:  time.Duration(file.Monitor.ConfirmDelaySeconds) * time.Second,
	}

	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.AMQPURL, "AMQP_URL")
	overrideString(&cfg.RedisURL, "REDIS_URL")
	overrideString(&cfg.DispatcherURL, "DISPATCHER_URL")
	overrideInt(&cfg.HTTPPort, "HTTP_PORT")
	overrideSeconds(&cfg.PollInterval, "POLL_INTERVAL_SECONDS")
	overrideInt(&cfg.ConfirmReads, "CONFIRM_READS")
	overrideSeconds(&cfg.ConfirmDelay, "CONFIRM_DELAY_SECONDS")

	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = 8080
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.ConfirmReads <= 0 {
		cfg.ConfirmReads = 2
	}
	if cfg.ConfirmDelay <= 0 {
		cfg.ConfirmDelay = 1 * time.Second
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("postgres_url is required (set DATABASE_URL or configure the file)")
	}
	return cfg, nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overrideSeconds(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(n) * time.Second
		}
	}
}
