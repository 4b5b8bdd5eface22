package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Events       EventsConfig       `yaml:"events"`
	Storage      StorageConfig      `yaml:"storage"`
	AI           AIConfig           `yaml:"ai"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	Validation   ValidationConfig   `yaml:"validation"`
	Webhooks     WebhooksConfig     `yaml:"webhooks"`
	Integrations IntegrationsConfig `yaml:"integrations"`
	Auth         AuthConfig         `yaml:"auth"`
	Secrets      SecretsConfig      `yaml:"secrets"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Analytics    AnalyticsConfig    `yaml:"analytics"`
}

type ServerConfig struct {
	Port             string `yaml:"port"`
	Env              string `yaml:"env"`
	TenantHeaderName string `yaml:"tenant_header_name"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type EventsConfig struct {
	Backend     string `yaml:"event_bus_backend"` // memory | pubsub
	GCPProject  string `yaml:"gcp_project"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type StorageConfig struct {
	Backend   string `yaml:"storage_backend"` // local | gcs
	LocalRoot string `yaml:"local_root"`
	GCSBucket string `yaml:"gcs_bucket"`
}

type AIConfig struct {
	Backend             string `yaml:"ai_backend"` // mock | gcp
	DocumentAIProcessor string `yaml:"documentai_processor_id"`
	GCPProject          string `yaml:"gcp_project"`
	DocumentAILocation  string `yaml:"documentai_location"`
}

type PipelineConfig struct {
	ReviewConfidenceThreshold float64 `yaml:"review_confidence_threshold"`
}

type ValidationConfig struct {
	RulePackID      string `yaml:"validation_rule_pack_id"`
	RulePackVersion string `yaml:"validation_rule_pack_version"`
}

type WebhooksConfig struct {
	MaxRetries int `yaml:"webhook_max_retries"`
	BatchSize  int `yaml:"worker_batch_size"`
}

type IntegrationsConfig struct {
	TimeoutSeconds int `yaml:"integration_timeout_seconds"`
}

type AuthConfig struct {
	AccessTokenTTLMinutes int `yaml:"access_token_ttl_minutes"`
	RefreshTokenTTLDays   int `yaml:"refresh_token_ttl_days"`
}

type SecretsConfig struct {
	RequireSecretManagerInNonDev bool   `yaml:"require_secret_manager_in_non_dev"`
	GCPProject                   string `yaml:"gcp_project"`
}

type RateLimitConfig struct {
	Backend       string `yaml:"rate_limit_backend"` // memory | redis
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	MaxRequests   int    `yaml:"max_requests"`
	WindowSeconds int    `yaml:"window_seconds"`
}

type AnalyticsConfig struct {
	BigQueryDataset   string `yaml:"bigquery_dataset"`
	ActiveLearningDir string `yaml:"active_learning_dir"`
}

// Defaults returns a Config with every knob at its documented default.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             "8080",
			Env:              "dev",
			TenantHeaderName: "X-Tenant-Id",
		},
		Events:  EventsConfig{Backend: "memory", TopicPrefix: "nexuscargo"},
		Storage: StorageConfig{Backend: "local", LocalRoot: "/tmp/nexuscargo-storage"},
		AI:      AIConfig{Backend: "mock", DocumentAILocation: "us"},
		Pipeline: PipelineConfig{
			ReviewConfidenceThreshold: 0.8,
		},
		Validation: ValidationConfig{
			RulePackID:      "global-default",
			RulePackVersion: "v1",
		},
		Webhooks:     WebhooksConfig{MaxRetries: 5, BatchSize: 50},
		Integrations: IntegrationsConfig{TimeoutSeconds: 20},
		Auth:         AuthConfig{AccessTokenTTLMinutes: 30, RefreshTokenTTLDays: 14},
		RateLimit: RateLimitConfig{
			Backend:       "memory",
			MaxRequests:   120,
			WindowSeconds: 60,
		},
		Analytics: AnalyticsConfig{ActiveLearningDir: "/tmp/nexuscargo-active-learning"},
	}
}

// Load reads the YAML config at path over the defaults, then applies
// environment overrides. A missing file is not an error; env-only deploys
// are common in dev.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		f, err := os.Open(path)
		if err == nil {
			defer f.Close()
			decoder := yaml.NewDecoder(f)
			if err := decoder.Decode(cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setFloat := func(dst *float64, key string) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	setBool := func(dst *bool, key string) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setStr(&c.Server.Port, "PORT")
	setStr(&c.Server.Env, "NEXUS_ENV")
	setStr(&c.Server.TenantHeaderName, "TENANT_HEADER_NAME")
	setStr(&c.Database.URL, "DATABASE_URL")
	setStr(&c.Events.Backend, "EVENT_BUS_BACKEND")
	setStr(&c.Events.GCPProject, "GCP_PROJECT")
	setStr(&c.Storage.Backend, "STORAGE_BACKEND")
	setStr(&c.Storage.LocalRoot, "STORAGE_LOCAL_ROOT")
	setStr(&c.Storage.GCSBucket, "GCS_BUCKET")
	setStr(&c.AI.Backend, "AI_BACKEND")
	setStr(&c.AI.DocumentAIProcessor, "DOCUMENTAI_PROCESSOR_ID")
	setStr(&c.AI.GCPProject, "GCP_PROJECT")
	setFloat(&c.Pipeline.ReviewConfidenceThreshold, "REVIEW_CONFIDENCE_THRESHOLD")
	setStr(&c.Validation.RulePackID, "VALIDATION_RULE_PACK_ID")
	setStr(&c.Validation.RulePackVersion, "VALIDATION_RULE_PACK_VERSION")
	setInt(&c.Webhooks.MaxRetries, "WEBHOOK_MAX_RETRIES")
	setInt(&c.Integrations.TimeoutSeconds, "INTEGRATION_TIMEOUT_SECONDS")
	setInt(&c.Auth.AccessTokenTTLMinutes, "ACCESS_TOKEN_TTL_MINUTES")
	setInt(&c.Auth.RefreshTokenTTLDays, "REFRESH_TOKEN_TTL_DAYS")
	setBool(&c.Secrets.RequireSecretManagerInNonDev, "REQUIRE_SECRET_MANAGER_IN_NON_DEV")
	setStr(&c.Secrets.GCPProject, "GCP_PROJECT")
	setStr(&c.RateLimit.Backend, "RATE_LIMIT_BACKEND")
	setStr(&c.RateLimit.RedisAddr, "REDIS_ADDR")
	setStr(&c.RateLimit.RedisPassword, "REDIS_PASSWORD")
	setInt(&c.RateLimit.RedisDB, "REDIS_DB")
	setStr(&c.Analytics.BigQueryDataset, "BIGQUERY_DATASET")
	setStr(&c.Analytics.ActiveLearningDir, "ACTIVE_LEARNING_DIR")
}

// Validate rejects configurations that would misbehave at runtime rather
// than at load time.
func (c *Config) Validate() error {
	switch c.Events.Backend {
	case "memory", "pubsub":
	default:
		return fmt.Errorf("unknown event_bus_backend %q", c.Events.Backend)
	}
	switch c.Storage.Backend {
	case "local", "gcs":
	default:
		return fmt.Errorf("unknown storage_backend %q", c.Storage.Backend)
	}
	switch c.AI.Backend {
	case "mock", "gcp":
	default:
		return fmt.Errorf("unknown ai_backend %q", c.AI.Backend)
	}
	if c.Events.Backend == "pubsub" && c.Events.GCPProject == "" {
		return fmt.Errorf("event_bus_backend=pubsub requires gcp_project")
	}
	if c.Storage.Backend == "gcs" && c.Storage.GCSBucket == "" {
		return fmt.Errorf("storage_backend=gcs requires gcs_bucket")
	}
	if c.Pipeline.ReviewConfidenceThreshold < 0 || c.Pipeline.ReviewConfidenceThreshold > 1 {
		return fmt.Errorf("review_confidence_threshold must be in [0,1]")
	}
	if c.Webhooks.MaxRetries < 1 {
		return fmt.Errorf("webhook_max_retries must be >= 1")
	}
	return nil
}

// IsDev reports whether we are running in a development environment.
func (c *Config) IsDev() bool {
	return c.Server.Env == "dev" || c.Server.Env == "development" || c.Server.Env == ""
}
