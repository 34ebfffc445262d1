package config

import (
	"log"

	"gopkg.in/yaml.v3"

	"notification-engine/pkg/config"
)

// WorkerConfig tunes consumer-side dedup and retry behavior.
type WorkerConfig struct {
	DedupTTLSeconds int `yaml:"dedup_ttl_seconds"`
	RetryMax        int `yaml:"retry_max"`
	RetryTTLSeconds int `yaml:"retry_ttl_seconds"`
}

// OutboxConfig tunes the outbox relay loop.
type OutboxConfig struct {
	MaxRetries      int `yaml:"max_retries"`
	IntervalSeconds int `yaml:"interval_seconds"`
	BatchSize       int `yaml:"batch_size"`
}

type Config struct {
	DB     config.DBConfig     `yaml:"db"`
	MQ     config.MQConfig     `yaml:"mq"`
	Redis  config.RedisConfig  `yaml:"redis"`
	Server config.ServerConfig `yaml:"server"`
	Push   config.PushConfig   `yaml:"push"`
	Worker WorkerConfig        `yaml:"worker"`
	Outbox OutboxConfig        `yaml:"outbox"`
}

// Load reads the layered YAML config and applies environment overrides.
func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var cfg Config
	cfgData, err := yaml.Marshal(cfgMap)
	if err != nil {
		log.Fatalf("failed to marshal config: %v", err)
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	// Environment variables win over files.
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverridePushFromEnv(&cfg.Push)

	return &cfg
}
