package config

import (
	"os"
	"strconv"
)

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// MQConfig holds RabbitMQ connection settings.
type MQConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ServerConfig holds the ops HTTP server settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// PushConfig holds Web Push / VAPID settings.
type PushConfig struct {
	Subject         string `yaml:"subject"`
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	TTLSeconds      int    `yaml:"ttl_seconds"`
	DefaultURL      string `yaml:"default_url"`
}

// OverrideDBFromEnv applies DB_* environment variables on top of cfg.
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideMQFromEnv applies MQ_URL on top of cfg.
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv applies REDIS_* environment variables on top of cfg.
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideServerFromEnv applies SERVER_PORT on top of cfg.
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverridePushFromEnv applies VAPID_* and PUSH_* environment variables on
// top of cfg. Keys usually live in secrets, not YAML.
func OverridePushFromEnv(cfg *PushConfig) {
	if subject := os.Getenv("PUSH_SUBJECT"); subject != "" {
		cfg.Subject = subject
	}
	if pub := os.Getenv("VAPID_PUBLIC_KEY"); pub != "" {
		cfg.VAPIDPublicKey = pub
	}
	if priv := os.Getenv("VAPID_PRIVATE_KEY"); priv != "" {
		cfg.VAPIDPrivateKey = priv
	}
	if ttl := os.Getenv("PUSH_TTL_SECONDS"); ttl != "" {
		if t, err := strconv.Atoi(ttl); err == nil {
			cfg.TTLSeconds = t
		}
	}
	if url := os.Getenv("PUSH_DEFAULT_URL"); url != "" {
		cfg.DefaultURL = url
	}
}
