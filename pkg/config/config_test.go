package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverrideDBFromEnv(t *testing.T) {
	cfg := DBConfig{Host: "localhost", Port: 5432, User: "postgres"}

	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6432")
	OverrideDBFromEnv(&cfg)

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6432, cfg.Port)
	assert.Equal(t, "postgres", cfg.User, "unset variables leave fields alone")
}

func TestOverrideDBFromEnvIgnoresBadPort(t *testing.T) {
	cfg := DBConfig{Port: 5432}

	t.Setenv("DB_PORT", "not-a-number")
	OverrideDBFromEnv(&cfg)

	assert.Equal(t, 5432, cfg.Port)
}

func TestOverridePushFromEnv(t *testing.T) {
	cfg := PushConfig{Subject: "mailto:ops@example.com", TTLSeconds: 300}

	t.Setenv("VAPID_PUBLIC_KEY", "pub")
	t.Setenv("VAPID_PRIVATE_KEY", "priv")
	t.Setenv("PUSH_TTL_SECONDS", "120")
	OverridePushFromEnv(&cfg)

	assert.Equal(t, "pub", cfg.VAPIDPublicKey)
	assert.Equal(t, "priv", cfg.VAPIDPrivateKey)
	assert.Equal(t, 120, cfg.TTLSeconds)
	assert.Equal(t, "mailto:ops@example.com", cfg.Subject)
}

func TestGetConfigEnvDefault(t *testing.T) {
	t.Setenv("CONFIG_ENV", "")
	assert.Equal(t, "local", GetConfigEnv())

	t.Setenv("CONFIG_ENV", "staging")
	assert.Equal(t, "staging", GetConfigEnv())
}
